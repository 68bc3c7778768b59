// Package audit records registry and command events in the audit_logs
// table and serves them back for the audit API.
package audit
