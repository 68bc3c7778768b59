// Package api implements the HTTP REST API and WebSocket server for the
// RF socket controller.
//
// This package provides:
//   - REST endpoints for the socket registry, on/off commands and all-off
//   - User administration and the audit trail for ADMIN callers
//   - A WebSocket hub relaying registry and command events to clients
//   - JWT bearer authentication with permission levels (NONE, USER, ADMIN)
//   - Middleware stack (request ID, logging, metrics, recovery, CORS)
//
// # Response Envelope
//
// Every JSON response is wrapped: success as {"rsc_ok": ...} and failure as
// {"rsc_error": {"type", "message", "fields"}}. The error type maps to the
// HTTP status: NOT_FOUND 404, SOCKET_ERROR 500, INVALID_REQUEST 400,
// PERMISSION_DENIED 403. A missing or invalid token is 401.
//
// # Security
//
// Tokens are HS256 JWTs issued by POST /auth/login. The permission carried
// in the token is checked per route. WebSocket clients pass the token in the
// Authorization header or, for browsers, in the token query parameter.
package api
