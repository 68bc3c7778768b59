package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Page size limits for List.
const (
	defaultLimit = 50
	maxLimit     = 200
)

// timeFormat is fixed-width so created_at sorts correctly as text.
const timeFormat = "2006-01-02T15:04:05.000000000Z"

// AuditLog represents a single audit trail entry.
type AuditLog struct { //nolint:revive // audit.AuditLog is clearer than audit.Log in calling code
	ID         string         `json:"id"`
	EventID    string         `json:"event_id,omitempty"`
	Action     string         `json:"action"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id,omitempty"`
	Actor      string         `json:"actor,omitempty"`
	Success    *bool          `json:"success,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Filter controls which audit logs to return.
type Filter struct {
	Action     string // optional: socket.created, socket.deleted, socket.command, socket.all_off
	EntityType string // optional: socket, system
	EntityID   string // optional: a socket id
	Limit      int    // default 50, max 200
	Offset     int    // pagination offset
}

// ListResult contains the paginated audit log results.
type ListResult struct {
	Logs   []AuditLog `json:"logs"`
	Total  int        `json:"total"`
	Limit  int        `json:"limit"`
	Offset int        `json:"offset"`
}

// Repository defines the interface for audit log operations.
type Repository interface {
	Create(ctx context.Context, log *AuditLog) error
	List(ctx context.Context, filter Filter) (*ListResult, error)
}

// SQLiteRepository stores audit logs in SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new audit log repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Create inserts a new audit log entry. The ID and CreatedAt are generated if empty.
func (r *SQLiteRepository) Create(ctx context.Context, log *AuditLog) error {
	if log.ID == "" {
		log.ID = "aud-" + uuid.NewString()[:8]
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}

	var details any
	if log.Details != nil {
		b, err := json.Marshal(log.Details)
		if err != nil {
			return fmt.Errorf("marshalling audit details: %w", err)
		}
		details = string(b)
	}

	var success any
	if log.Success != nil {
		success = boolToInt(*log.Success)
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO audit_logs (id, event_id, action, entity_type, entity_id, actor, success, details, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		log.ID, nullableString(log.EventID), log.Action, log.EntityType,
		nullableString(log.EntityID), nullableString(log.Actor),
		success, details,
		log.CreatedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("inserting audit log: %w", err)
	}
	return nil
}

// List returns audit logs matching the filter, most recent first.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) (*ListResult, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultLimit
	}
	if filter.Limit > maxLimit {
		filter.Limit = maxLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	var conditions []string
	var args []any
	for _, c := range []struct{ column, value string }{
		{"action", filter.Action},
		{"entity_type", filter.EntityType},
		{"entity_id", filter.EntityID},
	} {
		if c.value != "" {
			conditions = append(conditions, c.column+" = ?")
			args = append(args, c.value)
		}
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := "SELECT COUNT(*) FROM audit_logs " + where //nolint:gosec // WHERE built from fixed column names and ? placeholders
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting audit logs: %w", err)
	}

	query := `SELECT id, event_id, action, entity_type, entity_id, actor, success, details, created_at
		FROM audit_logs ` + where + ` ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?` //nolint:gosec // See above
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying audit logs: %w", err)
	}
	defer rows.Close()

	logs := []AuditLog{}
	for rows.Next() {
		log, err := scanLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating audit logs: %w", err)
	}

	return &ListResult{
		Logs:   logs,
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}, nil
}

func scanLog(rows *sql.Rows) (AuditLog, error) {
	var (
		log                           AuditLog
		eventID, entityID, actor, det sql.NullString
		success                       sql.NullInt64
		createdAt                     string
	)
	if err := rows.Scan(&log.ID, &eventID, &log.Action, &log.EntityType,
		&entityID, &actor, &success, &det, &createdAt); err != nil {
		return log, fmt.Errorf("scanning audit log: %w", err)
	}

	log.EventID = eventID.String
	log.EntityID = entityID.String
	log.Actor = actor.String
	if success.Valid {
		ok := success.Int64 == 1
		log.Success = &ok
	}
	if det.Valid && det.String != "" {
		var details map[string]any
		if json.Unmarshal([]byte(det.String), &details) == nil {
			log.Details = details
		}
	}

	t, err := time.Parse(timeFormat, createdAt)
	if err != nil {
		return log, fmt.Errorf("parsing audit log timestamp %q: %w", createdAt, err)
	}
	log.CreatedAt = t
	return log, nil
}

// nullableString returns nil for empty strings so nullable TEXT columns
// store NULL.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
