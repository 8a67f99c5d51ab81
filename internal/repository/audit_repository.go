package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/recycleshare/recycleshare/internal/model"
)

// AuditRepo reads the append-only audit trail for the admin panel.
// Writes happen exclusively inside engine transactions; there is no
// update or delete path by design of the table.
type AuditRepo struct {
	db *sql.DB
}

// NewAuditRepo returns a new AuditRepo bound to the given database.
func NewAuditRepo(db *sql.DB) *AuditRepo { return &AuditRepo{db: db} }

// List returns a page of audit entries, newest first.  A non-empty
// entity filters to that entity kind.
func (r *AuditRepo) List(ctx context.Context, entity string, limit, offset int) ([]model.AuditLogEntry, error) {
	q := `SELECT id, entity, action, before_json, after_json, message, created_at FROM audit_log`
	args := make([]interface{}, 0, 3)
	if entity != "" {
		q += " WHERE entity = ?"
		args = append(args, entity)
	}
	q += " ORDER BY id DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	entries := make([]model.AuditLogEntry, 0)
	for rows.Next() {
		var (
			e         model.AuditLogEntry
			before    sql.NullString
			after     sql.NullString
			createdAt time.Time
		)
		if err := rows.Scan(&e.ID, &e.Entity, &e.Action, &before, &after, &e.Message, &createdAt); err != nil {
			return nil, err
		}
		if before.Valid {
			b := before.String
			e.Before = &b
		}
		if after.Valid {
			a := after.String
			e.After = &a
		}
		e.CreatedAt = createdAt.UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
