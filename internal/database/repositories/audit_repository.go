package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"election-engine/internal/database"
)

type AuditLogRepository struct {
	db database.DBTX
}

func NewAuditLogRepository(db database.DBTX) *AuditLogRepository {
	return &AuditLogRepository{db: db}
}

// InsertAuditLog inserts a new audit log entry
func (r *AuditLogRepository) InsertAuditLog(ctx context.Context, log *database.AuditLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	query := `
        INSERT INTO audit_logs (id, action, actor, election_id, details, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `
	_, err := r.db.ExecContext(ctx, query, log.ID, log.Action, log.Actor, log.ElectionID, log.Details, log.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// ListAuditLogs retrieves audit logs with pagination, newest first.
// An empty electionID lists every election.
func (r *AuditLogRepository) ListAuditLogs(ctx context.Context, electionID, action string, limit, offset int) ([]database.AuditLog, error) {
	query := `
        SELECT id, action, actor, election_id, details, created_at
        FROM audit_logs
        WHERE 1=1
    `
	args := []any{}

	if electionID != "" {
		args = append(args, electionID)
		query += fmt.Sprintf(" AND election_id = $%d", len(args))
	}
	if action != "" {
		args = append(args, action)
		query += fmt.Sprintf(" AND action = $%d", len(args))
	}

	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit, offset)
	query += fmt.Sprintf(" ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var logs []database.AuditLog
	for rows.Next() {
		var log database.AuditLog
		if err := rows.Scan(&log.ID, &log.Action, &log.Actor, &log.ElectionID, &log.Details, &log.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		log.CreatedAt = log.CreatedAt.UTC()
		logs = append(logs, log)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return logs, nil
}
