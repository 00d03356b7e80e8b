package database

import (
	"context"

	"serwer-dokumentow/internal/models"
)

func (q *Queries) InsertAuditEntry(ctx context.Context, entry models.AuditEntry) error {
	query := `
		INSERT INTO audit_log (actor_id, action, target_type, target_id, target_name, details)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := q.db.Exec(ctx, query,
		entry.ActorID,
		entry.Action,
		entry.TargetType,
		entry.TargetID,
		entry.TargetName,
		entry.Details,
	)
	return err
}

func (q *Queries) ListAuditEntriesForActor(ctx context.Context, actorID int64, limit int, offset int) ([]models.AuditEntry, error) {
	query := `
		SELECT id, actor_id, action, target_type, target_id, target_name, details, logged_at
		FROM audit_log
		WHERE actor_id = $1
		ORDER BY id DESC LIMIT $2 OFFSET $3
	`
	rows, err := q.db.Query(ctx, query, actorID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.AuditEntry
	for rows.Next() {
		var entry models.AuditEntry
		err := rows.Scan(
			&entry.ID,
			&entry.ActorID,
			&entry.Action,
			&entry.TargetType,
			&entry.TargetID,
			&entry.TargetName,
			&entry.Details,
			&entry.LoggedAt,
		)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	if entries == nil {
		return []models.AuditEntry{}, nil
	}

	return entries, nil
}
