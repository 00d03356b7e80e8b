package database

import (
	"context"

	"serwer-dokumentow/internal/models"
)

// ToggleStar odwraca oznaczenie gwiazdką: brak wpisu zakłada go, istniejący
// znika. Oznaczać można tylko węzły, do których użytkownik ma dostęp.
// Zwraca stan po przełączeniu.
func (s *Store) ToggleStar(ctx context.Context, userID int64, nodeID string) (bool, error) {
	var starred bool

	err := s.ExecTx(ctx, func(q *Queries) error {
		node, err := q.GetNodeByID(ctx, nodeID)
		if err != nil {
			return err
		}
		if node == nil || node.IsDeleted() {
			return ErrNodeNotFound
		}
		if node.OwnerID != userID {
			level, err := q.EffectiveAccess(ctx, nodeID, userID)
			if err != nil {
				return err
			}
			if level == nil {
				return ErrNodeNotFound
			}
		}

		res, err := q.db.Exec(ctx, `DELETE FROM stars WHERE user_id = $1 AND node_id = $2`, userID, nodeID)
		if err != nil {
			return err
		}
		if res.RowsAffected() > 0 {
			starred = false
			return nil
		}

		_, err = q.db.Exec(ctx, `INSERT INTO stars (user_id, node_id) VALUES ($1, $2)`, userID, nodeID)
		if err != nil {
			return err
		}
		starred = true
		return nil
	})
	if err != nil {
		return false, err
	}

	return starred, nil
}

// ListStarredNodes pomija węzły leżące w koszu; gwiazdka zostaje i węzeł
// wraca na listę po przywróceniu.
func (q *Queries) ListStarredNodes(ctx context.Context, userID int64) ([]models.Node, error) {
	query := `
		SELECT n.id, n.owner_id, n.parent_id, n.name, n.node_type, n.size_bytes,
		       n.mime_type, n.storage_ref, n.current_version, n.created_at,
		       n.modified_at, n.deleted_at
		FROM nodes n
		JOIN stars st ON st.node_id = n.id
		WHERE st.user_id = $1 AND n.deleted_at IS NULL
		ORDER BY n.node_type DESC, n.name
	`
	rows, err := q.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectNodes(rows)
}
