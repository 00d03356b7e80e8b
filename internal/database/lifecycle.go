package database

import (
	"context"
	"errors"
	"time"

	"serwer-dokumentow/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
)

var ErrNodeNotTrashed = errors.New("node is not in the trash")
var ErrNodeAlreadyLive = errors.New("node is not deleted")
var ErrSharedWithOthers = errors.New("node or its descendants are shared with other users")

// AuditRecorder przyjmuje wpisy dziennika bez blokowania wywołującego.
type AuditRecorder interface {
	Record(entry models.AuditEntry)
}

// AttachAuditRecorder podpina dziennik zdarzeń; przekazanie nil go wyłącza.
func (s *Store) AttachAuditRecorder(r AuditRecorder) {
	s.audit = r
}

func (s *Store) recordAudit(actorID int64, action, targetType, targetID, targetName, details string) {
	if s.audit == nil {
		return
	}
	s.audit.Record(models.AuditEntry{
		ActorID:    actorID,
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
		TargetName: targetName,
		Details:    details,
	})
}

func (q *Queries) subtreeSharedWithOthers(ctx context.Context, subtree []string, ownerID int64) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM grants
			WHERE node_id = ANY($1) AND principal_id <> $2
		) OR EXISTS (
			SELECT 1 FROM group_shares
			WHERE node_id = ANY($1)
		)
	`
	var shared bool
	err := q.db.QueryRow(ctx, query, subtree, ownerID).Scan(&shared)
	return shared, err
}

// SoftDeleteNode przenosi poddrzewo do kosza i odbiera wszystkie nadania
// wewnątrz poddrzewa. Usuwać może właściciel albo użytkownik ze skutecznym
// poziomem edit. Usuwanie węzła, który już jest w koszu, to puste
// powodzenie. Gdy poddrzewo jest komukolwiek udostępnione, wymagane jest
// confirmed=true — inaczej operacja kończy się ErrSharedWithOthers.
// Zwraca identyfikatory objętych węzłów.
func (s *Store) SoftDeleteNode(ctx context.Context, nodeID string, actorID int64, confirmed bool) ([]string, error) {
	var affected []string
	names := make(map[string]string)

	err := s.ExecTx(ctx, func(q *Queries) error {
		node, err := q.GetNodeByID(ctx, nodeID)
		if err != nil {
			return err
		}
		if node == nil {
			return ErrNodeNotFound
		}
		if node.OwnerID != actorID {
			level, err := q.EffectiveAccess(ctx, nodeID, actorID)
			if err != nil {
				return err
			}
			if level == nil || !level.AtLeast(models.AccessEdit) {
				return ErrNotOwner
			}
		}
		if node.IsDeleted() {
			return nil
		}

		subtree, err := q.CollectSubtreeIDs(ctx, nodeID)
		if err != nil {
			return err
		}

		rows, err := q.db.Query(ctx, `SELECT id, name FROM nodes WHERE id = ANY($1)`, subtree)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var id, name string
			if err := rows.Scan(&id, &name); err != nil {
				return err
			}
			names[id] = name
		}
		if err := rows.Err(); err != nil {
			return err
		}

		if !confirmed {
			shared, err := q.subtreeSharedWithOthers(ctx, subtree, node.OwnerID)
			if err != nil {
				return err
			}
			if shared {
				return ErrSharedWithOthers
			}
		}

		now := time.Now()
		if _, err := q.db.Exec(ctx, `UPDATE nodes SET deleted_at = $1 WHERE id = ANY($2)`, now, subtree); err != nil {
			return err
		}
		if _, err := q.db.Exec(ctx, `DELETE FROM grants WHERE node_id = ANY($1)`, subtree); err != nil {
			return err
		}
		if _, err := q.db.Exec(ctx, `DELETE FROM group_shares WHERE node_id = ANY($1)`, subtree); err != nil {
			return err
		}

		affected = subtree
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, id := range affected {
		s.recordAudit(actorID, "node.trash", "node", id, names[id], "")
	}

	return affected, nil
}

// RestoreNode przywraca całe poddrzewo z kosza. Tylko właściciel może
// przywracać i żadne wcześniejsze nadania nie wracają. Gdy pierwotny
// rodzic nadal leży w koszu, węzeł wraca do katalogu głównego.
func (s *Store) RestoreNode(ctx context.Context, nodeID string, ownerID int64) (*models.Node, error) {
	var restored *models.Node

	err := s.ExecTx(ctx, func(q *Queries) error {
		node, err := q.GetNodeByID(ctx, nodeID)
		if err != nil {
			return err
		}
		if node == nil {
			return ErrNodeNotFound
		}
		if node.OwnerID != ownerID {
			return ErrNotOwner
		}
		if !node.IsDeleted() {
			return ErrNodeAlreadyLive
		}

		detach := false
		if node.ParentID != nil {
			parent, err := q.GetNodeByID(ctx, *node.ParentID)
			if err != nil {
				return err
			}
			if parent == nil || parent.IsDeleted() {
				detach = true
			}
		}

		subtree, err := q.CollectSubtreeIDs(ctx, nodeID)
		if err != nil {
			return err
		}

		if detach {
			if _, err := q.db.Exec(ctx, `UPDATE nodes SET parent_id = NULL WHERE id = $1`, nodeID); err != nil {
				return err
			}
		}

		_, err = q.db.Exec(ctx, `UPDATE nodes SET deleted_at = NULL WHERE id = ANY($1)`, subtree)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return ErrDuplicateNodeName
			}
			return err
		}

		restored, err = q.GetNodeByID(ctx, nodeID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ownerID, "node.restore", "node", restored.ID, restored.Name, "")

	return restored, nil
}

func (q *Queries) collectStorageRefs(ctx context.Context, subtree []string) ([]string, error) {
	query := `
		SELECT storage_ref FROM document_versions WHERE node_id = ANY($1)
		UNION
		SELECT storage_ref FROM nodes WHERE id = ANY($1) AND storage_ref IS NOT NULL
	`
	rows, err := q.db.Query(ctx, query, subtree)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var refs []string
	for rows.Next() {
		var ref string
		if err := rows.Scan(&ref); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}

	return refs, rows.Err()
}

func (q *Queries) purgeSubtree(ctx context.Context, subtree []string) ([]string, error) {
	refs, err := q.collectStorageRefs(ctx, subtree)
	if err != nil {
		return nil, err
	}

	// Dokumenty wgrane przez edytujących należą do nich, nie do
	// właściciela korzenia, więc zwolnione bajty rozlicza się per
	// właściciel.
	freed := make(map[int64]int64)
	sizeQuery := `
		SELECT owner_id, COALESCE(SUM(size_bytes), 0)
		FROM nodes
		WHERE id = ANY($1) AND node_type = 'document'
		GROUP BY owner_id
	`
	rows, err := q.db.Query(ctx, sizeQuery, subtree)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var ownerID, bytes int64
		if err := rows.Scan(&ownerID, &bytes); err != nil {
			return nil, err
		}
		freed[ownerID] = bytes
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Jedna instrukcja usuwa dzieci razem z rodzicami; klucze obce
	// są sprawdzane dopiero na końcu instrukcji.
	if _, err := q.db.Exec(ctx, `DELETE FROM nodes WHERE id = ANY($1)`, subtree); err != nil {
		return nil, err
	}

	for ownerID, bytes := range freed {
		if bytes == 0 {
			continue
		}
		if err := q.UpdateUserStorage(ctx, ownerID, -bytes); err != nil {
			return nil, err
		}
	}

	return refs, nil
}

// PurgeNodeForever trwale usuwa poddrzewo z kosza razem z wersjami,
// nadaniami i linkami. Zwraca odnośniki do plików, które wywołujący
// powinien zwolnić w magazynie PO udanym zatwierdzeniu transakcji.
// Identyfikatory węzłów nie wracają do obiegu.
func (s *Store) PurgeNodeForever(ctx context.Context, nodeID string, ownerID int64) ([]string, error) {
	var refs []string
	var nodeName string

	err := s.ExecTx(ctx, func(q *Queries) error {
		node, err := q.GetNodeByID(ctx, nodeID)
		if err != nil {
			return err
		}
		if node == nil {
			return ErrNodeNotFound
		}
		if node.OwnerID != ownerID {
			return ErrNotOwner
		}
		if !node.IsDeleted() {
			return ErrNodeNotTrashed
		}
		nodeName = node.Name

		subtree, err := q.CollectSubtreeIDs(ctx, nodeID)
		if err != nil {
			return err
		}

		refs, err = q.purgeSubtree(ctx, subtree)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ownerID, "node.purge", "node", nodeID, nodeName, "")

	return refs, nil
}

// PurgeTrash opróżnia cały kosz użytkownika. Zwraca odnośniki do plików
// do zwolnienia w magazynie.
func (s *Store) PurgeTrash(ctx context.Context, ownerID int64) ([]string, error) {
	var refs []string

	err := s.ExecTx(ctx, func(q *Queries) error {
		// Korzenie usuniętych poddrzew, tak jak pokazuje je ListTrash.
		// Dopiero rozwinięcie każdego korzenia daje pełny zbiór do
		// skasowania: poddrzewo może zawierać węzły innych właścicieli
		// (dokumenty wgrane przez edytujących), a klucz obcy parent_id
		// wymaga, żeby dzieci znikały razem z rodzicami.
		rootsQuery := `
			SELECT n.id
			FROM nodes n
			WHERE n.owner_id = $1 AND n.deleted_at IS NOT NULL
			AND (
				n.parent_id IS NULL
				OR EXISTS (
					SELECT 1 FROM nodes p
					WHERE p.id = n.parent_id AND p.deleted_at IS NULL
				)
			)
		`
		rows, err := q.db.Query(ctx, rootsQuery, ownerID)
		if err != nil {
			return err
		}
		defer rows.Close()

		var roots []string
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				return err
			}
			roots = append(roots, id)
		}
		if err := rows.Err(); err != nil {
			return err
		}
		if len(roots) == 0 {
			return nil
		}

		seen := make(map[string]bool)
		var subtree []string
		for _, root := range roots {
			ids, err := q.CollectSubtreeIDs(ctx, root)
			if err != nil {
				return err
			}
			for _, id := range ids {
				if !seen[id] {
					seen[id] = true
					subtree = append(subtree, id)
				}
			}
		}

		refs, err = q.purgeSubtree(ctx, subtree)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ownerID, "trash.purge", "trash", "", "", "")

	return refs, nil
}
