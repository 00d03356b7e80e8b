package database

import (
	"context"
	"errors"
	"time"

	"serwer-dokumentow/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var ErrNodeNotFound = errors.New("node not found")
var ErrNotOwner = errors.New("only the owner may perform this operation")
var ErrDuplicateNodeName = errors.New("a node with the same name already exists in this folder")
var ErrParentNotFound = errors.New("target folder does not exist")
var ErrCycleDetected = errors.New("operation would create a cycle in the node tree")

const nodeColumns = `id, owner_id, parent_id, name, node_type, size_bytes, mime_type, storage_ref, current_version, created_at, modified_at, deleted_at`

func scanNode(row pgx.Row) (*models.Node, error) {
	var node models.Node
	err := row.Scan(
		&node.ID,
		&node.OwnerID,
		&node.ParentID,
		&node.Name,
		&node.NodeType,
		&node.SizeBytes,
		&node.MimeType,
		&node.StorageRef,
		&node.CurrentVersion,
		&node.CreatedAt,
		&node.ModifiedAt,
		&node.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &node, nil
}

type CreateNodeParams struct {
	ID         string
	OwnerID    int64
	ParentID   *string
	Name       string
	NodeType   string
	SizeBytes  *int64
	MimeType   *string
	StorageRef *string
}

func (q *Queries) CreateNode(ctx context.Context, arg CreateNodeParams) (*models.Node, error) {
	query := `
		INSERT INTO nodes (id, owner_id, parent_id, name, node_type, size_bytes, mime_type, storage_ref, created_at, modified_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		RETURNING ` + nodeColumns

	now := time.Now()
	row := q.db.QueryRow(ctx, query,
		arg.ID,
		arg.OwnerID,
		arg.ParentID,
		arg.Name,
		arg.NodeType,
		arg.SizeBytes,
		arg.MimeType,
		arg.StorageRef,
		now,
	)

	node, err := scanNode(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrDuplicateNodeName
		}
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return nil, ErrParentNotFound
		}
		return nil, err
	}
	if node == nil {
		return nil, ErrNodeNotFound
	}

	return node, nil
}

// GetNodeByID zwraca węzeł niezależnie od tego, czy jest w koszu.
// Brak wiersza to (nil, nil).
func (q *Queries) GetNodeByID(ctx context.Context, id string) (*models.Node, error) {
	query := `SELECT ` + nodeColumns + ` FROM nodes WHERE id = $1`
	return scanNode(q.db.QueryRow(ctx, query, id))
}

func (q *Queries) NodeExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	query := "SELECT EXISTS(SELECT 1 FROM nodes WHERE id = $1)"
	err := q.db.QueryRow(ctx, query, id).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (q *Queries) GetNodesByParentID(ctx context.Context, ownerID int64, parentID *string, limit int, offset int) ([]models.Node, error) {
	var rows pgx.Rows
	var err error

	if parentID == nil {
		query := `SELECT ` + nodeColumns + `
				 FROM nodes
				 WHERE owner_id = $1 AND parent_id IS NULL AND deleted_at IS NULL
				 ORDER BY node_type DESC, name
				 LIMIT $2 OFFSET $3`
		rows, err = q.db.Query(ctx, query, ownerID, limit, offset)
	} else {
		query := `SELECT ` + nodeColumns + `
				 FROM nodes
				 WHERE owner_id = $1 AND parent_id = $2 AND deleted_at IS NULL
				 ORDER BY node_type DESC, name
				 LIMIT $3 OFFSET $4`
		rows, err = q.db.Query(ctx, query, ownerID, *parentID, limit, offset)
	}

	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectNodes(rows)
}

func collectNodes(rows pgx.Rows) ([]models.Node, error) {
	var nodes []models.Node
	for rows.Next() {
		var node models.Node
		err := rows.Scan(
			&node.ID,
			&node.OwnerID,
			&node.ParentID,
			&node.Name,
			&node.NodeType,
			&node.SizeBytes,
			&node.MimeType,
			&node.StorageRef,
			&node.CurrentVersion,
			&node.CreatedAt,
			&node.ModifiedAt,
			&node.DeletedAt,
		)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if nodes == nil {
		return []models.Node{}, nil
	}

	return nodes, nil
}

func (q *Queries) RenameNode(ctx context.Context, id string, ownerID int64, newName string) (bool, error) {
	query := `
		UPDATE nodes
		SET name = $1, modified_at = $2
		WHERE id = $3 AND owner_id = $4 AND deleted_at IS NULL
	`
	now := time.Now()
	res, err := q.db.Exec(ctx, query, newName, now, id, ownerID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return false, ErrDuplicateNodeName
		}
		return false, err
	}

	return res.RowsAffected() > 0, nil
}

func (q *Queries) MoveNode(ctx context.Context, id string, ownerID int64, newParentID *string) (bool, error) {
	if newParentID != nil {
		isDescendant, err := q.IsDescendantOf(ctx, id, *newParentID)
		if err != nil {
			return false, err
		}
		if isDescendant {
			return false, ErrCycleDetected
		}
	}

	query := `
		UPDATE nodes
		SET parent_id = $1, modified_at = $2
		WHERE id = $3 AND owner_id = $4 AND deleted_at IS NULL
	`
	now := time.Now()
	res, err := q.db.Exec(ctx, query, newParentID, now, id, ownerID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return false, ErrParentNotFound
		}
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return false, ErrDuplicateNodeName
		}
		return false, err
	}

	return res.RowsAffected() > 0, nil
}

// IsDescendantOf sprawdza, czy potentialDescendantId leży w poddrzewie nodeId
// (węzeł jest potomkiem samego siebie).
func (q *Queries) IsDescendantOf(ctx context.Context, nodeId string, potentialDescendantId string) (bool, error) {
	if nodeId == potentialDescendantId {
		return true, nil
	}

	query := `
		WITH RECURSIVE node_children AS (
			SELECT id FROM nodes WHERE id = $1

			UNION ALL

			SELECT n.id
			FROM nodes n
			JOIN node_children nc ON n.parent_id = nc.id
		)
		SELECT EXISTS (
			SELECT 1
			FROM node_children
			WHERE id = $2
		);
	`
	var isDescendant bool
	err := q.db.QueryRow(ctx, query, nodeId, potentialDescendantId).Scan(&isDescendant)
	return isDescendant, err
}

// CollectSubtreeIDs zwraca identyfikatory całego poddrzewa węzła,
// włącznie z nim samym, również dla węzłów w koszu.
func (q *Queries) CollectSubtreeIDs(ctx context.Context, id string) ([]string, error) {
	query := `
		WITH RECURSIVE subtree AS (
			SELECT n.id
			FROM nodes n
			WHERE n.id = $1

			UNION ALL

			SELECT n.id
			FROM nodes n
			INNER JOIN subtree s ON n.parent_id = s.id
		)
		SELECT id FROM subtree
	`
	rows, err := q.db.Query(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var nodeID string
		if err := rows.Scan(&nodeID); err != nil {
			return nil, err
		}
		ids = append(ids, nodeID)
	}

	return ids, rows.Err()
}

// ListTrash zwraca tylko korzenie usuniętych poddrzew, bo kosz pokazuje
// każdą usuniętą gałąź jako pojedynczy wpis.
func (q *Queries) ListTrash(ctx context.Context, ownerID int64, limit int, offset int) ([]models.Node, error) {
	query := `
		SELECT ` + nodeColumns + `
		FROM nodes n
		WHERE n.owner_id = $1 AND n.deleted_at IS NOT NULL
		AND (
			n.parent_id IS NULL
			OR EXISTS (
				SELECT 1 FROM nodes p
				WHERE p.id = n.parent_id AND p.deleted_at IS NULL
			)
		)
		ORDER BY n.deleted_at DESC LIMIT $2 OFFSET $3
	`
	rows, err := q.db.Query(ctx, query, ownerID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectNodes(rows)
}

func (q *Queries) UpdateUserStorage(ctx context.Context, userID int64, bytesChange int64) error {
	query := `
		UPDATE users
		SET storage_used_bytes = storage_used_bytes + $1
		WHERE id = $2
	`
	_, err := q.db.Exec(ctx, query, bytesChange, userID)
	return err
}

type CreateVersionParams struct {
	NodeID     string
	StorageRef string
	SizeBytes  int64
	Note       *string
}

// CreateDocumentVersion dopisuje kolejną wersję dokumentu (numeracja od 1,
// zawsze max+1) i aktualizuje lustrzane pola na samym węźle.
func (q *Queries) CreateDocumentVersion(ctx context.Context, arg CreateVersionParams) (*models.DocumentVersion, error) {
	query := `
		INSERT INTO document_versions (node_id, version_number, storage_ref, note)
		VALUES (
			$1,
			(SELECT COALESCE(MAX(version_number), 0) + 1 FROM document_versions WHERE node_id = $1),
			$2,
			$3
		)
		RETURNING id, node_id, version_number, storage_ref, note, created_at
	`
	var version models.DocumentVersion
	err := q.db.QueryRow(ctx, query, arg.NodeID, arg.StorageRef, arg.Note).Scan(
		&version.ID,
		&version.NodeID,
		&version.VersionNumber,
		&version.StorageRef,
		&version.Note,
		&version.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	update := `
		UPDATE nodes
		SET storage_ref = $1, size_bytes = $2, current_version = $3, modified_at = $4
		WHERE id = $5
	`
	_, err = q.db.Exec(ctx, update, arg.StorageRef, arg.SizeBytes, version.VersionNumber, time.Now(), arg.NodeID)
	if err != nil {
		return nil, err
	}

	return &version, nil
}

func (q *Queries) ListDocumentVersions(ctx context.Context, nodeID string) ([]models.DocumentVersion, error) {
	query := `
		SELECT id, node_id, version_number, storage_ref, note, created_at
		FROM document_versions
		WHERE node_id = $1
		ORDER BY version_number DESC
	`
	rows, err := q.db.Query(ctx, query, nodeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []models.DocumentVersion
	for rows.Next() {
		var version models.DocumentVersion
		err := rows.Scan(
			&version.ID,
			&version.NodeID,
			&version.VersionNumber,
			&version.StorageRef,
			&version.Note,
			&version.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		versions = append(versions, version)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	if versions == nil {
		return []models.DocumentVersion{}, nil
	}

	return versions, nil
}

func (q *Queries) GetDocumentVersion(ctx context.Context, nodeID string, versionNumber int32) (*models.DocumentVersion, error) {
	query := `
		SELECT id, node_id, version_number, storage_ref, note, created_at
		FROM document_versions
		WHERE node_id = $1 AND version_number = $2
	`
	var version models.DocumentVersion
	err := q.db.QueryRow(ctx, query, nodeID, versionNumber).Scan(
		&version.ID,
		&version.NodeID,
		&version.VersionNumber,
		&version.StorageRef,
		&version.Note,
		&version.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &version, nil
}
