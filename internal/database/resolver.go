package database

import (
	"context"
	"errors"

	"serwer-dokumentow/internal/models"

	"github.com/jackc/pgx/v5"
)

// nodeRef to minimalny widok węzła potrzebny do wspinaczki po przodkach.
type nodeRef struct {
	ID       string
	OwnerID  int64
	ParentID *string
	NodeType string
	Deleted  bool
}

func (q *Queries) getNodeRef(ctx context.Context, id string) (*nodeRef, error) {
	query := `
		SELECT id, owner_id, parent_id, node_type, deleted_at IS NOT NULL
		FROM nodes
		WHERE id = $1
	`
	var ref nodeRef
	err := q.db.QueryRow(ctx, query, id).Scan(&ref.ID, &ref.OwnerID, &ref.ParentID, &ref.NodeType, &ref.Deleted)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &ref, nil
}

func (q *Queries) getGrantLevel(ctx context.Context, nodeID string, userID int64) (*models.AccessLevel, error) {
	query := `SELECT access_level FROM grants WHERE node_id = $1 AND principal_id = $2`
	var level models.AccessLevel
	err := q.db.QueryRow(ctx, query, nodeID, userID).Scan(&level)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &level, nil
}

// EffectiveFolderAccess wyznacza skuteczny poziom dostępu użytkownika do
// folderu. Wygrywa nadanie na najbliższym węźle: najpierw sam folder, potem
// rodzic, i tak dalej w górę. Właściciel węzła na ścieżce dostaje edit.
// Brak dostępu, węzeł w koszu i nieistniejący węzeł to (nil, nil) —
// to zwykłe odpowiedzi, nie błędy.
//
// Wspinaczka jest iteracyjna, nie przez rekurencyjne CTE: potrzebny jest
// poziom z PIERWSZEGO pasującego przodka, a nie suma po całej ścieżce.
func (q *Queries) EffectiveFolderAccess(ctx context.Context, folderID string, userID int64) (*models.AccessLevel, error) {
	ref, err := q.getNodeRef(ctx, folderID)
	if err != nil {
		return nil, err
	}
	if ref == nil || ref.Deleted || ref.NodeType != models.NodeTypeFolder {
		return nil, nil
	}

	return q.walkAncestors(ctx, ref, userID)
}

func (q *Queries) walkAncestors(ctx context.Context, start *nodeRef, userID int64) (*models.AccessLevel, error) {
	visited := make(map[string]bool)
	current := start

	for current != nil {
		if visited[current.ID] {
			return nil, ErrCycleDetected
		}
		visited[current.ID] = true

		if current.Deleted {
			return nil, nil
		}
		if current.OwnerID == userID {
			edit := models.AccessEdit
			return &edit, nil
		}

		level, err := q.getGrantLevel(ctx, current.ID, userID)
		if err != nil {
			return nil, err
		}
		if level != nil {
			return level, nil
		}

		if current.ParentID == nil {
			return nil, nil
		}
		current, err = q.getNodeRef(ctx, *current.ParentID)
		if err != nil {
			return nil, err
		}
	}

	return nil, nil
}

// EffectiveDocumentAccess: właściciel ma edit, nadanie wprost na dokumencie
// ma pierwszeństwo przed dziedziczeniem, a bez niego dostęp wynika ze
// skutecznego poziomu na folderze nadrzędnym.
func (q *Queries) EffectiveDocumentAccess(ctx context.Context, documentID string, userID int64) (*models.AccessLevel, error) {
	ref, err := q.getNodeRef(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if ref == nil || ref.Deleted || ref.NodeType != models.NodeTypeDocument {
		return nil, nil
	}

	if ref.OwnerID == userID {
		edit := models.AccessEdit
		return &edit, nil
	}

	level, err := q.getGrantLevel(ctx, documentID, userID)
	if err != nil {
		return nil, err
	}
	if level != nil {
		return level, nil
	}

	if ref.ParentID == nil {
		return nil, nil
	}

	parent, err := q.getNodeRef(ctx, *ref.ParentID)
	if err != nil {
		return nil, err
	}
	if parent == nil {
		return nil, nil
	}

	return q.walkAncestors(ctx, parent, userID)
}

// EffectiveAccess rozdziela zapytanie według typu węzła.
func (q *Queries) EffectiveAccess(ctx context.Context, nodeID string, userID int64) (*models.AccessLevel, error) {
	ref, err := q.getNodeRef(ctx, nodeID)
	if err != nil {
		return nil, err
	}
	if ref == nil || ref.Deleted {
		return nil, nil
	}

	if ref.NodeType == models.NodeTypeDocument {
		return q.EffectiveDocumentAccess(ctx, nodeID, userID)
	}
	return q.EffectiveFolderAccess(ctx, nodeID, userID)
}

// ResolveLinkAccess wyznacza poziom dostępu z linku o danym tokenie do
// wskazanego węzła. Link obejmuje swój węzeł docelowy, a gdy celem jest
// folder — także całe jego poddrzewo. Link "restricted" wymaga
// uwierzytelnionego użytkownika.
func (q *Queries) ResolveLinkAccess(ctx context.Context, token string, nodeID string, authenticated bool) (*models.AccessLevel, error) {
	link, err := q.GetLinkGrantByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if link == nil {
		return nil, nil
	}
	if link.Visibility == models.LinkRestricted && !authenticated {
		return nil, nil
	}

	target, err := q.getNodeRef(ctx, link.NodeID)
	if err != nil {
		return nil, err
	}
	if target == nil || target.Deleted {
		return nil, nil
	}

	if nodeID == link.NodeID {
		level := link.AccessLevel
		return &level, nil
	}

	if target.NodeType != models.NodeTypeFolder {
		return nil, nil
	}

	requested, err := q.getNodeRef(ctx, nodeID)
	if err != nil {
		return nil, err
	}
	if requested == nil || requested.Deleted {
		return nil, nil
	}

	inSubtree, err := q.IsDescendantOf(ctx, link.NodeID, nodeID)
	if err != nil {
		return nil, err
	}
	if !inSubtree {
		return nil, nil
	}

	level := link.AccessLevel
	return &level, nil
}
