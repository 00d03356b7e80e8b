package database

import (
	"context"
	"errors"

	"serwer-dokumentow/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var ErrGrantNotFound = errors.New("grant not found")
var ErrGrantAlreadyExists = errors.New("this node is already shared with the recipient")
var ErrRecipientNotFound = errors.New("recipient user not found")

type CreateGrantParams struct {
	NodeID      string
	PrincipalID int64
	AccessLevel models.AccessLevel
}

func (q *Queries) CreateGrant(ctx context.Context, arg CreateGrantParams) (*models.Grant, error) {
	query := `
		INSERT INTO grants (node_id, principal_id, access_level)
		VALUES ($1, $2, $3)
		RETURNING id, node_id, principal_id, access_level, granted_at
	`
	row := q.db.QueryRow(ctx, query, arg.NodeID, arg.PrincipalID, arg.AccessLevel)

	var grant models.Grant
	err := row.Scan(
		&grant.ID,
		&grant.NodeID,
		&grant.PrincipalID,
		&grant.AccessLevel,
		&grant.GrantedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrGrantAlreadyExists
		}
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return nil, ErrRecipientNotFound
		}
		return nil, err
	}

	return &grant, nil
}

func (q *Queries) GetGrantByID(ctx context.Context, grantID int64) (*models.Grant, error) {
	query := `
		SELECT id, node_id, principal_id, access_level, granted_at
		FROM grants
		WHERE id = $1
	`
	var grant models.Grant
	err := q.db.QueryRow(ctx, query, grantID).Scan(
		&grant.ID,
		&grant.NodeID,
		&grant.PrincipalID,
		&grant.AccessLevel,
		&grant.GrantedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &grant, nil
}

func (q *Queries) UpdateGrantAccess(ctx context.Context, grantID int64, level models.AccessLevel) (bool, error) {
	query := `UPDATE grants SET access_level = $1 WHERE id = $2`
	res, err := q.db.Exec(ctx, query, level, grantID)
	if err != nil {
		return false, err
	}
	return res.RowsAffected() > 0, nil
}

func (q *Queries) DeleteGrant(ctx context.Context, grantID int64) (bool, error) {
	query := `DELETE FROM grants WHERE id = $1`
	res, err := q.db.Exec(ctx, query, grantID)
	if err != nil {
		return false, err
	}
	return res.RowsAffected() > 0, nil
}

type IncomingGrant struct {
	models.Grant
	NodeName      string `json:"node_name"`
	NodeType      string `json:"node_type"`
	OwnerUsername string `json:"owner_username"`
}

// ListIncomingGrants zwraca nadania otrzymane przez użytkownika,
// z pominięciem węzłów leżących w koszu.
func (q *Queries) ListIncomingGrants(ctx context.Context, principalID int64, limit int, offset int) ([]IncomingGrant, error) {
	query := `
		SELECT
			g.id, g.node_id, g.principal_id, g.access_level, g.granted_at,
			n.name AS node_name,
			n.node_type AS node_type,
			u.username AS owner_username
		FROM grants g
		JOIN nodes n ON g.node_id = n.id
		JOIN users u ON n.owner_id = u.id
		WHERE g.principal_id = $1 AND n.deleted_at IS NULL
		ORDER BY g.granted_at DESC LIMIT $2 OFFSET $3
	`
	rows, err := q.db.Query(ctx, query, principalID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var grants []IncomingGrant
	for rows.Next() {
		var grant IncomingGrant
		err := rows.Scan(
			&grant.ID, &grant.NodeID, &grant.PrincipalID, &grant.AccessLevel, &grant.GrantedAt,
			&grant.NodeName, &grant.NodeType, &grant.OwnerUsername,
		)
		if err != nil {
			return nil, err
		}
		grants = append(grants, grant)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	if grants == nil {
		return []IncomingGrant{}, nil
	}

	return grants, nil
}

type OutgoingGrant struct {
	models.Grant
	NodeName          string `json:"node_name"`
	NodeType          string `json:"node_type"`
	RecipientUsername string `json:"recipient_username"`
}

// ListOutgoingGrants zwraca nadania na węzłach, których właścicielem
// jest ownerID.
func (q *Queries) ListOutgoingGrants(ctx context.Context, ownerID int64, limit int, offset int) ([]OutgoingGrant, error) {
	query := `
		SELECT
			g.id, g.node_id, g.principal_id, g.access_level, g.granted_at,
			n.name AS node_name,
			n.node_type AS node_type,
			u.username AS recipient_username
		FROM grants g
		JOIN nodes n ON g.node_id = n.id
		JOIN users u ON g.principal_id = u.id
		WHERE n.owner_id = $1
		ORDER BY g.granted_at DESC LIMIT $2 OFFSET $3
	`
	rows, err := q.db.Query(ctx, query, ownerID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var grants []OutgoingGrant
	for rows.Next() {
		var grant OutgoingGrant
		err := rows.Scan(
			&grant.ID, &grant.NodeID, &grant.PrincipalID, &grant.AccessLevel, &grant.GrantedAt,
			&grant.NodeName, &grant.NodeType, &grant.RecipientUsername,
		)
		if err != nil {
			return nil, err
		}
		grants = append(grants, grant)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	if grants == nil {
		return []OutgoingGrant{}, nil
	}

	return grants, nil
}

// ListGrantsOnNode zwraca bezpośrednie nadania na jednym węźle.
func (q *Queries) ListGrantsOnNode(ctx context.Context, nodeID string) ([]models.Grant, error) {
	query := `
		SELECT id, node_id, principal_id, access_level, granted_at
		FROM grants
		WHERE node_id = $1
		ORDER BY granted_at
	`
	rows, err := q.db.Query(ctx, query, nodeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var grants []models.Grant
	for rows.Next() {
		var grant models.Grant
		err := rows.Scan(
			&grant.ID,
			&grant.NodeID,
			&grant.PrincipalID,
			&grant.AccessLevel,
			&grant.GrantedAt,
		)
		if err != nil {
			return nil, err
		}
		grants = append(grants, grant)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	if grants == nil {
		return []models.Grant{}, nil
	}

	return grants, nil
}
