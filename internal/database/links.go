package database

import (
	"context"
	"errors"
	"fmt"

	"serwer-dokumentow/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jaevor/go-nanoid"
)

var ErrLinkNotFound = errors.New("share link not found")

// Token linku ma 21 znaków alfabetu nanoid, czyli około 126 bitów
// kryptograficznej losowości.
const linkTokenLength = 21

func (q *Queries) GetLinkGrantByToken(ctx context.Context, token string) (*models.LinkGrant, error) {
	query := `
		SELECT id, token, node_id, access_level, visibility, issuer_id, issued_at
		FROM link_grants
		WHERE token = $1
	`
	var link models.LinkGrant
	err := q.db.QueryRow(ctx, query, token).Scan(
		&link.ID,
		&link.Token,
		&link.NodeID,
		&link.AccessLevel,
		&link.Visibility,
		&link.IssuerID,
		&link.IssuedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &link, nil
}

func (q *Queries) GetLinkGrantByID(ctx context.Context, linkID int64) (*models.LinkGrant, error) {
	query := `
		SELECT id, token, node_id, access_level, visibility, issuer_id, issued_at
		FROM link_grants
		WHERE id = $1
	`
	var link models.LinkGrant
	err := q.db.QueryRow(ctx, query, linkID).Scan(
		&link.ID,
		&link.Token,
		&link.NodeID,
		&link.AccessLevel,
		&link.Visibility,
		&link.IssuerID,
		&link.IssuedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &link, nil
}

func (q *Queries) ListLinkGrantsForNode(ctx context.Context, nodeID string) ([]models.LinkGrant, error) {
	query := `
		SELECT id, token, node_id, access_level, visibility, issuer_id, issued_at
		FROM link_grants
		WHERE node_id = $1
		ORDER BY issued_at DESC
	`
	rows, err := q.db.Query(ctx, query, nodeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []models.LinkGrant
	for rows.Next() {
		var link models.LinkGrant
		err := rows.Scan(
			&link.ID,
			&link.Token,
			&link.NodeID,
			&link.AccessLevel,
			&link.Visibility,
			&link.IssuerID,
			&link.IssuedAt,
		)
		if err != nil {
			return nil, err
		}
		links = append(links, link)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	if links == nil {
		return []models.LinkGrant{}, nil
	}

	return links, nil
}

func (q *Queries) DeleteLinkGrant(ctx context.Context, linkID int64) (bool, error) {
	res, err := q.db.Exec(ctx, `DELETE FROM link_grants WHERE id = $1`, linkID)
	if err != nil {
		return false, err
	}
	return res.RowsAffected() > 0, nil
}

// CreateLinkGrant wystawia link udostępniający do węzła. Tylko właściciel
// węzła może wystawiać linki i tylko dla węzłów poza koszem.
func (s *Store) CreateLinkGrant(ctx context.Context, nodeID string, issuerID int64, level models.AccessLevel, visibility models.LinkVisibility) (*models.LinkGrant, error) {
	generateToken, err := nanoid.Standard(linkTokenLength)
	if err != nil {
		return nil, fmt.Errorf("nie można zainicjować generatora tokenów: %w", err)
	}

	var link models.LinkGrant

	err = s.ExecTx(ctx, func(q *Queries) error {
		node, err := q.GetNodeByID(ctx, nodeID)
		if err != nil {
			return err
		}
		if node == nil || node.IsDeleted() {
			return ErrNodeNotFound
		}
		if node.OwnerID != issuerID {
			return ErrNotOwner
		}

		query := `
			INSERT INTO link_grants (token, node_id, access_level, visibility, issuer_id)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, token, node_id, access_level, visibility, issuer_id, issued_at
		`
		return q.db.QueryRow(ctx, query, generateToken(), nodeID, level, visibility, issuerID).Scan(
			&link.ID,
			&link.Token,
			&link.NodeID,
			&link.AccessLevel,
			&link.Visibility,
			&link.IssuerID,
			&link.IssuedAt,
		)
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(issuerID, "link.create", "node", nodeID, "", string(visibility))

	return &link, nil
}
