package database

import (
	"context"
	"errors"

	"serwer-dokumentow/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var ErrGroupNotFound = errors.New("group not found")
var ErrAlreadyMember = errors.New("user is already a member of this group")
var ErrNotMember = errors.New("user is not a member of this group")
var ErrGroupShareAlreadyExists = errors.New("this node is already shared with the group at a different access level")
var ErrGroupShareNotFound = errors.New("group share not found")

func (q *Queries) GetGroupByID(ctx context.Context, groupID int64) (*models.Group, error) {
	query := `SELECT id, name, owner_id, created_at FROM groups WHERE id = $1`
	var group models.Group
	err := q.db.QueryRow(ctx, query, groupID).Scan(&group.ID, &group.Name, &group.OwnerID, &group.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &group, nil
}

func (q *Queries) IsGroupMember(ctx context.Context, groupID int64, userID int64) (bool, error) {
	var isMember bool
	query := `SELECT EXISTS(SELECT 1 FROM group_members WHERE group_id = $1 AND user_id = $2)`
	err := q.db.QueryRow(ctx, query, groupID, userID).Scan(&isMember)
	return isMember, err
}

func (q *Queries) ListGroupsForUser(ctx context.Context, userID int64) ([]models.Group, error) {
	query := `
		SELECT g.id, g.name, g.owner_id, g.created_at
		FROM groups g
		JOIN group_members gm ON gm.group_id = g.id
		WHERE gm.user_id = $1
		ORDER BY g.name
	`
	rows, err := q.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []models.Group
	for rows.Next() {
		var group models.Group
		if err := rows.Scan(&group.ID, &group.Name, &group.OwnerID, &group.CreatedAt); err != nil {
			return nil, err
		}
		groups = append(groups, group)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	if groups == nil {
		return []models.Group{}, nil
	}

	return groups, nil
}

type GroupMemberInfo struct {
	models.GroupMember
	Username string `json:"username"`
}

func (q *Queries) ListGroupMembers(ctx context.Context, groupID int64) ([]GroupMemberInfo, error) {
	query := `
		SELECT gm.id, gm.group_id, gm.user_id, gm.joined_at, u.username
		FROM group_members gm
		JOIN users u ON u.id = gm.user_id
		WHERE gm.group_id = $1
		ORDER BY gm.joined_at
	`
	rows, err := q.db.Query(ctx, query, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []GroupMemberInfo
	for rows.Next() {
		var member GroupMemberInfo
		if err := rows.Scan(&member.ID, &member.GroupID, &member.UserID, &member.JoinedAt, &member.Username); err != nil {
			return nil, err
		}
		members = append(members, member)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	if members == nil {
		return []GroupMemberInfo{}, nil
	}

	return members, nil
}

type GroupShareInfo struct {
	models.GroupShare
	NodeName string `json:"node_name"`
	NodeType string `json:"node_type"`
}

func (q *Queries) ListGroupShares(ctx context.Context, groupID int64) ([]GroupShareInfo, error) {
	query := `
		SELECT gs.id, gs.group_id, gs.node_id, gs.access_level, gs.shared_at, n.name, n.node_type
		FROM group_shares gs
		JOIN nodes n ON n.id = gs.node_id
		WHERE gs.group_id = $1 AND n.deleted_at IS NULL
		ORDER BY gs.shared_at DESC
	`
	rows, err := q.db.Query(ctx, query, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var shares []GroupShareInfo
	for rows.Next() {
		var share GroupShareInfo
		if err := rows.Scan(&share.ID, &share.GroupID, &share.NodeID, &share.AccessLevel, &share.SharedAt, &share.NodeName, &share.NodeType); err != nil {
			return nil, err
		}
		shares = append(shares, share)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	if shares == nil {
		return []GroupShareInfo{}, nil
	}

	return shares, nil
}

func (q *Queries) GetGroupShareByGroupAndNode(ctx context.Context, groupID int64, nodeID string) (*models.GroupShare, error) {
	query := `SELECT id, group_id, node_id, access_level, shared_at FROM group_shares WHERE group_id = $1 AND node_id = $2`
	var share models.GroupShare
	err := q.db.QueryRow(ctx, query, groupID, nodeID).Scan(&share.ID, &share.GroupID, &share.NodeID, &share.AccessLevel, &share.SharedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &share, nil
}

func (q *Queries) GetGroupShareByID(ctx context.Context, shareID int64) (*models.GroupShare, error) {
	query := `SELECT id, group_id, node_id, access_level, shared_at FROM group_shares WHERE id = $1`
	var share models.GroupShare
	err := q.db.QueryRow(ctx, query, shareID).Scan(&share.ID, &share.GroupID, &share.NodeID, &share.AccessLevel, &share.SharedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &share, nil
}

// CreateGroup zakłada grupę i od razu zapisuje właściciela jako członka.
func (s *Store) CreateGroup(ctx context.Context, name string, ownerID int64) (*models.Group, error) {
	var group models.Group

	err := s.ExecTx(ctx, func(q *Queries) error {
		query := `INSERT INTO groups (name, owner_id) VALUES ($1, $2) RETURNING id, name, owner_id, created_at`
		if err := q.db.QueryRow(ctx, query, name, ownerID).Scan(&group.ID, &group.Name, &group.OwnerID, &group.CreatedAt); err != nil {
			return err
		}
		_, err := q.db.Exec(ctx, `INSERT INTO group_members (group_id, user_id) VALUES ($1, $2)`, group.ID, ownerID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ownerID, "group.create", "group", "", group.Name, "")

	return &group, nil
}

// backfillMemberGrants nadaje nowemu członkowi dostęp do wszystkiego, co
// grupa już udostępnia. Istniejące ręczne nadania pozostają nietknięte.
func (q *Queries) backfillMemberGrants(ctx context.Context, groupID int64, userID int64) error {
	query := `
		INSERT INTO grants (node_id, principal_id, access_level)
		SELECT gs.node_id, $2, gs.access_level
		FROM group_shares gs
		JOIN nodes n ON n.id = gs.node_id
		WHERE gs.group_id = $1 AND n.owner_id <> $2
		ON CONFLICT (node_id, principal_id) DO NOTHING
	`
	_, err := q.db.Exec(ctx, query, groupID, userID)
	return err
}

// retractMemberGrants cofa członkowi nadania na węzłach udostępnionych
// przez grupę, chyba że inna grupa, do której nadal należy, również
// udostępnia dany węzeł.
func (q *Queries) retractMemberGrants(ctx context.Context, groupID int64, userID int64) error {
	query := `
		DELETE FROM grants g
		USING group_shares gs
		WHERE gs.group_id = $1
		  AND g.node_id = gs.node_id
		  AND g.principal_id = $2
		  AND NOT EXISTS (
			SELECT 1
			FROM group_shares gs2
			JOIN group_members gm2 ON gm2.group_id = gs2.group_id
			WHERE gs2.node_id = g.node_id
			  AND gs2.group_id <> $1
			  AND gm2.user_id = $2
		  )
	`
	_, err := q.db.Exec(ctx, query, groupID, userID)
	return err
}

// JoinGroup dopisuje użytkownika do grupy i uzupełnia mu nadania dla
// wszystkich węzłów już udostępnionych grupie.
func (s *Store) JoinGroup(ctx context.Context, groupID int64, userID int64) error {
	err := s.ExecSerializableTx(ctx, func(q *Queries) error {
		group, err := q.GetGroupByID(ctx, groupID)
		if err != nil {
			return err
		}
		if group == nil {
			return ErrGroupNotFound
		}

		_, err = q.db.Exec(ctx, `INSERT INTO group_members (group_id, user_id) VALUES ($1, $2)`, groupID, userID)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return ErrAlreadyMember
			}
			return err
		}

		return q.backfillMemberGrants(ctx, groupID, userID)
	})
	if err != nil {
		return err
	}

	s.recordAudit(userID, "group.join", "group", "", "", "")

	return nil
}

// RemoveGroupMember usuwa członka i cofa nadania pochodzące z tej grupy.
// Właściciel grupy nie może zostać usunięty.
func (s *Store) RemoveGroupMember(ctx context.Context, groupID int64, userID int64, actorID int64) error {
	err := s.ExecSerializableTx(ctx, func(q *Queries) error {
		group, err := q.GetGroupByID(ctx, groupID)
		if err != nil {
			return err
		}
		if group == nil {
			return ErrGroupNotFound
		}
		if userID == group.OwnerID {
			return ErrNotOwner
		}
		if actorID != group.OwnerID && actorID != userID {
			return ErrNotOwner
		}

		res, err := q.db.Exec(ctx, `DELETE FROM group_members WHERE group_id = $1 AND user_id = $2`, groupID, userID)
		if err != nil {
			return err
		}
		if res.RowsAffected() == 0 {
			return ErrNotMember
		}

		return q.retractMemberGrants(ctx, groupID, userID)
	})
	if err != nil {
		return err
	}

	s.recordAudit(actorID, "group.leave", "group", "", "", "")

	return nil
}

// ShareNodeToGroup udostępnia węzeł grupie i od razu materializuje nadania
// dla wszystkich obecnych członków. Ponowne udostępnienie na tym samym
// poziomie nic nie zmienia i zwraca istniejący wpis (created=false);
// ponowne udostępnienie na innym poziomie to ErrGroupShareAlreadyExists,
// zmianę poziomu robi UpdateGroupShareAccess.
func (s *Store) ShareNodeToGroup(ctx context.Context, groupID int64, nodeID string, level models.AccessLevel, actorID int64) (*models.GroupShare, bool, error) {
	var share models.GroupShare
	created := true

	err := s.ExecSerializableTx(ctx, func(q *Queries) error {
		group, err := q.GetGroupByID(ctx, groupID)
		if err != nil {
			return err
		}
		if group == nil {
			return ErrGroupNotFound
		}

		node, err := q.GetNodeByID(ctx, nodeID)
		if err != nil {
			return err
		}
		if node == nil || node.IsDeleted() {
			return ErrNodeNotFound
		}
		if node.OwnerID != actorID {
			return ErrNotOwner
		}

		isMember, err := q.IsGroupMember(ctx, groupID, actorID)
		if err != nil {
			return err
		}
		if !isMember {
			return ErrNotMember
		}

		query := `
			INSERT INTO group_shares (group_id, node_id, access_level)
			VALUES ($1, $2, $3)
			RETURNING id, group_id, node_id, access_level, shared_at
		`
		err = q.db.QueryRow(ctx, query, groupID, nodeID, level).Scan(&share.ID, &share.GroupID, &share.NodeID, &share.AccessLevel, &share.SharedAt)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				existing, lookupErr := q.GetGroupShareByGroupAndNode(ctx, groupID, nodeID)
				if lookupErr != nil {
					return lookupErr
				}
				if existing == nil || existing.AccessLevel != level {
					return ErrGroupShareAlreadyExists
				}
				share = *existing
				created = false
				return nil
			}
			return err
		}

		backfill := `
			INSERT INTO grants (node_id, principal_id, access_level)
			SELECT $1, gm.user_id, $3
			FROM group_members gm
			WHERE gm.group_id = $2 AND gm.user_id <> $4
			ON CONFLICT (node_id, principal_id) DO NOTHING
		`
		_, err = q.db.Exec(ctx, backfill, nodeID, groupID, level, actorID)
		return err
	})
	if err != nil {
		return nil, false, err
	}

	if created {
		s.recordAudit(actorID, "group.share", "node", nodeID, "", string(level))
	}

	return &share, created, nil
}

// UnshareFromGroup zdejmuje udostępnienie i cofa członkom nadania, które
// z niego wynikały.
func (s *Store) UnshareFromGroup(ctx context.Context, shareID int64, actorID int64) error {
	var nodeID string

	err := s.ExecSerializableTx(ctx, func(q *Queries) error {
		share, err := q.GetGroupShareByID(ctx, shareID)
		if err != nil {
			return err
		}
		if share == nil {
			return ErrGroupShareNotFound
		}
		nodeID = share.NodeID

		node, err := q.GetNodeByID(ctx, share.NodeID)
		if err != nil {
			return err
		}
		if node == nil {
			return ErrNodeNotFound
		}

		group, err := q.GetGroupByID(ctx, share.GroupID)
		if err != nil {
			return err
		}
		if group == nil {
			return ErrGroupNotFound
		}
		if actorID != node.OwnerID && actorID != group.OwnerID {
			return ErrNotOwner
		}

		// Usunięcie udostępnienia przed cofaniem nadań, żeby reguła
		// pokrycia przez inną grupę nie widziała już tego wpisu.
		if _, err := q.db.Exec(ctx, `DELETE FROM group_shares WHERE id = $1`, shareID); err != nil {
			return err
		}

		retract := `
			DELETE FROM grants g
			USING group_members gm
			WHERE gm.group_id = $1
			  AND g.principal_id = gm.user_id
			  AND g.node_id = $2
			  AND NOT EXISTS (
				SELECT 1
				FROM group_shares gs2
				JOIN group_members gm2 ON gm2.group_id = gs2.group_id
				WHERE gs2.node_id = g.node_id
				  AND gm2.user_id = g.principal_id
			  )
		`
		_, err = q.db.Exec(ctx, retract, share.GroupID, share.NodeID)
		return err
	})
	if err != nil {
		return err
	}

	s.recordAudit(actorID, "group.unshare", "node", nodeID, "", "")

	return nil
}

// UpdateGroupShareAccess zmienia poziom udostępnienia i wymusza nowy poziom
// na nadaniach wszystkich członków, również tych zmienionych ręcznie.
func (s *Store) UpdateGroupShareAccess(ctx context.Context, shareID int64, level models.AccessLevel, actorID int64) (*models.GroupShare, error) {
	var updated models.GroupShare

	err := s.ExecSerializableTx(ctx, func(q *Queries) error {
		share, err := q.GetGroupShareByID(ctx, shareID)
		if err != nil {
			return err
		}
		if share == nil {
			return ErrGroupShareNotFound
		}

		node, err := q.GetNodeByID(ctx, share.NodeID)
		if err != nil {
			return err
		}
		if node == nil {
			return ErrNodeNotFound
		}
		if node.OwnerID != actorID {
			return ErrNotOwner
		}

		query := `
			UPDATE group_shares SET access_level = $1 WHERE id = $2
			RETURNING id, group_id, node_id, access_level, shared_at
		`
		if err := q.db.QueryRow(ctx, query, level, shareID).Scan(&updated.ID, &updated.GroupID, &updated.NodeID, &updated.AccessLevel, &updated.SharedAt); err != nil {
			return err
		}

		sync := `
			INSERT INTO grants (node_id, principal_id, access_level)
			SELECT $1, gm.user_id, $3
			FROM group_members gm
			WHERE gm.group_id = $2 AND gm.user_id <> $4
			ON CONFLICT (node_id, principal_id) DO UPDATE SET access_level = EXCLUDED.access_level
		`
		_, err = q.db.Exec(ctx, sync, share.NodeID, share.GroupID, level, node.OwnerID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(actorID, "group.share.update", "node", updated.NodeID, "", string(level))

	return &updated, nil
}

// TransferGroupOwnership przekazuje grupę innemu członkowi. Zmiana dotyczy
// tylko metadanych grupy, nadania członków zostają bez zmian.
func (s *Store) TransferGroupOwnership(ctx context.Context, groupID int64, newOwnerID int64, actorID int64) (*models.Group, error) {
	var group models.Group

	err := s.ExecTx(ctx, func(q *Queries) error {
		current, err := q.GetGroupByID(ctx, groupID)
		if err != nil {
			return err
		}
		if current == nil {
			return ErrGroupNotFound
		}
		if current.OwnerID != actorID {
			return ErrNotOwner
		}

		isMember, err := q.IsGroupMember(ctx, groupID, newOwnerID)
		if err != nil {
			return err
		}
		if !isMember {
			return ErrNotMember
		}

		query := `UPDATE groups SET owner_id = $1 WHERE id = $2 RETURNING id, name, owner_id, created_at`
		return q.db.QueryRow(ctx, query, newOwnerID, groupID).Scan(&group.ID, &group.Name, &group.OwnerID, &group.CreatedAt)
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(actorID, "group.transfer", "group", "", group.Name, "")

	return &group, nil
}
