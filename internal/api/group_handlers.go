package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"serwer-dokumentow/internal/database"
	"serwer-dokumentow/internal/models"
	"serwer-dokumentow/internal/websocket"

	"github.com/go-chi/chi/v5"
)

type CreateGroupRequest struct {
	Name string `json:"name" example:"Zespół projektowy"`
}

func (s *Server) CreateGroupHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())

	var req CreateGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		http.Error(w, "Group name cannot be empty", http.StatusBadRequest)
		return
	}

	group, err := s.store.CreateGroup(r.Context(), req.Name, claims.UserID)
	if err != nil {
		log.Printf("ERROR: Failed to create group: %v", err)
		http.Error(w, "Failed to create group", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, group)
}

func (s *Server) ListGroupsHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())

	groups, err := s.store.ListGroupsForUser(r.Context(), claims.UserID)
	if err != nil {
		http.Error(w, "Failed to list groups", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, groups)
}

type GroupDetailsResponse struct {
	models.Group
	Members []database.GroupMemberInfo `json:"members"`
	Shares  []database.GroupShareInfo  `json:"shares"`
}

func (s *Server) GetGroupHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())
	groupID, err := parseGroupID(r)
	if err != nil {
		http.Error(w, "Invalid group ID format", http.StatusBadRequest)
		return
	}

	group, err := s.store.GetGroupByID(r.Context(), groupID)
	if err != nil {
		http.Error(w, "Failed to retrieve group", http.StatusInternalServerError)
		return
	}
	if group == nil {
		http.Error(w, "Group not found", http.StatusNotFound)
		return
	}

	isMember, err := s.store.IsGroupMember(r.Context(), groupID, claims.UserID)
	if err != nil {
		http.Error(w, "Failed to check group membership", http.StatusInternalServerError)
		return
	}
	if !isMember {
		http.Error(w, "Group not found", http.StatusNotFound)
		return
	}

	members, err := s.store.ListGroupMembers(r.Context(), groupID)
	if err != nil {
		http.Error(w, "Failed to list group members", http.StatusInternalServerError)
		return
	}

	shares, err := s.store.ListGroupShares(r.Context(), groupID)
	if err != nil {
		http.Error(w, "Failed to list group shares", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, GroupDetailsResponse{Group: *group, Members: members, Shares: shares})
}

func parseGroupID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "groupId"), 10, 64)
}

// JoinGroupHandler dopisuje bieżącego użytkownika do grupy. Nowy członek
// od razu dostaje nadania na wszystko, co grupa już udostępnia.
func (s *Server) JoinGroupHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())
	groupID, err := parseGroupID(r)
	if err != nil {
		http.Error(w, "Invalid group ID format", http.StatusBadRequest)
		return
	}

	err = s.store.JoinGroup(r.Context(), groupID, claims.UserID)
	if err != nil {
		switch {
		case errors.Is(err, database.ErrGroupNotFound):
			http.Error(w, "Group not found", http.StatusNotFound)
		case errors.Is(err, database.ErrAlreadyMember):
			// Ponowne dołączenie niczego nie zmienia.
			w.WriteHeader(http.StatusNoContent)
		default:
			log.Printf("ERROR: Failed to join group %d: %v", groupID, err)
			http.Error(w, "Failed to join group", http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RemoveGroupMemberHandler usuwa członka (albo samego siebie) z grupy.
// Nadania pochodzące z udostępnień tej grupy są cofane, chyba że inna
// wspólna grupa nadal obejmuje dany węzeł.
func (s *Server) RemoveGroupMemberHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())
	groupID, err := parseGroupID(r)
	if err != nil {
		http.Error(w, "Invalid group ID format", http.StatusBadRequest)
		return
	}

	userID, err := strconv.ParseInt(chi.URLParam(r, "userId"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid user ID format", http.StatusBadRequest)
		return
	}

	err = s.store.RemoveGroupMember(r.Context(), groupID, userID, claims.UserID)
	if err != nil {
		switch {
		case errors.Is(err, database.ErrGroupNotFound):
			http.Error(w, "Group not found", http.StatusNotFound)
		case errors.Is(err, database.ErrNotMember):
			http.Error(w, "User is not a member of this group", http.StatusNotFound)
		case errors.Is(err, database.ErrNotOwner):
			http.Error(w, "Only the group owner can remove other members, and the owner cannot leave", http.StatusForbidden)
		default:
			log.Printf("ERROR: Failed to remove member %d from group %d: %v", userID, groupID, err)
			http.Error(w, "Failed to remove group member", http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type GroupShareRequest struct {
	NodeID      string             `json:"node_id" example:"V1StGXR8_Z5jdHi6B-myT"`
	AccessLevel models.AccessLevel `json:"access_level" example:"read" enums:"read,download,edit"`
}

func (s *Server) ShareNodeToGroupHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())
	groupID, err := parseGroupID(r)
	if err != nil {
		http.Error(w, "Invalid group ID format", http.StatusBadRequest)
		return
	}

	var req GroupShareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if !req.AccessLevel.IsValid() {
		http.Error(w, "Invalid access level. Must be 'read', 'download' or 'edit'", http.StatusBadRequest)
		return
	}

	share, created, err := s.store.ShareNodeToGroup(r.Context(), groupID, req.NodeID, req.AccessLevel, claims.UserID)
	if err != nil {
		switch {
		case errors.Is(err, database.ErrGroupNotFound):
			http.Error(w, "Group not found", http.StatusNotFound)
		case errors.Is(err, database.ErrNodeNotFound):
			http.Error(w, "Node not found", http.StatusNotFound)
		case errors.Is(err, database.ErrNotOwner):
			http.Error(w, "Only the node owner can share it with a group", http.StatusForbidden)
		case errors.Is(err, database.ErrNotMember):
			http.Error(w, "You must be a member of the group to share into it", http.StatusForbidden)
		case errors.Is(err, database.ErrGroupShareAlreadyExists):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			log.Printf("ERROR: Failed to share node %s to group %d: %v", req.NodeID, groupID, err)
			http.Error(w, "Failed to share node with group", http.StatusInternalServerError)
		}
		return
	}

	// Powtórne udostępnienie na tym samym poziomie zwraca istniejący wpis.
	if !created {
		writeJSON(w, http.StatusOK, share)
		return
	}

	members, err := s.store.ListGroupMembers(r.Context(), groupID)
	if err == nil {
		for _, member := range members {
			s.wsHub.PublishJSON(member.UserID, websocket.EventGroupShared, share)
		}
	}

	writeJSON(w, http.StatusCreated, share)
}

func (s *Server) UnshareFromGroupHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())

	shareID, err := strconv.ParseInt(chi.URLParam(r, "shareId"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid share ID format", http.StatusBadRequest)
		return
	}

	err = s.store.UnshareFromGroup(r.Context(), shareID, claims.UserID)
	if err != nil {
		switch {
		case errors.Is(err, database.ErrGroupShareNotFound):
			http.Error(w, "Group share not found", http.StatusNotFound)
		case errors.Is(err, database.ErrNotOwner):
			http.Error(w, "Only the node owner or the group owner can remove this share", http.StatusForbidden)
		default:
			log.Printf("ERROR: Failed to remove group share %d: %v", shareID, err)
			http.Error(w, "Failed to remove group share", http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type UpdateGroupShareRequest struct {
	AccessLevel models.AccessLevel `json:"access_level" example:"edit" enums:"read,download,edit"`
}

// UpdateGroupShareAccessHandler zmienia poziom udostępnienia grupowego
// i nadpisuje nadania wszystkich członków nowym poziomem.
func (s *Server) UpdateGroupShareAccessHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())

	shareID, err := strconv.ParseInt(chi.URLParam(r, "shareId"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid share ID format", http.StatusBadRequest)
		return
	}

	var req UpdateGroupShareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if !req.AccessLevel.IsValid() {
		http.Error(w, "Invalid access level. Must be 'read', 'download' or 'edit'", http.StatusBadRequest)
		return
	}

	share, err := s.store.UpdateGroupShareAccess(r.Context(), shareID, req.AccessLevel, claims.UserID)
	if err != nil {
		switch {
		case errors.Is(err, database.ErrGroupShareNotFound):
			http.Error(w, "Group share not found", http.StatusNotFound)
		case errors.Is(err, database.ErrNotOwner):
			http.Error(w, "Only the node owner can change this share", http.StatusForbidden)
		default:
			log.Printf("ERROR: Failed to update group share %d: %v", shareID, err)
			http.Error(w, "Failed to update group share", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusOK, share)
}

type TransferGroupRequest struct {
	NewOwnerID int64 `json:"new_owner_id" example:"2"`
}

func (s *Server) TransferGroupOwnershipHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())
	groupID, err := parseGroupID(r)
	if err != nil {
		http.Error(w, "Invalid group ID format", http.StatusBadRequest)
		return
	}

	var req TransferGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	group, err := s.store.TransferGroupOwnership(r.Context(), groupID, req.NewOwnerID, claims.UserID)
	if err != nil {
		switch {
		case errors.Is(err, database.ErrGroupNotFound):
			http.Error(w, "Group not found", http.StatusNotFound)
		case errors.Is(err, database.ErrNotOwner):
			http.Error(w, "Only the group owner can transfer ownership", http.StatusForbidden)
		case errors.Is(err, database.ErrNotMember):
			http.Error(w, "New owner must already be a member of the group", http.StatusBadRequest)
		default:
			log.Printf("ERROR: Failed to transfer group %d: %v", groupID, err)
			http.Error(w, "Failed to transfer group ownership", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusOK, group)
}
