package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"serwer-dokumentow/internal/database"
	"serwer-dokumentow/internal/models"
	"serwer-dokumentow/internal/websocket"

	"github.com/go-chi/chi/v5"
)

type GrantRequest struct {
	RecipientUsername string             `json:"recipient_username" example:"jnowak"`
	AccessLevel       models.AccessLevel `json:"access_level" example:"read" enums:"read,download,edit"`
}

// @Summary      Grant access to a node
// @Description  Grants another user direct access to a file or folder. A grant on a folder covers its whole subtree unless a closer grant overrides it.
// @Tags         grants
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        nodeId        path      string        true  "Node ID to share"
// @Param        grantRequest  body      GrantRequest  true  "Grant details"
// @Success      201           {object}  models.Grant
// @Failure      400           {string}  string "Bad Request"
// @Failure      401           {string}  string "Unauthorized"
// @Failure      404           {string}  string "Not Found - Node or recipient not found"
// @Failure      409           {string}  string "Conflict - Node is already shared with this user"
// @Failure      500           {string}  string "Internal Server Error"
// @Router       /nodes/{nodeId}/grants [post]
func (s *Server) CreateGrantHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())
	nodeID := chi.URLParam(r, "nodeId")

	var req GrantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if !req.AccessLevel.IsValid() {
		http.Error(w, "Invalid access level. Must be 'read', 'download' or 'edit'", http.StatusBadRequest)
		return
	}

	node, err := s.store.GetNodeByID(r.Context(), nodeID)
	if err != nil {
		http.Error(w, "Internal server error while checking node ownership", http.StatusInternalServerError)
		return
	}
	if node == nil || node.IsDeleted() || node.OwnerID != claims.UserID {
		http.Error(w, "Node not found or you are not the owner", http.StatusNotFound)
		return
	}

	recipient, err := s.store.GetUserByUsername(r.Context(), req.RecipientUsername)
	if err != nil {
		http.Error(w, "Internal server error while finding recipient", http.StatusInternalServerError)
		return
	}
	if recipient == nil {
		http.Error(w, "Recipient user not found", http.StatusNotFound)
		return
	}

	if recipient.ID == claims.UserID {
		http.Error(w, "Cannot share a node with yourself", http.StatusBadRequest)
		return
	}

	grant, err := s.store.CreateGrant(r.Context(), database.CreateGrantParams{
		NodeID:      nodeID,
		PrincipalID: recipient.ID,
		AccessLevel: req.AccessLevel,
	})
	if err != nil {
		switch {
		case errors.Is(err, database.ErrGrantAlreadyExists):
			http.Error(w, err.Error(), http.StatusConflict)
		case errors.Is(err, database.ErrRecipientNotFound):
			http.Error(w, "Recipient user not found", http.StatusNotFound)
		default:
			log.Printf("ERROR: Failed to create grant: %v", err)
			http.Error(w, "Failed to share node", http.StatusInternalServerError)
		}
		return
	}

	s.wsHub.PublishJSON(recipient.ID, websocket.EventGrantCreated, map[string]interface{}{
		"grant": grant,
		"node":  node,
	})

	writeJSON(w, http.StatusCreated, grant)
}

// @Summary      List received grants
// @Tags         grants
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   database.IncomingGrant
// @Failure      401  {string}  string "Unauthorized"
// @Failure      500  {string}  string "Internal Server Error"
// @Router       /grants/incoming [get]
func (s *Server) ListIncomingGrantsHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())
	limit, offset := parsePagination(r)

	grants, err := s.store.ListIncomingGrants(r.Context(), claims.UserID, limit, offset)
	if err != nil {
		http.Error(w, "Failed to retrieve incoming grants", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, grants)
}

// @Summary      List grants I have issued
// @Tags         grants
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   database.OutgoingGrant
// @Failure      401  {string}  string "Unauthorized"
// @Failure      500  {string}  string "Internal Server Error"
// @Router       /grants/outgoing [get]
func (s *Server) ListOutgoingGrantsHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())
	limit, offset := parsePagination(r)

	grants, err := s.store.ListOutgoingGrants(r.Context(), claims.UserID, limit, offset)
	if err != nil {
		http.Error(w, "Failed to retrieve outgoing grants", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, grants)
}

// getOwnedGrant ładuje nadanie i sprawdza, że bieżący użytkownik jest
// właścicielem węzła, którego ono dotyczy.
func (s *Server) getOwnedGrant(r *http.Request, ownerID int64) (*models.Grant, int, string) {
	grantIDStr := chi.URLParam(r, "grantId")
	grantID, err := strconv.ParseInt(grantIDStr, 10, 64)
	if err != nil {
		return nil, http.StatusBadRequest, "Invalid grant ID format"
	}

	grant, err := s.store.GetGrantByID(r.Context(), grantID)
	if err != nil {
		return nil, http.StatusInternalServerError, "Failed to retrieve grant"
	}
	if grant == nil {
		return nil, http.StatusNotFound, "Grant not found"
	}

	node, err := s.store.GetNodeByID(r.Context(), grant.NodeID)
	if err != nil {
		return nil, http.StatusInternalServerError, "Failed to retrieve node"
	}
	if node == nil || node.OwnerID != ownerID {
		return nil, http.StatusNotFound, "Grant not found"
	}

	return grant, 0, ""
}

type UpdateGrantRequest struct {
	AccessLevel models.AccessLevel `json:"access_level" example:"download" enums:"read,download,edit"`
}

func (s *Server) UpdateGrantHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())

	var req UpdateGrantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if !req.AccessLevel.IsValid() {
		http.Error(w, "Invalid access level. Must be 'read', 'download' or 'edit'", http.StatusBadRequest)
		return
	}

	grant, status, msg := s.getOwnedGrant(r, claims.UserID)
	if grant == nil {
		http.Error(w, msg, status)
		return
	}

	if _, err := s.store.UpdateGrantAccess(r.Context(), grant.ID, req.AccessLevel); err != nil {
		http.Error(w, "Failed to update grant", http.StatusInternalServerError)
		return
	}

	grant.AccessLevel = req.AccessLevel
	s.wsHub.PublishJSON(grant.PrincipalID, websocket.EventGrantCreated, grant)

	writeJSON(w, http.StatusOK, grant)
}

func (s *Server) DeleteGrantHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())

	grant, status, msg := s.getOwnedGrant(r, claims.UserID)
	if grant == nil {
		http.Error(w, msg, status)
		return
	}

	if _, err := s.store.DeleteGrant(r.Context(), grant.ID); err != nil {
		http.Error(w, "Failed to revoke grant", http.StatusInternalServerError)
		return
	}

	s.wsHub.PublishJSON(grant.PrincipalID, websocket.EventGrantRevoked, map[string]string{"node_id": grant.NodeID})

	w.WriteHeader(http.StatusNoContent)
}

// ListNodeGrantsHandler pokazuje właścicielowi, komu węzeł jest
// bezpośrednio udostępniony.
func (s *Server) ListNodeGrantsHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())
	nodeID := chi.URLParam(r, "nodeId")

	node, err := s.store.GetNodeByID(r.Context(), nodeID)
	if err != nil {
		http.Error(w, "Failed to retrieve node", http.StatusInternalServerError)
		return
	}
	if node == nil || node.OwnerID != claims.UserID {
		http.Error(w, "Node not found or you are not the owner", http.StatusNotFound)
		return
	}

	grants, err := s.store.ListGrantsOnNode(r.Context(), nodeID)
	if err != nil {
		http.Error(w, "Failed to list grants", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, grants)
}
