package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"serwer-dokumentow/internal/database"
	"serwer-dokumentow/internal/models"

	"github.com/go-chi/chi/v5"
)

type CreateLinkRequest struct {
	AccessLevel models.AccessLevel    `json:"access_level" example:"read" enums:"read,download,edit"`
	Visibility  models.LinkVisibility `json:"visibility" example:"public" enums:"public,restricted"`
}

// @Summary      Issue a share link
// @Description  Issues a tokenized link granting access to a node. A link to a folder covers its whole subtree. Restricted links require the opener to be logged in.
// @Tags         links
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        nodeId       path      string             true  "Node ID"
// @Param        linkRequest  body      CreateLinkRequest  true  "Link details"
// @Success      201          {object}  models.LinkGrant
// @Failure      400          {string}  string "Bad Request"
// @Failure      401          {string}  string "Unauthorized"
// @Failure      403          {string}  string "Forbidden - only the owner can issue links"
// @Failure      404          {string}  string "Not Found"
// @Failure      500          {string}  string "Internal Server Error"
// @Router       /nodes/{nodeId}/links [post]
func (s *Server) CreateLinkHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())
	nodeID := chi.URLParam(r, "nodeId")

	var req CreateLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if !req.AccessLevel.IsValid() {
		http.Error(w, "Invalid access level. Must be 'read', 'download' or 'edit'", http.StatusBadRequest)
		return
	}
	if !req.Visibility.IsValid() {
		http.Error(w, "Invalid visibility. Must be 'public' or 'restricted'", http.StatusBadRequest)
		return
	}

	link, err := s.store.CreateLinkGrant(r.Context(), nodeID, claims.UserID, req.AccessLevel, req.Visibility)
	if err != nil {
		switch {
		case errors.Is(err, database.ErrNodeNotFound):
			http.Error(w, "Node not found", http.StatusNotFound)
		case errors.Is(err, database.ErrNotOwner):
			http.Error(w, "Only the owner can issue links for this node", http.StatusForbidden)
		default:
			log.Printf("ERROR: Failed to create share link for node %s: %v", nodeID, err)
			http.Error(w, "Failed to create share link", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusCreated, link)
}

func (s *Server) ListNodeLinksHandler(w http.ResponseWriter, r *http.Request) {
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

	links, err := s.store.ListLinkGrantsForNode(r.Context(), nodeID)
	if err != nil {
		http.Error(w, "Failed to list share links", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, links)
}

func (s *Server) DeleteLinkHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())

	linkID, err := strconv.ParseInt(chi.URLParam(r, "linkId"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid link ID format", http.StatusBadRequest)
		return
	}

	link, err := s.store.GetLinkGrantByID(r.Context(), linkID)
	if err != nil {
		http.Error(w, "Failed to retrieve share link", http.StatusInternalServerError)
		return
	}
	if link == nil || link.IssuerID != claims.UserID {
		http.Error(w, "Share link not found", http.StatusNotFound)
		return
	}

	if _, err := s.store.DeleteLinkGrant(r.Context(), linkID); err != nil {
		http.Error(w, "Failed to revoke share link", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type OpenLinkResponse struct {
	Node        models.Node        `json:"node"`
	AccessLevel models.AccessLevel `json:"access_level"`
}

// OpenLinkHandler rozwiązuje dostęp z linku. Bez parametru node_id celem
// jest węzeł, na który link wystawiono; z parametrem można sięgnąć w głąb
// poddrzewa linku folderowego.
func (s *Server) OpenLinkHandler(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	authenticated := GetUserFromContext(r.Context()) != nil

	link, err := s.store.GetLinkGrantByToken(r.Context(), token)
	if err != nil {
		http.Error(w, "Failed to resolve share link", http.StatusInternalServerError)
		return
	}
	if link == nil {
		http.Error(w, "Share link not found", http.StatusNotFound)
		return
	}

	nodeID := link.NodeID
	if v := r.URL.Query().Get("node_id"); v != "" {
		nodeID = v
	}

	level, err := s.store.ResolveLinkAccess(r.Context(), token, nodeID, authenticated)
	if err != nil {
		http.Error(w, "Failed to resolve share link", http.StatusInternalServerError)
		return
	}
	if level == nil {
		if link.Visibility == models.LinkRestricted && !authenticated {
			http.Error(w, "This link requires you to be logged in", http.StatusUnauthorized)
			return
		}
		http.Error(w, "Share link not found", http.StatusNotFound)
		return
	}

	node, err := s.store.GetNodeByID(r.Context(), nodeID)
	if err != nil || node == nil {
		http.Error(w, "Failed to retrieve node", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, OpenLinkResponse{Node: *node, AccessLevel: *level})
}

// DownloadViaLinkHandler streamuje dokument objęty linkiem, jeśli link
// daje co najmniej poziom download.
func (s *Server) DownloadViaLinkHandler(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	authenticated := GetUserFromContext(r.Context()) != nil

	nodeID := r.URL.Query().Get("node_id")
	if nodeID == "" {
		link, err := s.store.GetLinkGrantByToken(r.Context(), token)
		if err != nil || link == nil {
			http.Error(w, "Share link not found", http.StatusNotFound)
			return
		}
		nodeID = link.NodeID
	}

	level, err := s.store.ResolveLinkAccess(r.Context(), token, nodeID, authenticated)
	if err != nil {
		http.Error(w, "Failed to resolve share link", http.StatusInternalServerError)
		return
	}
	if level == nil {
		http.Error(w, "Share link not found", http.StatusNotFound)
		return
	}
	if !level.AtLeast(models.AccessDownload) {
		http.Error(w, "This link does not allow downloading", http.StatusForbidden)
		return
	}

	node, err := s.store.GetNodeByID(r.Context(), nodeID)
	if err != nil || node == nil {
		http.Error(w, "Failed to retrieve node", http.StatusInternalServerError)
		return
	}
	if node.NodeType != models.NodeTypeDocument || node.StorageRef == nil {
		http.Error(w, "Cannot download a folder", http.StatusBadRequest)
		return
	}

	s.serveBlob(w, *node.StorageRef, node)
}
