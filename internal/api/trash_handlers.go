package api

import (
	"errors"
	"log"
	"net/http"

	"serwer-dokumentow/internal/database"
	"serwer-dokumentow/internal/websocket"

	"github.com/go-chi/chi/v5"
)

// DeleteNodeHandler przenosi poddrzewo do kosza. Gdy poddrzewo jest komuś
// udostępnione, wymagane jest potwierdzenie przez ?confirm=true; bez niego
// operacja wraca z 409 i klient może zapytać użytkownika o zgodę.
func (s *Server) DeleteNodeHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())
	nodeID := chi.URLParam(r, "nodeId")

	if nodeID == "" {
		http.Error(w, "Node ID is required", http.StatusBadRequest)
		return
	}

	confirmed := r.URL.Query().Get("confirm") == "true"

	affected, err := s.store.SoftDeleteNode(r.Context(), nodeID, claims.UserID, confirmed)
	if err != nil {
		switch {
		case errors.Is(err, database.ErrNodeNotFound):
			http.Error(w, "Node not found", http.StatusNotFound)
		case errors.Is(err, database.ErrNotOwner):
			http.Error(w, "You do not have permission to delete this node", http.StatusForbidden)
		case errors.Is(err, database.ErrSharedWithOthers):
			http.Error(w, "Node is shared with other users. Repeat with confirm=true to delete anyway.", http.StatusConflict)
		default:
			log.Printf("ERROR: Failed to soft delete node %s: %v", nodeID, err)
			http.Error(w, "Failed to delete node", http.StatusInternalServerError)
		}
		return
	}

	if len(affected) > 0 {
		s.wsHub.PublishJSON(claims.UserID, websocket.EventNodeTrashed, map[string]interface{}{
			"node_id":  nodeID,
			"affected": affected,
		})
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) RestoreNodeHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())
	nodeID := chi.URLParam(r, "nodeId")

	node, err := s.store.RestoreNode(r.Context(), nodeID, claims.UserID)
	if err != nil {
		switch {
		case errors.Is(err, database.ErrNodeNotFound):
			http.Error(w, "Node not found", http.StatusNotFound)
		case errors.Is(err, database.ErrNotOwner):
			http.Error(w, "Only the owner can restore this node", http.StatusForbidden)
		case errors.Is(err, database.ErrNodeAlreadyLive):
			http.Error(w, "Node is not in the trash", http.StatusUnprocessableEntity)
		case errors.Is(err, database.ErrDuplicateNodeName):
			http.Error(w, "Cannot restore: a node with the same name already exists in the target location", http.StatusConflict)
		default:
			log.Printf("ERROR: Failed to restore node %s: %v", nodeID, err)
			http.Error(w, "Failed to restore node", http.StatusInternalServerError)
		}
		return
	}

	s.wsHub.PublishJSON(claims.UserID, websocket.EventNodeRestored, node)

	writeJSON(w, http.StatusOK, node)
}

// @Summary      List trash contents
// @Description  Retrieves the roots of deleted subtrees in the user's trash.
// @Tags         trash
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   models.Node
// @Failure      401  {string}  string "Unauthorized"
// @Failure      500  {string}  string "Internal Server Error"
// @Router       /trash [get]
func (s *Server) ListTrashHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())
	limit, offset := parsePagination(r)

	nodes, err := s.store.ListTrash(r.Context(), claims.UserID, limit, offset)
	if err != nil {
		http.Error(w, "Failed to list trash contents", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, nodes)
}

// PurgeNodeHandler trwale usuwa jedno poddrzewo z kosza. Bloby są zwalniane
// dopiero po zatwierdzeniu transakcji; nieudane zwolnienie zostawia
// osierocony blob, nigdy wiszący wiersz.
func (s *Server) PurgeNodeHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())
	nodeID := chi.URLParam(r, "nodeId")

	refs, err := s.store.PurgeNodeForever(r.Context(), nodeID, claims.UserID)
	if err != nil {
		switch {
		case errors.Is(err, database.ErrNodeNotFound):
			http.Error(w, "Node not found", http.StatusNotFound)
		case errors.Is(err, database.ErrNotOwner):
			http.Error(w, "Only the owner can permanently delete this node", http.StatusForbidden)
		case errors.Is(err, database.ErrNodeNotTrashed):
			http.Error(w, "Node must be in the trash before permanent deletion", http.StatusUnprocessableEntity)
		default:
			log.Printf("ERROR: Failed to purge node %s: %v", nodeID, err)
			http.Error(w, "Failed to permanently delete node", http.StatusInternalServerError)
		}
		return
	}

	for _, ref := range refs {
		if err := s.storage.Release(ref); err != nil {
			log.Printf("WARN: Failed to release blob %s during purge: %v", ref, err)
		}
	}

	s.wsHub.PublishJSON(claims.UserID, websocket.EventNodePurged, map[string]string{"node_id": nodeID})

	w.WriteHeader(http.StatusNoContent)
}

// @Summary      Purge trash
// @Description  Permanently deletes everything from the user's trash. This action cannot be undone.
// @Tags         trash
// @Security     BearerAuth
// @Success      204  {null}    nil "No Content"
// @Failure      401  {string}  string "Unauthorized"
// @Failure      500  {string}  string "Internal Server Error"
// @Router       /trash/purge [delete]
func (s *Server) PurgeTrashHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())

	refs, err := s.store.PurgeTrash(r.Context(), claims.UserID)
	if err != nil {
		http.Error(w, "Failed to purge trash", http.StatusInternalServerError)
		return
	}

	for _, ref := range refs {
		if err := s.storage.Release(ref); err != nil {
			log.Printf("WARN: Failed to release blob %s during purge: %v", ref, err)
		}
	}

	w.WriteHeader(http.StatusNoContent)
}
