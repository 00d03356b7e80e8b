package api

import (
	"errors"
	"log"
	"net/http"

	"serwer-dokumentow/internal/database"

	"github.com/go-chi/chi/v5"
)

type StarStateResponse struct {
	Starred bool `json:"starred"`
}

// @Summary      Toggle a star on a node
// @Description  Stars the node if it is not starred yet, unstars it otherwise. Returns the resulting state.
// @Tags         stars
// @Produce      json
// @Security     BearerAuth
// @Param        nodeId   path      string  true  "Node ID"
// @Success      200      {object}  StarStateResponse
// @Failure      401      {string}  string "Unauthorized"
// @Failure      404      {string}  string "Not Found - Node does not exist or user lacks access"
// @Failure      500      {string}  string "Internal Server Error"
// @Router       /nodes/{nodeId}/star [post]
func (s *Server) ToggleStarHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())
	nodeID := chi.URLParam(r, "nodeId")

	starred, err := s.store.ToggleStar(r.Context(), claims.UserID, nodeID)
	if err != nil {
		switch {
		case errors.Is(err, database.ErrNodeNotFound):
			http.Error(w, "Node not found or you do not have permission to access it", http.StatusNotFound)
		default:
			log.Printf("ERROR: Failed to toggle star on node %s: %v", nodeID, err)
			http.Error(w, "Failed to toggle star", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusOK, StarStateResponse{Starred: starred})
}

// @Summary      List starred nodes
// @Description  Lists the current user's starred files and folders, skipping anything in the trash.
// @Tags         stars
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   models.Node
// @Failure      401  {string}  string "Unauthorized"
// @Failure      500  {string}  string "Internal Server Error"
// @Router       /starred [get]
func (s *Server) ListStarredHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())

	nodes, err := s.store.ListStarredNodes(r.Context(), claims.UserID)
	if err != nil {
		log.Printf("ERROR: Failed to list starred nodes: %v", err)
		http.Error(w, "Failed to list starred nodes", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, nodes)
}
