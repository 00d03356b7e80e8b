package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"serwer-dokumentow/internal/config"
	"serwer-dokumentow/internal/database"
	"serwer-dokumentow/internal/storage"
	"serwer-dokumentow/internal/websocket"
)

type Server struct {
	config  *config.Config
	store   *database.Store
	storage *storage.LocalStorage
	wsHub   *websocket.Hub
}

func NewServer(cfg *config.Config, store *database.Store, storage *storage.LocalStorage, wsHub *websocket.Hub) *Server {
	return &Server{
		config:  cfg,
		store:   store,
		storage: storage,
		wsHub:   wsHub,
	}
}

func (s *Server) HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.store.GetPool().Ping(r.Context()); err != nil {
		http.Error(w, "database unreachable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

const (
	defaultPageLimit = 100
	maxPageLimit     = 500
)

func parsePagination(r *http.Request) (limit int, offset int) {
	limit = defaultPageLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 && parsed <= maxPageLimit {
			limit = parsed
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			offset = parsed
		}
	}
	return limit, offset
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
