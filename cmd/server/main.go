// @title           Document Server API
// @version         1.0
// @host            localhost
// @schemes         http https
// @BasePath        /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"context"
	"log"
	"net/http"

	"serwer-dokumentow/internal/api"
	"serwer-dokumentow/internal/audit"
	"serwer-dokumentow/internal/config"
	"serwer-dokumentow/internal/database"
	"serwer-dokumentow/internal/models"
	"serwer-dokumentow/internal/storage"
	"serwer-dokumentow/internal/websocket"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	_ "serwer-dokumentow/docs"

	httpSwagger "github.com/swaggo/http-swagger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Nie można wczytać konfiguracji: %v", err)
	}

	dbpool, err := pgxpool.New(context.Background(), cfg.DB.Source)
	if err != nil {
		log.Fatalf("Nie można połączyć się z bazą danych: %v", err)
	}
	defer dbpool.Close()

	if err := dbpool.Ping(context.Background()); err != nil {
		log.Fatalf("Nie można pingować bazy danych: %v", err)
	}
	log.Println("Pomyślnie połączono z bazą danych")

	localStorage, err := storage.NewLocalStorage(cfg.Storage.Path)
	if err != nil {
		log.Fatalf("Nie można zainicjować local storage: %v", err)
	}
	log.Printf("Pliki będą przechowywane w: %s", cfg.Storage.Path)

	wsHub := websocket.NewHub()
	go wsHub.Run()

	store := database.NewStore(dbpool)

	auditSink := audit.NewSink(func(ctx context.Context, entry models.AuditEntry) error {
		return store.InsertAuditEntry(ctx, entry)
	})
	store.AttachAuditRecorder(auditSink)
	go auditSink.Run()
	defer auditSink.Close()

	server := api.NewServer(cfg, store, localStorage, wsHub)

	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(api.MetricsMiddleware)

	if len(cfg.Server.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.Server.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PATCH", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("https://localhost/swagger/doc.json"),
	))

	r.Get("/ws", server.ServeWsHandler)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Serwer dokumentów działa! Dokumentacja dostępna pod /swagger/index.html"))
	})

	r.Get("/health", server.HealthCheckHandler)
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/api/v1/auth/register", server.RegisterHandler)
	r.Post("/api/v1/auth/login", server.LoginHandler)
	r.Post("/api/v1/auth/refresh", server.RefreshTokenHandler)
	r.Post("/api/v1/auth/logout", server.LogoutHandler)

	// Otwieranie linków nie wymaga logowania, ale linki "restricted"
	// honorują token, jeśli klient go przysłał.
	r.Group(func(r chi.Router) {
		r.Use(server.OptionalAuthMiddleware)
		r.Get("/api/v1/links/{token}", server.OpenLinkHandler)
		r.Get("/api/v1/links/{token}/download", server.DownloadViaLinkHandler)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(server.AuthMiddleware)

		r.Get("/me", server.GetCurrentUserHandler)
		r.Get("/me/storage", server.GetStorageUsageHandler)
		r.Get("/me/audit", server.GetAuditLogHandler)

		r.Get("/sessions", server.ListSessionsHandler)
		r.Delete("/sessions/{sessionId}", server.DeleteSessionHandler)
		r.Post("/sessions/terminate_all", server.TerminateAllSessionsHandler)

		r.Get("/nodes", server.ListNodesHandler)
		r.Post("/nodes/folder", server.CreateFolderHandler)
		r.Post("/nodes/document", server.UploadDocumentHandler)
		r.Get("/nodes/{nodeId}", server.GetNodeHandler)
		r.Get("/nodes/{nodeId}/access", server.NodeAccessHandler)
		r.Get("/nodes/{nodeId}/download", server.DownloadDocumentHandler)
		r.Post("/nodes/{nodeId}/versions", server.UploadVersionHandler)
		r.Get("/nodes/{nodeId}/versions", server.ListVersionsHandler)
		r.Patch("/nodes/{nodeId}", server.UpdateNodeHandler)
		r.Delete("/nodes/{nodeId}", server.DeleteNodeHandler)
		r.Post("/nodes/{nodeId}/restore", server.RestoreNodeHandler)
		r.Delete("/nodes/{nodeId}/purge", server.PurgeNodeHandler)

		r.Post("/nodes/{nodeId}/star", server.ToggleStarHandler)
		r.Get("/starred", server.ListStarredHandler)

		r.Get("/trash", server.ListTrashHandler)
		r.Delete("/trash/purge", server.PurgeTrashHandler)

		r.Post("/nodes/{nodeId}/grants", server.CreateGrantHandler)
		r.Get("/nodes/{nodeId}/grants", server.ListNodeGrantsHandler)
		r.Get("/grants/incoming", server.ListIncomingGrantsHandler)
		r.Get("/grants/outgoing", server.ListOutgoingGrantsHandler)
		r.Patch("/grants/{grantId}", server.UpdateGrantHandler)
		r.Delete("/grants/{grantId}", server.DeleteGrantHandler)

		r.Post("/groups", server.CreateGroupHandler)
		r.Get("/groups", server.ListGroupsHandler)
		r.Get("/groups/{groupId}", server.GetGroupHandler)
		r.Post("/groups/{groupId}/join", server.JoinGroupHandler)
		r.Delete("/groups/{groupId}/members/{userId}", server.RemoveGroupMemberHandler)
		r.Post("/groups/{groupId}/shares", server.ShareNodeToGroupHandler)
		r.Post("/groups/{groupId}/transfer", server.TransferGroupOwnershipHandler)
		r.Patch("/group-shares/{shareId}", server.UpdateGroupShareAccessHandler)
		r.Delete("/group-shares/{shareId}", server.UnshareFromGroupHandler)

		r.Post("/nodes/{nodeId}/links", server.CreateLinkHandler)
		r.Get("/nodes/{nodeId}/links", server.ListNodeLinksHandler)
		r.Delete("/links/{linkId}", server.DeleteLinkHandler)
	})

	log.Printf("Uruchamianie serwera na %s", cfg.Server.Addr)
	if err := http.ListenAndServe(cfg.Server.Addr, r); err != nil {
		log.Fatalf("Nie można uruchomić serwera: %v", err)
	}
}
