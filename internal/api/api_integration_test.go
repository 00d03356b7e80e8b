package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"serwer-dokumentow/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

// Funkcja pomocnicza: rejestruje użytkownika przez handler i zwraca jego dane
func registerTestUser(t *testing.T, username, password string) *models.User {
	payload := RegisterRequest{Username: username, Password: password}
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest("POST", "/api/v1/auth/register", bytes.NewReader(body))
	rr := httptest.NewRecorder()

	http.HandlerFunc(testServer.RegisterHandler).ServeHTTP(rr, req)
	require.Equal(t, http.StatusCreated, rr.Code)

	var user models.User
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &user))
	return &user
}

// Funkcja pomocnicza: loguje użytkownika i zwraca parę tokenów
func loginTestUser(t *testing.T, username, password string) TokenResponse {
	payload := LoginRequest{Username: username, Password: password}
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest("POST", "/api/v1/auth/login", bytes.NewReader(body))
	rr := httptest.NewRecorder()

	http.HandlerFunc(testServer.LoginHandler).ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var tokens TokenResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &tokens))
	require.NotEmpty(t, tokens.AccessToken)
	require.NotEmpty(t, tokens.RefreshToken)
	return tokens
}

func TestRegisterAndLoginFlow(t *testing.T) {
	registerTestUser(t, "flow_auth_user", "password123")

	t.Run("duplicate username is a conflict", func(t *testing.T) {
		payload := RegisterRequest{Username: "flow_auth_user", Password: "password123"}
		body, _ := json.Marshal(payload)
		req := httptest.NewRequest("POST", "/api/v1/auth/register", bytes.NewReader(body))
		rr := httptest.NewRecorder()
		http.HandlerFunc(testServer.RegisterHandler).ServeHTTP(rr, req)
		require.Equal(t, http.StatusConflict, rr.Code)
	})

	t.Run("short password is rejected", func(t *testing.T) {
		payload := RegisterRequest{Username: "flow_auth_short", Password: "1234567"}
		body, _ := json.Marshal(payload)
		req := httptest.NewRequest("POST", "/api/v1/auth/register", bytes.NewReader(body))
		rr := httptest.NewRecorder()
		http.HandlerFunc(testServer.RegisterHandler).ServeHTTP(rr, req)
		require.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("login with valid credentials", func(t *testing.T) {
		loginTestUser(t, "flow_auth_user", "password123")
	})

	t.Run("login with wrong password", func(t *testing.T) {
		payload := LoginRequest{Username: "flow_auth_user", Password: "zle_haslo_123"}
		body, _ := json.Marshal(payload)
		req := httptest.NewRequest("POST", "/api/v1/auth/login", bytes.NewReader(body))
		rr := httptest.NewRecorder()
		http.HandlerFunc(testServer.LoginHandler).ServeHTTP(rr, req)
		require.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestRefreshTokenRotation(t *testing.T) {
	registerTestUser(t, "flow_refresh_user", "password123")
	tokens := loginTestUser(t, "flow_refresh_user", "password123")

	payload := RefreshTokenRequest{RefreshToken: tokens.RefreshToken}
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest("POST", "/api/v1/auth/refresh", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	http.HandlerFunc(testServer.RefreshTokenHandler).ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var rotated TokenResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rotated))
	require.NotEqual(t, tokens.RefreshToken, rotated.RefreshToken)

	// Stary refresh token jest spalony po rotacji
	req = httptest.NewRequest("POST", "/api/v1/auth/refresh", bytes.NewReader(body))
	rr = httptest.NewRecorder()
	http.HandlerFunc(testServer.RefreshTokenHandler).ServeHTTP(rr, req)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestSessionManagementFlow(t *testing.T) {
	registerTestUser(t, "flow_session_user", "password123")
	loginTestUser(t, "flow_session_user", "password123")
	tokens := loginTestUser(t, "flow_session_user", "password123")

	router := chi.NewRouter()
	router.With(testServer.AuthMiddleware).Get("/api/v1/sessions", testServer.ListSessionsHandler)
	router.With(testServer.AuthMiddleware).Delete("/api/v1/sessions/{sessionId}", testServer.DeleteSessionHandler)
	router.With(testServer.AuthMiddleware).Post("/api/v1/sessions/terminate_all", testServer.TerminateAllSessionsHandler)

	listSessions := func() []models.Session {
		req := httptest.NewRequest("GET", "/api/v1/sessions", nil)
		req.Header.Set("Authorization", "Bearer "+tokens.AccessToken)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		require.Equal(t, http.StatusOK, rr.Code)
		var sessions []models.Session
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &sessions))
		return sessions
	}

	sessions := listSessions()
	require.Len(t, sessions, 2)

	// Zamknięcie jednej sesji z listy
	req := httptest.NewRequest("DELETE", "/api/v1/sessions/"+sessions[0].ID.String(), nil)
	req.Header.Set("Authorization", "Bearer "+tokens.AccessToken)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusNoContent, rr.Code)
	require.Len(t, listSessions(), 1)

	// Wylogowanie ze wszystkich urządzeń
	req = httptest.NewRequest("POST", "/api/v1/sessions/terminate_all", nil)
	req.Header.Set("Authorization", "Bearer "+tokens.AccessToken)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusNoContent, rr.Code)
	require.Len(t, listSessions(), 0)
}

func TestGrantSharingFlow(t *testing.T) {
	owner := registerTestUser(t, "flow_grant_owner", "password123")
	registerTestUser(t, "flow_grant_recipient", "password123")
	ownerTokens := loginTestUser(t, "flow_grant_owner", "password123")
	recipientTokens := loginTestUser(t, "flow_grant_recipient", "password123")

	doc := createTestNodeAPI(t, "udostepniany.txt", models.NodeTypeDocument, nil, owner.ID)
	_, err := testServer.storage.Save(*doc.StorageRef, strings.NewReader("wspólna treść"))
	require.NoError(t, err)

	router := chi.NewRouter()
	router.With(testServer.AuthMiddleware).Post("/api/v1/nodes/{nodeId}/grants", testServer.CreateGrantHandler)
	router.With(testServer.AuthMiddleware).Get("/api/v1/nodes/{nodeId}/download", testServer.DownloadDocumentHandler)
	router.With(testServer.AuthMiddleware).Get("/api/v1/grants/incoming", testServer.ListIncomingGrantsHandler)
	router.With(testServer.AuthMiddleware).Delete("/api/v1/grants/{grantId}", testServer.DeleteGrantHandler)

	// Przed udostępnieniem odbiorca nie widzi dokumentu
	req := httptest.NewRequest("GET", fmt.Sprintf("/api/v1/nodes/%s/download", doc.ID), nil)
	req.Header.Set("Authorization", "Bearer "+recipientTokens.AccessToken)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusNotFound, rr.Code)

	// Właściciel nadaje dostęp download
	payload := GrantRequest{RecipientUsername: "flow_grant_recipient", AccessLevel: models.AccessDownload}
	body, _ := json.Marshal(payload)
	req = httptest.NewRequest("POST", fmt.Sprintf("/api/v1/nodes/%s/grants", doc.ID), bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+ownerTokens.AccessToken)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusCreated, rr.Code)

	var grant models.Grant
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &grant))
	require.Equal(t, models.AccessDownload, grant.AccessLevel)

	// Odbiorca widzi nadanie na liście przychodzących
	req = httptest.NewRequest("GET", "/api/v1/grants/incoming", nil)
	req.Header.Set("Authorization", "Bearer "+recipientTokens.AccessToken)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), doc.ID)

	// I może pobrać dokument
	req = httptest.NewRequest("GET", fmt.Sprintf("/api/v1/nodes/%s/download", doc.ID), nil)
	req.Header.Set("Authorization", "Bearer "+recipientTokens.AccessToken)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "wspólna treść", rr.Body.String())

	// Udzielać może tylko właściciel
	payload = GrantRequest{RecipientUsername: "flow_grant_owner", AccessLevel: models.AccessRead}
	body, _ = json.Marshal(payload)
	req = httptest.NewRequest("POST", fmt.Sprintf("/api/v1/nodes/%s/grants", doc.ID), bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+recipientTokens.AccessToken)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusNotFound, rr.Code)

	// Cofnięcie nadania natychmiast zamyka dostęp
	req = httptest.NewRequest("DELETE", fmt.Sprintf("/api/v1/grants/%d", grant.ID), nil)
	req.Header.Set("Authorization", "Bearer "+ownerTokens.AccessToken)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusNoContent, rr.Code)

	req = httptest.NewRequest("GET", fmt.Sprintf("/api/v1/nodes/%s/download", doc.ID), nil)
	req.Header.Set("Authorization", "Bearer "+recipientTokens.AccessToken)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestTrashLifecycleFlow(t *testing.T) {
	owner := registerTestUser(t, "flow_trash_owner", "password123")
	registerTestUser(t, "flow_trash_other", "password123")
	ownerTokens := loginTestUser(t, "flow_trash_owner", "password123")

	folder := createTestNodeAPI(t, "Folder do kosza", models.NodeTypeFolder, nil, owner.ID)
	doc := createTestNodeAPI(t, "dokument.txt", models.NodeTypeDocument, &folder.ID, owner.ID)
	_, err := testServer.storage.Save(*doc.StorageRef, strings.NewReader("znika z dyskiem"))
	require.NoError(t, err)

	router := chi.NewRouter()
	router.With(testServer.AuthMiddleware).Post("/api/v1/nodes/{nodeId}/grants", testServer.CreateGrantHandler)
	router.With(testServer.AuthMiddleware).Delete("/api/v1/nodes/{nodeId}", testServer.DeleteNodeHandler)
	router.With(testServer.AuthMiddleware).Get("/api/v1/trash", testServer.ListTrashHandler)
	router.With(testServer.AuthMiddleware).Post("/api/v1/nodes/{nodeId}/restore", testServer.RestoreNodeHandler)
	router.With(testServer.AuthMiddleware).Delete("/api/v1/nodes/{nodeId}/purge", testServer.PurgeNodeHandler)

	// Udostępniony folder wymaga potwierdzenia przed usunięciem
	payload := GrantRequest{RecipientUsername: "flow_trash_other", AccessLevel: models.AccessRead}
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest("POST", fmt.Sprintf("/api/v1/nodes/%s/grants", folder.ID), bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+ownerTokens.AccessToken)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusCreated, rr.Code)

	req = httptest.NewRequest("DELETE", fmt.Sprintf("/api/v1/nodes/%s", folder.ID), nil)
	req.Header.Set("Authorization", "Bearer "+ownerTokens.AccessToken)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusConflict, rr.Code)

	// Z confirm=true poddrzewo ląduje w koszu
	req = httptest.NewRequest("DELETE", fmt.Sprintf("/api/v1/nodes/%s?confirm=true", folder.ID), nil)
	req.Header.Set("Authorization", "Bearer "+ownerTokens.AccessToken)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusNoContent, rr.Code)

	// Kosz pokazuje korzeń poddrzewa, nie jego zawartość
	req = httptest.NewRequest("GET", "/api/v1/trash", nil)
	req.Header.Set("Authorization", "Bearer "+ownerTokens.AccessToken)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	var trashed []models.Node
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &trashed))
	require.Len(t, trashed, 1)
	require.Equal(t, folder.ID, trashed[0].ID)

	// Przywrócenie ożywia całe poddrzewo
	req = httptest.NewRequest("POST", fmt.Sprintf("/api/v1/nodes/%s/restore", folder.ID), nil)
	req.Header.Set("Authorization", "Bearer "+ownerTokens.AccessToken)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	restoredDoc, err := testServer.store.GetNodeByID(context.Background(), doc.ID)
	require.NoError(t, err)
	require.False(t, restoredDoc.IsDeleted())

	// Trwałe usuwanie wymaga, żeby węzeł najpierw był w koszu
	req = httptest.NewRequest("DELETE", fmt.Sprintf("/api/v1/nodes/%s/purge", folder.ID), nil)
	req.Header.Set("Authorization", "Bearer "+ownerTokens.AccessToken)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	req = httptest.NewRequest("DELETE", fmt.Sprintf("/api/v1/nodes/%s?confirm=true", folder.ID), nil)
	req.Header.Set("Authorization", "Bearer "+ownerTokens.AccessToken)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusNoContent, rr.Code)

	req = httptest.NewRequest("DELETE", fmt.Sprintf("/api/v1/nodes/%s/purge", folder.ID), nil)
	req.Header.Set("Authorization", "Bearer "+ownerTokens.AccessToken)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusNoContent, rr.Code)

	// Wiersze i blob zniknęły
	gone, err := testServer.store.GetNodeByID(context.Background(), doc.ID)
	require.NoError(t, err)
	require.Nil(t, gone)
	_, err = testServer.storage.Get(*doc.StorageRef)
	require.Error(t, err, "Blob should be released after purge")
}

func TestGroupShareIdempotencyFlow(t *testing.T) {
	owner := registerTestUser(t, "flow_gidem_owner", "password123")
	registerTestUser(t, "flow_gidem_member", "password123")
	ownerTokens := loginTestUser(t, "flow_gidem_owner", "password123")
	memberTokens := loginTestUser(t, "flow_gidem_member", "password123")

	doc := createTestNodeAPI(t, "grupowy.txt", models.NodeTypeDocument, nil, owner.ID)

	group, err := testServer.store.CreateGroup(context.Background(), "Zespół dokumentów", owner.ID)
	require.NoError(t, err)

	router := chi.NewRouter()
	router.With(testServer.AuthMiddleware).Post("/api/v1/groups/{groupId}/join", testServer.JoinGroupHandler)
	router.With(testServer.AuthMiddleware).Post("/api/v1/groups/{groupId}/shares", testServer.ShareNodeToGroupHandler)

	join := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest("POST", fmt.Sprintf("/api/v1/groups/%d/join", group.ID), nil)
		req.Header.Set("Authorization", "Bearer "+memberTokens.AccessToken)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		return rr
	}

	// Dołączenie i ponowne dołączenie kończą się identycznie
	require.Equal(t, http.StatusNoContent, join().Code)
	require.Equal(t, http.StatusNoContent, join().Code)

	share := func(level models.AccessLevel) *httptest.ResponseRecorder {
		payload := GroupShareRequest{NodeID: doc.ID, AccessLevel: level}
		body, _ := json.Marshal(payload)
		req := httptest.NewRequest("POST", fmt.Sprintf("/api/v1/groups/%d/shares", group.ID), bytes.NewReader(body))
		req.Header.Set("Authorization", "Bearer "+ownerTokens.AccessToken)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		return rr
	}

	first := share(models.AccessRead)
	require.Equal(t, http.StatusCreated, first.Code)
	var created models.GroupShare
	require.NoError(t, json.Unmarshal(first.Body.Bytes(), &created))

	// Powtórne udostępnienie na tym samym poziomie zwraca istniejący wpis
	again := share(models.AccessRead)
	require.Equal(t, http.StatusOK, again.Code)
	var existing models.GroupShare
	require.NoError(t, json.Unmarshal(again.Body.Bytes(), &existing))
	require.Equal(t, created.ID, existing.ID)

	// Inny poziom to konflikt; poziom zmienia się przez PATCH udostępnienia
	require.Equal(t, http.StatusConflict, share(models.AccessEdit).Code)
}

func TestStarFlow(t *testing.T) {
	owner := registerTestUser(t, "flow_star_owner", "password123")
	tokens := loginTestUser(t, "flow_star_owner", "password123")

	doc := createTestNodeAPI(t, "gwiazdka.txt", models.NodeTypeDocument, nil, owner.ID)

	router := chi.NewRouter()
	router.With(testServer.AuthMiddleware).Post("/api/v1/nodes/{nodeId}/star", testServer.ToggleStarHandler)
	router.With(testServer.AuthMiddleware).Get("/api/v1/starred", testServer.ListStarredHandler)

	toggle := func(nodeID string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("POST", fmt.Sprintf("/api/v1/nodes/%s/star", nodeID), nil)
		req.Header.Set("Authorization", "Bearer "+tokens.AccessToken)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		return rr
	}

	listStarred := func() []models.Node {
		req := httptest.NewRequest("GET", "/api/v1/starred", nil)
		req.Header.Set("Authorization", "Bearer "+tokens.AccessToken)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		require.Equal(t, http.StatusOK, rr.Code)
		var nodes []models.Node
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &nodes))
		return nodes
	}

	rr := toggle(doc.ID)
	require.Equal(t, http.StatusOK, rr.Code)
	var state StarStateResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &state))
	require.True(t, state.Starred)

	starred := listStarred()
	require.Len(t, starred, 1)
	require.Equal(t, doc.ID, starred[0].ID)

	// Drugie przełączenie zdejmuje gwiazdkę
	rr = toggle(doc.ID)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &state))
	require.False(t, state.Starred)
	require.Len(t, listStarred(), 0)

	// Węzeł poza zasięgiem użytkownika jest niewidoczny
	require.Equal(t, http.StatusNotFound, toggle("no_such_node").Code)
}

func TestShareLinkFlow(t *testing.T) {
	owner := registerTestUser(t, "flow_link_owner", "password123")
	ownerTokens := loginTestUser(t, "flow_link_owner", "password123")

	doc := createTestNodeAPI(t, "publiczny.txt", models.NodeTypeDocument, nil, owner.ID)
	_, err := testServer.storage.Save(*doc.StorageRef, strings.NewReader("treść spod linku"))
	require.NoError(t, err)

	authRouter := chi.NewRouter()
	authRouter.With(testServer.AuthMiddleware).Post("/api/v1/nodes/{nodeId}/links", testServer.CreateLinkHandler)
	authRouter.With(testServer.AuthMiddleware).Delete("/api/v1/links/{linkId}", testServer.DeleteLinkHandler)

	// Endpointy linków są publiczne, logowanie jest opcjonalne
	publicRouter := chi.NewRouter()
	publicRouter.Group(func(r chi.Router) {
		r.Use(testServer.OptionalAuthMiddleware)
		r.Get("/api/v1/links/{token}", testServer.OpenLinkHandler)
		r.Get("/api/v1/links/{token}/download", testServer.DownloadViaLinkHandler)
	})

	createLink := func(level models.AccessLevel, visibility models.LinkVisibility) models.LinkGrant {
		payload := CreateLinkRequest{AccessLevel: level, Visibility: visibility}
		body, _ := json.Marshal(payload)
		req := httptest.NewRequest("POST", fmt.Sprintf("/api/v1/nodes/%s/links", doc.ID), bytes.NewReader(body))
		req.Header.Set("Authorization", "Bearer "+ownerTokens.AccessToken)
		rr := httptest.NewRecorder()
		authRouter.ServeHTTP(rr, req)
		require.Equal(t, http.StatusCreated, rr.Code)
		var link models.LinkGrant
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &link))
		require.Len(t, link.Token, 21)
		return link
	}

	publicLink := createLink(models.AccessDownload, models.LinkPublic)

	// Link publiczny otwiera się bez żadnego tokenu
	req := httptest.NewRequest("GET", "/api/v1/links/"+publicLink.Token, nil)
	rr := httptest.NewRecorder()
	publicRouter.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var opened OpenLinkResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &opened))
	require.Equal(t, doc.ID, opened.Node.ID)
	require.Equal(t, models.AccessDownload, opened.AccessLevel)

	// I pozwala pobrać zawartość
	req = httptest.NewRequest("GET", "/api/v1/links/"+publicLink.Token+"/download", nil)
	rr = httptest.NewRecorder()
	publicRouter.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "treść spod linku", rr.Body.String())

	// Link restricted bez logowania odmawia
	restrictedLink := createLink(models.AccessRead, models.LinkRestricted)
	req = httptest.NewRequest("GET", "/api/v1/links/"+restrictedLink.Token, nil)
	rr = httptest.NewRecorder()
	publicRouter.ServeHTTP(rr, req)
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	// A z dowolnym zalogowanym użytkownikiem działa
	req = httptest.NewRequest("GET", "/api/v1/links/"+restrictedLink.Token, nil)
	req.Header.Set("Authorization", "Bearer "+testUserToken)
	rr = httptest.NewRecorder()
	publicRouter.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	// Cofnięty link przestaje istnieć
	req = httptest.NewRequest("DELETE", fmt.Sprintf("/api/v1/links/%d", publicLink.ID), nil)
	req.Header.Set("Authorization", "Bearer "+ownerTokens.AccessToken)
	rr = httptest.NewRecorder()
	authRouter.ServeHTTP(rr, req)
	require.Equal(t, http.StatusNoContent, rr.Code)

	req = httptest.NewRequest("GET", "/api/v1/links/"+publicLink.Token, nil)
	rr = httptest.NewRecorder()
	publicRouter.ServeHTTP(rr, req)
	require.Equal(t, http.StatusNotFound, rr.Code)
}
