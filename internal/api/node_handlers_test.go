package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"serwer-dokumentow/internal/database"
	"serwer-dokumentow/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

// Funkcja pomocnicza do tworzenia węzłów w testach API
func createTestNodeAPI(t *testing.T, name, nodeType string, parentID *string, ownerID int64) *models.Node {
	id, err := testServer.generateUniqueID(context.Background())
	require.NoError(t, err)

	var sizeBytes *int64
	var storageRef *string
	if nodeType == models.NodeTypeDocument {
		var s int64 = 1234
		sizeBytes = &s
		ref := id
		storageRef = &ref
	}

	params := database.CreateNodeParams{
		ID:         id,
		OwnerID:    ownerID,
		ParentID:   parentID,
		Name:       name,
		NodeType:   nodeType,
		SizeBytes:  sizeBytes,
		StorageRef: storageRef,
	}
	node, err := testServer.store.CreateNode(context.Background(), params)
	require.NoError(t, err)
	return node
}

func TestAPI_CreateFolder_Success(t *testing.T) {
	payload := CreateFolderRequest{Name: "Nowy_Folder_Sukces"}
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest("POST", "/api/v1/nodes/folder", bytes.NewReader(body))
	rr := httptest.NewRecorder()

	req = req.WithContext(context.WithValue(req.Context(), userContextKey, testUserClaims))
	http.HandlerFunc(testServer.CreateFolderHandler).ServeHTTP(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code)
	var createdNode models.Node
	err := json.Unmarshal(rr.Body.Bytes(), &createdNode)
	require.NoError(t, err)
	require.Equal(t, "Nowy_Folder_Sukces", createdNode.Name)
	require.Equal(t, models.NodeTypeFolder, createdNode.NodeType)
}

func TestAPI_CreateFolder_EmptyName(t *testing.T) {
	payload := CreateFolderRequest{Name: "  "}
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest("POST", "/api/v1/nodes/folder", bytes.NewReader(body))
	rr := httptest.NewRecorder()

	req = req.WithContext(context.WithValue(req.Context(), userContextKey, testUserClaims))
	http.HandlerFunc(testServer.CreateFolderHandler).ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAPI_CreateFolder_NameConflict(t *testing.T) {
	folderName := "Folder_Konfliktowy_Final"
	createTestNodeAPI(t, folderName, models.NodeTypeFolder, nil, testUserClaims.UserID)

	payload := CreateFolderRequest{Name: folderName}
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest("POST", "/api/v1/nodes/folder", bytes.NewReader(body))
	rr := httptest.NewRecorder()

	req = req.WithContext(context.WithValue(req.Context(), userContextKey, testUserClaims))
	http.HandlerFunc(testServer.CreateFolderHandler).ServeHTTP(rr, req)

	var finalCount int
	err := testServer.store.GetPool().QueryRow(context.Background(),
		"SELECT count(*) FROM nodes WHERE name=$1 AND owner_id=$2 AND parent_id IS NULL",
		folderName, testUserClaims.UserID).Scan(&finalCount)
	require.NoError(t, err)

	require.Equal(t, 1, finalCount, "The number of nodes with this name should not increase")
	require.Equal(t, http.StatusConflict, rr.Code, "Expected a conflict when creating a folder with a duplicate name")
}

func TestListNodesHandler(t *testing.T) {
	parentFolder := createTestNodeAPI(t, "Parent Folder", models.NodeTypeFolder, nil, testUserClaims.UserID)
	childDoc := createTestNodeAPI(t, "Child Doc", models.NodeTypeDocument, &parentFolder.ID, testUserClaims.UserID)

	t.Run("should list root directory", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/v1/nodes", nil)
		rr := httptest.NewRecorder()

		req = req.WithContext(context.WithValue(req.Context(), userContextKey, testUserClaims))
		http.HandlerFunc(testServer.ListNodesHandler).ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		var nodes []models.Node
		err := json.Unmarshal(rr.Body.Bytes(), &nodes)
		require.NoError(t, err)

		found := false
		for _, node := range nodes {
			if node.ID == parentFolder.ID {
				found = true
				break
			}
		}
		require.True(t, found, "Expected to find the created parent folder in the root listing")
	})

	t.Run("should list subdirectory content", func(t *testing.T) {
		url := fmt.Sprintf("/api/v1/nodes?parent_id=%s", parentFolder.ID)
		req := httptest.NewRequest("GET", url, nil)
		rr := httptest.NewRecorder()

		req = req.WithContext(context.WithValue(req.Context(), userContextKey, testUserClaims))
		http.HandlerFunc(testServer.ListNodesHandler).ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		var nodes []models.Node
		err := json.Unmarshal(rr.Body.Bytes(), &nodes)
		require.NoError(t, err)
		require.Len(t, nodes, 1)
		require.Equal(t, childDoc.Name, nodes[0].Name)
	})
}

func TestUpdateNodeHandler_Rename(t *testing.T) {
	nodeToRename := createTestNodeAPI(t, "Stara Nazwa", models.NodeTypeFolder, nil, testUserClaims.UserID)

	payload := UpdateNodeRequest{Name: new(string)}
	*payload.Name = "Nowa Nazwa"
	body, _ := json.Marshal(payload)
	url := fmt.Sprintf("/api/v1/nodes/%s", nodeToRename.ID)
	req := httptest.NewRequest("PATCH", url, bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+testUserToken)
	rr := httptest.NewRecorder()

	router := chi.NewRouter()
	router.With(testServer.AuthMiddleware).Patch("/api/v1/nodes/{nodeId}", testServer.UpdateNodeHandler)
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	updatedNode, err := testServer.store.GetNodeByID(context.Background(), nodeToRename.ID)
	require.NoError(t, err)
	require.Equal(t, "Nowa Nazwa", updatedNode.Name)
}

func TestUpdateNodeHandler_Move(t *testing.T) {
	folder1 := createTestNodeAPI(t, "Folder 1", models.NodeTypeFolder, nil, testUserClaims.UserID)
	folder2 := createTestNodeAPI(t, "Folder 2", models.NodeTypeFolder, nil, testUserClaims.UserID)
	nodeToMove := createTestNodeAPI(t, "Dokument do przeniesienia", models.NodeTypeDocument, &folder1.ID, testUserClaims.UserID)

	payload := UpdateNodeRequest{ParentID: &folder2.ID}
	body, _ := json.Marshal(payload)
	url := fmt.Sprintf("/api/v1/nodes/%s", nodeToMove.ID)
	req := httptest.NewRequest("PATCH", url, bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+testUserToken)
	rr := httptest.NewRecorder()

	router := chi.NewRouter()
	router.With(testServer.AuthMiddleware).Patch("/api/v1/nodes/{nodeId}", testServer.UpdateNodeHandler)
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	updatedNode, err := testServer.store.GetNodeByID(context.Background(), nodeToMove.ID)
	require.NoError(t, err)
	require.NotNil(t, updatedNode.ParentID)
	require.Equal(t, folder2.ID, *updatedNode.ParentID)
}

func TestUploadDocumentHandler(t *testing.T) {
	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", "testfile.txt")
	require.NoError(t, err)
	fileContent := "to jest zawartość dokumentu"
	part.Write([]byte(fileContent))
	writer.Close()

	req := httptest.NewRequest("POST", "/api/v1/nodes/document", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rr := httptest.NewRecorder()

	req = req.WithContext(context.WithValue(req.Context(), userContextKey, testUserClaims))
	http.HandlerFunc(testServer.UploadDocumentHandler).ServeHTTP(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code)

	var createdNode models.Node
	err = json.Unmarshal(rr.Body.Bytes(), &createdNode)
	require.NoError(t, err)

	require.Equal(t, "testfile.txt", createdNode.Name)
	require.Equal(t, int64(len(fileContent)), *createdNode.SizeBytes)
	require.Equal(t, int32(1), createdNode.CurrentVersion)

	// Blob i pierwsza wersja istnieją po uploadzie
	versions, err := testServer.store.ListDocumentVersions(context.Background(), createdNode.ID)
	require.NoError(t, err)
	require.Len(t, versions, 1)

	_, err = testServer.storage.Get(versions[0].StorageRef)
	require.NoError(t, err, "Blob should exist in storage after upload")

	// Zajętość konta urosła o rozmiar pliku
	user, err := testServer.store.GetUserByID(context.Background(), testUserClaims.UserID)
	require.NoError(t, err)
	require.GreaterOrEqual(t, user.StorageUsedBytes, int64(len(fileContent)))
}

func TestUploadVersionHandler(t *testing.T) {
	doc := createTestNodeAPI(t, "dokument_wersje.txt", models.NodeTypeDocument, nil, testUserClaims.UserID)
	_, err := testServer.storage.Save(*doc.StorageRef, strings.NewReader("wersja pierwsza"))
	require.NoError(t, err)
	_, err = testServer.store.CreateDocumentVersion(context.Background(), database.CreateVersionParams{
		NodeID: doc.ID, StorageRef: *doc.StorageRef, SizeBytes: 15,
	})
	require.NoError(t, err)

	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", "ignored.txt")
	require.NoError(t, err)
	part.Write([]byte("wersja druga, dłuższa"))
	writer.WriteField("note", "poprawiona treść")
	writer.Close()

	url := fmt.Sprintf("/api/v1/nodes/%s/versions", doc.ID)
	req := httptest.NewRequest("POST", url, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+testUserToken)
	rr := httptest.NewRecorder()

	router := chi.NewRouter()
	router.With(testServer.AuthMiddleware).Post("/api/v1/nodes/{nodeId}/versions", testServer.UploadVersionHandler)
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code)

	var version models.DocumentVersion
	err = json.Unmarshal(rr.Body.Bytes(), &version)
	require.NoError(t, err)
	require.Equal(t, int32(2), version.VersionNumber)
	require.NotNil(t, version.Note)
	require.Equal(t, "poprawiona treść", *version.Note)

	// Węzeł wskazuje na najnowszą wersję
	updated, err := testServer.store.GetNodeByID(context.Background(), doc.ID)
	require.NoError(t, err)
	require.Equal(t, int32(2), updated.CurrentVersion)
}

func TestDownloadDocumentHandler(t *testing.T) {
	docNode := createTestNodeAPI(t, "dokument_do_pobrania.txt", models.NodeTypeDocument, nil, testUserClaims.UserID)
	fileContent := "tajna zawartość"
	_, err := testServer.storage.Save(*docNode.StorageRef, strings.NewReader(fileContent))
	require.NoError(t, err)

	url := fmt.Sprintf("/api/v1/nodes/%s/download", docNode.ID)
	req := httptest.NewRequest("GET", url, nil)
	req.Header.Set("Authorization", "Bearer "+testUserToken)
	rr := httptest.NewRecorder()

	router := chi.NewRouter()
	router.With(testServer.AuthMiddleware).Get("/api/v1/nodes/{nodeId}/download", testServer.DownloadDocumentHandler)
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, fileContent, rr.Body.String())
	require.Contains(t, rr.Header().Get("Content-Disposition"), "attachment; filename=\"dokument_do_pobrania.txt\"")
}

func TestNodeAccessHandler(t *testing.T) {
	doc := createTestNodeAPI(t, "dokument_dostep.txt", models.NodeTypeDocument, nil, testUserClaims.UserID)

	router := chi.NewRouter()
	router.With(testServer.AuthMiddleware).Get("/api/v1/nodes/{nodeId}/access", testServer.NodeAccessHandler)

	t.Run("owner sees edit", func(t *testing.T) {
		url := fmt.Sprintf("/api/v1/nodes/%s/access", doc.ID)
		req := httptest.NewRequest("GET", url, nil)
		req.Header.Set("Authorization", "Bearer "+testUserToken)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		var resp NodeAccessResponse
		err := json.Unmarshal(rr.Body.Bytes(), &resp)
		require.NoError(t, err)
		require.NotNil(t, resp.AccessLevel)
		require.Equal(t, models.AccessEdit, *resp.AccessLevel)
	})

	t.Run("no access is null, not an error", func(t *testing.T) {
		url := "/api/v1/nodes/no_such_node/access"
		req := httptest.NewRequest("GET", url, nil)
		req.Header.Set("Authorization", "Bearer "+testUserToken)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		var resp NodeAccessResponse
		err := json.Unmarshal(rr.Body.Bytes(), &resp)
		require.NoError(t, err)
		require.Nil(t, resp.AccessLevel)
	})
}
