package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"serwer-dokumentow/internal/database"
	"serwer-dokumentow/internal/models"
	"serwer-dokumentow/internal/websocket"

	"github.com/go-chi/chi/v5"
	"github.com/jaevor/go-nanoid"
)

const nodeIDLength = 21

func (s *Server) generateUniqueID(ctx context.Context) (string, error) {
	maxRetries := 10

	generateID, err := nanoid.Standard(nodeIDLength)
	if err != nil {
		return "", fmt.Errorf("failed to initialize nanoid generator: %w", err)
	}

	for i := 0; i < maxRetries; i++ {
		id := generateID()
		exists, err := s.store.NodeExists(ctx, id)
		if err != nil {
			return "", fmt.Errorf("failed to check for node existence: %w", err)
		}
		if !exists {
			return id, nil
		}
	}

	return "", fmt.Errorf("failed to generate a unique ID after %d attempts", maxRetries)
}

// canWriteInto sprawdza, czy użytkownik może tworzyć węzły w danym folderze.
// Nil parent oznacza własny katalog główny i jest zawsze dozwolony.
func (s *Server) canWriteInto(ctx context.Context, parentID *string, userID int64) (bool, error) {
	if parentID == nil {
		return true, nil
	}

	level, err := s.store.EffectiveFolderAccess(ctx, *parentID, userID)
	if err != nil {
		return false, err
	}
	return level != nil && level.AtLeast(models.AccessEdit), nil
}

type CreateFolderRequest struct {
	Name     string  `json:"name"`
	ParentID *string `json:"parent_id"`
}

func (s *Server) CreateFolderHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())

	var req CreateFolderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if strings.TrimSpace(req.Name) == "" {
		http.Error(w, "Folder name cannot be empty", http.StatusBadRequest)
		return
	}

	if req.ParentID != nil && len(*req.ParentID) != nodeIDLength {
		http.Error(w, "Invalid ParentID format", http.StatusBadRequest)
		return
	}

	allowed, err := s.canWriteInto(r.Context(), req.ParentID, claims.UserID)
	if err != nil {
		http.Error(w, "Failed to check folder permissions", http.StatusInternalServerError)
		return
	}
	if !allowed {
		http.Error(w, "Parent folder not found or you cannot create items in it", http.StatusNotFound)
		return
	}

	nodeID, err := s.generateUniqueID(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	params := database.CreateNodeParams{
		ID:       nodeID,
		OwnerID:  claims.UserID,
		ParentID: req.ParentID,
		Name:     req.Name,
		NodeType: models.NodeTypeFolder,
	}

	node, err := s.store.CreateNode(r.Context(), params)
	if err != nil {
		switch {
		case errors.Is(err, database.ErrDuplicateNodeName):
			http.Error(w, err.Error(), http.StatusConflict)
		case errors.Is(err, database.ErrParentNotFound):
			http.Error(w, "Parent folder does not exist", http.StatusBadRequest)
		default:
			http.Error(w, "Failed to create folder", http.StatusInternalServerError)
		}
		return
	}

	s.wsHub.PublishJSON(claims.UserID, websocket.EventNodeCreated, node)

	writeJSON(w, http.StatusCreated, node)
}

func (s *Server) ListNodesHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())
	limit, offset := parsePagination(r)

	parentIDStr := r.URL.Query().Get("parent_id")

	var parentID *string
	if parentIDStr != "" {
		parentID = &parentIDStr
	}

	nodes, err := s.store.GetNodesByParentID(r.Context(), claims.UserID, parentID, limit, offset)
	if err != nil {
		http.Error(w, "Failed to list nodes", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, nodes)
}

func (s *Server) GetNodeHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())
	nodeID := chi.URLParam(r, "nodeId")

	level, err := s.store.EffectiveAccess(r.Context(), nodeID, claims.UserID)
	if err != nil {
		http.Error(w, "Failed to resolve access", http.StatusInternalServerError)
		return
	}
	if level == nil {
		http.Error(w, "Node not found or you do not have access to it", http.StatusNotFound)
		return
	}

	node, err := s.store.GetNodeByID(r.Context(), nodeID)
	if err != nil || node == nil {
		http.Error(w, "Failed to retrieve node", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, node)
}

type NodeAccessResponse struct {
	NodeID      string              `json:"node_id"`
	AccessLevel *models.AccessLevel `json:"access_level"`
}

// NodeAccessHandler zwraca skuteczny poziom dostępu bieżącego użytkownika.
// Brak dostępu to poprawna odpowiedź z access_level = null, nie błąd.
func (s *Server) NodeAccessHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())
	nodeID := chi.URLParam(r, "nodeId")

	level, err := s.store.EffectiveAccess(r.Context(), nodeID, claims.UserID)
	if err != nil {
		if errors.Is(err, database.ErrCycleDetected) {
			log.Printf("ERROR: Cycle detected while resolving access to node %s", nodeID)
			http.Error(w, "Node hierarchy is corrupted", http.StatusInternalServerError)
			return
		}
		http.Error(w, "Failed to resolve access", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, NodeAccessResponse{NodeID: nodeID, AccessLevel: level})
}

func (s *Server) UploadDocumentHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, 1<<30)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, "Error parsing multipart form", http.StatusBadRequest)
		return
	}

	file, handler, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "Error retrieving the file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	parentIDStr := r.FormValue("parent_id")
	var parentID *string
	if parentIDStr != "" {
		if len(parentIDStr) != nodeIDLength {
			http.Error(w, "Invalid ParentID format", http.StatusBadRequest)
			return
		}
		parentID = &parentIDStr
	}

	allowed, err := s.canWriteInto(r.Context(), parentID, claims.UserID)
	if err != nil {
		http.Error(w, "Failed to check folder permissions", http.StatusInternalServerError)
		return
	}
	if !allowed {
		http.Error(w, "Parent folder not found or you cannot create items in it", http.StatusNotFound)
		return
	}

	user, err := s.store.GetUserByID(r.Context(), claims.UserID)
	if err != nil || user == nil {
		http.Error(w, "Failed to retrieve user data", http.StatusInternalServerError)
		return
	}
	if user.StorageUsedBytes+handler.Size > user.StorageQuotaBytes {
		http.Error(w, "Storage quota exceeded", http.StatusRequestEntityTooLarge)
		return
	}

	nodeID, err := s.generateUniqueID(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	storageRef, err := s.newStorageRef()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	written, err := s.storage.Save(storageRef, file)
	if err != nil {
		http.Error(w, "Failed to save file", http.StatusInternalServerError)
		return
	}

	mimeType := handler.Header.Get("Content-Type")

	var node *models.Node
	txErr := s.store.ExecTx(r.Context(), func(q *database.Queries) error {
		var err error
		node, err = q.CreateNode(r.Context(), database.CreateNodeParams{
			ID:         nodeID,
			OwnerID:    claims.UserID,
			ParentID:   parentID,
			Name:       handler.Filename,
			NodeType:   models.NodeTypeDocument,
			SizeBytes:  &written,
			MimeType:   &mimeType,
			StorageRef: &storageRef,
		})
		if err != nil {
			return err
		}

		if _, err := q.CreateDocumentVersion(r.Context(), database.CreateVersionParams{
			NodeID:     nodeID,
			StorageRef: storageRef,
			SizeBytes:  written,
		}); err != nil {
			return err
		}

		return q.UpdateUserStorage(r.Context(), claims.UserID, written)
	})
	if txErr != nil {
		if releaseErr := s.storage.Release(storageRef); releaseErr != nil {
			log.Printf("WARN: Failed to release blob %s after failed upload: %v", storageRef, releaseErr)
		}
		if errors.Is(txErr, database.ErrDuplicateNodeName) {
			http.Error(w, txErr.Error(), http.StatusConflict)
			return
		}
		http.Error(w, "Failed to create document record", http.StatusInternalServerError)
		return
	}

	node.CurrentVersion = 1
	s.wsHub.PublishJSON(claims.UserID, websocket.EventNodeCreated, node)

	writeJSON(w, http.StatusCreated, node)
}

func (s *Server) newStorageRef() (string, error) {
	generateRef, err := nanoid.Standard(nodeIDLength)
	if err != nil {
		return "", fmt.Errorf("failed to initialize nanoid generator: %w", err)
	}
	return generateRef(), nil
}

// UploadVersionHandler dopisuje nową wersję istniejącego dokumentu.
// Wymaga skutecznego poziomu edit. Poprzednie wersje zostają na dysku
// i są zwalniane dopiero przy trwałym usuwaniu dokumentu.
func (s *Server) UploadVersionHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())
	nodeID := chi.URLParam(r, "nodeId")

	r.Body = http.MaxBytesReader(w, r.Body, 1<<30)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, "Error parsing multipart form", http.StatusBadRequest)
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "Error retrieving the file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	node, err := s.store.GetNodeByID(r.Context(), nodeID)
	if err != nil {
		http.Error(w, "Failed to retrieve node", http.StatusInternalServerError)
		return
	}
	if node == nil || node.IsDeleted() || node.NodeType != models.NodeTypeDocument {
		http.Error(w, "Document not found", http.StatusNotFound)
		return
	}

	level, err := s.store.EffectiveDocumentAccess(r.Context(), nodeID, claims.UserID)
	if err != nil {
		http.Error(w, "Failed to resolve access", http.StatusInternalServerError)
		return
	}
	if level == nil || !level.AtLeast(models.AccessEdit) {
		http.Error(w, "You do not have edit access to this document", http.StatusForbidden)
		return
	}

	storageRef, err := s.newStorageRef()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	written, err := s.storage.Save(storageRef, file)
	if err != nil {
		http.Error(w, "Failed to save file", http.StatusInternalServerError)
		return
	}

	var note *string
	if n := r.FormValue("note"); n != "" {
		note = &n
	}

	var version *models.DocumentVersion
	txErr := s.store.ExecTx(r.Context(), func(q *database.Queries) error {
		var err error
		version, err = q.CreateDocumentVersion(r.Context(), database.CreateVersionParams{
			NodeID:     nodeID,
			StorageRef: storageRef,
			SizeBytes:  written,
			Note:       note,
		})
		if err != nil {
			return err
		}
		return q.UpdateUserStorage(r.Context(), node.OwnerID, written)
	})
	if txErr != nil {
		if releaseErr := s.storage.Release(storageRef); releaseErr != nil {
			log.Printf("WARN: Failed to release blob %s after failed version upload: %v", storageRef, releaseErr)
		}
		http.Error(w, "Failed to create document version", http.StatusInternalServerError)
		return
	}

	s.wsHub.PublishJSON(node.OwnerID, websocket.EventNodeUpdated, node)

	writeJSON(w, http.StatusCreated, version)
}

func (s *Server) ListVersionsHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())
	nodeID := chi.URLParam(r, "nodeId")

	level, err := s.store.EffectiveDocumentAccess(r.Context(), nodeID, claims.UserID)
	if err != nil {
		http.Error(w, "Failed to resolve access", http.StatusInternalServerError)
		return
	}
	if level == nil {
		http.Error(w, "Document not found or you do not have access to it", http.StatusNotFound)
		return
	}

	versions, err := s.store.ListDocumentVersions(r.Context(), nodeID)
	if err != nil {
		http.Error(w, "Failed to list document versions", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, versions)
}

func (s *Server) DownloadDocumentHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())

	nodeID := chi.URLParam(r, "nodeId")
	if nodeID == "" {
		http.Error(w, "Node ID is required", http.StatusBadRequest)
		return
	}

	node, err := s.store.GetNodeByID(r.Context(), nodeID)
	if err != nil {
		http.Error(w, "Failed to retrieve document metadata", http.StatusInternalServerError)
		return
	}
	if node == nil || node.IsDeleted() {
		http.Error(w, "Document not found", http.StatusNotFound)
		return
	}
	if node.NodeType != models.NodeTypeDocument {
		http.Error(w, "Cannot download a folder", http.StatusBadRequest)
		return
	}

	level, err := s.store.EffectiveDocumentAccess(r.Context(), nodeID, claims.UserID)
	if err != nil {
		http.Error(w, "Failed to resolve access", http.StatusInternalServerError)
		return
	}
	if level == nil {
		http.Error(w, "Document not found", http.StatusNotFound)
		return
	}
	if !level.AtLeast(models.AccessDownload) {
		http.Error(w, "You do not have download access to this document", http.StatusForbidden)
		return
	}

	storageRef := node.StorageRef
	if v := r.URL.Query().Get("version"); v != "" {
		versionNumber, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			http.Error(w, "Invalid version number", http.StatusBadRequest)
			return
		}
		version, err := s.store.GetDocumentVersion(r.Context(), nodeID, int32(versionNumber))
		if err != nil {
			http.Error(w, "Failed to retrieve version", http.StatusInternalServerError)
			return
		}
		if version == nil {
			http.Error(w, "Version not found", http.StatusNotFound)
			return
		}
		storageRef = &version.StorageRef
	}

	if storageRef == nil {
		http.Error(w, "Document has no content", http.StatusNotFound)
		return
	}

	s.serveBlob(w, *storageRef, node)
}

func (s *Server) serveBlob(w http.ResponseWriter, storageRef string, node *models.Node) {
	fileStream, err := s.storage.Get(storageRef)
	if err != nil {
		http.Error(w, "File not found on storage", http.StatusInternalServerError)
		return
	}
	defer fileStream.Close()

	w.Header().Set("Content-Disposition", "attachment; filename=\""+node.Name+"\"")
	if node.MimeType != nil && *node.MimeType != "" {
		w.Header().Set("Content-Type", *node.MimeType)
	} else {
		w.Header().Set("Content-Type", "application/octet-stream")
	}

	if node.SizeBytes != nil {
		w.Header().Set("Content-Length", fmt.Sprintf("%d", *node.SizeBytes))
	}

	io.Copy(w, fileStream)
}

type UpdateNodeRequest struct {
	Name     *string `json:"name"`
	ParentID *string `json:"parent_id"`
}

func (s *Server) UpdateNodeHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())
	nodeID := chi.URLParam(r, "nodeId")

	var req UpdateNodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	node, err := s.store.GetNodeByID(r.Context(), nodeID)
	if err != nil {
		http.Error(w, "Failed to retrieve node", http.StatusInternalServerError)
		return
	}
	if node == nil || node.IsDeleted() {
		http.Error(w, "Node not found", http.StatusNotFound)
		return
	}

	if node.OwnerID != claims.UserID {
		level, err := s.store.EffectiveAccess(r.Context(), nodeID, claims.UserID)
		if err != nil {
			http.Error(w, "Failed to resolve access", http.StatusInternalServerError)
			return
		}
		if level == nil {
			http.Error(w, "Node not found", http.StatusNotFound)
			return
		}
		if !level.AtLeast(models.AccessEdit) {
			http.Error(w, "You do not have edit access to this node", http.StatusForbidden)
			return
		}
	}

	var updated bool

	if req.Name != nil {
		newName := strings.TrimSpace(*req.Name)
		if newName == "" {
			http.Error(w, "Name cannot be empty", http.StatusBadRequest)
			return
		}

		success, err := s.store.RenameNode(r.Context(), nodeID, node.OwnerID, newName)
		if err != nil {
			if errors.Is(err, database.ErrDuplicateNodeName) {
				http.Error(w, err.Error(), http.StatusConflict)
				return
			}
			http.Error(w, "Failed to rename node", http.StatusInternalServerError)
			return
		}

		if !success {
			http.Error(w, "Node not found", http.StatusNotFound)
			return
		}
		updated = true
	}

	if req.ParentID != nil {
		if len(*req.ParentID) != nodeIDLength {
			http.Error(w, "Invalid ParentID format", http.StatusBadRequest)
			return
		}

		// Przenoszenie między drzewami tylko dla właściciela.
		if node.OwnerID != claims.UserID {
			http.Error(w, "Only the owner can move this node", http.StatusForbidden)
			return
		}

		success, err := s.store.MoveNode(r.Context(), nodeID, node.OwnerID, req.ParentID)
		if err != nil {
			switch {
			case errors.Is(err, database.ErrDuplicateNodeName):
				http.Error(w, "A node with the same name already exists in the target folder", http.StatusConflict)
			case errors.Is(err, database.ErrCycleDetected):
				http.Error(w, "Cannot move a folder into its own subtree", http.StatusBadRequest)
			case errors.Is(err, database.ErrParentNotFound):
				http.Error(w, "Target folder does not exist", http.StatusBadRequest)
			default:
				http.Error(w, "Failed to move node", http.StatusInternalServerError)
			}
			return
		}

		if !success {
			http.Error(w, "Node not found", http.StatusNotFound)
			return
		}
		updated = true
	}

	if !updated {
		http.Error(w, "No update operation specified (provide 'name' or 'parent_id')", http.StatusBadRequest)
		return
	}

	s.wsHub.PublishJSON(node.OwnerID, websocket.EventNodeUpdated, map[string]string{"node_id": nodeID})

	w.WriteHeader(http.StatusOK)
}
