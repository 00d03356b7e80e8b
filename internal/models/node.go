package models

import "time"

type Node struct {
	ID             string     `json:"id"`
	OwnerID        int64      `json:"owner_id"`
	ParentID       *string    `json:"parent_id"`
	Name           string     `json:"name"`
	NodeType       string     `json:"node_type"`
	SizeBytes      *int64     `json:"size_bytes"`
	MimeType       *string    `json:"mime_type"`
	StorageRef     *string    `json:"-"`
	CurrentVersion int32      `json:"current_version"`
	CreatedAt      time.Time  `json:"created_at"`
	ModifiedAt     time.Time  `json:"modified_at"`
	DeletedAt      *time.Time `json:"deleted_at,omitempty"`
}

const (
	NodeTypeFolder   = "folder"
	NodeTypeDocument = "document"
)

// IsDeleted reports whether the node sits in the trash.
func (n *Node) IsDeleted() bool {
	return n.DeletedAt != nil
}

type DocumentVersion struct {
	ID            int64     `json:"id"`
	NodeID        string    `json:"node_id"`
	VersionNumber int32     `json:"version_number"`
	StorageRef    string    `json:"-"`
	Note          *string   `json:"note,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}
