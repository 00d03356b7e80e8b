package models

import "time"

// Grant to bezpośrednie nadanie dostępu użytkownikowi na pojedynczym węźle.
type Grant struct {
	ID          int64       `json:"id"`
	NodeID      string      `json:"node_id"`
	PrincipalID int64       `json:"principal_id"`
	AccessLevel AccessLevel `json:"access_level"`
	GrantedAt   time.Time   `json:"granted_at"`
}

// GroupShare nadaje dostęp wszystkim członkom grupy na pojedynczym węźle.
type GroupShare struct {
	ID          int64       `json:"id"`
	GroupID     int64       `json:"group_id"`
	NodeID      string      `json:"node_id"`
	AccessLevel AccessLevel `json:"access_level"`
	SharedAt    time.Time   `json:"shared_at"`
}

// LinkGrant to dostęp przez token w adresie URL, bez adresata.
type LinkGrant struct {
	ID          int64          `json:"id"`
	Token       string         `json:"token"`
	NodeID      string         `json:"node_id"`
	AccessLevel AccessLevel    `json:"access_level"`
	Visibility  LinkVisibility `json:"visibility"`
	IssuerID    int64          `json:"issuer_id"`
	IssuedAt    time.Time      `json:"issued_at"`
}
