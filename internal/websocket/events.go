package websocket

import (
	"encoding/json"
	"log"
)

const (
	EventNodeCreated   = "node.created"
	EventNodeUpdated   = "node.updated"
	EventNodeTrashed   = "node.trashed"
	EventNodeRestored  = "node.restored"
	EventNodePurged    = "node.purged"
	EventGrantCreated  = "grant.created"
	EventGrantRevoked  = "grant.revoked"
	EventGroupShared   = "group.shared"
	EventGroupUnshared = "group.unshared"
)

type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// PublishJSON wysyła zdarzenie do wszystkich połączeń danego użytkownika.
func (h *Hub) PublishJSON(userID int64, eventType string, payload interface{}) {
	data, err := json.Marshal(Event{Type: eventType, Payload: payload})
	if err != nil {
		log.Printf("ERROR: nie można zserializować zdarzenia %s: %v", eventType, err)
		return
	}
	h.PublishEvent(userID, data)
}
