package models

import "time"

type AuditEntry struct {
	ID         int64     `json:"id"`
	ActorID    int64     `json:"actor_id"`
	Action     string    `json:"action"`
	TargetType string    `json:"target_type"`
	TargetID   string    `json:"target_id"`
	TargetName string    `json:"target_name"`
	Details    string    `json:"details"`
	LoggedAt   time.Time `json:"logged_at"`
}
