package models

import "time"

// Role names carried in roles messages
const (
	RoleLead     = "lead"
	RoleFollow   = "follow"
	RoleNavigate = "navigate"
	RoleNotes    = "notes"
)

// Grant maps a connection key to the roles handed out by the relay.
// Key is a credential and is never serialised.
type Grant struct {
	ID        string     `json:"id"`
	Key       string     `json:"-"`
	Label     string     `json:"label"`
	Roles     []string   `json:"roles"`
	IsActive  bool       `json:"isActive"`
	UseCount  int        `json:"useCount"`
	LastUsed  *time.Time `json:"lastUsed,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}
