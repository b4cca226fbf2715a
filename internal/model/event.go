package model

import "strings"

type EventType string

const (
	EventUserCreated EventType = "user.created"
	EventUserUpdated EventType = "user.updated"
	EventUserDeleted EventType = "user.deleted"
)

func (t EventType) String() string { return string(t) }

// IsUserEvent reports whether this is a lifecycle event the reconciler acts on.
func (t EventType) IsUserEvent() bool {
	return t == EventUserCreated || t == EventUserUpdated || t == EventUserDeleted
}

// UserPayload holds the canonical fields extracted from a verified event's
// data object. Username falls back to "FirstName LastName" trimmed when the
// provider sends no username.
type UserPayload struct {
	ClerkID   string
	Email     string
	FirstName string
	LastName  string
	Username  string
	Avatar    string
}

// DisplayName derives the username fallback from the name fields.
func (u UserPayload) DisplayName() string {
	if u.Username != "" {
		return u.Username
	}
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Event is a verified webhook event. It is only ever produced by the
// webhook verifier; nothing constructs it from untrusted input.
type Event struct {
	ID   string // svix message id
	Type EventType
	User UserPayload
}
