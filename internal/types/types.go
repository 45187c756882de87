package types

import (
	"strings"
	"time"
)

// Role constants for a user record.
const (
	RoleAdmin = "ADMIN"
	RoleUser  = "USER"
)

// Channel lifecycle statuses. A channel is created ACTIVE, moves to
// IN_PROGRESS when an agent answers, INACTIVE when the conversation is
// closed out, and ACTIVE again when the user replies to a closed thread.
// COMPLETE is terminal and only ever set server-side.
const (
	StatusActive     = "ACTIVE"
	StatusInProgress = "IN_PROGRESS"
	StatusInactive   = "INACTIVE"
	StatusComplete   = "COMPLETE"
)

// User is the authenticated account, including the bearer token the
// server issued at login. Role never changes after issuance.
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Role      string `json:"role"`
	Token     string `json:"token"`
}

// FullName returns the display name for a user.
func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// IsAdmin reports whether the user holds the agent role.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Message is one entry in a channel's conversation. TimeStamp is nil
// for a locally appended optimistic message and set once the server has
// persisted it. Messages have no id; identity is positional.
type Message struct {
	ChannelID   string     `json:"channelId"`
	Message     string     `json:"message"`
	MessageFrom string     `json:"messageFrom"`
	TimeStamp   *time.Time `json:"timeStamp,omitempty"`
}

// SameContent reports whether two messages carry the same sender and
// body. With no message ids on the wire this is the only equivalence
// available for de-duplicating a fetched snapshot against local appends.
func (m Message) SameContent(other Message) bool {
	return m.MessageFrom == other.MessageFrom && m.Message == other.Message
}

// Channel is a conversation thread between one user and the agent pool.
// ID is assigned by the server on creation, never by the client.
// Messages is append-only from the client's perspective.
type Channel struct {
	ID            string    `json:"id"`
	UserEmail     string    `json:"userEmail"`
	UserFullName  string    `json:"userFullName,omitempty"`
	RepEmail      string    `json:"repEmail,omitempty"`
	CurrentStatus string    `json:"currentStatus"`
	CreatedAt     time.Time `json:"createdAt"`
	Messages      []Message `json:"messages,omitempty"`
}

// IsSelfEcho reports whether an inbound live event is the push channel
// echoing a message this client already appended optimistically at send
// time. Applying it again would display the sender's message twice.
func IsSelfEcho(event Message, selectedChannelID, localEmail string) bool {
	return event.ChannelID == selectedChannelID && event.MessageFrom == localEmail
}
