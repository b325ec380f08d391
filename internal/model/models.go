package model

import "time"

// User is a directory member as the server reports it. Online and LastSeen are
// presence state; LastSeen is only meaningful while Online is false.
type User struct {
	ID       string     `json:"_id"`
	Username string     `json:"username"`
	Online   bool       `json:"online"`
	LastSeen *time.Time `json:"lastSeen,omitempty"`
}

// MessageType distinguishes user messages from server-generated notices.
type MessageType string

const (
	MessageNormal MessageType = "normal"
	MessageSystem MessageType = "system"
)

// Message is immutable once created; reactions and read receipts are stored
// out of band, keyed by message id.
type Message struct {
	ID        string      `json:"_id"`
	ChatID    string      `json:"chat"`
	Sender    User        `json:"sender"`
	Content   string      `json:"content"`
	CreatedAt time.Time   `json:"createdAt"`
	Type      MessageType `json:"type"`

	// Group and Receiver are only populated on live delivery; they let the
	// directory resolve a conversation it has not seen yet.
	Group    bool   `json:"isGroup,omitempty"`
	Receiver string `json:"receiver,omitempty"`
}

// Page is a one-based pagination cursor. Total comes from the server response
// and is authoritative.
type Page struct {
	Current int
	Total   int
}
