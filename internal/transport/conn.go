// Package transport owns the live channel: the connect/subscribe/emit/listen
// contract the engine consumes, a websocket implementation of it, and the
// session lifecycle (login handshake, ready state, forced logout) on top.
package transport

import (
	"context"
	"encoding/json"
)

// Event names on the live channel.
const (
	EventLogin          = "login"
	EventUserOnline     = "userOnline"
	EventUserOffline    = "userOffline"
	EventJoinRoom       = "joinRoom"
	EventLeaveRoom      = "leaveRoom"
	EventSendMessage    = "sendMessage"
	EventReceiveMessage = "receiveMessage"
	EventTyping         = "typing"
	EventStopTyping     = "stopTyping"
	EventReactMessage   = "reactMessage"
	EventReadMessage    = "readMessage"
	EventForceLogout    = "forceLogout"

	// Synthetic events dispatched by the connection itself.
	EventConnect    = "connect"
	EventDisconnect = "disconnect"
)

// Handler receives a raw event payload. Handlers run on the connection's read
// goroutine and must not block.
type Handler func(data json.RawMessage)

// Conn is the live-channel contract. One connection exists per authenticated
// session; switching identity tears the connection down and dials a new one.
type Conn interface {
	// Connect establishes the channel and starts delivering events. The
	// synthetic "connect" event fires once the channel is up, "disconnect"
	// when it goes down for any reason.
	Connect(ctx context.Context) error
	// Close tears the channel down without firing "disconnect" handlers'
	// reconnect semantics; it is terminal for this Conn.
	Close() error
	// Emit sends an event without waiting for a reply.
	Emit(event string, payload any) error
	// EmitWithAck sends an event and decodes the server's acknowledgement
	// into reply.
	EmitWithAck(ctx context.Context, event string, payload any, reply any) error
	// On registers the handler for an event, replacing any previous one.
	On(event string, fn Handler)
	// Off removes the handler for an event.
	Off(event string)
}
