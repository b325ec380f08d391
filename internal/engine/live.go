package engine

import (
	"encoding/json"
	"time"

	"github.com/verdantchat/verdant/internal/model"
	"github.com/verdantchat/verdant/internal/transport"
)

// Wire payloads on the live channel. Room joins/leaves and typing signals
// carry a bare conversation id outbound; inbound typing carries only the
// user, scoped by the joined room.

type sendPayload struct {
	RoomID  string `json:"roomId"`
	Content string `json:"content"`
}

type typingEvent struct {
	UserID string `json:"userId"`
}

type presenceWire struct {
	UserID   string     `json:"userId"`
	LastSeen *time.Time `json:"lastSeen"`
}

type reactionWire struct {
	MessageID string `json:"messageId"`
	Reaction  string `json:"reaction"`
}

type reactionEmit struct {
	RoomID    string `json:"roomId"`
	MessageID string `json:"messageId"`
	Reaction  string `json:"reaction"`
}

type readWire struct {
	MessageID string `json:"messageId"`
	UserID    string `json:"userId"`
}

type readEmit struct {
	RoomID    string `json:"roomId"`
	MessageID string `json:"messageId"`
	UserID    string `json:"userId"`
}

// Bind registers the engine's live-event listeners. Handlers only decode and
// post; all state changes happen on the dispatch goroutine. A payload that
// does not decode is logged and dropped, never dispatched half-parsed.
func (e *Engine) Bind() {
	e.live.On(transport.EventReceiveMessage, func(data json.RawMessage) {
		var msg model.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			e.log.Warn("bad message payload", "error", err)
			return
		}
		e.post(evLiveMessage{msg: msg})
	})

	e.live.On(transport.EventUserOnline, func(data json.RawMessage) {
		var p presenceWire
		if err := json.Unmarshal(data, &p); err != nil {
			e.log.Warn("bad presence payload", "error", err)
			return
		}
		e.post(evPresence{userID: p.UserID, online: true})
	})

	e.live.On(transport.EventUserOffline, func(data json.RawMessage) {
		var p presenceWire
		if err := json.Unmarshal(data, &p); err != nil {
			e.log.Warn("bad presence payload", "error", err)
			return
		}
		e.post(evPresence{userID: p.UserID, online: false, lastSeen: p.LastSeen})
	})

	e.live.On(transport.EventTyping, func(data json.RawMessage) {
		var t typingEvent
		if err := json.Unmarshal(data, &t); err != nil {
			return
		}
		e.post(evTyping{userID: t.UserID, active: true})
	})

	e.live.On(transport.EventStopTyping, func(data json.RawMessage) {
		var t typingEvent
		if err := json.Unmarshal(data, &t); err != nil {
			return
		}
		e.post(evTyping{userID: t.UserID, active: false})
	})

	e.live.On(transport.EventReactMessage, func(data json.RawMessage) {
		var r reactionWire
		if err := json.Unmarshal(data, &r); err != nil {
			e.log.Warn("bad reaction payload", "error", err)
			return
		}
		e.post(evReaction{messageID: r.MessageID, reaction: r.Reaction})
	})

	e.live.On(transport.EventReadMessage, func(data json.RawMessage) {
		var r readWire
		if err := json.Unmarshal(data, &r); err != nil {
			e.log.Warn("bad read receipt payload", "error", err)
			return
		}
		e.post(evRead{messageID: r.MessageID, userID: r.UserID})
	})
}

// Unbind removes the engine's live-event listeners.
func (e *Engine) Unbind() {
	for _, ev := range []string{
		transport.EventReceiveMessage,
		transport.EventUserOnline,
		transport.EventUserOffline,
		transport.EventTyping,
		transport.EventStopTyping,
		transport.EventReactMessage,
		transport.EventReadMessage,
	} {
		e.live.Off(ev)
	}
}
