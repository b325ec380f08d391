package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrNotReady is returned by Emit while the login handshake has not
// completed. Callers treat it as "no live updates available" and fall back to
// last-known state.
var ErrNotReady = errors.New("transport: not ready")

const handshakeTimeout = 10 * time.Second

type userPayload struct {
	UserID string `json:"userId"`
}

type loginAck struct {
	Success bool `json:"success"`
}

// Lifecycle runs the application-level session on top of a Conn: the login
// handshake, the ready flag, presence announcements and the forced-logout
// signal. Exactly one Lifecycle exists per authenticated session; a
// credential change means tearing it down and building a new one.
type Lifecycle struct {
	conn   Conn
	userID string
	log    *slog.Logger

	mu    sync.Mutex
	ready bool

	onReady  func(ready bool)
	onLogout func()
}

// NewLifecycle wraps a connection for the given user id.
func NewLifecycle(conn Conn, userID string, logger *slog.Logger) *Lifecycle {
	return &Lifecycle{conn: conn, userID: userID, log: logger}
}

// OnReady registers the callback invoked whenever the ready state flips.
// Must be called before Start.
func (l *Lifecycle) OnReady(fn func(ready bool)) { l.onReady = fn }

// OnForceLogout registers the session-termination callback. Must be called
// before Start.
func (l *Lifecycle) OnForceLogout(fn func()) { l.onLogout = fn }

// Start wires the connection's synthetic and control events and dials it.
// Ready stays false until the login handshake is acknowledged.
func (l *Lifecycle) Start(ctx context.Context) error {
	l.conn.On(EventConnect, func(json.RawMessage) {
		go l.handshake(ctx)
	})
	l.conn.On(EventDisconnect, func(json.RawMessage) {
		// Best effort; the channel is usually already gone.
		_ = l.conn.Emit(EventUserOffline, userPayload{UserID: l.userID})
		l.setReady(false)
	})
	l.conn.On(EventForceLogout, func(json.RawMessage) {
		l.log.Info("forced logout from server")
		if l.onLogout != nil {
			l.onLogout()
		}
	})
	return l.conn.Connect(ctx)
}

// handshake sends the login event and, once acknowledged, announces presence
// and flips ready. Room membership does not survive a reconnect, so every
// ready=true flip means subscribers must re-join their rooms.
func (l *Lifecycle) handshake(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, handshakeTimeout)
	defer cancel()

	var ack loginAck
	if err := l.conn.EmitWithAck(ctx, EventLogin, userPayload{UserID: l.userID}, &ack); err != nil {
		l.log.Warn("login handshake failed", "error", err)
		return
	}
	if !ack.Success {
		l.log.Warn("login handshake rejected")
		return
	}

	if err := l.conn.Emit(EventUserOnline, userPayload{UserID: l.userID}); err != nil {
		l.log.Warn("presence announcement failed", "error", err)
	}
	l.setReady(true)
}

func (l *Lifecycle) setReady(ready bool) {
	l.mu.Lock()
	changed := l.ready != ready
	l.ready = ready
	l.mu.Unlock()
	if changed && l.onReady != nil {
		l.onReady(ready)
	}
}

// Ready reports whether the handshake has completed on the current
// connection.
func (l *Lifecycle) Ready() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ready
}

// Emit sends an event if the session is ready, otherwise returns ErrNotReady.
func (l *Lifecycle) Emit(event string, payload any) error {
	if !l.Ready() {
		return ErrNotReady
	}
	return l.conn.Emit(event, payload)
}

// On and Off forward listener registration to the wrapped connection.
func (l *Lifecycle) On(event string, fn Handler) { l.conn.On(event, fn) }
func (l *Lifecycle) Off(event string)            { l.conn.Off(event) }

// Stop announces presence-offline and closes the connection. The Lifecycle is
// not reusable afterwards.
func (l *Lifecycle) Stop() error {
	_ = l.conn.Emit(EventUserOffline, userPayload{UserID: l.userID})
	l.setReady(false)
	if err := l.conn.Close(); err != nil {
		return fmt.Errorf("closing live channel: %w", err)
	}
	return nil
}
