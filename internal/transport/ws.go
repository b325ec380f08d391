package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/fasthttp/websocket"
	"github.com/google/uuid"
)

// frame is the wire framing on the websocket: a named event with a JSON
// payload. ID correlates an acknowledgement with the frame that requested it.
type frame struct {
	ID    string          `json:"id,omitempty"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
	Ack   bool            `json:"ack,omitempty"`
}

// ErrClosed is returned by emits on a connection that is not up.
var ErrClosed = errors.New("transport: connection closed")

// Socket is the websocket implementation of Conn.
type Socket struct {
	url   string
	token string
	log   *slog.Logger

	writeMu sync.Mutex // serializes writes to the websocket

	mu       sync.Mutex
	conn     *websocket.Conn
	handlers map[string]Handler
	pending  map[string]chan json.RawMessage
	closed   bool
}

// NewSocket returns an unconnected socket for the given URL. The bearer token
// is sent on the upgrade request.
func NewSocket(url, token string, logger *slog.Logger) *Socket {
	return &Socket{
		url:      url,
		token:    token,
		log:      logger,
		handlers: make(map[string]Handler),
		pending:  make(map[string]chan json.RawMessage),
	}
}

// Connect dials the server and starts the read pump. It fires the synthetic
// "connect" event on success.
func (s *Socket) Connect(ctx context.Context) error {
	header := http.Header{}
	if s.token != "" {
		header.Set("Authorization", "Bearer "+s.token)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, header)
	if err != nil {
		return fmt.Errorf("dialing %s: %w", s.url, err)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		conn.Close()
		return ErrClosed
	}
	s.conn = conn
	s.mu.Unlock()

	go s.readPump(conn)
	s.dispatch(EventConnect, nil)
	return nil
}

// Close tears the connection down. Pending acks fail, no disconnect event is
// fired.
func (s *Socket) Close() error {
	s.mu.Lock()
	s.closed = true
	conn := s.conn
	s.conn = nil
	for id, ch := range s.pending {
		close(ch)
		delete(s.pending, id)
	}
	s.mu.Unlock()

	if conn != nil {
		return conn.Close()
	}
	return nil
}

func (s *Socket) readPump(conn *websocket.Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			s.mu.Lock()
			wasClosed := s.closed
			if s.conn == conn {
				s.conn = nil
			}
			for id, ch := range s.pending {
				close(ch)
				delete(s.pending, id)
			}
			s.mu.Unlock()
			if !wasClosed {
				s.log.Warn("live channel down", "error", err)
				s.dispatch(EventDisconnect, nil)
			}
			return
		}

		var f frame
		if err := json.Unmarshal(raw, &f); err != nil {
			s.log.Warn("dropping malformed frame", "error", err)
			continue
		}

		if f.Ack && f.ID != "" {
			s.mu.Lock()
			ch, ok := s.pending[f.ID]
			if ok {
				delete(s.pending, f.ID)
			}
			s.mu.Unlock()
			if ok {
				ch <- f.Data
				close(ch)
			}
			continue
		}

		s.dispatch(f.Event, f.Data)
	}
}

func (s *Socket) dispatch(event string, data json.RawMessage) {
	s.mu.Lock()
	fn := s.handlers[event]
	s.mu.Unlock()
	if fn != nil {
		fn(data)
	}
}

// Emit sends an event without waiting for a reply.
func (s *Socket) Emit(event string, payload any) error {
	return s.write(frame{Event: event}, payload)
}

// EmitWithAck sends an event and waits for the server's acknowledgement.
func (s *Socket) EmitWithAck(ctx context.Context, event string, payload any, reply any) error {
	id := uuid.NewString()
	ch := make(chan json.RawMessage, 1)

	s.mu.Lock()
	if s.closed || s.conn == nil {
		s.mu.Unlock()
		return ErrClosed
	}
	s.pending[id] = ch
	s.mu.Unlock()

	if err := s.write(frame{ID: id, Event: event}, payload); err != nil {
		s.mu.Lock()
		delete(s.pending, id)
		s.mu.Unlock()
		return err
	}

	select {
	case data, ok := <-ch:
		if !ok {
			return ErrClosed
		}
		if reply == nil || len(data) == 0 {
			return nil
		}
		if err := json.Unmarshal(data, reply); err != nil {
			return fmt.Errorf("decoding %s ack: %w", event, err)
		}
		return nil
	case <-ctx.Done():
		s.mu.Lock()
		delete(s.pending, id)
		s.mu.Unlock()
		return ctx.Err()
	}
}

func (s *Socket) write(f frame, payload any) error {
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encoding %s payload: %w", f.Event, err)
		}
		f.Data = data
	}

	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return ErrClosed
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return conn.WriteJSON(f)
}

// On registers the handler for an event, replacing any previous one.
func (s *Socket) On(event string, fn Handler) {
	s.mu.Lock()
	s.handlers[event] = fn
	s.mu.Unlock()
}

// Off removes the handler for an event.
func (s *Socket) Off(event string) {
	s.mu.Lock()
	delete(s.handlers, event)
	s.mu.Unlock()
}
