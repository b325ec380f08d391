// Package engine is the client-side synchronization core: it merges the REST
// snapshots and the live event stream into one consistent view of the user's
// conversations, and owns every piece of mutable session state. All mutation
// happens on a single dispatch goroutine; callers interact through commands
// (posted as events) and read-only snapshots.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/verdantchat/verdant/internal/model"
	"github.com/verdantchat/verdant/internal/transport"
)

// Server-fixed page sizes.
const (
	chatPageLimit    = 15
	messagePageLimit = 20
	userPageLimit    = 8
)

// Backend is the REST surface the engine consumes. *api.Client satisfies it.
type Backend interface {
	GlobalGroup(ctx context.Context) (*model.Group, error)
	Groups(ctx context.Context, page, limit int) ([]*model.Group, model.Page, error)
	Group(ctx context.Context, id string) (*model.Group, error)
	CreateGroup(ctx context.Context, name string, memberIDs []string) (*model.Group, error)
	DeleteGroup(ctx context.Context, id string) error
	AddMember(ctx context.Context, groupID, memberID string) error
	RemoveMember(ctx context.Context, groupID, memberID string) error
	KickMember(ctx context.Context, groupID, memberID string) error
	PromoteAdmin(ctx context.Context, groupID, memberID string) error
	DemoteAdmin(ctx context.Context, groupID, memberID string) error
	PrivateChat(ctx context.Context, userID string) (*model.Private, error)
	PrivateChats(ctx context.Context) ([]*model.Private, error)
	Messages(ctx context.Context, conversationID string, page, limit int) ([]model.Message, model.Page, error)
	Users(ctx context.Context, page, limit int) ([]model.User, model.Page, error)
}

// Live is the outbound half of the live channel plus listener registration.
// *transport.Lifecycle satisfies it.
type Live interface {
	Ready() bool
	Emit(event string, payload any) error
	On(event string, fn transport.Handler)
	Off(event string)
}

// NotifyFunc is invoked after every handled event, on the dispatch goroutine.
// Consumers use it to re-read snapshots; it must not call back into the
// engine's command methods.
type NotifyFunc func()

// Config assembles an Engine.
type Config struct {
	Self   model.User
	API    Backend
	Live   Live
	Logger *slog.Logger
	Notify NotifyFunc
}

// Engine owns all session state. Commands post events into a buffered channel
// drained by Run; snapshot getters take a read lock and copy.
type Engine struct {
	self   model.User
	api    Backend
	live   Live
	log    *slog.Logger
	notify NotifyFunc

	events   chan any
	throttle *limiterStore

	mu       sync.RWMutex
	ctx      context.Context
	dir      *directory
	users    []model.User
	userPage model.Page
	chatPage model.Page
	active   activeState
	stream   stream
	typing   *typingSet
	reacts   *ledger
	reads    *ledger
}

// New builds an engine for the given session. Call Bind to attach the live
// listeners and Run to start dispatching.
func New(cfg Config) *Engine {
	e := &Engine{
		self:     cfg.Self,
		api:      cfg.API,
		live:     cfg.Live,
		log:      cfg.Logger,
		notify:   cfg.Notify,
		events:   make(chan any, 128),
		throttle: newLimiterStore(rate.Every(2*time.Second), 1),
		ctx:      context.Background(),
		dir:      newDirectory(),
		typing:   newTypingSet(),
		reacts:   newLedger(),
		reads:    newLedger(),
	}
	return e
}

// Run drains the event channel until ctx is cancelled. All state mutation
// happens here; nothing else writes.
func (e *Engine) Run(ctx context.Context) error {
	e.mu.Lock()
	e.ctx = ctx
	e.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-e.events:
			e.handle(ev)
			if e.notify != nil {
				e.notify()
			}
		}
	}
}

// post enqueues an event for the dispatch goroutine. The buffer absorbs
// bursts; the loop drains far faster than the wire or the user can produce.
func (e *Engine) post(ev any) {
	e.events <- ev
}

func (e *Engine) fetchCtx() context.Context {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.ctx
}

// Commands. Each posts an event and returns immediately; results surface
// through snapshots after the next notify.

// LoadDirectory fetches the global conversation, the first group page and all
// private chats, replacing the whole conversation list.
func (e *Engine) LoadDirectory() {
	e.post(evLoadDirectory{page: 1, full: true})
}

// SetDirectoryPage fetches the given group page, keeping the private chats
// already loaded.
func (e *Engine) SetDirectoryPage(page int) {
	if page < 1 {
		page = 1
	}
	e.post(evLoadDirectory{page: page})
}

// LoadUsers fetches one page of the user directory.
func (e *Engine) LoadUsers(page int) {
	if page < 1 {
		page = 1
	}
	e.post(evLoadUsers{page: page})
}

// Navigate opens the conversation the navigation selects, or closes the
// active one when nav is zero. Resolution is asynchronous; a later Navigate
// supersedes any still in flight.
func (e *Engine) Navigate(nav Navigation) {
	e.post(evNavigate{nav: nav})
}

// SetMessagePage loads the given history page of the active conversation,
// replacing the visible messages. Ignored while no conversation is ready.
func (e *Engine) SetMessagePage(page int) {
	if page < 1 {
		page = 1
	}
	e.post(evLoadPage{page: page})
}

// SetReady records the live channel's ready state. Wire it to
// Lifecycle.OnReady; every flip to true re-joins the active conversation's
// room, since subscriptions do not survive a reconnect.
func (e *Engine) SetReady(ready bool) {
	e.post(evReady{ready: ready})
}

// Reset drops all session state. Wire it to Lifecycle.OnForceLogout.
func (e *Engine) Reset() {
	e.post(evLogout{})
}

// Send emits a message to the active conversation. The message is not added
// locally; it appears in the stream only when the server echoes it back, so
// what the user sees is exactly what other members see. A stop-typing signal
// rides along.
func (e *Engine) Send(content string) error {
	conv, ok := e.Active()
	if !ok {
		return transport.ErrNotReady
	}
	if err := e.live.Emit(transport.EventSendMessage, sendPayload{RoomID: conv.ID(), Content: content}); err != nil {
		return err
	}
	_ = e.live.Emit(transport.EventStopTyping, conv.ID())
	return nil
}

// Compose signals that the user is typing in the active conversation.
// Signals are rate-limited per conversation; dropped ones are fine, the next
// allowed keystroke resends.
func (e *Engine) Compose() {
	conv, ok := e.Active()
	if !ok {
		return
	}
	if !e.throttle.allow(conv.ID()) {
		return
	}
	_ = e.live.Emit(transport.EventTyping, conv.ID())
}

// StopCompose signals that the user stopped typing.
func (e *Engine) StopCompose() {
	conv, ok := e.Active()
	if !ok {
		return
	}
	_ = e.live.Emit(transport.EventStopTyping, conv.ID())
}

// React emits a reaction to a message in the active conversation. Like
// sending, the reaction shows up only via the server's broadcast.
func (e *Engine) React(messageID, reaction string) error {
	conv, ok := e.Active()
	if !ok {
		return transport.ErrNotReady
	}
	return e.live.Emit(transport.EventReactMessage, reactionEmit{
		RoomID:    conv.ID(),
		MessageID: messageID,
		Reaction:  reaction,
	})
}

// MarkRead emits a read receipt for a message in the active conversation.
func (e *Engine) MarkRead(messageID string) error {
	conv, ok := e.Active()
	if !ok {
		return transport.ErrNotReady
	}
	return e.live.Emit(transport.EventReadMessage, readEmit{
		RoomID:    conv.ID(),
		MessageID: messageID,
		UserID:    e.self.ID,
	})
}

// Snapshots. Each copies under the read lock; returned slices are the
// caller's to keep.

// Conversations returns the full directory in activity order.
func (e *Engine) Conversations() []model.Conversation {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.dir.list()
}

// MyGroups returns the conversations the user belongs to, global first.
func (e *Engine) MyGroups() []model.Conversation {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.dir.myGroups(e.self.ID)
}

// DiscoverableGroups returns joinable groups: loaded groups the user is not a
// member of, excluding the global conversation.
func (e *Engine) DiscoverableGroups() []*model.Group {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.dir.discoverable(e.self.ID)
}

// DirectoryPage returns the current group-page cursor.
func (e *Engine) DirectoryPage() model.Page {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.chatPage
}

// Users returns the loaded user-directory page.
func (e *Engine) Users() ([]model.User, model.Page) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]model.User, len(e.users))
	copy(out, e.users)
	return out, e.userPage
}

// Active returns the ready active conversation, or ok=false while none is
// open or one is still resolving.
func (e *Engine) Active() (model.Conversation, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.active.phase != phaseReady {
		return nil, false
	}
	return e.active.conv, true
}

// Resolving reports whether a navigation is still being resolved.
func (e *Engine) Resolving() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.active.phase == phaseResolving
}

// Messages returns the visible message list of the active conversation.
func (e *Engine) Messages() []model.Message {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.stream.list()
}

// MessagePage returns the history-page cursor of the active conversation.
func (e *Engine) MessagePage() model.Page {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.stream.page
}

// TypingUserIDs returns who is composing in the active conversation, sorted.
func (e *Engine) TypingUserIDs() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.active.phase != phaseReady {
		return nil
	}
	return e.typing.list(e.active.conv.ID())
}

// Reactions returns the reaction sequence recorded for a message, in arrival
// order, duplicates included.
func (e *Engine) Reactions(messageID string) []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.reacts.get(messageID)
}

// ReadBy returns the read-receipt log for a message, in arrival order.
func (e *Engine) ReadBy(messageID string) []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.reads.get(messageID)
}

// FullyRead reports whether every member of the active conversation other
// than the sender has a read receipt for the message.
func (e *Engine) FullyRead(messageID string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.active.phase != phaseReady {
		return false
	}
	msg, ok := e.stream.byID(messageID)
	if !ok {
		return false
	}
	var want []string
	for _, m := range e.active.conv.MemberUsers() {
		if m.ID != msg.Sender.ID {
			want = append(want, m.ID)
		}
	}
	return e.reads.containsAll(messageID, want)
}
