package engine

import (
	"time"

	"github.com/verdantchat/verdant/internal/model"
	"github.com/verdantchat/verdant/internal/transport"
)

// Events dispatched on the Run goroutine. Commands and live listeners post
// them; fetch goroutines post completions tagged with the epoch of the
// navigation that started them.

type evNavigate struct {
	nav Navigation
}

type evConvResolved struct {
	epoch uint64
	conv  model.Conversation
	err   error
}

type evLoadPage struct {
	page int
}

type evPageLoaded struct {
	epoch uint64
	msgs  []model.Message
	page  model.Page
	err   error
}

type evLoadDirectory struct {
	page int
	full bool
}

type evDirectoryLoaded struct {
	global   *model.Group
	groups   []*model.Group
	privates []*model.Private
	page     model.Page
	full     bool
	err      error
}

type evLoadUsers struct {
	page int
}

type evUsersLoaded struct {
	users []model.User
	page  model.Page
	err   error
}

type evLiveMessage struct {
	msg model.Message
}

type evConvFetched struct {
	conv model.Conversation
	err  error
}

type evPresence struct {
	userID   string
	online   bool
	lastSeen *time.Time
}

type evTyping struct {
	userID string
	active bool
}

type evReaction struct {
	messageID string
	reaction  string
}

type evRead struct {
	messageID string
	userID    string
}

type evReady struct {
	ready bool
}

type evLogout struct{}

type evActiveReplaced struct {
	conv model.Conversation
}

type evGroupDeleted struct {
	id string
}

type evGroupCreated struct {
	group *model.Group
}

// handle applies one event to the state. It runs on the dispatch goroutine
// and holds the write lock for the duration; snapshot readers see each event
// either fully applied or not at all.
func (e *Engine) handle(ev any) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch ev := ev.(type) {
	case evNavigate:
		e.handleNavigate(ev)
	case evConvResolved:
		e.handleConvResolved(ev)
	case evLoadPage:
		e.handleLoadPage(ev)
	case evPageLoaded:
		e.handlePageLoaded(ev)
	case evLoadDirectory:
		e.handleLoadDirectory(ev)
	case evDirectoryLoaded:
		e.handleDirectoryLoaded(ev)
	case evLoadUsers:
		e.handleLoadUsers(ev)
	case evUsersLoaded:
		e.handleUsersLoaded(ev)
	case evLiveMessage:
		e.handleLiveMessage(ev)
	case evConvFetched:
		e.handleConvFetched(ev)
	case evPresence:
		e.handlePresence(ev)
	case evTyping:
		e.handleTyping(ev)
	case evReaction:
		e.reacts.add(ev.messageID, ev.reaction)
	case evRead:
		e.reads.add(ev.messageID, ev.userID)
	case evReady:
		e.handleReady(ev)
	case evLogout:
		e.handleLogout()
	case evActiveReplaced:
		e.handleActiveReplaced(ev)
	case evGroupDeleted:
		e.handleGroupDeleted(ev)
	case evGroupCreated:
		e.dir.upsert(ev.group)
	default:
		e.log.Warn("unknown engine event", "type", ev)
	}
}

func (e *Engine) handleNavigate(ev evNavigate) {
	e.dropActiveLocked()
	if ev.nav.IsZero() {
		e.active.reset()
		return
	}

	epoch := e.active.begin()
	ctx := e.ctx
	nav := ev.nav
	go func() {
		var (
			conv model.Conversation
			err  error
		)
		if nav.GroupID != "" {
			conv, err = e.api.Group(ctx, nav.GroupID)
		} else {
			conv, err = e.api.PrivateChat(ctx, nav.UserID)
		}
		e.post(evConvResolved{epoch: epoch, conv: conv, err: err})
	}()
}

func (e *Engine) handleConvResolved(ev evConvResolved) {
	if e.active.stale(ev.epoch) {
		e.log.Debug("dropping superseded conversation fetch")
		return
	}
	if ev.err != nil {
		e.log.Warn("conversation resolution failed", "error", ev.err)
		e.active.fail()
		return
	}

	e.active.resolve(ev.conv)
	e.dir.upsert(ev.conv)
	e.joinRoomLocked(ev.conv.ID())
	e.fetchPageLocked(ev.conv.ID(), 1)
}

func (e *Engine) handleLoadPage(ev evLoadPage) {
	if e.active.phase != phaseReady {
		return
	}
	e.fetchPageLocked(e.active.conv.ID(), ev.page)
}

// fetchPageLocked starts a history fetch for the current epoch.
func (e *Engine) fetchPageLocked(convID string, page int) {
	epoch := e.active.epoch
	ctx := e.ctx
	go func() {
		msgs, pg, err := e.api.Messages(ctx, convID, page, messagePageLimit)
		e.post(evPageLoaded{epoch: epoch, msgs: msgs, page: pg, err: err})
	}()
}

func (e *Engine) handlePageLoaded(ev evPageLoaded) {
	if e.active.stale(ev.epoch) {
		e.log.Debug("dropping superseded history page")
		return
	}
	if ev.err != nil {
		e.log.Warn("history fetch failed", "error", ev.err)
		return
	}
	e.stream.setPage(ev.msgs, ev.page)
}

func (e *Engine) handleLoadDirectory(ev evLoadDirectory) {
	ctx := e.ctx
	go func() {
		out := evDirectoryLoaded{full: ev.full}
		out.global, out.err = e.api.GlobalGroup(ctx)
		if out.err == nil {
			out.groups, out.page, out.err = e.api.Groups(ctx, ev.page, chatPageLimit)
		}
		if out.err == nil && ev.full {
			out.privates, out.err = e.api.PrivateChats(ctx)
		}
		e.post(out)
	}()
}

func (e *Engine) handleDirectoryLoaded(ev evDirectoryLoaded) {
	if ev.err != nil {
		e.log.Warn("directory load failed", "error", ev.err)
		return
	}
	if ev.full {
		e.dir.setAll(ev.global, ev.groups, ev.privates)
	} else {
		e.dir.setGroups(ev.global, ev.groups)
	}
	e.chatPage = ev.page
}

func (e *Engine) handleLoadUsers(ev evLoadUsers) {
	ctx := e.ctx
	go func() {
		users, pg, err := e.api.Users(ctx, ev.page, userPageLimit)
		e.post(evUsersLoaded{users: users, page: pg, err: err})
	}()
}

func (e *Engine) handleUsersLoaded(ev evUsersLoaded) {
	if ev.err != nil {
		e.log.Warn("user directory load failed", "error", ev.err)
		return
	}
	e.users = ev.users
	e.userPage = ev.page
}

// handleLiveMessage merges one pushed message: the owning conversation's
// preview is refreshed (or the conversation fetched if it has never been
// loaded), and the message joins the visible stream when its conversation is
// the active one. Sent messages take this exact path too, via the server
// echo.
func (e *Engine) handleLiveMessage(ev evLiveMessage) {
	msg := ev.msg

	if conv, ok := e.dir.byID(msg.ChatID); ok {
		e.dir.upsert(model.WithLastMessage(conv, msg))
	} else {
		e.fetchUnknownConvLocked(msg)
	}

	if e.active.phase == phaseReady && e.active.conv.ID() == msg.ChatID {
		e.stream.append(msg)
	}
}

// fetchUnknownConvLocked resolves a conversation the directory has never
// seen. Groups are fetched by the message's chat id; private chats by the
// counterpart user, which is the sender unless we sent the message ourselves.
func (e *Engine) fetchUnknownConvLocked(msg model.Message) {
	ctx := e.ctx
	go func() {
		var (
			conv model.Conversation
			err  error
		)
		if msg.Group {
			conv, err = e.api.Group(ctx, msg.ChatID)
		} else {
			counterpart := msg.Sender.ID
			if counterpart == e.self.ID {
				counterpart = msg.Receiver
			}
			conv, err = e.api.PrivateChat(ctx, counterpart)
		}
		e.post(evConvFetched{conv: conv, err: err})
	}()
}

func (e *Engine) handleConvFetched(ev evConvFetched) {
	if ev.err != nil {
		e.log.Warn("conversation fetch failed", "error", ev.err)
		return
	}
	e.dir.upsert(ev.conv)
}

func (e *Engine) handlePresence(ev evPresence) {
	applyPresence(ev.userID, ev.online, ev.lastSeen, e.users, e.dir)
	// The directory now holds a fresh copy; keep the active conversation on it.
	if e.active.phase == phaseReady {
		if c, ok := e.dir.byID(e.active.conv.ID()); ok {
			e.active.conv = c
		}
	}
}

// handleTyping attributes a typing signal to the active conversation: the
// wire payload carries only the user, and the server delivers these signals
// only for the room we have joined.
func (e *Engine) handleTyping(ev evTyping) {
	if ev.userID == e.self.ID || e.active.phase != phaseReady {
		return
	}
	if ev.active {
		e.typing.start(e.active.conv.ID(), ev.userID)
	} else {
		e.typing.stop(e.active.conv.ID(), ev.userID)
	}
}

func (e *Engine) handleReady(ev evReady) {
	if !ev.ready {
		return
	}
	// Room membership does not survive a reconnect.
	if e.active.phase == phaseReady {
		e.joinRoomLocked(e.active.conv.ID())
	}
}

func (e *Engine) handleLogout() {
	e.dropActiveLocked()
	e.active.reset()
	e.dir.reset()
	e.users = nil
	e.userPage = model.Page{}
	e.chatPage = model.Page{}
	e.typing.reset()
}

// handleActiveReplaced installs a freshly fetched group after a membership
// mutation. When the mutation removed us, the conversation is closed instead.
func (e *Engine) handleActiveReplaced(ev evActiveReplaced) {
	e.dir.upsert(ev.conv)

	if e.active.phase != phaseReady || e.active.conv.ID() != ev.conv.ID() {
		return
	}
	if g, ok := ev.conv.(*model.Group); ok && !g.HasMember(e.self.ID) {
		e.dropActiveLocked()
		e.active.reset()
		return
	}
	e.active.conv = ev.conv
}

// handleGroupDeleted removes the group from the directory and, when it was
// the active conversation, closes it in the same step. No snapshot can see
// the group gone from the directory but still active.
func (e *Engine) handleGroupDeleted(ev evGroupDeleted) {
	e.dir.remove(ev.id)
	if e.active.phase == phaseReady && e.active.conv.ID() == ev.id {
		e.dropActiveLocked()
		e.active.reset()
	}
}

// dropActiveLocked tears down everything scoped to the active conversation:
// the room subscription, the message stream, typing state and the annotation
// ledgers. The active machine itself is left to the caller.
func (e *Engine) dropActiveLocked() {
	if e.active.phase == phaseReady {
		id := e.active.conv.ID()
		e.leaveRoomLocked(id)
		e.typing.clear(id)
	}
	e.stream.clear()
	e.reacts.reset()
	e.reads.reset()
}

// Room subscription events carry the bare conversation id; the server knows
// the user from the connection.

func (e *Engine) joinRoomLocked(roomID string) {
	if err := e.live.Emit(transport.EventJoinRoom, roomID); err != nil {
		e.log.Warn("join room failed", "room", roomID, "error", err)
	}
}

func (e *Engine) leaveRoomLocked(roomID string) {
	// Best effort; the server drops dead subscriptions on its own.
	_ = e.live.Emit(transport.EventLeaveRoom, roomID)
}
