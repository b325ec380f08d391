package model

import (
	"fmt"
	"time"
)

// Conversation is a group or private messaging thread, the unit of room
// subscription and history. It is sealed: Group and Private are the only
// implementations, so consumers switch on the concrete type instead of
// checking an isGroup flag.
type Conversation interface {
	// ID is the conversation id, unique across groups and private chats.
	ID() string
	// Activity is the timestamp used to order the conversation list: the
	// last message's creation time when present, otherwise the conversation's
	// update time, otherwise its creation time, otherwise the zero time.
	Activity() time.Time
	// MemberUsers returns the current member snapshot.
	MemberUsers() []User
	// LastMsg returns the last-message preview, or nil.
	LastMsg() *Message

	sealed()
}

// Group is a named multi-member conversation with an admin subset.
type Group struct {
	GroupID     string
	Name        string
	Members     []User
	Admins      []string
	LastMessage *Message
	UnreadCount int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (g *Group) ID() string          { return g.GroupID }
func (g *Group) MemberUsers() []User { return g.Members }
func (g *Group) LastMsg() *Message   { return g.LastMessage }
func (g *Group) sealed()             {}

func (g *Group) Activity() time.Time {
	return activity(g.LastMessage, g.UpdatedAt, g.CreatedAt)
}

// HasMember reports whether the user id is in the member set.
func (g *Group) HasMember(userID string) bool {
	for _, m := range g.Members {
		if m.ID == userID {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the user id is in the admin subset.
func (g *Group) IsAdmin(userID string) bool {
	for _, id := range g.Admins {
		if id == userID {
			return true
		}
	}
	return false
}

// Private is a one-to-one conversation. It always has exactly two members.
type Private struct {
	ChatID      string
	Members     []User
	LastMessage *Message
	UnreadCount int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (p *Private) ID() string          { return p.ChatID }
func (p *Private) MemberUsers() []User { return p.Members }
func (p *Private) LastMsg() *Message   { return p.LastMessage }
func (p *Private) sealed()             {}

func (p *Private) Activity() time.Time {
	return activity(p.LastMessage, p.UpdatedAt, p.CreatedAt)
}

// Other returns the member that is not selfID.
func (p *Private) Other(selfID string) User {
	if len(p.Members) > 0 && p.Members[0].ID != selfID {
		return p.Members[0]
	}
	if len(p.Members) > 1 {
		return p.Members[1]
	}
	return User{}
}

// HasMember reports whether the conversation's member set contains userID.
func HasMember(c Conversation, userID string) bool {
	for _, m := range c.MemberUsers() {
		if m.ID == userID {
			return true
		}
	}
	return false
}

// WithLastMessage returns a copy of the conversation with the last-message
// preview replaced. Live message events are merged into the directory through
// this copy plus the normal upsert path; nothing patches a stored
// conversation in place.
func WithLastMessage(c Conversation, m Message) Conversation {
	switch v := c.(type) {
	case *Group:
		cp := *v
		cp.LastMessage = &m
		return &cp
	case *Private:
		cp := *v
		cp.LastMessage = &m
		return &cp
	}
	return c
}

// WithMember returns a copy of the conversation with the member matching
// u.ID replaced, and reports whether the user was a member. The member slice
// is copied too, so conversations already handed out stay untouched. Presence
// updates flow through this copy plus the directory's upsert path, the same
// way last-message previews do.
func WithMember(c Conversation, u User) (Conversation, bool) {
	replace := func(members []User) ([]User, bool) {
		for i := range members {
			if members[i].ID == u.ID {
				cp := append([]User(nil), members...)
				cp[i] = u
				return cp, true
			}
		}
		return nil, false
	}

	switch v := c.(type) {
	case *Group:
		members, ok := replace(v.Members)
		if !ok {
			return c, false
		}
		cp := *v
		cp.Members = members
		return &cp, true
	case *Private:
		members, ok := replace(v.Members)
		if !ok {
			return c, false
		}
		cp := *v
		cp.Members = members
		return &cp, true
	}
	return c, false
}

func activity(last *Message, updated, created time.Time) time.Time {
	if last != nil && !last.CreatedAt.IsZero() {
		return last.CreatedAt
	}
	if !updated.IsZero() {
		return updated
	}
	return created
}

// ConversationEnvelope is the wire shape shared by group and private-chat
// payloads. The server's isGroup flag is interpreted here, exactly once.
type ConversationEnvelope struct {
	ID          string    `json:"_id"`
	Name        string    `json:"name"`
	IsGroup     bool      `json:"isGroup"`
	Members     []User    `json:"members"`
	Admins      []string  `json:"admins"`
	LastMessage *Message  `json:"lastMessage"`
	UnreadCount int       `json:"unreadCount"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Conversation converts the envelope into its tagged variant. A private chat
// that does not have exactly two members is rejected rather than let a
// malformed object into the directory.
func (e ConversationEnvelope) Conversation() (Conversation, error) {
	if e.ID == "" {
		return nil, fmt.Errorf("conversation without id")
	}
	if e.IsGroup {
		return &Group{
			GroupID:     e.ID,
			Name:        e.Name,
			Members:     e.Members,
			Admins:      e.Admins,
			LastMessage: e.LastMessage,
			UnreadCount: e.UnreadCount,
			CreatedAt:   e.CreatedAt,
			UpdatedAt:   e.UpdatedAt,
		}, nil
	}
	if len(e.Members) != 2 {
		return nil, fmt.Errorf("private conversation %s has %d members, want 2", e.ID, len(e.Members))
	}
	return &Private{
		ChatID:      e.ID,
		Members:     e.Members,
		LastMessage: e.LastMessage,
		UnreadCount: e.UnreadCount,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}, nil
}
