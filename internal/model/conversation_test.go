package model

import (
	"testing"
	"time"
)

func ts(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestActivityFallbackChain(t *testing.T) {
	created := ts("2026-01-01T10:00:00Z")
	updated := ts("2026-01-02T10:00:00Z")
	msgAt := ts("2026-01-03T10:00:00Z")

	tests := []struct {
		name string
		conv Conversation
		want time.Time
	}{
		{
			name: "last message wins",
			conv: &Group{LastMessage: &Message{CreatedAt: msgAt}, UpdatedAt: updated, CreatedAt: created},
			want: msgAt,
		},
		{
			name: "updated when no message",
			conv: &Group{UpdatedAt: updated, CreatedAt: created},
			want: updated,
		},
		{
			name: "created when never updated",
			conv: &Private{ChatID: "p1", CreatedAt: created},
			want: created,
		},
		{
			name: "zero when nothing known",
			conv: &Group{},
			want: time.Time{},
		},
		{
			name: "message with zero timestamp falls through",
			conv: &Group{LastMessage: &Message{}, UpdatedAt: updated},
			want: updated,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.conv.Activity(); !got.Equal(tc.want) {
				t.Errorf("Activity() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestEnvelopeConversation(t *testing.T) {
	t.Run("group", func(t *testing.T) {
		env := ConversationEnvelope{
			ID:      "g1",
			Name:    "ops",
			IsGroup: true,
			Members: []User{{ID: "u1"}, {ID: "u2"}, {ID: "u3"}},
			Admins:  []string{"u1"},
		}
		conv, err := env.Conversation()
		if err != nil {
			t.Fatal(err)
		}
		g, ok := conv.(*Group)
		if !ok {
			t.Fatalf("got %T, want *Group", conv)
		}
		if !g.IsAdmin("u1") || g.IsAdmin("u2") {
			t.Error("admin subset not carried over")
		}
	})

	t.Run("private", func(t *testing.T) {
		env := ConversationEnvelope{
			ID:      "p1",
			Members: []User{{ID: "u1"}, {ID: "u2"}},
		}
		conv, err := env.Conversation()
		if err != nil {
			t.Fatal(err)
		}
		p, ok := conv.(*Private)
		if !ok {
			t.Fatalf("got %T, want *Private", conv)
		}
		if got := p.Other("u1").ID; got != "u2" {
			t.Errorf("Other(u1) = %q, want u2", got)
		}
		if got := p.Other("u2").ID; got != "u1" {
			t.Errorf("Other(u2) = %q, want u1", got)
		}
	})

	t.Run("private with wrong member count", func(t *testing.T) {
		env := ConversationEnvelope{ID: "p1", Members: []User{{ID: "u1"}}}
		if _, err := env.Conversation(); err == nil {
			t.Error("expected error for one-member private chat")
		}
	})

	t.Run("missing id", func(t *testing.T) {
		if _, err := (ConversationEnvelope{IsGroup: true}).Conversation(); err == nil {
			t.Error("expected error for missing id")
		}
	})
}

func TestWithLastMessageCopies(t *testing.T) {
	orig := &Group{GroupID: "g1", UpdatedAt: ts("2026-01-01T00:00:00Z")}
	msg := Message{ID: "m1", CreatedAt: ts("2026-02-01T00:00:00Z")}

	got := WithLastMessage(orig, msg)
	if orig.LastMessage != nil {
		t.Error("original mutated; want copy semantics")
	}
	if got.LastMsg() == nil || got.LastMsg().ID != "m1" {
		t.Error("copy missing new last message")
	}
	if !got.Activity().Equal(msg.CreatedAt) {
		t.Errorf("Activity() = %v, want message time", got.Activity())
	}
}

func TestWithMemberCopies(t *testing.T) {
	orig := &Group{GroupID: "g1", Members: []User{{ID: "u1"}, {ID: "u2"}}}
	seen := ts("2026-03-01T00:00:00Z")

	updated, ok := WithMember(orig, User{ID: "u2", LastSeen: &seen})
	if !ok {
		t.Fatal("WithMember reported no replacement")
	}
	if orig.Members[1].LastSeen != nil {
		t.Error("original mutated; want copy semantics")
	}
	got := updated.MemberUsers()
	if got[1].LastSeen == nil || !got[1].LastSeen.Equal(seen) {
		t.Error("copy missing the replaced member")
	}

	same, ok := WithMember(orig, User{ID: "ghost"})
	if ok {
		t.Error("replacement reported for unknown member")
	}
	if same != Conversation(orig) {
		t.Error("unknown member should return the conversation unchanged")
	}

	p := &Private{ChatID: "p1", Members: []User{{ID: "u1"}, {ID: "u2"}}}
	updated, ok = WithMember(p, User{ID: "u1", Online: true})
	if !ok || !updated.MemberUsers()[0].Online {
		t.Error("private member not replaced")
	}
	if p.Members[0].Online {
		t.Error("original private mutated")
	}
}
