package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/verdantchat/verdant/internal/model"
)

func TestJoinGroupRefetchesMembership(t *testing.T) {
	b := newFakeBackend()
	b.groups["g2"] = group("g2", "eng", at("2026-01-03T00:00:00Z"), "u2")
	live := newFakeLive()
	e := newTestEngine(t, b, live)

	if err := e.JoinGroup(context.Background(), "g2"); err != nil {
		t.Fatal(err)
	}
	step(t, e) // refreshed group lands

	for _, c := range e.Conversations() {
		if c.ID() != "g2" {
			continue
		}
		for _, m := range c.MemberUsers() {
			if m.ID == "self" {
				return
			}
		}
	}
	t.Error("joined group does not show the new membership")
}

func TestLeaveActiveGroupClosesIt(t *testing.T) {
	b := newFakeBackend()
	b.groups["g1"] = group("g1", "ops", at("2026-01-02T00:00:00Z"), "self", "u2")
	live := newFakeLive()
	e := newTestEngine(t, b, live)
	openGroup(t, e, "g1")

	if err := e.LeaveGroup(context.Background(), "g1"); err != nil {
		t.Fatal(err)
	}
	step(t, e)

	if _, ok := e.Active(); ok {
		t.Error("left group still active")
	}
	// The group itself stays listed; the user just is not in it anymore.
	if _, ok := e.dir.byID("g1"); !ok {
		t.Error("group dropped from directory on leave")
	}
}

func TestKickOtherMemberKeepsActive(t *testing.T) {
	b := newFakeBackend()
	b.groups["g1"] = group("g1", "ops", at("2026-01-02T00:00:00Z"), "self", "u2")
	live := newFakeLive()
	e := newTestEngine(t, b, live)
	openGroup(t, e, "g1")

	if err := e.KickMember(context.Background(), "g1", "u2"); err != nil {
		t.Fatal(err)
	}
	step(t, e)

	conv, ok := e.Active()
	if !ok {
		t.Fatal("conversation closed by kicking someone else")
	}
	for _, m := range conv.MemberUsers() {
		if m.ID == "u2" {
			t.Error("kicked member still present after refetch")
		}
	}
}

func TestPromoteAndDemoteAdmin(t *testing.T) {
	b := newFakeBackend()
	b.groups["g1"] = group("g1", "ops", at("2026-01-02T00:00:00Z"), "self", "u2")
	live := newFakeLive()
	e := newTestEngine(t, b, live)
	openGroup(t, e, "g1")

	if err := e.PromoteAdmin(context.Background(), "g1", "u2"); err != nil {
		t.Fatal(err)
	}
	step(t, e)
	if conv, _ := e.Active(); !isAdminOf(conv, "u2") {
		t.Error("u2 not admin after promotion")
	}

	if err := e.DemoteAdmin(context.Background(), "g1", "u2"); err != nil {
		t.Fatal(err)
	}
	step(t, e)
	if conv, _ := e.Active(); isAdminOf(conv, "u2") {
		t.Error("u2 still admin after demotion")
	}
}

func TestCreateAndDeleteGroup(t *testing.T) {
	b := newFakeBackend()
	live := newFakeLive()
	e := newTestEngine(t, b, live)

	g, err := e.CreateGroup(context.Background(), "fresh", []string{"u2"})
	if err != nil {
		t.Fatal(err)
	}
	step(t, e)
	if _, ok := e.dir.byID(g.GroupID); !ok {
		t.Error("created group missing from directory")
	}

	if err := e.DeleteGroup(context.Background(), g.GroupID); err != nil {
		t.Fatal(err)
	}
	step(t, e)
	if _, ok := e.dir.byID(g.GroupID); ok {
		t.Error("deleted group still in directory")
	}
}

func TestMutationFailurePostsNothing(t *testing.T) {
	b := newFakeBackend()
	b.err = errors.New("forbidden")
	live := newFakeLive()
	e := newTestEngine(t, b, live)

	if err := e.JoinGroup(context.Background(), "g1"); err == nil {
		t.Fatal("expected error")
	}
	select {
	case ev := <-e.events:
		t.Errorf("event %#v posted after failed mutation", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func isAdminOf(conv model.Conversation, id string) bool {
	g, ok := conv.(*model.Group)
	return ok && g.IsAdmin(id)
}
