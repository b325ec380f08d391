package engine

import (
	"context"
	"fmt"

	"github.com/verdantchat/verdant/internal/model"
)

// Group mutations follow a mutate-then-refetch protocol: the server applies
// the change, then the client fetches the group's authoritative state and
// installs it. Nothing patches membership locally, so the client can never
// show a membership the server would deny. The methods block until the
// mutation round-trips; the refreshed state lands through the event loop.

// CreateGroup creates a group and adds it to the directory.
func (e *Engine) CreateGroup(ctx context.Context, name string, memberIDs []string) (*model.Group, error) {
	g, err := e.api.CreateGroup(ctx, name, memberIDs)
	if err != nil {
		return nil, fmt.Errorf("creating group: %w", err)
	}
	e.post(evGroupCreated{group: g})
	return g, nil
}

// DeleteGroup deletes a group. The directory entry and, when the group is
// active, the open conversation are dropped together.
func (e *Engine) DeleteGroup(ctx context.Context, groupID string) error {
	if err := e.api.DeleteGroup(ctx, groupID); err != nil {
		return fmt.Errorf("deleting group: %w", err)
	}
	e.post(evGroupDeleted{id: groupID})
	return nil
}

// JoinGroup adds the current user to a group.
func (e *Engine) JoinGroup(ctx context.Context, groupID string) error {
	return e.mutate(ctx, groupID, e.api.AddMember, e.self.ID)
}

// LeaveGroup removes the current user from a group.
func (e *Engine) LeaveGroup(ctx context.Context, groupID string) error {
	return e.mutate(ctx, groupID, e.api.RemoveMember, e.self.ID)
}

// AddMember adds another user to a group.
func (e *Engine) AddMember(ctx context.Context, groupID, memberID string) error {
	return e.mutate(ctx, groupID, e.api.AddMember, memberID)
}

// KickMember forcibly removes a user from a group. The server enforces that
// the caller is an admin.
func (e *Engine) KickMember(ctx context.Context, groupID, memberID string) error {
	return e.mutate(ctx, groupID, e.api.KickMember, memberID)
}

// PromoteAdmin grants a member admin rights.
func (e *Engine) PromoteAdmin(ctx context.Context, groupID, memberID string) error {
	return e.mutate(ctx, groupID, e.api.PromoteAdmin, memberID)
}

// DemoteAdmin revokes a member's admin rights.
func (e *Engine) DemoteAdmin(ctx context.Context, groupID, memberID string) error {
	return e.mutate(ctx, groupID, e.api.DemoteAdmin, memberID)
}

func (e *Engine) mutate(ctx context.Context, groupID string, op func(context.Context, string, string) error, memberID string) error {
	if err := op(ctx, groupID, memberID); err != nil {
		return fmt.Errorf("group %s: %w", groupID, err)
	}
	g, err := e.api.Group(ctx, groupID)
	if err != nil {
		return fmt.Errorf("refreshing group %s: %w", groupID, err)
	}
	e.post(evActiveReplaced{conv: g})
	return nil
}
