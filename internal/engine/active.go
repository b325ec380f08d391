package engine

import "github.com/verdantchat/verdant/internal/model"

// Navigation selects a conversation: a group id or the counterpart user id of
// a private chat, never both. The zero value means no conversation is open.
type Navigation struct {
	GroupID string
	UserID  string
}

// IsZero reports whether the navigation selects nothing.
func (n Navigation) IsZero() bool { return n.GroupID == "" && n.UserID == "" }

type phase int

const (
	phaseNone phase = iota
	phaseResolving
	phaseReady
)

// activeState is the active-conversation state machine:
// none → resolving → ready, back to none on failure or logout, and back to
// resolving on navigation to a different conversation. Every resolution
// attempt gets a fresh epoch; fetch completions carry the epoch of the
// navigation that started them, and completions from a superseded epoch are
// discarded so a slow fetch for conversation A can never overwrite B.
type activeState struct {
	phase phase
	conv  model.Conversation
	epoch uint64
}

// begin enters resolving and returns the new epoch.
func (a *activeState) begin() uint64 {
	a.epoch++
	a.phase = phaseResolving
	a.conv = nil
	return a.epoch
}

// stale reports whether a completion belongs to a superseded resolution.
func (a *activeState) stale(epoch uint64) bool { return epoch != a.epoch }

func (a *activeState) resolve(c model.Conversation) {
	a.phase = phaseReady
	a.conv = c
}

func (a *activeState) fail() {
	a.phase = phaseNone
	a.conv = nil
}

// reset forces the machine back to none and bumps the epoch so any in-flight
// fetch lands stale.
func (a *activeState) reset() {
	a.epoch++
	a.phase = phaseNone
	a.conv = nil
}
