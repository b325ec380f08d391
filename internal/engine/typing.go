package engine

import "sort"

// typingSet tracks, per conversation, who is currently composing. Membership
// is transient and has no timeout: it is cleared only by the remote stop
// signal or by tearing down the conversation's subscription.
type typingSet struct {
	byConv map[string]map[string]struct{}
}

func newTypingSet() *typingSet {
	return &typingSet{byConv: make(map[string]map[string]struct{})}
}

func (t *typingSet) start(convID, userID string) {
	set, ok := t.byConv[convID]
	if !ok {
		set = make(map[string]struct{})
		t.byConv[convID] = set
	}
	set[userID] = struct{}{}
}

func (t *typingSet) stop(convID, userID string) {
	if set, ok := t.byConv[convID]; ok {
		delete(set, userID)
		if len(set) == 0 {
			delete(t.byConv, convID)
		}
	}
}

// list returns the composing user ids for a conversation, sorted for stable
// presentation.
func (t *typingSet) list(convID string) []string {
	set := t.byConv[convID]
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (t *typingSet) clear(convID string) {
	delete(t.byConv, convID)
}

func (t *typingSet) reset() {
	t.byConv = make(map[string]map[string]struct{})
}
