package engine

// ledger is an append-only log keyed by message id, used for both reactions
// (emoji sequences) and read receipts (user ids). Appends are unconditional
// and duplicates are preserved; consumers that need a set dedupe when they
// read. Entries live only as long as the current conversation subscription —
// historical annotations are not backfilled.
type ledger struct {
	entries map[string][]string
}

func newLedger() *ledger {
	return &ledger{entries: make(map[string][]string)}
}

func (l *ledger) add(messageID, value string) {
	l.entries[messageID] = append(l.entries[messageID], value)
}

func (l *ledger) get(messageID string) []string {
	vals := l.entries[messageID]
	if len(vals) == 0 {
		return nil
	}
	out := make([]string, len(vals))
	copy(out, vals)
	return out
}

// containsAll reports whether every id in want appears in the log for the
// message, ignoring duplicates.
func (l *ledger) containsAll(messageID string, want []string) bool {
	if len(want) == 0 {
		return false
	}
	seen := make(map[string]struct{}, len(l.entries[messageID]))
	for _, v := range l.entries[messageID] {
		seen[v] = struct{}{}
	}
	for _, w := range want {
		if _, ok := seen[w]; !ok {
			return false
		}
	}
	return true
}

func (l *ledger) reset() {
	l.entries = make(map[string][]string)
}
