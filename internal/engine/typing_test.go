package engine

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestTypingSet(t *testing.T) {
	ts := newTypingSet()
	ts.start("c1", "u2")
	ts.start("c1", "u3")
	ts.start("c1", "u2") // idempotent
	ts.start("c2", "u4")

	if diff := cmp.Diff([]string{"u2", "u3"}, ts.list("c1")); diff != "" {
		t.Errorf("list(c1) (-want +got):\n%s", diff)
	}

	ts.stop("c1", "u2")
	ts.stop("c1", "ghost") // unknown user is a no-op
	if diff := cmp.Diff([]string{"u3"}, ts.list("c1")); diff != "" {
		t.Errorf("after stop (-want +got):\n%s", diff)
	}

	ts.clear("c1")
	if got := ts.list("c1"); got != nil {
		t.Errorf("list after clear = %v", got)
	}
	if diff := cmp.Diff([]string{"u4"}, ts.list("c2")); diff != "" {
		t.Errorf("clear leaked across conversations (-want +got):\n%s", diff)
	}
}
