// Copyright 2023 the verilator-go authors
// Licensed under the MIT license. See license text in the LICENSE file.

package stats

import (
	"testing"
)

func TestRecorder_counters_accumulate(t *testing.T) {
	r := New("stats-test-accumulate")
	r.Stage("gather")
	r.Add("fragments", 3)
	r.Add("fragments", 2)
	if got := r.Counter("fragments"); got != 5 {
		t.Fatalf("Counter = %d, want 5", got)
	}
	if got := r.Counter("unknown"); got != 0 {
		t.Fatalf("Counter(unknown) = %d, want 0", got)
	}
	all := r.Counters()
	if all["fragments"] != 5 {
		t.Fatalf("Counters = %v", all)
	}
	all["fragments"] = 0
	if r.Counter("fragments") != 5 {
		t.Fatal("Counters must return a copy")
	}
}

func TestRecorder_history_persisted(t *testing.T) {
	r := New("stats-test-history")
	r.Stage("one")
	r.Add("triggers", 1)
	r.Stage("two")
	r.Add("triggers", 3)

	h := r.History("triggers")
	if len(h) != 2 {
		t.Fatalf("history has %d entries, want 2", len(h))
	}
	seen := map[uint64]bool{}
	for _, v := range h {
		seen[v] = true
	}
	if !seen[1] || !seen[4] {
		t.Fatalf("history = %v, want values 1 and 4", h)
	}
	if r.History("missing") != nil {
		t.Fatal("unknown counter must have no history")
	}
}
