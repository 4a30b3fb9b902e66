package handoff

import (
	"context"
	"fmt"
	"testing"

	"pgregory.net/rapid"

	"github.com/zjrosen/implindex/internal/domain/implementors"
)

// ============================================================================
// Property-Based Tests for Handoff Invariants
// ============================================================================

// step is one generated submit: a module drawn from a small name pool so that
// duplicates happen, and a record payload tagged with the step index.
type step struct {
	module  string
	records []implementors.Record
}

func drawSteps(t *rapid.T) []step {
	names := []string{"alpha", "beta", "gamma", "delta", "epsilon"}
	n := rapid.IntRange(0, 25).Draw(t, "numSubmits")
	steps := make([]step, n)
	for i := range steps {
		name := rapid.SampledFrom(names).Draw(t, fmt.Sprintf("module-%d", i))
		count := rapid.IntRange(0, 3).Draw(t, fmt.Sprintf("records-%d", i))
		records := make([]implementors.Record, count)
		for j := range records {
			records[j] = rec("Debug", fmt.Sprintf("T%d_%d", i, j))
		}
		steps[i] = step{module: name, records: records}
	}
	return steps
}

// TestProperty_NoLossNoDuplication verifies that for any interleaving of submits
// and one attach, the consumer receives exactly one delivery per distinct module
// submitted before attach plus one per submit after attach, and the last delivery
// for every module matches the last submit for it.
func TestProperty_NoLossNoDuplication(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ctx := context.Background()
		steps := drawSteps(t)
		attachAt := rapid.IntRange(0, len(steps)).Draw(t, "attachAt")

		h := New()
		r := &recorder{}

		preDistinct := make(map[string]bool)
		lastSubmit := make(map[string][]implementors.Record)
		for i, s := range steps {
			if i == attachAt {
				if _, err := h.Attach(ctx, r.intake); err != nil {
					t.Fatalf("attach: %v", err)
				}
			}
			if err := h.Submit(ctx, s.module, s.records); err != nil {
				t.Fatalf("submit %s: %v", s.module, err)
			}
			if i < attachAt {
				preDistinct[s.module] = true
			}
			lastSubmit[s.module] = s.records
		}
		if attachAt == len(steps) {
			if _, err := h.Attach(ctx, r.intake); err != nil {
				t.Fatalf("attach: %v", err)
			}
		}

		calls := r.deliveries()
		want := len(preDistinct) + (len(steps) - attachAt)
		if len(calls) != want {
			t.Fatalf("got %d deliveries, want %d", len(calls), want)
		}

		lastDelivered := make(map[string][]implementors.Record)
		for _, c := range calls {
			if _, ok := lastSubmit[c.module]; !ok {
				t.Fatalf("delivered module %q that was never submitted", c.module)
			}
			lastDelivered[c.module] = c.records
		}
		for name, records := range lastSubmit {
			got, ok := lastDelivered[name]
			if !ok {
				t.Fatalf("module %q lost", name)
			}
			if !implementors.RecordsEqual(records, got) {
				t.Fatalf("module %q: last delivery does not match last submit", name)
			}
		}
	})
}

// TestProperty_ReplayFollowsFirstInsertion verifies that the replay order is the
// order in which modules were first submitted.
func TestProperty_ReplayFollowsFirstInsertion(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ctx := context.Background()
		steps := drawSteps(t)

		h := New()
		var firstSeen []string
		seen := make(map[string]bool)
		for _, s := range steps {
			if err := h.Submit(ctx, s.module, s.records); err != nil {
				t.Fatalf("submit: %v", err)
			}
			if !seen[s.module] {
				seen[s.module] = true
				firstSeen = append(firstSeen, s.module)
			}
		}

		r := &recorder{}
		n, err := h.Attach(ctx, r.intake)
		if err != nil {
			t.Fatalf("attach: %v", err)
		}
		if n != len(firstSeen) {
			t.Fatalf("replayed %d, want %d", n, len(firstSeen))
		}
		got := r.modules()
		for i := range firstSeen {
			if got[i] != firstSeen[i] {
				t.Fatalf("replay order %v, want %v", got, firstSeen)
			}
		}
	})
}

// TestProperty_PhaseNeverReverts verifies that once forwarding, the handoff stays
// forwarding no matter what is called afterwards.
func TestProperty_PhaseNeverReverts(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ctx := context.Background()
		h := New()
		r := &recorder{}
		if _, err := h.Attach(ctx, r.intake); err != nil {
			t.Fatalf("attach: %v", err)
		}

		ops := rapid.SliceOfN(rapid.IntRange(0, 2), 1, 20).Draw(t, "ops")
		for i, op := range ops {
			switch op {
			case 0:
				_ = h.Submit(ctx, fmt.Sprintf("m%d", i), nil)
			case 1:
				_ = h.Submit(ctx, "", nil)
			case 2:
				if _, err := h.Attach(ctx, r.intake); err == nil {
					t.Fatalf("second attach succeeded")
				}
			}
			if h.Phase() != Forwarding {
				t.Fatalf("phase reverted to %s after op %d", h.Phase(), op)
			}
			if h.Pending() != nil {
				t.Fatalf("buffer reappeared after op %d", op)
			}
		}
	})
}
