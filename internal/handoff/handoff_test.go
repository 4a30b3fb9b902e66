package handoff

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/implindex/internal/domain/implementors"
)

// delivery is one call into a recording intake.
type delivery struct {
	module  string
	records []implementors.Record
}

// recorder is a thread-safe intake that remembers every call.
type recorder struct {
	mu    sync.Mutex
	calls []delivery
}

func (r *recorder) intake(module string, records []implementors.Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, delivery{module: module, records: records})
}

func (r *recorder) deliveries() []delivery {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]delivery(nil), r.calls...)
}

func (r *recorder) modules() []string {
	var names []string
	for _, d := range r.deliveries() {
		names = append(names, d.module)
	}
	return names
}

func rec(iface, impl string) implementors.Record {
	return implementors.MustRecord(implementors.ItemRef{Label: iface}, implementors.ItemRef{Label: impl}, implementors.Relation{})
}

func TestNew_StartsBuffering(t *testing.T) {
	h := New()

	require.Equal(t, Buffering, h.Phase())
	require.Empty(t, h.Pending())
	require.Equal(t, implementors.PolicyOverwrite, h.Policy())
	require.Equal(t, Stats{}, h.Stats())
}

// submit A, submit B, attach: intake sees A then B synchronously inside Attach.
func TestAttach_ReplaysInInsertionOrder(t *testing.T) {
	ctx := context.Background()
	h := New()

	require.NoError(t, h.Submit(ctx, "crateA", nil))
	require.NoError(t, h.Submit(ctx, "crateB", []implementors.Record{rec("Debug", "Foo")}))

	r := &recorder{}
	n, err := h.Attach(ctx, r.intake)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	calls := r.deliveries()
	require.Len(t, calls, 2, "replay must finish before Attach returns")
	require.Equal(t, "crateA", calls[0].module)
	require.Empty(t, calls[0].records)
	require.Equal(t, "crateB", calls[1].module)
	require.True(t, implementors.RecordsEqual([]implementors.Record{rec("Debug", "Foo")}, calls[1].records))

	require.Equal(t, Forwarding, h.Phase())
	require.Nil(t, h.Pending(), "buffer is discarded after replay")
}

func TestAttach_OrderIsInsertionNotAlphabetical(t *testing.T) {
	ctx := context.Background()
	h := New()

	for _, name := range []string{"zeta", "alpha", "mu"} {
		require.NoError(t, h.Submit(ctx, name, nil))
	}

	r := &recorder{}
	_, err := h.Attach(ctx, r.intake)
	require.NoError(t, err)
	require.Equal(t, []string{"zeta", "alpha", "mu"}, r.modules())
}

// attach first, then submit C: exactly one live delivery, no replay.
func TestSubmit_AfterAttachForwardsImmediately(t *testing.T) {
	ctx := context.Background()
	h := New()

	r := &recorder{}
	n, err := h.Attach(ctx, r.intake)
	require.NoError(t, err)
	require.Zero(t, n)
	require.Empty(t, r.deliveries())

	records := []implementors.Record{rec("Clone", "Bar")}
	require.NoError(t, h.Submit(ctx, "crateC", records))

	calls := r.deliveries()
	require.Len(t, calls, 1)
	require.Equal(t, "crateC", calls[0].module)
	require.True(t, implementors.RecordsEqual(records, calls[0].records))

	stats := h.Stats()
	require.Equal(t, 1, stats.Forwarded)
	require.Zero(t, stats.Replayed)
}

// submit x twice with identical records, then attach: one delivery.
func TestSubmit_IdenticalDuplicateIsIdempotent(t *testing.T) {
	for _, policy := range []implementors.DuplicatePolicy{
		implementors.PolicyOverwrite,
		implementors.PolicyReject,
		implementors.PolicyMergeAppend,
	} {
		t.Run(policy.String(), func(t *testing.T) {
			ctx := context.Background()
			h := New(WithPolicy(policy))
			r1 := []implementors.Record{rec("Debug", "Foo"), rec("Clone", "Foo")}

			require.NoError(t, h.Submit(ctx, "x", r1))
			require.NoError(t, h.Submit(ctx, "x", r1))

			r := &recorder{}
			_, err := h.Attach(ctx, r.intake)
			require.NoError(t, err)

			calls := r.deliveries()
			require.Len(t, calls, 1)
			require.Equal(t, "x", calls[0].module)
			require.True(t, implementors.RecordsEqual(r1, calls[0].records))
		})
	}
}

func TestSubmit_OverwriteKeepsPositionAndLastWrite(t *testing.T) {
	ctx := context.Background()
	h := New()

	require.NoError(t, h.Submit(ctx, "a", []implementors.Record{rec("Debug", "Old")}))
	require.NoError(t, h.Submit(ctx, "b", nil))
	require.NoError(t, h.Submit(ctx, "a", []implementors.Record{rec("Debug", "New")}))

	r := &recorder{}
	_, err := h.Attach(ctx, r.intake)
	require.NoError(t, err)

	calls := r.deliveries()
	require.Equal(t, []string{"a", "b"}, r.modules())
	require.Equal(t, "New", calls[0].records[0].Implementor().Label)
}

func TestSubmit_RejectPolicyRefusesDifferingDuplicate(t *testing.T) {
	ctx := context.Background()
	h := New(WithPolicy(implementors.PolicyReject))

	require.NoError(t, h.Submit(ctx, "a", []implementors.Record{rec("Debug", "First")}))
	err := h.Submit(ctx, "a", []implementors.Record{rec("Debug", "Second")})
	require.ErrorIs(t, err, implementors.ErrDuplicateModule)

	pending := h.Pending()
	require.Len(t, pending, 1)
	require.Equal(t, "First", pending[0].Records()[0].Implementor().Label)
	require.Equal(t, 1, h.Stats().Rejected)
}

func TestSubmit_MergeAppendPolicy(t *testing.T) {
	ctx := context.Background()
	h := New(WithPolicy(implementors.PolicyMergeAppend))

	require.NoError(t, h.Submit(ctx, "a", []implementors.Record{rec("Debug", "Foo")}))
	require.NoError(t, h.Submit(ctx, "a", []implementors.Record{rec("Debug", "Foo"), rec("Debug", "Bar")}))

	pending := h.Pending()
	require.Len(t, pending, 1)
	require.Equal(t, 2, pending[0].Len())
}

func TestSubmit_InvalidModuleNameIsNoOp(t *testing.T) {
	ctx := context.Background()
	h := New()
	require.NoError(t, h.Submit(ctx, "kept", nil))

	err := h.Submit(ctx, "", []implementors.Record{rec("Debug", "Foo")})
	require.ErrorIs(t, err, implementors.ErrInvalidModuleName)

	pending := h.Pending()
	require.Len(t, pending, 1)
	require.Equal(t, "kept", pending[0].Name())
	require.Equal(t, 1, h.Stats().Rejected)
	require.Equal(t, 1, h.Stats().Submitted)
}

func TestSubmit_InvalidModuleNameAfterAttachNotDelivered(t *testing.T) {
	ctx := context.Background()
	h := New()
	r := &recorder{}
	_, err := h.Attach(ctx, r.intake)
	require.NoError(t, err)

	err = h.Submit(ctx, "", nil)
	require.ErrorIs(t, err, implementors.ErrInvalidModuleName)
	require.Empty(t, r.deliveries())
}

func TestAttach_DoubleAttachmentRejected(t *testing.T) {
	ctx := context.Background()
	h := New()
	require.NoError(t, h.Submit(ctx, "a", nil))

	first := &recorder{}
	_, err := h.Attach(ctx, first.intake)
	require.NoError(t, err)

	second := &recorder{}
	n, err := h.Attach(ctx, second.intake)
	require.ErrorIs(t, err, implementors.ErrDoubleAttachment)
	require.Zero(t, n)
	require.Empty(t, second.deliveries(), "second consumer never receives a replay")

	require.NoError(t, h.Submit(ctx, "b", nil))
	require.Equal(t, []string{"a", "b"}, first.modules(), "first consumer keeps receiving")
	require.Empty(t, second.deliveries())
}

func TestAttach_NilIntake(t *testing.T) {
	h := New()
	_, err := h.Attach(context.Background(), nil)
	require.ErrorIs(t, err, implementors.ErrNilIntake)
	require.Equal(t, Buffering, h.Phase(), "failed attach does not change phase")
}

func TestNeverAttached_RetainsData(t *testing.T) {
	ctx := context.Background()
	h := New()
	for i := range 5 {
		require.NoError(t, h.Submit(ctx, fmt.Sprintf("m%d", i), nil))
	}

	require.Equal(t, Buffering, h.Phase())
	require.Len(t, h.Pending(), 5)
	require.Equal(t, 5, h.Stats().Buffered)
}

func TestPending_IsSnapshot(t *testing.T) {
	ctx := context.Background()
	h := New()
	require.NoError(t, h.Submit(ctx, "a", nil))

	snap := h.Pending()
	require.NoError(t, h.Submit(ctx, "b", nil))

	require.Len(t, snap, 1)
	require.Len(t, h.Pending(), 2)
}

func TestSubmit_ConcurrentProducersAndAttach(t *testing.T) {
	ctx := context.Background()
	h := New()
	r := &recorder{}

	const producers = 64
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := range producers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			require.NoError(t, h.Submit(ctx, fmt.Sprintf("mod-%02d", i), []implementors.Record{rec("Debug", fmt.Sprintf("T%d", i))}))
		}(i)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-start
		_, err := h.Attach(ctx, r.intake)
		require.NoError(t, err)
	}()

	close(start)
	wg.Wait()

	seen := make(map[string]int)
	for _, d := range r.deliveries() {
		seen[d.module]++
	}
	require.Len(t, seen, producers, "no registration lost")
	for name, count := range seen {
		require.Equal(t, 1, count, "module %s delivered more than once", name)
	}

	stats := h.Stats()
	require.Equal(t, producers, stats.Replayed+stats.Forwarded)
}

// A live submit racing with the replay of the same module must be delivered
// after the replayed (older) version, so the consumer ends on the newest data.
func TestSubmit_LiveDeliveryNeverOvertakesReplay(t *testing.T) {
	ctx := context.Background()
	h := New()
	require.NoError(t, h.Submit(ctx, "x", []implementors.Record{rec("Debug", "Old")}))

	replaying := make(chan struct{})
	release := make(chan struct{})
	r := &recorder{}
	intake := func(module string, records []implementors.Record) {
		if len(r.deliveries()) == 0 {
			close(replaying)
			<-release
		}
		r.intake(module, records)
	}

	attached := make(chan struct{})
	go func() {
		defer close(attached)
		_, err := h.Attach(ctx, intake)
		require.NoError(t, err)
	}()

	<-replaying
	submitted := make(chan struct{})
	go func() {
		defer close(submitted)
		require.NoError(t, h.Submit(ctx, "x", []implementors.Record{rec("Debug", "New")}))
	}()
	close(release)
	<-attached
	<-submitted

	calls := r.deliveries()
	require.Len(t, calls, 2)
	require.Equal(t, "Old", calls[0].records[0].Implementor().Label)
	require.Equal(t, "New", calls[1].records[0].Implementor().Label)
}

func TestPhase_String(t *testing.T) {
	require.Equal(t, "buffering", Buffering.String())
	require.Equal(t, "forwarding", Forwarding.String())
	require.Equal(t, "unknown", Phase(7).String())
}
