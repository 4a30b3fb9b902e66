// Package consumer holds the assembled implementor index: the documentation
// side that attaches to a handoff and receives each module's records.
package consumer

import (
	"cmp"
	"context"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/zjrosen/implindex/internal/cachemanager"
	"github.com/zjrosen/implindex/internal/domain/implementors"
	"github.com/zjrosen/implindex/internal/log"
	"github.com/zjrosen/implindex/internal/pubsub"
)

// ModuleEvent is published each time a module's records arrive.
type ModuleEvent struct {
	Module  string
	Records int
	Seq     int // 1-based arrival number across all modules
}

// Hit is one record found by a cross-module query.
type Hit struct {
	Module string
	Record implementors.Record
}

// Option configures an Index.
type Option func(*Index)

// WithCacheTTL sets how long ImplementorsOf results stay cached.
// Zero disables caching.
func WithCacheTTL(ttl time.Duration) Option {
	return func(x *Index) {
		x.cacheTTL = ttl
	}
}

// Index is the consumer-side implementor index. Each module's entry is
// replaced wholesale by its latest delivery.
type Index struct {
	mu       sync.RWMutex
	order    []string
	modules  map[string]implementors.ModuleIndex
	seq      int
	gen      uint64
	broker   *pubsub.Broker[ModuleEvent]
	cacheTTL time.Duration
	lookups  *cachemanager.ReadThroughCache[string, []Hit, string]
}

// New creates an empty Index.
func New(opts ...Option) *Index {
	x := &Index{
		modules:  make(map[string]implementors.ModuleIndex),
		broker:   pubsub.NewBroker[ModuleEvent](),
		cacheTTL: cachemanager.DefaultExpiration,
	}
	for _, opt := range opts {
		opt(x)
	}
	cache := cachemanager.NewInMemoryCacheManager[string, []Hit]("implementors-of", x.cacheTTL, cachemanager.DefaultCleanupInterval)
	x.lookups = cachemanager.NewReadThroughCache[string, []Hit, string](cache, x.scanImplementors, x.cacheTTL <= 0)
	return x
}

// Intake stores one module's records. Pass the method value to
// handoff.Attach.
func (x *Index) Intake(module string, records []implementors.Record) {
	idx, err := implementors.NewModuleIndex(module, records)
	if err != nil {
		log.ErrorErr(log.CatConsumer, "intake refused", err, "module", module)
		return
	}

	x.mu.Lock()
	_, seen := x.modules[module]
	if !seen {
		x.order = append(x.order, module)
	}
	x.modules[module] = idx
	x.seq++
	x.gen++
	event := ModuleEvent{Module: module, Records: idx.Len(), Seq: x.seq}
	x.mu.Unlock()

	_ = x.lookups.Invalidate(context.Background())

	eventType := pubsub.CreatedEvent
	if seen {
		eventType = pubsub.UpdatedEvent
	}
	x.broker.Publish(eventType, event)
	log.Debug(log.CatConsumer, "module received", "module", module, "records", idx.Len(), "event", eventType)
}

// Modules returns every module in first-arrival order.
func (x *Index) Modules() []implementors.ModuleIndex {
	x.mu.RLock()
	defer x.mu.RUnlock()

	out := make([]implementors.ModuleIndex, 0, len(x.order))
	for _, name := range x.order {
		out = append(out, x.modules[name])
	}
	return out
}

// Module returns the latest records received for name.
func (x *Index) Module(name string) (implementors.ModuleIndex, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	idx, ok := x.modules[name]
	return idx, ok
}

// Snapshot returns every module sorted by name.
func (x *Index) Snapshot() []implementors.ModuleIndex {
	out := x.Modules()
	slices.SortFunc(out, func(a, b implementors.ModuleIndex) int {
		return cmp.Compare(a.Name(), b.Name())
	})
	return out
}

// Count returns the number of distinct modules received.
func (x *Index) Count() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.modules)
}

// ImplementorsOf returns every record, across modules, whose interface label is
// iface. Results are cached until the next intake.
func (x *Index) ImplementorsOf(ctx context.Context, iface string) ([]Hit, error) {
	x.mu.RLock()
	key := strconv.FormatUint(x.gen, 10) + ":" + iface
	x.mu.RUnlock()
	return x.lookups.Get(ctx, key, iface, x.cacheTTL)
}

// InterfacesOf returns every record, across modules, whose implementor label is
// typeLabel.
func (x *Index) InterfacesOf(typeLabel string) []Hit {
	return x.scan(func(r implementors.Record) bool {
		return r.Implementor().Label == typeLabel
	})
}

// Subscribe returns a channel of module arrivals, closed when ctx is done or
// the index is closed.
func (x *Index) Subscribe(ctx context.Context) <-chan pubsub.Event[ModuleEvent] {
	return x.broker.Subscribe(ctx)
}

// Broker exposes the event broker for pubsub listeners.
func (x *Index) Broker() *pubsub.Broker[ModuleEvent] {
	return x.broker
}

// Close closes every subscription.
func (x *Index) Close() {
	x.broker.Close()
}

func (x *Index) scanImplementors(_ context.Context, iface string) ([]Hit, error) {
	return x.scan(func(r implementors.Record) bool {
		return r.Interface().Label == iface
	}), nil
}

func (x *Index) scan(match func(implementors.Record) bool) []Hit {
	x.mu.RLock()
	defer x.mu.RUnlock()

	var hits []Hit
	for _, name := range x.order {
		for _, r := range x.modules[name].Records() {
			if match(r) {
				hits = append(hits, Hit{Module: name, Record: r})
			}
		}
	}
	return hits
}
