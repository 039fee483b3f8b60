// Package dashboard coordinates the linked views: it owns the single filter
// state, recomputes every registered aggregate after each successful
// selection change, and publishes the results as one atomic generation so
// the charts can never disagree about which selection is active.
package dashboard

import (
	"context"
	"log/slog"
	"sync"

	"vendite/internal/aggregate"
	"vendite/internal/core"
	"vendite/internal/dataset"
	"vendite/internal/filter"
)

// Handle identifies a registered view subscription.
type Handle int

// UpdateFunc receives each newly published generation for one handle.
type UpdateFunc func(rows []aggregate.Row, fs filter.Snapshot)

// Publisher forwards applied selection changes to out-of-process adapters.
// Implementations must treat delivery as best-effort; a failed publish never
// rolls back a selection change.
type Publisher interface {
	PublishSelectionChanged(ctx context.Context, change core.SelectionChange) error
}

// View is a consistent snapshot of one registered aggregate: its rows, the
// filter state they were computed under, and the generation that published
// them.
type View struct {
	Generation uint64
	Spec       aggregate.Spec
	Rows       []aggregate.Row
	Filter     filter.Snapshot
}

type registration struct {
	spec aggregate.Spec
	subs []UpdateFunc
}

// Coordinator owns the dataset store and the filter state exclusively. One
// selection gesture triggers one complete recompute cycle; the cycle runs to
// completion before the next mutation is accepted.
type Coordinator struct {
	mu        sync.Mutex
	store     *dataset.Store
	state     *filter.State
	views     map[Handle]*registration
	order     []Handle
	snapshots map[Handle][]aggregate.Row
	nextID    Handle
	gen       uint64
	applying  bool

	publisher Publisher
	logger    *slog.Logger
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithPublisher attaches a best-effort external publisher, notified after
// every published generation.
func WithPublisher(p Publisher) Option {
	return func(c *Coordinator) { c.publisher = p }
}

// WithLogger overrides the default slog logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) { c.logger = l }
}

// New creates a Coordinator over a loaded store. The filter state is seeded
// from the store's universes: every category active, no region. The store
// must be fully loaded before the coordinator accepts any selection change,
// which the signature enforces.
func New(store *dataset.Store, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:     store,
		state:     filter.New(store.Categories(), store.Regions()),
		views:     make(map[Handle]*registration),
		snapshots: make(map[Handle][]aggregate.Row),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RegisterView adds an aggregate subscription and computes its rows against
// the current selection so the first Snapshot call is already consistent.
func (c *Coordinator) RegisterView(spec aggregate.Spec) (Handle, error) {
	if err := spec.Validate(); err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	h := c.nextID
	c.views[h] = &registration{spec: spec}
	c.order = append(c.order, h)
	c.snapshots[h] = spec.Compute(c.store, c.state.Snapshot())

	c.logger.Info("view registered",
		"handle", int(h),
		"dimension", string(spec.Dimension),
		"measure", string(spec.Measure))
	return h, nil
}

// OnUpdate subscribes a callback to the handle's future generations.
// Callbacks run synchronously during the publish phase and must not mutate
// the selection; a mutation from inside a callback is rejected with
// ErrReentrantUpdate.
func (c *Coordinator) OnUpdate(h Handle, fn UpdateFunc) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	reg, ok := c.views[h]
	if !ok {
		return core.ErrUnknownView
	}
	reg.subs = append(reg.subs, fn)
	return nil
}

// ToggleCategory flips a category's membership in the active set and, on
// success, recomputes and publishes every registered aggregate.
func (c *Coordinator) ToggleCategory(ctx context.Context, label string) error {
	return c.apply(ctx, "category", label, func(s *filter.State) error {
		return s.ToggleCategory(label)
	})
}

// SetRegion replaces (or, for the active region and the empty label, clears)
// the region restriction and, on success, recomputes and publishes every
// registered aggregate.
func (c *Coordinator) SetRegion(ctx context.Context, label string) error {
	return c.apply(ctx, "region", label, func(s *filter.State) error {
		return s.SetRegion(label)
	})
}

// apply is the single mutation path. Either the mutation is rejected and
// nothing is recomputed, or every registered aggregate is recomputed against
// the new state and swapped in as one generation before anyone observes it.
func (c *Coordinator) apply(ctx context.Context, kind, label string, mutate func(*filter.State) error) error {
	c.mu.Lock()
	if c.applying {
		c.mu.Unlock()
		return core.ErrReentrantUpdate
	}
	if err := mutate(c.state); err != nil {
		c.mu.Unlock()
		return err
	}
	c.applying = true

	snap := c.state.Snapshot()
	next := make(map[Handle][]aggregate.Row, len(c.views))
	for h, reg := range c.views {
		next[h] = reg.spec.Compute(c.store, snap)
	}
	c.snapshots = next
	c.gen++
	gen := c.gen

	// Collect the fan-out under the lock, run it outside so callbacks can
	// read snapshots (but not mutate: applying stays set until the cycle
	// completes).
	type notice struct {
		fns  []UpdateFunc
		rows []aggregate.Row
	}
	notices := make([]notice, 0, len(c.order))
	for _, h := range c.order {
		reg := c.views[h]
		if len(reg.subs) == 0 {
			continue
		}
		notices = append(notices, notice{fns: reg.subs, rows: copyRows(next[h])})
	}
	c.mu.Unlock()

	for _, n := range notices {
		for _, fn := range n.fns {
			fn(copyRows(n.rows), snap)
		}
	}

	c.logger.InfoContext(ctx, "selection applied",
		"kind", kind,
		"label", label,
		"generation", gen,
		"active_categories", len(snap.ActiveCategories),
		"active_region", snap.ActiveRegion)

	if c.publisher != nil {
		change := core.SelectionChange{
			Generation:       gen,
			Kind:             kind,
			Label:            label,
			ActiveCategories: snap.ActiveCategories,
			ActiveRegion:     snap.ActiveRegion,
		}
		if err := c.publisher.PublishSelectionChanged(ctx, change); err != nil {
			// The selection is already applied locally; delivery to remote
			// adapters is best-effort.
			c.logger.ErrorContext(ctx, "failed to publish selection change",
				"generation", gen, "error", err)
		}
	}

	c.mu.Lock()
	c.applying = false
	c.mu.Unlock()
	return nil
}

// Snapshot returns the handle's rows from the latest published generation,
// together with the filter state they were computed under.
func (c *Coordinator) Snapshot(h Handle) (View, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	reg, ok := c.views[h]
	if !ok {
		return View{}, core.ErrUnknownView
	}
	return View{
		Generation: c.gen,
		Spec:       reg.spec,
		Rows:       copyRows(c.snapshots[h]),
		Filter:     c.state.Snapshot(),
	}, nil
}

// Generation returns the number of published generations so far.
func (c *Coordinator) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// FilterState returns an immutable copy of the current selection.
func (c *Coordinator) FilterState() filter.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Snapshot()
}

// Handles returns the registered handles in registration order.
func (c *Coordinator) Handles() []Handle {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Handle(nil), c.order...)
}

func copyRows(rows []aggregate.Row) []aggregate.Row {
	if rows == nil {
		return nil
	}
	return append([]aggregate.Row(nil), rows...)
}
