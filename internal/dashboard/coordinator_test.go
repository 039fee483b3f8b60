package dashboard

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"vendite/internal/aggregate"
	"vendite/internal/core"
	"vendite/internal/dataset"
	"vendite/internal/filter"
)

func testStore(t *testing.T) *dataset.Store {
	t.Helper()
	rows := []core.RawRow{
		{Category: "A", Region: "X", Amount: "100", Profit: "10", Quantity: "1", Discount: "0", OrderDate: "2017-01-05"},
		{Category: "B", Region: "X", Amount: "50", Profit: "5", Quantity: "2", Discount: "0", OrderDate: "2017-02-10"},
		{Category: "A", Region: "Y", Amount: "25", Profit: "2.5", Quantity: "3", Discount: "0", OrderDate: "2017-02-20"},
	}
	store, rejected := dataset.Load(rows)
	if rejected != 0 {
		t.Fatalf("fixture rejected %d rows", rejected)
	}
	return store
}

func categorySpec() aggregate.Spec {
	return aggregate.Spec{Dimension: core.DimensionCategory, Measure: core.MeasureAmount}
}

func regionSpec() aggregate.Spec {
	return aggregate.Spec{Dimension: core.DimensionRegion, Measure: core.MeasureAmount}
}

func TestRegisterViewComputesInitialRows(t *testing.T) {
	c := New(testStore(t))

	h, err := c.RegisterView(categorySpec())
	if err != nil {
		t.Fatal(err)
	}

	view, err := c.Snapshot(h)
	if err != nil {
		t.Fatal(err)
	}
	want := []aggregate.Row{{Key: "A", Value: 125}, {Key: "B", Value: 50}}
	if !reflect.DeepEqual(view.Rows, want) {
		t.Fatalf("initial rows = %v, want %v", view.Rows, want)
	}
	if view.Generation != 0 {
		t.Errorf("generation before any mutation = %d, want 0", view.Generation)
	}
}

func TestRegisterViewRejectsInvalidSpec(t *testing.T) {
	c := New(testStore(t))
	if _, err := c.RegisterView(aggregate.Spec{Dimension: "week", Measure: core.MeasureAmount}); err == nil {
		t.Fatal("invalid spec must be rejected")
	}
}

func TestSelectionChangePublishesOneGeneration(t *testing.T) {
	c := New(testStore(t))
	catHandle, _ := c.RegisterView(categorySpec())
	regHandle, _ := c.RegisterView(regionSpec())

	var catRows, regRows []aggregate.Row
	var catFS, regFS filter.Snapshot
	calls := 0
	if err := c.OnUpdate(catHandle, func(rows []aggregate.Row, fs filter.Snapshot) {
		catRows, catFS = rows, fs
		calls++
	}); err != nil {
		t.Fatal(err)
	}
	if err := c.OnUpdate(regHandle, func(rows []aggregate.Row, fs filter.Snapshot) {
		regRows, regFS = rows, fs
		calls++
	}); err != nil {
		t.Fatal(err)
	}

	if err := c.SetRegion(context.Background(), "X"); err != nil {
		t.Fatal(err)
	}

	if calls != 2 {
		t.Fatalf("callback calls = %d, want 2", calls)
	}
	wantCat := []aggregate.Row{{Key: "A", Value: 100}, {Key: "B", Value: 50}}
	if !reflect.DeepEqual(catRows, wantCat) {
		t.Errorf("category rows = %v, want %v", catRows, wantCat)
	}
	wantReg := []aggregate.Row{{Key: "X", Value: 150}}
	if !reflect.DeepEqual(regRows, wantReg) {
		t.Errorf("region rows = %v, want %v", regRows, wantReg)
	}
	// Both callbacks saw the same filter state.
	if catFS.Fingerprint() != regFS.Fingerprint() {
		t.Error("callbacks observed different filter states in one generation")
	}
	if c.Generation() != 1 {
		t.Errorf("generation = %d, want 1", c.Generation())
	}

	// Snapshots agree with what the callbacks received.
	view, err := c.Snapshot(regHandle)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(view.Rows, wantReg) || view.Generation != 1 {
		t.Errorf("Snapshot = gen %d rows %v, want gen 1 rows %v", view.Generation, view.Rows, wantReg)
	}
}

func TestRejectedSelectionPublishesNothing(t *testing.T) {
	c := New(testStore(t))
	h, _ := c.RegisterView(categorySpec())

	published := false
	if err := c.OnUpdate(h, func([]aggregate.Row, filter.Snapshot) { published = true }); err != nil {
		t.Fatal(err)
	}

	if err := c.ToggleCategory(context.Background(), "Groceries"); !errors.Is(err, core.ErrUnknownCategory) {
		t.Fatalf("err = %v, want ErrUnknownCategory", err)
	}
	if err := c.SetRegion(context.Background(), "Atlantis"); !errors.Is(err, core.ErrUnknownRegion) {
		t.Fatalf("err = %v, want ErrUnknownRegion", err)
	}

	if published {
		t.Error("rejected mutations must not publish a generation")
	}
	if c.Generation() != 0 {
		t.Errorf("generation = %d, want 0", c.Generation())
	}
	view, _ := c.Snapshot(h)
	want := []aggregate.Row{{Key: "A", Value: 125}, {Key: "B", Value: 50}}
	if !reflect.DeepEqual(view.Rows, want) {
		t.Errorf("rows after rejected mutations = %v, want unchanged %v", view.Rows, want)
	}
}

func TestReentrantMutationRejected(t *testing.T) {
	c := New(testStore(t))
	h, _ := c.RegisterView(categorySpec())

	var inner error
	if err := c.OnUpdate(h, func([]aggregate.Row, filter.Snapshot) {
		inner = c.ToggleCategory(context.Background(), "A")
	}); err != nil {
		t.Fatal(err)
	}

	if err := c.SetRegion(context.Background(), "X"); err != nil {
		t.Fatal(err)
	}
	if !errors.Is(inner, core.ErrReentrantUpdate) {
		t.Fatalf("inner mutation err = %v, want ErrReentrantUpdate", inner)
	}
	// The outer cycle still completed exactly once.
	if c.Generation() != 1 {
		t.Errorf("generation = %d, want 1", c.Generation())
	}
}

func TestSnapshotFromCallbackIsConsistent(t *testing.T) {
	c := New(testStore(t))
	h, _ := c.RegisterView(categorySpec())

	var seen View
	if err := c.OnUpdate(h, func(rows []aggregate.Row, fs filter.Snapshot) {
		v, err := c.Snapshot(h)
		if err != nil {
			t.Errorf("Snapshot inside callback: %v", err)
		}
		seen = v
	}); err != nil {
		t.Fatal(err)
	}

	if err := c.ToggleCategory(context.Background(), "B"); err != nil {
		t.Fatal(err)
	}
	want := []aggregate.Row{{Key: "A", Value: 125}}
	if !reflect.DeepEqual(seen.Rows, want) {
		t.Errorf("callback-time snapshot rows = %v, want %v", seen.Rows, want)
	}
	if seen.Generation != 1 {
		t.Errorf("callback-time generation = %d, want 1", seen.Generation)
	}
}

func TestUnknownHandle(t *testing.T) {
	c := New(testStore(t))
	if _, err := c.Snapshot(Handle(99)); !errors.Is(err, core.ErrUnknownView) {
		t.Fatalf("Snapshot err = %v, want ErrUnknownView", err)
	}
	if err := c.OnUpdate(Handle(99), func([]aggregate.Row, filter.Snapshot) {}); !errors.Is(err, core.ErrUnknownView) {
		t.Fatalf("OnUpdate err = %v, want ErrUnknownView", err)
	}
}

type fakePublisher struct {
	changes []core.SelectionChange
	err     error
}

func (p *fakePublisher) PublishSelectionChanged(_ context.Context, change core.SelectionChange) error {
	p.changes = append(p.changes, change)
	return p.err
}

func TestPublisherNotified(t *testing.T) {
	pub := &fakePublisher{}
	c := New(testStore(t), WithPublisher(pub))
	if _, err := c.RegisterView(categorySpec()); err != nil {
		t.Fatal(err)
	}

	if err := c.SetRegion(context.Background(), "Y"); err != nil {
		t.Fatal(err)
	}

	if len(pub.changes) != 1 {
		t.Fatalf("published changes = %d, want 1", len(pub.changes))
	}
	change := pub.changes[0]
	if change.Kind != "region" || change.Label != "Y" || change.Generation != 1 {
		t.Errorf("change = %+v", change)
	}
	if change.ActiveRegion != "Y" {
		t.Errorf("ActiveRegion = %q, want Y", change.ActiveRegion)
	}
}

func TestPublisherFailureDoesNotFailMutation(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	c := New(testStore(t), WithPublisher(pub))

	if err := c.SetRegion(context.Background(), "X"); err != nil {
		t.Fatalf("mutation failed on publish error: %v", err)
	}
	if c.FilterState().ActiveRegion != "X" {
		t.Error("selection must be applied even when publishing fails")
	}
}

func TestRepeatRegionSelectDeselects(t *testing.T) {
	c := New(testStore(t))
	h, _ := c.RegisterView(categorySpec())

	ctx := context.Background()
	if err := c.SetRegion(ctx, "X"); err != nil {
		t.Fatal(err)
	}
	if err := c.SetRegion(ctx, "X"); err != nil {
		t.Fatal(err)
	}

	if got := c.FilterState().ActiveRegion; got != "" {
		t.Fatalf("ActiveRegion = %q, want none", got)
	}
	view, _ := c.Snapshot(h)
	want := []aggregate.Row{{Key: "A", Value: 125}, {Key: "B", Value: 50}}
	if !reflect.DeepEqual(view.Rows, want) {
		t.Errorf("rows after select/deselect = %v, want %v", view.Rows, want)
	}
	if view.Generation != 2 {
		t.Errorf("generation = %d, want 2 (both gestures published)", view.Generation)
	}
}
