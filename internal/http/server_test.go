package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"vendite/internal/aggregate"
	"vendite/internal/core"
	"vendite/internal/dashboard"
	"vendite/internal/dataset"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	rows := []core.RawRow{
		{Category: "Furniture", Region: "West", Amount: "100", Profit: "20", Quantity: "1", Discount: "0", OrderDate: "2024-01-10"},
		{Category: "Technology", Region: "West", Amount: "50", Profit: "10", Quantity: "2", Discount: "0.1", OrderDate: "2024-02-05"},
		{Category: "Furniture", Region: "East", Amount: "25", Profit: "5", Quantity: "1", Discount: "0", OrderDate: "2024-02-20"},
	}
	store, rejected := dataset.Load(rows)
	if rejected != 0 {
		t.Fatalf("expected clean load, got %d rejected rows", rejected)
	}

	coord := dashboard.New(store)
	catHandle, err := coord.RegisterView(aggregate.Spec{Dimension: core.DimensionCategory, Measure: core.MeasureAmount})
	if err != nil {
		t.Fatalf("register category view: %v", err)
	}
	regHandle, err := coord.RegisterView(aggregate.Spec{Dimension: core.DimensionRegion, Measure: core.MeasureAmount})
	if err != nil {
		t.Fatalf("register region view: %v", err)
	}

	views := []NamedView{
		{Name: "category-totals", Handle: catHandle},
		{Name: "region-totals", Handle: regHandle},
	}
	srv := NewServer(":0", coord, views, Options{})
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)
	return ts
}

func postSelection(t *testing.T, ts *httptest.Server, path, label string) *http.Response {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"label": label})
	resp, err := http.Post(ts.URL+path, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func TestGetViewInitialState(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/views/category-totals")
	if err != nil {
		t.Fatalf("GET view: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	view := decodeBody[viewResponse](t, resp)
	if view.Generation != 0 {
		t.Errorf("expected generation 0 before any selection, got %d", view.Generation)
	}
	var rows []aggregate.Row
	if err := json.Unmarshal(view.Rows, &rows); err != nil {
		t.Fatalf("unmarshal rows: %v", err)
	}
	want := []aggregate.Row{{Key: "Furniture", Value: 125}, {Key: "Technology", Value: 50}}
	if len(rows) != len(want) {
		t.Fatalf("expected %d rows, got %d", len(want), len(rows))
	}
	for i := range want {
		if rows[i] != want[i] {
			t.Errorf("row %d: expected %+v, got %+v", i, want[i], rows[i])
		}
	}
}

func TestSelectRegionNarrowsViews(t *testing.T) {
	ts := newTestServer(t)

	resp := postSelection(t, ts, "/api/selection/region", "West")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	sel := decodeBody[selectionResponse](t, resp)
	if sel.Generation != 1 {
		t.Errorf("expected generation 1, got %d", sel.Generation)
	}
	if sel.Filter.ActiveRegion != "West" {
		t.Errorf("expected active region West, got %q", sel.Filter.ActiveRegion)
	}

	viewResp, err := http.Get(ts.URL + "/api/views/category-totals")
	if err != nil {
		t.Fatalf("GET view: %v", err)
	}
	view := decodeBody[viewResponse](t, viewResp)
	if view.Generation != 1 {
		t.Errorf("expected view at generation 1, got %d", view.Generation)
	}
	var rows []aggregate.Row
	if err := json.Unmarshal(view.Rows, &rows); err != nil {
		t.Fatalf("unmarshal rows: %v", err)
	}
	want := []aggregate.Row{{Key: "Furniture", Value: 100}, {Key: "Technology", Value: 50}}
	for i := range want {
		if rows[i] != want[i] {
			t.Errorf("row %d: expected %+v, got %+v", i, want[i], rows[i])
		}
	}
}

func TestUnknownLabelRejected(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name  string
		path  string
		label string
	}{
		{name: "unknown category", path: "/api/selection/category", label: "Nope"},
		{name: "unknown region", path: "/api/selection/region", label: "Atlantis"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postSelection(t, ts, tt.path, tt.label)
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusUnprocessableEntity {
				t.Errorf("expected 422, got %d", resp.StatusCode)
			}
		})
	}

	// A rejected selection publishes nothing.
	resp, err := http.Get(ts.URL + "/api/filter")
	if err != nil {
		t.Fatalf("GET filter: %v", err)
	}
	sel := decodeBody[selectionResponse](t, resp)
	if sel.Generation != 0 {
		t.Errorf("expected generation 0 after rejected selections, got %d", sel.Generation)
	}
}

func TestToggleCategoryRoundTrip(t *testing.T) {
	ts := newTestServer(t)

	resp := postSelection(t, ts, "/api/selection/category", "Technology")
	sel := decodeBody[selectionResponse](t, resp)
	if len(sel.Filter.ActiveCategories) != 1 || sel.Filter.ActiveCategories[0] != "Furniture" {
		t.Fatalf("expected only Furniture active, got %v", sel.Filter.ActiveCategories)
	}

	resp = postSelection(t, ts, "/api/selection/category", "Technology")
	sel = decodeBody[selectionResponse](t, resp)
	if len(sel.Filter.ActiveCategories) != 2 {
		t.Fatalf("expected both categories active again, got %v", sel.Filter.ActiveCategories)
	}
	if sel.Generation != 2 {
		t.Errorf("expected generation 2, got %d", sel.Generation)
	}
}

func TestListViews(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/views")
	if err != nil {
		t.Fatalf("GET views: %v", err)
	}
	entries := decodeBody[[]viewListEntry](t, resp)
	if len(entries) != 2 {
		t.Fatalf("expected 2 views, got %d", len(entries))
	}
	if entries[0].Name != "category-totals" || entries[0].Dimension != "category" {
		t.Errorf("unexpected first entry: %+v", entries[0])
	}
}

func TestUnknownViewIs404(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/views/nope")
	if err != nil {
		t.Fatalf("GET view: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/selection/category")
	if err != nil {
		t.Fatalf("GET selection: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", resp.StatusCode)
	}
	if allow := resp.Header.Get("Allow"); allow != http.MethodPost {
		t.Errorf("expected Allow: POST, got %q", allow)
	}
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}
