// Package filter owns the selection shared by every dashboard view: the set
// of active categories and the optional single active region. All mutation
// funnels through ToggleCategory and SetRegion; views only ever see
// snapshots.
package filter

import (
	"sort"
	"strings"

	"vendite/internal/core"
)

// State is the authoritative selection. It is not safe for concurrent use;
// the view coordinator owns the single instance and serializes access.
type State struct {
	active map[string]bool
	region string

	// Known universes, fixed at construction. Labels outside them are
	// rejected with the state unchanged.
	categories map[string]bool
	regions    map[string]bool
}

// Snapshot is an immutable copy of the selection handed to consumers.
type Snapshot struct {
	ActiveCategories []string // sorted
	ActiveRegion     string   // "" means no region restriction

	active map[string]bool
}

// New creates a State seeded with every known category active and no region
// selected. An empty active set means "nothing visible", so the seeding is
// what makes the initial dashboard show everything.
func New(categories, regions []string) *State {
	s := &State{
		active:     make(map[string]bool, len(categories)),
		categories: make(map[string]bool, len(categories)),
		regions:    make(map[string]bool, len(regions)),
	}
	for _, c := range categories {
		s.active[c] = true
		s.categories[c] = true
	}
	for _, r := range regions {
		s.regions[r] = true
	}
	return s
}

// ToggleCategory flips membership of label in the active set. Unknown labels
// are rejected and the state is left unchanged.
func (s *State) ToggleCategory(label string) error {
	if !s.categories[label] {
		return core.ErrUnknownCategory
	}
	if s.active[label] {
		delete(s.active, label)
	} else {
		s.active[label] = true
	}
	return nil
}

// SetRegion replaces the active region. An empty label clears the
// restriction; selecting the already-active region clears it too, matching
// the click-to-deselect behavior of the region view.
func (s *State) SetRegion(label string) error {
	if label == "" || label == s.region {
		s.region = ""
		return nil
	}
	if !s.regions[label] {
		return core.ErrUnknownRegion
	}
	s.region = label
	return nil
}

// Snapshot returns an immutable copy of the current selection. The live
// internal maps are never handed out.
func (s *State) Snapshot() Snapshot {
	snap := Snapshot{
		ActiveRegion: s.region,
		active:       make(map[string]bool, len(s.active)),
	}
	snap.ActiveCategories = make([]string, 0, len(s.active))
	for c := range s.active {
		snap.active[c] = true
		snap.ActiveCategories = append(snap.ActiveCategories, c)
	}
	sort.Strings(snap.ActiveCategories)
	return snap
}

// Matches reports whether a record with the given category and region is
// included by this selection: category must be active AND either no region
// is selected or the regions match.
func (s Snapshot) Matches(category, region string) bool {
	if !s.active[category] {
		return false
	}
	return s.ActiveRegion == "" || region == s.ActiveRegion
}

// Fingerprint returns a stable key for this selection, usable as a cache
// key: identical selections always produce identical fingerprints.
func (s Snapshot) Fingerprint() string {
	return strings.Join(s.ActiveCategories, ",") + "|" + s.ActiveRegion
}
