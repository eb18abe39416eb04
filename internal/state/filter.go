// Package state holds the user-facing view state: which events are visible under
// the current filters, and which place, if any, is focused.
//
// Neither type stores place payloads. Filters narrow event records; the selection
// stores an identifier and is resolved against the reconciliation output on read.
package state

import (
	"sort"

	"github.com/rewired-gh/venuescout/internal/models"
)

// FilterSelection is the set of user-chosen filters. The zero value filters nothing.
type FilterSelection struct {
	ActiveOnly            bool                `json:"active_only"`
	SelectedNeighborhoods map[string]struct{} `json:"-"`
}

// Neighborhoods returns the selected neighborhoods sorted ascending.
func (f FilterSelection) Neighborhoods() []string {
	out := make([]string, 0, len(f.SelectedNeighborhoods))
	for n := range f.SelectedNeighborhoods {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Clone returns a deep copy so callers never share the neighborhood set.
func (f FilterSelection) Clone() FilterSelection {
	c := FilterSelection{ActiveOnly: f.ActiveOnly}
	if len(f.SelectedNeighborhoods) > 0 {
		c.SelectedNeighborhoods = make(map[string]struct{}, len(f.SelectedNeighborhoods))
		for n := range f.SelectedNeighborhoods {
			c.SelectedNeighborhoods[n] = struct{}{}
		}
	}
	return c
}

// ToggleActiveOnly flips the active-only filter.
func (f *FilterSelection) ToggleActiveOnly() {
	f.ActiveOnly = !f.ActiveOnly
}

// ToggleNeighborhood adds name to the selection, or removes it if present.
func (f *FilterSelection) ToggleNeighborhood(name string) {
	if _, ok := f.SelectedNeighborhoods[name]; ok {
		delete(f.SelectedNeighborhoods, name)
		return
	}
	if f.SelectedNeighborhoods == nil {
		f.SelectedNeighborhoods = make(map[string]struct{})
	}
	f.SelectedNeighborhoods[name] = struct{}{}
}

// ClearNeighborhoods empties the neighborhood selection, which disables that filter.
func (f *FilterSelection) ClearNeighborhoods() {
	f.SelectedNeighborhoods = nil
}

// VisibleEvents returns the events passing every filter, in input order.
// An empty neighborhood selection applies no neighborhood filter at all.
func VisibleEvents(all []models.EventRecord, sel FilterSelection) []models.EventRecord {
	visible := make([]models.EventRecord, 0, len(all))
	for i := range all {
		e := &all[i]
		if sel.ActiveOnly && !e.IsActive {
			continue
		}
		if len(sel.SelectedNeighborhoods) > 0 && !e.HasNeighborhood(sel.SelectedNeighborhoods) {
			continue
		}
		visible = append(visible, *e)
	}
	return visible
}

// UniqueNeighborhoods returns every neighborhood tag across all events, sorted
// ascending without duplicates. It takes the unfiltered set so the choices never
// shrink as filters are applied.
func UniqueNeighborhoods(all []models.EventRecord) []string {
	seen := make(map[string]struct{})
	for _, e := range all {
		for _, n := range e.Neighborhoods {
			seen[n] = struct{}{}
		}
	}

	out := make([]string, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
