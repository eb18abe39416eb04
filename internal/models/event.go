// Package models defines the core domain entities for the venuescout application.
// These models represent event records fetched from the tabular source, places
// resolved through the places-lookup service, and the marker descriptors handed
// to a map surface.
//
// Terminology:
//   - Event: one row of the remote table. It references zero or more places.
//   - Place: a venue known to the places-lookup service by an opaque identifier.
//   - Marker: a renderable pin derived from a resolved place.
package models

import (
	"errors"
	"slices"
	"time"
)

// ActiveMarker is the literal value the source uses to flag an event as active.
// Any other value, including absence, means inactive.
const ActiveMarker = "Yes"

// EventRecord is a single event row fetched from the remote table. It is never
// mutated after decoding.
type EventRecord struct {
	ID               string    `json:"id"`
	CreatedAt        time.Time `json:"created_at"`
	ExternalEventID  int       `json:"external_event_id"`
	PlaceRefs        []string  `json:"place_refs,omitempty"`  // Linked-record tokens
	PlaceNames       []string  `json:"place_names,omitempty"` // Parallel to PlaceRefs by source, length not guaranteed
	Day              string    `json:"day,omitempty"`
	StartTime        string    `json:"start_time,omitempty"` // Source format, e.g. "18:00"
	EndTime          string    `json:"end_time,omitempty"`
	IsActive         bool      `json:"is_active"`
	Description      *string   `json:"description,omitempty"`
	PlaceIdentifiers []string  `json:"place_identifiers,omitempty"` // Keys into the places-lookup service
	Neighborhoods    []string  `json:"neighborhoods,omitempty"`
}

// IsActiveValue normalizes the source's string flag into a boolean.
func IsActiveValue(raw string) bool {
	return raw == ActiveMarker
}

// HasNeighborhood reports whether the event is tagged with any of the given names.
func (e *EventRecord) HasNeighborhood(names map[string]struct{}) bool {
	for _, n := range e.Neighborhoods {
		if _, ok := names[n]; ok {
			return true
		}
	}
	return false
}

// Equal reports whether two records carry the same data.
func (e *EventRecord) Equal(o *EventRecord) bool {
	if e.ID != o.ID || !e.CreatedAt.Equal(o.CreatedAt) || e.ExternalEventID != o.ExternalEventID {
		return false
	}
	if e.Day != o.Day || e.StartTime != o.StartTime || e.EndTime != o.EndTime || e.IsActive != o.IsActive {
		return false
	}
	if (e.Description == nil) != (o.Description == nil) {
		return false
	}
	if e.Description != nil && *e.Description != *o.Description {
		return false
	}
	return slices.Equal(e.PlaceRefs, o.PlaceRefs) &&
		slices.Equal(e.PlaceNames, o.PlaceNames) &&
		slices.Equal(e.PlaceIdentifiers, o.PlaceIdentifiers) &&
		slices.Equal(e.Neighborhoods, o.Neighborhoods)
}

// Validate checks that all event fields are valid.
func (e *EventRecord) Validate() error {
	if e.ID == "" {
		return errors.New("event ID must not be empty")
	}
	for _, id := range e.PlaceIdentifiers {
		if id == "" {
			return errors.New("place identifiers must not contain empty values")
		}
	}
	return nil
}

// EventsEqual reports whether two event sequences are identical in order and content.
func EventsEqual(a, b []EventRecord) bool {
	return slices.EqualFunc(a, b, func(x, y EventRecord) bool { return x.Equal(&y) })
}
