package session

import (
	"errors"
	"time"

	"github.com/rewired-gh/venuescout/internal/airtable"
	"github.com/rewired-gh/venuescout/internal/models"
)

// View is the immutable snapshot the session publishes after every change.
// Presentation layers read it and never mutate it.
type View struct {
	RunID         string          `json:"run_id"`
	Loading       bool            `json:"loading"`
	Error         *ViewError      `json:"error,omitempty"`
	ActiveOnly    bool            `json:"active_only"`
	Selected      []string        `json:"selected_neighborhoods"`
	Neighborhoods []string        `json:"neighborhoods"`
	TotalEvents   int             `json:"total_events"`
	VisibleEvents int             `json:"visible_events"`
	Markers       []models.Marker `json:"markers"`
	Focus         *Focus          `json:"focus,omitempty"`
	Generation    uint64          `json:"generation"`
	Resolving     bool            `json:"resolving"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// ViewError is the fetch error banner.
type ViewError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Focus is the focused place as read from the reconciliation output.
type Focus struct {
	Place    models.ResolvedPlace `json:"place"`
	PhotoURI string               `json:"photo_uri,omitempty"`
}

func viewError(err error) *ViewError {
	if err == nil {
		return nil
	}
	kind := "unknown"
	var fe *airtable.FetchError
	if errors.As(err, &fe) {
		kind = fe.Kind.String()
	}
	return &ViewError{Kind: kind, Message: err.Error()}
}
