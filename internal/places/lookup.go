// Package places resolves external place identifiers into place details.
//
// Lookup is the capability the rest of the application depends on; Google is
// the production implementation. Resolver fans lookups out concurrently under a
// concurrency cap and a rate limit, reporting every identifier independently.
package places

import (
	"context"
	"errors"
	"fmt"

	"github.com/rewired-gh/venuescout/internal/models"
)

// Sentinel errors returned by Lookup implementations.
var (
	ErrNotFound    = errors.New("place not found")
	ErrRateLimited = errors.New("places lookup rate limited")
)

// Lookup is the external places-lookup capability.
type Lookup interface {
	// LookupPlace returns name, coordinate, rating, category tags, address and
	// photo reference for a place. AttachedDescription and DerivedCategoryLabel
	// are left for the caller.
	LookupPlace(ctx context.Context, placeID string) (*models.ResolvedPlace, error)

	// PhotoURI returns a short-lived URL for the photo behind photoRef.
	PhotoURI(ctx context.Context, photoRef string, maxHeightPx int) (string, error)
}

// Kind classifies a resolution failure.
type Kind int

const (
	KindNetwork Kind = iota
	KindNotFound
	KindRateLimited
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindRateLimited:
		return "rate_limited"
	default:
		return "network"
	}
}

// ResolveError is a per-identifier failure. It never aborts other identifiers.
type ResolveError struct {
	PlaceID string
	Kind    Kind
	Err     error
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("resolve %s: %s: %v", e.PlaceID, e.Kind, e.Err)
}

func (e *ResolveError) Unwrap() error { return e.Err }

// classify wraps a lookup error into a ResolveError.
func classify(placeID string, err error) *ResolveError {
	kind := KindNetwork
	switch {
	case errors.Is(err, ErrNotFound):
		kind = KindNotFound
	case errors.Is(err, ErrRateLimited):
		kind = KindRateLimited
	}
	return &ResolveError{PlaceID: placeID, Kind: kind, Err: err}
}
