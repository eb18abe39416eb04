// Package reconcile merges event records with resolved place details.
//
// Each run is tagged with a Generation. Starting a run computes the distinct
// place identifiers referenced by the given events (each resolved exactly once),
// attaches to every identifier the description of the first event that
// references it, and resolves the identifiers concurrently. Results carry their
// generation; a result from any generation other than the current one is
// discarded at apply time, so a slow lookup from a superseded run can never add
// a stale marker.
package reconcile

import (
	"context"
	"errors"
	"sync"

	"github.com/rewired-gh/venuescout/internal/logger"
	"github.com/rewired-gh/venuescout/internal/models"
	"github.com/rewired-gh/venuescout/internal/places"
	"github.com/rewired-gh/venuescout/internal/storage"
)

var errInvalidPlace = errors.New("lookup returned an invalid place")

// Generation distinguishes successive reconciliation runs.
type Generation uint64

// Resolver is the subset of places.Resolver the engine drives.
type Resolver interface {
	Resolve(ctx context.Context, ids []string, emit func(places.Result))
}

// Outcome reports what Apply did with a result.
type Outcome int

const (
	// Applied means the place was stored (or replaced).
	Applied Outcome = iota
	// Dropped means the lookup failed and the identifier is absent from the marker set.
	Dropped
	// Stale means the result belonged to a superseded generation and was ignored.
	Stale
)

func (o Outcome) String() string {
	switch o {
	case Applied:
		return "applied"
	case Dropped:
		return "dropped"
	default:
		return "stale"
	}
}

// Engine owns the identifier -> ResolvedPlace mapping.
type Engine struct {
	resolver Resolver
	store    *storage.Storage

	mu           sync.RWMutex
	generation   Generation
	descriptions map[string]*string // identifier -> first referencing event's description
}

// New creates an Engine driving the given resolver.
func New(resolver Resolver) *Engine {
	return &Engine{
		resolver:     resolver,
		store:        storage.New(),
		descriptions: make(map[string]*string),
	}
}

// UniquePlaceIDs returns the distinct place identifiers referenced by events,
// in first-seen order.
func UniquePlaceIDs(events []models.EventRecord) []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, e := range events {
		for _, id := range e.PlaceIdentifiers {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids
}

// FirstDescriptions maps every referenced identifier to the description of the
// first event, in input order, that references it. That description may be nil.
func FirstDescriptions(events []models.EventRecord) map[string]*string {
	out := make(map[string]*string)
	for _, e := range events {
		for _, id := range e.PlaceIdentifiers {
			if _, done := out[id]; done {
				continue
			}
			out[id] = e.Description
		}
	}
	return out
}

// Begin starts a new generation for events and returns it with the identifiers
// to resolve. Places already stored for identifiers still referenced are kept
// (with the new generation's description) until their fresh results replace
// them; all others are removed immediately.
func (e *Engine) Begin(events []models.EventRecord) (Generation, []string) {
	ids := UniquePlaceIDs(events)
	descs := FirstDescriptions(events)

	keep := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		keep[id] = struct{}{}
	}

	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.descriptions = descs
	e.store.Retain(keep, func(p models.ResolvedPlace) models.ResolvedPlace {
		return p.WithDescription(descs[p.Identifier])
	})
	e.mu.Unlock()

	logger.Debug("reconcile: generation %d started with %d events, %d unique places", gen, len(events), len(ids))
	return gen, ids
}

// Start begins a new generation and resolves its identifiers in the
// background. deliver is invoked once per identifier, from resolver
// goroutines, tagged with the generation; the caller applies results on its
// own goroutine. done, if non-nil, is called after the last delivery.
func (e *Engine) Start(ctx context.Context, events []models.EventRecord, deliver func(Generation, places.Result), done func(Generation)) Generation {
	gen, ids := e.Begin(events)
	go func() {
		e.resolver.Resolve(ctx, ids, func(res places.Result) {
			deliver(gen, res)
		})
		if done != nil {
			done(gen)
		}
	}()
	return gen
}

// Apply stores a result if it belongs to the current generation. A failed
// lookup removes the identifier from the mapping.
func (e *Engine) Apply(gen Generation, res places.Result) Outcome {
	e.mu.Lock()
	defer e.mu.Unlock()

	current := e.generation
	desc, wanted := e.descriptions[res.PlaceID]

	if gen != current || !wanted {
		logger.Debug("reconcile: discarding stale result for %s (generation %d, current %d)", res.PlaceID, gen, current)
		return Stale
	}

	if res.Err != nil || res.Place == nil {
		e.store.DeletePlace(res.PlaceID)
		logFailure(res)
		return Dropped
	}

	if err := e.store.PutPlace(res.Place.WithDescription(desc)); err != nil {
		e.store.DeletePlace(res.PlaceID)
		logger.Warn("reconcile: rejecting place %s: %v", res.PlaceID, err)
		return Dropped
	}
	return Applied
}

// Reconcile runs a full generation synchronously and returns the resolved
// places of that generation alongside the per-identifier failures.
func (e *Engine) Reconcile(ctx context.Context, events []models.EventRecord) ([]models.ResolvedPlace, []*places.ResolveError) {
	gen, ids := e.Begin(events)

	var (
		mu       sync.Mutex
		failures []*places.ResolveError
	)
	e.resolver.Resolve(ctx, ids, func(res places.Result) {
		if e.Apply(gen, res) == Dropped {
			err := res.Err
			if err == nil {
				err = &places.ResolveError{PlaceID: res.PlaceID, Kind: places.KindNetwork, Err: errInvalidPlace}
			}
			mu.Lock()
			failures = append(failures, err)
			mu.Unlock()
		}
	})

	return e.Places(), failures
}

// Generation returns the current generation.
func (e *Engine) Generation() Generation {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.generation
}

// Places returns a snapshot of the resolved places sorted by identifier.
func (e *Engine) Places() []models.ResolvedPlace {
	return e.store.Snapshot()
}

// Place returns a copy of one resolved place.
func (e *Engine) Place(id string) (models.ResolvedPlace, bool) {
	return e.store.GetPlace(id)
}

// Markers returns marker descriptors for every resolved place.
func (e *Engine) Markers() []models.Marker {
	snapshot := e.store.Snapshot()
	markers := make([]models.Marker, 0, len(snapshot))
	for i := range snapshot {
		markers = append(markers, models.MarkerFor(&snapshot[i]))
	}
	return markers
}

func logFailure(res places.Result) {
	if res.Err == nil {
		logger.Warn("reconcile: place %s resolved to nothing", res.PlaceID)
		return
	}
	if res.Err.Kind == places.KindNotFound {
		logger.Info("reconcile: place %s not found, omitting marker", res.PlaceID)
		return
	}
	logger.Warn("reconcile: failed to resolve place %s (%s): %v", res.PlaceID, res.Err.Kind, res.Err.Err)
}
