package places

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/rewired-gh/venuescout/internal/models"
)

// Result is the outcome of resolving one identifier. Exactly one of Place and
// Err is set.
type Result struct {
	PlaceID string
	Place   *models.ResolvedPlace
	Err     *ResolveError
}

// Resolver resolves sets of identifiers concurrently.
type Resolver struct {
	lookup         Lookup
	limiter        *rate.Limiter
	maxConcurrency int
}

// NewResolver creates a resolver allowing at most maxConcurrency lookups in
// flight, paced at requestsPerSecond with the given burst. A non-positive rate
// disables pacing.
func NewResolver(lookup Lookup, maxConcurrency int, requestsPerSecond float64, burst int) *Resolver {
	if maxConcurrency <= 0 {
		maxConcurrency = 8
	}
	if burst <= 0 {
		burst = 1
	}
	limit := rate.Inf
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
	}
	return &Resolver{
		lookup:         lookup,
		limiter:        rate.NewLimiter(limit, burst),
		maxConcurrency: maxConcurrency,
	}
}

// Resolve looks up every distinct identifier in ids independently and calls
// emit once per identifier as each completes. emit may be called from several
// goroutines at once and completion order is unspecified. Resolve returns after
// every identifier has been reported.
func (r *Resolver) Resolve(ctx context.Context, ids []string, emit func(Result)) {
	var g errgroup.Group
	g.SetLimit(r.maxConcurrency)

	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		placeID := id
		g.Go(func() error {
			emit(r.resolveOne(ctx, placeID))
			return nil
		})
	}

	_ = g.Wait()
}

// ResolveAll resolves ids and returns every result once all have completed.
func (r *Resolver) ResolveAll(ctx context.Context, ids []string) []Result {
	var (
		mu      sync.Mutex
		results = make([]Result, 0, len(ids))
	)
	r.Resolve(ctx, ids, func(res Result) {
		mu.Lock()
		defer mu.Unlock()
		results = append(results, res)
	})
	return results
}

// PhotoURI resolves a photo reference through the same rate limit as lookups.
func (r *Resolver) PhotoURI(ctx context.Context, photoRef string, maxHeightPx int) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("waiting for rate limiter: %w", err)
	}
	return r.lookup.PhotoURI(ctx, photoRef, maxHeightPx)
}

func (r *Resolver) resolveOne(ctx context.Context, placeID string) (res Result) {
	res.PlaceID = placeID

	defer func() {
		if p := recover(); p != nil {
			res = Result{PlaceID: placeID, Err: &ResolveError{PlaceID: placeID, Kind: KindNetwork, Err: fmt.Errorf("lookup panicked: %v", p)}}
		}
	}()

	if err := r.limiter.Wait(ctx); err != nil {
		res.Err = &ResolveError{PlaceID: placeID, Kind: KindNetwork, Err: fmt.Errorf("waiting for rate limiter: %w", err)}
		return res
	}

	place, err := r.lookup.LookupPlace(ctx, placeID)
	if err != nil {
		res.Err = classify(placeID, err)
		return res
	}
	if place == nil {
		res.Err = &ResolveError{PlaceID: placeID, Kind: KindNotFound, Err: ErrNotFound}
		return res
	}

	resolved := *place
	resolved.Identifier = placeID
	resolved.DerivedCategoryLabel = models.DeriveCategoryLabel(resolved.CategoryTags)
	resolved.AttachedDescription = nil
	res.Place = &resolved
	return res
}
