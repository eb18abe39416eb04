package places

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rewired-gh/venuescout/internal/models"
)

type fakeLookup struct {
	mu       sync.Mutex
	calls    map[string]int
	inFlight atomic.Int32
	peak     atomic.Int32
	delay    time.Duration
	errs     map[string]error
}

func newFakeLookup() *fakeLookup {
	return &fakeLookup{calls: make(map[string]int), errs: make(map[string]error)}
}

func (f *fakeLookup) LookupPlace(ctx context.Context, placeID string) (*models.ResolvedPlace, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}

	f.mu.Lock()
	f.calls[placeID]++
	err := f.errs[placeID]
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if err != nil {
		return nil, err
	}
	return &models.ResolvedPlace{
		Identifier:   placeID,
		DisplayName:  "Place " + placeID,
		Coordinate:   models.Coordinate{Latitude: 40.7, Longitude: -74.0},
		CategoryTags: []string{"establishment", "wine_bar"},
	}, nil
}

func (f *fakeLookup) PhotoURI(ctx context.Context, photoRef string, maxHeightPx int) (string, error) {
	return "https://photos.example/" + photoRef, nil
}

func (f *fakeLookup) callCount(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[id]
}

func TestResolveAll_IndependentFailures(t *testing.T) {
	lookup := newFakeLookup()
	lookup.errs["gone"] = ErrNotFound
	lookup.errs["busy"] = ErrRateLimited

	r := NewResolver(lookup, 4, 0, 1)
	results := r.ResolveAll(context.Background(), []string{"p1", "gone", "p2", "busy"})

	if len(results) != 4 {
		t.Fatalf("Expected 4 results, got %d", len(results))
	}

	byID := make(map[string]Result)
	for _, res := range results {
		byID[res.PlaceID] = res
	}

	for _, id := range []string{"p1", "p2"} {
		res := byID[id]
		if res.Err != nil || res.Place == nil {
			t.Fatalf("Expected %s to resolve, got %+v", id, res)
		}
		if res.Place.DerivedCategoryLabel == nil || *res.Place.DerivedCategoryLabel != "Wine Bar" {
			t.Errorf("Expected derived label Wine Bar for %s, got %v", id, res.Place.DerivedCategoryLabel)
		}
	}
	if res := byID["gone"]; res.Err == nil || res.Err.Kind != KindNotFound {
		t.Errorf("Expected not found for gone, got %+v", res)
	}
	if res := byID["busy"]; res.Err == nil || res.Err.Kind != KindRateLimited {
		t.Errorf("Expected rate limited for busy, got %+v", res)
	}
}

func TestResolve_DeduplicatesIdentifiers(t *testing.T) {
	lookup := newFakeLookup()
	r := NewResolver(lookup, 2, 0, 1)

	results := r.ResolveAll(context.Background(), []string{"p1", "p1", "p2", "p1"})
	if len(results) != 2 {
		t.Errorf("Expected 2 results, got %d", len(results))
	}
	if n := lookup.callCount("p1"); n != 1 {
		t.Errorf("Expected p1 looked up once, got %d", n)
	}
}

func TestResolve_RespectsConcurrencyLimit(t *testing.T) {
	lookup := newFakeLookup()
	lookup.delay = 20 * time.Millisecond
	r := NewResolver(lookup, 2, 0, 1)

	ids := []string{"a", "b", "c", "d", "e", "f"}
	results := r.ResolveAll(context.Background(), ids)
	if len(results) != len(ids) {
		t.Fatalf("Expected %d results, got %d", len(ids), len(results))
	}
	if peak := lookup.peak.Load(); peak > 2 {
		t.Errorf("Expected at most 2 lookups in flight, saw %d", peak)
	}
}

func TestResolve_CancelledContextReportsEveryIdentifier(t *testing.T) {
	lookup := newFakeLookup()
	// One token, refilled once an hour: the second identifier has to wait.
	r := NewResolver(lookup, 4, 1.0/3600, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	results := r.ResolveAll(ctx, []string{"p1", "p2"})
	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}
	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
			if res.Err.Kind != KindNetwork {
				t.Errorf("Expected network kind for limiter failure, got %v", res.Err.Kind)
			}
		}
	}
	if failed != 1 {
		t.Errorf("Expected exactly 1 limiter failure, got %d", failed)
	}
}

func TestResolverPhotoURI(t *testing.T) {
	r := NewResolver(newFakeLookup(), 1, 0, 1)
	uri, err := r.PhotoURI(context.Background(), "ref", 400)
	if err != nil {
		t.Fatalf("PhotoURI failed: %v", err)
	}
	if uri != "https://photos.example/ref" {
		t.Errorf("Unexpected URI %q", uri)
	}
}
