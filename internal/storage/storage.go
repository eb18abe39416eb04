// Package storage provides thread-safe in-memory storage for resolved places.
// It holds the identifier -> place mapping behind the marker set. Readers always
// receive copies, never references into the live map.
//
// Nothing is persisted: the mapping lives for the process only.
package storage

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rewired-gh/venuescout/internal/models"
)

// Storage provides thread-safe in-memory storage of resolved places
type Storage struct {
	places map[string]models.ResolvedPlace
	mu     sync.RWMutex
}

// New creates a new empty Storage
func New() *Storage {
	return &Storage{
		places: make(map[string]models.ResolvedPlace),
	}
}

// PutPlace stores a place, replacing any previous value for its identifier
func (s *Storage) PutPlace(place models.ResolvedPlace) error {
	if err := place.Validate(); err != nil {
		return fmt.Errorf("invalid place: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.places[place.Identifier] = place
	return nil
}

// GetPlace retrieves a copy of a place by identifier
func (s *Storage) GetPlace(id string) (models.ResolvedPlace, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	place, exists := s.places[id]
	return place, exists
}

// DeletePlace removes a place. Deleting an unknown identifier is a no-op.
func (s *Storage) DeletePlace(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.places, id)
}

// Retain removes every place whose identifier is not in keep and passes each
// survivor through update, storing the returned value.
func (s *Storage) Retain(keep map[string]struct{}, update func(models.ResolvedPlace) models.ResolvedPlace) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, place := range s.places {
		if _, ok := keep[id]; !ok {
			delete(s.places, id)
			continue
		}
		if update != nil {
			s.places[id] = update(place)
		}
	}
}

// Snapshot returns a copy of all places sorted by identifier
func (s *Storage) Snapshot() []models.ResolvedPlace {
	s.mu.RLock()
	defer s.mu.RUnlock()

	places := make([]models.ResolvedPlace, 0, len(s.places))
	for _, place := range s.places {
		places = append(places, place)
	}

	sort.Slice(places, func(i, j int) bool {
		return places[i].Identifier < places[j].Identifier
	})
	return places
}

// Len returns the number of stored places
func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.places)
}
