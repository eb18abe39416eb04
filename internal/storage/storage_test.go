package storage

import (
	"testing"

	"github.com/rewired-gh/venuescout/internal/models"
)

func place(id string) models.ResolvedPlace {
	return models.ResolvedPlace{
		Identifier:  id,
		DisplayName: "Place " + id,
		Coordinate:  models.Coordinate{Latitude: 40.7, Longitude: -74.0},
	}
}

func TestStorage_PutAndGetPlace(t *testing.T) {
	s := New()

	if err := s.PutPlace(place("p1")); err != nil {
		t.Fatalf("PutPlace failed: %v", err)
	}

	got, ok := s.GetPlace("p1")
	if !ok {
		t.Fatal("Expected p1 to be stored")
	}
	if got.DisplayName != "Place p1" {
		t.Errorf("Unexpected name %q", got.DisplayName)
	}

	if _, ok := s.GetPlace("p2"); ok {
		t.Error("Expected p2 to be absent")
	}
}

func TestStorage_PutPlaceRejectsInvalid(t *testing.T) {
	s := New()

	bad := place("p1")
	bad.Coordinate.Latitude = 120
	if err := s.PutPlace(bad); err == nil {
		t.Error("Expected error for invalid coordinate")
	}
	if s.Len() != 0 {
		t.Errorf("Expected empty storage, got %d", s.Len())
	}
}

func TestStorage_PutPlaceReplaces(t *testing.T) {
	s := New()
	_ = s.PutPlace(place("p1"))

	updated := place("p1")
	updated.DisplayName = "Renamed"
	_ = s.PutPlace(updated)

	got, _ := s.GetPlace("p1")
	if got.DisplayName != "Renamed" {
		t.Errorf("Expected replacement, got %q", got.DisplayName)
	}
	if s.Len() != 1 {
		t.Errorf("Expected 1 place, got %d", s.Len())
	}
}

func TestStorage_Retain(t *testing.T) {
	s := New()
	for _, id := range []string{"p1", "p2", "p3"} {
		_ = s.PutPlace(place(id))
	}

	desc := "kept"
	s.Retain(map[string]struct{}{"p1": {}, "p3": {}}, func(p models.ResolvedPlace) models.ResolvedPlace {
		return p.WithDescription(&desc)
	})

	snap := s.Snapshot()
	if len(snap) != 2 || snap[0].Identifier != "p1" || snap[1].Identifier != "p3" {
		t.Fatalf("Unexpected snapshot %+v", snap)
	}
	for _, p := range snap {
		if p.AttachedDescription == nil || *p.AttachedDescription != "kept" {
			t.Errorf("Expected updated description on %s", p.Identifier)
		}
	}
}

func TestStorage_SnapshotIsACopy(t *testing.T) {
	s := New()
	_ = s.PutPlace(place("p1"))

	snap := s.Snapshot()
	snap[0].DisplayName = "mutated"

	got, _ := s.GetPlace("p1")
	if got.DisplayName != "Place p1" {
		t.Errorf("Expected stored value unaffected, got %q", got.DisplayName)
	}

	s.DeletePlace("p1")
	if len(snap) != 1 {
		t.Error("Expected earlier snapshot unaffected by delete")
	}
	if s.Len() != 0 {
		t.Errorf("Expected empty storage after delete, got %d", s.Len())
	}
}
