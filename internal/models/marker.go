package models

import "fmt"

// Marker is the descriptor a map surface renders for one resolved place.
type Marker struct {
	Identifier string     `json:"identifier" yaml:"identifier"`
	Coordinate Coordinate `json:"coordinate" yaml:"coordinate"`
	Label      string     `json:"label" yaml:"label"`
	Snippet    string     `json:"snippet,omitempty" yaml:"snippet,omitempty"`
}

// MarkerFor builds the marker descriptor for a place. The snippet prefers the
// derived category, then the address.
func MarkerFor(p *ResolvedPlace) Marker {
	m := Marker{
		Identifier: p.Identifier,
		Coordinate: p.Coordinate,
		Label:      p.DisplayName,
	}
	switch {
	case p.DerivedCategoryLabel != nil && p.Rating != nil:
		m.Snippet = fmt.Sprintf("%s · %.1f★", *p.DerivedCategoryLabel, *p.Rating)
	case p.DerivedCategoryLabel != nil:
		m.Snippet = *p.DerivedCategoryLabel
	case p.FormattedAddress != nil:
		m.Snippet = *p.FormattedAddress
	}
	return m
}
