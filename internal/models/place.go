package models

import (
	"errors"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// commonCategoryTags are lookup-service tags too generic to label a place with.
var commonCategoryTags = map[string]struct{}{
	"point_of_interest": {},
	"establishment":     {},
	"food":              {},
	"restaurant":        {},
	"store":             {},
}

// Coordinate is a WGS84 latitude/longitude pair.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Validate checks that the coordinate lies on the globe.
func (c Coordinate) Validate() error {
	if c.Latitude < -90 || c.Latitude > 90 {
		return errors.New("latitude must be between -90 and 90")
	}
	if c.Longitude < -180 || c.Longitude > 180 {
		return errors.New("longitude must be between -180 and 180")
	}
	return nil
}

// ResolvedPlace is a place as returned by the places-lookup service, with the
// description of its first referencing event attached. Updates replace the whole
// value; it is never patched in place.
type ResolvedPlace struct {
	Identifier           string     `json:"identifier"`
	DisplayName          string     `json:"display_name"`
	Coordinate           Coordinate `json:"coordinate"`
	Rating               *float64   `json:"rating,omitempty"` // 0.0–5.0
	CategoryTags         []string   `json:"category_tags,omitempty"`
	DerivedCategoryLabel *string    `json:"derived_category_label,omitempty"`
	FormattedAddress     *string    `json:"formatted_address,omitempty"`
	PhotoReference       *string    `json:"photo_reference,omitempty"`
	AttachedDescription  *string    `json:"attached_description,omitempty"`
}

// Validate checks that all place fields are valid.
func (p *ResolvedPlace) Validate() error {
	if p.Identifier == "" {
		return errors.New("place identifier must not be empty")
	}
	if err := p.Coordinate.Validate(); err != nil {
		return err
	}
	if p.Rating != nil && (*p.Rating < 0.0 || *p.Rating > 5.0) {
		return errors.New("rating must be between 0.0 and 5.0")
	}
	return nil
}

// WithDescription returns a copy of the place carrying the given description.
func (p ResolvedPlace) WithDescription(desc *string) ResolvedPlace {
	p.AttachedDescription = desc
	return p
}

// DeriveCategoryLabel picks the first tag that is not a generic one and turns it
// into words, e.g. "coffee_shop" becomes "Coffee Shop". Returns nil when every
// tag is generic.
func DeriveCategoryLabel(tags []string) *string {
	for _, tag := range tags {
		if _, common := commonCategoryTags[tag]; common || tag == "" {
			continue
		}
		label := cases.Title(language.English).String(strings.ReplaceAll(tag, "_", " "))
		return &label
	}
	return nil
}
