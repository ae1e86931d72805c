// Package shelter serves the catalogue of emergency shelters used for
// evacuation suggestions.
package shelter

import (
	"cmp"
	_ "embed"
	"errors"
	"fmt"
	"slices"

	"github.com/couchcryptid/incident-engine/internal/domain"
	"gopkg.in/yaml.v3"
)

//go:embed shelters.yaml
var defaultData []byte

// DefaultCount is the number of shelters returned when no count is given.
const DefaultCount = 5

// Catalogue is an immutable set of shelters. It is safe for concurrent use.
type Catalogue struct {
	shelters []domain.Shelter
}

// Default loads the embedded shelter catalogue.
func Default() (*Catalogue, error) {
	return Parse(defaultData)
}

// MustDefault is Default for callers that cannot recover from a broken
// embedded file.
func MustDefault() *Catalogue {
	c, err := Default()
	if err != nil {
		panic(err)
	}
	return c
}

// Parse decodes a YAML list of shelters. Entries with invalid coordinates or
// capacities are rejected.
func Parse(data []byte) (*Catalogue, error) {
	var shelters []domain.Shelter
	if err := yaml.Unmarshal(data, &shelters); err != nil {
		return nil, fmt.Errorf("decode shelters: %w", err)
	}
	if len(shelters) == 0 {
		return nil, errors.New("shelter catalogue is empty")
	}

	seen := make(map[int]bool, len(shelters))
	for _, s := range shelters {
		if seen[s.ID] {
			return nil, fmt.Errorf("shelter %d: duplicate id", s.ID)
		}
		seen[s.ID] = true
		if !domain.ValidPoint(domain.Point{Lat: s.Lat, Lon: s.Lon}) {
			return nil, fmt.Errorf("shelter %d: invalid coordinates %v,%v", s.ID, s.Lat, s.Lon)
		}
		if s.Capacity < 0 || s.Current < 0 {
			return nil, fmt.Errorf("shelter %d: negative occupancy", s.ID)
		}
	}
	return &Catalogue{shelters: shelters}, nil
}

// Len returns the number of shelters.
func (c *Catalogue) Len() int {
	return len(c.shelters)
}

// All returns every shelter with availability filled in.
func (c *Catalogue) All() []domain.Shelter {
	out := make([]domain.Shelter, 0, len(c.shelters))
	for _, s := range c.shelters {
		out = append(out, withAvailability(s))
	}
	return out
}

// Nearest returns up to count shelters ordered by distance from p, with
// DistanceKm and Availability set. A count below 1 uses DefaultCount.
func (c *Catalogue) Nearest(p domain.Point, count int) []domain.Shelter {
	if !domain.ValidPoint(p) {
		return nil
	}
	if count < 1 {
		count = DefaultCount
	}

	out := c.All()
	for i := range out {
		out[i].DistanceKm = domain.Haversine(p, domain.Point{Lat: out[i].Lat, Lon: out[i].Lon})
	}
	slices.SortStableFunc(out, func(a, b domain.Shelter) int {
		return cmp.Compare(a.DistanceKm, b.DistanceKm)
	})
	if len(out) > count {
		out = out[:count]
	}
	return out
}

// InRegion returns the shelters inside box, edges included.
func (c *Catalogue) InRegion(box domain.BoundingBox) []domain.Shelter {
	var out []domain.Shelter
	for _, s := range c.shelters {
		if box.Contains(domain.Point{Lat: s.Lat, Lon: s.Lon}) {
			out = append(out, withAvailability(s))
		}
	}
	return out
}

func withAvailability(s domain.Shelter) domain.Shelter {
	s.Availability = s.Capacity - s.Current
	if s.Resources != nil {
		res := make(map[string]int, len(s.Resources))
		for k, v := range s.Resources {
			res[k] = v
		}
		s.Resources = res
	}
	return s
}
