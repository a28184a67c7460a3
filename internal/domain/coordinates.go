package domain

import "fmt"

// Geographic coordinates in decimal degrees.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (c Coordinates) validate(field string) error {
	if c.Lat < -90 || c.Lat > 90 {
		return invalid(field+".lat", fmt.Sprintf("%v is outside [-90, 90]", c.Lat))
	}
	if c.Lng < -180 || c.Lng > 180 {
		return invalid(field+".lng", fmt.Sprintf("%v is outside [-180, 180]", c.Lng))
	}
	return nil
}

// Location is a human-readable address with optional coordinates.
type Location struct {
	Address     string       `json:"address"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
}

// UnknownLocation is returned when neither the package nor its ledger knows where it is.
var UnknownLocation = Location{Address: "Unknown"}

// IsZero reports whether the location carries neither an address nor coordinates.
func (l *Location) IsZero() bool {
	return l == nil || (l.Address == "" && l.Coordinates == nil)
}

func (l *Location) clone() *Location {
	if l == nil {
		return nil
	}
	out := *l
	if l.Coordinates != nil {
		c := *l.Coordinates
		out.Coordinates = &c
	}
	return &out
}
