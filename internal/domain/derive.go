package domain

import "time"

// Derived fields are recomputed on every read and never persisted.

func StatusText(p *Package) string { return p.Status.Label() }

func Progress(p *Package) int { return p.Status.ProgressWeight() }

// CurrentLocation returns the stored location, else the latest checkpoint's
// location, else UnknownLocation.
func CurrentLocation(p *Package) Location {
	if !p.CurrentLocation.IsZero() {
		return *p.CurrentLocation.clone()
	}
	if cp, ok := p.Checkpoints.Latest(); ok {
		return Location{Address: cp.Location, Coordinates: cloneCoordinates(cp.Coordinates)}
	}
	return UnknownLocation
}

// Derived bundles the read-time fields of a package.
type Derived struct {
	StatusText      string   `json:"statusText"`
	Progress        int      `json:"progress"`
	CurrentLocation Location `json:"currentLocation"`
}

func Derive(p *Package) Derived {
	return Derived{
		StatusText:      StatusText(p),
		Progress:        Progress(p),
		CurrentLocation: CurrentLocation(p),
	}
}

// TrackingView is the anonymous lookup projection. Payment is nil unless the
// operator made it visible; parties are reduced to what a recipient needs.
type TrackingView struct {
	TrackingNumber        string       `json:"trackingNumber"`
	Status                Status       `json:"status"`
	StatusText            string       `json:"statusText"`
	Progress              int          `json:"progress"`
	CurrentLocation       Location     `json:"currentLocation"`
	Description           string       `json:"description"`
	PackageType           string       `json:"packageType"`
	Weight                float64      `json:"weight"`
	Dimensions            Dimensions   `json:"dimensions"`
	Sender                Party        `json:"sender"`
	Recipient             Party        `json:"recipient"`
	Payment               *Payment     `json:"payment,omitempty"`
	Images                []string     `json:"images"`
	Checkpoints           []Checkpoint `json:"checkpoints"`
	DateShipped           *time.Time   `json:"dateShipped,omitempty"`
	EstimatedDeliveryDate *time.Time   `json:"estimatedDeliveryDate,omitempty"`
	UpdatedAt             time.Time    `json:"updatedAt"`
}

// PublicView projects p for the tracking surface.
func PublicView(p *Package) TrackingView {
	d := Derive(p)
	v := TrackingView{
		TrackingNumber:        p.TrackingNumber,
		Status:                p.Status,
		StatusText:            d.StatusText,
		Progress:              d.Progress,
		CurrentLocation:       d.CurrentLocation,
		Description:           p.Description,
		PackageType:           p.PackageType,
		Weight:                p.Weight,
		Dimensions:            p.Dimensions,
		Sender:                p.Sender,
		Recipient:             p.Recipient,
		Images:                cloneStrings(p.Images),
		Checkpoints:           p.Checkpoints.Items(),
		DateShipped:           cloneTime(p.DateShipped),
		EstimatedDeliveryDate: cloneTime(p.EstimatedDeliveryDate),
		UpdatedAt:             p.UpdatedAt,
	}
	if v.Images == nil {
		v.Images = []string{}
	}
	if p.Payment.IsVisible {
		pay := p.Payment
		v.Payment = &pay
	}
	return v
}
