package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Dimensions of a parcel, in the operator's unit of choice.
type Dimensions struct {
	Length float64 `json:"length"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Party is a sender or recipient.
type Party struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
}

// Payment state of a package. IsVisible only gates exposure on the public
// read path; storage always keeps every field.
type Payment struct {
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	IsPaid    bool            `json:"isPaid"`
	Method    string          `json:"method,omitempty"`
	IsVisible bool            `json:"isVisible"`
}

// Package is the aggregate root: identity, parties, payment, location and
// the checkpoint ledger change together.
type Package struct {
	TrackingNumber        string     `json:"trackingNumber"`
	Status                Status     `json:"status"`
	Description           string     `json:"description"`
	Weight                float64    `json:"weight"`
	Dimensions            Dimensions `json:"dimensions"`
	Sender                Party      `json:"sender"`
	Recipient             Party      `json:"recipient"`
	Payment               Payment    `json:"payment"`
	CurrentLocation       *Location  `json:"currentLocation,omitempty"`
	Images                []string   `json:"images"`
	PDFs                  []string   `json:"pdfs"`
	Checkpoints           Ledger     `json:"checkpoints"`
	CreatedAt             time.Time  `json:"createdAt"`
	UpdatedAt             time.Time  `json:"updatedAt"`
	AdminID               string     `json:"adminId"`
	PackageType           string     `json:"packageType"`
	DateShipped           *time.Time `json:"dateShipped,omitempty"`
	EstimatedDeliveryDate *time.Time `json:"estimatedDeliveryDate,omitempty"`
}

// NewPackage builds a fresh aggregate in the pending state with an empty ledger.
// Uniqueness of the tracking number is checked by the repository on create.
func NewPackage(in CreateInput, now time.Time) (*Package, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	now = now.UTC()
	p := &Package{
		TrackingNumber:        in.TrackingNumber,
		Status:                StatusPending,
		Description:           in.Description,
		Weight:                in.Weight,
		Dimensions:            in.Dimensions,
		Sender:                in.Sender,
		Recipient:             in.Recipient,
		Payment:               in.Payment,
		CurrentLocation:       in.CurrentLocation.clone(),
		Images:                cloneStrings(in.Images),
		PDFs:                  cloneStrings(in.PDFs),
		Checkpoints:           NewLedger(nil),
		CreatedAt:             now,
		UpdatedAt:             now,
		AdminID:               in.AdminID,
		PackageType:           in.PackageType,
		DateShipped:           cloneTime(in.DateShipped),
		EstimatedDeliveryDate: cloneTime(in.EstimatedDeliveryDate),
	}
	if p.Payment.Currency == "" {
		p.Payment.Currency = DefaultCurrency
	}
	return p, nil
}

// ApplyEdit merges the provided fields. The tracking number never changes and
// a provided status is written verbatim.
func (p *Package) ApplyEdit(patch EditPatch, now time.Time) error {
	if err := patch.Validate(p.TrackingNumber); err != nil {
		return err
	}

	if patch.Status != nil {
		p.Status = *patch.Status
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Weight != nil {
		p.Weight = *patch.Weight
	}
	if patch.Dimensions != nil {
		p.Dimensions = *patch.Dimensions
	}
	if patch.Sender != nil {
		p.Sender = *patch.Sender
	}
	if patch.Recipient != nil {
		p.Recipient = *patch.Recipient
	}
	if patch.Payment != nil {
		p.Payment = *patch.Payment
		if p.Payment.Currency == "" {
			p.Payment.Currency = DefaultCurrency
		}
	}
	if patch.CurrentLocation != nil {
		p.CurrentLocation = patch.CurrentLocation.clone()
	}
	if patch.Images != nil {
		p.Images = cloneStrings(*patch.Images)
	}
	if patch.PDFs != nil {
		p.PDFs = cloneStrings(*patch.PDFs)
	}
	if patch.PackageType != nil {
		p.PackageType = *patch.PackageType
	}
	if patch.DateShipped != nil {
		p.DateShipped = cloneTime(patch.DateShipped)
	}
	if patch.EstimatedDeliveryDate != nil {
		p.EstimatedDeliveryDate = cloneTime(patch.EstimatedDeliveryDate)
	}

	p.touch(now)
	return nil
}

// AddCheckpoint appends to the ledger, then moves the package to the
// checkpoint's status (when it has one) and location.
func (p *Package) AddCheckpoint(in CheckpointInput, now time.Time) (Checkpoint, error) {
	if err := in.Validate(); err != nil {
		return Checkpoint{}, err
	}

	ts, customDate, customTime, err := resolveTimestamp(in.Date, in.Time, now.UTC())
	if err != nil {
		return Checkpoint{}, err
	}

	cp, err := p.Checkpoints.Append(Checkpoint{
		ID:          in.ID,
		Status:      in.Status,
		Location:    in.Location,
		Coordinates: cloneCoordinates(in.Coordinates),
		Timestamp:   ts,
		Description: in.Description,
		CustomDate:  customDate,
		CustomTime:  customTime,
	})
	if err != nil {
		return Checkpoint{}, err
	}

	if cp.Status != "" {
		p.Status = cp.Status
	}
	p.CurrentLocation = &Location{
		Address:     cp.Location,
		Coordinates: cloneCoordinates(cp.Coordinates),
	}

	p.touch(now)
	return cp, nil
}

// UpdateCheckpoint patches one ledger entry. The package status and location
// are left alone.
func (p *Package) UpdateCheckpoint(id string, patch CheckpointPatch, now time.Time) (Checkpoint, error) {
	if err := patch.Validate(); err != nil {
		return Checkpoint{}, err
	}

	cp, err := p.Checkpoints.Update(id, func(c *Checkpoint) error {
		if patch.Status != nil {
			c.Status = *patch.Status
		}
		if patch.Location != nil {
			c.Location = *patch.Location
		}
		if patch.Coordinates != nil {
			c.Coordinates = cloneCoordinates(patch.Coordinates)
		}
		if patch.Description != nil {
			c.Description = *patch.Description
		}
		if patch.Date != nil || patch.Time != nil {
			ts, customDate, customTime, err := resolveTimestamp(deref(patch.Date), deref(patch.Time), c.Timestamp)
			if err != nil {
				return err
			}
			c.Timestamp = ts
			c.CustomDate = c.CustomDate || customDate
			c.CustomTime = c.CustomTime || customTime
		}
		return nil
	})
	if err != nil {
		return Checkpoint{}, err
	}

	p.touch(now)
	return cp, nil
}

// DeleteCheckpoint removes one ledger entry.
func (p *Package) DeleteCheckpoint(id string, now time.Time) error {
	if err := p.Checkpoints.Delete(id); err != nil {
		return err
	}
	p.touch(now)
	return nil
}

// Clone returns a deep copy; repositories hand out clones so callers never
// share ledger storage.
func (p *Package) Clone() *Package {
	if p == nil {
		return nil
	}
	out := *p
	out.CurrentLocation = p.CurrentLocation.clone()
	out.Images = cloneStrings(p.Images)
	out.PDFs = cloneStrings(p.PDFs)
	out.Checkpoints = NewLedger(p.Checkpoints.items)
	out.DateShipped = cloneTime(p.DateShipped)
	out.EstimatedDeliveryDate = cloneTime(p.EstimatedDeliveryDate)
	return &out
}

// touch advances UpdatedAt strictly, so every write produces a new version
// for optimistic concurrency checks.
func (p *Package) touch(now time.Time) {
	now = now.UTC()
	if !now.After(p.UpdatedAt) {
		now = p.UpdatedAt.Add(time.Nanosecond)
	}
	p.UpdatedAt = now
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}

func cloneCoordinates(c *Coordinates) *Coordinates {
	if c == nil {
		return nil
	}
	v := *c
	return &v
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
