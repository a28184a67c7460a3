package domain

import (
	"fmt"
	"net/mail"
	"strings"
	"time"
)

const (
	DefaultCurrency = "USD"

	dateLayout  = "2006-01-02"
	clockLayout = "15:04"
)

// CreateInput carries every field accepted when a package is registered.
// An empty TrackingNumber must be filled in by the caller before NewPackage.
type CreateInput struct {
	TrackingNumber        string
	Description           string
	Weight                float64
	Dimensions            Dimensions
	Sender                Party
	Recipient             Party
	Payment               Payment
	CurrentLocation       *Location
	Images                []string
	PDFs                  []string
	AdminID               string
	PackageType           string
	DateShipped           *time.Time
	EstimatedDeliveryDate *time.Time
}

func (in CreateInput) Validate() error {
	if err := ValidateTrackingNumber(in.TrackingNumber); err != nil {
		return err
	}
	if strings.TrimSpace(in.Description) == "" {
		return invalid("description", "is required")
	}
	if err := validateMeasures(in.Weight, in.Dimensions); err != nil {
		return err
	}
	if err := in.Sender.validate("sender"); err != nil {
		return err
	}
	if err := in.Recipient.validate("recipient"); err != nil {
		return err
	}
	if strings.TrimSpace(in.Recipient.Address) == "" {
		return invalid("recipient.address", "is required")
	}
	if err := in.Payment.validate(); err != nil {
		return err
	}
	if in.CurrentLocation != nil {
		if err := in.CurrentLocation.validate("currentLocation"); err != nil {
			return err
		}
	}
	return nil
}

// EditPatch lists the fields an operator may change; nil means "leave as is".
// TrackingNumber is accepted only to reject attempts to change it.
type EditPatch struct {
	TrackingNumber        *string
	Status                *Status
	Description           *string
	Weight                *float64
	Dimensions            *Dimensions
	Sender                *Party
	Recipient             *Party
	Payment               *Payment
	CurrentLocation       *Location
	Images                *[]string
	PDFs                  *[]string
	PackageType           *string
	DateShipped           *time.Time
	EstimatedDeliveryDate *time.Time
}

func (p EditPatch) Validate(current string) error {
	if p.TrackingNumber != nil && *p.TrackingNumber != current {
		return invalid("trackingNumber", "is immutable")
	}
	if p.Status != nil && strings.TrimSpace(string(*p.Status)) == "" {
		return invalid("status", "must not be empty")
	}
	if p.Description != nil && strings.TrimSpace(*p.Description) == "" {
		return invalid("description", "must not be empty")
	}
	if p.Weight != nil && *p.Weight < 0 {
		return invalid("weight", "must not be negative")
	}
	if p.Dimensions != nil {
		if err := validateMeasures(0, *p.Dimensions); err != nil {
			return err
		}
	}
	if p.Sender != nil {
		if err := p.Sender.validate("sender"); err != nil {
			return err
		}
	}
	if p.Recipient != nil {
		if err := p.Recipient.validate("recipient"); err != nil {
			return err
		}
	}
	if p.Payment != nil {
		if err := p.Payment.validate(); err != nil {
			return err
		}
	}
	if p.CurrentLocation != nil {
		if err := p.CurrentLocation.validate("currentLocation"); err != nil {
			return err
		}
	}
	return nil
}

// CheckpointInput describes a new checkpoint. Date (YYYY-MM-DD) and Time
// (HH:MM) override the matching half of the submission timestamp.
type CheckpointInput struct {
	ID          string
	Status      Status
	Location    string
	Coordinates *Coordinates
	Description string
	Date        string
	Time        string
}

func (in CheckpointInput) Validate() error {
	if strings.TrimSpace(in.Location) == "" {
		return invalid("location", "is required")
	}
	if blankStatus(in.Status) {
		return invalid("status", "must not be blank")
	}
	if in.Coordinates != nil {
		if err := in.Coordinates.validate("coordinates"); err != nil {
			return err
		}
	}
	return nil
}

// CheckpointPatch edits an existing checkpoint; nil means "leave as is".
type CheckpointPatch struct {
	Status      *Status
	Location    *string
	Coordinates *Coordinates
	Description *string
	Date        *string
	Time        *string
}

func (p CheckpointPatch) Validate() error {
	if p.Location != nil && strings.TrimSpace(*p.Location) == "" {
		return invalid("location", "must not be empty")
	}
	if p.Status != nil && blankStatus(*p.Status) {
		return invalid("status", "must not be blank")
	}
	if p.Coordinates != nil {
		if err := p.Coordinates.validate("coordinates"); err != nil {
			return err
		}
	}
	return nil
}

// blankStatus reports a status that is set but holds only whitespace. An empty
// status is allowed on checkpoints and means "no status change".
func blankStatus(s Status) bool {
	return s != "" && strings.TrimSpace(string(s)) == ""
}

func (p Party) validate(field string) error {
	if strings.TrimSpace(p.FullName) == "" {
		return invalid(field+".fullName", "is required")
	}
	if p.Email != "" {
		if _, err := mail.ParseAddress(p.Email); err != nil {
			return invalid(field+".email", "is not a valid address")
		}
	}
	return nil
}

func (p Payment) validate() error {
	if p.Amount.IsNegative() {
		return invalid("payment.amount", "must not be negative")
	}
	if p.Currency != "" {
		if len(p.Currency) != 3 || strings.ToUpper(p.Currency) != p.Currency {
			return invalid("payment.currency", "must be a 3-letter upper-case code")
		}
	}
	return nil
}

func (l *Location) validate(field string) error {
	if l.IsZero() {
		return invalid(field, "needs an address or coordinates")
	}
	if l.Coordinates != nil {
		return l.Coordinates.validate(field + ".coordinates")
	}
	return nil
}

func validateMeasures(weight float64, d Dimensions) error {
	if weight < 0 {
		return invalid("weight", "must not be negative")
	}
	if d.Length < 0 || d.Width < 0 || d.Height < 0 {
		return invalid("dimensions", "must not be negative")
	}
	return nil
}

// resolveTimestamp combines optional date and clock overrides with base.
func resolveTimestamp(date, clock string, base time.Time) (ts time.Time, customDate, customTime bool, err error) {
	base = base.UTC()
	y, m, d := base.Date()
	hh, mm, ss := base.Clock()
	ns := base.Nanosecond()

	if date = strings.TrimSpace(date); date != "" {
		parsed, err := time.Parse(dateLayout, date)
		if err != nil {
			return time.Time{}, false, false, invalid("date", fmt.Sprintf("%q is not YYYY-MM-DD", date))
		}
		y, m, d = parsed.Date()
		customDate = true
	}
	if clock = strings.TrimSpace(clock); clock != "" {
		parsed, err := time.Parse(clockLayout, clock)
		if err != nil {
			return time.Time{}, false, false, invalid("time", fmt.Sprintf("%q is not HH:MM", clock))
		}
		hh, mm = parsed.Hour(), parsed.Minute()
		ss, ns = 0, 0
		customTime = true
	}

	return time.Date(y, m, d, hh, mm, ss, ns, time.UTC), customDate, customTime, nil
}
