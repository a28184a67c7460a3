package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)

func validCreateInput() CreateInput {
	return CreateInput{
		TrackingNumber: "DU1234567890",
		Description:    "Box of books",
		Weight:         2.5,
		Dimensions:     Dimensions{Length: 30, Width: 20, Height: 10},
		Sender:         Party{FullName: "Ada Sender", Email: "ada@example.com"},
		Recipient:      Party{FullName: "Bo Recipient", Address: "1 Main St, Springfield"},
		Payment:        Payment{Amount: decimal.RequireFromString("19.99")},
		PackageType:    "parcel",
		AdminID:        "admin-1",
	}
}

func TestNewPackageDefaults(t *testing.T) {
	p, err := NewPackage(validCreateInput(), testNow)
	require.NoError(t, err)

	assert.Equal(t, StatusPending, p.Status)
	assert.Equal(t, 0, p.Checkpoints.Len())
	assert.Equal(t, 10, Progress(p))
	assert.Equal(t, testNow, p.CreatedAt)
	assert.Equal(t, testNow, p.UpdatedAt)
	assert.Equal(t, DefaultCurrency, p.Payment.Currency)
	assert.Equal(t, UnknownLocation, CurrentLocation(p))
}

func TestNewPackageValidation(t *testing.T) {
	cases := map[string]func(*CreateInput){
		"trackingNumber":      func(in *CreateInput) { in.TrackingNumber = "" },
		"trackingNumberChars": func(in *CreateInput) { in.TrackingNumber = "DU-12" },
		"description":         func(in *CreateInput) { in.Description = " " },
		"sender.fullName":     func(in *CreateInput) { in.Sender.FullName = "" },
		"sender.email":        func(in *CreateInput) { in.Sender.Email = "not-an-email" },
		"recipient.address":   func(in *CreateInput) { in.Recipient.Address = "" },
		"weight":              func(in *CreateInput) { in.Weight = -1 },
		"payment.currency":    func(in *CreateInput) { in.Payment.Currency = "usd" },
		"currentLocation":     func(in *CreateInput) { in.CurrentLocation = &Location{} },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := validCreateInput()
			mutate(&in)

			_, err := NewPackage(in, testNow)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrValidation))

			var ve *ValidationError
			require.True(t, errors.As(err, &ve))
			assert.NotEmpty(t, ve.Field)
		})
	}
}

func TestAddCheckpointMovesPackage(t *testing.T) {
	p, err := NewPackage(validCreateInput(), testNow)
	require.NoError(t, err)

	later := testNow.Add(time.Hour)
	cp, err := p.AddCheckpoint(CheckpointInput{
		Status:      StatusInTransit,
		Location:    "Denver, CO",
		Coordinates: &Coordinates{Lat: 39.7392, Lng: -104.9903},
	}, later)
	require.NoError(t, err)

	assert.NotEmpty(t, cp.ID)
	assert.Equal(t, later, cp.Timestamp)
	assert.False(t, cp.CustomDate)
	assert.False(t, cp.CustomTime)

	assert.Equal(t, StatusInTransit, p.Status)
	require.NotNil(t, p.CurrentLocation)
	assert.Equal(t, "Denver, CO", p.CurrentLocation.Address)
	assert.Equal(t, &Coordinates{Lat: 39.7392, Lng: -104.9903}, p.CurrentLocation.Coordinates)
	assert.Equal(t, 50, Progress(p))
	assert.Equal(t, later, p.UpdatedAt)
}

func TestAddCheckpointWithoutStatusKeepsStatus(t *testing.T) {
	p, err := NewPackage(validCreateInput(), testNow)
	require.NoError(t, err)

	_, err = p.AddCheckpoint(CheckpointInput{Location: "Sorting hub"}, testNow)
	require.NoError(t, err)

	assert.Equal(t, StatusPending, p.Status)
	assert.Equal(t, "Sorting hub", p.CurrentLocation.Address)
	assert.Nil(t, p.CurrentLocation.Coordinates)
}

func TestAddCheckpointFreeformStatus(t *testing.T) {
	p, err := NewPackage(validCreateInput(), testNow)
	require.NoError(t, err)

	_, err = p.AddCheckpoint(CheckpointInput{Status: "out_for_delivery", Location: "Depot"}, testNow)
	require.NoError(t, err)

	assert.Equal(t, Status("out_for_delivery"), p.Status)
	assert.Equal(t, "Out For Delivery", StatusText(p))
	assert.Equal(t, 0, Progress(p))
}

func TestAddCheckpointCustomDatesAreNotSorted(t *testing.T) {
	p, err := NewPackage(validCreateInput(), testNow)
	require.NoError(t, err)

	first, err := p.AddCheckpoint(CheckpointInput{Location: "B", Date: "2026-04-20", Time: "08:15"}, testNow)
	require.NoError(t, err)
	second, err := p.AddCheckpoint(CheckpointInput{Location: "A", Date: "2026-04-18"}, testNow)
	require.NoError(t, err)

	assert.True(t, first.CustomDate)
	assert.True(t, first.CustomTime)
	assert.Equal(t, time.Date(2026, 4, 20, 8, 15, 0, 0, time.UTC), first.Timestamp)
	assert.True(t, second.CustomDate)
	assert.False(t, second.CustomTime)
	assert.Equal(t, time.Date(2026, 4, 18, 9, 30, 0, 0, time.UTC), second.Timestamp)

	items := p.Checkpoints.Items()
	require.Len(t, items, 2)
	assert.Equal(t, first.ID, items[0].ID)
	assert.Equal(t, second.ID, items[1].ID)

	// The stored location follows the most recently added checkpoint.
	assert.Equal(t, "A", p.CurrentLocation.Address)
}

func TestAddCheckpointRejectsBadInput(t *testing.T) {
	p, err := NewPackage(validCreateInput(), testNow)
	require.NoError(t, err)

	inputs := []CheckpointInput{
		{Location: ""},
		{Location: "X", Date: "04/18/2026"},
		{Location: "X", Time: "25:00"},
		{Location: "X", Coordinates: &Coordinates{Lat: 91}},
		{Location: "X", Status: "   "},
		{Location: "X", Status: "\t"},
	}
	for _, in := range inputs {
		_, err := p.AddCheckpoint(in, testNow)
		assert.True(t, errors.Is(err, ErrValidation), "input %+v", in)
	}
	assert.Equal(t, 0, p.Checkpoints.Len())
	assert.Equal(t, testNow, p.UpdatedAt)
}

func TestApplyEdit(t *testing.T) {
	p, err := NewPackage(validCreateInput(), testNow)
	require.NoError(t, err)

	delivered := StatusDelivered
	desc := "Box of rare books"
	loc := Location{Address: "Front desk"}
	require.NoError(t, p.ApplyEdit(EditPatch{
		Status:          &delivered,
		Description:     &desc,
		CurrentLocation: &loc,
	}, testNow))

	assert.Equal(t, StatusDelivered, p.Status)
	assert.Equal(t, desc, p.Description)
	assert.Equal(t, "Front desk", p.CurrentLocation.Address)
	assert.Equal(t, "Bo Recipient", p.Recipient.FullName)
	assert.True(t, p.UpdatedAt.After(testNow), "updatedAt advances even when the clock does not")
}

func TestApplyEditTrackingNumberImmutable(t *testing.T) {
	p, err := NewPackage(validCreateInput(), testNow)
	require.NoError(t, err)

	same := p.TrackingNumber
	require.NoError(t, p.ApplyEdit(EditPatch{TrackingNumber: &same}, testNow))

	other := "XX0000000000"
	err = p.ApplyEdit(EditPatch{TrackingNumber: &other}, testNow)
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Equal(t, "DU1234567890", p.TrackingNumber)
}

func TestUpdateCheckpointKeepsPackageState(t *testing.T) {
	p, err := NewPackage(validCreateInput(), testNow)
	require.NoError(t, err)
	cp, err := p.AddCheckpoint(CheckpointInput{Status: StatusInWarehouse, Location: "Hub"}, testNow)
	require.NoError(t, err)

	exception := StatusException
	date := "2026-05-01"
	updated, err := p.UpdateCheckpoint(cp.ID, CheckpointPatch{Status: &exception, Date: &date}, testNow)
	require.NoError(t, err)

	assert.Equal(t, StatusException, updated.Status)
	assert.True(t, updated.CustomDate)
	assert.False(t, updated.CustomTime)
	assert.Equal(t, time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC), updated.Timestamp)
	assert.Equal(t, StatusInWarehouse, p.Status)

	_, err = p.UpdateCheckpoint("missing", CheckpointPatch{}, testNow)
	assert.True(t, errors.Is(err, ErrNotFound))

	blank := Status("  ")
	_, err = p.UpdateCheckpoint(cp.ID, CheckpointPatch{Status: &blank}, testNow)
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Equal(t, StatusException, p.Checkpoints.Items()[0].Status)
}

func TestDeleteCheckpoint(t *testing.T) {
	p, err := NewPackage(validCreateInput(), testNow)
	require.NoError(t, err)
	cp, err := p.AddCheckpoint(CheckpointInput{Location: "Hub"}, testNow)
	require.NoError(t, err)

	require.NoError(t, p.DeleteCheckpoint(cp.ID, testNow))
	assert.True(t, errors.Is(p.DeleteCheckpoint(cp.ID, testNow), ErrNotFound))
	assert.True(t, errors.Is(p.DeleteCheckpoint("nope", testNow), ErrNotFound))
}

func TestCurrentLocationFallsBackToLatestCheckpoint(t *testing.T) {
	p, err := NewPackage(validCreateInput(), testNow)
	require.NoError(t, err)
	p.Checkpoints = NewLedger([]Checkpoint{
		{ID: "1", Location: "Later", Timestamp: testNow.Add(time.Hour)},
		{ID: "2", Location: "Earlier", Timestamp: testNow},
	})

	assert.Equal(t, "Later", CurrentLocation(p).Address)
}

func TestPublicViewRedactsPayment(t *testing.T) {
	p, err := NewPackage(validCreateInput(), testNow)
	require.NoError(t, err)

	assert.Nil(t, PublicView(p).Payment)

	p.Payment.IsVisible = true
	v := PublicView(p)
	require.NotNil(t, v.Payment)
	assert.True(t, v.Payment.Amount.Equal(decimal.RequireFromString("19.99")))
	assert.Equal(t, "Pending", v.StatusText)
	assert.Equal(t, 10, v.Progress)
}

func TestCloneIsDeep(t *testing.T) {
	p, err := NewPackage(validCreateInput(), testNow)
	require.NoError(t, err)
	_, err = p.AddCheckpoint(CheckpointInput{Location: "Hub"}, testNow)
	require.NoError(t, err)

	c := p.Clone()
	_, err = c.AddCheckpoint(CheckpointInput{Location: "Elsewhere"}, testNow)
	require.NoError(t, err)
	c.CurrentLocation.Address = "Changed"

	assert.Equal(t, 1, p.Checkpoints.Len())
	assert.Equal(t, "Hub", p.CurrentLocation.Address)
}

func TestNewTrackingNumber(t *testing.T) {
	tn, err := NewTrackingNumber("du")
	require.NoError(t, err)
	assert.Len(t, tn, 12)
	assert.Equal(t, "DU", tn[:2])
	assert.NoError(t, ValidateTrackingNumber(tn))

	_, err = NewTrackingNumber("D-U")
	assert.Error(t, err)
}
