package services

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"package-tracking-service/internal/domain"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildExportPayloadIsDeterministic(t *testing.T) {
	f := newFixture(t)
	pkg := f.create(t, "DU1234567890")

	a, err := BuildExportPayload(pkg)
	require.NoError(t, err)
	b, err := BuildExportPayload(pkg)
	require.NoError(t, err)

	assert.Equal(t, "DU1234567890", a.QRPayload)
	assert.True(t, bytes.Equal(a.QRCode, b.QRCode))
	assert.Equal(t, a.QRDataURL, b.QRDataURL)
	assert.Equal(t, a.Bundle, b.Bundle)
	assert.True(t, strings.HasPrefix(a.QRDataURL, "data:image/png;base64,"))

	img, err := png.Decode(bytes.NewReader(a.QRCode))
	require.NoError(t, err)
	assert.Equal(t, qrSize, img.Bounds().Dx())

	assert.Equal(t, domain.ExportBundle{
		TrackingNumber: "DU1234567890",
		StatusText:     "Pending",
		Weight:         2.5,
		Dimensions:     domain.Dimensions{Length: 30, Width: 20, Height: 10},
		Recipient:      pkg.Recipient,
	}, a.Bundle)
}

func TestBuildExportPayloadRejectsBadTrackingNumber(t *testing.T) {
	for _, tn := range []string{"", "DU 12345", "DU-1234567890"} {
		_, err := BuildExportPayload(&domain.Package{TrackingNumber: tn})
		assert.ErrorIs(t, err, domain.ErrEncoding, tn)
	}
}

func TestGenerateAppendsDocument(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.create(t, "DU1234567890")

	renderer := &stubRenderer{files: f.files}
	exp := NewExporter(f.repo, f.cache, renderer, f.files, nil)

	pkg, ref, err := exp.Generate(ctx, "DU1234567890")
	require.NoError(t, err)
	assert.Equal(t, "/files/documents/DU1234567890.pdf", ref)
	assert.Equal(t, []string{ref}, pkg.PDFs)

	stored, err := f.life.Get(ctx, "DU1234567890")
	require.NoError(t, err)
	assert.Equal(t, []string{ref}, stored.PDFs)
}

func TestGenerateRenderingFailure(t *testing.T) {
	f := newFixture(t)
	f.create(t, "DU1234567890")

	exp := NewExporter(f.repo, f.cache, &stubRenderer{err: errors.New("disk full")}, f.files, nil)
	_, _, err := exp.Generate(context.Background(), "DU1234567890")
	assert.ErrorIs(t, err, domain.ErrRenderingFailed)

	_, _, err = NewExporter(f.repo, f.cache, nil, nil, nil).Generate(context.Background(), "DU1234567890")
	assert.ErrorIs(t, err, domain.ErrRenderingFailed)

	_, _, err = exp.Generate(context.Background(), "DU0000000000")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestExport(t *testing.T) {
	f := newFixture(t)
	f.create(t, "DU1234567890")
	exp := NewExporter(f.repo, f.cache, nil, nil, nil)

	p, err := exp.Export(context.Background(), "DU1234567890")
	require.NoError(t, err)
	assert.Equal(t, "DU1234567890", p.QRPayload)
}
