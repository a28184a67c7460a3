package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"package-tracking-service/internal/domain"
	"package-tracking-service/internal/platform/logger"
	"package-tracking-service/internal/platform/obs"
	"package-tracking-service/internal/ports"
	"time"

	_ "image/png"

	"github.com/fogleman/gg"
)

// LabelRenderer draws a PNG shipping label: QR code on the left, tracking
// number and recipient block on the right.
type LabelRenderer struct {
	Files ports.FileStore
	Log   *logger.Logger
}

func NewLabelRenderer(files ports.FileStore, log *logger.Logger) *LabelRenderer {
	return &LabelRenderer{Files: files, Log: log}
}

var _ ports.DocumentRenderer = (*LabelRenderer)(nil)

const (
	labelWidth  = 800
	labelHeight = 400
	labelMargin = 24
)

func (r *LabelRenderer) Render(ctx context.Context, payload *domain.ExportPayload) (ref string, err error) {
	defer obs.Time(ctx, r.Log, "document.label.Render")(&err)

	if payload == nil || len(payload.QRCode) == 0 {
		return "", errors.New("label: payload has no QR code")
	}

	buf, err := renderLabel(payload)
	if err != nil {
		return "", fmt.Errorf("label: render %s: %w", payload.QRPayload, err)
	}

	ref, err = r.Files.Put(ctx, documentKey(payload, "png"), "image/png", buf.Bytes())
	if err != nil {
		return "", fmt.Errorf("label: store %s: %w", payload.QRPayload, err)
	}
	return ref, nil
}

func renderLabel(payload *domain.ExportPayload) (bytes.Buffer, error) {
	var buf bytes.Buffer

	qr, _, err := image.Decode(bytes.NewReader(payload.QRCode))
	if err != nil {
		return buf, fmt.Errorf("decode qr: %w", err)
	}

	dc := gg.NewContext(labelWidth, labelHeight)
	dc.SetColor(color.White)
	dc.Clear()

	dc.SetColor(color.Black)
	dc.SetLineWidth(3)
	dc.DrawRectangle(1.5, 1.5, labelWidth-3, labelHeight-3)
	dc.Stroke()

	qrSize := labelHeight - 2*labelMargin
	dc.Push()
	scale := float64(qrSize) / float64(qr.Bounds().Dx())
	dc.Translate(labelMargin, labelMargin)
	dc.Scale(scale, scale)
	dc.DrawImage(qr, 0, 0)
	dc.Pop()

	b := payload.Bundle
	x := float64(labelMargin*2 + qrSize)
	y := float64(labelMargin * 2)
	lines := []string{
		b.TrackingNumber,
		b.StatusText,
		"",
		"SHIP TO:",
		b.Recipient.FullName,
		b.Recipient.Address,
		b.Recipient.Phone,
		"",
		fmt.Sprintf("%.2f / %.0fx%.0fx%.0f", b.Weight, b.Dimensions.Length, b.Dimensions.Width, b.Dimensions.Height),
	}
	for _, line := range lines {
		if line != "" {
			dc.DrawString(line, x, y)
		}
		y += 20
	}

	if err := dc.EncodePNG(&buf); err != nil {
		return buf, fmt.Errorf("failed to encode PNG: %w", err)
	}
	return buf, nil
}

// documentKey is versioned so repeated exports never overwrite each other.
func documentKey(payload *domain.ExportPayload, ext string) string {
	return fmt.Sprintf("documents/%s/%d.%s", payload.Bundle.TrackingNumber, time.Now().UnixNano(), ext)
}
