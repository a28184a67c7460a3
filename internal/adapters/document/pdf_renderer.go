package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"package-tracking-service/internal/domain"
	"package-tracking-service/internal/platform/logger"
	"package-tracking-service/internal/platform/obs"
	"package-tracking-service/internal/ports"

	"github.com/go-pdf/fpdf"
)

// PDFRenderer lays out a one-page shipping document with the tracking QR code
// and stores it through Files.
type PDFRenderer struct {
	Files ports.FileStore
	Log   *logger.Logger
}

func NewPDFRenderer(files ports.FileStore, log *logger.Logger) *PDFRenderer {
	return &PDFRenderer{Files: files, Log: log}
}

var _ ports.DocumentRenderer = (*PDFRenderer)(nil)

func (r *PDFRenderer) Render(ctx context.Context, payload *domain.ExportPayload) (ref string, err error) {
	defer obs.Time(ctx, r.Log, "document.pdf.Render")(&err)

	if payload == nil || len(payload.QRCode) == 0 {
		return "", errors.New("pdf: payload has no QR code")
	}

	data, err := renderPDF(payload)
	if err != nil {
		return "", fmt.Errorf("pdf: render %s: %w", payload.QRPayload, err)
	}

	ref, err = r.Files.Put(ctx, documentKey(payload, "pdf"), "application/pdf", data)
	if err != nil {
		return "", fmt.Errorf("pdf: store %s: %w", payload.QRPayload, err)
	}
	return ref, nil
}

func renderPDF(payload *domain.ExportPayload) ([]byte, error) {
	b := payload.Bundle

	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Shipment "+b.TrackingNumber, true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 20)
	pdf.CellFormat(0, 12, "Shipment "+b.TrackingNumber, "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 12)
	pdf.CellFormat(0, 8, tr("Status: "+b.StatusText), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	const qrName = "qr"
	pdf.RegisterImageOptionsReader(qrName, fpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(payload.QRCode))
	pdf.ImageOptions(qrName, 140, 15, 50, 50, false, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")

	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(0, 8, "Recipient", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 12)
	for _, line := range []string{b.Recipient.FullName, b.Recipient.Address, b.Recipient.Phone} {
		if line == "" {
			continue
		}
		pdf.CellFormat(0, 7, tr(line), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(0, 8, "Parcel", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 12)
	pdf.CellFormat(0, 7, fmt.Sprintf("Weight: %.2f", b.Weight), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 7, fmt.Sprintf("Dimensions: %.1f x %.1f x %.1f", b.Dimensions.Length, b.Dimensions.Width, b.Dimensions.Height), "", 1, "L", false, 0, "")

	if err := pdf.Error(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
