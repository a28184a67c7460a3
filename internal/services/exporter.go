package services

import (
	"context"
	"fmt"
	"package-tracking-service/internal/domain"
	"package-tracking-service/internal/platform/logger"
	"package-tracking-service/internal/platform/obs"
	"package-tracking-service/internal/ports"
	"time"

	"github.com/skip2/go-qrcode"
	"github.com/vincent-petithory/dataurl"
)

const qrSize = 256

// BuildExportPayload projects pkg for QR and document generation. It is pure:
// the same package state always yields the same bytes.
func BuildExportPayload(pkg *domain.Package) (*domain.ExportPayload, error) {
	tn := pkg.TrackingNumber
	if err := domain.ValidateTrackingNumber(tn); err != nil {
		return nil, fmt.Errorf("%w: tracking number %q: %v", domain.ErrEncoding, tn, err)
	}

	png, err := qrcode.Encode(tn, qrcode.Medium, qrSize)
	if err != nil {
		return nil, fmt.Errorf("%w: qr for %s: %v", domain.ErrEncoding, tn, err)
	}

	return &domain.ExportPayload{
		QRPayload: tn,
		QRCode:    png,
		QRDataURL: dataurl.New(png, "image/png").String(),
		Bundle: domain.ExportBundle{
			TrackingNumber: tn,
			StatusText:     domain.StatusText(pkg),
			Weight:         pkg.Weight,
			Dimensions:     pkg.Dimensions,
			Recipient:      pkg.Recipient,
		},
	}, nil
}

// Exporter builds export payloads and turns them into stored documents.
type Exporter struct {
	repo     ports.PackageRepository
	cache    ports.PackageCache
	renderer ports.DocumentRenderer
	files    ports.FileStore
	log      *logger.Logger
	now      func() time.Time
}

func NewExporter(repo ports.PackageRepository, cache ports.PackageCache, renderer ports.DocumentRenderer, files ports.FileStore, log *logger.Logger) *Exporter {
	if log == nil {
		log = logger.Nop()
	}
	return &Exporter{repo: repo, cache: cache, renderer: renderer, files: files, log: log, now: time.Now}
}

func (e *Exporter) Export(ctx context.Context, trackingNumber string) (_ *domain.ExportPayload, err error) {
	defer obs.Time(ctx, e.log, "exporter.Export")(&err)

	pkg, err := e.repo.Get(ctx, trackingNumber)
	if err != nil {
		return nil, fmt.Errorf("export %s: %w", trackingNumber, err)
	}
	payload, err := BuildExportPayload(pkg)
	if err != nil {
		return nil, fmt.Errorf("export %s: %w", trackingNumber, err)
	}
	return payload, nil
}

// Generate renders a document for the package and records its reference in
// pkg.PDFs. A renderer failure is reported as domain.ErrRenderingFailed.
func (e *Exporter) Generate(ctx context.Context, trackingNumber string) (_ *domain.Package, _ string, err error) {
	defer obs.Time(ctx, e.log, "exporter.Generate")(&err)

	pkg, err := e.repo.Get(ctx, trackingNumber)
	if err != nil {
		return nil, "", fmt.Errorf("generate document %s: %w", trackingNumber, err)
	}
	expected := pkg.UpdatedAt

	payload, err := BuildExportPayload(pkg)
	if err != nil {
		return nil, "", fmt.Errorf("generate document %s: %w", trackingNumber, err)
	}

	if e.renderer == nil {
		return nil, "", fmt.Errorf("generate document %s: %w: no renderer configured", trackingNumber, domain.ErrRenderingFailed)
	}
	ref, err := e.renderer.Render(ctx, payload)
	if err != nil {
		return nil, "", fmt.Errorf("generate document %s: %w: %v", trackingNumber, domain.ErrRenderingFailed, err)
	}

	pdfs := append(append([]string{}, pkg.PDFs...), ref)
	if err := pkg.ApplyEdit(domain.EditPatch{PDFs: &pdfs}, e.now()); err != nil {
		return nil, "", fmt.Errorf("generate document %s: %w", trackingNumber, err)
	}
	if err := e.repo.Update(ctx, pkg, expected); err != nil {
		e.discard(ctx, ref)
		return nil, "", fmt.Errorf("generate document %s: %w", trackingNumber, err)
	}

	if e.cache != nil {
		if err := e.cache.Invalidate(ctx, trackingNumber); err != nil {
			e.log.Warn("cache invalidation failed", "tracking_number", trackingNumber, "err", err)
		}
	}
	e.log.Info("document generated", "tracking_number", trackingNumber, "ref", ref)
	return pkg, ref, nil
}

// discard removes a rendered document that could not be recorded.
func (e *Exporter) discard(ctx context.Context, ref string) {
	if e.files == nil {
		return
	}
	if err := e.files.Delete(ctx, ref); err != nil {
		e.log.Warn("failed to delete orphaned document (ignored)", "ref", ref, "err", err)
	}
}
