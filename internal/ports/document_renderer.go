package ports

import (
	"context"
	"package-tracking-service/internal/domain"
)

// Turns an export payload into a stored document and returns its reference (URL or path).
type DocumentRenderer interface {
	Render(ctx context.Context, payload *domain.ExportPayload) (string, error)
}

// Blob storage for rendered documents and uploaded images.
type FileStore interface {
	// Store data under key and return the public reference.
	Put(ctx context.Context, key string, contentType string, data []byte) (string, error)
	// Remove the object behind a reference previously returned by Put.
	// References this store does not own are ignored.
	Delete(ctx context.Context, ref string) error
}
