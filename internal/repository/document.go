package repository

import (
	"context"

	"qrverify/internal/model"
)

// DocumentRepository defines data access for documents.
// Records are insert-only: there is no update or delete.
type DocumentRepository interface {
	// Create inserts a new document record and returns the stored copy.
	// A uniqueness violation on publicId, originalImageUrl or qrCodeData yields ErrDuplicate.
	Create(ctx context.Context, doc *model.Document) (*model.Document, error)

	// FindByPublicID returns the document issued for the given object store identifier,
	// or ErrNotFound.
	FindByPublicID(ctx context.Context, publicID string) (*model.Document, error)

	// Ping reports whether the backing store is reachable.
	Ping(ctx context.Context) error
}
