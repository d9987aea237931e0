package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"qrverify/internal/model"
	"qrverify/internal/repository"
)

// DocumentMongo implements repository.DocumentRepository on a MongoDB collection.
// Uniqueness of publicId, originalImageUrl and qrCodeData is enforced by the
// indexes created in EnsureIndexes.
type DocumentMongo struct {
	col *mongo.Collection
}

// NewDocumentMongo wraps the given collection.
func NewDocumentMongo(col *mongo.Collection) *DocumentMongo {
	return &DocumentMongo{col: col}
}

var _ repository.DocumentRepository = (*DocumentMongo)(nil)

// EnsureIndexes creates the unique indexes backing the record invariants. Idempotent.
func (m *DocumentMongo) EnsureIndexes(ctx context.Context) error {
	models := []mongo.IndexModel{
		{Keys: bson.D{{Key: "publicId", Value: 1}}, Options: options.Index().SetUnique(true).SetName("uniq_public_id")},
		{Keys: bson.D{{Key: "originalImageUrl", Value: 1}}, Options: options.Index().SetUnique(true).SetName("uniq_original_image_url")},
		{Keys: bson.D{{Key: "qrCodeData", Value: 1}}, Options: options.Index().SetUnique(true).SetName("uniq_qr_code_data")},
	}
	if _, err := m.col.Indexes().CreateMany(ctx, models); err != nil {
		return fmt.Errorf("create indexes: %w", err)
	}
	return nil
}

// Create inserts the document. The caller supplies ID and CreatedAt.
func (m *DocumentMongo) Create(ctx context.Context, doc *model.Document) (*model.Document, error) {
	if _, err := m.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("%w: %v", repository.ErrDuplicate, err)
		}
		return nil, err
	}
	out := *doc
	return &out, nil
}

// FindByPublicID looks up a document by its object store identifier.
func (m *DocumentMongo) FindByPublicID(ctx context.Context, publicID string) (*model.Document, error) {
	var d model.Document
	err := m.col.FindOne(ctx, bson.M{"publicId": publicID}).Decode(&d)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

// Ping checks connectivity of the underlying client.
func (m *DocumentMongo) Ping(ctx context.Context) error {
	return m.col.Database().Client().Ping(ctx, nil)
}
