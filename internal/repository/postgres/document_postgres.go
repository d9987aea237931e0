package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"qrverify/internal/model"
	"qrverify/internal/repository"
)

// uniqueViolation is the SQLSTATE PostgreSQL reports for a unique constraint conflict.
const uniqueViolation = "23505"

// DocumentPostgres is a PostgreSQL implementation of repository.DocumentRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type DocumentPostgres struct {
	db *sql.DB
}

// NewDocumentPostgres creates a new DocumentPostgres repository.
func NewDocumentPostgres(db *sql.DB) *DocumentPostgres {
	return &DocumentPostgres{db: db}
}

var _ repository.DocumentRepository = (*DocumentPostgres)(nil)

// Create inserts a new document row and returns the stored record.
func (r *DocumentPostgres) Create(ctx context.Context, doc *model.Document) (*model.Document, error) {
	const q = `
		INSERT INTO documents (id, public_id, original_image_url, qr_code_data, qr_code_image_url, verified, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, public_id, original_image_url, qr_code_data, qr_code_image_url, verified, created_at
	`
	row := r.db.QueryRowContext(ctx, q,
		doc.ID,
		doc.PublicID,
		doc.OriginalImageURL,
		doc.QRCodeData,
		doc.QRCodeImageURL,
		doc.Verified,
		doc.CreatedAt,
	)
	out, err := scanDocument(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, fmt.Errorf("%w: %s", repository.ErrDuplicate, pgErr.ConstraintName)
		}
		return nil, err
	}
	return out, nil
}

// FindByPublicID fetches a single document by the identifier issued for its original upload.
func (r *DocumentPostgres) FindByPublicID(ctx context.Context, publicID string) (*model.Document, error) {
	const q = `
		SELECT id, public_id, original_image_url, qr_code_data, qr_code_image_url, verified, created_at
		FROM documents
		WHERE public_id = $1
	`
	d, err := scanDocument(r.db.QueryRowContext(ctx, q, publicID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return d, nil
}

// Ping checks database connectivity.
func (r *DocumentPostgres) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func scanDocument(row *sql.Row) (*model.Document, error) {
	var d model.Document
	if err := row.Scan(
		&d.ID,
		&d.PublicID,
		&d.OriginalImageURL,
		&d.QRCodeData,
		&d.QRCodeImageURL,
		&d.Verified,
		&d.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &d, nil
}
