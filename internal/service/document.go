package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"qrverify/internal/imaging"
	"qrverify/internal/logging"
	"qrverify/internal/model"
	"qrverify/internal/qr"
	"qrverify/internal/repository"
	"qrverify/internal/storage"
)

const (
	originalsPrefix   = "originals"
	watermarkedPrefix = "watermarked"

	defaultStageTimeout = 30 * time.Second
	maxMetadataFilename = 255
)

var (
	ErrEmptyImage = errors.New("image is empty")
	ErrNotFound   = errors.New("document not found")
)

var tracer = otel.Tracer("qrverify/internal/service")

// UploadResult is what a successful upload hands back to the caller.
type UploadResult struct {
	PublicID         string            `json:"publicId"`
	OriginalImageURL string            `json:"originalImage"`
	QRCodeImageURL   string            `json:"qrCodeImage"`
	QRRedirectURL    string            `json:"qrRedirectUrl"`
	Placement        imaging.Placement `json:"placement"`
}

// DocumentService defines the use cases for issuing and verifying watermarked documents.
type DocumentService interface {
	// Upload runs the watermark pipeline: decode, place, upload the original,
	// render the QR, composite, upload the result and persist the record.
	// Failures are returned as *StageError.
	Upload(ctx context.Context, data []byte, originalFilename string) (*UploadResult, error)

	// Verify returns the document issued for publicID or ErrNotFound.
	Verify(ctx context.Context, publicID string) (*model.Document, error)
}

// Config tunes the pipeline. Zero values fall back to sane defaults.
type Config struct {
	VerifyBaseURL  string
	StageTimeout   time.Duration
	CleanupOrphans bool
	JPEGQuality    int
	MaxPixels      int64
	Logger         *slog.Logger
	Metrics        *Metrics
}

type documentService struct {
	store    storage.Storage
	repo     repository.DocumentRepository
	renderer qr.Renderer
	cfg      Config
	log      *slog.Logger
	now      func() time.Time
}

// NewDocumentService constructs a new DocumentService.
func NewDocumentService(store storage.Storage, repo repository.DocumentRepository, renderer qr.Renderer, cfg Config) DocumentService {
	if cfg.StageTimeout <= 0 {
		cfg.StageTimeout = defaultStageTimeout
	}
	log := cfg.Logger
	if log == nil {
		log = logging.Discard()
	}
	return &documentService{
		store:    store,
		repo:     repo,
		renderer: renderer,
		cfg:      cfg,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *documentService) Upload(ctx context.Context, data []byte, originalFilename string) (res *UploadResult, err error) {
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}

	ctx, span := tracer.Start(ctx, "DocumentService.Upload")
	defer span.End()

	var uploaded []string
	defer func() {
		if err == nil {
			s.cfg.Metrics.upload("success")
			return
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		stage, _ := StageOf(err)
		s.cfg.Metrics.upload(string(stage))
		s.log.ErrorContext(ctx, "upload failed", "stage", stage, "error", err.Error())
		s.handleOrphans(ctx, uploaded)
	}()

	var meta imaging.Meta
	if err := s.run(ctx, StageDecode, false, func(context.Context) (e error) {
		meta, e = imaging.DecodeMeta(data, s.cfg.MaxPixels)
		return e
	}); err != nil {
		return nil, err
	}

	var place imaging.Placement
	if err := s.run(ctx, StagePlacement, false, func(context.Context) (e error) {
		place, e = imaging.CalculatePlacement(meta.Width, meta.Height)
		return e
	}); err != nil {
		return nil, err
	}

	mime, ext := imaging.ContentType(meta.Format)
	originalMeta := map[string]string{}
	if name := metadataFilename(originalFilename); name != "" {
		originalMeta["original-filename"] = name
	}
	var original storage.Object
	if err := s.run(ctx, StageUploadOriginal, true, func(ctx context.Context) (e error) {
		original, e = s.store.Put(ctx, bytes.NewReader(data), storage.PutObjectOptions{
			Prefix:      originalsPrefix,
			Ext:         ext,
			Size:        int64(len(data)),
			ContentType: mime,
			Metadata:    originalMeta,
		})
		return e
	}); err != nil {
		return nil, err
	}
	uploaded = append(uploaded, original.Key)

	var payload string
	var qrPNG []byte
	if err := s.run(ctx, StageRenderQR, false, func(context.Context) (e error) {
		if payload, e = qr.BuildPayload(s.cfg.VerifyBaseURL, original.ID); e != nil {
			return e
		}
		qrPNG, e = s.renderer.Render(payload)
		return e
	}); err != nil {
		return nil, err
	}

	var composed imaging.Encoded
	if err := s.run(ctx, StageComposite, false, func(context.Context) (e error) {
		composed, e = imaging.Composite(data, qrPNG, place, imaging.EncodeOptions{JPEGQuality: s.cfg.JPEGQuality})
		return e
	}); err != nil {
		return nil, err
	}

	var modified storage.Object
	if err := s.run(ctx, StageUploadModified, true, func(ctx context.Context) (e error) {
		modified, e = s.store.Put(ctx, bytes.NewReader(composed.Data), storage.PutObjectOptions{
			Prefix:      watermarkedPrefix,
			Ext:         composed.Ext,
			Size:        int64(len(composed.Data)),
			ContentType: composed.ContentType,
			Metadata:    map[string]string{"public-id": original.ID},
		})
		return e
	}); err != nil {
		return nil, err
	}
	uploaded = append(uploaded, modified.Key)

	doc := &model.Document{
		ID:               uuid.NewString(),
		PublicID:         original.ID,
		OriginalImageURL: original.URL,
		QRCodeData:       payload,
		QRCodeImageURL:   modified.URL,
		Verified:         false,
		CreatedAt:        s.now(),
	}
	var stored *model.Document
	if err := s.run(ctx, StagePersist, true, func(ctx context.Context) (e error) {
		stored, e = s.repo.Create(ctx, doc)
		return e
	}); err != nil {
		return nil, err
	}
	if stored == nil {
		stored = doc
	}

	span.SetAttributes(attribute.String("document.public_id", stored.PublicID))
	s.log.InfoContext(ctx, "document issued",
		"public_id", stored.PublicID,
		"format", meta.Format,
		"width", meta.Width,
		"height", meta.Height,
	)

	return &UploadResult{
		PublicID:         stored.PublicID,
		OriginalImageURL: stored.OriginalImageURL,
		QRCodeImageURL:   stored.QRCodeImageURL,
		QRRedirectURL:    stored.QRCodeData,
		Placement:        place,
	}, nil
}

// metadataFilename reduces a client supplied filename to its base name in
// printable ASCII. Object stores send user metadata as HTTP headers and
// reject or mis-sign anything else.
func metadataFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		name = name[i+1:]
	}
	var b strings.Builder
	for _, r := range name {
		if r < 0x20 || r > 0x7e {
			r = '_'
		}
		b.WriteRune(r)
		if b.Len() >= maxMetadataFilename {
			break
		}
	}
	name = strings.TrimSpace(b.String())
	if name == "." || name == ".." {
		return ""
	}
	return name
}

// run executes one stage under its own span. Remote stages get a deadline.
func (s *documentService) run(ctx context.Context, stage Stage, remote bool, fn func(context.Context) error) error {
	ctx, span := tracer.Start(ctx, "stage."+string(stage))
	defer span.End()

	if remote {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.StageTimeout)
		defer cancel()
	}

	start := time.Now()
	err := fn(ctx)
	s.cfg.Metrics.observeStage(stage, time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return &StageError{Stage: stage, Err: err}
	}
	return nil
}

// handleOrphans deletes objects uploaded by a failed request when cleanup is on.
// Whatever is left behind is logged and counted.
func (s *documentService) handleOrphans(ctx context.Context, keys []string) {
	if len(keys) == 0 {
		return
	}
	if !s.cfg.CleanupOrphans {
		s.cfg.Metrics.orphans(len(keys))
		s.log.WarnContext(ctx, "objects left orphaned", "keys", keys)
		return
	}

	// the request context may already be cancelled
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.StageTimeout)
	defer cancel()

	left := 0
	for _, key := range keys {
		if err := s.store.Delete(cleanupCtx, key); err != nil {
			left++
			s.log.WarnContext(ctx, "orphan cleanup failed", "key", key, "error", err.Error())
			continue
		}
		s.log.InfoContext(ctx, "orphan removed", "key", key)
	}
	s.cfg.Metrics.orphans(left)
}

// Verify returns a document by its public identifier.
func (s *documentService) Verify(ctx context.Context, publicID string) (*model.Document, error) {
	ctx, span := tracer.Start(ctx, "DocumentService.Verify")
	defer span.End()
	span.SetAttributes(attribute.String("document.public_id", publicID))

	if publicID == "" {
		s.cfg.Metrics.verification("not_found")
		return nil, ErrNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.StageTimeout)
	defer cancel()

	doc, err := s.repo.FindByPublicID(ctx, publicID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.cfg.Metrics.verification("not_found")
			return nil, ErrNotFound
		}
		s.cfg.Metrics.verification("error")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("find document: %w", err)
	}
	s.cfg.Metrics.verification("found")
	return doc, nil
}
