package memory

import (
	"context"
	"fmt"
	"sync"

	"qrverify/internal/model"
	"qrverify/internal/repository"
)

// DocumentMemory is an in-process repository for local runs and tests.
// It enforces the same unique fields as the persistent stores.
type DocumentMemory struct {
	mu         sync.RWMutex
	byPublicID map[string]model.Document
	byOriginal map[string]string
	byQRData   map[string]string
}

func NewDocumentMemory() *DocumentMemory {
	return &DocumentMemory{
		byPublicID: make(map[string]model.Document),
		byOriginal: make(map[string]string),
		byQRData:   make(map[string]string),
	}
}

var _ repository.DocumentRepository = (*DocumentMemory)(nil)

func (m *DocumentMemory) Create(_ context.Context, doc *model.Document) (*model.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byPublicID[doc.PublicID]; ok {
		return nil, fmt.Errorf("%w: publicId", repository.ErrDuplicate)
	}
	if _, ok := m.byOriginal[doc.OriginalImageURL]; ok {
		return nil, fmt.Errorf("%w: originalImageUrl", repository.ErrDuplicate)
	}
	if _, ok := m.byQRData[doc.QRCodeData]; ok {
		return nil, fmt.Errorf("%w: qrCodeData", repository.ErrDuplicate)
	}

	m.byPublicID[doc.PublicID] = *doc
	m.byOriginal[doc.OriginalImageURL] = doc.PublicID
	m.byQRData[doc.QRCodeData] = doc.PublicID

	out := *doc
	return &out, nil
}

func (m *DocumentMemory) FindByPublicID(_ context.Context, publicID string) (*model.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.byPublicID[publicID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &d, nil
}

func (m *DocumentMemory) Ping(context.Context) error { return nil }

// Len reports how many documents are stored.
func (m *DocumentMemory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byPublicID)
}
