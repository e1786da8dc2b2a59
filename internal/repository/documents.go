package repository

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/tax-filing-buddy/constants"
	"github.com/joseph-ayodele/tax-filing-buddy/internal/common"
	"github.com/joseph-ayodele/tax-filing-buddy/internal/entity"
)

// DocumentRepository stores uploaded tax documents for one server session.
type DocumentRepository interface {
	Put(ctx context.Context, filename, content string, docType constants.DocumentType) (entity.TaxDocument, error)
	Get(ctx context.Context, id string) (entity.TaxDocument, error)
	// GetMany returns documents in the order of ids. Every id must exist.
	GetMany(ctx context.Context, ids []string) ([]entity.TaxDocument, error)
	// List returns all documents in upload order.
	List(ctx context.Context) ([]entity.TaxDocument, error)
	Close() error
}

// NewDocumentID returns "doc_<unix millis>_<random>".
func NewDocumentID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return fmt.Sprintf("doc_%d_%s", now.UnixMilli(), suffix)
}

func notFound(id string) error {
	return common.NewAppError("NOT_FOUND", fmt.Sprintf("document %q not found", id), common.ErrNotFound)
}

type memoryDocumentRepo struct {
	mu     sync.RWMutex
	docs   map[string]entity.TaxDocument
	order  []string
	now    func() time.Time
	logger *slog.Logger
}

// NewMemoryDocumentRepository returns a mutex-guarded map store.
func NewMemoryDocumentRepository(logger *slog.Logger) DocumentRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &memoryDocumentRepo{
		docs:   make(map[string]entity.TaxDocument),
		now:    time.Now,
		logger: logger,
	}
}

func (r *memoryDocumentRepo) Put(_ context.Context, filename, content string, docType constants.DocumentType) (entity.TaxDocument, error) {
	now := r.now().UTC()
	doc := entity.TaxDocument{
		ID:         NewDocumentID(now),
		Type:       docType,
		Filename:   filename,
		Content:    content,
		UploadedAt: now,
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.docs[doc.ID]; exists {
		return entity.TaxDocument{}, common.NewAppError("CONFLICT", "document id collision", common.ErrInternal)
	}
	r.docs[doc.ID] = doc
	r.order = append(r.order, doc.ID)

	r.logger.Debug("store.document.put", "id", doc.ID, "type", string(docType), "bytes", len(content))
	return doc, nil
}

func (r *memoryDocumentRepo) Get(_ context.Context, id string) (entity.TaxDocument, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.docs[id]
	if !ok {
		return entity.TaxDocument{}, notFound(id)
	}
	return doc, nil
}

func (r *memoryDocumentRepo) GetMany(ctx context.Context, ids []string) ([]entity.TaxDocument, error) {
	out := make([]entity.TaxDocument, 0, len(ids))
	for _, id := range ids {
		doc, err := r.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, nil
}

func (r *memoryDocumentRepo) List(_ context.Context) ([]entity.TaxDocument, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]entity.TaxDocument, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.docs[id])
	}
	return out, nil
}

func (r *memoryDocumentRepo) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs = make(map[string]entity.TaxDocument)
	r.order = nil
	return nil
}
