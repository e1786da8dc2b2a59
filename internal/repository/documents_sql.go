package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	"github.com/joseph-ayodele/tax-filing-buddy/constants"
	"github.com/joseph-ayodele/tax-filing-buddy/internal/entity"
)

const documentsTable = "tax_documents"

const createDocumentsTable = `CREATE TABLE IF NOT EXISTS tax_documents (
	seq         INTEGER PRIMARY KEY AUTOINCREMENT,
	id          TEXT NOT NULL UNIQUE,
	doc_type    TEXT NOT NULL,
	filename    TEXT NOT NULL,
	content     TEXT NOT NULL,
	uploaded_at TEXT NOT NULL
)`

var documentColumns = []string{"id", "doc_type", "filename", "content", "uploaded_at"}

type sqlDocumentRepo struct {
	drv    *entsql.Driver
	now    func() time.Time
	logger *slog.Logger
}

// NewSQLDocumentRepository stores documents in a SQL table through the ent
// driver, creating the table when missing. The repository owns drv and
// closes it on Close.
func NewSQLDocumentRepository(ctx context.Context, drv *entsql.Driver, logger *slog.Logger) (DocumentRepository, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := drv.Exec(ctx, createDocumentsTable, []any{}, nil); err != nil {
		logger.Error("failed to create documents table", "error", err)
		return nil, fmt.Errorf("create %s: %w", documentsTable, err)
	}
	return &sqlDocumentRepo{drv: drv, now: time.Now, logger: logger}, nil
}

func (r *sqlDocumentRepo) builder() *entsql.DialectBuilder {
	return entsql.Dialect(dialect.SQLite)
}

func (r *sqlDocumentRepo) Put(ctx context.Context, filename, content string, docType constants.DocumentType) (entity.TaxDocument, error) {
	now := r.now().UTC()
	doc := entity.TaxDocument{
		ID:         NewDocumentID(now),
		Type:       docType,
		Filename:   filename,
		Content:    content,
		UploadedAt: now,
	}

	query, args := r.builder().Insert(documentsTable).
		Columns(documentColumns...).
		Values(doc.ID, string(doc.Type), doc.Filename, doc.Content, now.Format(time.RFC3339Nano)).
		Query()
	if err := r.drv.Exec(ctx, query, args, nil); err != nil {
		r.logger.Error("failed to insert document", "id", doc.ID, "filename", filename, "error", err)
		return entity.TaxDocument{}, fmt.Errorf("insert document: %w", err)
	}
	r.logger.Debug("store.document.put", "id", doc.ID, "type", string(docType), "bytes", len(content))
	return doc, nil
}

func (r *sqlDocumentRepo) Get(ctx context.Context, id string) (entity.TaxDocument, error) {
	b := r.builder()
	query, args := b.Select(documentColumns...).
		From(b.Table(documentsTable)).
		Where(entsql.EQ("id", id)).
		Query()
	docs, err := r.query(ctx, query, args)
	if err != nil {
		return entity.TaxDocument{}, err
	}
	if len(docs) == 0 {
		return entity.TaxDocument{}, notFound(id)
	}
	return docs[0], nil
}

func (r *sqlDocumentRepo) GetMany(ctx context.Context, ids []string) ([]entity.TaxDocument, error) {
	if len(ids) == 0 {
		return []entity.TaxDocument{}, nil
	}
	in := make([]any, len(ids))
	for i, id := range ids {
		in[i] = id
	}
	b := r.builder()
	query, args := b.Select(documentColumns...).
		From(b.Table(documentsTable)).
		Where(entsql.In("id", in...)).
		Query()
	docs, err := r.query(ctx, query, args)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]entity.TaxDocument, len(docs))
	for _, d := range docs {
		byID[d.ID] = d
	}
	out := make([]entity.TaxDocument, 0, len(ids))
	for _, id := range ids {
		d, ok := byID[id]
		if !ok {
			return nil, notFound(id)
		}
		out = append(out, d)
	}
	return out, nil
}

func (r *sqlDocumentRepo) List(ctx context.Context) ([]entity.TaxDocument, error) {
	b := r.builder()
	query, args := b.Select(documentColumns...).
		From(b.Table(documentsTable)).
		OrderBy("seq").
		Query()
	return r.query(ctx, query, args)
}

func (r *sqlDocumentRepo) Close() error {
	return r.drv.Close()
}

func (r *sqlDocumentRepo) query(ctx context.Context, query string, args []any) ([]entity.TaxDocument, error) {
	rows := &entsql.Rows{}
	if err := r.drv.Query(ctx, query, args, rows); err != nil {
		r.logger.Error("failed to query documents", "error", err)
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.Warn("rows close error", "error", err)
		}
	}()

	var out []entity.TaxDocument
	for rows.Next() {
		var (
			d          entity.TaxDocument
			docType    string
			uploadedAt string
		)
		if err := rows.Scan(&d.ID, &docType, &d.Filename, &d.Content, &uploadedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		d.Type = constants.DocumentType(docType)
		ts, err := time.Parse(time.RFC3339Nano, uploadedAt)
		if err != nil {
			return nil, fmt.Errorf("parse uploaded_at for %s: %w", d.ID, err)
		}
		d.UploadedAt = ts
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return out, nil
}
