package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/joseph-ayodele/tax-filing-buddy/constants"
	"github.com/joseph-ayodele/tax-filing-buddy/internal/common"
	"github.com/joseph-ayodele/tax-filing-buddy/internal/repository"
)

// DefaultMaxFileBytes caps a single document read from disk.
const DefaultMaxFileBytes = 1 << 20

// FSIngestor reads documents from the local filesystem and uploads them.
// Identical content (by sha256) is stored once per ingestor.
type FSIngestor struct {
	Docs         repository.DocumentRepository
	MaxFileBytes int64
	Logger       *slog.Logger

	mu   sync.Mutex
	seen map[string]string // hash hex -> document id
}

func NewFSIngestor(docs repository.DocumentRepository, logger *slog.Logger) *FSIngestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &FSIngestor{
		Docs:         docs,
		MaxFileBytes: DefaultMaxFileBytes,
		Logger:       logger,
		seen:         make(map[string]string),
	}
}

func (i *FSIngestor) IngestPath(ctx context.Context, path string) (IngestionResult, error) {
	var out IngestionResult

	abs, err := filepath.Abs(path)
	if err != nil {
		return out, fmt.Errorf("abs path: %w", err)
	}

	ext := constants.NormalizeExt(filepath.Ext(abs))
	if ext == "" || !AllowedExt(ext) {
		i.Logger.Debug("ingest.skip.extension", "path", abs, "ext", ext)
		return out, common.NewAppError("UNSUPPORTED_FILE", fmt.Sprintf("unsupported or missing extension %q", ext), common.ErrInvalidInput)
	}

	content, err := i.readLimited(abs)
	if err != nil {
		return out, err
	}
	if !utf8.Valid(content) {
		return out, common.NewAppError("UNSUPPORTED_FILE", "document is not valid UTF-8 text", common.ErrInvalidInput)
	}
	if strings.TrimSpace(string(content)) == "" {
		return out, common.NewAppError("EMPTY_FILE", "document is empty", common.ErrInvalidInput)
	}

	sum := sha256.Sum256(content)
	hashHex := hex.EncodeToString(sum[:])
	docType := constants.DocumentTypeFromFilename(abs)

	i.mu.Lock()
	defer i.mu.Unlock()
	if i.seen == nil {
		i.seen = make(map[string]string)
	}
	if id, ok := i.seen[hashHex]; ok {
		i.Logger.Info("ingest.dedup", "path", abs, "document_id", id)
		return IngestionResult{
			SourcePath:   abs,
			DocumentID:   id,
			DocType:      docType,
			Deduplicated: true,
			HashHex:      hashHex,
		}, nil
	}

	doc, err := i.Docs.Put(ctx, filepath.Base(abs), string(content), docType)
	if err != nil {
		return out, err
	}
	i.seen[hashHex] = doc.ID

	i.Logger.Info("ingest.ok", "path", abs, "document_id", doc.ID, "type", string(docType), "bytes", len(content))
	return IngestionResult{
		SourcePath: abs,
		DocumentID: doc.ID,
		DocType:    docType,
		HashHex:    hashHex,
		UploadedAt: doc.UploadedAt,
	}, nil
}

func (i *FSIngestor) readLimited(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer func(f *os.File) {
		if err := f.Close(); err != nil {
			i.Logger.Warn("ingest.close_failed", "path", path, "error", err)
		}
	}(f)

	limit := i.MaxFileBytes
	if limit <= 0 {
		limit = DefaultMaxFileBytes
	}
	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, common.NewAppError("FILE_TOO_LARGE", fmt.Sprintf("document exceeds %d bytes", limit), common.ErrInvalidInput)
	}
	return data, nil
}

// IngestDirectory walks root, skips hidden if requested,
// and calls IngestPath for each file. Returns per-file results + aggregate stats.
func (i *FSIngestor) IngestDirectory(ctx context.Context, root string, skipHidden bool) ([]IngestionResult, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, common.NewAppError("INVALID_ARGUMENT", "root path is required", common.ErrInvalidInput)
	}

	var results []IngestionResult
	var stats DirStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			results = append(results, IngestionResult{SourcePath: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if skipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			return nil
		}
		if !AllowedExt(filepath.Ext(path)) {
			return nil
		}
		stats.Matched++

		r, err := i.IngestPath(ctx, path)
		if err != nil {
			i.Logger.Warn("ingest.failed", "path", path, "error", err)
			results = append(results, IngestionResult{SourcePath: path, Err: err.Error()})
			stats.Failed++
			return nil
		}

		results = append(results, r)
		stats.Succeeded++
		if r.Deduplicated {
			stats.Deduplicated++
		}
		return nil
	})

	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return results, stats, err
		}
		return results, stats, fmt.Errorf("walk: %w", err)
	}
	i.Logger.Info("ingest.directory.ok", "root", root,
		"scanned", stats.Scanned, "matched", stats.Matched, "succeeded", stats.Succeeded,
		"deduplicated", stats.Deduplicated, "failed", stats.Failed)
	return results, stats, nil
}
