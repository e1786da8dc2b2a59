package llm

import (
	"context"

	"github.com/joseph-ayodele/tax-filing-buddy/constants"
	"github.com/joseph-ayodele/tax-filing-buddy/internal/entity"
)

// SourceDocument is one document handed to an extractor, in caller order.
type SourceDocument struct {
	Filename string
	Type     constants.DocumentType
	Content  string
}

type ExtractRequest struct {
	Documents    []SourceDocument
	FilingStatus constants.FilingStatus
	TaxYear      int
}

// Extractor is the interface the pipeline depends on. Implementations return
// the parsed filing data together with the raw JSON they validated.
type Extractor interface {
	Extract(ctx context.Context, req ExtractRequest) (entity.ExtractedFilingData, []byte /*rawJSON*/, error)
}

// SourcesFrom keeps the order of docs.
func SourcesFrom(docs []entity.TaxDocument) []SourceDocument {
	out := make([]SourceDocument, 0, len(docs))
	for _, d := range docs {
		out = append(out, SourceDocument{Filename: d.Filename, Type: d.Type, Content: d.Content})
	}
	return out
}
