package filing

import (
	"log/slog"
	"time"

	"github.com/joseph-ayodele/tax-filing-buddy/constants"
	"github.com/joseph-ayodele/tax-filing-buddy/internal/entity"
	"github.com/joseph-ayodele/tax-filing-buddy/internal/forms"
)

// Assembler renders every required form plus the summary. The result is
// all-or-nothing: a failed form discards the others.
type Assembler struct {
	logger *slog.Logger
}

func NewAssembler(logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assembler{logger: logger}
}

func (a *Assembler) Assemble(data entity.ExtractedFilingData, tax entity.CalculatedTax, format constants.OutputFormat) ([]entity.GeneratedForm, entity.FilingSummary, error) {
	start := time.Now()
	fig := forms.Figures{Filing: data, Tax: tax}

	required := forms.Required(data)
	out := make([]entity.GeneratedForm, 0, len(required))
	for _, f := range required {
		gf, err := f.Render(fig, format)
		if err != nil {
			a.logger.Error("filing.assemble.render_error", "form", f.Number, "format", string(format), "error", err)
			return nil, entity.FilingSummary{}, err
		}
		out = append(out, gf)
	}

	summary := Summarize(data, tax)
	a.logger.Info("filing.assemble.ok",
		"forms", len(out),
		"format", string(format),
		"tax_owed", summary.TaxOwed,
		"refund", summary.RefundAmount,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, summary, nil
}
