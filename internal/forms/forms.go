package forms

import (
	"fmt"

	"github.com/joseph-ayodele/tax-filing-buddy/constants"
	"github.com/joseph-ayodele/tax-filing-buddy/internal/entity"
)

// Figures are the inputs every renderer reads. Renderers never modify them.
type Figures struct {
	Filing entity.ExtractedFilingData
	Tax    entity.CalculatedTax
}

type renderFunc func(fig Figures) (string, error)

// Form describes one IRS form and how to render it in each output format.
type Form struct {
	Number       string
	Type         string
	Instructions string
	renderers    map[constants.OutputFormat]renderFunc
}

// Render produces the form in format. Unknown formats render as plain text.
func (f Form) Render(fig Figures, format constants.OutputFormat) (entity.GeneratedForm, error) {
	fn, ok := f.renderers[format]
	if !ok {
		format = constants.FormatText
		fn = f.renderers[constants.FormatText]
	}
	content, err := fn(fig)
	if err != nil {
		return entity.GeneratedForm{}, fmt.Errorf("render %s as %s: %w", f.Number, format, err)
	}
	return entity.GeneratedForm{
		FormType:     f.Type,
		FormNumber:   f.Number,
		Format:       format,
		Content:      content,
		Instructions: f.Instructions,
	}, nil
}

// Required lists the forms a filing needs, Form 1040 first.
func Required(filing entity.ExtractedFilingData) []Form {
	out := []Form{Form1040}
	if filing.Income.SelfEmployment > 0 {
		out = append(out, ScheduleC)
	}
	if filing.Income.CapitalGains > 0 {
		out = append(out, ScheduleD)
	}
	return out
}
