package entity

import (
	"time"

	"github.com/joseph-ayodele/tax-filing-buddy/constants"
)

// TaxDocument is an uploaded source document. Stores hand out copies; a
// document never changes after upload.
type TaxDocument struct {
	ID         string                 `json:"id"`
	Type       constants.DocumentType `json:"type"`
	Filename   string                 `json:"filename"`
	Content    string                 `json:"content"`
	UploadedAt time.Time              `json:"uploadedAt"`
}
