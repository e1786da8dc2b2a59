package constants

import (
	"path/filepath"
	"strings"
)

// DocumentType classifies an uploaded tax document.
type DocumentType string

const (
	W2        DocumentType = "w2"
	Form1099  DocumentType = "1099"
	Form1095  DocumentType = "1095"
	ScheduleC DocumentType = "schedule_c"
	ScheduleD DocumentType = "schedule_d"
	ScheduleE DocumentType = "schedule_e"
	Form1040  DocumentType = "form_1040"
	OtherDoc  DocumentType = "other"
)

var allDocumentTypes = []DocumentType{
	W2,
	Form1099,
	Form1095,
	ScheduleC,
	ScheduleD,
	ScheduleE,
	Form1040,
	OtherDoc,
}

func DocumentTypeStrings() []string {
	result := make([]string, len(allDocumentTypes))
	for i, t := range allDocumentTypes {
		result[i] = string(t)
	}
	return result
}

func (t DocumentType) Valid() bool {
	for _, known := range allDocumentTypes {
		if t == known {
			return true
		}
	}
	return false
}

// CanonicalizeDocumentType accepts the enum value or a common spelling of it.
func CanonicalizeDocumentType(input string) (DocumentType, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		return OtherDoc, false
	}

	synonyms := map[string]DocumentType{
		"w-2":        W2,
		"1099-nec":   Form1099,
		"1099-int":   Form1099,
		"1099-div":   Form1099,
		"1099-misc":  Form1099,
		"1095-a":     Form1095,
		"1095-b":     Form1095,
		"1095-c":     Form1095,
		"schedule c": ScheduleC,
		"schedule d": ScheduleD,
		"schedule e": ScheduleE,
		"1040":       Form1040,
		"form 1040":  Form1040,
	}
	if t, ok := synonyms[normalized]; ok {
		return t, true
	}
	for _, t := range allDocumentTypes {
		if normalized == string(t) {
			return t, true
		}
	}
	return OtherDoc, false
}

// DocumentTypeFromFilename guesses the type from a file name such as
// "2024_W-2_acme.txt" or "schedule_c.txt". Unrecognized names map to OtherDoc.
func DocumentTypeFromFilename(name string) DocumentType {
	base := strings.ToLower(strings.TrimSuffix(filepath.Base(name), filepath.Ext(name)))
	base = strings.NewReplacer("-", "", "_", "", " ", "", ".", "").Replace(base)

	// longest markers first so "schedulec" wins over "c"
	switch {
	case strings.Contains(base, "schedulec"):
		return ScheduleC
	case strings.Contains(base, "scheduled"):
		return ScheduleD
	case strings.Contains(base, "schedulee"):
		return ScheduleE
	case strings.Contains(base, "w2"):
		return W2
	case strings.Contains(base, "1099"):
		return Form1099
	case strings.Contains(base, "1095"):
		return Form1095
	case strings.Contains(base, "1040"):
		return Form1040
	}
	return OtherDoc
}
