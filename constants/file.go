package constants

import "strings"

// AllowedExtensions holds the file extensions picked up by directory ingestion.
// Documents are plain text; anything binary needs OCR first.
var AllowedExtensions = map[string]struct{}{
	"txt":  {},
	"text": {},
	"md":   {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
