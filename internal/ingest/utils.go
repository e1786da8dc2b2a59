package ingest

import (
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/tax-filing-buddy/constants"
)

// AllowedExt checks if a file extension is in the allowed set (txt/text/md).
func AllowedExt(ext string) bool {
	ext = constants.NormalizeExt(ext)
	_, ok := constants.AllowedExtensions[ext]
	return ok
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return base != "." && base != ".." && strings.HasPrefix(base, ".")
}
