package ingest

import (
	"path/filepath"
	"strings"

	"github.com/goxtopia/PaiCard-Trade-card-generator/constants"
)

// AllowedExt checks if a file extension is an accepted image type.
func AllowedExt(ext string) bool {
	return constants.IsAllowedImage(ext)
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".")
}

// filenameFingerprint strips the extension from a content-addressed filename.
func filenameFingerprint(filename string) string {
	return strings.TrimSuffix(filename, filepath.Ext(filename))
}
