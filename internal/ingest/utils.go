package ingest

import (
	"path/filepath"
	"strings"

	"github.com/graceskyliz/ocr3/constants"
)

// AllowedExt checks if a file extension is one the engines can read.
func AllowedExt(ext string) bool {
	return constants.MapExtToFormat(ext) != ""
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") && base != "." && base != ".."
}

// kindFromFolder reads a declared kind off the parent directory name,
// e.g. ".../facturas/F001-12.pdf" or ".../boletas/b.jpg".
func kindFromFolder(path string) string {
	dir := strings.ToLower(filepath.Base(filepath.Dir(path)))
	dir = strings.TrimSuffix(dir, "s")
	return string(constants.ParseKind(dir))
}
