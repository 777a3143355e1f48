package constants

import "strings"

// Format is the coarse file family used to route a document to an engine.
type Format string

const (
	PDF         Format = "PDF"
	IMAGE       Format = "IMAGE"
	SPREADSHEET Format = "SPREADSHEET"
	TXT         Format = "TXT"
)

// AllowedExtensions holds the extensions accepted by directory ingest.
var AllowedExtensions = map[string]Format{
	"pdf":  PDF,
	"jpg":  IMAGE,
	"jpeg": IMAGE,
	"png":  IMAGE,
	"tif":  IMAGE,
	"tiff": IMAGE,
	"webp": IMAGE,
	"xlsx": SPREADSHEET,
	"xlsm": SPREADSHEET,
	"txt":  TXT,
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}

// MapExtToFormat returns the format for an extension, or "" when unsupported.
func MapExtToFormat(ext string) Format {
	return AllowedExtensions[NormalizeExt(ext)]
}

// ParseFormat accepts a declared format ("pdf", "image", "excel", "xlsx", ...).
func ParseFormat(s string) Format {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pdf":
		return PDF
	case "image", "img", "jpg", "jpeg", "png", "tif", "tiff", "webp":
		return IMAGE
	case "excel", "xlsx", "xlsm", "spreadsheet", "sheet":
		return SPREADSHEET
	case "txt", "text":
		return TXT
	}
	return ""
}
