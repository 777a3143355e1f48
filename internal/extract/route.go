package extract

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/graceskyliz/ocr3/constants"
	"github.com/graceskyliz/ocr3/internal/common"
)

// EngineKind tags which engine variant handles a document.
type EngineKind int

const (
	EngineUnknown EngineKind = iota
	EnginePattern
	EngineVision
	EngineTabular
)

func (k EngineKind) String() string {
	switch k {
	case EnginePattern:
		return "pattern"
	case EngineVision:
		return "vision"
	case EngineTabular:
		return "tabular"
	}
	return "unknown"
}

// ParseEngineKind accepts the configured text engine name.
func ParseEngineKind(s string) (EngineKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pattern", "ocr", "tesseract", "local":
		return EnginePattern, nil
	case "vision", "gemini", "openai":
		return EngineVision, nil
	case "tabular", "excel":
		return EngineTabular, nil
	}
	return EngineUnknown, fmt.Errorf("unknown engine %q", s)
}

// Route is the dispatch decision for one document.
type Route struct {
	Engine EngineKind
	Kind   constants.DocumentKind // "" means detect from recognized text
	Reason string                 // "declared-kind" | "declared-format" | "extension" | "sniffed"
}

// Router decides the engine by declared kind, then declared format, then
// file extension, then content sniffing.
type Router struct {
	// TextEngine handles PDFs and images: EnginePattern or EngineVision.
	TextEngine EngineKind
}

func (r Router) Resolve(src Source) (Route, error) {
	kind := textKind(src.DeclaredKind)

	if src.DeclaredKind == constants.KindSpreadsheet {
		return Route{Engine: EngineTabular, Kind: constants.KindSpreadsheet, Reason: "declared-kind"}, nil
	}
	if src.DeclaredFormat != "" {
		if e, ok := r.forFormat(src.DeclaredFormat); ok {
			return r.route(e, kind, "declared-format"), nil
		}
	}
	if f := constants.MapExtToFormat(filepath.Ext(src.Filename)); f != "" {
		e, _ := r.forFormat(f)
		return r.route(e, kind, "extension"), nil
	}
	if f := constants.MapExtToFormat(filepath.Ext(src.Path)); f != "" {
		e, _ := r.forFormat(f)
		return r.route(e, kind, "extension"), nil
	}

	if f := sniffFormat(src); f != "" {
		e, _ := r.forFormat(f)
		return r.route(e, kind, "sniffed"), nil
	}
	return Route{}, common.Unsupported("no engine handles %q", src.Filename)
}

func (r Router) route(e EngineKind, kind constants.DocumentKind, reason string) Route {
	if e == EngineTabular {
		kind = constants.KindSpreadsheet
	}
	return Route{Engine: e, Kind: kind, Reason: reason}
}

func (r Router) forFormat(f constants.Format) (EngineKind, bool) {
	switch f {
	case constants.SPREADSHEET:
		return EngineTabular, true
	case constants.TXT:
		return EnginePattern, true
	case constants.PDF, constants.IMAGE:
		if r.TextEngine == EngineVision {
			return EngineVision, true
		}
		return EnginePattern, true
	}
	return EngineUnknown, false
}

func textKind(k constants.DocumentKind) constants.DocumentKind {
	if k == constants.KindInvoice || k == constants.KindReceipt {
		return k
	}
	return ""
}

// sniffFormat inspects the file content when the name says nothing useful.
func sniffFormat(src Source) constants.Format {
	var mt *mimetype.MIME
	if src.Path != "" {
		if m, err := mimetype.DetectFile(src.Path); err == nil {
			mt = m
		}
	}
	if mt == nil && src.MimeType != "" {
		return formatForMIME(src.MimeType)
	}
	if mt == nil {
		return ""
	}
	return formatForMIME(mt.String())
}

func formatForMIME(m string) constants.Format {
	m = strings.ToLower(strings.TrimSpace(strings.SplitN(m, ";", 2)[0]))
	switch {
	case m == "application/pdf":
		return constants.PDF
	case strings.HasPrefix(m, "image/"):
		return constants.IMAGE
	case m == "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		m == "application/vnd.ms-excel.sheet.macroenabled.12":
		return constants.SPREADSHEET
	case m == "text/plain":
		return constants.TXT
	}
	return ""
}

// Engines holds one implementation per variant.
type Engines struct {
	Pattern Engine
	Vision  Engine
	Tabular Engine
}

// For returns the engine bound to a route.
func (e Engines) For(r Route) (Engine, error) {
	var eng Engine
	switch r.Engine {
	case EnginePattern:
		eng = e.Pattern
	case EngineVision:
		eng = e.Vision
	case EngineTabular:
		eng = e.Tabular
	}
	if eng == nil {
		return nil, common.Unsupported("%s engine is not configured", r.Engine)
	}
	return eng, nil
}
