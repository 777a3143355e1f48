package ocr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"github.com/graceskyliz/ocr3/constants"
)

// extractPDF prefers the embedded text layer and rasterizes only scanned PDFs.
func (e *Extractor) extractPDF(ctx context.Context, path string) (ExtractionResult, error) {
	res := ExtractionResult{SourceType: constants.PDF, Language: e.cfg.TesseractLang}

	text, pages, warn, err := e.pdfToText(ctx, path)
	res.Warnings = append(res.Warnings, warn...)
	if err == nil && countVisible(text) >= e.cfg.MinPDFTextChars {
		res.Text, res.Pages, res.Method = text, pages, "pdf-text"
		return res, nil
	}
	if err != nil {
		res.Warnings = append(res.Warnings, "pdftotext: "+err.Error())
	}

	text, pages, warn, err = e.pdfToOCR(ctx, path)
	res.Warnings = append(res.Warnings, warn...)
	res.Method = "pdf-ocr"
	if err != nil {
		return res, err
	}
	res.Text, res.Pages = text, pages
	return res, nil
}

func (e *Extractor) pdfToText(ctx context.Context, path string) (text string, pages int, warnings []string, err error) {
	// pdftotext -layout -enc UTF-8 -eol unix <path> -
	out, errb, err := e.runner.Run(ctx, e.cfg.Pdftotext, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		return "", 0, []string{string(errb)}, err
	}
	text = string(out)
	// A form-feed \f is used as page separator by default
	pages = 1 + strings.Count(strings.TrimRight(text, "\f"), "\f")
	return text, pages, nil, nil
}

func (e *Extractor) pdfToOCR(ctx context.Context, path string) (text string, pages int, warnings []string, err error) {
	tmpDir, err := os.MkdirTemp("", "ocr3-pp-*")
	if err != nil {
		return "", 0, nil, err
	}
	defer func() {
		if rmErr := os.RemoveAll(tmpDir); rmErr != nil {
			e.logger.Warn("ocr.tmp.cleanup_failed", "dir", tmpDir, "error", rmErr)
		}
	}()

	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -r 300 -png <in.pdf> <tmp/page>
	_, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm, "-r", fmt.Sprintf("%d", e.cfg.DPI), "-png", path, prefix)
	if err != nil {
		return "", 0, []string{string(errb)}, fmt.Errorf("pdftoppm: %w", err)
	}

	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if e.cfg.MaxPages > 0 && len(matches) > e.cfg.MaxPages {
		matches = matches[:e.cfg.MaxPages]
	}
	if len(matches) == 0 {
		return "", 0, []string{"pdftoppm produced no images"}, fmt.Errorf("no pages rendered")
	}

	var b strings.Builder
	var warns []string
	for _, img := range matches {
		txt, w, err := e.tesseractOCR(ctx, img)
		warns = append(warns, w...)
		if err != nil {
			warns = append(warns, err.Error())
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\f\n")
		}
		b.WriteString(txt)
	}
	if b.Len() == 0 {
		return "", len(matches), warns, fmt.Errorf("tesseract produced no text for %d pages", len(matches))
	}
	return b.String(), len(matches), warns, nil
}

func countVisible(s string) int {
	n := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}

// RenderPage rasterizes one PDF page (1-based) to a PNG in a temp dir. The
// returned cleanup removes it.
func (e *Extractor) RenderPage(ctx context.Context, path string, page int) (string, func(), error) {
	if page <= 0 {
		page = 1
	}
	tmpDir, err := os.MkdirTemp("", "ocr3-page-*")
	if err != nil {
		return "", nil, err
	}
	cleanup := func() { _ = os.RemoveAll(tmpDir) }

	prefix := filepath.Join(tmpDir, "page")
	p := fmt.Sprintf("%d", page)
	// pdftoppm -r <dpi> -png -f N -l N -singlefile <in.pdf> <tmp/page>
	_, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm, "-r", fmt.Sprintf("%d", e.cfg.DPI), "-png", "-f", p, "-l", p, "-singlefile", path, prefix)
	if err != nil {
		cleanup()
		return "", nil, fmt.Errorf("pdftoppm: %w: %s", err, truncate(string(errb), 512))
	}
	out := prefix + ".png"
	if _, err := os.Stat(out); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("pdftoppm produced no image for page %d", page)
	}
	return out, cleanup, nil
}
