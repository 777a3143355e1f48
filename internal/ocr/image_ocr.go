package ocr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/graceskyliz/ocr3/constants"
)

var pipeNoise = strings.NewReplacer("|", " ", "¦", " ")

func (e *Extractor) extractImage(ctx context.Context, path string) (ExtractionResult, error) {
	var warn []string
	src := path
	if e.cfg.Preprocess {
		out, cleanup, err := preprocessImage(path)
		if err != nil {
			warn = append(warn, "preprocess skipped: "+err.Error())
		} else {
			defer cleanup()
			src = out
		}
	}

	txt, w, err := e.tesseractOCR(ctx, src)
	warn = append(warn, w...)
	if err != nil {
		return ExtractionResult{SourceType: constants.IMAGE, Method: "image-ocr", Warnings: warn}, err
	}

	var conf float32
	if e.cfg.EnableTSVConfidence {
		if c, err2 := e.tesseractTSVConfidence(ctx, src); err2 == nil {
			conf = c
		} else {
			warn = append(warn, err2.Error())
		}
	}

	return ExtractionResult{
		Text:       txt,
		Pages:      1,
		SourceType: constants.IMAGE,
		Method:     "image-ocr",
		Language:   e.cfg.TesseractLang,
		Warnings:   warn,
		Confidence: conf,
	}, nil
}

// preprocessImage writes a grayscale, contrast-boosted copy for tesseract.
func preprocessImage(path string) (string, func(), error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return "", nil, fmt.Errorf("open image: %w", err)
	}
	img = imaging.Grayscale(img)
	img = imaging.AdjustContrast(img, 30)
	img = imaging.Sharpen(img, 1.2)
	if b := img.Bounds(); b.Dx() > 2500 {
		img = imaging.Resize(img, 2500, 0, imaging.Lanczos)
	}

	tmpDir, err := os.MkdirTemp("", "ocr3-img-*")
	if err != nil {
		return "", nil, err
	}
	cleanup := func() { _ = os.RemoveAll(tmpDir) }
	out := filepath.Join(tmpDir, "page.png")
	if err := imaging.Save(img, out); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("save image: %w", err)
	}
	return out, cleanup, nil
}

func (e *Extractor) tesseractArgs(path string) []string {
	args := []string{path, "stdout", "-l", e.cfg.TesseractLang}
	if e.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(e.cfg.PSM))
	}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}
	return args
}

func (e *Extractor) tesseractOCR(ctx context.Context, path string) (string, []string, error) {
	// tesseract <file> stdout -l <lang>
	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, e.tesseractArgs(path)...)
	if err != nil {
		return "", []string{string(errb)}, fmt.Errorf("tesseract: %w", err)
	}
	return pipeNoise.Replace(string(out)), nil, nil
}

// tesseractTSVConfidence runs tesseract in TSV mode and returns mean word conf in 0..1.
func (e *Extractor) tesseractTSVConfidence(ctx context.Context, path string) (float32, error) {
	args := append(e.tesseractArgs(path), "tsv")
	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, args...)
	if err != nil {
		return 0, fmt.Errorf("tesseract tsv: %w: %s", err, truncate(string(errb), 512))
	}
	return meanTSVConfidence(string(out)), nil
}

func meanTSVConfidence(tsv string) float32 {
	var sum, n float64
	for i, ln := range strings.Split(tsv, "\n") {
		if i == 0 || ln == "" {
			continue
		}
		cols := strings.Split(ln, "\t")
		if len(cols) < 12 {
			continue
		}
		c := cols[10]
		if c == "" || c == "-1" {
			continue
		}
		if v, err := strconv.ParseFloat(c, 64); err == nil && v >= 0 {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return float32(sum / n / 100.0)
}
