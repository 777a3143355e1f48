package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/graceskyliz/ocr3/constants"
	"github.com/graceskyliz/ocr3/internal/common"
	"github.com/graceskyliz/ocr3/internal/extract"
	"github.com/graceskyliz/ocr3/internal/llm"
	"github.com/graceskyliz/ocr3/internal/llm/gemini"
	"github.com/graceskyliz/ocr3/internal/llm/openai"
	"github.com/graceskyliz/ocr3/internal/ocr"
)

// runocr extracts one local file without touching the database and prints the
// parsed document, e.g. `runocr --kind boleta scans/b001.jpg`.
func main() {
	_ = godotenv.Load()
	cfg := common.LoadConfig()

	flags := ff.NewFlagSet("runocr")
	var (
		engine  = flags.StringLong("engine", "pattern", "Engine: 'pattern', 'vision' or 'tabular'")
		kind    = flags.StringLong("kind", "", "Declared kind: 'factura' or 'boleta' (detected when empty)")
		rawText = flags.BoolLong("text", "Print only the recognized text (pattern engine)")
	)
	if err := ff.Parse(flags, os.Args[1:], ff.WithEnvVarPrefix("OCR3")); err != nil || len(flags.GetArgs()) != 1 {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(flags, "runocr [flags] <file>"))
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(2)
	}
	path := flags.GetArgs()[0]

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	recognizer := extract.NewOCRAdapter(ocr.NewExtractor(ocr.Config{
		Pdftotext:           cfg.OCR.Pdftotext,
		Pdftoppm:            cfg.OCR.Pdftoppm,
		Tesseract:           cfg.OCR.Tesseract,
		TesseractLang:       cfg.OCR.Lang,
		TessdataDir:         cfg.OCR.TessdataDir,
		DPI:                 cfg.OCR.DPI,
		Preprocess:          cfg.OCR.Preprocess,
		EnableTSVConfidence: cfg.OCR.TSVConfidence,
	}, logger), logger)

	if *rawText {
		res, err := recognizer.Recognize(ctx, path)
		if err != nil {
			logger.Error("text extraction failed", "path", path, "error", err)
			os.Exit(1)
		}
		logger.Info("text extraction OK",
			"method", res.Method,
			"pages", res.Pages,
			"bytes", len(res.Text),
			"confidence", res.Confidence,
			"duration_ms", res.Duration.Milliseconds(),
		)
		fmt.Println(res.Text)
		return
	}

	kindOf, err := extract.ParseEngineKind(*engine)
	if err != nil {
		logger.Error("invalid --engine", "error", err)
		os.Exit(2)
	}
	var eng extract.Engine
	switch kindOf {
	case extract.EnginePattern:
		eng = extract.NewPatternEngine(recognizer, logger)
	case extract.EngineTabular:
		eng = extract.NewTabularEngine(logger)
	case extract.EngineVision:
		backend, closeFn, err := visionBackend(ctx, cfg.Vision, logger)
		if err != nil {
			logger.Error("vision backend", "error", err)
			os.Exit(1)
		}
		defer closeFn()
		eng = extract.NewVisionEngine(backend, recognizer, extract.VisionConfig{DefaultConfidence: cfg.Vision.DefaultConfidence}, logger)
	}

	start := time.Now()
	src := extract.Source{Path: path, Filename: filepath.Base(path)}
	doc, err := eng.Extract(ctx, src, constants.ParseKind(*kind))
	if err != nil {
		logger.Error("extraction failed", "engine", eng.Name(), "error", err, "duration_ms", time.Since(start).Milliseconds())
		os.Exit(1)
	}
	logger.Info("extraction OK",
		"engine", eng.Name(),
		"kind", doc.DocumentKind,
		"confidence", doc.ConfidenceValue(),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	doc.RawText = ""
	out, _ := json.MarshalIndent(doc, "", "  ")
	fmt.Println(string(out))
}

func visionBackend(ctx context.Context, v common.VisionConfig, logger *slog.Logger) (llm.VisionBackend, func(), error) {
	switch v.Provider {
	case "openai":
		return openai.NewClient(openai.Config{
			APIKey:      v.OpenAIAPIKey,
			BaseURL:     v.OpenAIBaseURL,
			Model:       v.OpenAIModel,
			Temperature: v.Temperature,
			Timeout:     v.Timeout,
		}, logger), func() {}, nil
	case "gemini":
		c, err := gemini.NewClient(ctx, gemini.Config{
			APIKey:      v.GeminiAPIKey,
			Model:       v.GeminiModel,
			Temperature: v.Temperature,
			Timeout:     v.Timeout,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		return c, func() { _ = c.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unknown vision provider %q", v.Provider)
}
