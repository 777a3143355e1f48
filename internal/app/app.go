// Package app wires configuration into a ready-to-use processing stack.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/graceskyliz/ocr3/internal/common"
	"github.com/graceskyliz/ocr3/internal/core"
	"github.com/graceskyliz/ocr3/internal/extract"
	"github.com/graceskyliz/ocr3/internal/llm"
	"github.com/graceskyliz/ocr3/internal/llm/gemini"
	"github.com/graceskyliz/ocr3/internal/llm/openai"
	"github.com/graceskyliz/ocr3/internal/ocr"
	"github.com/graceskyliz/ocr3/internal/repository"
	"github.com/graceskyliz/ocr3/internal/storage"
)

// App holds the opened database, repositories and the processor.
type App struct {
	Config      *common.Config
	DB          *repository.DB
	Documents   repository.DocumentRepository
	Extractions repository.ExtractionRepository
	Invoices    repository.InvoiceRepository
	Providers   repository.ProviderRepository
	Processor   *core.Processor

	logger  *slog.Logger
	closers []func()
}

// New opens the store and builds every engine the config enables.
// Call Close when done.
func New(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{Config: cfg, logger: logger}

	db, err := repository.Open(ctx, repository.Config{
		Driver:           cfg.Database.Driver,
		DSN:              cfg.Database.DSN,
		MaxConns:         cfg.Database.MaxConns,
		MinConns:         cfg.Database.MinConns,
		MaxConnLifetime:  cfg.Database.MaxConnLifetime,
		MaxConnIdleTime:  cfg.Database.MaxConnIdleTime,
		DialTimeout:      cfg.Database.DialTimeout,
		StatementTimeout: cfg.Database.StatementTimeout,
	}, logger)
	if err != nil {
		return nil, common.Database("open", err)
	}
	a.DB = db
	a.closers = append(a.closers, func() { db.Close(logger) })

	if cfg.Database.AutoMigrate {
		if err := db.Migrate(ctx, logger); err != nil {
			a.Close()
			return nil, common.Database("migrate", err)
		}
	}

	a.Documents = repository.NewDocumentRepository(db, logger)
	a.Extractions = repository.NewExtractionRepository(db, logger)
	a.Invoices = repository.NewInvoiceRepository(db, logger)
	a.Providers = repository.NewProviderRepository(db, logger)

	fetcher, err := a.storage(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	textEngine, err := extract.ParseEngineKind(cfg.Pipeline.TextEngine)
	if err != nil {
		a.Close()
		return nil, common.NewAppError(common.CodeConfig, err.Error(), common.ErrInvalidInput)
	}

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

	engines := extract.Engines{
		Pattern: extract.NewPatternEngine(recognizer, logger),
		Tabular: extract.NewTabularEngine(logger),
	}
	if textEngine == extract.EngineVision {
		backend, err := a.visionBackend(ctx)
		if err != nil {
			a.Close()
			return nil, err
		}
		engines.Vision = extract.NewVisionEngine(backend, recognizer, extract.VisionConfig{
			DefaultConfidence: cfg.Vision.DefaultConfidence,
		}, logger)
	}

	a.Processor = core.NewProcessor(logger,
		a.Documents,
		a.Extractions,
		repository.NewMaterializer(db, logger),
		fetcher,
		extract.Router{TextEngine: textEngine},
		engines,
		cfg.Pipeline.ProcessTimeout,
	)
	logger.Info("app.ready",
		"db_driver", cfg.Database.Driver,
		"text_engine", textEngine.String(),
		"vision_provider", cfg.Vision.Provider,
		"s3", cfg.Storage.S3Bucket != "",
	)
	return a, nil
}

func (a *App) storage(ctx context.Context) (storage.Fetcher, error) {
	r := storage.Resolver{Local: storage.NewLocalStore(a.Config.Storage.LocalRoot, a.logger)}
	if a.Config.Storage.S3Bucket == "" && a.Config.Storage.S3Region == "" {
		return r, nil
	}
	s3, err := storage.NewS3Store(ctx, storage.S3Config{
		Bucket: a.Config.Storage.S3Bucket,
		Region: a.Config.Storage.S3Region,
		TmpDir: a.Config.Pipeline.TmpDir,
	}, a.logger)
	if err != nil {
		return nil, common.Backend("s3", err)
	}
	r.S3 = s3
	return r, nil
}

func (a *App) visionBackend(ctx context.Context) (llm.VisionBackend, error) {
	v := a.Config.Vision
	switch v.Provider {
	case "gemini":
		c, err := gemini.NewClient(ctx, gemini.Config{
			APIKey:      v.GeminiAPIKey,
			Model:       v.GeminiModel,
			Temperature: v.Temperature,
			Timeout:     v.Timeout,
		}, a.logger)
		if err != nil {
			return nil, common.Backend("gemini", err)
		}
		a.closers = append(a.closers, func() { _ = c.Close() })
		return c, nil
	case "openai":
		return openai.NewClient(openai.Config{
			APIKey:      v.OpenAIAPIKey,
			BaseURL:     v.OpenAIBaseURL,
			Model:       v.OpenAIModel,
			Temperature: v.Temperature,
			Timeout:     v.Timeout,
		}, a.logger), nil
	}
	return nil, common.NewAppError(common.CodeConfig, fmt.Sprintf("unknown vision provider %q", v.Provider), common.ErrInvalidInput)
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
