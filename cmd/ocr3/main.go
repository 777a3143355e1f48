package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/graceskyliz/ocr3/internal/app"
	"github.com/graceskyliz/ocr3/internal/common"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "error: loading .env: %v\n", err)
		os.Exit(1)
	}
	cfg := common.LoadConfig()

	flags := ff.NewFlagSet("ocr3")
	var (
		documentID = flags.StringLong("document", "", "ID of the registered document to process (required)")
		dbDriver   = flags.StringLong("db-driver", cfg.Database.Driver, "Database driver: 'pgx' or 'sqlite'")
		dbURL      = flags.StringLong("db-url", cfg.Database.DSN, "Database DSN (or DB_URL)")
		migrate    = flags.BoolLong("migrate", "Apply the schema before processing")
		textEngine = flags.StringLong("text-engine", cfg.Pipeline.TextEngine, "Engine for PDFs and images: 'pattern' or 'vision'")
		vision     = flags.StringLong("vision-provider", cfg.Vision.Provider, "Vision backend: 'gemini' or 'openai'")
		root       = flags.StringLong("storage-root", cfg.Storage.LocalRoot, "Root directory for relative storage keys")
		debug      = flags.BoolLong("debug", "Enable debug logging")
	)
	if err := ff.Parse(flags, os.Args[1:], ff.WithEnvVarPrefix("OCR3")); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(flags))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	id, err := uuid.Parse(*documentID)
	if err != nil {
		logger.Error("invalid --document", "value", *documentID, "error", err)
		os.Exit(2)
	}

	cfg.Database.Driver = *dbDriver
	cfg.Database.DSN = *dbURL
	cfg.Database.AutoMigrate = cfg.Database.AutoMigrate || *migrate
	cfg.Pipeline.TextEngine = *textEngine
	cfg.Vision.Provider = *vision
	cfg.Storage.LocalRoot = *root
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	res, err := a.Processor.Process(ctx, id)
	if err != nil {
		st := common.ToStatus(err)
		logger.Error("process failed", "document_id", id, "code", st.Code().String(), "error", err)
		a.Close()
		os.Exit(1)
	}

	out, _ := json.MarshalIndent(res, "", "  ")
	fmt.Println(string(out))
}
