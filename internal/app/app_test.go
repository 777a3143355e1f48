package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graceskyliz/ocr3/constants"
	"github.com/graceskyliz/ocr3/internal/common"
	"github.com/graceskyliz/ocr3/internal/entity"
)

func testConfig(t *testing.T) *common.Config {
	t.Helper()
	cfg := common.LoadConfig()
	cfg.Database.Driver = "sqlite"
	cfg.Database.DSN = "file:" + filepath.Join(t.TempDir(), "app.db")
	cfg.Database.AutoMigrate = true
	cfg.Storage.LocalRoot = t.TempDir()
	cfg.Storage.S3Bucket = ""
	cfg.Storage.S3Region = ""
	cfg.Pipeline.TextEngine = "pattern"
	cfg.Pipeline.ProcessTimeout = time.Minute
	return cfg
}

func TestNew_ProcessesLocalTextDocument(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	a, err := New(ctx, cfg, nil)
	require.NoError(t, err)
	defer a.Close()

	path := filepath.Join(cfg.Storage.LocalRoot, "f.txt")
	require.NoError(t, os.WriteFile(path, []byte("RUC: 20601234565\nFACTURA F001-7\nFecha: 05/01/2025\nTOTAL S/ 100.00\n"), 0o644))
	doc := &entity.Document{TenantID: "t1", Filename: "f.txt", StorageKey: "f.txt"}
	require.NoError(t, a.Documents.Create(ctx, doc))

	res, err := a.Processor.Process(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.EnginePattern, res.Engine)

	provs, err := a.Providers.List(ctx, "t1")
	require.NoError(t, err)
	assert.Len(t, provs, 1)
}

func TestNew_VisionWithOpenAIBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.Pipeline.TextEngine = "vision"
	cfg.Vision.Provider = "openai"
	cfg.Vision.OpenAIAPIKey = "test-key"

	a, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	a.Close()
}

func TestNew_RejectsUnknownSettings(t *testing.T) {
	cfg := testConfig(t)
	cfg.Pipeline.TextEngine = "magic"
	_, err := New(context.Background(), cfg, nil)
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	cfg = testConfig(t)
	cfg.Pipeline.TextEngine = "vision"
	cfg.Vision.Provider = "carrier-pigeon"
	_, err = New(context.Background(), cfg, nil)
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	cfg = testConfig(t)
	cfg.Pipeline.TextEngine = "vision"
	cfg.Vision.Provider = "gemini"
	cfg.Vision.GeminiAPIKey = ""
	_, err = New(context.Background(), cfg, nil)
	assert.ErrorIs(t, err, common.ErrBackend)
}
