// Package gemini implements llm.VisionBackend on Google Gemini.
package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/graceskyliz/ocr3/constants"
	"github.com/graceskyliz/ocr3/internal/llm"
)

type Config struct {
	APIKey      string
	Model       string // default "gemini-1.5-flash"
	Temperature float32
	Timeout     time.Duration
}

type Client struct {
	cfg    Config
	client *genai.Client
	model  *genai.GenerativeModel
	log    *slog.Logger
}

// NewClient creates a Gemini-backed vision client.
func NewClient(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-1.5-flash"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	model := client.GenerativeModel(cfg.Model)
	model.SetTemperature(cfg.Temperature)

	return &Client{cfg: cfg, client: client, model: model, log: logger}, nil
}

func (c *Client) Name() string { return constants.EngineGemini }

// ExtractDocument sends the page image with the kind-specific prompt and returns
// the concatenated text parts of the first candidate.
func (c *Client) ExtractDocument(ctx context.Context, req llm.VisionRequest) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()
	start := time.Now()

	format, err := imageFormat(req.MimeType)
	if err != nil {
		return nil, err
	}
	parts := []genai.Part{
		genai.ImageData(format, req.Data),
		genai.Text(llm.BuildVisionPrompt(req.Kind)),
	}

	c.log.Info("llm.extract.start", "backend", c.Name(), "model", c.cfg.Model, "kind", req.Kind, "image_bytes", len(req.Data))
	resp, err := c.model.GenerateContent(ctx, parts...)
	if err != nil {
		c.log.Error("llm.extract.generate_failed", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, fmt.Errorf("generating content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("no response from gemini")
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	c.log.Info("llm.extract.ok", "backend", c.Name(), "chars", b.Len(), "elapsed_ms", time.Since(start).Milliseconds())
	return []byte(strings.TrimSpace(b.String())), nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

// imageFormat maps a MIME type to the suffix genai.ImageData expects ("png", not "image/png").
func imageFormat(mimeType string) (string, error) {
	switch strings.ToLower(mimeType) {
	case "image/png", "":
		return "png", nil
	case "image/jpeg", "image/jpg":
		return "jpeg", nil
	case "image/webp":
		return "webp", nil
	}
	return "", fmt.Errorf("gemini: unsupported image type %q", mimeType)
}
