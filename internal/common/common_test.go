package common

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
)

func TestToStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want codes.Code
	}{
		{"nil", nil, codes.OK},
		{"not found", NotFound("document %s", "x"), codes.NotFound},
		{"unsupported", Unsupported("no engine for %q", "a.docx"), codes.InvalidArgument},
		{"validation", Validation("missing total"), codes.InvalidArgument},
		{"invalid input", InvalidInput("bad key"), codes.InvalidArgument},
		{"backend", Backend("tesseract", errors.New("exit 1")), codes.Unavailable},
		{"conflict", NewAppError(CodeConflict, "dup", ErrConflict), codes.Aborted},
		{"wrapped deadline", fmt.Errorf("process: %w", context.DeadlineExceeded), codes.DeadlineExceeded},
		{"canceled", context.Canceled, codes.Canceled},
		{"database", Database("insert", errors.New("disk full")), codes.Internal},
		{"plain", errors.New("boom"), codes.Internal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ToStatus(tt.err).Code())
		})
	}
}

func TestAppError(t *testing.T) {
	err := Backend("gemini", errors.New("quota"))
	var app *AppError
	require.True(t, errors.As(err, &app))
	assert.Equal(t, CodeBackend, app.Code)
	assert.ErrorIs(t, err, ErrBackend)
	assert.Contains(t, err.Error(), "quota")

	assert.Nil(t, WrapError(nil, "x"))
	assert.EqualError(t, WrapError(errors.New("inner"), "outer"), "outer: inner")
}

func TestValidator(t *testing.T) {
	neg := decimal.RequireFromString("-1")
	pos := decimal.RequireFromString("10.5")
	usd, bad, unknown := "USD", "usd", "XYZ"
	known := map[string]struct{}{"PEN": {}, "USD": {}}

	v := NewValidator()
	v.Field("engine", "", Required)
	v.Field("total", &neg, NonNegative)
	v.Field("subtotal", &pos, NonNegative)
	v.Field("currency", &usd, CurrencyCode(known))
	v.Field("currency2", &bad, CurrencyCode(known))
	v.Field("currency3", &unknown, CurrencyCode(known))
	v.Field("name", "ñandú", MaxLength(5))
	v.Field("long", "abcdef", MaxLength(5))
	v.Field("absent", (*string)(nil), CurrencyCode(known), MaxLength(1))

	require.True(t, v.HasErrors())
	var fields []string
	for _, e := range v.Errors() {
		fields = append(fields, e.Field)
	}
	assert.Equal(t, []string{"engine", "total", "currency2", "currency3", "long"}, fields)

	err := v.Error()
	assert.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "must not be negative")

	assert.NoError(t, NewValidator().Field("x", "y", Required).Error())
}

func TestCheckRule(t *testing.T) {
	even := Check("must be even length", func(s string) bool { return len(s)%2 == 0 })
	assert.Nil(t, even("f", "ab"))
	assert.NotNil(t, even("f", "abc"))
	assert.Nil(t, even("f", (*string)(nil)))
}

func TestConfigValidate(t *testing.T) {
	base := func() *Config {
		c := LoadConfig()
		c.Database.DSN = "file:x.db"
		c.Database.Driver = "sqlite"
		c.Pipeline.TextEngine = "pattern"
		c.Pipeline.Workers = 2
		return c
	}
	require.NoError(t, base().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no dsn", func(c *Config) { c.Database.DSN = "" }},
		{"bad driver", func(c *Config) { c.Database.Driver = "mysql" }},
		{"bad engine", func(c *Config) { c.Pipeline.TextEngine = "magic" }},
		{"gemini without key", func(c *Config) {
			c.Pipeline.TextEngine = "vision"
			c.Vision.Provider = "gemini"
			c.Vision.GeminiAPIKey = ""
		}},
		{"openai without key", func(c *Config) {
			c.Pipeline.TextEngine = "vision"
			c.Vision.Provider = "openai"
			c.Vision.OpenAIAPIKey = ""
		}},
		{"unknown provider", func(c *Config) {
			c.Pipeline.TextEngine = "vision"
			c.Vision.Provider = "other"
		}},
		{"no workers", func(c *Config) { c.Pipeline.Workers = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(c)
			err := c.Validate()
			require.Error(t, err)
			var app *AppError
			require.True(t, errors.As(err, &app))
			assert.Equal(t, CodeConfig, app.Code)
		})
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("PIPELINE_WORKERS", "7")
	t.Setenv("VISION_PROVIDER", "OpenAI")
	t.Setenv("PIPELINE_PROCESS_TIMEOUT", "90s")
	t.Setenv("OCR_PREPROCESS", "false")
	t.Setenv("DB_MAX_CONNS", "not-a-number")

	c := LoadConfig()
	assert.Equal(t, "sqlite", c.Database.Driver)
	assert.Equal(t, 7, c.Pipeline.Workers)
	assert.Equal(t, "openai", c.Vision.Provider)
	assert.Equal(t, "1m30s", c.Pipeline.ProcessTimeout.String())
	assert.False(t, c.OCR.Preprocess)
	assert.EqualValues(t, 20, c.Database.MaxConns)
}

func TestContextValues(t *testing.T) {
	ctx := WithTenantID(WithRequestID(WithDocumentID(context.Background(), "d1"), "r1"), "t1")
	assert.Equal(t, "d1", DocumentIDFromContext(ctx))
	assert.Equal(t, "r1", RequestIDFromContext(ctx))
	assert.Equal(t, "t1", TenantIDFromContext(ctx))
	assert.Empty(t, TenantIDFromContext(context.Background()))
}
