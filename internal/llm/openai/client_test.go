package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graceskyliz/ocr3/constants"
	"github.com/graceskyliz/ocr3/internal/llm"
)

func TestExtractDocument_SendsImageAndReturnsContent(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":" {\"invoice\":{\"total\":\"10.00\"}} "}}]}`))
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "k", BaseURL: srv.URL, Model: "m"}, nil)
	out, err := c.ExtractDocument(context.Background(), llm.VisionRequest{
		Kind: constants.KindReceipt, MimeType: "image/jpeg", Data: []byte{0xff, 0xd8},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"invoice":{"total":"10.00"}}`, string(out))

	assert.Equal(t, "m", got["model"])
	msgs := got["messages"].([]any)
	require.Len(t, msgs, 2)
	content := msgs[1].(map[string]any)["content"].([]any)
	img := content[1].(map[string]any)["image_url"].(map[string]any)["url"].(string)
	assert.True(t, strings.HasPrefix(img, "data:image/jpeg;base64,"))
	assert.Contains(t, content[0].(map[string]any)["text"], "boleta")
}

func TestExtractDocument_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "k", BaseURL: srv.URL}, nil)
	_, err := c.ExtractDocument(context.Background(), llm.VisionRequest{Data: []byte("x")})
	require.Error(t, err)
}

func TestExtractDocument_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "k", BaseURL: srv.URL}, nil)
	_, err := c.ExtractDocument(context.Background(), llm.VisionRequest{Data: []byte("x")})
	require.Error(t, err)
	assert.Equal(t, constants.EngineOpenAI, c.Name())
}
