package gemini

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImageFormat(t *testing.T) {
	cases := map[string]string{"image/png": "png", "image/JPEG": "jpeg", "image/webp": "webp", "": "png"}
	for in, want := range cases {
		got, err := imageFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := imageFormat("application/pdf")
	require.Error(t, err)
}

func TestNewClient_RequiresKey(t *testing.T) {
	_, err := NewClient(context.Background(), Config{}, nil)
	require.Error(t, err)
}
