package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graceskyliz/ocr3/internal/common"
)

type fakeS3 struct {
	objects map[string]string
	input   *s3.GetObjectInput
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.input = in
	body, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}, nil
}

func TestLocalStore_Fetch(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "t1", "d1"), 0o755))
	p := filepath.Join(root, "t1", "d1", "a.pdf")
	require.NoError(t, os.WriteFile(p, []byte("%PDF"), 0o600))

	s := NewLocalStore(root, nil)
	got, err := s.Fetch(context.Background(), "t1/d1/a.pdf")
	require.NoError(t, err)
	assert.Equal(t, p, got.Path)
	got.Cleanup()
	assert.FileExists(t, p)

	got, err = s.Fetch(context.Background(), "file://"+p)
	require.NoError(t, err)
	assert.Equal(t, p, got.Path)
}

func TestLocalStore_Missing(t *testing.T) {
	s := NewLocalStore(t.TempDir(), nil)
	_, err := s.Fetch(context.Background(), "nope.pdf")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestLocalStore_RejectsTraversal(t *testing.T) {
	s := NewLocalStore(t.TempDir(), nil)
	_, err := s.Fetch(context.Background(), "../../etc/passwd")
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestS3Store_FetchAndCleanup(t *testing.T) {
	api := &fakeS3{objects: map[string]string{"bills/t1/a.pdf": "%PDF-1.4"}}
	s := NewS3StoreWithClient(S3Config{TmpDir: t.TempDir()}, api, nil)

	got, err := s.Fetch(context.Background(), "s3://bills/t1/a.pdf")
	require.NoError(t, err)
	assert.Equal(t, ".pdf", filepath.Ext(got.Path))
	b, err := os.ReadFile(got.Path)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(b))

	got.Cleanup()
	assert.NoFileExists(t, got.Path)
}

func TestS3Store_DefaultBucketAndMissingKey(t *testing.T) {
	api := &fakeS3{objects: map[string]string{}}
	s := NewS3StoreWithClient(S3Config{Bucket: "bills", TmpDir: t.TempDir()}, api, nil)

	_, err := s.Fetch(context.Background(), "s3://missing.pdf")
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.Equal(t, "bills", aws.ToString(api.input.Bucket))
	assert.Equal(t, "missing.pdf", aws.ToString(api.input.Key))
}

func TestResolver(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("x"), 0o600))
	r := Resolver{Local: NewLocalStore(root, nil)}

	_, err := r.Fetch(context.Background(), "a.txt")
	require.NoError(t, err)

	_, err = r.Fetch(context.Background(), "s3://b/k")
	assert.ErrorIs(t, err, common.ErrUnsupportedFormat)

	_, err = r.Fetch(context.Background(), "gs://b/k")
	assert.True(t, errors.Is(err, common.ErrUnsupportedFormat))
}

func TestSplitS3(t *testing.T) {
	b, k, err := splitS3("s3://bucket/dir/file.png", "")
	require.NoError(t, err)
	assert.Equal(t, "bucket", b)
	assert.Equal(t, "dir/file.png", k)

	_, _, err = splitS3("s3://onlykey", "")
	assert.Error(t, err)
}
