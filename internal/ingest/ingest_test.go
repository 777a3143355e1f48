package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graceskyliz/ocr3/internal/common"
	"github.com/graceskyliz/ocr3/internal/repository"
)

func newRepo(t *testing.T) repository.DocumentRepository {
	t.Helper()
	ctx := context.Background()
	db, err := repository.OpenSQLite(ctx, "file:"+filepath.Join(t.TempDir(), "ingest.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close(nil) })
	require.NoError(t, db.Migrate(ctx, nil))
	return repository.NewDocumentRepository(db, nil)
}

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestFSIngestor_IngestDirectory(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	write(t, filepath.Join(root, "facturas", "f1.txt"), "RUC 20601234565 TOTAL S/ 10.00")
	write(t, filepath.Join(root, "boletas", "b1.txt"), "BOLETA TOTAL S/ 5.00")
	write(t, filepath.Join(root, "zz-copia.txt"), "RUC 20601234565 TOTAL S/ 10.00")
	write(t, filepath.Join(root, "notas.docx"), "ignored")
	write(t, filepath.Join(root, ".cache", "x.pdf"), "%PDF-1.4")

	repo := newRepo(t)
	ing := NewFSIngestor(repo, nil)
	results, stats, err := ing.IngestDirectory(ctx, "tenant-a", root, true)
	require.NoError(t, err)

	assert.EqualValues(t, 3, stats.Matched)
	assert.EqualValues(t, 3, stats.Succeeded)
	assert.EqualValues(t, 1, stats.Deduplicated)
	assert.EqualValues(t, 0, stats.Failed)
	require.Len(t, results, 3)

	byPath := map[string]IngestionResult{}
	for _, r := range results {
		byPath[filepath.Base(r.SourcePath)] = r
	}
	assert.Equal(t, "invoice", byPath["f1.txt"].DeclaredKind)
	assert.Equal(t, "receipt", byPath["b1.txt"].DeclaredKind)
	assert.Equal(t, byPath["f1.txt"].DocumentID, byPath["zz-copia.txt"].DocumentID)
	assert.Contains(t, byPath["b1.txt"].Mime, "text/plain")

	id, err := uuid.Parse(byPath["b1.txt"].DocumentID)
	require.NoError(t, err)
	doc, err := repo.Get(ctx, id)
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(doc.StorageKey))
	assert.Len(t, doc.SHA256, 64)
	assert.EqualValues(t, len("BOLETA TOTAL S/ 5.00"), doc.SizeBytes)
}

func TestFSIngestor_IngestPathRejects(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	docx := filepath.Join(root, "a.docx")
	write(t, docx, "x")

	ing := NewFSIngestor(newRepo(t), nil)
	_, err := ing.IngestPath(ctx, "tenant-a", docx)
	assert.ErrorIs(t, err, common.ErrUnsupportedFormat)

	_, err = ing.IngestPath(ctx, "", docx)
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	_, _, err = ing.IngestDirectory(ctx, "tenant-a", " ", false)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestKindFromFolder(t *testing.T) {
	assert.Equal(t, "invoice", kindFromFolder("/x/Facturas/a.pdf"))
	assert.Equal(t, "receipt", kindFromFolder("/x/boleta/a.pdf"))
	assert.Equal(t, "", kindFromFolder("/x/misc/a.pdf"))
}

func TestStartWatcher_EmitsInitialAndNewFiles(t *testing.T) {
	root := t.TempDir()
	write(t, filepath.Join(root, "old.pdf"), "%PDF-1.4")
	write(t, filepath.Join(root, "skip.docx"), "x")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, _, err := StartWatcher(ctx, WatchConfig{Roots: []string{root}, InitialScan: true, Debounce: 20 * time.Millisecond})
	require.NoError(t, err)

	next := func() string {
		select {
		case p := <-events:
			return p
		case <-time.After(3 * time.Second):
			t.Fatal("timed out waiting for watcher event")
			return ""
		}
	}
	assert.Equal(t, filepath.Join(root, "old.pdf"), next())

	write(t, filepath.Join(root, "new.png"), "png")
	assert.Equal(t, filepath.Join(root, "new.png"), next())

	cancel()
	for range events {
	}
}

func TestStartWatcher_NoRoots(t *testing.T) {
	_, _, err := StartWatcher(context.Background(), WatchConfig{})
	assert.Error(t, err)
}
