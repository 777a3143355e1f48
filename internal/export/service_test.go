package export

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/graceskyliz/ocr3/constants"
	"github.com/graceskyliz/ocr3/internal/entity"
	"github.com/graceskyliz/ocr3/internal/repository"
)

func seed(t *testing.T) (*repository.DB, string) {
	t.Helper()
	ctx := context.Background()
	db, err := repository.OpenSQLite(ctx, "file:"+filepath.Join(t.TempDir(), "export.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close(nil) })
	require.NoError(t, db.Migrate(ctx, nil))

	const tenant = "tenant-a"
	doc := &entity.Document{TenantID: tenant, Filename: "f.pdf", StorageKey: "f.pdf"}
	require.NoError(t, repository.NewDocumentRepository(db, nil).Create(ctx, doc))

	m := repository.NewMaterializer(db, nil)
	for _, d := range []string{"2025-01-05", "2025-03-01"} {
		issue, _ := time.Parse("2006-01-02", d)
		total := decimal.RequireFromString("1250.50")
		conf := 0.9
		_, err := m.Materialize(ctx, tenant, doc.ID, constants.EnginePattern, entity.ParsedDocument{
			Provider: entity.ProviderFields{TaxID: entity.StrPtr("20601234565"), LegalName: entity.StrPtr("ACME S.A.C.")},
			Invoice: entity.InvoiceFields{
				Series: entity.StrPtr("F001"), Number: entity.StrPtr("12"),
				IssueDate: &issue, Currency: entity.StrPtr("PEN"), Total: &total,
			},
			Engine:       constants.EnginePattern,
			DocumentKind: constants.KindInvoice,
			Confidence:   &conf,
		})
		require.NoError(t, err)
	}
	return db, tenant
}

func TestExportInvoicesXLSX(t *testing.T) {
	db, tenant := seed(t)
	svc := NewService(repository.NewInvoiceRepository(db, nil), repository.NewProviderRepository(db, nil), nil)

	from := time.Date(2025, 2, 1, 15, 0, 0, 0, time.UTC)
	to := time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)
	data, err := svc.ExportInvoicesXLSX(context.Background(), tenant, &from, &to)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{invoicesSheet, providersSheet}, f.GetSheetList())

	rows, err := f.GetRows(invoicesSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Issue Date", rows[0][0])
	assert.Equal(t, "2025-03-01", rows[1][0])
	assert.Equal(t, "20601234565", rows[1][5])
	assert.Equal(t, "ACME S.A.C.", rows[1][6])
	assert.Equal(t, "PEN", rows[1][7])
	assert.Equal(t, "1250.5", rows[1][10])
	assert.Equal(t, constants.EnginePattern, rows[1][11])

	provs, err := f.GetRows(providersSheet)
	require.NoError(t, err)
	require.Len(t, provs, 2)
	assert.Equal(t, "active", provs[1][3])
}

func TestExportInvoicesXLSX_AllWhenNoBounds(t *testing.T) {
	db, tenant := seed(t)
	svc := NewService(repository.NewInvoiceRepository(db, nil), repository.NewProviderRepository(db, nil), nil)

	data, err := svc.ExportInvoicesXLSX(context.Background(), tenant, nil, nil)
	require.NoError(t, err)
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(invoicesSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab…", truncate("abcdef", 3))
	assert.Equal(t, "ñá…", truncate("ñáéí", 3))
}
