package extract

import (
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/graceskyliz/ocr3/constants"
	"github.com/graceskyliz/ocr3/internal/common"
	"github.com/graceskyliz/ocr3/internal/llm"
)

const invoiceText = `EMPRESA DEMO S.A.C.
RUC: 20601234565
FACTURA ELECTRONICA
F001-000123
Fecha de Emision: 05/01/2025
Descripcion          Cant   P.Unit
Servicio de soporte  1      1,059.32
OP. GRAVADA S/ 1,059.32
IGV S/ 190.68
TOTAL S/ 1,250.00
`

type fakeRecognizer struct {
	text string
	err  error
}

func (f fakeRecognizer) Recognize(context.Context, string) (TextResult, error) {
	return TextResult{Text: f.text, Pages: 1, Method: "plain-text"}, f.err
}

type fakeBackend struct {
	answer string
	err    error
	got    llm.VisionRequest
}

func (f *fakeBackend) Name() string { return constants.EngineGemini }

func (f *fakeBackend) ExtractDocument(_ context.Context, req llm.VisionRequest) ([]byte, error) {
	f.got = req
	return []byte(f.answer), f.err
}

func writePNG(t *testing.T, name string) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	img.Set(1, 1, color.Black)
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, imaging.Save(img, p))
	return p
}

func TestPatternEngine_EndToEndText(t *testing.T) {
	e := NewPatternEngine(fakeRecognizer{text: invoiceText}, nil)
	doc, err := e.Extract(context.Background(), Source{Path: "x.txt", Filename: "x.txt"}, "")
	require.NoError(t, err)

	assert.Equal(t, constants.EnginePattern, doc.Engine)
	assert.Equal(t, constants.KindInvoice, doc.DocumentKind)
	require.NotNil(t, doc.Invoice.Currency)
	assert.Equal(t, "PEN", *doc.Invoice.Currency)
	require.NotNil(t, doc.Invoice.Total)
	assert.True(t, decimal.RequireFromString("1250.00").Equal(*doc.Invoice.Total))
	require.NotNil(t, doc.Invoice.IssueDate)
	assert.Equal(t, "2025-01-05", doc.Invoice.IssueDate.Format("2006-01-02"))
	require.NotNil(t, doc.Provider.TaxID)
	assert.Equal(t, "20601234565", *doc.Provider.TaxID)
	assert.Equal(t, "F001", *doc.Invoice.Series)
	assert.Equal(t, "000123", *doc.Invoice.Number)
	assert.GreaterOrEqual(t, doc.ConfidenceValue(), 0.3+0.14*3)
	assert.InDelta(t, 0.99, doc.ConfidenceValue(), 1e-9)
	assert.NoError(t, doc.Validate())
}

func TestPatternEngine_DeclaredKindWins(t *testing.T) {
	e := NewPatternEngine(fakeRecognizer{text: invoiceText}, nil)
	doc, err := e.Extract(context.Background(), Source{}, constants.KindReceipt)
	require.NoError(t, err)
	assert.Equal(t, constants.KindReceipt, doc.DocumentKind)
}

func TestPatternEngine_EmptyTextDegrades(t *testing.T) {
	e := NewPatternEngine(fakeRecognizer{text: "   "}, nil)
	doc, err := e.Extract(context.Background(), Source{}, "")
	require.NoError(t, err)
	assert.Nil(t, doc.Invoice.Total)
	assert.InDelta(t, 0.3, doc.ConfidenceValue(), 1e-9)
}

func TestPatternEngine_RecognizerFailureIsBackendFailure(t *testing.T) {
	e := NewPatternEngine(fakeRecognizer{err: errors.New("tesseract: exit status 1")}, nil)
	_, err := e.Extract(context.Background(), Source{}, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrBackend)

	e = NewPatternEngine(fakeRecognizer{err: common.Unsupported("nope")}, nil)
	_, err = e.Extract(context.Background(), Source{}, "")
	assert.ErrorIs(t, err, common.ErrUnsupportedFormat)
	assert.NotErrorIs(t, err, common.ErrBackend)
}

func TestVisionEngine_NormalizesModelOutput(t *testing.T) {
	b := &fakeBackend{answer: "```json\n" + `{
		"provider": {"ruc": "20601234565", "razon_social": "ACME SAC"},
		"invoice": {"numero": "B001-42", "fecha": "05/01/2025", "moneda": "soles", "total": "1.234,56", "igv": 12},
		"items": [{"descripcion": "Cafe", "cantidad": "2", "precio_unitario": "3,50"}]
	}` + "\n```"}
	e := NewVisionEngine(b, nil, VisionConfig{}, nil)

	doc, err := e.Extract(context.Background(), Source{Path: writePNG(t, "b.png"), Filename: "b.png"}, constants.KindReceipt)
	require.NoError(t, err)

	assert.Equal(t, "image/png", b.got.MimeType)
	assert.Equal(t, constants.KindReceipt, b.got.Kind)
	assert.Equal(t, constants.EngineGemini, doc.Engine)
	assert.Equal(t, "20601234565", *doc.Provider.TaxID)
	assert.Equal(t, "B001", *doc.Invoice.Series)
	assert.Equal(t, "42", *doc.Invoice.Number)
	assert.Equal(t, "2025-01-05", doc.Invoice.IssueDate.Format("2006-01-02"))
	require.NotNil(t, doc.Invoice.Currency)
	assert.Equal(t, "PEN", *doc.Invoice.Currency)
	assert.True(t, decimal.RequireFromString("1234.56").Equal(*doc.Invoice.Total))
	assert.True(t, decimal.NewFromInt(12).Equal(*doc.Invoice.Tax))
	require.Len(t, doc.Items, 1)
	assert.True(t, decimal.RequireFromString("3.5").Equal(*doc.Items[0].UnitPrice))
	assert.InDelta(t, DefaultVisionConfidence, doc.ConfidenceValue(), 1e-9)
	assert.NotEmpty(t, doc.RawText)
	assert.NoError(t, doc.Validate())
}

func TestVisionEngine_ModelConfidenceAndBadTaxID(t *testing.T) {
	b := &fakeBackend{answer: `{"provider":{"tax_id":"20601234564"},"invoice":{"currency":"USD","total":"10"},"confidence":0.42}`}
	e := NewVisionEngine(b, nil, VisionConfig{}, nil)

	doc, err := e.Extract(context.Background(), Source{Path: writePNG(t, "f.png")}, "")
	require.NoError(t, err)
	assert.Nil(t, doc.Provider.TaxID)
	assert.Equal(t, "USD", *doc.Invoice.Currency)
	assert.InDelta(t, 0.42, doc.ConfidenceValue(), 1e-9)
	assert.Equal(t, constants.KindInvoice, doc.DocumentKind)
}

func TestVisionEngine_BackendFailure(t *testing.T) {
	b := &fakeBackend{err: errors.New("deadline exceeded")}
	e := NewVisionEngine(b, nil, VisionConfig{}, nil)
	_, err := e.Extract(context.Background(), Source{Path: writePNG(t, "f.png")}, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrBackend)
}

func TestVisionEngine_GarbageAnswerIsBackendFailure(t *testing.T) {
	b := &fakeBackend{answer: "no puedo leer esto"}
	e := NewVisionEngine(b, nil, VisionConfig{}, nil)
	_, err := e.Extract(context.Background(), Source{Path: writePNG(t, "f.png")}, "")
	assert.ErrorIs(t, err, common.ErrBackend)
}

func TestVisionEngine_PlainTextAnswerFallsBackToDetectors(t *testing.T) {
	b := &fakeBackend{answer: "No pude generar JSON. RUC 20601234565\nFACTURA F001-000123\nFecha de emision: 05/01/2025\nTOTAL S/ 1,250.00"}
	e := NewVisionEngine(b, nil, VisionConfig{}, nil)

	doc, err := e.Extract(context.Background(), Source{Path: writePNG(t, "f.png")}, constants.KindInvoice)
	require.NoError(t, err)
	assert.Equal(t, constants.EngineGemini, doc.Engine)
	assert.Equal(t, constants.KindInvoice, doc.DocumentKind)
	require.NotNil(t, doc.Provider.TaxID)
	assert.Equal(t, "20601234565", *doc.Provider.TaxID)
	require.NotNil(t, doc.Invoice.Total)
	assert.True(t, decimal.RequireFromString("1250").Equal(*doc.Invoice.Total))
	require.NotNil(t, doc.Invoice.Currency)
	assert.Equal(t, "PEN", *doc.Invoice.Currency)
	assert.Equal(t, "000123", *doc.Invoice.Number)
	assert.InDelta(t, 0.99, doc.ConfidenceValue(), 1e-9)
	assert.Contains(t, doc.RawText, "No pude generar JSON")
}

func TestVisionEngine_PDFWithoutRendererUnsupported(t *testing.T) {
	p := filepath.Join(t.TempDir(), "a.pdf")
	require.NoError(t, os.WriteFile(p, []byte("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n1 0 obj\n<<>>\nendobj\n"), 0o600))
	e := NewVisionEngine(&fakeBackend{}, nil, VisionConfig{}, nil)
	_, err := e.Extract(context.Background(), Source{Path: p, Filename: "a.pdf"}, "")
	assert.ErrorIs(t, err, common.ErrUnsupportedFormat)
}

func writeSheet(t *testing.T, rows ...[]any) string {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &r))
	}
	p := filepath.Join(t.TempDir(), "doc.xlsx")
	require.NoError(t, f.SaveAs(p))
	return p
}

func TestTabularEngine_FirstDataRow(t *testing.T) {
	p := writeSheet(t,
		[]any{"Fecha", "Moneda", "Total", "RUC", "Número", "Razón Social"},
		[]any{"05/01/2025", "pen", 1250.5, "20601234565", "F001-9", "ACME"},
		[]any{"06/01/2025", "USD", 1, "20601234565", "F001-10", "ACME"},
	)
	doc, err := NewTabularEngine(nil).Extract(context.Background(), Source{Path: p, Filename: "doc.xlsx"}, "")
	require.NoError(t, err)

	assert.Equal(t, constants.EngineTabular, doc.Engine)
	assert.Equal(t, constants.KindSpreadsheet, doc.DocumentKind)
	assert.Equal(t, "2025-01-05", doc.Invoice.IssueDate.Format("2006-01-02"))
	assert.Equal(t, "PEN", *doc.Invoice.Currency)
	assert.True(t, decimal.RequireFromString("1250.5").Equal(*doc.Invoice.Total))
	assert.Equal(t, "20601234565", *doc.Provider.TaxID)
	assert.Equal(t, "F001-9", *doc.Invoice.Number)
	assert.Equal(t, "ACME", *doc.Provider.LegalName)
	assert.InDelta(t, 0.99, doc.ConfidenceValue(), 1e-9)
}

func TestTabularEngine_MissingTotalIsValidationFailure(t *testing.T) {
	p := writeSheet(t,
		[]any{"fecha", "moneda", "ruc"},
		[]any{"05/01/2025", "PEN", "20601234565"},
	)
	_, err := NewTabularEngine(nil).Extract(context.Background(), Source{Path: p}, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrValidation)
	assert.Contains(t, err.Error(), "missing total")
}

func TestTabularEngine_NoDataRow(t *testing.T) {
	p := writeSheet(t, []any{"date", "currency", "total"})
	_, err := NewTabularEngine(nil).Extract(context.Background(), Source{Path: p}, "")
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestCellDate(t *testing.T) {
	assert.Equal(t, "2025-01-05", cellDate("45662").Format("2006-01-02"))
	assert.Equal(t, "2024-12-31", cellDate("2024-12-31 00:00:00").Format("2006-01-02"))
	assert.Nil(t, cellDate("mañana"))
}

func TestRouter_Resolve(t *testing.T) {
	pdf := filepath.Join(t.TempDir(), "blob")
	require.NoError(t, os.WriteFile(pdf, []byte("%PDF-1.4\n"), 0o600))

	cases := []struct {
		name   string
		router Router
		src    Source
		want   Route
	}{
		{"declared spreadsheet", Router{}, Source{Filename: "a.pdf", DeclaredKind: constants.KindSpreadsheet},
			Route{Engine: EngineTabular, Kind: constants.KindSpreadsheet, Reason: "declared-kind"}},
		{"declared format", Router{}, Source{Filename: "a.bin", DeclaredFormat: constants.SPREADSHEET},
			Route{Engine: EngineTabular, Kind: constants.KindSpreadsheet, Reason: "declared-format"}},
		{"extension pattern", Router{TextEngine: EnginePattern}, Source{Filename: "a.JPG", DeclaredKind: constants.KindReceipt},
			Route{Engine: EnginePattern, Kind: constants.KindReceipt, Reason: "extension"}},
		{"extension vision", Router{TextEngine: EngineVision}, Source{Filename: "a.pdf"},
			Route{Engine: EngineVision, Reason: "extension"}},
		{"text always pattern", Router{TextEngine: EngineVision}, Source{Filename: "a.txt"},
			Route{Engine: EnginePattern, Reason: "extension"}},
		{"sniffed", Router{TextEngine: EnginePattern}, Source{Path: pdf, Filename: "upload"},
			Route{Engine: EnginePattern, Reason: "sniffed"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.router.Resolve(tc.src)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestRouter_Unsupported(t *testing.T) {
	p := filepath.Join(t.TempDir(), "blob")
	require.NoError(t, os.WriteFile(p, []byte{0x00, 0x01, 0x02, 0x03}, 0o600))
	_, err := Router{}.Resolve(Source{Path: p, Filename: "blob.docx"})
	assert.ErrorIs(t, err, common.ErrUnsupportedFormat)
}

func TestEngines_For(t *testing.T) {
	engines := Engines{Tabular: NewTabularEngine(nil)}
	eng, err := engines.For(Route{Engine: EngineTabular})
	require.NoError(t, err)
	assert.Equal(t, constants.EngineTabular, eng.Name())

	_, err = engines.For(Route{Engine: EngineVision})
	assert.ErrorIs(t, err, common.ErrUnsupportedFormat)
}

func TestParseEngineKind(t *testing.T) {
	k, err := ParseEngineKind("Vision")
	require.NoError(t, err)
	assert.Equal(t, EngineVision, k)
	_, err = ParseEngineKind("magic")
	assert.Error(t, err)
}
