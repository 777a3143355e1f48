package llm

import (
	"strings"

	"github.com/graceskyliz/ocr3/constants"
)

const jsonShapeInvoice = `{
  "provider": {"tax_id": "RUC de 11 digitos del emisor", "legal_name": "Razon social del emisor", "address": "Direccion del emisor"},
  "invoice": {
    "series": "Serie (F001)", "number": "Correlativo (000123)",
    "issue_date": "YYYY-MM-DD", "due_date": "YYYY-MM-DD",
    "currency": "PEN o USD",
    "subtotal": "Base imponible", "tax": "IGV", "total": "Importe total"
  },
  "items": [{"description": "Descripcion", "quantity": "Cantidad", "unit_price": "Precio unitario", "total": "Total del item"}],
  "confidence": 0.0
}`

const jsonShapeReceipt = `{
  "provider": {"tax_id": "RUC de 11 digitos del emisor", "legal_name": "Razon social del emisor"},
  "invoice": {
    "series": "Serie (B001)", "number": "Correlativo (00012345)",
    "issue_date": "YYYY-MM-DD",
    "currency": "PEN o USD",
    "subtotal": "Subtotal si esta disponible", "tax": "IGV si esta disponible", "total": "Importe total"
  },
  "items": [{"description": "Descripcion", "quantity": "Cantidad", "unit_price": "Precio unitario", "total": "Total del item"}],
  "confidence": 0.0
}`

// BuildVisionPrompt returns the instruction sent with the page image.
func BuildVisionPrompt(kind constants.DocumentKind) string {
	var doc, shape string
	switch kind {
	case constants.KindReceipt:
		doc, shape = "esta boleta de venta peruana", jsonShapeReceipt
	default:
		doc, shape = "esta factura peruana", jsonShapeInvoice
	}

	parts := []string{
		"Analiza " + doc + " y extrae EXACTAMENTE la siguiente informacion en formato JSON:",
		shape,
		"IMPORTANTE:",
		"- Si un campo no esta visible o legible, omitelo. Nunca uses null.",
		"- Los montos deben ser numeros sin simbolos de moneda, con punto decimal.",
		"- Las fechas deben estar en formato ISO (YYYY-MM-DD).",
		"- Extrae TODOS los items en el orden en que aparecen.",
		"- En confidence indica tu certeza global entre 0 y 1.",
		"- Responde SOLO con el JSON, sin texto adicional.",
	}
	return strings.Join(parts, "\n")
}

// SystemPrompt is shared by chat-style backends.
const SystemPrompt = "You are a parser for Peruvian tax documents (factura, boleta). " +
	"Return ONLY JSON that matches the requested shape."
