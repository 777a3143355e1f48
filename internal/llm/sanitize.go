package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"regexp"
	"strconv"
	"strings"

	"github.com/graceskyliz/ocr3/internal/core/detect"
	"github.com/graceskyliz/ocr3/internal/core/normalize"
)

var (
	reFenced    = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*\\})\\s*```")
	reSeriesNum = regexp.MustCompile(`^([A-Z][A-Z0-9]{3})\s*-\s*(\d+)$`)
)

var (
	providerSynonyms = map[string]string{
		"ruc":          "tax_id",
		"razon_social": "legal_name",
		"direccion":    "address",
		"nombre":       "legal_name",
	}
	invoiceSynonyms = map[string]string{
		"serie":             "series",
		"numero":            "number",
		"fecha":             "issue_date",
		"fecha_emision":     "issue_date",
		"fecha_vencimiento": "due_date",
		"moneda":            "currency",
		"igv":               "tax",
		"impuesto":          "tax",
		"importe_total":     "total",
	}
	itemSynonyms = map[string]string{
		"descripcion":     "description",
		"cantidad":        "quantity",
		"precio_unitario": "unit_price",
		"igv":             "tax",
		"importe":         "total",
	}

	providerKeys = []string{"tax_id", "legal_name", "address"}
	invoiceKeys  = []string{"series", "number", "issue_date", "due_date", "currency", "subtotal", "tax", "total"}
	itemKeys     = []string{"description", "quantity", "unit_price", "tax", "total"}

	invoiceMoney = []string{"subtotal", "tax", "total"}
	itemMoney    = []string{"quantity", "unit_price", "tax", "total"}
)

// ExtractJSONObject pulls the JSON object out of a model answer that may be fenced
// or surrounded by prose.
func ExtractJSONObject(text string) []byte {
	text = strings.TrimSpace(text)
	if m := reFenced.FindStringSubmatch(text); m != nil {
		return []byte(m[1])
	}
	start, end := strings.Index(text, "{"), strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		return []byte(text[start : end+1])
	}
	return []byte(text)
}

// NormalizeAndSanitizeJSON rewrites a model answer into the canonical shape:
//   - renames Spanish synonyms (ruc -> tax_id, igv -> tax, ...)
//   - drops null and empty values
//   - coerces money to plain decimal strings
//   - splits "F001-123" numbers into series/number
//   - removes unknown keys at every level
func NormalizeAndSanitizeJSON(raw []byte, logger *slog.Logger) ([]byte, []string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dec := json.NewDecoder(bytes.NewReader(ExtractJSONObject(string(raw))))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}

	s := &sanitizer{}
	out := map[string]any{}

	if p := s.object(m, "provider", providerSynonyms, providerKeys, nil); len(p) > 0 {
		if v, ok := p["tax_id"].(string); ok {
			p["tax_id"] = strings.Join(strings.Fields(v), "")
		}
		out["provider"] = p
	}

	inv := s.object(m, "invoice", invoiceSynonyms, invoiceKeys, invoiceMoney)
	if inv == nil {
		inv = map[string]any{}
	}
	if c, ok := inv["currency"].(string); ok {
		code := strings.ToUpper(strings.TrimSpace(c))
		if !isCurrencyShape(code) {
			if named, found := detect.Currency(c); found {
				code = named
				s.note("invoice.currency(named)")
			}
		}
		inv["currency"] = code
	}
	if num, ok := inv["number"].(string); ok {
		if mm := reSeriesNum.FindStringSubmatch(strings.ToUpper(num)); mm != nil {
			if _, has := inv["series"]; !has {
				inv["series"] = mm[1]
			}
			inv["number"] = mm[2]
			s.note("invoice.number(split)")
		}
	}
	out["invoice"] = inv

	if list, ok := m["items"].([]any); ok {
		items := make([]any, 0, len(list))
		for i, el := range list {
			obj, ok := el.(map[string]any)
			if !ok {
				s.note(fmt.Sprintf("items[%d](type)", i))
				continue
			}
			it := s.clean(fmt.Sprintf("items[%d]", i), obj, itemSynonyms, itemKeys, itemMoney)
			if _, ok := it["description"]; !ok {
				it["description"] = ""
			}
			items = append(items, it)
		}
		out["items"] = items
	}

	if c, ok := confidenceValue(m["confidence"]); ok {
		out["confidence"] = c
	} else if _, present := m["confidence"]; present {
		s.note("confidence(invalid)")
	}
	for k := range m {
		switch k {
		case "provider", "invoice", "items", "confidence":
		default:
			s.note(k + "(unknown)")
		}
	}

	b, err := json.Marshal(out)
	if err != nil {
		return nil, s.dropped, fmt.Errorf("sanitize: encode: %w", err)
	}
	if len(s.dropped) > 0 {
		logger.Warn("llm.extract.normalize_sanitize", "dropped", s.dropped)
	}
	return b, s.dropped, nil
}

// SanitizeOptionalFields repairs or drops optional fields that still fail the schema
// (dates in local formats, malformed tax ids, odd currency codes) so the document can validate.
func SanitizeOptionalFields(doc []byte) ([]byte, []string, error) {
	var m map[string]any
	if err := json.Unmarshal(doc, &m); err != nil {
		return nil, nil, err
	}
	var changed []string

	if inv, ok := m["invoice"].(map[string]any); ok {
		for _, k := range []string{"issue_date", "due_date"} {
			v, ok := inv[k].(string)
			if !ok {
				continue
			}
			if d, ok := normalize.Date(v); ok {
				if iso := d.Format("2006-01-02"); iso != v {
					inv[k] = iso
					changed = append(changed, "invoice."+k+"(reformatted)")
				}
				continue
			}
			delete(inv, k)
			changed = append(changed, "invoice."+k+"(dropped)")
		}
		if v, ok := inv["currency"].(string); ok && !isCurrencyShape(v) {
			delete(inv, "currency")
			changed = append(changed, "invoice.currency(dropped)")
		}
	}
	if p, ok := m["provider"].(map[string]any); ok {
		if v, ok := p["tax_id"].(string); ok && !isTaxIDShape(v) {
			delete(p, "tax_id")
			changed = append(changed, "provider.tax_id(dropped)")
		}
	}

	out, err := json.Marshal(m)
	if err != nil {
		return nil, changed, err
	}
	return out, changed, nil
}

type sanitizer struct {
	dropped []string
}

func (s *sanitizer) note(what string) { s.dropped = append(s.dropped, what) }

func (s *sanitizer) object(m map[string]any, key string, syn map[string]string, keys, money []string) map[string]any {
	v, ok := m[key]
	if !ok || v == nil {
		return nil
	}
	obj, ok := v.(map[string]any)
	if !ok {
		s.note(key + "(type)")
		return nil
	}
	return s.clean(key, obj, syn, keys, money)
}

func (s *sanitizer) clean(prefix string, in map[string]any, syn map[string]string, keys, money []string) map[string]any {
	obj := maps.Clone(in)
	for from, to := range syn {
		v, ok := obj[from]
		if !ok {
			continue
		}
		if _, exists := obj[to]; !exists {
			obj[to] = v
		}
		delete(obj, from)
	}

	allowed := make(map[string]bool, len(keys))
	for _, k := range keys {
		allowed[k] = true
	}
	isMoney := make(map[string]bool, len(money))
	for _, k := range money {
		isMoney[k] = true
	}

	out := map[string]any{}
	for k, v := range obj {
		if !allowed[k] {
			s.note(prefix + "." + k + "(unknown)")
			continue
		}
		if isMoney[k] {
			if str, ok := coerceMoney(v); ok {
				out[k] = str
			} else if v != nil {
				s.note(prefix + "." + k + "(invalid)")
			}
			continue
		}
		switch t := v.(type) {
		case string:
			if str := strings.TrimSpace(t); str != "" {
				out[k] = str
			}
		case json.Number:
			out[k] = t.String()
		case nil:
		default:
			s.note(prefix + "." + k + "(type)")
		}
	}
	return out
}

// coerceMoney turns numbers and amount-like strings into plain non-negative decimal strings.
func coerceMoney(v any) (string, bool) {
	var text string
	switch t := v.(type) {
	case json.Number:
		text = t.String()
	case float64:
		text = strconv.FormatFloat(t, 'f', -1, 64)
	case string:
		text = t
	default:
		return "", false
	}
	d, ok := normalize.Decimal(text)
	if !ok || d.IsNegative() {
		return "", false
	}
	return d.String(), true
}

func confidenceValue(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case json.Number:
		x, err := t.Float64()
		if err != nil {
			return 0, false
		}
		f = x
	case string:
		x, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		f = x
	default:
		return 0, false
	}
	if f > 1 && f <= 100 {
		f /= 100
	}
	if f < 0 || f > 1 {
		return 0, false
	}
	return f, true
}

func isCurrencyShape(s string) bool {
	if len(s) != 3 {
		return false
	}
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

func isTaxIDShape(s string) bool {
	if len(s) != 11 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
