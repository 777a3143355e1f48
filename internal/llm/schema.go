package llm

// BuildDocumentJSONSchema returns the JSON-Schema (draft 2020-12 subset) every vision
// backend answer must satisfy after sanitizing.
func BuildDocumentJSONSchema() map[string]any {
	provider := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"tax_id":     map[string]any{"type": "string", "pattern": `^\d{11}$`},
			"legal_name": map[string]any{"type": "string", "minLength": 1},
			"address":    map[string]any{"type": "string"},
		},
	}
	invoice := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"series":     map[string]any{"type": "string"},
			"number":     map[string]any{"type": "string"},
			"issue_date": dateProp(),
			"due_date":   dateProp(),
			"currency":   map[string]any{"type": "string", "pattern": `^[A-Z]{3}$`},
			"subtotal":   decimalProp(),
			"tax":        decimalProp(),
			"total":      decimalProp(),
		},
	}
	item := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"description": map[string]any{"type": "string"},
			"quantity":    decimalProp(),
			"unit_price":  decimalProp(),
			"tax":         decimalProp(),
			"total":       decimalProp(),
		},
		"required": []string{"description"},
	}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"provider":   provider,
			"invoice":    invoice,
			"items":      map[string]any{"type": "array", "items": item},
			"confidence": map[string]any{"type": "number", "minimum": 0.0, "maximum": 1.0},
		},
		"required": []string{"invoice"},
	}
}

func decimalProp() map[string]any {
	return map[string]any{
		"type":    "string",
		"pattern": `^\d+(\.\d+)?$`,
	}
}

func dateProp() map[string]any {
	return map[string]any{"type": "string", "pattern": `^\d{4}-\d{2}-\d{2}$`}
}
