package llm

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const documentSchemaURL = "parsed-document.json"

// ValidateJSONAgainstSchema checks a model answer against the parsed-document schema.
func ValidateJSONAgainstSchema(schemaMap map[string]any, answer []byte) error {
	raw, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("parsed-document schema is not serializable: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(documentSchemaURL, bytes.NewReader(raw)); err != nil {
		return fmt.Errorf("load parsed-document schema: %w", err)
	}
	schema, err := c.Compile(documentSchemaURL)
	if err != nil {
		return fmt.Errorf("compile parsed-document schema: %w", err)
	}

	var doc any
	if err := json.Unmarshal(answer, &doc); err != nil {
		return fmt.Errorf("model answer is not JSON: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("model answer does not match the parsed-document schema: %w", err)
	}
	return nil
}
