package registry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/uimetrics/uima-go-api/internal/models"
)

// documentSchema is the structural contract for the metric catalog document.
// Semantic rules (unique ids, contiguous indices, band ordering) are enforced
// separately in Load.
const documentSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["metrics"],
  "properties": {
    "categories": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "name"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "name": {"type": "string", "minLength": 1}
        }
      }
    },
    "metrics": {
      "type": "object",
      "minProperties": 1,
      "additionalProperties": {
        "type": "object",
        "required": ["category", "name", "evidence", "relevance", "speed", "input", "visualization", "results"],
        "properties": {
          "category": {"type": "string", "minLength": 1},
          "name": {"type": "string", "minLength": 1},
          "description": {"type": "string"},
          "evidence": {"type": "integer", "minimum": 1, "maximum": 5},
          "relevance": {"type": "integer", "minimum": 1, "maximum": 5},
          "speed": {"type": "integer", "minimum": 0, "maximum": 2},
          "input": {"enum": ["png", "jpg"]},
          "visualization": {"enum": ["table", "image"]},
          "results": {
            "type": "array",
            "minItems": 1,
            "items": {
              "type": "object",
              "required": ["id", "index", "type", "name"],
              "properties": {
                "id": {"type": "string", "minLength": 1},
                "index": {"type": "integer", "minimum": 0},
                "type": {"enum": ["int", "float", "image"]},
                "name": {"type": "string", "minLength": 1},
                "scores": {
                  "type": "array",
                  "items": {
                    "type": "object",
                    "required": ["id", "judgment"],
                    "properties": {
                      "id": {"type": "string", "minLength": 1},
                      "min": {"type": "number"},
                      "max": {"type": "number"},
                      "judgment": {"type": "string", "minLength": 1},
                      "description": {"type": "string"},
                      "icon": {"type": "string"}
                    }
                  }
                }
              }
            }
          }
        }
      }
    }
  }
}`

type document struct {
	Categories []models.Category `json:"categories"`
	Metrics    map[string]json.RawMessage
	Order      []string
}

func validateSchema(data []byte) error {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("catalog.schema.json", strings.NewReader(documentSchema)); err != nil {
		return fmt.Errorf("compile catalog schema: %w", err)
	}
	schema, err := compiler.Compile("catalog.schema.json")
	if err != nil {
		return fmt.Errorf("compile catalog schema: %w", err)
	}

	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("catalog document is not valid JSON: %w", err)
	}

	if err := schema.Validate(raw); err != nil {
		return fmt.Errorf("catalog document rejected by schema: %w", err)
	}

	return nil
}

// parseDocument decodes the catalog document while preserving the declaration
// order of the metrics object, which defines registration order.
func parseDocument(data []byte) (document, error) {
	var envelope struct {
		Categories []models.Category `json:"categories"`
		Metrics    json.RawMessage   `json:"metrics"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return document{}, fmt.Errorf("decode catalog document: %w", err)
	}

	doc := document{
		Categories: envelope.Categories,
		Metrics:    make(map[string]json.RawMessage),
	}

	dec := json.NewDecoder(bytes.NewReader(envelope.Metrics))
	tok, err := dec.Token()
	if err != nil {
		return document{}, fmt.Errorf("decode metrics object: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return document{}, fmt.Errorf("metrics must be an object keyed by metric id")
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return document{}, fmt.Errorf("decode metrics object: %w", err)
		}
		id := keyTok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return document{}, fmt.Errorf("decode metric %q: %w", id, err)
		}

		doc.Metrics[id] = raw
		doc.Order = append(doc.Order, id)
	}

	return doc, nil
}
