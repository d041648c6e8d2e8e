package manifest

import (
	"encoding/json"
	"fmt"

	ferrors "github.com/finam-ufz/finam/errors"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// metaSchema is the JSON Schema a manifest's YAML, once re-encoded as JSON,
// must satisfy. It is intentionally permissive about component Config and
// adapter Config (open maps, read by each registered factory at
// instantiation time), and strict about the topology fields the manifest package itself
// relies on.
const metaSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["version", "components"],
  "properties": {
    "version": {"type": "string"},
    "components": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name", "type"],
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "type": {"type": "string", "minLength": 1},
          "config": {"type": "object"}
        }
      }
    },
    "links": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["from", "output", "to", "input"],
        "properties": {
          "from": {"type": "string", "minLength": 1},
          "output": {"type": "string", "minLength": 1},
          "to": {"type": "string", "minLength": 1},
          "input": {"type": "string", "minLength": 1},
          "adapters": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["type"],
              "properties": {
                "type": {"type": "string", "minLength": 1},
                "config": {"type": "object"}
              }
            }
          }
        }
      }
    }
  }
}`

// ValidateSchema checks raw manifest YAML against the structural meta
// schema, catching malformed manifests earlier and with better error
// locations than the semantic checks in Validate.
func ValidateSchema(raw []byte) error {
	var asYAML any
	if err := yaml.Unmarshal(raw, &asYAML); err != nil {
		return ferrors.Wrap(ferrors.SetupError, "manifest", "ValidateSchema", err)
	}

	asJSON, err := json.Marshal(asYAML)
	if err != nil {
		return ferrors.Wrap(ferrors.SetupError, "manifest", "ValidateSchema", err)
	}

	schemaLoader := gojsonschema.NewStringLoader(metaSchema)
	documentLoader := gojsonschema.NewBytesLoader(asJSON)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return ferrors.Wrap(ferrors.SetupError, "manifest", "ValidateSchema", err)
	}
	if !result.Valid() {
		msg := "manifest does not satisfy the schema:"
		for _, desc := range result.Errors() {
			msg += fmt.Sprintf("\n  - %s: %s", desc.Field(), desc.Description())
		}
		return ferrors.Newf(ferrors.SetupError, "manifest", "ValidateSchema", "%s", msg)
	}
	return nil
}
