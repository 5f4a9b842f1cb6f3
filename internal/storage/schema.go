package storage

import (
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// documentSchema is the shape contract for the store file: an object with a
// "todos" array of record objects. Record fields beyond id and text are
// opaque to the engine; id bounds are not enforced here so legacy files with
// bad ids still load (NextID floors them out).
const documentSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["todos"],
  "properties": {
    "todos": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "text"],
        "properties": {
          "id": {"type": "integer"},
          "text": {"type": "string"}
        }
      }
    }
  }
}`

var compiledDocumentSchema = jsonschema.MustCompileString("flywheel://store.schema.json", documentSchema)

// validateDocument checks a decoded store document against the schema.
func validateDocument(doc any) error {
	if err := compiledDocumentSchema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	return nil
}
