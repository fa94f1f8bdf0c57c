// internal/extraction/validate.go
package extraction

import (
	"fmt"
	"strings"

	"menuscan/internal/common/errors"

	"github.com/xeipuuv/gojsonschema"
)

// resultSchema is the minimal structural contract for a completed job's
// results: an array of objects, each carrying at least one name-like field.
// Everything else is optional and defaulted during reconciliation.
var resultSchema = map[string]interface{}{
	"type": "array",
	"items": map[string]interface{}{
		"type": "object",
		"anyOf": []interface{}{
			map[string]interface{}{"required": []interface{}{"name"}},
			map[string]interface{}{"required": []interface{}{"item_name"}},
			map[string]interface{}{"required": []interface{}{"title"}},
		},
	},
}

// ValidateResults checks a completed job's raw payload against the minimal
// structural contract. An empty array is valid; a missing name-like field or
// a non-array payload is not.
func ValidateResults(results []RawItem) error {
	// A nil slice round-trips to JSON null, which the schema rejects; the
	// contract treats absent results on a completed job as an empty array.
	doc := make([]interface{}, len(results))
	for i, item := range results {
		doc[i] = map[string]interface{}(item)
	}

	schemaLoader := gojsonschema.NewGoLoader(resultSchema)
	documentLoader := gojsonschema.NewGoLoader(doc)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return errors.NewMalformedResultError(fmt.Sprintf("schema validation error: %v", err))
	}

	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			msgs = append(msgs, desc.String())
		}
		return errors.NewMalformedResultError(strings.Join(msgs, "; "))
	}

	return nil
}
