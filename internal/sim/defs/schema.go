package defs

import (
	_ "embed"
	"encoding/json"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed defs.schema.json
var schemaJSON string

var defsSchema = jsonschema.MustCompileString("defs.schema.json", schemaJSON)

func validateSchema(raw []byte) error {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	return defsSchema.Validate(v)
}
