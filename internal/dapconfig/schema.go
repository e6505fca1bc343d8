package dapconfig

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// Schema returns the JSON Schema of AdapterConfig for editors that validate
// debug configurations.
func Schema() ([]byte, error) {
	reflector := jsonschema.Reflector{
		DoNotReference:            true,
		AllowAdditionalProperties: true,
	}
	schema := reflector.Reflect(&AdapterConfig{})
	schema.Title = "netcoredbg debug configuration"
	blob, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("CFG_SCHEMA: %w", err)
	}
	return blob, nil
}
