// Package dapconfig converts between editor debug requests and the netcoredbg
// launch/attach configuration.
//
// There are two validation tiers. ClassifyRequest only looks at the
// "request" key of an arbitrary JSON document, so partially-written or newer
// configurations can still be routed. ParseConfig decodes the full document
// and is the gate that rejects malformed configurations.
package dapconfig

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// AdapterName is the only adapter handled by this package.
const AdapterName = "netcoredbg"

// AdapterConfig is the netcoredbg configuration document.
type AdapterConfig struct {
	Request             string            `json:"request" jsonschema:"enum=launch,enum=attach" jsonschema_description:"Start a new process or attach to a running one."`
	Program             *string           `json:"program,omitempty" jsonschema_description:"Path to the program or assembly to debug."`
	Args                []string          `json:"args,omitempty" jsonschema_description:"Command line arguments passed to the program."`
	Cwd                 *string           `json:"cwd,omitempty" jsonschema_description:"Working directory of the program."`
	Env                 map[string]string `json:"env,omitempty" jsonschema_description:"Environment variables passed to the program."`
	StopAtEntry         *bool             `json:"stopAtEntry,omitempty" jsonschema_description:"Break at the program entry point."`
	ProcessID           *ProcessID        `json:"processId,omitempty"`
	JustMyCode          *bool             `json:"justMyCode,omitempty" jsonschema_description:"Only debug user code."`
	EnableStepFiltering *bool             `json:"enableStepFiltering,omitempty" jsonschema_description:"Step over properties and operators."`
}

// fieldNames are the wire names of AdapterConfig. Keys must match them exactly.
var fieldNames = []string{
	"request", "program", "args", "cwd", "env", "stopAtEntry",
	"processId", "justMyCode", "enableStepFiltering",
}

// checkFieldNames rejects top-level keys that differ from a known field only
// by case, and known keys that appear more than once. encoding/json would
// otherwise fold the first and keep the last of the second.
func checkFieldNames(data []byte) error {
	doc := gjson.ParseBytes(data)
	if !doc.IsObject() {
		return nil
	}
	seen := make(map[string]bool, len(fieldNames))
	var err error
	doc.ForEach(func(key, _ gjson.Result) bool {
		name := key.String()
		for _, field := range fieldNames {
			if !strings.EqualFold(name, field) {
				continue
			}
			if name != field {
				err = fmt.Errorf("unknown field `%s`, expected `%s`", name, field)
				return false
			}
			if seen[field] {
				err = fmt.Errorf("duplicate field `%s`", field)
				return false
			}
			seen[field] = true
		}
		return true
	})
	return err
}

func (c *AdapterConfig) UnmarshalJSON(data []byte) error {
	if err := checkFieldNames(data); err != nil {
		return err
	}
	type plain AdapterConfig
	var raw struct {
		plain
		Request *string `json:"request"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Request == nil {
		return errors.New("missing field `request`")
	}
	*c = AdapterConfig(raw.plain)
	c.Request = *raw.Request
	return nil
}

// ParseConfig decodes a configuration document.
func ParseConfig(data []byte) (AdapterConfig, error) {
	var cfg AdapterConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return AdapterConfig{}, &ConfigParseError{Err: err}
	}
	return cfg, nil
}

// Encode renders cfg in its wire form. Absent optionals, empty args and an
// empty env are left out.
func Encode(cfg AdapterConfig) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(cfg); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
