package dapconfig

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/invopop/jsonschema"
)

// ProcessID is either an integer or a string holding a process identifier.
// The zero value is the integer 0.
type ProcessID struct {
	num   int32
	str   string
	isStr bool
}

func IntProcessID(v int32) ProcessID {
	return ProcessID{num: v}
}

func StringProcessID(s string) ProcessID {
	return ProcessID{str: s, isStr: true}
}

// Int returns the integer variant.
func (p ProcessID) Int() (int32, bool) {
	if p.isStr {
		return 0, false
	}
	return p.num, true
}

// Text returns the string variant.
func (p ProcessID) Text() (string, bool) {
	if !p.isStr {
		return "", false
	}
	return p.str, true
}

func (p ProcessID) String() string {
	if p.isStr {
		return p.str
	}
	return strconv.FormatInt(int64(p.num), 10)
}

func (p ProcessID) MarshalJSON() ([]byte, error) {
	if p.isStr {
		return json.Marshal(p.str)
	}
	return json.Marshal(p.num)
}

// UnmarshalJSON tries the integer variant first and falls back to a string.
func (p *ProcessID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return fmt.Errorf("processId must be an integer or a string, got null")
	}
	var n int32
	if err := json.Unmarshal(data, &n); err == nil {
		*p = IntProcessID(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*p = StringProcessID(s)
		return nil
	}
	return fmt.Errorf("processId must be a 32-bit integer or a string, got %s", data)
}

func (ProcessID) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Description: "Process id of the target process to attach to.",
		OneOf: []*jsonschema.Schema{
			{Type: "integer"},
			{Type: "string"},
		},
	}
}
