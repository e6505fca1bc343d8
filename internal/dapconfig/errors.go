package dapconfig

import (
	"errors"
	"fmt"

	"dapboot/pkg/dapapi"
)

var (
	ErrMissingRequestField = errors.New("CFG_REQUEST_MISSING: debug configuration missing required 'request' field. Must be 'launch' or 'attach'")
	ErrMissingProcessID    = errors.New("CFG_PROCESS_ID_MISSING: attach mode requires selecting a target process")
)

// ConfigParseError is returned when a configuration blob does not match the
// netcoredbg configuration shape.
type ConfigParseError struct {
	Err error
}

func (e *ConfigParseError) Error() string {
	return fmt.Sprintf("CFG_PARSE: failed to parse debug configuration: %v. Expected netcoredbg configuration format", e.Err)
}

func (e *ConfigParseError) Unwrap() error { return e.Err }

type InvalidRequestKindError struct {
	Value string
}

func (e *InvalidRequestKindError) Error() string {
	return fmt.Sprintf("CFG_REQUEST_KIND: invalid 'request' value: %q. Expected 'launch' or 'attach'", e.Value)
}

type ProcessIDOverflowError struct {
	Value uint64
}

func (e *ProcessIDOverflowError) Error() string {
	return fmt.Sprintf("CFG_PROCESS_ID_OVERFLOW: process id %d is too large to fit in a 32-bit signed integer", e.Value)
}

type SerializationError struct {
	Kind dapapi.RequestKind
	Err  error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("CFG_ENCODE: failed to serialize %s config: %v", e.Kind, e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }

type UnknownAdapterError struct {
	Name string
}

func (e *UnknownAdapterError) Error() string {
	return fmt.Sprintf("CFG_ADAPTER: cannot handle adapter %q, expected %q", e.Name, AdapterName)
}

// UnsupportedRequestError is returned for a DebugRequest implementation other
// than LaunchRequest and AttachRequest.
type UnsupportedRequestError struct {
	Type string
}

func (e *UnsupportedRequestError) Error() string {
	return fmt.Sprintf("CFG_REQUEST_TYPE: unsupported debug request type %s", e.Type)
}
