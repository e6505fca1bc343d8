package dapconfig

import (
	"fmt"
	"math"

	"dapboot/pkg/dapapi"
)

// LaunchConfig renders a launch request as netcoredbg configuration text.
func LaunchConfig(req dapapi.LaunchRequest, stopOnEntry *bool) (string, error) {
	program := req.Program
	cfg := AdapterConfig{
		Request:     string(dapapi.RequestLaunch),
		Program:     &program,
		Cwd:         req.Cwd,
		StopAtEntry: stopOnEntry,
	}
	// netcoredbg treats a present-but-empty args list differently from none.
	if len(req.Args) > 0 {
		cfg.Args = append([]string(nil), req.Args...)
	}
	if len(req.Envs) > 0 {
		cfg.Env = make(map[string]string, len(req.Envs))
		for k, v := range req.Envs {
			cfg.Env[k] = v
		}
	}
	blob, err := Encode(cfg)
	if err != nil {
		return "", &SerializationError{Kind: dapapi.RequestLaunch, Err: err}
	}
	return string(blob), nil
}

// AttachConfig renders an attach request. The process id must be selected and
// fit the adapter's 32-bit signed field.
func AttachConfig(req dapapi.AttachRequest, stopOnEntry *bool) (string, error) {
	if req.ProcessID == nil {
		return "", ErrMissingProcessID
	}
	pid := *req.ProcessID
	if pid > math.MaxInt32 {
		return "", &ProcessIDOverflowError{Value: pid}
	}
	processID := IntProcessID(int32(pid))
	cfg := AdapterConfig{
		Request:     string(dapapi.RequestAttach),
		StopAtEntry: stopOnEntry,
		ProcessID:   &processID,
	}
	blob, err := Encode(cfg)
	if err != nil {
		return "", &SerializationError{Kind: dapapi.RequestAttach, Err: err}
	}
	return string(blob), nil
}

// ConfigToScenario converts an editor debug config into a scenario whose
// config is netcoredbg configuration text.
func ConfigToScenario(cfg dapapi.DebugConfig) (dapapi.DebugScenario, error) {
	var (
		text string
		err  error
	)
	switch req := cfg.Request.(type) {
	case nil:
		return dapapi.DebugScenario{}, ErrMissingRequestField
	case dapapi.LaunchRequest:
		text, err = LaunchConfig(req, cfg.StopOnEntry)
	case *dapapi.LaunchRequest:
		if req == nil {
			return dapapi.DebugScenario{}, ErrMissingRequestField
		}
		text, err = LaunchConfig(*req, cfg.StopOnEntry)
	case dapapi.AttachRequest:
		text, err = AttachConfig(req, cfg.StopOnEntry)
	case *dapapi.AttachRequest:
		if req == nil {
			return dapapi.DebugScenario{}, ErrMissingRequestField
		}
		text, err = AttachConfig(*req, cfg.StopOnEntry)
	default:
		return dapapi.DebugScenario{}, &UnsupportedRequestError{Type: fmt.Sprintf("%T", req)}
	}
	if err != nil {
		return dapapi.DebugScenario{}, err
	}
	return dapapi.DebugScenario{Label: cfg.Label, Adapter: cfg.Adapter, Config: text}, nil
}
