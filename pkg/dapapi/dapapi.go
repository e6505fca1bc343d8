package dapapi

import (
	"context"
	"encoding/json"
)

type Extension interface {
	AdapterBinary(ctx context.Context, adapterName string, task TaskDefinition, worktreeRoot string) (AdapterBinary, error)
	RequestKind(adapterName string, config json.RawMessage) (RequestKind, error)
	ConfigToScenario(cfg DebugConfig) (DebugScenario, error)
}

// RequestKind selects the DAP request used to start a session.
type RequestKind string

const (
	RequestLaunch RequestKind = "launch"
	RequestAttach RequestKind = "attach"
)

func (k RequestKind) String() string { return string(k) }

type TaskDefinition struct {
	Label           string          `json:"label,omitempty"`
	Adapter         string          `json:"adapter"`
	Config          json.RawMessage `json:"config"`
	UserAdapterPath string          `json:"userProvidedAdapterPath,omitempty"`
}

type EnvVar struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type StartDebuggingRequestArguments struct {
	Configuration string      `json:"configuration"`
	Request       RequestKind `json:"request"`
}

type AdapterBinary struct {
	Command     string                         `json:"command"`
	Arguments   []string                       `json:"arguments"`
	Envs        []EnvVar                       `json:"envs"`
	Cwd         string                         `json:"cwd"`
	RequestArgs StartDebuggingRequestArguments `json:"requestArgs"`
}

// DebugRequest is implemented by LaunchRequest and AttachRequest only.
type DebugRequest interface {
	Kind() RequestKind
	isDebugRequest()
}

type LaunchRequest struct {
	Program string            `json:"program"`
	Args    []string          `json:"args,omitempty"`
	Cwd     *string           `json:"cwd,omitempty"`
	Envs    map[string]string `json:"envs,omitempty"`
}

func (LaunchRequest) Kind() RequestKind { return RequestLaunch }
func (LaunchRequest) isDebugRequest()   {}

type AttachRequest struct {
	// ProcessID is unset until the user picks a target process.
	ProcessID *uint64 `json:"processId,omitempty"`
}

func (AttachRequest) Kind() RequestKind { return RequestAttach }
func (AttachRequest) isDebugRequest()   {}

type DebugConfig struct {
	Label       string
	Adapter     string
	Request     DebugRequest
	StopOnEntry *bool
}

type DebugScenario struct {
	Label   string `json:"label"`
	Adapter string `json:"adapter"`
	Config  string `json:"config"`
}
