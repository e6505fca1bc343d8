package dapconfig

import (
	"context"
	"sort"

	"dapboot/pkg/dapapi"
)

// InterpreterArg selects the VS Code flavour of the debug adapter protocol.
const InterpreterArg = "--interpreter=vscode"

// BinaryLocator yields the adapter executable path. userPath is the
// user-supplied override and may be empty.
type BinaryLocator interface {
	ResolvePath(ctx context.Context, userPath string) (string, error)
}

// TranslateToAdapterBinary validates task.Config and builds the command used to
// start the adapter. The locator is only consulted once the configuration is
// known to be valid.
func TranslateToAdapterBinary(ctx context.Context, adapterName string, task dapapi.TaskDefinition, worktreeRoot string, locator BinaryLocator) (dapapi.AdapterBinary, error) {
	if adapterName != AdapterName {
		return dapapi.AdapterBinary{}, &UnknownAdapterError{Name: adapterName}
	}
	cfg, err := ParseConfig(task.Config)
	if err != nil {
		return dapapi.AdapterBinary{}, err
	}
	kind, err := ParseRequestKind(cfg.Request)
	if err != nil {
		return dapapi.AdapterBinary{}, err
	}

	cwd := worktreeRoot
	if cfg.Cwd != nil {
		cwd = *cfg.Cwd
	}

	command, err := locator.ResolvePath(ctx, task.UserAdapterPath)
	if err != nil {
		return dapapi.AdapterBinary{}, err
	}

	return dapapi.AdapterBinary{
		Command:   command,
		Arguments: []string{InterpreterArg},
		Envs:      flattenEnv(cfg.Env),
		Cwd:       cwd,
		RequestArgs: dapapi.StartDebuggingRequestArguments{
			Configuration: string(task.Config),
			Request:       kind,
		},
	}, nil
}

func flattenEnv(env map[string]string) []dapapi.EnvVar {
	out := make([]dapapi.EnvVar, 0, len(env))
	for k, v := range env {
		out = append(out, dapapi.EnvVar{Name: k, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
