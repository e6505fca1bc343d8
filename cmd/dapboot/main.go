package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"dapboot/internal/app"
	"dapboot/internal/binary"
	"dapboot/internal/config"
	"dapboot/internal/dapconfig"
	"dapboot/internal/platform"
	"dapboot/pkg/dapapi"
)

type ExitCoder interface {
	ExitCode() int
}

type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }
func (e *exitError) ExitCode() int { return e.code }

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// exitCode is 2 when the environment (network, disk, platform) is at fault
// and 1 for everything the caller can fix in their request.
func exitCode(err error) int {
	var ex ExitCoder
	if errors.As(err, &ex) {
		return ex.ExitCode()
	}
	var (
		unsupported *platform.UnsupportedError
		noAsset     *binary.NoMatchingAssetError
		acquire     *binary.AcquisitionError
	)
	if errors.As(err, &unsupported) || errors.As(err, &noAsset) || errors.As(err, &acquire) {
		return 2
	}
	return 1
}

func newRootCmd() *cobra.Command {
	var configPath string
	var jsonOutput bool
	var logLevel string

	newSvc := func() (*app.Service, error) {
		return app.New(app.Options{ConfigPath: configPath, LogLevel: logLevel})
	}

	cmd := &cobra.Command{
		Use:           "dapboot",
		Short:         "Bootstrap and configure the netcoredbg debug adapter",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")
	cmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output JSON")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the configured log level (trace|debug|info|warn|error)")

	cmd.AddCommand(newBinaryCmd(newSvc))
	cmd.AddCommand(newResolveCmd(newSvc, &jsonOutput))
	cmd.AddCommand(newKindCmd(newSvc, &jsonOutput))
	cmd.AddCommand(newScenarioCmd(newSvc, &jsonOutput))
	cmd.AddCommand(newSchemaCmd(newSvc))
	cmd.AddCommand(newCacheCmd(newSvc, &jsonOutput))
	cmd.AddCommand(newConfigCmd(newSvc, &jsonOutput))
	cmd.AddCommand(newDoctorCmd(newSvc, &jsonOutput))
	cmd.AddCommand(newVersionCmd(&jsonOutput))

	return cmd
}

func newBinaryCmd(newSvc func() (*app.Service, error)) *cobra.Command {
	var taskPath string
	var worktree string
	var adapterPath string
	cmd := &cobra.Command{
		Use:   "binary",
		Short: "Validate a debug task and print the adapter launch description",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if taskPath == "" {
				return fmt.Errorf("CLI_USAGE: --task is required")
			}
			blob, err := readInput(cmd, taskPath)
			if err != nil {
				return err
			}
			var task dapapi.TaskDefinition
			if err := json.Unmarshal(blob, &task); err != nil {
				return fmt.Errorf("CLI_TASK: invalid task definition: %w", err)
			}
			if task.Adapter == "" {
				task.Adapter = dapconfig.AdapterName
			}
			if adapterPath != "" {
				task.UserAdapterPath = adapterPath
			}
			if worktree == "" {
				if worktree, err = os.Getwd(); err != nil {
					return err
				}
			}
			svc, err := newSvc()
			if err != nil {
				return err
			}
			bin, err := svc.AdapterBinary(cmd.Context(), task.Adapter, task, worktree)
			if err != nil {
				return err
			}
			return print(true, bin, "")
		},
	}
	cmd.Flags().StringVar(&taskPath, "task", "", "task definition JSON file, or - for stdin")
	cmd.Flags().StringVar(&worktree, "worktree", "", "worktree root used when the config has no cwd (default: current directory)")
	cmd.Flags().StringVar(&adapterPath, "adapter-path", "", "use this netcoredbg executable instead of the cached one")
	return cmd
}

func newResolveCmd(newSvc func() (*app.Service, error), jsonOutput *bool) *cobra.Command {
	var adapterPath string
	cmd := &cobra.Command{
		Use:     "resolve",
		Aliases: []string{"which"},
		Short:   "Locate the netcoredbg executable, downloading it when needed",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc()
			if err != nil {
				return err
			}
			res, err := svc.Resolve(cmd.Context(), adapterPath)
			if err != nil {
				return err
			}
			return print(*jsonOutput, res, res.Path)
		},
	}
	cmd.Flags().StringVar(&adapterPath, "adapter-path", "", "user-provided netcoredbg executable")
	return cmd
}

func newKindCmd(newSvc func() (*app.Service, error), jsonOutput *bool) *cobra.Command {
	var adapter string
	cmd := &cobra.Command{
		Use:   "kind <config.json|->",
		Short: "Classify a debug configuration as launch or attach",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			blob, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			svc, err := newSvc()
			if err != nil {
				return err
			}
			kind, err := svc.RequestKind(adapter, blob)
			if err != nil {
				return err
			}
			return print(*jsonOutput, map[string]string{"request": kind.String()}, kind.String())
		},
	}
	cmd.Flags().StringVar(&adapter, "adapter", dapconfig.AdapterName, "adapter name")
	return cmd
}

func newScenarioCmd(newSvc func() (*app.Service, error), jsonOutput *bool) *cobra.Command {
	var label string
	scenarioCmd := &cobra.Command{Use: "scenario", Short: "Build a native netcoredbg configuration"}
	scenarioCmd.PersistentFlags().StringVar(&label, "label", "", "scenario label")

	emit := func(req dapapi.DebugRequest, stopOnEntry *bool) error {
		svc, err := newSvc()
		if err != nil {
			return err
		}
		scenario, err := svc.ConfigToScenario(dapapi.DebugConfig{
			Label:       label,
			Adapter:     dapconfig.AdapterName,
			Request:     req,
			StopOnEntry: stopOnEntry,
		})
		if err != nil {
			return err
		}
		return print(*jsonOutput, scenario, scenario.Config)
	}

	var program, cwd string
	var launchArgs []string
	var envs map[string]string
	var launchStop optionalBool
	launchCmd := &cobra.Command{
		Use:   "launch",
		Short: "Configuration that starts a program under the debugger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if program == "" {
				return fmt.Errorf("CLI_USAGE: --program is required")
			}
			req := dapapi.LaunchRequest{Program: program, Args: launchArgs, Envs: envs}
			if cmd.Flags().Changed("cwd") {
				req.Cwd = &cwd
			}
			return emit(req, launchStop.ptr())
		},
	}
	launchCmd.Flags().StringVar(&program, "program", "", "program or assembly to launch")
	launchCmd.Flags().StringArrayVar(&launchArgs, "arg", nil, "program argument (repeatable)")
	launchCmd.Flags().StringVar(&cwd, "cwd", "", "working directory")
	launchCmd.Flags().StringToStringVar(&envs, "env", nil, "environment variable KEY=VALUE (repeatable)")
	launchStop.register(launchCmd.Flags(), "stop-on-entry", "break at the program entry point")

	var pid uint64
	var attachStop optionalBool
	attachCmd := &cobra.Command{
		Use:   "attach",
		Short: "Configuration that attaches to a running process",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := dapapi.AttachRequest{}
			if cmd.Flags().Changed("pid") {
				req.ProcessID = &pid
			}
			return emit(req, attachStop.ptr())
		},
	}
	attachCmd.Flags().Uint64Var(&pid, "pid", 0, "target process id")
	attachStop.register(attachCmd.Flags(), "stop-on-entry", "break as soon as the debugger attaches")

	scenarioCmd.AddCommand(launchCmd, attachCmd)
	return scenarioCmd
}

func newSchemaCmd(newSvc func() (*app.Service, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema of the netcoredbg configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc()
			if err != nil {
				return err
			}
			blob, err := svc.Schema()
			if err != nil {
				return err
			}
			fmt.Println(string(blob))
			return nil
		},
	}
}

func newCacheCmd(newSvc func() (*app.Service, error), jsonOutput *bool) *cobra.Command {
	cacheCmd := &cobra.Command{Use: "cache", Short: "Inspect the downloaded adapter cache"}

	listCmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List cached adapter builds",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc()
			if err != nil {
				return err
			}
			entries, err := svc.CacheList()
			if err != nil {
				return err
			}
			if *jsonOutput {
				return print(true, entries, "")
			}
			if len(entries) == 0 {
				fmt.Println("cache is empty")
				return nil
			}
			for _, e := range entries {
				marker := ""
				if e.Version == svc.Config.Adapter.Version {
					marker = " (pinned)"
				}
				if !e.Executable {
					marker += " [broken]"
				}
				fmt.Printf("- %s %s%s\n  %s\n", e.Version, e.Platform, marker, e.Path)
			}
			return nil
		},
	}

	pruneCmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete every cached version except the pinned one",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc()
			if err != nil {
				return err
			}
			removed, err := svc.CachePrune()
			if err != nil {
				return err
			}
			msg := "nothing to prune"
			if len(removed) > 0 {
				msg = "removed " + strings.Join(removed, ", ")
			}
			return print(*jsonOutput, map[string][]string{"removed": removed}, msg)
		},
	}

	cacheCmd.AddCommand(listCmd, pruneCmd)
	return cacheCmd
}

func newConfigCmd(newSvc func() (*app.Service, error), jsonOutput *bool) *cobra.Command {
	configCmd := &cobra.Command{Use: "config", Short: "Read and change dapboot settings"}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc()
			if err != nil {
				return err
			}
			if *jsonOutput {
				return print(true, svc.Config, "")
			}
			fmt.Printf("config: %s\n", svc.ConfigPath)
			for _, key := range config.Keys() {
				value, _ := svc.ConfigGet(key)
				fmt.Printf("%s = %s\n", key, value)
			}
			return nil
		},
	}

	getCmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Print one setting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc()
			if err != nil {
				return err
			}
			value, err := svc.ConfigGet(args[0])
			if err != nil {
				return err
			}
			return print(*jsonOutput, map[string]string{args[0]: value}, value)
		},
	}

	setCmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change one setting",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc()
			if err != nil {
				return err
			}
			if err := svc.ConfigSet(args[0], args[1]); err != nil {
				return err
			}
			value, _ := svc.ConfigGet(args[0])
			return print(*jsonOutput, map[string]string{args[0]: value}, fmt.Sprintf("%s = %s", args[0], value))
		},
	}

	configCmd.AddCommand(showCmd, getCmd, setCmd)
	return configCmd
}

func newDoctorCmd(newSvc func() (*app.Service, error), jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:     "doctor",
		Aliases: []string{"diag", "checkup"},
		Short:   "Run diagnostics",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc()
			if err != nil {
				return err
			}
			report := svc.DoctorRun(cmd.Context())
			if *jsonOutput {
				if err := print(true, report, ""); err != nil {
					return err
				}
			} else {
				if report.Healthy {
					fmt.Println("healthy")
				} else {
					fmt.Println("issues found:")
				}
				for _, f := range report.Findings {
					fmt.Printf("- [%s] %s: %s\n", f.Level, f.Code, f.Message)
				}
			}
			if !report.Healthy {
				return &exitError{code: 2, msg: "DOC_UNHEALTHY: doctor found blocking issues"}
			}
			return nil
		},
	}
}

// optionalBool is a boolean flag that remembers whether it was given, so an
// absent flag stays absent in the generated configuration.
type optionalBool struct {
	set   bool
	value bool
}

func (b *optionalBool) String() string {
	if !b.set {
		return ""
	}
	return strconv.FormatBool(b.value)
}

func (b *optionalBool) Set(s string) error {
	v, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	b.set, b.value = true, v
	return nil
}

func (b *optionalBool) Type() string { return "bool" }

func (b *optionalBool) ptr() *bool {
	if !b.set {
		return nil
	}
	v := b.value
	return &v
}

func (b *optionalBool) register(fs *pflag.FlagSet, name, usage string) {
	fs.Var(b, name, usage)
	fs.Lookup(name).NoOptDefVal = "true"
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("CLI_INPUT: %w", err)
	}
	return blob, nil
}

func print(jsonOutput bool, payload any, message string) error {
	if jsonOutput {
		blob, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(blob))
		return nil
	}
	if message != "" {
		fmt.Println(message)
	}
	return nil
}
