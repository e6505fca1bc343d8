package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"dapboot/internal/audit"
	"dapboot/internal/binary"
	"dapboot/internal/config"
	"dapboot/internal/dapconfig"
	"dapboot/internal/doctor"
	"dapboot/internal/logging"
	"dapboot/internal/platform"
	"dapboot/internal/release"
	storepkg "dapboot/internal/store"
	"dapboot/pkg/dapapi"
)

var _ dapapi.Extension = (*Service)(nil)

type Options struct {
	ConfigPath string
	HTTPClient *http.Client
	// LogLevel overrides the configured level when set.
	LogLevel  string
	LogOutput io.Writer
	Platform  func() (platform.Triple, error)
}

type Service struct {
	ConfigPath string
	Config     config.Config
	CacheRoot  string
	Logger     zerolog.Logger

	Binary *binary.Resolver
	Doctor *doctor.Service
	Audit  *audit.Logger
}

func New(opts Options) (*Service, error) {
	configPath := opts.ConfigPath
	if configPath == "" {
		configPath = config.DefaultConfigPath()
	}
	cfg, err := config.Ensure(configPath)
	if err != nil {
		return nil, err
	}

	logCfg := logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Output: opts.LogOutput}
	if opts.LogLevel != "" {
		if _, err := logging.ParseLevel(opts.LogLevel); err != nil {
			return nil, err
		}
		logCfg.Level = opts.LogLevel
	}
	logger := logging.NewWithComponent(logCfg, "app")

	cacheRoot, err := config.ResolveCacheRoot(cfg)
	if err != nil {
		return nil, fmt.Errorf("CONF_STORAGE: %w", err)
	}
	auditLog := audit.New(storepkg.AuditPath(cacheRoot))

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: config.Timeout(cfg)}
	}
	resolver := &binary.Resolver{
		CacheRoot: cacheRoot,
		Version:   cfg.Adapter.Version,
		Platform:  opts.Platform,
		Releases:  release.New(client, cfg.Adapter.ReleaseAPI, cfg.Adapter.ReleaseRepo),
		Logger:    logging.NewWithComponent(logCfg, "binary"),
		Audit:     auditLog,
	}
	doctorSvc := &doctor.Service{ConfigPath: configPath, Platform: opts.Platform}

	return &Service{
		ConfigPath: configPath,
		Config:     cfg,
		CacheRoot:  cacheRoot,
		Logger:     logger,
		Binary:     resolver,
		Doctor:     doctorSvc,
		Audit:      auditLog,
	}, nil
}

func (s *Service) SaveConfig() error {
	return config.Save(s.ConfigPath, s.Config)
}

// AdapterBinary validates the task configuration and resolves the adapter
// executable that should serve it.
func (s *Service) AdapterBinary(ctx context.Context, adapterName string, task dapapi.TaskDefinition, worktreeRoot string) (dapapi.AdapterBinary, error) {
	bin, err := dapconfig.TranslateToAdapterBinary(ctx, adapterName, task, worktreeRoot, s.Binary)
	if err != nil {
		return dapapi.AdapterBinary{}, err
	}
	s.Logger.Debug().
		Str("command", bin.Command).
		Str("cwd", bin.Cwd).
		Str("request", string(bin.RequestArgs.Request)).
		Msg("adapter binary ready")
	return bin, nil
}

func (s *Service) RequestKind(adapterName string, raw json.RawMessage) (dapapi.RequestKind, error) {
	return dapconfig.ClassifyRequest(adapterName, raw)
}

func (s *Service) ConfigToScenario(cfg dapapi.DebugConfig) (dapapi.DebugScenario, error) {
	return dapconfig.ConfigToScenario(cfg)
}

func (s *Service) Resolve(ctx context.Context, userPath string) (binary.Resolved, error) {
	return s.Binary.Resolve(ctx, userPath)
}

func (s *Service) Schema() ([]byte, error) {
	return dapconfig.Schema()
}

func (s *Service) CacheList() ([]storepkg.Entry, error) {
	return storepkg.List(s.CacheRoot)
}

// CachePrune removes every cached version except the configured one.
func (s *Service) CachePrune() ([]string, error) {
	keep := s.Config.Adapter.Version
	trail := s.Audit.Begin("prune", map[string]string{"keep": keep})
	removed, err := storepkg.Prune(s.CacheRoot, keep)
	trail.Step("remove", err)
	if err != nil {
		return removed, err
	}
	if len(removed) > 0 {
		s.Logger.Info().Strs("versions", removed).Str("kept", keep).Msg("pruned adapter cache")
	}
	return removed, nil
}

func (s *Service) DoctorRun(ctx context.Context) doctor.Report {
	return s.Doctor.Run(ctx)
}

func (s *Service) ConfigGet(key string) (string, error) {
	return config.Get(s.Config, key)
}

// ConfigSet updates one setting and persists it. The running resolver keeps
// the values it was built with.
func (s *Service) ConfigSet(key, value string) error {
	if err := config.Set(&s.Config, key, value); err != nil {
		return err
	}
	return s.SaveConfig()
}
