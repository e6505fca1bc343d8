// Package doctor inspects the local environment for problems that would stop
// netcoredbg from being resolved or started.
package doctor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"

	"dapboot/internal/config"
	"dapboot/internal/platform"
	"dapboot/internal/store"
)

// MinFreeBytes is the free space below which the cache volume is reported.
const MinFreeBytes = 256 << 20

type Finding struct {
	Code    string `json:"code"`
	Level   string `json:"level"`
	Message string `json:"message"`
}

type Report struct {
	Healthy        bool            `json:"healthy"`
	Findings       []Finding       `json:"findings"`
	Platform       platform.Triple `json:"platform,omitempty"`
	AdapterVersion string          `json:"adapterVersion,omitempty"`
	CacheRoot      string          `json:"cacheRoot,omitempty"`
	PathAdapter    string          `json:"pathAdapter,omitempty"`
}

// Service runs the checks. Nil hooks use the real host.
type Service struct {
	ConfigPath string
	Platform   func() (platform.Triple, error)
	KernelArch func(ctx context.Context) (string, error)
	FreeBytes  func(ctx context.Context, path string) (uint64, error)
	LookPath   func(file string) (string, error)
	GOARCH     string
}

func (s *Service) Run(ctx context.Context) Report {
	findings := []Finding{}
	add := func(code, level, format string, args ...any) {
		findings = append(findings, Finding{Code: code, Level: level, Message: fmt.Sprintf(format, args...)})
	}
	report := Report{}

	cfg := config.DefaultConfig()
	if _, err := os.Stat(s.ConfigPath); err != nil {
		add("DOC_CONFIG_MISSING", "error", "%v", err)
	} else if loaded, err := config.Load(s.ConfigPath); err != nil {
		add("DOC_CONFIG_INVALID", "error", "%v", err)
	} else {
		cfg = loaded
	}
	report.AdapterVersion = cfg.Adapter.Version

	detect := s.Platform
	if detect == nil {
		detect = platform.Detect
	}
	triple, platformErr := detect()
	if platformErr != nil {
		add("DOC_PLATFORM_UNSUPPORTED", "error", "%v (releases exist for %s)", platformErr, supportedList())
	} else {
		report.Platform = triple
	}
	s.checkHostArch(ctx, add)

	root, err := config.ResolveCacheRoot(cfg)
	if err != nil {
		add("DOC_CACHE_ROOT", "error", "cannot resolve cache root %q: %v", cfg.Adapter.CacheRoot, err)
	} else {
		report.CacheRoot = root
		s.checkCache(ctx, root, cfg.Adapter.Version, triple, platformErr == nil, add)
	}

	lookPath := s.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	exeName := "netcoredbg"
	if platformErr == nil {
		exeName = platform.ExecutableName(triple)
	}
	if p, err := lookPath(exeName); err == nil {
		report.PathAdapter = p
		add("DOC_PATH_ADAPTER", "info", "%s found on PATH at %s; pass it as the adapter path to skip downloads", exeName, p)
	}

	healthy := true
	for _, f := range findings {
		if f.Level == "error" {
			healthy = false
			break
		}
	}
	report.Healthy = healthy
	report.Findings = findings
	return report
}

// checkHostArch warns when an amd64 build runs translated on an arm64 kernel;
// the downloaded adapter would then be the amd64 one as well.
func (s *Service) checkHostArch(ctx context.Context, add func(code, level, format string, args ...any)) {
	kernelArch := s.KernelArch
	if kernelArch == nil {
		kernelArch = func(context.Context) (string, error) { return host.KernelArch() }
	}
	goarch := s.GOARCH
	if goarch == "" {
		goarch = runtime.GOARCH
	}
	arch, err := kernelArch(ctx)
	if err != nil || arch == "" {
		return
	}
	arch = strings.ToLower(arch)
	if goarch == "amd64" && (arch == "arm64" || arch == "aarch64") {
		add("DOC_HOST_EMULATED", "warn", "dapboot is an amd64 build running on a %s kernel; install the native arm64 build to get the matching netcoredbg", arch)
	}
}

func (s *Service) checkCache(ctx context.Context, root, version string, triple platform.Triple, havePlatform bool, add func(code, level, format string, args ...any)) {
	info, err := os.Stat(root)
	switch {
	case errors.Is(err, os.ErrNotExist):
		add("DOC_CACHE_ABSENT", "info", "cache root %s does not exist yet; it is created on first download", root)
		return
	case err != nil:
		add("DOC_CACHE_ROOT", "error", "%v", err)
		return
	case !info.IsDir():
		add("DOC_CACHE_ROOT", "error", "cache root %s is not a directory", root)
		return
	}
	if err := checkWritable(root); err != nil {
		add("DOC_CACHE_READONLY", "error", "cache root %s is not writable: %v", root, err)
	}

	freeBytes := s.FreeBytes
	if freeBytes == nil {
		freeBytes = diskFree
	}
	if free, err := freeBytes(ctx, root); err == nil && free < MinFreeBytes {
		add("DOC_CACHE_LOW_SPACE", "warn", "only %d MiB free under %s", free>>20, root)
	}

	entries, err := store.List(root)
	if err != nil {
		add("DOC_CACHE_READ", "error", "%v", err)
		return
	}
	pinned := false
	stale := map[string]struct{}{}
	for _, e := range entries {
		if e.Version != version {
			stale[e.Version] = struct{}{}
			continue
		}
		if !havePlatform || e.Platform != triple {
			continue
		}
		if e.Executable {
			pinned = true
		} else {
			add("DOC_CACHE_BROKEN", "warn", "cached %s/%s has no usable executable at %s; it is replaced on next use", e.Version, e.Platform, e.Path)
		}
	}
	if havePlatform && !pinned {
		add("DOC_ADAPTER_NOT_CACHED", "info", "netcoredbg %s for %s is not cached; it is downloaded on first use", version, triple)
	}
	if len(stale) > 0 {
		names := make([]string, 0, len(stale))
		for _, e := range entries {
			if _, ok := stale[e.Version]; ok {
				names = append(names, e.Version)
				delete(stale, e.Version)
			}
		}
		add("DOC_CACHE_STALE", "warn", "cache holds versions other than %s: %s (run `dapboot cache prune`)", version, strings.Join(names, ", "))
	}
}

func checkWritable(dir string) error {
	f, err := os.CreateTemp(dir, ".doctor-*")
	if err != nil {
		return err
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}

func diskFree(ctx context.Context, path string) (uint64, error) {
	usage, err := disk.UsageWithContext(ctx, path)
	if err != nil {
		return 0, err
	}
	return usage.Free, nil
}

func supportedList() string {
	names := make([]string, 0, len(platform.Supported()))
	for _, t := range platform.Supported() {
		names = append(names, string(t))
	}
	return strings.Join(names, ", ")
}
