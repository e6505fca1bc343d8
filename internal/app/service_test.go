//go:build !windows

package app

import (
	"archive/tar"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/klauspost/compress/gzip"

	"dapboot/internal/config"
	"dapboot/internal/dapconfig"
	"dapboot/internal/platform"
	"dapboot/internal/release"
	storepkg "dapboot/internal/store"
	"dapboot/pkg/dapapi"
)

func adapterArchive(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	body := "#!/bin/sh\nexit 0\n"
	if err := tw.WriteHeader(&tar.Header{Name: "netcoredbg/netcoredbg", Mode: 0o755, Size: int64(len(body)), Typeflag: tar.TypeReg}); err != nil {
		t.Fatal(err)
	}
	if _, err := tw.Write([]byte(body)); err != nil {
		t.Fatal(err)
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := gz.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

type testEnv struct {
	svc      *Service
	requests *atomic.Int32
}

func newTestService(t *testing.T) testEnv {
	t.Helper()
	t.Setenv("DAPBOOT_RELEASE_API", "")
	t.Setenv("GITHUB_TOKEN", "")
	payload := adapterArchive(t)
	var requests atomic.Int32
	mux := http.NewServeMux()
	var server *httptest.Server
	mux.HandleFunc("/repos/Samsung/netcoredbg/releases/tags/"+config.DefaultAdapterVersion, func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		_ = json.NewEncoder(w).Encode(release.Release{
			TagName: config.DefaultAdapterVersion,
			Assets: []release.Asset{
				{Name: "netcoredbg-linux-amd64.tar.gz", URL: server.URL + "/download/netcoredbg-linux-amd64.tar.gz"},
			},
		})
	})
	mux.HandleFunc("/download/netcoredbg-linux-amd64.tar.gz", func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		_, _ = w.Write(payload)
	})
	server = httptest.NewServer(mux)
	t.Cleanup(server.Close)

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.toml")
	cfg := config.DefaultConfig()
	cfg.Adapter.ReleaseAPI = server.URL
	cfg.Adapter.CacheRoot = filepath.Join(dir, "cache")
	if err := config.Save(cfgPath, cfg); err != nil {
		t.Fatalf("save config failed: %v", err)
	}
	var logs bytes.Buffer
	svc, err := New(Options{
		ConfigPath: cfgPath,
		HTTPClient: server.Client(),
		LogOutput:  &logs,
		Platform:   func() (platform.Triple, error) { return "linux-amd64", nil },
	})
	if err != nil {
		t.Fatalf("new service failed: %v", err)
	}
	return testEnv{svc: svc, requests: &requests}
}

func TestServiceAdapterBinaryDownloadsOnce(t *testing.T) {
	env := newTestService(t)
	ctx := context.Background()
	task := dapapi.TaskDefinition{
		Label:   "Launch app",
		Adapter: dapconfig.AdapterName,
		Config:  json.RawMessage(`{"request":"launch","program":"bin/app.dll","env":{"DOTNET_ENVIRONMENT":"Development"}}`),
	}

	bin, err := env.svc.AdapterBinary(ctx, dapconfig.AdapterName, task, "/work")
	if err != nil {
		t.Fatalf("adapter binary failed: %v", err)
	}
	want := storepkg.ExecutablePath(env.svc.CacheRoot, config.DefaultAdapterVersion, "linux-amd64")
	if bin.Command != want {
		t.Fatalf("command = %q, want %q", bin.Command, want)
	}
	if bin.Cwd != "/work" || bin.RequestArgs.Request != dapapi.RequestLaunch {
		t.Fatalf("unexpected binary %+v", bin)
	}
	if len(bin.Envs) != 1 || bin.Envs[0].Name != "DOTNET_ENVIRONMENT" {
		t.Fatalf("unexpected envs %+v", bin.Envs)
	}
	if got := env.requests.Load(); got != 2 {
		t.Fatalf("expected release lookup and download, got %d requests", got)
	}

	if _, err := env.svc.AdapterBinary(ctx, dapconfig.AdapterName, task, "/work"); err != nil {
		t.Fatalf("second adapter binary failed: %v", err)
	}
	if got := env.requests.Load(); got != 2 {
		t.Fatalf("cached resolution must not hit the network, got %d requests", got)
	}

	if _, err := os.Stat(storepkg.AuditPath(env.svc.CacheRoot)); err != nil {
		t.Fatalf("expected audit log: %v", err)
	}
}

func TestServiceAdapterBinaryRejectsBadConfigOffline(t *testing.T) {
	env := newTestService(t)
	task := dapapi.TaskDefinition{Adapter: dapconfig.AdapterName, Config: json.RawMessage(`{"program":"app.dll"}`)}
	_, err := env.svc.AdapterBinary(context.Background(), dapconfig.AdapterName, task, "/work")
	var parseErr *dapconfig.ConfigParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ConfigParseError, got %v", err)
	}
	if env.requests.Load() != 0 {
		t.Fatalf("invalid config must not trigger downloads")
	}
}

func TestServiceRequestKindAndScenario(t *testing.T) {
	env := newTestService(t)
	kind, err := env.svc.RequestKind(dapconfig.AdapterName, json.RawMessage(`{"request":"attach","processId":"1234"}`))
	if err != nil || kind != dapapi.RequestAttach {
		t.Fatalf("request kind = %q, %v", kind, err)
	}
	pid := uint64(1234)
	scenario, err := env.svc.ConfigToScenario(dapapi.DebugConfig{
		Label:   "Attach",
		Adapter: dapconfig.AdapterName,
		Request: dapapi.AttachRequest{ProcessID: &pid},
	})
	if err != nil {
		t.Fatalf("config to scenario failed: %v", err)
	}
	if scenario.Config != `{"request":"attach","processId":1234}` {
		t.Fatalf("unexpected scenario config %s", scenario.Config)
	}
}

func TestServiceCacheListAndPrune(t *testing.T) {
	env := newTestService(t)
	for _, v := range []string{"3.0.0-1012", config.DefaultAdapterVersion} {
		exe := storepkg.ExecutablePath(env.svc.CacheRoot, v, "linux-amd64")
		if err := os.MkdirAll(filepath.Dir(exe), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(exe, []byte("#!/bin/sh\n"), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	entries, err := env.svc.CacheList()
	if err != nil || len(entries) != 2 {
		t.Fatalf("cache list = %+v, %v", entries, err)
	}
	if entries[0].Version != config.DefaultAdapterVersion {
		t.Fatalf("expected newest first, got %+v", entries)
	}
	removed, err := env.svc.CachePrune()
	if err != nil {
		t.Fatalf("prune failed: %v", err)
	}
	if len(removed) != 1 || removed[0] != "3.0.0-1012" {
		t.Fatalf("removed = %v", removed)
	}
	entries, _ = env.svc.CacheList()
	if len(entries) != 1 {
		t.Fatalf("expected pinned version to survive, got %+v", entries)
	}
}

func TestServiceConfigSetPersists(t *testing.T) {
	env := newTestService(t)
	if err := env.svc.ConfigSet("adapter.version", "3.1.1-1042"); err != nil {
		t.Fatalf("config set failed: %v", err)
	}
	loaded, err := config.Load(env.svc.ConfigPath)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded.Adapter.Version != "3.1.1-1042" {
		t.Fatalf("version not persisted: %q", loaded.Adapter.Version)
	}
	if got, _ := env.svc.ConfigGet("adapter.version"); got != "3.1.1-1042" {
		t.Fatalf("config get = %q", got)
	}
}

func TestServiceRejectsUnknownLogLevel(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.toml")
	if _, err := New(Options{ConfigPath: cfgPath, LogLevel: "chatty"}); err == nil {
		t.Fatalf("expected log level error")
	}
}
