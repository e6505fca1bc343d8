// Package binary locates the netcoredbg executable, downloading and caching a
// release build when the user did not supply one.
package binary

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"dapboot/internal/archive"
	"dapboot/internal/audit"
	"dapboot/internal/fsutil"
	"dapboot/internal/platform"
	"dapboot/internal/release"
	"dapboot/internal/store"
)

type Source string

const (
	SourceUser     Source = "user"
	SourceCache    Source = "cache"
	SourceDownload Source = "download"
)

// Resolved is the outcome of one resolution. Version and Platform are empty
// for a user-supplied path.
type Resolved struct {
	Path     string          `json:"path"`
	Source   Source          `json:"source"`
	Version  string          `json:"version,omitempty"`
	Platform platform.Triple `json:"platform,omitempty"`
}

// ReleaseIndex finds and fetches release archives. *release.Client satisfies it.
type ReleaseIndex interface {
	FindAsset(ctx context.Context, version string, triple platform.Triple) (release.Asset, error)
	Download(ctx context.Context, asset release.Asset, w io.Writer) (int64, error)
}

// Resolver holds no mutable state and is safe for concurrent use. The cache
// directory is shared between resolvers and processes; builds are staged
// privately and published with a single rename.
type Resolver struct {
	CacheRoot string
	Version   string
	Platform  func() (platform.Triple, error)
	Releases  ReleaseIndex
	Logger    zerolog.Logger
	Audit     *audit.Logger
}

// Resolve returns the adapter executable: userPath when given, otherwise the
// cached build of r.Version, otherwise a freshly downloaded one.
func (r *Resolver) Resolve(ctx context.Context, userPath string) (Resolved, error) {
	if userPath != "" {
		if err := fsutil.CheckExecutable(userPath); err != nil {
			return Resolved{}, &InvalidUserPathError{Path: userPath, Reason: err.Error()}
		}
		r.Logger.Debug().Str("path", userPath).Msg("using user-provided adapter")
		return Resolved{Path: userPath, Source: SourceUser}, nil
	}

	detect := r.Platform
	if detect == nil {
		detect = platform.Detect
	}
	triple, err := detect()
	if err != nil {
		return Resolved{}, err
	}
	if r.CacheRoot == "" || r.Version == "" {
		return Resolved{}, &AcquisitionError{Op: "configure", Err: errors.New("cache root and adapter version are required")}
	}

	exe := store.ExecutablePath(r.CacheRoot, r.Version, triple)
	if fsutil.IsExecutable(exe) {
		r.Logger.Debug().Str("path", exe).Msg("adapter cache hit")
		return Resolved{Path: exe, Source: SourceCache, Version: r.Version, Platform: triple}, nil
	}
	if err := r.acquire(ctx, triple); err != nil {
		return Resolved{}, err
	}
	return Resolved{Path: exe, Source: SourceDownload, Version: r.Version, Platform: triple}, nil
}

// ResolvePath returns only the executable path.
func (r *Resolver) ResolvePath(ctx context.Context, userPath string) (string, error) {
	res, err := r.Resolve(ctx, userPath)
	if err != nil {
		return "", err
	}
	return res.Path, nil
}

func (r *Resolver) acquire(ctx context.Context, triple platform.Triple) error {
	if r.Releases == nil {
		return &AcquisitionError{Op: "lookup", Err: errors.New("no release index configured")}
	}
	trail := r.Audit.Begin("acquire", map[string]string{"version": r.Version, "platform": string(triple)})
	log := r.Logger.With().
		Str("version", r.Version).
		Str("platform", string(triple)).
		Str("attempt", trail.Attempt()).
		Logger()
	log.Info().Msg("netcoredbg not cached, downloading release")

	asset, err := r.Releases.FindAsset(ctx, r.Version, triple)
	trail.Step("lookup", err)
	if err != nil {
		if errors.Is(err, release.ErrNoAsset) {
			return &NoMatchingAssetError{Platform: triple, Version: r.Version, Err: err}
		}
		return &AcquisitionError{Op: "lookup", Err: err}
	}

	dest := store.PlatformRoot(r.CacheRoot, r.Version, triple)
	exe := store.ExecutablePath(r.CacheRoot, r.Version, triple)
	err = fsutil.WithTempDir(store.StagingRoot(r.CacheRoot), trail.Attempt()+"-*", func(dir string) error {
		archivePath := filepath.Join(dir, platform.AssetName(triple))
		n, err := r.download(ctx, asset, archivePath)
		trail.Step("download", err)
		if err != nil {
			return &AcquisitionError{Op: "download", Err: err}
		}
		log.Debug().Int64("bytes", n).Str("asset", asset.Name).Msg("release downloaded")

		tree := filepath.Join(dir, "tree")
		err = archive.Extract(archivePath, tree)
		if err == nil {
			err = fsutil.MarkExecutable(filepath.Join(tree, platform.ExecutableName(triple)))
		}
		trail.Step("extract", err)
		if err != nil {
			return &AcquisitionError{Op: "extract", Err: err}
		}

		won, err := publish(tree, dest, exe)
		trail.Step("commit", err)
		if err != nil {
			return &AcquisitionError{Op: "commit", Err: err}
		}
		if !won {
			log.Debug().Msg("another writer published this build first, discarding ours")
		}
		return nil
	})
	if err != nil {
		var acq *AcquisitionError
		if errors.As(err, &acq) {
			log.Error().Err(err).Msg("adapter acquisition failed")
			return err
		}
		return &AcquisitionError{Op: "stage", Err: err}
	}
	if err := fsutil.CheckExecutable(exe); err != nil {
		return &AcquisitionError{Op: "verify", Err: fmt.Errorf("%s: %w", exe, err)}
	}
	log.Info().Str("path", exe).Msg("netcoredbg installed")
	return nil
}

func (r *Resolver) download(ctx context.Context, asset release.Asset, path string) (int64, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, err
	}
	n, err := r.Releases.Download(ctx, asset, f)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	return n, err
}

// publish moves tree to dest. won is false when a valid build was already in
// place, either before we started or because a concurrent writer got there
// first. A broken build at dest is replaced.
func publish(tree, dest, exe string) (won bool, err error) {
	if fsutil.IsExecutable(exe) {
		return false, nil
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return false, err
	}
	if err := os.Rename(tree, dest); err == nil {
		return true, nil
	}
	if fsutil.IsExecutable(exe) {
		return false, nil
	}
	if err := fsutil.PlaceDir(tree, dest); err != nil {
		if fsutil.IsExecutable(exe) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
