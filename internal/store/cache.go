package store

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"golang.org/x/mod/semver"

	"dapboot/internal/fsutil"
	"dapboot/internal/platform"
)

// Entry is one extracted adapter build in the cache.
type Entry struct {
	Version    string          `json:"version"`
	Platform   platform.Triple `json:"platform"`
	Path       string          `json:"path"`
	Executable bool            `json:"executable"`
}

// List returns the cached builds, newest version first. A missing root is an
// empty cache.
func List(root string) ([]Entry, error) {
	versions, err := versionDirs(root)
	if err != nil {
		return nil, err
	}
	out := []Entry{}
	for _, v := range versions {
		platforms, err := os.ReadDir(VersionRoot(root, v))
		if err != nil {
			return nil, fmt.Errorf("CACHE_READ: %w", err)
		}
		for _, p := range platforms {
			if !p.IsDir() || isScratch(p.Name()) {
				continue
			}
			triple := platform.Triple(p.Name())
			exe := ExecutablePath(root, v, triple)
			out = append(out, Entry{
				Version:    v,
				Platform:   triple,
				Path:       exe,
				Executable: fsutil.IsExecutable(exe),
			})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Version != out[j].Version {
			return newer(out[i].Version, out[j].Version)
		}
		return out[i].Platform < out[j].Platform
	})
	return out, nil
}

// Prune deletes every cached version except keep and returns the removed
// versions, newest first.
func Prune(root, keep string) ([]string, error) {
	versions, err := versionDirs(root)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(versions, func(i, j int) bool { return newer(versions[i], versions[j]) })
	removed := []string{}
	for _, v := range versions {
		if v == keep {
			continue
		}
		if err := os.RemoveAll(VersionRoot(root, v)); err != nil {
			return removed, fmt.Errorf("CACHE_PRUNE: %w", err)
		}
		removed = append(removed, v)
	}
	return removed, nil
}

func versionDirs(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("CACHE_READ: %w", err)
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() || isScratch(e.Name()) {
			continue
		}
		out = append(out, e.Name())
	}
	return out, nil
}

// isScratch matches staging directories and PlaceDir backups.
func isScratch(name string) bool {
	return strings.HasPrefix(name, ".") || strings.Contains(name, ".bak-")
}

func newer(a, b string) bool {
	va, vb := normalizeSemver(a), normalizeSemver(b)
	if va == "" || vb == "" {
		if (va == "") != (vb == "") {
			return va != ""
		}
		return a > b
	}
	if c := semver.Compare(va, vb); c != 0 {
		return c > 0
	}
	return a > b
}

// normalizeSemver accepts release tags with or without the leading "v".
func normalizeSemver(v string) string {
	if v == "" {
		return ""
	}
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return ""
	}
	return v
}
