// Package platform maps the host operating system and CPU architecture to the
// netcoredbg release naming.
package platform

import (
	"fmt"
	"runtime"
	"sort"
)

// Triple names a supported (OS family, architecture) pair, e.g. "linux-amd64".
type Triple string

func (t Triple) String() string { return string(t) }

type target struct {
	triple     Triple
	archive    string
	executable string
}

var targets = map[string]target{
	"linux/amd64":   {triple: "linux-amd64", archive: ".tar.gz", executable: "netcoredbg"},
	"linux/arm64":   {triple: "linux-arm64", archive: ".tar.gz", executable: "netcoredbg"},
	"darwin/amd64":  {triple: "osx-amd64", archive: ".tar.gz", executable: "netcoredbg"},
	"darwin/arm64":  {triple: "osx-arm64", archive: ".tar.gz", executable: "netcoredbg"},
	"windows/amd64": {triple: "win64", archive: ".zip", executable: "netcoredbg.exe"},
}

type UnsupportedError struct {
	OS   string
	Arch string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("BIN_PLATFORM: netcoredbg is not available for %s/%s", e.OS, e.Arch)
}

// Detect returns the triple of the running host.
func Detect() (Triple, error) {
	return For(runtime.GOOS, runtime.GOARCH)
}

func For(goos, goarch string) (Triple, error) {
	t, ok := targets[goos+"/"+goarch]
	if !ok {
		return "", &UnsupportedError{OS: goos, Arch: goarch}
	}
	return t.triple, nil
}

func lookup(triple Triple) (target, bool) {
	for _, t := range targets {
		if t.triple == triple {
			return t, true
		}
	}
	return target{}, false
}

// AssetName is the release asset carrying the adapter for triple.
func AssetName(triple Triple) string {
	t, ok := lookup(triple)
	if !ok {
		return ""
	}
	return "netcoredbg-" + string(t.triple) + t.archive
}

// ExecutableName is the adapter file name inside an extracted release.
func ExecutableName(triple Triple) string {
	t, ok := lookup(triple)
	if !ok {
		return "netcoredbg"
	}
	return t.executable
}

// Supported lists every known triple in lexical order.
func Supported() []Triple {
	out := make([]Triple, 0, len(targets))
	for _, t := range targets {
		out = append(out, t.triple)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
