package platform

import (
	"errors"
	"runtime"
	"testing"
)

func TestFor(t *testing.T) {
	tests := []struct {
		goos, goarch string
		want         Triple
		asset        string
		exe          string
	}{
		{"linux", "amd64", "linux-amd64", "netcoredbg-linux-amd64.tar.gz", "netcoredbg"},
		{"linux", "arm64", "linux-arm64", "netcoredbg-linux-arm64.tar.gz", "netcoredbg"},
		{"darwin", "amd64", "osx-amd64", "netcoredbg-osx-amd64.tar.gz", "netcoredbg"},
		{"darwin", "arm64", "osx-arm64", "netcoredbg-osx-arm64.tar.gz", "netcoredbg"},
		{"windows", "amd64", "win64", "netcoredbg-win64.zip", "netcoredbg.exe"},
	}
	for _, tt := range tests {
		t.Run(tt.goos+"/"+tt.goarch, func(t *testing.T) {
			got, err := For(tt.goos, tt.goarch)
			if err != nil {
				t.Fatalf("For: %v", err)
			}
			if got != tt.want {
				t.Fatalf("triple = %q, want %q", got, tt.want)
			}
			if name := AssetName(got); name != tt.asset {
				t.Errorf("AssetName = %q, want %q", name, tt.asset)
			}
			if name := ExecutableName(got); name != tt.exe {
				t.Errorf("ExecutableName = %q, want %q", name, tt.exe)
			}
		})
	}
}

func TestForUnsupported(t *testing.T) {
	for _, pair := range [][2]string{{"freebsd", "amd64"}, {"linux", "386"}, {"windows", "arm64"}, {"plan9", "amd64"}} {
		_, err := For(pair[0], pair[1])
		var unsupported *UnsupportedError
		if !errors.As(err, &unsupported) {
			t.Fatalf("%s/%s: expected UnsupportedError, got %v", pair[0], pair[1], err)
		}
		if unsupported.OS != pair[0] || unsupported.Arch != pair[1] {
			t.Fatalf("unexpected error fields: %+v", unsupported)
		}
	}
}

func TestDetectMatchesRuntime(t *testing.T) {
	want, wantErr := For(runtime.GOOS, runtime.GOARCH)
	got, err := Detect()
	if (err == nil) != (wantErr == nil) || got != want {
		t.Fatalf("Detect = (%q, %v), want (%q, %v)", got, err, want, wantErr)
	}
}

func TestSupportedListsEveryTarget(t *testing.T) {
	got := Supported()
	want := []Triple{"linux-amd64", "linux-arm64", "osx-amd64", "osx-arm64", "win64"}
	if len(got) != len(want) {
		t.Fatalf("Supported = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Supported = %v, want %v", got, want)
		}
	}
}
