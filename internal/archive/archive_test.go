package archive

import (
	"archive/tar"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entry struct {
	name     string
	body     string
	mode     int64
	dir      bool
	link     string
	hardlink string
	typeflag byte
}

func writeTarGz(t *testing.T, path string, entries []entry) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)
	for _, e := range entries {
		hdr := &tar.Header{Name: e.name, Mode: e.mode}
		switch {
		case e.dir:
			hdr.Typeflag = tar.TypeDir
		case e.link != "":
			hdr.Typeflag = tar.TypeSymlink
			hdr.Linkname = e.link
		case e.hardlink != "":
			hdr.Typeflag = tar.TypeLink
			hdr.Linkname = e.hardlink
		case e.typeflag == tar.TypeXGlobalHeader:
			hdr.Typeflag = e.typeflag
			hdr.PAXRecords = map[string]string{"comment": e.body}
		case e.typeflag != 0:
			hdr.Typeflag = e.typeflag
		default:
			hdr.Typeflag = tar.TypeReg
			hdr.Size = int64(len(e.body))
		}
		require.NoError(t, tw.WriteHeader(hdr))
		if hdr.Typeflag == tar.TypeReg {
			_, err := tw.Write([]byte(e.body))
			require.NoError(t, err)
		}
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
}

func writeZip(t *testing.T, path string, entries []entry) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	zw := zip.NewWriter(f)
	for _, e := range entries {
		hdr := &zip.FileHeader{Name: e.name, Method: zip.Deflate}
		switch {
		case e.link != "":
			hdr.SetMode(os.ModeSymlink | 0o777)
		case e.mode != 0:
			hdr.SetMode(os.FileMode(e.mode))
		}
		w, err := zw.CreateHeader(hdr)
		require.NoError(t, err)
		body := e.body
		if e.link != "" {
			body = e.link
		}
		if !e.dir {
			_, err = w.Write([]byte(body))
			require.NoError(t, err)
		}
	}
	require.NoError(t, zw.Close())
}

func TestExtractTarGzStripsTopLevelDir(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "netcoredbg-linux-amd64.tar.gz")
	writeTarGz(t, src, []entry{
		{name: "netcoredbg/", dir: true, mode: 0o755},
		{name: "netcoredbg/netcoredbg", body: "#!/bin/sh\n", mode: 0o755},
		{name: "netcoredbg/libdbgshim.so", body: "lib", mode: 0o644},
		{name: "netcoredbg/libclrdbg.so", link: "libdbgshim.so"},
	})
	dest := filepath.Join(dir, "out")

	require.NoError(t, Extract(src, dest))

	body, err := os.ReadFile(filepath.Join(dest, "netcoredbg"))
	require.NoError(t, err)
	assert.Equal(t, "#!/bin/sh\n", string(body))
	info, err := os.Stat(filepath.Join(dest, "netcoredbg"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())
	_, err = os.Stat(filepath.Join(dest, "libdbgshim.so"))
	require.NoError(t, err)
	if runtime.GOOS != "windows" {
		target, err := os.Readlink(filepath.Join(dest, "libclrdbg.so"))
		require.NoError(t, err)
		assert.Equal(t, "libdbgshim.so", target)
	}
}

func TestExtractTarGzWithoutCommonRoot(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "flat.tgz")
	writeTarGz(t, src, []entry{
		{name: "netcoredbg", body: "bin", mode: 0o755},
		{name: "lib/libdbgshim.so", body: "lib", mode: 0o644},
	})
	dest := filepath.Join(dir, "out")
	require.NoError(t, Extract(src, dest))
	_, err := os.Stat(filepath.Join(dest, "netcoredbg"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dest, "lib", "libdbgshim.so"))
	require.NoError(t, err)
}

func TestExtractZip(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "netcoredbg-win64.zip")
	writeZip(t, src, []entry{
		{name: "netcoredbg/", dir: true},
		{name: "netcoredbg/netcoredbg.exe", body: "MZ"},
		{name: "netcoredbg/dbgshim.dll", body: "dll"},
	})
	dest := filepath.Join(dir, "out")
	require.NoError(t, Extract(src, dest))
	body, err := os.ReadFile(filepath.Join(dest, "netcoredbg.exe"))
	require.NoError(t, err)
	assert.Equal(t, "MZ", string(body))
}

func TestExtractRejectsTraversal(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		entries []entry
	}{
		{"parent dir", []entry{{name: "../evil", body: "x", mode: 0o644}}},
		{"nested parent", []entry{{name: "netcoredbg/../../evil", body: "x", mode: 0o644}}},
		{"absolute", []entry{{name: "/tmp/evil", body: "x", mode: 0o644}}},
		{"escaping link", []entry{{name: "netcoredbg/", dir: true}, {name: "netcoredbg/link", link: "../../etc/passwd"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := filepath.Join(dir, tt.name+".tar.gz")
			writeTarGz(t, src, tt.entries)
			err := Extract(src, filepath.Join(dir, "out-"+tt.name))
			assert.True(t, errors.Is(err, ErrUnsafePath), "expected ErrUnsafePath, got %v", err)
		})
	}
	_, err := os.Stat(filepath.Join(dir, "evil"))
	assert.True(t, os.IsNotExist(err))
}

func TestExtractRejectsUnknownFormat(t *testing.T) {
	err := Extract(filepath.Join(t.TempDir(), "netcoredbg.7z"), t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ARC_FORMAT")
}

func TestExtractCorruptArchive(t *testing.T) {
	src := filepath.Join(t.TempDir(), "broken.tar.gz")
	require.NoError(t, os.WriteFile(src, []byte("not gzip"), 0o644))
	err := Extract(src, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ARC_READ")
}

func TestExtractTarGzSkipsGlobalHeader(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "netcoredbg-linux-arm64.tar.gz")
	writeTarGz(t, src, []entry{
		{name: "pax_global_header", typeflag: tar.TypeXGlobalHeader, body: "release build"},
		{name: "netcoredbg/", dir: true, mode: 0o755},
		{name: "netcoredbg/netcoredbg", body: "bin", mode: 0o755},
	})
	dest := filepath.Join(dir, "out")
	require.NoError(t, Extract(src, dest))
	_, err := os.Stat(filepath.Join(dest, "netcoredbg"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dest, "pax_global_header"))
	assert.True(t, os.IsNotExist(err))
}

func TestExtractTarGzHardlink(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "netcoredbg-linux-amd64.tar.gz")
	writeTarGz(t, src, []entry{
		{name: "netcoredbg/", dir: true, mode: 0o755},
		{name: "netcoredbg/netcoredbg", body: "#!/bin/sh\n", mode: 0o755},
		{name: "netcoredbg/netcoredbg-vscode", hardlink: "netcoredbg/netcoredbg"},
	})
	dest := filepath.Join(dir, "out")
	require.NoError(t, Extract(src, dest))
	body, err := os.ReadFile(filepath.Join(dest, "netcoredbg-vscode"))
	require.NoError(t, err)
	assert.Equal(t, "#!/bin/sh\n", string(body))
}

func TestExtractTarGzRejectsBadHardlinks(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		entries []entry
		check   func(t *testing.T, err error)
	}{
		{
			name:    "escaping",
			entries: []entry{{name: "a", body: "x", mode: 0o644}, {name: "b", hardlink: "../../etc/passwd"}},
			check:   func(t *testing.T, err error) { assert.ErrorIs(t, err, ErrUnsafePath) },
		},
		{
			name:    "missing source",
			entries: []entry{{name: "a", body: "x", mode: 0o644}, {name: "b", hardlink: "nowhere"}},
			check:   func(t *testing.T, err error) { assert.Contains(t, err.Error(), "ARC_READ") },
		},
		{
			name:    "directory source",
			entries: []entry{{name: "d/", dir: true, mode: 0o755}, {name: "e/", dir: true, mode: 0o755}, {name: "b", hardlink: "d"}},
			check: func(t *testing.T, err error) {
				var unsupported *UnsupportedEntryError
				assert.ErrorAs(t, err, &unsupported)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := filepath.Join(dir, tt.name+".tar.gz")
			writeTarGz(t, src, tt.entries)
			err := Extract(src, filepath.Join(dir, "out-"+tt.name))
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestExtractRejectsSpecialEntries(t *testing.T) {
	dir := t.TempDir()
	tarSrc := filepath.Join(dir, "fifo.tar.gz")
	writeTarGz(t, tarSrc, []entry{{name: "netcoredbg", body: "bin", mode: 0o755}, {name: "pipe", typeflag: tar.TypeFifo, mode: 0o644}})
	err := Extract(tarSrc, filepath.Join(dir, "out-tar"))
	var unsupported *UnsupportedEntryError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "pipe", unsupported.Name)
	assert.Contains(t, err.Error(), "ARC_ENTRY_TYPE")

	zipSrc := filepath.Join(dir, "fifo.zip")
	writeZip(t, zipSrc, []entry{{name: "pipe", mode: int64(os.ModeNamedPipe | 0o644)}})
	err = Extract(zipSrc, filepath.Join(dir, "out-zip"))
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "pipe", unsupported.Name)
}

func TestExtractZipSymlink(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	dir := t.TempDir()
	src := filepath.Join(dir, "netcoredbg-osx-arm64.zip")
	writeZip(t, src, []entry{
		{name: "netcoredbg/", dir: true},
		{name: "netcoredbg/netcoredbg", body: "bin", mode: 0o755},
		{name: "netcoredbg/current", link: "netcoredbg"},
	})
	dest := filepath.Join(dir, "out")
	require.NoError(t, Extract(src, dest))
	target, err := os.Readlink(filepath.Join(dest, "current"))
	require.NoError(t, err)
	assert.Equal(t, "netcoredbg", target)

	evil := filepath.Join(dir, "evil.zip")
	writeZip(t, evil, []entry{{name: "netcoredbg/", dir: true}, {name: "netcoredbg/link", link: "../../../etc/passwd"}})
	assert.ErrorIs(t, Extract(evil, filepath.Join(dir, "out-evil")), ErrUnsafePath)
}

func TestExtractEnforcesSizeLimit(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		file    string
		entries []entry
		write   func(t *testing.T, path string, entries []entry)
	}{
		{"single tar file", "big.tar.gz", []entry{{name: "netcoredbg", body: "0123456789abcdef", mode: 0o755}}, writeTarGz},
		{"tar files together", "many.tar.gz", []entry{{name: "a", body: "012345", mode: 0o644}, {name: "b", body: "012345", mode: 0o644}}, writeTarGz},
		{"single zip file", "big.zip", []entry{{name: "netcoredbg.exe", body: "0123456789abcdef"}}, writeZip},
		{"zip files together", "many.zip", []entry{{name: "a", body: "012345"}, {name: "b", body: "012345"}}, writeZip},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := filepath.Join(dir, tt.file)
			tt.write(t, src, tt.entries)
			err := extract(src, filepath.Join(dir, "out-"+tt.file), 10)
			assert.ErrorIs(t, err, ErrTooLarge)
		})
	}

	src := filepath.Join(dir, "fits.tar.gz")
	writeTarGz(t, src, []entry{{name: "a", body: "01234", mode: 0o644}, {name: "b", body: "01234", mode: 0o644}})
	require.NoError(t, extract(src, filepath.Join(dir, "out-fits"), 10))
}

func TestWriteFileDoesNotTrustDeclaredSize(t *testing.T) {
	target := filepath.Join(t.TempDir(), "netcoredbg")
	err := writeFile(target, strings.NewReader("0123456789"), 0o644, &budget{remaining: 4})
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestCommonRoot(t *testing.T) {
	assert.Equal(t, "netcoredbg", commonRoot([]string{"netcoredbg/", "netcoredbg/a", "netcoredbg/b/c"}))
	assert.Equal(t, "netcoredbg", commonRoot([]string{"./netcoredbg/a", "netcoredbg/b"}))
	assert.Equal(t, "", commonRoot([]string{"netcoredbg/a", "other/b"}))
	assert.Equal(t, "", commonRoot([]string{"netcoredbg"}))
}
