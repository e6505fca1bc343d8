// Package archive unpacks netcoredbg release archives.
package archive

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
)

// MaxExtractedBytes caps the total size of the files written by Extract.
// netcoredbg releases unpack to well under 100 MiB.
const MaxExtractedBytes int64 = 1 << 30

// maxLinkTarget bounds the body of a zip symlink entry.
const maxLinkTarget = 4096

var (
	ErrUnsafePath = errors.New("ARC_UNSAFE_PATH: archive entry escapes destination")
	ErrTooLarge   = errors.New("ARC_TOO_LARGE: archive expands beyond the size limit")
)

// UnsupportedEntryError reports an entry that is neither a directory, a
// regular file nor a link.
type UnsupportedEntryError struct {
	Name string
	Kind string
}

func (e *UnsupportedEntryError) Error() string {
	return fmt.Sprintf("ARC_ENTRY_TYPE: %s is a %s entry", e.Name, e.Kind)
}

// Extract unpacks the archive at src into dest, choosing the format from the
// file name. When every entry shares one top-level directory, that directory
// is stripped so its contents land directly in dest.
func Extract(src, dest string) error {
	return extract(src, dest, MaxExtractedBytes)
}

func extract(src, dest string, limit int64) error {
	b := &budget{remaining: limit}
	name := strings.ToLower(src)
	switch {
	case strings.HasSuffix(name, ".tar.gz"), strings.HasSuffix(name, ".tgz"):
		return extractTarGz(src, dest, b)
	case strings.HasSuffix(name, ".zip"):
		return extractZip(src, dest, b)
	}
	return fmt.Errorf("ARC_FORMAT: unsupported archive %s", filepath.Base(src))
}

// budget counts down the bytes an extraction may still write.
type budget struct {
	remaining int64
}

func (b *budget) reserve(declared int64) error {
	if declared < 0 || declared > b.remaining {
		return ErrTooLarge
	}
	return nil
}

func extractTarGz(src, dest string, b *budget) error {
	names, err := tarNames(src)
	if err != nil {
		return err
	}
	prefix := commonRoot(names)

	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()
	gz, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("ARC_READ: %w", err)
	}
	defer gz.Close()
	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("ARC_READ: %w", err)
		}
		if hdr.Typeflag == tar.TypeXGlobalHeader {
			continue
		}
		target, ok, err := entryPath(dest, prefix, hdr.Name)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := b.reserve(hdr.Size); err != nil {
				return err
			}
			if err := writeFile(target, tr, hdr.FileInfo().Mode().Perm(), b); err != nil {
				return err
			}
		case tar.TypeSymlink:
			if err := writeSymlink(dest, target, hdr.Linkname); err != nil {
				return err
			}
		case tar.TypeLink:
			if err := writeHardlink(dest, prefix, target, hdr.Linkname); err != nil {
				return err
			}
		default:
			return &UnsupportedEntryError{Name: hdr.Name, Kind: tarKind(hdr.Typeflag)}
		}
	}
}

func tarKind(flag byte) string {
	switch flag {
	case tar.TypeChar:
		return "character device"
	case tar.TypeBlock:
		return "block device"
	case tar.TypeFifo:
		return "fifo"
	}
	return fmt.Sprintf("type %q", flag)
}

func tarNames(src string) ([]string, error) {
	f, err := os.Open(src)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("ARC_READ: %w", err)
	}
	defer gz.Close()
	tr := tar.NewReader(gz)
	var names []string
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return names, nil
		}
		if err != nil {
			return nil, fmt.Errorf("ARC_READ: %w", err)
		}
		// pax global headers describe no file
		if hdr.Typeflag == tar.TypeXGlobalHeader {
			continue
		}
		names = append(names, hdr.Name)
	}
}

func extractZip(src, dest string, b *budget) error {
	zr, err := zip.OpenReader(src)
	if err != nil {
		return fmt.Errorf("ARC_READ: %w", err)
	}
	defer zr.Close()
	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	prefix := commonRoot(names)
	for _, f := range zr.File {
		target, ok, err := entryPath(dest, prefix, f.Name)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		mode := f.Mode()
		switch {
		case mode.IsDir():
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case mode&os.ModeSymlink != 0:
			linkname, err := readZipLink(f)
			if err != nil {
				return err
			}
			if err := writeSymlink(dest, target, linkname); err != nil {
				return err
			}
		case mode.IsRegular():
			if f.UncompressedSize64 > uint64(b.remaining) {
				return ErrTooLarge
			}
			rc, err := f.Open()
			if err != nil {
				return fmt.Errorf("ARC_READ: %w", err)
			}
			perm := mode.Perm()
			if perm == 0 {
				perm = 0o644
			}
			err = writeFile(target, rc, perm, b)
			_ = rc.Close()
			if err != nil {
				return err
			}
		default:
			return &UnsupportedEntryError{Name: f.Name, Kind: mode.Type().String()}
		}
	}
	return nil
}

func readZipLink(f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("ARC_READ: %w", err)
	}
	defer rc.Close()
	blob, err := io.ReadAll(io.LimitReader(rc, maxLinkTarget+1))
	if err != nil {
		return "", fmt.Errorf("ARC_READ: %w", err)
	}
	if len(blob) == 0 || len(blob) > maxLinkTarget {
		return "", fmt.Errorf("ARC_READ: invalid link target for %s", f.Name)
	}
	return string(blob), nil
}

// commonRoot returns the single top-level directory shared by every entry, or
// "" when entries do not share one.
func commonRoot(names []string) string {
	root := ""
	for _, n := range names {
		n = strings.TrimPrefix(path.Clean("/"+strings.ReplaceAll(n, "\\", "/")), "/")
		if n == "" || n == "." {
			continue
		}
		first, rest, nested := strings.Cut(n, "/")
		if root == "" {
			root = first
		}
		if first != root {
			return ""
		}
		if !nested && rest == "" && !isDirName(names, first) {
			return ""
		}
	}
	return root
}

// isDirName reports whether name only ever appears as a directory.
func isDirName(names []string, name string) bool {
	for _, n := range names {
		n = strings.ReplaceAll(n, "\\", "/")
		if strings.HasPrefix(n, name+"/") {
			return true
		}
	}
	return false
}

// entryPath maps an archive entry to a path under dest. ok is false for the
// stripped root itself.
func entryPath(dest, prefix, name string) (string, bool, error) {
	name = strings.ReplaceAll(name, "\\", "/")
	if path.IsAbs(name) || filepath.IsAbs(name) {
		return "", false, fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}
	clean := path.Clean(name)
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", false, fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}
	if prefix != "" {
		if clean == prefix {
			return "", false, nil
		}
		clean = strings.TrimPrefix(clean, prefix+"/")
	}
	if clean == "." || clean == "" {
		return "", false, nil
	}
	return filepath.Join(dest, filepath.FromSlash(clean)), true, nil
}

// writeFile copies r to target, stopping with ErrTooLarge once the budget is
// spent. Declared sizes are not trusted.
func writeFile(target string, r io.Reader, mode os.FileMode, b *budget) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	n, err := io.Copy(out, io.LimitReader(r, b.remaining+1))
	if err != nil {
		_ = out.Close()
		return fmt.Errorf("ARC_WRITE: %w", err)
	}
	if n > b.remaining {
		_ = out.Close()
		return ErrTooLarge
	}
	b.remaining -= n
	if err := out.Close(); err != nil {
		return err
	}
	return os.Chmod(target, mode)
}

func writeSymlink(dest, target, linkname string) error {
	resolved := linkname
	if !filepath.IsAbs(resolved) {
		resolved = filepath.Join(filepath.Dir(target), linkname)
	}
	rel, err := filepath.Rel(dest, filepath.Clean(resolved))
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(linkname) {
		return fmt.Errorf("%w: link %s -> %s", ErrUnsafePath, target, linkname)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	_ = os.Remove(target)
	return os.Symlink(linkname, target)
}

// writeHardlink links target to an entry extracted earlier from the same
// archive. linkname is an archive path, not a filesystem one.
func writeHardlink(dest, prefix, target, linkname string) error {
	source, ok, err := entryPath(dest, prefix, linkname)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: hard link %s -> %s", ErrUnsafePath, target, linkname)
	}
	info, err := os.Lstat(source)
	if err != nil {
		return fmt.Errorf("ARC_READ: hard link %s -> %s: %w", target, linkname, err)
	}
	if !info.Mode().IsRegular() {
		return &UnsupportedEntryError{Name: linkname, Kind: "hard link to " + info.Mode().Type().String()}
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	_ = os.Remove(target)
	return os.Link(source, target)
}
