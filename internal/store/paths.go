package store

import (
	"path/filepath"

	"dapboot/internal/platform"
)

// VersionRoot holds every platform build of one adapter version.
func VersionRoot(root, version string) string {
	return filepath.Join(root, version)
}

func PlatformRoot(root, version string, triple platform.Triple) string {
	return filepath.Join(root, version, string(triple))
}

// ExecutablePath is <root>/<version>/<triple>/<executable>.
func ExecutablePath(root, version string, triple platform.Triple) string {
	return filepath.Join(PlatformRoot(root, version, triple), platform.ExecutableName(triple))
}

func StagingRoot(root string) string {
	return filepath.Join(root, ".staging")
}

func AuditPath(root string) string {
	return filepath.Join(root, "audit.log")
}
