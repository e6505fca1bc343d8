package binary

import (
	"fmt"

	"dapboot/internal/platform"
)

// InvalidUserPathError rejects a user-supplied adapter path.
type InvalidUserPathError struct {
	Path   string
	Reason string
}

func (e *InvalidUserPathError) Error() string {
	return fmt.Sprintf("BIN_USER_PATH: adapter path %q is not usable: %s", e.Path, e.Reason)
}

type NoMatchingAssetError struct {
	Platform platform.Triple
	Version  string
	Err      error
}

func (e *NoMatchingAssetError) Error() string {
	return fmt.Sprintf("BIN_NO_ASSET: netcoredbg %s has no release asset for %s", e.Version, e.Platform)
}

func (e *NoMatchingAssetError) Unwrap() error { return e.Err }

// AcquisitionError covers every I/O or transport failure while fetching,
// unpacking or publishing the adapter. Op names the failing step.
type AcquisitionError struct {
	Op  string
	Err error
}

func (e *AcquisitionError) Error() string {
	return fmt.Sprintf("BIN_ACQUIRE: %s: %v", e.Op, e.Err)
}

func (e *AcquisitionError) Unwrap() error { return e.Err }
