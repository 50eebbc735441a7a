package preflight

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// CheckDirectoryAccess verifies that path is an existing directory the current
// user can access with mode (a combination of unix.R_OK, unix.W_OK, unix.X_OK).
func CheckDirectoryAccess(name, path string, mode uint32) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, mode); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s ok)", path, describeMode(mode))}
}

// CheckVideoDir verifies the download directory can be listed and read.
func CheckVideoDir(path string) Result {
	return CheckDirectoryAccess("Video directory", path, unix.R_OK|unix.X_OK)
}

// CheckLibraryDir verifies the library root is writable, creating it when absent.
func CheckLibraryDir(path string) Result {
	const name = "Library directory"
	if path == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.MkdirAll(path, 0o755); err != nil {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: create: %v)", path, err)}
		}
	}
	return CheckDirectoryAccess(name, path, unix.W_OK|unix.X_OK)
}

func describeMode(mode uint32) string {
	switch {
	case mode&unix.R_OK != 0 && mode&unix.W_OK != 0:
		return "read/write"
	case mode&unix.W_OK != 0:
		return "write"
	case mode&unix.R_OK != 0:
		return "read"
	default:
		return "access"
	}
}
