package preflight

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"golang.org/x/sys/unix"
)

func statDirectory(name, path string) (Result, bool) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}, false
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}, false
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}, false
	}
	return Result{}, true
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	if res, ok := statDirectory(name, path); !ok {
		return res
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckReadableDirectory verifies that the directory exists and can be listed.
func CheckReadableDirectory(name, path string) Result {
	if res, ok := statDirectory(name, path); !ok {
		return res
	}
	if err := unix.Access(path, unix.R_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read ok)", path)}
}

// CheckSeparateTrees fails when either directory contains the other. A
// destination inside the source would be scanned and copied into itself.
func CheckSeparateTrees(source, destination string) Result {
	const name = "Separate trees"
	src, err := filepath.Abs(source)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("resolve %s: %v", source, err)}
	}
	dst, err := filepath.Abs(destination)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("resolve %s: %v", destination, err)}
	}
	if within(dst, src) || within(src, dst) {
		return Result{Name: name, Detail: fmt.Sprintf("%s and %s overlap", src, dst)}
	}
	return Result{Name: name, Passed: true, Detail: "source and destination are disjoint"}
}

func within(path, root string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// CheckFreeSpace verifies the filesystem holding path has at least need bytes
// available to unprivileged users.
func CheckFreeSpace(name, path string, need uint64) Result {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: statfs: %v)", path, err)}
	}
	available := uint64(stat.Bavail) * uint64(stat.Bsize)
	if available < need {
		return Result{Name: name, Detail: fmt.Sprintf("%s available, %s needed", humanize.Bytes(available), humanize.Bytes(need))}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s available, %s needed", humanize.Bytes(available), humanize.Bytes(need))}
}
