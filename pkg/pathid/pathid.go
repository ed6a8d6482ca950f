// SPDX-License-Identifier: MPL-2.0

// Package pathid provides filesystem identity helpers: deciding whether the
// host filesystem distinguishes case, folding paths into comparable identity
// keys, and testing whether a file is a runnable candidate executable.
package pathid

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
)

var (
	caseSensitiveOnce sync.Once
	caseSensitive     bool
)

// CaseSensitive reports whether the filesystem backing the temp directory
// distinguishes upper- and lower-case file names. The probe runs once per
// process; the result is cached.
func CaseSensitive() bool {
	caseSensitiveOnce.Do(func() {
		caseSensitive = probeCaseSensitive()
	})
	return caseSensitive
}

func probeCaseSensitive() bool {
	f, err := os.CreateTemp("", "PdTmP")
	if err != nil {
		// Fall back to the platform convention when probing fails.
		return runtime.GOOS != "windows" && runtime.GOOS != "darwin"
	}
	name := f.Name()
	f.Close()
	defer os.Remove(name)

	_, err = os.Lstat(strings.ToLower(name))
	return err != nil
}

// ID folds a path into an identity key: on case-insensitive filesystems two
// paths differing only in case fold to the same key.
func ID(path string) string {
	if CaseSensitive() {
		return path
	}
	return strings.ToLower(path)
}

// IsExecutable reports whether path names an existing non-directory file
// marked executable. On Windows executability is determined by extension
// (see HasExecExt), elsewhere by any of the mode's execute bits (owner,
// group or other); whether the current process may run it is not checked.
func IsExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return HasExecExt(path, os.Getenv("PATHEXT"))
	}
	return info.Mode()&0o111 != 0
}

// HasExecExt reports whether name carries one of the executable extensions
// listed in pathext (the semicolon-separated PATHEXT format). An empty
// pathext falls back to the Windows default set.
func HasExecExt(name, pathext string) bool {
	if pathext == "" {
		pathext = ".COM;.EXE;.BAT;.CMD"
	}
	upper := strings.ToUpper(name)
	for _, ext := range strings.Split(pathext, ";") {
		if ext == "" {
			continue
		}
		if strings.HasSuffix(upper, strings.ToUpper(ext)) {
			return true
		}
	}
	return false
}

// ExeSuffix returns the executable file suffix for the host OS: ".exe" on
// Windows, empty elsewhere.
func ExeSuffix() string {
	if runtime.GOOS == "windows" {
		return ".exe"
	}
	return ""
}

// Absolutize resolves path against the current working directory without
// following symlinks, mirroring filepath.Abs but leaving the final element
// untouched.
func Absolutize(path string) (string, error) {
	return filepath.Abs(path)
}
