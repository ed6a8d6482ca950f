// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"pydiscover/pkg/pathid"
	"pydiscover/pkg/pyinfo"
	"pydiscover/pkg/pyspec"
)

type (
	// Candidate is one executable path proposed by a provider. Providers
	// never execute candidates; the verifier does.
	Candidate struct {
		// Path is the candidate executable, absolute once emitted.
		Path string
		// ImplMustMatch requires the verified implementation to equal the
		// spec's. It is false for candidates selected by their literal file
		// name, where the name already was the requirement.
		ImplMustMatch bool
		// Provider names the source, for diagnostics.
		Provider string
	}

	// yieldFunc consumes candidates; returning false stops enumeration.
	yieldFunc func(Candidate) bool

	// provider lazily emits candidates for a spec.
	provider func(s *session, spec *pyspec.Spec, yield yieldFunc) bool
)

// providers is the fixed enumeration order.
var providers = []provider{
	literalPathProvider,
	tryFirstWithProvider,
	currentProcessProvider,
	registryProvider,
	pathProvider,
	versionManagerProvider,
	uvProvider,
}

// literalPathProvider yields the spec's path itself: absolute paths as-is,
// relative ones resolved against the working directory. At most one
// candidate.
func literalPathProvider(s *session, spec *pyspec.Spec, yield yieldFunc) bool {
	if !spec.IsPath() {
		return true
	}
	path := spec.Path
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.cwd, path)
	}
	if _, err := os.Lstat(path); err != nil {
		return true
	}
	return yield(Candidate{Path: path, ImplMustMatch: true, Provider: "path-literal"})
}

// tryFirstWithProvider scans the caller's hint directories for executables
// whose base name fits the spec.
func tryFirstWithProvider(s *session, spec *pyspec.Spec, yield yieldFunc) bool {
	if spec.IsPath() {
		return true
	}
	for _, hint := range s.opts.TryFirstWith {
		for _, name := range spec.CandidateBasenames(pathid.ExeSuffix()) {
			candidate := filepath.Join(hint, name)
			if !pathid.IsExecutable(candidate) {
				continue
			}
			if !yield(Candidate{Path: candidate, ImplMustMatch: true, Provider: "try-first-with"}) {
				return false
			}
		}
	}
	return true
}

// currentProcessProvider yields the configured default interpreter, the
// native analogue of the interpreter running this code. Empty when none is
// configured.
func currentProcessProvider(s *session, spec *pyspec.Spec, yield yieldFunc) bool {
	if spec.IsPath() {
		return true
	}
	exe := envLookup(s.env, pyinfo.CurrentEnvVar)
	if exe == "" {
		return true
	}
	return yield(Candidate{Path: exe, ImplMustMatch: true, Provider: "current-process"})
}

// pathProvider walks the PATH directories in order. Within a directory the
// spec string itself is tried first as a file name, then every entry
// matching the spec's file name pattern, sorted ascending.
func pathProvider(s *session, spec *pyspec.Spec, yield yieldFunc) bool {
	if spec.IsPath() {
		return true
	}
	windows := runtime.GOOS == "windows"
	pattern := spec.FilenameRegexp(windows)
	direct := spec.Raw + pathid.ExeSuffix()

	for _, dir := range splitPathList(envLookup(s.env, "PATH")) {
		directPath := filepath.Join(dir, direct)
		if pathid.IsExecutable(directPath) {
			if !yield(Candidate{Path: directPath, ImplMustMatch: false, Provider: "path"}) {
				return false
			}
		}

		entries, err := os.ReadDir(dir)
		if err != nil {
			s.sink.Report(Diagnostic{
				Severity: SeverityWarning,
				Code:     "path_dir_unreadable",
				Message:  "skipping unreadable PATH directory",
				Path:     dir,
				Cause:    err,
			})
			continue
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			m := pattern.FindStringSubmatch(entry.Name())
			if m == nil {
				continue
			}
			full := filepath.Join(dir, entry.Name())
			if !pathid.IsExecutable(full) {
				continue
			}
			implMustMatch := strings.EqualFold(m[1], "python")
			if !yield(Candidate{Path: full, ImplMustMatch: implMustMatch, Provider: "path"}) {
				return false
			}
		}
	}
	return true
}

// versionManagerProvider enumerates each manager's installed interpreter
// trees, then its shims. Shims resolve through the manager's precedence
// rules before they are yielded; unresolvable shims are skipped silently.
func versionManagerProvider(s *session, spec *pyspec.Spec, yield yieldFunc) bool {
	if spec.IsPath() {
		return true
	}
	windows := runtime.GOOS == "windows"
	pattern := spec.FilenameRegexp(windows)

	for _, m := range Managers {
		versionsDir := m.VersionsDir(s.env)
		if versionsDir != "" {
			for _, versionDir := range sortedSubdirs(versionsDir) {
				binDir := filepath.Join(versionsDir, versionDir, "bin")
				for _, name := range sortedFiles(binDir) {
					if pattern.FindStringSubmatch(name) == nil {
						continue
					}
					full := filepath.Join(binDir, name)
					if !pathid.IsExecutable(full) {
						continue
					}
					if !yield(Candidate{Path: full, ImplMustMatch: true, Provider: m.Name}) {
						return false
					}
				}
			}
		}

		shimsDir := m.ShimsDir(s.env)
		if shimsDir == "" {
			continue
		}
		for _, name := range sortedFiles(shimsDir) {
			if pattern.FindStringSubmatch(name) == nil {
				continue
			}
			resolved := ResolveShim(m, filepath.Join(shimsDir, name), s.env, s.cwd)
			if resolved == "" {
				continue
			}
			if !yield(Candidate{Path: resolved, ImplMustMatch: true, Provider: m.Name + "-shim"}) {
				return false
			}
		}
	}
	return true
}

// uvProvider enumerates uv's pre-extracted standalone toolchains: every
// install tree under the configured directory contributes its interpreter.
func uvProvider(s *session, spec *pyspec.Spec, yield yieldFunc) bool {
	if spec.IsPath() {
		return true
	}
	root := uvInstallDir(s.env)
	if root == "" {
		return true
	}
	interpreter := filepath.Join("bin", "python")
	if runtime.GOOS == "windows" {
		interpreter = "python.exe"
	}
	for _, tree := range sortedSubdirs(root) {
		full := filepath.Join(root, tree, interpreter)
		if !pathid.IsExecutable(full) {
			continue
		}
		if !yield(Candidate{Path: full, ImplMustMatch: true, Provider: "uv"}) {
			return false
		}
	}
	return true
}

// uvInstallDir resolves UV_PYTHON_INSTALL_DIR, then XDG_DATA_HOME/uv/python,
// then the platform user-data directory.
func uvInstallDir(env []string) string {
	if dir := envLookup(env, "UV_PYTHON_INSTALL_DIR"); dir != "" {
		return dir
	}
	if xdg := envLookup(env, "XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "uv", "python")
	}
	home := envLookup(env, "HOME")
	switch runtime.GOOS {
	case "windows":
		if appData := envLookup(env, "APPDATA"); appData != "" {
			return filepath.Join(appData, "uv", "python")
		}
		return ""
	case "darwin":
		if home == "" {
			return ""
		}
		return filepath.Join(home, "Library", "Application Support", "uv", "python")
	default:
		if home == "" {
			return ""
		}
		return filepath.Join(home, ".local", "share", "uv", "python")
	}
}

// splitPathList splits a PATH value on the OS separator, dropping empties.
func splitPathList(path string) []string {
	var dirs []string
	for _, dir := range filepath.SplitList(path) {
		if dir != "" {
			dirs = append(dirs, dir)
		}
	}
	return dirs
}

// sortedSubdirs lists the immediate subdirectory names, ascending. A missing
// or unreadable directory yields nothing.
func sortedSubdirs(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names
}

// sortedFiles lists the non-directory entry names, ascending.
func sortedFiles(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var names []string
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names
}
