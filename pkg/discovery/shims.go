// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"pydiscover/pkg/pathid"
)

// Manager describes one version manager's on-disk layout and resolution
// inputs.
type Manager struct {
	// Name identifies the manager (pyenv, mise, asdf).
	Name string

	// RootEnvVar names the environment variable overriding the data
	// directory.
	RootEnvVar string

	// DefaultRoot yields the data directory when the variable is unset,
	// relative to the user home directory.
	DefaultRoot []string

	// VersionsPath locates installed interpreter trees under the root.
	VersionsPath []string

	// VersionEnvVar names the variable that pins the active version(s),
	// colon-separated.
	VersionEnvVar string
}

// Managers lists the supported version managers in the order their shim
// trees are searched.
var Managers = []Manager{
	{
		Name:          "pyenv",
		RootEnvVar:    "PYENV_ROOT",
		DefaultRoot:   []string{".pyenv"},
		VersionsPath:  []string{"versions"},
		VersionEnvVar: "PYENV_VERSION",
	},
	{
		Name:          "mise",
		RootEnvVar:    "MISE_DATA_DIR",
		DefaultRoot:   []string{".local", "share", "mise"},
		VersionsPath:  []string{"installs", "python"},
		VersionEnvVar: "MISE_PYTHON_VERSION",
	},
	{
		Name:          "asdf",
		RootEnvVar:    "ASDF_DATA_DIR",
		DefaultRoot:   []string{".asdf"},
		VersionsPath:  []string{"installs", "python"},
		VersionEnvVar: "ASDF_PYTHON_VERSION",
	},
}

// Root returns the manager's data directory for the given environment, or ""
// when neither the variable nor a home directory is available.
func (m Manager) Root(env []string) string {
	if root := envLookup(env, m.RootEnvVar); root != "" {
		return root
	}
	home := envLookup(env, "HOME")
	if home == "" {
		home = envLookup(env, "USERPROFILE")
	}
	if home == "" {
		return ""
	}
	return filepath.Join(append([]string{home}, m.DefaultRoot...)...)
}

// VersionsDir returns the directory holding per-version interpreter trees.
func (m Manager) VersionsDir(env []string) string {
	root := m.Root(env)
	if root == "" {
		return ""
	}
	return filepath.Join(append([]string{root}, m.VersionsPath...)...)
}

// ShimsDir returns the manager's shim directory.
func (m Manager) ShimsDir(env []string) string {
	root := m.Root(env)
	if root == "" {
		return ""
	}
	return filepath.Join(root, "shims")
}

// ResolveShim maps a shim executable to the real interpreter the manager
// would dispatch to, applying the precedence: the manager's version
// environment variable, the nearest .python-version file walking up from
// cwd, then the manager's configured global version. Returns "" when the
// shim does not resolve; such shims are skipped without execution.
func ResolveShim(m Manager, shimPath string, env []string, cwd string) string {
	versionsDir := m.VersionsDir(env)
	if versionsDir == "" {
		return ""
	}
	name := filepath.Base(shimPath)
	for _, version := range m.activeVersions(env, cwd) {
		candidate := filepath.Join(versionsDir, version, "bin", name)
		if pathid.IsExecutable(candidate) {
			return candidate
		}
	}
	return ""
}

// InShims reports whether path sits directly inside the manager's shim
// directory.
func (m Manager) InShims(path string, env []string) bool {
	shims := m.ShimsDir(env)
	return shims != "" && pathid.ID(filepath.Dir(path)) == pathid.ID(shims)
}

// activeVersions yields the version strings the manager would consider, in
// precedence order. The first source that produces anything wins.
func (m Manager) activeVersions(env []string, cwd string) []string {
	if pinned := envLookup(env, m.VersionEnvVar); pinned != "" {
		return strings.Split(pinned, ":")
	}
	if versions := readPythonVersionFile(cwd, true); len(versions) > 0 {
		return versions
	}
	return m.globalVersions(env)
}

// globalVersions reads the manager's own global pin: pyenv's <root>/version
// file, mise's config.toml tool table, asdf's ~/.tool-versions.
func (m Manager) globalVersions(env []string) []string {
	switch m.Name {
	case "pyenv":
		root := m.Root(env)
		if root == "" {
			return nil
		}
		return readVersionLines(filepath.Join(root, "version"))
	case "mise":
		return miseGlobalVersions(env)
	case "asdf":
		home := envLookup(env, "HOME")
		if home == "" {
			return nil
		}
		return readToolVersions(filepath.Join(home, ".tool-versions"))
	}
	return nil
}

// readPythonVersionFile reads the nearest .python-version file, walking
// parent directories when searchParents is set. Comment and blank lines are
// ignored; every remaining line is a candidate version.
func readPythonVersionFile(start string, searchParents bool) []string {
	current := start
	for current != "" {
		if versions := readVersionLines(filepath.Join(current, ".python-version")); len(versions) > 0 {
			return versions
		}
		if !searchParents {
			return nil
		}
		parent := filepath.Dir(current)
		if parent == current {
			return nil
		}
		current = parent
	}
	return nil
}

func readVersionLines(path string) []string {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var versions []string
	for _, line := range strings.Split(string(data), "\n") {
		if v := strings.TrimSpace(line); v != "" && !strings.HasPrefix(v, "#") {
			versions = append(versions, v)
		}
	}
	return versions
}

// readToolVersions extracts the python entries from an asdf .tool-versions
// file ("python 3.12.1 3.11.9").
func readToolVersions(path string) []string {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(strings.TrimSpace(line))
		if len(fields) >= 2 && fields[0] == "python" {
			return fields[1:]
		}
	}
	return nil
}

// miseConfig is the subset of mise's config.toml this package reads.
type miseConfig struct {
	Tools map[string]any `toml:"tools"`
}

// miseGlobalVersions reads the python pin from mise's global config
// (MISE_CONFIG_DIR or ~/.config/mise, file config.toml). The pin may be a
// single version string or a list.
func miseGlobalVersions(env []string) []string {
	dir := envLookup(env, "MISE_CONFIG_DIR")
	if dir == "" {
		home := envLookup(env, "HOME")
		if home == "" {
			return nil
		}
		dir = filepath.Join(home, ".config", "mise")
	}
	data, err := os.ReadFile(filepath.Join(dir, "config.toml"))
	if err != nil {
		return nil
	}
	var cfg miseConfig
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil
	}
	switch pin := cfg.Tools["python"].(type) {
	case string:
		return []string{pin}
	case []any:
		var versions []string
		for _, entry := range pin {
			if v, ok := entry.(string); ok {
				versions = append(versions, v)
			}
		}
		return versions
	}
	return nil
}

// envLookup returns the value of name within env, or "" when unset.
func envLookup(env []string, name string) string {
	for _, entry := range env {
		if k, v, ok := strings.Cut(entry, "="); ok && k == name {
			return v
		}
	}
	return ""
}
