// SPDX-License-Identifier: MPL-2.0

// Package pyinfo describes concrete Python interpreters: the metadata record
// reported by a probed binary, the subprocess probe itself, and the verifier
// that ties probing to the cache.
package pyinfo

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"pydiscover/pkg/cache"
	"pydiscover/pkg/pyspec"
)

// releaseLevels are the accepted version_info release level names.
var releaseLevels = map[string]struct{}{
	"alpha": {}, "beta": {}, "candidate": {}, "final": {},
}

type (
	// VersionInfo is the interpreter's five-component version tuple.
	VersionInfo struct {
		Major        int    `json:"major"`
		Minor        int    `json:"minor"`
		Micro        int    `json:"micro"`
		ReleaseLevel string `json:"releaselevel"`
		Serial       int    `json:"serial"`
	}

	// Info describes one verified interpreter. Values are filled by the
	// probe and never mutated afterwards.
	Info struct {
		// Executable is the absolute path of the binary as invoked; inside a
		// virtual environment this is the venv's interpreter.
		Executable string `json:"executable"`

		// SystemExecutable is the underlying base interpreter; equal to
		// Executable outside virtual environments, empty when the base could
		// not be determined.
		SystemExecutable string `json:"system_executable"`

		// Implementation is the vendor name with its display casing
		// (CPython, PyPy, GraalPy, ...). Comparisons are case-insensitive.
		Implementation string `json:"implementation"`

		// VersionInfo is the full interpreter version.
		VersionInfo VersionInfo `json:"version_info"`

		// Architecture is the pointer width, 32 or 64.
		Architecture int `json:"architecture"`

		// Platform is the short OS tag (linux, darwin, win32, ...).
		Platform string `json:"platform"`

		// Machine is the normalized instruction-set architecture.
		Machine string `json:"machine"`

		// FreeThreaded is true only for no-GIL builds.
		FreeThreaded bool `json:"free_threaded"`

		// SysconfigVars is the full variable map reported by the
		// interpreter; values are strings, numbers, or null.
		SysconfigVars map[string]any `json:"sysconfig_vars"`

		// SysconfigPaths maps scheme names (stdlib, purelib, scripts, ...)
		// to absolute paths.
		SysconfigPaths map[string]string `json:"sysconfig_paths"`

		// MTime is the executable's modification time (Unix nanoseconds) at
		// probe time; paired with Size for cache validity.
		MTime int64 `json:"mtime"`

		// Size is the executable's byte length at probe time.
		Size int64 `json:"size"`
	}

	// document is the cache wire format: an Info plus the schema marker.
	document struct {
		Schema int `json:"schema"`
		Info
	}
)

// VersionText renders the release triple as "major.minor.micro".
func (v VersionInfo) VersionText() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Micro)
}

// PEP440 renders the version with its pre-release suffix when not final:
// "3.13.0rc2" for (3, 13, 0, candidate, 2).
func (v VersionInfo) PEP440() string {
	release := v.VersionText()
	suffix, ok := map[string]string{"alpha": "a", "beta": "b", "candidate": "rc"}[v.ReleaseLevel]
	if !ok {
		return release
	}
	return release + suffix + strconv.Itoa(v.Serial)
}

// validate rejects tuples outside the documented invariants.
func (v VersionInfo) validate() error {
	if v.Major < 0 || v.Minor < 0 || v.Micro < 0 || v.Serial < 0 {
		return fmt.Errorf("negative version component in %+v", v)
	}
	if _, ok := releaseLevels[v.ReleaseLevel]; !ok {
		return fmt.Errorf("unknown release level %q", v.ReleaseLevel)
	}
	return nil
}

// Spec renders the interpreter's own identity as a structured spec token,
// e.g. "CPython3.12.1-64-x86_64" or "CPython3.13.2t-64-arm64".
func (i *Info) Spec() string {
	mod := ""
	if i.FreeThreaded {
		mod = "t"
	}
	return fmt.Sprintf("%s%s%s-%d-%s", i.Implementation, i.VersionInfo.VersionText(), mod, i.Architecture, i.Machine)
}

// Equal reports structural equality over every field.
func (i *Info) Equal(other *Info) bool {
	if other == nil {
		return i == nil
	}
	a, errA := i.MarshalDocument()
	b, errB := other.MarshalDocument()
	return errA == nil && errB == nil && string(a) == string(b)
}

// Satisfies reports whether this interpreter meets the requirement.
// implMustMatch relaxes the implementation test for candidates that were
// selected by their literal file name.
func (i *Info) Satisfies(spec *pyspec.Spec, implMustMatch bool) bool {
	if spec.IsPath() && !i.satisfiesPath(spec) {
		return false
	}
	if implMustMatch && spec.Implementation != "" &&
		!strings.EqualFold(spec.Implementation, i.Implementation) {
		return false
	}
	if spec.Architecture != 0 && spec.Architecture != i.Architecture {
		return false
	}
	if spec.Machine != "" && spec.Machine != pyspec.NormalizeISA(i.Machine) {
		return false
	}
	if spec.FreeThreaded != nil && *spec.FreeThreaded != i.FreeThreaded {
		return false
	}
	if !spec.Constraints.Empty() && !spec.Constraints.Contains(i.VersionInfo.PEP440()) {
		return false
	}
	ours := []int{i.VersionInfo.Major, i.VersionInfo.Minor, i.VersionInfo.Micro}
	for idx, want := range []*int{spec.Major, spec.Minor, spec.Micro} {
		if want != nil && *want != ours[idx] {
			return false
		}
	}
	return true
}

// satisfiesPath accepts a candidate whose executable is the spec's path
// (relative paths resolve against the working directory) and a base-name
// match for bare relative ones.
func (i *Info) satisfiesPath(spec *pyspec.Spec) bool {
	if abs, err := filepath.Abs(spec.Path); err == nil && abs == i.Executable {
		return true
	}
	if spec.IsAbs() {
		return true // the literal provider already pinned the path
	}
	base := filepath.Base(i.Executable)
	return base == spec.Path || strings.TrimSuffix(base, ".exe") == spec.Path
}

// MarshalDocument encodes the record as a cache document carrying the
// current schema version.
func (i *Info) MarshalDocument() ([]byte, error) {
	data, err := json.Marshal(document{Schema: cache.SchemaVersion, Info: *i})
	if err != nil {
		return nil, fmt.Errorf("encode interpreter info: %w", err)
	}
	return data, nil
}

// UnmarshalDocument decodes a cache document, rejecting documents whose
// schema version differs from the current one or whose version tuple is
// outside the documented invariants.
func UnmarshalDocument(data []byte) (*Info, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode interpreter info: %w", err)
	}
	if doc.Schema != cache.SchemaVersion {
		return nil, fmt.Errorf("interpreter info schema %d does not match %d", doc.Schema, cache.SchemaVersion)
	}
	if err := doc.VersionInfo.validate(); err != nil {
		return nil, fmt.Errorf("decode interpreter info: %w", err)
	}
	info := doc.Info
	return &info, nil
}
