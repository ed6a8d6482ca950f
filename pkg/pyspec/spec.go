// SPDX-License-Identifier: MPL-2.0

// Package pyspec parses textual interpreter requirements and decides whether
// a concrete interpreter description satisfies them. A requirement is either
// a structured token ("pypy3.9", "python3.13t-64-arm64"), a comma-separated
// version-constraint expression (">=3.11,<3.13", "cpython~=3.12.1"), or a
// filesystem path.
package pyspec

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

var (
	// tokenRE is the structured token grammar. Case-insensitive; the trailing
	// "t" marks a free-threaded requirement and is only meaningful when a
	// version is present.
	tokenRE = regexp.MustCompile(`(?i)^([a-z]+)?([0-9.]+)?(t)?(?:-(32|64))?(?:-([a-z0-9_]+))?$`)

	// exprRE splits a constraint expression into an optional implementation
	// prefix and the clauses.
	exprRE = regexp.MustCompile(`(?i)^(?:([a-z]+)\s*)?((?:===|==|~=|!=|<=|>=|<|>).+)$`)

	// constraintChars distinguish a constraint expression from a token.
	constraintChars = "<>=!~,"
)

// Spec is a parsed interpreter requirement. Exactly one of the three forms
// is populated: a structured token (implementation/version/arch fields), a
// constraint expression (Constraints), or a literal path (Path).
type Spec struct {
	// Raw is the requirement exactly as given.
	Raw string

	// Implementation is the canonical lowercase implementation name, or ""
	// when any implementation is acceptable ("python"/"py" prefixes and
	// unprefixed requirements).
	Implementation string

	// Major, Minor, Micro are the requested version components; nil means
	// the component is a wildcard.
	Major, Minor, Micro *int

	// FreeThreaded is nil when unspecified, otherwise the required value.
	FreeThreaded *bool

	// Architecture is 32 or 64, or 0 when unspecified.
	Architecture int

	// Machine is the normalized ISA requirement, or "" when unspecified.
	Machine string

	// Path is set when the requirement is a filesystem path.
	Path string

	// Constraints holds the clauses of a version-constraint expression.
	Constraints SpecifierSet
}

// FromString parses a requirement string.
//
// Resolution order: absolute and path-prefixed inputs become path specs; an
// input containing a constraint character must parse as a constraint
// expression; everything else must fit the structured token grammar.
func FromString(raw string) (*Spec, error) {
	if raw == "" {
		return nil, fmt.Errorf("empty interpreter spec")
	}
	if looksLikePath(raw) {
		return &Spec{Raw: raw, Path: raw}, nil
	}
	if strings.ContainsAny(raw, constraintChars) {
		return parseConstraintExpr(raw)
	}
	return parseToken(raw)
}

// looksLikePath reports whether the raw spec names a filesystem location:
// absolute paths, explicit relative paths, and Windows drive-letter paths.
func looksLikePath(raw string) bool {
	if filepath.IsAbs(raw) {
		return true
	}
	switch raw[0] {
	case '/', '\\', '.':
		return true
	}
	// Drive-letter prefix such as "C:" counts even on non-Windows hosts.
	if len(raw) >= 2 && raw[1] == ':' &&
		(raw[0] >= 'a' && raw[0] <= 'z' || raw[0] >= 'A' && raw[0] <= 'Z') {
		return true
	}
	return false
}

func parseToken(raw string) (*Spec, error) {
	m := tokenRE.FindStringSubmatch(raw)
	if m == nil {
		return nil, fmt.Errorf("invalid interpreter spec %q", raw)
	}
	impl, version, threaded, arch, machine := m[1], m[2], m[3], m[4], m[5]
	if impl == "" && version == "" && threaded == "" && arch == "" && machine == "" {
		return nil, fmt.Errorf("invalid interpreter spec %q", raw)
	}
	// A trailing "t" without a version is part of the implementation name,
	// so the regexp never produces that shape; a lone "t" group with no
	// version is rejected to keep free-threading tied to a version request.
	if threaded != "" && version == "" {
		return nil, fmt.Errorf("invalid interpreter spec %q: free-threaded marker requires a version", raw)
	}

	spec := &Spec{Raw: raw}
	switch lower := strings.ToLower(impl); lower {
	case "", "py", "python":
		spec.Implementation = ""
	default:
		spec.Implementation = lower
	}
	if version != "" {
		major, minor, micro, err := parseVersionParts(version)
		if err != nil {
			return nil, fmt.Errorf("invalid interpreter spec %q: %w", raw, err)
		}
		spec.Major, spec.Minor, spec.Micro = major, minor, micro
		if threaded != "" {
			required := true
			spec.FreeThreaded = &required
		}
	}
	if arch != "" {
		spec.Architecture, _ = strconv.Atoi(arch)
	}
	if machine != "" {
		spec.Machine = NormalizeISA(machine)
	}
	return spec, nil
}

// parseVersionParts splits a dotted version token into up to three
// components. A single dotless run of two or more digits starting at "3" or
// higher is decomposed into major (first digit) and minor (the rest), so
// "312" reads as 3.12 and "3100" as 3.100.
func parseVersionParts(version string) (major, minor, micro *int, err error) {
	parts := make([]int, 0, 3)
	for _, piece := range strings.Split(version, ".") {
		if piece == "" {
			continue
		}
		n, convErr := strconv.Atoi(piece)
		if convErr != nil {
			return nil, nil, nil, fmt.Errorf("invalid version part %q", piece)
		}
		parts = append(parts, n)
	}
	switch len(parts) {
	case 0:
		return nil, nil, nil, fmt.Errorf("empty version %q", version)
	case 1:
		if digits := strings.Split(version, ".")[0]; len(digits) >= 2 && digits[0] >= '3' {
			first := int(digits[0] - '0')
			rest, _ := strconv.Atoi(digits[1:])
			return intPtr(first), intPtr(rest), nil, nil
		}
		return intPtr(parts[0]), nil, nil, nil
	case 2:
		return intPtr(parts[0]), intPtr(parts[1]), nil, nil
	case 3:
		return intPtr(parts[0]), intPtr(parts[1]), intPtr(parts[2]), nil
	}
	return nil, nil, nil, fmt.Errorf("too many version parts in %q", version)
}

func parseConstraintExpr(raw string) (*Spec, error) {
	m := exprRE.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return nil, fmt.Errorf("invalid version constraint %q", raw)
	}
	set, err := ParseSpecifierSet(m[2])
	if err != nil {
		return nil, fmt.Errorf("invalid version constraint %q: %w", raw, err)
	}
	if set.Empty() {
		return nil, fmt.Errorf("invalid version constraint %q: no clauses", raw)
	}
	for _, clause := range set.Specifiers {
		if clause.Version == nil {
			return nil, fmt.Errorf("invalid version constraint %q: clause %q has no valid version", raw, clause.Raw)
		}
	}
	spec := &Spec{Raw: raw, Constraints: set}
	switch lower := strings.ToLower(m[1]); lower {
	case "", "py", "python":
		spec.Implementation = ""
	default:
		spec.Implementation = lower
	}
	return spec, nil
}

// IsPath reports whether the spec names a filesystem location.
func (s *Spec) IsPath() bool {
	return s.Path != ""
}

// IsAbs reports whether the spec is an absolute path requirement.
func (s *Spec) IsAbs() bool {
	return s.Path != "" && filepath.IsAbs(s.Path)
}

// VersionText renders the provided version components as a dotted string;
// empty when no component was given.
func (s *Spec) VersionText() string {
	parts := make([]string, 0, 3)
	for _, p := range []*int{s.Major, s.Minor, s.Micro} {
		if p == nil {
			break
		}
		parts = append(parts, strconv.Itoa(*p))
	}
	return strings.Join(parts, ".")
}

// Satisfies reports whether this spec (typically describing an interpreter
// advertised by a registry entry, with no verified metadata yet) is
// compatible with the requirement req. Fields req leaves unset are wildcards.
// Unset implementation, machine and version fields on this spec are
// wildcards too; a req that sets architecture or free-threading rejects a
// spec that leaves them unset.
func (s *Spec) Satisfies(req *Spec) bool {
	if req.IsAbs() && s.IsAbs() && req.Path != s.Path {
		return false
	}
	if req.Implementation != "" && s.Implementation != "" && req.Implementation != s.Implementation {
		return false
	}
	if req.Architecture != 0 && req.Architecture != s.Architecture {
		return false
	}
	if req.Machine != "" && s.Machine != "" && req.Machine != s.Machine {
		return false
	}
	if req.FreeThreaded != nil {
		if s.FreeThreaded == nil || *req.FreeThreaded != *s.FreeThreaded {
			return false
		}
	}
	if !req.Constraints.Empty() && !s.satisfiesConstraints(req.Constraints) {
		return false
	}
	ours := []*int{s.Major, s.Minor, s.Micro}
	for i, want := range []*int{req.Major, req.Minor, req.Micro} {
		if want != nil && ours[i] != nil && *want != *ours[i] {
			return false
		}
	}
	return true
}

// satisfiesConstraints checks the spec's own partial version against a
// constraint set, skipping clauses that require more release components than
// the spec provides (the required-precision rule).
func (s *Spec) satisfiesConstraints(set SpecifierSet) bool {
	text := s.VersionText()
	if text == "" {
		return true
	}
	candidate, err := ParseVersion(text)
	if err != nil {
		return true
	}
	for _, clause := range set.Specifiers {
		if clause.Version == nil || candidate.Precision < clause.Version.Precision {
			continue
		}
		if !clause.ContainsVersion(candidate) {
			return false
		}
	}
	return true
}

// String returns the requirement as given.
func (s *Spec) String() string {
	return s.Raw
}

func intPtr(v int) *int {
	return &v
}

// NormalizeISA lowercases an instruction-set name and folds vendor aliases:
// amd64 becomes x86_64 and aarch64 becomes arm64.
func NormalizeISA(isa string) string {
	low := strings.ToLower(isa)
	switch low {
	case "amd64":
		return "x86_64"
	case "aarch64":
		return "arm64"
	}
	return low
}
