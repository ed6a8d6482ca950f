// SPDX-License-Identifier: MPL-2.0

package pyspec

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// versionRE accepts release segments with an optional pre-release suffix:
// "3", "3.12", "3.12.1", "3.13.0rc2".
var versionRE = regexp.MustCompile(`^(\d+)(?:\.(\d+))?(?:\.(\d+))?(?:(a|b|rc)(\d+))?$`)

// preOrder ranks pre-release phases below final releases.
var preOrder = map[string]int{"a": 1, "b": 2, "rc": 3}

// Version is a parsed PEP 440 subset version: a release triple plus an
// optional pre-release suffix. The zero minor/micro components are filled in
// when absent ("3.12" parses with Micro 0) while Precision records how many
// release components were written out.
type Version struct {
	// Raw is the version exactly as written, surrounding space trimmed.
	Raw string
	// Major, Minor, Micro form the release triple.
	Major, Minor, Micro int
	// Precision is the number of release components present in Raw (1..3).
	Precision int
	// PreType is "a", "b", or "rc" when a pre-release suffix is present.
	PreType string
	// PreNum is the pre-release serial; meaningful only when PreType != "".
	PreNum int
}

// ParseVersion parses a version string, returning an error for anything that
// does not fit the release(+pre) grammar.
func ParseVersion(s string) (Version, error) {
	trimmed := strings.TrimSpace(s)
	m := versionRE.FindStringSubmatch(trimmed)
	if m == nil {
		return Version{}, fmt.Errorf("invalid version %q", s)
	}
	v := Version{Raw: trimmed, Precision: 1}
	v.Major, _ = strconv.Atoi(m[1])
	if m[2] != "" {
		v.Minor, _ = strconv.Atoi(m[2])
		v.Precision = 2
	}
	if m[3] != "" {
		v.Micro, _ = strconv.Atoi(m[3])
		v.Precision = 3
	}
	if m[4] != "" {
		v.PreType = m[4]
		v.PreNum, _ = strconv.Atoi(m[5])
	}
	return v, nil
}

// Release returns the release triple.
func (v Version) Release() [3]int {
	return [3]int{v.Major, v.Minor, v.Micro}
}

// String returns the version as written.
func (v Version) String() string {
	return v.Raw
}

// Compare orders v against other per PEP 440: release triples first, then a
// pre-release sorts below the corresponding final release, pre-release phases
// ordering a < b < rc, ties broken by serial. Returns -1, 0, or +1.
func (v Version) Compare(other Version) int {
	if c := compareRelease(v.Release(), other.Release()); c != 0 {
		return c
	}
	switch {
	case v.PreType == "" && other.PreType == "":
		return 0
	case v.PreType == "":
		return 1
	case other.PreType == "":
		return -1
	}
	if preOrder[v.PreType] != preOrder[other.PreType] {
		if preOrder[v.PreType] < preOrder[other.PreType] {
			return -1
		}
		return 1
	}
	switch {
	case v.PreNum < other.PreNum:
		return -1
	case v.PreNum > other.PreNum:
		return 1
	}
	return 0
}

func compareRelease(a, b [3]int) int {
	for i := range a {
		switch {
		case a[i] < b[i]:
			return -1
		case a[i] > b[i]:
			return 1
		}
	}
	return 0
}
