// SPDX-License-Identifier: MPL-2.0

package pyspec

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// knownImplementations are the executable name prefixes tried for an
// any-implementation spec, after the conventional "python".
var knownImplementations = []string{"pypy", "graalpy"}

// FilenameRegexp builds the pattern an executable file name must match to be
// a candidate for this spec. Version components the spec leaves open match
// any digit run. On Windows the version portion is optional and the ".exe"
// suffix is required.
func (s *Spec) FilenameRegexp(windows bool) *regexp.Regexp {
	part := func(p *int) string {
		if p == nil {
			return `\d+`
		}
		return strconv.Itoa(*p)
	}
	version := fmt.Sprintf(`%s(\.%s(\.%s)?)?`, part(s.Major), part(s.Minor), part(s.Micro))

	impl := "python"
	if s.Implementation != "" {
		impl = "python|" + regexp.QuoteMeta(s.Implementation)
	}

	mod := ""
	if s.FreeThreaded != nil && *s.FreeThreaded {
		mod = "t?"
	}

	suffix := ""
	if windows {
		suffix = `\.exe`
	}

	conditional := ""
	if windows || s.Major == nil {
		conditional = "?"
	}

	return regexp.MustCompile(fmt.Sprintf(`(?i)^(?P<impl>%s)(?P<v>%s%s)%s%s$`, impl, version, mod, conditional, suffix))
}

// CandidateBasenames returns, most specific first, the executable base names
// a directory scan should try for this spec: implementation plus
// major.minor, implementation plus major, then the bare implementation. For
// an any-implementation spec the "python" prefix is tried before every known
// implementation prefix. Free-threaded requirements append "t" after the
// version. suffix is the OS executable suffix ("" or ".exe").
func (s *Spec) CandidateBasenames(suffix string) []string {
	prefixes := []string{"python"}
	switch s.Implementation {
	case "":
		prefixes = append(prefixes, knownImplementations...)
	case "cpython":
		// CPython installs name their binaries python*.
	default:
		prefixes = []string{s.Implementation, "python"}
	}

	mods := []string{""}
	if s.FreeThreaded != nil && *s.FreeThreaded {
		mods = []string{"t", ""}
	}

	var versions []string
	if s.Major != nil && s.Minor != nil {
		versions = append(versions, fmt.Sprintf("%d.%d", *s.Major, *s.Minor))
	}
	if s.Major != nil {
		versions = append(versions, strconv.Itoa(*s.Major))
	}
	versions = append(versions, "")

	seen := make(map[string]struct{})
	var names []string
	for _, version := range versions {
		for _, mod := range mods {
			if version == "" && mod != "" {
				continue
			}
			for _, prefix := range prefixes {
				name := prefix + version + mod + suffix
				if _, dup := seen[name]; dup {
					continue
				}
				seen[name] = struct{}{}
				names = append(names, name)
			}
		}
	}
	return names
}

// MatchesFilename reports whether name is a candidate file name for this
// spec, and whether the match obliges the implementation to be verified
// against the spec (true for generic "python" named files, false when the
// spec string itself is the file name).
func (s *Spec) MatchesFilename(name string, windows bool) (ok, implMustMatch bool) {
	direct := s.Raw
	if windows {
		direct += ".exe"
	}
	if strings.EqualFold(name, direct) {
		return true, false
	}
	m := s.FilenameRegexp(windows).FindStringSubmatch(name)
	if m == nil {
		return false, false
	}
	return true, strings.EqualFold(m[1], "python")
}
