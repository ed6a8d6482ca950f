// SPDX-License-Identifier: MPL-2.0

//go:build windows

package discovery

import (
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/sys/windows/registry"

	"pydiscover/pkg/pyspec"
)

var (
	regArchRE    = regexp.MustCompile(`^(\d+)bit$`)
	regVersionRE = regexp.MustCompile(`^(\d+)(?:\.(\d+))?(?:\.(\d+))?$`)
	// regThreadedTagRE marks free-threaded tags such as "3.13t".
	regThreadedTagRE = regexp.MustCompile(`(?i)^\d+(\.\d+){0,2}t$`)
)

// registryHive is one PEP 514 enumeration root. HKCU precedes HKLM; the
// 32-bit view of HKLM comes last with its own default bitness.
type registryHive struct {
	key         registry.Key
	access      uint32
	defaultArch int
}

var registryHives = []registryHive{
	{registry.CURRENT_USER, registry.READ, 64},
	{registry.LOCAL_MACHINE, registry.READ | registry.WOW64_64KEY, 64},
	{registry.LOCAL_MACHINE, registry.READ | registry.WOW64_32KEY, 32},
}

// registryEntry is one registered distribution tag with the metadata PEP 514
// publishes about it.
type registryEntry struct {
	exe  string
	spec pyspec.Spec
}

// registryProvider enumerates PEP 514 registrations. Entries whose declared
// metadata already contradicts the spec are not yielded; the survivors are
// still verified by probing like every other candidate.
func registryProvider(s *session, spec *pyspec.Spec, yield yieldFunc) bool {
	if spec.IsPath() {
		return true
	}
	for _, entry := range enumerateRegistry(s) {
		if !entry.spec.Satisfies(spec) {
			continue
		}
		if !yield(Candidate{Path: entry.exe, ImplMustMatch: true, Provider: "registry"}) {
			return false
		}
	}
	return true
}

func enumerateRegistry(s *session) []registryEntry {
	var entries []registryEntry
	for _, hive := range registryHives {
		root, err := registry.OpenKey(hive.key, `Software\Python`, hive.access)
		if err != nil {
			continue
		}
		companies, err := root.ReadSubKeyNames(-1)
		if err != nil {
			root.Close()
			continue
		}
		for _, company := range companies {
			if company == "PyLauncher" { // reserved by the launcher
				continue
			}
			entries = append(entries, enumerateCompany(s, root, company, hive)...)
		}
		root.Close()
	}
	return entries
}

func enumerateCompany(s *session, root registry.Key, company string, hive registryHive) []registryEntry {
	companyKey, err := registry.OpenKey(root, company, hive.access)
	if err != nil {
		return nil
	}
	defer companyKey.Close()

	tags, err := companyKey.ReadSubKeyNames(-1)
	if err != nil {
		return nil
	}

	var entries []registryEntry
	for _, tag := range tags {
		entry, ok := loadTag(s, companyKey, company, tag, hive)
		if ok {
			entries = append(entries, entry)
		}
	}
	return entries
}

// loadTag reads one distribution tag: version from SysVersion or the tag
// name, bitness from SysArchitecture, the executable from InstallPath, and
// the free-threading marker from DisplayName or the tag spelling.
func loadTag(s *session, companyKey registry.Key, company, tag string, hive registryHive) (registryEntry, bool) {
	tagKey, err := registry.OpenKey(companyKey, tag, hive.access)
	if err != nil {
		return registryEntry{}, false
	}
	defer tagKey.Close()

	spec := pyspec.Spec{Raw: company + "/" + tag}
	if !strings.EqualFold(company, "PythonCore") {
		spec.Implementation = strings.ToLower(company)
	}

	versionText, _, err := tagKey.GetStringValue("SysVersion")
	if err != nil {
		versionText = tag
	}
	major, minor, micro, ok := parseRegistryVersion(versionText)
	if !ok {
		s.sink.Report(Diagnostic{
			Severity: SeverityWarning,
			Code:     "registry_bad_version",
			Message:  "skipping registry tag with unparsable version",
			Path:     spec.Raw,
		})
		return registryEntry{}, false
	}
	spec.Major, spec.Minor, spec.Micro = major, minor, micro

	spec.Architecture = hive.defaultArch
	if archText, _, err := tagKey.GetStringValue("SysArchitecture"); err == nil {
		if m := regArchRE.FindStringSubmatch(archText); m != nil {
			spec.Architecture, _ = strconv.Atoi(m[1])
		} else {
			s.sink.Report(Diagnostic{
				Severity: SeverityWarning,
				Code:     "registry_bad_architecture",
				Message:  "registry tag declares unparsable SysArchitecture",
				Path:     spec.Raw,
			})
		}
	}

	threaded := regThreadedTagRE.MatchString(tag)
	if display, _, err := tagKey.GetStringValue("DisplayName"); err == nil {
		if strings.Contains(strings.ToLower(display), "freethreaded") {
			threaded = true
		}
	}
	spec.FreeThreaded = &threaded

	exe, ok := loadTagExecutable(companyKey, tag, hive)
	if !ok {
		return registryEntry{}, false
	}
	return registryEntry{exe: exe, spec: spec}, true
}

// loadTagExecutable reads InstallPath: WindowedExecutablePath and
// ExecutablePath take precedence, then the default value joined with
// python.exe.
func loadTagExecutable(companyKey registry.Key, tag string, hive registryHive) (string, bool) {
	ipKey, err := registry.OpenKey(companyKey, tag+`\InstallPath`, hive.access)
	if err != nil {
		return "", false
	}
	defer ipKey.Close()

	for _, value := range []string{"WindowedExecutablePath", "ExecutablePath"} {
		if exe, _, err := ipKey.GetStringValue(value); err == nil && exe != "" {
			if _, statErr := os.Stat(exe); statErr == nil {
				return exe, true
			}
		}
	}
	if install, _, err := ipKey.GetStringValue(""); err == nil && install != "" {
		exe := filepath.Join(install, "python.exe")
		if _, statErr := os.Stat(exe); statErr == nil {
			return exe, true
		}
	}
	return "", false
}

func parseRegistryVersion(text string) (major, minor, micro *int, ok bool) {
	m := regVersionRE.FindStringSubmatch(strings.TrimSuffix(strings.ToLower(text), "t"))
	if m == nil {
		return nil, nil, nil, false
	}
	conv := func(s string) *int {
		if s == "" {
			return nil
		}
		n, _ := strconv.Atoi(s)
		return &n
	}
	return conv(m[1]), conv(m[2]), conv(m[3]), true
}
