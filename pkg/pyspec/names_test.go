// SPDX-License-Identifier: MPL-2.0

package pyspec

import (
	"slices"
	"testing"
)

func TestFilenameRegexp(t *testing.T) {
	tests := []struct {
		spec    string
		name    string
		windows bool
		want    bool
	}{
		{"python3.12", "python3.12", false, true},
		{"python3.12", "python3", false, true},
		{"python3.12", "python3.12.1", false, true},
		{"python3.12", "python3.11", false, false},
		{"python3.12", "python", false, false},
		{"python", "python", false, true},
		{"python", "python3.12", false, true},
		{"pypy3.9", "pypy3.9", false, true},
		{"pypy3.9", "python3.9", false, true},
		{"pypy3.9", "graalpy3.9", false, false},
		{"python3.13t", "python3.13t", false, true},
		{"python3.13t", "python3.13", false, true},
		{"python3.12", "python3.12.exe", true, true},
		{"python3.12", "python.exe", true, true},
		{"python3.12", "python3.12", true, false},
	}
	for _, tt := range tests {
		t.Run(tt.spec+"/"+tt.name, func(t *testing.T) {
			spec, err := FromString(tt.spec)
			if err != nil {
				t.Fatal(err)
			}
			got := spec.FilenameRegexp(tt.windows).FindStringSubmatch(tt.name) != nil
			if got != tt.want {
				t.Errorf("FilenameRegexp(%q).Match(%q) = %v, want %v", tt.spec, tt.name, got, tt.want)
			}
		})
	}
}

func TestCandidateBasenames(t *testing.T) {
	spec, err := FromString("python3.12")
	if err != nil {
		t.Fatal(err)
	}
	names := spec.CandidateBasenames("")
	wantOrder := []string{"python3.12", "python3", "python"}
	idx := func(name string) int { return slices.Index(names, name) }
	for i := 1; i < len(wantOrder); i++ {
		a, b := idx(wantOrder[i-1]), idx(wantOrder[i])
		if a == -1 || b == -1 || a > b {
			t.Fatalf("CandidateBasenames() = %v, want %v most specific first", names, wantOrder)
		}
	}
}

func TestCandidateBasenames_AnyImplementation(t *testing.T) {
	spec, err := FromString("python3")
	if err != nil {
		t.Fatal(err)
	}
	names := spec.CandidateBasenames("")
	for _, want := range []string{"python3", "pypy3", "graalpy3", "python"} {
		if !slices.Contains(names, want) {
			t.Errorf("CandidateBasenames() = %v, missing %q", names, want)
		}
	}
	if names[0] != "python3" {
		t.Errorf("first candidate = %q, want the conventional python3", names[0])
	}
}

func TestCandidateBasenames_FreeThreaded(t *testing.T) {
	spec, err := FromString("python3.13t")
	if err != nil {
		t.Fatal(err)
	}
	names := spec.CandidateBasenames("")
	if names[0] != "python3.13t" {
		t.Errorf("first candidate = %q, want python3.13t", names[0])
	}
	if !slices.Contains(names, "python3.13") {
		t.Errorf("CandidateBasenames() = %v, missing the non-suffixed fallback", names)
	}
}

func TestCandidateBasenames_WindowsSuffix(t *testing.T) {
	spec, err := FromString("python3.12")
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range spec.CandidateBasenames(".exe") {
		if len(name) < 4 || name[len(name)-4:] != ".exe" {
			t.Errorf("candidate %q lacks the executable suffix", name)
		}
	}
}

func TestMatchesFilename(t *testing.T) {
	spec, err := FromString("python3.12")
	if err != nil {
		t.Fatal(err)
	}

	ok, implMustMatch := spec.MatchesFilename("python3.12", false)
	if !ok || implMustMatch {
		t.Errorf("direct name: ok=%v implMustMatch=%v, want true,false", ok, implMustMatch)
	}

	ok, implMustMatch = spec.MatchesFilename("python3.12.1", false)
	if !ok || !implMustMatch {
		t.Errorf("pattern name: ok=%v implMustMatch=%v, want true,true", ok, implMustMatch)
	}

	if ok, _ = spec.MatchesFilename("ruby3.12", false); ok {
		t.Error("unrelated name matched")
	}
}
