// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"pydiscover/internal/issue"
	"pydiscover/pkg/cache"
)

// fakeInterpreter writes an executable shell script that reports the given
// identity the way a real probe run would.
func fakeInterpreter(t *testing.T, dir, name string, major, minor, micro int, opts ...func(map[string]string)) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake interpreters are POSIX shell scripts")
	}
	path := filepath.Join(dir, name)

	fields := map[string]string{
		"implementation": "CPython",
		"free_threaded":  "false",
		"machine":        "x86_64",
		"count_file":     "",
	}
	for _, opt := range opts {
		opt(fields)
	}

	payload := fmt.Sprintf(`{
  "executable": %q,
  "system_executable": %q,
  "implementation": %q,
  "version_info": {"major": %d, "minor": %d, "micro": %d, "releaselevel": "final", "serial": 0},
  "architecture": 64,
  "platform": "linux",
  "sysconfig_platform": "linux-%s",
  "machine": %q,
  "free_threaded": %s,
  "sysconfig_vars": {},
  "sysconfig_paths": {"stdlib": "/usr/lib/python"}
}`, path, path, fields["implementation"], major, minor, micro, fields["machine"], fields["machine"], fields["free_threaded"])

	var script strings.Builder
	script.WriteString("#!/bin/sh\n")
	if fields["count_file"] != "" {
		fmt.Fprintf(&script, "echo run >> %q\n", fields["count_file"])
	}
	fmt.Fprintf(&script, "cat <<'JSON'\n%s\nJSON\n", payload)
	if err := os.WriteFile(path, []byte(script.String()), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func withImpl(impl string) func(map[string]string) {
	return func(f map[string]string) { f["implementation"] = impl }
}

func withFreeThreaded() func(map[string]string) {
	return func(f map[string]string) { f["free_threaded"] = "true" }
}

func withCountFile(path string) func(map[string]string) {
	return func(f map[string]string) { f["count_file"] = path }
}

// testEnv builds a hermetic environment: nothing from the host leaks in.
func testEnv(t *testing.T, pathDirs ...string) []string {
	t.Helper()
	return []string{
		"PATH=" + strings.Join(pathDirs, string(os.PathListSeparator)),
		"HOME=" + t.TempDir(),
	}
}

func TestDiscover_FindsInterpreterOnPath(t *testing.T) {
	bin := t.TempDir()
	exe := fakeInterpreter(t, bin, "python3.12", 3, 12, 1)

	info, err := Discover(context.Background(), []string{"python3.12"}, Options{Env: testEnv(t, bin)})
	if err != nil {
		t.Fatalf("Discover() error: %v", err)
	}
	if info == nil {
		t.Fatal("Discover() found nothing")
	}
	if info.Executable != exe {
		t.Errorf("Executable = %q, want %q", info.Executable, exe)
	}
	if info.Implementation != "CPython" {
		t.Errorf("Implementation = %q", info.Implementation)
	}
	if got := info.VersionInfo.VersionText(); got != "3.12.1" {
		t.Errorf("version = %q", got)
	}
	if info.Architecture != 64 {
		t.Errorf("Architecture = %d", info.Architecture)
	}
}

func TestDiscover_AbsentWhenNothingMatches(t *testing.T) {
	bin := t.TempDir()
	fakeInterpreter(t, bin, "python3.12", 3, 12, 1)

	info, err := Discover(context.Background(), []string{"pypy3.9"}, Options{Env: testEnv(t, bin)})
	if err != nil {
		t.Fatalf("Discover() error: %v", err)
	}
	if info != nil {
		t.Errorf("Discover() = %v, want absent", info)
	}
}

func TestDiscover_ImplementationPinned(t *testing.T) {
	bin := t.TempDir()
	fakeInterpreter(t, bin, "python3.9", 3, 9, 18)
	wantExe := fakeInterpreter(t, bin, "pypy3.9", 3, 9, 18, withImpl("PyPy"))

	info, err := Discover(context.Background(), []string{"pypy3.9"}, Options{Env: testEnv(t, bin)})
	if err != nil {
		t.Fatal(err)
	}
	if info == nil {
		t.Fatal("PyPy build not found")
	}
	if info.Executable != wantExe || info.Implementation != "PyPy" {
		t.Errorf("got %s (%s), want %s", info.Executable, info.Implementation, wantExe)
	}
}

func TestDiscover_SpecFallbackOrder(t *testing.T) {
	bin := t.TempDir()
	fakeInterpreter(t, bin, "python3.12", 3, 12, 0)

	info, err := Discover(context.Background(), []string{"python3.13", "python3.12"}, Options{Env: testEnv(t, bin)})
	if err != nil {
		t.Fatal(err)
	}
	if info == nil {
		t.Fatal("Discover() found nothing")
	}
	if got := info.VersionInfo.VersionText(); got != "3.12.0" {
		t.Errorf("version = %q, want the second spec's match", got)
	}
}

func TestDiscover_FreeThreaded(t *testing.T) {
	standard := t.TempDir()
	fakeInterpreter(t, standard, "python3.13", 3, 13, 0)
	threaded := t.TempDir()
	fakeInterpreter(t, threaded, "python3.13t", 3, 13, 0, withFreeThreaded())

	// Only the free-threaded build satisfies python3.13t.
	info, err := Discover(context.Background(), []string{"python3.13t"},
		Options{Env: testEnv(t, standard, threaded)})
	if err != nil {
		t.Fatal(err)
	}
	if info == nil {
		t.Fatal("free-threaded build not found")
	}
	if !info.FreeThreaded {
		t.Errorf("matched a standard build for python3.13t: %s", info.Executable)
	}

	// A host with only the standard build yields nothing for python3.13t.
	info, err = Discover(context.Background(), []string{"python3.13t"}, Options{Env: testEnv(t, standard)})
	if err != nil {
		t.Fatal(err)
	}
	if info != nil {
		t.Errorf("standard build matched python3.13t: %s", info.Executable)
	}
}

func TestDiscover_VersionRange(t *testing.T) {
	bin := t.TempDir()
	fakeInterpreter(t, bin, "python3.12", 3, 12, 4)

	tests := []struct {
		expr string
		want bool
	}{
		{">=3.11,<3.13", true},
		{">=3.13", false},
		{"<3.11", false},
		{"==3.12.*", true},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			info, err := Discover(context.Background(), []string{tt.expr}, Options{Env: testEnv(t, bin)})
			if err != nil {
				t.Fatal(err)
			}
			if (info != nil) != tt.want {
				t.Errorf("Discover(%q) found=%v, want %v", tt.expr, info != nil, tt.want)
			}
		})
	}
}

func TestDiscover_LiteralPath(t *testing.T) {
	opt := t.TempDir()
	exe := fakeInterpreter(t, opt, "python3", 3, 11, 2)

	// No PATH at all: the literal provider alone must find it.
	info, err := Discover(context.Background(), []string{exe}, Options{Env: []string{"HOME=" + t.TempDir()}})
	if err != nil {
		t.Fatal(err)
	}
	if info == nil || info.Executable != exe {
		t.Fatalf("literal path lookup failed: %+v", info)
	}

	// A missing literal path is absent, not an error.
	info, err = Discover(context.Background(), []string{filepath.Join(opt, "missing")}, Options{Env: testEnv(t)})
	if err != nil {
		t.Fatal(err)
	}
	if info != nil {
		t.Errorf("missing path produced %v", info)
	}
}

func TestDiscover_OrderPreservation(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	wantExe := fakeInterpreter(t, first, "python3.12", 3, 12, 1)
	fakeInterpreter(t, second, "python3.12", 3, 12, 2)

	info, err := Discover(context.Background(), []string{"python3.12"}, Options{Env: testEnv(t, first, second)})
	if err != nil {
		t.Fatal(err)
	}
	if info == nil || info.Executable != wantExe {
		t.Fatalf("got %+v, want the earlier PATH entry %s", info, wantExe)
	}
}

func TestDiscover_TryFirstWithPrecedesPath(t *testing.T) {
	hinted := t.TempDir()
	onPath := t.TempDir()
	wantExe := fakeInterpreter(t, hinted, "python3.12", 3, 12, 1)
	fakeInterpreter(t, onPath, "python3.12", 3, 12, 1)

	info, err := Discover(context.Background(), []string{"python3.12"},
		Options{Env: testEnv(t, onPath), TryFirstWith: []string{hinted}})
	if err != nil {
		t.Fatal(err)
	}
	if info == nil || info.Executable != wantExe {
		t.Fatalf("got %+v, want the hinted directory's %s", info, wantExe)
	}
}

func TestDiscover_ParseErrorSurfaces(t *testing.T) {
	_, err := Discover(context.Background(), []string{">="}, Options{Env: testEnv(t)})
	if err == nil {
		t.Fatal("malformed spec did not error")
	}
	var actionable *issue.ActionableError
	if !errors.As(err, &actionable) {
		t.Errorf("error %T is not actionable", err)
	}
}

func TestDiscover_NoSpecs(t *testing.T) {
	if _, err := Discover(context.Background(), nil, Options{Env: testEnv(t)}); err == nil {
		t.Error("empty spec list did not error")
	}
}

func TestDiscover_Canceled(t *testing.T) {
	bin := t.TempDir()
	fakeInterpreter(t, bin, "python3.12", 3, 12, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Discover(ctx, []string{"python3.12"}, Options{Env: testEnv(t, bin)})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Discover() on canceled context = %v", err)
	}
}

func TestDiscover_BrokenCandidateIsSkippedAndReported(t *testing.T) {
	broken := t.TempDir()
	brokenExe := filepath.Join(broken, "python3.12")
	if err := os.WriteFile(brokenExe, []byte("#!/bin/sh\nexit 9\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	working := t.TempDir()
	wantExe := fakeInterpreter(t, working, "python3.12", 3, 12, 1)

	sink := &CollectSink{}
	info, err := Discover(context.Background(), []string{"python3.12"},
		Options{Env: testEnv(t, broken, working), Sink: sink})
	if err != nil {
		t.Fatal(err)
	}
	if info == nil || info.Executable != wantExe {
		t.Fatalf("got %+v, want the later working candidate", info)
	}

	found := false
	for _, d := range sink.Diagnostics {
		if d.Code == "probe_failed" && d.Path == brokenExe {
			found = true
		}
	}
	if !found {
		t.Errorf("no probe_failed diagnostic for %s: %+v", brokenExe, sink.Diagnostics)
	}
}

func TestDiscover_DedupAcrossSymlinks(t *testing.T) {
	bin := t.TempDir()
	countFile := filepath.Join(t.TempDir(), "count")
	fakeInterpreter(t, bin, "python3.12", 3, 12, 1, withCountFile(countFile))
	if err := os.Symlink(filepath.Join(bin, "python3.12"), filepath.Join(bin, "python3")); err != nil {
		t.Fatal(err)
	}

	// Both file names fit a pypy3 requirement (generic python names are
	// candidates for any implementation), neither satisfies it, and the
	// underlying binary must be probed only once.
	info, err := Discover(context.Background(), []string{"pypy3"}, Options{Env: testEnv(t, bin)})
	if err != nil {
		t.Fatal(err)
	}
	if info != nil {
		t.Fatalf("unexpected match %+v", info)
	}
	data, err := os.ReadFile(countFile)
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Count(string(data), "run"); got != 1 {
		t.Errorf("binary probed %d times, want 1", got)
	}
}

func TestDiscover_CacheIdempotenceAcrossCalls(t *testing.T) {
	bin := t.TempDir()
	countFile := filepath.Join(t.TempDir(), "count")
	fakeInterpreter(t, bin, "python3.12", 3, 12, 1, withCountFile(countFile))

	disk := cache.NewDisk(t.TempDir())
	env := testEnv(t, bin)

	for i := 0; i < 2; i++ {
		info, err := Discover(context.Background(), []string{"python3.12"}, Options{Env: env, Cache: disk})
		if err != nil {
			t.Fatal(err)
		}
		if info == nil {
			t.Fatal("Discover() found nothing")
		}
	}

	data, err := os.ReadFile(countFile)
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Count(string(data), "run"); got != 1 {
		t.Errorf("probe ran %d times across two cached calls, want 1", got)
	}
}
