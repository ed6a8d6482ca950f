// SPDX-License-Identifier: MPL-2.0

// Package discovery locates Python interpreters. Providers enumerate
// candidate executables from the host's ecosystem locations in a fixed
// order; the verifier probes each candidate and the first one satisfying a
// requested spec wins.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"pydiscover/internal/issue"
	"pydiscover/pkg/cache"
	"pydiscover/pkg/pathid"
	"pydiscover/pkg/pyinfo"
	"pydiscover/pkg/pyspec"
)

// Options carries everything one discovery call depends on; nothing is read
// from process globals except where a field is nil.
type Options struct {
	// TryFirstWith lists hint directories searched before anything else.
	TryFirstWith []string

	// Cache persists probe results between calls; nil probes fresh every
	// time.
	Cache cache.Cache

	// Env is the environment consulted for PATH, version-manager roots and
	// probe subprocesses; nil means the process environment.
	Env []string

	// WorkDir anchors relative path specs and the .python-version walk; ""
	// means the process working directory.
	WorkDir string

	// Timeout bounds each probe subprocess; zero means the default.
	Timeout time.Duration

	// Logger receives verifier debug output; nil discards it.
	Logger *log.Logger

	// Sink receives per-candidate diagnostics; nil discards them.
	Sink Sink
}

// session is the resolved per-call state shared by providers.
type session struct {
	opts   Options
	env    []string
	cwd    string
	sink   Sink
	prober *pyinfo.Prober
}

// Discover finds the first interpreter satisfying any of the ordered specs.
// Specs are tried in order; for each spec the providers run in their fixed
// order and the first verified candidate that matches is returned. A nil
// Info with a nil error means no spec was satisfied. Spec parse failures
// are returned as errors; per-candidate failures only reach the sink.
func Discover(ctx context.Context, specs []string, opts Options) (*pyinfo.Info, error) {
	if len(specs) == 0 {
		return nil, errors.New("no interpreter specs given")
	}

	parsed := make([]*pyspec.Spec, len(specs))
	for i, raw := range specs {
		spec, err := pyspec.FromString(raw)
		if err != nil {
			return nil, issue.NewErrorContext().
				WithOperation("parse interpreter spec").
				WithResource(raw).
				WithSuggestion("Use a structured token such as python3.12 or pypy3.9").
				WithSuggestion("Or a version range such as >=3.11,<3.13").
				Wrap(err).
				BuildError()
		}
		parsed[i] = spec
	}

	s, err := newSession(opts)
	if err != nil {
		return nil, err
	}

	for _, spec := range parsed {
		info, err := s.find(ctx, spec)
		if err != nil {
			return nil, err
		}
		if info != nil {
			return info, nil
		}
	}
	return nil, nil
}

func newSession(opts Options) (*session, error) {
	env := opts.Env
	if env == nil {
		env = os.Environ()
	}
	cwd := opts.WorkDir
	if cwd == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolve working directory: %w", err)
		}
		cwd = wd
	}
	sink := opts.Sink
	if sink == nil {
		sink = discardSink{}
	}
	return &session{
		opts: opts,
		env:  env,
		cwd:  cwd,
		sink: sink,
		prober: &pyinfo.Prober{
			Cache:   opts.Cache,
			Env:     env,
			Timeout: opts.Timeout,
			Logger:  opts.Logger,
		},
	}, nil
}

// find runs the provider chain for one spec and returns the first verified
// candidate that satisfies it.
func (s *session) find(ctx context.Context, spec *pyspec.Spec) (*pyinfo.Info, error) {
	var match *pyinfo.Info
	err := s.walk(ctx, spec, func(info *pyinfo.Info) bool {
		match = info
		return false
	})
	if err != nil {
		return nil, err
	}
	return match, nil
}

// walk drives the provider chain for one spec, verifying each candidate and
// invoking onMatch for every satisfying interpreter; onMatch returning false
// short-circuits the walk. Candidates are deduplicated by their resolved,
// case-folded path; verifier rejections are reported to the sink and
// skipped; an unresolvable shim is rejected without executing it.
func (s *session) walk(ctx context.Context, spec *pyspec.Spec, onMatch func(*pyinfo.Info) bool) error {
	var (
		walkErr error
		tested  = make(map[string]struct{})
	)

	yield := func(c Candidate) bool {
		if err := ctx.Err(); err != nil {
			walkErr = fmt.Errorf("discovery canceled: %w", err)
			return false
		}

		path := c.Path
		if resolved, isShim := resolveManagedShim(path, s.env, s.cwd); isShim {
			if resolved == "" {
				return true
			}
			path = resolved
		}
		key, ok := s.dedupKey(path)
		if !ok {
			return true
		}
		if _, seen := tested[key]; seen {
			return true
		}
		tested[key] = struct{}{}

		info, err := s.prober.FromExe(ctx, path)
		if err != nil {
			s.reportRejection(c, path, err)
			return true
		}
		if info.Satisfies(spec, c.ImplMustMatch) {
			return onMatch(info)
		}
		return true
	}

	for _, run := range providers {
		if !run(s, spec, yield) {
			break
		}
	}
	return walkErr
}

// dedupKey folds a candidate path into its identity key, following symlinks
// so shims and aliases of one binary verify only once.
func (s *session) dedupKey(path string) (string, bool) {
	abs, err := pathid.Absolutize(path)
	if err != nil {
		return "", false
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		resolved = abs
	}
	return pathid.ID(resolved), true
}

// reportRejection forwards a contained per-candidate failure to the sink.
func (s *session) reportRejection(c Candidate, path string, err error) {
	code := "probe_failed"
	severity := SeverityError
	if errors.Is(err, pyinfo.ErrNotFound) {
		code = "candidate_not_found"
		severity = SeverityWarning
	}
	s.sink.Report(Diagnostic{
		Severity: severity,
		Code:     code,
		Message:  fmt.Sprintf("skipping %s candidate", c.Provider),
		Path:     path,
		Cause:    err,
	})
}

// resolveManagedShim maps a candidate inside any manager's shim directory to
// the real interpreter, so the shim wrapper itself is never executed. The
// second result reports whether the candidate was a shim at all; a shim that
// fails to resolve comes back ("", true).
func resolveManagedShim(path string, env []string, cwd string) (string, bool) {
	for _, m := range Managers {
		if m.InShims(path, env) {
			return ResolveShim(m, path, env, cwd), true
		}
	}
	return "", false
}
