// SPDX-License-Identifier: MPL-2.0

package pyinfo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"pydiscover/pkg/cache"
	"pydiscover/pkg/pathid"
	"pydiscover/pkg/pyspec"
)

// ErrNotFound marks candidates that do not exist or are not executable.
var ErrNotFound = errors.New("interpreter not found")

// CurrentEnvVar names the environment variable that designates the default
// interpreter probed by CurrentSystem. A Go process has no embedded Python,
// so "the interpreter running this code" is a configured path instead.
const CurrentEnvVar = "PYDISCOVER_PYTHON"

// Prober verifies candidate interpreters: it resolves them, consults the
// cache, and interrogates the binary on a miss. A Prober also memoizes
// results in-process so repeat candidates within one discovery session skip
// even cache I/O. The zero value probes with no cache, the process
// environment, and the default timeout.
type Prober struct {
	// Cache persists probe results; nil verifies every time and stores
	// nothing.
	Cache cache.Cache

	// Env is the environment given to probe subprocesses (before
	// sanitizing) and consulted for CurrentEnvVar; nil means the process
	// environment.
	Env []string

	// Timeout bounds each probe subprocess; zero means DefaultProbeTimeout.
	Timeout time.Duration

	// Logger receives debug and diagnostic events; nil discards them.
	Logger *log.Logger

	mu   sync.Mutex
	memo map[string]*Info
}

func (p *Prober) cacheOrNoop() cache.Cache {
	if p.Cache == nil {
		return cache.NoOp{}
	}
	return p.Cache
}

func (p *Prober) env() []string {
	if p.Env == nil {
		return os.Environ()
	}
	return p.Env
}

func (p *Prober) logger() *log.Logger {
	if p.Logger == nil {
		return log.New(io.Discard)
	}
	return p.Logger
}

// FromExe verifies one candidate path and returns its metadata.
//
// The pipeline: absolutize and reject missing or non-executable candidates
// (ErrNotFound); consult the in-process memo, then the cache under the
// entry's cross-process lock; on a miss interrogate the binary (one retry),
// normalize the payload, and store it under the still-held lock. Probe
// failures reject without caching (ErrProbeFailed).
func (p *Prober) FromExe(ctx context.Context, exe string) (*Info, error) {
	abs, err := pathid.Absolutize(exe)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNotFound, exe, err)
	}
	if !pathid.IsExecutable(abs) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, abs)
	}

	key := pathid.ID(abs)
	p.mu.Lock()
	if p.memo == nil {
		p.memo = make(map[string]*Info)
	}
	if hit, ok := p.memo[key]; ok {
		p.mu.Unlock()
		return hit, nil
	}
	p.mu.Unlock()

	stat, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNotFound, abs, err)
	}
	mtime, size := stat.ModTime().UnixNano(), stat.Size()

	var info *Info
	store := p.cacheOrNoop().EntryFor(abs)
	lockErr := store.Locked(func() error {
		if cached := p.readValid(store, abs, mtime, size); cached != nil {
			info = cached
			return nil
		}

		payload, stderr, probeErr := runProbe(ctx, abs, p.env(), p.Timeout)
		if probeErr != nil {
			p.logger().Debug("probe attempt failed, retrying", "exe", abs, "err", probeErr)
			payload, stderr, probeErr = runProbe(ctx, abs, p.env(), p.Timeout)
		}
		if stderr != "" {
			p.logger().Debug("probe stderr", "exe", abs, "stderr", strings.TrimSpace(stderr))
		}
		if probeErr != nil {
			return probeErr
		}

		info = normalize(payload, abs, mtime, size)
		doc, marshalErr := info.MarshalDocument()
		if marshalErr != nil {
			return marshalErr
		}
		if writeErr := store.Write(doc); writeErr != nil {
			// A write failure degrades to uncached operation for this entry.
			p.logger().Warn("cache write failed", "exe", abs, "err", writeErr)
		}
		return nil
	})
	if lockErr != nil {
		return nil, lockErr
	}

	p.mu.Lock()
	if p.memo == nil {
		p.memo = make(map[string]*Info)
	}
	p.memo[key] = info
	p.mu.Unlock()
	return info, nil
}

// CurrentSystem probes the configured default interpreter, the analogue of
// "the interpreter currently executing this code". Returns ErrNotFound when
// none is configured.
func (p *Prober) CurrentSystem(ctx context.Context) (*Info, error) {
	exe := envLookup(p.env(), CurrentEnvVar)
	if exe == "" {
		return nil, fmt.Errorf("%w: %s is not set", ErrNotFound, CurrentEnvVar)
	}
	return p.FromExe(ctx, exe)
}

// Clear drops the in-process memo and every cached document.
func (p *Prober) Clear() error {
	p.mu.Lock()
	p.memo = nil
	p.mu.Unlock()
	return p.cacheOrNoop().Clear()
}

// readValid returns the stored record when it is decodable and still
// describes the file on disk; anything else is removed under the held lock
// and reported as a miss.
func (p *Prober) readValid(store cache.ContentStore, abs string, mtime, size int64) *Info {
	data := store.Read()
	if data == nil {
		return nil
	}
	info, err := UnmarshalDocument(data)
	if err != nil {
		p.logger().Debug("dropping undecodable cache entry", "exe", abs, "err", err)
		store.Remove()
		return nil
	}
	if pathid.ID(info.Executable) != pathid.ID(abs) || info.MTime != mtime || info.Size != size {
		p.logger().Debug("dropping stale cache entry", "exe", abs)
		store.Remove()
		return nil
	}
	if info.SystemExecutable != "" && info.SystemExecutable != info.Executable {
		if _, err := os.Stat(info.SystemExecutable); err != nil {
			p.logger().Debug("dropping cache entry with vanished base interpreter", "exe", abs)
			store.Remove()
			return nil
		}
	}
	p.logger().Debug("cache hit", "exe", abs)
	return info
}

// normalize turns a probe payload into the canonical record: the invoked
// path wins over the self-reported one, machine names are folded to their
// canonical aliases, and the cache-validity fields are stamped.
func normalize(payload *probePayload, abs string, mtime, size int64) *Info {
	info := &Info{
		Executable:     abs,
		Implementation: payload.Implementation,
		VersionInfo:    payload.VersionInfo,
		Architecture:   payload.Architecture,
		Platform:       payload.Platform,
		Machine:        deriveMachine(payload),
		FreeThreaded:   payload.FreeThreaded,
		SysconfigVars:  payload.SysconfigVars,
		SysconfigPaths: payload.SysconfigPaths,
		MTime:          mtime,
		Size:           size,
	}
	if payload.SystemExecutable != nil {
		info.SystemExecutable = *payload.SystemExecutable
	}
	return info
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

// deriveMachine extracts the ISA from the sysconfig platform tag, falling
// back to the raw machine name for universal builds and a missing tag; the
// legacy win32 tag maps to x86.
func deriveMachine(payload *probePayload) string {
	plat := payload.SysconfigPlatform
	if plat == "" {
		return pyspec.NormalizeISA(payload.Machine)
	}
	if plat == "win32" {
		return "x86"
	}
	isa := plat
	if idx := strings.LastIndex(plat, "-"); idx >= 0 {
		isa = plat[idx+1:]
	}
	if isa == "universal2" {
		isa = payload.Machine
	}
	return pyspec.NormalizeISA(isa)
}
