// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"context"

	"pydiscover/internal/issue"
	"pydiscover/pkg/pyinfo"
	"pydiscover/pkg/pyspec"
)

// List verifies every interpreter the provider chain can see for the given
// spec ("python" lists all implementations) and returns them in provider
// order, deduplicated. Unverifiable candidates are reported to the sink and
// skipped, like during discovery.
func List(ctx context.Context, rawSpec string, opts Options) ([]*pyinfo.Info, error) {
	spec, err := pyspec.FromString(rawSpec)
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("parse interpreter spec").
			WithResource(rawSpec).
			WithSuggestion("Use a structured token such as python3.12 or pypy3.9").
			Wrap(err).
			BuildError()
	}

	s, err := newSession(opts)
	if err != nil {
		return nil, err
	}

	var found []*pyinfo.Info
	err = s.walk(ctx, spec, func(info *pyinfo.Info) bool {
		found = append(found, info)
		return true
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}
