// SPDX-License-Identifier: MPL-2.0

//go:build !windows

package discovery

import "pydiscover/pkg/pyspec"

// registryProvider is empty off Windows; PEP 514 registrations only exist in
// the Windows registry.
func registryProvider(*session, *pyspec.Spec, yieldFunc) bool {
	return true
}
