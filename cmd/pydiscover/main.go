// SPDX-License-Identifier: MPL-2.0

// Command pydiscover locates Python interpreters matching a requirement and
// reports structured metadata about them.
package main

func main() {
	Execute()
}
