// Package version reports the release version stamped into the binary.
package version

import (
	_ "embed"
	"strings"
)

// The VERSION file is the single source of truth for releases; tagging a
// release means bumping it.
//
//go:embed VERSION
var raw string

// Get returns the semantic version of this build.
func Get() string {
	return strings.TrimSpace(raw)
}
