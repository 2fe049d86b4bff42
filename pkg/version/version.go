package version

import (
	_ "embed"
)

//go:embed VERSION
var Version string

// Get returns the relay version baked into the binary.
func Get() string {
	return Version
}
