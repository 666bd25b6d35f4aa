// Package resources holds files embedded into the binary.
package resources

import (
	_ "embed"
)

// DefaultConfig is the annotated default configuration file.
//
//go:embed config.yaml
var DefaultConfig []byte
