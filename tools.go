//go:build tools
// +build tools

// Package tools pins the code generators run by `go generate` (mockgen)
// so they are tracked in go.mod.
package dot_catcher

import (
	_ "go.uber.org/mock/mockgen"
)
