//go:build !windows

package common

import (
	"os"
	"path/filepath"
)

// ControlSocketPath returns the unix socket `playat serve` listens on.
func ControlSocketPath() string {
	if path := os.Getenv(SocketPathEnv); path != "" {
		return path
	}
	return filepath.Join(os.TempDir(), "playat.sock")
}
