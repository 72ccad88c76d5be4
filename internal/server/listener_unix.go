//go:build !windows

package server

import (
	"fmt"
	"net"
	"os"
)

// createListener listens on the unix socket at path, replacing a stale
// socket file left by a previous run. Only the owner may connect.
func createListener(path string) (net.Listener, error) {
	_ = os.Remove(path)
	l, err := net.ListenUnix("unix", &net.UnixAddr{Name: path, Net: "unix"})
	if err != nil {
		return nil, fmt.Errorf("error listening on %s: %w", path, err)
	}
	if err := os.Chmod(path, 0o700); err != nil {
		_ = l.Close()
		return nil, err
	}
	return l, nil
}

// cleanupSocket removes the socket file; a missing file is not an error.
func cleanupSocket(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
