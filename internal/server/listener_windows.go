//go:build windows

package server

import (
	"fmt"
	"net"

	"github.com/Microsoft/go-winio"
)

// pipeSecurityDescriptor restricts pipe access to SYSTEM, Administrators
// and the creator owner (the user running `playat serve`).
const pipeSecurityDescriptor = "D:(A;;GA;;;SY)(A;;GA;;;BA)(A;;GA;;;CO)"

// createListener listens on the named pipe at path.
func createListener(path string) (net.Listener, error) {
	l, err := winio.ListenPipe(path, &winio.PipeConfig{
		SecurityDescriptor: pipeSecurityDescriptor,
	})
	if err != nil {
		return nil, fmt.Errorf("error listening on %s: %w", path, err)
	}
	return l, nil
}

// cleanupSocket is a no-op: the pipe disappears with its last handle.
func cleanupSocket(string) error {
	return nil
}
