//go:build !windows

package playcli

import (
	"net"
	"time"
)

var dialFunc = func(path string, timeout time.Duration) (net.Conn, error) {
	return net.DialTimeout("unix", path, timeout)
}
