//go:build windows

package playcli

import (
	"context"
	"net"
	"time"

	"github.com/Microsoft/go-winio"
)

var dialFunc = func(path string, timeout time.Duration) (net.Conn, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return winio.DialPipeContext(ctx, path)
}
