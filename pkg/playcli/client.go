// Package playcli is the client side of the playat control socket. The
// CLI uses it to reach a running `playat serve` so that job listing and
// cancellation go through the process that owns the registry.
package playcli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"time"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/channel"
	"github.com/playat/playat/common"
	"github.com/playat/playat/internal/job"
)

// ErrNotRunning is returned by NewClient when nothing listens on the
// control socket.
var ErrNotRunning = errors.New("playat server is not running")

// DialTimeout bounds how long NewClient waits for the socket.
const DialTimeout = 2 * time.Second

// Options configures a Client.
type Options struct {
	// OnJob is called for every job push notification (job.created,
	// job.cancelled, job.updated).
	OnJob func(event string, rec job.Record)
}

type Client struct {
	conn net.Conn
	rpc  *jrpc2.Client
}

// NewClient connects to the control socket of a running server.
func NewClient(opts *Options) (*Client, error) {
	path := common.ControlSocketPath()
	debugLog("connecting to %s", path)
	conn, err := dialFunc(path, DialTimeout)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotRunning, err)
	}
	return NewClientWithConn(conn, opts), nil
}

// NewClientWithConn runs the JSON-RPC client over an established
// connection.
func NewClientWithConn(conn net.Conn, opts *Options) *Client {
	var copts *jrpc2.ClientOptions
	if opts != nil && opts.OnJob != nil {
		onJob := opts.OnJob
		copts = &jrpc2.ClientOptions{
			OnNotify: func(req *jrpc2.Request) {
				var p common.JobResponse
				if err := req.UnmarshalParams(&p); err != nil {
					debugLog("bad %s push: %v", req.Method(), err)
					return
				}
				onJob(req.Method(), p.Job)
			},
		}
	}
	return &Client{
		conn: conn,
		rpc:  jrpc2.NewClient(channel.Line(conn, conn), copts),
	}
}

// IsRunning reports whether a server answers on the control socket.
func IsRunning() bool {
	conn, err := dialFunc(common.ControlSocketPath(), 200*time.Millisecond)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

func (c *Client) Close() error {
	return c.rpc.Close()
}

func call[T any](ctx context.Context, c *Client, method string, params any) (*T, error) {
	var out T
	if err := c.rpc.CallResult(ctx, method, params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Code returns the JSON-RPC error code carried by err, or 0.
func Code(err error) int {
	var je *jrpc2.Error
	if errors.As(err, &je) {
		return int(je.Code)
	}
	return 0
}

func debugLog(format string, args ...any) {
	if os.Getenv(common.DebugEnv) == "1" {
		log.Printf(format, args...)
	}
}
