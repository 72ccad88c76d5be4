//go:build !windows

package playcli

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/channel"
	"github.com/playat/playat/common"
)

func TestNewClientUnixSocket(t *testing.T) {
	dir, err := os.MkdirTemp("/tmp", "pat")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	path := filepath.Join(dir, "ctl.sock")
	t.Setenv(common.SocketPathEnv, path)

	ln, err := net.Listen("unix", path)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				srv := jrpc2.NewServer(testMethods(), nil).Start(channel.Line(conn, conn))
				_ = srv.Wait()
			}()
		}
	}()

	if !IsRunning() {
		t.Fatal("expected IsRunning to see the listener")
	}
	c, err := NewClient(nil)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer c.Close()
	v, err := c.Version(context.Background())
	if err != nil || v.Version != "1.2.3" {
		t.Fatalf("Version: %+v, %v", v, err)
	}
}
