package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/playat/playat/common"
	"github.com/playat/playat/internal/dispatch"
	"github.com/playat/playat/internal/job"
	"github.com/playat/playat/internal/osched"
	"github.com/playat/playat/internal/playback"
	"github.com/playat/playat/internal/registry"
	"github.com/playat/playat/pkg/logger"
	"github.com/playat/playat/pkg/media"
)

const testSecret = "test-rpc-secret"

// fakeBackend registers jobs in memory.
type fakeBackend struct {
	mu        sync.Mutex
	next      int
	pending   map[string]bool
	cancelErr error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{pending: make(map[string]bool)}
}

func (b *fakeBackend) Name() string     { return "at" }
func (b *fakeBackend) Available() error { return nil }

func (b *fakeBackend) Register(context.Context, osched.Task) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.next++
	id := fmt.Sprint(b.next)
	b.pending[id] = true
	return id, nil
}

func (b *fakeBackend) Cancel(_ context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cancelErr != nil {
		return b.cancelErr
	}
	delete(b.pending, id)
	return nil
}

func (b *fakeBackend) Pending(context.Context) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var ids []string
	for id := range b.pending {
		ids = append(ids, id)
	}
	return ids, nil
}

// fire drops id from the queue as if the OS ran it.
func (b *fakeBackend) fire(id string) {
	b.mu.Lock()
	delete(b.pending, id)
	b.mu.Unlock()
}

type fakeDevices struct {
	devices []playback.Device
	err     error
}

func (f fakeDevices) Devices(context.Context) ([]playback.Device, error) {
	return append([]playback.Device(nil), f.devices...), f.err
}

type fixedPlatforms struct{ ok bool }

func (p fixedPlatforms) Supports(string) bool { return p.ok }

type fixture struct {
	backend  *fakeBackend
	registry *registry.Registry
	jobs     *JobService
	rpc      *RPCServer
	web      *WebServer
	now      time.Time
}

var testNow = time.Date(2030, 1, 1, 8, 0, 0, 0, time.Local)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	b := newFakeBackend()
	reg := registry.New(registry.NewMemoryStore(), logger.NewNopLogger(), b)
	compiler := osched.NewCompiler(b, reg, osched.Environment{Exe: "/usr/bin/playat"}, nil)
	jobs := &JobService{
		Registry:   reg,
		Dispatcher: dispatch.New(nil, nil, compiler, nil),
		DeviceLister: fakeDevices{devices: []playback.Device{
			{ID: "2", Name: "kitchen", Type: "Speaker"},
			{ID: "1", Name: "Bedroom", Type: "Computer", IsActive: true},
		}},
		Platform: "linux",
		Backends: fixedPlatforms{ok: true},
		Now:      func() time.Time { return testNow },
	}
	rpc := NewRPCServer(&RPCConfig{Secret: testSecret, Version: "1.0.0", Commit: "abc123", BuildType: "release"}, jobs, nil)
	reg.SetObserver(rpc.Notifier().Observe)
	t.Cleanup(rpc.Close)
	return &fixture{
		backend:  b,
		registry: reg,
		jobs:     jobs,
		rpc:      rpc,
		web:      NewWebServer(nil, jobs, rpc, WebConfig{}),
		now:      testNow,
	}
}

const trackID = "4uLU6hMCjMI75M1A2tKUQC"

var trackRef = media.Ref{Kind: media.KindTrack, ID: trackID}

// rpcCall sends a JSON-RPC request through h and returns the parsed response.
func rpcCall(t *testing.T, h http.Handler, method string, params any, token string) (int, map[string]any) {
	t.Helper()
	body := map[string]any{"jsonrpc": "2.0", "method": method, "id": 1}
	if params != nil {
		body["params"] = params
	}
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/jsonrpc", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	resp := rr.Result()
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	var out map[string]any
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			t.Fatalf("unmarshal response: %v (body: %s)", err, raw)
		}
	}
	return rr.Code, out
}

func errorCode(t *testing.T, resp map[string]any) int {
	t.Helper()
	e, ok := resp["error"].(map[string]any)
	if !ok {
		t.Fatalf("expected error object, got %v", resp)
	}
	return int(e["code"].(float64))
}

func mustRequest(t *testing.T, p common.CreateJobParams) job.Request {
	t.Helper()
	req, err := p.Request()
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	return req
}

func paramsAt(clock string) common.CreateJobParams {
	return common.CreateJobParams{Media: trackID, Time: clock}
}
