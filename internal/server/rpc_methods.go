package server

import (
	"context"
	"strings"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/channel"
	"github.com/creachadair/jrpc2/handler"
	"github.com/creachadair/jrpc2/jhttp"
	"github.com/playat/playat/common"
	"github.com/playat/playat/pkg/logger"
)

const codeInvalidParams = jrpc2.Code(-32602)

// RPCConfig holds configuration for the JSON-RPC endpoints.
type RPCConfig struct {
	Secret    string // Auth token (required; empty rejects every call)
	Version   string
	Commit    string
	BuildType string
}

// RPCServer owns the method table shared by the HTTP bridge, WebSocket
// peers and control-socket clients, plus the push notifier.
type RPCServer struct {
	bridge    jhttp.Bridge
	methods   handler.Map
	notifier  *RPCNotifier
	jobs      Jobs
	secret    string
	version   string
	commit    string
	buildType string
}

// NewRPCServer builds the method table and the HTTP bridge.
func NewRPCServer(cfg *RPCConfig, jobs Jobs, l logger.Logger) *RPCServer {
	rs := &RPCServer{
		notifier:  NewRPCNotifier(l),
		jobs:      jobs,
		secret:    cfg.Secret,
		version:   cfg.Version,
		commit:    cfg.Commit,
		buildType: cfg.BuildType,
	}
	rs.methods = handler.Map{
		common.MethodVersion:       handler.New(rs.systemGetVersion),
		common.MethodJobsCreate:    handler.New(rs.jobsCreate),
		common.MethodJobsList:      handler.New(rs.jobsList),
		common.MethodJobsCancel:    handler.New(rs.jobsCancel),
		common.MethodJobsReconcile: handler.New(rs.jobsReconcile),
		common.MethodDevicesList:   handler.New(rs.devicesList),
	}
	rs.bridge = jhttp.NewBridge(rs.methods, nil)
	return rs
}

// Notifier returns the push notifier for WebSocket and socket peers.
func (rs *RPCServer) Notifier() *RPCNotifier {
	return rs.notifier
}

// NewPeer starts a jrpc2 server for one persistent connection (WebSocket
// or control socket). It may receive push notifications.
func (rs *RPCServer) NewPeer() *jrpc2.Server {
	return jrpc2.NewServer(rs.methods, &jrpc2.ServerOptions{AllowPush: true})
}

func (rs *RPCServer) systemGetVersion(_ context.Context) (*common.VersionResponse, error) {
	return &common.VersionResponse{
		Version:   rs.version,
		Commit:    rs.commit,
		BuildType: rs.buildType,
	}, nil
}

func (rs *RPCServer) jobsCreate(ctx context.Context, p *common.CreateJobParams) (*common.JobResponse, error) {
	if strings.TrimSpace(p.Media) == "" {
		return nil, &jrpc2.Error{Code: codeInvalidParams, Message: "missing required param: media"}
	}
	req, err := p.Request()
	if err != nil {
		return nil, rpcError(err)
	}
	rec, err := rs.jobs.Create(ctx, req)
	if err != nil {
		return nil, rpcError(err)
	}
	return &common.JobResponse{Job: *rec}, nil
}

func (rs *RPCServer) jobsList(ctx context.Context) (*common.JobsResponse, error) {
	recs, err := rs.jobs.List(ctx)
	if err != nil {
		return nil, rpcError(err)
	}
	return &common.JobsResponse{Jobs: nonNil(recs)}, nil
}

func (rs *RPCServer) jobsCancel(ctx context.Context, p *common.JobIDParams) (*common.JobResponse, error) {
	if p.ID == "" {
		return nil, &jrpc2.Error{Code: codeInvalidParams, Message: "missing required param: id"}
	}
	rec, err := rs.jobs.Cancel(ctx, p.ID)
	if err != nil {
		return nil, rpcError(err)
	}
	return &common.JobResponse{Job: rec}, nil
}

// jobsReconcile returns the records whose status changed.
func (rs *RPCServer) jobsReconcile(ctx context.Context) (*common.JobsResponse, error) {
	recs, err := rs.jobs.Reconcile(ctx)
	if err != nil {
		return nil, rpcError(err)
	}
	return &common.JobsResponse{Jobs: nonNil(recs)}, nil
}

func (rs *RPCServer) devicesList(ctx context.Context) (*common.DevicesResponse, error) {
	devices, err := rs.jobs.Devices(ctx)
	if err != nil {
		return nil, rpcError(err)
	}
	return &common.DevicesResponse{Devices: nonNil(devices)}, nil
}

// Close shuts down the jrpc2 bridge, releasing internal goroutines.
func (rs *RPCServer) Close() {
	rs.bridge.Close()
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// serve runs a push-capable jrpc2 server on ch until the peer disconnects.
func (rs *RPCServer) serve(ch channel.Channel) {
	srv := rs.NewPeer().Start(ch)
	rs.notifier.Register(srv)
	_ = srv.Wait()
	rs.notifier.Unregister(srv)
}
