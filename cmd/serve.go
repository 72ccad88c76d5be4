package cmd

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/playat/playat/cmd/common"
	pcommon "github.com/playat/playat/common"
	"github.com/playat/playat/internal/dispatch"
	"github.com/playat/playat/internal/osched"
	"github.com/playat/playat/internal/registry"
	"github.com/playat/playat/internal/server"
	"github.com/playat/playat/pkg/logger"
	"github.com/urfave/cli"
)

// reconcileInterval is how often serve refreshes pending jobs so that
// the job table and WebSocket peers see fired jobs without a manual
// reconcile.
const reconcileInterval = time.Minute

var (
	servePort      int
	serveListenAll bool
	serveJSONLogs  bool

	serveFlags = []cli.Flag{
		cli.IntFlag{
			Name:        "port, p",
			Usage:       "web port (default: web.port from config.yaml, else 5000)",
			EnvVar:      pcommon.PortEnv,
			Destination: &servePort,
		},
		cli.BoolFlag{
			Name:        "listen-all",
			Usage:       "listen on all interfaces instead of 127.0.0.1",
			Destination: &serveListenAll,
		},
		cli.BoolFlag{
			Name:        "json-logs",
			Usage:       "write JSON log lines instead of console output",
			Destination: &serveJSONLogs,
		},
	}
)

var runServer = func(ctx context.Context, srv *server.Server) error {
	return srv.Run(ctx)
}

func serve(ctx *cli.Context) error {
	env, err := loadEnv()
	if err != nil {
		return common.RuntimeErr("serve", "config", err)
	}
	if servePort != 0 {
		env.settings.Port = servePort
	}
	if serveListenAll {
		env.settings.ListenAll = true
	}

	l := logger.NewServerLogger(os.Stderr, !serveJSONLogs, "serve")
	defer l.Close()
	env.log = l

	if err := writePidFile(env.settings.Dir); err != nil {
		return common.RuntimeErr("serve", "pidfile", err)
	}
	defer removePidFile(env.settings.Dir)

	sigCtx, stop := interruptContext()
	defer stop()

	backend, berr := newBackend(env)
	if berr != nil {
		l.Warning("no OS scheduler: %v", berr)
	}
	reg, err := openRegistry(sigCtx, env, backend)
	if err != nil {
		return common.RuntimeErr("serve", "registry", err)
	}
	defer reg.Close()

	var scheduler dispatch.Scheduler
	if backend != nil {
		c, err := env.compiler(reg, backend)
		if err != nil {
			return common.RuntimeErr("serve", "compiler", err)
		}
		scheduler = c
	}

	token, err := env.secrets.RPCToken()
	if err != nil {
		return common.RuntimeErr("serve", "rpc_token", err)
	}

	jobs := &server.JobService{
		Registry:      reg,
		Dispatcher:    dispatch.New(nil, nil, scheduler, l),
		DeviceLister:  newService(env),
		Platform:      runtime.GOOS,
		Backends:      osched.Platforms{},
		DefaultDevice: env.settings.Device,
	}
	srv := server.New(server.Config{
		Web: server.WebConfig{
			Port:      env.settings.Port,
			ListenAll: env.settings.ListenAll,
			MaxConns:  env.settings.MaxConns,
		},
		RPC: server.RPCConfig{
			Secret:    token,
			Version:   currentBuild.Version,
			Commit:    currentBuild.Commit,
			BuildType: currentBuild.BuildType,
		},
		ControlPath: pcommon.ControlSocketPath(),
	}, jobs, reg, l)

	if env.settings.ListenAll {
		l.Warning("listening on all interfaces: the HTML form is not authenticated")
	}
	fmt.Fprintln(os.Stderr, `JSON-RPC requires "Authorization: Bearer <token>"; run "playat token show".`)

	loopCtx, cancelLoop := context.WithCancel(sigCtx)
	defer cancelLoop()
	go reconcileLoop(loopCtx, reg, l)
	if err := runServer(sigCtx, srv); err != nil {
		return common.RuntimeErr("serve", "run", err)
	}
	l.Info("server stopped")
	return nil
}

func reconcileLoop(ctx context.Context, reg *registry.Registry, l logger.Logger) {
	t := time.NewTicker(reconcileInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			changed, err := reg.Reconcile(ctx)
			if err != nil {
				l.Warning("reconcile: %v", err)
				continue
			}
			for _, rec := range changed {
				l.Info("job %s is now %s", rec.ID, rec.Status)
			}
		}
	}
}
