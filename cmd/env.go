package cmd

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/playat/playat/common"
	"github.com/playat/playat/internal/config"
	"github.com/playat/playat/internal/osched"
	"github.com/playat/playat/internal/playback"
	"github.com/playat/playat/internal/registry"
	"github.com/playat/playat/internal/secret"
	"github.com/playat/playat/internal/spotify"
	"github.com/playat/playat/pkg/logger"
	"github.com/spf13/afero"
)

const apiTimeout = 15 * time.Second

// runtimeEnv is what every command loads first: settings, the secret
// store and a console logger.
type runtimeEnv struct {
	fs       afero.Fs
	settings *config.Settings
	secrets  *secret.Store
	log      logger.Logger
}

var loadEnv = func() (*runtimeEnv, error) {
	dir, err := config.Dir()
	if err != nil {
		return nil, err
	}
	fsys := afero.NewOsFs()
	settings, err := config.Load(fsys, dir)
	if err != nil {
		return nil, err
	}
	return &runtimeEnv{
		fs:       fsys,
		settings: settings,
		secrets:  secret.New(fsys, dir),
		log:      logger.NewStandardLogger(log.New(os.Stdout, "", 0)),
	}, nil
}

// newService returns the Spotify client playback goes through.
var newService = func(e *runtimeEnv) playback.Service {
	hc := &http.Client{Timeout: apiTimeout}
	return spotify.NewClient(e.settings.APIBase, hc, e.secrets.SpotifyToken)
}

var newBackend = func(e *runtimeEnv) (osched.Backend, error) {
	return osched.ForPlatform(runtime.GOOS, osched.Options{
		Fs:                 e.fs,
		Dir:                e.settings.JobsDir(),
		Timeout:            e.settings.ToolTimeout,
		SchtasksDateLayout: e.settings.SchtasksDateLayout,
	})
}

var executable = os.Executable

// openRegistry opens the job database. backend may be nil when the
// platform has no scheduler; cancel and reconcile then fail per job.
var openRegistry = func(ctx context.Context, e *runtimeEnv, backend osched.Backend) (*registry.Registry, error) {
	store, err := registry.OpenSQLite(ctx, filepath.Join(e.settings.Dir, registry.DBFileName))
	if err != nil {
		return nil, err
	}
	if backend == nil {
		return registry.New(store, e.log), nil
	}
	return registry.New(store, e.log, backend), nil
}

// compileEnv is carried into scheduled jobs so that the fire command sees
// the same config dir and token as the invocation that scheduled it.
func (e *runtimeEnv) compileEnv() (osched.Environment, error) {
	exe, err := executable()
	if err != nil {
		return osched.Environment{}, fmt.Errorf("locating playat binary: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	env := map[string]string{common.ConfigDirEnv: e.settings.Dir}
	if tok := os.Getenv(common.SpotifyTokenEnv); tok != "" {
		env[common.SpotifyTokenEnv] = tok
	}
	return osched.Environment{Exe: exe, Env: env, Activate: e.settings.Activate}, nil
}

// compiler wires the platform backend to the registry.
func (e *runtimeEnv) compiler(reg *registry.Registry, backend osched.Backend) (*osched.Compiler, error) {
	env, err := e.compileEnv()
	if err != nil {
		return nil, err
	}
	return osched.NewCompiler(backend, reg, env, e.log), nil
}
