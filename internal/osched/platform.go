package osched

import (
	"fmt"
	"time"

	"github.com/playat/playat/internal/job"
	"github.com/spf13/afero"
)

// Options configures backend construction.
type Options struct {
	Fs      afero.Fs
	Dir     string
	Runner  Runner
	Timeout time.Duration
	// SchtasksDateLayout is the Go layout for schtasks /SD.
	SchtasksDateLayout string
}

func (o Options) withDefaults() Options {
	if o.Fs == nil {
		o.Fs = afero.NewOsFs()
	}
	if o.Runner == nil {
		o.Runner = ExecRunner{}
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultToolTimeout
	}
	return o
}

var platformBackend = map[string]string{
	"windows":   "schtasks",
	"linux":     "at",
	"darwin":    "at",
	"freebsd":   "at",
	"openbsd":   "at",
	"netbsd":    "at",
	"dragonfly": "at",
	"solaris":   "at",
	"illumos":   "at",
}

// Platforms answers job.BackendSet.
type Platforms struct{}

var _ job.BackendSet = Platforms{}

// Supports reports whether platform (a GOOS value) has a backend.
func (Platforms) Supports(platform string) bool {
	_, ok := platformBackend[platform]
	return ok
}

// ForPlatform returns the backend for platform. It is called once at
// startup with runtime.GOOS.
func ForPlatform(platform string, opts Options) (Backend, error) {
	name, ok := platformBackend[platform]
	if !ok {
		return nil, fmt.Errorf("%w: no OS scheduler backend for %q", job.ErrUnsupportedPlatform, platform)
	}
	return ByName(name, opts)
}

// ByName builds a backend by its Name().
func ByName(name string, opts Options) (Backend, error) {
	opts = opts.withDefaults()
	switch name {
	case "schtasks":
		return NewSchtasksBackend(opts.Fs, opts.Dir, opts.Runner, opts.Timeout, opts.SchtasksDateLayout), nil
	case "at":
		return NewAtBackend(opts.Runner, opts.Timeout), nil
	}
	return nil, fmt.Errorf("unknown scheduler backend %q", name)
}
