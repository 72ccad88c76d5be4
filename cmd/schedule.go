package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/playat/playat/cmd/common"
	pcommon "github.com/playat/playat/common"
	"github.com/playat/playat/internal/dispatch"
	"github.com/playat/playat/internal/job"
	"github.com/playat/playat/internal/osched"
	"github.com/playat/playat/internal/playback"
	"github.com/playat/playat/internal/timespec"
	"github.com/playat/playat/internal/waiter"
	"github.com/playat/playat/pkg/media"
	"github.com/playat/playat/pkg/playcli"
	"github.com/urfave/cli"
)

var (
	playNow        bool
	clockTime      string
	clockDate      string
	atTimestamp    string
	deviceName     string
	mediaType      string
	strictType     bool
	systemSchedule bool
	listDevices    bool

	scheduleFlags = []cli.Flag{
		cli.BoolFlag{
			Name:        "now, n",
			Usage:       "start playback immediately",
			Destination: &playNow,
		},
		cli.StringFlag{
			Name:        "time, t",
			Usage:       "clock time HH:MM or HH:MM:SS; without --date the next occurrence",
			Destination: &clockTime,
		},
		cli.StringFlag{
			Name:        "date",
			Usage:       "date YYYY-MM-DD to combine with --time",
			Destination: &clockDate,
		},
		cli.StringFlag{
			Name:        "at",
			Usage:       "absolute local timestamp, e.g. 2030-01-02T07:30",
			Destination: &atTimestamp,
		},
		cli.StringFlag{
			Name:        "device, d",
			Usage:       "Spotify Connect device name (default: active device, else the first one)",
			EnvVar:      "PLAYAT_DEVICE",
			Destination: &deviceName,
		},
		cli.StringFlag{
			Name:        "type",
			Usage:       "media kind for bare IDs: track, album, playlist or artist",
			Destination: &mediaType,
		},
		cli.BoolFlag{
			Name:        "strict",
			Usage:       "fail when --type disagrees with the kind in a URI or link",
			Destination: &strictType,
		},
		cli.BoolFlag{
			Name:        "system-schedule, s",
			Usage:       "hand the job to the OS scheduler and exit instead of waiting",
			Destination: &systemSchedule,
		},
		cli.BoolFlag{
			Name:        "list-devices",
			Usage:       "list available devices and exit",
			Destination: &listDevices,
		},
	}
)

// interruptContext is cancelled by SIGINT or SIGTERM.
var interruptContext = func() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

var now = time.Now

func schedule(ctx *cli.Context) error {
	if listDevices {
		return devices(ctx)
	}
	switch ctx.NArg() {
	case 0:
		return common.PrintErrWithHelp(ctx, errors.New("a media argument is required"))
	case 1:
	default:
		return common.PrintErrWithHelp(ctx, fmt.Errorf("unexpected arguments: %v", ctx.Args().Tail()))
	}

	var kind media.Kind
	if mediaType != "" {
		k, err := media.ParseKind(mediaType)
		if err != nil {
			return common.RuntimeErr("schedule", "type", err)
		}
		kind = k
	}

	env, err := loadEnv()
	if err != nil {
		return common.RuntimeErr("schedule", "config", err)
	}
	device := deviceName
	if device == "" {
		device = env.settings.Device
	}

	spec, err := job.NewSpec(now(), job.Request{
		Media:  ctx.Args().First(),
		Kind:   kind,
		Strict: strictType,
		Device: device,
		Time: timespec.Input{
			Clock: clockTime,
			Date:  clockDate,
			At:    atTimestamp,
			Now:   playNow,
		},
	})
	if err != nil {
		return common.RuntimeErr("schedule", "resolve", err)
	}
	mode, err := job.Select(spec, systemSchedule, runtime.GOOS, osched.Platforms{})
	if err != nil {
		return common.RuntimeErr("schedule", "select", err)
	}

	sigCtx, stop := interruptContext()
	defer stop()

	if mode == job.ModeOSScheduled {
		return scheduleWithOS(sigCtx, env, spec)
	}
	return playInProcess(sigCtx, env, spec, mode)
}

func playInProcess(ctx context.Context, env *runtimeEnv, spec job.Spec, mode job.Mode) error {
	fmt.Printf("Scheduling playback for %s.\n", spec.Deadline.Format("2006-01-02 15:04:05"))
	w := waiter.New(nil)
	var bar *common.Countdown
	if mode == job.ModeWait {
		if total := time.Until(spec.Deadline); total > time.Second {
			bar = common.NewCountdown(os.Stderr, "Waiting", total)
			w.Tick = bar.Tick
		}
	}
	d := dispatch.New(playback.NewInvoker(newService(env)), w, nil, env.log)
	_, err := d.Run(ctx, spec, mode)
	if bar != nil {
		if ctx.Err() != nil {
			bar.Abort()
		} else {
			bar.Done()
		}
	}
	if ctx.Err() != nil {
		fmt.Println("Aborted by user.")
		return ErrInterrupted
	}
	if err != nil {
		return common.RuntimeErr("schedule", "play", err)
	}
	fmt.Println("Playback started. Enjoy!")
	return nil
}

// scheduleWithOS goes through a running server so that its peers see the
// new job; otherwise it registers the job directly.
func scheduleWithOS(ctx context.Context, env *runtimeEnv, spec job.Spec) error {
	var (
		rec *job.Record
		err error
	)
	if playcli.IsRunning() {
		rec, err = scheduleViaServer(ctx, spec)
	} else {
		rec, err = scheduleDirect(ctx, env, spec)
	}
	if err != nil {
		if rec != nil {
			fmt.Fprintf(os.Stderr, "OS job %s exists but was not recorded; remove it by hand if unwanted.\n", rec.ID)
		}
		return common.RuntimeErr("schedule", "register", err)
	}
	fmt.Printf("Scheduled %s job %s: %s on %s at %s.\n",
		rec.Backend, rec.ID, spec.Media.URI(), spec.DeviceLabel(), spec.Deadline.Format("2006-01-02 15:04:05"))
	return nil
}

func scheduleViaServer(ctx context.Context, spec job.Spec) (*job.Record, error) {
	client, err := playcli.NewClient(nil)
	if err != nil {
		return nil, err
	}
	defer client.Close()
	client.CheckVersionMismatch(ctx, os.Stderr, currentBuild.Version)
	return client.CreateJob(ctx, pcommon.CreateJobParams{
		Media:  spec.Media.URI(),
		Device: spec.Device,
		At:     spec.Deadline.Format("2006-01-02T15:04:05"),
	})
}

func scheduleDirect(ctx context.Context, env *runtimeEnv, spec job.Spec) (*job.Record, error) {
	backend, err := newBackend(env)
	if err != nil {
		return nil, err
	}
	reg, err := openRegistry(ctx, env, backend)
	if err != nil {
		return nil, err
	}
	defer reg.Close()
	compiler, err := env.compiler(reg, backend)
	if err != nil {
		return nil, err
	}
	return dispatch.New(nil, nil, compiler, env.log).Run(ctx, spec, job.ModeOSScheduled)
}
