package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/playat/playat/cmd/common"
	"github.com/playat/playat/internal/osched"
	"github.com/playat/playat/internal/playback"
	"github.com/playat/playat/internal/waiter"
	"github.com/playat/playat/pkg/logger"
	"github.com/playat/playat/pkg/media"
	"github.com/urfave/cli"
)

const fireCommand = osched.FireCommand

var (
	fireKind      string
	fireID        string
	fireDevice    string
	fireNotBefore string

	fireFlags = []cli.Flag{
		cli.StringFlag{Name: "kind", Destination: &fireKind},
		cli.StringFlag{Name: "id", Destination: &fireID},
		cli.StringFlag{Name: "device", Destination: &fireDevice},
		cli.StringFlag{Name: "not-before", Destination: &fireNotBefore},
	}
)

// newFireLogger writes to stderr, which at mails to the user and schtasks
// discards; the event log logger is added on Windows.
var newFireLogger = func() logger.Logger {
	return logger.NewServerLogger(os.Stderr, false, fireCommand)
}

// fire is what scheduled OS jobs run. The OS scheduler only has minute
// granularity, so the remaining seconds up to --not-before are waited out
// here before playback starts.
func fire(ctx *cli.Context) error {
	l := newFireLogger()
	defer l.Close()

	kind, err := media.ParseKind(fireKind)
	if err != nil {
		return common.RuntimeErr(fireCommand, "kind", err)
	}
	ref, err := media.Normalize(fireID, kind, true)
	if err != nil {
		return common.RuntimeErr(fireCommand, "media", err)
	}

	sigCtx, stop := interruptContext()
	defer stop()

	if fireNotBefore != "" {
		deadline, err := time.Parse(time.RFC3339, fireNotBefore)
		if err != nil {
			return common.RuntimeErr(fireCommand, "not-before", err)
		}
		if err := waiter.New(nil).Wait(sigCtx, deadline); err != nil {
			return ErrInterrupted
		}
	}

	env, err := loadEnv()
	if err != nil {
		l.Error("loading config: %v", err)
		return common.RuntimeErr(fireCommand, "config", err)
	}
	device := fireDevice
	if device == "" {
		device = env.settings.Device
	}
	label := device
	if label == "" {
		label = "default device"
	}
	if err := playback.NewInvoker(newService(env)).Play(sigCtx, device, ref); err != nil {
		l.Error("playback of %s on %s failed: %v", ref.URI(), label, err)
		return common.RuntimeErr(fireCommand, "play", err)
	}
	l.Info("started %s on %s", ref.URI(), label)
	fmt.Printf("Playback of %s started on %s.\n", ref.URI(), label)
	return nil
}
