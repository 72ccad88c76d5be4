// Package common holds the help and error printing shared by the playat
// commands, and the countdown bar shown while waiting in-process.
package common

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/playat/playat/internal/waiter"
	"github.com/urfave/cli"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// VersionCmdStr is printed by the version command. Execute fills it in
// from the build arguments.
var VersionCmdStr string

// ErrReported is returned after a usage error has already been printed
// together with the help text.
var ErrReported = errors.New("error already reported")

var (
	showAppHelp     = cli.ShowAppHelp
	showCommandHelp = cli.ShowCommandHelp
)

// Countdown is a progress bar that fills up as a deadline approaches.
type Countdown struct {
	p     *mpb.Progress
	bar   *mpb.Bar
	total time.Duration
	left  atomic.Int64
}

// NewCountdown renders a bar for a wait of total on w. The remaining time
// is shown next to it as hh:mm:ss.
func NewCountdown(w io.Writer, label string, total time.Duration) *Countdown {
	c := &Countdown{total: total}
	c.left.Store(int64(total))
	c.p = mpb.New(mpb.WithOutput(w), mpb.WithWidth(40), mpb.WithRefreshRate(time.Second))
	barStyle := mpb.BarStyle().Lbound("╢").Filler("█").Tip("█").Padding("░").Rbound("╟")
	c.bar = c.p.New(int64(total/time.Second)+1,
		barStyle,
		mpb.PrependDecorators(
			decor.Name(label, decor.WC{W: len(label) + 1, C: decor.DindentRight}),
		),
		mpb.AppendDecorators(
			decor.OnComplete(decor.Any(func(decor.Statistics) string {
				return waiter.FormatRemaining(time.Duration(c.left.Load()))
			}), "Starting"),
		),
	)
	return c
}

// Tick moves the bar to reflect remaining. It matches waiter.Waiter.Tick.
func (c *Countdown) Tick(remaining time.Duration) {
	if remaining > c.total {
		remaining = c.total
	}
	c.left.Store(int64(remaining))
	c.bar.SetCurrent(int64((c.total - remaining) / time.Second))
}

// Done completes the bar and waits for it to render.
func (c *Countdown) Done() {
	c.left.Store(0)
	c.bar.SetTotal(-1, true)
	c.p.Wait()
}

// Abort removes the bar without completing it.
func (c *Countdown) Abort() {
	c.bar.Abort(true)
	c.p.Wait()
}

// Help shows the application help, or the help of the named command.
func Help(ctx *cli.Context) error {
	arg := ctx.Args().First()
	if arg == "" || arg == "help" {
		fmt.Printf("%s %s\n", ctx.App.Name, ctx.App.Version)
		return showAppHelp(ctx)
	}
	err := showCommandHelp(ctx, arg)
	if err != nil {
		return PrintErrWithHelp(ctx, err)
	}
	return nil
}

func GetVersion(ctx *cli.Context) error {
	fmt.Println(VersionCmdStr)
	return nil
}

// RuntimeErr labels err with the command and the step that failed. The
// result is returned to main, which prints it once and exits 1.
func RuntimeErr(cmd, action string, err error) error {
	if err == nil {
		return nil
	}
	return &ActionError{Cmd: cmd, Action: action, Err: err}
}

// ActionError is an error from a command step.
type ActionError struct {
	Cmd    string
	Action string
	Err    error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("%s[%s]: %s", e.Cmd, e.Action, e.Err.Error())
}

func (e *ActionError) Unwrap() error { return e.Err }

// PrintErrWithCmdHelp prints err followed by the current command's help.
func PrintErrWithCmdHelp(ctx *cli.Context, err error) error {
	return printErrWithCallback(
		ctx,
		err,
		func() {
			err := showCommandHelp(ctx, ctx.Command.Name)
			if err != nil {
				fmt.Println(err.Error())
			}
		},
	)
}

// PrintErrWithHelp prints err followed by the application help.
func PrintErrWithHelp(ctx *cli.Context, err error) error {
	return printErrWithCallback(
		ctx,
		err,
		func() {
			if err := showAppHelp(ctx); err != nil {
				fmt.Println(err.Error())
			}
		},
	)
}

func printErrWithCallback(ctx *cli.Context, err error, callback func()) error {
	if err == nil {
		return nil
	}
	estr := strings.ToLower(err.Error())
	if estr == "flag: help requested" {
		return Help(ctx)
	}
	fmt.Fprintf(os.Stderr, "%s: %s\n\n", ctx.App.HelpName, err.Error())
	callback()
	return ErrReported
}

// UsageErrorCallback is the OnUsageError hook of the app and its commands.
func UsageErrorCallback(ctx *cli.Context, err error, _ bool) error {
	if ctx.Command.Name != "" {
		return PrintErrWithCmdHelp(ctx, err)
	}
	return PrintErrWithHelp(ctx, err)
}
