package cmd

import (
	"context"
	"errors"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/playat/playat/cmd/common"
	"github.com/playat/playat/internal/job"
	"github.com/playat/playat/internal/osched"
	"github.com/playat/playat/internal/playback"
	"github.com/playat/playat/internal/timespec"
	"github.com/playat/playat/pkg/media"
)

func TestScheduleNowPlaysOnActiveDevice(t *testing.T) {
	te := setupEnv(t)
	var err error
	stdout, _ := captureOutput(func() {
		err = run("--now", trackURI)
	})
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if !strings.Contains(stdout, "Playback started") {
		t.Fatalf("unexpected output: %q", stdout)
	}
	calls := te.svc.calls()
	if len(calls) != 1 || calls[0] != "d1 "+trackURI {
		t.Fatalf("unexpected play calls: %v", calls)
	}
}

func TestScheduleDeviceFlagAndConfig(t *testing.T) {
	te := setupEnv(t)
	te.env.settings.Device = "desk"
	var err error
	captureOutput(func() {
		err = run("-n", "--type", "album", "1DFixLWuPkv3KT3TnV35m3")
	})
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	captureOutput(func() {
		err = run("--now", "--device", "kitchen", trackURI)
	})
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	calls := te.svc.calls()
	want := []string{"d2 spotify:album:1DFixLWuPkv3KT3TnV35m3", "d1 " + trackURI}
	if strings.Join(calls, ",") != strings.Join(want, ",") {
		t.Fatalf("expected %v, got %v", want, calls)
	}
}

func TestScheduleUsageErrors(t *testing.T) {
	setupEnv(t)
	for _, args := range [][]string{
		{"--now"},
		{"--now", trackURI, "extra"},
	} {
		var err error
		_, stderr := captureOutput(func() {
			err = run(args...)
		})
		if !errors.Is(err, common.ErrReported) {
			t.Fatalf("%v: expected ErrReported, got %v", args, err)
		}
		if !strings.Contains(stderr, "playat:") {
			t.Fatalf("%v: expected error on stderr, got %q", args, stderr)
		}
	}
}

func TestScheduleResolveErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want error
	}{
		{"bad type", []string{"--now", "--type", "episode", trackURI}, media.ErrInvalidMediaReference},
		{"invalid media", []string{"--now", "not a link"}, media.ErrInvalidMediaReference},
		{"strict mismatch", []string{"--now", "--strict", "--type", "album", trackURI}, media.ErrAmbiguousMediaKind},
		{"no time", []string{trackURI}, timespec.ErrMissingTimeSpecification},
		{"at and time", []string{"--at", "2030-01-02T07:30", "--time", "07:30", trackURI}, timespec.ErrConflictingTimeInputs},
		{"bad clock", []string{"--time", "25:00", trackURI}, timespec.ErrInvalidClock},
		{"past", []string{"--at", "2001-01-01T07:30", trackURI}, timespec.ErrTimestampInPast},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			te := setupEnv(t)
			var err error
			captureOutput(func() {
				err = run(tt.args...)
			})
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			var ae *common.ActionError
			if !errors.As(err, &ae) || ae.Cmd != "schedule" {
				t.Fatalf("expected a schedule ActionError, got %T", err)
			}
			if len(te.svc.calls()) != 0 {
				t.Fatal("nothing should have been played")
			}
		})
	}
}

func TestSchedulePlaybackFailure(t *testing.T) {
	te := setupEnv(t)
	te.svc.devices = nil
	var err error
	captureOutput(func() {
		err = run("--now", trackURI)
	})
	if !errors.Is(err, playback.ErrNoDevices) {
		t.Fatalf("expected ErrNoDevices, got %v", err)
	}
}

func TestScheduleWaitInterrupted(t *testing.T) {
	te := setupEnv(t)
	old := interruptContext
	interruptContext = func() (context.Context, context.CancelFunc) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		return ctx, cancel
	}
	defer func() { interruptContext = old }()

	var err error
	stdout, _ := captureOutput(func() {
		err = run("--at", atIn(2*time.Hour), trackURI)
	})
	if !errors.Is(err, ErrInterrupted) {
		t.Fatalf("expected ErrInterrupted, got %v", err)
	}
	if !strings.Contains(stdout, "Aborted by user.") {
		t.Fatalf("unexpected output: %q", stdout)
	}
	if len(te.svc.calls()) != 0 {
		t.Fatal("interrupted wait must not play")
	}
}

func TestScheduleSystemRegistersJob(t *testing.T) {
	if !(osched.Platforms{}).Supports(runtime.GOOS) {
		t.Skipf("no OS scheduler on %s", runtime.GOOS)
	}
	te := setupEnv(t)
	var err error
	stdout, _ := captureOutput(func() {
		err = run("-s", "--at", atIn(2*time.Hour), "--device", "Desk", trackURI)
	})
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if !strings.Contains(stdout, "Scheduled at job 1") {
		t.Fatalf("unexpected output: %q", stdout)
	}
	if len(te.svc.calls()) != 0 {
		t.Fatal("OS-scheduled jobs must not play now")
	}
	if len(te.backend.tasks) != 1 {
		t.Fatalf("expected one registered task, got %d", len(te.backend.tasks))
	}
	inv := te.backend.tasks[0].Invocation
	if inv.Exe != "/usr/local/bin/playat" {
		t.Fatalf("unexpected exe %q", inv.Exe)
	}
	args := strings.Join(inv.Args, " ")
	if !strings.Contains(args, fireCommand) || !strings.Contains(args, "--device Desk") {
		t.Fatalf("unexpected fire args %q", args)
	}
	rec, err := te.store.Get(context.Background(), "1")
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if rec.Status != job.StatusPending || rec.Spec.Device != "Desk" {
		t.Fatalf("unexpected record %+v", rec)
	}
}

func TestScheduleSystemRegisterFailure(t *testing.T) {
	if !(osched.Platforms{}).Supports(runtime.GOOS) {
		t.Skipf("no OS scheduler on %s", runtime.GOOS)
	}
	te := setupEnv(t)
	te.backend.registerErr = osched.ErrRegistrationFailed
	var err error
	captureOutput(func() {
		err = run("--system-schedule", "--at", atIn(2*time.Hour), trackURI)
	})
	if !errors.Is(err, osched.ErrRegistrationFailed) {
		t.Fatalf("expected ErrRegistrationFailed, got %v", err)
	}
	all, _ := te.store.All(context.Background())
	if len(all) != 0 {
		t.Fatalf("failed registration left %d records", len(all))
	}
}
