package osched

import (
	"context"
	"errors"
	"io"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/playat/playat/internal/job"
	"github.com/playat/playat/pkg/logger"
	"github.com/playat/playat/pkg/media"
	"github.com/spf13/afero"
)

type call struct {
	name  string
	args  []string
	stdin string
}

// fakeRunner answers tool calls from a script keyed by tool name.
type fakeRunner struct {
	mu      sync.Mutex
	calls   []call
	outputs map[string]string
	errs    map[string]error
	block   bool
}

func (f *fakeRunner) Run(ctx context.Context, stdin io.Reader, name string, args ...string) ([]byte, error) {
	var in string
	if stdin != nil {
		b, _ := io.ReadAll(stdin)
		in = string(b)
	}
	f.mu.Lock()
	f.calls = append(f.calls, call{name: name, args: args, stdin: in})
	out, err := f.outputs[name], f.errs[name]
	block := f.block
	f.mu.Unlock()
	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return []byte(out), err
}

type memRecorder struct {
	recs []job.Record
	err  error
}

func (m *memRecorder) Add(_ context.Context, rec job.Record) error {
	if m.err != nil {
		return m.err
	}
	m.recs = append(m.recs, rec)
	return nil
}

func withLookPath(t *testing.T, fn func(string) (string, error)) {
	t.Helper()
	orig := lookPath
	lookPath = fn
	t.Cleanup(func() { lookPath = orig })
}

func found(name string) (string, error) { return "/usr/bin/" + name, nil }

func testSpec() job.Spec {
	created := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	return job.Spec{
		Deadline:  time.Date(2024, 1, 2, 7, 30, 15, 0, time.UTC),
		Media:     media.Ref{Kind: media.KindAlbum, ID: "2C6Z7gsiF3sPXso19p7MqU"},
		Device:    "Kitchen Speaker",
		CreatedAt: created,
	}
}

func TestFireArgs(t *testing.T) {
	got := strings.Join(FireArgs(testSpec()), " ")
	want := "fire --kind album --id 2C6Z7gsiF3sPXso19p7MqU --not-before 2024-01-02T07:30:15Z --device Kitchen Speaker"
	if got != want {
		t.Errorf("got %q\nwant %q", got, want)
	}
	spec := testSpec()
	spec.Device = ""
	if strings.Contains(strings.Join(FireArgs(spec), " "), "--device") {
		t.Error("empty device must not be passed")
	}
}

func TestPOSIXScript(t *testing.T) {
	inv := Invocation{
		Exe:      "/opt/play at/playat",
		Args:     []string{"fire", "--device", "Bob's Phone"},
		Env:      map[string]string{"PLAYAT_CONFIG_DIR": "/home/u/.config/playat", "A": "1"},
		Activate: ". /opt/venv/bin/activate",
		Comment:  "line1\nline2",
	}
	s := inv.POSIXScript()
	for _, want := range []string{
		"#!/bin/sh\n",
		"# line1 line2\n",
		"export A=1\nexport PLAYAT_CONFIG_DIR=/home/u/.config/playat\n",
		". /opt/venv/bin/activate\n",
		`exec '/opt/play at/playat' fire --device 'Bob'"'"'s Phone'`,
	} {
		if !strings.Contains(s, want) {
			t.Errorf("script missing %q:\n%s", want, s)
		}
	}
}

func TestCmdScript(t *testing.T) {
	inv := Invocation{
		Exe:  `C:\Program Files\playat\playat.exe`,
		Args: []string{"fire", "--device", `Living "Room" 100%`},
		Env:  map[string]string{"PLAYAT_CONFIG_DIR": `C:\Users\u\AppData\Roaming\playat`},
	}
	s := inv.CmdScript()
	for _, want := range []string{
		"@echo off\r\n",
		`set "PLAYAT_CONFIG_DIR=C:\Users\u\AppData\Roaming\playat"` + "\r\n",
		`"C:\Program Files\playat\playat.exe" fire --device "Living ""Room"" 100%%"`,
	} {
		if !strings.Contains(s, want) {
			t.Errorf("script missing %q:\n%s", want, s)
		}
	}
}

func TestAtRegister(t *testing.T) {
	r := &fakeRunner{outputs: map[string]string{
		"at": "warning: commands will be executed using /bin/sh\njob 42 at Tue Jan  2 07:30:15 2024\n",
	}}
	b := NewAtBackend(r, time.Second)
	id, err := b.Register(context.Background(), Task{
		Deadline:   testSpec().Deadline,
		Invocation: Invocation{Exe: "/usr/bin/playat", Args: []string{"fire"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "42" {
		t.Errorf("expected id 42, got %q", id)
	}
	c := r.calls[0]
	if c.name != "at" || strings.Join(c.args, " ") != "-t 202401020730.15" {
		t.Errorf("unexpected call %+v", c)
	}
	if !strings.Contains(c.stdin, "exec /usr/bin/playat fire") {
		t.Errorf("script not passed on stdin: %q", c.stdin)
	}
}

func TestAtRegisterFailureCarriesDiagnostic(t *testing.T) {
	r := &fakeRunner{
		outputs: map[string]string{"at": "at: refusing to create job destined in the past"},
		errs:    map[string]error{"at": errors.New("exit status 1")},
	}
	_, err := NewAtBackend(r, time.Second).Register(context.Background(), Task{Deadline: time.Now()})
	if !errors.Is(err, ErrRegistrationFailed) {
		t.Fatalf("expected ErrRegistrationFailed, got %v", err)
	}
	if !strings.Contains(err.Error(), "refusing to create job") {
		t.Errorf("diagnostic text lost: %v", err)
	}
}

func TestAtRegisterTimeout(t *testing.T) {
	r := &fakeRunner{block: true}
	_, err := NewAtBackend(r, 10*time.Millisecond).Register(context.Background(), Task{Deadline: time.Now()})
	if !errors.Is(err, ErrSchedulerUnavailable) {
		t.Fatalf("expected ErrSchedulerUnavailable on timeout, got %v", err)
	}
}

func TestAtPendingAndCancel(t *testing.T) {
	r := &fakeRunner{outputs: map[string]string{
		"atq": "42\tTue Jan  2 07:30:00 2024 a user\n7\tWed Jan  3 09:00:00 2024 a user\n\n",
	}}
	b := NewAtBackend(r, time.Second)
	ids, err := b.Pending(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Join(ids, ",") != "42,7" {
		t.Errorf("unexpected ids %v", ids)
	}
	if err := b.Cancel(context.Background(), "42"); err != nil {
		t.Fatalf("unexpected cancel error: %v", err)
	}
	last := r.calls[len(r.calls)-1]
	if last.name != "atrm" || last.args[0] != "42" {
		t.Errorf("unexpected call %+v", last)
	}
}

func TestAtCancelFailure(t *testing.T) {
	r := &fakeRunner{
		outputs: map[string]string{"atrm": "Cannot find jobid 9"},
		errs:    map[string]error{"atrm": errors.New("exit status 1")},
	}
	err := NewAtBackend(r, time.Second).Cancel(context.Background(), "9")
	if !errors.Is(err, ErrCancellationFailed) {
		t.Fatalf("expected ErrCancellationFailed, got %v", err)
	}
}

func TestAtCancelTimeout(t *testing.T) {
	r := &fakeRunner{block: true}
	err := NewAtBackend(r, 10*time.Millisecond).Cancel(context.Background(), "9")
	if !errors.Is(err, ErrCancellationFailed) {
		t.Fatalf("expected ErrCancellationFailed on timeout, got %v", err)
	}
}

func TestMissingBinaryIsUnavailable(t *testing.T) {
	r := &fakeRunner{errs: map[string]error{"atq": &exec.Error{Name: "atq", Err: exec.ErrNotFound}}}
	_, err := NewAtBackend(r, time.Second).Pending(context.Background())
	if !errors.Is(err, ErrSchedulerUnavailable) {
		t.Fatalf("expected ErrSchedulerUnavailable, got %v", err)
	}
}

func TestAvailable(t *testing.T) {
	withLookPath(t, func(name string) (string, error) {
		if name == "atrm" {
			return "", exec.ErrNotFound
		}
		return found(name)
	})
	if err := NewAtBackend(&fakeRunner{}, time.Second).Available(); !errors.Is(err, ErrSchedulerUnavailable) {
		t.Errorf("expected ErrSchedulerUnavailable, got %v", err)
	}
	withLookPath(t, found)
	if err := NewAtBackend(&fakeRunner{}, time.Second).Available(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestSchtasksRegisterWritesWrapper(t *testing.T) {
	fs := afero.NewMemMapFs()
	r := &fakeRunner{outputs: map[string]string{"schtasks": "SUCCESS: The scheduled task has successfully been created."}}
	dir := filepath.Join("cfg", "jobs")
	b := NewSchtasksBackend(fs, dir, r, time.Second, "")
	id, err := b.Register(context.Background(), Task{
		Deadline:   testSpec().Deadline,
		Invocation: Invocation{Exe: `C:\playat.exe`, Args: []string{"fire", "--id", "x"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(id, "playat-") {
		t.Errorf("unexpected task name %q", id)
	}
	script := filepath.Join(dir, id+".cmd")
	data, err := afero.ReadFile(fs, script)
	if err != nil {
		t.Fatalf("wrapper not written: %v", err)
	}
	if !strings.Contains(string(data), `C:\playat.exe fire --id x`) {
		t.Errorf("unexpected wrapper %q", data)
	}
	args := strings.Join(r.calls[0].args, " ")
	want := "/Create /SC ONCE /TN " + id + " /TR " + script + " /ST 07:30 /SD 01/02/2024 /F"
	if args != want {
		t.Errorf("got  %q\nwant %q", args, want)
	}

	if err := b.Cancel(context.Background(), id); err != nil {
		t.Fatalf("unexpected cancel error: %v", err)
	}
	if ok, _ := afero.Exists(fs, script); ok {
		t.Error("wrapper should be removed on cancel")
	}
}

func TestSchtasksRegisterFailureRemovesWrapper(t *testing.T) {
	fs := afero.NewMemMapFs()
	r := &fakeRunner{
		outputs: map[string]string{"schtasks": "ERROR: Invalid Start Date."},
		errs:    map[string]error{"schtasks": errors.New("exit status 1")},
	}
	b := NewSchtasksBackend(fs, "jobs", r, time.Second, "02/01/2006")
	_, err := b.Register(context.Background(), Task{Deadline: testSpec().Deadline})
	if !errors.Is(err, ErrRegistrationFailed) || !strings.Contains(err.Error(), "Invalid Start Date") {
		t.Fatalf("expected RegistrationFailed with diagnostic, got %v", err)
	}
	if !strings.Contains(strings.Join(r.calls[0].args, " "), "/SD 02/01/2024") {
		t.Errorf("date layout not applied: %v", r.calls[0].args)
	}
	entries, _ := afero.ReadDir(fs, "jobs")
	if len(entries) != 0 {
		t.Errorf("expected wrapper cleanup, found %d files", len(entries))
	}
}

func TestSchtasksPending(t *testing.T) {
	out := `"\playat-aaa","1/2/2024 7:30:00 AM","Ready"
"\playat-bbb","N/A","Ready"
"\Microsoft\Something","1/3/2024 1:00:00 AM","Ready"
`
	r := &fakeRunner{outputs: map[string]string{"schtasks": out}}
	ids, err := NewSchtasksBackend(afero.NewMemMapFs(), "jobs", r, time.Second, "").Pending(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 1 || ids[0] != "playat-aaa" {
		t.Errorf("unexpected ids %v", ids)
	}
}

func TestSchtasksPruneRemovesFinishedTask(t *testing.T) {
	fs := afero.NewMemMapFs()
	script := filepath.Join("jobs", "playat-bbb.cmd")
	if err := afero.WriteFile(fs, script, []byte("@echo off"), 0o700); err != nil {
		t.Fatal(err)
	}
	r := &fakeRunner{outputs: map[string]string{"schtasks": "SUCCESS: The scheduled task was successfully deleted."}}
	b := NewSchtasksBackend(fs, "jobs", r, time.Second, "")
	if err := b.Prune(context.Background(), "playat-bbb"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := strings.Join(r.calls[0].args, " "); got != "/Delete /TN playat-bbb /F" {
		t.Errorf("unexpected args %q", got)
	}
	if ok, _ := afero.Exists(fs, script); ok {
		t.Error("wrapper should be removed")
	}
}

func TestSchtasksPruneTaskAlreadyGone(t *testing.T) {
	fs := afero.NewMemMapFs()
	script := filepath.Join("jobs", "playat-ccc.cmd")
	if err := afero.WriteFile(fs, script, []byte("@echo off"), 0o700); err != nil {
		t.Fatal(err)
	}
	r := &fakeRunner{
		outputs: map[string]string{"schtasks": "ERROR: The system cannot find the file specified."},
		errs:    map[string]error{"schtasks": errors.New("exit status 1")},
	}
	err := NewSchtasksBackend(fs, "jobs", r, time.Second, "").Prune(context.Background(), "playat-ccc")
	if !errors.Is(err, ErrCancellationFailed) {
		t.Errorf("expected CancellationFailed, got %v", err)
	}
	if ok, _ := afero.Exists(fs, script); ok {
		t.Error("wrapper should be removed even when the task is gone")
	}
}

func TestForPlatform(t *testing.T) {
	opts := Options{Fs: afero.NewMemMapFs(), Runner: &fakeRunner{}}
	cases := map[string]string{"windows": "schtasks", "linux": "at", "darwin": "at"}
	for goos, want := range cases {
		b, err := ForPlatform(goos, opts)
		if err != nil {
			t.Fatalf("%s: %v", goos, err)
		}
		if b.Name() != want {
			t.Errorf("%s: expected %s, got %s", goos, want, b.Name())
		}
	}
	if _, err := ForPlatform("unsupported-os", opts); !errors.Is(err, job.ErrUnsupportedPlatform) {
		t.Errorf("expected ErrUnsupportedPlatform, got %v", err)
	}
	if !(Platforms{}).Supports("linux") || (Platforms{}).Supports("js") {
		t.Error("unexpected Supports answers")
	}
}

func TestCompileAndRegister(t *testing.T) {
	withLookPath(t, found)
	r := &fakeRunner{outputs: map[string]string{"at": "job 5 at Tue Jan  2 07:30:15 2024"}}
	rec := &memRecorder{}
	ml := logger.NewMockLogger()
	c := NewCompiler(NewAtBackend(r, time.Second), rec, Environment{
		Exe:      "/usr/local/bin/playat",
		Env:      map[string]string{"PLAYAT_CONFIG_DIR": "/cfg"},
		Activate: ". /venv/bin/activate",
	}, ml)

	got, err := c.CompileAndRegister(context.Background(), testSpec())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != "5" || got.Backend != "at" || got.Status != job.StatusPending {
		t.Errorf("unexpected record %+v", got)
	}
	if len(rec.recs) != 1 || rec.recs[0].ID != "5" {
		t.Errorf("record not stored: %+v", rec.recs)
	}
	stdin := r.calls[0].stdin
	for _, want := range []string{"export PLAYAT_CONFIG_DIR=/cfg", ". /venv/bin/activate", "exec /usr/local/bin/playat fire --kind album"} {
		if !strings.Contains(stdin, want) {
			t.Errorf("script missing %q:\n%s", want, stdin)
		}
	}
	if len(ml.InfoCalls) != 1 {
		t.Errorf("expected one info log, got %v", ml.InfoCalls)
	}
}

func TestCompileAndRegister_Unavailable(t *testing.T) {
	withLookPath(t, func(string) (string, error) { return "", exec.ErrNotFound })
	rec := &memRecorder{}
	r := &fakeRunner{}
	c := NewCompiler(NewAtBackend(r, time.Second), rec, Environment{Exe: "playat"}, nil)
	_, err := c.CompileAndRegister(context.Background(), testSpec())
	if !errors.Is(err, ErrSchedulerUnavailable) {
		t.Fatalf("expected ErrSchedulerUnavailable, got %v", err)
	}
	if len(r.calls) != 0 || len(rec.recs) != 0 {
		t.Error("nothing should be registered or recorded")
	}
}

func TestCompileAndRegister_OrphanReported(t *testing.T) {
	withLookPath(t, found)
	r := &fakeRunner{outputs: map[string]string{"at": "job 8 at whenever"}}
	rec := &memRecorder{err: errors.New("disk full")}
	ml := logger.NewMockLogger()
	c := NewCompiler(NewAtBackend(r, time.Second), rec, Environment{Exe: "playat"}, ml)
	got, err := c.CompileAndRegister(context.Background(), testSpec())
	if !errors.Is(err, ErrOrphanedJob) {
		t.Fatalf("expected ErrOrphanedJob, got %v", err)
	}
	if got == nil || got.ID != "8" {
		t.Errorf("expected the orphaned record to be returned, got %+v", got)
	}
	if !strings.Contains(err.Error(), "job 8") || !strings.Contains(err.Error(), "disk full") {
		t.Errorf("error should name job and cause: %v", err)
	}
	if len(ml.ErrorCalls) != 1 {
		t.Errorf("expected orphan to be logged, got %v", ml.ErrorCalls)
	}
}

func TestCompileAndRegister_InvalidSpec(t *testing.T) {
	withLookPath(t, found)
	r := &fakeRunner{}
	c := NewCompiler(NewAtBackend(r, time.Second), &memRecorder{}, Environment{Exe: "playat"}, nil)
	spec := testSpec()
	spec.Media.ID = ""
	if _, err := c.CompileAndRegister(context.Background(), spec); err == nil {
		t.Fatal("expected validation error")
	}
	if len(r.calls) != 0 {
		t.Error("invalid spec must not reach the scheduler")
	}
}

func TestTriggerTime(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	now := time.Date(2030, 1, 1, 8, 0, 10, 0, loc)
	tests := []struct {
		name     string
		deadline time.Time
		want     time.Time
	}{
		{"later minute floored", time.Date(2030, 1, 1, 8, 5, 42, 0, loc), time.Date(2030, 1, 1, 8, 5, 0, 0, loc)},
		{"whole minute kept", time.Date(2030, 1, 1, 9, 0, 0, 0, loc), time.Date(2030, 1, 1, 9, 0, 0, 0, loc)},
		{"current minute moves on", time.Date(2030, 1, 1, 8, 0, 40, 0, loc), time.Date(2030, 1, 1, 8, 1, 0, 0, loc)},
		{"stale deadline fires next minute", time.Date(2030, 1, 1, 7, 0, 0, 0, loc), time.Date(2030, 1, 1, 8, 1, 0, 0, loc)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TriggerTime(tt.deadline, now)
			if !got.Equal(tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
			if !got.After(now) {
				t.Errorf("trigger %v is not after %v", got, now)
			}
		})
	}
}

func TestCompileAndRegister_TriggerWithinCurrentMinute(t *testing.T) {
	withLookPath(t, found)
	now := time.Date(2030, 1, 1, 8, 0, 10, 0, time.UTC)
	spec := testSpec()
	spec.CreatedAt = now
	spec.Deadline = now.Add(30 * time.Second)

	atRunner := &fakeRunner{outputs: map[string]string{"at": "job 9 at Tue Jan  1 08:01:00 2030"}}
	c := NewCompiler(NewAtBackend(atRunner, time.Second), &memRecorder{}, Environment{Exe: "playat"}, nil)
	c.now = func() time.Time { return now }
	if _, err := c.CompileAndRegister(context.Background(), spec); err != nil {
		t.Fatalf("at: %v", err)
	}
	if got := strings.Join(atRunner.calls[0].args, " "); got != "-t 203001010801.00" {
		t.Errorf("at trigger: got %q", got)
	}
	if !strings.Contains(atRunner.calls[0].stdin, "--not-before 2030-01-01T08:00:40Z") {
		t.Errorf("fire must still wait for the exact deadline:\n%s", atRunner.calls[0].stdin)
	}

	stRunner := &fakeRunner{outputs: map[string]string{"schtasks": "SUCCESS"}}
	c = NewCompiler(NewSchtasksBackend(afero.NewMemMapFs(), "jobs", stRunner, time.Second, ""), &memRecorder{}, Environment{Exe: "playat"}, nil)
	c.now = func() time.Time { return now }
	if _, err := c.CompileAndRegister(context.Background(), spec); err != nil {
		t.Fatalf("schtasks: %v", err)
	}
	if got := strings.Join(stRunner.calls[0].args, " "); !strings.Contains(got, "/ST 08:01 /SD 01/01/2030") {
		t.Errorf("schtasks trigger: got %q", got)
	}
}
