package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"testing"
)

func TestStandardLogger_Prefixes(t *testing.T) {
	buf := &bytes.Buffer{}
	l := NewStandardLogger(log.New(buf, "", 0))

	l.Info("registered job %s", "42")
	l.Warning("reconcile: %s", "atq failed")
	l.Error("cancel failed: %v", errors.New("boom"))

	out := buf.String()
	for _, want := range []string{
		"[INFO] registered job 42",
		"[WARNING] reconcile: atq failed",
		"[ERROR] cancel failed: boom",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output, got: %s", want, out)
		}
	}
	if err := l.Close(); err != nil {
		t.Errorf("expected nil from Close, got %v", err)
	}
}

func TestNopLogger(t *testing.T) {
	l := NewNopLogger()
	l.Info("x")
	l.Warning("x")
	l.Error("x")
	if err := l.Close(); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
}

func TestMockLogger(t *testing.T) {
	m := NewMockLogger()
	m.Info("a %d", 1)
	m.Warning("b")
	m.Error("c %s", "d")
	_ = m.Close()
	if len(m.InfoCalls) != 1 || m.InfoCalls[0] != "a 1" {
		t.Errorf("unexpected info calls %v", m.InfoCalls)
	}
	if len(m.WarningCalls) != 1 || len(m.ErrorCalls) != 1 || m.ErrorCalls[0] != "c d" {
		t.Errorf("unexpected calls %v %v", m.WarningCalls, m.ErrorCalls)
	}
	if !m.CloseCalled {
		t.Error("expected CloseCalled")
	}
}

type failingLogger struct {
	MockLogger
	err error
}

func (f *failingLogger) Close() error { return f.err }

func TestMultiLogger(t *testing.T) {
	a, b := NewMockLogger(), NewMockLogger()
	first := errors.New("first")
	c := &failingLogger{err: first}
	d := &failingLogger{err: errors.New("second")}
	m := NewMultiLogger(a, b, c, d)

	m.Info("hello %s", "world")
	m.Warning("w")
	m.Error("e")

	for _, l := range []*MockLogger{a, b, &c.MockLogger} {
		if len(l.InfoCalls) != 1 || l.InfoCalls[0] != "hello world" {
			t.Errorf("backend missed info call: %v", l.InfoCalls)
		}
		if len(l.WarningCalls) != 1 || len(l.ErrorCalls) != 1 {
			t.Errorf("backend missed calls: %v %v", l.WarningCalls, l.ErrorCalls)
		}
	}
	err := m.Close()
	if !errors.Is(err, first) || !errors.Is(err, d.err) {
		t.Errorf("expected both close errors, got %v", err)
	}
	if !a.CloseCalled || !b.CloseCalled {
		t.Error("all backends should be closed")
	}
}

func TestMultiLoggerFlattensAndSkipsNil(t *testing.T) {
	a, b := NewMockLogger(), NewMockLogger()
	inner := NewMultiLogger(a, nil)
	m := NewMultiLogger(inner, b, nil)
	if len(m.loggers) != 2 {
		t.Fatalf("expected two backends, got %d", len(m.loggers))
	}
	m.Info("job %s fired", "3")
	if len(a.InfoCalls) != 1 || len(b.InfoCalls) != 1 {
		t.Errorf("expected one line per backend, got %v %v", a.InfoCalls, b.InfoCalls)
	}
	if err := m.Close(); err != nil {
		t.Errorf("unexpected close error: %v", err)
	}
}

func TestZerologLogger_JSON(t *testing.T) {
	buf := &bytes.Buffer{}
	l := NewZerologLogger(buf, false, "registry")
	l.Warning("job %s vanished", "7")

	var ev map[string]any
	if err := json.Unmarshal(buf.Bytes(), &ev); err != nil {
		t.Fatalf("expected one JSON line, got %q: %v", buf.String(), err)
	}
	if ev["level"] != "warn" || ev["message"] != "job 7 vanished" || ev["component"] != "registry" {
		t.Errorf("unexpected event %v", ev)
	}
	if _, ok := ev["time"]; !ok {
		t.Error("expected timestamp field")
	}
}

func TestZerologLogger_With(t *testing.T) {
	buf := &bytes.Buffer{}
	l := NewZerologLogger(buf, false, "").With("osched")
	l.Error("boom")
	if !strings.Contains(buf.String(), `"component":"osched"`) {
		t.Errorf("expected component field, got %s", buf.String())
	}
}

func TestZerologLogger_Console(t *testing.T) {
	buf := &bytes.Buffer{}
	l := NewZerologLogger(buf, true, "serve")
	l.Info("listening on %s", ":8741")
	if !strings.Contains(buf.String(), "listening on :8741") {
		t.Errorf("unexpected console output %q", buf.String())
	}
}
