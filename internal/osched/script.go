package osched

import (
	"sort"
	"strings"

	"al.essio.dev/pkg/shellescape"
)

// Invocation is the command a scheduled job runs, together with what it
// needs from the interactive environment.
type Invocation struct {
	Exe  string
	Args []string
	// Env is exported before Exe runs.
	Env map[string]string
	// Activate is a shell line run first, e.g. restoring an isolated
	// dependency environment.
	Activate string
	// Comment is written at the top of the wrapper script.
	Comment string
}

func (inv Invocation) envKeys() []string {
	keys := make([]string, 0, len(inv.Env))
	for k := range inv.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// POSIXScript renders inv as a /bin/sh script.
func (inv Invocation) POSIXScript() string {
	var b strings.Builder
	b.WriteString("#!/bin/sh\n")
	if inv.Comment != "" {
		b.WriteString("# " + oneLine(inv.Comment) + "\n")
	}
	for _, k := range inv.envKeys() {
		b.WriteString("export " + k + "=" + shellescape.Quote(inv.Env[k]) + "\n")
	}
	if inv.Activate != "" {
		b.WriteString(inv.Activate + "\n")
	}
	b.WriteString("exec " + shellescape.QuoteCommand(append([]string{inv.Exe}, inv.Args...)) + "\n")
	return b.String()
}

// CmdScript renders inv as a Windows batch file.
func (inv Invocation) CmdScript() string {
	var b strings.Builder
	b.WriteString("@echo off\r\n")
	if inv.Comment != "" {
		b.WriteString("rem " + oneLine(inv.Comment) + "\r\n")
	}
	for _, k := range inv.envKeys() {
		b.WriteString(`set "` + k + "=" + strings.ReplaceAll(inv.Env[k], "%", "%%") + "\"\r\n")
	}
	if inv.Activate != "" {
		b.WriteString(inv.Activate + "\r\n")
	}
	parts := make([]string, 0, len(inv.Args)+1)
	parts = append(parts, cmdQuote(inv.Exe))
	for _, a := range inv.Args {
		parts = append(parts, cmdQuote(a))
	}
	b.WriteString(strings.Join(parts, " ") + "\r\n")
	return b.String()
}

const cmdSpecial = " \t&|<>^\"%(),;=!"

// cmdQuote quotes s for cmd.exe. Embedded quotes are doubled and percent
// signs escaped so variables are not expanded.
func cmdQuote(s string) string {
	if s == "" {
		return `""`
	}
	if !strings.ContainsAny(s, cmdSpecial) {
		return s
	}
	s = strings.ReplaceAll(s, `"`, `""`)
	s = strings.ReplaceAll(s, "%", "%%")
	return `"` + s + `"`
}

func oneLine(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}
