package logger

import "io"

// NewServerLogger is the logger of processes nobody watches, `playat
// serve` and the scheduled `playat fire`: structured zerolog output plus
// the platform's system log where one is available.
func NewServerLogger(w io.Writer, console bool, component string) Logger {
	return withPlatform(NewZerologLogger(w, console, component))
}
