//go:build windows

package logger

// EventSource is the event log source name used by `playat serve`.
const EventSource = "playat"

// withPlatform adds the event log backend when the source is registered.
func withPlatform(base Logger) Logger {
	el, err := NewEventLogger(EventSource)
	if err != nil {
		return base
	}
	return NewMultiLogger(base, el)
}
