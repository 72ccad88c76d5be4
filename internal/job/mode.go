package job

import "fmt"

// Mode selects how a Spec is executed.
type Mode string

const (
	ModeImmediate   Mode = "immediate"
	ModeWait        Mode = "wait-in-process"
	ModeOSScheduled Mode = "os-scheduled"
)

// BackendSet reports whether a platform has an OS scheduler backend.
type BackendSet interface {
	Supports(platform string) bool
}

// Select picks the execution mode for spec. It is a pure function: the same
// inputs always give the same answer and nothing is touched.
func Select(spec Spec, osSchedule bool, platform string, backends BackendSet) (Mode, error) {
	if spec.Immediate {
		return ModeImmediate, nil
	}
	if osSchedule {
		if backends == nil || !backends.Supports(platform) {
			return "", fmt.Errorf("%w: no OS scheduler backend for %q", ErrUnsupportedPlatform, platform)
		}
		return ModeOSScheduled, nil
	}
	return ModeWait, nil
}
