// Package job holds the resolved description of a playback request, the
// tracking record of jobs handed to the OS scheduler, and the pure choice
// of how a request is executed.
package job

import (
	"errors"
	"fmt"
	"time"

	"github.com/playat/playat/internal/timespec"
	"github.com/playat/playat/pkg/media"
)

var ErrUnsupportedPlatform = errors.New("unsupported platform")

// Spec is the validated description of one scheduling request. It is a
// value; copies never share state.
type Spec struct {
	Deadline  time.Time `json:"deadline"`
	Media     media.Ref `json:"media"`
	Device    string    `json:"device,omitempty"`
	Immediate bool      `json:"immediate,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Request is the unresolved user input shared by the CLI and the web surface.
type Request struct {
	Media  string
	Kind   media.Kind
	Strict bool
	Device string
	Time   timespec.Input
}

// NewSpec resolves req against now. It performs no side effects, so an
// error here never leaves partial state behind.
func NewSpec(now time.Time, req Request) (Spec, error) {
	ref, err := media.Normalize(req.Media, req.Kind, req.Strict)
	if err != nil {
		return Spec{}, err
	}
	deadline, err := timespec.Resolve(now, req.Time)
	if err != nil {
		return Spec{}, err
	}
	return Spec{
		Deadline:  deadline,
		Media:     ref,
		Device:    req.Device,
		Immediate: req.Time.Now,
		CreatedAt: now,
	}, nil
}

// Validate checks the Spec invariants.
func (s Spec) Validate() error {
	if s.Media.ID == "" {
		return fmt.Errorf("%w: empty id", media.ErrInvalidMediaReference)
	}
	if s.Immediate && !s.Deadline.Equal(s.CreatedAt) {
		return errors.New("immediate spec must have deadline equal to creation time")
	}
	if !s.Immediate && !s.Deadline.After(s.CreatedAt) {
		return fmt.Errorf("%w: deadline %s", timespec.ErrTimestampInPast, s.Deadline.Format(time.RFC3339))
	}
	return nil
}

// DeviceLabel returns the device name or a placeholder for "auto".
func (s Spec) DeviceLabel() string {
	if s.Device == "" {
		return "active/default device"
	}
	return s.Device
}
