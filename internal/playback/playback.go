// Package playback is the boundary to the remote music service. It defines
// the collaborators the scheduler calls and picks the target device; it
// never talks to the network itself.
package playback

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/playat/playat/pkg/media"
)

var (
	ErrNoDevices      = errors.New("no available devices")
	ErrDeviceNotFound = errors.New("device not found")
	ErrDeviceOffline  = errors.New("device offline")
	ErrAuth           = errors.New("authorization failed")
	ErrNotFound       = errors.New("media not found")
)

// Device is a playback target as reported by the remote service.
type Device struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Type             string `json:"type"`
	IsActive         bool   `json:"is_active"`
	IsPrivateSession bool   `json:"is_private_session"`
}

// DeviceLister lists the devices currently available to the user.
type DeviceLister interface {
	Devices(ctx context.Context) ([]Device, error)
}

// Player starts playback of ref on the device with the given id.
type Player interface {
	Play(ctx context.Context, deviceID string, ref media.Ref) error
}

// Service is implemented by clients that can do both.
type Service interface {
	DeviceLister
	Player
}

// SelectDevice returns the id of the device called name (case-insensitive).
// With an empty name it prefers the active device, then the first one.
func SelectDevice(devices []Device, name string) (string, error) {
	if len(devices) == 0 {
		return "", fmt.Errorf("%w: open Spotify on the target device and try again", ErrNoDevices)
	}
	if name != "" {
		for _, d := range devices {
			if strings.EqualFold(d.Name, name) {
				return d.ID, nil
			}
		}
		names := make([]string, 0, len(devices))
		for _, d := range devices {
			n := d.Name
			if n == "" {
				n = "<unnamed>"
			}
			names = append(names, n)
		}
		return "", fmt.Errorf("%w: %q, available devices: %s", ErrDeviceNotFound, name, strings.Join(names, ", "))
	}
	for _, d := range devices {
		if d.IsActive {
			return d.ID, nil
		}
	}
	return devices[0].ID, nil
}

// SortByName orders devices case-insensitively by name, in place.
func SortByName(devices []Device) {
	sort.SliceStable(devices, func(i, j int) bool {
		return strings.ToLower(devices[i].Name) < strings.ToLower(devices[j].Name)
	})
}

// Invoker resolves the device at execution time and plays the media.
type Invoker struct {
	svc Service
}

func NewInvoker(svc Service) *Invoker {
	return &Invoker{svc: svc}
}

// Play issues exactly one playback command. Errors are terminal; the caller
// decides whether anything is retried.
func (i *Invoker) Play(ctx context.Context, deviceName string, ref media.Ref) error {
	devices, err := i.svc.Devices(ctx)
	if err != nil {
		return fmt.Errorf("listing devices: %w", err)
	}
	id, err := SelectDevice(devices, deviceName)
	if err != nil {
		return err
	}
	if err := i.svc.Play(ctx, id, ref); err != nil {
		return fmt.Errorf("starting playback: %w", err)
	}
	return nil
}
