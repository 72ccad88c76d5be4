package server

import (
	"errors"

	"github.com/creachadair/jrpc2"
	"github.com/playat/playat/common"
	"github.com/playat/playat/internal/dispatch"
	"github.com/playat/playat/internal/job"
	"github.com/playat/playat/internal/osched"
	"github.com/playat/playat/internal/playback"
	"github.com/playat/playat/internal/registry"
	"github.com/playat/playat/internal/timespec"
	"github.com/playat/playat/pkg/media"
)

var errorCodes = []struct {
	err  error
	code int
}{
	{media.ErrInvalidMediaReference, common.CodeInvalidMedia},
	{media.ErrAmbiguousMediaKind, common.CodeAmbiguousMedia},
	{timespec.ErrConflictingTimeInputs, common.CodeInvalidTime},
	{timespec.ErrMissingTimeSpecification, common.CodeInvalidTime},
	{timespec.ErrInvalidTimestamp, common.CodeInvalidTime},
	{timespec.ErrInvalidClock, common.CodeInvalidTime},
	{timespec.ErrInvalidDate, common.CodeInvalidTime},
	{timespec.ErrTimestampInPast, common.CodeTimeInPast},
	{timespec.ErrDateInPast, common.CodeTimeInPast},
	{job.ErrUnsupportedPlatform, common.CodeUnsupportedPlatform},
	{dispatch.ErrNoScheduler, common.CodeUnsupportedPlatform},
	{osched.ErrOrphanedJob, common.CodeOrphanedJob},
	{osched.ErrSchedulerUnavailable, common.CodeSchedulerUnavailable},
	{osched.ErrRegistrationFailed, common.CodeRegistrationFailed},
	{osched.ErrCancellationFailed, common.CodeCancellationFailed},
	{registry.ErrNotFound, common.CodeJobNotFound},
	{registry.ErrNotPending, common.CodeJobNotPending},
	{registry.ErrRecordNotSaved, common.CodeRecordNotSaved},
	{dispatch.ErrModeNotAllowed, common.CodeModeNotAllowed},
	{playback.ErrNoDevices, common.CodeDeviceUnavailable},
	{playback.ErrDeviceNotFound, common.CodeDeviceUnavailable},
	{playback.ErrDeviceOffline, common.CodeDeviceUnavailable},
	{playback.ErrAuth, common.CodePlaybackAuth},
}

// rpcError maps err to a *jrpc2.Error carrying the code of its kind.
// Unclassified errors keep jrpc2's generic system error code.
func rpcError(err error) error {
	if err == nil {
		return nil
	}
	var je *jrpc2.Error
	if errors.As(err, &je) {
		return err
	}
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return &jrpc2.Error{Code: jrpc2.Code(ec.code), Message: err.Error()}
		}
	}
	return err
}

// errorKind is the short label shown in the web form for err.
func errorKind(err error) string {
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return ec.err.Error()
		}
	}
	return "error"
}
