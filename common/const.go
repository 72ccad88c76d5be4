package common

// JSON-RPC method names served over HTTP, WebSocket and the control socket.
const (
	MethodVersion       = "system.getVersion"
	MethodJobsCreate    = "jobs.create"
	MethodJobsList      = "jobs.list"
	MethodJobsCancel    = "jobs.cancel"
	MethodJobsReconcile = "jobs.reconcile"
	MethodDevicesList   = "devices.list"
)

// JSON-RPC error codes, one per error kind. The -32000..-32099 range is
// reserved for implementation-defined server errors.
const (
	CodeInvalidMedia         = -32010
	CodeAmbiguousMedia       = -32011
	CodeInvalidTime          = -32012
	CodeTimeInPast           = -32013
	CodeUnsupportedPlatform  = -32020
	CodeSchedulerUnavailable = -32021
	CodeRegistrationFailed   = -32022
	CodeCancellationFailed   = -32023
	CodeOrphanedJob          = -32024
	CodeJobNotFound          = -32030
	CodeJobNotPending        = -32031
	CodeModeNotAllowed       = -32032
	CodeRecordNotSaved       = -32033
	CodeDeviceUnavailable    = -32040
	CodePlaybackAuth         = -32041
	CodeUnauthorized         = -32001
)
