// Package common holds the names and wire types shared by the playat CLI,
// the web/RPC server and the control-socket client.
package common

// Environment variable names.
const (
	// ConfigDirEnv overrides the config dir (config.yaml, jobs.db, wrappers).
	ConfigDirEnv = "PLAYAT_CONFIG_DIR"

	// RPCSecretEnv overrides the bearer token required by the JSON-RPC endpoints.
	RPCSecretEnv = "PLAYAT_RPC_SECRET"

	// SpotifyTokenEnv supplies the Web API access token.
	SpotifyTokenEnv = "PLAYAT_SPOTIFY_TOKEN"

	// SocketPathEnv overrides the control socket path (unix).
	SocketPathEnv = "PLAYAT_SOCKET_PATH"

	// PipeNameEnv overrides the control pipe name (windows).
	PipeNameEnv = "PLAYAT_PIPE_NAME"

	// PortEnv overrides the web port.
	PortEnv = "PLAYAT_PORT"

	// DebugEnv enables debug output when set to 1.
	DebugEnv = "PLAYAT_DEBUG"
)

// DefaultPort is the web surface port.
const DefaultPort = 5000
