//go:build windows

package common

import (
	"os"
	"strings"
)

// DefaultPipeName is the default name for the control named pipe.
const DefaultPipeName = "playat"

const pipePrefix = `\\.\pipe\`

// ControlSocketPath returns the named pipe `playat serve` listens on.
// PLAYAT_PIPE_NAME may be a bare name or a full \\.\pipe\ path.
func ControlSocketPath() string {
	if name := os.Getenv(PipeNameEnv); name != "" {
		if strings.HasPrefix(name, pipePrefix) {
			return name
		}
		return pipePrefix + name
	}
	return pipePrefix + DefaultPipeName
}
