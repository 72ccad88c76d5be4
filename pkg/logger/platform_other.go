//go:build !windows

package logger

func withPlatform(base Logger) Logger {
	return base
}
