package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const pidFileName = "serve.pid"

// ErrAlreadyRunning is returned when the pid file names a live process.
var ErrAlreadyRunning = errors.New("playat serve is already running")

func pidFilePath(dir string) string {
	return filepath.Join(dir, pidFileName)
}

// writePidFile records the current process, refusing when another live
// server owns the file. A stale file is replaced.
func writePidFile(dir string) error {
	if pid, err := readPidFile(dir); err == nil && pid != os.Getpid() && isProcessRunning(pid) {
		return fmt.Errorf("%w (pid %d)", ErrAlreadyRunning, pid)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	return os.WriteFile(pidFilePath(dir), []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPidFile(dir string) (int, error) {
	data, err := os.ReadFile(pidFilePath(dir))
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid PID in file: %w", err)
	}
	if pid <= 0 {
		return 0, fmt.Errorf("invalid PID: %d", pid)
	}
	return pid, nil
}

func removePidFile(dir string) error {
	err := os.Remove(pidFilePath(dir))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
