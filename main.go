package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/playat/playat/cmd"
	"github.com/playat/playat/cmd/common"
)

var (
	version   string
	commit    string
	date      string
	buildType string = "unclassified"
)

var osExit = os.Exit

func main() {
	osExit(runMain(os.Args, func(args []string) error {
		return cmd.Execute(args, cmd.BuildArgs{
			Version:   version,
			Commit:    commit,
			Date:      date,
			BuildType: buildType,
		})
	}))
}

// runMain maps the result of execute to an exit code: 0 on success, 130
// when interrupted, 1 for anything else.
func runMain(args []string, execute func([]string) error) int {
	err := execute(args)
	switch {
	case err == nil:
		return 0
	case errors.Is(err, cmd.ErrInterrupted):
		return 130
	case errors.Is(err, common.ErrReported):
		return 1
	}
	fmt.Fprintf(os.Stderr, "playat: %s\n", err.Error())
	return 1
}
