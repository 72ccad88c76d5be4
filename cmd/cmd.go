// Package cmd is the playat command line.
package cmd

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/playat/playat/cmd/common"
	"github.com/urfave/cli"
)

type BuildArgs struct {
	Version   string
	BuildType string
	Date      string
	Commit    string
}

// ErrInterrupted is returned when SIGINT ends a wait. main exits 130.
var ErrInterrupted = errors.New("interrupted")

var currentBuild BuildArgs

func Execute(args []string, bArgs BuildArgs) error {
	currentBuild = bArgs
	app := cli.App{
		Name:                  "playat",
		HelpName:              "playat",
		Usage:                 "Start Spotify playback on a device at a given time.",
		Version:               fmt.Sprintf("%s-%s", bArgs.Version, bArgs.BuildType),
		UsageText:             "playat [flags] <media> | playat <command> [arguments...]",
		Description:           DESCRIPTION + ScheduleDescription,
		CustomAppHelpTemplate: HELP_TEMPL,
		OnUsageError:          common.UsageErrorCallback,
		Commands: []cli.Command{
			{
				Name:               "devices",
				Aliases:            []string{"d"},
				Usage:              "list Spotify Connect devices",
				Description:        DevicesDescription,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				OnUsageError:       common.UsageErrorCallback,
				Action:             devices,
			},
			{
				Name:               "jobs",
				Aliases:            []string{"j"},
				Usage:              "manage OS-scheduled jobs",
				Description:        JobsDescription,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				OnUsageError:       common.UsageErrorCallback,
				Subcommands: []cli.Command{
					{
						Name:         "list",
						Aliases:      []string{"ls"},
						Usage:        "list recorded jobs",
						OnUsageError: common.UsageErrorCallback,
						Action:       jobsList,
					},
					{
						Name:         "cancel",
						Usage:        "cancel a pending job",
						ArgsUsage:    "<job id>",
						OnUsageError: common.UsageErrorCallback,
						Action:       jobsCancel,
					},
					{
						Name:         "reconcile",
						Usage:        "refresh job status from the OS scheduler",
						OnUsageError: common.UsageErrorCallback,
						Action:       jobsReconcile,
					},
				},
			},
			{
				Name:               "serve",
				Usage:              "run the web form and JSON-RPC server",
				Description:        ServeDescription,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				OnUsageError:       common.UsageErrorCallback,
				Flags:              serveFlags,
				Action:             serve,
			},
			{
				Name:               "token",
				Usage:              "manage the RPC and Spotify tokens",
				Description:        TokenDescription,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				OnUsageError:       common.UsageErrorCallback,
				Subcommands: []cli.Command{
					{
						Name:   "show",
						Usage:  "print the JSON-RPC bearer token",
						Action: tokenShow,
					},
					{
						Name:   "rotate",
						Usage:  "replace the JSON-RPC bearer token",
						Action: tokenRotate,
					},
					{
						Name:      "set-spotify",
						Usage:     "store a Spotify Web API access token",
						ArgsUsage: "<access token>",
						Action:    tokenSetSpotify,
					},
					{
						Name:   "clear-spotify",
						Usage:  "remove the stored Spotify access token",
						Action: tokenClearSpotify,
					},
				},
			},
			{
				Name:   fireCommand,
				Hidden: true,
				Flags:  fireFlags,
				Action: fire,
			},
			{
				Name:    "help",
				Aliases: []string{"h"},
				Usage:   "prints the help message",
				Action:  common.Help,
			},
			{
				Name:               "version",
				Aliases:            []string{"v"},
				Usage:              "prints installed version of playat",
				UsageText:          " ",
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Action:             common.GetVersion,
			},
		},
		Action:                 schedule,
		Flags:                  scheduleFlags,
		UseShortOptionHandling: true,
		HideHelp:               true,
		HideVersion:            true,
	}
	common.VersionCmdStr = fmt.Sprintf("%s %s (%s_%s)\nBuild: %s=%s\n",
		app.Name,
		app.Version,
		runtime.GOOS,
		runtime.GOARCH,
		bArgs.Date, bArgs.Commit,
	)
	return app.Run(args)
}
