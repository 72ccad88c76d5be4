package cmd

import (
	"context"
	"fmt"

	"github.com/playat/playat/cmd/common"
	"github.com/playat/playat/internal/playback"
	"github.com/playat/playat/pkg/playcli"
	"github.com/urfave/cli"
)

func devices(ctx *cli.Context) error {
	if ctx.Args().First() == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	list, err := fetchDevices(context.Background())
	if err != nil {
		return common.RuntimeErr("devices", "list", err)
	}
	printDevices(list)
	return nil
}

func fetchDevices(ctx context.Context) ([]playback.Device, error) {
	if playcli.IsRunning() {
		client, err := playcli.NewClient(nil)
		if err == nil {
			defer client.Close()
			return client.Devices(ctx)
		}
	}
	env, err := loadEnv()
	if err != nil {
		return nil, err
	}
	list, err := newService(env).Devices(ctx)
	if err != nil {
		return nil, err
	}
	playback.SortByName(list)
	return list, nil
}

func printDevices(list []playback.Device) {
	if len(list) == 0 {
		fmt.Println("No available Spotify devices. Launch Spotify somewhere and try again.")
		return
	}
	fmt.Println("Available Spotify devices:")
	for _, d := range list {
		var status string
		switch {
		case d.IsActive && d.IsPrivateSession:
			status = " (active, private)"
		case d.IsActive:
			status = " (active)"
		case d.IsPrivateSession:
			status = " (private)"
		}
		fmt.Printf("- %-20s [%-11s id=%s%s\n", d.Name, d.Type+"]", d.ID, status)
	}
}
