package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/playat/playat/cmd/common"
	"github.com/playat/playat/internal/secret"
	"github.com/urfave/cli"
)

func tokenShow(ctx *cli.Context) error {
	env, err := loadEnv()
	if err != nil {
		return common.RuntimeErr("token", "config", err)
	}
	tok, err := env.secrets.RPCToken()
	if err != nil {
		return common.RuntimeErr("token", "show", err)
	}
	fmt.Println(tok)
	return nil
}

// tokenRotate drops the stored RPC token and generates a new one. A
// running server keeps the old token until it is restarted.
func tokenRotate(ctx *cli.Context) error {
	env, err := loadEnv()
	if err != nil {
		return common.RuntimeErr("token", "config", err)
	}
	if err := env.secrets.Delete(secret.RPCTokenKey); err != nil && !errors.Is(err, secret.ErrNoSecret) {
		return common.RuntimeErr("token", "delete", err)
	}
	tok, err := env.secrets.RPCToken()
	if err != nil {
		return common.RuntimeErr("token", "rotate", err)
	}
	fmt.Println(tok)
	return nil
}

func tokenSetSpotify(ctx *cli.Context) error {
	tok := strings.TrimSpace(ctx.Args().First())
	if tok == "" {
		return common.PrintErrWithCmdHelp(ctx, errors.New("an access token is required"))
	}
	env, err := loadEnv()
	if err != nil {
		return common.RuntimeErr("token", "config", err)
	}
	if err := env.secrets.Set(secret.SpotifyKey, tok); err != nil {
		return common.RuntimeErr("token", "set-spotify", err)
	}
	fmt.Println("Spotify access token stored.")
	return nil
}

func tokenClearSpotify(ctx *cli.Context) error {
	env, err := loadEnv()
	if err != nil {
		return common.RuntimeErr("token", "config", err)
	}
	if err := env.secrets.Delete(secret.SpotifyKey); err != nil {
		return common.RuntimeErr("token", "clear-spotify", err)
	}
	fmt.Println("Spotify access token removed.")
	return nil
}
