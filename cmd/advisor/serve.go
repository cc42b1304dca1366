package main

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the web chat server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "addr",
				Value:   ":8080",
				Sources: cli.EnvVars("ADVISOR_ADDR"),
				Usage:   "Server listen address",
			},
			&cli.StringFlag{
				Name:  "resume",
				Usage: "Session ID of a saved conversation to continue",
			},
			&cli.BoolFlag{
				Name:    "open",
				Sources: cli.EnvVars("ADVISOR_OPEN_BROWSER"),
				Usage:   "Open the chat page in a browser",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			s, err := newSession(ctx, cmd, os.Stderr, cmd.String("resume"))
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			opts := []serverOption{
				withAddr(cmd.String("addr")),
				withRepository(s.repo),
				withTitle(s.cfg.AppName, s.cfg.AppDescription),
				withLogger(s.logger),
			}
			if cmd.Bool("open") {
				opts = append(opts, withOpenBrowser())
			}

			return newServer(s.chat, opts...).start(ctx)
		},
	}
}
