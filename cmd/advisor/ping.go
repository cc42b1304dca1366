package main

import (
	"context"
	"fmt"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func pingCommand() *cli.Command {
	return &cli.Command{
		Name:  "ping",
		Usage: "Test the connection to the configured model",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			s, err := newSession(ctx, cmd, os.Stderr, "")
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			info := s.chat.ModelInfo()
			if err := s.chat.Ping(ctx); err != nil {
				return goerr.Wrap(err, "connection test failed", goerr.V("provider", info.Provider), goerr.V("model", info.Model))
			}
			fmt.Printf("Connection test passed! (%s/%s)\n", info.Provider, info.Model)
			return nil
		},
	}
}
