package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/m-mizutani/advisor"
	"github.com/urfave/cli/v3"
)

func sessionsCommand() *cli.Command {
	return &cli.Command{
		Name:  "sessions",
		Usage: "List saved conversations",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Value: advisor.DefaultPageSize,
				Usage: "Number of conversations per page",
			},
			&cli.StringFlag{
				Name:  "page-token",
				Usage: "Token returned by a previous call",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg := newConfig(cmd)
			repo, err := cfg.newRepository(ctx)
			if err != nil {
				return err
			}

			resp, err := repo.List(ctx, advisor.ListRequest{
				PageSize:  int(cmd.Int("limit")),
				PageToken: cmd.String("page-token"),
			})
			if err != nil {
				return err
			}
			return printSessions(os.Stdout, resp)
		},
	}
}

func printSessions(w io.Writer, resp *advisor.ListResponse) error {
	if len(resp.Transcripts) == 0 {
		_, err := fmt.Fprintln(w, "No saved conversations.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "SESSION ID\tSIZE\tUPDATED")
	for _, t := range resp.Transcripts {
		_, _ = fmt.Fprintf(tw, "%s\t%d\t%s\n", t.SessionID, t.Size, t.UpdatedAt.Local().Format(time.DateTime))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if resp.NextPageToken != "" {
		_, err := fmt.Fprintf(w, "\nNext page: --page-token %s\n", resp.NextPageToken)
		return err
	}
	return nil
}
