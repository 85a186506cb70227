package cli

import (
	"context"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func historyCommand() *cli.Command {
	var (
		cfg    config
		offset int64
		limit  int64
	)

	flags := []cli.Flag{
		&cli.IntFlag{
			Name:        "offset",
			Usage:       "Number of histories to skip",
			Value:       0,
			Destination: &offset,
		},
		&cli.IntFlag{
			Name:        "limit",
			Usage:       "Maximum number of histories to list",
			Value:       20,
			Destination: &limit,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "history",
		Usage: "List saved conversations and their citation counts",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			repo, err := cfg.newRepository(ctx)
			if err != nil {
				return err
			}
			if repo == nil {
				return goerr.New("project is required to list histories")
			}

			histories, err := repo.ListHistory(ctx, int(offset), int(limit))
			if err != nil {
				return goerr.Wrap(err, "failed to list histories")
			}

			w := c.Root().Writer
			for _, h := range histories {
				citations := 0
				for _, att := range h.Attachments {
					citations += len(att.Sources)
				}
				fmt.Fprintf(w, "%s  %s  run=%s  citations=%d\n",
					h.ID, h.CreatedAt.Format("2006-01-02 15:04"), h.RunID, citations)
			}

			return nil
		},
	}
}
