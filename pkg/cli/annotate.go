package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/Gradient-DS/soev.ai-sub000/pkg/citation"
	"github.com/Gradient-DS/soev.ai-sub000/pkg/marker"
	"github.com/Gradient-DS/soev.ai-sub000/pkg/model"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func annotateCommand() *cli.Command {
	var (
		snapshotPath string
		inputPath    string
	)

	return &cli.Command{
		Name:  "annotate",
		Usage: "Resolve the citation markers of an answer against a saved run snapshot",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "snapshot",
				Aliases:     []string{"s"},
				Usage:       "Path to a run snapshot JSON file",
				Required:    true,
				Destination: &snapshotPath,
			},
			&cli.StringFlag{
				Name:        "input",
				Aliases:     []string{"i"},
				Usage:       "Path to the answer text ('-' for stdin)",
				Value:       "-",
				Destination: &inputPath,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			snapshot, err := loadSnapshot(snapshotPath)
			if err != nil {
				return err
			}

			text, err := readInput(inputPath)
			if err != nil {
				return err
			}

			resolver := citation.NewResolver(snapshot)
			w := c.Root().Writer

			for _, m := range marker.Parse(text) {
				for _, coord := range m.Coords {
					record := resolver.ResolveCoordinate(coord)
					if record == nil {
						fmt.Fprintf(w, "%s: unresolved\n", coord)
						continue
					}

					line, err := json.Marshal(record)
					if err != nil {
						return goerr.Wrap(err, "failed to marshal citation")
					}
					fmt.Fprintf(w, "%s: %s\n", coord, line)
				}
			}

			return nil
		},
	}
}

func stripCommand() *cli.Command {
	var inputPath string

	return &cli.Command{
		Name:  "strip",
		Usage: "Remove citation marker tokens from text",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "input",
				Aliases:     []string{"i"},
				Usage:       "Path to the text to strip ('-' for stdin)",
				Value:       "-",
				Destination: &inputPath,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			text, err := readInput(inputPath)
			if err != nil {
				return err
			}

			fmt.Fprint(c.Root().Writer, marker.Strip(text))
			return nil
		},
	}
}

func loadSnapshot(path string) (*model.RunSnapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read snapshot file", goerr.V("path", path))
	}

	var snapshot model.RunSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, goerr.Wrap(err, "failed to parse snapshot file", goerr.V("path", path))
	}
	return &snapshot, nil
}

func readInput(path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", goerr.Wrap(err, "failed to read stdin")
		}
		return string(data), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", goerr.Wrap(err, "failed to read input file", goerr.V("path", path))
	}
	return string(data), nil
}
