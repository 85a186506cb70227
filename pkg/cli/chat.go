package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Gradient-DS/soev.ai-sub000/pkg/citation"
	"github.com/Gradient-DS/soev.ai-sub000/pkg/marker"
	"github.com/Gradient-DS/soev.ai-sub000/pkg/service/mcp"
	"github.com/Gradient-DS/soev.ai-sub000/pkg/tool"
	"github.com/Gradient-DS/soev.ai-sub000/pkg/tool/filesearch"
	"github.com/Gradient-DS/soev.ai-sub000/pkg/tool/websearch"
	"github.com/Gradient-DS/soev.ai-sub000/pkg/usecase/chat"
	"github.com/briandowns/spinner"
	"github.com/chzyer/readline"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func chatCommand() *cli.Command {
	var cfg config

	tools := []tool.Tool{
		websearch.New(),
		filesearch.New(),
	}

	flags := []cli.Flag{}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)
	for _, t := range tools {
		flags = append(flags, t.Flags()...)
	}

	return &cli.Command{
		Name:  "chat",
		Usage: "Interactive assistant session with citation tracking",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			repo, err := cfg.newRepository(ctx)
			if err != nil {
				return err
			}

			gemini, err := cfg.newGemini(ctx)
			if err != nil {
				return err
			}

			storage, err := cfg.newStorage(ctx)
			if err != nil {
				return err
			}

			// Knowledge-base connectors are optional
			if cfg.connectorConfig != "" {
				provider, err := mcp.LoadAndConnect(ctx, cfg.connectorConfig)
				if err != nil {
					return goerr.Wrap(err, "failed to load connectors")
				}
				if provider != nil {
					tools = append(tools, provider)
				}
			}

			registry := tool.New(tools...)
			if err := registry.Init(ctx, &tool.Client{
				Repo:    repo,
				Gemini:  gemini,
				Storage: storage,
			}); err != nil {
				return goerr.Wrap(err, "failed to initialize tools")
			}

			session, err := chat.New(ctx, chat.NewInput{
				Gemini:   gemini,
				Registry: registry,
				Repo:     repo,
				Storage:  storage,
			})
			if err != nil {
				return goerr.Wrap(err, "failed to create chat session")
			}

			rl, err := readline.New("> ")
			if err != nil {
				return goerr.Wrap(err, "failed to initialize readline")
			}
			defer rl.Close()

			w := c.Root().Writer
			fmt.Fprintf(w, "Chat session %s started. Type 'exit' to quit.\n", session.RunID())

			var lastAnswer string

			for {
				message, err := rl.Readline()
				if err == readline.ErrInterrupt || err == io.EOF {
					break
				}
				if err != nil {
					return goerr.Wrap(err, "failed to read input")
				}

				message = strings.TrimSpace(message)
				if message == "exit" {
					break
				}
				if message == "" {
					continue
				}

				sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
				sp.Suffix = " thinking..."
				sp.Start()

				answer, err := session.Send(ctx, message)
				sp.Stop()
				if err != nil {
					return goerr.Wrap(err, "failed to send message")
				}

				lastAnswer = answer
				fmt.Fprintf(w, "%s\n", marker.Strip(answer))
			}

			// Freeze the run and resolve the final answer's markers
			// against the persisted snapshot.
			snapshot, err := session.Finalize(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to finalize session")
			}

			if lastAnswer != "" {
				printSources(w, lastAnswer, citation.NewResolver(snapshot))
			}

			fmt.Fprintf(w, "\nChat session completed\n")
			return nil
		},
	}
}

// printSources lists the resolved citation of every marker in the answer
func printSources(w io.Writer, answer string, resolver *citation.Resolver) {
	matches := marker.Parse(answer)
	if len(matches) == 0 {
		return
	}

	fmt.Fprintf(w, "\nSources:\n")
	seen := make(map[string]bool)
	for _, m := range matches {
		for _, record := range resolver.ResolveMatch(m) {
			if seen[record.ID] {
				continue
			}
			seen[record.ID] = true

			location := record.URL
			if location == "" && record.Page != nil {
				location = fmt.Sprintf("p.%d", *record.Page)
			}
			if location != "" {
				fmt.Fprintf(w, "- %s (%s)\n", record.Title, location)
			} else {
				fmt.Fprintf(w, "- %s\n", record.Title)
			}
		}
	}
}
