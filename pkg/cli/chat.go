package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/secmon-lab/gerri/pkg/domain/types"
	"github.com/secmon-lab/gerri/pkg/usecase"
	"github.com/secmon-lab/gerri/pkg/utils/logging"
	"github.com/secmon-lab/gerri/pkg/utils/safe"
	"github.com/urfave/cli/v3"
)

func cmdChat() *cli.Command {
	var cf chatFlags

	return &cli.Command{
		Name:  "chat",
		Usage: "Start an interactive chat session against the indexed data",
		Flags: cf.flags(),
		Action: func(ctx context.Context, c *cli.Command) error {
			uc, err := cf.configure(ctx)
			if err != nil {
				return err
			}

			sessionID := types.NewSessionID()
			logging.Default().Info("chat session started", "session_id", sessionID)
			safe.Write(ctx, os.Stdout, []byte("Ask a question about your data. Type 'exit' or press Ctrl-D to quit.\n"))

			scanner := bufio.NewScanner(os.Stdin)
			for {
				safe.Write(ctx, os.Stdout, []byte("> "))
				if !scanner.Scan() {
					break
				}
				question := strings.TrimSpace(scanner.Text())
				if question == "" {
					continue
				}
				if question == "exit" || question == "quit" {
					break
				}

				result, err := uc.Query.RunQuery(ctx, sessionID, question, cf.topK, func(fragment string) error {
					_, err := fmt.Fprint(os.Stdout, fragment)
					return err
				})
				safe.Write(ctx, os.Stdout, []byte("\n"))
				if err != nil {
					if errors.Is(err, context.Canceled) {
						return nil
					}
					// A single failed turn should not end the session.
					logging.Default().Error("query failed", "error", err)
					continue
				}

				printCitations(ctx, result.Citations)
			}

			return scanner.Err()
		},
	}
}

func printCitations(ctx context.Context, citations []usecase.Citation) {
	if len(citations) == 0 {
		return
	}
	safe.Write(ctx, os.Stdout, []byte("\nSources:\n"))
	for _, c := range citations {
		body, err := c.Record.Serialize()
		if err != nil {
			continue
		}
		safe.Write(ctx, os.Stdout, []byte(fmt.Sprintf("  [%d] %s\n", c.Rank, body)))
	}
}
