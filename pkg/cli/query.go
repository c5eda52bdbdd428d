package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/gerri/pkg/domain/types"
	"github.com/secmon-lab/gerri/pkg/utils/safe"
	"github.com/urfave/cli/v3"
)

func cmdQuery() *cli.Command {
	var question string
	var cf chatFlags

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "question",
			Aliases:     []string{"q"},
			Usage:       "Question to answer",
			Required:    true,
			Destination: &question,
		},
	}
	flags = append(flags, cf.flags()...)

	return &cli.Command{
		Name:  "query",
		Usage: "Answer a single question against the indexed data",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			uc, err := cf.configure(ctx)
			if err != nil {
				return err
			}

			result, err := uc.Query.RunQuery(ctx, types.NewSessionID(), question, cf.topK, func(fragment string) error {
				_, err := fmt.Fprint(os.Stdout, fragment)
				return err
			})
			if err != nil {
				return goerr.Wrap(err, "query failed")
			}
			safe.Write(ctx, os.Stdout, []byte("\n"))

			printCitations(ctx, result.Citations)
			return nil
		},
	}
}
