package cli

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/gerri/pkg/cli/config"
	"github.com/secmon-lab/gerri/pkg/service/embedding"
	"github.com/secmon-lab/gerri/pkg/service/index"
	"github.com/secmon-lab/gerri/pkg/usecase"
	"github.com/secmon-lab/gerri/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdIndex() *cli.Command {
	var input string
	var configPath string
	var indexPath string
	var datasetPath string
	var dimension int
	var llmCfg config.LLM

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "input",
			Aliases:     []string{"i"},
			Usage:       "Tabular source file to ingest (.csv, .xlsx or .xlsm)",
			Required:    true,
			Sources:     cli.EnvVars("GERRI_INPUT"),
			Destination: &input,
		},
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Path to TOML configuration file",
			Sources:     cli.EnvVars("GERRI_CONFIG"),
			Destination: &configPath,
		},
		&cli.StringFlag{
			Name:        "index",
			Usage:       "Output path for the vector index (overrides config)",
			Sources:     cli.EnvVars("GERRI_INDEX"),
			Destination: &indexPath,
		},
		&cli.StringFlag{
			Name:        "dataset",
			Usage:       "Output path for the normalized dataset (overrides config)",
			Sources:     cli.EnvVars("GERRI_DATASET"),
			Destination: &datasetPath,
		},
		&cli.IntFlag{
			Name:        "dimension",
			Usage:       "Embedding dimension",
			Value:       embedding.DefaultDimension,
			Sources:     cli.EnvVars("GERRI_DIMENSION"),
			Destination: &dimension,
		},
	}
	flags = append(flags, llmCfg.Flags()...)

	return &cli.Command{
		Name:    "index",
		Aliases: []string{"ix"},
		Usage:   "Ingest a tabular file and build the vector index",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			appCfg, err := config.LoadAppConfig(configPath)
			if err != nil {
				return goerr.Wrap(err, "failed to load app configuration")
			}
			if indexPath == "" {
				indexPath = appCfg.Index.Path
			}
			if datasetPath == "" {
				datasetPath = appCfg.Index.DatasetPath
			}

			llmClient, err := llmCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to configure LLM backend")
			}

			embedder, err := embedding.New(llmClient, embedding.WithDimension(dimension))
			if err != nil {
				return goerr.Wrap(err, "failed to create embedding gateway")
			}

			logger := logging.Default()
			uc := usecase.New(index.New(embedder), nil, nil)

			result, err := uc.Ingest.ProcessAndIndex(ctx, usecase.IngestOption{
				Input:       input,
				IndexPath:   indexPath,
				DatasetPath: datasetPath,
				Progress: func(completed, total int) {
					logger.Info("indexing progress", "completed", completed, "total", total)
				},
			})
			if err != nil {
				return goerr.Wrap(err, "failed to ingest source", goerr.V("input", input))
			}

			logger.Info("indexing completed",
				"rows", result.Rows,
				"dimension", result.Dimension,
				"index", indexPath,
				"dataset", datasetPath,
			)
			return nil
		},
	}
}
