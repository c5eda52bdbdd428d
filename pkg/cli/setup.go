package cli

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/gerri/pkg/cli/config"
	"github.com/secmon-lab/gerri/pkg/repository/memory"
	"github.com/secmon-lab/gerri/pkg/service/embedding"
	"github.com/secmon-lab/gerri/pkg/service/index"
	"github.com/secmon-lab/gerri/pkg/service/ingest"
	"github.com/secmon-lab/gerri/pkg/usecase"
	"github.com/secmon-lab/gerri/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// chatFlags are the flags shared by the query and chat commands
type chatFlags struct {
	configPath  string
	indexPath   string
	datasetPath string
	topK        int
	llmCfg      config.LLM
}

func (f *chatFlags) flags() []cli.Flag {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Path to TOML configuration file",
			Sources:     cli.EnvVars("GERRI_CONFIG"),
			Destination: &f.configPath,
		},
		&cli.StringFlag{
			Name:        "index",
			Usage:       "Path to the vector index built by the index command (overrides config)",
			Sources:     cli.EnvVars("GERRI_INDEX"),
			Destination: &f.indexPath,
		},
		&cli.StringFlag{
			Name:        "dataset",
			Usage:       "Path to the normalized dataset built by the index command (overrides config)",
			Sources:     cli.EnvVars("GERRI_DATASET"),
			Destination: &f.datasetPath,
		},
		&cli.IntFlag{
			Name:        "top-k",
			Usage:       "Number of context rows to retrieve per question (0 uses config)",
			Sources:     cli.EnvVars("GERRI_TOP_K"),
			Destination: &f.topK,
		},
	}
	return append(flags, f.llmCfg.Flags()...)
}

// configure loads persisted artifacts and wires the query pipeline
func (f *chatFlags) configure(ctx context.Context) (*usecase.UseCases, error) {
	appCfg, err := config.LoadAppConfig(f.configPath)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load app configuration")
	}
	if f.indexPath == "" {
		f.indexPath = appCfg.Index.Path
	}
	if f.datasetPath == "" {
		f.datasetPath = appCfg.Index.DatasetPath
	}
	if f.topK <= 0 {
		f.topK = appCfg.Chat.TopK
	}

	llmClient, err := f.llmCfg.Configure(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to configure LLM backend")
	}

	embedder, err := embedding.New(llmClient)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create embedding gateway")
	}

	idx := index.New(embedder)
	if err := idx.Load(f.indexPath); err != nil {
		return nil, goerr.Wrap(err, "failed to load index", goerr.V("path", f.indexPath))
	}

	dataset, err := ingest.LoadDataset(f.datasetPath)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load dataset", goerr.V("path", f.datasetPath))
	}
	if err := idx.AttachDataset(dataset); err != nil {
		return nil, goerr.Wrap(err, "failed to attach dataset to index")
	}

	logging.Default().Info("artifacts loaded",
		"index", f.indexPath,
		"dataset", f.datasetPath,
		"rows", idx.Count(),
		"dimension", idx.Dimension(),
	)

	sessions := memory.NewSessionRepository(memory.WithHistoryLimit(appCfg.Chat.HistoryLimit))
	return usecase.New(idx, sessions, llmClient,
		usecase.WithDefaultTopK(f.topK),
		usecase.WithInstructions(appCfg.Chat.Instructions),
	), nil
}
