package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"workorder-rag/internal/chunker"
	"workorder-rag/internal/config"
	"workorder-rag/internal/db"
	"workorder-rag/internal/docstore"
	"workorder-rag/internal/embedding"
	"workorder-rag/internal/llmservice"
	"workorder-rag/internal/rag"
)

const defaultConfigPath = "./configs/config.yaml"

var (
	configPath string
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "workorder-rag",
	Short:         "Generate maintenance work orders grounded on regulations and the equipment catalog",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return fmt.Errorf("error loading config: %w", err)
		}
		cfg = loaded
		setLogLevel(cfg.Log.Level)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to the config file")
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Caller().Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		log.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}

func setLogLevel(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		log.Warn().Str("level", level).Msg("Unknown log level, using info")
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

// newPipeline wires the request pipeline from cfg.
func newPipeline() (*rag.RAG, error) {
	tokenizer, err := chunker.NewTiktoken(cfg.RAG.Encoding)
	if err != nil {
		return nil, err
	}

	embedClient, err := embedding.NewClient(&cfg.EmbedLLM)
	if err != nil {
		return nil, err
	}

	model, err := llmservice.NewModel(&cfg.InferenceLLM)
	if err != nil {
		return nil, err
	}

	return rag.NewRAG(
		docstore.NewDir(cfg.Corpus.Root),
		chunker.NewSplitter(tokenizer),
		embedding.NewEmbedder(embedClient, cfg.RAG.EmbedBatchSize),
		llmservice.NewGenerator(model, &cfg.InferenceLLM),
		cfg,
	), nil
}

func openStore(ctx context.Context) (db.Store, error) {
	store, err := db.NewStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("error opening work order store: %w", err)
	}
	return store, nil
}
