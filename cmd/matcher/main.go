package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/promobg/matcher/internal/config"
	"github.com/promobg/matcher/internal/export"
	"github.com/promobg/matcher/internal/extract"
	"github.com/promobg/matcher/internal/group"
	"github.com/promobg/matcher/internal/match"
	"github.com/promobg/matcher/internal/normalize"
	"github.com/promobg/matcher/internal/oracle"
	"github.com/promobg/matcher/internal/pipeline"
	"github.com/promobg/matcher/internal/store"
	"github.com/promobg/matcher/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "", "directory containing matching.yaml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	log := logger.Get()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	command := flag.Arg(0)
	if command == "" {
		command = "run"
	}

	switch command {
	case "run":
		err = runMatching(ctx, cfg, log)
	case "export":
		path := flag.Arg(1)
		if path == "" {
			path = "product_groups.json"
		}
		err = exportJSON(ctx, cfg, log, path)
	case "stats":
		err = printStats(ctx, cfg, log)
	default:
		fmt.Fprintf(os.Stderr, "usage: matcher [-config dir] [run|export <path>|stats]\n")
		os.Exit(2)
	}

	if err != nil {
		log.Fatal("command failed", zap.String("command", command), zap.Error(err))
	}
}

func runMatching(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	st, err := store.New(cfg.Database.DSN, cfg.Database.MaxOpenConns, log)
	if err != nil {
		return err
	}
	defer st.Close()

	p := buildPipeline(cfg, log, st)

	summary, err := p.Run(ctx)
	if err != nil {
		return err
	}

	log.Info("matching finished",
		zap.Int("groups", summary.GroupsBuilt),
		zap.Duration("took", summary.Duration))
	return nil
}

func buildPipeline(cfg *config.Config, log *zap.Logger, st *store.Store) *pipeline.Pipeline {
	normalizer := normalize.New(cfg.Dict.PromoPhrases, cfg.Dict.Stopwords, cfg.Dict.Lexicon, cfg.Matching.MinTokenLen)
	brands := extract.NewBrandExtractor(cfg.Dict.Brands)
	categories := extract.NewCategoryClassifier(cfg.Dict.CategoryKeywords, cfg.Dict.GenericCategories)

	canon := pipeline.NewCanonicalizer(normalizer, brands, categories)
	gates := match.NewGates(cfg.Matching, categories.IsGeneric, cfg.Dict.IncompatibleTypes)
	matcher := match.New(cfg.Matching, gates, normalizer.Tokenize)
	builder := group.NewBuilder(gates)

	embedder := oracle.New(cfg.Oracle)
	indexer := export.New(cfg.Meili, log)

	return pipeline.New(cfg.Matching, log, canon, matcher, builder, st, embedder, indexer)
}

func exportJSON(ctx context.Context, cfg *config.Config, log *zap.Logger, path string) error {
	st, err := store.New(cfg.Database.DSN, cfg.Database.MaxOpenConns, log)
	if err != nil {
		return err
	}
	defer st.Close()

	groups, err := st.LoadGroups(ctx)
	if err != nil {
		return err
	}

	exporter := export.New(cfg.Meili, log)
	return exporter.WriteJSON(path, groups)
}

func printStats(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	st, err := store.New(cfg.Database.DSN, cfg.Database.MaxOpenConns, log)
	if err != nil {
		return err
	}
	defer st.Close()

	stats, err := st.RunStats(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("groups: %d\n", stats.Groups)
	fmt.Printf("avg savings: %.1f%%  max savings: %.1f%%\n", stats.AvgSavingsPct, stats.MaxSavingsPct)
	for matchType, count := range stats.MatchesByType {
		fmt.Printf("matches (%s): %d\n", matchType, count)
	}
	return nil
}
