// Command reindex rebuilds candidate index rows offline. With -stale it
// only touches candidates whose embedding predates the configured
// embedding version, which is how an embedding model upgrade is rolled
// out.
package main

import (
	"context"
	"flag"
	"log"

	"go.uber.org/zap"

	"talentmatch/internal/config"
	"talentmatch/internal/llm"
	"talentmatch/internal/logger"
	"talentmatch/internal/search"
	"talentmatch/internal/storage"
)

func main() {
	var staleOnly bool
	var dryRun bool
	flag.BoolVar(&staleOnly, "stale", false, "Only reindex candidates with an outdated embedding version")
	flag.BoolVar(&dryRun, "dry-run", false, "List candidate ids without rebuilding")
	flag.Parse()

	cfg := config.Load()
	zl, err := logger.New(cfg.LogJSON, cfg.LogDebug)
	if err != nil {
		log.Fatal("logger:", err)
	}
	defer zl.Sync()

	if cfg.DatabaseURL == "" {
		zl.Fatal("DATABASE_URL is required")
	}

	db, err := storage.NewDB(cfg.DatabaseURL)
	if err != nil {
		zl.Fatal("db open", zap.Error(err))
	}
	defer db.Close()

	llmService := llm.NewService(cfg.LLMProvider, cfg.LLMAPIKey, cfg.LLMModel, cfg.EmbeddingModel, zl)
	builder := search.NewBuilder(db, llmService, cfg.EmbeddingVersion, zl)

	ctx := context.Background()

	var ids []int64
	if staleOnly {
		ids, err = db.StaleEmbeddingCandidateIDs(ctx, cfg.EmbeddingVersion)
	} else {
		ids, err = db.ListActiveCandidateIDs(ctx, 0)
	}
	if err != nil {
		zl.Fatal("list candidates", zap.Error(err))
	}
	zl.Info("reindex run", zap.Int("candidates", len(ids)),
		zap.Bool("stale_only", staleOnly), zap.Bool("dry_run", dryRun))

	rebuilt, failed := 0, 0
	for _, id := range ids {
		if dryRun {
			zl.Info("would rebuild", zap.Int64("candidate_id", id))
			continue
		}
		candidate, err := db.GetCandidateByID(ctx, id)
		if err != nil {
			zl.Warn("load candidate failed", zap.Int64("candidate_id", id), zap.Error(err))
			failed++
			continue
		}
		if err := builder.Rebuild(ctx, candidate); err != nil {
			zl.Warn("rebuild failed", zap.Int64("candidate_id", id), zap.Error(err))
			failed++
			continue
		}
		rebuilt++
	}

	zl.Info("reindex done", zap.Int("rebuilt", rebuilt), zap.Int("failed", failed))
}
