package main

import (
	"fmt"

	"go.uber.org/zap"

	"promptforge/internal/analytics"
	"promptforge/internal/config"
	"promptforge/internal/embedding"
	"promptforge/internal/engine"
	"promptforge/internal/enhance"
	"promptforge/internal/registry"
	"promptforge/internal/retrieval"
	"promptforge/internal/store"
)

// app bundles the wired pipeline and its cleanup.
type app struct {
	cfg    *config.Config
	engine *engine.Engine
	store  *store.KnowledgeStore
}

// newApp loads config and assembles the engine. A store that fails to open
// is a warning, not an error: the engine runs fully degraded without it.
func newApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	reg, err := loadRegistry(cfg)
	if err != nil {
		return nil, err
	}

	engEmbed, err := embedding.NewEngine(cfg.Embedding)
	if err != nil {
		return nil, err
	}

	var retriever engine.Retriever
	ks, err := store.NewKnowledgeStore(cfg.Store.DatabasePath)
	if err != nil {
		logger.Warn("knowledge store unavailable, running degraded", zap.Error(err))
		ks = nil
	} else {
		retriever = retrieval.NewSearcher(ks, engEmbed, cfg.Retrieval)
	}

	sink, err := analytics.NewSink(cfg.Analytics)
	if err != nil {
		return nil, err
	}

	var refiner engine.Refiner
	if cfg.IsEnhancementEnabled() {
		refiner = enhance.NewEnhancer(cfg.Enhancement, cfg.GetEnhancementTimeout())
	}

	return &app{
		cfg:    cfg,
		engine: engine.New(cfg, reg, retriever, refiner, sink),
		store:  ks,
	}, nil
}

func loadRegistry(cfg *config.Config) (*registry.Registry, error) {
	if cfg.Profiles.Directory != "" {
		return registry.LoadDirectory(cfg.Profiles.Directory)
	}
	return registry.LoadEmbedded()
}

// close flushes analytics and releases the store.
func (a *app) close() {
	if err := a.engine.Close(); err != nil {
		logger.Warn("analytics close failed", zap.Error(err))
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			logger.Warn("store close failed", zap.Error(err))
		}
	}
}
