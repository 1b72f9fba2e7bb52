package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"promptforge/internal/config"
	"promptforge/internal/embedding"
	"promptforge/internal/store"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [path]",
	Short: "Load knowledge documents and templates into the store",
	Long: `Reads corpus YAML files (a documents list and a templates list) from a
file or directory and stores them in the knowledge database. Entries are
deduplicated by content hash, so re-running ingest is a no-op. Embeddings are
computed when an embedding provider is configured; otherwise entries are
stored without vectors and served through the quality-ranked fallback.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	engine, err := embedding.NewEngine(cfg.Embedding)
	if err != nil {
		return err
	}

	ks, err := store.NewKnowledgeStore(cfg.Store.DatabasePath)
	if err != nil {
		return err
	}
	defer ks.Close()

	loader := store.NewCorpusLoader(engine)

	info, err := os.Stat(args[0])
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", args[0], err)
	}

	var stats store.IngestStats
	if info.IsDir() {
		stats, err = loader.LoadFromDirectory(context.Background(), args[0], ks)
	} else {
		stats, err = loader.LoadFromYAML(context.Background(), args[0], ks)
	}
	if err != nil {
		return err
	}

	fmt.Println(successStyle.Render(fmt.Sprintf(
		"Ingested %d documents, %d templates (%d duplicates skipped)",
		stats.DocumentsStored, stats.TemplatesStored, stats.DuplicatesSkipped)))

	docs, err := ks.DocumentCount()
	if err != nil {
		return err
	}
	templates, err := ks.TemplateCount()
	if err != nil {
		return err
	}
	fmt.Println(dimStyle.Render(fmt.Sprintf("Store now holds %d documents and %d templates", docs, templates)))
	return nil
}
