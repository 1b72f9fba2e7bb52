// Runtime YAML → SQLite ingestion for the knowledge corpora. Seed files
// declare documents and templates; embeddings are computed at ingest time
// when an embedding engine is configured.
package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"promptforge/internal/embedding"
	"promptforge/internal/logging"
	"promptforge/internal/types"
)

// CorpusLoader handles runtime loading of corpus seed files.
type CorpusLoader struct {
	engine embedding.Engine
}

// NewCorpusLoader creates a loader with optional embedding support.
// If engine is nil (or disabled), records are stored without embeddings and
// retrieval uses the quality-rank fallback.
func NewCorpusLoader(engine embedding.Engine) *CorpusLoader {
	return &CorpusLoader{engine: engine}
}

// corpusFile is the YAML shape of one seed file.
type corpusFile struct {
	Documents []documentSeed `yaml:"documents"`
	Templates []templateSeed `yaml:"templates"`
}

type documentSeed struct {
	Title        string   `yaml:"title"`
	Content      string   `yaml:"content"`
	DocumentType string   `yaml:"document_type"`
	TargetTools  []string `yaml:"target_tools"`
	Categories   []string `yaml:"categories"`
	Complexity   string   `yaml:"complexity"`
	QualityScore float64  `yaml:"quality_score"`
}

type templateSeed struct {
	Name         string   `yaml:"name"`
	Content      string   `yaml:"content"`
	TemplateType string   `yaml:"template_type"`
	TargetTool   string   `yaml:"target_tool"`
	UseCase      string   `yaml:"use_case"`
	Complexity   string   `yaml:"complexity"`
	RequiredVars []string `yaml:"required_vars"`
	OptionalVars []string `yaml:"optional_vars"`
	SuccessRate  float64  `yaml:"success_rate"`
}

// IngestStats summarizes one ingest run.
type IngestStats struct {
	DocumentsStored  int
	TemplatesStored  int
	DuplicatesSkipped int
}

// LoadFromYAML loads corpus records from a YAML file into the store.
func (l *CorpusLoader) LoadFromYAML(ctx context.Context, yamlPath string, ks *KnowledgeStore) (IngestStats, error) {
	timer := logging.StartTimer(logging.CategoryStore, "LoadFromYAML")
	defer timer.Stop()

	var stats IngestStats

	logging.Get(logging.CategoryStore).Info("Loading corpus seed file: %s", yamlPath)

	data, err := os.ReadFile(yamlPath)
	if err != nil {
		return stats, fmt.Errorf("failed to read seed file %s: %w", yamlPath, err)
	}

	var cf corpusFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return stats, fmt.Errorf("failed to parse seed file %s: %w", yamlPath, err)
	}

	for _, seed := range cf.Documents {
		doc := types.KnowledgeDocument{
			Title:        seed.Title,
			Content:      seed.Content,
			DocumentType: types.DocumentType(seed.DocumentType),
			TargetTools:  seed.TargetTools,
			Categories:   seed.Categories,
			Complexity:   complexityOrDefault(seed.Complexity),
			QualityScore: seed.QualityScore,
			IsActive:     true,
		}
		doc.Embedding = l.embedContent(ctx, seed.Title+"\n"+seed.Content)

		stored, err := ks.InsertDocument(doc)
		if err != nil {
			logging.Get(logging.CategoryStore).Error("Failed to store document %q: %v", seed.Title, err)
			continue
		}
		if stored {
			stats.DocumentsStored++
		} else {
			stats.DuplicatesSkipped++
		}
	}

	for _, seed := range cf.Templates {
		tpl := types.PromptTemplate{
			Name:         seed.Name,
			Content:      seed.Content,
			TemplateType: types.TemplateType(seed.TemplateType),
			TargetTool:   seed.TargetTool,
			UseCase:      seed.UseCase,
			Complexity:   complexityOrDefault(seed.Complexity),
			RequiredVars: seed.RequiredVars,
			OptionalVars: seed.OptionalVars,
			SuccessRate:  seed.SuccessRate,
			IsActive:     true,
		}
		tpl.Embedding = l.embedContent(ctx, seed.Name+"\n"+seed.Content)

		stored, err := ks.InsertTemplate(tpl)
		if err != nil {
			logging.Get(logging.CategoryStore).Error("Failed to store template %q: %v", seed.Name, err)
			continue
		}
		if stored {
			stats.TemplatesStored++
		} else {
			stats.DuplicatesSkipped++
		}
	}

	logging.Get(logging.CategoryStore).Info("Seed file %s: %d documents, %d templates, %d duplicates",
		filepath.Base(yamlPath), stats.DocumentsStored, stats.TemplatesStored, stats.DuplicatesSkipped)
	return stats, nil
}

// LoadFromDirectory recursively loads all YAML seed files from a directory.
func (l *CorpusLoader) LoadFromDirectory(ctx context.Context, dirPath string, ks *KnowledgeStore) (IngestStats, error) {
	timer := logging.StartTimer(logging.CategoryStore, "LoadFromDirectory")
	defer timer.Stop()

	var total IngestStats
	err := filepath.Walk(dirPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		stats, loadErr := l.LoadFromYAML(ctx, path, ks)
		if loadErr != nil {
			logging.Get(logging.CategoryStore).Warn("Failed to load %s: %v", path, loadErr)
			return nil // Continue processing other files
		}
		total.DocumentsStored += stats.DocumentsStored
		total.TemplatesStored += stats.TemplatesStored
		total.DuplicatesSkipped += stats.DuplicatesSkipped
		return nil
	})

	if err != nil {
		return total, fmt.Errorf("failed to walk directory %s: %w", dirPath, err)
	}
	return total, nil
}

// embedContent computes an embedding for ingest, returning nil on any
// failure so the record is still stored.
func (l *CorpusLoader) embedContent(ctx context.Context, text string) []float32 {
	if l.engine == nil {
		return nil
	}
	vec, err := embedding.EmbedForTask(ctx, l.engine, text, embedding.TaskRetrievalDocument)
	if err != nil {
		logging.StoreDebug("Embedding skipped at ingest: %v", err)
		return nil
	}
	return vec
}

func complexityOrDefault(s string) types.ComplexityTier {
	switch types.ComplexityTier(s) {
	case types.ComplexityBeginner, types.ComplexityIntermediate, types.ComplexityAdvanced:
		return types.ComplexityTier(s)
	default:
		return types.ComplexityIntermediate
	}
}
