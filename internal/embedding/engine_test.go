package embedding

import (
	"context"
	"errors"
	"math"
	"testing"

	"promptforge/internal/config"
)

func TestCosineSimilarity(t *testing.T) {
	a := []float32{1, 0, 0}
	b := []float32{1, 0, 0}
	sim, err := CosineSimilarity(a, b)
	if err != nil {
		t.Fatalf("CosineSimilarity: %v", err)
	}
	if math.Abs(sim-1.0) > 1e-9 {
		t.Fatalf("identical vectors similarity = %v, want 1.0", sim)
	}

	c := []float32{0, 1, 0}
	sim, err = CosineSimilarity(a, c)
	if err != nil {
		t.Fatalf("CosineSimilarity: %v", err)
	}
	if sim != 0 {
		t.Fatalf("orthogonal vectors similarity = %v, want 0", sim)
	}
}

func TestCosineSimilarityDimensionMismatch(t *testing.T) {
	if _, err := CosineSimilarity([]float32{1, 2}, []float32{1, 2, 3}); err == nil {
		t.Fatalf("expected error for dimension mismatch")
	}
}

func TestCosineSimilarityZeroVector(t *testing.T) {
	sim, err := CosineSimilarity([]float32{0, 0}, []float32{1, 1})
	if err != nil {
		t.Fatalf("zero vector should not error: %v", err)
	}
	if sim != 0 {
		t.Fatalf("zero vector similarity = %v, want 0", sim)
	}
}

func TestNewEngineDisabled(t *testing.T) {
	engine, err := NewEngine(config.EmbeddingConfig{Provider: "none"})
	if err != nil {
		t.Fatalf("NewEngine(none): %v", err)
	}
	if engine.Name() != "none" {
		t.Fatalf("engine name = %q, want none", engine.Name())
	}
	if _, err := engine.Embed(context.Background(), "anything"); !errors.Is(err, ErrEmbeddingDisabled) {
		t.Fatalf("expected ErrEmbeddingDisabled, got %v", err)
	}
}

func TestNewEngineUnknownProvider(t *testing.T) {
	if _, err := NewEngine(config.EmbeddingConfig{Provider: "word2vec"}); err == nil {
		t.Fatalf("expected error for unknown provider")
	}
}

func TestEmbedForTaskFallsBack(t *testing.T) {
	engine := NewDisabledEngine()
	if _, err := EmbedForTask(context.Background(), engine, "q", TaskRetrievalQuery); !errors.Is(err, ErrEmbeddingDisabled) {
		t.Fatalf("expected disabled error through EmbedForTask, got %v", err)
	}
}
