package embedding

import (
	"context"
	"errors"
)

// ErrEmbeddingDisabled is returned by the disabled engine. Callers treat it
// as a signal to fall back to non-semantic retrieval, not as a failure.
var ErrEmbeddingDisabled = errors.New("embedding disabled")

// DisabledEngine is the no-provider engine. Every Embed call returns
// ErrEmbeddingDisabled so retrieval falls back to quality-rank mode.
type DisabledEngine struct{}

// NewDisabledEngine creates the disabled engine.
func NewDisabledEngine() *DisabledEngine {
	return &DisabledEngine{}
}

func (e *DisabledEngine) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, ErrEmbeddingDisabled
}

func (e *DisabledEngine) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, ErrEmbeddingDisabled
}

func (e *DisabledEngine) Dimensions() int { return 0 }

func (e *DisabledEngine) Name() string { return "none" }
