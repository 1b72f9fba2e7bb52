// Package engine is the generation orchestrator: the public entry point that
// sequences normalization, retrieval, composition, enhancement, and scoring
// into one request. Every stage after the normalizer's mandatory-field check
// degrades gracefully; composition is the single stage with no fallback.
package engine

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"promptforge/internal/analytics"
	"promptforge/internal/compose"
	"promptforge/internal/config"
	"promptforge/internal/logging"
	"promptforge/internal/normalize"
	"promptforge/internal/registry"
	"promptforge/internal/retrieval"
	"promptforge/internal/score"
	"promptforge/internal/store"
	"promptforge/internal/types"
)

// Retriever is the two-corpora similarity search consumed by the engine.
// *retrieval.Searcher satisfies it.
type Retriever interface {
	SearchDocuments(ctx context.Context, query string, filter store.DocumentFilter, opts retrieval.Options) ([]types.RetrievedDocument, bool)
	SearchTemplates(ctx context.Context, query string, filter store.TemplateFilter, opts retrieval.Options) ([]types.RetrievedTemplate, bool)
}

// Refiner is the optional enhancement pass. *enhance.Enhancer satisfies it.
type Refiner interface {
	Enhance(ctx context.Context, draft string, profile *types.ToolProfile) (string, types.EnhancementOutcome)
	Enabled() bool
}

// Engine wires the pipeline stages together. Safe for concurrent use: the
// registry is read-only at request time and all per-request state is local.
type Engine struct {
	cfg       *config.Config
	registry  *registry.Registry
	retriever Retriever
	refiner   Refiner
	scorer    *score.Scorer
	sink      *analytics.Sink
}

// New assembles an engine. retriever, refiner, and sink may be nil: a nil
// retriever means every request runs fully degraded, a nil refiner disables
// enhancement, a nil sink drops analytics.
func New(cfg *config.Config, reg *registry.Registry, retriever Retriever, refiner Refiner, sink *analytics.Sink) *Engine {
	return &Engine{
		cfg:       cfg,
		registry:  reg,
		retriever: retriever,
		refiner:   refiner,
		scorer:    score.NewScorer(cfg.Scoring),
		sink:      sink,
	}
}

// Generate runs the full pipeline for one request. It returns either a
// complete GeneratedPrompt or one of the fatal error kinds
// (MissingRequiredFieldError, UnsupportedToolError, GenerationError); partial
// states are never exposed.
func (e *Engine) Generate(ctx context.Context, idea types.AppIdea, answers types.ValidationAnswers,
	toolID string, stage types.Stage) (*types.GeneratedPrompt, error) {

	start := time.Now()
	timer := logging.StartTimer(logging.CategoryEngine, "Generate")
	defer timer.Stop()

	if stage == "" {
		stage = types.StageSkeleton
	}

	profile, err := e.registry.GetProfile(toolID)
	if err != nil {
		return nil, err
	}

	task, project, err := normalize.Normalize(idea, answers, profile)
	if err != nil {
		return nil, err
	}

	docs, templates, stats := e.retrieve(ctx, project, answers, toolID, stage)

	draft, err := compose.Compose(task, project, profile, docs, templates, stage)
	if err != nil {
		return nil, &types.GenerationError{Err: err}
	}

	final := draft
	outcome := types.EnhancementOutcome{}
	if e.refiner != nil {
		final, outcome = e.refiner.Enhance(ctx, draft, profile)
		if strings.TrimSpace(final) == "" {
			final = draft
			outcome = types.EnhancementOutcome{}
		}
	}

	confidence := e.scorer.Confidence(task, stats, outcome)
	validation := score.Validate(final, project.Name, profile)

	prompt := &types.GeneratedPrompt{
		Content:            final,
		ToolID:             toolID,
		Stage:              stage,
		ConfidenceScore:    confidence,
		Suggestions:        assembleSuggestions(validation),
		ToolOptimizations:  profile.Optimizations,
		KnowledgeSources:   knowledgeSources(docs, templates),
		Enhancement:        outcome,
		NextSuggestedStage: types.NextStage(stage),
	}

	// A cancelled request emits no analytics event.
	if ctx.Err() == nil {
		e.sink.Record(types.AnalyticsEvent{
			EventID:      uuid.NewString(),
			ToolID:       toolID,
			Stage:        stage,
			Confidence:   confidence,
			PromptLength: len(final),
			Success:      validation.IsValid,
			Latency:      time.Since(start),
			Timestamp:    time.Now().UTC(),
		})
	}

	logging.Engine("Generated prompt tool=%s stage=%s confidence=%.2f sources=%d degraded=%v in %v",
		toolID, stage, confidence, len(prompt.KnowledgeSources), stats.Degraded, time.Since(start))
	return prompt, nil
}

// retrieve runs the document and template searches concurrently, bounded by
// the retrieval timeout. A set that does not arrive in time is treated as
// empty and marks the stats degraded, never as an error.
func (e *Engine) retrieve(ctx context.Context, project types.ProjectInfo, answers types.ValidationAnswers,
	toolID string, stage types.Stage) ([]types.RetrievedDocument, []types.RetrievedTemplate, types.RetrievalStats) {

	if e.retriever == nil {
		return nil, nil, types.RetrievalStats{Degraded: true}
	}

	retCtx, cancel := context.WithTimeout(ctx, e.cfg.GetRetrievalTimeout())
	defer cancel()

	query := strings.TrimSpace(project.Name + " " + project.Description)
	complexity := corpusTier(answers.Complexity)
	opts := retrieval.Options{
		Threshold:  e.cfg.Retrieval.SimilarityThreshold,
		MaxResults: e.cfg.Retrieval.MaxResults,
	}

	var (
		docs         []types.RetrievedDocument
		templates    []types.RetrievedTemplate
		docsDegraded bool
		tplsDegraded bool
	)

	g, gctx := errgroup.WithContext(retCtx)
	g.Go(func() error {
		type result struct {
			docs     []types.RetrievedDocument
			degraded bool
		}
		ch := make(chan result, 1)
		go func() {
			d, deg := e.retriever.SearchDocuments(gctx, query,
				store.DocumentFilter{TargetTools: []string{toolID}, Complexity: complexity}, opts)
			ch <- result{d, deg}
		}()
		select {
		case r := <-ch:
			docs, docsDegraded = r.docs, r.degraded
		case <-gctx.Done():
			docsDegraded = true
		}
		return nil
	})
	g.Go(func() error {
		type result struct {
			templates []types.RetrievedTemplate
			degraded  bool
		}
		ch := make(chan result, 1)
		go func() {
			tpl, deg := e.retriever.SearchTemplates(gctx, query,
				store.TemplateFilter{TargetTool: toolID, TemplateType: templateTypeFor(stage), Complexity: complexity}, opts)
			ch <- result{tpl, deg}
		}()
		select {
		case r := <-ch:
			templates, tplsDegraded = r.templates, r.degraded
		case <-gctx.Done():
			tplsDegraded = true
		}
		return nil
	})
	g.Wait()

	stats := types.RetrievalStats{
		DocumentCount: len(docs),
		TemplateCount: len(templates),
		AvgSimilarity: averageSimilarity(docs, templates),
		Degraded:      docsDegraded || tplsDegraded,
	}
	if stats.Degraded {
		logging.Engine("Retrieval degraded for tool=%s stage=%s (docs=%d templates=%d)",
			toolID, stage, stats.DocumentCount, stats.TemplateCount)
	}
	return docs, templates, stats
}

// Validate runs the structural checks over arbitrary prompt text. The
// companion entry point to Generate for callers holding existing prompts.
func (e *Engine) Validate(text string) types.ValidationResult {
	return score.Validate(text, "", nil)
}

// ListTools returns the registered tool ids in declaration order.
func (e *Engine) ListTools() []string {
	return e.registry.ListTools()
}

// ListStrategies returns a tool's strategies for a stage, best first.
func (e *Engine) ListStrategies(toolID string, stage types.Stage) ([]types.PromptingStrategy, error) {
	return e.registry.StrategiesFor(toolID, stage)
}

// Close flushes the analytics sink.
func (e *Engine) Close() error {
	return e.sink.Close()
}

// corpusTier maps the wizard's project complexity answer onto the tier scale
// the corpora are stored under. An unrecognized or empty answer leaves the
// filter open instead of matching nothing.
func corpusTier(answer string) types.ComplexityTier {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "simple", "beginner":
		return types.ComplexityBeginner
	case "medium", "intermediate":
		return types.ComplexityIntermediate
	case "complex", "advanced":
		return types.ComplexityAdvanced
	}
	return ""
}

func templateTypeFor(stage types.Stage) types.TemplateType {
	switch stage {
	case types.StageFeature:
		return types.TemplateFeature
	case types.StageOptimization:
		return types.TemplateOptimization
	case types.StageDebugging:
		return types.TemplateDebugging
	default:
		return types.TemplateSkeleton
	}
}

func averageSimilarity(docs []types.RetrievedDocument, templates []types.RetrievedTemplate) float64 {
	total := len(docs) + len(templates)
	if total == 0 {
		return 0
	}
	var sum float64
	for _, d := range docs {
		sum += d.Similarity
	}
	for _, t := range templates {
		sum += t.Similarity
	}
	return types.ClampUnit(sum / float64(total))
}

func knowledgeSources(docs []types.RetrievedDocument, templates []types.RetrievedTemplate) []string {
	if len(docs) == 0 && len(templates) == 0 {
		return nil
	}
	sources := make([]string, 0, len(docs)+len(templates))
	for _, d := range docs {
		sources = append(sources, d.Document.ID)
	}
	for _, t := range templates {
		sources = append(sources, t.Template.ID)
	}
	return sources
}

func assembleSuggestions(validation types.ValidationResult) []string {
	if len(validation.Issues) == 0 {
		return validation.Suggestions
	}
	suggestions := make([]string, 0, len(validation.Issues)+len(validation.Suggestions))
	for _, issue := range validation.Issues {
		suggestions = append(suggestions, issue.Message)
	}
	return append(suggestions, validation.Suggestions...)
}
