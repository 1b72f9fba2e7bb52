// Package retrieval performs similarity search over the two knowledge
// corpora. One searcher carries the threshold/filter/ranking logic for both
// corpus kinds; documents and templates only differ in their store accessors.
// Retrieval never fails the pipeline: every failure path degrades to an
// empty or quality-ranked result set with a logged warning.
package retrieval

import (
	"context"
	"errors"
	"sort"

	"promptforge/internal/config"
	"promptforge/internal/embedding"
	"promptforge/internal/logging"
	"promptforge/internal/store"
	"promptforge/internal/types"
)

// Store is the slice of the knowledge store the searcher needs. The ANN
// methods return store.ErrVecUnavailable on builds without the sqlite-vec
// extension; the searcher then ranks in-process.
type Store interface {
	ActiveDocuments(filter store.DocumentFilter) ([]types.KnowledgeDocument, error)
	QualityRankedDocuments(filter store.DocumentFilter, limit int) ([]types.KnowledgeDocument, error)
	ANNDocuments(queryVec []float32, filter store.DocumentFilter, topK int) ([]types.RetrievedDocument, error)
	BumpDocumentRetrieval(ids []string)

	ActiveTemplates(filter store.TemplateFilter) ([]types.PromptTemplate, error)
	SuccessRankedTemplates(filter store.TemplateFilter, limit int) ([]types.PromptTemplate, error)
	ANNTemplates(queryVec []float32, filter store.TemplateFilter, topK int) ([]types.RetrievedTemplate, error)
	BumpTemplateUsage(ids []string)
}

// Searcher runs similarity retrieval against one store with one embedding
// engine. Safe for concurrent use: all state is read-only after construction.
type Searcher struct {
	store      Store
	engine     embedding.Engine
	threshold  float64
	maxResults int
}

// Options override the configured threshold and result cap per call.
// Zero values keep the defaults.
type Options struct {
	Threshold  float64
	MaxResults int
}

// NewSearcher creates a searcher with defaults from the retrieval config.
func NewSearcher(st Store, engine embedding.Engine, cfg config.RetrievalConfig) *Searcher {
	threshold := cfg.SimilarityThreshold
	if threshold <= 0 {
		threshold = 0.5
	}
	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 5
	}
	return &Searcher{
		store:      st,
		engine:     engine,
		threshold:  threshold,
		maxResults: maxResults,
	}
}

func (s *Searcher) resolveOptions(opts Options) (float64, int) {
	threshold := s.threshold
	if opts.Threshold > 0 {
		threshold = opts.Threshold
	}
	maxResults := s.maxResults
	if opts.MaxResults > 0 {
		maxResults = opts.MaxResults
	}
	return threshold, maxResults
}

// SearchDocuments returns documents ranked by descending similarity to the
// query, capped at the result limit. The degraded flag reports that the call
// fell back to quality ranking (no query or no embeddings) or hit a store
// failure.
func (s *Searcher) SearchDocuments(ctx context.Context, query string, filter store.DocumentFilter, opts Options) ([]types.RetrievedDocument, bool) {
	timer := logging.StartTimer(logging.CategoryRetrieval, "SearchDocuments")
	defer timer.Stop()

	threshold, maxResults := s.resolveOptions(opts)

	queryVec, degraded := s.embedQuery(ctx, query)
	if degraded {
		docs, err := s.store.QualityRankedDocuments(filter, maxResults)
		if err != nil {
			logging.Get(logging.CategoryRetrieval).Warn("Document fallback scan failed: %v", err)
			return nil, true
		}
		results := make([]types.RetrievedDocument, 0, len(docs))
		var ids []string
		for _, d := range docs {
			results = append(results, types.RetrievedDocument{Document: d, Similarity: types.ClampUnit(d.QualityScore)})
			ids = append(ids, d.ID)
		}
		s.bumpDocuments(ids)
		logging.RetrievalDebug("Document retrieval degraded: %d quality-ranked results", len(results))
		return results, true
	}

	// An empty ANN result falls through to the in-process scan, which also
	// covers rows ingested before the index existed.
	if ann, err := s.store.ANNDocuments(queryVec, filter, maxResults); err == nil && len(ann) > 0 {
		results := thresholdDocuments(ann, threshold)
		ids := make([]string, 0, len(results))
		for _, r := range results {
			ids = append(ids, r.Document.ID)
		}
		s.bumpDocuments(ids)
		logging.RetrievalDebug("Document retrieval (ANN): %d results above threshold %.2f", len(results), threshold)
		return results, false
	} else if err != nil && !errors.Is(err, store.ErrVecUnavailable) {
		logging.RetrievalDebug("ANN document search failed, ranking in-process: %v", err)
	}

	docs, err := s.store.ActiveDocuments(filter)
	if err != nil {
		logging.Get(logging.CategoryRetrieval).Warn("Document scan failed: %v", err)
		return nil, true
	}

	type scored struct {
		doc types.KnowledgeDocument
		sim float64
	}
	var candidates []scored
	for _, d := range docs {
		if len(d.Embedding) == 0 {
			continue
		}
		sim, err := embedding.CosineSimilarity(queryVec, d.Embedding)
		if err != nil {
			continue
		}
		sim = types.ClampUnit(sim)
		if sim < threshold {
			continue
		}
		candidates = append(candidates, scored{doc: d, sim: sim})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].sim > candidates[j].sim
	})
	if len(candidates) > maxResults {
		candidates = candidates[:maxResults]
	}

	results := make([]types.RetrievedDocument, 0, len(candidates))
	var ids []string
	for _, c := range candidates {
		results = append(results, types.RetrievedDocument{Document: c.doc, Similarity: c.sim})
		ids = append(ids, c.doc.ID)
	}
	s.bumpDocuments(ids)

	logging.RetrievalDebug("Document retrieval: %d/%d candidates above threshold %.2f", len(results), len(docs), threshold)
	return results, false
}

// SearchTemplates mirrors SearchDocuments for the template corpus.
func (s *Searcher) SearchTemplates(ctx context.Context, query string, filter store.TemplateFilter, opts Options) ([]types.RetrievedTemplate, bool) {
	timer := logging.StartTimer(logging.CategoryRetrieval, "SearchTemplates")
	defer timer.Stop()

	threshold, maxResults := s.resolveOptions(opts)

	queryVec, degraded := s.embedQuery(ctx, query)
	if degraded {
		tpls, err := s.store.SuccessRankedTemplates(filter, maxResults)
		if err != nil {
			logging.Get(logging.CategoryRetrieval).Warn("Template fallback scan failed: %v", err)
			return nil, true
		}
		results := make([]types.RetrievedTemplate, 0, len(tpls))
		var ids []string
		for _, tpl := range tpls {
			results = append(results, types.RetrievedTemplate{Template: tpl, Similarity: types.ClampUnit(tpl.SuccessRate)})
			ids = append(ids, tpl.ID)
		}
		s.bumpTemplates(ids)
		logging.RetrievalDebug("Template retrieval degraded: %d success-ranked results", len(results))
		return results, true
	}

	if ann, err := s.store.ANNTemplates(queryVec, filter, maxResults); err == nil && len(ann) > 0 {
		results := thresholdTemplates(ann, threshold)
		ids := make([]string, 0, len(results))
		for _, r := range results {
			ids = append(ids, r.Template.ID)
		}
		s.bumpTemplates(ids)
		logging.RetrievalDebug("Template retrieval (ANN): %d results above threshold %.2f", len(results), threshold)
		return results, false
	} else if err != nil && !errors.Is(err, store.ErrVecUnavailable) {
		logging.RetrievalDebug("ANN template search failed, ranking in-process: %v", err)
	}

	tpls, err := s.store.ActiveTemplates(filter)
	if err != nil {
		logging.Get(logging.CategoryRetrieval).Warn("Template scan failed: %v", err)
		return nil, true
	}

	type scored struct {
		tpl types.PromptTemplate
		sim float64
	}
	var candidates []scored
	for _, tpl := range tpls {
		if len(tpl.Embedding) == 0 {
			continue
		}
		sim, err := embedding.CosineSimilarity(queryVec, tpl.Embedding)
		if err != nil {
			continue
		}
		sim = types.ClampUnit(sim)
		if sim < threshold {
			continue
		}
		candidates = append(candidates, scored{tpl: tpl, sim: sim})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].sim > candidates[j].sim
	})
	if len(candidates) > maxResults {
		candidates = candidates[:maxResults]
	}

	results := make([]types.RetrievedTemplate, 0, len(candidates))
	var ids []string
	for _, c := range candidates {
		results = append(results, types.RetrievedTemplate{Template: c.tpl, Similarity: c.sim})
		ids = append(ids, c.tpl.ID)
	}
	s.bumpTemplates(ids)

	logging.RetrievalDebug("Template retrieval: %d/%d candidates above threshold %.2f", len(results), len(tpls), threshold)
	return results, false
}

// embedQuery embeds the query text. The degraded flag is set for an empty
// query, a disabled engine, or an embedding failure; callers then use the
// non-semantic ranking path.
func (s *Searcher) embedQuery(ctx context.Context, query string) ([]float32, bool) {
	if query == "" || s.engine == nil {
		return nil, true
	}
	vec, err := embedding.EmbedForTask(ctx, s.engine, query, embedding.TaskRetrievalQuery)
	if err != nil {
		if !errors.Is(err, embedding.ErrEmbeddingDisabled) {
			logging.Get(logging.CategoryRetrieval).Warn("Query embedding failed, falling back: %v", err)
		}
		return nil, true
	}
	return vec, false
}

// Usage counters are bumped once per retrieval call, decoupled from the
// read path.
func (s *Searcher) bumpDocuments(ids []string) {
	if len(ids) == 0 {
		return
	}
	go s.store.BumpDocumentRetrieval(ids)
}

func (s *Searcher) bumpTemplates(ids []string) {
	if len(ids) == 0 {
		return
	}
	go s.store.BumpTemplateUsage(ids)
}

// thresholdDocuments keeps ANN results at or above the similarity floor.
// The index returns them nearest first, so order is preserved.
func thresholdDocuments(ann []types.RetrievedDocument, threshold float64) []types.RetrievedDocument {
	results := make([]types.RetrievedDocument, 0, len(ann))
	for _, r := range ann {
		if r.Similarity < threshold {
			continue
		}
		results = append(results, r)
	}
	return results
}

func thresholdTemplates(ann []types.RetrievedTemplate, threshold float64) []types.RetrievedTemplate {
	results := make([]types.RetrievedTemplate, 0, len(ann))
	for _, r := range ann {
		if r.Similarity < threshold {
			continue
		}
		results = append(results, r)
	}
	return results
}
