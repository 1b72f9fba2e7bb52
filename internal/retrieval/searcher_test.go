package retrieval

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"promptforge/internal/config"
	"promptforge/internal/store"
	"promptforge/internal/types"
)

// fakeStore is an in-memory Store with controllable failure. The ANN path
// reports unavailable unless seeded with annDocs/annTpls.
type fakeStore struct {
	mu       sync.Mutex
	docs     []types.KnowledgeDocument
	tpls     []types.PromptTemplate
	annDocs  []types.RetrievedDocument
	annTpls  []types.RetrievedTemplate
	failAll  bool
	docBumps chan []string
	tplBumps chan []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		docBumps: make(chan []string, 8),
		tplBumps: make(chan []string, 8),
	}
}

func (f *fakeStore) ActiveDocuments(filter store.DocumentFilter) ([]types.KnowledgeDocument, error) {
	if f.failAll {
		return nil, errors.New("store down")
	}
	return f.docs, nil
}

func (f *fakeStore) QualityRankedDocuments(filter store.DocumentFilter, limit int) ([]types.KnowledgeDocument, error) {
	if f.failAll {
		return nil, errors.New("store down")
	}
	docs := append([]types.KnowledgeDocument(nil), f.docs...)
	for i := 1; i < len(docs); i++ {
		for j := i; j > 0 && docs[j].QualityScore > docs[j-1].QualityScore; j-- {
			docs[j], docs[j-1] = docs[j-1], docs[j]
		}
	}
	if len(docs) > limit {
		docs = docs[:limit]
	}
	return docs, nil
}

func (f *fakeStore) ANNDocuments(queryVec []float32, filter store.DocumentFilter, topK int) ([]types.RetrievedDocument, error) {
	if len(f.annDocs) == 0 {
		return nil, store.ErrVecUnavailable
	}
	docs := f.annDocs
	if len(docs) > topK {
		docs = docs[:topK]
	}
	return docs, nil
}

func (f *fakeStore) BumpDocumentRetrieval(ids []string) { f.docBumps <- ids }

func (f *fakeStore) ActiveTemplates(filter store.TemplateFilter) ([]types.PromptTemplate, error) {
	if f.failAll {
		return nil, errors.New("store down")
	}
	var out []types.PromptTemplate
	for _, tpl := range f.tpls {
		if filter.TargetTool != "" && tpl.TargetTool != filter.TargetTool {
			continue
		}
		out = append(out, tpl)
	}
	return out, nil
}

func (f *fakeStore) SuccessRankedTemplates(filter store.TemplateFilter, limit int) ([]types.PromptTemplate, error) {
	if f.failAll {
		return nil, errors.New("store down")
	}
	tpls, _ := f.ActiveTemplates(filter)
	if len(tpls) > limit {
		tpls = tpls[:limit]
	}
	return tpls, nil
}

func (f *fakeStore) ANNTemplates(queryVec []float32, filter store.TemplateFilter, topK int) ([]types.RetrievedTemplate, error) {
	if len(f.annTpls) == 0 {
		return nil, store.ErrVecUnavailable
	}
	tpls := f.annTpls
	if len(tpls) > topK {
		tpls = tpls[:topK]
	}
	return tpls, nil
}

func (f *fakeStore) BumpTemplateUsage(ids []string) { f.tplBumps <- ids }

// axisEngine embeds text as a fixed axis vector so similarity is exact:
// texts sharing a first rune embed identically.
type axisEngine struct{}

func (axisEngine) Embed(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, 4)
	if len(text) == 0 {
		return vec, nil
	}
	vec[int(text[0])%4] = 1
	return vec, nil
}

func (e axisEngine) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i], _ = e.Embed(ctx, t)
	}
	return out, nil
}

func (axisEngine) Dimensions() int { return 4 }
func (axisEngine) Name() string    { return "axis" }

func axisVec(i int) []float32 {
	vec := make([]float32, 4)
	vec[i%4] = 1
	return vec
}

func testConfig() config.RetrievalConfig {
	return config.RetrievalConfig{SimilarityThreshold: 0.5, MaxResults: 2}
}

func TestSearchDocumentsRanksAndTruncates(t *testing.T) {
	fs := newFakeStore()
	// "d" has byte 100, 100%4 == 0, so axis 0 matches the query "d...".
	fs.docs = []types.KnowledgeDocument{
		{ID: "far", Title: "far", Embedding: axisVec(1)},
		{ID: "hit1", Title: "hit1", Embedding: axisVec(0)},
		{ID: "hit2", Title: "hit2", Embedding: axisVec(0)},
		{ID: "hit3", Title: "hit3", Embedding: axisVec(0)},
	}

	s := NewSearcher(fs, axisEngine{}, testConfig())
	results, degraded := s.SearchDocuments(context.Background(), "design guidance", store.DocumentFilter{}, Options{})
	if degraded {
		t.Fatalf("search should not be degraded")
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want max 2", len(results))
	}
	for i, r := range results {
		if r.Similarity < 0 || r.Similarity > 1 {
			t.Fatalf("similarity out of range: %v", r.Similarity)
		}
		if i > 0 && results[i].Similarity > results[i-1].Similarity {
			t.Fatalf("results not sorted descending")
		}
		if r.Document.ID == "far" {
			t.Fatalf("below-threshold document returned")
		}
	}

	select {
	case ids := <-fs.docBumps:
		if len(ids) != 2 {
			t.Fatalf("bump called with %d ids, want 2", len(ids))
		}
	case <-time.After(time.Second):
		t.Fatalf("retrieval counter bump never happened")
	}
}

func TestSearchDocumentsIdempotentRanking(t *testing.T) {
	fs := newFakeStore()
	fs.docs = []types.KnowledgeDocument{
		{ID: "a", Title: "a", Embedding: axisVec(0)},
		{ID: "b", Title: "b", Embedding: axisVec(0)},
	}

	s := NewSearcher(fs, axisEngine{}, testConfig())
	first, _ := s.SearchDocuments(context.Background(), "docs", store.DocumentFilter{}, Options{})
	second, _ := s.SearchDocuments(context.Background(), "docs", store.DocumentFilter{}, Options{})

	if len(first) != len(second) {
		t.Fatalf("result counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Document.ID != second[i].Document.ID {
			t.Fatalf("ranking differs at %d: %s vs %s", i, first[i].Document.ID, second[i].Document.ID)
		}
	}
}

func TestSearchDocumentsEmptyQueryFallsBack(t *testing.T) {
	fs := newFakeStore()
	fs.docs = []types.KnowledgeDocument{
		{ID: "low", QualityScore: 0.2},
		{ID: "high", QualityScore: 0.9},
	}

	s := NewSearcher(fs, axisEngine{}, testConfig())
	results, degraded := s.SearchDocuments(context.Background(), "", store.DocumentFilter{}, Options{})
	if !degraded {
		t.Fatalf("empty query should report degraded mode")
	}
	if len(results) != 2 || results[0].Document.ID != "high" {
		t.Fatalf("fallback should rank by quality, got %v", results)
	}
}

func TestSearchDocumentsStoreFailureReturnsEmpty(t *testing.T) {
	fs := newFakeStore()
	fs.failAll = true

	s := NewSearcher(fs, axisEngine{}, testConfig())
	results, degraded := s.SearchDocuments(context.Background(), "anything", store.DocumentFilter{}, Options{})
	if !degraded {
		t.Fatalf("store failure should report degraded")
	}
	if len(results) != 0 {
		t.Fatalf("store failure should return empty results, got %d", len(results))
	}
}

func TestSearchTemplatesFilterAndThresholdOverride(t *testing.T) {
	fs := newFakeStore()
	fs.tpls = []types.PromptTemplate{
		{ID: "t1", Name: "match", TargetTool: "cursor", Embedding: axisVec(0)},
		{ID: "t2", Name: "other-tool", TargetTool: "v0", Embedding: axisVec(0)},
	}

	s := NewSearcher(fs, axisEngine{}, testConfig())
	results, degraded := s.SearchTemplates(context.Background(), "design", store.TemplateFilter{TargetTool: "cursor"}, Options{Threshold: 0.9})
	if degraded {
		t.Fatalf("search should not be degraded")
	}
	if len(results) != 1 || results[0].Template.ID != "t1" {
		t.Fatalf("tool filter violated: %v", results)
	}

	select {
	case <-fs.tplBumps:
	case <-time.After(time.Second):
		t.Fatalf("template usage bump never happened")
	}
}

func TestSearchDocumentsPrefersIndexedResults(t *testing.T) {
	fs := newFakeStore()
	// The full scan would return this document, but the indexed results
	// should win without touching it.
	fs.docs = []types.KnowledgeDocument{
		{ID: "scan-only", Embedding: axisVec(0)},
	}
	fs.annDocs = []types.RetrievedDocument{
		{Document: types.KnowledgeDocument{ID: "ann-1"}, Similarity: 0.95},
		{Document: types.KnowledgeDocument{ID: "ann-2"}, Similarity: 0.9},
		{Document: types.KnowledgeDocument{ID: "ann-low"}, Similarity: 0.1},
	}

	s := NewSearcher(fs, axisEngine{}, testConfig())
	results, degraded := s.SearchDocuments(context.Background(), "design", store.DocumentFilter{}, Options{MaxResults: 3})
	if degraded {
		t.Fatalf("indexed search should not be degraded")
	}
	if len(results) != 2 || results[0].Document.ID != "ann-1" || results[1].Document.ID != "ann-2" {
		t.Fatalf("indexed results not used as returned: %v", results)
	}

	select {
	case ids := <-fs.docBumps:
		if len(ids) != 2 {
			t.Fatalf("bump called with %d ids, want 2", len(ids))
		}
	case <-time.After(time.Second):
		t.Fatalf("retrieval counter bump never happened")
	}
}

func TestSearchTemplatesIndexUnavailableFallsThrough(t *testing.T) {
	fs := newFakeStore()
	fs.tpls = []types.PromptTemplate{
		{ID: "t1", Name: "match", TargetTool: "cursor", Embedding: axisVec(0)},
	}

	s := NewSearcher(fs, axisEngine{}, testConfig())
	results, degraded := s.SearchTemplates(context.Background(), "design", store.TemplateFilter{TargetTool: "cursor"}, Options{})
	if degraded {
		t.Fatalf("in-process ranking should not be degraded")
	}
	if len(results) != 1 || results[0].Template.ID != "t1" {
		t.Fatalf("fallback scan skipped: %v", results)
	}
}

func TestSearchSkipsDocumentsWithoutEmbeddings(t *testing.T) {
	fs := newFakeStore()
	fs.docs = []types.KnowledgeDocument{
		{ID: "no-vec"},
		{ID: "vec", Embedding: axisVec(0)},
	}

	s := NewSearcher(fs, axisEngine{}, testConfig())
	results, _ := s.SearchDocuments(context.Background(), "docs", store.DocumentFilter{}, Options{})
	if len(results) != 1 || results[0].Document.ID != "vec" {
		t.Fatalf("embedding-less document should be skipped in semantic mode: %v", results)
	}
}
