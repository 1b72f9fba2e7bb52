package store

import (
	"os"
	"path/filepath"
	"testing"

	"promptforge/internal/types"
)

func testStore(t *testing.T) *KnowledgeStore {
	t.Helper()
	ks, err := NewKnowledgeStore(filepath.Join(t.TempDir(), "knowledge.db"))
	if err != nil {
		t.Fatalf("NewKnowledgeStore: %v", err)
	}
	t.Cleanup(func() { ks.Close() })
	return ks
}

func TestInsertDocumentDedup(t *testing.T) {
	ks := testStore(t)

	doc := types.KnowledgeDocument{
		Title:        "React component structure",
		Content:      "Keep components small and focused.",
		DocumentType: types.DocumentBestPractice,
		TargetTools:  []string{"toolA"},
		Categories:   []string{"ui"},
		Complexity:   types.ComplexityIntermediate,
		QualityScore: 0.8,
		IsActive:     true,
	}

	stored, err := ks.InsertDocument(doc)
	if err != nil {
		t.Fatalf("InsertDocument: %v", err)
	}
	if !stored {
		t.Fatalf("first insert should store")
	}

	// Same content, different title metadata: hash is over content only.
	stored, err = ks.InsertDocument(doc)
	if err != nil {
		t.Fatalf("InsertDocument duplicate: %v", err)
	}
	if stored {
		t.Fatalf("duplicate content should be skipped")
	}

	n, err := ks.DocumentCount()
	if err != nil {
		t.Fatalf("DocumentCount: %v", err)
	}
	if n != 1 {
		t.Fatalf("document count = %d, want 1", n)
	}
}

func TestActiveDocumentsFilters(t *testing.T) {
	ks := testStore(t)

	docs := []types.KnowledgeDocument{
		{Title: "A", Content: "content a", DocumentType: types.DocumentGuide, TargetTools: []string{"toolA"}, Categories: []string{"ui"}, Complexity: types.ComplexityBeginner, IsActive: true},
		{Title: "B", Content: "content b", DocumentType: types.DocumentGuide, TargetTools: []string{"toolB"}, Categories: []string{"backend"}, Complexity: types.ComplexityAdvanced, IsActive: true},
		{Title: "C", Content: "content c", DocumentType: types.DocumentGuide, TargetTools: []string{"toolA", "toolB"}, Categories: []string{"ui"}, Complexity: types.ComplexityBeginner, IsActive: false},
	}
	for _, d := range docs {
		if _, err := ks.InsertDocument(d); err != nil {
			t.Fatalf("InsertDocument(%s): %v", d.Title, err)
		}
	}

	got, err := ks.ActiveDocuments(DocumentFilter{TargetTools: []string{"toolA"}})
	if err != nil {
		t.Fatalf("ActiveDocuments: %v", err)
	}
	if len(got) != 1 || got[0].Title != "A" {
		t.Fatalf("tool filter returned %d docs, want just A", len(got))
	}

	got, err = ks.ActiveDocuments(DocumentFilter{Complexity: types.ComplexityAdvanced})
	if err != nil {
		t.Fatalf("ActiveDocuments: %v", err)
	}
	if len(got) != 1 || got[0].Title != "B" {
		t.Fatalf("complexity filter returned wrong docs")
	}

	// Inactive documents never surface.
	got, err = ks.ActiveDocuments(DocumentFilter{})
	if err != nil {
		t.Fatalf("ActiveDocuments: %v", err)
	}
	for _, d := range got {
		if d.Title == "C" {
			t.Fatalf("inactive document returned")
		}
	}
}

func TestEmbeddingRoundTrip(t *testing.T) {
	ks := testStore(t)

	vec := []float32{0.1, -0.2, 0.3, 4.5}
	if _, err := ks.InsertDocument(types.KnowledgeDocument{
		Title: "V", Content: "vector doc", DocumentType: types.DocumentExample,
		Embedding: vec, IsActive: true,
	}); err != nil {
		t.Fatalf("InsertDocument: %v", err)
	}

	docs, err := ks.ActiveDocuments(DocumentFilter{})
	if err != nil {
		t.Fatalf("ActiveDocuments: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("got %d docs, want 1", len(docs))
	}
	got := docs[0].Embedding
	if len(got) != len(vec) {
		t.Fatalf("embedding length = %d, want %d", len(got), len(vec))
	}
	for i := range vec {
		if got[i] != vec[i] {
			t.Fatalf("embedding[%d] = %v, want %v", i, got[i], vec[i])
		}
	}
}

func TestBumpDocumentRetrieval(t *testing.T) {
	ks := testStore(t)

	if _, err := ks.InsertDocument(types.KnowledgeDocument{
		ID: "doc-1", Title: "T", Content: "bump me", DocumentType: types.DocumentGuide, IsActive: true,
	}); err != nil {
		t.Fatalf("InsertDocument: %v", err)
	}

	ks.BumpDocumentRetrieval([]string{"doc-1"})
	ks.BumpDocumentRetrieval([]string{"doc-1"})

	docs, err := ks.ActiveDocuments(DocumentFilter{})
	if err != nil {
		t.Fatalf("ActiveDocuments: %v", err)
	}
	if docs[0].RetrievalCount != 2 {
		t.Fatalf("retrieval count = %d, want 2", docs[0].RetrievalCount)
	}
}

func TestQualityRankedDocuments(t *testing.T) {
	ks := testStore(t)

	seeds := []struct {
		title string
		score float64
	}{
		{"low", 0.2}, {"high", 0.9}, {"mid", 0.5},
	}
	for _, s := range seeds {
		if _, err := ks.InsertDocument(types.KnowledgeDocument{
			Title: s.title, Content: "content " + s.title,
			DocumentType: types.DocumentGuide, QualityScore: s.score, IsActive: true,
		}); err != nil {
			t.Fatalf("InsertDocument(%s): %v", s.title, err)
		}
	}

	docs, err := ks.QualityRankedDocuments(DocumentFilter{}, 2)
	if err != nil {
		t.Fatalf("QualityRankedDocuments: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("got %d docs, want 2", len(docs))
	}
	if docs[0].Title != "high" || docs[1].Title != "mid" {
		t.Fatalf("quality order wrong: %s, %s", docs[0].Title, docs[1].Title)
	}
}

func TestTemplatesRoundTrip(t *testing.T) {
	ks := testStore(t)

	tpl := types.PromptTemplate{
		Name:         "web skeleton",
		Content:      "Build {{project_name}} as a {{task_type}}.",
		TemplateType: types.TemplateSkeleton,
		TargetTool:   "toolA",
		UseCase:      "web_app",
		Complexity:   types.ComplexityIntermediate,
		RequiredVars: []string{"project_name", "task_type"},
		SuccessRate:  0.7,
		IsActive:     true,
	}
	stored, err := ks.InsertTemplate(tpl)
	if err != nil || !stored {
		t.Fatalf("InsertTemplate: stored=%v err=%v", stored, err)
	}

	tpls, err := ks.ActiveTemplates(TemplateFilter{TargetTool: "toolA", TemplateType: types.TemplateSkeleton})
	if err != nil {
		t.Fatalf("ActiveTemplates: %v", err)
	}
	if len(tpls) != 1 {
		t.Fatalf("got %d templates, want 1", len(tpls))
	}
	if len(tpls[0].RequiredVars) != 2 {
		t.Fatalf("required vars not round-tripped: %v", tpls[0].RequiredVars)
	}

	tpls, err = ks.ActiveTemplates(TemplateFilter{TargetTool: "toolB"})
	if err != nil {
		t.Fatalf("ActiveTemplates: %v", err)
	}
	if len(tpls) != 0 {
		t.Fatalf("tool filter should exclude toolA template")
	}
}

func TestSuccessRankedTemplates(t *testing.T) {
	ks := testStore(t)

	for _, s := range []struct {
		name string
		rate float64
	}{{"weak", 0.3}, {"strong", 0.9}} {
		if _, err := ks.InsertTemplate(types.PromptTemplate{
			Name: s.name, Content: "tpl " + s.name, TemplateType: types.TemplateSkeleton,
			SuccessRate: s.rate, IsActive: true,
		}); err != nil {
			t.Fatalf("InsertTemplate(%s): %v", s.name, err)
		}
	}

	tpls, err := ks.SuccessRankedTemplates(TemplateFilter{}, 1)
	if err != nil {
		t.Fatalf("SuccessRankedTemplates: %v", err)
	}
	if len(tpls) != 1 || tpls[0].Name != "strong" {
		t.Fatalf("expected strongest template first, got %v", tpls)
	}
}

func TestStoreCreatesParentDirectory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "deep", "knowledge.db")

	ks, err := NewKnowledgeStore(path)
	if err != nil {
		t.Fatalf("NewKnowledgeStore: %v", err)
	}
	defer ks.Close()

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("database file not created: %v", err)
	}
}
