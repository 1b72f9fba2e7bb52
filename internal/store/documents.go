package store

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"promptforge/internal/logging"
	"promptforge/internal/types"
)

// =============================================================================
// DOCUMENT CORPUS
// =============================================================================

// DocumentFilter narrows a document scan. Zero-valued fields match anything.
type DocumentFilter struct {
	TargetTools []string
	Categories  []string
	Complexity  types.ComplexityTier
}

// ContentHash returns the dedup key for a document or template body.
func ContentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// InsertDocument stores a document, deduplicating on content hash.
// Returns false if an identical document already exists.
func (s *KnowledgeStore) InsertDocument(doc types.KnowledgeDocument) (bool, error) {
	timer := logging.StartTimer(logging.CategoryStore, "InsertDocument")
	defer timer.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()

	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.ContentHash == "" {
		doc.ContentHash = ContentHash(doc.Content)
	}

	toolsJSON, _ := json.Marshal(doc.TargetTools)
	catsJSON, _ := json.Marshal(doc.Categories)

	res, err := s.db.Exec(
		`INSERT OR IGNORE INTO documents
		 (id, title, content, document_type, target_tools, categories, complexity,
		  embedding, content_hash, quality_score, is_active)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.Title, doc.Content, string(doc.DocumentType),
		string(toolsJSON), string(catsJSON), string(doc.Complexity),
		encodeFloat32Slice(doc.Embedding), doc.ContentHash,
		types.ClampUnit(doc.QualityScore), boolToInt(doc.IsActive),
	)
	if err != nil {
		logging.Get(logging.CategoryStore).Error("Failed to insert document %q: %v", doc.Title, err)
		return false, fmt.Errorf("failed to insert document: %w", err)
	}

	n, _ := res.RowsAffected()
	if n == 0 {
		logging.StoreDebug("Document %q skipped (duplicate content hash)", doc.Title)
		return false, nil
	}

	s.indexDocumentVec(doc.ID, doc.Embedding)
	logging.StoreDebug("Document %q stored (id=%s)", doc.Title, doc.ID)
	return true, nil
}

// ActiveDocuments returns all active documents matching the filter, with
// embeddings decoded. Similarity ranking happens in the retrieval layer.
func (s *KnowledgeStore) ActiveDocuments(filter DocumentFilter) ([]types.KnowledgeDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT id, title, content, document_type, target_tools, categories, complexity, embedding, content_hash, quality_score, retrieval_count, is_active, created_at FROM documents WHERE is_active = 1"
	var args []interface{}
	if filter.Complexity != "" {
		query += " AND complexity = ?"
		args = append(args, string(filter.Complexity))
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("document scan failed: %w", err)
	}
	defer rows.Close()

	var docs []types.KnowledgeDocument
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			logging.StoreDebug("Skipping unreadable document row: %v", err)
			continue
		}
		if !matchesAny(doc.TargetTools, filter.TargetTools) {
			continue
		}
		if !matchesAny(doc.Categories, filter.Categories) {
			continue
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// QualityRankedDocuments returns active documents matching the filter,
// ordered by quality score. This is the degraded path used when no query
// text (or no embedding engine) is available.
func (s *KnowledgeStore) QualityRankedDocuments(filter DocumentFilter, limit int) ([]types.KnowledgeDocument, error) {
	if limit <= 0 {
		limit = 10
	}
	docs, err := s.ActiveDocuments(filter)
	if err != nil {
		return nil, err
	}
	sortDocumentsByQuality(docs)
	if len(docs) > limit {
		docs = docs[:limit]
	}
	return docs, nil
}

// BumpDocumentRetrieval increments the retrieval counter for each id exactly
// once. Called off the read path; failures are logged and swallowed.
func (s *KnowledgeStore) BumpDocumentRetrieval(ids []string) {
	if len(ids) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return
	}

	placeholders := strings.TrimRight(strings.Repeat("?,", len(ids)), ",")
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	_, err := s.db.Exec(
		fmt.Sprintf("UPDATE documents SET retrieval_count = retrieval_count + 1 WHERE id IN (%s)", placeholders),
		args...,
	)
	if err != nil {
		logging.Get(logging.CategoryStore).Warn("Failed to bump document retrieval counters: %v", err)
		return
	}
	logging.StoreDebug("Bumped retrieval count for %d documents", len(ids))
}

// DocumentCount returns the number of active documents.
func (s *KnowledgeStore) DocumentCount() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM documents WHERE is_active = 1").Scan(&n)
	return n, err
}

func scanDocument(rows *sql.Rows) (types.KnowledgeDocument, error) {
	var doc types.KnowledgeDocument
	var docType, toolsJSON, catsJSON, complexity string
	var embedding []byte
	var active int

	err := rows.Scan(&doc.ID, &doc.Title, &doc.Content, &docType, &toolsJSON, &catsJSON,
		&complexity, &embedding, &doc.ContentHash, &doc.QualityScore,
		&doc.RetrievalCount, &active, &doc.CreatedAt)
	if err != nil {
		return doc, err
	}

	doc.DocumentType = types.DocumentType(docType)
	doc.Complexity = types.ComplexityTier(complexity)
	doc.IsActive = active != 0
	doc.Embedding = decodeFloat32Slice(embedding)
	json.Unmarshal([]byte(toolsJSON), &doc.TargetTools)
	json.Unmarshal([]byte(catsJSON), &doc.Categories)
	return doc, nil
}

// matchesAny reports whether have intersects want. An empty want matches
// everything; an empty have matches only an empty want.
func matchesAny(have, want []string) bool {
	if len(want) == 0 {
		return true
	}
	for _, w := range want {
		for _, h := range have {
			if h == w {
				return true
			}
		}
	}
	return false
}

func sortDocumentsByQuality(docs []types.KnowledgeDocument) {
	// Insertion sort keeps creation order among equal scores.
	for i := 1; i < len(docs); i++ {
		for j := i; j > 0 && docs[j].QualityScore > docs[j-1].QualityScore; j-- {
			docs[j], docs[j-1] = docs[j-1], docs[j]
		}
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
