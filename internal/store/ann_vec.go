//go:build sqlite_vec && cgo

package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"promptforge/internal/logging"
	"promptforge/internal/types"
)

// =============================================================================
// SQLITE-VEC ANN INDEX
// =============================================================================

// The vec0 index tables mirror the embedding of every corpus record keyed by
// its id. They are created lazily, sized to the first embedding seen.
// TODO: backfill the index for rows ingested by a build without the extension.

// ensureVecIndex creates the ANN index table on first use. Caller holds the
// write lock.
func (s *KnowledgeStore) ensureVecIndex(table string, dims int) bool {
	stmt := fmt.Sprintf(`CREATE VIRTUAL TABLE IF NOT EXISTS %s USING vec0(
		embedding float[%d],
		record_id TEXT
	)`, table, dims)
	if _, err := s.db.Exec(stmt); err != nil {
		logging.Get(logging.CategoryStore).Warn("Failed to create %s (sqlite-vec may not be available): %v", table, err)
		return false
	}
	return true
}

// indexDocumentVec mirrors a document embedding into the ANN index. Caller
// holds the write lock; failures are logged and swallowed.
func (s *KnowledgeStore) indexDocumentVec(id string, emb []float32) {
	s.indexVec("vec_documents", id, emb)
}

// indexTemplateVec mirrors a template embedding into the ANN index. Caller
// holds the write lock.
func (s *KnowledgeStore) indexTemplateVec(id string, emb []float32) {
	s.indexVec("vec_templates", id, emb)
}

func (s *KnowledgeStore) indexVec(table, id string, emb []float32) {
	if len(emb) == 0 {
		return
	}
	if !s.ensureVecIndex(table, len(emb)) {
		return
	}
	stmt := fmt.Sprintf("INSERT INTO %s (embedding, record_id) VALUES (?, ?)", table)
	if _, err := s.db.Exec(stmt, encodeFloat32Slice(emb), id); err != nil {
		logging.StoreDebug("Failed to index record %s in %s: %v", id, table, err)
	}
}

// annOverselect compensates for post-scan tool and category filtering, which
// cannot run inside the vec0 KNN query.
const annOverselect = 4

// ANNDocuments returns up to topK documents nearest the query embedding,
// using the vec0 index joined back to the base table.
func (s *KnowledgeStore) ANNDocuments(queryVec []float32, filter DocumentFilter, topK int) ([]types.RetrievedDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if topK <= 0 {
		topK = 10
	}

	query := `
		SELECT d.id, d.title, d.content, d.document_type, d.target_tools,
		       d.categories, d.complexity, d.embedding, d.content_hash,
		       d.quality_score, d.retrieval_count, d.is_active, d.created_at,
		       vec_distance_cosine(vd.embedding, ?) AS distance
		FROM vec_documents vd
		JOIN documents d ON vd.record_id = d.id
		WHERE d.is_active = 1`
	args := []interface{}{encodeFloat32Slice(queryVec)}
	if filter.Complexity != "" {
		query += " AND d.complexity = ?"
		args = append(args, string(filter.Complexity))
	}
	query += " ORDER BY distance ASC LIMIT ?"
	args = append(args, topK*annOverselect)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrVecUnavailable, err)
	}
	defer rows.Close()

	var results []types.RetrievedDocument
	for rows.Next() {
		doc, sim, err := scanDocumentWithDistance(rows)
		if err != nil {
			logging.StoreDebug("Skipping unreadable ANN document row: %v", err)
			continue
		}
		if !matchesAny(doc.TargetTools, filter.TargetTools) {
			continue
		}
		if !matchesAny(doc.Categories, filter.Categories) {
			continue
		}
		results = append(results, types.RetrievedDocument{Document: doc, Similarity: sim})
		if len(results) >= topK {
			break
		}
	}
	return results, rows.Err()
}

// ANNTemplates mirrors ANNDocuments for the template corpus.
func (s *KnowledgeStore) ANNTemplates(queryVec []float32, filter TemplateFilter, topK int) ([]types.RetrievedTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if topK <= 0 {
		topK = 10
	}

	query := `
		SELECT t.id, t.name, t.content, t.template_type, t.target_tool,
		       t.use_case, t.complexity, t.embedding, t.content_hash,
		       t.required_vars, t.optional_vars, t.usage_count, t.success_rate,
		       t.is_active, t.created_at,
		       vec_distance_cosine(vt.embedding, ?) AS distance
		FROM vec_templates vt
		JOIN templates t ON vt.record_id = t.id
		WHERE t.is_active = 1`
	args := []interface{}{encodeFloat32Slice(queryVec)}
	if filter.TargetTool != "" {
		query += " AND t.target_tool = ?"
		args = append(args, filter.TargetTool)
	}
	if filter.TemplateType != "" {
		query += " AND t.template_type = ?"
		args = append(args, string(filter.TemplateType))
	}
	if filter.Complexity != "" {
		query += " AND t.complexity = ?"
		args = append(args, string(filter.Complexity))
	}
	query += " ORDER BY distance ASC LIMIT ?"
	args = append(args, topK)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrVecUnavailable, err)
	}
	defer rows.Close()

	var results []types.RetrievedTemplate
	for rows.Next() {
		tpl, sim, err := scanTemplateWithDistance(rows)
		if err != nil {
			logging.StoreDebug("Skipping unreadable ANN template row: %v", err)
			continue
		}
		results = append(results, types.RetrievedTemplate{Template: tpl, Similarity: sim})
	}
	return results, rows.Err()
}

func scanDocumentWithDistance(rows *sql.Rows) (types.KnowledgeDocument, float64, error) {
	var doc types.KnowledgeDocument
	var docType, toolsJSON, catsJSON, complexity string
	var embedding []byte
	var active int
	var distance float64

	err := rows.Scan(&doc.ID, &doc.Title, &doc.Content, &docType, &toolsJSON, &catsJSON,
		&complexity, &embedding, &doc.ContentHash, &doc.QualityScore,
		&doc.RetrievalCount, &active, &doc.CreatedAt, &distance)
	if err != nil {
		return doc, 0, err
	}

	doc.DocumentType = types.DocumentType(docType)
	doc.Complexity = types.ComplexityTier(complexity)
	doc.IsActive = active != 0
	doc.Embedding = decodeFloat32Slice(embedding)
	json.Unmarshal([]byte(toolsJSON), &doc.TargetTools)
	json.Unmarshal([]byte(catsJSON), &doc.Categories)
	return doc, types.ClampUnit(1.0 - distance), nil
}

func scanTemplateWithDistance(rows *sql.Rows) (types.PromptTemplate, float64, error) {
	var tpl types.PromptTemplate
	var tplType, reqJSON, optJSON, complexity string
	var embedding []byte
	var active int
	var distance float64

	err := rows.Scan(&tpl.ID, &tpl.Name, &tpl.Content, &tplType, &tpl.TargetTool,
		&tpl.UseCase, &complexity, &embedding, &tpl.ContentHash,
		&reqJSON, &optJSON, &tpl.UsageCount, &tpl.SuccessRate, &active, &tpl.CreatedAt, &distance)
	if err != nil {
		return tpl, 0, err
	}

	tpl.TemplateType = types.TemplateType(tplType)
	tpl.Complexity = types.ComplexityTier(complexity)
	tpl.IsActive = active != 0
	tpl.Embedding = decodeFloat32Slice(embedding)
	json.Unmarshal([]byte(reqJSON), &tpl.RequiredVars)
	json.Unmarshal([]byte(optJSON), &tpl.OptionalVars)
	return tpl, types.ClampUnit(1.0 - distance), nil
}
