package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"promptforge/internal/logging"
	"promptforge/internal/types"
)

// =============================================================================
// TEMPLATE CORPUS
// =============================================================================

// TemplateFilter narrows a template scan. Zero-valued fields match anything.
type TemplateFilter struct {
	TargetTool   string
	TemplateType types.TemplateType
	Complexity   types.ComplexityTier
}

// InsertTemplate stores a template, deduplicating on content hash.
// Returns false if an identical template already exists.
func (s *KnowledgeStore) InsertTemplate(tpl types.PromptTemplate) (bool, error) {
	timer := logging.StartTimer(logging.CategoryStore, "InsertTemplate")
	defer timer.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()

	if tpl.ID == "" {
		tpl.ID = uuid.NewString()
	}
	if tpl.ContentHash == "" {
		tpl.ContentHash = ContentHash(tpl.Content)
	}

	reqJSON, _ := json.Marshal(tpl.RequiredVars)
	optJSON, _ := json.Marshal(tpl.OptionalVars)

	res, err := s.db.Exec(
		`INSERT OR IGNORE INTO templates
		 (id, name, content, template_type, target_tool, use_case, complexity,
		  embedding, content_hash, required_vars, optional_vars, success_rate, is_active)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tpl.ID, tpl.Name, tpl.Content, string(tpl.TemplateType), tpl.TargetTool,
		tpl.UseCase, string(tpl.Complexity), encodeFloat32Slice(tpl.Embedding),
		tpl.ContentHash, string(reqJSON), string(optJSON),
		types.ClampUnit(tpl.SuccessRate), boolToInt(tpl.IsActive),
	)
	if err != nil {
		logging.Get(logging.CategoryStore).Error("Failed to insert template %q: %v", tpl.Name, err)
		return false, fmt.Errorf("failed to insert template: %w", err)
	}

	n, _ := res.RowsAffected()
	if n == 0 {
		logging.StoreDebug("Template %q skipped (duplicate content hash)", tpl.Name)
		return false, nil
	}

	s.indexTemplateVec(tpl.ID, tpl.Embedding)
	logging.StoreDebug("Template %q stored (id=%s)", tpl.Name, tpl.ID)
	return true, nil
}

// ActiveTemplates returns all active templates matching the filter, with
// embeddings decoded.
func (s *KnowledgeStore) ActiveTemplates(filter TemplateFilter) ([]types.PromptTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT id, name, content, template_type, target_tool, use_case, complexity, embedding, content_hash, required_vars, optional_vars, usage_count, success_rate, is_active, created_at FROM templates WHERE is_active = 1"
	var args []interface{}
	if filter.TargetTool != "" {
		query += " AND target_tool = ?"
		args = append(args, filter.TargetTool)
	}
	if filter.TemplateType != "" {
		query += " AND template_type = ?"
		args = append(args, string(filter.TemplateType))
	}
	if filter.Complexity != "" {
		query += " AND complexity = ?"
		args = append(args, string(filter.Complexity))
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("template scan failed: %w", err)
	}
	defer rows.Close()

	var tpls []types.PromptTemplate
	for rows.Next() {
		tpl, err := scanTemplate(rows)
		if err != nil {
			logging.StoreDebug("Skipping unreadable template row: %v", err)
			continue
		}
		tpls = append(tpls, tpl)
	}
	return tpls, rows.Err()
}

// SuccessRankedTemplates returns active templates matching the filter,
// ordered by success rate. Degraded path for no-query retrieval.
func (s *KnowledgeStore) SuccessRankedTemplates(filter TemplateFilter, limit int) ([]types.PromptTemplate, error) {
	if limit <= 0 {
		limit = 10
	}
	tpls, err := s.ActiveTemplates(filter)
	if err != nil {
		return nil, err
	}
	sortTemplatesBySuccess(tpls)
	if len(tpls) > limit {
		tpls = tpls[:limit]
	}
	return tpls, nil
}

// BumpTemplateUsage increments the usage counter for each id exactly once.
// Called off the read path; failures are logged and swallowed.
func (s *KnowledgeStore) BumpTemplateUsage(ids []string) {
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
		fmt.Sprintf("UPDATE templates SET usage_count = usage_count + 1 WHERE id IN (%s)", placeholders),
		args...,
	)
	if err != nil {
		logging.Get(logging.CategoryStore).Warn("Failed to bump template usage counters: %v", err)
		return
	}
	logging.StoreDebug("Bumped usage count for %d templates", len(ids))
}

// TemplateCount returns the number of active templates.
func (s *KnowledgeStore) TemplateCount() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM templates WHERE is_active = 1").Scan(&n)
	return n, err
}

func scanTemplate(rows *sql.Rows) (types.PromptTemplate, error) {
	var tpl types.PromptTemplate
	var tplType, complexity, reqJSON, optJSON string
	var embedding []byte
	var active int

	err := rows.Scan(&tpl.ID, &tpl.Name, &tpl.Content, &tplType, &tpl.TargetTool,
		&tpl.UseCase, &complexity, &embedding, &tpl.ContentHash, &reqJSON, &optJSON,
		&tpl.UsageCount, &tpl.SuccessRate, &active, &tpl.CreatedAt)
	if err != nil {
		return tpl, err
	}

	tpl.TemplateType = types.TemplateType(tplType)
	tpl.Complexity = types.ComplexityTier(complexity)
	tpl.IsActive = active != 0
	tpl.Embedding = decodeFloat32Slice(embedding)
	json.Unmarshal([]byte(reqJSON), &tpl.RequiredVars)
	json.Unmarshal([]byte(optJSON), &tpl.OptionalVars)
	return tpl, nil
}

func sortTemplatesBySuccess(tpls []types.PromptTemplate) {
	for i := 1; i < len(tpls); i++ {
		for j := i; j > 0 && tpls[j].SuccessRate > tpls[j-1].SuccessRate; j-- {
			tpls[j], tpls[j-1] = tpls[j-1], tpls[j]
		}
	}
}
