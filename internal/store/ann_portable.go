//go:build !sqlite_vec || !cgo

package store

import "promptforge/internal/types"

// Portable builds carry no vec0 index; similarity ranking runs in-process
// over the embedding blobs. The maintenance hooks are no-ops so the insert
// path is identical across builds.

func (s *KnowledgeStore) indexDocumentVec(id string, emb []float32) {}

func (s *KnowledgeStore) indexTemplateVec(id string, emb []float32) {}

// ANNDocuments always reports the index unavailable in portable builds.
func (s *KnowledgeStore) ANNDocuments(queryVec []float32, filter DocumentFilter, topK int) ([]types.RetrievedDocument, error) {
	return nil, ErrVecUnavailable
}

// ANNTemplates always reports the index unavailable in portable builds.
func (s *KnowledgeStore) ANNTemplates(queryVec []float32, filter TemplateFilter, topK int) ([]types.RetrievedTemplate, error) {
	return nil, ErrVecUnavailable
}
