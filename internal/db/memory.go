package db

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/jonathan/markitup/internal/types"
)

// MemoryStore keeps documents in process memory. It is used when no
// DATABASE_URL is configured and in tests.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[uuid.UUID]*types.StrategyDocument
	seq  map[uuid.UUID]int
	next int
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs: make(map[uuid.UUID]*types.StrategyDocument),
		seq:  make(map[uuid.UUID]int),
	}
}

// SaveDocument stores a copy of doc
func (s *MemoryStore) SaveDocument(_ context.Context, doc *types.StrategyDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.docs[doc.ID]; ok {
		if !existing.CanRegenerate() && doc.CanRegenerate() {
			return types.ErrCustomized
		}
	} else {
		s.next++
		s.seq[doc.ID] = s.next
	}
	s.docs[doc.ID] = cloneDocument(doc)
	return nil
}

// GetDocument returns a copy of the stored document, or nil when absent
func (s *MemoryStore) GetDocument(_ context.Context, id uuid.UUID) (*types.StrategyDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[id]
	if !ok {
		return nil, nil
	}
	return cloneDocument(doc), nil
}

// ListDocuments returns the most recently generated documents first
func (s *MemoryStore) ListDocuments(_ context.Context, limit int) ([]*types.StrategyDocument, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := make([]*types.StrategyDocument, 0, len(s.docs))
	for _, doc := range s.docs {
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(i, j int) bool {
		gi, gj := docs[i].Metadata.GeneratedAt, docs[j].Metadata.GeneratedAt
		if !gi.Equal(gj) {
			return gi.After(gj)
		}
		return s.seq[docs[i].ID] > s.seq[docs[j].ID]
	})

	if len(docs) > limit {
		docs = docs[:limit]
	}
	out := make([]*types.StrategyDocument, len(docs))
	for i, doc := range docs {
		out[i] = cloneDocument(doc)
	}
	return out, nil
}

// DeleteDocument removes a document and reports whether it existed
func (s *MemoryStore) DeleteDocument(_ context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.docs[id]; !ok {
		return false, nil
	}
	delete(s.docs, id)
	delete(s.seq, id)
	return true, nil
}

func cloneDocument(doc *types.StrategyDocument) *types.StrategyDocument {
	out := *doc
	out.Sections = make(types.Sections, len(doc.Sections))
	for i, section := range doc.Sections {
		section.KeyPoints = cloneStrings(section.KeyPoints)
		section.Recommendations = cloneStrings(section.Recommendations)
		out.Sections[i] = section
	}
	return &out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
