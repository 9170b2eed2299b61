package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/okian/credence/internal/domain/model"
	"github.com/okian/credence/pkg/logger"
	"github.com/okian/credence/pkg/metrics"
)

// MemoryStore keeps every point in memory behind one mutex. The id index and
// the category index are always updated together.
type MemoryStore struct {
	mu         sync.Mutex
	byID       map[string]*model.KnowledgePoint
	byCategory map[string][]*model.KnowledgePoint
	order      []*model.KnowledgePoint

	capacity int
	logger   logger.Logger
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("store")
	}
	s.byID = make(map[string]*model.KnowledgePoint, s.capacity)
	s.byCategory = make(map[string][]*model.KnowledgePoint)
	s.order = make([]*model.KnowledgePoint, 0, s.capacity)
	return s
}

// Put implements Store. The first point stored under an id wins.
func (s *MemoryStore) Put(ctx context.Context, p *model.KnowledgePoint) (*model.KnowledgePoint, bool, error) {
	if p == nil || p.ID == "" {
		return nil, false, fmt.Errorf("%w: missing id", ErrInvalidPoint)
	}
	if p.Source == nil {
		return nil, false, fmt.Errorf("%w: %s: missing source", ErrInvalidPoint, p.ID)
	}

	s.mu.Lock()
	if existing, ok := s.byID[p.ID]; ok {
		s.mu.Unlock()
		return existing, false, nil
	}
	s.byID[p.ID] = p
	s.byCategory[p.Category] = append(s.byCategory[p.Category], p)
	s.order = append(s.order, p)
	n := len(s.order)
	s.mu.Unlock()

	metrics.UpdateStorePoints(n)
	s.logger.Debug(ctx, "point stored",
		logger.String("point_id", p.ID),
		logger.String("category", p.Category),
		logger.String("source_id", p.Source.ID),
	)
	return p, true, nil
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, id string) (*model.KnowledgePoint, error) {
	s.mu.Lock()
	p, ok := s.byID[id]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return p, nil
}

// ByCategory implements Store. An unknown category yields an empty slice.
func (s *MemoryStore) ByCategory(_ context.Context, category string) ([]*model.KnowledgePoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*model.KnowledgePoint(nil), s.byCategory[category]...), nil
}

// All implements Store.
func (s *MemoryStore) All(_ context.Context) ([]*model.KnowledgePoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*model.KnowledgePoint(nil), s.order...), nil
}

// Categories implements Store.
func (s *MemoryStore) Categories(_ context.Context) []string {
	s.mu.Lock()
	out := make([]string, 0, len(s.byCategory))
	for c := range s.byCategory {
		out = append(out, c)
	}
	s.mu.Unlock()
	sort.Strings(out)
	return out
}

// Len implements Store.
func (s *MemoryStore) Len(_ context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}
