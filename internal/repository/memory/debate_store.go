package memory

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"

	"Debate_Community/internal/model"
	"Debate_Community/internal/repository"
)

// DebateStore 进程内实现，语义与 mysql.DebateRepository 一致，本地开发和测试用
type DebateStore struct {
	mu   sync.RWMutex
	docs map[string]*model.Debate
}

func NewDebateStore() *DebateStore {
	return &DebateStore{docs: make(map[string]*model.Debate)}
}

func (s *DebateStore) Get(_ context.Context, id string) (*model.Debate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.docs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return d.Clone(), nil
}

func (s *DebateStore) Create(_ context.Context, d *model.Debate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[d.ID]; ok {
		return repository.ErrConflict
	}
	s.docs[d.ID] = d.Clone()
	return nil
}

func (s *DebateStore) Update(_ context.Context, d *model.Debate, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.docs[d.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if cur.Version != expectedVersion {
		return repository.ErrConflict
	}
	d.Version = expectedVersion + 1
	s.docs[d.ID] = d.Clone()
	return nil
}

func (s *DebateStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.docs, id)
	return nil
}

func (s *DebateStore) List(_ context.Context, q repository.DebateQuery) ([]model.Debate, error) {
	q = q.Normalize()
	kw := strings.ToLower(strings.TrimSpace(q.Keyword))

	s.mu.RLock()
	var out []model.Debate
	for _, d := range s.docs {
		if q.CategoryID != "" && d.CategoryID != q.CategoryID {
			continue
		}
		if kw != "" && !strings.Contains(strings.ToLower(d.Title), kw) && !strings.Contains(strings.ToLower(d.Body), kw) {
			continue
		}
		if len(q.IDs) > 0 && !slices.Contains(q.IDs, d.ID) {
			continue
		}
		out = append(out, *d.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if q.Sort == repository.SortPopularity && a.Popularity != b.Popularity {
			return a.Popularity > b.Popularity
		}
		if q.Sort == repository.SortOldest {
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.ID < b.ID
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
	return page(out, q.Offset, q.Limit), nil
}

func (s *DebateStore) Scan(_ context.Context, afterID string, limit int) ([]model.Debate, error) {
	if limit <= 0 {
		limit = 100
	}
	s.mu.RLock()
	ids := make([]string, 0, len(s.docs))
	for id := range s.docs {
		if id > afterID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if len(ids) > limit {
		ids = ids[:limit]
	}
	out := make([]model.Debate, 0, len(ids))
	for _, id := range ids {
		out = append(out, *s.docs[id].Clone())
	}
	s.mu.RUnlock()
	return out, nil
}

func page[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
