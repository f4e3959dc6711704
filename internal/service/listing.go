package service

import (
	"context"
	"sort"
	"strings"
	"sync"

	"Debate_Community/internal/model"
	"Debate_Community/internal/repository"

	"golang.org/x/sync/errgroup"
)

type SortMode string

const (
	SortRecent  SortMode = "recent"
	SortAncient SortMode = "ancient"
	SortActive  SortMode = "active"
	SortPopular SortMode = "popular"
)

const DefaultPopularLimit = 10

func ParseSortMode(s string) (SortMode, error) {
	switch m := SortMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return SortRecent, nil
	case SortRecent, SortAncient, SortActive, SortPopular:
		return m, nil
	}
	return "", ValidationError("sort must be one of recent, ancient, active, popular")
}

// List 全部辩题，最新在前
func (s *DebateService) List(ctx context.Context, offset, limit int) ([]DebateView, error) {
	return s.query(ctx, repository.DebateQuery{Sort: repository.SortNewest, Offset: offset, Limit: limit})
}

// Search 标题或正文子串匹配，大小写不敏感
func (s *DebateService) Search(ctx context.Context, term string, offset, limit int) ([]DebateView, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, ValidationError("search term required")
	}
	return s.query(ctx, repository.DebateQuery{Keyword: term, Offset: offset, Limit: limit})
}

// ByCategory 分类下的辩题，active 按评论数排序
func (s *DebateService) ByCategory(ctx context.Context, categoryID string, mode SortMode, offset, limit int) ([]DebateView, error) {
	if err := s.requireCategory(ctx, strings.TrimSpace(categoryID)); err != nil {
		return nil, err
	}
	q := repository.DebateQuery{CategoryID: categoryID, Offset: offset, Limit: limit}
	switch mode {
	case SortAncient:
		q.Sort = repository.SortOldest
	case SortPopular:
		q.Sort = repository.SortPopularity
	case SortActive:
		// 评论数在 JSON 列里，取最新的一批在内存中排序
		q.Sort = repository.SortNewest
		q.Offset, q.Limit = 0, 100
		views, err := s.query(ctx, q)
		if err != nil {
			return nil, err
		}
		sort.SliceStable(views, func(i, j int) bool {
			return len(views[i].Comments) > len(views[j].Comments)
		})
		return window(views, offset, limit), nil
	default:
		q.Sort = repository.SortNewest
	}
	return s.query(ctx, q)
}

// Popular 热度排行，优先读 Redis，缓存为空或出错时查库
func (s *DebateService) Popular(ctx context.Context, limit int) ([]DebateView, error) {
	if limit <= 0 {
		limit = DefaultPopularLimit
	}
	if limit > 100 {
		limit = 100
	}
	if s.ranking != nil {
		ids, err := s.ranking.Top(ctx, 0, limit)
		if err != nil {
			s.metrics.RankingError()
			s.logger.WarnContext(ctx, "ranking read failed, falling back to store", "err", err)
		}
		if err == nil && len(ids) > 0 {
			views, err := s.query(ctx, repository.DebateQuery{IDs: ids, Limit: len(ids)})
			if err != nil {
				return nil, err
			}
			return orderByIDs(views, ids), nil
		}
	}
	return s.query(ctx, repository.DebateQuery{Sort: repository.SortPopularity, Limit: limit})
}

func (s *DebateService) query(ctx context.Context, q repository.DebateQuery) ([]DebateView, error) {
	cctx, cancel := context.WithTimeout(ctx, s.opts.StoreTimeout)
	defer cancel()
	list, err := s.store.List(cctx, q)
	if err != nil {
		return nil, storeErr("debate", err)
	}
	return s.views(ctx, list)
}

// views 并发解析分类名，同一分类只查一次
func (s *DebateService) views(ctx context.Context, list []model.Debate) ([]DebateView, error) {
	names := make(map[string]string)
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	seen := make(map[string]bool)
	for _, d := range list {
		id := d.CategoryID
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		g.Go(func() error {
			c, err := s.categories.FindByID(gctx, id)
			if err != nil {
				if isNotFound(err) {
					return nil
				}
				return storeErr("category", err)
			}
			mu.Lock()
			names[id] = c.Name
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]DebateView, 0, len(list))
	for _, d := range list {
		out = append(out, DebateView{
			Debate:       d,
			CategoryName: names[d.CategoryID],
			BestArgument: BestArgument(d.Comments),
		})
	}
	return out, nil
}

func orderByIDs(views []DebateView, ids []string) []DebateView {
	byID := make(map[string]DebateView, len(views))
	for _, v := range views {
		byID[v.ID] = v
	}
	out := make([]DebateView, 0, len(ids))
	for _, id := range ids {
		if v, ok := byID[id]; ok {
			out = append(out, v)
		}
	}
	return out
}

func window[T any](items []T, offset, limit int) []T {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	end := min(offset+limit, len(items))
	return items[offset:end]
}
