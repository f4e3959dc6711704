package memory

import (
	"context"
	"sort"
	"sync"

	"Debate_Community/internal/model"
	"Debate_Community/internal/repository"
)

type CensorshipLog struct {
	mu      sync.Mutex
	records []model.CensorshipRecord
	// FailNext 非空时下一次 Append 返回该错误，测试用
	FailNext error
}

func (l *CensorshipLog) Append(_ context.Context, rec *model.CensorshipRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.FailNext != nil {
		err := l.FailNext
		l.FailNext = nil
		return err
	}
	l.records = append(l.records, *rec)
	return nil
}

func (l *CensorshipLog) ListByContent(_ context.Context, contentID string) ([]model.CensorshipRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []model.CensorshipRecord
	for _, r := range l.records {
		if r.ContentID == contentID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (l *CensorshipLog) Records() []model.CensorshipRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]model.CensorshipRecord(nil), l.records...)
}

type NotificationStore struct {
	mu     sync.Mutex
	nextID uint64
	items  []model.Notification
	// FailFor 命中的收件人写入失败，测试用
	FailFor map[string]error
}

func (s *NotificationStore) Notify(_ context.Context, n *model.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.FailFor[n.Recipient]; ok {
		return err
	}
	s.nextID++
	n.ID = s.nextID
	s.items = append(s.items, *n)
	return nil
}

func (s *NotificationStore) ListByRecipient(_ context.Context, recipient string, unreadOnly bool, cursor uint64, limit int) ([]model.Notification, uint64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var rows []model.Notification
	for i := len(s.items) - 1; i >= 0; i-- {
		n := s.items[i]
		if n.Recipient != recipient || (unreadOnly && n.Read) || (cursor > 0 && n.ID >= cursor) {
			continue
		}
		rows = append(rows, n)
		if len(rows) > limit {
			break
		}
	}
	var next uint64
	if len(rows) > limit {
		next = rows[limit-1].ID
		rows = rows[:limit]
	}
	return rows, next, nil
}

func (s *NotificationStore) MarkRead(_ context.Context, recipient string, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == id && s.items[i].Recipient == recipient {
			s.items[i].Read = true
			return nil
		}
	}
	return repository.ErrNotFound
}

func (s *NotificationStore) All() []model.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Notification(nil), s.items...)
}

type CategoryStore struct {
	mu    sync.RWMutex
	items map[string]model.Category
}

func NewCategoryStore(cats ...model.Category) *CategoryStore {
	s := &CategoryStore{items: make(map[string]model.Category)}
	for _, c := range cats {
		s.items[c.ID] = c
	}
	return s
}

func (s *CategoryStore) FindByID(_ context.Context, id string) (*model.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (s *CategoryStore) List(_ context.Context) ([]model.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Category, 0, len(s.items))
	for _, c := range s.items {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type UserStore struct {
	mu    sync.RWMutex
	byUID map[string]model.User
}

func NewUserStore(users ...model.User) *UserStore {
	s := &UserStore{byUID: make(map[string]model.User)}
	for _, u := range users {
		s.byUID[u.UID] = u
	}
	return s
}

func (s *UserStore) FindByUID(_ context.Context, uid string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byUID[uid]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (s *UserStore) FindByUsername(_ context.Context, username string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.byUID {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}
