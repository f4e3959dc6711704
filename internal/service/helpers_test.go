package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"Debate_Community/internal/model"
	"Debate_Community/internal/moderation"
	"Debate_Community/internal/repository/memory"

	"github.com/stretchr/testify/require"
)

// 按文本里的标记返回裁决：含 CENSOR 审查，含 REJECT 拒绝
func markerClassifier() moderation.ClassifierFunc {
	return func(_ context.Context, text string) (moderation.Assessment, error) {
		switch {
		case strings.Contains(text, "REJECT"):
			return moderation.Assessment{Label: "rejected", Reason: "hate speech", Categories: []string{"hate"}}, nil
		case strings.Contains(text, "CENSOR"):
			return moderation.Assessment{Label: "censored", Reason: "insult", Categories: []string{"harassment"}}, nil
		}
		return moderation.Assessment{Label: "approved"}, nil
	}
}

// conflictStore 在 Update 前注入若干次版本冲突
type conflictStore struct {
	*memory.DebateStore
	conflicts  atomic.Int32
	failCreate error
}

func (s *conflictStore) Update(ctx context.Context, d *model.Debate, expected int64) error {
	if s.conflicts.Load() > 0 {
		s.conflicts.Add(-1)
		// 模拟另一个写者抢先提交
		cur, err := s.DebateStore.Get(ctx, d.ID)
		if err != nil {
			return err
		}
		if err := s.DebateStore.Update(ctx, cur, cur.Version); err != nil {
			return err
		}
	}
	return s.DebateStore.Update(ctx, d, expected)
}

func (s *conflictStore) Create(ctx context.Context, d *model.Debate) error {
	if s.failCreate != nil {
		return s.failCreate
	}
	return s.DebateStore.Create(ctx, d)
}

type testEnv struct {
	svc     *DebateService
	anon    *AnonymizationService
	store   *conflictStore
	audit   *memory.CensorshipLog
	notes   *memory.NotificationStore
	calls   atomic.Int32
	ranking Ranking
}

type envOption func(*DebateDeps, *Options)

func withRanking(r Ranking) envOption {
	return func(d *DebateDeps, _ *Options) { d.Ranking = r }
}

func withOptions(fn func(*Options)) envOption {
	return func(_ *DebateDeps, o *Options) { fn(o) }
}

func withClassifier(c moderation.Classifier) envOption {
	return func(d *DebateDeps, _ *Options) {
		d.Gate = moderation.NewGate(c, moderation.WithTimeout(200*time.Millisecond), moderation.WithLogger(discardLogger()))
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	env := &testEnv{
		store: &conflictStore{DebateStore: memory.NewDebateStore()},
		audit: &memory.CensorshipLog{},
		notes: &memory.NotificationStore{},
	}
	counting := moderation.ClassifierFunc(func(ctx context.Context, text string) (moderation.Assessment, error) {
		env.calls.Add(1)
		return markerClassifier()(ctx, text)
	})

	var seq atomic.Int64
	clock := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	o := Options{
		NewID: func() string { return fmt.Sprintf("id-%04d", seq.Add(1)) },
		Now: func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			clock = clock.Add(time.Second)
			return clock
		},
	}
	deps := DebateDeps{
		Store:      env.store,
		Gate:       moderation.NewGate(counting, moderation.WithLogger(discardLogger())),
		Audit:      env.audit,
		Categories: memory.NewCategoryStore(model.Category{ID: "tech", Name: "Technology"}, model.Category{ID: "food", Name: "Food"}),
		Fanout: NewNotificationFanout(env.notes,
			WithSpawn(func(fn func()) { fn() }),
			WithSkipRecipients(DefaultSentinel),
			WithFanoutLogger(discardLogger())),
		Logger: discardLogger(),
	}
	for _, opt := range opts {
		opt(&deps, &o)
	}
	env.ranking = deps.Ranking
	env.svc = NewDebateService(deps, o)
	env.anon = NewAnonymizationService(AnonymizeDeps{Store: env.store, Logger: discardLogger()}, Options{AnonymizeChunk: 2})
	return env
}

func (e *testEnv) create(t *testing.T, owner, title string) *model.Debate {
	t.Helper()
	d, err := e.svc.Create(context.Background(), owner, CreateDebateInput{
		Title: title, Body: "Discuss " + title, CategoryID: "tech",
	})
	require.NoError(t, err)
	return d
}

func (e *testEnv) get(t *testing.T, id string) *model.Debate {
	t.Helper()
	d, err := e.store.Get(context.Background(), id)
	require.NoError(t, err)
	return d
}
