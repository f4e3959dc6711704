package service

import (
	"context"
	"errors"
	"testing"

	"Debate_Community/internal/model"
	"Debate_Community/internal/repository/memory"
	redisrepo "Debate_Community/internal/repository/redis"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRanking(t *testing.T) (*redisrepo.RankingRepository, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return &redisrepo.RankingRepository{RDB: client}, s
}

func ids(views []DebateView) []string {
	out := make([]string, 0, len(views))
	for _, v := range views {
		out = append(out, v.ID)
	}
	return out
}

func TestListAndSearch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.create(t, "alice", "Tabs versus spaces")
	b := env.create(t, "bob", "Vim or Emacs")

	all, err := env.svc.List(ctx, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID, a.ID}, ids(all))
	assert.Equal(t, "Technology", all[0].CategoryName)

	found, err := env.svc.Search(ctx, "SPACES", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID}, ids(found))

	_, err = env.svc.Search(ctx, "  ", 0, 10)
	assert.True(t, IsKind(err, KindValidation))
}

func TestByCategory_SortModes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	old := env.create(t, "alice", "Old")
	mid := env.create(t, "alice", "Mid")
	recent := env.create(t, "alice", "Recent")

	for _, body := range []string{"a", "b"} {
		_, err := env.svc.AddComment(ctx, old.ID, "alice", CommentInput{Body: body})
		require.NoError(t, err)
	}
	_, err := env.svc.SetPosition(ctx, mid.ID, "bob", model.PositionFor)
	require.NoError(t, err)
	_, err = env.svc.SetPosition(ctx, mid.ID, "carol", model.PositionFor)
	require.NoError(t, err)

	tests := []struct {
		mode SortMode
		want []string
	}{
		{SortRecent, []string{recent.ID, mid.ID, old.ID}},
		{SortAncient, []string{old.ID, mid.ID, recent.ID}},
		{SortActive, []string{old.ID, recent.ID, mid.ID}},
		{SortPopular, []string{mid.ID, old.ID, recent.ID}},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			views, err := env.svc.ByCategory(ctx, "tech", tt.mode, 0, 10)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(views))
		})
	}

	empty, err := env.svc.ByCategory(ctx, "food", SortRecent, 0, 10)
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = env.svc.ByCategory(ctx, "nope", SortRecent, 0, 10)
	assert.True(t, IsKind(err, KindNotFound))

	_, err = ParseSortMode("sideways")
	assert.True(t, IsKind(err, KindValidation))
	mode, err := ParseSortMode("")
	require.NoError(t, err)
	assert.Equal(t, SortRecent, mode)
}

func TestPopular_UsesRankingCache(t *testing.T) {
	ranking, _ := newRanking(t)
	env := newTestEnv(t, withRanking(ranking))
	ctx := context.Background()
	a := env.create(t, "alice", "A")
	b := env.create(t, "alice", "B")

	_, err := env.svc.SetPosition(ctx, b.ID, "bob", model.PositionAgainst)
	require.NoError(t, err)
	_, err = env.svc.AddComment(ctx, b.ID, "bob", CommentInput{Body: "x"})
	require.NoError(t, err)

	top, err := ranking.Top(ctx, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID, a.ID}, top)

	views, err := env.svc.Popular(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID, a.ID}, ids(views))
	assert.Equal(t, int64(4), views[0].Popularity)

	require.NoError(t, env.svc.Delete(ctx, "alice", b.ID))
	top, err = ranking.Top(ctx, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID}, top)
}

func TestPopular_FallsBackToStore(t *testing.T) {
	ranking, mr := newRanking(t)
	env := newTestEnv(t, withRanking(ranking))
	ctx := context.Background()
	a := env.create(t, "alice", "A")
	b := env.create(t, "alice", "B")
	_, err := env.svc.SetPosition(ctx, a.ID, "bob", model.PositionFor)
	require.NoError(t, err)

	mr.SetError("redis down")
	views, err := env.svc.Popular(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID}, ids(views))

	// 缓存写失败不影响主流程
	_, err = env.svc.SetPosition(ctx, b.ID, "bob", model.PositionFor)
	require.NoError(t, err)
	mr.SetError("")
}

func TestRankingReconciler_RebuildsFromStore(t *testing.T) {
	ranking, _ := newRanking(t)
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.create(t, "alice", "A")
	b := env.create(t, "alice", "B")
	_, err := env.svc.SetPosition(ctx, a.ID, "bob", model.PositionFor)
	require.NoError(t, err)
	require.NoError(t, ranking.Set(ctx, "stale", 99))

	r := NewRankingReconciler(env.store, ranking, nil, 0, 1, discardLogger())
	n, err := r.ReconcileOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	top, err := ranking.Top(ctx, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID, b.ID}, top)
}

// lockStub held 为真时拿不到锁；lostAfter>0 时第 lostAfter 次续期失败
type lockStub struct {
	held      bool
	lostAfter int
	extends   int
	released  int
}

func (l *lockStub) Acquire(context.Context, string, string) (bool, error) { return !l.held, nil }

func (l *lockStub) Extend(context.Context, string, string) (bool, error) {
	l.extends++
	return l.lostAfter == 0 || l.extends < l.lostAfter, nil
}

func (l *lockStub) Release(context.Context, string, string) error {
	l.released++
	return nil
}

// scanHookStore 第一次 Scan 之后执行 hook，模拟重建期间的线上写入
type scanHookStore struct {
	DebateStore
	hook  func()
	fired bool
}

func (s *scanHookStore) Scan(ctx context.Context, afterID string, limit int) ([]model.Debate, error) {
	out, err := s.DebateStore.Scan(ctx, afterID, limit)
	if !s.fired {
		s.fired = true
		s.hook()
	}
	return out, err
}

func TestRankingReconciler_ReplaysWritesDuringRebuild(t *testing.T) {
	ranking, mr := newRanking(t)
	env := newTestEnv(t, withRanking(ranking))
	ctx := context.Background()
	a := env.create(t, "alice", "A")
	b := env.create(t, "alice", "B")
	gone := env.create(t, "alice", "Gone")

	store := &scanHookStore{DebateStore: env.store, hook: func() {
		// 扫描拿到旧分数之后，线上又有人表态、有辩题被删除
		_, err := env.svc.SetPosition(ctx, a.ID, "bob", model.PositionFor)
		require.NoError(t, err)
		require.NoError(t, env.svc.Delete(ctx, "alice", gone.ID))
	}}
	lock := &lockStub{}
	r := NewRankingReconciler(store, ranking, lock, 0, 10, discardLogger())
	n, err := r.ReconcileOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	score, err := mr.ZScore(redisrepo.RankingKey, a.ID)
	require.NoError(t, err)
	assert.Equal(t, float64(4), score)
	top, err := ranking.Top(ctx, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID, b.ID}, top)
	assert.False(t, mr.Exists(redisrepo.RankingDirtyKey))
	assert.False(t, mr.Exists(redisrepo.RankingRebuildingKey))
	assert.Equal(t, 1, lock.extends)
	assert.Equal(t, 1, lock.released)
}

func TestRankingReconciler_AbortsWhenLockLost(t *testing.T) {
	ranking, mr := newRanking(t)
	env := newTestEnv(t)
	env.create(t, "alice", "A")
	env.create(t, "alice", "B")
	require.NoError(t, ranking.Set(context.Background(), "keep", 1))

	r := NewRankingReconciler(env.store, ranking, &lockStub{lostAfter: 1}, 0, 1, discardLogger())
	_, err := r.ReconcileOnce(context.Background())
	assert.True(t, IsKind(err, KindConflict))
	// 线上排行不被半成品替换
	assert.True(t, mr.Exists(redisrepo.RankingKey))
	assert.False(t, mr.Exists(redisrepo.RankingStagingKey))
}

func TestRankingReconciler_SkipsWhenLocked(t *testing.T) {
	ranking, _ := newRanking(t)
	store := memory.NewDebateStore()
	require.NoError(t, store.Create(context.Background(), &model.Debate{ID: "x", Popularity: 3}))

	r := NewRankingReconciler(store, ranking, &lockStub{held: true}, 0, 0, discardLogger())
	n, err := r.ReconcileOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

type outboxStub struct {
	rows    []model.NotificationOutbox
	sent    []uint64
	retried []uint64
}

func (o *outboxStub) List(context.Context, int, int) ([]model.NotificationOutbox, error) {
	return o.rows, nil
}
func (o *outboxStub) RetryUpdate(_ context.Context, id uint64) error {
	o.retried = append(o.retried, id)
	return nil
}
func (o *outboxStub) SuccessUpdate(_ context.Context, id uint64) error {
	o.sent = append(o.sent, id)
	return nil
}

func TestOutboxRelayer_DrainOnce(t *testing.T) {
	repo := &outboxStub{rows: []model.NotificationOutbox{
		{ID: 1, Recipient: "alice", Payload: "{}"},
		{ID: 2, Recipient: "bob", Payload: "{}"},
		{ID: 3, Recipient: "carol", Payload: "{}"},
	}}
	sender := func(_ context.Context, ob *model.NotificationOutbox) error {
		if ob.Recipient == "bob" {
			return errors.New("broker down")
		}
		return nil
	}
	r := NewOutboxRelayer(repo, sender, 0, 0, nil, discardLogger())
	assert.Equal(t, 2, r.DrainOnce(context.Background()))
	assert.Equal(t, []uint64{1, 3}, repo.sent)
	assert.Equal(t, []uint64{2}, repo.retried)

	assert.NoError(t, LogSender(discardLogger())(context.Background(), &repo.rows[0]))
}

func TestNotificationService(t *testing.T) {
	store := &memory.NotificationStore{}
	ctx := context.Background()
	for _, r := range []string{"alice", "bob", "alice"} {
		require.NoError(t, store.Notify(ctx, &model.Notification{Recipient: r, Message: "m", DebateID: "d"}))
	}
	svc := NewNotificationService(store)

	list, next, err := svc.List(ctx, "alice", false, 0, 10)
	require.NoError(t, err)
	assert.Len(t, list, 2)
	assert.Zero(t, next)

	require.NoError(t, svc.MarkRead(ctx, "alice", list[0].ID))
	unread, _, err := svc.List(ctx, "alice", true, 0, 10)
	require.NoError(t, err)
	assert.Len(t, unread, 1)

	assert.True(t, IsKind(svc.MarkRead(ctx, "bob", list[0].ID), KindNotFound))
	assert.True(t, IsKind(svc.MarkRead(ctx, "alice", 0), KindValidation))

	empty, _, err := svc.List(ctx, "nobody", false, 0, 10)
	require.NoError(t, err)
	assert.NotNil(t, empty)
}
