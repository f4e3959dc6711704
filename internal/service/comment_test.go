package service

import (
	"context"
	"errors"
	"testing"

	"Debate_Community/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddComment_RequiresPosition(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	d := env.create(t, "alice", "Cats")

	_, err := env.svc.AddComment(ctx, d.ID, "bob", CommentInput{Body: "hello"})
	require.Error(t, err)
	assert.True(t, IsKind(err, KindValidation))
	assert.Contains(t, err.Error(), "must vote before commenting")

	_, err = env.svc.AddComment(ctx, d.ID, "alice", CommentInput{Body: "   "})
	assert.True(t, IsKind(err, KindValidation))

	_, err = env.svc.SetPosition(ctx, d.ID, "bob", model.PositionFor)
	require.NoError(t, err)
	c, err := env.svc.AddComment(ctx, d.ID, "bob", CommentInput{Body: "cats rule", Refs: []string{"https://cats.example"}})
	require.NoError(t, err)
	assert.True(t, c.Position)
	assert.Zero(t, c.Likes)
	assert.Zero(t, c.Dislikes)
	assert.Equal(t, model.ModerationApproved, c.ModerationStatus)
}

func TestAddComment_PositionIsSnapshot(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	d := env.create(t, "alice", "Dogs")

	_, err := env.svc.SetPosition(ctx, d.ID, "bob", model.PositionAgainst)
	require.NoError(t, err)
	c, err := env.svc.AddComment(ctx, d.ID, "bob", CommentInput{Body: "no"})
	require.NoError(t, err)

	_, err = env.svc.SetPosition(ctx, d.ID, "bob", model.PositionFor)
	require.NoError(t, err)

	stored := env.get(t, d.ID)
	i := stored.CommentIndex(c.ID)
	require.GreaterOrEqual(t, i, 0)
	assert.False(t, stored.Comments[i].Position)
}

func TestAddComment_RejectedPersistsNothing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	d := env.create(t, "alice", "Tea")

	_, err := env.svc.AddComment(ctx, d.ID, "alice", CommentInput{Body: "REJECT"})
	assert.True(t, IsKind(err, KindModerationRejected))

	stored := env.get(t, d.ID)
	assert.Empty(t, stored.Comments)
	assert.Equal(t, int64(2), stored.Popularity)
	assert.Empty(t, env.audit.Records())
}

func TestAddComment_CensoredStillCounts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	d := env.create(t, "alice", "Coffee")

	c, err := env.svc.AddComment(ctx, d.ID, "alice", CommentInput{Body: "CENSOR you"})
	require.NoError(t, err)
	assert.Equal(t, model.ModerationCensored, c.ModerationStatus)

	stored := env.get(t, d.ID)
	require.Len(t, stored.Comments, 1)
	assert.Equal(t, int64(3), stored.Popularity)

	recs := env.audit.Records()
	require.Len(t, recs, 1)
	assert.Equal(t, c.ID, recs[0].ContentID)
	assert.Equal(t, model.ContentComment, recs[0].Type)
	require.NotNil(t, recs[0].DebateID)
	assert.Equal(t, d.ID, *recs[0].DebateID)
	assert.Equal(t, "CENSOR you", recs[0].Original)
}

func TestAddReply_UnknownParentWritesNothing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	d := env.create(t, "alice", "Tabs")
	before := env.get(t, d.ID)

	_, err := env.svc.AddComment(ctx, d.ID, "alice", CommentInput{Body: "CENSOR reply", ParentID: "ghost"})
	assert.True(t, IsKind(err, KindNotFound))

	after := env.get(t, d.ID)
	assert.Equal(t, before.Version, after.Version)
	assert.Empty(t, after.Comments)
	assert.Empty(t, env.audit.Records())
	assert.Empty(t, env.notes.All())
}

func TestAddReply(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	d := env.create(t, "alice", "Threads")

	root, err := env.svc.AddComment(ctx, d.ID, "alice", CommentInput{Body: "root"})
	require.NoError(t, err)
	reply, err := env.svc.AddComment(ctx, d.ID, "alice", CommentInput{Body: "reply", ParentID: root.ID})
	require.NoError(t, err)
	assert.Equal(t, root.ID, reply.ParentID)

	tree, err := env.svc.CommentTree(ctx, d.ID)
	require.NoError(t, err)
	require.Len(t, tree, 1)
	require.Len(t, tree[0].Replies, 1)
	assert.Equal(t, reply.ID, tree[0].Replies[0].ID)
}

func TestAddComment_UniqueIDs(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	d := env.create(t, "alice", "IDs")
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		c, err := env.svc.AddComment(ctx, d.ID, "alice", CommentInput{Body: "again"})
		require.NoError(t, err)
		assert.False(t, seen[c.ID])
		seen[c.ID] = true
	}
}

func TestLikeOrDislike(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	d := env.create(t, "alice", "Likes")
	c, err := env.svc.AddComment(ctx, d.ID, "alice", CommentInput{Body: "like me"})
	require.NoError(t, err)

	got, err := env.svc.LikeOrDislike(ctx, d.ID, c.ID, ReactionLike, MethodAdd)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Likes)

	for i := 0; i < 3; i++ {
		got, err = env.svc.LikeOrDislike(ctx, d.ID, c.ID, ReactionDislike, MethodRemove)
		require.NoError(t, err)
		assert.Equal(t, 0, got.Dislikes)
	}

	got, err = env.svc.LikeOrDislike(ctx, d.ID, c.ID, ReactionLike, MethodRemove)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Likes)

	_, err = env.svc.LikeOrDislike(ctx, d.ID, "ghost", ReactionLike, MethodAdd)
	assert.True(t, IsKind(err, KindNotFound))
	_, err = env.svc.LikeOrDislike(ctx, d.ID, c.ID, Reaction("love"), MethodAdd)
	assert.True(t, IsKind(err, KindValidation))
	_, err = env.svc.LikeOrDislike(ctx, d.ID, c.ID, ReactionLike, ReactionMethod("toggle"))
	assert.True(t, IsKind(err, KindValidation))
}

func TestLikeOrDislike_RetriesOnConflict(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	d := env.create(t, "alice", "Race")
	c, err := env.svc.AddComment(ctx, d.ID, "alice", CommentInput{Body: "x"})
	require.NoError(t, err)

	env.store.conflicts.Store(1)
	got, err := env.svc.LikeOrDislike(ctx, d.ID, c.ID, ReactionLike, MethodAdd)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Likes)
	assert.Equal(t, 1, env.get(t, d.ID).Comments[0].Likes)
}

func TestAddComment_NotifiesOwnerAndFollowers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	d := env.create(t, "alice", "Notify")
	_, err := env.svc.Follow(ctx, d.ID, "carol")
	require.NoError(t, err)
	_, err = env.svc.SetPosition(ctx, d.ID, "bob", model.PositionAgainst)
	require.NoError(t, err)

	_, err = env.svc.AddComment(ctx, d.ID, "bob", CommentInput{Body: "objection"})
	require.NoError(t, err)

	notes := env.notes.All()
	require.Len(t, notes, 2)
	assert.Equal(t, "alice", notes[0].Recipient)
	assert.Contains(t, notes[0].Message, "commented on your debate")
	assert.Equal(t, "carol", notes[1].Recipient)
	assert.Contains(t, notes[1].Message, "commented on a debate you follow")
	assert.Equal(t, d.ID, notes[1].DebateID)
	assert.False(t, notes[1].Read)
}

func TestAddComment_OwnerCommentNotifiesOwnerOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	d := env.create(t, "alice", "Own")
	_, err := env.svc.Follow(ctx, d.ID, "carol")
	require.NoError(t, err)

	_, err = env.svc.AddComment(ctx, d.ID, "alice", CommentInput{Body: "opening remarks"})
	require.NoError(t, err)

	notes := env.notes.All()
	require.Len(t, notes, 2)
	assert.Equal(t, "alice", notes[0].Recipient)
	assert.Equal(t, `alice commented on your debate "Own"`, notes[0].Message)
	assert.Equal(t, "carol", notes[1].Recipient)
	assert.Equal(t, `alice commented on a debate you follow: "Own"`, notes[1].Message)
}

func TestAddComment_SinkFailureIsNotFatal(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	d := env.create(t, "alice", "Sink")
	_, err := env.svc.Follow(ctx, d.ID, "carol")
	require.NoError(t, err)
	env.notes.FailFor = map[string]error{"alice": errors.New("sink down")}

	_, err = env.svc.SetPosition(ctx, d.ID, "bob", model.PositionFor)
	require.NoError(t, err)
	c, err := env.svc.AddComment(ctx, d.ID, "bob", CommentInput{Body: "still here"})
	require.NoError(t, err)
	assert.NotEmpty(t, c.ID)

	notes := env.notes.All()
	require.Len(t, notes, 1)
	assert.Equal(t, "carol", notes[0].Recipient)
}
