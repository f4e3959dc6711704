package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	RankingKey        = "debate:popularity"
	RankingStagingKey = "debate:popularity:rebuild"
	// 重建期间线上写入的 id 记在 dirty 集合里，换表后按库里最新值补写
	RankingRebuildingKey = "debate:popularity:rebuilding"
	RankingDirtyKey      = "debate:popularity:dirty"
	RebuildMarkerTTL     = 10 * time.Minute
	LockTTL              = 30 * time.Second
	LockKeyPrefix        = "lock:debate:"
)

// RankingRepository 热度排行榜，member 为辩题 id，score 为热度
type RankingRepository struct {
	RDB *redis.Client
}

type DistLock struct {
	RDB *redis.Client
}

func (r *RankingRepository) Set(ctx context.Context, debateID string, popularity int64) error {
	return setScript.Run(ctx, r.RDB, rankingKeys, debateID, popularity).Err()
}

func (r *RankingRepository) Remove(ctx context.Context, debateID string) error {
	return removeScript.Run(ctx, r.RDB, rankingKeys, debateID).Err()
}

// Top 按热度倒序取一页 id
func (r *RankingRepository) Top(ctx context.Context, offset, limit int) ([]string, error) {
	if limit <= 0 {
		return nil, nil
	}
	ids, err := r.RDB.ZRevRange(ctx, RankingKey, int64(offset), int64(offset+limit-1)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return ids, err
}

// Begin 开始一次全量重建：清理上次残留，并打上重建标记
func (r *RankingRepository) Begin(ctx context.Context) error {
	pipe := r.RDB.TxPipeline()
	pipe.Del(ctx, RankingStagingKey, RankingDirtyKey)
	pipe.Set(ctx, RankingRebuildingKey, 1, RebuildMarkerTTL)
	_, err := pipe.Exec(ctx)
	return err
}

// Stage 全量重建时先写入临时 key
func (r *RankingRepository) Stage(ctx context.Context, scores map[string]int64) error {
	if len(scores) == 0 {
		return nil
	}
	members := make([]redis.Z, 0, len(scores))
	for id, s := range scores {
		members = append(members, redis.Z{Score: float64(s), Member: id})
	}
	return r.RDB.ZAdd(ctx, RankingStagingKey, members...).Err()
}

// Swap 用临时 key 原子替换线上排行榜；没有任何数据时直接清空。
// 临时 key 里的分数来自扫描时刻，扫描之后的线上写入会被覆盖，
// 调用方需要在 Swap 之后用 Dirty 取回这些 id 重新写入。
func (r *RankingRepository) Swap(ctx context.Context) error {
	n, err := r.RDB.Exists(ctx, RankingStagingKey).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return r.RDB.Del(ctx, RankingKey).Err()
	}
	return r.RDB.Rename(ctx, RankingStagingKey, RankingKey).Err()
}

// Dirty 取出并清空重建期间被线上写入的 id，同时撤掉重建标记
func (r *RankingRepository) Dirty(ctx context.Context) ([]string, error) {
	pipe := r.RDB.TxPipeline()
	members := pipe.SMembers(ctx, RankingDirtyKey)
	pipe.Del(ctx, RankingDirtyKey, RankingRebuildingKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}
	return members.Val(), nil
}

// Discard 丢弃未完成的重建
func (r *RankingRepository) Discard(ctx context.Context) error {
	return r.RDB.Del(ctx, RankingStagingKey, RankingDirtyKey, RankingRebuildingKey).Err()
}

func (l *DistLock) Acquire(ctx context.Context, name, token string) (bool, error) {
	return l.RDB.SetNX(ctx, LockKeyPrefix+name, token, LockTTL).Result()
}

// Extend 续期，只有持有者能续；返回 false 表示锁已经丢了
func (l *DistLock) Extend(ctx context.Context, name, token string) (bool, error) {
	n, err := extendScript.Run(ctx, l.RDB, []string{LockKeyPrefix + name}, token, LockTTL.Milliseconds()).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Release 用lua保证原子性
func (l *DistLock) Release(ctx context.Context, name, token string) error {
	_, err := releaseScript.Run(ctx, l.RDB, []string{LockKeyPrefix + name}, token).Result()
	return err
}

var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
else
  return 0
end`)

var extendScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("pexpire", KEYS[1], ARGV[2])
else
  return 0
end`)

var rankingKeys = []string{RankingKey, RankingRebuildingKey, RankingDirtyKey}

// 写线上排行，重建进行中时顺带记到 dirty
var setScript = redis.NewScript(`
redis.call("zadd", KEYS[1], ARGV[2], ARGV[1])
if redis.call("exists", KEYS[2]) == 1 then
  redis.call("sadd", KEYS[3], ARGV[1])
end
return 1`)

var removeScript = redis.NewScript(`
redis.call("zrem", KEYS[1], ARGV[1])
if redis.call("exists", KEYS[2]) == 1 then
  redis.call("sadd", KEYS[3], ARGV[1])
end
return 1`)
