package storage

import (
	"PRelay/tools/errs"
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	presencePrefix = "im:presence:"
	lastSeenKey    = "im:lastseen"
)

// 只删除本节点写入的在线键，避免把别的节点上的在线状态抹掉
// KEYS[1] = presence key
// KEYS[2] = last-seen hash
// ARGV[1] = node id
// ARGV[2] = user id
// ARGV[3] = last seen (unix ms)
// 返回：1=删掉了在线键；0=键不存在或属于其它节点
const luaMarkOffline = `
local existed = 0
if redis.call("GET", KEYS[1]) == ARGV[1] then
  existed = redis.call("DEL", KEYS[1])
end
redis.call("HSET", KEYS[2], ARGV[2], ARGV[3])
return existed
`

type MirrorConfig struct {
	NodeID string
	TTL    time.Duration // 在线键有效期；由 Refresh 周期续期
}

// PresenceMirror 把在线状态镜像到 Redis，供其它服务读取。
// 权威在线状态仍在进程内的连接登记表；这里的数据允许短暂滞后。
type PresenceMirror struct {
	rdb     redis.UniversalClient
	conf    MirrorConfig
	offline *redis.Script
}

func NewPresenceMirror(rdb redis.UniversalClient, conf MirrorConfig) *PresenceMirror {
	if conf.TTL <= 0 {
		conf.TTL = 60 * time.Second
	}
	return &PresenceMirror{rdb: rdb, conf: conf, offline: redis.NewScript(luaMarkOffline)}
}

// presence key: im:presence:<user>，value=节点 id
func (m *PresenceMirror) presenceKey(userID string) string { return presencePrefix + userID }

// MarkOnline 写在线键并设置 TTL
func (m *PresenceMirror) MarkOnline(ctx context.Context, userID string) error {
	if err := m.rdb.Set(ctx, m.presenceKey(userID), m.conf.NodeID, m.conf.TTL).Err(); err != nil {
		return errs.WrapMsg(err, "redis set presence", "userId", userID)
	}
	return nil
}

// MarkOffline 删除在线键并记录最后在线时间
func (m *PresenceMirror) MarkOffline(ctx context.Context, userID string, at time.Time) error {
	err := m.offline.Run(ctx, m.rdb,
		[]string{m.presenceKey(userID), lastSeenKey},
		m.conf.NodeID, userID, at.UnixMilli(),
	).Err()
	if err != nil {
		return errs.WrapMsg(err, "redis mark offline", "userId", userID)
	}
	return nil
}

// Refresh 批量续期当前在线用户
func (m *PresenceMirror) Refresh(ctx context.Context, userIDs []string) error {
	if len(userIDs) == 0 {
		return nil
	}
	pipe := m.rdb.Pipeline()
	for _, u := range userIDs {
		pipe.Set(ctx, m.presenceKey(u), m.conf.NodeID, m.conf.TTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return errs.WrapMsg(err, "redis refresh presence", "users", len(userIDs))
	}
	return nil
}

// Lookup 用户是否在线以及所在节点
func (m *PresenceMirror) Lookup(ctx context.Context, userID string) (node string, online bool, err error) {
	val, err := m.rdb.Get(ctx, m.presenceKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

// LastSeen 最后一次下线时间
func (m *PresenceMirror) LastSeen(ctx context.Context, userID string) (time.Time, bool, error) {
	val, err := m.rdb.HGet(ctx, lastSeenKey, userID).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	ms, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return time.Time{}, false, err
	}
	return time.UnixMilli(ms).UTC(), true, nil
}
