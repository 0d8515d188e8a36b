package cache

import (
	"context"
	"fmt"
	"time"

	"monitorHub/internal/global"

	"github.com/bsm/redislock"
)

type (
	LockCache struct {
		locker *redislock.Client
	}

	// InterLockCache 分布式互斥锁。采集配置与排班写入都靠它串行化，
	// 同一把锁内完成数据面调用和落库。
	InterLockCache interface {
		ObtainCollectConfig(ctx context.Context, configId string) (*redislock.Lock, error)
		ObtainDutyGroup(ctx context.Context, userGroupId string) (*redislock.Lock, error)
	}
)

func newLockInterface(locker *redislock.Client) InterLockCache {
	return &LockCache{
		locker: locker,
	}
}

func (l LockCache) obtain(ctx context.Context, key string) (*redislock.Lock, error) {
	ttl := time.Duration(global.Config.Collect.LockTTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = 60 * time.Second
	}

	lock, err := l.locker.Obtain(ctx, key, ttl, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(200*time.Millisecond), 50),
	})
	if err != nil {
		return nil, fmt.Errorf("获取锁 %s 失败: %w", key, err)
	}

	return lock, nil
}

func (l LockCache) ObtainCollectConfig(ctx context.Context, configId string) (*redislock.Lock, error) {
	return l.obtain(ctx, fmt.Sprintf("collect_config:%s", configId))
}

func (l LockCache) ObtainDutyGroup(ctx context.Context, userGroupId string) (*redislock.Lock, error) {
	return l.obtain(ctx, fmt.Sprintf("duty_group:%s", userGroupId))
}
