package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const vmRouterKeyPrefix = "monitorHub:vm_router"

type (
	VMRouterCache struct {
		rc *redis.Client
	}

	// InterVMRouterCache VM 空间路由键缓存。持久层才是权威数据，
	// 这里允许过期，读不到时回源刷新。
	InterVMRouterCache interface {
		SetRouter(ctx context.Context, spaceUid, tableId, vmTableId string) error
		GetRouter(ctx context.Context, spaceUid, tableId string) (string, error)
		DeleteSpace(ctx context.Context, spaceUid string) error
	}
)

func newVMRouterInterface(rc *redis.Client) InterVMRouterCache {
	return &VMRouterCache{
		rc: rc,
	}
}

func (v VMRouterCache) key(spaceUid string) string {
	return fmt.Sprintf("%s:%s", vmRouterKeyPrefix, spaceUid)
}

func (v VMRouterCache) SetRouter(ctx context.Context, spaceUid, tableId, vmTableId string) error {
	key := v.key(spaceUid)
	if err := v.rc.HSet(ctx, key, tableId, vmTableId).Err(); err != nil {
		return fmt.Errorf("写入 VM 路由缓存失败: %w", err)
	}
	return v.rc.Expire(ctx, key, 24*time.Hour).Err()
}

func (v VMRouterCache) GetRouter(ctx context.Context, spaceUid, tableId string) (string, error) {
	val, err := v.rc.HGet(ctx, v.key(spaceUid), tableId).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("读取 VM 路由缓存失败: %w", err)
	}
	return val, nil
}

func (v VMRouterCache) DeleteSpace(ctx context.Context, spaceUid string) error {
	return v.rc.Del(ctx, v.key(spaceUid)).Err()
}
