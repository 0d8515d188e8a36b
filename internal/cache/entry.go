package cache

import (
	"context"
	"fmt"

	"monitorHub/internal/global"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

type (
	entryCache struct {
		redis *redis.Client
	}

	EntryCache struct {
		redis    *redis.Client
		lock     InterLockCache
		vmRouter InterVMRouterCache
	}

	InterEntryCache interface {
		Redis() *redis.Client
		Lock() InterLockCache
		VMRouter() InterVMRouterCache
	}
)

func NewEntryCache() InterEntryCache {
	client := initRedis()
	locker := redislock.New(client)

	return &EntryCache{
		redis:    client,
		lock:     newLockInterface(locker),
		vmRouter: newVMRouterInterface(client),
	}
}

func (e EntryCache) Redis() *redis.Client         { return e.redis }
func (e EntryCache) Lock() InterLockCache         { return e.lock }
func (e EntryCache) VMRouter() InterVMRouterCache { return e.vmRouter }

func initRedis() *redis.Client {
	cfg := global.Config.Redis
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Pass,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		panic(fmt.Errorf("Redis 连接失败: %w", err))
	}

	return client
}
