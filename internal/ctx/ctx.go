package ctx

import (
	"context"
	"sync"

	"monitorHub/internal/cache"
	"monitorHub/internal/repo"
)

// DB 包级持久化入口，NewContext 时赋值，供无 Context 句柄的后台任务使用
var DB repo.InterEntryRepo

// Context 贯穿服务层的依赖容器，持有持久化入口与缓存入口
type Context struct {
	DB    repo.InterEntryRepo
	Redis cache.InterEntryCache
	Ctx   context.Context
	Mux   sync.Mutex

	// ContextMap 保存可取消的后台任务句柄
	ContextMap map[string]context.CancelFunc
}

func NewContext(ctx context.Context, db repo.InterEntryRepo, redis cache.InterEntryCache) *Context {
	DB = db
	return &Context{
		DB:         db,
		Redis:      redis,
		Ctx:        ctx,
		ContextMap: make(map[string]context.CancelFunc),
	}
}
