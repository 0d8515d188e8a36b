package initialization

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"monitorHub/config"
	"monitorHub/internal/cache"
	"monitorHub/internal/ctx"
	"monitorHub/internal/global"
	"monitorHub/internal/repo"
	"monitorHub/internal/services"
	"monitorHub/pkg/tools"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/zeromicro/go-zero/core/logc"
)

func InitBasic() {

	// 初始化配置
	global.Config = config.InitConfig()

	dbRepo := repo.NewRepoEntry()
	rCache := cache.NewEntryCache()
	ctx := ctx.NewContext(context.Background(), dbRepo, rCache)

	services.NewServices(ctx)

	// 定时任务，采集配置状态巡检
	go collectReconcileScheduler(ctx)

	// 定时任务，配置中心路由刷新
	go routeRefreshScheduler(ctx)

	// 定时任务，值班组排班快照对账
	go dutySnapScheduler(ctx)

	// 定时任务，排班通知扫描
	go dutyNoticeScheduler(ctx)
}

// InitServer 暴露指标与健康检查端点，阻塞主协程
func InitServer() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	addr := ":" + global.Config.Server.Port
	logc.Infof(context.Background(), "服务启动, 监听 %s", addr)
	panic(http.ListenAndServe(addr, mux))
}

// collectReconcileScheduler 未终态采集配置的状态对账，
// DEPLOYING 只能经由这里降到终态
func collectReconcileScheduler(ctx *ctx.Context) {
	interval := global.Config.Collect.ReconcileIntervalMinutes
	if interval <= 0 {
		interval = 5
	}
	tools.NewCronjob(fmt.Sprintf("*/%d * * * *", interval), func() {
		if err := services.CollectReconcileService.SweepStatuses(); err != nil {
			logc.Errorf(ctx.Ctx, "采集状态巡检失败: %s", err.Error())
		}
	})
}

func routeRefreshScheduler(ctx *ctx.Context) {
	tools.NewCronjob("*/10 * * * *", func() {
		if err := services.CollectReconcileService.RefreshRoutePayloads(); err != nil {
			logc.Errorf(ctx.Ctx, "路由配置刷新失败: %s", err.Error())
		}
	})
}

// dutySnapScheduler 每小时扫一遍需要排班的用户组，
// 规则变更截断重排、排班水平线滚动都在对账里完成
func dutySnapScheduler(ctx *ctx.Context) {
	tools.NewCronjob("0 * * * *", func() {
		groups, err := ctx.DB.UserGroup().List("", 0)
		if err != nil {
			logc.Errorf(ctx.Ctx, "获取用户组列表失败: %s", err.Error())
			return
		}

		now := time.Now()
		for _, group := range groups {
			if !group.NeedDuty {
				continue
			}
			if err = services.DutyScheduleService.ManageGroupSnap(group, now); err != nil {
				logc.Errorf(ctx.Ctx, "用户组 %s 排班对账失败: %s", group.ID, err.Error())
			}
		}
	})
}

func dutyNoticeScheduler(ctx *ctx.Context) {
	spec := global.Config.Duty.NoticeCron
	if spec == "" {
		spec = "*/1 * * * *"
	}
	tools.NewCronjob(spec, func() {
		if err := services.DutyScheduleService.ScanNotices("", time.Now()); err != nil {
			logc.Errorf(ctx.Ctx, "排班通知扫描失败: %s", err.Error())
		}
	})
}
