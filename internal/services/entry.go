package services

import (
	"monitorHub/internal/ctx"
)

var (
	DutyScheduleService     InterDutyScheduleService
	ConsistencyCheckService InterConsistencyCheckService
	CollectService          InterCollectService
	CollectReconcileService InterCollectReconcileService
	ClusterCheckService     InterClusterCheckService
)

func NewServices(ctx *ctx.Context) {
	DutyScheduleService = newInterDutyScheduleService(ctx)
	ConsistencyCheckService = newInterConsistencyCheckService(ctx)
	CollectService = newInterCollectService(ctx)
	CollectReconcileService = newInterCollectReconcileService(ctx)
	ClusterCheckService = newInterClusterCheckService(ctx)
}
