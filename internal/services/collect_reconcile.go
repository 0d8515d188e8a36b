package services

import (
	"reflect"

	"monitorHub/internal/ctx"
	"monitorHub/internal/global"
	"monitorHub/internal/models"
	"monitorHub/pkg/consul"
	"monitorHub/pkg/nodeman"
	"monitorHub/pkg/tools"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/zeromicro/go-zero/core/logc"
)

var (
	reconcileSweepTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "monitorhub_collect_reconcile_sweep_total",
		Help: "采集巡检执行次数",
	})
	reconcileInflightConfigs = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "monitorhub_collect_reconcile_inflight_configs",
		Help: "最近一轮巡检扫到的未终态采集配置数",
	})
	reconcileErrorTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "monitorhub_collect_reconcile_error_total",
		Help: "巡检中数据面或存储调用失败次数",
	})
	routeRefreshTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "monitorhub_route_payload_refresh_total",
		Help: "配置中心路由配置刷新写入次数",
	})
)

type (
	collectReconcileService struct {
		ctx       *ctx.Context
		dataplane nodeman.Client
		consul    *consul.Client
	}

	// InterCollectReconcileService 周期巡检。实例状态对账是把
	// DEPLOYING 降到终态的唯一路径，路由刷新保证配置中心与本地一致。
	InterCollectReconcileService interface {
		SweepStatuses() error
		RefreshRoutePayloads() error
	}
)

func newInterCollectReconcileService(ctx *ctx.Context) InterCollectReconcileService {
	s := &collectReconcileService{
		ctx: ctx,
		dataplane: nodeman.NewClient(nodeman.ClientConfig{
			Endpoint: global.Config.NodeMan.Endpoint,
			AppCode:  global.Config.NodeMan.AppCode,
			AppToken: global.Config.NodeMan.AppToken,
			Timeout:  global.Config.NodeMan.Timeout,
		}),
	}

	if global.Config.Consul.Address != "" {
		client, err := consul.NewClient(consul.ClientConfig{
			Address: global.Config.Consul.Address,
			Token:   global.Config.Consul.Token,
		})
		if err != nil {
			logc.Errorf(ctx.Ctx, "初始化配置中心客户端失败, 路由刷新不可用: %s", err.Error())
		} else {
			s.consul = client
		}
	}

	return s
}

// SweepStatuses 扫描未到终态的采集配置并按数据面统计刷新状态。
// 与用户操作竞争同一把 collect_config 锁。
func (c *collectReconcileService) SweepStatuses() error {
	reconcileSweepTotal.Inc()

	configs, err := c.ctx.DB.Collect().ListByOperationResults(
		[]string{models.OperationResultDeploying, models.OperationResultPreparing})
	if err != nil {
		reconcileErrorTotal.Inc()
		return err
	}
	reconcileInflightConfigs.Set(float64(len(configs)))

	for _, config := range configs {
		if err = c.reconcileConfig(config); err != nil {
			reconcileErrorTotal.Inc()
			logc.Errorf(c.ctx.Ctx, "巡检采集配置 %s 失败: %s", config.ID, err.Error())
		}
	}
	return nil
}

func (c *collectReconcileService) reconcileConfig(config models.CollectConfig) error {
	lock, err := c.ctx.Redis.Lock().ObtainCollectConfig(c.ctx.Ctx, config.ID)
	if err != nil {
		return err
	}
	defer lock.Release(c.ctx.Ctx)

	return c.refreshConfigStatus(config)
}

func (c *collectReconcileService) refreshConfigStatus(config models.CollectConfig) error {
	version, err := c.ctx.DB.Collect().GetVersion(config.TenantId, config.DeploymentConfigId)
	if err != nil {
		return err
	}
	if version.SubscriptionId == 0 {
		return nil
	}

	// 数据面瞬时失败不改状态, 留给下一轮重试
	stats, err := c.dataplane.Statistic(c.ctx.Ctx, []int64{version.SubscriptionId})
	if err != nil {
		return err
	}

	var stat *nodeman.SubscriptionStatistic
	for i := range stats {
		if stats[i].SubscriptionId == version.SubscriptionId {
			stat = &stats[i]
			break
		}
	}
	if stat == nil {
		return nil
	}

	// 目标尚未解析出实例时维持 PREPARING
	if stat.Instances == 0 && config.OperationResult == models.OperationResultPreparing {
		return nil
	}

	result := models.AggregateInstanceStatuses(stat.InstanceStatuses())
	errorCount, totalCount := stat.ErrorCounts()

	return c.ctx.DB.Collect().UpdateStatus(config.TenantId, config.ID, map[string]interface{}{
		"operation_result":     result,
		"error_instance_count": errorCount,
		"total_instance_count": totalCount,
	})
}

// RefreshRoutePayloads 把可刷新数据源的路由配置对齐到配置中心, 内容相等时跳过写入
func (c *collectReconcileService) RefreshRoutePayloads() error {
	if c.consul == nil {
		return nil
	}

	sources, err := c.ctx.DB.Metadata().ListRefreshableDataSources()
	if err != nil {
		reconcileErrorTotal.Inc()
		return err
	}

	for _, ds := range sources {
		payload, perr := c.buildRoutePayload(ds)
		if perr != nil {
			reconcileErrorTotal.Inc()
			logc.Errorf(c.ctx.Ctx, "构建数据源 %d 路由配置失败: %s", ds.BkDataId, perr.Error())
			continue
		}

		key := consul.DataSourceKey(ds.BkDataId)
		remote, gerr := c.consul.GetKV(key)
		if gerr != nil {
			reconcileErrorTotal.Inc()
			logc.Errorf(c.ctx.Ctx, "读取配置中心 %s 失败: %s", key, gerr.Error())
			continue
		}
		if jsonBytesEqual(remote, payload) {
			continue
		}

		if perr = c.consul.PutKV(key, payload); perr != nil {
			reconcileErrorTotal.Inc()
			logc.Errorf(c.ctx.Ctx, "写入配置中心 %s 失败: %s", key, perr.Error())
			continue
		}
		routeRefreshTotal.Inc()
		logc.Infof(c.ctx.Ctx, "刷新数据源 %d 路由配置", ds.BkDataId)
	}
	return nil
}

func (c *collectReconcileService) buildRoutePayload(ds models.DataSourceRecord) ([]byte, error) {
	mqCluster, err := c.ctx.DB.Metadata().GetMQCluster(ds.MqClusterId)
	if err != nil {
		return nil, err
	}
	mqConfig, err := c.ctx.DB.Metadata().GetMQConfig(ds.MqClusterId, mqCluster.ClusterType)
	if err != nil {
		return nil, err
	}
	return buildDataSourcePayload(ds, mqCluster, mqConfig)
}

// dataSourceRoutePayload 数据源在配置中心的规范路由载荷。
// 结构体字段序保证序列化字节稳定, 校验和刷新两侧用同一份实现做相等性比较。
type dataSourceRoutePayload struct {
	BkDataId  int64             `json:"bk_data_id"`
	DataName  string            `json:"data_name"`
	EtlConfig string            `json:"etl_config"`
	MQConfig  routePayloadMQ    `json:"mq_config"`
	Option    map[string]string `json:"option,omitempty"`
}

type routePayloadMQ struct {
	ClusterType string `json:"cluster_type"`
	DomainName  string `json:"domain_name"`
	Port        int    `json:"port"`
	Topic       string `json:"topic"`
	Partition   int    `json:"partition"`
}

// jsonBytesEqual 语义相等比较, 键序和空白差异不算漂移
func jsonBytesEqual(a, b []byte) bool {
	var av, bv interface{}
	if err := tools.JsonUnmarshal(a, &av); err != nil {
		return false
	}
	if err := tools.JsonUnmarshal(b, &bv); err != nil {
		return false
	}
	return reflect.DeepEqual(av, bv)
}

func buildDataSourcePayload(ds models.DataSourceRecord, mqCluster models.MQClusterRecord, mqConfig models.MQConfigRecord) ([]byte, error) {
	return tools.JsonMarshal(dataSourceRoutePayload{
		BkDataId:  ds.BkDataId,
		DataName:  ds.DataName,
		EtlConfig: ds.EtlConfig,
		MQConfig: routePayloadMQ{
			ClusterType: mqCluster.ClusterType,
			DomainName:  mqCluster.DomainName,
			Port:        mqCluster.Port,
			Topic:       mqConfig.Topic,
			Partition:   mqConfig.Partition,
		},
		Option: ds.Options,
	})
}
