package services

import (
	"errors"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"monitorHub/internal/ctx"
	"monitorHub/internal/errs"
	"monitorHub/internal/global"
	"monitorHub/internal/models"
	"monitorHub/internal/types"
	"monitorHub/pkg/bcsstorage"
	"monitorHub/pkg/consul"
	"monitorHub/pkg/kubernetesx"
	"monitorHub/pkg/nodeman"
	"monitorHub/pkg/tools"

	"github.com/mitchellh/mapstructure"
	"github.com/zeromicro/go-zero/core/logc"
	"gorm.io/gorm"
)

const gsePlatName = "bkmonitor"

// 数据源三条链路的用途，检查消息按此顺序输出
var dataIdUsages = []string{"K8sMetricDataID", "CustomMetricDataID", "K8sEventDataID"}

var (
	// 数据源必需选项，非事件链路还要求 align_time_unit
	requiredDataSourceOptions = []string{"inject_local_time"}

	// 结果表必需选项
	requiredResultTableOptions = []string{"enable_field_black_list"}

	// VM 链路的四类资源配置缺一不可
	dataLinkRequiredKinds = []string{
		"BkBaseResultTable", "ResultTableConfig", "VMStorageBindingConfig", "DataBusConfig",
	}
)

type (
	clusterCheckService struct {
		ctx       *ctx.Context
		dataplane nodeman.Client
		bcs       bcsstorage.Client
		consul    *consul.Client

		newClusterClient func(models.ClusterRecord) (*kubernetesx.Client, error)
	}

	// InterClusterCheckService 集群接入校验。按派发顺序跑完整个检查图,
	// 后置检查复用前置检查留下的缓存, 单项失败不中断整体。
	InterClusterCheckService interface {
		CheckCluster(tenantId, clusterId string) (types.ClusterCheckReport, error)
	}
)

func newInterClusterCheckService(ctx *ctx.Context) InterClusterCheckService {
	s := &clusterCheckService{
		ctx: ctx,
		dataplane: nodeman.NewClient(nodeman.ClientConfig{
			Endpoint: global.Config.NodeMan.Endpoint,
			AppCode:  global.Config.NodeMan.AppCode,
			AppToken: global.Config.NodeMan.AppToken,
			Timeout:  global.Config.NodeMan.Timeout,
		}),
		bcs: bcsstorage.NewClient(bcsstorage.ClientConfig{
			Endpoint: global.Config.Bcs.StorageEndpoint,
			Token:    global.Config.Bcs.Token,
			Timeout:  global.Config.Bcs.Timeout,
		}),
		newClusterClient: func(cluster models.ClusterRecord) (*kubernetesx.Client, error) {
			return kubernetesx.NewClusterClient(cluster.DomainName, cluster.Port, cluster.ApiKeyContent)
		},
	}

	if global.Config.Consul.Address != "" {
		client, err := consul.NewClient(consul.ClientConfig{
			Address: global.Config.Consul.Address,
			Token:   global.Config.Consul.Token,
		})
		if err != nil {
			logc.Errorf(ctx.Ctx, "初始化配置中心客户端失败, 路由比对不可用: %s", err.Error())
		} else {
			s.consul = client
		}
	}

	return s
}

// clusterCheckRun 一次校验的中间态, 前置检查写入, 后置检查读取
type clusterCheckRun struct {
	cluster  models.ClusterRecord
	sources  map[string]models.DataSourceRecord // 用途 -> 数据源记录
	tables   []models.ResultTableRecord
	spaceUid string
}

// sortedUsages 已拉到数据源的用途列表, 保证消息顺序稳定
func (r *clusterCheckRun) sortedUsages() []string {
	var out []string
	for _, usage := range dataIdUsages {
		if _, ok := r.sources[usage]; ok {
			out = append(out, usage)
		}
	}
	return out
}

func (c *clusterCheckService) CheckCluster(tenantId, clusterId string) (types.ClusterCheckReport, error) {
	started := time.Now()
	report := types.ClusterCheckReport{
		ClusterId: clusterId,
		Status:    types.CheckStatusUnknown,
	}
	run := &clusterCheckRun{
		sources: map[string]models.DataSourceRecord{},
	}

	report.Merge(c.checkClusterRecord(tenantId, clusterId, run))
	if run.cluster.ClusterID == "" {
		// 集群记录缺失, 其余检查无从展开
		report.ExecutionTime = time.Since(started).Seconds()
		return report, nil
	}

	for _, check := range []func(*clusterCheckRun) types.CheckResult{
		c.checkDataplaneAgreement,
		c.checkDataSources,
		c.checkDataSourceOptions,
		c.checkMQRouting,
		c.checkSpaceBinding,
		c.checkMonitorResources,
		c.checkConsulPayloads,
		c.checkFederation,
		c.checkDataIDResources,
		c.checkApiToken,
		c.checkCloudId,
		c.checkCustomReport,
		c.checkResultTables,
		c.checkStorages,
		c.checkVMLink,
		c.checkLogV4Link,
		c.checkCustomGroups,
	} {
		report.Merge(check(run))
	}

	report.ExecutionTime = time.Since(started).Seconds()
	logc.Infof(c.ctx.Ctx, "集群 %s 校验完成: status=%s issues=%d 耗时 %.2fs",
		clusterId, report.Status, len(report.Issues), report.ExecutionTime)
	return report, nil
}

// 检查 1: 集群记录存在, 状态 running, 三条 data_id 均已分配
func (c *clusterCheckService) checkClusterRecord(tenantId, clusterId string, run *clusterCheckRun) types.CheckResult {
	result := newCheckResult("cluster_record")

	cluster, err := c.ctx.DB.Cluster().Get(tenantId, clusterId)
	if err != nil {
		if isRecordMissing(err) {
			result.AddMissing("[BCS集群] [cluster_id=%s] 集群记录不存在", clusterId)
		} else {
			result.AddError("[BCS集群] [cluster_id=%s] 查询集群记录失败: %s", clusterId, err.Error())
		}
		return result
	}
	run.cluster = cluster

	if !cluster.IsOperational() {
		result.AddError("[BCS集群] [cluster_id=%s,status=%s] 集群状态不是 running", clusterId, cluster.Status)
	}

	dataIds := cluster.DataIDs()
	for _, usage := range dataIdUsages {
		if dataIds[usage] == 0 {
			result.AddError("[BCS集群] [cluster_id=%s,usage=%s] data_id 未分配", clusterId, usage)
		}
	}
	result.SetDetail("dataIds", dataIds)
	return result
}

// 检查 2: 集群管理侧确认集群存在且状态一致
func (c *clusterCheckService) checkDataplaneAgreement(run *clusterCheckRun) types.CheckResult {
	result := newCheckResult("dataplane_agreement")

	meta, err := c.bcs.GetCluster(c.ctx.Ctx, run.cluster.ClusterID)
	if err != nil {
		if isRecordMissing(err) {
			result.AddMissing("[BCS集群] [cluster_id=%s] 集群管理侧无此集群", run.cluster.ClusterID)
		} else {
			result.AddWarning("[BCS集群] [cluster_id=%s] 查询集群管理失败: %s", run.cluster.ClusterID, err.Error())
		}
		return result
	}

	if !strings.EqualFold(meta.Status, run.cluster.Status) {
		result.AddError("[BCS集群] [cluster_id=%s,local=%s,remote=%s] 集群状态与远端不一致",
			run.cluster.ClusterID, run.cluster.Status, meta.Status)
	}
	result.SetDetail("remoteStatus", meta.Status)
	return result
}

// 检查 3: 每条 data_id 对应的数据源记录存在且启用
func (c *clusterCheckService) checkDataSources(run *clusterCheckRun) types.CheckResult {
	result := newCheckResult("data_source")

	dataIds := run.cluster.DataIDs()
	for _, usage := range dataIdUsages {
		dataId := dataIds[usage]
		if dataId == 0 {
			continue
		}

		ds, err := c.ctx.DB.Metadata().GetDataSource(dataId)
		if err != nil {
			if isRecordMissing(err) {
				result.AddMissing("[数据源] [bk_data_id=%d,usage=%s] 数据源记录不存在", dataId, usage)
			} else {
				result.AddError("[数据源] [bk_data_id=%d] 查询数据源失败: %s", dataId, err.Error())
			}
			continue
		}
		if !ds.IsEnable {
			result.AddError("[数据源] [bk_data_id=%d,usage=%s] 数据源已停用", dataId, usage)
			continue
		}
		run.sources[usage] = ds
	}
	return result
}

// 检查 4: 数据源必需选项, 非事件链路要求 align_time_unit
func (c *clusterCheckService) checkDataSourceOptions(run *clusterCheckRun) types.CheckResult {
	result := newCheckResult("data_source_option")

	for _, usage := range run.sortedUsages() {
		ds := run.sources[usage]
		required := append([]string{}, requiredDataSourceOptions...)
		if usage != "K8sEventDataID" {
			required = append(required, "align_time_unit")
		}
		for _, key := range required {
			if _, ok := ds.Options[key]; !ok {
				result.AddError("[数据源] [bk_data_id=%d,option=%s] 必需选项缺失", ds.BkDataId, key)
			}
		}
	}
	return result
}

// 检查 5: MQ 集群与路由配置齐全, 可刷新链路已初始化, 远端路由与本地一致
func (c *clusterCheckService) checkMQRouting(run *clusterCheckRun) types.CheckResult {
	result := newCheckResult("mq_routing")

	for _, usage := range run.sortedUsages() {
		ds := run.sources[usage]

		mqCluster, err := c.ctx.DB.Metadata().GetMQCluster(ds.MqClusterId)
		if err != nil {
			if isRecordMissing(err) {
				result.AddMissing("[MQ集群] [cluster_id=%d,bk_data_id=%d] MQ 集群不存在", ds.MqClusterId, ds.BkDataId)
			} else {
				result.AddError("[MQ集群] [cluster_id=%d] 查询 MQ 集群失败: %s", ds.MqClusterId, err.Error())
			}
			continue
		}

		mqConfig, err := c.ctx.DB.Metadata().GetMQConfig(ds.MqClusterId, mqCluster.ClusterType)
		if err != nil {
			if isRecordMissing(err) {
				result.AddMissing("[MQ配置] [cluster_id=%d,mq_type=%s] MQ 路由配置不存在", ds.MqClusterId, mqCluster.ClusterType)
			} else {
				result.AddError("[MQ配置] [cluster_id=%d] 查询 MQ 配置失败: %s", ds.MqClusterId, err.Error())
			}
			continue
		}

		if ds.IsRefreshable && ds.GseStreamToId == models.GseStreamToIDUninitialized {
			result.AddError("[数据源] [bk_data_id=%d] 链路未初始化 (gse_stream_to_id=-1)", ds.BkDataId)
			continue
		}

		remote, err := c.dataplane.QueryRoute(c.ctx.Ctx, gsePlatName, ds.BkDataId)
		if err != nil {
			result.AddWarning("[数据源] [bk_data_id=%d] 查询远端路由失败: %s", ds.BkDataId, err.Error())
			continue
		}
		local := nodeman.RouteInfo{
			ChannelId: ds.BkDataId,
			PlatName:  gsePlatName,
			StreamTo: []nodeman.RouteStreamTo{
				{StreamToId: ds.GseStreamToId, Topic: mqConfig.Topic, Partition: mqConfig.Partition},
			},
		}
		if routeHash(local) != routeHash(remote) {
			result.AddError("[数据源] [bk_data_id=%d] 远端路由与本地配置不一致", ds.BkDataId)
		}
	}
	return result
}

// 检查 6: 空间绑定存在且空间状态 NORMAL
func (c *clusterCheckService) checkSpaceBinding(run *clusterCheckRun) types.CheckResult {
	result := newCheckResult("space_binding")

	ds, ok := run.sources["K8sMetricDataID"]
	if !ok {
		result.Status = types.CheckStatusUnknown
		result.SetDetail("skipped", "内置指标数据源检查未通过")
		return result
	}

	binding, err := c.ctx.DB.Metadata().GetSpaceDataSource(ds.BkDataId)
	if err != nil {
		if isRecordMissing(err) {
			result.AddMissing("[空间绑定] [bk_data_id=%d] 空间与数据源绑定不存在", ds.BkDataId)
		} else {
			result.AddError("[空间绑定] [bk_data_id=%d] 查询空间绑定失败: %s", ds.BkDataId, err.Error())
		}
		return result
	}

	space, err := c.ctx.DB.Metadata().GetSpace(binding.SpaceTypeId, binding.SpaceId)
	if err != nil {
		if isRecordMissing(err) {
			result.AddMissing("[空间] [space_type_id=%s,space_id=%s] 空间记录不存在", binding.SpaceTypeId, binding.SpaceId)
		} else {
			result.AddError("[空间] [space_id=%s] 查询空间失败: %s", binding.SpaceId, err.Error())
		}
		return result
	}
	if space.Status != models.SpaceStatusNormal {
		result.AddError("[空间] [space_type_id=%s,space_id=%s,status=%s] 空间状态异常",
			space.SpaceTypeId, space.SpaceId, space.Status)
	}

	run.spaceUid = space.SpaceTypeId + "__" + space.SpaceId
	result.SetDetail("spaceUid", run.spaceUid)
	return result
}

// 检查 7: ServiceMonitor/PodMonitor 本地镜像非空
func (c *clusterCheckService) checkMonitorResources(run *clusterCheckRun) types.CheckResult {
	result := newCheckResult("monitor_resource")

	for _, kind := range []string{"ServiceMonitor", "PodMonitor"} {
		count, err := c.ctx.DB.Cluster().CountMonitorMirrors(run.cluster.ClusterID, kind)
		if err != nil {
			result.AddError("[监控资源] [cluster_id=%s,kind=%s] 查询镜像失败: %s", run.cluster.ClusterID, kind, err.Error())
			continue
		}
		if count == 0 {
			result.AddWarning("[监控资源] [cluster_id=%s,kind=%s] 记录数为 0", run.cluster.ClusterID, kind)
		}
		result.SetDetail(kind, count)
	}
	return result
}

// 检查 8: 配置中心路由与本地计算结果一致, 差异以点路径报告
func (c *clusterCheckService) checkConsulPayloads(run *clusterCheckRun) types.CheckResult {
	result := newCheckResult("consul_route")

	if c.consul == nil {
		result.Status = types.CheckStatusUnknown
		result.SetDetail("skipped", "配置中心未接入")
		return result
	}

	for _, usage := range run.sortedUsages() {
		ds := run.sources[usage]
		if !ds.IsRefreshable {
			continue
		}

		mqCluster, err := c.ctx.DB.Metadata().GetMQCluster(ds.MqClusterId)
		if err != nil {
			continue // 检查 5 已经报告过
		}
		mqConfig, err := c.ctx.DB.Metadata().GetMQConfig(ds.MqClusterId, mqCluster.ClusterType)
		if err != nil {
			continue
		}
		local, err := buildDataSourcePayload(ds, mqCluster, mqConfig)
		if err != nil {
			result.AddError("[配置中心] [bk_data_id=%d] 构建本地路由失败: %s", ds.BkDataId, err.Error())
			continue
		}

		key := consul.DataSourceKey(ds.BkDataId)
		remote, err := c.consul.GetKV(key)
		if err != nil {
			result.AddWarning("[配置中心] [key=%s] 读取失败: %s", key, err.Error())
			continue
		}
		if remote == nil {
			result.AddMissing("[配置中心] [key=%s] 路由键不存在", key)
			continue
		}
		if !jsonBytesEqual(local, remote) {
			result.AddError("[配置中心] [bk_data_id=%d] 路由配置不一致: %s",
				ds.BkDataId, strings.Join(jsonDiffPaths(local, remote), ", "))
		}
	}
	return result
}

// 检查 9: 联邦子集群的命名空间与内置表配置完整
func (c *clusterCheckService) checkFederation(run *clusterCheckRun) types.CheckResult {
	result := newCheckResult("federation")

	relation, err := c.ctx.DB.Cluster().GetFederationBySub(run.cluster.ClusterID)
	if err != nil {
		if isRecordMissing(err) {
			result.SetDetail("federated", false)
			return result
		}
		result.AddError("[联邦集群] [sub_cluster_id=%s] 查询联邦关系失败: %s", run.cluster.ClusterID, err.Error())
		return result
	}
	result.SetDetail("federated", true)
	result.SetDetail("hostClusterId", relation.HostClusterId)

	report := result.AddError
	if !global.Config.Cluster.StrictFederation {
		report = result.AddWarning
	}
	if len(relation.Namespaces) == 0 {
		report("[联邦集群] [sub_cluster_id=%s] 联邦命名空间为空", run.cluster.ClusterID)
	}
	if relation.FedBuiltinMetricTableId == "" {
		report("[联邦集群] [sub_cluster_id=%s] 内置指标表未配置", run.cluster.ClusterID)
	}
	if relation.FedBuiltinEventTableId == "" {
		report("[联邦集群] [sub_cluster_id=%s] 内置事件表未配置", run.cluster.ClusterID)
	}
	return result
}

// dataIDResourceSpec DataID CRD 的 spec 投影
type dataIDResourceSpec struct {
	DataID           int64             `mapstructure:"dataID"`
	Labels           map[string]string `mapstructure:"labels"`
	MetricReplace    map[string]string `mapstructure:"metricReplace"`
	DimensionReplace map[string]string `mapstructure:"dimensionReplace"`
}

// 检查 10: 集群安装了 DataID CRD 且每条链路的资源实例 spec 符合预期
func (c *clusterCheckService) checkDataIDResources(run *clusterCheckRun) types.CheckResult {
	result := newCheckResult("dataid_resource")

	client, err := c.newClusterClient(run.cluster)
	if err != nil {
		result.AddWarning("[DataID资源] [cluster_id=%s] 创建集群客户端失败: %s", run.cluster.ClusterID, err.Error())
		return result
	}

	installed, err := client.HasDataIDResourceCRD(c.ctx.Ctx)
	if err != nil {
		result.AddWarning("[DataID资源] [cluster_id=%s] 探测 CRD 失败: %s", run.cluster.ClusterID, err.Error())
		return result
	}
	if !installed {
		result.AddMissing("[DataID资源] [cluster_id=%s] DataID CRD 未安装", run.cluster.ClusterID)
		return result
	}

	list, err := client.ListDataIDResources(c.ctx.Ctx)
	if err != nil {
		result.AddWarning("[DataID资源] [cluster_id=%s] 列举资源失败: %s", run.cluster.ClusterID, err.Error())
		return result
	}

	found := map[int64]dataIDResourceSpec{}
	for _, item := range list.Items {
		var spec dataIDResourceSpec
		if derr := mapstructure.Decode(item.Object["spec"], &spec); derr != nil {
			result.AddError("[DataID资源] [cluster_id=%s,name=%s] spec 解析失败: %s",
				run.cluster.ClusterID, item.GetName(), derr.Error())
			continue
		}
		found[spec.DataID] = spec
	}

	dataIds := run.cluster.DataIDs()
	for _, usage := range dataIdUsages {
		dataId := dataIds[usage]
		if dataId == 0 {
			continue
		}
		spec, ok := found[dataId]
		if !ok {
			result.AddMissing("[DataID资源] [cluster_id=%s,bk_data_id=%d] 资源实例不存在", run.cluster.ClusterID, dataId)
			continue
		}
		if len(spec.Labels) == 0 {
			result.AddError("[DataID资源] [cluster_id=%s,bk_data_id=%d] labels 为空", run.cluster.ClusterID, dataId)
		}
	}
	result.SetDetail("resourceCount", len(list.Items))
	return result
}

// 检查 11: 集群接入令牌与全局配置一致
func (c *clusterCheckService) checkApiToken(run *clusterCheckRun) types.CheckResult {
	result := newCheckResult("api_token")

	if global.Config.Cluster.ApiToken == "" {
		result.Status = types.CheckStatusUnknown
		result.SetDetail("skipped", "全局令牌未配置")
		return result
	}
	if run.cluster.ApiKeyContent != global.Config.Cluster.ApiToken {
		result.AddError("[BCS集群] [cluster_id=%s] 接入令牌与全局配置不一致", run.cluster.ClusterID)
	}
	return result
}

// 检查 12: bk_cloud_id 已设置
func (c *clusterCheckService) checkCloudId(run *clusterCheckRun) types.CheckResult {
	result := newCheckResult("cloud_id")

	if run.cluster.BkCloudId == nil {
		result.AddWarning("[BCS集群] [cluster_id=%s] bk_cloud_id 未设置", run.cluster.ClusterID)
		return result
	}
	result.SetDetail("bkCloudId", *run.cluster.BkCloudId)
	return result
}

// 检查 13: 业务级与数据源级的自定义上报订阅存在
func (c *clusterCheckService) checkCustomReport(run *clusterCheckRun) types.CheckResult {
	result := newCheckResult("custom_report")

	if _, err := c.ctx.DB.Metadata().GetCustomReportSubscription(run.cluster.BkBizId, 0); err != nil {
		if isRecordMissing(err) {
			result.AddMissing("[自定义上报] [bk_biz_id=%d] 业务级订阅不存在", run.cluster.BkBizId)
		} else {
			result.AddError("[自定义上报] [bk_biz_id=%d] 查询订阅失败: %s", run.cluster.BkBizId, err.Error())
		}
	}

	for _, usage := range []string{"CustomMetricDataID", "K8sEventDataID"} {
		ds, ok := run.sources[usage]
		if !ok {
			continue
		}
		if _, err := c.ctx.DB.Metadata().GetCustomReportSubscription(run.cluster.BkBizId, ds.BkDataId); err != nil {
			if isRecordMissing(err) {
				result.AddWarning("[自定义上报] [bk_biz_id=%d,bk_data_id=%d] 数据源订阅不存在", run.cluster.BkBizId, ds.BkDataId)
			} else {
				result.AddError("[自定义上报] [bk_data_id=%d] 查询订阅失败: %s", ds.BkDataId, err.Error())
			}
		}
	}
	return result
}

// 检查 14: 结果表镜像、必需选项、时间字段、指标与维度字段数
func (c *clusterCheckService) checkResultTables(run *clusterCheckRun) types.CheckResult {
	result := newCheckResult("result_table")

	for _, usage := range run.sortedUsages() {
		ds := run.sources[usage]

		tables, err := c.ctx.DB.Metadata().ListResultTables(ds.BkDataId)
		if err != nil {
			result.AddError("[结果表] [bk_data_id=%d] 查询结果表失败: %s", ds.BkDataId, err.Error())
			continue
		}
		if len(tables) == 0 {
			result.AddMissing("[结果表] [bk_data_id=%d] 结果表镜像不存在", ds.BkDataId)
			continue
		}

		for _, table := range tables {
			for _, key := range requiredResultTableOptions {
				if _, ok := table.Options[key]; !ok {
					result.AddError("[结果表] [table_id=%s,option=%s] 必需选项缺失", table.TableId, key)
				}
			}

			fields, ferr := c.ctx.DB.Metadata().ListResultTableFields(table.TableId)
			if ferr != nil {
				result.AddError("[结果表] [table_id=%s] 查询字段失败: %s", table.TableId, ferr.Error())
				continue
			}
			var hasTime bool
			var metrics, dimensions int
			for _, field := range fields {
				switch field.Tag {
				case "timestamp":
					if field.FieldName == "time" {
						hasTime = true
					}
				case "metric":
					metrics++
				case "dimension":
					dimensions++
				}
			}
			if !hasTime {
				result.AddError("[结果表] [table_id=%s] 缺少 time 字段", table.TableId)
			}
			if metrics == 0 {
				result.AddError("[结果表] [table_id=%s] 指标字段数为 0", table.TableId)
			}
			if dimensions == 0 {
				result.AddError("[结果表] [table_id=%s] 维度字段数为 0", table.TableId)
			}
			run.tables = append(run.tables, table)
		}
	}
	result.SetDetail("tableCount", len(run.tables))
	return result
}

// 检查 15: 按存储类型校验存储接线
func (c *clusterCheckService) checkStorages(run *clusterCheckRun) types.CheckResult {
	result := newCheckResult("storage")

	for _, table := range run.tables {
		switch table.StorageType {
		case "influxdb":
			c.checkInfluxdbStorage(table, &result)
		case "elasticsearch":
			c.checkESStorage(table, &result)
		}
	}
	return result
}

func (c *clusterCheckService) checkInfluxdbStorage(table models.ResultTableRecord, result *types.CheckResult) {
	influx, err := c.ctx.DB.Metadata().GetInfluxdbStorage(table.TableId)
	if err != nil {
		if isRecordMissing(err) {
			result.AddMissing("[InfluxDB存储] [table_id=%s] 存储配置不存在", table.TableId)
		} else {
			result.AddError("[InfluxDB存储] [table_id=%s] 查询存储配置失败: %s", table.TableId, err.Error())
		}
		return
	}
	if influx.ProxyClusterName == "" {
		result.AddError("[InfluxDB存储] [table_id=%s] 代理集群未配置", table.TableId)
	}
	if _, err = c.ctx.DB.Metadata().GetStorageClusterInfo(influx.StorageClusterId); err != nil {
		if isRecordMissing(err) {
			result.AddMissing("[存储集群] [cluster_id=%d,table_id=%s] 集群信息不存在", influx.StorageClusterId, table.TableId)
		} else {
			result.AddError("[存储集群] [cluster_id=%d] 查询集群信息失败: %s", influx.StorageClusterId, err.Error())
		}
	}
}

func (c *clusterCheckService) checkESStorage(table models.ResultTableRecord, result *types.CheckResult) {
	es, err := c.ctx.DB.Metadata().GetESStorage(table.TableId)
	if err != nil {
		if isRecordMissing(err) {
			result.AddMissing("[ES存储] [table_id=%s] 存储配置不存在", table.TableId)
		} else {
			result.AddError("[ES存储] [table_id=%s] 查询存储配置失败: %s", table.TableId, err.Error())
		}
		return
	}

	info, err := c.ctx.DB.Metadata().GetStorageClusterInfo(es.StorageClusterId)
	if err != nil {
		if isRecordMissing(err) {
			result.AddMissing("[存储集群] [cluster_id=%d,table_id=%s] 集群信息不存在", es.StorageClusterId, table.TableId)
		} else {
			result.AddError("[存储集群] [cluster_id=%d] 查询集群信息失败: %s", es.StorageClusterId, err.Error())
		}
	} else if info.ClusterType != "elasticsearch" {
		result.AddError("[存储集群] [cluster_id=%d,type=%s] 集群类型不是 elasticsearch", es.StorageClusterId, info.ClusterType)
	}

	if rendered := time.Now().Format(es.DateFormat); !isAllDigits(rendered) {
		result.AddError("[ES存储] [table_id=%s,date_format=%s] 渲染结果包含非数字字符", table.TableId, es.DateFormat)
	}
	if es.TimeZone < -12 || es.TimeZone > 12 {
		result.AddError("[ES存储] [table_id=%s,time_zone=%d] 时区超出 [-12,12]", table.TableId, es.TimeZone)
	}
	if es.WarmPhaseDays > 0 && !isJsonObject(es.WarmPhaseSettings) {
		result.AddError("[ES存储] [table_id=%s] warm_phase_settings 不完整", table.TableId)
	}
	if !isJsonObject(es.IndexSettings) {
		result.AddError("[ES存储] [table_id=%s] index_settings 无法解析", table.TableId)
	}
	if !isJsonObject(es.MappingSettings) {
		result.AddError("[ES存储] [table_id=%s] mapping_settings 无法解析", table.TableId)
	}

	records, err := c.ctx.DB.Cluster().ListStorageRecords(table.TableId)
	if err != nil {
		result.AddError("[存储迁移记录] [table_id=%s] 查询失败: %s", table.TableId, err.Error())
		return
	}
	var current []models.StorageClusterRecord
	for _, record := range records {
		if record.IsCurrent {
			current = append(current, record)
		}
	}
	if len(current) != 1 {
		result.AddError("[存储迁移记录] [table_id=%s] is_current 记录数为 %d, 应为 1", table.TableId, len(current))
		return
	}
	if current[0].ClusterID != es.StorageClusterId {
		result.AddError("[存储迁移记录] [table_id=%s,record=%d,storage=%d] 生效记录与存储配置不一致",
			table.TableId, current[0].ClusterID, es.StorageClusterId)
	}
}

// 检查 16: VM 链路接线与空间路由缓存
func (c *clusterCheckService) checkVMLink(run *clusterCheckRun) types.CheckResult {
	result := newCheckResult("vm_link")

	for _, table := range run.tables {
		if table.StorageType != "influxdb" && table.Options["enable_v2_vm_data_link"] != "true" {
			continue
		}

		vm, err := c.ctx.DB.Metadata().GetAccessVMRecord(table.TableId)
		if err != nil {
			if isRecordMissing(err) {
				result.AddMissing("[VM接入] [table_id=%s] 接入记录不存在", table.TableId)
			} else {
				result.AddError("[VM接入] [table_id=%s] 查询接入记录失败: %s", table.TableId, err.Error())
			}
			continue
		}

		if _, err = c.ctx.DB.Metadata().GetDataLink(vm.VmResultTableId); err != nil {
			if isRecordMissing(err) {
				result.AddMissing("[VM链路] [name=%s,table_id=%s] 链路不存在", vm.VmResultTableId, table.TableId)
			} else {
				result.AddError("[VM链路] [name=%s] 查询链路失败: %s", vm.VmResultTableId, err.Error())
			}
			continue
		}

		resources, err := c.ctx.DB.Metadata().ListDataLinkResources(vm.VmResultTableId)
		if err != nil {
			result.AddError("[VM链路] [name=%s] 查询资源配置失败: %s", vm.VmResultTableId, err.Error())
			continue
		}
		byKind := map[string]models.DataLinkResourceConfig{}
		for _, resource := range resources {
			byKind[resource.Kind] = resource
		}
		for _, kind := range dataLinkRequiredKinds {
			resource, ok := byKind[kind]
			if !ok {
				result.AddError("[VM链路] [name=%s,kind=%s] 资源配置缺失", vm.VmResultTableId, kind)
				continue
			}
			if resource.Status != "" && resource.Status != "Ok" {
				result.AddError("[VM链路] [name=%s,kind=%s,status=%s] 资源状态异常", vm.VmResultTableId, kind, resource.Status)
			}
		}

		if run.spaceUid == "" || c.ctx.Redis == nil {
			continue
		}
		router, err := c.ctx.Redis.VMRouter().GetRouter(c.ctx.Ctx, run.spaceUid, table.TableId)
		if err != nil {
			result.AddWarning("[VM路由] [space_uid=%s,table_id=%s] 读取路由缓存失败: %s", run.spaceUid, table.TableId, err.Error())
			continue
		}
		if router == "" {
			result.AddError("[VM路由] [space_uid=%s,table_id=%s] 路由缓存缺失", run.spaceUid, table.TableId)
		} else if router != vm.VmResultTableId {
			result.AddWarning("[VM路由] [space_uid=%s,table_id=%s,router=%s] 路由缓存与接入记录不一致",
				run.spaceUid, table.TableId, router)
		}
	}
	return result
}

// 检查 17: 开启 V4 日志链路的结果表, 链路配置与存储齐备且数据源来自 BKDATA
func (c *clusterCheckService) checkLogV4Link(run *clusterCheckRun) types.CheckResult {
	result := newCheckResult("log_v4_link")

	for _, table := range run.tables {
		if table.Options["enable_v4_log_data_link"] != "true" {
			continue
		}

		if cfg := table.Options["v4_log_data_link_config"]; cfg == "" {
			result.AddError("[日志链路] [table_id=%s] 链路配置未设置", table.TableId)
		} else if !isJsonObject(cfg) {
			result.AddError("[日志链路] [table_id=%s] 链路配置无法解析", table.TableId)
		}

		if _, err := c.ctx.DB.Metadata().GetESStorage(table.TableId); err != nil {
			if isRecordMissing(err) {
				result.AddMissing("[日志链路] [table_id=%s] 引用的 ES 存储不存在", table.TableId)
			} else {
				result.AddError("[日志链路] [table_id=%s] 查询存储失败: %s", table.TableId, err.Error())
			}
		}

		ds, err := c.ctx.DB.Metadata().GetDataSource(table.BkDataId)
		if err != nil {
			result.AddError("[日志链路] [bk_data_id=%d] 查询数据源失败: %s", table.BkDataId, err.Error())
			continue
		}
		if ds.CreatedFrom != models.DataSourceFromBkdata {
			result.AddError("[数据源] [bk_data_id=%d,created_from=%s] created_from 应为 BKDATA", ds.BkDataId, ds.CreatedFrom)
		}
	}
	return result
}

// 检查 18: 自定义指标分组与事件分组存在且启用
func (c *clusterCheckService) checkCustomGroups(run *clusterCheckRun) types.CheckResult {
	result := newCheckResult("custom_group")

	if ds, ok := run.sources["CustomMetricDataID"]; ok {
		group, err := c.ctx.DB.Metadata().GetTimeSeriesGroup(ds.BkDataId)
		if err != nil {
			if isRecordMissing(err) {
				result.AddMissing("[自定义指标分组] [bk_data_id=%d] 分组不存在", ds.BkDataId)
			} else {
				result.AddError("[自定义指标分组] [bk_data_id=%d] 查询分组失败: %s", ds.BkDataId, err.Error())
			}
		} else if !group.IsEnable {
			result.AddError("[自定义指标分组] [bk_data_id=%d,name=%s] 分组已停用", ds.BkDataId, group.GroupName)
		}
	}

	if ds, ok := run.sources["K8sEventDataID"]; ok {
		group, err := c.ctx.DB.Metadata().GetEventGroup(ds.BkDataId)
		if err != nil {
			if isRecordMissing(err) {
				result.AddMissing("[事件分组] [bk_data_id=%d] 分组不存在", ds.BkDataId)
			} else {
				result.AddError("[事件分组] [bk_data_id=%d] 查询分组失败: %s", ds.BkDataId, err.Error())
			}
		} else if !group.IsEnable {
			result.AddError("[事件分组] [bk_data_id=%d,name=%s] 分组已停用", ds.BkDataId, group.GroupName)
		}
	}
	return result
}

func newCheckResult(name string) types.CheckResult {
	return types.CheckResult{
		Name:   name,
		Status: types.CheckStatusSuccess,
	}
}

func isRecordMissing(err error) bool {
	var notFound *errs.NotFoundError
	if errors.As(err, &notFound) {
		return true
	}
	return errors.Is(err, gorm.ErrRecordNotFound)
}

func routeHash(route nodeman.RouteInfo) string {
	raw, err := tools.JsonMarshal(route)
	if err != nil {
		return ""
	}
	return tools.Md5Hash(raw)
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func isJsonObject(s string) bool {
	var obj map[string]interface{}
	if err := tools.JsonUnmarshal([]byte(s), &obj); err != nil {
		return false
	}
	return len(obj) > 0
}

// jsonDiffPaths 递归比较两份 JSON, 返回不一致字段的点路径
func jsonDiffPaths(a, b []byte) []string {
	var av, bv interface{}
	if err := tools.JsonUnmarshal(a, &av); err != nil {
		return []string{"<local unparsable>"}
	}
	if err := tools.JsonUnmarshal(b, &bv); err != nil {
		return []string{"<remote unparsable>"}
	}

	var paths []string
	walkJsonDiff("", av, bv, &paths)
	sort.Strings(paths)
	return paths
}

func walkJsonDiff(path string, a, b interface{}, out *[]string) {
	am, aok := a.(map[string]interface{})
	bm, bok := b.(map[string]interface{})
	if aok && bok {
		keys := map[string]struct{}{}
		for k := range am {
			keys[k] = struct{}{}
		}
		for k := range bm {
			keys[k] = struct{}{}
		}
		for k := range keys {
			walkJsonDiff(joinPath(path, k), am[k], bm[k], out)
		}
		return
	}

	as, aok := a.([]interface{})
	bs, bok := b.([]interface{})
	if aok && bok {
		if len(as) != len(bs) {
			*out = append(*out, path)
			return
		}
		for i := range as {
			walkJsonDiff(joinPath(path, strconv.Itoa(i)), as[i], bs[i], out)
		}
		return
	}

	if !reflect.DeepEqual(a, b) {
		*out = append(*out, path)
	}
}

func joinPath(base, key string) string {
	if base == "" {
		return key
	}
	return base + "." + key
}
