package services

import (
	"context"
	"fmt"

	"monitorHub/internal/cache"
	"monitorHub/internal/errs"
	"monitorHub/internal/models"
	"monitorHub/internal/repo"

	"monitorHub/pkg/bcsstorage"
	"monitorHub/pkg/nodeman"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// 内嵌接口让未覆盖的方法在误用时直接崩溃, 测试只实现被测路径需要的方法

type fakeEntryRepo struct {
	repo.InterEntryRepo
	dutyRule *fakeDutyRuleRepo
	dutyPlan *fakeDutyPlanRepo
	collect  *fakeCollectRepo
	cluster  *fakeClusterRepo
	metadata *fakeMetadataRepo
}

func newFakeEntryRepo() *fakeEntryRepo {
	return &fakeEntryRepo{
		dutyRule: &fakeDutyRuleRepo{rules: map[string]models.DutyRule{}},
		dutyPlan: &fakeDutyPlanRepo{snaps: map[string]models.DutyRuleSnap{}},
		collect: &fakeCollectRepo{
			configs:  map[string]models.CollectConfig{},
			versions: map[string]models.DeploymentConfigVersion{},
			updates:  map[string]map[string]interface{}{},
		},
		cluster: &fakeClusterRepo{
			clusters:       map[string]models.ClusterRecord{},
			monitorCounts:  map[string]int64{},
			federations:    map[string]models.FederationRelation{},
			storageRecords: map[string][]models.StorageClusterRecord{},
		},
		metadata: newFakeMetadataRepo(),
	}
}

func (f *fakeEntryRepo) DutyRule() repo.InterDutyRuleRepo { return f.dutyRule }
func (f *fakeEntryRepo) DutyPlan() repo.InterDutyPlanRepo { return f.dutyPlan }
func (f *fakeEntryRepo) Collect() repo.InterCollectRepo   { return f.collect }
func (f *fakeEntryRepo) Cluster() repo.InterClusterRepo   { return f.cluster }
func (f *fakeEntryRepo) Metadata() repo.InterMetadataRepo { return f.metadata }

type fakeDutyRuleRepo struct {
	repo.InterDutyRuleRepo
	rules map[string]models.DutyRule
}

func (f *fakeDutyRuleRepo) GetByIds(tenantId string, ids []string) ([]models.DutyRule, error) {
	var out []models.DutyRule
	for _, id := range ids {
		if r, ok := f.rules[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeDutyRuleRepo) Get(tenantId, id string) (models.DutyRule, error) {
	r, ok := f.rules[id]
	if !ok {
		return r, errs.NewNotFound("轮值规则", "id=%s", id)
	}
	return r, nil
}

type fakeDutyPlanRepo struct {
	repo.InterDutyPlanRepo
	plans []models.DutyPlan
	snaps map[string]models.DutyRuleSnap
}

func snapKey(userGroupId, ruleId string) string {
	return userGroupId + "/" + ruleId
}

func (f *fakeDutyPlanRepo) ListEffectivePlans(tenantId, userGroupId, ruleId string) ([]models.DutyPlan, error) {
	var out []models.DutyPlan
	for _, p := range f.plans {
		if p.UserGroupId == userGroupId && p.DutyRuleId == ruleId && p.IsEffective == 1 {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeDutyPlanRepo) CreatePlans(plans []models.DutyPlan) error {
	f.plans = append(f.plans, plans...)
	return nil
}

func (f *fakeDutyPlanRepo) UpdatePlan(p models.DutyPlan) error {
	for i := range f.plans {
		if f.plans[i].ID == p.ID {
			f.plans[i] = p
			return nil
		}
	}
	return fmt.Errorf("计划 %s 不存在", p.ID)
}

func (f *fakeDutyPlanRepo) TruncatePlan(tenantId, id, finishedTime string) error {
	for i := range f.plans {
		if f.plans[i].ID == id {
			f.plans[i].FinishedTime = finishedTime
			return nil
		}
	}
	return fmt.Errorf("计划 %s 不存在", id)
}

func (f *fakeDutyPlanRepo) FlagIneffective(tenantId, userGroupId, ruleId string) error {
	for i := range f.plans {
		if f.plans[i].UserGroupId == userGroupId && f.plans[i].DutyRuleId == ruleId {
			f.plans[i].IsEffective = 0
		}
	}
	return nil
}

func (f *fakeDutyPlanRepo) GetSnap(tenantId, userGroupId, ruleId string) (models.DutyRuleSnap, error) {
	s, ok := f.snaps[snapKey(userGroupId, ruleId)]
	if !ok {
		return s, errs.NewNotFound("排班快照", "rule_id=%s", ruleId)
	}
	return s, nil
}

func (f *fakeDutyPlanRepo) CreateSnap(s models.DutyRuleSnap) error {
	f.snaps[snapKey(s.UserGroupId, s.DutyRuleId)] = s
	return nil
}

func (f *fakeDutyPlanRepo) UpdateSnap(s models.DutyRuleSnap) error {
	f.snaps[snapKey(s.UserGroupId, s.DutyRuleId)] = s
	return nil
}

func (f *fakeDutyPlanRepo) DeleteSnap(tenantId, userGroupId, ruleId string) error {
	delete(f.snaps, snapKey(userGroupId, ruleId))
	return nil
}

type fakeCollectRepo struct {
	repo.InterCollectRepo
	configs  map[string]models.CollectConfig
	versions map[string]models.DeploymentConfigVersion
	updates  map[string]map[string]interface{}
}

func (f *fakeCollectRepo) Get(tenantId, id string) (models.CollectConfig, error) {
	c, ok := f.configs[id]
	if !ok {
		return c, errs.NewNotFound("采集配置", "id=%s", id)
	}
	return c, nil
}

func (f *fakeCollectRepo) GetVersion(tenantId, id string) (models.DeploymentConfigVersion, error) {
	v, ok := f.versions[id]
	if !ok {
		return v, errs.NewNotFound("下发配置版本", "id=%s", id)
	}
	return v, nil
}

func (f *fakeCollectRepo) UpdateStatus(tenantId, id string, fields map[string]interface{}) error {
	f.updates[id] = fields
	c := f.configs[id]
	if v, ok := fields["operation_result"].(string); ok {
		c.OperationResult = v
	}
	if v, ok := fields["error_instance_count"].(int); ok {
		c.ErrorInstanceCount = v
	}
	if v, ok := fields["total_instance_count"].(int); ok {
		c.TotalInstanceCount = v
	}
	f.configs[id] = c
	return nil
}

type fakeClusterRepo struct {
	repo.InterClusterRepo
	clusters       map[string]models.ClusterRecord
	monitorCounts  map[string]int64 // kind -> 行数
	federations    map[string]models.FederationRelation
	storageRecords map[string][]models.StorageClusterRecord
}

func (f *fakeClusterRepo) Get(tenantId, clusterId string) (models.ClusterRecord, error) {
	c, ok := f.clusters[clusterId]
	if !ok {
		return c, errs.NewNotFound("BCS集群", "cluster_id=%s", clusterId)
	}
	return c, nil
}

func (f *fakeClusterRepo) CountMonitorMirrors(clusterId, monitorKind string) (int64, error) {
	return f.monitorCounts[monitorKind], nil
}

func (f *fakeClusterRepo) GetFederationBySub(subClusterId string) (models.FederationRelation, error) {
	r, ok := f.federations[subClusterId]
	if !ok {
		return r, gorm.ErrRecordNotFound
	}
	return r, nil
}

func (f *fakeClusterRepo) ListStorageRecords(tableId string) ([]models.StorageClusterRecord, error) {
	return f.storageRecords[tableId], nil
}

type fakeMetadataRepo struct {
	repo.InterMetadataRepo
	sources        map[int64]models.DataSourceRecord
	mqClusters     map[int64]models.MQClusterRecord
	mqConfigs      map[string]models.MQConfigRecord
	spaceBindings  map[int64]models.SpaceDataSourceRecord
	spaces         map[string]models.SpaceRecord
	resultTables   map[int64][]models.ResultTableRecord
	tableFields    map[string][]models.ResultTableFieldRecord
	tsGroups       map[int64]models.TimeSeriesGroupRecord
	eventGroups    map[int64]models.EventGroupRecord
	customReports  map[string]models.CustomReportSubscriptionRecord
	vmRecords      map[string]models.AccessVMRecord
	dataLinks      map[string]models.DataLinkRecord
	linkResources  map[string][]models.DataLinkResourceConfig
	esStorages     map[string]models.ESStorageRecord
	influxStorages map[string]models.InfluxdbStorageRecord
	storageInfos   map[int64]models.StorageClusterInfo
}

func newFakeMetadataRepo() *fakeMetadataRepo {
	return &fakeMetadataRepo{
		sources:        map[int64]models.DataSourceRecord{},
		mqClusters:     map[int64]models.MQClusterRecord{},
		mqConfigs:      map[string]models.MQConfigRecord{},
		spaceBindings:  map[int64]models.SpaceDataSourceRecord{},
		spaces:         map[string]models.SpaceRecord{},
		resultTables:   map[int64][]models.ResultTableRecord{},
		tableFields:    map[string][]models.ResultTableFieldRecord{},
		tsGroups:       map[int64]models.TimeSeriesGroupRecord{},
		eventGroups:    map[int64]models.EventGroupRecord{},
		customReports:  map[string]models.CustomReportSubscriptionRecord{},
		vmRecords:      map[string]models.AccessVMRecord{},
		dataLinks:      map[string]models.DataLinkRecord{},
		linkResources:  map[string][]models.DataLinkResourceConfig{},
		esStorages:     map[string]models.ESStorageRecord{},
		influxStorages: map[string]models.InfluxdbStorageRecord{},
		storageInfos:   map[int64]models.StorageClusterInfo{},
	}
}

func (f *fakeMetadataRepo) GetDataSource(bkDataId int64) (models.DataSourceRecord, error) {
	ds, ok := f.sources[bkDataId]
	if !ok {
		return ds, errs.NewNotFound("数据源", "bk_data_id=%d", bkDataId)
	}
	return ds, nil
}

func (f *fakeMetadataRepo) GetMQCluster(clusterId int64) (models.MQClusterRecord, error) {
	c, ok := f.mqClusters[clusterId]
	if !ok {
		return c, gorm.ErrRecordNotFound
	}
	return c, nil
}

func (f *fakeMetadataRepo) GetMQConfig(clusterId int64, mqType string) (models.MQConfigRecord, error) {
	c, ok := f.mqConfigs[fmt.Sprintf("%d/%s", clusterId, mqType)]
	if !ok {
		return c, gorm.ErrRecordNotFound
	}
	return c, nil
}

func (f *fakeMetadataRepo) GetSpaceDataSource(bkDataId int64) (models.SpaceDataSourceRecord, error) {
	b, ok := f.spaceBindings[bkDataId]
	if !ok {
		return b, gorm.ErrRecordNotFound
	}
	return b, nil
}

func (f *fakeMetadataRepo) GetSpace(spaceTypeId, spaceId string) (models.SpaceRecord, error) {
	s, ok := f.spaces[spaceTypeId+"/"+spaceId]
	if !ok {
		return s, gorm.ErrRecordNotFound
	}
	return s, nil
}

func (f *fakeMetadataRepo) ListResultTables(bkDataId int64) ([]models.ResultTableRecord, error) {
	return f.resultTables[bkDataId], nil
}

func (f *fakeMetadataRepo) ListResultTableFields(tableId string) ([]models.ResultTableFieldRecord, error) {
	return f.tableFields[tableId], nil
}

func (f *fakeMetadataRepo) GetTimeSeriesGroup(bkDataId int64) (models.TimeSeriesGroupRecord, error) {
	g, ok := f.tsGroups[bkDataId]
	if !ok {
		return g, gorm.ErrRecordNotFound
	}
	return g, nil
}

func (f *fakeMetadataRepo) GetEventGroup(bkDataId int64) (models.EventGroupRecord, error) {
	g, ok := f.eventGroups[bkDataId]
	if !ok {
		return g, gorm.ErrRecordNotFound
	}
	return g, nil
}

func (f *fakeMetadataRepo) GetCustomReportSubscription(bkBizId, bkDataId int64) (models.CustomReportSubscriptionRecord, error) {
	r, ok := f.customReports[fmt.Sprintf("%d/%d", bkBizId, bkDataId)]
	if !ok {
		return r, gorm.ErrRecordNotFound
	}
	return r, nil
}

func (f *fakeMetadataRepo) GetAccessVMRecord(resultTableId string) (models.AccessVMRecord, error) {
	r, ok := f.vmRecords[resultTableId]
	if !ok {
		return r, gorm.ErrRecordNotFound
	}
	return r, nil
}

func (f *fakeMetadataRepo) GetDataLink(name string) (models.DataLinkRecord, error) {
	l, ok := f.dataLinks[name]
	if !ok {
		return l, gorm.ErrRecordNotFound
	}
	return l, nil
}

func (f *fakeMetadataRepo) ListDataLinkResources(dataLinkName string) ([]models.DataLinkResourceConfig, error) {
	return f.linkResources[dataLinkName], nil
}

func (f *fakeMetadataRepo) GetESStorage(tableId string) (models.ESStorageRecord, error) {
	s, ok := f.esStorages[tableId]
	if !ok {
		return s, gorm.ErrRecordNotFound
	}
	return s, nil
}

func (f *fakeMetadataRepo) GetInfluxdbStorage(tableId string) (models.InfluxdbStorageRecord, error) {
	s, ok := f.influxStorages[tableId]
	if !ok {
		return s, gorm.ErrRecordNotFound
	}
	return s, nil
}

func (f *fakeMetadataRepo) GetStorageClusterInfo(clusterId int64) (models.StorageClusterInfo, error) {
	s, ok := f.storageInfos[clusterId]
	if !ok {
		return s, gorm.ErrRecordNotFound
	}
	return s, nil
}

type fakeDataplane struct {
	nodeman.Client
	stats    []nodeman.SubscriptionStatistic
	statsErr error
	routes   map[int64]nodeman.RouteInfo
}

func (f *fakeDataplane) Statistic(ctx context.Context, subscriptionIds []int64) ([]nodeman.SubscriptionStatistic, error) {
	if f.statsErr != nil {
		return nil, f.statsErr
	}
	return f.stats, nil
}

func (f *fakeDataplane) QueryRoute(ctx context.Context, platName string, channelId int64) (nodeman.RouteInfo, error) {
	route, ok := f.routes[channelId]
	if !ok {
		return route, fmt.Errorf("路由 %d 不存在", channelId)
	}
	return route, nil
}

type fakeBcs struct {
	bcsstorage.Client
	cluster   bcsstorage.ClusterMeta
	resources []bcsstorage.Resource
}

func (f *fakeBcs) GetCluster(ctx context.Context, clusterId string) (bcsstorage.ClusterMeta, error) {
	return f.cluster, nil
}

func (f *fakeBcs) ListResources(ctx context.Context, clusterId, resourceType string, fields []string) ([]bcsstorage.Resource, error) {
	return f.resources, nil
}

// fakeEntryCache 只提供 VM 路由缓存, 其余入口按需为 nil
type fakeEntryCache struct {
	cache.InterEntryCache
	vmRouter *fakeVMRouterCache
}

func (f *fakeEntryCache) Redis() *redis.Client               { return nil }
func (f *fakeEntryCache) VMRouter() cache.InterVMRouterCache { return f.vmRouter }

type fakeVMRouterCache struct {
	cache.InterVMRouterCache
	routes map[string]string // spaceUid/tableId -> vm 结果表
}

func (f *fakeVMRouterCache) GetRouter(ctx context.Context, spaceUid, tableId string) (string, error) {
	return f.routes[spaceUid+"/"+tableId], nil
}
