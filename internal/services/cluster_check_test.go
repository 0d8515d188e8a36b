package services

import (
	"context"
	"testing"

	"monitorHub/internal/ctx"
	"monitorHub/internal/global"
	"monitorHub/internal/models"
	"monitorHub/internal/types"
	"monitorHub/pkg/bcsstorage"
	"monitorHub/pkg/kubernetesx"
	"monitorHub/pkg/nodeman"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	discoveryfake "k8s.io/client-go/discovery/fake"
	dynamicfake "k8s.io/client-go/dynamic/fake"
	k8sfake "k8s.io/client-go/kubernetes/fake"
)

const checkClusterId = "BCS-K8S-40000"

func dataIDObject(name string, dataId int64) *unstructured.Unstructured {
	return &unstructured.Unstructured{Object: map[string]interface{}{
		"apiVersion": "monitoring.bk.tencent.com/v1beta1",
		"kind":       "DataID",
		"metadata":   map[string]interface{}{"name": name},
		"spec": map[string]interface{}{
			"dataID": dataId,
			"labels": map[string]interface{}{"usage": name},
		},
	}}
}

func fakeClusterK8sClient(t *testing.T, dataIds ...int64) *kubernetesx.Client {
	t.Helper()

	clientset := k8sfake.NewSimpleClientset()
	clientset.Discovery().(*discoveryfake.FakeDiscovery).Resources = []*metav1.APIResourceList{
		{GroupVersion: "monitoring.bk.tencent.com/v1beta1"},
	}

	var objects []runtime.Object
	for i, id := range dataIds {
		objects = append(objects, dataIDObject([]string{"k8smetric", "custommetric", "k8sevent"}[i], id))
	}
	dyn := dynamicfake.NewSimpleDynamicClientWithCustomListKinds(
		runtime.NewScheme(),
		map[schema.GroupVersionResource]string{kubernetesx.DataIDResourceGVR: "DataIDList"},
		objects...,
	)

	return kubernetesx.NewClientFromInterfaces(clientset, dyn)
}

// newClusterCheckFixture 组装一个 18 项检查全部通过的集群
func newClusterCheckFixture(t *testing.T) (*clusterCheckService, *fakeEntryRepo) {
	t.Helper()
	global.Config.Cluster.StrictFederation = true
	global.Config.Cluster.ApiToken = "token-ci"

	db := newFakeEntryRepo()

	cloudId := int64(0)
	db.cluster.clusters[checkClusterId] = models.ClusterRecord{
		ClusterID:          checkClusterId,
		BkTenantId:         "default",
		BkBizId:            2,
		Status:             models.ClusterStatusRunning,
		K8sMetricDataID:    1001,
		CustomMetricDataID: 1002,
		K8sEventDataID:     1003,
		BkCloudId:          &cloudId,
		DomainName:         "bcs.example.com",
		Port:               443,
		ApiKeyContent:      "token-ci",
	}
	db.cluster.monitorCounts["ServiceMonitor"] = 3
	db.cluster.monitorCounts["PodMonitor"] = 1

	tsOptions := map[string]string{"inject_local_time": "true", "align_time_unit": "s"}
	db.metadata.sources[1001] = models.DataSourceRecord{
		BkDataId: 1001, DataName: "k8s_metric", EtlConfig: "bk_standard_v2_time_series",
		IsEnable: true, MqClusterId: 1, GseStreamToId: 501, IsRefreshable: true, Options: tsOptions,
	}
	db.metadata.sources[1002] = models.DataSourceRecord{
		BkDataId: 1002, DataName: "custom_metric", EtlConfig: "bk_standard_v2_time_series",
		IsEnable: true, MqClusterId: 1, GseStreamToId: 502, IsRefreshable: true, Options: tsOptions,
	}
	db.metadata.sources[1003] = models.DataSourceRecord{
		BkDataId: 1003, DataName: "k8s_event", EtlConfig: "bk_standard_v2_event",
		IsEnable: true, MqClusterId: 1, GseStreamToId: 503, IsRefreshable: true,
		Options: map[string]string{"inject_local_time": "true"},
	}

	db.metadata.mqClusters[1] = models.MQClusterRecord{
		ClusterId: 1, ClusterType: "kafka", ClusterName: "kafka-default",
		DomainName: "kafka.service", Port: 9092,
	}
	db.metadata.mqConfigs["1/kafka"] = models.MQConfigRecord{
		ClusterId: 1, MqType: "kafka", Topic: "0bkmonitor_storage", Partition: 4,
	}

	db.metadata.spaceBindings[1001] = models.SpaceDataSourceRecord{SpaceTypeId: "bkcc", SpaceId: "2", BkDataId: 1001}
	db.metadata.spaces["bkcc/2"] = models.SpaceRecord{
		SpaceTypeId: "bkcc", SpaceId: "2", SpaceName: "蓝鲸", Status: models.SpaceStatusNormal,
	}

	db.metadata.customReports["2/0"] = models.CustomReportSubscriptionRecord{BkBizId: 2}
	db.metadata.customReports["2/1002"] = models.CustomReportSubscriptionRecord{BkBizId: 2, BkDataId: 1002}
	db.metadata.customReports["2/1003"] = models.CustomReportSubscriptionRecord{BkBizId: 2, BkDataId: 1003}

	standardFields := func(tableId string) []models.ResultTableFieldRecord {
		return []models.ResultTableFieldRecord{
			{TableId: tableId, FieldName: "time", Tag: "timestamp"},
			{TableId: tableId, FieldName: "usage", Tag: "metric"},
			{TableId: tableId, FieldName: "bk_biz_id", Tag: "dimension"},
		}
	}
	rtOptions := map[string]string{"enable_field_black_list": "true"}

	for dataId, tableId := range map[int64]string{
		1001: "2_bkmonitor_ts_1001.__default__",
		1002: "2_bkmonitor_ts_1002.__default__",
	} {
		db.metadata.resultTables[dataId] = []models.ResultTableRecord{
			{TableId: tableId, BkDataId: dataId, StorageType: "influxdb", IsEnable: true, Options: rtOptions},
		}
		db.metadata.tableFields[tableId] = standardFields(tableId)
		db.metadata.influxStorages[tableId] = models.InfluxdbStorageRecord{
			TableId: tableId, ProxyClusterName: "influxdb_proxy", StorageClusterId: 11, Database: "bkmonitor",
		}

		vmTableId := "vm_" + tableId
		db.metadata.vmRecords[tableId] = models.AccessVMRecord{
			ResultTableId: tableId, BkBaseDataId: 9000 + dataId, VmResultTableId: vmTableId, VmClusterId: 21,
		}
		db.metadata.dataLinks[vmTableId] = models.DataLinkRecord{
			DataLinkName: vmTableId, Namespace: "bkmonitor", Status: "Ok",
		}
		var resources []models.DataLinkResourceConfig
		for _, kind := range dataLinkRequiredKinds {
			resources = append(resources, models.DataLinkResourceConfig{
				DataLinkName: vmTableId, Kind: kind, Name: vmTableId, Status: "Ok",
			})
		}
		db.metadata.linkResources[vmTableId] = resources
	}

	eventTableId := "2_bkmonitor_event_1003"
	db.metadata.resultTables[1003] = []models.ResultTableRecord{
		{TableId: eventTableId, BkDataId: 1003, StorageType: "elasticsearch", IsEnable: true, Options: rtOptions},
	}
	db.metadata.tableFields[eventTableId] = standardFields(eventTableId)
	db.metadata.esStorages[eventTableId] = models.ESStorageRecord{
		TableId: eventTableId, StorageClusterId: 12, DateFormat: "20060102", TimeZone: 8,
		IndexSettings:   `{"number_of_shards":4}`,
		MappingSettings: `{"dynamic_templates":[{"discover_dimension":{"path_match":"dimensions.*"}}]}`,
	}
	db.cluster.storageRecords[eventTableId] = []models.StorageClusterRecord{
		{TableID: eventTableId, ClusterID: 12, IsCurrent: true, EnableTime: "2023-10-01 00:00:00"},
	}
	db.metadata.storageInfos[11] = models.StorageClusterInfo{ClusterId: 11, ClusterType: "influxdb", DomainName: "influxdb-proxy.service", Port: 10203}
	db.metadata.storageInfos[12] = models.StorageClusterInfo{ClusterId: 12, ClusterType: "elasticsearch", DomainName: "es.service", Port: 9200}

	db.metadata.tsGroups[1002] = models.TimeSeriesGroupRecord{BkDataId: 1002, GroupName: "custom_metric", IsEnable: true}
	db.metadata.eventGroups[1003] = models.EventGroupRecord{BkDataId: 1003, GroupName: "k8s_event", IsEnable: true}

	routes := map[int64]nodeman.RouteInfo{}
	for _, dataId := range []int64{1001, 1002, 1003} {
		ds := db.metadata.sources[dataId]
		routes[dataId] = nodeman.RouteInfo{
			ChannelId: dataId,
			PlatName:  gsePlatName,
			StreamTo: []nodeman.RouteStreamTo{
				{StreamToId: ds.GseStreamToId, Topic: "0bkmonitor_storage", Partition: 4},
			},
		}
	}

	vmRoutes := map[string]string{
		"bkcc__2/2_bkmonitor_ts_1001.__default__": "vm_2_bkmonitor_ts_1001.__default__",
		"bkcc__2/2_bkmonitor_ts_1002.__default__": "vm_2_bkmonitor_ts_1002.__default__",
	}

	k8sClient := fakeClusterK8sClient(t, 1001, 1002, 1003)
	svc := &clusterCheckService{
		ctx:       ctx.NewContext(context.Background(), db, &fakeEntryCache{vmRouter: &fakeVMRouterCache{routes: vmRoutes}}),
		dataplane: &fakeDataplane{routes: routes},
		bcs:       &fakeBcs{cluster: bcsstorage.ClusterMeta{ClusterId: checkClusterId, Status: "RUNNING"}},
		newClusterClient: func(models.ClusterRecord) (*kubernetesx.Client, error) {
			return k8sClient, nil
		},
	}
	return svc, db
}

func TestCheckClusterFullPass(t *testing.T) {
	svc, _ := newClusterCheckFixture(t)

	report, err := svc.CheckCluster("default", checkClusterId)
	if err != nil {
		t.Fatalf("校验失败: %s", err)
	}

	if report.Status != types.CheckStatusSuccess {
		t.Errorf("全量通过的集群总体状态应为 SUCCESS, 实际 %s, issues=%v warnings=%v",
			report.Status, report.Issues, report.Warnings)
	}
	if len(report.Issues) != 0 {
		t.Errorf("不应有 issue: %v", report.Issues)
	}
	if len(report.Warnings) != 0 {
		t.Errorf("不应有 warning: %v", report.Warnings)
	}
	if len(report.Components) != 18 {
		t.Errorf("检查项应为 18 项, 实际 %d", len(report.Components))
	}
	for _, component := range report.Components {
		if component.Status == types.CheckStatusError || component.Status == types.CheckStatusNotFound ||
			component.Status == types.CheckStatusWarning {
			t.Errorf("检查项 %s 状态异常: %s %v", component.Name, component.Status, component.Issues)
		}
	}
	if report.ExecutionTime < 0 {
		t.Errorf("执行耗时不应为负: %f", report.ExecutionTime)
	}
	if report.ExitCode() != 0 {
		t.Errorf("SUCCESS 报告退出码应为 0, 实际 %d", report.ExitCode())
	}
}

func TestCheckClusterMissingRecord(t *testing.T) {
	svc, _ := newClusterCheckFixture(t)

	report, err := svc.CheckCluster("default", "BCS-K8S-99999")
	if err != nil {
		t.Fatalf("集群缺失不应返回错误: %s", err)
	}

	if report.Status != types.CheckStatusNotFound {
		t.Errorf("集群记录缺失应为 NOT_FOUND, 实际 %s", report.Status)
	}
	if len(report.Components) != 1 {
		t.Errorf("记录缺失时应只执行第一项检查, 实际 %d 项", len(report.Components))
	}
	if report.ExitCode() != 2 {
		t.Errorf("NOT_FOUND 报告退出码应为 2, 实际 %d", report.ExitCode())
	}
}

func TestCheckClusterMonitorMirrorWarning(t *testing.T) {
	svc, db := newClusterCheckFixture(t)
	db.cluster.monitorCounts["ServiceMonitor"] = 0

	report, err := svc.CheckCluster("default", checkClusterId)
	if err != nil {
		t.Fatalf("校验失败: %s", err)
	}

	if report.Status != types.CheckStatusWarning {
		t.Errorf("镜像为空应折算为 WARNING, 实际 %s", report.Status)
	}
	if report.ExitCode() != 1 {
		t.Errorf("WARNING 报告退出码应为 1, 实际 %d", report.ExitCode())
	}
	if len(report.Warnings) != 1 {
		t.Errorf("应只有一条 warning, 实际 %v", report.Warnings)
	}
}

func TestCheckClusterRouteMismatch(t *testing.T) {
	svc, _ := newClusterCheckFixture(t)

	dataplane := svc.dataplane.(*fakeDataplane)
	route := dataplane.routes[1001]
	route.StreamTo[0].Topic = "0bkmonitor_other"
	dataplane.routes[1001] = route

	report, err := svc.CheckCluster("default", checkClusterId)
	if err != nil {
		t.Fatalf("校验失败: %s", err)
	}

	if report.Status != types.CheckStatusError {
		t.Errorf("远端路由漂移应折算为 ERROR, 实际 %s", report.Status)
	}
	var found bool
	for _, component := range report.Components {
		if component.Name == "mq_routing" && component.Status == types.CheckStatusError {
			found = true
		}
	}
	if !found {
		t.Error("mq_routing 检查项应为 ERROR")
	}
}

func TestCheckClusterFederationLeniency(t *testing.T) {
	svc, db := newClusterCheckFixture(t)
	db.cluster.federations[checkClusterId] = models.FederationRelation{
		HostClusterId: "BCS-K8S-40001",
		SubClusterId:  checkClusterId,
	}

	global.Config.Cluster.StrictFederation = false
	report, err := svc.CheckCluster("default", checkClusterId)
	if err != nil {
		t.Fatalf("校验失败: %s", err)
	}
	if report.Status != types.CheckStatusWarning {
		t.Errorf("宽松模式下联邦配置缺失应为 WARNING, 实际 %s", report.Status)
	}

	global.Config.Cluster.StrictFederation = true
	report, err = svc.CheckCluster("default", checkClusterId)
	if err != nil {
		t.Fatalf("校验失败: %s", err)
	}
	if report.Status != types.CheckStatusError {
		t.Errorf("严格模式下联邦配置缺失应为 ERROR, 实际 %s", report.Status)
	}
}

func TestCheckClusterDisabledGroup(t *testing.T) {
	svc, db := newClusterCheckFixture(t)
	group := db.metadata.tsGroups[1002]
	group.IsEnable = false
	db.metadata.tsGroups[1002] = group

	report, err := svc.CheckCluster("default", checkClusterId)
	if err != nil {
		t.Fatalf("校验失败: %s", err)
	}
	if report.Status != types.CheckStatusError {
		t.Errorf("分组停用应折算为 ERROR, 实际 %s", report.Status)
	}
}

func TestJsonDiffPaths(t *testing.T) {
	local := []byte(`{"bk_data_id":1001,"mq_config":{"topic":"a","partition":4},"option":{"k":"v"}}`)
	remote := []byte(`{"bk_data_id":1001,"mq_config":{"topic":"a","partition":2},"option":{"k":"w"}}`)

	paths := jsonDiffPaths(local, remote)
	want := []string{"mq_config.partition", "option.k"}
	if len(paths) != len(want) {
		t.Fatalf("差异路径应为 %v, 实际 %v", want, paths)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("差异路径应为 %v, 实际 %v", want, paths)
			break
		}
	}
}
