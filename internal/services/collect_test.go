package services

import (
	"testing"

	"monitorHub/internal/models"
	"monitorHub/pkg/nodeman"
)

// 批量重试的范围是失败加待执行, 运行中和成功的实例不动
func TestRetryableInstances(t *testing.T) {
	statuses := []nodeman.InstanceStatus{
		{InstanceId: 1, Status: models.InstanceStatusFailed},
		{InstanceId: 2, Status: models.InstanceStatusPending},
		{InstanceId: 3, Status: models.InstanceStatusSuccess},
		{InstanceId: 4, Status: models.InstanceStatusRunning},
	}

	got := retryableInstances(statuses)
	if len(got) != 2 {
		t.Fatalf("期望 2 个可重试实例, 实际 %v", got)
	}
	if got[0] != 1 || got[1] != 2 {
		t.Errorf("失败和待执行实例应纳入重试, 实际 %v", got)
	}
}

func TestResolvedNodeType(t *testing.T) {
	cases := map[string]string{
		models.TargetNodeTypeInstance:        models.TargetNodeTypeInstance,
		models.TargetNodeTypeTopo:            models.TargetNodeTypeTopo,
		models.TargetNodeTypeServiceTemplate: models.TargetNodeTypeTopo,
		models.TargetNodeTypeSetTemplate:     models.TargetNodeTypeTopo,
	}
	for in, want := range cases {
		if got := resolvedNodeType(in); got != want {
			t.Errorf("%s 解析后的节点类型应为 %s, 实际 %s", in, want, got)
		}
	}
}

func TestDiffTargetNodes(t *testing.T) {
	oldNodes := []models.TargetNode{
		{BkObjId: "module", BkInstId: 1},
		{BkObjId: "module", BkInstId: 2, BkInstName: "gamesvr"},
		{BkObjId: "module", BkInstId: 3},
	}
	newNodes := []models.TargetNode{
		{BkObjId: "module", BkInstId: 1},
		{BkObjId: "module", BkInstId: 2, BkInstName: "gamesvr-v2"},
		{BkObjId: "module", BkInstId: 4},
	}

	diff := diffTargetNodes(oldNodes, newNodes)

	if len(diff.Added) != 1 || diff.Added[0].BkInstId != 4 {
		t.Errorf("新增集合错误: %+v", diff.Added)
	}
	if len(diff.Removed) != 1 || diff.Removed[0].BkInstId != 3 {
		t.Errorf("移除集合错误: %+v", diff.Removed)
	}
	if len(diff.Updated) != 1 || diff.Updated[0].BkInstId != 2 {
		t.Errorf("变更集合错误: %+v", diff.Updated)
	}
	if len(diff.Unchanged) != 1 || diff.Unchanged[0].BkInstId != 1 {
		t.Errorf("未变更集合错误: %+v", diff.Unchanged)
	}
}

func TestDiffTargetNodesHostIdentity(t *testing.T) {
	oldNodes := []models.TargetNode{
		{IP: "10.0.0.1", BkCloudId: 0},
		{BkHostId: 100},
	}
	newNodes := []models.TargetNode{
		{IP: "10.0.0.1", BkCloudId: 0},
		{IP: "10.0.0.1", BkCloudId: 1},
		{BkHostId: 100},
	}

	diff := diffTargetNodes(oldNodes, newNodes)

	// 同 IP 不同云区域是不同主机
	if len(diff.Added) != 1 || diff.Added[0].BkCloudId != 1 {
		t.Errorf("不同云区域的同 IP 应判定为新增: %+v", diff.Added)
	}
	if len(diff.Unchanged) != 2 {
		t.Errorf("期望 2 个未变更节点, 实际 %d", len(diff.Unchanged))
	}
	if len(diff.Removed) != 0 {
		t.Errorf("不应有移除节点: %+v", diff.Removed)
	}
}

func TestMergePluginParamsPasswordPreserved(t *testing.T) {
	stored := models.PluginParams{
		Plugin: map[string]interface{}{
			"host":     "db.internal",
			"password": "cipher-v1",
		},
	}

	t.Run("布尔占位沿用旧值", func(t *testing.T) {
		merged := mergePluginParams(stored, models.PluginParams{
			Plugin: map[string]interface{}{
				"host":     "db2.internal",
				"password": true,
			},
		})
		if merged.Plugin["password"] != "cipher-v1" {
			t.Errorf("密码应沿用旧值, 实际 %v", merged.Plugin["password"])
		}
		if merged.Plugin["host"] != "db2.internal" {
			t.Errorf("非密码字段应取新值, 实际 %v", merged.Plugin["host"])
		}
	})

	t.Run("空值沿用旧值", func(t *testing.T) {
		merged := mergePluginParams(stored, models.PluginParams{
			Plugin: map[string]interface{}{
				"password": nil,
			},
		})
		if merged.Plugin["password"] != "cipher-v1" {
			t.Errorf("空值密码应沿用旧值, 实际 %v", merged.Plugin["password"])
		}
	})

	t.Run("新密码覆盖旧值", func(t *testing.T) {
		merged := mergePluginParams(stored, models.PluginParams{
			Plugin: map[string]interface{}{
				"password": "new-secret",
			},
		})
		if merged.Plugin["password"] != "new-secret" {
			t.Errorf("字符串密码应覆盖旧值, 实际 %v", merged.Plugin["password"])
		}
	})

	t.Run("嵌套参数树递归合并", func(t *testing.T) {
		nested := models.PluginParams{
			Collector: map[string]interface{}{
				"auth": map[string]interface{}{
					"user":     "root",
					"password": "nested-cipher",
				},
			},
		}
		merged := mergePluginParams(nested, models.PluginParams{
			Collector: map[string]interface{}{
				"auth": map[string]interface{}{
					"user":     "admin",
					"password": true,
				},
			},
		})
		auth := merged.Collector["auth"].(map[string]interface{})
		if auth["password"] != "nested-cipher" {
			t.Errorf("嵌套密码应沿用旧值, 实际 %v", auth["password"])
		}
		if auth["user"] != "admin" {
			t.Errorf("嵌套非密码字段应取新值, 实际 %v", auth["user"])
		}
	})

	t.Run("来料为空返回旧树", func(t *testing.T) {
		merged := mergePluginParams(stored, models.PluginParams{})
		if merged.Plugin["password"] != "cipher-v1" {
			t.Errorf("来料为空应整树沿用, 实际 %v", merged.Plugin)
		}
	})
}

func TestNeedUpgrade(t *testing.T) {
	deployed := models.DeploymentConfigVersion{ConfigVersion: 2}
	latest := models.PluginVersionInfo{ConfigVersion: 3, IsPackaged: true}

	base := models.CollectConfig{
		TaskStatus:         models.TaskStatusStarted,
		TotalInstanceCount: 5,
	}

	if !needUpgrade(base, deployed, latest) {
		t.Error("满足全部条件时应判定可升级")
	}

	stopped := base
	stopped.TaskStatus = models.TaskStatusStopped
	if needUpgrade(stopped, deployed, latest) {
		t.Error("已停用的配置不应判定可升级")
	}

	empty := base
	empty.TotalInstanceCount = 0
	if needUpgrade(empty, deployed, latest) {
		t.Error("无实例的配置不应判定可升级")
	}

	if needUpgrade(base, deployed, models.PluginVersionInfo{ConfigVersion: 2}) {
		t.Error("版本相同不应判定可升级")
	}
	if needUpgrade(base, deployed, models.PluginVersionInfo{ConfigVersion: 1}) {
		t.Error("版本更低不应判定可升级")
	}
}

func TestPreservePeriod(t *testing.T) {
	current := models.PluginParams{
		Collector: map[string]interface{}{"period": 60},
	}
	merged := models.PluginParams{
		Collector: map[string]interface{}{"period": 10, "timeout": 30},
	}

	preservePeriod(current, &merged)

	if merged.Collector["period"] != 60 {
		t.Errorf("升级时采集周期应沿用当前版本, 实际 %v", merged.Collector["period"])
	}
	if merged.Collector["timeout"] != 30 {
		t.Errorf("其余参数不应被覆盖, 实际 %v", merged.Collector["timeout"])
	}
}

func TestCloneConfigName(t *testing.T) {
	if got := cloneConfigName("mysql采集", nil); got != "mysql采集_copy" {
		t.Errorf("无冲突时副本名应为 _copy 后缀, 实际 %s", got)
	}

	existing := []string{"mysql采集_copy", "mysql采集_copy1"}
	if got := cloneConfigName("mysql采集", existing); got != "mysql采集_copy2" {
		t.Errorf("冲突时应追加递增数字, 实际 %s", got)
	}
}

func TestCollectConfigAllowRollback(t *testing.T) {
	cases := []struct {
		operation string
		result    string
		want      bool
	}{
		{models.OperationEdit, models.OperationResultSuccess, true},
		{models.OperationAddDel, models.OperationResultWarning, true},
		{models.OperationUpgrade, models.OperationResultFailed, true},
		{models.OperationEdit, models.OperationResultDeploying, false},
		{models.OperationCreate, models.OperationResultSuccess, false},
		{models.OperationStart, models.OperationResultSuccess, false},
	}

	for _, c := range cases {
		config := models.CollectConfig{LastOperation: c.operation, OperationResult: c.result}
		if got := config.AllowRollback(); got != c.want {
			t.Errorf("操作 %s/%s 回滚判定期望 %v, 实际 %v", c.operation, c.result, c.want, got)
		}
	}
}
