package types

import (
	"monitorHub/internal/models"
)

// SaveCollectConfigRequest 采集配置保存请求，ID 为空表示新建
type SaveCollectConfigRequest struct {
	TenantId             string                       `json:"tenantId"`
	ID                   string                       `json:"id"`
	BkBizId              int64                        `json:"bkBizId"`
	Name                 string                       `json:"name"`
	CollectType          string                       `json:"collectType"`
	PluginId             string                       `json:"pluginId"`
	Label                string                       `json:"label"`
	TargetNodeType       string                       `json:"targetNodeType"`
	TargetNodes          []models.TargetNode          `json:"targetNodes"`
	Params               models.PluginParams          `json:"params"`
	RemoteCollectingHost *models.RemoteCollectingHost `json:"remoteCollectingHost,omitempty"`
	Operation            string                       `json:"operation"` // EDIT / ADD_DEL，新建时忽略
	UpdateBy             string                       `json:"updateBy"`
}

// NodeDiff 目标节点集合的差异划分
type NodeDiff struct {
	Added     []models.TargetNode `json:"added"`
	Removed   []models.TargetNode `json:"removed"`
	Updated   []models.TargetNode `json:"updated"`
	Unchanged []models.TargetNode `json:"unchanged"`
}

// CollectConfigDetail 采集配置详情视图，附带当前版本信息
type CollectConfigDetail struct {
	Config      models.CollectConfig            `json:"config"`
	Deployment  models.DeploymentConfigVersion  `json:"deployment"`
	NeedUpgrade bool                            `json:"needUpgrade"`
}

// InstanceStatusView 实例状态视图
type InstanceStatusView struct {
	InstanceId int64  `json:"instanceId"`
	IP         string `json:"ip"`
	BkCloudId  int64  `json:"bkCloudId"`
	Status     string `json:"status"`
}
