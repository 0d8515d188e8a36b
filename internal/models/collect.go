package models

// 采集类型
const (
	CollectTypeLog         = "LOG"
	CollectTypeProcess     = "PROCESS"
	CollectTypeSnmpTrap    = "SNMP_TRAP"
	CollectTypeScript      = "SCRIPT"
	CollectTypeExporter    = "EXPORTER"
	CollectTypePushgateway = "PUSHGATEWAY"
)

// 采集配置最近一次操作
const (
	OperationCreate   = "CREATE"
	OperationEdit     = "EDIT"
	OperationAddDel   = "ADD_DEL"
	OperationUpgrade  = "UPGRADE"
	OperationRollback = "ROLLBACK"
	OperationStart    = "START"
	OperationStop     = "STOP"
)

// 操作结果
const (
	OperationResultPreparing = "PREPARING"
	OperationResultDeploying = "DEPLOYING"
	OperationResultSuccess   = "SUCCESS"
	OperationResultWarning   = "WARNING"
	OperationResultFailed    = "FAILED"
)

// 任务启停状态
const (
	TaskStatusStarted = "STARTED"
	TaskStatusStopped = "STOPPED"
)

// 下发目标类型
const (
	TargetNodeTypeInstance        = "INSTANCE"
	TargetNodeTypeTopo            = "TOPO"
	TargetNodeTypeServiceTemplate = "SERVICE_TEMPLATE"
	TargetNodeTypeSetTemplate     = "SET_TEMPLATE"
)

// 实例执行状态
const (
	InstanceStatusPending = "PENDING"
	InstanceStatusRunning = "RUNNING"
	InstanceStatusSuccess = "SUCCESS"
	InstanceStatusFailed  = "FAILED"
)

// ComplexOperations 允许回滚的操作集合
var ComplexOperations = []string{OperationEdit, OperationAddDel, OperationUpgrade}

// IsComplexOperation 判断操作是否属于可回滚的复合操作
func IsComplexOperation(op string) bool {
	for _, o := range ComplexOperations {
		if o == op {
			return true
		}
	}
	return false
}

// TargetNode 下发目标节点，三种形态按 target_node_type 取用对应字段
type TargetNode struct {
	IP                string `json:"ip,omitempty"`
	BkCloudId         int64  `json:"bk_cloud_id,omitempty"`
	BkHostId          int64  `json:"bk_host_id,omitempty"`
	BkObjId           string `json:"bk_obj_id,omitempty"`
	BkInstId          int64  `json:"bk_inst_id,omitempty"`
	BkInstName        string `json:"bk_inst_name,omitempty"`
	ServiceTemplateId int64  `json:"service_template_id,omitempty"`
	SetTemplateId     int64  `json:"set_template_id,omitempty"`
}

// RemoteCollectingHost 远程采集机配置
type RemoteCollectingHost struct {
	IP           string `json:"ip,omitempty"`
	BkCloudId    int64  `json:"bk_cloud_id,omitempty"`
	BkHostId     int64  `json:"bk_host_id,omitempty"`
	BkSupplierId int64  `json:"bk_supplier_id,omitempty"`
	IsCollectingOnly bool `json:"is_collecting_only"`
}

// PluginParams 插件参数树，password 类型字段的值可能是 bool（true 表示沿用旧值）
type PluginParams struct {
	Collector map[string]interface{} `json:"collector,omitempty"`
	Plugin    map[string]interface{} `json:"plugin,omitempty"`
}

// DeploymentConfigVersion 下发配置版本快照，创建后不可变
type DeploymentConfigVersion struct {
	ID                   string                `json:"id"`
	TenantId             string                `json:"tenantId"`
	ConfigMetaId         string                `json:"configMetaId"`
	ParentId             string                `json:"parentId"` // 为空表示首个版本
	PluginVersion        string                `json:"pluginVersion"`
	ConfigVersion        int                   `json:"configVersion"`
	InfoVersion          int                   `json:"infoVersion"`
	TargetNodeType       string                `json:"targetNodeType"`
	TargetNodes          []TargetNode          `json:"targetNodes" gorm:"target_nodes;serializer:json"`
	Params               PluginParams          `json:"params" gorm:"params;serializer:json"`
	RemoteCollectingHost *RemoteCollectingHost `json:"remoteCollectingHost,omitempty" gorm:"remote_collecting_host;serializer:json"`
	SubscriptionId       int64                 `json:"subscriptionId"` // 0 表示尚未在节点管理侧建立订阅
	TaskIds              []int64               `json:"taskIds" gorm:"task_ids;serializer:json"`
	CreateAt             int64                 `json:"createAt"`
}

func (DeploymentConfigVersion) TableName() string {
	return "w8t_deployment_config_version"
}

// CollectConfig 采集配置
type CollectConfig struct {
	TenantId           string `json:"tenantId"`
	ID                 string `json:"id"`
	BkBizId            int64  `json:"bkBizId"`
	Name               string `json:"name"`
	CollectType        string `json:"collectType"`
	PluginId           string `json:"pluginId"`
	Label              string `json:"label"`
	DeploymentConfigId string `json:"deploymentConfigId"`
	LastOperation      string `json:"lastOperation"`
	OperationResult    string `json:"operationResult"`
	TaskStatus         string `json:"taskStatus"`
	// 最近一次巡检看到的实例数缓存
	TotalInstanceCount int `json:"totalInstanceCount"`
	ErrorInstanceCount int `json:"errorInstanceCount"`
	UpdateBy           string `json:"updateBy"`
	UpdateAt           int64  `json:"updateAt"`
}

func (CollectConfig) TableName() string {
	return "w8t_collect_config"
}

// AllowRollback 是否允许回滚：最近操作属于复合操作且当前不在下发中
func (c CollectConfig) AllowRollback() bool {
	return IsComplexOperation(c.LastOperation) && c.OperationResult != OperationResultDeploying
}

// PluginVersionInfo 插件最新打包版本信息
type PluginVersionInfo struct {
	PluginId      string `json:"pluginId"`
	Version       string `json:"version"`
	ConfigVersion int    `json:"configVersion"`
	InfoVersion   int    `json:"infoVersion"`
	IsPackaged    bool   `json:"isPackaged"`
}

func (PluginVersionInfo) TableName() string {
	return "w8t_plugin_version"
}

// AggregateInstanceStatuses 按实例状态集合聚合出操作结果。
// 全部成功为 SUCCESS，存在未结束实例为 DEPLOYING，全部失败为 FAILED，
// 其余成功失败混合为 WARNING。
func AggregateInstanceStatuses(statuses []string) string {
	if len(statuses) == 0 {
		return OperationResultSuccess
	}
	success, failed := 0, 0
	for _, s := range statuses {
		switch s {
		case InstanceStatusPending, InstanceStatusRunning:
			return OperationResultDeploying
		case InstanceStatusFailed:
			failed++
		case InstanceStatusSuccess:
			success++
		}
	}
	if failed == 0 {
		return OperationResultSuccess
	}
	if success == 0 {
		return OperationResultFailed
	}
	return OperationResultWarning
}
