package nodeman

// Scope 订阅的目标范围
type Scope struct {
	BkBizId   int64                    `json:"bk_biz_id"`
	ObjectType string                  `json:"object_type"` // HOST / SERVICE
	NodeType  string                   `json:"node_type"`   // INSTANCE / TOPO / SERVICE_TEMPLATE / SET_TEMPLATE
	Nodes     []map[string]interface{} `json:"nodes"`
}

// Step 订阅的执行步骤（插件下发描述）
type Step struct {
	Id     string                 `json:"id"`
	Type   string                 `json:"type"`
	Config map[string]interface{} `json:"config"`
	Params map[string]interface{} `json:"params"`
}

type CreateSubscriptionRequest struct {
	Scope     Scope  `json:"scope"`
	Steps     []Step `json:"steps"`
	RunImmediately bool `json:"run_immediately"`
}

type CreateSubscriptionResult struct {
	SubscriptionId int64 `json:"subscription_id"`
	TaskId         int64 `json:"task_id"`
}

type SubscriptionInfo struct {
	SubscriptionId int64  `json:"subscription_id"`
	Enabled        bool   `json:"enable"`
	Scope          Scope  `json:"scope"`
	Steps          []Step `json:"steps"`
}

// InstanceStatus 单个目标实例的执行状态
type InstanceStatus struct {
	SubscriptionId int64          `json:"subscription_id"`
	InstanceId     int64          `json:"instance_id"`
	Status         string         `json:"status"` // PENDING / RUNNING / SUCCESS / FAILED
	Host           InstanceHost   `json:"instance_info"`
	TaskDetail     []InstanceTask `json:"task_detail,omitempty"`
}

type InstanceHost struct {
	BkHostId  int64  `json:"bk_host_id"`
	IP        string `json:"bk_host_innerip"`
	BkCloudId int64  `json:"bk_cloud_id"`
	HostName  string `json:"bk_host_name"`
}

type InstanceTask struct {
	TaskId int64  `json:"task_id"`
	Status string `json:"status"`
	Step   string `json:"step"`
}

// InstanceResult 一次任务派发后实例级别的结果
type InstanceResult struct {
	InstanceId int64        `json:"instance_id"`
	TaskId     int64        `json:"task_id"`
	Status     string       `json:"status"`
	Host       InstanceHost `json:"instance_info"`
	Steps      []StepResult `json:"steps,omitempty"`
}

type StepResult struct {
	Id     string `json:"id"`
	Status string `json:"status"`
	Log    string `json:"log,omitempty"`
}

// SubscriptionStatistic 按订阅聚合的实例状态统计
type SubscriptionStatistic struct {
	SubscriptionId int64         `json:"subscription_id"`
	Instances      int           `json:"instances"`
	Status         []StatusCount `json:"status"`
}

type StatusCount struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// RouteStreamTo 链路路由的下游写入目标
type RouteStreamTo struct {
	StreamToId int64  `json:"stream_to_id"`
	Topic      string `json:"topic"`
	Partition  int    `json:"partition"`
}

// RouteInfo 管控平面登记的数据链路路由
type RouteInfo struct {
	ChannelId int64           `json:"channel_id"`
	PlatName  string          `json:"plat_name"`
	StreamTo  []RouteStreamTo `json:"stream_to"`
}

// DetailTree 实例任务的分步执行详情
type DetailTree struct {
	InstanceId int64        `json:"instance_id"`
	Status     string       `json:"status"`
	Steps      []StepResult `json:"steps"`
	StartTime  string       `json:"start_time"`
	FinishTime string       `json:"finish_time"`
	Log        string       `json:"log,omitempty"`
}

// ErrorCounts 统计结果换算为实例数缓存
func (s SubscriptionStatistic) ErrorCounts() (errorCount, totalCount int) {
	totalCount = s.Instances
	for _, sc := range s.Status {
		if sc.Status == "FAILED" {
			errorCount += sc.Count
		}
	}
	return errorCount, totalCount
}

// InstanceStatuses 拍平为状态字符串列表，聚合判断使用
func (s SubscriptionStatistic) InstanceStatuses() []string {
	var out []string
	for _, sc := range s.Status {
		for i := 0; i < sc.Count; i++ {
			out = append(out, sc.Status)
		}
	}
	return out
}
