package types

// 审计数据来源
const (
	SourceBcsStorage = "bcs_storage"
	SourceApiServer  = "api_server"
	SourceLocalDB    = "local_db"
)

// 可审计的资源类别
const (
	ResourceKindPod       = "Pod"
	ResourceKindService   = "Service"
	ResourceKindNode      = "Node"
	ResourceKindEndpoints = "Endpoints"
	ResourceKindWorkload  = "Workload"
)

// ComparisonTuple 资源在某个来源下的比较投影
type ComparisonTuple struct {
	Name            string `json:"name"`
	Namespace       string `json:"namespace,omitempty"`
	ResourceVersion string `json:"resourceVersion,omitempty"`
	Status          string `json:"status,omitempty"`
	ServiceType     string `json:"serviceType,omitempty"`
	ClusterIP       string `json:"clusterIp,omitempty"`
	ExternalIP      string `json:"externalIp,omitempty"`
	WorkloadType    string `json:"workloadType,omitempty"`
	Subsets         string `json:"subsets,omitempty"`
}

// AuditRequest 一次一致性审计请求
type AuditRequest struct {
	TenantId     string   `json:"tenantId"`
	ClusterId    string   `json:"clusterId"`
	ResourceKind string   `json:"resourceKind"`
	Namespaces   []string `json:"namespaces,omitempty"` // 共享集群时的命名空间白名单
	FullMode     bool     `json:"fullMode"`
}

// AuditResult 审计结果。Drift 记录缺源实例在各来源下的投影。
type AuditResult struct {
	ClusterId    string                                `json:"clusterId"`
	ResourceKind string                                `json:"resourceKind"`
	Counts       map[string]int                        `json:"counts"`
	Drift        map[string]map[string]ComparisonTuple `json:"drift"`
	Issues       []string                              `json:"issues,omitempty"`
	Status       string                                `json:"status"` // SUCCESS / WARNING / ERROR
}
