package models

// 集群状态
const (
	ClusterStatusRunning  = "running"
	ClusterStatusDisabled = "disabled"
)

// ClusterRecord 已接入的 BCS/Kubernetes 集群
type ClusterRecord struct {
	ClusterID          string `json:"clusterId"`
	BkTenantId         string `json:"bkTenantId"`
	BkBizId            int64  `json:"bkBizId"`
	Status             string `json:"status"`
	K8sMetricDataID    int64  `json:"k8sMetricDataId"`
	CustomMetricDataID int64  `json:"customMetricDataId"`
	K8sEventDataID     int64  `json:"k8sEventDataId"`
	BkCloudId          *int64 `json:"bkCloudId"`
	DomainName         string `json:"domainName"`
	Port               int    `json:"port"`
	ApiKeyContent      string `json:"apiKeyContent"`
	IsDeletedAllowView bool   `json:"isDeletedAllowView" gorm:"-"`
}

func (ClusterRecord) TableName() string {
	return "w8t_bcs_cluster"
}

// IsOperational 集群是否处于可用状态
func (c ClusterRecord) IsOperational() bool {
	return c.Status == ClusterStatusRunning
}

// DataIDs 三条数据链路的 data_id，0 表示未分配
func (c ClusterRecord) DataIDs() map[string]int64 {
	return map[string]int64{
		"K8sMetricDataID":    c.K8sMetricDataID,
		"CustomMetricDataID": c.CustomMetricDataID,
		"K8sEventDataID":     c.K8sEventDataID,
	}
}

// FederationRelation 联邦集群拓扑，子集群同一时刻至多挂在一个代理集群下
type FederationRelation struct {
	HostClusterId  string   `json:"hostClusterId"`
	SubClusterId   string   `json:"subClusterId"`
	Namespaces     []string `json:"namespaces" gorm:"fed_namespaces;serializer:json"`
	FedBuiltinMetricTableId string `json:"fedBuiltinMetricTableId"`
	FedBuiltinEventTableId  string `json:"fedBuiltinEventTableId"`
	IsDeleted      bool     `json:"isDeleted"`
}

func (FederationRelation) TableName() string {
	return "w8t_bcs_federal_cluster_info"
}

// K8sResourceMirror 控制面本地的集群资源镜像行，一致性审计的第三个数据源
type K8sResourceMirror struct {
	ClusterID       string `json:"clusterId"`
	Kind            string `json:"kind"`
	Name            string `json:"name"`
	Namespace       string `json:"namespace"`
	ResourceVersion string `json:"resourceVersion"`
	Status          string `json:"status"`
	ServiceType     string `json:"serviceType"`
	ClusterIP       string `json:"clusterIp"`
	ExternalIP      string `json:"externalIp"`
	WorkloadType    string `json:"workloadType"`
	Subsets         string `json:"subsets"`
	MonitorKind     string `json:"monitorKind"` // ServiceMonitor / PodMonitor 镜像行复用本表
}

func (K8sResourceMirror) TableName() string {
	return "w8t_bcs_resource_mirror"
}

// StorageClusterRecord ES 存储迁移历史，同一结果表只允许一条 is_current 记录
type StorageClusterRecord struct {
	TableID     string `json:"tableId"`
	ClusterID   int64  `json:"clusterId"`
	IsCurrent   bool   `json:"isCurrent"`
	EnableTime  string `json:"enableTime"`
	DisableTime string `json:"disableTime"`
}

func (StorageClusterRecord) TableName() string {
	return "w8t_storage_cluster_record"
}
