package models

// 数据源 ETL 相关常量
const (
	SpaceStatusNormal   = "NORMAL"
	DataSourceFromBkdata = "BKDATA"

	// GseStreamToIDUninitialized MQ 链路未初始化时的占位值
	GseStreamToIDUninitialized = -1
)

// DataSourceRecord 数据源注册信息
type DataSourceRecord struct {
	BkDataId       int64             `json:"bkDataId"`
	DataName       string            `json:"dataName"`
	EtlConfig      string            `json:"etlConfig"`
	IsEnable       bool              `json:"isEnable"`
	IsPlatformDataId bool            `json:"isPlatformDataId"`
	MqClusterId    int64             `json:"mqClusterId"`
	GseStreamToId  int64             `json:"gseStreamToId"`
	IsRefreshable  bool              `json:"isRefreshable"`
	CreatedFrom    string            `json:"createdFrom"`
	Options        map[string]string `json:"options" gorm:"options;serializer:json"`
}

func (DataSourceRecord) TableName() string {
	return "w8t_data_source"
}

// MQClusterRecord 消息队列集群
type MQClusterRecord struct {
	ClusterId   int64  `json:"clusterId"`
	ClusterType string `json:"clusterType"` // kafka / pulsar
	ClusterName string `json:"clusterName"`
	DomainName  string `json:"domainName"`
	Port        int    `json:"port"`
}

func (MQClusterRecord) TableName() string {
	return "w8t_mq_cluster"
}

// MQConfigRecord MQ 集群对应类型的路由配置
type MQConfigRecord struct {
	ClusterId int64  `json:"clusterId"`
	MqType    string `json:"mqType"`
	Topic     string `json:"topic"`
	Partition int    `json:"partition"`
}

func (MQConfigRecord) TableName() string {
	return "w8t_mq_config"
}

// SpaceRecord 空间（业务/项目）信息
type SpaceRecord struct {
	SpaceTypeId string `json:"spaceTypeId"`
	SpaceId     string `json:"spaceId"`
	SpaceName   string `json:"spaceName"`
	Status      string `json:"status"`
}

func (SpaceRecord) TableName() string {
	return "w8t_space"
}

// SpaceDataSourceRecord 空间与数据源的绑定
type SpaceDataSourceRecord struct {
	SpaceTypeId string `json:"spaceTypeId"`
	SpaceId     string `json:"spaceId"`
	BkDataId    int64  `json:"bkDataId"`
}

func (SpaceDataSourceRecord) TableName() string {
	return "w8t_space_data_source"
}

// ResultTableRecord 结果表镜像
type ResultTableRecord struct {
	TableId        string            `json:"tableId"`
	BkDataId       int64             `json:"bkDataId"`
	StorageType    string            `json:"storageType"` // influxdb / elasticsearch / victoria_metrics
	IsEnable       bool              `json:"isEnable"`
	Options        map[string]string `json:"options" gorm:"options;serializer:json"`
}

func (ResultTableRecord) TableName() string {
	return "w8t_result_table"
}

// ResultTableFieldRecord 结果表字段
type ResultTableFieldRecord struct {
	TableId   string `json:"tableId"`
	FieldName string `json:"fieldName"`
	Tag       string `json:"tag"` // metric / dimension / timestamp
}

func (ResultTableFieldRecord) TableName() string {
	return "w8t_result_table_field"
}

// TimeSeriesGroupRecord 自定义指标分组
type TimeSeriesGroupRecord struct {
	BkDataId  int64  `json:"bkDataId"`
	GroupName string `json:"groupName"`
	IsEnable  bool   `json:"isEnable"`
}

func (TimeSeriesGroupRecord) TableName() string {
	return "w8t_time_series_group"
}

// EventGroupRecord 事件分组
type EventGroupRecord struct {
	BkDataId  int64  `json:"bkDataId"`
	GroupName string `json:"groupName"`
	IsEnable  bool   `json:"isEnable"`
}

func (EventGroupRecord) TableName() string {
	return "w8t_event_group"
}

// CustomReportSubscriptionRecord 自定义上报订阅
type CustomReportSubscriptionRecord struct {
	BkBizId  int64 `json:"bkBizId"`
	BkDataId int64 `json:"bkDataId"`
	SubscriptionId int64 `json:"subscriptionId"`
}

func (CustomReportSubscriptionRecord) TableName() string {
	return "w8t_custom_report_subscription"
}

// AccessVMRecord VM 接入记录
type AccessVMRecord struct {
	ResultTableId   string `json:"resultTableId"`
	BkBaseDataId    int64  `json:"bkBaseDataId"`
	VmResultTableId string `json:"vmResultTableId"`
	VmClusterId     int64  `json:"vmClusterId"`
}

func (AccessVMRecord) TableName() string {
	return "w8t_access_vm_record"
}

// DataLinkRecord VM 数据链路
type DataLinkRecord struct {
	DataLinkName string `json:"dataLinkName"`
	Namespace    string `json:"namespace"`
	Status       string `json:"status"`
}

func (DataLinkRecord) TableName() string {
	return "w8t_data_link"
}

// DataLinkResourceConfig VM 链路下的资源配置（结果表/存储绑定/数据总线等）
type DataLinkResourceConfig struct {
	DataLinkName string `json:"dataLinkName"`
	Kind         string `json:"kind"` // BkBaseResultTable / ResultTableConfig / VMStorageBindingConfig / DataBusConfig
	Name         string `json:"name"`
	Status       string `json:"status"`
	Content      string `json:"content"`
}

func (DataLinkResourceConfig) TableName() string {
	return "w8t_data_link_resource_config"
}

// ESStorageRecord ES 存储配置
type ESStorageRecord struct {
	TableId          string `json:"tableId"`
	StorageClusterId int64  `json:"storageClusterId"`
	DateFormat       string `json:"dateFormat"`
	TimeZone         int    `json:"timeZone"`
	WarmPhaseDays    int    `json:"warmPhaseDays"`
	WarmPhaseSettings string `json:"warmPhaseSettings"`
	IndexSettings    string `json:"indexSettings"`
	MappingSettings  string `json:"mappingSettings"`
}

func (ESStorageRecord) TableName() string {
	return "w8t_es_storage"
}

// InfluxdbStorageRecord InfluxDB 存储配置
type InfluxdbStorageRecord struct {
	TableId          string `json:"tableId"`
	ProxyClusterName string `json:"proxyClusterName"`
	StorageClusterId int64  `json:"storageClusterId"`
	Database         string `json:"database"`
}

func (InfluxdbStorageRecord) TableName() string {
	return "w8t_influxdb_storage"
}

// StorageClusterInfo 通用存储集群信息（ES/Doris/InfluxDB proxy）
type StorageClusterInfo struct {
	ClusterId   int64  `json:"clusterId"`
	ClusterType string `json:"clusterType"`
	ClusterName string `json:"clusterName"`
	DomainName  string `json:"domainName"`
	Port        int    `json:"port"`
}

func (StorageClusterInfo) TableName() string {
	return "w8t_cluster_info"
}
