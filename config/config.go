package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type App struct {
	Server  Server  `json:"server"`
	MySQL   MySQL   `json:"mysql"`
	Redis   Redis   `json:"redis"`
	Consul  Consul  `json:"consul"`
	NodeMan NodeMan `json:"nodeman"`
	Bcs     Bcs     `json:"bcs"`
	Cmdb    Cmdb    `json:"cmdb"`
	Duty    Duty    `json:"duty"`
	Cluster Cluster `json:"cluster"`
	Collect Collect `json:"collect"`
}

type Server struct {
	Mode string `json:"mode"`
	Port string `json:"port"`
}

type MySQL struct {
	Host    string `json:"host"`
	Port    string `json:"port"`
	User    string `json:"user"`
	Pass    string `json:"pass"`
	DBName  string `json:"dbName"`
	Timeout string `json:"timeout"`
}

type Redis struct {
	Host string `json:"host"`
	Port string `json:"port"`
	Pass string `json:"pass"`
}

type Consul struct {
	Address string `json:"address"`
	Token   string `json:"token"`
}

// NodeMan 节点管理（下发数据面）服务配置
type NodeMan struct {
	Endpoint string `json:"endpoint"`
	AppCode  string `json:"appCode"`
	AppToken string `json:"appToken"`
	Timeout  int    `json:"timeout"` // 秒
}

// Bcs BCS 存储网关配置
type Bcs struct {
	StorageEndpoint string `json:"storageEndpoint"`
	Token           string `json:"token"`
	Timeout         int    `json:"timeout"`
}

type Cmdb struct {
	Endpoint string `json:"endpoint"`
	Timeout  int    `json:"timeout"`
}

// Duty 排班引擎配置
type Duty struct {
	PlanDays     int    `json:"planDays"`     // 排班展开天数，默认 30
	NoticeCron   string `json:"noticeCron"`   // 通知扫描周期
	DefaultZone  string `json:"defaultZone"`  // 用户组缺省时区
}

// Cluster 集群校验配置
type Cluster struct {
	StrictFederation bool   `json:"strictFederation"` // 联邦记录缺失时是否按 ERROR 处理
	CheckTimeout     int    `json:"checkTimeout"`     // 单项检查超时，秒
	ApiToken         string `json:"apiToken"`         // 集群接入统一令牌
}

// Collect 采集生命周期配置
type Collect struct {
	ReconcileIntervalMinutes int    `json:"reconcileIntervalMinutes"` // 巡检周期，默认 5
	LockTTLSeconds           int    `json:"lockTtlSeconds"`           // 互斥锁持有时长，默认 60
	RsaKeyFile               string `json:"rsaKeyFile"`               // 密码参数加密私钥，PEM 文件路径
}

func InitConfig() App {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("config/")
	v.AddConfigPath(".")

	v.SetDefault("server.mode", "release")
	v.SetDefault("server.port", "9001")
	v.SetDefault("mysql.timeout", "10s")
	v.SetDefault("duty.planDays", 30)
	v.SetDefault("duty.noticeCron", "*/1 * * * *")
	v.SetDefault("duty.defaultZone", "Asia/Shanghai")
	v.SetDefault("cluster.strictFederation", false)
	v.SetDefault("cluster.checkTimeout", 10)
	v.SetDefault("collect.reconcileIntervalMinutes", 5)
	v.SetDefault("collect.lockTtlSeconds", 60)
	v.SetDefault("nodeman.timeout", 30)
	v.SetDefault("bcs.timeout", 30)
	v.SetDefault("cmdb.timeout", 10)

	if err := v.ReadInConfig(); err != nil {
		panic(fmt.Errorf("读取配置文件失败: %w", err))
	}

	var config App
	if err := v.Unmarshal(&config); err != nil {
		panic(fmt.Errorf("解析配置文件失败: %w", err))
	}

	return config
}
