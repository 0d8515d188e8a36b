package consul

import (
	"fmt"
	"time"

	consulapi "github.com/hashicorp/consul/api"
)

// Client Consul 客户端封装。数据源路由配置存放在 KV，
// 写入方是采集生命周期管理器和巡检任务，校验器只读比对。
type Client struct {
	client *consulapi.Client
	config *ClientConfig
}

// ClientConfig Consul 客户端配置
type ClientConfig struct {
	Address string        // Consul 服务器地址（完整 URL）
	Token   string        // 认证令牌（可选）
	Timeout time.Duration // 连接超时时间（默认：3s）
}

// NewClient 创建新的 Consul 客户端
func NewClient(config ClientConfig) (*Client, error) {
	if config.Timeout == 0 {
		config.Timeout = 3 * time.Second
	}

	consulConfig := consulapi.DefaultConfig()
	consulConfig.Address = config.Address
	if config.Token != "" {
		consulConfig.Token = config.Token
	}

	client, err := consulapi.NewClient(consulConfig)
	if err != nil {
		return nil, fmt.Errorf("创建 Consul 客户端失败: %w", err)
	}

	return &Client{
		client: client,
		config: &config,
	}, nil
}

// GetKV 读取键值，键不存在时返回 nil
func (c *Client) GetKV(key string) ([]byte, error) {
	pair, _, err := c.client.KV().Get(key, nil)
	if err != nil {
		return nil, fmt.Errorf("读取 Consul 键 %s 失败: %w", key, err)
	}
	if pair == nil {
		return nil, nil
	}
	return pair.Value, nil
}

// PutKV 写入键值
func (c *Client) PutKV(key string, value []byte) error {
	_, err := c.client.KV().Put(&consulapi.KVPair{Key: key, Value: value}, nil)
	if err != nil {
		return fmt.Errorf("写入 Consul 键 %s 失败: %w", key, err)
	}
	return nil
}

// ListKeys 列举前缀下的键
func (c *Client) ListKeys(prefix string) ([]string, error) {
	keys, _, err := c.client.KV().Keys(prefix, "", nil)
	if err != nil {
		return nil, fmt.Errorf("列举 Consul 前缀 %s 失败: %w", prefix, err)
	}
	return keys, nil
}

// DataSourceKey 数据源路由配置在 KV 中的约定路径
func DataSourceKey(bkDataId int64) string {
	return fmt.Sprintf("monitorHub/metadata/v1/default/data_id/%d", bkDataId)
}
