package bcsstorage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"monitorHub/internal/errs"
	"monitorHub/pkg/tools"
)

const defaultPageSize = 500

// Resource 存储网关返回的单条资源，data 为原始对象
type Resource struct {
	ClusterId    string                 `json:"clusterId"`
	Namespace    string                 `json:"namespace"`
	ResourceName string                 `json:"resourceName"`
	ResourceType string                 `json:"resourceType"`
	Data         map[string]interface{} `json:"data"`
}

// ClusterMeta 集群管理侧登记的集群元信息
type ClusterMeta struct {
	ClusterId string `json:"clusterID"`
	Status    string `json:"status"`
}

// Client BCS 存储网关客户端，审计时的批量资源来源
type Client interface {
	ListResources(ctx context.Context, clusterId, resourceType string, fields []string) ([]Resource, error)
	GetCluster(ctx context.Context, clusterId string) (ClusterMeta, error)
}

type ClientConfig struct {
	Endpoint string
	Token    string
	Timeout  int // 秒
}

type httpClient struct {
	config ClientConfig
}

func NewClient(config ClientConfig) Client {
	if config.Timeout <= 0 {
		config.Timeout = 30
	}
	return &httpClient{
		config: config,
	}
}

// ListResources 分页拉取集群下某类资源，fields 投影限制返回体大小
func (c *httpClient) ListResources(ctx context.Context, clusterId, resourceType string, fields []string) ([]Resource, error) {
	headers := map[string]string{}
	if c.config.Token != "" {
		headers["Authorization"] = "Bearer " + c.config.Token
	}

	var all []Resource
	offset := 0
	for {
		query := url.Values{}
		query.Set("offset", fmt.Sprintf("%d", offset))
		query.Set("limit", fmt.Sprintf("%d", defaultPageSize))
		if len(fields) > 0 {
			query.Set("field", strings.Join(fields, ","))
		}

		reqUrl := fmt.Sprintf("%s/bcsstorage/v1/k8s/dynamic/cluster_resources/clusters/%s/%s?%s",
			c.config.Endpoint, clusterId, resourceType, query.Encode())

		res, err := tools.GetWithCtx(ctx, headers, reqUrl, c.config.Timeout)
		if err != nil {
			return nil, errs.NewExternal("bcs_storage", err)
		}

		raw, err := io.ReadAll(res.Body)
		res.Body.Close()
		if err != nil {
			return nil, errs.NewExternal("bcs_storage", err)
		}
		if res.StatusCode != http.StatusOK {
			return nil, errs.NewExternal("bcs_storage", fmt.Errorf("http %d: %s", res.StatusCode, string(raw)))
		}

		var shell struct {
			Code    int        `json:"code"`
			Message string     `json:"message"`
			Data    []Resource `json:"data"`
		}
		if err = tools.JsonUnmarshal(raw, &shell); err != nil {
			return nil, errs.NewExternal("bcs_storage", fmt.Errorf("解析响应失败: %w", err))
		}
		if shell.Code != 0 {
			return nil, errs.NewExternal("bcs_storage", fmt.Errorf("code=%d message=%s", shell.Code, shell.Message))
		}

		all = append(all, shell.Data...)
		if len(shell.Data) < defaultPageSize {
			return all, nil
		}
		offset += defaultPageSize
	}
}

// GetCluster 查询集群管理侧的集群登记信息，校验本地记录与远端是否一致
func (c *httpClient) GetCluster(ctx context.Context, clusterId string) (ClusterMeta, error) {
	var meta ClusterMeta

	headers := map[string]string{}
	if c.config.Token != "" {
		headers["Authorization"] = "Bearer " + c.config.Token
	}

	reqUrl := fmt.Sprintf("%s/bcsapi/v4/clustermanager/v1/cluster/%s", c.config.Endpoint, clusterId)
	res, err := tools.GetWithCtx(ctx, headers, reqUrl, c.config.Timeout)
	if err != nil {
		return meta, errs.NewExternal("bcs_storage", err)
	}

	raw, err := io.ReadAll(res.Body)
	res.Body.Close()
	if err != nil {
		return meta, errs.NewExternal("bcs_storage", err)
	}
	if res.StatusCode == http.StatusNotFound {
		return meta, errs.NewNotFound("BCS集群", "cluster_id=%s", clusterId)
	}
	if res.StatusCode != http.StatusOK {
		return meta, errs.NewExternal("bcs_storage", fmt.Errorf("http %d: %s", res.StatusCode, string(raw)))
	}

	var shell struct {
		Code    int         `json:"code"`
		Message string      `json:"message"`
		Data    ClusterMeta `json:"data"`
	}
	if err = tools.JsonUnmarshal(raw, &shell); err != nil {
		return meta, errs.NewExternal("bcs_storage", fmt.Errorf("解析响应失败: %w", err))
	}
	if shell.Code != 0 {
		return meta, errs.NewExternal("bcs_storage", fmt.Errorf("code=%d message=%s", shell.Code, shell.Message))
	}

	return shell.Data, nil
}
