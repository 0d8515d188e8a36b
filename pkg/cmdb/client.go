package cmdb

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"monitorHub/internal/errs"
	"monitorHub/pkg/tools"
)

// TopoNode 拓扑节点定位
type TopoNode struct {
	BkObjId  string `json:"bk_obj_id"`
	BkInstId int64  `json:"bk_inst_id"`
}

// Host 主机信息
type Host struct {
	BkHostId  int64  `json:"bk_host_id"`
	IP        string `json:"bk_host_innerip"`
	BkCloudId int64  `json:"bk_cloud_id"`
	HostName  string `json:"bk_host_name"`
	OsType    string `json:"bk_os_type"`
}

// ServiceInstance 服务实例
type ServiceInstance struct {
	Id       int64  `json:"id"`
	Name     string `json:"name"`
	BkHostId int64  `json:"bk_host_id"`
	BkModuleId int64 `json:"bk_module_id"`
}

// Client 配置管理拓扑客户端。采集目标解析时把模板展开为具体节点。
type Client interface {
	ListBizHosts(ctx context.Context, bkBizId int64) ([]Host, error)
	ListHostsByTopoNodes(ctx context.Context, bkBizId int64, nodes []TopoNode) ([]Host, error)
	ExpandServiceTemplates(ctx context.Context, bkBizId int64, templateIds []int64) ([]TopoNode, error)
	ExpandSetTemplates(ctx context.Context, bkBizId int64, templateIds []int64) ([]TopoNode, error)
	ListServiceInstances(ctx context.Context, bkBizId int64, moduleIds []int64) ([]ServiceInstance, error)
}

type ClientConfig struct {
	Endpoint string
	Timeout  int // 秒
}

type httpClient struct {
	config ClientConfig
}

func NewClient(config ClientConfig) Client {
	if config.Timeout <= 0 {
		config.Timeout = 10
	}
	return &httpClient{
		config: config,
	}
}

func (c *httpClient) call(ctx context.Context, path string, payload, out interface{}) error {
	body, err := tools.JsonMarshal(payload)
	if err != nil {
		return fmt.Errorf("序列化请求失败: %w", err)
	}

	headers := map[string]string{
		"X-Request-Id": tools.RandUid(),
	}

	res, err := tools.PostWithCtx(ctx, headers, c.config.Endpoint+path, body, c.config.Timeout)
	if err != nil {
		return errs.NewExternal("cmdb", err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return errs.NewExternal("cmdb", err)
	}
	if res.StatusCode != http.StatusOK {
		return errs.NewExternal("cmdb", fmt.Errorf("http %d: %s", res.StatusCode, string(raw)))
	}

	var shell struct {
		Result  bool        `json:"result"`
		Code    int         `json:"code"`
		Message string      `json:"message"`
		Data    interface{} `json:"data"`
	}
	if err = tools.JsonUnmarshal(raw, &shell); err != nil {
		return errs.NewExternal("cmdb", fmt.Errorf("解析响应失败: %w", err))
	}
	if !shell.Result {
		return errs.NewExternal("cmdb", fmt.Errorf("code=%d message=%s", shell.Code, shell.Message))
	}

	if out == nil {
		return nil
	}
	data, err := tools.JsonMarshal(shell.Data)
	if err != nil {
		return errs.NewExternal("cmdb", err)
	}
	if err = tools.JsonUnmarshal(data, out); err != nil {
		return errs.NewExternal("cmdb", fmt.Errorf("解析数据失败: %w", err))
	}
	return nil
}

func (c *httpClient) ListBizHosts(ctx context.Context, bkBizId int64) ([]Host, error) {
	payload := map[string]interface{}{
		"bk_biz_id": bkBizId,
	}
	var result struct {
		Info []Host `json:"info"`
	}
	err := c.call(ctx, "/api/c/compapi/v2/cc/list_biz_hosts/", payload, &result)
	return result.Info, err
}

func (c *httpClient) ListHostsByTopoNodes(ctx context.Context, bkBizId int64, nodes []TopoNode) ([]Host, error) {
	payload := map[string]interface{}{
		"bk_biz_id":  bkBizId,
		"topo_nodes": nodes,
	}
	var result struct {
		Info []Host `json:"info"`
	}
	err := c.call(ctx, "/api/c/compapi/v2/cc/find_host_by_topo/", payload, &result)
	return result.Info, err
}

// ExpandServiceTemplates 服务模板展开为模块节点
func (c *httpClient) ExpandServiceTemplates(ctx context.Context, bkBizId int64, templateIds []int64) ([]TopoNode, error) {
	payload := map[string]interface{}{
		"bk_biz_id":           bkBizId,
		"service_template_ids": templateIds,
	}
	var result struct {
		Info []struct {
			BkModuleId int64 `json:"bk_module_id"`
		} `json:"info"`
	}
	if err := c.call(ctx, "/api/c/compapi/v2/cc/find_module_with_relation/", payload, &result); err != nil {
		return nil, err
	}

	nodes := make([]TopoNode, 0, len(result.Info))
	for _, m := range result.Info {
		nodes = append(nodes, TopoNode{BkObjId: "module", BkInstId: m.BkModuleId})
	}
	return nodes, nil
}

// ExpandSetTemplates 集群模板展开为集合节点
func (c *httpClient) ExpandSetTemplates(ctx context.Context, bkBizId int64, templateIds []int64) ([]TopoNode, error) {
	payload := map[string]interface{}{
		"bk_biz_id":        bkBizId,
		"set_template_ids": templateIds,
	}
	var result struct {
		Info []struct {
			BkSetId int64 `json:"bk_set_id"`
		} `json:"info"`
	}
	if err := c.call(ctx, "/api/c/compapi/v2/cc/search_set/", payload, &result); err != nil {
		return nil, err
	}

	nodes := make([]TopoNode, 0, len(result.Info))
	for _, s := range result.Info {
		nodes = append(nodes, TopoNode{BkObjId: "set", BkInstId: s.BkSetId})
	}
	return nodes, nil
}

func (c *httpClient) ListServiceInstances(ctx context.Context, bkBizId int64, moduleIds []int64) ([]ServiceInstance, error) {
	payload := map[string]interface{}{
		"bk_biz_id":     bkBizId,
		"bk_module_ids": moduleIds,
	}
	var result struct {
		Info []ServiceInstance `json:"info"`
	}
	err := c.call(ctx, "/api/c/compapi/v2/cc/list_service_instance/", payload, &result)
	return result.Info, err
}
