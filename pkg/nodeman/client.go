package nodeman

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"monitorHub/internal/errs"
	"monitorHub/pkg/tools"
)

// Client 节点管理（下发数据面）客户端。采集生命周期的所有订阅操作都经由它。
type Client interface {
	CreateSubscription(ctx context.Context, req CreateSubscriptionRequest) (CreateSubscriptionResult, error)
	SwitchSubscription(ctx context.Context, subscriptionId int64, enabled bool) error
	RunSubscription(ctx context.Context, subscriptionId int64, actions map[string]string, scope *Scope) (int64, error)
	RetrySubscription(ctx context.Context, subscriptionId int64, instanceIds []int64) (int64, error)
	RevokeSubscription(ctx context.Context, subscriptionId int64, instanceIds []int64) error
	SubscriptionInfo(ctx context.Context, subscriptionIds []int64) ([]SubscriptionInfo, error)
	SubscriptionInstanceStatus(ctx context.Context, subscriptionIds []int64, showTaskDetail bool) ([]InstanceStatus, error)
	BatchTaskResult(ctx context.Context, subscriptionId int64, taskIds []int64, needDetail bool) ([]InstanceResult, error)
	CheckTaskReady(ctx context.Context, subscriptionId int64, taskIds []int64) (bool, error)
	Statistic(ctx context.Context, subscriptionIds []int64) ([]SubscriptionStatistic, error)
	TaskResultDetail(ctx context.Context, subscriptionId, instanceId, taskId int64) (DetailTree, error)
	QueryRoute(ctx context.Context, platName string, channelId int64) (RouteInfo, error)
}

type ClientConfig struct {
	Endpoint string
	AppCode  string
	AppToken string
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

// call 发送请求并解包标准响应壳，data 解析进 out
func (c *httpClient) call(ctx context.Context, path string, payload interface{}, out interface{}) error {
	body, err := tools.JsonMarshal(payload)
	if err != nil {
		return fmt.Errorf("序列化请求失败: %w", err)
	}

	headers := map[string]string{
		"X-Bkapi-App-Code":  c.config.AppCode,
		"X-Bkapi-App-Token": c.config.AppToken,
		"X-Request-Id":      tools.RandUid(),
	}

	res, err := tools.PostWithCtx(ctx, headers, c.config.Endpoint+path, body, c.config.Timeout)
	if err != nil {
		return errs.NewExternal("nodeman", err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return errs.NewExternal("nodeman", err)
	}
	if res.StatusCode != http.StatusOK {
		return errs.NewExternal("nodeman", fmt.Errorf("http %d: %s", res.StatusCode, string(raw)))
	}

	var shell struct {
		Result  bool        `json:"result"`
		Code    int         `json:"code"`
		Message string      `json:"message"`
		Data    interface{} `json:"data"`
	}
	if err = tools.JsonUnmarshal(raw, &shell); err != nil {
		return errs.NewExternal("nodeman", fmt.Errorf("解析响应失败: %w", err))
	}
	if !shell.Result {
		return errs.NewExternal("nodeman", fmt.Errorf("code=%d message=%s", shell.Code, shell.Message))
	}

	if out == nil {
		return nil
	}
	data, err := tools.JsonMarshal(shell.Data)
	if err != nil {
		return errs.NewExternal("nodeman", err)
	}
	if err = tools.JsonUnmarshal(data, out); err != nil {
		return errs.NewExternal("nodeman", fmt.Errorf("解析数据失败: %w", err))
	}
	return nil
}

func (c *httpClient) CreateSubscription(ctx context.Context, req CreateSubscriptionRequest) (CreateSubscriptionResult, error) {
	var result CreateSubscriptionResult
	err := c.call(ctx, "/api/subscription/create/", req, &result)
	return result, err
}

func (c *httpClient) SwitchSubscription(ctx context.Context, subscriptionId int64, enabled bool) error {
	action := "disable"
	if enabled {
		action = "enable"
	}
	payload := map[string]interface{}{
		"subscription_id": subscriptionId,
		"action":          action,
	}
	return c.call(ctx, "/api/subscription/switch/", payload, nil)
}

func (c *httpClient) RunSubscription(ctx context.Context, subscriptionId int64, actions map[string]string, scope *Scope) (int64, error) {
	payload := map[string]interface{}{
		"subscription_id": subscriptionId,
	}
	if len(actions) > 0 {
		payload["actions"] = actions
	}
	if scope != nil {
		payload["scope"] = scope
	}

	var result struct {
		TaskId int64 `json:"task_id"`
	}
	err := c.call(ctx, "/api/subscription/run/", payload, &result)
	return result.TaskId, err
}

func (c *httpClient) RetrySubscription(ctx context.Context, subscriptionId int64, instanceIds []int64) (int64, error) {
	payload := map[string]interface{}{
		"subscription_id": subscriptionId,
	}
	if len(instanceIds) > 0 {
		payload["instance_id_list"] = instanceIds
	}

	var result struct {
		TaskId int64 `json:"task_id"`
	}
	err := c.call(ctx, "/api/subscription/retry/", payload, &result)
	return result.TaskId, err
}

func (c *httpClient) RevokeSubscription(ctx context.Context, subscriptionId int64, instanceIds []int64) error {
	payload := map[string]interface{}{
		"subscription_id": subscriptionId,
	}
	if len(instanceIds) > 0 {
		payload["instance_id_list"] = instanceIds
	}
	return c.call(ctx, "/api/subscription/revoke/", payload, nil)
}

func (c *httpClient) SubscriptionInfo(ctx context.Context, subscriptionIds []int64) ([]SubscriptionInfo, error) {
	payload := map[string]interface{}{
		"subscription_id_list": subscriptionIds,
	}
	var result []SubscriptionInfo
	err := c.call(ctx, "/api/subscription/info/", payload, &result)
	return result, err
}

func (c *httpClient) SubscriptionInstanceStatus(ctx context.Context, subscriptionIds []int64, showTaskDetail bool) ([]InstanceStatus, error) {
	payload := map[string]interface{}{
		"subscription_id_list": subscriptionIds,
		"show_task_detail":     showTaskDetail,
	}
	var result []InstanceStatus
	err := c.call(ctx, "/api/subscription/instance_status/", payload, &result)
	return result, err
}

func (c *httpClient) BatchTaskResult(ctx context.Context, subscriptionId int64, taskIds []int64, needDetail bool) ([]InstanceResult, error) {
	payload := map[string]interface{}{
		"subscription_id": subscriptionId,
		"task_id_list":    taskIds,
		"need_detail":     needDetail,
	}
	var result []InstanceResult
	err := c.call(ctx, "/api/subscription/task_result/", payload, &result)
	return result, err
}

func (c *httpClient) CheckTaskReady(ctx context.Context, subscriptionId int64, taskIds []int64) (bool, error) {
	payload := map[string]interface{}{
		"subscription_id": subscriptionId,
		"task_id_list":    taskIds,
	}
	var ready bool
	err := c.call(ctx, "/api/subscription/check_task_ready/", payload, &ready)
	return ready, err
}

func (c *httpClient) Statistic(ctx context.Context, subscriptionIds []int64) ([]SubscriptionStatistic, error) {
	payload := map[string]interface{}{
		"subscription_id_list": subscriptionIds,
	}
	var result []SubscriptionStatistic
	err := c.call(ctx, "/api/subscription/statistic/", payload, &result)
	return result, err
}

// QueryRoute 查询管控平面登记的链路路由，校验器用于比对本地路由配置
func (c *httpClient) QueryRoute(ctx context.Context, platName string, channelId int64) (RouteInfo, error) {
	payload := map[string]interface{}{
		"condition": map[string]interface{}{
			"plat_name":  platName,
			"channel_id": channelId,
		},
		"operation": map[string]interface{}{
			"operator_name": "query_route",
		},
	}
	var result RouteInfo
	err := c.call(ctx, "/api/data/query_route/", payload, &result)
	return result, err
}

func (c *httpClient) TaskResultDetail(ctx context.Context, subscriptionId, instanceId, taskId int64) (DetailTree, error) {
	payload := map[string]interface{}{
		"subscription_id": subscriptionId,
		"instance_id":     instanceId,
		"task_id":         taskId,
	}
	var result DetailTree
	err := c.call(ctx, "/api/subscription/task_result_detail/", payload, &result)
	return result, err
}
