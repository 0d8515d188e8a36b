package services

import (
	"fmt"
	"os"
	"strings"
	"time"

	"monitorHub/internal/ctx"
	"monitorHub/internal/errs"
	"monitorHub/internal/global"
	"monitorHub/internal/models"
	"monitorHub/internal/types"
	"monitorHub/pkg/cmdb"
	"monitorHub/pkg/nodeman"
	"monitorHub/pkg/secrets"
	"monitorHub/pkg/tools"

	"github.com/zeromicro/go-zero/core/logc"
)

type (
	collectService struct {
		ctx       *ctx.Context
		dataplane nodeman.Client
		topo      cmdb.Client
		cipher    *secrets.Cipher
	}

	// InterCollectService 采集配置生命周期。所有写操作持 collect_config 锁，
	// 数据面调用和落库在同一把锁内完成。
	InterCollectService interface {
		List(tenantId string, bkBizId int64) ([]models.CollectConfig, error)
		Detail(tenantId, id string) (types.CollectConfigDetail, error)
		Save(req types.SaveCollectConfigRequest) (models.CollectConfig, error)
		Toggle(tenantId, id, action string) error
		Delete(tenantId, id string) error
		Clone(tenantId, id, updateBy string) (models.CollectConfig, error)
		Rollback(tenantId, id, updateBy string) error
		Upgrade(tenantId, id string, params models.PluginParams, updateBy string) error
		Rename(tenantId, id, name string) error
		RetryInstance(tenantId, id string, instanceId int64) error
		BatchRetry(tenantId, id string) error
		RevokeInstances(tenantId, id string, instanceIds []int64) error
		InstanceStatuses(tenantId, id string) ([]types.InstanceStatusView, error)
		TaskDetail(tenantId, id string, instanceId, taskId int64) (nodeman.DetailTree, error)
	}
)

const (
	ToggleActionEnable  = "enable"
	ToggleActionDisable = "disable"
)

// 数据面插件动作
const (
	pluginActionInstall    = "INSTALL"
	pluginActionUninstall  = "UNINSTALL"
	pluginActionPushConfig = "PUSH_CONFIG"
)

func newInterCollectService(ctx *ctx.Context) InterCollectService {
	s := &collectService{
		ctx: ctx,
		dataplane: nodeman.NewClient(nodeman.ClientConfig{
			Endpoint: global.Config.NodeMan.Endpoint,
			AppCode:  global.Config.NodeMan.AppCode,
			AppToken: global.Config.NodeMan.AppToken,
			Timeout:  global.Config.NodeMan.Timeout,
		}),
		topo: cmdb.NewClient(cmdb.ClientConfig{
			Endpoint: global.Config.Cmdb.Endpoint,
			Timeout:  global.Config.Cmdb.Timeout,
		}),
	}

	if keyFile := global.Config.Collect.RsaKeyFile; keyFile != "" {
		pem, err := os.ReadFile(keyFile)
		if err != nil {
			logc.Errorf(ctx.Ctx, "读取密码加密私钥失败, 密码参数将明文存储: %s", err.Error())
		} else if s.cipher, err = secrets.NewCipher(pem); err != nil {
			logc.Errorf(ctx.Ctx, "解析密码加密私钥失败, 密码参数将明文存储: %s", err.Error())
			s.cipher = nil
		}
	}

	return s
}

func (c *collectService) List(tenantId string, bkBizId int64) ([]models.CollectConfig, error) {
	return c.ctx.DB.Collect().List(tenantId, bkBizId)
}

func (c *collectService) Detail(tenantId, id string) (types.CollectConfigDetail, error) {
	config, err := c.ctx.DB.Collect().Get(tenantId, id)
	if err != nil {
		return types.CollectConfigDetail{}, err
	}

	detail := types.CollectConfigDetail{Config: config}
	if config.DeploymentConfigId == "" {
		return detail, nil
	}

	deployment, err := c.ctx.DB.Collect().GetVersion(tenantId, config.DeploymentConfigId)
	if err != nil {
		return detail, err
	}
	detail.Deployment = deployment

	latest, err := c.ctx.DB.Collect().GetLatestPluginVersion(config.PluginId)
	if err == nil {
		detail.NeedUpgrade = needUpgrade(config, deployment, latest)
	}

	return detail, nil
}

// Save 新建或编辑采集配置。编辑会生成指向旧版本的新版本快照，
// 密码型参数提交布尔值时沿用旧版本的真实值。
func (c *collectService) Save(req types.SaveCollectConfigRequest) (models.CollectConfig, error) {
	if req.Name == "" {
		return models.CollectConfig{}, errs.NewValidation("采集配置名称不能为空")
	}
	if len(req.TargetNodes) == 0 {
		return models.CollectConfig{}, errs.NewValidation("下发目标节点不能为空")
	}

	if req.ID == "" {
		return c.create(req)
	}
	return c.edit(req)
}

func (c *collectService) create(req types.SaveCollectConfigRequest) (models.CollectConfig, error) {
	configId := "cc-" + tools.RandId()

	lock, err := c.ctx.Redis.Lock().ObtainCollectConfig(c.ctx.Ctx, configId)
	if err != nil {
		return models.CollectConfig{}, err
	}
	defer lock.Release(c.ctx.Ctx)

	latest, err := c.ctx.DB.Collect().GetLatestPluginVersion(req.PluginId)
	if err != nil {
		return models.CollectConfig{}, errs.NewNotFound("插件版本", "plugin_id=%s", req.PluginId)
	}

	version := models.DeploymentConfigVersion{
		ID:                   "dv-" + tools.RandId(),
		TenantId:             req.TenantId,
		ConfigMetaId:         configId,
		PluginVersion:        latest.Version,
		ConfigVersion:        latest.ConfigVersion,
		InfoVersion:          latest.InfoVersion,
		TargetNodeType:       req.TargetNodeType,
		TargetNodes:          req.TargetNodes,
		Params:               req.Params,
		RemoteCollectingHost: req.RemoteCollectingHost,
		CreateAt:             time.Now().Unix(),
	}

	result, err := c.dataplane.CreateSubscription(c.ctx.Ctx, nodeman.CreateSubscriptionRequest{
		Scope:          c.buildScope(req.BkBizId, req.TargetNodeType, req.TargetNodes),
		Steps:          buildSteps(req.PluginId, version),
		RunImmediately: true,
	})
	if err != nil {
		return models.CollectConfig{}, err
	}
	version.SubscriptionId = result.SubscriptionId
	version.TaskIds = []int64{result.TaskId}

	// 下发用明文, 落库前加密密码叶子
	version.Params = c.sealPasswords(version.Params)
	if err = c.ctx.DB.Collect().CreateVersion(version); err != nil {
		return models.CollectConfig{}, err
	}

	config := models.CollectConfig{
		TenantId:           req.TenantId,
		ID:                 configId,
		BkBizId:            req.BkBizId,
		Name:               req.Name,
		CollectType:        req.CollectType,
		PluginId:           req.PluginId,
		Label:              req.Label,
		DeploymentConfigId: version.ID,
		LastOperation:      models.OperationCreate,
		OperationResult:    models.OperationResultPreparing,
		TaskStatus:         models.TaskStatusStarted,
		UpdateBy:           req.UpdateBy,
		UpdateAt:           time.Now().Unix(),
	}
	if err = c.ctx.DB.Collect().Create(config); err != nil {
		return models.CollectConfig{}, err
	}

	logc.Infof(c.ctx.Ctx, "创建采集配置 %s, 订阅 %d, 任务 %d", configId, result.SubscriptionId, result.TaskId)
	return config, nil
}

func (c *collectService) edit(req types.SaveCollectConfigRequest) (models.CollectConfig, error) {
	lock, err := c.ctx.Redis.Lock().ObtainCollectConfig(c.ctx.Ctx, req.ID)
	if err != nil {
		return models.CollectConfig{}, err
	}
	defer lock.Release(c.ctx.Ctx)

	config, err := c.ctx.DB.Collect().Get(req.TenantId, req.ID)
	if err != nil {
		return models.CollectConfig{}, err
	}
	current, err := c.ctx.DB.Collect().GetVersion(req.TenantId, config.DeploymentConfigId)
	if err != nil {
		return models.CollectConfig{}, err
	}

	operation := req.Operation
	if operation == "" {
		operation = models.OperationEdit
	}
	if !models.IsComplexOperation(operation) {
		return models.CollectConfig{}, errs.NewValidation("编辑操作只允许 %s", strings.Join(models.ComplexOperations, "/"))
	}

	version := models.DeploymentConfigVersion{
		ID:                   "dv-" + tools.RandId(),
		TenantId:             req.TenantId,
		ConfigMetaId:         config.ID,
		ParentId:             current.ID,
		PluginVersion:        current.PluginVersion,
		ConfigVersion:        current.ConfigVersion,
		InfoVersion:          current.InfoVersion,
		TargetNodeType:       req.TargetNodeType,
		TargetNodes:          req.TargetNodes,
		Params:               mergePluginParams(current.Params, c.sealPasswords(req.Params)),
		RemoteCollectingHost: req.RemoteCollectingHost,
		SubscriptionId:       current.SubscriptionId,
		CreateAt:             time.Now().Unix(),
	}

	taskIds, err := c.dispatchDiff(req.BkBizId, current, version)
	if err != nil {
		return models.CollectConfig{}, err
	}
	version.TaskIds = taskIds

	if err = c.ctx.DB.Collect().CreateVersion(version); err != nil {
		return models.CollectConfig{}, err
	}

	config.Name = req.Name
	config.Label = req.Label
	config.DeploymentConfigId = version.ID
	config.LastOperation = operation
	config.OperationResult = models.OperationResultPreparing
	config.UpdateBy = req.UpdateBy
	config.UpdateAt = time.Now().Unix()
	if err = c.ctx.DB.Collect().Update(config); err != nil {
		return models.CollectConfig{}, err
	}

	return config, nil
}

// dispatchDiff 差量下发：新增和变更节点安装，移除节点卸载，未变更节点推送新配置
func (c *collectService) dispatchDiff(bkBizId int64, current, next models.DeploymentConfigVersion) ([]int64, error) {
	oldNodes, err := c.resolveNodes(bkBizId, current.TargetNodeType, current.TargetNodes)
	if err != nil {
		return nil, err
	}
	newNodes, err := c.resolveNodes(bkBizId, next.TargetNodeType, next.TargetNodes)
	if err != nil {
		return nil, err
	}

	diff := diffTargetNodes(oldNodes, newNodes)

	var taskIds []int64
	dispatch := func(action, nodeType string, nodes []models.TargetNode) error {
		if len(nodes) == 0 {
			return nil
		}
		scope := c.buildScope(bkBizId, nodeType, nodes)
		taskId, derr := c.dataplane.RunSubscription(c.ctx.Ctx, next.SubscriptionId,
			map[string]string{next.ConfigMetaId: action}, &scope)
		if derr != nil {
			return derr
		}
		taskIds = append(taskIds, taskId)
		return nil
	}

	// 卸载作用于旧配置的目标范围, 安装和推送作用于新配置的
	newType := resolvedNodeType(next.TargetNodeType)
	oldType := resolvedNodeType(current.TargetNodeType)

	if err = dispatch(pluginActionInstall, newType, append(diff.Added, diff.Updated...)); err != nil {
		return nil, err
	}
	if err = dispatch(pluginActionUninstall, oldType, diff.Removed); err != nil {
		return nil, err
	}
	if err = dispatch(pluginActionPushConfig, newType, diff.Unchanged); err != nil {
		return nil, err
	}

	return taskIds, nil
}

// Toggle 启停。只允许从相反的终态切换。
func (c *collectService) Toggle(tenantId, id, action string) error {
	lock, err := c.ctx.Redis.Lock().ObtainCollectConfig(c.ctx.Ctx, id)
	if err != nil {
		return err
	}
	defer lock.Release(c.ctx.Ctx)

	config, err := c.ctx.DB.Collect().Get(tenantId, id)
	if err != nil {
		return err
	}

	switch action {
	case ToggleActionEnable:
		if config.TaskStatus != models.TaskStatusStopped {
			return errs.NewConflict("采集配置 %s 当前状态 %s, 不允许启用", id, config.TaskStatus)
		}
	case ToggleActionDisable:
		if config.TaskStatus != models.TaskStatusStarted {
			return errs.NewConflict("采集配置 %s 当前状态 %s, 不允许停用", id, config.TaskStatus)
		}
	default:
		return errs.NewValidation("未知的启停动作: %s", action)
	}

	version, err := c.ctx.DB.Collect().GetVersion(tenantId, config.DeploymentConfigId)
	if err != nil {
		return err
	}
	if version.SubscriptionId == 0 {
		return errs.NewConsistency("采集配置 %s 未分配订阅, 无法启停", id)
	}

	enabled := action == ToggleActionEnable
	if err = c.dataplane.SwitchSubscription(c.ctx.Ctx, version.SubscriptionId, enabled); err != nil {
		return err
	}

	fields := map[string]interface{}{
		"update_at": time.Now().Unix(),
	}
	if enabled {
		fields["task_status"] = models.TaskStatusStarted
		fields["last_operation"] = models.OperationStart
		fields["operation_result"] = models.OperationResultPreparing
	} else {
		fields["task_status"] = models.TaskStatusStopped
		fields["last_operation"] = models.OperationStop
		fields["operation_result"] = models.OperationResultSuccess
	}
	return c.ctx.DB.Collect().UpdateStatus(tenantId, id, fields)
}

// Delete 删除配置并级联清理全部版本。未停用且已有订阅时拒绝。
func (c *collectService) Delete(tenantId, id string) error {
	lock, err := c.ctx.Redis.Lock().ObtainCollectConfig(c.ctx.Ctx, id)
	if err != nil {
		return err
	}
	defer lock.Release(c.ctx.Ctx)

	config, err := c.ctx.DB.Collect().Get(tenantId, id)
	if err != nil {
		return err
	}

	subscriptionId := int64(0)
	if config.DeploymentConfigId != "" {
		version, verr := c.ctx.DB.Collect().GetVersion(tenantId, config.DeploymentConfigId)
		if verr == nil {
			subscriptionId = version.SubscriptionId
		}
	}
	if config.TaskStatus != models.TaskStatusStopped && subscriptionId != 0 {
		return errs.NewConflict("采集配置 %s 未停用, 不允许删除", id)
	}

	if err = c.ctx.DB.Collect().DeleteVersionsByConfigMeta(tenantId, id); err != nil {
		return err
	}
	return c.ctx.DB.Collect().Delete(tenantId, id)
}

// Clone 复制配置本体, 不复制目标节点和订阅
func (c *collectService) Clone(tenantId, id, updateBy string) (models.CollectConfig, error) {
	config, err := c.ctx.DB.Collect().Get(tenantId, id)
	if err != nil {
		return models.CollectConfig{}, err
	}

	siblings, err := c.ctx.DB.Collect().ListByNamePrefix(tenantId, config.BkBizId, config.Name+"_copy")
	if err != nil {
		return models.CollectConfig{}, err
	}
	existing := make([]string, 0, len(siblings))
	for _, s := range siblings {
		existing = append(existing, s.Name)
	}

	clone := models.CollectConfig{
		TenantId:        tenantId,
		ID:              "cc-" + tools.RandId(),
		BkBizId:         config.BkBizId,
		Name:            cloneConfigName(config.Name, existing),
		CollectType:     config.CollectType,
		PluginId:        config.PluginId,
		Label:           config.Label,
		LastOperation:   models.OperationCreate,
		OperationResult: models.OperationResultSuccess,
		TaskStatus:      models.TaskStatusStopped,
		UpdateBy:        updateBy,
		UpdateAt:        time.Now().Unix(),
	}
	if err = c.ctx.DB.Collect().Create(clone); err != nil {
		return models.CollectConfig{}, err
	}
	return clone, nil
}

// Rollback 回滚到父版本。最近操作必须是复合操作且当前不在下发中。
func (c *collectService) Rollback(tenantId, id, updateBy string) error {
	lock, err := c.ctx.Redis.Lock().ObtainCollectConfig(c.ctx.Ctx, id)
	if err != nil {
		return err
	}
	defer lock.Release(c.ctx.Ctx)

	config, err := c.ctx.DB.Collect().Get(tenantId, id)
	if err != nil {
		return err
	}
	if !config.AllowRollback() {
		return errs.NewConflict("采集配置 %s 最近操作 %s/%s, 不允许回滚", id, config.LastOperation, config.OperationResult)
	}

	current, err := c.ctx.DB.Collect().GetVersion(tenantId, config.DeploymentConfigId)
	if err != nil {
		return err
	}
	if current.ParentId == "" {
		return errs.NewConflict("采集配置 %s 无父版本可回滚", id)
	}
	parent, err := c.ctx.DB.Collect().GetVersion(tenantId, current.ParentId)
	if err != nil {
		return err
	}

	scope := c.buildScope(config.BkBizId, parent.TargetNodeType, parent.TargetNodes)
	taskId, err := c.dataplane.RunSubscription(c.ctx.Ctx, parent.SubscriptionId,
		map[string]string{parent.ConfigMetaId: pluginActionInstall}, &scope)
	if err != nil {
		return err
	}

	parent.TaskIds = append(parent.TaskIds, taskId)
	if err = c.ctx.DB.Collect().UpdateVersion(parent); err != nil {
		return err
	}

	config.DeploymentConfigId = parent.ID
	config.LastOperation = models.OperationRollback
	config.OperationResult = models.OperationResultPreparing
	config.UpdateBy = updateBy
	config.UpdateAt = time.Now().Unix()
	return c.ctx.DB.Collect().Update(config)
}

// Upgrade 升级到插件最新打包版本, 采集周期沿用当前版本
func (c *collectService) Upgrade(tenantId, id string, params models.PluginParams, updateBy string) error {
	lock, err := c.ctx.Redis.Lock().ObtainCollectConfig(c.ctx.Ctx, id)
	if err != nil {
		return err
	}
	defer lock.Release(c.ctx.Ctx)

	config, err := c.ctx.DB.Collect().Get(tenantId, id)
	if err != nil {
		return err
	}
	current, err := c.ctx.DB.Collect().GetVersion(tenantId, config.DeploymentConfigId)
	if err != nil {
		return err
	}
	latest, err := c.ctx.DB.Collect().GetLatestPluginVersion(config.PluginId)
	if err != nil {
		return errs.NewNotFound("插件版本", "plugin_id=%s", config.PluginId)
	}
	if !needUpgrade(config, current, latest) {
		return errs.NewConflict("采集配置 %s 无可用升级", id)
	}

	merged := mergePluginParams(current.Params, c.sealPasswords(params))
	preservePeriod(current.Params, &merged)

	version := models.DeploymentConfigVersion{
		ID:                   "dv-" + tools.RandId(),
		TenantId:             tenantId,
		ConfigMetaId:         config.ID,
		ParentId:             current.ID,
		PluginVersion:        latest.Version,
		ConfigVersion:        latest.ConfigVersion,
		InfoVersion:          latest.InfoVersion,
		TargetNodeType:       current.TargetNodeType,
		TargetNodes:          current.TargetNodes,
		Params:               merged,
		RemoteCollectingHost: current.RemoteCollectingHost,
		SubscriptionId:       current.SubscriptionId,
		CreateAt:             time.Now().Unix(),
	}

	scope := c.buildScope(config.BkBizId, version.TargetNodeType, version.TargetNodes)
	taskId, err := c.dataplane.RunSubscription(c.ctx.Ctx, version.SubscriptionId,
		map[string]string{version.ConfigMetaId: pluginActionInstall}, &scope)
	if err != nil {
		return err
	}
	version.TaskIds = []int64{taskId}

	if err = c.ctx.DB.Collect().CreateVersion(version); err != nil {
		return err
	}

	config.DeploymentConfigId = version.ID
	config.LastOperation = models.OperationUpgrade
	config.OperationResult = models.OperationResultPreparing
	config.UpdateBy = updateBy
	config.UpdateAt = time.Now().Unix()
	return c.ctx.DB.Collect().Update(config)
}

// Rename 只改展示名, 不触发数据面调用
func (c *collectService) Rename(tenantId, id, name string) error {
	if name == "" {
		return errs.NewValidation("采集配置名称不能为空")
	}
	if _, err := c.ctx.DB.Collect().Get(tenantId, id); err != nil {
		return err
	}
	return c.ctx.DB.Collect().UpdateStatus(tenantId, id, map[string]interface{}{
		"name":      name,
		"update_at": time.Now().Unix(),
	})
}

func (c *collectService) RetryInstance(tenantId, id string, instanceId int64) error {
	return c.retry(tenantId, id, []int64{instanceId})
}

// BatchRetry 重试失败和待执行的实例, 全量命中时整体重试
func (c *collectService) BatchRetry(tenantId, id string) error {
	config, err := c.ctx.DB.Collect().Get(tenantId, id)
	if err != nil {
		return err
	}
	version, err := c.ctx.DB.Collect().GetVersion(tenantId, config.DeploymentConfigId)
	if err != nil {
		return err
	}

	statuses, err := c.dataplane.SubscriptionInstanceStatus(c.ctx.Ctx, []int64{version.SubscriptionId}, false)
	if err != nil {
		return err
	}

	retryable := retryableInstances(statuses)
	if len(retryable) == 0 {
		return nil
	}
	if len(retryable) == len(statuses) {
		return c.retry(tenantId, id, nil)
	}
	return c.retry(tenantId, id, retryable)
}

// retryableInstances 失败和待执行的实例都纳入重试范围
func retryableInstances(statuses []nodeman.InstanceStatus) []int64 {
	var out []int64
	for _, st := range statuses {
		if st.Status == models.InstanceStatusFailed || st.Status == models.InstanceStatusPending {
			out = append(out, st.InstanceId)
		}
	}
	return out
}

func (c *collectService) retry(tenantId, id string, instanceIds []int64) error {
	lock, err := c.ctx.Redis.Lock().ObtainCollectConfig(c.ctx.Ctx, id)
	if err != nil {
		return err
	}
	defer lock.Release(c.ctx.Ctx)

	config, err := c.ctx.DB.Collect().Get(tenantId, id)
	if err != nil {
		return err
	}
	version, err := c.ctx.DB.Collect().GetVersion(tenantId, config.DeploymentConfigId)
	if err != nil {
		return err
	}

	taskId, err := c.dataplane.RetrySubscription(c.ctx.Ctx, version.SubscriptionId, instanceIds)
	if err != nil {
		return err
	}

	version.TaskIds = append(version.TaskIds, taskId)
	if err = c.ctx.DB.Collect().UpdateVersion(version); err != nil {
		return err
	}

	return c.ctx.DB.Collect().UpdateStatus(tenantId, id, map[string]interface{}{
		"operation_result": models.OperationResultPreparing,
		"update_at":        time.Now().Unix(),
	})
}

// RevokeInstances 终止在途实例任务, 空列表表示全部终止
func (c *collectService) RevokeInstances(tenantId, id string, instanceIds []int64) error {
	config, err := c.ctx.DB.Collect().Get(tenantId, id)
	if err != nil {
		return err
	}
	version, err := c.ctx.DB.Collect().GetVersion(tenantId, config.DeploymentConfigId)
	if err != nil {
		return err
	}
	return c.dataplane.RevokeSubscription(c.ctx.Ctx, version.SubscriptionId, instanceIds)
}

func (c *collectService) InstanceStatuses(tenantId, id string) ([]types.InstanceStatusView, error) {
	config, err := c.ctx.DB.Collect().Get(tenantId, id)
	if err != nil {
		return nil, err
	}
	version, err := c.ctx.DB.Collect().GetVersion(tenantId, config.DeploymentConfigId)
	if err != nil {
		return nil, err
	}

	statuses, err := c.dataplane.SubscriptionInstanceStatus(c.ctx.Ctx, []int64{version.SubscriptionId}, false)
	if err != nil {
		return nil, err
	}

	views := make([]types.InstanceStatusView, 0, len(statuses))
	for _, st := range statuses {
		views = append(views, types.InstanceStatusView{
			InstanceId: st.InstanceId,
			IP:         st.Host.IP,
			BkCloudId:  st.Host.BkCloudId,
			Status:     st.Status,
		})
	}
	return views, nil
}

// TaskDetail 实例任务分步执行日志透传
func (c *collectService) TaskDetail(tenantId, id string, instanceId, taskId int64) (nodeman.DetailTree, error) {
	config, err := c.ctx.DB.Collect().Get(tenantId, id)
	if err != nil {
		return nodeman.DetailTree{}, err
	}
	version, err := c.ctx.DB.Collect().GetVersion(tenantId, config.DeploymentConfigId)
	if err != nil {
		return nodeman.DetailTree{}, err
	}
	return c.dataplane.TaskResultDetail(c.ctx.Ctx, version.SubscriptionId, instanceId, taskId)
}

// resolveNodes 模板类目标展开为具体拓扑节点后再参与比较和下发
func (c *collectService) resolveNodes(bkBizId int64, nodeType string, nodes []models.TargetNode) ([]models.TargetNode, error) {
	switch nodeType {
	case models.TargetNodeTypeServiceTemplate, models.TargetNodeTypeSetTemplate:
		templateIds := make([]int64, 0, len(nodes))
		for _, n := range nodes {
			if nodeType == models.TargetNodeTypeServiceTemplate {
				templateIds = append(templateIds, n.ServiceTemplateId)
			} else {
				templateIds = append(templateIds, n.SetTemplateId)
			}
		}

		var (
			topoNodes []cmdb.TopoNode
			err       error
		)
		if nodeType == models.TargetNodeTypeServiceTemplate {
			topoNodes, err = c.topo.ExpandServiceTemplates(c.ctx.Ctx, bkBizId, templateIds)
		} else {
			topoNodes, err = c.topo.ExpandSetTemplates(c.ctx.Ctx, bkBizId, templateIds)
		}
		if err != nil {
			return nil, err
		}

		out := make([]models.TargetNode, 0, len(topoNodes))
		for _, tn := range topoNodes {
			out = append(out, models.TargetNode{
				BkObjId:  tn.BkObjId,
				BkInstId: tn.BkInstId,
			})
		}
		return out, nil
	default:
		return nodes, nil
	}
}

// resolvedNodeType 模板目标经解析后是 TOPO 节点, 静态主机目标保持 INSTANCE
func resolvedNodeType(nodeType string) string {
	if nodeType == models.TargetNodeTypeInstance {
		return models.TargetNodeTypeInstance
	}
	return models.TargetNodeTypeTopo
}

func (c *collectService) buildScope(bkBizId int64, nodeType string, nodes []models.TargetNode) nodeman.Scope {
	scopeNodes := make([]map[string]interface{}, 0, len(nodes))
	for _, n := range nodes {
		raw, err := tools.JsonMarshal(n)
		if err != nil {
			continue
		}
		var m map[string]interface{}
		if err = tools.JsonUnmarshal(raw, &m); err != nil {
			continue
		}
		scopeNodes = append(scopeNodes, m)
	}

	return nodeman.Scope{
		BkBizId:    bkBizId,
		ObjectType: "HOST",
		NodeType:   nodeType,
		Nodes:      scopeNodes,
	}
}

func buildSteps(pluginId string, v models.DeploymentConfigVersion) []nodeman.Step {
	return []nodeman.Step{
		{
			Id:   pluginId,
			Type: "PLUGIN",
			Config: map[string]interface{}{
				"plugin_name":    pluginId,
				"plugin_version": v.PluginVersion,
				"config_version": v.ConfigVersion,
			},
			Params: map[string]interface{}{
				"context":   v.Params.Plugin,
				"collector": v.Params.Collector,
			},
		},
	}
}

// needUpgrade 升级可用判定：未停用、有实例、插件最新打包版本严格高于已部署版本
func needUpgrade(config models.CollectConfig, deployed models.DeploymentConfigVersion, latest models.PluginVersionInfo) bool {
	if config.TaskStatus == models.TaskStatusStopped {
		return false
	}
	if config.TotalInstanceCount <= 0 {
		return false
	}
	return latest.ConfigVersion > deployed.ConfigVersion
}

// sealPasswords 键名含 password 的字符串叶子落库前加密, 未配置私钥时原样返回
func (c *collectService) sealPasswords(p models.PluginParams) models.PluginParams {
	if c.cipher == nil {
		return p
	}
	return models.PluginParams{
		Collector: c.sealTree(p.Collector),
		Plugin:    c.sealTree(p.Plugin),
	}
}

func (c *collectService) sealTree(tree map[string]interface{}) map[string]interface{} {
	if tree == nil {
		return nil
	}
	out := make(map[string]interface{}, len(tree))
	for key, value := range tree {
		switch v := value.(type) {
		case string:
			if strings.Contains(strings.ToLower(key), "password") {
				if sealed, err := c.cipher.Encrypt(v); err == nil {
					out[key] = sealed
					continue
				}
			}
			out[key] = v
		case map[string]interface{}:
			out[key] = c.sealTree(v)
		default:
			out[key] = value
		}
	}
	return out
}

// mergePluginParams 逐键合并参数树。来料值为布尔表示密码未变更, 沿用旧值。
func mergePluginParams(stored, incoming models.PluginParams) models.PluginParams {
	return models.PluginParams{
		Collector: mergeParamTree(stored.Collector, incoming.Collector),
		Plugin:    mergeParamTree(stored.Plugin, incoming.Plugin),
	}
}

func mergeParamTree(stored, incoming map[string]interface{}) map[string]interface{} {
	if incoming == nil {
		return stored
	}
	out := make(map[string]interface{}, len(incoming))
	for key, value := range incoming {
		// 布尔或空值表示密码未变更, 沿用旧值
		_, isBool := value.(bool)
		if isBool || value == nil {
			if old, ok := stored[key]; ok {
				out[key] = old
				continue
			}
		}
		if sub, isMap := value.(map[string]interface{}); isMap {
			var oldSub map[string]interface{}
			if stored != nil {
				oldSub, _ = stored[key].(map[string]interface{})
			}
			out[key] = mergeParamTree(oldSub, sub)
			continue
		}
		out[key] = value
	}
	return out
}

// preservePeriod 升级时采集周期沿用当前版本
func preservePeriod(current models.PluginParams, merged *models.PluginParams) {
	if current.Collector == nil {
		return
	}
	period, ok := current.Collector["period"]
	if !ok {
		return
	}
	if merged.Collector == nil {
		merged.Collector = map[string]interface{}{}
	}
	merged.Collector["period"] = period
}

func targetNodeKey(n models.TargetNode) string {
	if n.BkHostId != 0 {
		return fmt.Sprintf("host:%d", n.BkHostId)
	}
	if n.IP != "" {
		return fmt.Sprintf("ip:%s:%d", n.IP, n.BkCloudId)
	}
	if n.ServiceTemplateId != 0 {
		return fmt.Sprintf("svctpl:%d", n.ServiceTemplateId)
	}
	if n.SetTemplateId != 0 {
		return fmt.Sprintf("settpl:%d", n.SetTemplateId)
	}
	return fmt.Sprintf("topo:%s:%d", n.BkObjId, n.BkInstId)
}

// diffTargetNodes 按节点标识划分差异集合。标识相同但字段变化的进 Updated。
func diffTargetNodes(oldNodes, newNodes []models.TargetNode) types.NodeDiff {
	oldByKey := make(map[string]models.TargetNode, len(oldNodes))
	for _, n := range oldNodes {
		oldByKey[targetNodeKey(n)] = n
	}

	var diff types.NodeDiff
	seen := make(map[string]bool, len(newNodes))
	for _, n := range newNodes {
		key := targetNodeKey(n)
		seen[key] = true
		old, ok := oldByKey[key]
		if !ok {
			diff.Added = append(diff.Added, n)
			continue
		}
		if old == n {
			diff.Unchanged = append(diff.Unchanged, n)
		} else {
			diff.Updated = append(diff.Updated, n)
		}
	}
	for _, n := range oldNodes {
		if !seen[targetNodeKey(n)] {
			diff.Removed = append(diff.Removed, n)
		}
	}
	return diff
}

// cloneConfigName 副本名为 <原名>_copy, 冲突时追加数字后缀
func cloneConfigName(orig string, existing []string) string {
	base := orig + "_copy"
	if !containsStr(existing, base) {
		return base
	}
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s%d", base, i)
		if !containsStr(existing, candidate) {
			return candidate
		}
	}
}
