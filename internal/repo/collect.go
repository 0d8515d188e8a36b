package repo

import (
	"monitorHub/internal/errs"
	"monitorHub/internal/models"

	"gorm.io/gorm"
)

type (
	CollectRepo struct {
		entryRepo
	}
	InterCollectRepo interface {
		List(tenantId string, bkBizId int64) ([]models.CollectConfig, error)
		ListByNamePrefix(tenantId string, bkBizId int64, prefix string) ([]models.CollectConfig, error)
		ListByOperationResults(results []string) ([]models.CollectConfig, error)
		Get(tenantId, id string) (models.CollectConfig, error)
		Create(c models.CollectConfig) error
		Update(c models.CollectConfig) error
		UpdateStatus(tenantId, id string, fields map[string]interface{}) error
		Delete(tenantId, id string) error

		GetVersion(tenantId, id string) (models.DeploymentConfigVersion, error)
		ListVersions(tenantId, configMetaId string) ([]models.DeploymentConfigVersion, error)
		CreateVersion(v models.DeploymentConfigVersion) error
		UpdateVersion(v models.DeploymentConfigVersion) error
		DeleteVersionsByConfigMeta(tenantId, configMetaId string) error

		GetLatestPluginVersion(pluginId string) (models.PluginVersionInfo, error)
	}
)

func newCollectInterface(db *gorm.DB, g InterGormDBCli) InterCollectRepo {
	return &CollectRepo{
		entryRepo{
			g:  g,
			db: db,
		},
	}
}

func (c CollectRepo) List(tenantId string, bkBizId int64) ([]models.CollectConfig, error) {
	var data []models.CollectConfig

	db := c.db.Model(&models.CollectConfig{})
	db.Where("tenant_id = ?", tenantId)
	if bkBizId != 0 {
		db.Where("bk_biz_id = ?", bkBizId)
	}
	err := db.Find(&data).Error
	if err != nil {
		return nil, err
	}

	return data, nil
}

// ListByNamePrefix 克隆时查询同名前缀的配置，用于生成不重复的副本名
func (c CollectRepo) ListByNamePrefix(tenantId string, bkBizId int64, prefix string) ([]models.CollectConfig, error) {
	var data []models.CollectConfig

	db := c.db.Model(&models.CollectConfig{})
	db.Where("tenant_id = ? AND bk_biz_id = ? AND name LIKE ?", tenantId, bkBizId, prefix+"%")
	err := db.Find(&data).Error
	if err != nil {
		return nil, err
	}

	return data, nil
}

// ListByOperationResults 巡检扫描未到终态的配置
func (c CollectRepo) ListByOperationResults(results []string) ([]models.CollectConfig, error) {
	var data []models.CollectConfig

	db := c.db.Model(&models.CollectConfig{})
	db.Where("operation_result IN ?", results)
	db.Where("task_status != ?", models.TaskStatusStopped)
	err := db.Find(&data).Error
	if err != nil {
		return nil, err
	}

	return data, nil
}

func (c CollectRepo) Get(tenantId, id string) (models.CollectConfig, error) {
	var data models.CollectConfig

	db := c.db.Model(&models.CollectConfig{})
	db.Where("tenant_id = ? AND id = ?", tenantId, id)
	err := db.First(&data).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return data, errs.NewNotFound("采集配置", "id=%s", id)
		}
		return data, err
	}

	return data, nil
}

func (c CollectRepo) Create(r models.CollectConfig) error {
	return c.g.Create(models.CollectConfig{}, r)
}

func (c CollectRepo) Update(r models.CollectConfig) error {
	u := Updates{
		Table: models.CollectConfig{},
		Where: map[string]interface{}{
			"tenant_id = ?": r.TenantId,
			"id = ?":        r.ID,
		},
		Updates: r,
	}
	return c.g.Updates(u)
}

// UpdateStatus 只刷新状态类字段，巡检结果落库走这里
func (c CollectRepo) UpdateStatus(tenantId, id string, fields map[string]interface{}) error {
	return c.db.Model(&models.CollectConfig{}).
		Where("tenant_id = ? AND id = ?", tenantId, id).
		Updates(fields).Error
}

func (c CollectRepo) Delete(tenantId, id string) error {
	del := Delete{
		Table: models.CollectConfig{},
		Where: map[string]interface{}{
			"tenant_id = ?": tenantId,
			"id = ?":        id,
		},
	}
	return c.g.Delete(del)
}

func (c CollectRepo) GetVersion(tenantId, id string) (models.DeploymentConfigVersion, error) {
	var data models.DeploymentConfigVersion

	db := c.db.Model(&models.DeploymentConfigVersion{})
	db.Where("tenant_id = ? AND id = ?", tenantId, id)
	err := db.First(&data).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return data, errs.NewNotFound("下发配置版本", "id=%s", id)
		}
		return data, err
	}

	return data, nil
}

func (c CollectRepo) ListVersions(tenantId, configMetaId string) ([]models.DeploymentConfigVersion, error) {
	var data []models.DeploymentConfigVersion

	db := c.db.Model(&models.DeploymentConfigVersion{})
	db.Where("tenant_id = ? AND config_meta_id = ?", tenantId, configMetaId)
	db.Order("create_at desc")
	err := db.Find(&data).Error
	if err != nil {
		return nil, err
	}

	return data, nil
}

func (c CollectRepo) CreateVersion(v models.DeploymentConfigVersion) error {
	return c.g.Create(models.DeploymentConfigVersion{}, v)
}

func (c CollectRepo) UpdateVersion(v models.DeploymentConfigVersion) error {
	u := Updates{
		Table: models.DeploymentConfigVersion{},
		Where: map[string]interface{}{
			"tenant_id = ?": v.TenantId,
			"id = ?":        v.ID,
		},
		Updates: v,
	}
	return c.g.Updates(u)
}

// DeleteVersionsByConfigMeta 删除配置时级联清理全部历史版本
func (c CollectRepo) DeleteVersionsByConfigMeta(tenantId, configMetaId string) error {
	del := Delete{
		Table: models.DeploymentConfigVersion{},
		Where: map[string]interface{}{
			"tenant_id = ?":      tenantId,
			"config_meta_id = ?": configMetaId,
		},
	}
	return c.g.Delete(del)
}

// GetLatestPluginVersion 查询插件最新已打包版本，升级可用性判断使用
func (c CollectRepo) GetLatestPluginVersion(pluginId string) (models.PluginVersionInfo, error) {
	var data models.PluginVersionInfo

	db := c.db.Model(&models.PluginVersionInfo{})
	db.Where("plugin_id = ? AND is_packaged = 1", pluginId)
	db.Order("config_version desc, info_version desc")
	err := db.First(&data).Error
	if err != nil {
		return data, err
	}

	return data, nil
}
