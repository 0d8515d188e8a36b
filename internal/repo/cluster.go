package repo

import (
	"monitorHub/internal/errs"
	"monitorHub/internal/models"

	"gorm.io/gorm"
)

type (
	ClusterRepo struct {
		entryRepo
	}
	InterClusterRepo interface {
		List(tenantId string, bkBizId int64) ([]models.ClusterRecord, error)
		Get(tenantId, clusterId string) (models.ClusterRecord, error)
		GetByClusterId(clusterId string) (models.ClusterRecord, error)
		Update(c models.ClusterRecord) error

		ListFederationByHost(hostClusterId string) ([]models.FederationRelation, error)
		GetFederationBySub(subClusterId string) (models.FederationRelation, error)

		GetCurrentStorageRecord(tableId string) (models.StorageClusterRecord, error)
		ListStorageRecords(tableId string) ([]models.StorageClusterRecord, error)

		ListResourceMirrors(clusterId, kind string) ([]models.K8sResourceMirror, error)
		CountMonitorMirrors(clusterId, monitorKind string) (int64, error)
	}
)

func newClusterInterface(db *gorm.DB, g InterGormDBCli) InterClusterRepo {
	return &ClusterRepo{
		entryRepo{
			g:  g,
			db: db,
		},
	}
}

func (c ClusterRepo) List(tenantId string, bkBizId int64) ([]models.ClusterRecord, error) {
	var data []models.ClusterRecord

	db := c.db.Model(&models.ClusterRecord{})
	if tenantId != "" {
		db.Where("bk_tenant_id = ?", tenantId)
	}
	if bkBizId != 0 {
		db.Where("bk_biz_id = ?", bkBizId)
	}
	err := db.Find(&data).Error
	if err != nil {
		return nil, err
	}

	return data, nil
}

func (c ClusterRepo) Get(tenantId, clusterId string) (models.ClusterRecord, error) {
	var data models.ClusterRecord

	db := c.db.Model(&models.ClusterRecord{})
	db.Where("bk_tenant_id = ? AND cluster_id = ?", tenantId, clusterId)
	err := db.First(&data).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return data, errs.NewNotFound("BCS集群", "cluster_id=%s", clusterId)
		}
		return data, err
	}

	return data, nil
}

func (c ClusterRepo) GetByClusterId(clusterId string) (models.ClusterRecord, error) {
	var data models.ClusterRecord

	db := c.db.Model(&models.ClusterRecord{})
	db.Where("cluster_id = ?", clusterId)
	err := db.First(&data).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return data, errs.NewNotFound("BCS集群", "cluster_id=%s", clusterId)
		}
		return data, err
	}

	return data, nil
}

func (c ClusterRepo) Update(r models.ClusterRecord) error {
	u := Updates{
		Table: models.ClusterRecord{},
		Where: map[string]interface{}{
			"cluster_id = ?": r.ClusterID,
		},
		Updates: r,
	}
	return c.g.Updates(u)
}

// ListFederationByHost 查询代理集群下的联邦子集群关系，软删除记录不返回
func (c ClusterRepo) ListFederationByHost(hostClusterId string) ([]models.FederationRelation, error) {
	var data []models.FederationRelation

	db := c.db.Model(&models.FederationRelation{})
	db.Where("host_cluster_id = ? AND is_deleted = 0", hostClusterId)
	err := db.Find(&data).Error
	if err != nil {
		return nil, err
	}

	return data, nil
}

func (c ClusterRepo) GetFederationBySub(subClusterId string) (models.FederationRelation, error) {
	var data models.FederationRelation

	db := c.db.Model(&models.FederationRelation{})
	db.Where("sub_cluster_id = ? AND is_deleted = 0", subClusterId)
	err := db.First(&data).Error
	if err != nil {
		return data, err
	}

	return data, nil
}

// GetCurrentStorageRecord 查询结果表当前生效的存储集群记录
func (c ClusterRepo) GetCurrentStorageRecord(tableId string) (models.StorageClusterRecord, error) {
	var data models.StorageClusterRecord

	db := c.db.Model(&models.StorageClusterRecord{})
	db.Where("table_id = ? AND is_current = 1", tableId)
	err := db.First(&data).Error
	if err != nil {
		return data, err
	}

	return data, nil
}

// ListResourceMirrors 本地资源镜像行，按枚举插入顺序返回
func (c ClusterRepo) ListResourceMirrors(clusterId, kind string) ([]models.K8sResourceMirror, error) {
	var data []models.K8sResourceMirror

	db := c.db.Model(&models.K8sResourceMirror{})
	db.Where("cluster_id = ? AND kind = ?", clusterId, kind)
	err := db.Find(&data).Error
	if err != nil {
		return nil, err
	}

	return data, nil
}

// CountMonitorMirrors ServiceMonitor/PodMonitor 镜像行计数
func (c ClusterRepo) CountMonitorMirrors(clusterId, monitorKind string) (int64, error) {
	var count int64
	err := c.db.Model(&models.K8sResourceMirror{}).
		Where("cluster_id = ? AND monitor_kind = ?", clusterId, monitorKind).
		Count(&count).Error
	return count, err
}

func (c ClusterRepo) ListStorageRecords(tableId string) ([]models.StorageClusterRecord, error) {
	var data []models.StorageClusterRecord

	db := c.db.Model(&models.StorageClusterRecord{})
	db.Where("table_id = ?", tableId)
	db.Order("enable_time desc")
	err := db.Find(&data).Error
	if err != nil {
		return nil, err
	}

	return data, nil
}
