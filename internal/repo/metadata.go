package repo

import (
	"monitorHub/internal/errs"
	"monitorHub/internal/models"

	"gorm.io/gorm"
)

type (
	MetadataRepo struct {
		entryRepo
	}

	// InterMetadataRepo 集群校验读取的元数据镜像，全部为只读查询
	InterMetadataRepo interface {
		GetDataSource(bkDataId int64) (models.DataSourceRecord, error)
		ListRefreshableDataSources() ([]models.DataSourceRecord, error)
		GetMQCluster(clusterId int64) (models.MQClusterRecord, error)
		GetMQConfig(clusterId int64, mqType string) (models.MQConfigRecord, error)
		GetSpaceDataSource(bkDataId int64) (models.SpaceDataSourceRecord, error)
		GetSpace(spaceTypeId, spaceId string) (models.SpaceRecord, error)
		ListResultTables(bkDataId int64) ([]models.ResultTableRecord, error)
		ListResultTableFields(tableId string) ([]models.ResultTableFieldRecord, error)
		GetTimeSeriesGroup(bkDataId int64) (models.TimeSeriesGroupRecord, error)
		GetEventGroup(bkDataId int64) (models.EventGroupRecord, error)
		GetCustomReportSubscription(bkBizId, bkDataId int64) (models.CustomReportSubscriptionRecord, error)
		GetAccessVMRecord(resultTableId string) (models.AccessVMRecord, error)
		GetDataLink(name string) (models.DataLinkRecord, error)
		ListDataLinkResources(dataLinkName string) ([]models.DataLinkResourceConfig, error)
		GetESStorage(tableId string) (models.ESStorageRecord, error)
		GetInfluxdbStorage(tableId string) (models.InfluxdbStorageRecord, error)
		GetStorageClusterInfo(clusterId int64) (models.StorageClusterInfo, error)
	}
)

func newMetadataInterface(db *gorm.DB, g InterGormDBCli) InterMetadataRepo {
	return &MetadataRepo{
		entryRepo{
			g:  g,
			db: db,
		},
	}
}

func (m MetadataRepo) GetDataSource(bkDataId int64) (models.DataSourceRecord, error) {
	var data models.DataSourceRecord

	db := m.db.Model(&models.DataSourceRecord{})
	db.Where("bk_data_id = ?", bkDataId)
	err := db.First(&data).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return data, errs.NewNotFound("数据源", "bk_data_id=%d", bkDataId)
		}
		return data, err
	}

	return data, nil
}

// ListRefreshableDataSources 巡检刷新配置中心路由时扫描的数据源集合
func (m MetadataRepo) ListRefreshableDataSources() ([]models.DataSourceRecord, error) {
	var data []models.DataSourceRecord

	db := m.db.Model(&models.DataSourceRecord{})
	db.Where("is_refreshable = 1 AND is_enable = 1")
	err := db.Find(&data).Error
	if err != nil {
		return nil, err
	}

	return data, nil
}

func (m MetadataRepo) GetMQCluster(clusterId int64) (models.MQClusterRecord, error) {
	var data models.MQClusterRecord

	db := m.db.Model(&models.MQClusterRecord{})
	db.Where("cluster_id = ?", clusterId)
	err := db.First(&data).Error
	if err != nil {
		return data, err
	}

	return data, nil
}

func (m MetadataRepo) GetMQConfig(clusterId int64, mqType string) (models.MQConfigRecord, error) {
	var data models.MQConfigRecord

	db := m.db.Model(&models.MQConfigRecord{})
	db.Where("cluster_id = ? AND mq_type = ?", clusterId, mqType)
	err := db.First(&data).Error
	if err != nil {
		return data, err
	}

	return data, nil
}

func (m MetadataRepo) GetSpaceDataSource(bkDataId int64) (models.SpaceDataSourceRecord, error) {
	var data models.SpaceDataSourceRecord

	db := m.db.Model(&models.SpaceDataSourceRecord{})
	db.Where("bk_data_id = ?", bkDataId)
	err := db.First(&data).Error
	if err != nil {
		return data, err
	}

	return data, nil
}

func (m MetadataRepo) GetSpace(spaceTypeId, spaceId string) (models.SpaceRecord, error) {
	var data models.SpaceRecord

	db := m.db.Model(&models.SpaceRecord{})
	db.Where("space_type_id = ? AND space_id = ?", spaceTypeId, spaceId)
	err := db.First(&data).Error
	if err != nil {
		return data, err
	}

	return data, nil
}

func (m MetadataRepo) ListResultTables(bkDataId int64) ([]models.ResultTableRecord, error) {
	var data []models.ResultTableRecord

	db := m.db.Model(&models.ResultTableRecord{})
	db.Where("bk_data_id = ?", bkDataId)
	err := db.Find(&data).Error
	if err != nil {
		return nil, err
	}

	return data, nil
}

func (m MetadataRepo) ListResultTableFields(tableId string) ([]models.ResultTableFieldRecord, error) {
	var data []models.ResultTableFieldRecord

	db := m.db.Model(&models.ResultTableFieldRecord{})
	db.Where("table_id = ?", tableId)
	err := db.Find(&data).Error
	if err != nil {
		return nil, err
	}

	return data, nil
}

func (m MetadataRepo) GetTimeSeriesGroup(bkDataId int64) (models.TimeSeriesGroupRecord, error) {
	var data models.TimeSeriesGroupRecord

	db := m.db.Model(&models.TimeSeriesGroupRecord{})
	db.Where("bk_data_id = ?", bkDataId)
	err := db.First(&data).Error
	if err != nil {
		return data, err
	}

	return data, nil
}

func (m MetadataRepo) GetEventGroup(bkDataId int64) (models.EventGroupRecord, error) {
	var data models.EventGroupRecord

	db := m.db.Model(&models.EventGroupRecord{})
	db.Where("bk_data_id = ?", bkDataId)
	err := db.First(&data).Error
	if err != nil {
		return data, err
	}

	return data, nil
}

func (m MetadataRepo) GetCustomReportSubscription(bkBizId, bkDataId int64) (models.CustomReportSubscriptionRecord, error) {
	var data models.CustomReportSubscriptionRecord

	db := m.db.Model(&models.CustomReportSubscriptionRecord{})
	db.Where("bk_biz_id = ? AND bk_data_id = ?", bkBizId, bkDataId)
	err := db.First(&data).Error
	if err != nil {
		return data, err
	}

	return data, nil
}

func (m MetadataRepo) GetAccessVMRecord(resultTableId string) (models.AccessVMRecord, error) {
	var data models.AccessVMRecord

	db := m.db.Model(&models.AccessVMRecord{})
	db.Where("result_table_id = ?", resultTableId)
	err := db.First(&data).Error
	if err != nil {
		return data, err
	}

	return data, nil
}

func (m MetadataRepo) GetDataLink(name string) (models.DataLinkRecord, error) {
	var data models.DataLinkRecord

	db := m.db.Model(&models.DataLinkRecord{})
	db.Where("data_link_name = ?", name)
	err := db.First(&data).Error
	if err != nil {
		return data, err
	}

	return data, nil
}

func (m MetadataRepo) ListDataLinkResources(dataLinkName string) ([]models.DataLinkResourceConfig, error) {
	var data []models.DataLinkResourceConfig

	db := m.db.Model(&models.DataLinkResourceConfig{})
	db.Where("data_link_name = ?", dataLinkName)
	err := db.Find(&data).Error
	if err != nil {
		return nil, err
	}

	return data, nil
}

func (m MetadataRepo) GetESStorage(tableId string) (models.ESStorageRecord, error) {
	var data models.ESStorageRecord

	db := m.db.Model(&models.ESStorageRecord{})
	db.Where("table_id = ?", tableId)
	err := db.First(&data).Error
	if err != nil {
		return data, err
	}

	return data, nil
}

func (m MetadataRepo) GetInfluxdbStorage(tableId string) (models.InfluxdbStorageRecord, error) {
	var data models.InfluxdbStorageRecord

	db := m.db.Model(&models.InfluxdbStorageRecord{})
	db.Where("table_id = ?", tableId)
	err := db.First(&data).Error
	if err != nil {
		return data, err
	}

	return data, nil
}

func (m MetadataRepo) GetStorageClusterInfo(clusterId int64) (models.StorageClusterInfo, error) {
	var data models.StorageClusterInfo

	db := m.db.Model(&models.StorageClusterInfo{})
	db.Where("cluster_id = ?", clusterId)
	err := db.First(&data).Error
	if err != nil {
		return data, err
	}

	return data, nil
}
