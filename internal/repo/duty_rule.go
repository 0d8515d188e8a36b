package repo

import (
	"monitorHub/internal/errs"
	"monitorHub/internal/models"

	"gorm.io/gorm"
)

type (
	DutyRuleRepo struct {
		entryRepo
	}
	InterDutyRuleRepo interface {
		List(tenantId string, bkBizId int64) ([]models.DutyRule, error)
		GetByIds(tenantId string, ids []string) ([]models.DutyRule, error)
		Get(tenantId, id string) (models.DutyRule, error)
		Create(r models.DutyRule) error
		Update(r models.DutyRule) error
		Delete(tenantId, id string) error
	}
)

func newDutyRuleInterface(db *gorm.DB, g InterGormDBCli) InterDutyRuleRepo {
	return &DutyRuleRepo{
		entryRepo{
			g:  g,
			db: db,
		},
	}
}

func (d DutyRuleRepo) List(tenantId string, bkBizId int64) ([]models.DutyRule, error) {
	var data []models.DutyRule

	db := d.db.Model(&models.DutyRule{})
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

func (d DutyRuleRepo) GetByIds(tenantId string, ids []string) ([]models.DutyRule, error) {
	var data []models.DutyRule

	if len(ids) == 0 {
		return data, nil
	}

	db := d.db.Model(&models.DutyRule{})
	db.Where("tenant_id = ? AND id IN ?", tenantId, ids)
	err := db.Find(&data).Error
	if err != nil {
		return nil, err
	}

	return data, nil
}

func (d DutyRuleRepo) Get(tenantId, id string) (models.DutyRule, error) {
	var data models.DutyRule

	db := d.db.Model(&models.DutyRule{})
	db.Where("tenant_id = ? AND id = ?", tenantId, id)
	err := db.First(&data).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return data, errs.NewNotFound("轮值规则", "id=%s", id)
		}
		return data, err
	}

	return data, nil
}

func (d DutyRuleRepo) Create(r models.DutyRule) error {
	return d.g.Create(models.DutyRule{}, r)
}

func (d DutyRuleRepo) Update(r models.DutyRule) error {
	u := Updates{
		Table: models.DutyRule{},
		Where: map[string]interface{}{
			"tenant_id = ?": r.TenantId,
			"id = ?":        r.ID,
		},
		Updates: r,
	}
	return d.g.Updates(u)
}

func (d DutyRuleRepo) Delete(tenantId, id string) error {
	del := Delete{
		Table: models.DutyRule{},
		Where: map[string]interface{}{
			"tenant_id = ?": tenantId,
			"id = ?":        id,
		},
	}
	return d.g.Delete(del)
}
