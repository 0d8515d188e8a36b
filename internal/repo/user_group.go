package repo

import (
	"fmt"

	"monitorHub/internal/errs"
	"monitorHub/internal/models"

	"gorm.io/gorm"
)

type (
	UserGroupRepo struct {
		entryRepo
	}
	InterUserGroupRepo interface {
		List(tenantId string, bkBizId int64) ([]models.UserGroup, error)
		Get(tenantId, id string) (models.UserGroup, error)
		ListByDutyRule(tenantId, ruleId string) ([]models.UserGroup, error)
		Create(g models.UserGroup) error
		Update(g models.UserGroup) error
		Delete(tenantId, id string) error
	}
)

func newUserGroupInterface(db *gorm.DB, g InterGormDBCli) InterUserGroupRepo {
	return &UserGroupRepo{
		entryRepo{
			g:  g,
			db: db,
		},
	}
}

func (u UserGroupRepo) List(tenantId string, bkBizId int64) ([]models.UserGroup, error) {
	var data []models.UserGroup

	db := u.db.Model(&models.UserGroup{})
	if tenantId != "" {
		db.Where("tenant_id = ?", tenantId)
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

func (u UserGroupRepo) Get(tenantId, id string) (models.UserGroup, error) {
	var data models.UserGroup

	db := u.db.Model(&models.UserGroup{})
	db.Where("tenant_id = ? AND id = ?", tenantId, id)
	err := db.First(&data).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return data, errs.NewNotFound("用户组", "id=%s", id)
		}
		return data, err
	}

	return data, nil
}

// ListByDutyRule 查询绑定了某条轮值规则的用户组，duty_rules 为 JSON 数组列
func (u UserGroupRepo) ListByDutyRule(tenantId, ruleId string) ([]models.UserGroup, error) {
	var data []models.UserGroup

	db := u.db.Model(&models.UserGroup{})
	db.Where("tenant_id = ? AND need_duty = 1", tenantId)
	db.Where("duty_rules LIKE ?", fmt.Sprintf("%%\"%s\"%%", ruleId))
	err := db.Find(&data).Error
	if err != nil {
		return nil, err
	}

	return data, nil
}

func (u UserGroupRepo) Create(g models.UserGroup) error {
	return u.g.Create(models.UserGroup{}, g)
}

func (u UserGroupRepo) Update(g models.UserGroup) error {
	up := Updates{
		Table: models.UserGroup{},
		Where: map[string]interface{}{
			"tenant_id = ?": g.TenantId,
			"id = ?":        g.ID,
		},
		Updates: g,
	}
	return u.g.Updates(up)
}

func (u UserGroupRepo) Delete(tenantId, id string) error {
	del := Delete{
		Table: models.UserGroup{},
		Where: map[string]interface{}{
			"tenant_id = ?": tenantId,
			"id = ?":        id,
		},
	}
	return u.g.Delete(del)
}
