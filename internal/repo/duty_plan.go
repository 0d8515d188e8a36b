package repo

import (
	"monitorHub/internal/models"

	"gorm.io/gorm"
)

type (
	DutyPlanRepo struct {
		entryRepo
	}
	InterDutyPlanRepo interface {
		ListPlans(tenantId, userGroupId string) ([]models.DutyPlan, error)
		ListEffectivePlans(tenantId, userGroupId, ruleId string) ([]models.DutyPlan, error)
		ListPlansInWindow(tenantId, userGroupId, begin, end string) ([]models.DutyPlan, error)
		CreatePlans(plans []models.DutyPlan) error
		UpdatePlan(p models.DutyPlan) error
		TruncatePlan(tenantId, id, finishedTime string) error
		FlagIneffective(tenantId, userGroupId, ruleId string) error
		DeletePlansFrom(tenantId, userGroupId, ruleId, from string) error

		ListSnaps(tenantId, userGroupId string) ([]models.DutyRuleSnap, error)
		GetSnap(tenantId, userGroupId, ruleId string) (models.DutyRuleSnap, error)
		CreateSnap(s models.DutyRuleSnap) error
		UpdateSnap(s models.DutyRuleSnap) error
		DeleteSnap(tenantId, userGroupId, ruleId string) error

		GetSendRecord(userGroupId string, windowKey int64) (models.DutyPlanSendRecord, error)
		SaveSendRecord(r models.DutyPlanSendRecord) error
	}
)

func newDutyPlanInterface(db *gorm.DB, g InterGormDBCli) InterDutyPlanRepo {
	return &DutyPlanRepo{
		entryRepo{
			g:  g,
			db: db,
		},
	}
}

func (d DutyPlanRepo) ListPlans(tenantId, userGroupId string) ([]models.DutyPlan, error) {
	var data []models.DutyPlan

	db := d.db.Model(&models.DutyPlan{})
	db.Where("tenant_id = ? AND user_group_id = ?", tenantId, userGroupId)
	db.Order("duty_rule_id, `order`")
	err := db.Find(&data).Error
	if err != nil {
		return nil, err
	}

	return data, nil
}

func (d DutyPlanRepo) ListEffectivePlans(tenantId, userGroupId, ruleId string) ([]models.DutyPlan, error) {
	var data []models.DutyPlan

	db := d.db.Model(&models.DutyPlan{})
	db.Where("tenant_id = ? AND user_group_id = ? AND is_effective = 1", tenantId, userGroupId)
	if ruleId != "" {
		db.Where("duty_rule_id = ?", ruleId)
	}
	db.Order("`order`")
	err := db.Find(&data).Error
	if err != nil {
		return nil, err
	}

	return data, nil
}

// ListPlansInWindow 查询与 [begin, end) 有交集的有效计划，通知扫描使用
func (d DutyPlanRepo) ListPlansInWindow(tenantId, userGroupId, begin, end string) ([]models.DutyPlan, error) {
	var data []models.DutyPlan

	db := d.db.Model(&models.DutyPlan{})
	db.Where("tenant_id = ? AND user_group_id = ? AND is_effective = 1", tenantId, userGroupId)
	db.Where("start_time < ? AND finished_time >= ?", end, begin)
	db.Order("start_time")
	err := db.Find(&data).Error
	if err != nil {
		return nil, err
	}

	return data, nil
}

func (d DutyPlanRepo) CreatePlans(plans []models.DutyPlan) error {
	if len(plans) == 0 {
		return nil
	}
	return d.db.Model(&models.DutyPlan{}).Create(&plans).Error
}

func (d DutyPlanRepo) UpdatePlan(p models.DutyPlan) error {
	u := Updates{
		Table: models.DutyPlan{},
		Where: map[string]interface{}{
			"tenant_id = ?": p.TenantId,
			"id = ?":        p.ID,
		},
		Updates: p,
	}
	return d.g.Updates(u)
}

// TruncatePlan 把计划的结束时间提前到 finishedTime
func (d DutyPlanRepo) TruncatePlan(tenantId, id, finishedTime string) error {
	u := Update{
		Table: models.DutyPlan{},
		Where: map[string]interface{}{
			"tenant_id = ?": tenantId,
			"id = ?":        id,
		},
		Update: []string{"finished_time", finishedTime},
	}
	return d.g.Update(u)
}

// FlagIneffective 规则停用后保留计划但置为失效，供审计回溯
func (d DutyPlanRepo) FlagIneffective(tenantId, userGroupId, ruleId string) error {
	return d.db.Model(&models.DutyPlan{}).
		Where("tenant_id = ? AND user_group_id = ? AND duty_rule_id = ?", tenantId, userGroupId, ruleId).
		Update("is_effective", 0).Error
}

// DeletePlansFrom 删除 from 时刻之后才开始的计划，重排前清场
func (d DutyPlanRepo) DeletePlansFrom(tenantId, userGroupId, ruleId, from string) error {
	return d.db.
		Where("tenant_id = ? AND user_group_id = ? AND duty_rule_id = ? AND start_time >= ?",
			tenantId, userGroupId, ruleId, from).
		Delete(&models.DutyPlan{}).Error
}

func (d DutyPlanRepo) ListSnaps(tenantId, userGroupId string) ([]models.DutyRuleSnap, error) {
	var data []models.DutyRuleSnap

	db := d.db.Model(&models.DutyRuleSnap{})
	db.Where("tenant_id = ? AND user_group_id = ?", tenantId, userGroupId)
	err := db.Find(&data).Error
	if err != nil {
		return nil, err
	}

	return data, nil
}

func (d DutyPlanRepo) GetSnap(tenantId, userGroupId, ruleId string) (models.DutyRuleSnap, error) {
	var data models.DutyRuleSnap

	db := d.db.Model(&models.DutyRuleSnap{})
	db.Where("tenant_id = ? AND user_group_id = ? AND duty_rule_id = ?", tenantId, userGroupId, ruleId)
	err := db.First(&data).Error
	if err != nil {
		return data, err
	}

	return data, nil
}

func (d DutyPlanRepo) CreateSnap(s models.DutyRuleSnap) error {
	return d.g.Create(models.DutyRuleSnap{}, s)
}

func (d DutyPlanRepo) UpdateSnap(s models.DutyRuleSnap) error {
	u := Updates{
		Table: models.DutyRuleSnap{},
		Where: map[string]interface{}{
			"tenant_id = ?": s.TenantId,
			"id = ?":        s.ID,
		},
		Updates: s,
	}
	return d.g.Updates(u)
}

func (d DutyPlanRepo) DeleteSnap(tenantId, userGroupId, ruleId string) error {
	del := Delete{
		Table: models.DutyRuleSnap{},
		Where: map[string]interface{}{
			"tenant_id = ?":     tenantId,
			"user_group_id = ?": userGroupId,
			"duty_rule_id = ?":  ruleId,
		},
	}
	return d.g.Delete(del)
}

func (d DutyPlanRepo) GetSendRecord(userGroupId string, windowKey int64) (models.DutyPlanSendRecord, error) {
	var data models.DutyPlanSendRecord

	db := d.db.Model(&models.DutyPlanSendRecord{})
	db.Where("user_group_id = ? AND window_key = ?", userGroupId, windowKey)
	err := db.First(&data).Error
	if err != nil {
		return data, err
	}

	return data, nil
}

func (d DutyPlanRepo) SaveSendRecord(r models.DutyPlanSendRecord) error {
	var count int64
	d.db.Model(&models.DutyPlanSendRecord{}).
		Where("user_group_id = ? AND window_key = ?", r.UserGroupId, r.WindowKey).
		Count(&count)
	if count > 0 {
		return d.db.Model(&models.DutyPlanSendRecord{}).
			Where("user_group_id = ? AND window_key = ?", r.UserGroupId, r.WindowKey).
			Update("last_send_time", r.LastSendTime).Error
	}
	return d.g.Create(models.DutyPlanSendRecord{}, r)
}
