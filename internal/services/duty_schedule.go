package services

import (
	"time"

	"monitorHub/internal/ctx"
	"monitorHub/internal/errs"
	"monitorHub/internal/global"
	"monitorHub/internal/models"
	"monitorHub/pkg/duty"
	"monitorHub/pkg/tools"

	"github.com/zeromicro/go-zero/core/logc"
)

// 快照向前滚动的预生成提前量
const snapLookAheadDays = 7

type (
	dutyScheduleService struct {
		ctx *ctx.Context
	}

	// InterDutyScheduleService 排班服务。规则保存、预览、用户组快照对账和通知扫描。
	InterDutyScheduleService interface {
		SaveRule(rule models.DutyRule) (models.DutyRule, error)
		Preview(tenantId, ruleId, beginTime string, days int) ([]models.DutyPlan, error)
		ManageGroupSnap(group models.UserGroup, now time.Time) error
		ScanNotices(tenantId string, now time.Time) error
	}
)

func newInterDutyScheduleService(ctx *ctx.Context) InterDutyScheduleService {
	return &dutyScheduleService{
		ctx: ctx,
	}
}

// SaveRule 校验后落库，哈希随语义字段刷新
func (d *dutyScheduleService) SaveRule(rule models.DutyRule) (models.DutyRule, error) {
	loc, err := d.groupLocation(models.UserGroup{})
	if err != nil {
		return rule, err
	}
	if err = duty.ValidateRule(rule, loc); err != nil {
		return rule, err
	}

	rule.Hash = rule.ContentHash()
	rule.UpdateAt = time.Now().Unix()

	if rule.ID == "" {
		rule.ID = "dr-" + tools.RandId()
		if err = d.ctx.DB.DutyRule().Create(rule); err != nil {
			return rule, err
		}
		return rule, nil
	}

	if _, err = d.ctx.DB.DutyRule().Get(rule.TenantId, rule.ID); err != nil {
		return rule, err
	}
	if err = d.ctx.DB.DutyRule().Update(rule); err != nil {
		return rule, err
	}
	return rule, nil
}

// Preview 纯计算预览，不落库
func (d *dutyScheduleService) Preview(tenantId, ruleId, beginTime string, days int) ([]models.DutyPlan, error) {
	rule, err := d.ctx.DB.DutyRule().Get(tenantId, ruleId)
	if err != nil {
		return nil, err
	}
	if days <= 0 {
		days = global.Config.Duty.PlanDays
	}

	loc, err := d.groupLocation(models.UserGroup{})
	if err != nil {
		return nil, err
	}
	return duty.NewManager(rule, loc).Preview(beginTime, days)
}

// ManageGroupSnap 对账用户组绑定的全部规则。同组写入由 duty_group 锁串行化。
func (d *dutyScheduleService) ManageGroupSnap(group models.UserGroup, now time.Time) error {
	lock, err := d.ctx.Redis.Lock().ObtainDutyGroup(d.ctx.Ctx, group.ID)
	if err != nil {
		return err
	}
	defer lock.Release(d.ctx.Ctx)

	return d.manageGroupSnap(group, now)
}

func (d *dutyScheduleService) manageGroupSnap(group models.UserGroup, now time.Time) error {
	if !group.NeedDuty {
		return nil
	}

	rules, err := d.ctx.DB.DutyRule().GetByIds(group.TenantId, group.DutyRules)
	if err != nil {
		return err
	}
	ruleById := make(map[string]models.DutyRule, len(rules))
	for _, r := range rules {
		ruleById[r.ID] = r
	}

	loc, err := d.groupLocation(group)
	if err != nil {
		return err
	}

	for _, ruleId := range group.DutyRules {
		rule, ok := ruleById[ruleId]
		if !ok || !rule.Enabled {
			// 规则被删除或停用：快照移除，历史计划保留但置为失效
			if derr := d.disableRuleForGroup(group, ruleId); derr != nil {
				return derr
			}
			continue
		}

		if rerr := d.reconcileRule(group, rule, now, loc); rerr != nil {
			return rerr
		}
	}

	return nil
}

func (d *dutyScheduleService) disableRuleForGroup(group models.UserGroup, ruleId string) error {
	if _, err := d.ctx.DB.DutyPlan().GetSnap(group.TenantId, group.ID, ruleId); err == nil {
		if derr := d.ctx.DB.DutyPlan().DeleteSnap(group.TenantId, group.ID, ruleId); derr != nil {
			return derr
		}
	}
	return d.ctx.DB.DutyPlan().FlagIneffective(group.TenantId, group.ID, ruleId)
}

func (d *dutyScheduleService) reconcileRule(group models.UserGroup, rule models.DutyRule, now time.Time, loc *time.Location) error {
	snap, err := d.ctx.DB.DutyPlan().GetSnap(group.TenantId, group.ID, rule.ID)
	if err != nil {
		// 首次绑定：从生效时间展开
		return d.expandAndSnap(group, rule, rule.EffectiveTime, now, loc, models.DutyRuleSnap{})
	}

	if snap.RuleSnap.ContentHash() == rule.ContentHash() {
		return d.rollForward(group, rule, snap, now, loc)
	}

	// 规则语义变化：在途班次不回写，截断点之后重排
	cutoff := now
	if eff, perr := tools.ParseTime(rule.EffectiveTime, loc); perr == nil {
		cutoff = tools.MaxTime(now, eff)
	}
	cutoffStr := tools.FormatTime(cutoff)

	plans, err := d.ctx.DB.DutyPlan().ListEffectivePlans(group.TenantId, group.ID, rule.ID)
	if err != nil {
		return err
	}
	for _, p := range plans {
		if p.StartTime >= cutoffStr {
			p.IsEffective = 0
			if uerr := d.ctx.DB.DutyPlan().UpdatePlan(p); uerr != nil {
				return uerr
			}
			continue
		}
		if p.FinishedTime > cutoffStr {
			if terr := d.ctx.DB.DutyPlan().TruncatePlan(group.TenantId, p.ID, cutoffStr); terr != nil {
				return terr
			}
		}
	}

	return d.expandAndSnap(group, rule, cutoffStr, now, loc, snap)
}

// rollForward 规则未变时按需向前滚动排班水平线
func (d *dutyScheduleService) rollForward(group models.UserGroup, rule models.DutyRule, snap models.DutyRuleSnap, now time.Time, loc *time.Location) error {
	if snap.NextPlanTime == "" {
		return nil
	}
	nextPlan, err := tools.ParseTime(snap.NextPlanTime, loc)
	if err != nil {
		return err
	}
	if now.AddDate(0, 0, snapLookAheadDays).Before(nextPlan) {
		return nil
	}
	if rule.EndTime != "" && snap.NextPlanTime >= rule.EndTime {
		return nil
	}

	return d.expandAndSnap(group, rule, snap.NextPlanTime, now, loc, snap)
}

// expandAndSnap 从 from 展开标准水平线并刷新快照
func (d *dutyScheduleService) expandAndSnap(group models.UserGroup, rule models.DutyRule, from string, now time.Time, loc *time.Location, old models.DutyRuleSnap) error {
	days := global.Config.Duty.PlanDays
	if days <= 0 {
		days = 30
	}

	plans, err := duty.NewManager(rule, loc).Preview(from, days)
	if err != nil {
		return err
	}

	for i := range plans {
		plans[i].ID = "dp-" + tools.RandId()
		plans[i].UserGroupId = group.ID
	}
	if err = d.ctx.DB.DutyPlan().CreatePlans(plans); err != nil {
		return err
	}

	fromTime, err := tools.ParseTime(from, loc)
	if err != nil {
		return err
	}
	nextPlanTime := tools.FormatTime(fromTime.AddDate(0, 0, days))
	nextUserIndex := old.NextUserIndex
	if len(plans) > 0 {
		nextUserIndex = plans[len(plans)-1].UserIndex + 1
	}

	snap := models.DutyRuleSnap{
		ID:                 old.ID,
		TenantId:           group.TenantId,
		UserGroupId:        group.ID,
		DutyRuleId:         rule.ID,
		Enabled:            rule.Enabled,
		NextPlanTime:       nextPlanTime,
		NextUserIndex:      nextUserIndex,
		FirstEffectiveTime: old.FirstEffectiveTime,
		EndTime:            rule.EndTime,
		RuleSnap:           rule,
	}
	if snap.FirstEffectiveTime == "" {
		snap.FirstEffectiveTime = rule.EffectiveTime
	}

	if old.ID == "" {
		snap.ID = "ds-" + tools.RandId()
		return d.ctx.DB.DutyPlan().CreateSnap(snap)
	}
	return d.ctx.DB.DutyPlan().UpdateSnap(snap)
}

// ScanNotices 扫描所有需要值班的用户组，发送整表通知和个人提醒。
// 两类通知都按幂等键去重，扫描周期重入无副作用。
func (d *dutyScheduleService) ScanNotices(tenantId string, now time.Time) error {
	groups, err := d.ctx.DB.UserGroup().List(tenantId, 0)
	if err != nil {
		return err
	}

	for _, group := range groups {
		if !group.NeedDuty {
			continue
		}
		if err := d.sendPlanNotice(group, now); err != nil {
			logc.Errorf(d.ctx.Ctx, "用户组 %s 值班表通知失败: %s", group.ID, err.Error())
		}
		if err := d.sendPersonalNotices(group, now); err != nil {
			logc.Errorf(d.ctx.Ctx, "用户组 %s 个人值班提醒失败: %s", group.ID, err.Error())
		}
	}

	return nil
}

// sendPlanNotice 整表通知，每个发送周期至多一次
func (d *dutyScheduleService) sendPlanNotice(group models.UserGroup, now time.Time) error {
	cfg := group.DutyNotice.PlanNotice
	if cfg == nil || !cfg.Enabled {
		return nil
	}

	loc, err := d.groupLocation(group)
	if err != nil {
		return err
	}

	if !planNoticeDue(cfg, now.In(loc)) {
		return nil
	}

	cadence := int64(7 * 24 * 3600)
	if cfg.Type == "monthly" {
		cadence = int64(30 * 24 * 3600)
	}
	windowKey := now.Unix() / cadence

	if _, gerr := d.ctx.DB.DutyPlan().GetSendRecord(group.ID, windowKey); gerr == nil {
		return nil
	}

	lookAheadDays := cfg.Days
	if lookAheadDays <= 0 {
		lookAheadDays = 7
	}
	begin := tools.FormatTime(now)
	end := tools.FormatTime(now.In(loc).AddDate(0, 0, lookAheadDays))

	plans, err := d.ctx.DB.DutyPlan().ListPlansInWindow(group.TenantId, group.ID, begin, end)
	if err != nil {
		return err
	}
	if len(plans) == 0 {
		return nil
	}

	logc.Infof(d.ctx.Ctx, "用户组 %s 发送值班表通知, 覆盖 %d 个计划", group.Name, len(plans))

	return d.ctx.DB.DutyPlan().SaveSendRecord(models.DutyPlanSendRecord{
		UserGroupId:  group.ID,
		WindowKey:    windowKey,
		LastSendTime: now.Unix(),
	})
}

// sendPersonalNotices 个人提醒，按 (计划, 人员) 一次性发送
func (d *dutyScheduleService) sendPersonalNotices(group models.UserGroup, now time.Time) error {
	cfg := group.DutyNotice.PersonalNotice
	if cfg == nil || !cfg.Enabled {
		return nil
	}

	hoursAhead := cfg.HoursAgo
	if hoursAhead <= 0 {
		hoursAhead = 2
	}

	begin := tools.FormatTime(now)
	end := tools.FormatTime(now.Add(time.Duration(hoursAhead) * time.Hour))

	plans, err := d.ctx.DB.DutyPlan().ListPlansInWindow(group.TenantId, group.ID, begin, end)
	if err != nil {
		return err
	}

	for _, p := range plans {
		if p.LastSendTime != 0 {
			continue
		}
		if len(cfg.DutyRules) > 0 && !containsStr(cfg.DutyRules, p.DutyRuleId) {
			continue
		}
		if p.StartTime > end {
			continue
		}

		logc.Infof(d.ctx.Ctx, "用户组 %s 计划 %s 发送个人值班提醒", group.Name, p.ID)

		p.LastSendTime = now.Unix()
		if uerr := d.ctx.DB.DutyPlan().UpdatePlan(p); uerr != nil {
			return uerr
		}
	}

	return nil
}

// planNoticeDue 到达配置的发送日且越过配置时刻才算到期。
// 周配置 1-7 对应周一到周日, 月配置对应几号, 未配置的维度不限制。
func planNoticeDue(cfg *models.PlanNoticeConfig, localNow time.Time) bool {
	if cfg.Date > 0 {
		day := localNow.Day()
		if cfg.Type != "monthly" {
			day = int(localNow.Weekday())
			if day == 0 {
				day = 7
			}
		}
		if day != cfg.Date {
			return false
		}
	}
	if cfg.Time != "" && localNow.Format("15:04") < cfg.Time {
		return false
	}
	return true
}

func (d *dutyScheduleService) groupLocation(group models.UserGroup) (*time.Location, error) {
	zone := group.TimeZone
	if zone == "" {
		zone = global.Config.Duty.DefaultZone
	}
	if zone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, errs.NewValidation("非法的时区: %s", zone)
	}
	return loc, nil
}

func containsStr(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
