package services

import (
	"context"
	"testing"
	"time"

	"monitorHub/internal/ctx"
	"monitorHub/internal/global"
	"monitorHub/internal/models"
)

func newDutyFixture(t *testing.T, planDays int) (*dutyScheduleService, *fakeEntryRepo) {
	t.Helper()
	global.Config.Duty.PlanDays = planDays
	global.Config.Duty.DefaultZone = "Asia/Shanghai"

	db := newFakeEntryRepo()
	svc := &dutyScheduleService{
		ctx: ctx.NewContext(context.Background(), db, nil),
	}
	return svc, db
}

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	loc, _ := time.LoadLocation("Asia/Shanghai")
	parsed, err := time.ParseInLocation("2006-01-02 15:04:05", s, loc)
	if err != nil {
		t.Fatalf("解析时间失败: %s", err)
	}
	return parsed
}

func allDayRegularRule(effectiveTime string) models.DutyRule {
	return models.DutyRule{
		TenantId:      "default",
		ID:            "dr-1",
		Name:          "值班-全天单人",
		Category:      models.DutyCategoryRegular,
		Enabled:       true,
		EffectiveTime: effectiveTime,
		DutyArranges: []models.DutyArrange{
			{
				DutyTime: []models.DutyTime{
					{WorkType: models.WorkTypeDaily, WorkTime: []string{"00:00--23:59"}},
				},
				DutyUsers: [][]models.DutyUser{
					{{ID: "admin", Type: "user"}},
				},
			},
		},
	}
}

func countEffective(plans []models.DutyPlan) int {
	n := 0
	for _, p := range plans {
		if p.IsEffective == 1 {
			n++
		}
	}
	return n
}

// 规则在途编辑：生效时间后移后，截断点之前的班次保留，之后重排
func TestManageGroupSnapRuleEditMidFlight(t *testing.T) {
	svc, db := newDutyFixture(t, 15)

	now := mustTime(t, "2023-10-01 00:00:00")
	rule := allDayRegularRule("2023-10-02 00:00:00")
	db.dutyRule.rules[rule.ID] = rule

	group := models.UserGroup{
		TenantId:  "default",
		ID:        "ug-1",
		Name:      "运维组",
		NeedDuty:  true,
		DutyRules: []string{rule.ID},
		TimeZone:  "Asia/Shanghai",
	}

	if err := svc.manageGroupSnap(group, now); err != nil {
		t.Fatalf("首次对账失败: %s", err)
	}
	if got := countEffective(db.dutyPlan.plans); got != 15 {
		t.Fatalf("首次展开应产生 15 个计划, 实际 %d", got)
	}

	// 生效时间后移两天, 语义哈希变化
	edited := allDayRegularRule("2023-10-04 00:00:00")
	db.dutyRule.rules[edited.ID] = edited

	if err := svc.manageGroupSnap(group, now); err != nil {
		t.Fatalf("编辑后对账失败: %s", err)
	}

	cutoff := "2023-10-04 00:00:00"
	effective := 0
	kept := 0
	newFromCutoff := false
	for _, p := range db.dutyPlan.plans {
		if p.IsEffective != 1 {
			continue
		}
		effective++
		if p.StartTime < cutoff {
			kept++
			if p.FinishedTime > cutoff {
				t.Errorf("保留班次 %s 不应跨过截断点: finished=%s", p.ID, p.FinishedTime)
			}
		}
		if p.StartTime == cutoff {
			newFromCutoff = true
		}
	}

	if kept != 2 {
		t.Errorf("截断点之前应保留 2 个班次, 实际 %d", kept)
	}
	if !newFromCutoff {
		t.Error("应存在从截断点整点开始的新班次")
	}
	if effective != 17 {
		t.Errorf("生效班次总数应为 17, 实际 %d", effective)
	}
}

// 规则停用：快照删除, 历史班次整体置为失效
func TestManageGroupSnapDisabledRule(t *testing.T) {
	svc, db := newDutyFixture(t, 15)

	now := mustTime(t, "2023-10-01 00:00:00")
	rule := allDayRegularRule("2023-10-02 00:00:00")
	db.dutyRule.rules[rule.ID] = rule

	group := models.UserGroup{
		TenantId:  "default",
		ID:        "ug-1",
		NeedDuty:  true,
		DutyRules: []string{rule.ID},
		TimeZone:  "Asia/Shanghai",
	}

	if err := svc.manageGroupSnap(group, now); err != nil {
		t.Fatalf("首次对账失败: %s", err)
	}

	rule.Enabled = false
	db.dutyRule.rules[rule.ID] = rule

	if err := svc.manageGroupSnap(group, now); err != nil {
		t.Fatalf("停用后对账失败: %s", err)
	}

	if got := countEffective(db.dutyPlan.plans); got != 0 {
		t.Errorf("停用后不应有生效班次, 实际 %d", got)
	}
	if _, err := db.dutyPlan.GetSnap("default", "ug-1", rule.ID); err == nil {
		t.Error("停用后快照应被删除")
	}
}

// 规则未变：水平线未临近时对账不产生新班次
func TestManageGroupSnapIdempotent(t *testing.T) {
	svc, db := newDutyFixture(t, 30)

	now := mustTime(t, "2023-10-01 00:00:00")
	rule := allDayRegularRule("2023-10-02 00:00:00")
	db.dutyRule.rules[rule.ID] = rule

	group := models.UserGroup{
		TenantId:  "default",
		ID:        "ug-1",
		NeedDuty:  true,
		DutyRules: []string{rule.ID},
		TimeZone:  "Asia/Shanghai",
	}

	if err := svc.manageGroupSnap(group, now); err != nil {
		t.Fatalf("首次对账失败: %s", err)
	}
	first := len(db.dutyPlan.plans)

	if err := svc.manageGroupSnap(group, now); err != nil {
		t.Fatalf("重复对账失败: %s", err)
	}
	if len(db.dutyPlan.plans) != first {
		t.Errorf("规则未变时重复对账不应新增班次: %d -> %d", first, len(db.dutyPlan.plans))
	}
}

// 水平线滚动：接近 next_plan_time 时向前续排
func TestManageGroupSnapRollForward(t *testing.T) {
	svc, db := newDutyFixture(t, 15)

	rule := allDayRegularRule("2023-10-02 00:00:00")
	db.dutyRule.rules[rule.ID] = rule

	group := models.UserGroup{
		TenantId:  "default",
		ID:        "ug-1",
		NeedDuty:  true,
		DutyRules: []string{rule.ID},
		TimeZone:  "Asia/Shanghai",
	}

	if err := svc.manageGroupSnap(group, mustTime(t, "2023-10-01 00:00:00")); err != nil {
		t.Fatalf("首次对账失败: %s", err)
	}

	// next_plan_time = 2023-10-17, 提前量 7 天内触发续排
	if err := svc.manageGroupSnap(group, mustTime(t, "2023-10-12 00:00:00")); err != nil {
		t.Fatalf("滚动对账失败: %s", err)
	}

	if got := countEffective(db.dutyPlan.plans); got != 30 {
		t.Errorf("滚动后应共有 30 个生效班次, 实际 %d", got)
	}

	snap, err := db.dutyPlan.GetSnap("default", "ug-1", rule.ID)
	if err != nil {
		t.Fatalf("快照丢失: %s", err)
	}
	if snap.NextPlanTime != "2023-11-01 00:00:00" {
		t.Errorf("快照水平线应推进到 2023-11-01, 实际 %s", snap.NextPlanTime)
	}
}

func TestPlanNoticeDue(t *testing.T) {
	// 2023-12-11 是周一
	monday := time.Date(2023, 12, 11, 10, 30, 0, 0, time.UTC)

	t.Run("周配置", func(t *testing.T) {
		cfg := &models.PlanNoticeConfig{Type: "weekly", Date: 1, Time: "10:00"}
		if !planNoticeDue(cfg, monday) {
			t.Error("周一 10:30 应视为到期")
		}
		cfg.Time = "11:00"
		if planNoticeDue(cfg, monday) {
			t.Error("未到配置时刻不应发送")
		}
		cfg.Time = "10:00"
		cfg.Date = 2
		if planNoticeDue(cfg, monday) {
			t.Error("非配置发送日不应发送")
		}
	})

	t.Run("月配置", func(t *testing.T) {
		cfg := &models.PlanNoticeConfig{Type: "monthly", Date: 11, Time: "10:00"}
		if !planNoticeDue(cfg, monday) {
			t.Error("每月 11 号 10:30 应视为到期")
		}
		cfg.Date = 12
		if planNoticeDue(cfg, monday) {
			t.Error("非配置日期不应发送")
		}
	})

	t.Run("未配置日期时刻", func(t *testing.T) {
		if !planNoticeDue(&models.PlanNoticeConfig{Type: "weekly"}, monday) {
			t.Error("未配置发送日和时刻时任意时间都到期")
		}
	})
}
