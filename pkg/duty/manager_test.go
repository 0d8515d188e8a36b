package duty

import (
	"testing"
	"time"

	"monitorHub/internal/models"
	"monitorHub/pkg/tools"
)

func testLocation() *time.Location {
	loc, _ := time.LoadLocation("Asia/Shanghai")
	return loc
}

func specifiedSlots(slots ...[]string) [][]models.DutyUser {
	out := make([][]models.DutyUser, 0, len(slots))
	for _, slot := range slots {
		users := make([]models.DutyUser, 0, len(slot))
		for _, id := range slot {
			users = append(users, models.DutyUser{ID: id, Type: "user"})
		}
		out = append(out, users)
	}
	return out
}

func userIds(users []models.DutyUser) []string {
	ids := make([]string, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	return ids
}

func sameIds(a []string, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// TestPreviewWeeklyHandoffWithEnd 周交接 + 显式结束时间：
// 两个 12 小时班段各占一个交接序号，产出两个计划
func TestPreviewWeeklyHandoffWithEnd(t *testing.T) {
	rule := models.DutyRule{
		TenantId:      "default",
		ID:            "rule-weekly",
		Name:          "工作日双班段",
		Category:      models.DutyCategoryHandoff,
		Enabled:       true,
		EffectiveTime: "2023-12-11 00:00:00",
		EndTime:       "2023-12-15 00:00:00",
		DutyArranges: []models.DutyArrange{
			{
				DutyTime: []models.DutyTime{
					{WorkType: models.WorkTypeWeekly, WorkDays: []int{1, 2, 3, 4, 5}, WorkTime: []string{"10:00--23:00"}},
					{WorkType: models.WorkTypeWeekly, WorkDays: []int{1, 2, 3, 4, 5}, WorkTime: []string{"00:00--10:00"}},
				},
				DutyUsers: specifiedSlots([]string{"admin", "fish", "lisa"}, []string{"bob", "david", "alice"}),
			},
		},
	}

	plans, err := NewManager(rule, testLocation()).Preview("", 21)
	if err != nil {
		t.Fatalf("展开失败: %v", err)
	}

	if len(plans) != 2 {
		t.Fatalf("期望 2 个计划，实际为 %d", len(plans))
	}

	if plans[0].UserIndex != 0 {
		t.Errorf("期望第一个计划 user_index 为 0，实际为 %d", plans[0].UserIndex)
	}
	if plans[1].UserIndex != 1 {
		t.Errorf("期望第二个计划 user_index 为 1，实际为 %d", plans[1].UserIndex)
	}

	for i, p := range plans {
		if len(p.WorkTimes) != 4 {
			t.Errorf("期望计划 %d 有 4 个工作时间段，实际为 %d", i, len(p.WorkTimes))
		}
		if p.FinishedTime > "2023-12-15 00:00:00" {
			t.Errorf("计划 %d 超出规则结束时间: %s", i, p.FinishedTime)
		}
	}

	if !sameIds(userIds(plans[0].Users), []string{"admin", "fish", "lisa"}) {
		t.Errorf("第一个计划人员错误: %v", userIds(plans[0].Users))
	}
	if !sameIds(userIds(plans[1].Users), []string{"bob", "david", "alice"}) {
		t.Errorf("第二个计划人员错误: %v", userIds(plans[1].Users))
	}

	if plans[0].WorkTimes[0].StartTime != "2023-12-11 10:00" {
		t.Errorf("首个工作时间段开始时间错误: %s", plans[0].WorkTimes[0].StartTime)
	}
	if plans[0].WorkTimes[3].EndTime != "2023-12-14 23:00" {
		t.Errorf("末个工作时间段结束时间错误: %s", plans[0].WorkTimes[3].EndTime)
	}
}

// TestPreviewAutoGroupWraparound 自动分组在人数不能整除时回绕
func TestPreviewAutoGroupWraparound(t *testing.T) {
	rule := models.DutyRule{
		TenantId:      "default",
		ID:            "rule-auto",
		Name:          "自动分组",
		Category:      models.DutyCategoryHandoff,
		Enabled:       true,
		EffectiveTime: "2023-07-25 00:00:00",
		DutyArranges: []models.DutyArrange{
			{
				DutyTime: []models.DutyTime{
					{
						WorkType: models.WorkTypeDaily,
						WorkTime: []string{"00:00--23:59"},
						PeriodSettings: &models.PeriodSettings{
							WindowUnit: models.PeriodUnitDay,
							Duration:   2,
						},
					},
				},
				DutyUsers:   specifiedSlots([]string{"u0", "u1", "u2", "u3", "u4"}),
				GroupType:   models.DutyGroupAuto,
				GroupNumber: 2,
			},
		},
	}

	plans, err := NewManager(rule, testLocation()).Preview("", 6)
	if err != nil {
		t.Fatalf("展开失败: %v", err)
	}

	if len(plans) != 3 {
		t.Fatalf("期望 3 个计划，实际为 %d", len(plans))
	}

	expected := [][]string{
		{"u0", "u1"},
		{"u2", "u3"},
		{"u4", "u0"},
	}
	for i, p := range plans {
		if !sameIds(userIds(p.Users), expected[i]) {
			t.Errorf("计划 %d 人员错误，期望 %v 实际 %v", i, expected[i], userIds(p.Users))
		}
	}

	if plans[0].StartTime != "2023-07-25 00:00:00" {
		t.Errorf("首个计划开始时间错误: %s", plans[0].StartTime)
	}
}

// TestPreviewRegularDaily 常规类别每个周期独立成计划，不做人员轮转
func TestPreviewRegularDaily(t *testing.T) {
	rule := models.DutyRule{
		TenantId:      "default",
		ID:            "rule-regular",
		Name:          "全天单人",
		Category:      models.DutyCategoryRegular,
		Enabled:       true,
		EffectiveTime: "2024-03-01 00:00:00",
		DutyArranges: []models.DutyArrange{
			{
				DutyTime: []models.DutyTime{
					{WorkType: models.WorkTypeDaily, WorkTime: []string{"00:00--23:59"}},
				},
				DutyUsers: specifiedSlots([]string{"admin"}),
			},
		},
	}

	plans, err := NewManager(rule, testLocation()).Preview("", 15)
	if err != nil {
		t.Fatalf("展开失败: %v", err)
	}

	if len(plans) != 15 {
		t.Fatalf("期望 15 个计划，实际为 %d", len(plans))
	}
	for i, p := range plans {
		if !sameIds(userIds(p.Users), []string{"admin"}) {
			t.Errorf("计划 %d 人员错误: %v", i, userIds(p.Users))
		}
		if len(p.WorkTimes) != 1 {
			t.Errorf("计划 %d 期望 1 个工作时间段，实际为 %d", i, len(p.WorkTimes))
		}
	}
}

// TestPreviewDeterminism 相同输入必须产生逐字节一致的输出
func TestPreviewDeterminism(t *testing.T) {
	rule := models.DutyRule{
		TenantId:      "default",
		ID:            "rule-det",
		Name:          "确定性",
		Category:      models.DutyCategoryHandoff,
		Enabled:       true,
		EffectiveTime: "2024-01-01 00:00:00",
		DutyArranges: []models.DutyArrange{
			{
				DutyTime: []models.DutyTime{
					{WorkType: models.WorkTypeWeekly, WorkDays: []int{1, 3, 5}, WorkTime: []string{"09:00--18:00"}},
				},
				DutyUsers: specifiedSlots([]string{"a"}, []string{"b"}),
			},
		},
	}

	m := NewManager(rule, testLocation())
	first, err := m.Preview("", 30)
	if err != nil {
		t.Fatalf("展开失败: %v", err)
	}
	second, err := m.Preview("", 30)
	if err != nil {
		t.Fatalf("展开失败: %v", err)
	}

	if tools.JsonMarshalToString(first) != tools.JsonMarshalToString(second) {
		t.Error("两次展开结果不一致")
	}
}

// TestPreviewHandoffStability 交接序号只由生效时间决定，与预览窗口起点无关
func TestPreviewHandoffStability(t *testing.T) {
	rule := models.DutyRule{
		TenantId:      "default",
		ID:            "rule-stable",
		Name:          "交接稳定性",
		Category:      models.DutyCategoryHandoff,
		Enabled:       true,
		EffectiveTime: "2024-05-01 00:00:00",
		DutyArranges: []models.DutyArrange{
			{
				DutyTime: []models.DutyTime{
					{WorkType: models.WorkTypeDaily, WorkTime: []string{"00:00--23:59"}},
				},
				DutyUsers: specifiedSlots([]string{"a"}, []string{"b"}, []string{"c"}),
			},
		},
	}

	m := NewManager(rule, testLocation())
	full, err := m.Preview("", 9)
	if err != nil {
		t.Fatalf("展开失败: %v", err)
	}
	partial, err := m.Preview("2024-05-04 00:00:00", 6)
	if err != nil {
		t.Fatalf("展开失败: %v", err)
	}

	if len(partial) == 0 {
		t.Fatal("偏移窗口展开结果为空")
	}

	// 偏移窗口内的计划必须和全量展开中同一时段的计划人员一致
	byStart := make(map[string]models.DutyPlan)
	for _, p := range full {
		byStart[p.StartTime] = p
	}
	for _, p := range partial {
		ref, ok := byStart[p.StartTime]
		if !ok {
			t.Errorf("偏移窗口出现了全量展开中不存在的开始时间: %s", p.StartTime)
			continue
		}
		if p.UserIndex != ref.UserIndex {
			t.Errorf("开始于 %s 的计划 user_index 不一致: %d != %d", p.StartTime, p.UserIndex, ref.UserIndex)
		}
		if !sameIds(userIds(p.Users), userIds(ref.Users)) {
			t.Errorf("开始于 %s 的计划人员不一致", p.StartTime)
		}
	}
}

// TestPreviewDisabledRule 停用规则不产生任何计划
func TestPreviewDisabledRule(t *testing.T) {
	rule := models.DutyRule{
		ID:            "rule-off",
		Name:          "停用",
		Category:      models.DutyCategoryHandoff,
		Enabled:       false,
		EffectiveTime: "2024-01-01 00:00:00",
	}

	plans, err := NewManager(rule, testLocation()).Preview("", 30)
	if err != nil {
		t.Fatalf("展开失败: %v", err)
	}
	if len(plans) != 0 {
		t.Errorf("期望空结果，实际为 %d 个计划", len(plans))
	}
}

// TestPreviewCrossDayWorkTime 结束早于开始的班段按跨天处理
func TestPreviewCrossDayWorkTime(t *testing.T) {
	rule := models.DutyRule{
		TenantId:      "default",
		ID:            "rule-night",
		Name:          "夜班",
		Category:      models.DutyCategoryHandoff,
		Enabled:       true,
		EffectiveTime: "2024-06-10 00:00:00",
		DutyArranges: []models.DutyArrange{
			{
				DutyTime: []models.DutyTime{
					{WorkType: models.WorkTypeDaily, WorkTime: []string{"22:00--06:00"}},
				},
				DutyUsers: specifiedSlots([]string{"night"}),
			},
		},
	}

	plans, err := NewManager(rule, testLocation()).Preview("", 2)
	if err != nil {
		t.Fatalf("展开失败: %v", err)
	}

	if len(plans) == 0 {
		t.Fatal("展开结果为空")
	}
	wt := plans[0].WorkTimes[0]
	if wt.StartTime != "2024-06-10 22:00" {
		t.Errorf("跨天班段开始时间错误: %s", wt.StartTime)
	}
	if wt.EndTime != "2024-06-11 06:00" {
		t.Errorf("跨天班段结束时间错误: %s", wt.EndTime)
	}
}

// TestPreviewDateRange 显式日期范围整体作为一个交接周期
func TestPreviewDateRange(t *testing.T) {
	rule := models.DutyRule{
		TenantId:      "default",
		ID:            "rule-dates",
		Name:          "节假日保障",
		Category:      models.DutyCategoryHandoff,
		Enabled:       true,
		EffectiveTime: "2024-09-30 00:00:00",
		DutyArranges: []models.DutyArrange{
			{
				DutyTime: []models.DutyTime{
					{
						WorkType:      models.WorkTypeDateRange,
						WorkDateRange: []string{"2024-10-01--2024-10-03"},
						WorkTime:      []string{"09:00--18:00"},
					},
				},
				DutyUsers: specifiedSlots([]string{"holiday"}),
			},
		},
	}

	plans, err := NewManager(rule, testLocation()).Preview("", 10)
	if err != nil {
		t.Fatalf("展开失败: %v", err)
	}

	if len(plans) != 1 {
		t.Fatalf("期望 1 个计划，实际为 %d", len(plans))
	}
	if len(plans[0].WorkTimes) != 3 {
		t.Errorf("期望 3 个工作时间段，实际为 %d", len(plans[0].WorkTimes))
	}
	if plans[0].WorkTimes[0].StartTime != "2024-10-01 09:00" {
		t.Errorf("首个工作时间段开始时间错误: %s", plans[0].WorkTimes[0].StartTime)
	}
}

// TestValidateRule 非法配置在保存时即被拒绝
func TestValidateRule(t *testing.T) {
	base := models.DutyRule{
		Name:          "基础规则",
		Category:      models.DutyCategoryHandoff,
		EffectiveTime: "2024-01-01 00:00:00",
		DutyArranges: []models.DutyArrange{
			{
				DutyTime: []models.DutyTime{
					{WorkType: models.WorkTypeDaily, WorkTime: []string{"09:00--18:00"}},
				},
				DutyUsers: specifiedSlots([]string{"a"}),
			},
		},
	}

	t.Run("合法规则", func(t *testing.T) {
		if err := ValidateRule(base, testLocation()); err != nil {
			t.Errorf("合法规则校验失败: %v", err)
		}
	})

	t.Run("生效时间格式错误", func(t *testing.T) {
		r := base
		r.EffectiveTime = "2024/01/01"
		if err := ValidateRule(r, testLocation()); err == nil {
			t.Error("期望校验失败")
		}
	})

	t.Run("结束早于生效", func(t *testing.T) {
		r := base
		r.EndTime = "2023-01-01 00:00:00"
		if err := ValidateRule(r, testLocation()); err == nil {
			t.Error("期望校验失败")
		}
	})

	t.Run("工作时间段格式错误", func(t *testing.T) {
		r := base
		r.DutyArranges = []models.DutyArrange{
			{
				DutyTime: []models.DutyTime{
					{WorkType: models.WorkTypeDaily, WorkTime: []string{"9点--18点"}},
				},
				DutyUsers: specifiedSlots([]string{"a"}),
			},
		}
		if err := ValidateRule(r, testLocation()); err == nil {
			t.Error("期望校验失败")
		}
	})

	t.Run("自动分组缺少数量", func(t *testing.T) {
		r := base
		r.DutyArranges = []models.DutyArrange{
			{
				DutyTime: []models.DutyTime{
					{WorkType: models.WorkTypeDaily, WorkTime: []string{"09:00--18:00"}},
				},
				DutyUsers: specifiedSlots([]string{"a"}),
				GroupType: models.DutyGroupAuto,
			},
		}
		if err := ValidateRule(r, testLocation()); err == nil {
			t.Error("期望校验失败")
		}
	})
}

// TestPreviewMultiArrangeOrdering 多个 DutyArrange 叠加后按 (开始时间, 交接序号) 排列
func TestPreviewMultiArrangeOrdering(t *testing.T) {
	rule := models.DutyRule{
		TenantId:      "default",
		ID:            "rule-multi",
		Name:          "主备叠加",
		Category:      models.DutyCategoryHandoff,
		Enabled:       true,
		EffectiveTime: "2024-01-01 00:00:00",
		DutyArranges: []models.DutyArrange{
			{
				DutyTime: []models.DutyTime{
					{WorkType: models.WorkTypeDaily, WorkTime: []string{"09:00--12:00"}},
				},
				DutyUsers: specifiedSlots([]string{"a"}, []string{"b"}),
			},
			{
				DutyTime: []models.DutyTime{
					{WorkType: models.WorkTypeDateRange, WorkDateRange: []string{"2024-01-02--2024-01-02"}, WorkTime: []string{"13:00--18:00"}},
				},
				DutyUsers: specifiedSlots([]string{"x"}),
			},
		},
	}

	plans, err := NewManager(rule, testLocation()).Preview("", 2)
	if err != nil {
		t.Fatalf("展开失败: %v", err)
	}
	if len(plans) != 3 {
		t.Fatalf("期望 3 个计划, 实际 %d 个", len(plans))
	}

	wantStarts := []string{"2024-01-01 09:00:00", "2024-01-02 09:00:00", "2024-01-02 13:00:00"}
	wantUsers := [][]string{{"a"}, {"b"}, {"x"}}
	for i, p := range plans {
		if p.StartTime != wantStarts[i] {
			t.Errorf("第 %d 个计划开始时间应为 %s, 实际 %s", i+1, wantStarts[i], p.StartTime)
		}
		if !sameIds(userIds(p.Users), wantUsers[i]) {
			t.Errorf("第 %d 个计划人员应为 %v, 实际 %v", i+1, wantUsers[i], userIds(p.Users))
		}
		if p.Order != i {
			t.Errorf("第 %d 个计划 order 应为 %d, 实际 %d", i+1, i, p.Order)
		}
	}
}
