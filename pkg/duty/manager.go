package duty

import (
	"fmt"
	"sort"
	"time"

	"monitorHub/internal/models"
	"monitorHub/pkg/tools"
)

// Manager 排班引擎。给定规则和时间水平线，确定性地展开出值班计划，
// 展开始终从规则生效时间对齐，交接序号与预览窗口无关。
type Manager struct {
	rule models.DutyRule
	loc  *time.Location
}

func NewManager(rule models.DutyRule, loc *time.Location) *Manager {
	if loc == nil {
		loc = time.Local
	}
	return &Manager{
		rule: rule,
		loc:  loc,
	}
}

// Preview 纯计算，无副作用。beginTime 为空时取规则生效时间，days 是窗口天数。
// 规则停用时返回空列表。
func (m *Manager) Preview(beginTime string, days int) ([]models.DutyPlan, error) {
	if !m.rule.Enabled {
		return nil, nil
	}
	if beginTime == "" {
		beginTime = m.rule.EffectiveTime
	}

	begin, err := tools.ParseTime(beginTime, m.loc)
	if err != nil {
		return nil, err
	}
	effective, err := tools.ParseTime(m.rule.EffectiveTime, m.loc)
	if err != nil {
		return nil, fmt.Errorf("规则生效时间非法: %w", err)
	}
	if begin.Before(effective) {
		begin = effective
	}

	end := begin.AddDate(0, 0, days)
	if m.rule.EndTime != "" {
		ruleEnd, perr := tools.ParseTime(m.rule.EndTime, m.loc)
		if perr != nil {
			return nil, fmt.Errorf("规则结束时间非法: %w", perr)
		}
		end = tools.MinTime(end, ruleEnd)
	}
	if !end.After(begin) {
		return []models.DutyPlan{}, nil
	}

	var plans []models.DutyPlan
	for _, arrange := range m.rule.DutyArranges {
		arrangePlans, aerr := m.expandArrange(arrange, effective, begin, end)
		if aerr != nil {
			return nil, aerr
		}
		plans = append(plans, arrangePlans...)
	}

	// 多个 DutyArrange 叠加：各自独立展开后按 (开始时间, 交接序号) 合并
	sort.SliceStable(plans, func(i, j int) bool {
		if plans[i].StartTime != plans[j].StartTime {
			return plans[i].StartTime < plans[j].StartTime
		}
		return plans[i].UserIndex < plans[j].UserIndex
	})
	for i := range plans {
		plans[i].Order = i
	}

	return plans, nil
}

// expandArrange 展开单个 DutyArrange。各 DutyTime 的周期按列交错，
// 占用单调递增的交接序号 k。
func (m *Manager) expandArrange(arrange models.DutyArrange, effective, begin, end time.Time) ([]models.DutyPlan, error) {
	perDutyTime := make([][]period, 0, len(arrange.DutyTime))
	for _, dt := range arrange.DutyTime {
		e := &expander{
			dt:    dt,
			loc:   m.loc,
			start: effective,
			until: end,
		}
		ps, err := e.periods()
		if err != nil {
			return nil, err
		}
		perDutyTime = append(perDutyTime, ps)
	}

	cycles := interleave(perDutyTime)
	handoff := m.rule.Category == models.DutyCategoryHandoff

	var (
		plans []models.DutyPlan
		lastK = -2
	)
	for k, cyc := range cycles {
		windows := clipWindows(cyc.windows, begin, end)
		if len(windows) == 0 {
			continue
		}

		var users []models.DutyUser
		if handoff {
			users = usersAt(arrange, k)
		} else {
			users = flattenUsers(arrange.DutyUsers)
		}
		if len(users) == 0 {
			continue
		}

		// 相邻周期当班人员相同则并入同一个计划
		if handoff && k == lastK+1 && len(plans) > 0 && sameUsers(plans[len(plans)-1].Users, users) {
			last := &plans[len(plans)-1]
			last.WorkTimes = append(last.WorkTimes, toWorkTimes(windows)...)
			last.FinishedTime = minTimeStr(maxWindowEnd(windows)+":59", tools.FormatTime(end))
			lastK = k
			continue
		}

		plans = append(plans, models.DutyPlan{
			TenantId:     m.rule.TenantId,
			DutyRuleId:   m.rule.ID,
			IsEffective:  1,
			StartTime:    minWindowStart(windows) + ":00",
			FinishedTime: minTimeStr(maxWindowEnd(windows)+":59", tools.FormatTime(end)),
			UserIndex:    k,
			Users:        users,
			WorkTimes:    toWorkTimes(windows),
		})
		lastK = k
	}

	return plans, nil
}

// clipWindows 把窗口裁剪到 [begin, end)，完全落在外面的丢弃
func clipWindows(windows []window, begin, end time.Time) []window {
	var out []window
	for _, w := range windows {
		if !w.end.After(begin) || !w.start.Before(end) {
			continue
		}
		clipped := w
		if clipped.start.Before(begin) {
			clipped.start = begin
		}
		if clipped.end.After(end) {
			clipped.end = end
		}
		out = append(out, clipped)
	}
	return out
}

func toWorkTimes(windows []window) []models.WorkTime {
	out := make([]models.WorkTime, 0, len(windows))
	for _, w := range windows {
		out = append(out, models.WorkTime{
			StartTime: tools.FormatMinute(w.start),
			EndTime:   tools.FormatMinute(w.end),
		})
	}
	return out
}

func minWindowStart(windows []window) string {
	min := windows[0].start
	for _, w := range windows[1:] {
		if w.start.Before(min) {
			min = w.start
		}
	}
	return tools.FormatMinute(min)
}

func maxWindowEnd(windows []window) string {
	max := windows[0].end
	for _, w := range windows[1:] {
		if w.end.After(max) {
			max = w.end
		}
	}
	return tools.FormatMinute(max)
}

// minTimeStr 固定格式下字典序与时间序一致
func minTimeStr(a, b string) string {
	if a < b {
		return a
	}
	return b
}
