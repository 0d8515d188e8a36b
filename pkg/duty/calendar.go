package duty

import (
	"fmt"
	"time"

	"monitorHub/internal/models"
	"monitorHub/pkg/tools"
)

// window 一个绝对工作时间窗口，分钟精度
type window struct {
	start time.Time
	end   time.Time
}

// period 一个交接周期内的全部工作窗口。anchor 是周期的起始日，
// 没有任何有效窗口的周期也会占用一个交接序号。
type period struct {
	anchor  time.Time
	windows []window
}

// expander 把一个 DutyTime 展开成按交接顺序排列的周期序列
type expander struct {
	dt    models.DutyTime
	loc   *time.Location
	start time.Time // 展开起点，规则生效日零点
	until time.Time // 水平线终点，到达即停止
}

func (e *expander) periods() ([]period, error) {
	base, err := e.basePeriods()
	if err != nil {
		return nil, err
	}
	if e.dt.PeriodSettings == nil {
		return base, nil
	}
	return e.groupByPeriodSettings(base)
}

func (e *expander) basePeriods() ([]period, error) {
	switch e.dt.WorkType {
	case models.WorkTypeDaily:
		return e.dailyPeriods()
	case models.WorkTypeWeekly, models.WorkTypeWorkDay, models.WorkTypeWeekend:
		return e.weeklyPeriods()
	case models.WorkTypeMonthly:
		return e.monthlyPeriods()
	case models.WorkTypeDateRange:
		return e.dateRangePeriods()
	default:
		return nil, fmt.Errorf("不支持的轮转窗口类型: %s", e.dt.WorkType)
	}
}

// dailyPeriods 每天一个周期
func (e *expander) dailyPeriods() ([]period, error) {
	var periods []period
	for day := tools.DateOf(e.start); day.Before(e.until); day = day.AddDate(0, 0, 1) {
		ws, err := e.dayWindows(day)
		if err != nil {
			return nil, err
		}
		periods = append(periods, period{anchor: day, windows: ws})
	}
	return periods, nil
}

// weeklyPeriods 每周一个周期，在 work_days 首元素对应的星期交接
func (e *expander) weeklyPeriods() ([]period, error) {
	workDays := e.weekWorkDays()
	if len(workDays) == 0 {
		return nil, fmt.Errorf("weekly 轮转缺少 work_days")
	}

	if e.dt.WorkTimeType == models.WorkTimeTypeDatetimeRange {
		return e.weeklyDatetimeRangePeriods()
	}

	handoffDay := workDays[0]
	var (
		periods []period
		cur     *period
	)
	for day := tools.DateOf(e.start); day.Before(e.until); day = day.AddDate(0, 0, 1) {
		if cur == nil || (tools.ISOWeekday(day) == handoffDay && !day.Equal(tools.DateOf(e.start))) {
			if cur != nil {
				periods = append(periods, *cur)
			}
			cur = &period{anchor: day}
		}
		if containsInt(workDays, tools.ISOWeekday(day)) {
			ws, err := e.dayWindows(day)
			if err != nil {
				return nil, err
			}
			cur.windows = append(cur.windows, ws...)
		}
	}
	if cur != nil {
		periods = append(periods, *cur)
	}
	return periods, nil
}

// monthlyPeriods 每月一个周期，在 work_days 首元素对应的日交接
func (e *expander) monthlyPeriods() ([]period, error) {
	workDays := e.dt.WorkDays
	if len(workDays) == 0 {
		return nil, fmt.Errorf("monthly 轮转缺少 work_days")
	}

	if e.dt.WorkTimeType == models.WorkTimeTypeDatetimeRange {
		return e.monthlyDatetimeRangePeriods()
	}

	handoffDay := workDays[0]
	var (
		periods []period
		cur     *period
	)
	for day := tools.DateOf(e.start); day.Before(e.until); day = day.AddDate(0, 0, 1) {
		if cur == nil || (day.Day() == handoffDay && !day.Equal(tools.DateOf(e.start))) {
			if cur != nil {
				periods = append(periods, *cur)
			}
			cur = &period{anchor: day}
		}
		if containsInt(workDays, day.Day()) {
			ws, err := e.dayWindows(day)
			if err != nil {
				return nil, err
			}
			cur.windows = append(cur.windows, ws...)
		}
	}
	if cur != nil {
		periods = append(periods, *cur)
	}
	return periods, nil
}

// dateRangePeriods 显式日期范围整体作为一个周期
func (e *expander) dateRangePeriods() ([]period, error) {
	p := period{anchor: tools.DateOf(e.start)}
	for _, dr := range e.dt.WorkDateRange {
		beginStr, endStr, err := tools.SplitTimeRange(dr)
		if err != nil {
			return nil, err
		}
		begin, err := tools.ParseDate(beginStr, e.loc)
		if err != nil {
			return nil, err
		}
		end, err := tools.ParseDate(endStr, e.loc)
		if err != nil {
			return nil, err
		}
		if end.Before(begin) {
			return nil, fmt.Errorf("日期范围起止颠倒: %s", dr)
		}
		for day := begin; !day.After(end) && day.Before(e.until); day = day.AddDate(0, 0, 1) {
			ws, werr := e.dayWindows(day)
			if werr != nil {
				return nil, werr
			}
			p.windows = append(p.windows, ws...)
		}
	}
	return []period{p}, nil
}

// weeklyDatetimeRangePeriods "D HH:MM--D HH:MM" 形式，每个自然周一个周期
func (e *expander) weeklyDatetimeRangePeriods() ([]period, error) {
	weekStart := mondayOf(tools.DateOf(e.start))
	var periods []period
	for ws := weekStart; ws.Before(e.until); ws = ws.AddDate(0, 0, 7) {
		p := period{anchor: ws}
		for _, wt := range e.dt.WorkTime {
			spanStart, spanEnd, err := e.resolveDaySpan(ws, wt, 7)
			if err != nil {
				return nil, err
			}
			p.windows = append(p.windows, splitDaily(spanStart, spanEnd)...)
		}
		periods = append(periods, p)
	}
	return periods, nil
}

// monthlyDatetimeRangePeriods 每个自然月一个周期
func (e *expander) monthlyDatetimeRangePeriods() ([]period, error) {
	monthStart := time.Date(e.start.Year(), e.start.Month(), 1, 0, 0, 0, 0, e.loc)
	var periods []period
	for ms := monthStart; ms.Before(e.until); ms = ms.AddDate(0, 1, 0) {
		p := period{anchor: ms}
		for _, wt := range e.dt.WorkTime {
			spanStart, spanEnd, err := e.resolveDaySpan(ms, wt, tools.DaysInMonth(ms))
			if err != nil {
				return nil, err
			}
			p.windows = append(p.windows, splitDaily(spanStart, spanEnd)...)
		}
		periods = append(periods, p)
	}
	return periods, nil
}

// resolveDaySpan 把 "D1 HH:MM--D2 HH:MM" 解析为锚定在 anchor 所在周期的绝对区间。
// D2 早于或等于 D1 且时间不构成正区间时回绕到下一个周期。
func (e *expander) resolveDaySpan(anchor time.Time, workTime string, cycleDays int) (time.Time, time.Time, error) {
	beginStr, endStr, err := tools.SplitTimeRange(workTime)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	d1, h1, m1, err := parseDayHourMinute(beginStr)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	d2, h2, m2, err := parseDayHourMinute(endStr)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	start := anchor.AddDate(0, 0, d1-1).Add(time.Duration(h1)*time.Hour + time.Duration(m1)*time.Minute)
	endDayOffset := d2 - 1
	if d2 < d1 || (d2 == d1 && (h2 < h1 || (h2 == h1 && m2 <= m1))) {
		// 回绕到下一个周期，起止同一天同一时刻视为整周期
		endDayOffset += cycleDays
	}
	end := anchor.AddDate(0, 0, endDayOffset).Add(time.Duration(h2)*time.Hour + time.Duration(m2)*time.Minute)

	return start, end, nil
}

// dayWindows 某一天上的全部 "HH:MM--HH:MM" 窗口，结束早于开始按跨天处理
func (e *expander) dayWindows(day time.Time) ([]window, error) {
	var ws []window
	for _, wt := range e.dt.WorkTime {
		beginStr, endStr, err := tools.SplitTimeRange(wt)
		if err != nil {
			return nil, err
		}
		h1, m1, err := tools.ParseHourMinute(beginStr)
		if err != nil {
			return nil, err
		}
		h2, m2, err := tools.ParseHourMinute(endStr)
		if err != nil {
			return nil, err
		}

		start := day.Add(time.Duration(h1)*time.Hour + time.Duration(m1)*time.Minute)
		end := day.Add(time.Duration(h2)*time.Hour + time.Duration(m2)*time.Minute)
		if !end.After(start) {
			end = end.AddDate(0, 0, 1)
		}
		ws = append(ws, window{start: start, end: end})
	}
	return ws, nil
}

// groupByPeriodSettings 按 period_settings 把基础周期合并为更长的交接周期，
// 分桶边界从展开起点对齐
func (e *expander) groupByPeriodSettings(base []period) ([]period, error) {
	ps := e.dt.PeriodSettings
	if ps.Duration <= 0 {
		return nil, fmt.Errorf("period_settings.duration 必须为正数: %d", ps.Duration)
	}

	origin := tools.DateOf(e.start)
	var grouped []period
	lastBucket := -1
	for _, p := range base {
		bucket, err := e.bucketOf(origin, p.anchor, ps)
		if err != nil {
			return nil, err
		}
		if bucket != lastBucket {
			grouped = append(grouped, period{anchor: p.anchor})
			lastBucket = bucket
		}
		last := &grouped[len(grouped)-1]
		last.windows = append(last.windows, p.windows...)
	}
	return grouped, nil
}

func (e *expander) bucketOf(origin, anchor time.Time, ps *models.PeriodSettings) (int, error) {
	switch ps.WindowUnit {
	case models.PeriodUnitDay:
		return daysBetween(origin, anchor) / ps.Duration, nil
	case models.PeriodUnitWeek:
		return daysBetween(mondayOf(origin), mondayOf(anchor)) / (7 * ps.Duration), nil
	case models.PeriodUnitMonth:
		months := (anchor.Year()-origin.Year())*12 + int(anchor.Month()) - int(origin.Month())
		return months / ps.Duration, nil
	default:
		return 0, fmt.Errorf("不支持的周期单位: %s", ps.WindowUnit)
	}
}

// weekWorkDays work_day/weekend 是 weekly 的别名，各自固定工作日集合
func (e *expander) weekWorkDays() []int {
	switch e.dt.WorkType {
	case models.WorkTypeWorkDay:
		return []int{1, 2, 3, 4, 5}
	case models.WorkTypeWeekend:
		return []int{6, 7}
	default:
		if len(e.dt.WorkDays) == 0 {
			return []int{1, 2, 3, 4, 5, 6, 7}
		}
		return e.dt.WorkDays
	}
}

// splitDaily 把连续区间拆成按天的窗口，中间整天为 00:00 到次日 00:00
func splitDaily(start, end time.Time) []window {
	if !end.After(start) {
		return nil
	}
	var ws []window
	cur := start
	for {
		dayEnd := tools.DateOf(cur).AddDate(0, 0, 1)
		if !dayEnd.Before(end) {
			ws = append(ws, window{start: cur, end: end})
			return ws
		}
		ws = append(ws, window{start: cur, end: dayEnd})
		cur = dayEnd
	}
}

func parseDayHourMinute(s string) (day, hour, minute int, err error) {
	if _, err = fmt.Sscanf(s, "%d %d:%d", &day, &hour, &minute); err != nil {
		return 0, 0, 0, fmt.Errorf("datetime_range 时间格式错误: %s", s)
	}
	if day < 1 || hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, 0, fmt.Errorf("datetime_range 时间超出范围: %s", s)
	}
	return day, hour, minute, nil
}

func mondayOf(day time.Time) time.Time {
	return tools.DateOf(day).AddDate(0, 0, 1-tools.ISOWeekday(day))
}

func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}

func containsInt(list []int, v int) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
