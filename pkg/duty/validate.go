package duty

import (
	"time"

	"monitorHub/internal/errs"
	"monitorHub/internal/models"
	"monitorHub/pkg/tools"
)

// ValidateRule 规则保存前的校验。窗口表达有歧义时直接拒绝，
// 不在展开阶段猜测语义。
func ValidateRule(rule models.DutyRule, loc *time.Location) error {
	if loc == nil {
		loc = time.Local
	}

	if rule.Name == "" {
		return errs.NewValidation("规则名称不能为空")
	}
	if rule.Category != models.DutyCategoryRegular && rule.Category != models.DutyCategoryHandoff {
		return errs.NewValidation("非法的轮值类别: %s", rule.Category)
	}

	effective, err := tools.ParseTime(rule.EffectiveTime, loc)
	if err != nil {
		return errs.NewValidation("生效时间格式错误: %s", rule.EffectiveTime)
	}
	if rule.EndTime != "" {
		end, perr := tools.ParseTime(rule.EndTime, loc)
		if perr != nil {
			return errs.NewValidation("结束时间格式错误: %s", rule.EndTime)
		}
		if !end.After(effective) {
			return errs.NewValidation("结束时间必须晚于生效时间")
		}
	}

	if len(rule.DutyArranges) == 0 {
		return errs.NewValidation("规则至少需要一个值班安排")
	}

	for _, arrange := range rule.DutyArranges {
		if err := validateArrange(arrange, loc); err != nil {
			return err
		}
	}

	return nil
}

func validateArrange(arrange models.DutyArrange, loc *time.Location) error {
	if len(arrange.DutyUsers) == 0 {
		return errs.NewValidation("值班安排缺少人员")
	}
	if arrange.GroupType == models.DutyGroupAuto && arrange.GroupNumber <= 0 {
		return errs.NewValidation("自动分组需要正的 group_number")
	}
	if len(arrange.DutyTime) == 0 {
		return errs.NewValidation("值班安排缺少轮转窗口")
	}

	for _, dt := range arrange.DutyTime {
		if err := validateDutyTime(dt, loc); err != nil {
			return err
		}
	}
	return nil
}

func validateDutyTime(dt models.DutyTime, loc *time.Location) error {
	switch dt.WorkType {
	case models.WorkTypeDaily, models.WorkTypeWorkDay, models.WorkTypeWeekend:
	case models.WorkTypeWeekly:
		for _, d := range dt.WorkDays {
			if d < 1 || d > 7 {
				return errs.NewValidation("weekly 的 work_days 必须在 1-7 之间: %d", d)
			}
		}
	case models.WorkTypeMonthly:
		if len(dt.WorkDays) == 0 {
			return errs.NewValidation("monthly 轮转缺少 work_days")
		}
		for _, d := range dt.WorkDays {
			if d < 1 || d > 31 {
				return errs.NewValidation("monthly 的 work_days 必须在 1-31 之间: %d", d)
			}
		}
	case models.WorkTypeDateRange:
		if len(dt.WorkDateRange) == 0 {
			return errs.NewValidation("date_range 轮转缺少日期范围")
		}
		for _, dr := range dt.WorkDateRange {
			beginStr, endStr, err := tools.SplitTimeRange(dr)
			if err != nil {
				return errs.NewValidation("日期范围格式错误: %s", dr)
			}
			begin, err := tools.ParseDate(beginStr, loc)
			if err != nil {
				return errs.NewValidation("日期范围格式错误: %s", dr)
			}
			end, err := tools.ParseDate(endStr, loc)
			if err != nil {
				return errs.NewValidation("日期范围格式错误: %s", dr)
			}
			if end.Before(begin) {
				return errs.NewValidation("日期范围起止颠倒: %s", dr)
			}
		}
	default:
		return errs.NewValidation("非法的轮转窗口类型: %s", dt.WorkType)
	}

	if len(dt.WorkTime) == 0 {
		return errs.NewValidation("轮转窗口缺少工作时间段")
	}

	for _, wt := range dt.WorkTime {
		beginStr, endStr, err := tools.SplitTimeRange(wt)
		if err != nil {
			return errs.NewValidation("工作时间段格式错误: %s", wt)
		}

		if dt.WorkTimeType == models.WorkTimeTypeDatetimeRange {
			if _, _, _, derr := parseDayHourMinute(beginStr); derr != nil {
				return errs.NewValidation("工作时间段格式错误: %s", wt)
			}
			if _, _, _, derr := parseDayHourMinute(endStr); derr != nil {
				return errs.NewValidation("工作时间段格式错误: %s", wt)
			}
			continue
		}

		if _, _, err = tools.ParseHourMinute(beginStr); err != nil {
			return errs.NewValidation("工作时间段格式错误: %s", wt)
		}
		if _, _, err = tools.ParseHourMinute(endStr); err != nil {
			return errs.NewValidation("工作时间段格式错误: %s", wt)
		}
	}

	if dt.PeriodSettings != nil {
		switch dt.PeriodSettings.WindowUnit {
		case models.PeriodUnitDay, models.PeriodUnitWeek, models.PeriodUnitMonth:
		default:
			return errs.NewValidation("非法的周期单位: %s", dt.PeriodSettings.WindowUnit)
		}
		if dt.PeriodSettings.Duration <= 0 {
			return errs.NewValidation("周期时长必须为正数")
		}
	}

	return nil
}
