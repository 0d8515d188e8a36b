package models

import (
	"fmt"

	"monitorHub/pkg/tools"
)

// 轮值类别
const (
	DutyCategoryRegular = "regular"
	DutyCategoryHandoff = "handoff"
)

// 轮转窗口类型
const (
	WorkTypeDaily     = "daily"
	WorkTypeWeekly    = "weekly"
	WorkTypeMonthly   = "monthly"
	WorkTypeWorkDay   = "work_day"
	WorkTypeWeekend   = "weekend"
	WorkTypeDateRange = "date_range"
)

// 工作时间段类型
const (
	WorkTimeTypeTimeRange     = "time_range"
	WorkTimeTypeDatetimeRange = "datetime_range"
)

// 分组类型
const (
	DutyGroupSpecified = "specified"
	DutyGroupAuto      = "auto"
)

// 周期单位
const (
	PeriodUnitDay   = "day"
	PeriodUnitWeek  = "week"
	PeriodUnitMonth = "month"
)

type DutyUser struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name,omitempty"`
	Type        string `json:"type"` // user / group
}

// PeriodSettings 自动交接周期设置
type PeriodSettings struct {
	WindowUnit string `json:"window_unit"`
	Duration   int    `json:"duration"`
}

// DutyTime 一个轮转窗口的描述
type DutyTime struct {
	WorkType      string          `json:"work_type"`
	WorkDays      []int           `json:"work_days,omitempty"`
	WorkTimeType  string          `json:"work_time_type,omitempty"`
	WorkTime      []string        `json:"work_time"`                 // "HH:MM--HH:MM" 或 "D HH:MM--D HH:MM"
	WorkDateRange []string        `json:"work_date_range,omitempty"` // date_range 专用 "YYYY-MM-DD--YYYY-MM-DD"
	PeriodSettings *PeriodSettings `json:"period_settings,omitempty"`
}

// DutyArrange 一组人员与窗口的安排
type DutyArrange struct {
	DutyTime    []DutyTime   `json:"duty_time"`
	DutyUsers   [][]DutyUser `json:"duty_users"`
	GroupType   string       `json:"group_type,omitempty"`
	GroupNumber int          `json:"group_number,omitempty"`
}

// DutyRule 轮值规则，hash 只覆盖语义字段，enabled 开关不参与
type DutyRule struct {
	TenantId      string        `json:"tenantId"`
	ID            string        `json:"id"`
	BkBizId       int64         `json:"bkBizId"`
	Name          string        `json:"name"`
	Category      string        `json:"category"`
	Enabled       bool          `json:"enabled"`
	EffectiveTime string        `json:"effectiveTime"` // "2006-01-02 15:04:05"
	EndTime       string        `json:"endTime"`       // 为空表示永久有效
	Hash          string        `json:"hash"`
	DutyArranges  []DutyArrange `json:"dutyArranges" gorm:"duty_arranges;serializer:json"`
	UpdateBy      string        `json:"updateBy"`
	UpdateAt      int64         `json:"updateAt"`
}

func (DutyRule) TableName() string {
	return "w8t_duty_rule"
}

// ContentHash 计算规则的语义哈希。名称、生效时间和安排任一变化都会改变哈希，
// enabled 开关不会。
func (r DutyRule) ContentHash() string {
	payload := fmt.Sprintf("%s|%s|%s|%s|%s",
		r.Name, r.Category, r.EffectiveTime, r.EndTime,
		tools.JsonMarshalToString(r.DutyArranges))
	return tools.Md5HashString(payload)
}

// WorkTime 一个具体的绝对工作时间段，分钟精度
type WorkTime struct {
	StartTime string `json:"start_time"` // "2006-01-02 15:04"
	EndTime   string `json:"end_time"`
}
