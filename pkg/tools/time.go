package tools

import (
	"fmt"
	"strings"
	"time"
)

const (
	// Layout 数据库和接口统一使用的时间格式
	Layout = "2006-01-02 15:04:05"
	// LayoutMinute 排班工作时间段使用的分钟级格式
	LayoutMinute = "2006-01-02 15:04"
	// LayoutDate 日期格式
	LayoutDate = "2006-01-02"
)

// ParseTime 解析 "2006-01-02 15:04:05" 格式的时间字符串
func ParseTime(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(Layout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("解析时间失败 (%s): %w", s, err)
	}
	return t, nil
}

// ParseDate 解析 "2006-01-02" 格式的日期字符串
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(LayoutDate, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("解析日期失败 (%s): %w", s, err)
	}
	return t, nil
}

// FormatTime 格式化为秒级时间字符串
func FormatTime(t time.Time) string {
	return t.Format(Layout)
}

// FormatMinute 格式化为分钟级时间字符串
func FormatMinute(t time.Time) string {
	return t.Format(LayoutMinute)
}

// ParseHourMinute 解析 "HH:MM"，返回小时与分钟
func ParseHourMinute(s string) (int, int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("时间段格式错误: %s", s)
	}
	var hour, minute int
	if _, err := fmt.Sscanf(parts[0], "%d", &hour); err != nil {
		return 0, 0, fmt.Errorf("时间段格式错误: %s", s)
	}
	if _, err := fmt.Sscanf(parts[1], "%d", &minute); err != nil {
		return 0, 0, fmt.Errorf("时间段格式错误: %s", s)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("时间段超出范围: %s", s)
	}
	return hour, minute, nil
}

// SplitTimeRange 拆分 "xx--yy" 形式的时间范围
func SplitTimeRange(s string) (string, string, error) {
	parts := strings.Split(s, "--")
	if len(parts) != 2 {
		return "", "", fmt.Errorf("时间范围格式错误: %s", s)
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), nil
}

// DateOf 截断到当天零点
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// ISOWeekday 返回 ISO 星期（周一=1 .. 周日=7）
func ISOWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// DaysInMonth 返回所在月份的天数
func DaysInMonth(t time.Time) int {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return first.AddDate(0, 1, -1).Day()
}

// MinTime 返回较早的时间
func MinTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

// MaxTime 返回较晚的时间
func MaxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}
