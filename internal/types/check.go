package types

import "fmt"

// 校验状态，严重程度 UNKNOWN < SUCCESS < WARNING < ERROR < NOT_FOUND
const (
	CheckStatusUnknown  = "UNKNOWN"
	CheckStatusSuccess  = "SUCCESS"
	CheckStatusWarning  = "WARNING"
	CheckStatusError    = "ERROR"
	CheckStatusNotFound = "NOT_FOUND"
)

var checkSeverity = map[string]int{
	CheckStatusUnknown:  0,
	CheckStatusSuccess:  1,
	CheckStatusWarning:  2,
	CheckStatusError:    3,
	CheckStatusNotFound: 4,
}

// MoreSevere 返回两个状态中较严重的那个
func MoreSevere(a, b string) string {
	if checkSeverity[b] > checkSeverity[a] {
		return b
	}
	return a
}

// CheckResult 单项校验结果
type CheckResult struct {
	Name     string                 `json:"name"`
	Status   string                 `json:"status"`
	Issues   []string               `json:"issues,omitempty"`
	Warnings []string               `json:"warnings,omitempty"`
	Errors   []string               `json:"errors,omitempty"`
	Details  map[string]interface{} `json:"details,omitempty"`
}

// AddError 记录错误并把状态抬升到 ERROR
func (c *CheckResult) AddError(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	c.Errors = append(c.Errors, msg)
	c.Issues = append(c.Issues, msg)
	c.Status = MoreSevere(c.Status, CheckStatusError)
}

// AddWarning 记录告警并把状态抬升到 WARNING
func (c *CheckResult) AddWarning(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	c.Warnings = append(c.Warnings, msg)
	c.Status = MoreSevere(c.Status, CheckStatusWarning)
}

// AddMissing 记录实体缺失并把状态抬升到 NOT_FOUND
func (c *CheckResult) AddMissing(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	c.Errors = append(c.Errors, msg)
	c.Issues = append(c.Issues, msg)
	c.Status = MoreSevere(c.Status, CheckStatusNotFound)
}

// SetDetail 附加结构化明细，供诊断命令 --verbose 展示
func (c *CheckResult) SetDetail(key string, value interface{}) {
	if c.Details == nil {
		c.Details = map[string]interface{}{}
	}
	c.Details[key] = value
}

// ClusterCheckReport 集群校验总报告
type ClusterCheckReport struct {
	ClusterId     string        `json:"clusterId"`
	Status        string        `json:"status"`
	Components    []CheckResult `json:"components"`
	Issues        []string      `json:"issues"`
	Warnings      []string      `json:"warnings"`
	Errors        []string      `json:"errors"`
	ExecutionTime float64       `json:"executionTime"` // 秒
}

// Merge 把单项结果并入总报告
func (r *ClusterCheckReport) Merge(c CheckResult) {
	r.Components = append(r.Components, c)
	r.Status = MoreSevere(r.Status, c.Status)
	r.Issues = append(r.Issues, c.Issues...)
	r.Warnings = append(r.Warnings, c.Warnings...)
	r.Errors = append(r.Errors, c.Errors...)
}

// ExitCode 诊断命令的退出码：SUCCESS=0 WARNING=1 其余=2
func (r ClusterCheckReport) ExitCode() int {
	switch r.Status {
	case CheckStatusSuccess, CheckStatusUnknown:
		return 0
	case CheckStatusWarning:
		return 1
	default:
		return 2
	}
}
