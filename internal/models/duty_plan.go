package models

// DutyPlan 排班计算产物，按规则内交接顺序编号
type DutyPlan struct {
	ID           string     `json:"id"`
	TenantId     string     `json:"tenantId"`
	UserGroupId  string     `json:"userGroupId"`
	DutyRuleId   string     `json:"dutyRuleId"`
	IsEffective  int        `json:"isEffective"`
	StartTime    string     `json:"startTime"`
	FinishedTime string     `json:"finishedTime"`
	Order        int        `json:"order"`
	UserIndex    int        `json:"userIndex"`
	Users        []DutyUser `json:"users" gorm:"users;serializer:json"`
	WorkTimes    []WorkTime `json:"workTimes" gorm:"work_times;serializer:json"`
	LastSendTime int64      `json:"lastSendTime"` // 个人通知发送时间戳，0 表示未发送
}

func (DutyPlan) TableName() string {
	return "w8t_duty_plan"
}

// DutyRuleSnap 规则绑定到用户组时的快照，排班的推进状态随快照保存
type DutyRuleSnap struct {
	ID                 string   `json:"id"`
	TenantId           string   `json:"tenantId"`
	UserGroupId        string   `json:"userGroupId"`
	DutyRuleId         string   `json:"dutyRuleId"`
	Enabled            bool     `json:"enabled"`
	NextPlanTime       string   `json:"nextPlanTime"`
	NextUserIndex      int      `json:"nextUserIndex"`
	FirstEffectiveTime string   `json:"firstEffectiveTime"`
	EndTime            string   `json:"endTime"`
	RuleSnap           DutyRule `json:"ruleSnap" gorm:"rule_snap;serializer:json"`
}

func (DutyRuleSnap) TableName() string {
	return "w8t_duty_rule_snap"
}

// PlanNoticeConfig 值班表整体通知配置
type PlanNoticeConfig struct {
	Enabled bool     `json:"enabled"`
	Days    int      `json:"days"` // 通知内容覆盖的天数
	Type    string   `json:"type"` // weekly / monthly
	Date    int      `json:"date"` // 周几或几号发送
	Time    string   `json:"time"` // "HH:MM"
	ChatIds []string `json:"chat_ids"`
}

// PersonalNoticeConfig 个人值班提醒配置
type PersonalNoticeConfig struct {
	Enabled   bool     `json:"enabled"`
	HoursAgo  int      `json:"hours_ago"`
	DutyRules []string `json:"duty_rules,omitempty"`
}

type DutyNoticeConfig struct {
	PlanNotice     *PlanNoticeConfig     `json:"plan_notice,omitempty"`
	PersonalNotice *PersonalNoticeConfig `json:"personal_notice,omitempty"`
}

// UserGroup 告警用户组，可绑定多个轮值规则
type UserGroup struct {
	TenantId   string           `json:"tenantId"`
	ID         string           `json:"id"`
	BkBizId    int64            `json:"bkBizId"`
	Name       string           `json:"name"`
	NeedDuty   bool             `json:"needDuty"`
	DutyRules  []string         `json:"dutyRules" gorm:"duty_rules;serializer:json"`
	DutyNotice DutyNoticeConfig `json:"dutyNotice" gorm:"duty_notice;serializer:json"`
	TimeZone   string           `json:"timeZone"`
}

func (UserGroup) TableName() string {
	return "w8t_user_group"
}

// DutyPlanSendRecord 排班通知发送记录，用于周期幂等去重
type DutyPlanSendRecord struct {
	UserGroupId  string `json:"userGroupId"`
	WindowKey    int64  `json:"windowKey"` // floor(发送时间 / 周期)
	LastSendTime int64  `json:"lastSendTime"`
}

func (DutyPlanSendRecord) TableName() string {
	return "w8t_duty_plan_send_record"
}
