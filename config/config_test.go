package config

import "testing"

func TestInitConfigDefaults(t *testing.T) {
	cfg := InitConfig()

	if cfg.Server.Port != "9001" {
		t.Errorf("默认端口应为 9001, 实际 %s", cfg.Server.Port)
	}
	if cfg.Duty.PlanDays != 30 {
		t.Errorf("默认排班水平线应为 30 天, 实际 %d", cfg.Duty.PlanDays)
	}
	if cfg.Collect.ReconcileIntervalMinutes != 5 {
		t.Errorf("默认巡检周期应为 5 分钟, 实际 %d", cfg.Collect.ReconcileIntervalMinutes)
	}
	// 联邦关系缺失默认按 WARNING 处理, 按 ERROR 处理需要显式开启
	if cfg.Cluster.StrictFederation {
		t.Error("strictFederation 默认应为 false")
	}
}
