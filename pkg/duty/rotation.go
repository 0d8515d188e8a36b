package duty

import (
	"monitorHub/internal/models"
)

// usersAt 计算第 k 个交接周期（从生效时间起 0 基）当班的人员。
// specified 按槽位轮转，auto 在扁平名单上按 group_number 滑动取窗，
// 不足一窗时回绕到名单头部。
func usersAt(arrange models.DutyArrange, k int) []models.DutyUser {
	if len(arrange.DutyUsers) == 0 {
		return nil
	}

	if arrange.GroupType == models.DutyGroupAuto && arrange.GroupNumber > 0 {
		flat := flattenUsers(arrange.DutyUsers)
		if len(flat) == 0 {
			return nil
		}
		n := arrange.GroupNumber
		start := (k * n) % len(flat)
		users := make([]models.DutyUser, 0, n)
		for i := 0; i < n; i++ {
			users = append(users, flat[(start+i)%len(flat)])
		}
		return users
	}

	slot := arrange.DutyUsers[k%len(arrange.DutyUsers)]
	users := make([]models.DutyUser, len(slot))
	copy(users, slot)
	return users
}

func flattenUsers(slots [][]models.DutyUser) []models.DutyUser {
	var flat []models.DutyUser
	for _, slot := range slots {
		flat = append(flat, slot...)
	}
	return flat
}

// sameUsers 比较两个人员列表是否完全一致（含顺序）
func sameUsers(a, b []models.DutyUser) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID || a[i].Type != b[i].Type {
			return false
		}
	}
	return true
}

// interleave 按列交错合并多个 DutyTime 的周期序列，
// 同一轮次内各 DutyTime 的周期依次占用交接序号
func interleave(perDutyTime [][]period) []period {
	maxLen := 0
	for _, ps := range perDutyTime {
		if len(ps) > maxLen {
			maxLen = len(ps)
		}
	}

	var flat []period
	for i := 0; i < maxLen; i++ {
		for _, ps := range perDutyTime {
			if i < len(ps) {
				flat = append(flat, ps[i])
			}
		}
	}
	return flat
}
