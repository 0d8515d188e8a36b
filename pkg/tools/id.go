package tools

import (
	"github.com/google/uuid"
	"github.com/rs/xid"
)

// RandId 生成短随机 ID
func RandId() string {
	return xid.New().String()
}

// RandUid 生成 UUID
func RandUid() string {
	return uuid.NewString()
}
