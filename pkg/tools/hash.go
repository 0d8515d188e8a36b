package tools

import (
	"crypto/md5"
	"encoding/hex"
)

// Md5Hash 计算内容的 md5 摘要（十六进制小写）
func Md5Hash(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

// Md5HashString 计算字符串内容的 md5 摘要
func Md5HashString(s string) string {
	return Md5Hash([]byte(s))
}
