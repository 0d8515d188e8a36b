package tools

import (
	"github.com/bytedance/sonic"
)

// JsonMarshalToString 序列化为 JSON 字符串，失败时返回空串
func JsonMarshalToString(v interface{}) string {
	s, err := sonic.MarshalString(v)
	if err != nil {
		return ""
	}
	return s
}

// JsonMarshal 序列化为 JSON 字节
func JsonMarshal(v interface{}) ([]byte, error) {
	return sonic.Marshal(v)
}

// JsonUnmarshal 反序列化 JSON 字节
func JsonUnmarshal(data []byte, v interface{}) error {
	return sonic.Unmarshal(data, v)
}

// JsonUnmarshalString 反序列化 JSON 字符串
func JsonUnmarshalString(data string, v interface{}) error {
	return sonic.UnmarshalString(data, v)
}
