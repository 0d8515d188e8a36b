package tools

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Get 发送 GET 请求，timeout 单位为秒
func Get(headers map[string]string, url string, timeout int) (*http.Response, error) {
	return doRequest(context.Background(), http.MethodGet, url, headers, nil, timeout)
}

// Post 发送 POST 请求，body 为 JSON 字节
func Post(headers map[string]string, url string, body []byte, timeout int) (*http.Response, error) {
	return doRequest(context.Background(), http.MethodPost, url, headers, body, timeout)
}

// GetWithCtx 带取消的 GET 请求
func GetWithCtx(ctx context.Context, headers map[string]string, url string, timeout int) (*http.Response, error) {
	return doRequest(ctx, http.MethodGet, url, headers, nil, timeout)
}

// PostWithCtx 带取消的 POST 请求
func PostWithCtx(ctx context.Context, headers map[string]string, url string, body []byte, timeout int) (*http.Response, error) {
	return doRequest(ctx, http.MethodPost, url, headers, body, timeout)
}

func doRequest(ctx context.Context, method, url string, headers map[string]string, body []byte, timeout int) (*http.Response, error) {
	if timeout <= 0 {
		timeout = 30
	}
	client := &http.Client{
		Timeout: time.Duration(timeout) * time.Second,
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("构建请求失败: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return client.Do(req)
}

// CreateBasicAuthHeader 构建 Basic Auth 请求头
func CreateBasicAuthHeader(user, pass string) map[string]string {
	if user == "" {
		return nil
	}
	req, _ := http.NewRequest(http.MethodGet, "http://placeholder", nil)
	req.SetBasicAuth(user, pass)
	return map[string]string{
		"Authorization": req.Header.Get("Authorization"),
	}
}
