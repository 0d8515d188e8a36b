package cmdb

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCallCarriesRequestId(t *testing.T) {
	var requestIds []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestIds = append(requestIds, r.Header.Get("X-Request-Id"))
		w.Write([]byte(`{"result":true,"code":0,"data":{"info":[]}}`))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{Endpoint: server.URL})
	for i := 0; i < 2; i++ {
		if _, err := client.ListBizHosts(context.Background(), 2); err != nil {
			t.Fatalf("请求失败: %s", err.Error())
		}
	}

	if len(requestIds) != 2 {
		t.Fatalf("期望 2 次请求, 实际 %d 次", len(requestIds))
	}
	if requestIds[0] == "" || requestIds[1] == "" {
		t.Error("每次请求都应携带 X-Request-Id")
	}
	if requestIds[0] == requestIds[1] {
		t.Error("X-Request-Id 应逐请求生成")
	}
}
