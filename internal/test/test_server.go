package test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/OV1-Kenobi/satnam-pub-sub005/internal/api"
	"github.com/OV1-Kenobi/satnam-pub-sub005/internal/api/router"
	"github.com/OV1-Kenobi/satnam-pub-sub005/internal/config"
)

// NewTestServerConfig 返回面向测试的配置，全部使用进程内驱动
func NewTestServerConfig() config.Server {
	cfg := config.DefaultServiceConfigFromEnv()

	cfg.Store.Driver = config.StoreDriverMemory
	cfg.Messenger.Driver = config.MessengerDriverChannel
	cfg.Relay.Driver = config.RelayDriverLog

	return cfg
}

// NewTestServer 构建一个完整接线的服务器实例，路由已挂载，未监听端口
func NewTestServer(t *testing.T, options ...func(*config.Server)) *api.Server {
	t.Helper()

	cfg := NewTestServerConfig()
	for _, option := range options {
		option(&cfg)
	}

	s, err := api.InitNewServer(cfg)
	if err != nil {
		t.Fatal("Failed to initialize the test server", err)
	}

	router.Init(s)

	return s
}

// GenericPayload 任意 JSON 请求体
type GenericPayload map[string]interface{}

func (p GenericPayload) Reader(t *testing.T) *bytes.Reader {
	t.Helper()

	data, err := json.Marshal(p)
	if err != nil {
		t.Fatal("Failed to marshal the test payload", err)
	}

	return bytes.NewReader(data)
}

// PerformRequest 将请求直接送入 Echo 处理链，返回录制的响应
func PerformRequest(t *testing.T, s *api.Server, method, path string, body GenericPayload, headers http.Header) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, body.Reader(t))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for key, values := range headers {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	rec := httptest.NewRecorder()
	s.Echo.ServeHTTP(rec, req)

	return rec
}

// ParseResponseBody 解析录制的 JSON 响应体
func ParseResponseBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()

	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("Failed to parse the response body %q: %v", rec.Body.String(), err)
	}
}
