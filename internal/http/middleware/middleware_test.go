package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/experiments-backend/internal/http/response"
	"github.com/yungbote/experiments-backend/internal/observability"
	"github.com/yungbote/experiments-backend/internal/platform/ctxutil"
	"github.com/yungbote/experiments-backend/internal/platform/logger"
	"github.com/yungbote/experiments-backend/internal/services"
)

func authRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	creds, err := services.NewStaticCredentials(services.DefaultCredentials())
	if err != nil {
		t.Fatalf("NewStaticCredentials: %v", err)
	}
	am := NewAuthMiddleware(logger.Nop(), creds, observability.New())
	r := gin.New()
	r.Use(am.RequireAuth())
	r.GET("/whoami", func(c *gin.Context) {
		cd := ctxutil.GetClientData(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"client_id": cd.ClientID})
	})
	return r
}

func TestRequireAuth(t *testing.T) {
	r := authRouter(t)

	cases := []struct {
		header  string
		status  int
		message string
	}{
		{"", http.StatusUnauthorized, "Missing authorization header"},
		{"test-token-123", http.StatusUnauthorized, "Invalid authorization header format"},
		{"Basic test-token-123", http.StatusUnauthorized, "Invalid authorization header format"},
		{"Bearer a b", http.StatusUnauthorized, "Invalid authorization header format"},
		{"Bearer wrong", http.StatusUnauthorized, "Invalid token"},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if rec.Code != tc.status {
			t.Fatalf("%q: status got=%d want=%d", tc.header, rec.Code, tc.status)
		}
		var env response.ErrorEnvelope
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("%q: decode: %v", tc.header, err)
		}
		if env.Error.Message != tc.message || env.Error.Code != "unauthorized" {
			t.Fatalf("%q: envelope got=%+v", tc.header, env.Error)
		}
	}

	for token, want := range map[string]float64{"test-token-123": 1, "demo-token-456": 2} {
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("Authorization", "bearer "+token)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status got=%d", token, rec.Code)
		}
		var body map[string]float64
		_ = json.Unmarshal(rec.Body.Bytes(), &body)
		if body["client_id"] != want {
			t.Fatalf("%s: client_id got=%v want=%v", token, body["client_id"], want)
		}
	}
}

func TestAttachTraceContext(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AttachTraceContext())
	var seen *ctxutil.TraceData
	r.GET("/", func(c *gin.Context) {
		seen = ctxutil.GetTraceData(c.Request.Context())
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-Id", "req-1")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if seen == nil || seen.RequestID != "req-1" || seen.TraceID == "" {
		t.Fatalf("trace data: %+v", seen)
	}
	if rec.Header().Get("X-Request-Id") != "req-1" || rec.Header().Get("X-Trace-Id") != seen.TraceID {
		t.Fatalf("response headers: %v", rec.Header())
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil).WithContext(context.Background()))
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatal("request id not generated")
	}
}

func TestMetricsMiddlewareUsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := observability.New()
	r := gin.New()
	r.Use(Metrics(m))
	r.GET("/experiments/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, p := range []string{"/experiments/a", "/experiments/b"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, p, nil))
	}
	rec := httptest.NewRecorder()
	m.WriteHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	want := `exp_api_requests_total{method="GET",route="/experiments/:id",status="200"} 2`
	if !strings.Contains(rec.Body.String(), want) {
		t.Fatalf("missing %q in:\n%s", want, rec.Body.String())
	}
}
