package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	nethttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/experiments-backend/internal/data/repos"
	"github.com/yungbote/experiments-backend/internal/data/repos/testutil"
	httpH "github.com/yungbote/experiments-backend/internal/http/handlers"
	httpMW "github.com/yungbote/experiments-backend/internal/http/middleware"
	"github.com/yungbote/experiments-backend/internal/observability"
	"github.com/yungbote/experiments-backend/internal/services"
)

const testToken = "router-test-token"

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.DB(t)
	log := testutil.Logger(t)
	metrics := observability.New()

	experimentRepo := repos.NewExperimentRepo(db, log)
	variantRepo := repos.NewVariantRepo(db, log)
	assignmentRepo := repos.NewAssignmentRepo(db, log)
	eventRepo := repos.NewEventRepo(db, log)

	creds, err := services.NewStaticCredentials([]services.StaticCredential{
		{Token: testToken, ClientID: testutil.ClientID()},
	})
	if err != nil {
		t.Fatalf("credentials: %v", err)
	}

	return NewRouter(RouterConfig{
		Log:            log,
		Metrics:        metrics,
		AuthMiddleware: httpMW.NewAuthMiddleware(log, creds, metrics),
		HealthHandler:  httpH.NewHealthHandler("Experimentation Platform API", "test"),
		ExperimentHandler: httpH.NewExperimentHandler(
			services.NewExperimentService(db, log, experimentRepo, nil, metrics),
			services.NewAssignmentService(db, log, experimentRepo, variantRepo, assignmentRepo, nil, metrics),
			services.NewResultsService(db, log, experimentRepo, assignmentRepo, eventRepo, metrics),
		),
		EventHandler: httpH.NewEventHandler(services.NewEventService(db, log, eventRepo, metrics)),
	})
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any, out any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+testToken)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if out != nil && rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("decode %s %s: %v (%s)", method, path, err, rec.Body.String())
		}
	}
	return rec
}

func TestExperimentLifecycle(t *testing.T) {
	r := newTestRouter(t)

	var exp struct {
		ID       string `json:"id"`
		Variants []struct {
			ID   uint   `json:"id"`
			Name string `json:"name"`
		} `json:"variants"`
	}
	rec := doJSON(t, r, nethttp.MethodPost, "/experiments", map[string]any{
		"name": "checkout button",
		"variants": []map[string]any{
			{"name": "control", "traffic_allocation": 50},
			{"name": "treatment", "traffic_allocation": 50},
		},
	}, &exp)
	if rec.Code != nethttp.StatusCreated {
		t.Fatalf("create: got=%d body=%s", rec.Code, rec.Body.String())
	}
	if len(exp.Variants) != 2 {
		t.Fatalf("variants: got=%d want=2", len(exp.Variants))
	}

	var first, second services.Assignment
	path := fmt.Sprintf("/experiments/%s/assignment/user-1", exp.ID)
	if rec := doJSON(t, r, nethttp.MethodGet, path, nil, &first); rec.Code != nethttp.StatusOK {
		t.Fatalf("assign: got=%d body=%s", rec.Code, rec.Body.String())
	}
	doJSON(t, r, nethttp.MethodGet, path, nil, &second)
	if first.VariantID != second.VariantID || first.ID != second.ID {
		t.Fatalf("assignment not sticky: first=%+v second=%+v", first, second)
	}
	if first.VariantName == "" {
		t.Fatal("variant_name should be set")
	}

	rec = doJSON(t, r, nethttp.MethodPost, "/events", map[string]any{
		"user_id":    "user-1",
		"type":       "purchase",
		"timestamp":  time.Now().UTC().Add(time.Hour).Format(time.RFC3339),
		"properties": map[string]any{"amount": 12.5},
	}, nil)
	if rec.Code != nethttp.StatusCreated {
		t.Fatalf("event: got=%d body=%s", rec.Code, rec.Body.String())
	}

	var res struct {
		TotalUsers int `json:"total_users"`
		Variants   []struct {
			VariantID  uint `json:"variant_id"`
			UserCount  int  `json:"user_count"`
			EventCount int  `json:"event_count"`
		} `json:"variants"`
		Summary struct {
			TotalEvents int `json:"total_events"`
		} `json:"summary"`
	}
	rec = doJSON(t, r, nethttp.MethodGet, fmt.Sprintf("/experiments/%s/results?event_type=purchase", exp.ID), nil, &res)
	if rec.Code != nethttp.StatusOK {
		t.Fatalf("results: got=%d body=%s", rec.Code, rec.Body.String())
	}
	if res.TotalUsers != 1 || res.Summary.TotalEvents != 1 {
		t.Fatalf("results: got users=%d events=%d want 1/1", res.TotalUsers, res.Summary.TotalEvents)
	}
	for _, v := range res.Variants {
		want := 0
		if v.VariantID == first.VariantID {
			want = 1
		}
		if v.EventCount != want || v.UserCount != want {
			t.Fatalf("variant %d: got users=%d events=%d want %d", v.VariantID, v.UserCount, v.EventCount, want)
		}
	}

	if rec := doJSON(t, r, nethttp.MethodDelete, "/experiments/"+exp.ID, nil, nil); rec.Code != nethttp.StatusNoContent {
		t.Fatalf("delete: got=%d", rec.Code)
	}
	if rec := doJSON(t, r, nethttp.MethodGet, "/experiments/"+exp.ID, nil, nil); rec.Code != nethttp.StatusNotFound {
		t.Fatalf("get after delete: got=%d", rec.Code)
	}
}

func TestValidationErrors(t *testing.T) {
	r := newTestRouter(t)

	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	rec := doJSON(t, r, nethttp.MethodPost, "/experiments", map[string]any{
		"name":     "bad",
		"variants": []map[string]any{{"name": "a", "traffic_allocation": 30}},
	}, &body)
	if rec.Code != nethttp.StatusBadRequest || body.Error.Code != "validation_error" {
		t.Fatalf("create: got=%d code=%q", rec.Code, body.Error.Code)
	}

	req := httptest.NewRequest(nethttp.MethodPost, "/events", bytes.NewBufferString("{not json"))
	req.Header.Set("Authorization", "Bearer "+testToken)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != nethttp.StatusBadRequest {
		t.Fatalf("malformed body: got=%d", rec.Code)
	}

	rec = doJSON(t, r, nethttp.MethodGet, "/experiments/not-a-uuid/results?start_date=yesterday", nil, nil)
	if rec.Code != nethttp.StatusNotFound {
		t.Fatalf("results malformed id: got=%d", rec.Code)
	}
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	r := newTestRouter(t)
	for _, path := range []string{"/experiments", "/experiments/x", "/experiments/x/results"} {
		req := httptest.NewRequest(nethttp.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if rec.Code != nethttp.StatusUnauthorized {
			t.Fatalf("%s: got=%d want=401", path, rec.Code)
		}
	}
}

func TestHealthRoutesArePublic(t *testing.T) {
	r := newTestRouter(t)
	cases := []struct {
		path string
		want string
	}{
		{"/health", `{"status":"healthy"}`},
		{"/healthcheck", "ok"},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(nethttp.MethodGet, tc.path, nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if rec.Code != nethttp.StatusOK || rec.Body.String() != tc.want {
			t.Fatalf("%s: got=%d body=%q", tc.path, rec.Code, rec.Body.String())
		}
	}

	req := httptest.NewRequest(nethttp.MethodGet, "/nope", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != nethttp.StatusNotFound {
		t.Fatalf("no route: got=%d", rec.Code)
	}
}
