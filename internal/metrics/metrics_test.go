package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestCollector_MiddlewareRecordsRequests(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	handler := c.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/contents", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	body := scrape(t, reg)
	if !strings.Contains(body, "netfrix_http_requests_total") {
		t.Error("netfrix_http_requests_totalが出力されていない")
	}
	if !strings.Contains(body, `status_code="200"`) {
		t.Error("status_codeラベルが記録されていない")
	}
}

func TestCollector_MiddlewareCountsRateLimited(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	handler := c.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))

	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	body := scrape(t, reg)
	if !strings.Contains(body, "netfrix_rate_limited_total 1") {
		t.Errorf("netfrix_rate_limited_total = 1が出力されていない:\n%s", body)
	}
}

// scrape はレジストリの内容をPrometheusテキスト形式で取得する。
func scrape(t *testing.T, reg *prometheus.Registry) string {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status = %d, want 200", rec.Code)
	}
	body, _ := io.ReadAll(rec.Result().Body)
	return string(body)
}
