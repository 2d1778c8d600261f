package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	applog "subtrack/internal/log"
	"subtrack/internal/store/memory"
)

func newTestServer(t *testing.T, opts Options) *Server {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = applog.New(applog.Config{Output: io.Discard})
	}
	if opts.CORSAllowedOrigins == nil {
		opts.CORSAllowedOrigins = []string{"*"}
	}
	srv := NewServer(":0", NewDeps(memory.New(), nil), opts)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode body %q: %v", rr.Body.String(), err)
	}
	return v
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	env := decodeBody[ErrorEnvelope](t, rr)
	if env.Success {
		t.Fatalf("error envelope must have success=false: %s", rr.Body.String())
	}
	return env.Error.Code
}

const netflixJSON = `{"name":"Netflix","category":"Streaming","amount_cents":1299,"billing_cycle":"MONTHLY","start_date":"2025-01-15","cancel_url":"https://www.netflix.com/cancelplan"}`

func createSubscription(t *testing.T, srv *Server, body string) map[string]any {
	t.Helper()
	rr := do(t, srv, http.MethodPost, "/api/subscriptions", body)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body.String())
	}
	return decodeBody[map[string]any](t, rr)
}

func TestBannerAndHealth(t *testing.T) {
	srv := newTestServer(t, Options{})

	rr := do(t, srv, http.MethodGet, "/api/", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("banner status=%d", rr.Code)
	}
	if msg := decodeBody[bannerResponse](t, rr).Message; msg != "Subscription & Expense Tracker API" {
		t.Fatalf("unexpected banner %q", msg)
	}

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := do(t, srv, http.MethodGet, path, "")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}
}

func TestSubscriptionLifecycle(t *testing.T) {
	srv := newTestServer(t, Options{})

	created := createSubscription(t, srv, netflixJSON)
	id, _ := created["id"].(string)
	if id == "" {
		t.Fatalf("missing id in %v", created)
	}
	if created["created_at"] == nil || created["amount_cents"].(float64) != 1299 {
		t.Fatalf("unexpected created record %v", created)
	}

	rr := do(t, srv, http.MethodGet, "/api/subscriptions/"+id, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("get status=%d", rr.Code)
	}

	rr = do(t, srv, http.MethodPut, "/api/subscriptions/"+id, `{"amount_cents":1499,"notes":null}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("update status=%d body=%s", rr.Code, rr.Body.String())
	}
	updated := decodeBody[map[string]any](t, rr)
	if updated["amount_cents"].(float64) != 1499 || updated["name"] != "Netflix" || updated["updated_at"] == nil {
		t.Fatalf("unexpected updated record %v", updated)
	}

	createSubscription(t, srv, `{"name":"Adobe","category":"Software","amount_cents":11988,"billing_cycle":"YEARLY","start_date":"2025-03-01"}`)
	rr = do(t, srv, http.MethodGet, "/api/subscriptions", "")
	list := decodeBody[[]map[string]any](t, rr)
	if len(list) != 2 || list[0]["name"] != "Adobe" || list[1]["name"] != "Netflix" {
		t.Fatalf("list must be sorted by name, got %v", list)
	}

	rr = do(t, srv, http.MethodDelete, "/api/subscriptions/"+id, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("delete status=%d", rr.Code)
	}
	if env := decodeBody[SuccessEnvelope](t, rr); !env.Success || env.Message != "Subscription deleted" {
		t.Fatalf("unexpected delete response %+v", env)
	}

	rr = do(t, srv, http.MethodGet, "/api/subscriptions/"+id, "")
	if rr.Code != http.StatusNotFound || errorCode(t, rr) != "NOT_FOUND" {
		t.Fatalf("get after delete status=%d body=%s", rr.Code, rr.Body.String())
	}
	rr = do(t, srv, http.MethodDelete, "/api/subscriptions/"+id, "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("second delete status=%d", rr.Code)
	}
}

func TestSubscriptionMultibyteLimits(t *testing.T) {
	srv := newTestServer(t, Options{})

	name := strings.Repeat("ü", 150)
	body := `{"name":"` + name + `","category":"Lebensmittel","amount_cents":500,"billing_cycle":"MONTHLY","start_date":"2025-01-01"}`
	rr := do(t, srv, http.MethodPost, "/api/subscriptions", body)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	if got := decodeBody[map[string]any](t, rr)["name"]; got != name {
		t.Fatalf("name not stored intact: %v", got)
	}

	body = `{"name":"` + strings.Repeat("ü", 201) + `","category":"x","amount_cents":500,"billing_cycle":"MONTHLY","start_date":"2025-01-01"}`
	if rr := do(t, srv, http.MethodPost, "/api/subscriptions", body); rr.Code != http.StatusBadRequest {
		t.Fatalf("201 characters: status=%d", rr.Code)
	}
}

func TestSubscriptionValidationErrors(t *testing.T) {
	srv := newTestServer(t, Options{})
	existing := createSubscription(t, srv, netflixJSON)["id"].(string)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		code   string
	}{
		{"missing name", http.MethodPost, "/api/subscriptions", `{"category":"x","amount_cents":100,"billing_cycle":"MONTHLY","start_date":"2025-01-01"}`, 400, "VALIDATION_ERROR"},
		{"zero amount", http.MethodPost, "/api/subscriptions", `{"name":"a","category":"x","amount_cents":0,"billing_cycle":"MONTHLY","start_date":"2025-01-01"}`, 400, "VALIDATION_ERROR"},
		{"amount too large", http.MethodPost, "/api/subscriptions", `{"name":"a","category":"x","amount_cents":10000000001,"billing_cycle":"MONTHLY","start_date":"2025-01-01"}`, 400, "VALIDATION_ERROR"},
		{"patch amount too large", http.MethodPut, "/api/subscriptions/" + existing, `{"amount_cents":10000000001}`, 400, "VALIDATION_ERROR"},
		{"fractional amount", http.MethodPost, "/api/subscriptions", `{"name":"a","category":"x","amount_cents":12.5,"billing_cycle":"MONTHLY","start_date":"2025-01-01"}`, 400, "VALIDATION_ERROR"},
		{"bad cycle", http.MethodPost, "/api/subscriptions", `{"name":"a","category":"x","amount_cents":100,"billing_cycle":"WEEKLY","start_date":"2025-01-01"}`, 400, "VALIDATION_ERROR"},
		{"bad date", http.MethodPost, "/api/subscriptions", `{"name":"a","category":"x","amount_cents":100,"billing_cycle":"MONTHLY","start_date":"01.01.2025"}`, 400, "VALIDATION_ERROR"},
		{"bad cancel url", http.MethodPost, "/api/subscriptions", `{"name":"a","category":"x","amount_cents":100,"billing_cycle":"MONTHLY","start_date":"2025-01-01","cancel_url":"ftp://x"}`, 400, "VALIDATION_ERROR"},
		{"malformed json", http.MethodPost, "/api/subscriptions", `{"name":`, 400, "VALIDATION_ERROR"},
		{"empty body", http.MethodPost, "/api/subscriptions", "", 400, "VALIDATION_ERROR"},
		{"empty patch", http.MethodPut, "/api/subscriptions/" + existing, `{}`, 400, "VALIDATION_ERROR"},
		{"malformed id", http.MethodGet, "/api/subscriptions/not-an-id", "", 400, "VALIDATION_ERROR"},
		{"unknown id", http.MethodPut, "/api/subscriptions/00000000-0000-0000-0000-000000000000", `{"name":"x"}`, 404, "NOT_FOUND"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, srv, tt.method, tt.path, tt.body)
			if rr.Code != tt.status {
				t.Fatalf("status=%d want %d body=%s", rr.Code, tt.status, rr.Body.String())
			}
			if code := errorCode(t, rr); code != tt.code {
				t.Fatalf("code=%s want %s", code, tt.code)
			}
		})
	}

	rr := do(t, srv, http.MethodGet, "/api/subscriptions", "")
	if n := len(decodeBody[[]map[string]any](t, rr)); n != 1 {
		t.Fatalf("rejected writes must not persist, have %d records", n)
	}
}

func TestExpenseLifecycle(t *testing.T) {
	srv := newTestServer(t, Options{})

	rr := do(t, srv, http.MethodPost, "/api/expenses", `{"name":"Miete","category":"Wohnen","amount_cents":95000,"billing_cycle":"MONTHLY"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body.String())
	}
	id := decodeBody[map[string]any](t, rr)["id"].(string)

	rr = do(t, srv, http.MethodPut, "/api/expenses/"+id, `{"category":"Miete & Wohnen"}`)
	if rr.Code != http.StatusOK || decodeBody[map[string]any](t, rr)["category"] != "Miete & Wohnen" {
		t.Fatalf("update status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr = do(t, srv, http.MethodDelete, "/api/expenses/"+id, "")
	if env := decodeBody[SuccessEnvelope](t, rr); rr.Code != http.StatusOK || env.Message != "Expense deleted" {
		t.Fatalf("delete status=%d body=%s", rr.Code, rr.Body.String())
	}
}

func TestMethodNotAllowedAndUnknownRoute(t *testing.T) {
	srv := newTestServer(t, Options{})

	rr := do(t, srv, http.MethodPatch, "/api/subscriptions", `{}`)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status=%d", rr.Code)
	}
	if allow := rr.Header().Get("Allow"); allow != "GET, POST" {
		t.Fatalf("Allow=%q", allow)
	}
	if code := errorCode(t, rr); code != CodeMethodNotAllowed {
		t.Fatalf("code=%s", code)
	}

	rr = do(t, srv, http.MethodGet, "/api/nope", "")
	if rr.Code != http.StatusNotFound || errorCode(t, rr) != "NOT_FOUND" {
		t.Fatalf("unknown route status=%d body=%s", rr.Code, rr.Body.String())
	}
}

func TestDashboardCacheInvalidatedOnMutation(t *testing.T) {
	srv := newTestServer(t, Options{DashboardCacheTTL: time.Minute})

	rr := do(t, srv, http.MethodGet, "/api/dashboard", "")
	if got := decodeBody[map[string]any](t, rr)["total_monthly"].(float64); got != 0 {
		t.Fatalf("empty dashboard total=%v", got)
	}

	createSubscription(t, srv, `{"name":"Adobe","category":"Software","amount_cents":11988,"billing_cycle":"YEARLY","start_date":"2025-03-01"}`)
	rr = do(t, srv, http.MethodPost, "/api/expenses", `{"name":"Strom","category":"Wohnen","amount_cents":8500,"billing_cycle":"MONTHLY"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create expense status=%d", rr.Code)
	}

	rr = do(t, srv, http.MethodGet, "/api/dashboard", "")
	dash := decodeBody[map[string]any](t, rr)
	want := map[string]float64{
		"monthly_subscriptions": 999,
		"monthly_expenses":      8500,
		"total_monthly":         9499,
		"yearly_total":          8500*12 + 11988,
		"subscription_count":    1,
		"expense_count":         1,
	}
	for k, v := range want {
		if dash[k].(float64) != v {
			t.Errorf("%s=%v want %v", k, dash[k], v)
		}
	}
}

func TestAnalyticsEndpoints(t *testing.T) {
	srv := newTestServer(t, Options{DashboardCacheTTL: time.Minute})
	createSubscription(t, srv, netflixJSON)
	createSubscription(t, srv, `{"name":"Spotify","category":"Streaming","amount_cents":999,"billing_cycle":"MONTHLY","start_date":"2025-02-01"}`)
	createSubscription(t, srv, `{"name":"Adobe","category":"Software","amount_cents":23988,"billing_cycle":"YEARLY","start_date":"2025-03-01"}`)

	rr := do(t, srv, http.MethodGet, "/api/analytics/category-breakdown", "")
	breakdown := decodeBody[[]map[string]any](t, rr)
	if len(breakdown) != 2 || breakdown[0]["category"] != "Streaming" || breakdown[0]["monthly_cents"].(float64) != 2298 {
		t.Fatalf("unexpected breakdown %v", breakdown)
	}

	rr = do(t, srv, http.MethodGet, "/api/analytics/top-subscriptions?limit=1", "")
	top := decodeBody[[]map[string]any](t, rr)
	if len(top) != 1 || top[0]["name"] != "Adobe" || top[0]["monthly_cents"].(float64) != 1999 {
		t.Fatalf("unexpected top list %v", top)
	}

	rr = do(t, srv, http.MethodGet, "/api/analytics/top-subscriptions", "")
	if n := len(decodeBody[[]map[string]any](t, rr)); n != 3 {
		t.Fatalf("default limit must return all 3, got %d", n)
	}

	for _, q := range []string{"0", "-2", "abc"} {
		rr = do(t, srv, http.MethodGet, "/api/analytics/top-subscriptions?limit="+q, "")
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("limit=%s status=%d", q, rr.Code)
		}
	}
}

func TestScheduledNotifications(t *testing.T) {
	srv := newTestServer(t, Options{})
	id := createSubscription(t, srv, netflixJSON)["id"].(string)

	rr := do(t, srv, http.MethodGet, "/api/notifications/scheduled?today=2025-06-14", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	got := decodeBody[map[string]any](t, rr)
	if got["count"].(float64) != 1 {
		t.Fatalf("expected one notification, got %v", got)
	}
	n := got["notifications"].([]any)[0].(map[string]any)
	if n["subscription_id"] != id || n["scheduled_date"] != "2025-06-15" || n["days_until"].(float64) != 1 || n["type"] != "renewal" {
		t.Fatalf("unexpected notification %v", n)
	}
	if skipped, ok := got["skipped"].([]any); !ok || len(skipped) != 0 {
		t.Fatalf("skipped must be an empty list, got %v", got["skipped"])
	}

	rr = do(t, srv, http.MethodPut, "/api/notifications/subscription/"+id, `{"enabled":false}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("update notification status=%d body=%s", rr.Code, rr.Body.String())
	}
	rr = do(t, srv, http.MethodGet, "/api/notifications/scheduled?today=2025-06-14", "")
	if decodeBody[map[string]any](t, rr)["count"].(float64) != 0 {
		t.Fatalf("disabled override must suppress notifications")
	}

	rr = do(t, srv, http.MethodGet, "/api/notifications/scheduled?today=14.06.2025", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("bad today status=%d", rr.Code)
	}
}

func TestNotificationSettingsEndpoints(t *testing.T) {
	srv := newTestServer(t, Options{})
	id := createSubscription(t, srv, netflixJSON)["id"].(string)

	rr := do(t, srv, http.MethodGet, "/api/notifications/subscription/"+id, "")
	ns := decodeBody[map[string]any](t, rr)
	if rr.Code != http.StatusOK || ns["enabled"] != true || len(ns["days_before"].([]any)) != 3 {
		t.Fatalf("unexpected defaults %v", ns)
	}

	rr = do(t, srv, http.MethodPut, "/api/notifications/subscription/"+id, `{"days_before":[2],"custom_message":"Kündigen?"}`)
	ns = decodeBody[map[string]any](t, rr)
	if rr.Code != http.StatusOK || ns["custom_message"] != "Kündigen?" || len(ns["days_before"].([]any)) != 1 {
		t.Fatalf("unexpected update %v", ns)
	}

	rr = do(t, srv, http.MethodPut, "/api/notifications/subscription/"+id, `{"days_before":[-1]}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("negative offset status=%d", rr.Code)
	}

	rr = do(t, srv, http.MethodPut, "/api/notifications/subscription/"+id, `{"days_before":[]}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("empty offsets status=%d", rr.Code)
	}

	rr = do(t, srv, http.MethodGet, "/api/notifications/subscription/00000000-0000-0000-0000-000000000000", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("unknown subscription status=%d", rr.Code)
	}
}

func TestSettingsEndpoints(t *testing.T) {
	srv := newTestServer(t, Options{})

	rr := do(t, srv, http.MethodGet, "/api/settings", "")
	settings := decodeBody[map[string]any](t, rr)
	if settings["currency"] != "EUR" || settings["theme"] != "dark" || settings["backup_interval"] != "weekly" {
		t.Fatalf("unexpected defaults %v", settings)
	}

	rr = do(t, srv, http.MethodPut, "/api/settings", `{"theme":"light","notification_days_before":[2,5]}`)
	settings = decodeBody[map[string]any](t, rr)
	if rr.Code != http.StatusOK || settings["theme"] != "light" || settings["currency"] != "EUR" {
		t.Fatalf("unexpected update %v", settings)
	}

	for _, body := range []string{`{"theme":"neon"}`, `{"currency":"EURO"}`, `{"notification_time":"9 Uhr"}`, `{"backup_interval":"hourly"}`, `{"notification_days_before":[]}`} {
		rr = do(t, srv, http.MethodPut, "/api/settings", body)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("%s status=%d", body, rr.Code)
		}
	}
}

func TestDemoExportImportReset(t *testing.T) {
	srv := newTestServer(t, Options{DashboardCacheTTL: time.Minute})

	rr := do(t, srv, http.MethodPost, "/api/demo-data", "")
	demo := decodeBody[demoDataResponse](t, rr)
	if rr.Code != http.StatusOK || demo.Subscriptions != 4 || demo.Expenses != 5 || demo.Message != "Demo data loaded" {
		t.Fatalf("unexpected demo response %d %+v", rr.Code, demo)
	}

	rr = do(t, srv, http.MethodGet, "/api/export/json", "")
	exported := rr.Body.String()
	dump := decodeBody[map[string]any](t, rr)
	if dump["app_name"] != "SubTrack" || len(dump["subscriptions"].([]any)) != 4 {
		t.Fatalf("unexpected export %v", dump)
	}

	rr = do(t, srv, http.MethodGet, "/api/export/csv", "")
	csvDump := decodeBody[map[string]any](t, rr)
	if !strings.HasPrefix(csvDump["subscriptions_csv"].(string), "id,name,category,amount,billing_cycle") {
		t.Fatalf("unexpected csv export %v", csvDump["subscriptions_csv"])
	}

	rr = do(t, srv, http.MethodPost, "/api/import/json?merge=true", exported)
	imp := decodeBody[importResponse](t, rr)
	if rr.Code != http.StatusOK || !imp.Merged || imp.SubscriptionsImported != 4 || imp.ExpensesImported != 5 || imp.Message != "Data merged" {
		t.Fatalf("unexpected merge import %d %+v", rr.Code, imp)
	}
	rr = do(t, srv, http.MethodGet, "/api/dashboard", "")
	if n := decodeBody[map[string]any](t, rr)["subscription_count"].(float64); n != 8 {
		t.Fatalf("merge must append, have %v subscriptions", n)
	}

	rr = do(t, srv, http.MethodPost, "/api/import/json", exported)
	if imp := decodeBody[importResponse](t, rr); imp.Merged || imp.SubscriptionsImported != 4 || imp.Message != "Data imported" {
		t.Fatalf("unexpected replace import %+v", imp)
	}

	rr = do(t, srv, http.MethodPost, "/api/import/json", `{"subscriptions":[{"name":"x","category":"y","amount_cents":-1,"billing_cycle":"MONTHLY","start_date":"2025-01-01"}]}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("invalid import status=%d", rr.Code)
	}

	rr = do(t, srv, http.MethodDelete, "/api/data/all", "")
	if env := decodeBody[SuccessEnvelope](t, rr); rr.Code != http.StatusOK || env.Message != "All data deleted" {
		t.Fatalf("reset status=%d message=%q", rr.Code, env.Message)
	}
	rr = do(t, srv, http.MethodGet, "/api/dashboard", "")
	dash := decodeBody[map[string]any](t, rr)
	if dash["subscription_count"].(float64) != 0 || dash["expense_count"].(float64) != 0 {
		t.Fatalf("reset must empty both collections, got %v", dash)
	}
}

func TestRateLimitEnvelope(t *testing.T) {
	srv := newTestServer(t, Options{RateLimitPerMinute: 2})

	for i := 0; i < 2; i++ {
		if rr := do(t, srv, http.MethodGet, "/api/", ""); rr.Code != http.StatusOK {
			t.Fatalf("request %d status=%d", i, rr.Code)
		}
	}
	rr := do(t, srv, http.MethodGet, "/api/", "")
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("status=%d", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Fatalf("missing Retry-After")
	}
	if code := errorCode(t, rr); code != CodeRateLimited {
		t.Fatalf("code=%s", code)
	}

	if rr := do(t, srv, http.MethodGet, "/healthz", ""); rr.Code != http.StatusOK {
		t.Fatalf("health checks must not be rate limited, status=%d", rr.Code)
	}
}

func TestResponseHeaders(t *testing.T) {
	srv := newTestServer(t, Options{})

	req := httptest.NewRequest(http.MethodGet, "/api/subscriptions", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)

	if got := rr.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Fatalf("request id not echoed, got %q", got)
	}
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("missing security headers")
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("Content-Type=%q", ct)
	}
	if strings.TrimSpace(rr.Body.String()) != "[]" {
		t.Fatalf("empty list must encode as [], got %s", rr.Body.String())
	}

	req = httptest.NewRequest(http.MethodOptions, "/api/subscriptions", nil)
	req.Header.Set("Origin", "http://localhost:8081")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("preflight Access-Control-Allow-Origin=%q", got)
	}
}
