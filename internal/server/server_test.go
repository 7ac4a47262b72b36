package server_test

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/ezachrisen/gavel"
	"github.com/ezachrisen/gavel/cel"
	"github.com/ezachrisen/gavel/internal/config"
	"github.com/ezachrisen/gavel/internal/metrics"
	"github.com/ezachrisen/gavel/internal/server"
	"github.com/matryer/is"
)

func newServer(t *testing.T, opts ...server.Option) (*server.Server, http.Handler) {
	t.Helper()
	s, err := server.New(gavel.NewVault(), opts...)
	if err != nil {
		t.Fatal(err)
	}
	return s, s.Handler()
}

func do(h http.Handler, method, target, contentType, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func postJSON(h http.Handler, target, body string) *httptest.ResponseRecorder {
	return do(h, http.MethodPost, target, "application/json", body)
}

func postForm(h http.Handler, target string, values url.Values) *httptest.ResponseRecorder {
	return do(h, http.MethodPost, target, "application/x-www-form-urlencoded", values.Encode())
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("decoding %q: %v", rec.Body.String(), err)
	}
	return m
}

func TestCreateAndEvaluateJSON(t *testing.T) {
	is := is.New(t)
	_, h := newServer(t)

	rec := postJSON(h, "/create_rule", `{"rule_string": "age > 30 and department == 'Sales'"}`)
	is.Equal(rec.Code, http.StatusOK)
	body := decode(t, rec)
	is.Equal(body["rule"], "age > 30 and department == 'Sales'")
	is.Equal(body["canonical"], "(age > 30 and department == 'Sales')")
	is.True(body["id"] != "")

	// Scenario A, bare record
	rec = postJSON(h, "/evaluate_rule", `{"age": 35, "department": "Sales"}`)
	is.Equal(rec.Code, http.StatusOK)
	is.Equal(decode(t, rec)["result"], true)

	// Scenario B, wrapped record
	rec = postJSON(h, "/evaluate_rule", `{"json_data": {"age": 20, "department": "Sales"}}`)
	is.Equal(rec.Code, http.StatusOK)
	is.Equal(decode(t, rec)["result"], false)
}

func TestCreateAndEvaluateForm(t *testing.T) {
	is := is.New(t)
	_, h := newServer(t)

	rec := postForm(h, "/create_rule", url.Values{"rule_string": {"age < 25 or department == 'Marketing'"}})
	is.Equal(rec.Code, http.StatusOK)
	is.Equal(decode(t, rec)["canonical"], "(age < 25 or department == 'Marketing')")

	// Scenario C
	rec = postForm(h, "/evaluate_rule", url.Values{"json_data": {`{"age": 40, "department": "Marketing"}`}})
	is.Equal(rec.Code, http.StatusOK)
	is.Equal(decode(t, rec)["result"], true)
}

func TestEvaluateErrors(t *testing.T) {
	_, h := newServer(t)

	// before any rule exists
	rec := postJSON(h, "/evaluate_rule", `{"age": 35}`)
	if rec.Code != http.StatusBadRequest || decode(t, rec)["error"] != server.CodeNoActiveRule {
		t.Fatalf("got %d %s, wanted no_active_rule", rec.Code, rec.Body.String())
	}

	if rec := postJSON(h, "/create_rule", `{"rule_string": "age > 30 and department == 'Sales'"}`); rec.Code != http.StatusOK {
		t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
	}

	cases := []struct {
		name  string
		body  string
		code  string
		field string
	}{
		{"missing field", `{"department": "Sales"}`, server.CodeMissingField, "age"},
		{"type mismatch", `{"age": "old", "department": "Sales"}`, server.CodeTypeMismatch, "age"},
		{"bool value", `{"age": true, "department": "Sales"}`, server.CodeTypeMismatch, "age"},
		{"malformed json", `{"age": `, server.CodeBadRequest, ""},
		{"not an object", `[1, 2]`, server.CodeBadRequest, ""},
		{"nested value", `{"age": {"years": 3}}`, server.CodeBadRequest, "age"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			is := is.New(t)
			rec := postJSON(h, "/evaluate_rule", c.body)
			is.Equal(rec.Code, http.StatusBadRequest)
			body := decode(t, rec)
			is.Equal(body["error"], c.code)
			if c.field != "" {
				is.Equal(body["field"], c.field)
			}
		})
	}
}

func TestCreateErrors(t *testing.T) {
	cases := []struct {
		name string
		body string
		code string
	}{
		{"syntax", `{"rule_string": "age >> 30"}`, server.CodeSyntaxError},
		{"empty", `{"rule_string": ""}`, server.CodeSyntaxError},
		{"unsupported", `{"rule_string": "age > salary"}`, server.CodeUnsupportedConstruct},
		{"not", `{"rule_string": "not age > 30"}`, server.CodeUnsupportedConstruct},
		{"missing key", `{"rule": "age > 30"}`, server.CodeBadRequest},
		{"bad json", `{"rule_string": `, server.CodeBadRequest},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			is := is.New(t)
			_, h := newServer(t)
			rec := postJSON(h, "/create_rule", c.body)
			is.Equal(rec.Code, http.StatusBadRequest)
			is.Equal(decode(t, rec)["error"], c.code)
		})
	}
}

func TestFailedCreateKeepsRule(t *testing.T) {
	is := is.New(t)
	_, h := newServer(t)

	rec := postJSON(h, "/create_rule", `{"rule_string": "age > 30"}`)
	is.Equal(rec.Code, http.StatusOK)
	id := decode(t, rec)["id"]

	rec = postJSON(h, "/create_rule", `{"rule_string": "age >> 30"}`)
	is.Equal(rec.Code, http.StatusBadRequest)

	rec = do(h, http.MethodGet, "/rule", "", "")
	is.Equal(rec.Code, http.StatusOK)
	is.Equal(decode(t, rec)["id"], id)
}

func TestGetRule(t *testing.T) {
	is := is.New(t)
	compiled := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	v := gavel.NewVault(gavel.WithClock(func() time.Time { return compiled }))
	s, err := server.New(v, server.WithClock(func() time.Time { return compiled.Add(3 * time.Hour) }))
	is.NoErr(err)
	h := s.Handler()

	rec := do(h, http.MethodGet, "/rule", "", "")
	is.Equal(rec.Code, http.StatusNotFound)
	is.Equal(decode(t, rec)["error"], server.CodeNoActiveRule)

	_, err = s.Compile("department == 'Sales' and age > 30", "test")
	is.NoErr(err)

	rec = do(h, http.MethodGet, "/rule", "", "")
	is.Equal(rec.Code, http.StatusOK)
	body := decode(t, rec)
	is.Equal(body["canonical"], "(department == 'Sales' and age > 30)")
	is.Equal(body["fields"], []any{"age", "department"})
	is.Equal(body["age"], "3 hours ago")
}

func TestExplain(t *testing.T) {
	is := is.New(t)
	_, h := newServer(t)
	postJSON(h, "/create_rule", `{"rule_string": "age > 30 and department == 'Sales'"}`)

	rec := postJSON(h, "/evaluate_rule?explain=true", `{"age": 20, "department": "Sales"}`)
	is.Equal(rec.Code, http.StatusOK)
	body := decode(t, rec)
	is.Equal(body["result"], false)
	report, _ := body["report"].(string)
	is.True(strings.Contains(report, "GAVEL EVALUATION REPORT"))
	is.True(strings.Contains(report, "skipped"))
}

func TestIndexPage(t *testing.T) {
	is := is.New(t)
	s, h := newServer(t)

	rec := do(h, http.MethodGet, "/", "", "")
	is.Equal(rec.Code, http.StatusOK)
	is.True(strings.HasPrefix(rec.Header().Get("Content-Type"), "text/html"))
	is.True(strings.Contains(rec.Body.String(), "No rule created yet."))

	r, err := s.Compile("age > 30", "test")
	is.NoErr(err)
	rec = do(h, http.MethodGet, "/", "", "")
	is.True(strings.Contains(rec.Body.String(), r.ID))
}

func TestBrowserForm(t *testing.T) {
	is := is.New(t)
	_, h := newServer(t)

	req := httptest.NewRequest(http.MethodPost, "/create_rule", strings.NewReader(url.Values{"rule_string": {"age >> 30"}}.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	is.Equal(rec.Code, http.StatusBadRequest)
	is.True(strings.HasPrefix(rec.Header().Get("Content-Type"), "text/html"))
	is.True(strings.Contains(rec.Body.String(), "syntax error"))
}

func TestHealth(t *testing.T) {
	is := is.New(t)
	_, h := newServer(t)
	rec := do(h, http.MethodGet, "/healthz", "", "")
	is.Equal(rec.Code, http.StatusOK)
	is.Equal(decode(t, rec)["status"], "ok")
}

func TestMetricsEndpoint(t *testing.T) {
	is := is.New(t)
	m := metrics.New("gavel")
	_, h := newServer(t, server.WithMetrics(m, "/metrics"))

	postJSON(h, "/create_rule", `{"rule_string": "age > 30"}`)
	postJSON(h, "/create_rule", `{"rule_string": "age >"}`)
	postJSON(h, "/evaluate_rule", `{"age": 35}`)
	postJSON(h, "/evaluate_rule", `{"name": "x"}`)

	rec := do(h, http.MethodGet, "/metrics", "", "")
	is.Equal(rec.Code, http.StatusOK)
	out := rec.Body.String()
	is.True(strings.Contains(out, `gavel_compilations_total{result="ok"} 1`))
	is.True(strings.Contains(out, `gavel_compilations_total{result="syntax_error"} 1`))
	is.True(strings.Contains(out, `gavel_evaluations_total{result="pass"} 1`))
	is.True(strings.Contains(out, `gavel_evaluations_total{result="missing_field"} 1`))
	is.True(strings.Contains(out, "gavel_active_rule_info{id="))
}

func TestMiddleware(t *testing.T) {
	is := is.New(t)
	cfg := config.Default().Server
	cfg.Gzip = true
	cfg.CORS.Enabled = true
	cfg.CORS.AllowedOrigins = []string{"https://example.com"}
	_, h := newServer(t, server.WithConfig(cfg))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	req.Header.Set("Origin", "https://example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	is.Equal(rec.Code, http.StatusOK)
	is.Equal(rec.Header().Get("Content-Encoding"), "gzip")
	is.Equal(rec.Header().Get("Access-Control-Allow-Origin"), "https://example.com")

	zr, err := gzip.NewReader(rec.Body)
	is.NoErr(err)
	page, err := io.ReadAll(zr)
	is.NoErr(err)
	is.True(strings.Contains(string(page), "No rule created yet."))
}

func TestCELBackend(t *testing.T) {
	is := is.New(t)
	s, err := server.New(gavel.NewVault(gavel.WithEvaluator(cel.NewEvaluator())))
	is.NoErr(err)
	h := s.Handler()

	postJSON(h, "/create_rule", `{"rule_string": "age > 30 and department == 'Sales'"}`)
	rec := postJSON(h, "/evaluate_rule", `{"age": 35, "department": "Sales"}`)
	is.Equal(rec.Code, http.StatusOK)
	is.Equal(decode(t, rec)["result"], true)

	// Scenario D
	rec = postJSON(h, "/evaluate_rule", `{"department": "Sales"}`)
	is.Equal(rec.Code, http.StatusBadRequest)
	is.Equal(decode(t, rec)["error"], server.CodeMissingField)

	postJSON(h, "/create_rule", `{"rule_string": "department != 30"}`)
	rec = postJSON(h, "/evaluate_rule", `{"department": "Sales"}`)
	is.Equal(rec.Code, http.StatusBadRequest)
	is.Equal(decode(t, rec)["error"], server.CodeTypeMismatch)
}

func TestServeShutdown(t *testing.T) {
	is := is.New(t)
	s, _ := newServer(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	is.NoErr(err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	is.NoErr(err)
	resp.Body.Close()
	is.Equal(resp.StatusCode, http.StatusOK)

	cancel()
	select {
	case err := <-done:
		is.NoErr(err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
