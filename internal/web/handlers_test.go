package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/ratingprep/internal/config"
	"github.com/JonMunkholm/ratingprep/internal/core"
	_ "github.com/JonMunkholm/ratingprep/internal/core/catalogs"
)

func testConfig() *config.Config {
	return &config.Config{
		Convert: config.ConvertConfig{
			SourceDelimiter: "|",
			SourceEncoding:  "utf-8",
		},
		Normalize: config.NormalizeConfig{Catalog: "insurance", CategoryThreshold: 0.1},
		Server: config.ServerConfig{
			RequestTimeout: 10 * time.Second,
			MaxUploadSize:  1 << 20,
			MaxConcurrent:  1,
			MaxWaitTime:    50 * time.Millisecond,
		},
	}
}

const pipeSource = "UnderwrittenCoverID|TransactionMonth|ExcessSelected|NewVehicle|Province|Empty\n" +
	"1|2015-03-01 00:00:00|R 1500.50|Yes|Gauteng|\n" +
	"2|not-a-date|No excess|No|Gauteng|\n" +
	"3|2015-04-01 00:00:00|R|maybe|Limpopo|\n"

func do(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error body: %v (body %q)", err, rec.Body.String())
	}
	return resp
}

func TestHealth(t *testing.T) {
	s := NewServer(testConfig())
	rec := do(t, s, http.MethodGet, "/healthz", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestListCatalogs(t *testing.T) {
	s := NewServer(testConfig())
	rec := do(t, s, http.MethodGet, "/api/catalogs", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp CatalogResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Default != "insurance" {
		t.Errorf("Default = %q, want insurance", resp.Default)
	}
	found := false
	for _, c := range resp.Catalogs {
		if c.Name == "insurance" {
			found = len(c.Rules) > 0
		}
	}
	if !found {
		t.Errorf("insurance catalog missing from %+v", resp.Catalogs)
	}
}

func TestConvert(t *testing.T) {
	s := NewServer(testConfig())
	rec := do(t, s, http.MethodPost, "/api/convert?delimiter=pipe", pipeSource)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("Content-Type = %q", ct)
	}
	if got := rec.Header().Get("X-Row-Count"); got != "3" {
		t.Errorf("X-Row-Count = %q, want 3", got)
	}

	lines := strings.Split(strings.TrimRight(rec.Body.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("lines = %d, want 4:\n%s", len(lines), rec.Body.String())
	}
	if lines[0] != "UnderwrittenCoverID,TransactionMonth,ExcessSelected,NewVehicle,Province,Empty" {
		t.Errorf("header = %q", lines[0])
	}
	if lines[1] != "1,2015-03-01 00:00:00,R 1500.50,Yes,Gauteng," {
		t.Errorf("row 1 = %q", lines[1])
	}
}

func TestConvert_Errors(t *testing.T) {
	tests := []struct {
		name   string
		target string
		body   string
		status int
		code   string
	}{
		{"empty body", "/api/convert", "", http.StatusBadRequest, "FILE002"},
		{"ragged row", "/api/convert", "a|b\n1|2|3\n", http.StatusBadRequest, "FILE004"},
		{"bad delimiter", "/api/convert?delimiter=ab", "a|b\n", http.StatusBadRequest, "FILE004"},
		{"invalid utf-8", "/api/convert", "a|b\n\xff|2\n", http.StatusBadRequest, "FILE003"},
		{"unknown encoding", "/api/convert?encoding=ebcdic", "a|b\n", http.StatusBadRequest, "FILE003"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewServer(testConfig())
			rec := do(t, s, http.MethodPost, tt.target, tt.body)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.status, rec.Body.String())
			}
			if resp := decodeError(t, rec); resp.Code != tt.code {
				t.Errorf("code = %q, want %q", resp.Code, tt.code)
			}
		})
	}
}

func TestConvert_Latin1(t *testing.T) {
	s := NewServer(testConfig())
	rec := do(t, s, http.MethodPost, "/api/convert?encoding=latin1", "name|city\nJos\xe9|Durban\n")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (body %s)", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "José,Durban") {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestConvert_TooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.Server.MaxUploadSize = 16
	s := NewServer(cfg)

	rec := do(t, s, http.MethodPost, "/api/convert", pipeSource)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413 (body %s)", rec.Code, rec.Body.String())
	}
	resp := decodeError(t, rec)
	if resp.Code != "FILE006" {
		t.Errorf("code = %q, want FILE006", resp.Code)
	}
	if resp.Error != "File exceeds the maximum upload size" || resp.Error != resp.Message {
		t.Errorf("error = %q, message = %q, want the user message in both", resp.Error, resp.Message)
	}
	if resp.Action == "" {
		t.Error("action should be set")
	}
}

func TestClean_CSV(t *testing.T) {
	s := NewServer(testConfig())
	rec := do(t, s, http.MethodPost, "/api/clean", pipeSource)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (body %s)", rec.Code, rec.Body.String())
	}
	lines := strings.Split(strings.TrimRight(rec.Body.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("lines = %d, want 4:\n%s", len(lines), rec.Body.String())
	}
	// Empty column pruned
	if lines[0] != "UnderwrittenCoverID,TransactionMonth,ExcessSelected,NewVehicle,Province" {
		t.Errorf("header = %q", lines[0])
	}
	want := []string{
		"1,2015-03-01,1500.5,1,Gauteng",
		"2,,,0,Gauteng",
		"3,2015-04-01,,,Limpopo",
	}
	for i, w := range want {
		if lines[i+1] != w {
			t.Errorf("row %d = %q, want %q", i+1, lines[i+1], w)
		}
	}
}

func TestClean_JSON(t *testing.T) {
	s := NewServer(testConfig())
	rec := do(t, s, http.MethodPost, "/api/clean?format=json", pipeSource)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (body %s)", rec.Code, rec.Body.String())
	}
	var resp CleanResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Rows != 3 {
		t.Errorf("Rows = %d, want 3", resp.Rows)
	}
	if resp.Report.Catalog != "insurance" {
		t.Errorf("Report.Catalog = %q", resp.Report.Catalog)
	}
	if len(resp.Report.Dropped) != 1 || resp.Report.Dropped[0] != "Empty" {
		t.Errorf("Report.Dropped = %v, want [Empty]", resp.Report.Dropped)
	}

	kinds := make(map[string]string)
	for _, c := range resp.Columns {
		kinds[c.Name] = c.Kind
	}
	wantKinds := map[string]string{
		"TransactionMonth": "date",
		"ExcessSelected":   "float",
		"NewVehicle":       "binary_int",
		"Province":         "categorical",
	}
	for name, want := range wantKinds {
		if kinds[name] != want {
			t.Errorf("kind of %s = %q, want %q", name, kinds[name], want)
		}
	}
}

func TestClean_Errors(t *testing.T) {
	tests := []struct {
		name   string
		target string
		status int
		code   string
	}{
		{"unknown catalog", "/api/clean?catalog=nope", http.StatusNotFound, "CAT001"},
		{"bad format", "/api/clean?format=xml", http.StatusBadRequest, "FILE004"},
		{"bad threshold", "/api/clean?threshold=2", http.StatusBadRequest, "FILE004"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewServer(testConfig())
			rec := do(t, s, http.MethodPost, tt.target, pipeSource)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.status, rec.Body.String())
			}
			if resp := decodeError(t, rec); resp.Code != tt.code {
				t.Errorf("code = %q, want %q", resp.Code, tt.code)
			}
		})
	}
}

func TestJobLimit_Busy(t *testing.T) {
	s := NewServer(testConfig())
	if !s.limiter.TryAcquire() {
		t.Fatal("TryAcquire() = false on an idle limiter")
	}
	defer s.limiter.Release()

	rec := do(t, s, http.MethodPost, "/api/convert", pipeSource)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("Retry-After header not set")
	}
	if resp := decodeError(t, rec); resp.Code != "JOB001" {
		t.Errorf("code = %q, want JOB001", resp.Code)
	}
	if got := s.JobStatus().Active; got != 1 {
		t.Errorf("Active = %d, want 1", got)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{core.ErrNotFound, http.StatusNotFound},
		{core.ErrParse, http.StatusBadRequest},
		{core.ErrTooManyJobs, http.StatusServiceUnavailable},
		{core.ErrUnknownCatalog, http.StatusNotFound},
		{core.ErrWrite, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			if got := statusFor(core.MapError(tt.err)); got != tt.want {
				t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestAPIKeyRequired(t *testing.T) {
	cfg := testConfig()
	cfg.Security = config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{"secret"}}
	s := NewServer(cfg)

	if rec := do(t, s, http.MethodGet, "/api/catalogs", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("no key: status = %d, want 401", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/catalogs", nil)
	req.Header.Set("X-API-Key", "secret")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("valid key: status = %d, want 200", rec.Code)
	}

	if rec := do(t, s, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
		t.Errorf("healthz should not need a key: status = %d", rec.Code)
	}
}
