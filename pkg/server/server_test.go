package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/mtlxgen/pkg/errors"
	"github.com/matzehuels/mtlxgen/pkg/pipeline"
)

const plastic = `<?xml version="1.0"?>
<materialx version="1.38">
  <standard_surface name="SR_plastic" type="surfaceshader">
    <input name="base_color" type="color3" value="0.8, 0.1, 0.1" />
  </standard_surface>
  <surfacematerial name="M_plastic" type="material">
    <input name="surfaceshader" type="surfaceshader" nodename="SR_plastic" />
  </surfacematerial>
</materialx>
`

func newTestServer(t *testing.T, cfg Config) *httptest.Server {
	t.Helper()
	logger := log.New(io.Discard)
	cfg.Logger = logger
	srv := httptest.NewServer(New(pipeline.NewRunner(nil, nil, logger), cfg).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, Config{})
	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body := decodeBody[map[string]string](t, resp)
	if body["status"] != "ok" || len(body["library"]) != 12 {
		t.Errorf("body = %v", body)
	}
	if _, err := uuid.Parse(resp.Header.Get(RequestIDHeader)); err != nil {
		t.Errorf("X-Request-ID is not a UUID: %q", resp.Header.Get(RequestIDHeader))
	}
}

func TestRequestIDIsEchoed(t *testing.T) {
	srv := newTestServer(t, Config{})
	id := uuid.NewString()
	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/v1/targets", nil)
	req.Header.Set(RequestIDHeader, id)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if got := resp.Header.Get(RequestIDHeader); got != id {
		t.Errorf("X-Request-ID = %q, want %q", got, id)
	}
	body := decodeBody[struct {
		Targets []string `json:"targets"`
		Default string   `json:"default"`
	}](t, resp)
	if len(body.Targets) != 2 || body.Default != "genosl" {
		t.Errorf("targets = %+v", body)
	}
}

func TestGenerate(t *testing.T) {
	srv := newTestServer(t, Config{})
	resp := post(t, srv.URL+"/v1/generate", GenerateRequest{Document: plastic, Target: "genglsl"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body := decodeBody[GenerateResponse](t, resp)
	if body.ID != resp.Header.Get(RequestIDHeader) {
		t.Errorf("id %q does not match header", body.ID)
	}
	if !body.Valid || len(body.Shaders) != 1 {
		t.Fatalf("body = %+v", body)
	}
	sh := body.Shaders[0]
	if sh.Element != "M_plastic" || sh.FileName != "M_plastic.glsl" || !strings.Contains(sh.Source, "void main()") {
		t.Errorf("shader = %+v", sh)
	}
}

func TestValidate(t *testing.T) {
	srv := newTestServer(t, Config{})
	bad := strings.Replace(plastic, `nodename="SR_plastic"`, `nodename="SR_missing"`, 1)
	resp := post(t, srv.URL+"/v1/validate", ValidateRequest{Document: bad, Name: "bad.mtlx"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body := decodeBody[ValidateResponse](t, resp)
	if body.Valid || !strings.Contains(body.Warnings, "SR_missing") {
		t.Errorf("body = %+v", body)
	}
}

func TestGenerateErrors(t *testing.T) {
	tests := []struct {
		name   string
		cfg    Config
		body   any
		status int
		code   errors.Code
	}{
		{"empty document", Config{}, GenerateRequest{}, http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{"unknown field", Config{}, map[string]string{"document": plastic, "input": "/etc/passwd"}, http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{"bad target", Config{}, GenerateRequest{Document: plastic, Target: "genmdl"}, http.StatusBadRequest, errors.ErrCodeInvalidTarget},
		{"malformed", Config{}, GenerateRequest{Document: "<materialx"}, http.StatusBadRequest, errors.ErrCodeInvalidDocument},
		{"no renderable", Config{}, GenerateRequest{Document: `<materialx version="1.38"/>`}, http.StatusUnprocessableEntity, errors.ErrCodeNoRenderable},
		{"broken connection", Config{}, GenerateRequest{Document: strings.Replace(plastic, `value="0.8, 0.1, 0.1"`, `nodename="missing"`, 1)}, http.StatusBadRequest, errors.ErrCodeInvalidDocument},
		{"too large", Config{MaxDocumentBytes: 64}, GenerateRequest{Document: plastic}, http.StatusRequestEntityTooLarge, errors.ErrCodeTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, tt.cfg)
			resp := post(t, srv.URL+"/v1/generate", tt.body)
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			body := decodeBody[ErrorResponse](t, resp)
			if body.Error.Code != tt.code {
				t.Errorf("code = %s, want %s (%s)", body.Error.Code, tt.code, body.Error.Message)
			}
			if body.ID == "" {
				t.Error("error response has no id")
			}
		})
	}
}

func TestStatusCode(t *testing.T) {
	tests := map[errors.Code]int{
		errors.ErrCodeInvalidElement:  http.StatusBadRequest,
		errors.ErrCodeFileNotFound:    http.StatusNotFound,
		errors.ErrCodeUnsupported:     http.StatusUnprocessableEntity,
		errors.ErrCodeTooLarge:        http.StatusRequestEntityTooLarge,
		errors.ErrCodeLibraryNotFound: http.StatusInternalServerError,
		errors.ErrCodeInternal:        http.StatusInternalServerError,
	}
	for code, want := range tests {
		if got := StatusCode(code); got != want {
			t.Errorf("StatusCode(%s) = %d, want %d", code, got, want)
		}
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, Config{})
	resp, err := http.Get(srv.URL + "/v1/generate")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", resp.StatusCode)
	}
}
