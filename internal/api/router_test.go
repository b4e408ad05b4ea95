package api

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"menu-scanner/internal/api/handlers/health"
	"menu-scanner/internal/core/analysis"
	"menu-scanner/internal/infrastructure/config"
	"menu-scanner/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "router-secret"

type stubAnalyzer struct {
	calls int
}

func (s *stubAnalyzer) Analyze(ctx context.Context, in analysis.Input) (*analysis.AssembledAnalysis, error) {
	s.calls++
	return &analysis.AssembledAnalysis{
		ExtractedText: "라떼",
		MenuAnalysis:  []analysis.Section{},
		UserAllergies: in.Allergies,
		Timestamp:     time.Now(),
	}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App:       config.AppConfig{Debug: true, Version: "test"},
		Server:    config.ServerConfig{RequestTimeout: time.Minute, AllowedOrigins: []string{"http://localhost:3000"}},
		Auth:      config.AuthConfig{JWTSecret: testSecret},
		RateLimit: config.RateLimitConfig{Enabled: true, Requests: 100, Window: time.Minute},
		Upload:    config.UploadConfig{MaxSizeBytes: 1 << 20},
	}
}

func bearer(t *testing.T, userID int64) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"userId": userID,
		"exp":    time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return "Bearer " + token
}

func setup(t *testing.T) (*gin.Engine, *stubAnalyzer) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	analyzer := &stubAnalyzer{}
	mem := store.NewMemoryStore()
	r := SetupRouter(testConfig(), Dependencies{
		Analyzer:  analyzer,
		Allergies: mem,
		Checkers:  map[string]health.Checker{"database": mem},
	})
	return r, analyzer
}

func imageRequest(t *testing.T) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="image"; filename="menu.jpg"`)
	h.Set("Content-Type", "image/jpeg")
	part, err := w.CreatePart(h)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	_, _ = part.Write([]byte("jpeg"))
	_ = w.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/menu/analyze", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestRouter_HealthRoutes(t *testing.T) {
	r, _ := setup(t)
	for _, path := range []string{"/health", "/ready", "/live", "/api/health"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, w.Code)
		}
	}
}

func TestRouter_MenuAnalyzeRequiresToken(t *testing.T) {
	r, analyzer := setup(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, imageRequest(t))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}

	req := imageRequest(t)
	req.Header.Set("Authorization", bearer(t, 11))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if analyzer.calls != 1 {
		t.Fatalf("expected one analysis, got %d", analyzer.calls)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected request id header")
	}
}

func TestRouter_AllergyRoundTrip(t *testing.T) {
	r, _ := setup(t)
	token := bearer(t, 4)

	req := httptest.NewRequest(http.MethodPost, "/api/user/allergies", strings.NewReader(`{"allergies":["땅콩"],"severity":"low"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/user/allergies", nil)
	req.Header.Set("Authorization", token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if !strings.Contains(w.Body.String(), `{"name":"땅콩","severity":"low"}`) {
		t.Fatalf("unexpected profile %s", w.Body.String())
	}
}

func TestRouter_GeminiWithoutKey(t *testing.T) {
	r, _ := setup(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/gemini/status", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "API_KEY_MISSING") {
		t.Fatalf("unexpected status response %d %s", w.Code, w.Body.String())
	}

	req := httptest.NewRequest(http.MethodPost, "/api/gemini/enhance", strings.NewReader(`{"prompt":"p","text":"t"}`))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

func TestRouter_CORSPreflight(t *testing.T) {
	r, _ := setup(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/menu/analyze", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Fatalf("expected allowed origin, got %q", got)
	}
}
