package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func signToken(t *testing.T, claims jwt.MapClaims, secret string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func authRouter() *gin.Engine {
	r := gin.New()
	r.GET("/me", Auth(testSecret), func(c *gin.Context) {
		id, _ := UserID(c)
		c.JSON(http.StatusOK, gin.H{"userId": id})
	})
	return r
}

func TestAuth(t *testing.T) {
	valid := signToken(t, jwt.MapClaims{"userId": 42, "exp": time.Now().Add(time.Hour).Unix()}, testSecret)
	expired := signToken(t, jwt.MapClaims{"userId": 42, "exp": time.Now().Add(-time.Hour).Unix()}, testSecret)
	wrongKey := signToken(t, jwt.MapClaims{"userId": 42}, "other")
	stringID := signToken(t, jwt.MapClaims{"userId": "7"}, testSecret)
	noID := signToken(t, jwt.MapClaims{"sub": "x"}, testSecret)

	tests := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"missing header", "", http.StatusUnauthorized, "인증 토큰이 필요합니다."},
		{"not bearer", "Basic abc", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"valid", "Bearer " + valid, http.StatusOK, `"userId":42`},
		{"string user id", "Bearer " + stringID, http.StatusOK, `"userId":7`},
		{"expired", "Bearer " + expired, http.StatusForbidden, "유효하지 않은 토큰입니다."},
		{"wrong key", "Bearer " + wrongKey, http.StatusForbidden, "INVALID_TOKEN"},
		{"missing claim", "Bearer " + noID, http.StatusForbidden, "INVALID_TOKEN"},
	}

	r := authRouter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.status {
				t.Fatalf("expected %d, got %d (%s)", tt.status, w.Code, w.Body.String())
			}
			if !strings.Contains(w.Body.String(), tt.body) {
				t.Fatalf("expected body to contain %q, got %s", tt.body, w.Body.String())
			}
		})
	}
}

func TestAuth_RejectsNoneAlgorithm(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"userId": 1}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := ValidateToken(token, []byte(testSecret)); err == nil {
		t.Fatalf("alg none must be rejected")
	}
}

func TestRateLimit_PerIP(t *testing.T) {
	r := gin.New()
	r.Use(RateLimit(2, time.Hour))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	send := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = ip + ":1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	if send("10.0.0.1") != http.StatusOK || send("10.0.0.1") != http.StatusOK {
		t.Fatalf("first two requests should pass")
	}
	if code := send("10.0.0.1"); code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", code)
	}
	if code := send("10.0.0.2"); code != http.StatusOK {
		t.Fatalf("other IPs keep their own budget, got %d", code)
	}
}

func TestIPRateLimiter_PrunesIdleIPs(t *testing.T) {
	now := time.Unix(1000, 0)
	l := newIPRateLimiter(2, time.Minute, func() time.Time { return now })

	l.Allow("10.0.0.1")
	l.Allow("10.0.0.2")
	if l.Len() != 2 {
		t.Fatalf("expected 2 tracked IPs, got %d", l.Len())
	}

	now = now.Add(30 * time.Second)
	l.Allow("10.0.0.1")

	// 10.0.0.2 閒置 75 秒被移除，10.0.0.1 只閒置 45 秒
	now = now.Add(45 * time.Second)
	l.Allow("10.0.0.3")
	if l.Len() != 2 {
		t.Fatalf("expected idle IP to be pruned, tracking %d", l.Len())
	}
}

func TestIPRateLimiter_PruneKeepsLimits(t *testing.T) {
	now := time.Unix(1000, 0)
	l := newIPRateLimiter(2, time.Minute, func() time.Time { return now })

	if !l.Allow("10.0.0.1") || !l.Allow("10.0.0.1") {
		t.Fatal("burst should pass")
	}
	if l.Allow("10.0.0.1") {
		t.Fatal("third request should be limited")
	}
	if removed := l.Prune(now); removed != 0 {
		t.Fatalf("active IP must not be pruned, removed %d", removed)
	}

	now = now.Add(time.Minute)
	if !l.Allow("10.0.0.1") || !l.Allow("10.0.0.1") {
		t.Fatal("bucket should be full again after one idle window")
	}
}

func TestBodySizeLimit(t *testing.T) {
	r := gin.New()
	r.Use(BodySizeLimit(8))
	r.POST("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("0123456789"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", w.Code)
	}
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(Recovery())
	r.GET("/", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusInternalServerError || !strings.Contains(w.Body.String(), `"success":false`) {
		t.Fatalf("unexpected recovery response %d %s", w.Code, w.Body.String())
	}
}

func TestTimeout(t *testing.T) {
	r := gin.New()
	r.Use(Timeout(10 * time.Millisecond))
	r.GET("/", func(c *gin.Context) {
		<-c.Request.Context().Done()
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusGatewayTimeout {
		t.Fatalf("expected 504, got %d", w.Code)
	}
}
