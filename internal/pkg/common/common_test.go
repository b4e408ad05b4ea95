package common

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestWriteError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{"custom", Wrap(ErrAnalysisFailed, errors.New("dial tcp: refused")), http.StatusInternalServerError, "분석 중 오류가 발생했습니다."},
		{"validation", NewValidationError("이미지 파일이 필요합니다."), http.StatusBadRequest, "이미지 파일이 필요합니다."},
		{"plain", errors.New("boom"), http.StatusInternalServerError, ErrInternalError.Message},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			WriteError(c, tt.err)

			if w.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, w.Code)
			}
			if !strings.Contains(w.Body.String(), tt.body) {
				t.Fatalf("expected body to contain %q, got %s", tt.body, w.Body.String())
			}
			if strings.Contains(w.Body.String(), "refused") || strings.Contains(w.Body.String(), "boom") {
				t.Fatalf("internal cause leaked: %s", w.Body.String())
			}
		})
	}
}

func TestCustomErrorIs(t *testing.T) {
	err := Wrap(ErrInvalidImageSize, errors.New("too big"))
	if !errors.Is(err, ErrInvalidImageSize) {
		t.Fatal("wrapped error should match its base by code")
	}
	if errors.Is(err, ErrInvalidImageFormat) {
		t.Fatal("different codes must not match")
	}
}

func TestToJSONKeepsKorean(t *testing.T) {
	got, err := ToJSON([]string{"카페 <라떼>", "모카&"})
	if err != nil {
		t.Fatal(err)
	}
	if got != `["카페 <라떼>","모카&"]` {
		t.Fatalf("unexpected encoding %s", got)
	}
}

func TestParseJSONBytesRejectsTrailingData(t *testing.T) {
	var v map[string]string
	if err := ParseJSONBytes([]byte(`{"a":"b"} {"c":"d"}`), &v); err == nil {
		t.Fatal("expected error for trailing data")
	}
	if err := ParseJSONBytes([]byte(`{"a":"b"}`), &v); err != nil || v["a"] != "b" {
		t.Fatalf("unexpected result %v %v", v, err)
	}
}

func TestJoinNonEmpty(t *testing.T) {
	if got := JoinNonEmpty([]string{" 우유", "", "  ", "땅콩 "}, ","); got != "우유,땅콩" {
		t.Fatalf("unexpected join %q", got)
	}
}
