package analyzer

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", 5*time.Second)
}

func TestAnalyze_SendsMultipartForm(t *testing.T) {
	var gotAllergies, gotFilename, gotContent string
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/analyze-image" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		gotAllergies = r.FormValue("user_allergies")
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("missing file: %v", err)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		gotFilename = header.Filename
		gotContent = string(data)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"extracted_text": "아메리카노 라떼",
			"translated_text": "americano latte",
			"analysis": {
				"menu_classification": {"category": "coffee"},
				"ingredient_analysis": {"extracted_ingredients": ["우유", 3, "설탕"]},
				"allergy_risk": {"final_risk_level": "high_risk"}
			}
		}`))
	})

	result, err := client.Analyze(context.Background(), Upload{
		Data:        []byte("fake-image"),
		Filename:    "menu.png",
		ContentType: "image/png",
		Allergies:   []string{"우유", "땅콩"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotAllergies != "우유,땅콩" {
		t.Errorf("expected comma-joined allergies, got %q", gotAllergies)
	}
	if gotFilename != "menu.png" || gotContent != "fake-image" {
		t.Errorf("unexpected file %q %q", gotFilename, gotContent)
	}
	if result.ExtractedText != "아메리카노 라떼" || result.TranslatedOrEmpty() != "americano latte" {
		t.Errorf("unexpected texts %+v", result)
	}
	if result.Analysis == nil {
		t.Fatalf("expected analysis to be decoded")
	}
	ingredients := result.Analysis.Ingredients()
	if len(ingredients) != 2 || ingredients[0] != "우유" || ingredients[1] != "설탕" {
		t.Errorf("expected non-string ingredients to be skipped, got %v", ingredients)
	}
	if result.Analysis.AllergyRisk.FinalRiskLevel != "high_risk" {
		t.Errorf("unexpected risk %+v", result.Analysis.AllergyRisk)
	}
	if len(result.AnalysisRaw) == 0 {
		t.Errorf("expected raw analysis to be kept")
	}
}

func TestAnalyze_OmitsEmptyAllergies(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseMultipartForm(1 << 20)
		if _, ok := r.MultipartForm.Value["user_allergies"]; ok {
			t.Errorf("user_allergies must be omitted when empty")
		}
		_, _ = w.Write([]byte(`{"extracted_text": "x", "translated_text": null}`))
	})

	result, err := client.Analyze(context.Background(), Upload{Data: []byte("a"), Filename: "a.jpg", ContentType: "image/jpeg"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Analysis != nil || result.TranslatedText != nil {
		t.Errorf("expected absent analysis and translation, got %+v", result)
	}
}

func TestAnalyze_MalformedAnalysisIsNotAnError(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"extracted_text": "x", "analysis": "oops"}`))
	})

	result, err := client.Analyze(context.Background(), Upload{Data: []byte("a"), Filename: "a.jpg", ContentType: "image/jpeg"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Analysis != nil || !result.AnalysisMalformed {
		t.Errorf("expected malformed analysis to be flagged, got %+v", result)
	}
}

func TestAnalyze_NonOKStatus(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(strings.Repeat("e", 2000)))
	})

	_, err := client.Analyze(context.Background(), Upload{Data: []byte("a"), Filename: "a.jpg", ContentType: "image/jpeg"})
	if err == nil {
		t.Fatalf("expected error for non-200 response")
	}
	if !strings.Contains(err.Error(), "502") {
		t.Errorf("expected status in error, got %v", err)
	}
	if len(err.Error()) > 700 {
		t.Errorf("expected body to be truncated, got %d bytes", len(err.Error()))
	}
}

func TestAnalyze_EmptyImage(t *testing.T) {
	client := NewClient("http://127.0.0.1:0", time.Second)
	if _, err := client.Analyze(context.Background(), Upload{}); err == nil {
		t.Fatalf("expected error for empty image")
	}
}
