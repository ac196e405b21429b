package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// Note: The per-param burst is 2, so only 2 requests per city are allowed
// instantly. The next request is blocked unless you wait for token refill
// (not practical for unit tests).

func TestRateLimitMiddleware_GlobalBurst(t *testing.T) {
	ResetVisitors()
	SetParamKey("city")
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mw := RateLimitMiddleware(h)
	ip := "1.2.3.4:1234"
	w := httptest.NewRecorder()

	// 10 unique cities should be allowed instantly (global burst)
	for i := 0; i < 10; i++ {
		body := fmt.Sprintf(`{"city":"city%d","state":"Minnesota"}`, i)
		req := httptest.NewRequest("POST", "/predict", strings.NewReader(body))
		req.RemoteAddr = ip
		mw.ServeHTTP(w, req)
		if w.Result().StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d on request %d", w.Result().StatusCode, i+1)
		}
		w = httptest.NewRecorder()
	}
	// The 11th request should be blocked by the global burst
	req := httptest.NewRequest("POST", "/predict", strings.NewReader(`{"city":"city99","state":"Minnesota"}`))
	req.RemoteAddr = ip
	mw.ServeHTTP(w, req)
	if w.Result().StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d on 11th request", w.Result().StatusCode)
	}
	var resp map[string]interface{}
	_ = json.NewDecoder(w.Body).Decode(&resp)
	if !strings.Contains(resp["error"].(string), "Rate limit exceeded") {
		t.Errorf("expected global limit error, got %v", resp["error"])
	}
}

func TestRateLimitMiddleware_PerCityBurst(t *testing.T) {
	ResetVisitors()
	SetParamKey("city")
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mw := RateLimitMiddleware(h)
	ip := "2.3.4.5:2345"
	w := httptest.NewRecorder()

	// 2 requests for the same city allowed instantly (burst)
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest("POST", "/predict", strings.NewReader(`{"city":"Duluth","state":"Minnesota"}`))
		req.RemoteAddr = ip
		mw.ServeHTTP(w, req)
		if w.Result().StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d on request %d", w.Result().StatusCode, i+1)
		}
		w = httptest.NewRecorder()
	}
	// Per-city burst should block the 3rd request for the same city
	req := httptest.NewRequest("POST", "/predict", strings.NewReader(`{"city":"Duluth","state":"Minnesota"}`))
	req.RemoteAddr = ip
	mw.ServeHTTP(w, req)
	if w.Result().StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d on 3rd request", w.Result().StatusCode)
	}
	var resp map[string]interface{}
	_ = json.NewDecoder(w.Body).Decode(&resp)
	if !strings.Contains(resp["error"].(string), "Rate limit exceeded") {
		t.Errorf("expected per-city limit error, got %v", resp["error"])
	}
}

func TestGetParam_RestoresBody(t *testing.T) {
	ResetVisitors()
	SetParamKey("city")
	body := `{"city":"Duluth","state":"Minnesota"}`
	req := httptest.NewRequest("POST", "/predict", strings.NewReader(body))

	if got := getParam(req); got != "Duluth" {
		t.Fatalf("expected city extracted from body, got %q", got)
	}

	// A downstream handler must still be able to decode the body.
	var decoded map[string]string
	if err := json.NewDecoder(req.Body).Decode(&decoded); err != nil {
		t.Fatalf("body not restored: %v", err)
	}
	if decoded["city"] != "Duluth" {
		t.Errorf("restored body differs: %v", decoded)
	}
}

func TestGetParam_QueryTakesPrecedence(t *testing.T) {
	SetParamKey("city")
	req := httptest.NewRequest("POST", "/predict?city=Ely", strings.NewReader(`{"city":"Duluth"}`))
	if got := getParam(req); got != "Ely" {
		t.Errorf("expected query param to win, got %q", got)
	}
}
