package integrationtest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/snowcastlabs/snowday-api/internal/model"
)

const (
	goodKey = "sk-good"
	badKey  = "sk-bad"
	busyKey = "sk-busy"
	slowKey = "sk-slow"
)

var miniRedisMock *miniredis.Miniredis

func createMockRedisServer() {
	miniRedisMock = miniredis.NewMiniRedis()
	if err := miniRedisMock.Start(); err != nil {
		panic(err)
	}
}

// mockGeocoderApi serves Open-Meteo style geocoding responses. Any city
// other than Duluth resolves to zero results.
func mockGeocoderApi() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("name") != "Duluth" {
			w.Write([]byte(`{"generationtime_ms":0.4}`))
			return
		}
		w.Write([]byte(`{"results":[{"name":"Duluth","latitude":46.78672,"longitude":-92.10049,"country_code":"US","admin1":"Minnesota"}]}`))
	}))
}

// mockForecastApi serves a calm 7-day forecast: no snowfall, highs around
// 40F.
func mockForecastApi() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		daily := model.DailySeries{
			Time:             []string{"2026-01-05", "2026-01-06", "2026-01-07", "2026-01-08", "2026-01-09", "2026-01-10", "2026-01-11"},
			Temperature2mMax: []float64{40, 40, 40, 40, 40, 40, 40},
			Temperature2mMin: []float64{28, 28, 28, 28, 28, 28, 28},
			PrecipitationSum: []float64{0, 0, 0, 0, 0, 0, 0},
			SnowfallSum:      []float64{0, 0, 0, 0, 0, 0, 0},
			WindSpeed10mMax:  []float64{8, 8, 8, 8, 8, 8, 8},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(model.ForecastResponse{Daily: &daily})
	}))
}

func calmNarrative() string {
	var b strings.Builder
	dates := []string{"2026-01-05", "2026-01-06", "2026-01-07", "2026-01-08", "2026-01-09", "2026-01-10", "2026-01-11"}
	for i, d := range dates {
		b.WriteString("Day " + string(rune('1'+i)) + " (" + d + ")\n")
		b.WriteString("Mild and dry, no closures expected. Closure probability: 5%.\n")
	}
	return b.String()
}

// mockAlertsApi serves an NWS active-alerts payload with no alerts.
func mockAlertsApi() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/geo+json")
		w.Write([]byte(`{"features":[]}`))
	}))
}

// mockMistralApi switches on the bearer credential: a good key yields a calm
// narrative, a bad key 401, a busy key 429, and a slow key stalls long
// enough to trip a short pipeline deadline.
func mockMistralApi() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.Header.Get("Authorization") {
		case "Bearer " + goodKey:
			resp := map[string]interface{}{
				"choices": []map[string]interface{}{
					{"message": map[string]string{"role": "assistant", "content": calmNarrative()}},
				},
			}
			_ = json.NewEncoder(w).Encode(resp)
		case "Bearer " + badKey:
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"message":"Unauthorized"}`))
		case "Bearer " + busyKey:
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"message":"Requests rate limit exceeded"}`))
		case "Bearer " + slowKey:
			time.Sleep(2 * time.Second)
			w.Write([]byte(`{"choices":[]}`))
		default:
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"message":"Unauthorized"}`))
		}
	}))
}
