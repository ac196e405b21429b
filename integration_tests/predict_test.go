package integrationtest

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/snowcastlabs/snowday-api/internal/alerts"
	"github.com/snowcastlabs/snowday-api/internal/config"
	"github.com/snowcastlabs/snowday-api/internal/forecast"
	"github.com/snowcastlabs/snowday-api/internal/geocode"
	"github.com/snowcastlabs/snowday-api/internal/handler"
	"github.com/snowcastlabs/snowday-api/internal/model"
	"github.com/snowcastlabs/snowday-api/internal/narrative"
	"github.com/snowcastlabs/snowday-api/internal/pipeline"
	"github.com/snowcastlabs/snowday-api/internal/redis"
	"github.com/snowcastlabs/snowday-api/internal/session"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type SnowDayAPITestSuite struct {
	suite.Suite
	httpServer   *httptest.Server
	mockGeocoder *httptest.Server
	mockForecast *httptest.Server
	mockAlerts   *httptest.Server
	mockMistral  *httptest.Server
}

func (s *SnowDayAPITestSuite) SetupSuite() {
	createMockRedisServer()
	s.mockGeocoder = mockGeocoderApi()
	s.mockForecast = mockForecastApi()
	s.mockAlerts = mockAlertsApi()
	s.mockMistral = mockMistralApi()

	viper.Set("redis.addr", miniRedisMock.Addr())
	viper.Set("geocoder.api_url", s.mockGeocoder.URL)
	viper.Set("forecast.api_url", s.mockForecast.URL)
	viper.Set("alerts.api_url", s.mockAlerts.URL)
	viper.Set("mistral.api_url", s.mockMistral.URL)
	config.ReloadConfigForTest()
	redis.ResetClientForTest()

	store := session.NewStore()
	mux := http.NewServeMux()
	mux.HandleFunc("/predict", handler.NewPredictHandler(pipeline.New(), store).HandlePredict)
	mux.HandleFunc("/session", handler.NewSessionHandler(store).HandleCreateSession)
	mux.HandleFunc("/healthz", handler.HandleHealth)

	s.httpServer = httptest.NewServer(mux)
}

func (s *SnowDayAPITestSuite) TearDownSuite() {
	if s.httpServer != nil {
		s.httpServer.Close()
	}
	for _, srv := range []*httptest.Server{s.mockGeocoder, s.mockForecast, s.mockAlerts, s.mockMistral} {
		if srv != nil {
			srv.Close()
		}
	}
	if miniRedisMock != nil {
		miniRedisMock.Close()
	}
}

func TestSnowDayAPITestSuite(t *testing.T) {
	suite.Run(t, new(SnowDayAPITestSuite))
}

func (s *SnowDayAPITestSuite) postJSON(path string, body interface{}) *http.Response {
	b, err := json.Marshal(body)
	require.NoError(s.T(), err)
	resp, err := http.Post(s.httpServer.URL+path, "application/json", bytes.NewReader(b))
	require.NoError(s.T(), err)
	return resp
}

func decodeData[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var envelope struct {
		Data T `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	return envelope.Data
}

func (s *SnowDayAPITestSuite) TestPredict_CalmWeekInDuluth() {
	resp := s.postJSON("/predict", handler.PredictRequest{
		MistralAPIKey: goodKey,
		City:          "Duluth",
		State:         "Minnesota",
	})
	defer resp.Body.Close()
	require.Equal(s.T(), http.StatusOK, resp.StatusCode)

	result := decodeData[model.PredictionResult](s.T(), resp)
	assert.Equal(s.T(), "Duluth, Minnesota", result.Location)
	assert.Equal(s.T(), 100, result.Progress)
	require.Len(s.T(), result.Days, 7)
	for _, day := range result.Days {
		assert.NotEmpty(s.T(), day.AnalysisText)
		assert.Contains(s.T(), day.AnalysisText, "no closures expected")
	}
}

func (s *SnowDayAPITestSuite) TestPredict_SessionHandoff() {
	resp := s.postJSON("/session", session.Data{
		MistralAPIKey: goodKey,
		City:          "Duluth",
		State:         "Minnesota",
		ForecastType:  "7day",
	})
	defer resp.Body.Close()
	require.Equal(s.T(), http.StatusCreated, resp.StatusCode)
	created := decodeData[map[string]string](s.T(), resp)
	sessionID := created["sessionId"]
	require.NotEmpty(s.T(), sessionID)

	predictResp := s.postJSON("/predict", handler.PredictRequest{SessionID: sessionID})
	defer predictResp.Body.Close()
	require.Equal(s.T(), http.StatusOK, predictResp.StatusCode)

	result := decodeData[model.PredictionResult](s.T(), predictResp)
	assert.Len(s.T(), result.Days, 7)
}

func (s *SnowDayAPITestSuite) TestPredict_UnknownCity() {
	resp := s.postJSON("/predict", handler.PredictRequest{
		MistralAPIKey: goodKey,
		City:          "Atlantis",
		State:         "Minnesota",
	})
	defer resp.Body.Close()
	require.Equal(s.T(), http.StatusNotFound, resp.StatusCode)

	view := decodeData[model.ErrorView](s.T(), resp)
	assert.Contains(s.T(), view.Remediation, "city and state")
	assert.NotEmpty(s.T(), view.Log)
}

func (s *SnowDayAPITestSuite) TestPredict_InvalidAPIKey() {
	resp := s.postJSON("/predict", handler.PredictRequest{
		MistralAPIKey: badKey,
		City:          "Duluth",
		State:         "Minnesota",
	})
	defer resp.Body.Close()
	require.Equal(s.T(), http.StatusUnauthorized, resp.StatusCode)

	view := decodeData[model.ErrorView](s.T(), resp)
	assert.Contains(s.T(), view.Remediation, "API key")
}

func (s *SnowDayAPITestSuite) TestPredict_RateLimitedKey() {
	resp := s.postJSON("/predict", handler.PredictRequest{
		MistralAPIKey: busyKey,
		City:          "Duluth",
		State:         "Minnesota",
	})
	defer resp.Body.Close()
	require.Equal(s.T(), http.StatusTooManyRequests, resp.StatusCode)

	view := decodeData[model.ErrorView](s.T(), resp)
	assert.Contains(s.T(), view.Remediation, "rate limiting")
}

func (s *SnowDayAPITestSuite) TestPredict_MissingFields() {
	resp := s.postJSON("/predict", handler.PredictRequest{City: "Duluth"})
	defer resp.Body.Close()
	assert.Equal(s.T(), http.StatusBadRequest, resp.StatusCode)
}

func (s *SnowDayAPITestSuite) TestPredict_DeadlineTimeout() {
	// A dedicated pipeline with a short deadline, against the stalling
	// narrative mock.
	deadline := 300 * time.Millisecond
	shortPipeline := pipeline.NewWithClients(
		geocode.NewClient(),
		forecast.NewClient(),
		alerts.NewClient(),
		narrative.NewClient(),
		deadline,
	)
	mux := http.NewServeMux()
	mux.HandleFunc("/predict", handler.NewPredictHandler(shortPipeline, session.NewStore()).HandlePredict)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	b, _ := json.Marshal(handler.PredictRequest{
		MistralAPIKey: slowKey,
		City:          "Duluth",
		State:         "Minnesota",
	})
	start := time.Now()
	resp, err := http.Post(srv.URL+"/predict", "application/json", bytes.NewReader(b))
	require.NoError(s.T(), err)
	defer resp.Body.Close()
	elapsed := time.Since(start)

	require.Equal(s.T(), http.StatusGatewayTimeout, resp.StatusCode)
	assert.GreaterOrEqual(s.T(), elapsed, deadline)

	view := decodeData[model.ErrorView](s.T(), resp)
	assert.True(s.T(), view.TimedOut)
	assert.Equal(s.T(), 100, view.Progress)
}

func (s *SnowDayAPITestSuite) TestHealthz() {
	resp, err := http.Get(s.httpServer.URL + "/healthz")
	require.NoError(s.T(), err)
	defer resp.Body.Close()
	assert.Equal(s.T(), http.StatusOK, resp.StatusCode)

	status := decodeData[map[string]string](s.T(), resp)
	assert.Equal(s.T(), "ok", status["redis"])
}
