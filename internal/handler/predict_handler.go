package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/snowcastlabs/snowday-api/internal/config"
	"github.com/snowcastlabs/snowday-api/internal/model"
	"github.com/snowcastlabs/snowday-api/internal/pipeline"
	"github.com/snowcastlabs/snowday-api/internal/session"
)

// Remediation hints surfaced with each error class.
const (
	remediationValidation = "Provide your Mistral API key, a city and a state, then submit again."
	remediationNotFound   = "Check the city and state selection; the geocoder found no US match."
	remediationAuth       = "Verify your Mistral API key; the AI service rejected it."
	remediationRateLimit  = "The AI service is rate limiting this key. Wait a minute before resubmitting."
	remediationTimeout    = "The run hit its deadline before a result arrived. Check your connectivity and resubmit."
	remediationTransport  = "An upstream service is unavailable. Check your connectivity and resubmit."
	remediationUnexpected = "Something went wrong. Review the log below and resubmit."
)

// PipelineRunner is the pipeline surface the handler drives.
type PipelineRunner interface {
	Predict(ctx context.Context, in pipeline.Input) (*pipeline.Result, error)
}

// SessionLoader reads submission data saved by the form endpoint.
type SessionLoader interface {
	Load(ctx context.Context, id string) (*session.Data, error)
}

// PredictRequest is the POST /predict body. A session ID may stand in for
// the inline fields.
type PredictRequest struct {
	SessionID     string `json:"sessionId,omitempty"`
	MistralAPIKey string `json:"mistralApiKey,omitempty"`
	City          string `json:"city,omitempty"`
	State         string `json:"state,omitempty"`
	ForecastType  string `json:"forecastType,omitempty"`
}

type PredictHandler struct {
	Pipeline PipelineRunner
	Sessions SessionLoader
}

func NewPredictHandler(p PipelineRunner, s SessionLoader) *PredictHandler {
	return &PredictHandler{Pipeline: p, Sessions: s}
}

func writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		config.GetLogger().Errorw("could not encode json", "error", err)
	}
}

func writeError(w http.ResponseWriter, statusCode int, msg string) {
	writeJSONResponse(w, statusCode, model.Response{
		Error:   &msg,
		Message: "Error",
	})
}

// HandlePredict runs one prediction from a session handoff or inline fields
// and renders either the day views or an error view with remediation hints
// and the run's diagnostic log.
func (h *PredictHandler) HandlePredict(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req PredictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON request body")
		return
	}

	in, err := h.buildInput(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.Pipeline.Predict(r.Context(), in)
	if err != nil {
		h.writeErrorView(w, result, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, model.Response{
		Data: model.PredictionResult{
			Location:  result.Location,
			Days:      result.Days,
			SingleDay: len(result.Days) == 1,
			Progress:  result.Progress,
		},
		Message: "Success",
	})
}

// buildInput assembles the pipeline input, reading the session store once
// when a session ID is supplied. Inline fields win over session fields so a
// stale session cannot override an explicit resubmission.
func (h *PredictHandler) buildInput(ctx context.Context, req PredictRequest) (pipeline.Input, error) {
	in := pipeline.Input{
		APIKey:       req.MistralAPIKey,
		City:         req.City,
		State:        req.State,
		ForecastType: req.ForecastType,
	}

	if req.SessionID != "" {
		data, err := h.Sessions.Load(ctx, req.SessionID)
		if err != nil {
			if errors.Is(err, session.ErrSessionNotFound) {
				return in, errors.New("session not found or expired; submit the form again")
			}
			return in, err
		}
		if in.APIKey == "" {
			in.APIKey = data.MistralAPIKey
		}
		if in.City == "" {
			in.City = data.City
		}
		if in.State == "" {
			in.State = data.State
		}
		if in.ForecastType == "" {
			in.ForecastType = data.ForecastType
		}
		// Older form versions stored a single "City, State" location string.
		if in.City == "" && data.Location != "" {
			if city, state, ok := strings.Cut(data.Location, ","); ok {
				in.City = strings.TrimSpace(city)
				if in.State == "" {
					in.State = strings.TrimSpace(state)
				}
			}
		}
	}

	if in.APIKey == "" {
		in.APIKey = config.GetDefaultMistralAPIKey()
	}
	return in, nil
}

// writeErrorView maps the pipeline error taxonomy onto HTTP statuses and
// remediation copy.
func (h *PredictHandler) writeErrorView(w http.ResponseWriter, result *pipeline.Result, err error) {
	view := model.ErrorView{Error: err.Error()}
	if result != nil {
		view.Progress = result.Progress
		view.Log = result.Log
		view.TimedOut = result.State == pipeline.StateTimedOut
	}

	status := http.StatusInternalServerError
	view.Remediation = remediationUnexpected

	var validationErr *pipeline.ValidationError
	var authErr *model.AuthError
	var rateLimitErr *model.RateLimitError
	var transportErr *model.TransportError
	var malformedErr *model.MalformedResponseError

	switch {
	case errors.As(err, &validationErr):
		status = http.StatusBadRequest
		view.Remediation = remediationValidation
	case errors.Is(err, model.ErrLocationNotFound):
		status = http.StatusNotFound
		view.Remediation = remediationNotFound
	case errors.As(err, &authErr):
		status = http.StatusUnauthorized
		view.Remediation = remediationAuth
	case errors.As(err, &rateLimitErr):
		status = http.StatusTooManyRequests
		view.Remediation = remediationRateLimit
	case errors.Is(err, model.ErrRunTimedOut):
		status = http.StatusGatewayTimeout
		view.Remediation = remediationTimeout
	case errors.As(err, &transportErr), errors.As(err, &malformedErr):
		status = http.StatusBadGateway
		view.Remediation = remediationTransport
	case errors.Is(err, model.ErrAPIKeyMissing):
		status = http.StatusBadRequest
		view.Remediation = remediationValidation
	}

	writeJSONResponse(w, status, model.Response{
		Data:    view,
		Error:   &view.Remediation,
		Message: "Error",
	})
}
