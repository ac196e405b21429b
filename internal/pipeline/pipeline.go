package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/snowcastlabs/snowday-api/internal/alerts"
	"github.com/snowcastlabs/snowday-api/internal/config"
	"github.com/snowcastlabs/snowday-api/internal/forecast"
	"github.com/snowcastlabs/snowday-api/internal/geocode"
	"github.com/snowcastlabs/snowday-api/internal/model"
	"github.com/snowcastlabs/snowday-api/internal/narrative"
)

// ForecastTypeSingleDay requests a one-day run; any other value means the
// configured multi-day forecast.
const ForecastTypeSingleDay = "1day"

// Geocoder resolves a city and state to coordinates.
type Geocoder interface {
	Resolve(ctx context.Context, city, state string) (*model.Coordinates, error)
}

// Forecaster fetches a daily forecast for coordinates.
type Forecaster interface {
	Fetch(ctx context.Context, coords model.Coordinates, days int) (model.DailyForecast, error)
}

// AlertFetcher lists active weather alerts for coordinates.
type AlertFetcher interface {
	Fetch(ctx context.Context, coords model.Coordinates) ([]model.WeatherAlert, error)
}

// Generator produces the snow-day narrative for a forecast.
type Generator interface {
	Generate(ctx context.Context, city, state string, fc model.DailyForecast, alerts []model.WeatherAlert, apiKey string) (string, error)
}

// Input is the submission a run starts from, read once and never mutated.
type Input struct {
	APIKey       string
	City         string
	State        string
	ForecastType string
}

// ValidationError reports required fields missing from a submission. No
// pipeline run is started when validation fails.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return "missing required input: " + strings.Join(e.Missing, ", ")
}

// Validate checks that the API key, city and state are all present.
func (in Input) Validate() error {
	var missing []string
	if in.APIKey == "" {
		missing = append(missing, "apiKey")
	}
	if in.City == "" {
		missing = append(missing, "city")
	}
	if in.State == "" {
		missing = append(missing, "state")
	}
	if len(missing) > 0 {
		return &ValidationError{Missing: missing}
	}
	return nil
}

// Result reports the terminal outcome of a run. On Done, Days holds one
// DayView per forecast day; on Failed or TimedOut it is nil and the error
// returned alongside describes the failure.
type Result struct {
	State    State
	Location string
	Days     []model.DayView
	Progress int
	Log      []string
	History  []State
}

// Pipeline sequences geocoding, forecast fetch and narrative generation for
// one submission at a time. Stages are strictly sequential; each stage's
// input is the prior stage's output.
type Pipeline struct {
	geocoder   Geocoder
	forecaster Forecaster
	alerter    AlertFetcher
	generator  Generator
	deadline   time.Duration
}

// New creates a pipeline wired to the real upstream clients and the
// configured deadline.
func New() *Pipeline {
	return NewWithClients(geocode.NewClient(), forecast.NewClient(), alerts.NewClient(), narrative.NewClient(), config.GetPipelineDeadline())
}

// NewWithClients creates a pipeline with injected stage clients, used by
// tests and by callers that need custom HTTP transports.
func NewWithClients(g Geocoder, f Forecaster, a AlertFetcher, n Generator, deadline time.Duration) *Pipeline {
	return &Pipeline{
		geocoder:   g,
		forecaster: f,
		alerter:    a,
		generator:  n,
		deadline:   deadline,
	}
}

// Predict executes one run. Validation happens before any state transition;
// a validation error returns immediately with a nil Result. Otherwise the
// returned Result is always non-nil and reports the terminal state, final
// progress value and diagnostic log, alongside any stage error wrapped with
// its stage prefix.
//
// The wall-clock deadline is armed when the run leaves Idle. If it elapses
// first the run terminates as TimedOut: the in-flight upstream call is
// cancelled through the context and any late completion is discarded.
func (p *Pipeline) Predict(ctx context.Context, in Input) (*Result, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	run := newRun()
	ctx, cancel := context.WithTimeout(ctx, p.deadline)
	defer cancel()

	result, err := p.execute(ctx, run, in)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			run.transition(StateTimedOut)
			// Matches the completed-bar-with-error-view rendering: the bar
			// fills, the result never arrives.
			run.progress.complete()
			run.Logf("run exceeded the %s deadline", p.deadline)
			config.GetLogger().Warnw("prediction run timed out", "deadline", p.deadline)
			return p.terminalResult(run), fmt.Errorf("%w after %s", model.ErrRunTimedOut, p.deadline)
		}
		run.transition(StateFailed)
		run.progress.freeze()
		run.Logf("run failed: %v", err)
		config.GetLogger().Errorw("prediction run failed", "error", err)
		return p.terminalResult(run), err
	}

	run.transition(StateDone)
	run.progress.complete()
	run.Logf("run complete")

	result.State = StateDone
	result.Progress = run.Progress()
	result.Log = run.Log()
	result.History = run.History()
	return result, nil
}

func (p *Pipeline) execute(ctx context.Context, run *Run, in Input) (*Result, error) {
	days := config.GetForecastDays()
	if in.ForecastType == ForecastTypeSingleDay {
		days = 1
	}

	run.transition(StateGeocoding)
	run.progress.setTarget(10)
	run.Logf("resolving %s, %s", in.City, in.State)
	coords, err := p.geocoder.Resolve(ctx, in.City, in.State)
	if err != nil {
		return nil, fmt.Errorf("location: %w", err)
	}
	run.progress.setTarget(30)
	run.Logf("resolved to %s, %s (%.4f, %.4f)", coords.ResolvedName, coords.ResolvedState, coords.Latitude, coords.Longitude)

	run.transition(StateFetchingForecast)
	run.progress.setTarget(45)
	run.Logf("fetching %d-day forecast", days)
	fc, err := p.forecaster.Fetch(ctx, *coords, days)
	if err != nil {
		return nil, fmt.Errorf("weather: %w", err)
	}
	run.progress.setTarget(60)
	run.Logf("received %d forecast days", len(fc))

	// Alerts are supplementary; a failed fetch degrades the prompt, never
	// the run.
	activeAlerts, err := p.alerter.Fetch(ctx, *coords)
	if err != nil {
		run.Logf("weather alerts unavailable: %v", err)
		activeAlerts = nil
	} else {
		run.Logf("found %d active weather alerts", len(activeAlerts))
	}

	run.transition(StateGeneratingNarrative)
	run.progress.setTarget(70)
	run.Logf("requesting snow day analysis")
	text, err := p.generator.Generate(ctx, in.City, in.State, fc, activeAlerts, in.APIKey)
	if err != nil {
		return nil, fmt.Errorf("AI: %w", err)
	}
	run.progress.setTarget(95)

	run.transition(StateSegmenting)
	days = len(fc)
	views := make([]model.DayView, days)
	for i, rec := range fc {
		views[i] = model.DayView{
			DayRecord:    rec,
			AnalysisText: narrative.DaySection(text, i+1, days),
		}
	}

	return &Result{
		Location: coords.ResolvedName + ", " + coords.ResolvedState,
		Days:     views,
	}, nil
}

func (p *Pipeline) terminalResult(run *Run) *Result {
	return &Result{
		State:    run.State(),
		Progress: run.Progress(),
		Log:      run.Log(),
		History:  run.History(),
	}
}
