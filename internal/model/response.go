package model

// Response is a generic struct for API responses
type Response struct {
	Data    interface{} `json:"data,omitempty"`
	Error   *string     `json:"error,omitempty"`
	Message string      `json:"message"`
}

// PredictionResult is the success payload of a prediction run.
type PredictionResult struct {
	Location  string    `json:"location"`
	Days      []DayView `json:"days"`
	SingleDay bool      `json:"singleDay"`
	Progress  int       `json:"progress"`
}

// ErrorView is the failure payload of a prediction run. Remediation carries
// the user-facing hint; Log the run's diagnostic lines.
type ErrorView struct {
	Error       string   `json:"error"`
	Remediation string   `json:"remediation"`
	TimedOut    bool     `json:"timedOut,omitempty"`
	Progress    int      `json:"progress"`
	Log         []string `json:"log,omitempty"`
}
