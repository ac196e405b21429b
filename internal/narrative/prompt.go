package narrative

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/snowcastlabs/snowday-api/internal/model"
)

// systemPrompt frames the model as a cautious school-closure forecaster.
const systemPrompt = `You are an experienced school district weather analyst. ` +
	`You estimate the likelihood of snow days from forecast data. ` +
	`You are realistic and conservative: you never promise a closure, you give probabilities.`

// BuildPrompt renders the user prompt for a narrative request: the forecast
// as JSON, any active weather alerts, and the instructions that ask for a
// day-by-day breakdown. The "Day N" heading instruction is what the segmenter
// later matches on.
func BuildPrompt(city, state string, fc model.DailyForecast, alerts []model.WeatherAlert) (string, error) {
	data, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return "", err
	}

	return fmt.Sprintf(`Here is the %d-day weather forecast for %s, %s:

%s
%s
Analyze the likelihood of snow days for this school district. Break your answer down day by day, and begin each day's section with a heading line of the form "Day N (date)". For each day, estimate the probability of a full school closure, a delayed start, and an early dismissal, and explain your reasoning from the snowfall, precipitation, temperatures and wind in the data.`,
		len(fc), city, state, data, alertsSection(alerts)), nil
}

// alertsSection renders the active-alerts block, or an empty string when
// there are none so the prompt stays compact.
func alertsSection(alerts []model.WeatherAlert) string {
	if len(alerts) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\nActive National Weather Service alerts for this area:\n")
	for _, a := range alerts {
		b.WriteString("- ")
		b.WriteString(a.Event)
		if a.Severity != "" {
			b.WriteString(" (" + a.Severity + ")")
		}
		if a.Headline != "" {
			b.WriteString(": " + a.Headline)
		}
		b.WriteString("\n")
	}
	b.WriteString("Weigh these alerts in your probabilities.\n")
	return b.String()
}
