package narrative

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/snowcastlabs/snowday-api/internal/config"
	"github.com/snowcastlabs/snowday-api/internal/model"
)

// Client submits weather summaries to the Mistral chat-completion endpoint
// and returns the free-form narrative text.
type Client struct {
	httpClient *http.Client
}

// NewClient creates a narrative client. An optional *http.Client may be
// injected for testing.
func NewClient(httpClient ...*http.Client) *Client {
	client := http.DefaultClient
	if len(httpClient) > 0 && httpClient[0] != nil {
		client = httpClient[0]
	}
	return &Client{httpClient: client}
}

// Generate asks the model for a day-by-day snow-day analysis of the forecast,
// with any active weather alerts folded into the prompt. The caller-supplied
// key is sent as the bearer credential. 401 maps to model.AuthError, 429 to
// model.RateLimitError, other non-success statuses to model.TransportError.
// Returns the content of the first completion choice.
func (c *Client) Generate(ctx context.Context, city, state string, fc model.DailyForecast, alerts []model.WeatherAlert, apiKey string) (string, error) {
	if apiKey == "" {
		return "", model.ErrAPIKeyMissing
	}

	prompt, err := BuildPrompt(city, state, fc, alerts)
	if err != nil {
		return "", err
	}

	reqBody := model.ChatRequest{
		Model: config.GetMistralModel(),
		Messages: []model.ChatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: config.GetMistralTemperature(),
		MaxTokens:   config.GetMistralMaxTokens(),
	}
	b, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, config.GetMistralApiUrl(), bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat completion request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		switch resp.StatusCode {
		case http.StatusUnauthorized:
			return "", &model.AuthError{Body: string(body)}
		case http.StatusTooManyRequests:
			return "", &model.RateLimitError{Body: string(body)}
		default:
			return "", &model.TransportError{Status: resp.StatusCode, Body: string(body)}
		}
	}

	var data model.ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return "", err
	}
	if len(data.Choices) == 0 {
		return "", &model.MalformedResponseError{Field: "a completion choice"}
	}

	return data.Choices[0].Message.Content, nil
}
