package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/snowcastlabs/snowday-api/internal/config"
	"github.com/snowcastlabs/snowday-api/internal/model"
)

// userAgent identifies this service to the NWS API, which rejects anonymous
// clients.
const userAgent = "snowday-api (contact@snowcastlabs.com)"

// Client fetches active National Weather Service alerts for a point. Alerts
// are supplementary context for the narrative, not forecast data, so callers
// treat a failed fetch as an empty alert list.
type Client struct {
	httpClient *http.Client
}

// NewClient creates an alerts client. An optional *http.Client may be
// injected for testing.
func NewClient(httpClient ...*http.Client) *Client {
	client := http.DefaultClient
	if len(httpClient) > 0 && httpClient[0] != nil {
		client = httpClient[0]
	}
	return &Client{httpClient: client}
}

// Fetch returns the active alerts covering the coordinates. An empty slice
// means no active alerts.
func (c *Client) Fetch(ctx context.Context, coords model.Coordinates) ([]model.WeatherAlert, error) {
	params := url.Values{}
	params.Set("point", fmt.Sprintf("%.4f,%.4f", coords.Latitude, coords.Longitude))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, config.GetAlertsApiUrl()+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/geo+json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("alerts request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &model.TransportError{Status: resp.StatusCode, Body: string(body)}
	}

	var data model.AlertsResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, err
	}

	out := make([]model.WeatherAlert, 0, len(data.Features))
	for _, f := range data.Features {
		out = append(out, f.Properties)
	}
	return out, nil
}
