package forecast

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	redisv9 "github.com/redis/go-redis/v9"
	"github.com/snowcastlabs/snowday-api/internal/config"
	"github.com/snowcastlabs/snowday-api/internal/model"
	"github.com/snowcastlabs/snowday-api/internal/redis"
)

// dailyVariables are the per-day series requested from Open-Meteo, in the
// order the prompt presents them.
const dailyVariables = "temperature_2m_max,temperature_2m_min,precipitation_sum,snowfall_sum,wind_speed_10m_max"

// redisCache is the subset of the go-redis API the client uses.
type redisCache interface {
	Get(ctx context.Context, key string) *redisv9.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redisv9.StatusCmd
}

// Client fetches a multi-day daily forecast from the Open-Meteo forecast
// service, in Fahrenheit, inches and mph. Responses are cached in Redis.
type Client struct {
	httpClient *http.Client
	cache      redisCache
}

// NewClient creates a forecast client. An optional *http.Client may be
// injected for testing.
func NewClient(httpClient ...*http.Client) *Client {
	client := http.DefaultClient
	if len(httpClient) > 0 && httpClient[0] != nil {
		client = httpClient[0]
	}
	return &Client{
		httpClient: client,
		cache:      redis.GetClient(),
	}
}

// Fetch requests a days-long daily forecast for the coordinates. Coordinates
// are rounded to 4 decimal places before the request to normalize cache keys
// on the remote service. The returned forecast is chronological.
func (c *Client) Fetch(ctx context.Context, coords model.Coordinates, days int) (model.DailyForecast, error) {
	lat := fmt.Sprintf("%.4f", coords.Latitude)
	lon := fmt.Sprintf("%.4f", coords.Longitude)

	cacheKey := "forecast:" + lat + "," + lon + ":" + strconv.Itoa(days)
	if cached, err := c.getFromCache(ctx, cacheKey); err == nil {
		return cached, nil
	}

	params := url.Values{}
	params.Set("latitude", lat)
	params.Set("longitude", lon)
	params.Set("daily", dailyVariables)
	params.Set("temperature_unit", "fahrenheit")
	params.Set("precipitation_unit", "inch")
	params.Set("wind_speed_unit", "mph")
	params.Set("timezone", "auto")
	params.Set("forecast_days", strconv.Itoa(days))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, config.GetForecastApiUrl()+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("forecast request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &model.TransportError{Status: resp.StatusCode, Body: string(body)}
	}

	var data model.ForecastResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, err
	}

	fc, err := mapDailySeries(data.Daily)
	if err != nil {
		return nil, err
	}

	c.cacheForecast(ctx, cacheKey, fc)
	return fc, nil
}

// mapDailySeries zips the parallel per-day arrays into DayRecords, preserving
// chronological order.
func mapDailySeries(daily *model.DailySeries) (model.DailyForecast, error) {
	if daily == nil {
		return nil, &model.MalformedResponseError{Field: "daily data"}
	}
	n := len(daily.Time)
	if n == 0 ||
		len(daily.Temperature2mMax) != n ||
		len(daily.Temperature2mMin) != n ||
		len(daily.PrecipitationSum) != n ||
		len(daily.SnowfallSum) != n ||
		len(daily.WindSpeed10mMax) != n {
		return nil, &model.MalformedResponseError{Field: "complete daily series"}
	}

	fc := make(model.DailyForecast, n)
	for i := 0; i < n; i++ {
		fc[i] = model.DayRecord{
			Date:            daily.Time[i],
			MaxTempF:        daily.Temperature2mMax[i],
			MinTempF:        daily.Temperature2mMin[i],
			PrecipitationIn: daily.PrecipitationSum[i],
			SnowfallIn:      daily.SnowfallSum[i],
			MaxWindMph:      daily.WindSpeed10mMax[i],
		}
	}
	return fc, nil
}

func (c *Client) getFromCache(ctx context.Context, key string) (model.DailyForecast, error) {
	val, err := c.cache.Get(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	var fc model.DailyForecast
	if err := json.Unmarshal([]byte(val), &fc); err != nil {
		return nil, err
	}
	return fc, nil
}

func (c *Client) cacheForecast(ctx context.Context, key string, fc model.DailyForecast) {
	if b, err := json.Marshal(fc); err == nil {
		_ = c.cache.Set(ctx, key, b, config.GetCacheExpiration()).Err()
	}
}
