package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	redisv9 "github.com/redis/go-redis/v9"
	"github.com/snowcastlabs/snowday-api/internal/config"
	"github.com/snowcastlabs/snowday-api/internal/model"
	"github.com/snowcastlabs/snowday-api/internal/redis"
)

// redisCache is the subset of the go-redis API the client uses.
type redisCache interface {
	Get(ctx context.Context, key string) *redisv9.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redisv9.StatusCmd
}

// Client resolves a (city, state) pair to coordinates via the Open-Meteo
// geocoding service, restricted to the US. Resolved coordinates are cached
// in Redis; place names do not move.
type Client struct {
	httpClient *http.Client
	cache      redisCache
}

// NewClient creates a geocoder client. An optional *http.Client may be
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

// maxCandidates bounds the geocoder result list used for state matching.
// Duplicate US city names (there are over 30 Springfields) rarely exceed it.
const maxCandidates = 10

// Resolve looks up the best US match for city and state. The geocoder is
// queried by city name only, so the candidate list is filtered by state: the
// first result whose admin1 region matches wins, falling back to the
// geocoder's top match when no candidate carries the requested state. Zero
// results map to model.ErrLocationNotFound; non-success statuses to
// model.TransportError. No retries are attempted; the caller resubmits.
func (c *Client) Resolve(ctx context.Context, city, state string) (*model.Coordinates, error) {
	cacheKey := "geo:" + strings.ToLower(city) + "," + strings.ToLower(state)
	if cached, err := c.getFromCache(ctx, cacheKey); err == nil {
		return cached, nil
	}

	params := url.Values{}
	params.Set("name", city)
	params.Set("count", strconv.Itoa(maxCandidates))
	params.Set("language", "en")
	params.Set("countryCode", "US")
	params.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, config.GetGeocoderApiUrl()+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocoding request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &model.TransportError{Status: resp.StatusCode, Body: string(body)}
	}

	var data model.GeocodingResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, err
	}
	if len(data.Results) == 0 {
		return nil, model.ErrLocationNotFound
	}

	best := pickByState(data.Results, state)
	coords := &model.Coordinates{
		Latitude:      best.Latitude,
		Longitude:     best.Longitude,
		ResolvedName:  best.Name,
		ResolvedState: best.Admin1,
		Country:       best.CountryCode,
	}
	if coords.ResolvedState == "" {
		coords.ResolvedState = state
	}
	if !coords.Valid() {
		return nil, &model.MalformedResponseError{Field: "coordinates in range"}
	}

	c.cacheCoordinates(ctx, cacheKey, coords)

	config.GetLogger().Debugw("geocoded location",
		"city", city,
		"state", state,
		"latitude", coords.Latitude,
		"longitude", coords.Longitude,
	)
	return coords, nil
}

// pickByState prefers the candidate whose admin1 region matches the
// requested state, so "Springfield, Illinois" does not resolve to the more
// populous Springfield, Missouri.
func pickByState(results []model.GeocodingResult, state string) model.GeocodingResult {
	for _, r := range results {
		if strings.EqualFold(strings.TrimSpace(r.Admin1), strings.TrimSpace(state)) {
			return r
		}
	}
	return results[0]
}

func (c *Client) getFromCache(ctx context.Context, key string) (*model.Coordinates, error) {
	val, err := c.cache.Get(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	var coords model.Coordinates
	if err := json.Unmarshal([]byte(val), &coords); err != nil {
		return nil, err
	}
	return &coords, nil
}

func (c *Client) cacheCoordinates(ctx context.Context, key string, coords *model.Coordinates) {
	if b, err := json.Marshal(coords); err == nil {
		_ = c.cache.Set(ctx, key, b, config.GetCacheExpiration()).Err()
	}
}
