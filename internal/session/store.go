package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	redisv9 "github.com/redis/go-redis/v9"
	"github.com/snowcastlabs/snowday-api/internal/config"
	"github.com/snowcastlabs/snowday-api/internal/redis"
)

var ErrSessionNotFound = errors.New("session not found or expired")

// Data is the key-value payload handed from the form submission to the
// prediction run. The pipeline reads it once at run start and never mutates
// it.
type Data struct {
	MistralAPIKey string `json:"mistralApiKey"`
	City          string `json:"city"`
	State         string `json:"state"`
	Location      string `json:"location"`
	ForecastType  string `json:"forecastType"`
}

// redisClient is the subset of the go-redis API the store uses.
type redisClient interface {
	Get(ctx context.Context, key string) *redisv9.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redisv9.StatusCmd
}

// Store keeps session data in Redis with a TTL, replacing browser
// session storage. Sessions vanish when the TTL lapses; nothing outlives it.
type Store struct {
	client redisClient
	ttl    time.Duration
}

// NewStore creates a session store backed by the shared Redis client.
func NewStore() *Store {
	return &Store{
		client: redis.GetClient(),
		ttl:    config.GetSessionExpiration(),
	}
}

// Save stores the session data under a fresh opaque ID and returns the ID.
func (s *Store) Save(ctx context.Context, data *Data) (string, error) {
	id, err := newSessionID()
	if err != nil {
		return "", err
	}

	b, err := json.Marshal(data)
	if err != nil {
		return "", err
	}
	if err := s.client.Set(ctx, "session:"+id, b, s.ttl).Err(); err != nil {
		return "", err
	}
	return id, nil
}

// Load reads the session data for an ID. Returns ErrSessionNotFound when the
// key is missing or expired.
func (s *Store) Load(ctx context.Context, id string) (*Data, error) {
	val, err := s.client.Get(ctx, "session:"+id).Result()
	if errors.Is(err, redisv9.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	var data Data
	if err := json.Unmarshal([]byte(val), &data); err != nil {
		return nil, err
	}
	return &data, nil
}

func newSessionID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
