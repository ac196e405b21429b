package main

import (
	"net/http"
	"time"

	"github.com/snowcastlabs/snowday-api/internal/config"
	"github.com/snowcastlabs/snowday-api/internal/handler"
	"github.com/snowcastlabs/snowday-api/internal/middleware"
	"github.com/snowcastlabs/snowday-api/internal/pipeline"
	"github.com/snowcastlabs/snowday-api/internal/redis"
	"github.com/snowcastlabs/snowday-api/internal/session"
)

func main() {
	logger := config.GetLogger()

	// Caching and sessions degrade without Redis; the API itself still works.
	if err := redis.GetClient().Ping(redis.GetContext()).Err(); err != nil {
		logger.Warnw("Redis unreachable at startup", "addr", config.GetRedisAddr(), "error", err)
	}

	store := session.NewStore()
	predictHandler := handler.NewPredictHandler(pipeline.New(), store)
	sessionHandler := handler.NewSessionHandler(store)

	mux := http.NewServeMux()
	mux.Handle("/predict", middleware.RateLimitMiddleware(http.HandlerFunc(predictHandler.HandlePredict)))
	mux.HandleFunc("/session", sessionHandler.HandleCreateSession)
	mux.HandleFunc("/healthz", handler.HandleHealth)

	middleware.StartRateLimiterCleanup()

	port := config.GetServerPort()
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: config.GetServerTimeout("read_header_timeout", 15*time.Second),
		ReadTimeout:       config.GetServerTimeout("read_timeout", 15*time.Second),
		// Must exceed the pipeline deadline or timed-out runs could not
		// render their error view.
		WriteTimeout: config.GetServerTimeout("write_timeout", 60*time.Second),
		IdleTimeout:  config.GetServerTimeout("idle_timeout", 30*time.Second),
	}

	logger.Infow("Snow day prediction API running", "port", port)
	logger.Fatal(srv.ListenAndServe())
}
