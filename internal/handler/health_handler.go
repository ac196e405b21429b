package handler

import (
	"net/http"

	"github.com/snowcastlabs/snowday-api/internal/model"
	"github.com/snowcastlabs/snowday-api/internal/redis"
)

// HandleHealth reports liveness, including whether Redis is reachable.
func HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"redis": "ok"}
	if err := redis.GetClient().Ping(r.Context()).Err(); err != nil {
		status["redis"] = "unreachable"
	}
	writeJSONResponse(w, http.StatusOK, model.Response{
		Data:    status,
		Message: "OK",
	})
}
