package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/snowcastlabs/snowday-api/internal/model"
	"github.com/snowcastlabs/snowday-api/internal/session"
)

// SessionSaver writes form submissions for a later prediction run.
type SessionSaver interface {
	Save(ctx context.Context, data *session.Data) (string, error)
}

type SessionHandler struct {
	Store SessionSaver
}

func NewSessionHandler(store SessionSaver) *SessionHandler {
	return &SessionHandler{Store: store}
}

// HandleCreateSession stores the form fields and returns the session ID the
// predict endpoint accepts in place of inline fields.
func (h *SessionHandler) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var data session.Data
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON request body")
		return
	}
	if data.City == "" || data.State == "" {
		writeError(w, http.StatusBadRequest, "Both 'city' and 'state' are required")
		return
	}

	id, err := h.Store.Save(r.Context(), &data)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to store session")
		return
	}

	writeJSONResponse(w, http.StatusCreated, model.Response{
		Data:    map[string]string{"sessionId": id},
		Message: "Success",
	})
}
