package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"notedrop/internal/model"
)

// Timeout caps handler time. The bridge fan-out dominates request
// latency, so the limit has to sit above the bridge client timeout or
// slow channels surface as 503s here instead of partial aggregates.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	body, _ := json.Marshal(model.APIResponse{
		Success: false,
		Error: &model.APIError{
			Code:    "REQUEST_TIMEOUT",
			Message: "request timed out",
		},
	})

	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, timeout, string(body))
	}
}
