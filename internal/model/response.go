package model

// APIResponse is the envelope every JSON endpoint writes.
type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
	Meta    *Meta     `json:"meta,omitempty"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Meta carries list metadata for collection responses. File listings
// are bounded by the per-channel message limit, so there is no paging.
type Meta struct {
	Total int `json:"total"`
}
