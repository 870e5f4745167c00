package handler

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"notedrop/internal/middleware"
	"notedrop/internal/model"
	"notedrop/internal/service"
	"notedrop/pkg/apierror"
)

type SubjectHandler struct {
	service *service.SubjectService
}

func NewSubjectHandler(service *service.SubjectService) *SubjectHandler {
	return &SubjectHandler{service: service}
}

// List returns the full catalog and the caller's current subscriptions.
func (h *SubjectHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, apierror.Unauthorized())
		return
	}

	subscribed, err := h.service.ListSubjects(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{
		"available":  h.service.AvailableSubjects(),
		"subscribed": subscribed,
	}, nil)
}

// Subscribe joins the caller to one or more subjects. Subjects are
// processed independently; one failing does not abort the rest.
func (h *SubjectHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, apierror.Unauthorized())
		return
	}

	var payload model.SubscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid JSON body", "", http.StatusBadRequest))
		return
	}
	if len(payload.Subjects) == 0 {
		writeError(w, apierror.New("BAD_REQUEST", "subjects are required", "subjects", http.StatusBadRequest))
		return
	}

	type subjectResult struct {
		Subject    string   `json:"subject"`
		Joined     []string `json:"joined,omitempty"`
		Error      string   `json:"error,omitempty"`
		Subscribed bool     `json:"subscribed"`
	}

	results := make([]subjectResult, 0, len(payload.Subjects))
	anySubscribed := false
	for _, subject := range payload.Subjects {
		subject = strings.TrimSpace(subject)
		if subject == "" {
			continue
		}

		joined, err := h.service.Subscribe(r.Context(), claims.UserID, subject)
		if err != nil {
			results = append(results, subjectResult{Subject: subject, Error: err.Error()})
			continue
		}
		anySubscribed = true
		results = append(results, subjectResult{Subject: subject, Joined: joined, Subscribed: true})
	}

	status := http.StatusOK
	if !anySubscribed {
		status = http.StatusBadGateway
	}
	writeSuccess(w, status, results, nil)
}

// Unsubscribe removes the caller from a subject.
func (h *SubjectHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, apierror.Unauthorized())
		return
	}

	subject := subjectParam(r)
	if subject == "" {
		writeError(w, apierror.New("BAD_REQUEST", "subject is required", "subject", http.StatusBadRequest))
		return
	}

	if err := h.service.Unsubscribe(r.Context(), claims.UserID, subject); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"removed": subject}, nil)
}

// ChannelIDs returns the ids of every channel the caller is subscribed
// to, serialized as strings so large ids survive JSON number handling
// in browser clients.
func (h *SubjectHandler) ChannelIDs(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, apierror.Unauthorized())
		return
	}

	ids, err := h.service.ListChannelIDs(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	encoded := make([]string, 0, len(ids))
	for _, id := range ids {
		encoded = append(encoded, strconv.FormatInt(id, 10))
	}
	writeSuccess(w, http.StatusOK, map[string]any{"channels": encoded}, nil)
}

// Channels returns a subject's directory record.
func (h *SubjectHandler) Channels(w http.ResponseWriter, r *http.Request) {
	subject := subjectParam(r)
	if subject == "" {
		writeError(w, apierror.New("BAD_REQUEST", "subject is required", "subject", http.StatusBadRequest))
		return
	}

	record, err := h.service.Channels(subject)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, record, nil)
}

// subjectParam reads the {subject} path segment. Subject names carry
// spaces, so the segment arrives percent-encoded.
func subjectParam(r *http.Request) string {
	raw := chi.URLParam(r, "subject")
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return strings.TrimSpace(decoded)
}
