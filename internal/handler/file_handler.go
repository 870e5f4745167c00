package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"notedrop/internal/catalog"
	"notedrop/internal/middleware"
	"notedrop/internal/model"
	"notedrop/internal/service"
	"notedrop/pkg/apierror"
)

// Upload payloads are buffered before forwarding; this cap keeps a
// single request from exhausting memory. The remote bot API rejects
// anything over 50 MB anyway.
const maxUploadBytes = 50 << 20

type FileHandler struct {
	service *service.FileService
}

func NewFileHandler(service *service.FileService) *FileHandler {
	return &FileHandler{service: service}
}

// List returns the caller's uploads at ?subject=&type= (type defaults
// to Main).
func (h *FileHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, apierror.Unauthorized())
		return
	}

	subject := strings.TrimSpace(r.URL.Query().Get("subject"))
	if subject == "" {
		writeError(w, apierror.New("BAD_REQUEST", "subject is required", "subject", http.StatusBadRequest))
		return
	}
	category := strings.TrimSpace(r.URL.Query().Get("type"))
	if category == "" {
		category = catalog.CategoryMain
	}

	files, err := h.service.ListFiles(r.Context(), claims.UserID, subject, category)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, files, &model.Meta{Total: len(files)})
}

// Upload accepts a multipart form with subject, type and file fields
// and forwards the payload into the matching channel.
func (h *FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, apierror.Unauthorized())
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid multipart form", err.Error(), http.StatusBadRequest))
		return
	}

	subject := strings.TrimSpace(r.FormValue("subject"))
	if subject == "" {
		writeError(w, apierror.New("BAD_REQUEST", "subject is required", "subject", http.StatusBadRequest))
		return
	}
	category := strings.TrimSpace(r.FormValue("type"))
	if category == "" {
		category = catalog.CategoryMain
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "file field is required", "file", http.StatusBadRequest))
		return
	}
	defer file.Close()

	result, err := h.service.Upload(r.Context(), authUser(claims), subject, category, file, header.Filename)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, result, nil)
}

// Stage buffers an upload payload for a later forward and returns its
// staging key.
func (h *FileHandler) Stage(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.ClaimsFromContext(r.Context()); !ok {
		writeError(w, apierror.Unauthorized())
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid multipart form", err.Error(), http.StatusBadRequest))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "file field is required", "file", http.StatusBadRequest))
		return
	}
	defer file.Close()

	key, err := h.service.Stage(r.Context(), file, header.Filename, header.Header.Get("Content-Type"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, map[string]any{
		"staged_key": key,
		"file_name":  header.Filename,
	}, nil)
}

// UploadStaged forwards a previously staged payload.
func (h *FileHandler) UploadStaged(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, apierror.Unauthorized())
		return
	}

	var payload struct {
		StagedKey string `json:"staged_key"`
		FileName  string `json:"file_name"`
		Subject   string `json:"subject"`
		Type      string `json:"type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid JSON body", "", http.StatusBadRequest))
		return
	}
	if payload.Type == "" {
		payload.Type = catalog.CategoryMain
	}

	result, err := h.service.UploadStaged(r.Context(), authUser(claims), payload.Subject, payload.Type, payload.StagedKey, payload.FileName)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, result, nil)
}

// Download streams a file's content back to its uploader.
func (h *FileHandler) Download(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, apierror.Unauthorized())
		return
	}

	fileID := chi.URLParam(r, "file_id")
	content, err := h.service.Download(r.Context(), claims.UserID, fileID)
	if err != nil {
		writeError(w, err)
		return
	}

	mimeType := content.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Content-Length", strconv.Itoa(len(content.Data)))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", content.FileName))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(content.Data)
}

// ToggleFavorite flips the favorite flag and returns the new state.
func (h *FileHandler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, apierror.Unauthorized())
		return
	}

	fileID := chi.URLParam(r, "file_id")
	favorite, err := h.service.ToggleFavorite(r.Context(), claims.UserID, fileID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{
		"file_id":     fileID,
		"is_favorite": favorite,
	}, nil)
}

// SharedList returns community files, optionally filtered by ?subject=.
func (h *FileHandler) SharedList(w http.ResponseWriter, r *http.Request) {
	shared, err := h.service.SharedFiles(r.Context(), strings.TrimSpace(r.URL.Query().Get("subject")))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, shared, &model.Meta{Total: len(shared)})
}

// SharedUpload forwards a staged payload into a subject's community
// channel.
func (h *FileHandler) SharedUpload(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, apierror.Unauthorized())
		return
	}

	var payload model.SharedUploadRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid JSON body", "", http.StatusBadRequest))
		return
	}

	result, err := h.service.SharedUpload(r.Context(), authUser(claims), payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, result, nil)
}

func authUser(claims *model.AuthClaims) model.AuthUser {
	return model.AuthUser{ID: claims.UserID, Username: claims.Username, Role: claims.Role}
}
