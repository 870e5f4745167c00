package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"notedrop/internal/catalog"
	"notedrop/internal/event"
	"notedrop/internal/model"
	"notedrop/internal/staging"
	"notedrop/internal/telegram"
	"notedrop/pkg/apierror"
)

type ownershipStore interface {
	Create(ctx context.Context, row model.FileOwnership) error
	FindByID(ctx context.Context, fileID string) (model.FileOwnership, error)
	ListByUserSubject(ctx context.Context, userID string, subject string, category string) ([]model.FileOwnership, error)
}

type favoriteStore interface {
	Toggle(ctx context.Context, userID string, fileID string) (bool, error)
	ListFileIDs(ctx context.Context, userID string) (map[string]struct{}, error)
}

type statsInvalidator interface {
	Invalidate(ctx context.Context, userID string) error
}

const captionPrefix = "Uploaded by "

type FileOptions struct {
	MessagesLimit      int
	FanoutLimit        int
	InvalidateOnUpload bool
}

// FileService covers the per-caller file surface: uploads into subject
// channels, listings filtered down to the caller's own items, direct
// downloads and favorites. Channel contents are the source of truth;
// the ownership table only says which items are the caller's.
type FileService struct {
	catalog   *catalog.Catalog
	client    telegram.Client
	staged    staging.Store
	ownership ownershipStore
	favorites favoriteStore
	stats     statsInvalidator
	bus       event.Bus
	opts      FileOptions
}

func NewFileService(cat *catalog.Catalog, client telegram.Client, staged staging.Store, ownership ownershipStore, favorites favoriteStore, stats statsInvalidator, bus event.Bus, opts FileOptions) *FileService {
	if opts.MessagesLimit <= 0 {
		opts.MessagesLimit = 50
	}
	if opts.FanoutLimit <= 0 {
		opts.FanoutLimit = 8
	}

	return &FileService{
		catalog:   cat,
		client:    client,
		staged:    staged,
		ownership: ownership,
		favorites: favorites,
		stats:     stats,
		bus:       bus,
		opts:      opts,
	}
}

// ListFiles returns the caller's uploads at (subject, category),
// intersecting the channel's recent items with the caller's ownership
// rows. Items the channel no longer reports are omitted.
func (s *FileService) ListFiles(ctx context.Context, userID string, subject string, category string) ([]model.FileSummary, error) {
	channelID, ok := s.catalog.Location(subject, category)
	if !ok {
		return nil, apierror.New("NOT_FOUND", "unknown subject or category", subject+"/"+category, http.StatusNotFound)
	}

	owned, err := s.ownership.ListByUserSubject(ctx, userID, subject, category)
	if err != nil {
		return nil, err
	}
	if len(owned) == 0 {
		return []model.FileSummary{}, nil
	}

	byMessage := make(map[int64]model.FileOwnership, len(owned))
	for _, row := range owned {
		byMessage[row.MessageID] = row
	}

	favoriteIDs, err := s.favorites.ListFileIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	items, err := s.client.GetRecentItems(ctx, channelID, s.opts.MessagesLimit)
	if err != nil {
		return nil, apierror.New("UPSTREAM_UNAVAILABLE", "channel listing failed", err.Error(), http.StatusBadGateway)
	}

	out := make([]model.FileSummary, 0, len(owned))
	for _, item := range items {
		if !item.HasFile() {
			continue
		}
		row, mine := byMessage[item.MessageID]
		if !mine {
			continue
		}

		name := item.FileName
		if name == "" {
			name = row.FileName
		}

		_, favorite := favoriteIDs[row.ID]
		out = append(out, model.FileSummary{
			ID:         row.ID,
			Name:       name,
			Size:       item.Size,
			UploadedAt: item.UploadedAt().Format(time.RFC3339),
			Subject:    subject,
			IsFavorite: favorite,
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].UploadedAt > out[j].UploadedAt })
	return out, nil
}

// Upload forwards a payload into the (subject, category) channel with
// uploader attribution in the caption, then records ownership.
func (s *FileService) Upload(ctx context.Context, user model.AuthUser, subject string, category string, payload io.Reader, fileName string) (model.UploadResult, error) {
	if strings.TrimSpace(fileName) == "" {
		return model.UploadResult{}, apierror.New("BAD_REQUEST", "file name is required", "", http.StatusBadRequest)
	}

	channelID, ok := s.catalog.Location(subject, category)
	if !ok {
		return model.UploadResult{}, apierror.New("NOT_FOUND", "unknown subject or category", subject+"/"+category, http.StatusNotFound)
	}

	caption := fmt.Sprintf("%s%s: %s", captionPrefix, user.Username, fileName)
	messageID, err := s.client.SendItem(ctx, channelID, payload, fileName, caption)
	if err != nil {
		return model.UploadResult{}, apierror.New("UPSTREAM_UNAVAILABLE", "upload failed", err.Error(), http.StatusBadGateway)
	}

	row := model.FileOwnership{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Subject:   subject,
		Category:  category,
		ChannelID: channelID,
		MessageID: messageID,
		FileName:  fileName,
	}
	if err := s.ownership.Create(ctx, row); err != nil {
		return model.UploadResult{}, err
	}

	if s.opts.InvalidateOnUpload && s.stats != nil {
		if err := s.stats.Invalidate(ctx, user.ID); err != nil {
			slog.Warn("stats invalidation after upload failed", "user_id", user.ID, "error", err)
		}
	}

	s.publish(event.TypeFileUploaded, map[string]interface{}{
		"user_id":    user.ID,
		"subject":    subject,
		"category":   category,
		"message_id": messageID,
		"file_name":  fileName,
	})

	return model.UploadResult{Success: true, MessageID: messageID, FileName: fileName}, nil
}

// UploadStaged resolves a previously staged blob and forwards it like
// Upload. The staged object is removed best-effort afterwards.
func (s *FileService) UploadStaged(ctx context.Context, user model.AuthUser, subject string, category string, stagedKey string, fileName string) (model.UploadResult, error) {
	body, err := s.staged.FetchStaged(ctx, stagedKey)
	if err != nil {
		if errors.Is(err, model.ErrStagedNotFound) {
			return model.UploadResult{}, apierror.New("NOT_FOUND", "staged upload not found", stagedKey, http.StatusNotFound)
		}
		return model.UploadResult{}, err
	}
	defer body.Close()

	result, err := s.Upload(ctx, user, subject, category, body, fileName)
	if err != nil {
		return model.UploadResult{}, err
	}

	if err := s.staged.DeleteStaged(ctx, stagedKey); err != nil {
		slog.Warn("delete staged object failed", "key", stagedKey, "error", err)
	}
	return result, nil
}

// Stage buffers an upload payload for a later forward.
func (s *FileService) Stage(ctx context.Context, payload io.Reader, fileName string, contentType string) (string, error) {
	return s.staged.StageUpload(ctx, payload, fileName, contentType)
}

// Download fetches a file's content through its ownership row. Only
// the uploader may download by id; remote failures propagate (there is
// no partial success for a single file).
func (s *FileService) Download(ctx context.Context, userID string, fileID string) (*telegram.Content, error) {
	row, err := s.ownership.FindByID(ctx, fileID)
	if err != nil {
		if errors.Is(err, model.ErrFileNotFound) {
			return nil, apierror.New("NOT_FOUND", "file not found", fileID, http.StatusNotFound)
		}
		return nil, err
	}
	if row.UserID != userID {
		return nil, apierror.New("FORBIDDEN", "file belongs to another user", "", http.StatusForbidden)
	}

	content, err := s.client.DownloadItem(ctx, row.ChannelID, row.MessageID)
	if err != nil {
		return nil, apierror.New("UPSTREAM_UNAVAILABLE", "download failed", err.Error(), http.StatusBadGateway)
	}
	if content.FileName == "" || strings.HasPrefix(content.FileName, "file_") {
		content.FileName = row.FileName
	}
	return content, nil
}

// ToggleFavorite flips the favorite flag on one of the caller's files
// and returns the new state.
func (s *FileService) ToggleFavorite(ctx context.Context, userID string, fileID string) (bool, error) {
	row, err := s.ownership.FindByID(ctx, fileID)
	if err != nil {
		if errors.Is(err, model.ErrFileNotFound) {
			return false, apierror.New("NOT_FOUND", "file not found", fileID, http.StatusNotFound)
		}
		return false, err
	}
	if row.UserID != userID {
		return false, apierror.New("FORBIDDEN", "file belongs to another user", "", http.StatusForbidden)
	}

	return s.favorites.Toggle(ctx, userID, fileID)
}

// SharedFiles lists the community (Public channel) items, newest
// first, with uploader attribution parsed from captions. An empty
// subject spans every Public channel; a failing channel contributes
// nothing.
func (s *FileService) SharedFiles(ctx context.Context, subject string) ([]model.SharedFile, error) {
	locations := s.catalog.PublicLocations()
	if subject != "" {
		id, ok := locations[subject]
		if !ok {
			return nil, apierror.New("NOT_FOUND", "no shared channel for subject", subject, http.StatusNotFound)
		}
		locations = map[string]int64{subject: id}
	}

	var (
		mu  sync.Mutex
		out []model.SharedFile
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.FanoutLimit)

	for subj, channelID := range locations {
		subj, channelID := subj, channelID
		g.Go(func() error {
			items, err := s.client.GetRecentItems(gctx, channelID, s.opts.MessagesLimit)
			if err != nil {
				slog.Error("fetch shared channel items", "channel_id", channelID, "subject", subj, "error", err)
				return nil
			}

			shared := make([]model.SharedFile, 0, len(items))
			for _, item := range items {
				if !item.HasFile() {
					continue
				}
				uploader, name := parseCaption(item.Caption)
				if name == "" {
					name = displayName(item)
				}
				shared = append(shared, model.SharedFile{
					ID:         fmt.Sprintf("%s-%s-%d", subj, catalog.CategoryPublic, item.MessageID),
					Name:       name,
					Size:       item.Size,
					UploadedAt: item.UploadedAt().Format(time.RFC3339),
					Type:       item.MimeType,
					UploadedBy: uploader,
					Subject:    subj,
				})
			}

			mu.Lock()
			out = append(out, shared...)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	sort.SliceStable(out, func(i, j int) bool { return out[i].UploadedAt > out[j].UploadedAt })
	return out, nil
}

// SharedUpload forwards a staged blob into a subject's Public channel.
func (s *FileService) SharedUpload(ctx context.Context, user model.AuthUser, req model.SharedUploadRequest) (model.UploadResult, error) {
	if strings.TrimSpace(req.StagedKey) == "" || strings.TrimSpace(req.FileName) == "" {
		return model.UploadResult{}, apierror.New("BAD_REQUEST", "staged_key and file_name are required", "", http.StatusBadRequest)
	}
	if _, ok := s.catalog.Location(req.Subject, catalog.CategoryPublic); !ok {
		return model.UploadResult{}, apierror.New("NOT_FOUND", "no shared channel for subject", req.Subject, http.StatusNotFound)
	}

	return s.UploadStaged(ctx, user, req.Subject, catalog.CategoryPublic, req.StagedKey, req.FileName)
}

// parseCaption extracts (uploader, file name) from the attribution
// caption format written by Upload. Unattributed captions return
// "Anonymous" and an empty name.
func parseCaption(caption string) (string, string) {
	if !strings.HasPrefix(caption, captionPrefix) {
		return "Anonymous", ""
	}
	rest := strings.TrimPrefix(caption, captionPrefix)
	uploader, name, found := strings.Cut(rest, ": ")
	if !found || strings.TrimSpace(uploader) == "" {
		return "Anonymous", strings.TrimSpace(rest)
	}
	return strings.TrimSpace(uploader), strings.TrimSpace(name)
}

func (s *FileService) publish(eventType event.Type, payload interface{}) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(event.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Payload:   payload,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
