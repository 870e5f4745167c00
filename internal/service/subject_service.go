package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"notedrop/internal/catalog"
	"notedrop/internal/directory"
	"notedrop/internal/event"
	"notedrop/internal/model"
	"notedrop/internal/telegram"
	"notedrop/pkg/apierror"
)

type subscriptionStore interface {
	Upsert(ctx context.Context, sub model.Subscription) error
	DeleteBySubject(ctx context.Context, userID string, subject string) (int64, error)
	ListSubjects(ctx context.Context, userID string) ([]string, error)
	ListChannelIDs(ctx context.Context, userID string) ([]int64, error)
}

type ownershipCleaner interface {
	DeleteBySubject(ctx context.Context, userID string, subject string) (int64, error)
}

// SubjectService manages a caller's subject memberships. Channel joins
// and leaves against the remote are best-effort: a category whose join
// fails is skipped (and not persisted), a leave that fails is logged
// and the local cleanup proceeds anyway.
type SubjectService struct {
	catalog   *catalog.Catalog
	directory *directory.Store
	client    telegram.Client
	subs      subscriptionStore
	ownership ownershipCleaner
	bus       event.Bus
}

func NewSubjectService(cat *catalog.Catalog, dir *directory.Store, client telegram.Client, subs subscriptionStore, ownership ownershipCleaner, bus event.Bus) *SubjectService {
	return &SubjectService{
		catalog:   cat,
		directory: dir,
		client:    client,
		subs:      subs,
		ownership: ownership,
		bus:       bus,
	}
}

// Subscribe joins the caller to every member channel of a subject and
// records the memberships that took. It fails only when the subject is
// unknown or no channel could be joined at all.
func (s *SubjectService) Subscribe(ctx context.Context, userID string, subject string) ([]string, error) {
	if !s.catalog.HasSubject(subject) {
		return nil, apierror.New("NOT_FOUND", "unknown subject", subject, http.StatusNotFound)
	}

	now := time.Now().UTC()
	joined := make([]string, 0, len(catalog.MemberCategories))

	for _, category := range catalog.MemberCategories {
		channelID, ok := s.catalog.Location(subject, category)
		if !ok {
			continue
		}

		if err := s.client.JoinChannel(ctx, channelID); err != nil {
			slog.Warn("join channel failed; skipping category",
				"subject", subject, "category", category, "channel_id", channelID, "error", err)
			continue
		}

		if err := s.subs.Upsert(ctx, model.Subscription{
			UserID:    userID,
			Subject:   subject,
			Category:  category,
			ChannelID: channelID,
			CreatedAt: now,
		}); err != nil {
			return nil, err
		}
		joined = append(joined, category)
	}

	if len(joined) == 0 {
		return nil, apierror.New("UPSTREAM_UNAVAILABLE", "could not join any channel for subject", subject, http.StatusBadGateway)
	}

	s.directory.AddChannel(s.directoryRecord(subject))

	s.publish(event.TypeSubjectSubscribed, map[string]interface{}{
		"user_id":    userID,
		"subject":    subject,
		"categories": joined,
	})

	return joined, nil
}

// Unsubscribe leaves the subject's member channels and removes the
// caller's subscription and upload rows. Leave failures are logged and
// do not block the local cleanup; favorites go with their upload rows
// via the schema cascade.
func (s *SubjectService) Unsubscribe(ctx context.Context, userID string, subject string) error {
	if !s.catalog.HasSubject(subject) {
		return apierror.New("NOT_FOUND", "unknown subject", subject, http.StatusNotFound)
	}

	for _, category := range catalog.MemberCategories {
		channelID, ok := s.catalog.Location(subject, category)
		if !ok {
			continue
		}
		if err := s.client.LeaveChannel(ctx, channelID); err != nil {
			slog.Warn("leave channel failed",
				"subject", subject, "category", category, "channel_id", channelID, "error", err)
		}
	}

	if _, err := s.subs.DeleteBySubject(ctx, userID, subject); err != nil {
		return err
	}
	if _, err := s.ownership.DeleteBySubject(ctx, userID, subject); err != nil {
		return err
	}

	s.publish(event.TypeSubjectRemoved, map[string]interface{}{
		"user_id": userID,
		"subject": subject,
	})

	return nil
}

// ListSubjects returns the subjects the caller is subscribed to.
func (s *SubjectService) ListSubjects(ctx context.Context, userID string) ([]string, error) {
	return s.subs.ListSubjects(ctx, userID)
}

// ListChannelIDs returns the ids of every channel the caller holds a
// recorded membership of.
func (s *SubjectService) ListChannelIDs(ctx context.Context, userID string) ([]int64, error) {
	return s.subs.ListChannelIDs(ctx, userID)
}

// AvailableSubjects returns every subject the catalog knows about.
func (s *SubjectService) AvailableSubjects() []string {
	return s.catalog.Subjects()
}

// Channels resolves a subject's directory record, preferring the live
// registry and falling back to the static catalog.
func (s *SubjectService) Channels(subject string) (model.DirectoryRecord, error) {
	if !s.catalog.HasSubject(subject) && !s.directory.HasSubject(subject) {
		return model.DirectoryRecord{}, apierror.New("NOT_FOUND", "unknown subject", subject, http.StatusNotFound)
	}

	if s.directory.HasSubject(subject) {
		if mainID, ok := s.directory.GetMainChannelID(subject); ok {
			record := model.DirectoryRecord{Subject: subject, MainChannelID: mainID}
			for _, category := range []string{catalog.CategoryTheory, catalog.CategoryPractical, catalog.CategoryPublic} {
				if id, ok := s.directory.GetChannelID(subject, category); ok {
					record.SubChannels = append(record.SubChannels, model.SubChannel{
						Name: fmt.Sprintf("%s-%s", subject, category),
						ID:   id,
					})
				}
			}
			return record, nil
		}
	}

	return s.directoryRecord(subject), nil
}

func (s *SubjectService) directoryRecord(subject string) model.DirectoryRecord {
	record := model.DirectoryRecord{Subject: subject}
	if mainID, ok := s.catalog.Location(subject, catalog.CategoryMain); ok {
		record.MainChannelID = mainID
	}
	for _, category := range []string{catalog.CategoryTheory, catalog.CategoryPractical, catalog.CategoryPublic} {
		if id, ok := s.catalog.Location(subject, category); ok {
			record.SubChannels = append(record.SubChannels, model.SubChannel{
				Name: fmt.Sprintf("%s-%s", subject, category),
				ID:   id,
			})
		}
	}
	return record
}

func (s *SubjectService) publish(eventType event.Type, payload interface{}) {
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
