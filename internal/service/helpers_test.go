package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"notedrop/internal/directory"
	"notedrop/internal/model"
)

type fakeUserStore struct {
	byID       map[string]model.User
	byUsername map[string]model.User
}

func newFakeUserStore(users ...model.User) *fakeUserStore {
	s := &fakeUserStore{byID: map[string]model.User{}, byUsername: map[string]model.User{}}
	for _, user := range users {
		s.byID[user.ID] = user
		s.byUsername[user.Username] = user
	}
	return s
}

func (s *fakeUserStore) Create(_ context.Context, user model.User) error {
	if _, exists := s.byUsername[user.Username]; exists {
		return model.ErrUserAlreadyExists
	}
	s.byID[user.ID] = user
	s.byUsername[user.Username] = user
	return nil
}

func (s *fakeUserStore) FindByUsername(_ context.Context, username string) (model.User, error) {
	user, exists := s.byUsername[username]
	if !exists {
		return model.User{}, model.ErrUserNotFound
	}
	return user, nil
}

func (s *fakeUserStore) FindByID(_ context.Context, userID string) (model.User, error) {
	user, exists := s.byID[userID]
	if !exists {
		return model.User{}, model.ErrUserNotFound
	}
	return user, nil
}

type fakeTokenStore struct {
	tokens map[string]string // tokenID -> userID
}

func newFakeTokenStore() *fakeTokenStore {
	return &fakeTokenStore{tokens: map[string]string{}}
}

func (s *fakeTokenStore) Store(_ context.Context, tokenID string, userID string, _ time.Time) error {
	s.tokens[tokenID] = userID
	return nil
}

func (s *fakeTokenStore) Consume(_ context.Context, tokenID string, userID string) (bool, error) {
	owner, exists := s.tokens[tokenID]
	if !exists || owner != userID {
		return false, nil
	}
	delete(s.tokens, tokenID)
	return true, nil
}

func (s *fakeTokenStore) Revoke(_ context.Context, tokenID string) error {
	delete(s.tokens, tokenID)
	return nil
}

type fakeFavorites struct {
	favorites map[string]map[string]struct{} // userID -> fileID set
}

func newFakeFavorites() *fakeFavorites {
	return &fakeFavorites{favorites: map[string]map[string]struct{}{}}
}

func (s *fakeFavorites) Toggle(_ context.Context, userID string, fileID string) (bool, error) {
	set, exists := s.favorites[userID]
	if !exists {
		set = map[string]struct{}{}
		s.favorites[userID] = set
	}
	if _, favorite := set[fileID]; favorite {
		delete(set, fileID)
		return false, nil
	}
	set[fileID] = struct{}{}
	return true, nil
}

func (s *fakeFavorites) CountByUser(_ context.Context, userID string) (int, error) {
	return len(s.favorites[userID]), nil
}

func (s *fakeFavorites) ListFileIDs(_ context.Context, userID string) (map[string]struct{}, error) {
	out := map[string]struct{}{}
	for id := range s.favorites[userID] {
		out[id] = struct{}{}
	}
	return out, nil
}

type fakeSubscriptions struct {
	rows map[string]model.Subscription // userID|subject|category
}

func newFakeSubscriptions() *fakeSubscriptions {
	return &fakeSubscriptions{rows: map[string]model.Subscription{}}
}

func subKey(userID, subject, category string) string {
	return userID + "|" + subject + "|" + category
}

func (s *fakeSubscriptions) Upsert(_ context.Context, sub model.Subscription) error {
	s.rows[subKey(sub.UserID, sub.Subject, sub.Category)] = sub
	return nil
}

func (s *fakeSubscriptions) DeleteBySubject(_ context.Context, userID string, subject string) (int64, error) {
	var deleted int64
	for key, sub := range s.rows {
		if sub.UserID == userID && sub.Subject == subject {
			delete(s.rows, key)
			deleted++
		}
	}
	return deleted, nil
}

func (s *fakeSubscriptions) ListSubjects(_ context.Context, userID string) ([]string, error) {
	seen := map[string]struct{}{}
	out := []string{}
	for _, sub := range s.rows {
		if sub.UserID != userID || sub.Category != "Main" {
			continue
		}
		if _, dup := seen[sub.Subject]; dup {
			continue
		}
		seen[sub.Subject] = struct{}{}
		out = append(out, sub.Subject)
	}
	return out, nil
}

func (s *fakeSubscriptions) ListChannelIDs(_ context.Context, userID string) ([]int64, error) {
	keys := []string{}
	for key, sub := range s.rows {
		if sub.UserID == userID {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	out := []int64{}
	for _, key := range keys {
		out = append(out, s.rows[key].ChannelID)
	}
	return out, nil
}

type fakeOwnership struct {
	rows map[string]model.FileOwnership
}

func newFakeOwnership(rows ...model.FileOwnership) *fakeOwnership {
	s := &fakeOwnership{rows: map[string]model.FileOwnership{}}
	for _, row := range rows {
		s.rows[row.ID] = row
	}
	return s
}

func (s *fakeOwnership) Create(_ context.Context, row model.FileOwnership) error {
	s.rows[row.ID] = row
	return nil
}

func (s *fakeOwnership) FindByID(_ context.Context, fileID string) (model.FileOwnership, error) {
	row, exists := s.rows[fileID]
	if !exists {
		return model.FileOwnership{}, model.ErrFileNotFound
	}
	return row, nil
}

func (s *fakeOwnership) ListByUserSubject(_ context.Context, userID string, subject string, category string) ([]model.FileOwnership, error) {
	out := []model.FileOwnership{}
	for _, row := range s.rows {
		if row.UserID == userID && row.Subject == subject && row.Category == category {
			out = append(out, row)
		}
	}
	return out, nil
}

func (s *fakeOwnership) DeleteBySubject(_ context.Context, userID string, subject string) (int64, error) {
	var deleted int64
	for id, row := range s.rows {
		if row.UserID == userID && row.Subject == subject {
			delete(s.rows, id)
			deleted++
		}
	}
	return deleted, nil
}

type fakeStaging struct {
	objects map[string][]byte
	deleted []string
}

func newFakeStaging() *fakeStaging {
	return &fakeStaging{objects: map[string][]byte{}}
}

func (s *fakeStaging) StageUpload(_ context.Context, payload io.Reader, fileName string, _ string) (string, error) {
	data, err := io.ReadAll(payload)
	if err != nil {
		return "", err
	}
	key := fmt.Sprintf("staged/test/%s-%d", fileName, len(s.objects))
	s.objects[key] = data
	return key, nil
}

func (s *fakeStaging) FetchStaged(_ context.Context, key string) (io.ReadCloser, error) {
	data, exists := s.objects[key]
	if !exists {
		return nil, model.ErrStagedNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *fakeStaging) DeleteStaged(_ context.Context, key string) error {
	delete(s.objects, key)
	s.deleted = append(s.deleted, key)
	return nil
}

type fakeInvalidator struct {
	calls []string
}

func (s *fakeInvalidator) Invalidate(_ context.Context, userID string) error {
	s.calls = append(s.calls, userID)
	return nil
}

func mathUpload(id string, userID string, messageID int64) model.FileOwnership {
	return model.FileOwnership{
		ID:        id,
		UserID:    userID,
		Subject:   "Math",
		Category:  "Main",
		ChannelID: -100,
		MessageID: messageID,
		FileName:  id + ".pdf",
	}
}

// memPersist is an in-memory directory.Persistence for wiring a real
// directory store into subject service tests.
type memPersist struct {
	data []byte
	set  bool
}

func (p *memPersist) Load() ([]byte, error) {
	if !p.set {
		return nil, directory.ErrNotPersisted
	}
	return p.data, nil
}

func (p *memPersist) Save(data []byte) error {
	p.data = append([]byte(nil), data...)
	p.set = true
	return nil
}

func (p *memPersist) Delete() error {
	p.data = nil
	p.set = false
	return nil
}
