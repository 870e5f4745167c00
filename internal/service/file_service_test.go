package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"notedrop/internal/catalog"
	"notedrop/internal/model"
	"notedrop/internal/telegram"
)

type fileFixture struct {
	svc         *FileService
	client      *telegram.MockClient
	staged      *fakeStaging
	ownership   *fakeOwnership
	favorites   *fakeFavorites
	invalidator *fakeInvalidator
}

func newFileFixture(opts FileOptions) *fileFixture {
	cat := catalog.New(map[string]map[string]int64{
		"Math": {
			catalog.CategoryMain:   -100,
			catalog.CategoryPublic: -103,
		},
		"Physics": {
			catalog.CategoryMain:   -200,
			catalog.CategoryPublic: -203,
		},
	})

	f := &fileFixture{
		client:      &telegram.MockClient{},
		staged:      newFakeStaging(),
		ownership:   newFakeOwnership(),
		favorites:   newFakeFavorites(),
		invalidator: &fakeInvalidator{},
	}
	f.svc = NewFileService(cat, f.client, f.staged, f.ownership, f.favorites, f.invalidator, nil, opts)
	return f
}

var alice = model.AuthUser{ID: "u1", Username: "alice", Role: "student"}

func TestUploadSendsWithAttributionCaption(t *testing.T) {
	f := newFileFixture(FileOptions{})
	f.client.On("SendItem", mock.Anything, int64(-100), mock.Anything, "notes.pdf", "Uploaded by alice: notes.pdf").
		Return(int64(42), nil)

	result, err := f.svc.Upload(context.Background(), alice, "Math", "Main", bytes.NewReader([]byte("payload")), "notes.pdf")
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, int64(42), result.MessageID)
	assert.Equal(t, "notes.pdf", result.FileName)

	require.Len(t, f.ownership.rows, 1)
	for _, row := range f.ownership.rows {
		assert.Equal(t, "u1", row.UserID)
		assert.Equal(t, "Math", row.Subject)
		assert.Equal(t, "Main", row.Category)
		assert.Equal(t, int64(-100), row.ChannelID)
		assert.Equal(t, int64(42), row.MessageID)
	}

	assert.Empty(t, f.invalidator.calls)
	f.client.AssertExpectations(t)
}

func TestUploadInvalidatesStatsWhenEnabled(t *testing.T) {
	f := newFileFixture(FileOptions{InvalidateOnUpload: true})
	f.client.On("SendItem", mock.Anything, int64(-100), mock.Anything, "notes.pdf", mock.Anything).
		Return(int64(1), nil)

	_, err := f.svc.Upload(context.Background(), alice, "Math", "Main", bytes.NewReader(nil), "notes.pdf")
	require.NoError(t, err)

	assert.Equal(t, []string{"u1"}, f.invalidator.calls)
}

func TestUploadUnknownLocation(t *testing.T) {
	f := newFileFixture(FileOptions{})

	_, err := f.svc.Upload(context.Background(), alice, "Alchemy", "Main", bytes.NewReader(nil), "notes.pdf")
	require.Error(t, err)

	_, err = f.svc.Upload(context.Background(), alice, "Math", "Theory", bytes.NewReader(nil), "notes.pdf")
	require.Error(t, err)

	f.client.AssertNotCalled(t, "SendItem", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUploadRemoteFailureCreatesNoRow(t *testing.T) {
	f := newFileFixture(FileOptions{})
	f.client.On("SendItem", mock.Anything, int64(-100), mock.Anything, "notes.pdf", mock.Anything).
		Return(int64(0), errors.New("bridge down"))

	_, err := f.svc.Upload(context.Background(), alice, "Math", "Main", bytes.NewReader(nil), "notes.pdf")
	require.Error(t, err)
	assert.Empty(t, f.ownership.rows)
}

func TestListFilesIntersectsOwnershipWithChannel(t *testing.T) {
	f := newFileFixture(FileOptions{MessagesLimit: 50})

	require.NoError(t, f.ownership.Create(context.Background(), mathUpload("f1", "u1", 1)))
	require.NoError(t, f.ownership.Create(context.Background(), mathUpload("f2", "u1", 2)))
	_, err := f.favorites.Toggle(context.Background(), "u1", "f1")
	require.NoError(t, err)

	f.client.On("GetRecentItems", mock.Anything, int64(-100), 50).
		Return([]telegram.Item{
			docItem(1, "f1.pdf", 1700000100),
			docItem(2, "f2.pdf", 1700000200),
			docItem(3, "someone-elses.pdf", 1700000300),
			{MessageID: 4, Media: telegram.MediaNone, Date: 1700000400},
		}, nil)

	files, err := f.svc.ListFiles(context.Background(), "u1", "Math", "Main")
	require.NoError(t, err)

	require.Len(t, files, 2)
	assert.Equal(t, "f2", files[0].ID)
	assert.False(t, files[0].IsFavorite)
	assert.Equal(t, "f1", files[1].ID)
	assert.True(t, files[1].IsFavorite)
}

func TestListFilesEmptyWithoutOwnership(t *testing.T) {
	f := newFileFixture(FileOptions{})

	files, err := f.svc.ListFiles(context.Background(), "u1", "Math", "Main")
	require.NoError(t, err)
	assert.Empty(t, files)

	f.client.AssertNotCalled(t, "GetRecentItems", mock.Anything, mock.Anything, mock.Anything)
}

func TestDownloadResolvesThroughOwnership(t *testing.T) {
	f := newFileFixture(FileOptions{})
	require.NoError(t, f.ownership.Create(context.Background(), mathUpload("f1", "u1", 7)))

	f.client.On("DownloadItem", mock.Anything, int64(-100), int64(7)).
		Return(&telegram.Content{FileName: "file_7", MimeType: "application/pdf", Data: []byte("blob")}, nil)

	content, err := f.svc.Download(context.Background(), "u1", "f1")
	require.NoError(t, err)

	// Bridge fallback names are replaced with the recorded one.
	assert.Equal(t, "f1.pdf", content.FileName)
	assert.Equal(t, []byte("blob"), content.Data)
}

func TestDownloadEnforcesOwnership(t *testing.T) {
	f := newFileFixture(FileOptions{})
	require.NoError(t, f.ownership.Create(context.Background(), mathUpload("f1", "u1", 7)))

	_, err := f.svc.Download(context.Background(), "u2", "f1")
	require.Error(t, err)

	_, err = f.svc.Download(context.Background(), "u1", "missing")
	require.Error(t, err)

	f.client.AssertNotCalled(t, "DownloadItem", mock.Anything, mock.Anything, mock.Anything)
}

func TestDownloadRemoteFailurePropagates(t *testing.T) {
	f := newFileFixture(FileOptions{})
	require.NoError(t, f.ownership.Create(context.Background(), mathUpload("f1", "u1", 7)))

	f.client.On("DownloadItem", mock.Anything, int64(-100), int64(7)).
		Return(nil, errors.New("bridge down"))

	_, err := f.svc.Download(context.Background(), "u1", "f1")
	require.Error(t, err)
}

func TestToggleFavorite(t *testing.T) {
	f := newFileFixture(FileOptions{})
	require.NoError(t, f.ownership.Create(context.Background(), mathUpload("f1", "u1", 7)))

	favorite, err := f.svc.ToggleFavorite(context.Background(), "u1", "f1")
	require.NoError(t, err)
	assert.True(t, favorite)

	favorite, err = f.svc.ToggleFavorite(context.Background(), "u1", "f1")
	require.NoError(t, err)
	assert.False(t, favorite)

	_, err = f.svc.ToggleFavorite(context.Background(), "u2", "f1")
	require.Error(t, err)

	_, err = f.svc.ToggleFavorite(context.Background(), "u1", "missing")
	require.Error(t, err)
}

func TestUploadStagedForwardsAndCleansUp(t *testing.T) {
	f := newFileFixture(FileOptions{})

	key, err := f.staged.StageUpload(context.Background(), bytes.NewReader([]byte("staged payload")), "notes.pdf", "application/pdf")
	require.NoError(t, err)

	var forwarded []byte
	f.client.On("SendItem", mock.Anything, int64(-100), mock.Anything, "notes.pdf", mock.Anything).
		Run(func(args mock.Arguments) {
			forwarded, _ = io.ReadAll(args.Get(2).(io.Reader))
		}).
		Return(int64(9), nil)

	result, err := f.svc.UploadStaged(context.Background(), alice, "Math", "Main", key, "notes.pdf")
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, []byte("staged payload"), forwarded)
	assert.Equal(t, []string{key}, f.staged.deleted)
}

func TestUploadStagedMissingKey(t *testing.T) {
	f := newFileFixture(FileOptions{})

	_, err := f.svc.UploadStaged(context.Background(), alice, "Math", "Main", "staged/missing", "notes.pdf")
	require.Error(t, err)

	f.client.AssertNotCalled(t, "SendItem", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSharedFilesParsesAttribution(t *testing.T) {
	f := newFileFixture(FileOptions{MessagesLimit: 50})

	f.client.On("GetRecentItems", mock.Anything, int64(-103), 50).
		Return([]telegram.Item{
			{MessageID: 1, Media: telegram.MediaDocument, FileName: "hw.pdf", MimeType: "application/pdf",
				Size: 2048, Date: 1700000200, Caption: "Uploaded by bob: hw.pdf"},
			{MessageID: 2, Media: telegram.MediaDocument, FileName: "old.pdf", Date: 1700000100},
		}, nil)
	f.client.On("GetRecentItems", mock.Anything, int64(-203), 50).
		Return(nil, errors.New("unreachable"))

	shared, err := f.svc.SharedFiles(context.Background(), "")
	require.NoError(t, err)

	require.Len(t, shared, 2)
	assert.Equal(t, "Math-Public-1", shared[0].ID)
	assert.Equal(t, "bob", shared[0].UploadedBy)
	assert.Equal(t, "hw.pdf", shared[0].Name)
	assert.Equal(t, "Anonymous", shared[1].UploadedBy)
}

func TestSharedFilesUnknownSubject(t *testing.T) {
	f := newFileFixture(FileOptions{})

	_, err := f.svc.SharedFiles(context.Background(), "Alchemy")
	require.Error(t, err)
}

func TestSharedUploadTargetsPublicChannel(t *testing.T) {
	f := newFileFixture(FileOptions{})

	key, err := f.staged.StageUpload(context.Background(), bytes.NewReader([]byte("shared")), "cheatsheet.pdf", "application/pdf")
	require.NoError(t, err)

	f.client.On("SendItem", mock.Anything, int64(-103), mock.Anything, "cheatsheet.pdf", "Uploaded by alice: cheatsheet.pdf").
		Return(int64(5), nil)

	result, err := f.svc.SharedUpload(context.Background(), alice, model.SharedUploadRequest{
		StagedKey: key,
		FileName:  "cheatsheet.pdf",
		Subject:   "Math",
	})
	require.NoError(t, err)

	assert.True(t, result.Success)
	f.client.AssertExpectations(t)
}

func TestParseCaption(t *testing.T) {
	cases := []struct {
		caption  string
		uploader string
		name     string
	}{
		{"Uploaded by bob: hw.pdf", "bob", "hw.pdf"},
		{"Uploaded by alice: notes with spaces.pdf", "alice", "notes with spaces.pdf"},
		{"", "Anonymous", ""},
		{"just a caption", "Anonymous", ""},
		{"Uploaded by nameonly", "Anonymous", "nameonly"},
	}

	for _, tc := range cases {
		uploader, name := parseCaption(tc.caption)
		assert.Equal(t, tc.uploader, uploader, tc.caption)
		assert.Equal(t, tc.name, name, tc.caption)
	}
}
