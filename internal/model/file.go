package model

import "time"

// FileOwnership records that a caller uploaded a specific message to a
// specific channel. It is the durable handle used for listing,
// download resolution and favorites.
type FileOwnership struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Subject   string    `json:"subject"`
	Category  string    `json:"category"`
	ChannelID int64     `json:"channel_id"`
	MessageID int64     `json:"message_id"`
	FileName  string    `json:"file_name"`
	CreatedAt time.Time `json:"created_at"`
}

// FileSummary is the derived, ephemeral view of one channel item.
// ID is the composite subject-category-messageID key, stable across
// aggregation passes so dedupe by ID is correct.
type FileSummary struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Size       int64  `json:"size,omitempty"`
	UploadedAt string `json:"uploaded_at"`
	Subject    string `json:"subject"`
	IsFavorite bool   `json:"is_favorite,omitempty"`
}

// SharedFile is a community (Public channel) item with uploader
// attribution parsed from the message caption.
type SharedFile struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Size       int64  `json:"size"`
	UploadedAt string `json:"uploaded_at"`
	Type       string `json:"type"`
	UploadedBy string `json:"uploaded_by"`
	Subject    string `json:"subject"`
}

type UploadResult struct {
	Success   bool   `json:"success"`
	MessageID int64  `json:"message_id"`
	FileName  string `json:"file_name"`
}
