package telegram

import "time"

// MediaKind discriminates what payload a channel message carries.
type MediaKind string

const (
	MediaDocument MediaKind = "document"
	MediaPhoto    MediaKind = "photo"
	MediaNone     MediaKind = "none"
)

// Item is one message in a storage channel. Date is the remote
// second-granularity unix timestamp.
type Item struct {
	MessageID int64     `json:"message_id"`
	Media     MediaKind `json:"media"`
	FileName  string    `json:"file_name,omitempty"`
	MimeType  string    `json:"mime_type,omitempty"`
	Size      int64     `json:"size,omitempty"`
	Date      int64     `json:"date"`
	Caption   string    `json:"caption,omitempty"`
}

// HasFile reports whether the item carries a downloadable payload.
func (i Item) HasFile() bool {
	return i.Media == MediaDocument || i.Media == MediaPhoto
}

// UploadedAt converts the remote second-granularity timestamp to a
// time.Time. Display resolution is day-level, so second precision is
// enough; ordering comparisons use the derived millisecond value.
func (i Item) UploadedAt() time.Time {
	return time.Unix(i.Date, 0).UTC()
}

// Content is a downloaded item payload.
type Content struct {
	FileName string
	MimeType string
	Data     []byte
}
