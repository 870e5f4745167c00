package model

// SubjectStat is the per-subject slice of the dashboard counters.
type SubjectStat struct {
	Subject   string `json:"subject"`
	FileCount int    `json:"file_count"`
}

// DashboardStats is computed on demand by the fan-out aggregator and
// cached per caller with a short TTL. Counts reflect every matching
// item seen within the per-channel fetch limit, not just the retained
// recent uploads.
type DashboardStats struct {
	TotalFiles    int           `json:"total_files"`
	FavoriteFiles int           `json:"favorite_files"`
	RecentUploads []FileSummary `json:"recent_uploads"`
	SubjectStats  []SubjectStat `json:"subject_stats"`
	LastUpdated   string        `json:"last_updated"`
}
