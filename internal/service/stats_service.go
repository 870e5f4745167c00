package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"notedrop/internal/cache"
	"notedrop/internal/model"
	"notedrop/internal/telegram"
	"notedrop/pkg/apierror"
)

type favoriteCounter interface {
	CountByUser(ctx context.Context, userID string) (int, error)
}

type StatsOptions struct {
	CacheTTL       time.Duration
	MessagesLimit  int
	RecentLimit    int
	FanoutLimit    int
	RecentPerQuery int
}

// StatsService answers "what is recent and how much is there" across a
// caller's whole channel catalog. The expensive fan-out is wrapped in
// a per-caller read-through cache, and concurrent misses for the same
// caller are coalesced so only one aggregation runs at a time.
type StatsService struct {
	client    telegram.Client
	catalog   map[string]map[string]int64
	backend   cache.Backend
	users     userStore
	favorites favoriteCounter
	opts      StatsOptions
	flight    singleflight.Group
}

func NewStatsService(client telegram.Client, locationCatalog map[string]map[string]int64, backend cache.Backend, users userStore, favorites favoriteCounter, opts StatsOptions) *StatsService {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 60 * time.Second
	}
	if opts.MessagesLimit <= 0 {
		opts.MessagesLimit = 50
	}
	if opts.RecentLimit <= 0 {
		opts.RecentLimit = 5
	}
	if opts.FanoutLimit <= 0 {
		opts.FanoutLimit = 8
	}
	if opts.RecentPerQuery <= 0 {
		opts.RecentPerQuery = 3
	}

	return &StatsService{
		client:    client,
		catalog:   locationCatalog,
		backend:   backend,
		users:     users,
		favorites: favorites,
		opts:      opts,
	}
}

func statsCacheKey(userID string) string {
	return "dashboard:stats:" + userID
}

// GetStats returns the caller's dashboard stats, from cache when fresh
// and not force-refreshed, otherwise recomputed via the aggregator.
func (s *StatsService) GetStats(ctx context.Context, userID string, forceRefresh bool) (model.DashboardStats, error) {
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return model.DashboardStats{}, apierror.New("NOT_FOUND", "user not found", userID, http.StatusNotFound)
		}
		return model.DashboardStats{}, err
	}

	key := statsCacheKey(userID)

	if !forceRefresh {
		if data, err := s.backend.Get(ctx, key); err == nil {
			var stats model.DashboardStats
			if err := json.Unmarshal(data, &stats); err == nil {
				return stats, nil
			}
			// Corrupt cache entry; drop it and rebuild.
			_ = s.backend.Delete(ctx, key)
		} else if !errors.Is(err, cache.ErrMiss) {
			slog.Warn("stats cache read failed", "user_id", userID, "error", err)
		}
	}

	result, err, _ := s.flight.Do(key, func() (interface{}, error) {
		return s.buildStats(ctx, userID)
	})
	if err != nil {
		return model.DashboardStats{}, err
	}

	return result.(model.DashboardStats), nil
}

// Invalidate drops the caller's cached stats. Collaborators that
// change the underlying counts may call this for freshness; otherwise
// the entry expires with its TTL.
func (s *StatsService) Invalidate(ctx context.Context, userID string) error {
	return s.backend.Delete(ctx, statsCacheKey(userID))
}

func (s *StatsService) buildStats(ctx context.Context, userID string) (model.DashboardStats, error) {
	agg := s.aggregate(ctx, s.catalog, s.opts.MessagesLimit)

	favoriteCount, err := s.favorites.CountByUser(ctx, userID)
	if err != nil {
		return model.DashboardStats{}, err
	}

	subjectStats := make([]model.SubjectStat, 0, len(agg.subjectCounts))
	for subject, count := range agg.subjectCounts {
		subjectStats = append(subjectStats, model.SubjectStat{Subject: subject, FileCount: count})
	}
	sort.Slice(subjectStats, func(i, j int) bool {
		if subjectStats[i].FileCount != subjectStats[j].FileCount {
			return subjectStats[i].FileCount > subjectStats[j].FileCount
		}
		return subjectStats[i].Subject < subjectStats[j].Subject
	})

	stats := model.DashboardStats{
		TotalFiles:    agg.totalCount,
		FavoriteFiles: favoriteCount,
		RecentUploads: agg.recentItems,
		SubjectStats:  subjectStats,
		LastUpdated:   time.Now().UTC().Format(time.RFC3339),
	}

	data, err := json.Marshal(stats)
	if err != nil {
		return model.DashboardStats{}, fmt.Errorf("serialize stats: %w", err)
	}
	if err := s.backend.Set(ctx, statsCacheKey(userID), data, s.opts.CacheTTL); err != nil {
		slog.Warn("stats cache write failed", "user_id", userID, "error", err)
	}

	return stats, nil
}

type aggregateResult struct {
	totalCount    int
	subjectCounts map[string]int
	recentItems   []model.FileSummary
}

type recentEntry struct {
	summary    model.FileSummary
	uploadedAt time.Time
}

// aggregate fans out one query per (subject, category, channel)
// triple, bounded by FanoutLimit. A failing channel is logged and
// contributes nothing; it never fails the pass. Recent items are
// deduplicated by composite id (last write wins) and sorted by upload
// time descending; ties keep insertion order, which is fine at
// day-level display resolution.
func (s *StatsService) aggregate(ctx context.Context, locationCatalog map[string]map[string]int64, perLocationLimit int) aggregateResult {
	var (
		mu            sync.Mutex
		totalCount    int
		subjectCounts = make(map[string]int, len(locationCatalog))
		index         = map[string]int{}
		entries       []recentEntry
	)

	for subject := range locationCatalog {
		subjectCounts[subject] = 0
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.FanoutLimit)

	for subject, categories := range locationCatalog {
		for category, channelID := range categories {
			subject, category, channelID := subject, category, channelID
			g.Go(func() error {
				items, err := s.client.GetRecentItems(gctx, channelID, perLocationLimit)
				if err != nil {
					slog.Error("fetch channel items", "channel_id", channelID,
						"subject", subject, "category", category, "error", err)
					return nil
				}

				files := make([]telegram.Item, 0, len(items))
				for _, item := range items {
					if item.HasFile() {
						files = append(files, item)
					}
				}

				recents := files
				if len(recents) > s.opts.RecentPerQuery {
					recents = recents[:s.opts.RecentPerQuery]
				}

				mu.Lock()
				defer mu.Unlock()

				totalCount += len(files)
				subjectCounts[subject] += len(files)

				for _, item := range recents {
					entry := recentEntry{
						summary: model.FileSummary{
							ID:         fmt.Sprintf("%s-%s-%d", subject, category, item.MessageID),
							Name:       displayName(item),
							UploadedAt: item.UploadedAt().Format(time.RFC3339),
							Subject:    subject,
						},
						uploadedAt: item.UploadedAt(),
					}
					if pos, seen := index[entry.summary.ID]; seen {
						entries[pos] = entry
					} else {
						index[entry.summary.ID] = len(entries)
						entries = append(entries, entry)
					}
				}
				return nil
			})
		}
	}

	// Tasks absorb their own failures, so Wait cannot return an error.
	_ = g.Wait()

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].uploadedAt.UnixMilli() > entries[j].uploadedAt.UnixMilli()
	})

	limit := s.opts.RecentLimit
	if len(entries) < limit {
		limit = len(entries)
	}

	recentItems := make([]model.FileSummary, 0, limit)
	for _, entry := range entries[:limit] {
		recentItems = append(recentItems, entry.summary)
	}

	return aggregateResult{
		totalCount:    totalCount,
		subjectCounts: subjectCounts,
		recentItems:   recentItems,
	}
}

func displayName(item telegram.Item) string {
	switch item.Media {
	case telegram.MediaPhoto:
		return fmt.Sprintf("photo_%d.jpg", item.MessageID)
	case telegram.MediaDocument:
		if item.FileName != "" {
			return item.FileName
		}
		fallthrough
	default:
		return fmt.Sprintf("file_%d", item.MessageID)
	}
}
