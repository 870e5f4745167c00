package directory

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"notedrop/internal/catalog"
	"notedrop/internal/event"
	"notedrop/internal/model"
)

// Store is the subject → DirectoryRecord registry. State lives in
// memory, mirrored durably through Persistence, and change
// notifications travel over the event bus so independent contexts
// (other tabs holding their own Store over the same persistence)
// converge. Coherence is eventual: a notification may land after the
// publishing context's next read. Last write wins.
type Store struct {
	id      string
	mu      sync.RWMutex
	records map[string]model.DirectoryRecord
	persist Persistence
	bus     event.Bus
	stop    func()
}

// NewStore loads the persisted registry and subscribes to directory
// update events published by other contexts.
func NewStore(persist Persistence, bus event.Bus) *Store {
	s := &Store{
		id:      uuid.NewString(),
		records: map[string]model.DirectoryRecord{},
		persist: persist,
		bus:     bus,
	}

	s.LoadFromStorage()

	if bus != nil {
		events, unsubscribe := bus.Subscribe()
		s.stop = unsubscribe
		go s.watch(events)
	}

	return s
}

// Close stops the cross-context watcher.
func (s *Store) Close() {
	if s.stop != nil {
		s.stop()
	}
}

func (s *Store) watch(events <-chan event.Event) {
	for e := range events {
		if e.Type != event.TypeDirectoryUpdated || e.ActorID == s.id {
			continue
		}
		s.LoadFromStorage()
	}
}

// LoadFromStorage replaces the in-memory registry with the persisted
// copy. A corrupt payload resets to an empty registry rather than
// failing; every loaded id is normalized before indexing.
func (s *Store) LoadFromStorage() {
	data, err := s.persist.Load()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = map[string]model.DirectoryRecord{}

	if errors.Is(err, ErrNotPersisted) {
		return
	}
	if err != nil {
		slog.Error("load channel directory", "error", err)
		return
	}

	var records []model.DirectoryRecord
	if err := json.Unmarshal(data, &records); err != nil {
		slog.Error("parse channel directory; resetting registry", "error", err)
		return
	}

	for _, record := range records {
		normalized := normalizeRecord(record)
		s.records[normalized.Subject] = normalized
	}
}

// SetChannels replaces the entire registry (clear-then-insert, not
// merge), persists it and notifies other contexts. The notification
// fires even when the new payload is byte-identical to the old one;
// subscribers cannot be assumed to diff by value.
func (s *Store) SetChannels(records []model.DirectoryRecord) {
	s.mu.Lock()
	s.records = make(map[string]model.DirectoryRecord, len(records))
	for _, record := range records {
		normalized := normalizeRecord(record)
		s.records[normalized.Subject] = normalized
	}
	s.saveLocked()
	s.mu.Unlock()

	s.notify()
}

// AddChannel upserts a single subject record.
func (s *Store) AddChannel(record model.DirectoryRecord) {
	normalized := normalizeRecord(record)

	s.mu.Lock()
	s.records[normalized.Subject] = normalized
	s.saveLocked()
	s.mu.Unlock()

	s.notify()
}

// GetChannelID resolves (subject, category) to a channel id. Category
// matching is by substring: a sub-channel named "Physics-Practical"
// satisfies a lookup for "Practical". This looseness is a
// compatibility constraint carried over from the existing directory
// data; do not tighten it to exact matching. Returns false on any
// miss, never an error.
func (s *Store) GetChannelID(subject string, category string) (int64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, exists := s.records[subject]
	if !exists {
		return 0, false
	}

	for _, sub := range record.SubChannels {
		if strings.Contains(sub.Name, category) {
			return catalog.NormalizeLocationID(sub.ID), true
		}
	}
	return 0, false
}

// GetMainChannelID resolves a subject's main channel.
func (s *Store) GetMainChannelID(subject string) (int64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, exists := s.records[subject]
	if !exists {
		return 0, false
	}
	return catalog.NormalizeLocationID(record.MainChannelID), true
}

func (s *Store) HasSubject(subject string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.records[subject]
	return exists
}

func (s *Store) GetAllSubjects() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.records))
	for subject := range s.records {
		out = append(out, subject)
	}
	sort.Strings(out)
	return out
}

// ClearStore empties the registry, removes the persisted copy and
// notifies other contexts.
func (s *Store) ClearStore() {
	s.mu.Lock()
	s.records = map[string]model.DirectoryRecord{}
	if err := s.persist.Delete(); err != nil {
		slog.Error("clear channel directory", "error", err)
	}
	s.mu.Unlock()

	s.notify()
}

func (s *Store) saveLocked() {
	records := make([]model.DirectoryRecord, 0, len(s.records))
	for _, record := range s.records {
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Subject < records[j].Subject })

	data, err := json.Marshal(records)
	if err != nil {
		slog.Error("serialize channel directory", "error", err)
		return
	}

	if err := s.persist.Save(data); err != nil {
		slog.Error("persist channel directory", "error", err)
	}
}

func (s *Store) notify() {
	if s.bus == nil {
		return
	}
	s.bus.Publish(event.Event{
		ID:        uuid.NewString(),
		Type:      event.TypeDirectoryUpdated,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		ActorID:   s.id,
	})
}

func normalizeRecord(record model.DirectoryRecord) model.DirectoryRecord {
	out := model.DirectoryRecord{
		Subject:       record.Subject,
		MainChannelID: catalog.NormalizeLocationID(record.MainChannelID),
		SubChannels:   make([]model.SubChannel, len(record.SubChannels)),
	}
	for i, sub := range record.SubChannels {
		out.SubChannels[i] = model.SubChannel{
			Name:       sub.Name,
			ID:         catalog.NormalizeLocationID(sub.ID),
			InviteLink: sub.InviteLink,
		}
	}
	return out
}
