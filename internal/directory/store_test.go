package directory

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"notedrop/internal/event"
	"notedrop/internal/model"
)

type memoryPersistence struct {
	mu   sync.Mutex
	data []byte
	set  bool
}

func (p *memoryPersistence) Load() ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.set {
		return nil, ErrNotPersisted
	}
	out := make([]byte, len(p.data))
	copy(out, p.data)
	return out, nil
}

func (p *memoryPersistence) Save(data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.data = append([]byte(nil), data...)
	p.set = true
	return nil
}

func (p *memoryPersistence) Delete() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.data = nil
	p.set = false
	return nil
}

func record(subject string, mainID int64, subs ...model.SubChannel) model.DirectoryRecord {
	return model.DirectoryRecord{Subject: subject, MainChannelID: mainID, SubChannels: subs}
}

func TestStoreReplaceSemantics(t *testing.T) {
	t.Parallel()

	store := NewStore(&memoryPersistence{}, nil)
	defer store.Close()

	store.SetChannels([]model.DirectoryRecord{
		record("Advanced Java", -100),
		record("Software Engineering", -200),
	})
	require.Equal(t, []string{"Advanced Java", "Software Engineering"}, store.GetAllSubjects())

	store.SetChannels([]model.DirectoryRecord{
		record("Probability Statistics", -300),
	})
	require.Equal(t, []string{"Probability Statistics"}, store.GetAllSubjects(),
		"SetChannels must clear before inserting, not merge")
}

func TestStoreLookups(t *testing.T) {
	t.Parallel()

	store := NewStore(&memoryPersistence{}, nil)
	defer store.Close()

	store.AddChannel(record("Physics", 500,
		model.SubChannel{Name: "Physics-Theory", ID: 501},
		model.SubChannel{Name: "Physics-Practical", ID: 502},
	))

	t.Run("miss returns false, not an error", func(t *testing.T) {
		_, ok := store.GetChannelID("unknown-subject", "Main")
		require.False(t, ok)

		_, ok = store.GetChannelID("Physics", "Assignments")
		require.False(t, ok)
	})

	t.Run("substring category matching resolves", func(t *testing.T) {
		id, ok := store.GetChannelID("Physics", "Practical")
		require.True(t, ok)
		require.Equal(t, int64(-502), id)
	})

	t.Run("ids are normalized negative on load and lookup", func(t *testing.T) {
		id, ok := store.GetMainChannelID("Physics")
		require.True(t, ok)
		require.Equal(t, int64(-500), id)

		id, ok = store.GetChannelID("Physics", "Theory")
		require.True(t, ok)
		require.Equal(t, int64(-501), id)
	})
}

func TestStoreResetsOnCorruptPersistence(t *testing.T) {
	t.Parallel()

	persist := &memoryPersistence{}
	require.NoError(t, persist.Save([]byte("{not json")))

	store := NewStore(persist, nil)
	defer store.Close()

	require.Empty(t, store.GetAllSubjects())

	// Store stays usable after the reset.
	store.AddChannel(record("Math", -1))
	require.Equal(t, []string{"Math"}, store.GetAllSubjects())
}

func TestStoreClear(t *testing.T) {
	t.Parallel()

	persist := &memoryPersistence{}
	store := NewStore(persist, nil)
	defer store.Close()

	store.SetChannels([]model.DirectoryRecord{record("Math", -1)})
	store.ClearStore()

	require.Empty(t, store.GetAllSubjects())

	reloaded := NewStore(persist, nil)
	defer reloaded.Close()
	require.Empty(t, reloaded.GetAllSubjects(), "persisted copy must be removed")
}

func TestStoreCrossContextNotification(t *testing.T) {
	t.Parallel()

	bus := event.NewBus()
	persist := &memoryPersistence{}

	tabA := NewStore(persist, bus)
	defer tabA.Close()
	tabB := NewStore(persist, bus)
	defer tabB.Close()

	tabA.SetChannels([]model.DirectoryRecord{record("Human Computer Interface", -42)})

	require.Eventually(t, func() bool {
		subjects := tabB.GetAllSubjects()
		return len(subjects) == 1 && subjects[0] == "Human Computer Interface"
	}, 2*time.Second, 10*time.Millisecond, "tab B should converge after the change notification")
}

func TestFilePersistenceRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "channels.json")
	persist, err := NewFilePersistence(path)
	require.NoError(t, err)

	_, err = persist.Load()
	require.ErrorIs(t, err, ErrNotPersisted)

	require.NoError(t, persist.Save([]byte(`[{"subject":"Math"}]`)))

	data, err := persist.Load()
	require.NoError(t, err)
	require.JSONEq(t, `[{"subject":"Math"}]`, string(data))

	require.NoError(t, persist.Delete())
	_, err = persist.Load()
	require.ErrorIs(t, err, ErrNotPersisted)
}
