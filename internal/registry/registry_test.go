package registry

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"mcwatch/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	mu      sync.Mutex
	records []domain.AddressRecord
	saves   int
	loadErr error
	saveErr error
}

func (s *memoryStore) LoadAddresses() ([]domain.AddressRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	return append([]domain.AddressRecord(nil), s.records...), nil
}

func (s *memoryStore) SaveAddresses(records []domain.AddressRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	if s.saveErr != nil {
		return s.saveErr
	}
	s.records = append([]domain.AddressRecord(nil), records...)
	return nil
}

func (s *memoryStore) snapshot() []domain.AddressRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.AddressRecord(nil), s.records...)
}

type staticStatuses map[string]domain.StatusResult

func (s staticStatuses) Get(address string) (domain.StatusResult, time.Time, bool) {
	res, ok := s[address]
	return res, time.Unix(100, 0), ok
}

func addresses(entries []domain.ServerEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Address)
	}
	return out
}

func TestAddIsIdempotent(t *testing.T) {
	reg := New(nil, nil)

	assert.True(t, reg.Add("play.example.com"))
	assert.False(t, reg.Add("play.example.com"))
	assert.False(t, reg.Add("  play.example.com  "), "trimmed duplicate")

	entries := reg.List()
	require.Len(t, entries, 1)
	assert.Equal(t, "play.example.com", entries[0].Address)
	assert.Equal(t, "play.example.com", entries[0].DisplayName)
	assert.Equal(t, domain.StateUnknown, entries[0].State())
}

func TestAddRejectsInvalidAddress(t *testing.T) {
	reg := New(nil, nil)
	reg.Add("a.example.com")

	assert.False(t, reg.Add("bad address"))
	assert.False(t, reg.Add(""))
	assert.Equal(t, 1, reg.Len())

	_, err := reg.Register("bad address", "")
	assert.ErrorIs(t, err, domain.ErrInvalidAddress)

	_, err = reg.Register("a.example.com", "")
	assert.ErrorIs(t, err, domain.ErrDuplicateAddress)
}

func TestAddressesAreCaseSensitive(t *testing.T) {
	reg := New(nil, nil)
	assert.True(t, reg.Add("mc.example.com"))
	assert.True(t, reg.Add("MC.example.com"))
	assert.Equal(t, 2, reg.Len())
}

func TestRemove(t *testing.T) {
	store := &memoryStore{}
	reg := New(store, nil)
	reg.Add("a.example.com")
	reg.Add("b.example.com")
	savesBefore := store.saves

	assert.False(t, reg.Remove("missing.example.com"))
	assert.Equal(t, []string{"a.example.com", "b.example.com"}, reg.Addresses())
	assert.Equal(t, savesBefore, store.saves, "no persist on a no-op remove")

	assert.True(t, reg.Remove("a.example.com"))
	assert.False(t, reg.Remove("a.example.com"))
	assert.Equal(t, []string{"b.example.com"}, reg.Addresses())
	assert.False(t, reg.Contains("a.example.com"))
}

func TestListKeepsInsertionOrder(t *testing.T) {
	reg := New(nil, nil)
	for _, a := range []string{"c.example.com", "a.example.com", "b.example.com"} {
		require.True(t, reg.Add(a))
	}
	reg.Remove("a.example.com")
	reg.Add("a.example.com")

	want := []string{"c.example.com", "b.example.com", "a.example.com"}
	assert.Equal(t, want, addresses(reg.List()))
	assert.Equal(t, want, addresses(reg.List()), "stable across reads")
}

func TestPersistAndLoadRoundTrip(t *testing.T) {
	store := &memoryStore{}
	reg := New(store, nil)
	reg.Add("one.example.com")
	_, err := reg.Register("two.example.com:25570", "Two")
	require.NoError(t, err)
	reg.Add("three.example.com")
	require.True(t, reg.Rename("one.example.com", "First"))

	assert.Equal(t, []domain.AddressRecord{
		{Address: "one.example.com", DisplayName: "First"},
		{Address: "two.example.com:25570", DisplayName: "Two"},
		{Address: "three.example.com", DisplayName: "three.example.com"},
	}, store.snapshot())

	loaded := New(store, nil)
	require.NoError(t, loaded.Load())
	assert.Equal(t, reg.Addresses(), loaded.Addresses())

	entry, ok := loaded.Get("one.example.com")
	require.True(t, ok)
	assert.Equal(t, "First", entry.DisplayName)
}

func TestLoadSkipsBadRecords(t *testing.T) {
	store := &memoryStore{records: []domain.AddressRecord{
		{Address: "ok.example.com"},
		{Address: "bad address"},
		{Address: "ok.example.com", DisplayName: "dup"},
		{Address: " spaced.example.com "},
	}}

	reg := New(store, nil)
	require.NoError(t, reg.Load())
	assert.Equal(t, []string{"ok.example.com", "spaced.example.com"}, reg.Addresses())
}

func TestLoadFailureStartsEmpty(t *testing.T) {
	store := &memoryStore{loadErr: errors.New("disk on fire")}
	reg := New(store, nil)

	err := reg.Load()
	require.Error(t, err)
	assert.Equal(t, 0, reg.Len())

	assert.True(t, reg.Add("still.works.example.com"))
}

func TestPersistFailureKeepsMemoryState(t *testing.T) {
	store := &memoryStore{saveErr: errors.New("read-only filesystem")}
	reg := New(store, nil)

	assert.True(t, reg.Add("a.example.com"))
	assert.True(t, reg.Add("b.example.com"))
	assert.True(t, reg.Remove("a.example.com"))

	assert.Equal(t, []string{"b.example.com"}, reg.Addresses())
	assert.Equal(t, 3, store.saves)
}

func TestEntriesCarryLastStatus(t *testing.T) {
	statuses := staticStatuses{"up.example.com": domain.Online("1.20.1", 1, 10, nil)}
	reg := New(nil, statuses)
	reg.Add("up.example.com")
	reg.Add("new.example.com")

	up, ok := reg.Get("up.example.com")
	require.True(t, ok)
	require.NotNil(t, up.LastStatus)
	assert.Equal(t, domain.StateOnline, up.State())
	require.NotNil(t, up.LastPolledAt)
	assert.Equal(t, time.Unix(100, 0), *up.LastPolledAt)

	fresh, ok := reg.Get("new.example.com")
	require.True(t, ok)
	assert.Nil(t, fresh.LastStatus)
	assert.Nil(t, fresh.LastPolledAt)

	_, ok = reg.Get("missing.example.com")
	assert.False(t, ok)
}

func TestConcurrentMutations(t *testing.T) {
	store := &memoryStore{}
	reg := New(store, nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			reg.Add(fmt.Sprintf("s%d.example.com", i))
		}(i)
		go func(i int) {
			defer wg.Done()
			reg.Add(fmt.Sprintf("s%d.example.com", i%10))
			_ = reg.List()
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50, reg.Len())

	persisted := store.snapshot()
	require.Len(t, persisted, 50)
	for i, rec := range persisted {
		assert.Equal(t, reg.Addresses()[i], rec.Address, "last persisted snapshot matches memory")
	}
}
