package status

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"mcwatch/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func TestFirstUpdateEmitsFromUnknown(t *testing.T) {
	c := NewCache()

	_, _, ok := c.Get("a")
	assert.False(t, ok)

	ev := c.Update("a", domain.Online("1.20.1", 5, 20, []string{"Alice", "Bob"}), t0)
	require.NotNil(t, ev)
	assert.Equal(t, "a", ev.Address)
	assert.Nil(t, ev.Old)
	assert.Equal(t, domain.StateUnknown, ev.OldState())
	assert.Equal(t, domain.StateOnline, ev.New.State)
	assert.Equal(t, t0, ev.At)
	assert.NotEmpty(t, ev.ID)

	res, at, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "1.20.1", res.Version)
	assert.Equal(t, t0, at)
}

func TestUnchangedResultIsSilent(t *testing.T) {
	c := NewCache()
	c.Update("a", domain.Online("1.20.1", 5, 20, []string{"Alice"}), t0)

	ev := c.Update("a", domain.Online("1.20.1", 5, 20, []string{"Carol"}), t0.Add(time.Second))
	assert.Nil(t, ev)

	res, at, _ := c.Get("a")
	assert.Equal(t, []string{"Carol"}, res.SamplePlayers, "silent updates still store")
	assert.Equal(t, t0.Add(time.Second), at)
}

func TestTransitions(t *testing.T) {
	c := NewCache()
	c.Update("a", domain.Online("1.20.1", 5, 20, nil), t0)

	ev := c.Update("a", domain.Offline(domain.ErrorTimeout, "deadline"), t0.Add(1*time.Second))
	require.NotNil(t, ev)
	require.NotNil(t, ev.Old)
	assert.Equal(t, domain.StateOnline, ev.Old.State)
	assert.Equal(t, domain.StateOffline, ev.New.State)

	assert.Nil(t, c.Update("a", domain.Offline(domain.ErrorUnreachable, "refused"), t0.Add(2*time.Second)),
		"reason change alone is not a transition")
	res, _, _ := c.Get("a")
	assert.Equal(t, domain.ErrorUnreachable, res.Reason)

	ev = c.Update("a", domain.Online("1.20.2", 0, 20, nil), t0.Add(3*time.Second))
	require.NotNil(t, ev)
	assert.Equal(t, domain.StateOffline, ev.OldState())

	ev = c.Update("a", domain.Online("1.20.2", 1, 20, nil), t0.Add(4*time.Second))
	require.NotNil(t, ev, "player count change")
	assert.Equal(t, 0, ev.Old.PlayersOnline)
	assert.Equal(t, 1, ev.New.PlayersOnline)
}

func TestCompletionOrderWins(t *testing.T) {
	c := NewCache()

	newer := domain.Online("1.20.1", 7, 20, nil)
	older := domain.Offline(domain.ErrorTimeout, "slow poll")

	require.NotNil(t, c.Update("a", newer, t0.Add(2*time.Second)))
	assert.Nil(t, c.Update("a", older, t0.Add(1*time.Second)), "stale completion dropped")

	res, at, _ := c.Get("a")
	assert.Equal(t, domain.StateOnline, res.State)
	assert.Equal(t, 7, res.PlayersOnline)
	assert.Equal(t, t0.Add(2*time.Second), at)
}

func TestCompletionOrderUnderConcurrency(t *testing.T) {
	c := NewCache()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.Update("a", domain.Online("v", i, 100, nil), t0.Add(time.Duration(i)*time.Millisecond))
		}(i)
	}
	wg.Wait()

	res, at, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 99, res.PlayersOnline)
	assert.Equal(t, t0.Add(99*time.Millisecond), at)
}

func TestStoredResultIsIsolated(t *testing.T) {
	c := NewCache()
	in := domain.Online("1.20.1", 2, 20, []string{"Alice", "Bob"})
	c.Update("a", in, t0)
	in.SamplePlayers[0] = "Mallory"

	res, _, _ := c.Get("a")
	assert.Equal(t, "Alice", res.SamplePlayers[0])

	res.SamplePlayers[1] = "Eve"
	again, _, _ := c.Get("a")
	assert.Equal(t, "Bob", again.SamplePlayers[1])
}

func TestForgetAndSnapshot(t *testing.T) {
	c := NewCache()
	for i := 0; i < 3; i++ {
		c.Update(fmt.Sprintf("s%d", i), domain.Offline(domain.ErrorUnreachable, ""), t0)
	}
	assert.Len(t, c.Snapshot(), 3)

	c.Forget("s1")
	snap := c.Snapshot()
	assert.Len(t, snap, 2)
	assert.NotContains(t, snap, "s1")

	ev := c.Update("s1", domain.Offline(domain.ErrorUnreachable, ""), t0)
	require.NotNil(t, ev, "forgotten address starts from unknown again")
	assert.Nil(t, ev.Old)
}

func TestCommitRespectsMembership(t *testing.T) {
	c := NewCache()
	tracked := func(address string) bool { return address == "kept" }

	called := false
	stored := c.Commit("removed", domain.Online("1.20.1", 1, 10, nil), t0, tracked,
		func(*domain.ChangeEvent) { called = true })
	assert.False(t, stored)
	assert.False(t, called)
	assert.Equal(t, 0, c.Len(), "rejected result leaves no entry behind")

	var got *domain.ChangeEvent
	require.True(t, c.Commit("kept", domain.Online("1.20.1", 1, 10, nil), t0, tracked,
		func(ev *domain.ChangeEvent) { got = ev }))
	require.NotNil(t, got)
	assert.Equal(t, domain.StateOnline, got.New.State)

	// Same status again: stored, callback runs with no event.
	got = &domain.ChangeEvent{}
	require.True(t, c.Commit("kept", domain.Online("1.20.1", 1, 10, nil), t0.Add(time.Second), tracked,
		func(ev *domain.ChangeEvent) { got = ev }))
	assert.Nil(t, got)
}

func TestForgetWaitsForCommit(t *testing.T) {
	c := NewCache()
	var (
		members  sync.Map
		inCommit = make(chan struct{})
		release  = make(chan struct{})
		forgot   = make(chan struct{})
	)
	members.Store("a", true)
	keep := func(address string) bool { _, ok := members.Load(address); return ok }

	go func() {
		c.Commit("a", domain.Online("1.20.1", 1, 10, nil), t0, keep, func(*domain.ChangeEvent) {
			close(inCommit)
			<-release
		})
	}()
	<-inCommit

	go func() {
		members.Delete("a")
		c.Forget("a")
		close(forgot)
	}()

	select {
	case <-forgot:
		t.Fatal("Forget returned while a commit held the address")
	case <-time.After(50 * time.Millisecond):
	}
	close(release)
	<-forgot

	_, _, ok := c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())

	assert.False(t, c.Commit("a", domain.Online("1.20.1", 2, 10, nil), t0.Add(time.Second), keep, nil),
		"late result for the removed address is dropped")
	assert.Equal(t, 0, c.Len())
}

func TestCommitCallbacksRunInOrder(t *testing.T) {
	c := NewCache()
	var (
		mu    sync.Mutex
		order []domain.State
		wg    sync.WaitGroup
	)
	record := func(ev *domain.ChangeEvent) {
		mu.Lock()
		defer mu.Unlock()
		order = append(order, ev.New.State)
	}

	wg.Add(1)
	c.Commit("a", domain.Online("1.20.1", 1, 10, nil), t0, nil, func(ev *domain.ChangeEvent) {
		go func() {
			defer wg.Done()
			c.Commit("a", domain.Offline(domain.ErrorTimeout, ""), t0.Add(time.Second), nil, record)
		}()
		time.Sleep(30 * time.Millisecond)
		record(ev)
	})
	wg.Wait()

	assert.Equal(t, []domain.State{domain.StateOnline, domain.StateOffline}, order)
}

func TestNotifier(t *testing.T) {
	n := NewNotifier()

	var got []string
	unsubA := n.Subscribe(func(ev domain.ChangeEvent) { got = append(got, "a:"+ev.Address) })
	n.Subscribe(func(ev domain.ChangeEvent) { panic("boom") })
	n.Subscribe(func(ev domain.ChangeEvent) { got = append(got, "c:"+ev.Address) })

	n.Publish(domain.ChangeEvent{Address: "x"})
	assert.Equal(t, []string{"a:x", "c:x"}, got, "a panicking handler does not stop delivery")

	unsubA()
	unsubA()
	n.Publish(domain.ChangeEvent{Address: "y"})
	assert.Equal(t, []string{"a:x", "c:x", "c:y"}, got)
}
