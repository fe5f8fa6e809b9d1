package draft

import (
	"errors"
	"maps"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/backroom/internal/kv"
)

type counter struct {
	N    int
	Tags map[string]bool
}

func cloneCounter(c counter) counter {
	c.Tags = maps.Clone(c.Tags)
	return c
}

func TestStore_SequentialDeterminism(t *testing.T) {
	s := New(counter{})
	ops := []func(counter) counter{
		func(c counter) counter { c.N += 3; return c },
		func(c counter) counter { c.N *= 2; return c },
		func(c counter) counter { c.N -= 1; return c },
	}
	for _, op := range ops {
		s.Update(op)
	}
	assert.Equal(t, 5, s.Get().N)
}

func TestStore_MutateDoesNotLeakIntoPreviousSnapshot(t *testing.T) {
	s := New(counter{Tags: map[string]bool{"a": true}}, WithClone(cloneCounter))

	before := s.Get()
	s.Mutate(func(d *counter) {
		d.Tags["b"] = true
		d.N = 7
	})

	assert.Equal(t, map[string]bool{"a": true}, before.Tags, "old snapshot must stay intact")
	assert.Equal(t, map[string]bool{"a": true, "b": true}, s.Get().Tags)
	assert.Equal(t, 7, s.Get().N)
}

func TestStore_SubscribersRunBeforeUpdateReturns(t *testing.T) {
	s := New(counter{})

	var seen []int
	cancel := s.Subscribe(func(c counter) { seen = append(seen, c.N) })

	s.Update(func(c counter) counter { c.N = 1; return c })
	require.Equal(t, []int{1}, seen)

	cancel()
	cancel() // idempotent
	s.Update(func(c counter) counter { c.N = 2; return c })
	assert.Equal(t, []int{1}, seen, "cancelled subscriber must not be called")
}

func TestStore_SubscriberMayWriteAgain(t *testing.T) {
	s := New(counter{})
	s.Subscribe(func(c counter) {
		if c.N == 1 {
			s.Update(func(c counter) counter { c.N = 2; return c })
		}
	})

	s.Update(func(c counter) counter { c.N = 1; return c })
	assert.Equal(t, 2, s.Get().N)
}

func TestStore_ConcurrentUpdatesAreSerialized(t *testing.T) {
	s := New(counter{})
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Update(func(c counter) counter { c.N++; return c })
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, s.Get().N)
}

func TestStore_ConcurrentWritesNotifyInCommitOrder(t *testing.T) {
	s := New(counter{})

	entered := make(chan struct{})
	release := make(chan struct{})
	s.Subscribe(func(c counter) {
		if c.N == 1 {
			close(entered)
			<-release
		}
	})
	var mu sync.Mutex
	var seen []int
	s.Subscribe(func(c counter) {
		mu.Lock()
		seen = append(seen, c.N)
		mu.Unlock()
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Update(func(c counter) counter { c.N = 1; return c })
	}()
	<-entered

	s.Update(func(c counter) counter { c.N = 2; return c })
	close(release)
	<-done

	require.Equal(t, 2, s.Get().N)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{1, 2}, seen)
	assert.Equal(t, s.Get().N, seen[len(seen)-1], "last notification must match committed state")
}

func TestStore_NestedWriteIsDeliveredAfterCurrentSubscribers(t *testing.T) {
	s := New(counter{})
	s.Subscribe(func(c counter) {
		if c.N == 1 {
			s.Update(func(c counter) counter { c.N = 2; return c })
		}
	})
	var seen []int
	s.Subscribe(func(c counter) { seen = append(seen, c.N) })

	s.Update(func(c counter) counter { c.N = 1; return c })
	assert.Equal(t, []int{1, 2}, seen)
}

type counterPrefs struct {
	N int `toml:"n"`
}

func persistCounter(storage kv.Storage, onError func(error)) Option[counter] {
	return Persist(storage, "counter",
		func(c counter) counterPrefs { return counterPrefs{N: c.N} },
		func(c counter, p counterPrefs) counter { c.N = p.N; return c },
		onError)
}

func TestPersist_RoundTripsThroughStorage(t *testing.T) {
	storage := kv.NewMemoryStorage()

	s := New(counter{N: 1, Tags: map[string]bool{"x": true}}, persistCounter(storage, nil))
	s.Update(func(c counter) counter { c.N = 42; return c })

	restored := New(counter{N: 1, Tags: map[string]bool{"x": true}}, persistCounter(storage, nil))
	assert.Equal(t, 42, restored.Get().N)
	assert.Equal(t, map[string]bool{"x": true}, restored.Get().Tags, "non-persisted fields keep defaults")
}

func TestPersist_CorruptSlotFallsBackToDefaults(t *testing.T) {
	storage := kv.NewMemoryStorage()
	require.NoError(t, storage.Set("counter", "n = [[["))

	var errs []error
	s := New(counter{N: 9}, persistCounter(storage, func(err error) { errs = append(errs, err) }))

	assert.Equal(t, 9, s.Get().N)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "decode counter")
}

type failingStorage struct{ kv.Storage }

var errDiskFull = errors.New("disk full")

func (failingStorage) Set(string, string) error { return errDiskFull }

func TestPersist_WriteFailuresGoToSink(t *testing.T) {
	var errs []error
	s := New(counter{}, persistCounter(failingStorage{kv.NewMemoryStorage()}, func(err error) { errs = append(errs, err) }))

	s.Update(func(c counter) counter { c.N = 1; return c })

	assert.Equal(t, 1, s.Get().N, "commit happens even when the write fails")
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], errDiskFull)
}
