package realtime

import (
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordingObserver struct {
	mu     sync.Mutex
	joined []string
	left   []string
}

func (o *recordingObserver) Join(name string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.joined = append(o.joined, name)
}

func (o *recordingObserver) Leave(name string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.left = append(o.left, name)
}

func TestHub_DeliversInOrder(t *testing.T) {
	hub := NewHub(nil)
	var got []string
	hub.Channel("orders").Listen("OrderUpdated", func(p json.RawMessage) {
		got = append(got, string(p))
	})

	for _, p := range []string{`1`, `2`, `3`} {
		hub.Publish("orders", "OrderUpdated", json.RawMessage(p))
	}
	assert.Equal(t, []string{"1", "2", "3"}, got)
}

func TestHub_StopListening(t *testing.T) {
	hub := NewHub(nil)
	ch := hub.Channel("orders")
	calls := 0
	ch.Listen("OrderUpdated", func(json.RawMessage) { calls++ })
	ch.StopListening("OrderUpdated")

	assert.Equal(t, 0, hub.Publish("orders", "OrderUpdated", nil))
	assert.Equal(t, 0, calls)
}

func TestHub_ObserverSeesJoinsAndLeaves(t *testing.T) {
	hub := NewHub(nil)
	hub.Channel("orders")

	obs := &recordingObserver{}
	hub.SetObserver(obs)
	hub.Channel("inventory")
	hub.Channel("inventory") // already joined
	hub.Leave("orders")
	hub.Leave("orders") // already left

	sort.Strings(obs.joined)
	assert.Equal(t, []string{"inventory", "orders"}, obs.joined)
	assert.Equal(t, []string{"orders"}, obs.left)
	assert.Equal(t, []string{"inventory"}, hub.Channels())
}

func TestHub_FailTargetsChannel(t *testing.T) {
	hub := NewHub(nil)
	var ordersErr, stockErr error
	hub.Channel("orders").Error(func(err error) { ordersErr = err })
	hub.Channel("inventory").Error(func(err error) { stockErr = err })

	boom := errors.New("boom")
	hub.Fail("orders", boom)
	assert.ErrorIs(t, ordersErr, boom)
	assert.NoError(t, stockErr)

	hub.Fail("", boom)
	assert.ErrorIs(t, stockErr, boom)
}
