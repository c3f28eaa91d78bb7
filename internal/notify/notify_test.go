package notify

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishOrder(t *testing.T) {
	var h Hub[int]
	var got []string
	h.Subscribe(func(v int) { got = append(got, "a") })
	h.Subscribe(func(v int) { got = append(got, "b") })

	h.Publish(1)
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestUnsubscribe(t *testing.T) {
	var h Hub[int]
	calls := 0
	cancel := h.Subscribe(func(int) { calls++ })
	h.Publish(1)
	cancel()
	cancel()
	h.Publish(2)

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, h.Len())
}

func TestReentrantPublishIsDeferred(t *testing.T) {
	var h Hub[int]
	var trace []int
	depth, maxDepth := 0, 0

	h.Subscribe(func(v int) {
		depth++
		if depth > maxDepth {
			maxDepth = depth
		}
		trace = append(trace, v)
		if v < 5 {
			h.Publish(v + 1)
		}
		depth--
	})

	h.Publish(1)

	assert.Equal(t, []int{1, 2, 3, 4, 5}, trace)
	assert.Equal(t, 1, maxDepth, "observer must never be re-entered")
}

func TestSecondObserverSeesFirstRoundBeforeQueuedEvent(t *testing.T) {
	var h Hub[string]
	var trace []string
	h.Subscribe(func(v string) {
		trace = append(trace, "first:"+v)
		if v == "x" {
			h.Publish("y")
		}
	})
	h.Subscribe(func(v string) { trace = append(trace, "second:"+v) })

	h.Publish("x")
	assert.Equal(t, []string{"first:x", "second:x", "first:y", "second:y"}, trace)
}

func TestPublishFuncBuildsEventPerObserver(t *testing.T) {
	var h Hub[int]
	state := 1
	var trace []string
	h.Subscribe(func(v int) {
		trace = append(trace, fmt.Sprintf("first:%d", v))
		if state == 1 {
			state = 2
			h.PublishFunc(func() int { return state })
		}
	})
	h.Subscribe(func(v int) { trace = append(trace, fmt.Sprintf("second:%d", v)) })

	h.PublishFunc(func() int { return state })
	assert.Equal(t, []string{"first:1", "second:2", "first:2", "second:2"}, trace)
}

func TestPanickingObserverDoesNotWedgeHub(t *testing.T) {
	var h Hub[int]
	boom := true
	calls := 0
	h.Subscribe(func(int) {
		calls++
		if boom {
			panic("observer failure")
		}
	})

	require.Panics(t, func() { h.Publish(1) })
	boom = false
	h.Publish(2)
	assert.Equal(t, 2, calls)
}
