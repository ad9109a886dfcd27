package sse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_PublishReachesTopicSubscribersOnly(t *testing.T) {
	h := NewHub()

	ops, cleanupOps := h.Subscribe(DepartmentTopic("ops"))
	defer cleanupOps()
	sales, cleanupSales := h.Subscribe(DepartmentTopic("sales"))
	defer cleanupSales()

	h.Publish(DepartmentTopic("ops"), Event{Name: "attendance.checked_in", Data: "u1"})

	require.Len(t, ops, 1)
	ev := <-ops
	assert.Equal(t, "attendance.checked_in", ev.Name)
	assert.Empty(t, sales)
}

func TestHub_CleanupRemovesSubscriber(t *testing.T) {
	h := NewHub()

	ch, cleanup := h.Subscribe("department:ops")
	assert.Equal(t, 1, h.SubscriberCount("department:ops"))

	cleanup()
	cleanup()

	assert.Zero(t, h.SubscriberCount("department:ops"))
	_, open := <-ch
	assert.False(t, open)
}

func TestHub_FullBufferDropsEvents(t *testing.T) {
	h := NewHub()
	ch, cleanup := h.Subscribe("t")
	defer cleanup()

	for i := 0; i < 20; i++ {
		h.Publish("t", Event{Name: "e"})
	}
	assert.Len(t, ch, cap(ch))
}
