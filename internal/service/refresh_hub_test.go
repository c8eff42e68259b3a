package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefreshHubPublish(t *testing.T) {
	hub := NewRefreshHub(1)
	first, cancelFirst := hub.Subscribe()
	second, cancelSecond := hub.Subscribe()
	defer cancelSecond()
	require.Equal(t, 2, hub.Subscribers())

	hub.Publish(RefreshEvent{Type: "sync", Updated: 3})
	hub.Publish(RefreshEvent{Type: "sync", Updated: 4})

	event := <-first
	assert.Equal(t, 3, event.Updated)
	assert.False(t, event.At.IsZero())
	assert.Equal(t, 3, (<-second).Updated)

	cancelFirst()
	cancelFirst()
	_, open := <-first
	assert.False(t, open)
	assert.Equal(t, 1, hub.Subscribers())
}
