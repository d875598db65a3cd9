package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"support-flow-be/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(nil, logger.NewNopLogger())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

func attach(hub *Hub, userID string, buffer int) *Client {
	c := &Client{Hub: hub, UserID: userID, Send: make(chan []byte, buffer)}
	if !hub.Register(c) {
		panic("hub stopped")
	}
	return c
}

func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return hub.ClientCount() == n }, time.Second, 5*time.Millisecond)
}

func TestSendTargetsUserAndWildcard(t *testing.T) {
	hub := startHub(t)
	alice := attach(hub, "alice", 4)
	bob := attach(hub, "bob", 4)
	watcher := attach(hub, AllUsers, 4)
	waitForClients(t, hub, 3)

	hub.Send("alice", "run", map[string]string{"runId": "run-1"})

	require.Len(t, alice.Send, 1)
	assert.Len(t, bob.Send, 0)
	require.Len(t, watcher.Send, 1)

	var msg struct {
		Type string            `json:"type"`
		Data map[string]string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(<-alice.Send, &msg))
	assert.Equal(t, "run", msg.Type)
	assert.Equal(t, "run-1", msg.Data["runId"])
}

func TestFullBufferDropsClientWithoutBlocking(t *testing.T) {
	hub := startHub(t)
	slow := attach(hub, "alice", 1)
	waitForClients(t, hub, 1)

	done := make(chan struct{})
	go func() {
		hub.Send("alice", "run", 1)
		hub.Send("alice", "run", 2)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Send blocked on a slow client")
	}
	waitForClients(t, hub, 0)

	<-slow.Send
	_, open := <-slow.Send
	assert.False(t, open, "send channel is closed once")

	assert.NotPanics(t, func() { hub.remove(slow) })
}

func TestUnregister(t *testing.T) {
	hub := startHub(t)
	c := attach(hub, "bob", 1)
	waitForClients(t, hub, 1)

	hub.Unregister(c)
	waitForClients(t, hub, 0)
}

func TestRegisterAfterShutdownDoesNotBlock(t *testing.T) {
	hub := NewHub(nil, logger.NewNopLogger())
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	live := attach(hub, "alice", 1)
	waitForClients(t, hub, 1)
	cancel()
	<-stopped

	_, open := <-live.Send
	assert.False(t, open, "shutdown releases live connections")
	assert.Equal(t, 0, hub.ClientCount())

	result := make(chan bool, 1)
	go func() {
		late := &Client{Hub: hub, UserID: "bob", Send: make(chan []byte, 1)}
		ok := hub.Register(late)
		hub.Unregister(late)
		result <- ok
	}()

	select {
	case ok := <-result:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Register blocked after the hub stopped")
	}
}
