package hub

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recv(t *testing.T, conn *Connection) []byte {
	t.Helper()
	select {
	case data := <-conn.Send:
		return data
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for frame")
		return nil
	}
}

func assertNoFrame(t *testing.T, conn *Connection) {
	t.Helper()
	select {
	case data := <-conn.Send:
		t.Fatalf("unexpected frame: %s", data)
	case <-time.After(50 * time.Millisecond):
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition never satisfied")
}

func TestRegisterJoinsPrivateChannel(t *testing.T) {
	h := NewHub()
	go h.Run()

	conn := h.NewConnection(nil, "u1")
	h.Register(conn)
	waitFor(t, func() bool { return h.ConnectionCount() == 1 })

	require.Equal(t, 1, h.RoomSize(UserRoom("u1")))

	h.Publish(UserRoom("u1"), []byte("ping"))
	assert.Equal(t, "ping", string(recv(t, conn)))
}

func TestPublishOrderAndMembership(t *testing.T) {
	h := NewHub()
	go h.Run()

	a := h.NewConnection(nil, "u1")
	b := h.NewConnection(nil, "u2")
	h.Register(a)
	h.Register(b)
	waitFor(t, func() bool { return h.ConnectionCount() == 2 })

	room := SessionRoom("s1")
	h.Join(room, a)

	h.Publish(room, []byte("one"))
	h.Publish(room, []byte("two"))

	assert.Equal(t, "one", string(recv(t, a)))
	assert.Equal(t, "two", string(recv(t, a)))

	// b never joined; a late join misses earlier events.
	h.Join(room, b)
	h.Publish(room, []byte("three"))
	assert.Equal(t, "three", string(recv(t, a)))
	assert.Equal(t, "three", string(recv(t, b)))

	h.Leave(room, a)
	h.Publish(room, []byte("four"))
	assert.Equal(t, "four", string(recv(t, b)))
	assertNoFrame(t, a)
}

func TestTeardownRoom(t *testing.T) {
	h := NewHub()
	go h.Run()

	a := h.NewConnection(nil, "u1")
	h.Register(a)
	waitFor(t, func() bool { return h.ConnectionCount() == 1 })

	room := SessionRoom("s1")
	h.Join(room, a)

	h.Publish(room, []byte("last message"))
	h.TeardownRoom(room, []byte("ended"))

	assert.Equal(t, "last message", string(recv(t, a)))
	assert.Equal(t, "ended", string(recv(t, a)))

	waitFor(t, func() bool { return h.RoomSize(room) == 0 })

	// Publishing to the torn-down room reaches nobody.
	h.Publish(room, []byte("ghost"))
	assertNoFrame(t, a)

	// The private channel still works.
	h.Publish(UserRoom("u1"), []byte("notice"))
	assert.Equal(t, "notice", string(recv(t, a)))
}

func TestUnregisterLeavesAllRooms(t *testing.T) {
	h := NewHub()
	go h.Run()

	a := h.NewConnection(nil, "u1")
	h.Register(a)
	waitFor(t, func() bool { return h.ConnectionCount() == 1 })

	room := SessionRoom("s1")
	h.Join(room, a)

	h.Unregister(a)
	waitFor(t, func() bool { return h.ConnectionCount() == 0 })

	assert.Equal(t, 0, h.RoomSize(room))
	assert.Equal(t, 0, h.RoomSize(UserRoom("u1")))
	assert.False(t, h.HasActiveConnections(room))
}

func TestSlowConsumerDropped(t *testing.T) {
	h := NewHub()
	go h.Run()

	a := h.NewConnection(nil, "u1")
	// Tiny buffer so the second publish overflows.
	a.Send = make(chan []byte, 1)
	h.Register(a)
	waitFor(t, func() bool { return h.ConnectionCount() == 1 })

	room := SessionRoom("s1")
	h.Join(room, a)

	h.Publish(room, []byte("one"))
	h.Publish(room, []byte("two"))

	waitFor(t, func() bool { return h.RoomSize(room) == 0 })
	assert.Equal(t, "one", string(recv(t, a)))
}
