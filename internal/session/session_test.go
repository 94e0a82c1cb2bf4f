package session

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingConn struct {
	mu      sync.Mutex
	frames  []string
	gate    chan struct{}
	failErr error
}

func (c *recordingConn) WriteMessage(_ int, data []byte) error {
	if c.gate != nil {
		<-c.gate
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failErr != nil {
		return c.failErr
	}
	c.frames = append(c.frames, string(data))
	return nil
}

func (c *recordingConn) SetWriteDeadline(time.Time) error { return nil }

func (c *recordingConn) Frames() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.frames...)
}

func TestSession_SendPreservesOrder(t *testing.T) {
	conn := &recordingConn{}
	s := New(conn, 64, time.Second)

	for _, msg := range []string{"a", "b", "c", "d"} {
		require.True(t, s.Send([]byte(msg)))
	}
	s.Close()

	assert.Equal(t, []string{"a", "b", "c", "d"}, conn.Frames())
	_, sent, dropped := s.GetStats()
	assert.Equal(t, uint64(4), sent)
	assert.Equal(t, uint64(0), dropped)
}

func TestSession_SendDropsWhenFull(t *testing.T) {
	conn := &recordingConn{gate: make(chan struct{})}
	s := New(conn, 1, time.Second)

	// 첫 메시지는 writer 가 가져가서 gate 에서 대기, 두 번째는 버퍼, 이후는 drop
	require.True(t, s.Send([]byte("1")))
	require.Eventually(t, func() bool { return s.Send([]byte("2")) }, time.Second, time.Millisecond)
	assert.False(t, s.Send([]byte("3")))

	close(conn.gate)
	s.Close()

	_, _, dropped := s.GetStats()
	assert.GreaterOrEqual(t, dropped, uint64(1))
	assert.Equal(t, []string{"1", "2"}, conn.Frames())
}

func TestSession_SendAfterCloseIsRejected(t *testing.T) {
	s := New(&recordingConn{}, 4, time.Second)
	s.Close()
	s.Close()

	assert.True(t, s.IsClosed())
	assert.Equal(t, "closed", s.GetState().String())
	assert.False(t, s.Send([]byte("late")))
}

func TestSession_WriteFailureStopsWrites(t *testing.T) {
	conn := &recordingConn{failErr: errors.New("broken pipe")}
	s := New(conn, 4, time.Second)

	s.Send([]byte("x"))
	s.Send([]byte("y"))
	s.Close()

	_, sent, _ := s.GetStats()
	assert.Equal(t, uint64(0), sent)
}

func TestSession_OpenStrokes(t *testing.T) {
	s := New(&recordingConn{}, 4, time.Second)
	defer s.Close()

	s.OpenStroke("b:1")
	s.OpenStroke("a:1")
	s.OpenStroke("a:1")
	s.OpenStroke("")
	assert.Equal(t, 2, s.OpenStrokeCount())

	assert.True(t, s.CloseStroke("b:1"))
	assert.False(t, s.CloseStroke("b:1"))

	s.OpenStroke("c:1")
	assert.Equal(t, []string{"a:1", "c:1"}, s.TakeOpenStrokes())
	assert.Empty(t, s.TakeOpenStrokes())
}

func TestSession_IDsAreUnique(t *testing.T) {
	a := New(&recordingConn{}, 1, 0)
	b := New(&recordingConn{}, 1, 0)
	defer a.Close()
	defer b.Close()

	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, uint64(1), a.NextStrokeSeq())
	assert.Equal(t, uint64(2), a.NextStrokeSeq())
}
