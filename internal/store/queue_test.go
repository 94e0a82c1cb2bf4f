package store

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"realtime-canvas/internal/model"
)

func TestFlushQueue_EnqueueDoesNotBlockDuringWrite(t *testing.T) {
	backend := newMemBackend()
	backend.gate = make(chan struct{})
	backend.started = make(chan struct{}, 1)

	clock := newFakeClock(baseTime)
	s := New(DefaultBounds(), backend, WithClock(clock.Now))

	_, err := s.Append([]model.Stroke{line(2, "a")}, "")
	require.NoError(t, err)

	select {
	case <-backend.started:
	case <-time.After(2 * time.Second):
		t.Fatal("first write never started")
	}

	// 쓰기가 진행 중이어도 Append/Enqueue 는 즉시 반환
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 5; i++ {
			_, err := s.Append([]model.Stroke{line(2, "b")}, "")
			assert.NoError(t, err)
		}
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("append blocked behind in-flight write")
	}

	close(backend.gate)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Close(ctx))

	// 진행 중이던 1회 + 대기 중이던 5개 요청이 합쳐진 1회
	assert.Equal(t, 2, backend.writeCount())
	assert.Equal(t, int64(2), s.Queue().Flushes())

	var persisted []model.Drawing
	require.NoError(t, json.Unmarshal(backend.lastWrite(), &persisted))
	assert.Len(t, persisted, 6, "last flush must carry the latest state")
}

func TestFlushQueue_WritesLatestStateNotPayload(t *testing.T) {
	backend := newMemBackend()
	var mu sync.Mutex
	current := []model.Drawing{drawingAt("first", baseTime, 1)}

	q := newFlushQueue(backend, func() []model.Drawing {
		mu.Lock()
		defer mu.Unlock()
		return append([]model.Drawing(nil), current...)
	}, time.Second, nil)

	mu.Lock()
	current = append(current, drawingAt("second", baseTime, 1))
	mu.Unlock()
	require.True(t, q.Enqueue("stale reason"))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, q.Close(ctx))

	var persisted []model.Drawing
	require.NoError(t, json.Unmarshal(backend.lastWrite(), &persisted))
	assert.Equal(t, []string{"first", "second"}, ids(persisted))
}

func TestFlushQueue_FailureDoesNotStall(t *testing.T) {
	backend := newMemBackend()
	backend.setWriteErr(errBackendDown)

	var mu sync.Mutex
	var hooked []string
	q := newFlushQueue(backend, func() []model.Drawing {
		return []model.Drawing{drawingAt("x", baseTime, 1)}
	}, time.Second, func(op string, err error) {
		mu.Lock()
		defer mu.Unlock()
		hooked = append(hooked, op)
		assert.ErrorIs(t, err, errBackendDown)
	})

	require.True(t, q.Enqueue("one"))
	require.Eventually(t, func() bool { return q.Failures() == 1 }, 2*time.Second, 5*time.Millisecond)

	backend.setWriteErr(nil)
	require.True(t, q.Enqueue("two"))
	require.Eventually(t, func() bool { return q.Flushes() == 2 }, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, int64(1), q.Failures())
	assert.Greater(t, q.LastSize(), int64(0))

	mu.Lock()
	assert.Equal(t, []string{"flush.write"}, hooked)
	mu.Unlock()

	require.NoError(t, q.Close(context.Background()))
}

func TestFlushQueue_CloseIsIdempotentAndRejects(t *testing.T) {
	backend := newMemBackend()
	q := newFlushQueue(backend, func() []model.Drawing { return []model.Drawing{} }, time.Second, nil)

	require.NoError(t, q.Close(context.Background()))
	require.NoError(t, q.Close(context.Background()))
	assert.False(t, q.Enqueue("late"))
	assert.Equal(t, 0, q.Pending())
	assert.Equal(t, 0, backend.writeCount())
}

func TestFlushQueue_CloseHonorsContext(t *testing.T) {
	backend := newMemBackend()
	backend.gate = make(chan struct{})
	backend.started = make(chan struct{}, 1)

	q := newFlushQueue(backend, func() []model.Drawing { return []model.Drawing{} }, time.Second, nil)
	require.True(t, q.Enqueue("blocked"))
	<-backend.started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, q.Close(ctx), context.DeadlineExceeded)

	close(backend.gate)
	require.NoError(t, q.Close(context.Background()))
}
