package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"realtime-canvas/internal/model"
)

var errBackendDown = errors.New("backend down")

// memBackend in-memory Backend, optionally gated/failing
type memBackend struct {
	mu       sync.Mutex
	data     []byte
	writes   [][]byte
	readErr  error
	writeErr error

	gate    chan struct{} // Write 가 이 채널을 기다림
	started chan struct{} // Write 시작 시 신호
}

func newMemBackend() *memBackend {
	return &memBackend{}
}

func (b *memBackend) Name() string { return "mem" }

func (b *memBackend) Read(ctx context.Context) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.readErr != nil {
		return nil, b.readErr
	}
	if b.data == nil {
		return nil, ErrNoDocument
	}
	return append([]byte(nil), b.data...), nil
}

func (b *memBackend) Write(ctx context.Context, data []byte) error {
	b.mu.Lock()
	started, gate := b.started, b.gate
	b.mu.Unlock()

	if started != nil {
		select {
		case started <- struct{}{}:
		default:
		}
	}
	if gate != nil {
		<-gate
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.writes = append(b.writes, append([]byte(nil), data...))
	if b.writeErr != nil {
		return b.writeErr
	}
	b.data = append([]byte(nil), data...)
	return nil
}

func (b *memBackend) setWriteErr(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.writeErr = err
}

func (b *memBackend) writeCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.writes)
}

func (b *memBackend) lastWrite() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.writes) == 0 {
		return nil
	}
	return b.writes[len(b.writes)-1]
}

// fakeClock 수동으로 진행하는 시계
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(t time.Time) *fakeClock {
	return &fakeClock{now: t}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var baseTime = time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

// line n 개의 점으로 이루어진 스트로크
func line(n int, color string) model.Stroke {
	s := make(model.Stroke, n)
	for i := range s {
		f := float64(i) / float64(n+1)
		s[i] = model.Point{X: f, Y: 1 - f, Color: color, Size: 0.01}
	}
	return s
}

func drawingAt(id string, ts time.Time, points int) model.Drawing {
	return model.Drawing{
		ID:        id,
		Data:      []model.Stroke{line(points, "#123456")},
		Timestamp: ts.UnixMilli(),
	}
}

func ids(drawings []model.Drawing) []string {
	out := make([]string, len(drawings))
	for i, d := range drawings {
		out[i] = d.ID
	}
	return out
}
