package presence

import (
	"context"
	"sync"
)

// Tracker 접속 중인 연결 수 관리
type Tracker interface {
	Join(ctx context.Context, connID string) error
	Leave(ctx context.Context, connID string) error
	Count(ctx context.Context) (int64, error)
}

// LocalTracker 프로세스 내부 카운터
type LocalTracker struct {
	mu    sync.RWMutex
	conns map[string]struct{}
}

// NewLocalTracker 생성자
func NewLocalTracker() *LocalTracker {
	return &LocalTracker{conns: make(map[string]struct{})}
}

// Join 연결 추가
func (t *LocalTracker) Join(_ context.Context, connID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.conns[connID] = struct{}{}
	return nil
}

// Leave 연결 제거
func (t *LocalTracker) Leave(_ context.Context, connID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.conns, connID)
	return nil
}

// Count 현재 연결 수
func (t *LocalTracker) Count(_ context.Context) (int64, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return int64(len(t.conns)), nil
}
