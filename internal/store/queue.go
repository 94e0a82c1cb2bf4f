package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"realtime-canvas/internal/model"
)

// FlushQueue 영속 저장소 쓰기를 단일 worker 로 직렬화하는 큐
//
// Enqueue 로 들어온 요청의 내용은 기록용일 뿐이고, worker 는 항상 그 시점의
// 최신 스냅샷을 기록한다 (debounced flush of current state). 쓰기 도중 들어온
// 여러 요청은 다음 한 번의 flush 로 합쳐진다. 실패한 쓰기는 재시도하지 않는다.
type FlushQueue struct {
	mu      sync.Mutex
	pending []string
	closed  bool
	signal  chan struct{} // buffered(1), 여러 신호가 하나로 합쳐짐
	done    chan struct{}

	backend  Backend
	snapshot func() []model.Drawing
	timeout  time.Duration
	onError  func(op string, err error)

	flushes  atomic.Int64
	failures atomic.Int64
	lastSize atomic.Int64
}

func newFlushQueue(backend Backend, snapshot func() []model.Drawing, timeout time.Duration, onError func(string, error)) *FlushQueue {
	q := &FlushQueue{
		pending:  make([]string, 0, 16),
		signal:   make(chan struct{}, 1),
		done:     make(chan struct{}),
		backend:  backend,
		snapshot: snapshot,
		timeout:  timeout,
		onError:  onError,
	}
	go q.run()
	return q
}

// Enqueue flush 요청 추가 (블로킹 없음). 큐가 닫혔으면 false.
func (q *FlushQueue) Enqueue(reason string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.pending = append(q.pending, reason)

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// Pending 아직 처리되지 않은 요청 수
func (q *FlushQueue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Flushes 완료된(성공+실패) 쓰기 횟수
func (q *FlushQueue) Flushes() int64 {
	return q.flushes.Load()
}

// Failures 실패한 쓰기 횟수
func (q *FlushQueue) Failures() int64 {
	return q.failures.Load()
}

// LastSize 마지막으로 기록한 문서 크기
func (q *FlushQueue) LastSize() int64 {
	return q.lastSize.Load()
}

// Close 새 요청을 막고 남은 요청을 모두 처리한 뒤 worker 종료를 기다린다
func (q *FlushQueue) Close(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		select {
		case q.signal <- struct{}{}:
		default:
		}
	}
	q.mu.Unlock()

	select {
	case <-q.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("flush queue close: %w", ctx.Err())
	}
}

func (q *FlushQueue) take() ([]string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	reasons := q.pending
	if len(reasons) > 0 {
		q.pending = make([]string, 0, 16)
	}
	return reasons, q.closed
}

func (q *FlushQueue) run() {
	defer close(q.done)

	for range q.signal {
		for {
			reasons, closed := q.take()
			if len(reasons) > 0 {
				q.flush(reasons)
				continue
			}
			if closed {
				return
			}
			break
		}
	}
}

func (q *FlushQueue) flush(reasons []string) {
	defer q.flushes.Add(1)

	drawings := q.snapshot()
	data, err := json.Marshal(drawings)
	if err != nil {
		q.fail("encode", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()

	start := time.Now()
	if err := q.backend.Write(ctx, data); err != nil {
		q.fail("write", err)
		return
	}
	q.lastSize.Store(int64(len(data)))

	if len(reasons) > 1 {
		log.Printf("[FlushQueue] Saved %d drawings (%d bytes) to %s in %v, coalesced %d requests",
			len(drawings), len(data), q.backend.Name(), time.Since(start).Round(time.Millisecond), len(reasons))
	}
}

func (q *FlushQueue) fail(op string, err error) {
	q.failures.Add(1)
	log.Printf("[FlushQueue] Failed to %s drawings (%s): %v", op, q.backend.Name(), err)
	if q.onError != nil {
		q.onError("flush."+op, err)
	}
}
