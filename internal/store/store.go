package store

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"realtime-canvas/internal/model"
)

var (
	// ErrEmptyDrawing 저장할 스트로크가 없음
	ErrEmptyDrawing = errors.New("drawing has no strokes")
	// ErrClosed 저장소가 닫힘
	ErrClosed = errors.New("store closed")
)

// DefaultFlushTimeout 백엔드 쓰기 한 번의 제한 시간
const DefaultFlushTimeout = 10 * time.Second

// Store 드로잉 목록의 단일 소유자 (메모리가 기준, 백엔드는 미러)
//
// 모든 변경은 mu 아래에서 한 번에 끝나므로 동시에 여러 핸들러가 호출해도
// 목록이 섞이지 않는다. 영속 저장소 쓰기는 FlushQueue 만 수행한다.
type Store struct {
	mu       sync.RWMutex
	drawings []model.Drawing
	closed   bool

	bounds       Bounds
	backend      Backend
	queue        *FlushQueue
	now          func() time.Time
	onError      func(op string, err error)
	flushTimeout time.Duration
}

// Option Store 옵션
type Option func(*Store)

// WithClock 현재 시각 함수 교체 (테스트용)
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithErrorHook 저장소/큐 오류 알림 hook
func WithErrorHook(fn func(op string, err error)) Option {
	return func(s *Store) {
		s.onError = fn
	}
}

// WithFlushTimeout 백엔드 쓰기 제한 시간
func WithFlushTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.flushTimeout = d
		}
	}
}

// New 빈 저장소 생성 및 flush worker 시작
func New(bounds Bounds, backend Backend, opts ...Option) *Store {
	s := &Store{
		drawings:     make([]model.Drawing, 0),
		bounds:       bounds,
		backend:      backend,
		now:          time.Now,
		flushTimeout: DefaultFlushTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.queue = newFlushQueue(backend, s.flushSnapshot, s.flushTimeout, s.onError)
	return s
}

// Bounds 적용 중인 제한
func (s *Store) Bounds() Bounds {
	return s.bounds
}

// Backend 영속 백엔드
func (s *Store) Backend() Backend {
	return s.backend
}

// Queue flush 큐
func (s *Store) Queue() *FlushQueue {
	return s.queue
}

// Load 백엔드에서 드로잉 목록을 읽어 메모리 목록을 교체한다.
// 문서가 없거나 손상된 경우 빈 목록으로 시작하며 오류를 반환하지 않는다.
func (s *Store) Load(ctx context.Context) []model.Drawing {
	loaded := s.readBackend(ctx)

	loaded, migrated := model.NormalizeDrawings(loaded)
	if migrated > 0 {
		log.Printf("[Store] Migrated %d legacy drawings to normalized coordinates", migrated)
	}

	bounded, res := EnforceBounds(loaded, s.bounds, s.now())

	s.mu.Lock()
	s.drawings = bounded
	out := cloneDrawings(s.drawings)
	s.mu.Unlock()

	log.Printf("[Store] Loaded %d drawings from %s (%d bytes)", len(out), s.backend.Name(), res.BytesAfter)
	if res.Removed() > 0 || migrated > 0 {
		log.Printf("[Store] Initial cleanup: %d expired, %d evicted", res.Expired, res.Evicted)
		s.queue.Enqueue("load")
	}
	return out
}

func (s *Store) readBackend(ctx context.Context) []model.Drawing {
	data, err := s.backend.Read(ctx)
	if errors.Is(err, ErrNoDocument) {
		log.Printf("[Store] No stored drawings in %s, starting empty", s.backend.Name())
		return []model.Drawing{}
	}
	if err != nil {
		s.reportError("load.read", err)
		return []model.Drawing{}
	}
	if len(data) == 0 {
		return []model.Drawing{}
	}

	var drawings []model.Drawing
	if err := json.Unmarshal(data, &drawings); err != nil {
		s.reportError("load.parse", err)
		return []model.Drawing{}
	}
	if drawings == nil {
		drawings = []model.Drawing{}
	}
	return drawings
}

// Append 스트로크 목록을 새 Drawing 으로 추가하고 제한을 적용한 뒤 flush 를 예약한다
func (s *Store) Append(strokes []model.Stroke, strokeID string) (model.Drawing, error) {
	data := make([]model.Stroke, 0, len(strokes))
	for _, st := range strokes {
		if len(st) > 0 {
			data = append(data, append(model.Stroke(nil), st...))
		}
	}
	if len(data) == 0 {
		return model.Drawing{}, ErrEmptyDrawing
	}

	now := s.now()
	drawing := model.Drawing{
		ID:        model.NewDrawingID(now),
		Data:      data,
		Timestamp: now.UnixMilli(),
		StrokeID:  strokeID,
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return model.Drawing{}, ErrClosed
	}
	s.drawings = append(s.drawings, drawing)
	res := s.enforceLocked(now)
	s.mu.Unlock()

	if res.Removed() > 0 {
		log.Printf("[Store] Append evicted %d drawings (%d expired), %d -> %d bytes",
			res.Removed(), res.Expired, res.BytesBefore, res.BytesAfter)
	}
	s.queue.Enqueue("append:" + drawing.ID)
	return drawing, nil
}

// GetAll 제한을 적용한 현재 목록의 복사본
func (s *Store) GetAll() []model.Drawing {
	drawings, _ := s.Cleanup()
	return drawings
}

// Cleanup 제한을 적용하고 제거가 있었으면 flush 를 예약한다
func (s *Store) Cleanup() ([]model.Drawing, int) {
	s.mu.Lock()
	res := s.enforceLocked(s.now())
	out := cloneDrawings(s.drawings)
	s.mu.Unlock()

	if res.Removed() > 0 {
		log.Printf("[Store] Cleanup: %d drawings removed (%d expired, %d evicted)",
			res.Removed(), res.Expired, res.Evicted)
		s.queue.Enqueue("cleanup")
	}
	return out, res.Removed()
}

// Snapshot 제한 적용 없이 현재 목록 복사
func (s *Store) Snapshot() []model.Drawing {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneDrawings(s.drawings)
}

// Len 현재 드로잉 수
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.drawings)
}

// Ping 백엔드 상태 확인 (지원하는 경우)
func (s *Store) Ping(ctx context.Context) error {
	if p, ok := s.backend.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Close 새 추가를 막고 남은 flush 가 끝날 때까지 기다린다
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	return s.queue.Close(ctx)
}

// flushSnapshot FlushQueue 가 기록할 최신 상태 (제한 적용 후)
func (s *Store) flushSnapshot() []model.Drawing {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.enforceLocked(s.now())
	return cloneDrawings(s.drawings)
}

func (s *Store) enforceLocked(now time.Time) EnforceResult {
	bounded, res := EnforceBounds(s.drawings, s.bounds, now)
	if res.Removed() > 0 {
		s.drawings = bounded
	}
	return res
}

func (s *Store) reportError(op string, err error) {
	log.Printf("[Store] %s failed (%s): %v", op, s.backend.Name(), err)
	if s.onError != nil {
		s.onError(op, err)
	}
}

func cloneDrawings(in []model.Drawing) []model.Drawing {
	out := make([]model.Drawing, len(in))
	copy(out, in)
	return out
}
