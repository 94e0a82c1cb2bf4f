package session

import (
	"log"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
)

// State WebSocket 연결 상태
type State int

const (
	StateConnected State = iota // 연결됨
	StateClosed                 // 연결 종료
)

// String 상태를 문자열로 반환
func (s State) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Conn 세션이 사용하는 WebSocket 연결 (websocket.Conn 이 만족)
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
}

// Session 캔버스 클라이언트 연결 하나 (Thread-Safe)
//
// 송신은 버퍼 채널 + 전용 writer goroutine 으로 직렬화되어 연결 단위 순서가
// 보장된다. Send 는 블로킹하지 않으며 버퍼가 가득 차면 메시지를 버린다.
type Session struct {
	ID          string
	ConnectedAt time.Time

	conn         Conn
	writeTimeout time.Duration

	// 동시성 제어
	mu          sync.RWMutex
	state       State
	openStrokes map[string]time.Time

	send chan []byte
	done chan struct{}

	received atomic.Uint64
	sent     atomic.Uint64
	dropped  atomic.Uint64
	seq      atomic.Uint64
}

// New 새 세션 생성 및 writer 시작
func New(conn Conn, bufferSize int, writeTimeout time.Duration) *Session {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	s := &Session{
		ID:           uuid.New().String(),
		ConnectedAt:  time.Now(),
		conn:         conn,
		writeTimeout: writeTimeout,
		state:        StateConnected,
		openStrokes:  make(map[string]time.Time),
		send:         make(chan []byte, bufferSize),
		done:         make(chan struct{}),
	}
	go s.writeLoop()
	return s
}

// Send 메시지 전송 예약 (블로킹 없음)
func (s *Session) Send(data []byte) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.state == StateClosed {
		return false
	}

	select {
	case s.send <- data:
		return true
	default:
		s.dropped.Add(1)
		log.Printf("[Session %s] Send buffer full, dropping message", s.ID)
		return false
	}
}

func (s *Session) writeLoop() {
	defer close(s.done)

	failed := false
	for data := range s.send {
		if failed {
			continue
		}
		if s.writeTimeout > 0 {
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
		}
		if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Printf("[Session %s] Write failed: %v", s.ID, err)
			failed = true
			continue
		}
		s.sent.Add(1)
	}
}

// NextStrokeSeq 이 연결에서 만든 스트로크 순번
func (s *Session) NextStrokeSeq() uint64 {
	return s.seq.Add(1)
}

// OpenStroke 진행 중인 스트로크 기록
func (s *Session) OpenStroke(strokeID string) {
	if strokeID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return
	}
	s.openStrokes[strokeID] = time.Now()
}

// CloseStroke 스트로크 종료 기록 (열려 있었으면 true)
func (s *Session) CloseStroke(strokeID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.openStrokes[strokeID]; !ok {
		return false
	}
	delete(s.openStrokes, strokeID)
	return true
}

// TakeOpenStrokes 열린 스트로크 목록을 반환하고 비운다 (정렬됨)
func (s *Session) TakeOpenStrokes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.openStrokes))
	for id := range s.openStrokes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	s.openStrokes = make(map[string]time.Time)
	return ids
}

// OpenStrokeCount 열린 스트로크 수
func (s *Session) OpenStrokeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.openStrokes)
}

// MarkReceived 수신 메시지 카운트 증가
func (s *Session) MarkReceived() uint64 {
	return s.received.Add(1)
}

// GetStats 통계 조회
func (s *Session) GetStats() (received, sent, dropped uint64) {
	return s.received.Load(), s.sent.Load(), s.dropped.Load()
}

// GetState 현재 상태 조회
func (s *Session) GetState() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Duration 연결 유지 시간
func (s *Session) Duration() time.Duration {
	return time.Since(s.ConnectedAt)
}

// Close 송신 큐를 닫고 남은 메시지가 기록될 때까지 기다린다
func (s *Session) Close() {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		<-s.done
		return
	}
	s.state = StateClosed
	close(s.send)
	s.mu.Unlock()

	<-s.done
}

// IsClosed 세션 종료 여부 확인
func (s *Session) IsClosed() bool {
	return s.GetState() == StateClosed
}
