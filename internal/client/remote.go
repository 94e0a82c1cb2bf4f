package client

import (
	"sort"
	"sync"
	"time"

	"realtime-canvas/internal/model"
)

// DefaultStrokeTTL draw-end 를 받지 못한 원격 스트로크를 버리는 시간
const DefaultStrokeTTL = 30 * time.Second

// Segment 렌더링할 선분 (From == To 이면 점)
type Segment struct {
	StrokeID string
	From     model.Point
	To       model.Point
}

// IsDot 시작점만 있는 선분인지
func (s Segment) IsDot() bool {
	return s.From == s.To
}

type remoteStroke struct {
	last     model.Point
	points   int
	lastSeen time.Time
}

// RemoteStrokes 다른 클라이언트가 그리는 중인 스트로크 테이블
//
// 스트로크마다 마지막 점만 기억하고, 새 점은 항상 같은 스트로크의 마지막 점과
// 이어 그린다. 여러 스트로크가 섞여 도착해도 서로 이어지지 않는다.
type RemoteStrokes struct {
	mu      sync.Mutex
	self    string
	ttl     time.Duration
	strokes map[string]*remoteStroke
}

// NewRemoteStrokes 생성자 (ttl <= 0 이면 DefaultStrokeTTL)
func NewRemoteStrokes(ttl time.Duration) *RemoteStrokes {
	if ttl <= 0 {
		ttl = DefaultStrokeTTL
	}
	return &RemoteStrokes{
		ttl:     ttl,
		strokes: make(map[string]*remoteStroke),
	}
}

// SetSelf 자신의 연결 ID (이 ID 로 시작하는 스트로크는 무시)
func (t *RemoteStrokes) SetSelf(connID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.self = connID
}

func (t *RemoteStrokes) isSelf(strokeID string) bool {
	return t.self != "" && model.OwnerOf(strokeID) == t.self
}

// Start draw-start 처리. 자신의 스트로크면 false.
// strokeId 가 없는 이벤트(구 클라이언트)는 점만 그리고 상태를 남기지 않는다.
func (t *RemoteStrokes) Start(p model.StrokePoint, now time.Time) (Segment, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	pt := p.Point()
	if p.StrokeID == "" {
		return Segment{From: pt, To: pt}, true
	}
	if t.isSelf(p.StrokeID) {
		return Segment{}, false
	}
	t.strokes[p.StrokeID] = &remoteStroke{last: pt, points: 1, lastSeen: now}
	return Segment{StrokeID: p.StrokeID, From: pt, To: pt}, true
}

// Move drawing 처리. 처음 보는 ID 면 시작점으로 취급한다.
// strokeId 가 없으면 이을 스트로크를 알 수 없으므로 새 점만 그린다.
func (t *RemoteStrokes) Move(p model.StrokePoint, now time.Time) (Segment, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	pt := p.Point()
	if p.StrokeID == "" {
		return Segment{From: pt, To: pt}, true
	}
	if t.isSelf(p.StrokeID) {
		return Segment{}, false
	}
	rs, ok := t.strokes[p.StrokeID]
	if !ok {
		t.strokes[p.StrokeID] = &remoteStroke{last: pt, points: 1, lastSeen: now}
		return Segment{StrokeID: p.StrokeID, From: pt, To: pt}, true
	}

	seg := Segment{StrokeID: p.StrokeID, From: rs.last, To: pt}
	rs.last = pt
	rs.points++
	rs.lastSeen = now
	return seg, true
}

// End draw-end 처리 (항목이 있었으면 true)
func (t *RemoteStrokes) End(strokeID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.strokes[strokeID]; !ok {
		return false
	}
	delete(t.strokes, strokeID)
	return true
}

// Active 진행 중인 스트로크 ID (정렬됨)
func (t *RemoteStrokes) Active() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	ids := make([]string, 0, len(t.strokes))
	for id := range t.strokes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len 진행 중인 스트로크 수
func (t *RemoteStrokes) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.strokes)
}

// Reap ttl 동안 갱신되지 않은 스트로크 제거
func (t *RemoteStrokes) Reap(now time.Time) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	var reaped []string
	for id, rs := range t.strokes {
		if now.Sub(rs.lastSeen) > t.ttl {
			delete(t.strokes, id)
			reaped = append(reaped, id)
		}
	}
	sort.Strings(reaped)
	return reaped
}
