package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"realtime-canvas/internal/model"
)

// ErrNotDrawing 진행 중인 로컬 스트로크가 없음
var ErrNotDrawing = errors.New("no local stroke in progress")

// Renderer 화면 출력 (픽셀 변환은 구현체 담당, 좌표는 0~1)
type Renderer interface {
	Clear()
	DrawSegment(seg Segment)
	DrawStroke(stroke model.Stroke)
}

// Sender 서버로 이벤트 전송
type Sender interface {
	Send(eventType string, payload any) error
}

// BoardOption Board 옵션
type BoardOption func(*Board)

// WithStrokeTTL 원격 스트로크 보존 시간
func WithStrokeTTL(ttl time.Duration) BoardOption {
	return func(b *Board) {
		b.remote = NewRemoteStrokes(ttl)
	}
}

// WithEpsilon 자기 스트로크 판정 허용 오차
func WithEpsilon(eps float64) BoardOption {
	return func(b *Board) {
		b.reconciler = NewReconciler(eps)
	}
}

// WithEchoHook 자신의 저장 결과가 돌아왔을 때 호출
func WithEchoHook(fn func(model.Drawing)) BoardOption {
	return func(b *Board) {
		b.onEcho = fn
	}
}

// WithBoardLogger 로거 지정
func WithBoardLogger(logger *slog.Logger) BoardOption {
	return func(b *Board) {
		b.logger = logger
	}
}

type localStroke struct {
	id     string
	points model.Stroke
}

// Board 클라이언트 연결 하나의 캔버스 상태
//
// 원격 스트로크 테이블, 자기 저장 확인용 Reconciler, 저장된 드로잉 목록과
// 현재 그리는 로컬 스트로크를 함께 소유한다.
type Board struct {
	mu         sync.Mutex
	connID     string
	seq        uint64
	online     int64
	saved      []model.Drawing
	current    *localStroke
	remote     *RemoteStrokes
	reconciler *Reconciler
	renderer   Renderer
	sender     Sender
	onEcho     func(model.Drawing)
	logger     *slog.Logger
	now        func() time.Time
}

// NewBoard 생성자 (sender 는 SetSender 또는 Dial 에서 연결)
func NewBoard(renderer Renderer, opts ...BoardOption) *Board {
	b := &Board{
		remote:     NewRemoteStrokes(DefaultStrokeTTL),
		reconciler: NewReconciler(DefaultEpsilon),
		renderer:   renderer,
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// SetSender 이벤트 전송 대상 지정
func (b *Board) SetSender(s Sender) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sender = s
}

// ConnID 서버가 알려준 자신의 연결 ID
func (b *Board) ConnID() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.connID
}

// OnlineCount 마지막으로 받은 접속자 수
func (b *Board) OnlineCount() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.online
}

// Saved 저장된 드로잉 목록 복사본
func (b *Board) Saved() []model.Drawing {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]model.Drawing(nil), b.saved...)
}

// Remote 원격 스트로크 테이블
func (b *Board) Remote() *RemoteStrokes {
	return b.remote
}

// Reconciler 저장 확인 대기 목록
func (b *Board) Reconciler() *Reconciler {
	return b.reconciler
}

// BeginStroke 로컬 스트로크 시작 (화면에 그리고 draw-start 전송)
func (b *Board) BeginStroke(p model.Point) error {
	b.mu.Lock()
	b.seq++
	id := model.StrokeID(b.connID, b.seq)
	b.current = &localStroke{id: id, points: model.Stroke{p}}
	sender := b.sender
	b.mu.Unlock()

	b.renderer.DrawSegment(Segment{StrokeID: id, From: p, To: p})
	return send(sender, model.EventDrawStart, strokePoint(p, id))
}

// ExtendStroke 로컬 스트로크에 점 추가 (drawing 전송)
func (b *Board) ExtendStroke(p model.Point) error {
	b.mu.Lock()
	if b.current == nil {
		b.mu.Unlock()
		return ErrNotDrawing
	}
	cur := b.current
	last := cur.points[len(cur.points)-1]
	cur.points = append(cur.points, p)
	sender := b.sender
	b.mu.Unlock()

	b.renderer.DrawSegment(Segment{StrokeID: cur.id, From: last, To: p})
	return send(sender, model.EventDrawing, strokePoint(p, cur.id))
}

// EndStroke 로컬 스트로크 종료 (save-drawing, draw-end 전송). 스트로크 ID 반환.
func (b *Board) EndStroke() (string, error) {
	b.mu.Lock()
	if b.current == nil {
		b.mu.Unlock()
		return "", ErrNotDrawing
	}
	cur := b.current
	b.current = nil
	sender := b.sender
	b.mu.Unlock()

	b.reconciler.Add(cur.id, cur.points)

	req := model.SaveRequest{StrokeID: cur.id, Strokes: []model.Stroke{cur.points}}
	if err := send(sender, model.EventSaveDrawing, req); err != nil {
		return cur.id, err
	}
	return cur.id, send(sender, model.EventDrawEnd, model.StrokeEnd{StrokeID: cur.id})
}

// HandleMessage 서버 이벤트 하나 처리
func (b *Board) HandleMessage(msg model.Message) error {
	switch msg.Type {
	case model.EventConnected:
		var p model.ConnectedPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return fmt.Errorf("decode %s: %w", msg.Type, err)
		}
		b.mu.Lock()
		b.connID = p.ID
		b.mu.Unlock()
		b.remote.SetSelf(p.ID)

	case model.EventDrawStart, model.EventDrawing:
		var p model.StrokePoint
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return fmt.Errorf("decode %s: %w", msg.Type, err)
		}
		var (
			seg Segment
			ok  bool
		)
		if msg.Type == model.EventDrawStart {
			seg, ok = b.remote.Start(p, b.now())
		} else {
			seg, ok = b.remote.Move(p, b.now())
		}
		if ok {
			b.renderer.DrawSegment(seg)
		}

	case model.EventDrawEnd:
		var p model.StrokeEnd
		if msg.HasPayload() {
			if err := json.Unmarshal(msg.Payload, &p); err != nil {
				return fmt.Errorf("decode %s: %w", msg.Type, err)
			}
		}
		b.remote.End(p.StrokeID)

	case model.EventDrawingsLoaded, model.EventDrawingsUpdated:
		var drawings []model.Drawing
		if msg.HasPayload() {
			if err := json.Unmarshal(msg.Payload, &drawings); err != nil {
				return fmt.Errorf("decode %s: %w", msg.Type, err)
			}
		}
		b.replaceSaved(drawings)

	case model.EventDrawingSaved:
		var d model.Drawing
		if err := json.Unmarshal(msg.Payload, &d); err != nil {
			return fmt.Errorf("decode %s: %w", msg.Type, err)
		}
		b.addSaved(d)

	case model.EventOnlineCount:
		var n int64
		if err := json.Unmarshal(msg.Payload, &n); err != nil {
			return fmt.Errorf("decode %s: %w", msg.Type, err)
		}
		b.mu.Lock()
		b.online = n
		b.mu.Unlock()

	default:
		b.logger.Debug("ignoring event", "type", msg.Type)
	}
	return nil
}

// HandleRaw 수신 프레임 처리
func (b *Board) HandleRaw(raw []byte) error {
	var msg model.Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return fmt.Errorf("decode message: %w", err)
	}
	return b.HandleMessage(msg)
}

// Reap 오래된 원격 스트로크 정리
func (b *Board) Reap(now time.Time) []string {
	reaped := b.remote.Reap(now)
	if len(reaped) > 0 {
		b.logger.Info("reaped stale remote strokes", "count", len(reaped))
	}
	return reaped
}

// replaceSaved 목록 전체 교체 후 다시 그림 (확인 대기 중인 로컬 스트로크 포함)
func (b *Board) replaceSaved(drawings []model.Drawing) {
	normalized, migrated := model.NormalizeDrawings(drawings)
	if migrated > 0 {
		b.logger.Info("migrated legacy drawings", "count", migrated)
	}

	b.mu.Lock()
	b.saved = normalized
	b.mu.Unlock()

	b.renderer.Clear()
	for _, d := range normalized {
		for _, s := range d.Data {
			b.renderer.DrawStroke(s)
		}
	}
	for _, p := range b.reconciler.Pending() {
		b.renderer.DrawStroke(p.Stroke)
	}
}

func (b *Board) addSaved(d model.Drawing) {
	d, _ = model.NormalizeDrawing(d)

	b.mu.Lock()
	b.saved = append(b.saved, d)
	b.mu.Unlock()

	if b.reconciler.IsEcho(d) {
		if b.onEcho != nil {
			b.onEcho(d)
		}
		return
	}
	for _, s := range d.Data {
		b.renderer.DrawStroke(s)
	}
}

func strokePoint(p model.Point, id string) model.StrokePoint {
	return model.StrokePoint{X: p.X, Y: p.Y, Color: p.Color, Size: p.Size, StrokeID: id}
}

func send(s Sender, eventType string, payload any) error {
	if s == nil {
		return nil
	}
	return s.Send(eventType, payload)
}
