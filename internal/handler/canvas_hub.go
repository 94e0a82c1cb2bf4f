package handler

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"

	"realtime-canvas/internal/config"
	"realtime-canvas/internal/model"
	"realtime-canvas/internal/presence"
	"realtime-canvas/internal/session"
)

// =============================================================================
// Canvas Hub - 공유 캔버스 WebSocket 중계
// =============================================================================

// DrawingStore 허브가 사용하는 드로잉 저장소
type DrawingStore interface {
	Append(strokes []model.Stroke, strokeID string) (model.Drawing, error)
	GetAll() []model.Drawing
}

// presence 호출 제한 시간
const presenceTimeout = 2 * time.Second

// CanvasHub 접속 중인 모든 세션과 이벤트 라우팅을 관리
//
// draw-start / drawing / draw-end 는 검증 없이 보낸 사람을 제외한 모두에게
// 그대로 전달한다. save-drawing 만 저장소를 거쳐 drawing-saved 로 모두에게
// 알린다. 한 세션의 메시지는 읽기 루프 하나가 순서대로 처리하므로 수신자
// 입장에서 보낸 사람 단위 순서가 유지된다.
type CanvasHub struct {
	mu       sync.RWMutex
	sessions map[string]*session.Session

	store    DrawingStore
	presence presence.Tracker
	cfg      config.WebSocketConfig
}

// NewCanvasHub 생성자
func NewCanvasHub(store DrawingStore, tracker presence.Tracker, cfg config.WebSocketConfig) *CanvasHub {
	if tracker == nil {
		tracker = presence.NewLocalTracker()
	}
	return &CanvasHub{
		sessions: make(map[string]*session.Session),
		store:    store,
		presence: tracker,
		cfg:      cfg,
	}
}

// HandleWebSocket /ws/canvas 연결 처리
func (h *CanvasHub) HandleWebSocket(c *websocket.Conn) {
	if h.cfg.ReadLimit > 0 {
		c.SetReadLimit(h.cfg.ReadLimit)
	}

	sess := h.Connect(c)
	defer h.Disconnect(sess)

	log.Printf("[Canvas] Client connected: %s (%s)", sess.ID, c.RemoteAddr())

	for {
		_, raw, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[Canvas] Read error (%s): %v", sess.ID, err)
			}
			return
		}
		h.Dispatch(sess, raw)
	}
}

// Connect 세션 등록 후 초기 상태 전송 (connected, drawings-loaded, online-count)
func (h *CanvasHub) Connect(conn session.Conn) *session.Session {
	sess := session.New(conn, h.cfg.SendBufferSize, h.cfg.WriteTimeout)

	h.mu.Lock()
	h.sessions[sess.ID] = sess
	h.mu.Unlock()

	h.sendTo(sess, model.EventConnected, model.ConnectedPayload{ID: sess.ID})
	h.sendTo(sess, model.EventDrawingsLoaded, h.store.GetAll())

	ctx, cancel := context.WithTimeout(context.Background(), presenceTimeout)
	if err := h.presence.Join(ctx, sess.ID); err != nil {
		log.Printf("[Canvas] Presence join failed: %v", err)
	}
	cancel()

	h.broadcastOnlineCount()
	return sess
}

// Disconnect 열린 스트로크를 닫고 세션 제거
func (h *CanvasHub) Disconnect(sess *session.Session) {
	for _, strokeID := range sess.TakeOpenStrokes() {
		h.broadcastExcept(sess.ID, model.EventDrawEnd, model.StrokeEnd{StrokeID: strokeID})
	}

	h.mu.Lock()
	delete(h.sessions, sess.ID)
	h.mu.Unlock()

	sess.Close()

	ctx, cancel := context.WithTimeout(context.Background(), presenceTimeout)
	if err := h.presence.Leave(ctx, sess.ID); err != nil {
		log.Printf("[Canvas] Presence leave failed: %v", err)
	}
	cancel()

	received, sent, dropped := sess.GetStats()
	log.Printf("[Canvas] Client disconnected: %s (recv=%d sent=%d dropped=%d, %s)",
		sess.ID, received, sent, dropped, sess.Duration().Round(time.Second))

	h.broadcastOnlineCount()
}

// Dispatch 수신 메시지 하나 처리 (알 수 없는 이벤트/깨진 JSON 은 무시)
func (h *CanvasHub) Dispatch(sess *session.Session, raw []byte) {
	sess.MarkReceived()

	var msg model.Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		log.Printf("[Canvas] Invalid message from %s: %v", sess.ID, err)
		return
	}

	switch msg.Type {
	case model.EventDrawStart, model.EventDrawing:
		h.relayStroke(sess, msg)
	case model.EventDrawEnd:
		h.relayStrokeEnd(sess, msg)
	case model.EventSaveDrawing:
		h.saveDrawing(sess, msg)
	case model.EventOffer, model.EventAnswer, model.EventICECandidate:
		h.relaySignal(sess, msg)
	default:
		log.Printf("[Canvas] Unknown event from %s: %q", sess.ID, msg.Type)
	}
}

// relayStroke draw-start / drawing 을 그대로 다른 클라이언트에게
func (h *CanvasHub) relayStroke(sess *session.Session, msg model.Message) {
	if id := strokeIDOf(msg); id != "" {
		sess.OpenStroke(id)
	}
	h.broadcastExcept(sess.ID, msg.Type, msg.Payload)
}

// relayStrokeEnd draw-end 전달 (payload 가 없으면 {})
func (h *CanvasHub) relayStrokeEnd(sess *session.Session, msg model.Message) {
	if id := strokeIDOf(msg); id != "" {
		sess.CloseStroke(id)
	}
	payload := msg.Payload
	if !msg.HasPayload() {
		payload = json.RawMessage(`{}`)
	}
	h.broadcastExcept(sess.ID, model.EventDrawEnd, payload)
}

// saveDrawing 저장 후 보낸 사람을 포함한 모두에게 drawing-saved
func (h *CanvasHub) saveDrawing(sess *session.Session, msg model.Message) {
	if !msg.HasPayload() {
		return
	}

	var req model.SaveRequest
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		log.Printf("[Canvas] Invalid save-drawing from %s: %v", sess.ID, err)
		return
	}

	drawing, err := h.store.Append(req.NonEmptyStrokes(), req.StrokeID)
	if err != nil {
		log.Printf("[Canvas] Save rejected from %s: %v", sess.ID, err)
		return
	}

	if req.StrokeID != "" {
		sess.CloseStroke(req.StrokeID)
	}
	h.BroadcastAll(model.EventDrawingSaved, drawing)
}

// relaySignal WebRTC 시그널링을 target 에게만 전달 (sender 설정)
func (h *CanvasHub) relaySignal(sess *session.Session, msg model.Message) {
	if !msg.HasPayload() {
		return
	}

	var env model.SignalEnvelope
	if err := json.Unmarshal(msg.Payload, &env); err != nil || env.Target == "" {
		return
	}

	h.mu.RLock()
	target, ok := h.sessions[env.Target]
	h.mu.RUnlock()
	if !ok {
		return
	}
	h.sendTo(target, msg.Type, env.Forwarded(sess.ID))
}

// BroadcastAll 모든 세션에 전송
func (h *CanvasHub) BroadcastAll(eventType string, payload any) {
	h.broadcastExcept("", eventType, payload)
}

func (h *CanvasHub) broadcastExcept(senderID, eventType string, payload any) {
	data, err := model.EncodeMessage(eventType, payload)
	if err != nil {
		log.Printf("[Canvas] Failed to encode %s: %v", eventType, err)
		return
	}

	h.mu.RLock()
	targets := make([]*session.Session, 0, len(h.sessions))
	for id, s := range h.sessions {
		if id != senderID {
			targets = append(targets, s)
		}
	}
	h.mu.RUnlock()

	for _, s := range targets {
		s.Send(data)
	}
}

func (h *CanvasHub) sendTo(sess *session.Session, eventType string, payload any) {
	data, err := model.EncodeMessage(eventType, payload)
	if err != nil {
		log.Printf("[Canvas] Failed to encode %s: %v", eventType, err)
		return
	}
	sess.Send(data)
}

func (h *CanvasHub) broadcastOnlineCount() {
	ctx, cancel := context.WithTimeout(context.Background(), presenceTimeout)
	defer cancel()

	count, err := h.presence.Count(ctx)
	if err != nil {
		log.Printf("[Canvas] Presence count failed, using local count: %v", err)
		count = int64(h.SessionCount())
	}
	h.BroadcastAll(model.EventOnlineCount, count)
}

// SessionCount 이 인스턴스에 연결된 세션 수
func (h *CanvasHub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// Shutdown 모든 세션 종료 (서버 종료 시)
func (h *CanvasHub) Shutdown() {
	h.mu.Lock()
	sessions := make([]*session.Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		sessions = append(sessions, s)
	}
	h.sessions = make(map[string]*session.Session)
	h.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
	log.Printf("[Canvas] Hub shutdown: %d sessions closed", len(sessions))
}

func strokeIDOf(msg model.Message) string {
	if !msg.HasPayload() {
		return ""
	}
	var p struct {
		StrokeID string `json:"strokeId"`
	}
	if err := json.Unmarshal(msg.Payload, &p); err != nil {
		return ""
	}
	return p.StrokeID
}
