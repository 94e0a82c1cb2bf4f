package model

import (
	"bytes"
	"encoding/json"
	"errors"
)

// 실시간 채널 이벤트 타입
const (
	EventConnected       = "connected"
	EventDrawStart       = "draw-start"
	EventDrawing         = "drawing"
	EventDrawEnd         = "draw-end"
	EventSaveDrawing     = "save-drawing"
	EventDrawingsLoaded  = "drawings-loaded"
	EventDrawingSaved    = "drawing-saved"
	EventDrawingsUpdated = "drawings-updated"
	EventOnlineCount     = "online-count"
	EventOffer           = "offer"
	EventAnswer          = "answer"
	EventICECandidate    = "ice-candidate"
)

// Message WebSocket 메시지 envelope
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewMessage payload 를 직렬화해서 Message 생성
func NewMessage(eventType string, payload any) (Message, error) {
	if payload == nil {
		return Message{Type: eventType}, nil
	}
	if raw, ok := payload.(json.RawMessage); ok {
		return Message{Type: eventType, Payload: raw}, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Message{}, err
	}
	return Message{Type: eventType, Payload: data}, nil
}

// Encode Message 를 전송용 바이트로 직렬화
func EncodeMessage(eventType string, payload any) ([]byte, error) {
	msg, err := NewMessage(eventType, payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(msg)
}

// HasPayload payload 가 비어있지 않은지 (null 포함 체크)
func (m Message) HasPayload() bool {
	trimmed := bytes.TrimSpace(m.Payload)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

// ConnectedPayload 연결 직후 서버가 알려주는 자신의 연결 ID
type ConnectedPayload struct {
	ID string `json:"id"`
}

// StrokePoint draw-start / drawing 이벤트 payload
type StrokePoint struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Color    string  `json:"color"`
	Size     float64 `json:"size"`
	StrokeID string  `json:"strokeId"`
}

// Point 좌표/스타일만 추출
func (p StrokePoint) Point() Point {
	return Point{X: p.X, Y: p.Y, Color: p.Color, Size: p.Size}
}

// StrokeEnd draw-end 이벤트 payload (strokeId 는 없을 수 있음)
type StrokeEnd struct {
	StrokeID string `json:"strokeId,omitempty"`
}

// ErrEmptySaveRequest 저장할 스트로크가 없음
var ErrEmptySaveRequest = errors.New("save request has no strokes")

// SaveRequest save-drawing 이벤트 payload
//
// 기존 클라이언트는 스트로크 배열만 보내고, 새 클라이언트는
// {"strokeId": "...", "strokes": [...]} 형태로 correlation id 를 함께 보낸다.
type SaveRequest struct {
	StrokeID string   `json:"strokeId,omitempty"`
	Strokes  []Stroke `json:"strokes"`
}

// UnmarshalJSON 배열/객체 두 형식을 모두 허용
func (r *SaveRequest) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var strokes []Stroke
		if err := json.Unmarshal(trimmed, &strokes); err != nil {
			return err
		}
		r.StrokeID = ""
		r.Strokes = strokes
		return nil
	}

	type alias SaveRequest
	var a alias
	if err := json.Unmarshal(trimmed, &a); err != nil {
		return err
	}
	*r = SaveRequest(a)
	return nil
}

// NonEmptyStrokes 빈 스트로크를 제거한 목록
func (r SaveRequest) NonEmptyStrokes() []Stroke {
	out := make([]Stroke, 0, len(r.Strokes))
	for _, s := range r.Strokes {
		if len(s) > 0 {
			out = append(out, s)
		}
	}
	return out
}

// SignalEnvelope WebRTC 시그널링 payload (offer / answer / ice-candidate)
type SignalEnvelope struct {
	Target    string          `json:"target,omitempty"`
	Sender    string          `json:"sender,omitempty"`
	Offer     json.RawMessage `json:"offer,omitempty"`
	Answer    json.RawMessage `json:"answer,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty"`
}

// Forwarded 수신자에게 전달할 형태 (target 제거, sender 설정)
func (e SignalEnvelope) Forwarded(sender string) SignalEnvelope {
	out := e
	out.Target = ""
	out.Sender = sender
	return out
}
