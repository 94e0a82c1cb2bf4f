package client

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"realtime-canvas/internal/model"
)

const writeWait = 5 * time.Second

// Conn 캔버스 서버와의 WebSocket 연결 (수신 이벤트는 Board 로 전달)
type Conn struct {
	ws     *websocket.Conn
	board  *Board
	logger *slog.Logger

	writeMu sync.Mutex
	closeMu sync.Mutex
	closed  bool
}

// Dial 서버에 연결하고 board 의 Sender 로 등록
func Dial(ctx context.Context, url string, board *Board) (*Conn, error) {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}

	c := &Conn{ws: ws, board: board, logger: board.logger}
	board.SetSender(c)
	return c, nil
}

// Send 이벤트 전송 (동시 호출 안전)
func (c *Conn) Send(eventType string, payload any) error {
	data, err := model.EncodeMessage(eventType, payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", eventType, err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("write %s: %w", eventType, err)
	}
	return nil
}

// Run 연결이 끊기거나 ctx 가 끝날 때까지 수신 처리
// 원격 스트로크 TTL 정리도 함께 수행한다.
func (c *Conn) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		<-ctx.Done()
		_ = c.Close()
	}()

	go c.reapLoop(ctx)

	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || c.isClosed() || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		if err := c.board.HandleRaw(raw); err != nil {
			c.logger.Warn("dropping malformed event", "error", err)
		}
	}
}

func (c *Conn) reapLoop(ctx context.Context) {
	interval := c.board.remote.ttl / 2
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			c.board.Reap(now)
		}
	}
}

func (c *Conn) isClosed() bool {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()
	return c.closed
}

// Close close 프레임 전송 후 연결 종료 (여러 번 호출 가능)
func (c *Conn) Close() error {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	// 상대가 이미 끊었으면 close 프레임 전송은 실패해도 무시
	c.writeMu.Lock()
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	c.writeMu.Unlock()

	return c.ws.Close()
}
