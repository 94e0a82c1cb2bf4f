package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"realtime-canvas/internal/model"
)

// echoServer connected 를 보낸 뒤 save-drawing 을 drawing-saved 로 돌려준다
func echoServer(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()

		hello, _ := model.EncodeMessage(model.EventConnected, model.ConnectedPayload{ID: "conn-1"})
		if err := ws.WriteMessage(websocket.TextMessage, hello); err != nil {
			return
		}

		for {
			_, raw, err := ws.ReadMessage()
			if err != nil {
				return
			}
			var m model.Message
			if json.Unmarshal(raw, &m) != nil || m.Type != model.EventSaveDrawing {
				continue
			}
			var req model.SaveRequest
			if json.Unmarshal(m.Payload, &req) != nil {
				continue
			}
			out, _ := model.EncodeMessage(model.EventDrawingSaved, model.Drawing{
				ID:        "1-saved",
				Data:      req.Strokes,
				Timestamp: time.Now().UnixMilli(),
				StrokeID:  req.StrokeID,
			})
			if err := ws.WriteMessage(websocket.TextMessage, out); err != nil {
				return
			}
		}
	}))
}

func TestConn_StrokeRoundTripIsReconciled(t *testing.T) {
	srv := echoServer(t)
	defer srv.Close()

	renderer := &recordingRenderer{}
	echoed := make(chan model.Drawing, 1)
	board := NewBoard(renderer, WithEchoHook(func(d model.Drawing) { echoed <- d }))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, err := Dial(ctx, url, board)
	require.NoError(t, err)

	runErr := make(chan error, 1)
	go func() { runErr <- conn.Run(ctx) }()

	require.Eventually(t, func() bool { return board.ConnID() == "conn-1" }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, board.BeginStroke(model.Point{X: 0.25, Y: 0.75, Color: "#0f0", Size: 4}))
	require.NoError(t, board.ExtendStroke(model.Point{X: 0.3, Y: 0.7, Color: "#0f0", Size: 4}))
	id, err := board.EndStroke()
	require.NoError(t, err)

	select {
	case d := <-echoed:
		assert.Equal(t, id, d.StrokeID)
		assert.Equal(t, "conn-1:1", d.StrokeID)
	case <-ctx.Done():
		t.Fatal("echo not received")
	}

	assert.Empty(t, board.Reconciler().Pending())
	assert.Empty(t, renderer.strokes)

	require.NoError(t, conn.Close())
	require.NoError(t, conn.Close())
	cancel()
	assert.NoError(t, <-runErr)
}

func TestDial_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := Dial(ctx, "ws://127.0.0.1:1/ws/canvas", NewBoard(&recordingRenderer{}))
	assert.Error(t, err)
}
