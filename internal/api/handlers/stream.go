package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nicebigrose/stock-analysis-system/internal/selection"
	"github.com/nicebigrose/stock-analysis-system/pkg/logger"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512
)

// Stream message types
const (
	MessageRow     = "row"
	MessageFailure = "failure"
	MessageDone    = "done"
	MessageError   = "error"
)

// StreamMessage is one frame of the screening progress stream
type StreamMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Completed int         `json:"completed,omitempty"`
	Total     int         `json:"total,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// StreamHandler pushes screening rows to a websocket as they complete
type StreamHandler struct {
	screening *ScreeningHandler
	logger    *logger.Logger
}

// NewStreamHandler creates a new stream handler
func NewStreamHandler(screening *ScreeningHandler, log *logger.Logger) *StreamHandler {
	return &StreamHandler{
		screening: screening,
		logger:    log,
	}
}

// Screen streams one screening run, then a done frame carrying the
// ranked rows, then closes.
// GET /ws/screen?symbols=FPT,VNM&workers=5
func (h *StreamHandler) Screen(w http.ResponseWriter, r *http.Request) {
	symbols := h.screening.symbolsFor(r)
	workers := queryInt(r, "workers", h.screening.workers)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// the client only sends control frames; a read error means it left
	go readPump(conn, cancel)

	// one slot per symbol plus the final frame, so the producer never
	// blocks even after the writer has gone
	send := make(chan StreamMessage, len(symbols)+1)
	go func() {
		defer close(send)
		report, err := h.screening.screener.ScreenAll(ctx, symbols, workers, func(ev selection.Event) {
			msg := StreamMessage{Completed: ev.Completed, Total: ev.Total}
			if ev.Row != nil {
				msg.Type, msg.Data = MessageRow, ev.Row
			} else {
				msg.Type, msg.Data = MessageFailure, ev.Failure
			}
			send <- msg
		})
		if err != nil {
			send <- StreamMessage{Type: MessageError, Data: err.Error()}
			return
		}
		send <- StreamMessage{
			Type:      MessageDone,
			Completed: report.Succeeded,
			Total:     report.Total,
			Data: map[string]interface{}{
				"summary":  report.Summary(),
				"rows":     report.Rows,
				"failures": report.Failures,
			},
		}
	}()

	writePump(conn, send, h.logger)
}

func readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump drains send until it closes, pinging in between
func writePump(conn *websocket.Conn, send <-chan StreamMessage, log *logger.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"))
				return
			}

			data, err := json.Marshal(msg)
			if err != nil {
				log.WithError(err).Error("WebSocket marshal failed")
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
