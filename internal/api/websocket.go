package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/consult-assist-server/internal/domain"
	"github.com/consult-assist-server/internal/middleware"
)

const (
	wsWriteWait      = 10 * time.Second
	wsPongWait       = 60 * time.Second
	wsPingPeriod     = (wsPongWait * 9) / 10
	wsMaxMessageSize = 16 * 1024
)

// Stream frame types.
const (
	FrameSnapshot   = "snapshot"
	FrameTurnResult = "turn_result"
	FrameError      = "error"
)

// StreamFrame is a server-to-client WebSocket message.
type StreamFrame struct {
	Type   string           `json:"type"`
	Result interface{}      `json:"result,omitempty"`
	Error  *domain.APIError `json:"error,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handleConsultationStream streams a consultation over a WebSocket. Each client frame is a
// turn; frames on one connection are applied in arrival order and answered one by one.
func (s *Server) handleConsultationStream(c *gin.Context) {
	consultationID := c.Param("id")

	snapshot, err := s.consultations.GetConsultation(consultationID)
	if err != nil {
		s.respondError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.WithError(err).WithField("consultation_id", consultationID).Warn("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	log := s.logger.WithFields(logrus.Fields{
		"consultation_id": consultationID,
		"correlation_id":  c.GetString(middleware.CorrelationIDKey),
	})
	log.Info("Consultation stream opened")

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	conn.SetReadLimit(wsMaxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	// One writer at a time: the read loop answers frames, the pinger keeps the connection alive.
	writes := make(chan StreamFrame, 8)
	done := make(chan struct{})
	go s.streamWriter(ctx, conn, writes, done, log)

	writes <- StreamFrame{Type: FrameSnapshot, Result: snapshot}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.WithError(err).Warn("Consultation stream closed unexpectedly")
			}
			break
		}

		writes <- s.applyFrame(ctx, c, consultationID, data)
	}

	close(writes)
	<-done
	log.Info("Consultation stream closed")
}

// applyFrame decodes one client frame and submits it as a turn.
func (s *Server) applyFrame(ctx context.Context, c *gin.Context, consultationID string, data []byte) StreamFrame {
	correlationID := c.GetString(middleware.CorrelationIDKey)
	fail := func(err error) StreamFrame {
		return StreamFrame{
			Type:  FrameError,
			Error: domain.NewAPIError(domain.ErrorCode(err), http.StatusText(statusFor(err)), err.Error(), correlationID),
		}
	}

	var req SubmitTurnRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return fail(domain.NewValidationError("frame", "malformed turn frame", nil))
	}

	speaker, err := domain.ParseSpeaker(req.Speaker)
	if err != nil {
		return fail(err)
	}

	result, err := s.consultations.SubmitTurn(ctx, consultationID, speaker, req.Text)
	if err != nil {
		return fail(err)
	}
	return StreamFrame{Type: FrameTurnResult, Result: result}
}

func (s *Server) streamWriter(ctx context.Context, conn *websocket.Conn, writes <-chan StreamFrame, done chan<- struct{}, log *logrus.Entry) {
	defer close(done)

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case frame, ok := <-writes:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteJSON(frame); err != nil {
				log.WithError(err).Warn("Failed to write stream frame")
				conn.Close()
				drain(writes)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				conn.Close()
				drain(writes)
				return
			}
		case <-ctx.Done():
			drain(writes)
			return
		}
	}
}

// drain discards frames until the channel closes.
func drain(writes <-chan StreamFrame) {
	for range writes {
	}
}
