package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/FrancoisMichell/seirin-sub000/internal/events"
	"github.com/FrancoisMichell/seirin-sub000/internal/metrics"
	"github.com/FrancoisMichell/seirin-sub000/internal/middleware"
	"github.com/FrancoisMichell/seirin-sub000/internal/model"
	"github.com/FrancoisMichell/seirin-sub000/internal/response"
	ws "github.com/FrancoisMichell/seirin-sub000/internal/websocket"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Feed is a live stream of raw attendance events for one session.
type Feed interface {
	Payloads() <-chan *redis.Message
	Close() error
}

// SubscribeFunc opens a Feed for a session.
type SubscribeFunc func(ctx context.Context, sessionID int) (Feed, error)

// BrokerFeed adapts an events.Broker to a SubscribeFunc.
func BrokerFeed(b *events.Broker) SubscribeFunc {
	return func(ctx context.Context, sessionID int) (Feed, error) {
		sub, err := b.SubscribeAttendance(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		return sub, nil
	}
}

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// LiveBoardHandler streams a session's attendance over WebSocket.
type LiveBoardHandler struct {
	sessions    ClassSessions
	attendances Attendances
	subscribe   SubscribeFunc
	metrics     *metrics.Metrics
	log         zerolog.Logger
	upgrader    websocket.Upgrader
}

// NewLiveBoardHandler creates a new LiveBoardHandler.
func NewLiveBoardHandler(
	sessions ClassSessions,
	attendances Attendances,
	subscribe SubscribeFunc,
	m *metrics.Metrics,
	log zerolog.Logger,
	allowedOrigins []string,
) *LiveBoardHandler {
	return &LiveBoardHandler{
		sessions:    sessions,
		attendances: attendances,
		subscribe:   subscribe,
		metrics:     m,
		log:         log.With().Str("component", "live_board").Logger(),
		upgrader:    buildUpgrader(allowedOrigins),
	}
}

// Stream godoc
// WS /ws/class-sessions/:id/attendance?token=
// Sends a snapshot, then every attendance change of the session.
func (h *LiveBoardHandler) Stream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	sessionID, ok := paramID(c, "id")
	if !ok {
		return
	}
	if _, err := h.sessions.FindOne(c.Request.Context(), sessionID); err != nil {
		respondError(c, err)
		return
	}

	raw, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	conn := ws.Wrap(raw)
	defer conn.Close()

	wsLog := h.log.With().Int("user_id", claims.UserID).Int("session_id", sessionID).Logger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	feed, err := h.subscribe(ctx, sessionID)
	if err != nil {
		wsLog.Error().Err(err).Msg("Failed to subscribe to attendance feed")
		_ = conn.WriteError("live feed unavailable")
		return
	}
	defer feed.Close()

	h.metrics.LiveBoardOpened()
	defer h.metrics.LiveBoardClosed()
	wsLog.Info().Msg("Live board connected")

	if err := h.sendSnapshot(ctx, conn, sessionID); err != nil {
		wsLog.Warn().Err(err).Msg("Failed to send snapshot")
		return
	}

	go h.readLoop(ctx, cancel, conn, sessionID, wsLog)

	payloads := feed.Payloads()
	for {
		select {
		case <-ctx.Done():
			wsLog.Debug().Msg("Live board closed")
			return
		case msg, ok := <-payloads:
			if !ok {
				return
			}
			evt, err := events.Decode(msg.Payload)
			if err != nil {
				wsLog.Warn().Err(err).Msg("Dropping malformed attendance event")
				continue
			}
			if err := conn.WriteTyped(ws.AttendanceResponse{Event: ws.EventAttendance, Data: evt}); err != nil {
				wsLog.Debug().Err(err).Msg("Write failed")
				return
			}
		}
	}
}

// readLoop answers client actions until the connection drops, then cancels ctx.
func (h *LiveBoardHandler) readLoop(ctx context.Context, cancel context.CancelFunc, conn *ws.Conn, sessionID int, wsLog zerolog.Logger) {
	defer cancel()

	for {
		var msg ws.RequestEnvelope
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			}
			return
		}

		switch msg.Action {
		case ws.ActionPing:
			_ = conn.WriteTyped(ws.PongResponse{Event: ws.EventPong})
		case ws.ActionRefresh:
			if err := h.sendSnapshot(ctx, conn, sessionID); err != nil {
				wsLog.Warn().Err(err).Msg("Failed to send snapshot")
			}
		default:
			_ = conn.WriteError("unknown action: " + string(msg.Action))
		}
	}
}

func (h *LiveBoardHandler) sendSnapshot(ctx context.Context, conn *ws.Conn, sessionID int) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	list, err := h.attendances.FindBySession(ctx, sessionID)
	if err != nil {
		_ = conn.WriteError("failed to load attendances")
		return err
	}
	if list == nil {
		list = []model.Attendance{}
	}
	return conn.WriteTyped(ws.SnapshotResponse{Event: ws.EventSnapshot, SessionID: sessionID, Attendances: list})
}
