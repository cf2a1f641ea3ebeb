package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/Sufyane-M/UniTOLC-sub001/internal/middleware"
	"github.com/Sufyane-M/UniTOLC-sub001/internal/service"
	"github.com/Sufyane-M/UniTOLC-sub001/internal/simulation"
	ws "github.com/Sufyane-M/UniTOLC-sub001/internal/websocket"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
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

// WSHandler streams the live simulation clock over WebSocket.
type WSHandler struct {
	simService *service.SimulationService
	log        zerolog.Logger
	upgrader   websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(simService *service.SimulationService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		simService: simService,
		log:        log.With().Str("component", "ws_handler").Logger(),
		upgrader:   buildUpgrader(allowedOrigins),
	}
}

// SimulationStream godoc
// WS /ws/v1/simulations/:session_id/stream
// Pushes a state tick once per second so the UI clock tracks the
// server clock, and accepts answer updates on the same connection.
func (h *WSHandler) SimulationStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session ID"})
		return
	}

	ctrl, ok := h.simService.Live(sessionID, claims.UserID)
	if !ok {
		c.JSON(http.StatusConflict, gin.H{"error": "no live session"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().
		Str("session_id", sessionID.String()).
		Str("user_id", claims.UserID.String()).
		Logger()
	wsLog.Info().Msg("Candidate connected")

	// The reader runs in its own goroutine; all writes happen in the
	// ticker loop below so the connection never sees two writers.
	incoming := make(chan ws.RequestPayload)
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		for {
			var msg ws.RequestPayload
			if err := ws.ReadJSON(conn, &msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					wsLog.Warn().Err(err).Msg("Unexpected close")
				} else {
					wsLog.Debug().Msg("Connection closed")
				}
				return
			}
			incoming <- msg
		}
	}()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-readerDone:
			return
		case msg := <-incoming:
			h.handleMessage(conn, wsLog, ctrl, &msg)
		case <-ticker.C:
			state := ctrl.Snapshot()
			if err := ws.WriteTyped(conn, ws.TickResponse{Event: ws.EventTick, State: state}); err != nil {
				wsLog.Debug().Err(err).Msg("Tick write failed")
				return
			}
			if state.Phase == simulation.PhaseCompleted || state.Phase == simulation.PhaseAbandoned {
				wsLog.Info().Str("phase", string(state.Phase)).Msg("Stream finished")
				return
			}
		}
	}
}

func (h *WSHandler) handleMessage(conn *websocket.Conn, wsLog zerolog.Logger, ctrl *simulation.Controller, msg *ws.RequestPayload) {
	switch msg.Action {
	case ws.ActionPing:
		ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
	case ws.ActionAnswer:
		questionID, err := uuid.Parse(msg.QID)
		if err != nil {
			ws.WriteError(conn, "invalid q_id format")
			return
		}
		if err := ctrl.RecordAnswer(questionID, msg.Answer); err != nil {
			ws.WriteError(conn, "answer rejected")
			return
		}
		ws.WriteTyped(conn, ws.SavedResponse{Event: ws.EventSaved, QID: msg.QID})
	default:
		wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
		ws.WriteError(conn, "unknown action: "+string(msg.Action))
	}
}
