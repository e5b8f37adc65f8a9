package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/quizbank-backend/internal/middleware"
	"github.com/stemsi/quizbank-backend/internal/response"
	"github.com/stemsi/quizbank-backend/internal/service"
	ws "github.com/stemsi/quizbank-backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
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

// WSHandler streams one attempt over a WebSocket connection.
type WSHandler struct {
	attemptService *service.AttemptService
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(attemptService *service.AttemptService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		attemptService: attemptService,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// AttemptStream godoc
// WS /ws/v1/attempts/:id/stream?token=...
// Carries view/answer/skip/finish/ping actions for one attempt.
func (h *WSHandler) AttemptStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	attemptID, _, ok := pathInts(c)
	if !ok {
		return
	}

	// Ownership is checked before the upgrade so a bad id gets a plain HTTP error.
	if _, err := h.attemptService.Remaining(c.Request.Context(), claims.UserID, attemptID); err != nil {
		status, code := attemptErrorStatus(err)
		response.Fail(c, status, code)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	userID := claims.UserID
	wsLog := h.log.With().Int("user_id", userID).Int("attempt_id", attemptID).Logger()
	wsLog.Info().Msg("Learner connected")

	// The request context ends with the hijacked HTTP request.
	ctx := context.Background()

	for {
		msg, err := ws.ReadRequest(conn)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		var out interface{}
		switch msg.Action {
		case ws.ActionView:
			view, err := h.attemptService.View(ctx, userID, attemptID, msg.Position)
			if err != nil {
				h.writeErr(conn, wsLog, err)
				continue
			}
			out = ws.QuestionResponse{Event: ws.EventQuestion, Data: view}
		case ws.ActionAnswer:
			d, err := h.attemptService.Confirm(ctx, userID, attemptID, msg.Position, msg.Selected)
			if err != nil {
				h.writeErr(conn, wsLog, err)
				continue
			}
			out = ws.SavedResponse{Event: ws.EventSaved, Position: d.Position, Selected: d.Selected, Confirmed: d.Answered()}
		case ws.ActionSkip:
			next, err := h.attemptService.Skip(ctx, userID, attemptID, msg.Position)
			if err != nil {
				h.writeErr(conn, wsLog, err)
				continue
			}
			out = ws.NextResponse{Event: ws.EventNext, Next: next}
		case ws.ActionFinish:
			res, err := h.attemptService.Finish(ctx, userID, attemptID)
			if err != nil {
				h.writeErr(conn, wsLog, err)
				continue
			}
			out = ws.FinishedResponse{
				Event:   ws.EventFinished,
				Score:   res.Attempt.Score,
				Percent: res.Attempt.Percent,
				Total:   res.Attempt.TotalQuestions,
			}
		case ws.ActionPing:
			remaining, err := h.attemptService.Remaining(ctx, userID, attemptID)
			if err != nil {
				h.writeErr(conn, wsLog, err)
				continue
			}
			out = ws.PongResponse{Event: ws.EventPong, RemainingSeconds: remaining}
		default:
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			_ = ws.WriteError(conn, string(response.ErrInvalidPayload), "unknown action: "+string(msg.Action))
			continue
		}

		if err := ws.WriteTyped(conn, out); err != nil {
			wsLog.Warn().Err(err).Msg("Write failed")
			return
		}
		if msg.Action == ws.ActionFinish {
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "finished"), time.Now().Add(time.Second))
			return
		}
	}
}

func (h *WSHandler) writeErr(conn *websocket.Conn, log zerolog.Logger, err error) {
	status, code := attemptErrorStatus(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg("Stream action failed")
	}
	_ = ws.WriteError(conn, string(code), response.GetMessage(code))
}
