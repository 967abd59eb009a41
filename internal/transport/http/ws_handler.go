package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/friendlychat-server/internal/auth"
	"github.com/vovakirdan/friendlychat-server/internal/core"
	"github.com/vovakirdan/friendlychat-server/internal/proto"
	"github.com/vovakirdan/friendlychat-server/internal/store"
	"github.com/vovakirdan/friendlychat-server/internal/utils"
)

// maxInboundPerMinute bounds client frames on one subscription.
const maxInboundPerMinute = 60

// WSHandler upgrades HTTP connections into message subscriptions.
type WSHandler struct {
	hub          Subscriptions
	auth         *auth.Service
	messages     store.MessageStore
	historyLimit int
	log          *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(hub Subscriptions, authService *auth.Service, messages store.MessageStore, historyLimit int, logger *zerolog.Logger) *WSHandler {
	return &WSHandler{
		hub:          hub,
		auth:         authService,
		messages:     messages,
		historyLimit: historyLimit,
		log:          logger,
	}
}

// Serve authenticates the caller from ?token= (or a bearer header), replays the
// newest messages as child_added and then streams live changes.
// GET /ws
func (h *WSHandler) Serve(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		token, _ = strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
	}
	claims, err := h.auth.ValidateToken(token)
	if err != nil {
		h.log.Debug().Err(err).Msg("ws rejected: invalid token")
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid token"})
		return
	}

	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// Subscribe before reading history so nothing written in between is lost.
	client := core.NewClient(utils.NewID(), claims.UserID)
	h.hub.RegisterClient(client)
	defer h.hub.UnregisterClient(client)

	logger := h.log.With().Str("client_id", client.ID).Int64("user_id", claims.UserID).Logger()
	logger.Debug().Msg("subscriber connected")

	if err := h.replay(ctx, conn); err != nil {
		logger.Warn().Err(err).Msg("history replay failed")
		conn.Close(websocket.StatusInternalError, "history unavailable")
		return
	}

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, newRateLimiter(maxInboundPerMinute, time.Minute))
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, client)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, io.EOF) {
		if s := websocket.CloseStatus(err); s == websocket.StatusNormalClosure || s == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			status = websocket.StatusInternalError
			reason = "connection error"
			logger.Warn().Err(err).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

func (h *WSHandler) replay(ctx context.Context, conn *websocket.Conn) error {
	history, err := h.messages.ListMessages(ctx, h.historyLimit)
	if err != nil {
		return err
	}
	for _, m := range history {
		if err := wsjson.Write(ctx, conn, outboundFromEvent(&core.Event{Kind: core.EventChildAdded, Message: *m})); err != nil {
			return err
		}
	}
	return nil
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, limiter *rateLimiter) error {
	for {
		var inbound proto.Inbound
		if err := wsjson.Read(ctx, conn, &inbound); err != nil {
			return err
		}

		reply := inboundReply(inbound)
		if !limiter.allow() {
			reply = proto.Outbound{
				Type:  proto.OutboundTypeError,
				Error: &proto.Error{Code: "rate_limited", Msg: "too many messages"},
			}
		}
		if err := wsjson.Write(ctx, conn, reply); err != nil {
			return err
		}
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *core.Client) error {
	for {
		select {
		case event, ok := <-client.Events:
			if !ok {
				return nil
			}
			if err := wsjson.Write(ctx, conn, outboundFromEvent(event)); err != nil {
				h.log.Error().Err(err).Str("client_id", client.ID).Msg("write ws event")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
