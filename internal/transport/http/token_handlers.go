package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/friendlychat-server/internal/store"
)

// TokenHandlers registers push-capable devices.
type TokenHandlers struct {
	tokens store.TokenStore
	log    *zerolog.Logger
}

// NewTokenHandlers creates token handlers.
func NewTokenHandlers(tokens store.TokenStore, logger *zerolog.Logger) *TokenHandlers {
	return &TokenHandlers{tokens: tokens, log: logger}
}

// RegisterTokenRequest carries a device token.
type RegisterTokenRequest struct {
	Token string `json:"token" binding:"required"`
}

// RegisterToken stores the caller's device token. Re-registering moves the token to the caller.
// POST /api/tokens
func (h *TokenHandlers) RegisterToken(c *gin.Context) {
	var req RegisterTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Token) == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "token is required"})
		return
	}

	uid, ok := currentUserID(c, h.log)
	if !ok {
		return
	}

	if err := h.tokens.SaveToken(c.Request.Context(), req.Token, uid); err != nil {
		h.log.Error().Err(err).Int64("user_id", uid).Msg("failed to save device token")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Debug().Int64("user_id", uid).Msg("device token registered")
	c.Status(http.StatusNoContent)
}
