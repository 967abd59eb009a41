package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/friendlychat-server/internal/objectstore"
)

// ObjectHandlers serves bucket objects.
type ObjectHandlers struct {
	objects Objects
	log     *zerolog.Logger
}

// NewObjectHandlers creates object handlers.
func NewObjectHandlers(objects Objects, logger *zerolog.Logger) *ObjectHandlers {
	return &ObjectHandlers{objects: objects, log: logger}
}

// ServeObject streams the object bytes.
// GET /objects/*path
func (h *ObjectHandlers) ServeObject(c *gin.Context) {
	name := strings.TrimPrefix(c.Param("path"), "/")
	ctx := c.Request.Context()

	attrs, err := h.objects.Stat(ctx, name)
	if err != nil {
		if errors.Is(err, objectstore.ErrNotFound) || errors.Is(err, objectstore.ErrInvalidPath) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "object not found"})
			return
		}
		h.log.Error().Err(err).Str("object", name).Msg("failed to stat object")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	f, err := h.objects.Open(ctx, attrs.Name)
	if err != nil {
		h.log.Error().Err(err).Str("object", name).Msg("failed to open object")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	defer f.Close()

	c.DataFromReader(http.StatusOK, attrs.Size, attrs.ContentType, f, nil)
}
