package http

import (
	"errors"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/friendlychat-server/internal/config"
	"github.com/vovakirdan/friendlychat-server/internal/functions"
	"github.com/vovakirdan/friendlychat-server/internal/imaging"
	"github.com/vovakirdan/friendlychat-server/internal/proto"
	"github.com/vovakirdan/friendlychat-server/internal/store"
)

const (
	// LoadingImageURL stands in for an image until its upload finishes.
	LoadingImageURL = "https://www.google.com/images/spin-32.gif"

	maxListLimit = 100
)

// MessageHandlers provides the chat log endpoints.
type MessageHandlers struct {
	store          store.Store
	objects        Objects
	historyLimit   int
	maxUploadBytes int64
	log            *zerolog.Logger
}

// NewMessageHandlers creates message handlers.
func NewMessageHandlers(st store.Store, objects Objects, cfg *config.Config, logger *zerolog.Logger) *MessageHandlers {
	return &MessageHandlers{
		store:          st,
		objects:        objects,
		historyLimit:   cfg.HistoryLimit,
		maxUploadBytes: cfg.MaxUploadBytes,
		log:            logger,
	}
}

// PostTextRequest is the body of a text message.
type PostTextRequest struct {
	Text string `json:"text" binding:"required"`
}

// ListMessages returns the newest messages, oldest first.
// GET /api/messages?limit=N
func (h *MessageHandlers) ListMessages(c *gin.Context) {
	limit := h.historyLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxListLimit {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "limit must be between 1 and 100"})
			return
		}
		limit = n
	}

	msgs, err := h.store.ListMessages(c.Request.Context(), limit)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list messages")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	out := make([]*proto.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, messageToProto(m))
	}
	c.JSON(http.StatusOK, out)
}

// PostText appends a text message authored by the caller.
// POST /api/messages
func (h *MessageHandlers) PostText(c *gin.Context) {
	var req PostTextRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Text) == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "text is required"})
		return
	}

	author, ok := h.author(c)
	if !ok {
		return
	}

	msg := &store.Message{
		Name:     senderName(author),
		Text:     req.Text,
		PhotoURL: senderPhoto(author),
	}
	if err := h.store.CreateMessage(c.Request.Context(), msg); err != nil {
		h.log.Error().Err(err).Int64("user_id", author.ID).Msg("failed to write message")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusCreated, messageToProto(msg))
}

// PostImage shares an image: a placeholder message is pushed first, the file is
// stored at {userId}/{messageId}/{filename}, then the message points at the object.
// POST /api/messages/image
func (h *MessageHandlers) PostImage(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)

	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{Error: "file too large"})
			return
		}
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "file is required"})
		return
	}

	filename := path.Base(strings.ReplaceAll(header.Filename, "\\", "/"))
	if filename == "." || filename == "/" || filename == ".." {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid file name"})
		return
	}

	file, err := header.Open()
	if err != nil {
		h.log.Error().Err(err).Msg("failed to open upload")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	defer file.Close()

	detected, err := mimetype.DetectReader(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "unreadable file"})
		return
	}
	if !strings.HasPrefix(detected.String(), "image/") {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "You can only share images"})
		return
	}
	if !imaging.CanDecode(detected.String()) {
		c.JSON(http.StatusUnsupportedMediaType, ErrorResponse{Error: "unsupported image format " + detected.String()})
		return
	}
	if path.Ext(filename) == "" {
		filename += detected.Extension()
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		h.log.Error().Err(err).Msg("failed to rewind upload")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	author, ok := h.author(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	msg := &store.Message{
		Name:     senderName(author),
		ImageURL: LoadingImageURL,
		PhotoURL: senderPhoto(author),
	}
	if err := h.store.CreateMessage(ctx, msg); err != nil {
		h.log.Error().Err(err).Int64("user_id", author.ID).Msg("failed to write image message")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	objectName := strconv.FormatInt(author.ID, 10) + "/" + msg.ID + "/" + filename
	attrs, err := h.objects.Put(ctx, objectName, file)
	if err != nil {
		h.log.Error().Err(err).Str("object", objectName).Msg("there was an error uploading a file to storage")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "upload failed"})
		return
	}

	imageURL := "/objects/" + attrs.Name
	_, updated, err := h.store.UpdateMessage(ctx, msg.ID, store.MessagePatch{ImageURL: &imageURL})
	if err != nil {
		h.log.Error().Err(err).Str("message_id", msg.ID).Msg("failed to attach image to message")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().Str("object", attrs.Name).Str("content_type", attrs.ContentType).Msg("image shared")
	c.JSON(http.StatusCreated, messageToProto(updated))
}

func (h *MessageHandlers) author(c *gin.Context) (*store.User, bool) {
	uid, ok := currentUserID(c, h.log)
	if !ok {
		return nil, false
	}
	u, err := h.store.GetUserByID(c.Request.Context(), uid)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unknown user"})
			return nil, false
		}
		h.log.Error().Err(err).Int64("user_id", uid).Msg("failed to load user")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return nil, false
	}
	return u, true
}

func senderName(u *store.User) string {
	if u.DisplayName == "" {
		return "Anonymous"
	}
	return u.DisplayName
}

func senderPhoto(u *store.User) string {
	if u.PhotoURL == "" {
		return functions.PlaceholderPhotoURL
	}
	return u.PhotoURL
}
