package http

import (
	"context"
	"io"
	stdhttp "net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/friendlychat-server/internal/auth"
	"github.com/vovakirdan/friendlychat-server/internal/config"
	"github.com/vovakirdan/friendlychat-server/internal/core"
	"github.com/vovakirdan/friendlychat-server/internal/objectstore"
	"github.com/vovakirdan/friendlychat-server/internal/store"
)

// Objects is the bucket surface the API needs.
type Objects interface {
	Put(ctx context.Context, name string, r io.Reader) (objectstore.Attrs, error)
	Stat(ctx context.Context, name string) (objectstore.Attrs, error)
	Open(ctx context.Context, name string) (*os.File, error)
}

// Subscriptions registers realtime listeners.
type Subscriptions interface {
	RegisterClient(c *core.Client)
	UnregisterClient(c *core.Client)
}

// Deps are the collaborators behind the HTTP surface.
type Deps struct {
	Hub     Subscriptions
	Auth    *auth.Service
	Store   store.Store
	Objects Objects
}

// NewServer builds the HTTP server with the REST API, object downloads and the /ws subscription.
func NewServer(deps Deps, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))

	router.GET("/health", healthHandler)

	apiHandlers := NewAPIHandlers(deps.Auth, logger)
	messageHandlers := NewMessageHandlers(deps.Store, deps.Objects, cfg, logger)
	tokenHandlers := NewTokenHandlers(deps.Store, logger)
	objectHandlers := NewObjectHandlers(deps.Objects, logger)
	wsHandler := NewWSHandler(deps.Hub, deps.Auth, deps.Store, cfg.HistoryLimit, logger)

	api := router.Group("/api")
	api.POST("/register", apiHandlers.Register)
	api.POST("/login", apiHandlers.Login)
	api.POST("/guest", apiHandlers.GuestLogin)

	authed := api.Group("")
	authed.Use(AuthMiddleware(deps.Auth, logger))
	authed.GET("/messages", messageHandlers.ListMessages)
	authed.POST("/messages", messageHandlers.PostText)
	authed.POST("/messages/image", messageHandlers.PostImage)
	authed.POST("/tokens", tokenHandlers.RegisterToken)

	router.GET("/objects/*path", objectHandlers.ServeObject)
	router.GET("/ws", wsHandler.Serve)

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
