package app

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/friendlychat-server/internal/auth"
	"github.com/vovakirdan/friendlychat-server/internal/classifier"
	"github.com/vovakirdan/friendlychat-server/internal/config"
	"github.com/vovakirdan/friendlychat-server/internal/core"
	"github.com/vovakirdan/friendlychat-server/internal/functions"
	"github.com/vovakirdan/friendlychat-server/internal/imaging"
	"github.com/vovakirdan/friendlychat-server/internal/messaging"
	"github.com/vovakirdan/friendlychat-server/internal/objectstore"
	"github.com/vovakirdan/friendlychat-server/internal/platform"
	"github.com/vovakirdan/friendlychat-server/internal/store"
	"github.com/vovakirdan/friendlychat-server/internal/store/sqlite"
	transporthttp "github.com/vovakirdan/friendlychat-server/internal/transport/http"
)

// Names the event handlers are registered and logged under.
const (
	FunctionBlurOffensiveImages = "blurOffensiveImages"
	FunctionSendNotifications   = "sendNotifications"
	FunctionAddWelcomeMessages  = "addWelcomeMessages"
)

// App wires together storage, event handlers and the transport layer.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	hub             *core.Hub
	triggers        *platform.Dispatcher
	store           store.Store
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	st, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	logger.Info().Str("db_path", cfg.DatabasePath).Msg("database initialized")

	bucket, err := objectstore.New(cfg.Storage.Bucket, cfg.Storage.Root, cfg.Storage.ScratchDir)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("init bucket: %w", err)
	}
	logger.Info().Str("bucket", cfg.Storage.Bucket).Str("root", cfg.Storage.Root).Msg("object storage initialized")

	hub := core.NewHub(logger)
	triggers := platform.NewDispatcher(cfg.Functions.Timeout, cfg.Functions.MaxRetries, logger)
	db := platform.NewDatabase(st, hub, triggers)
	storage := platform.NewStorage(bucket, triggers)

	registerFunctions(cfg, triggers, db, storage, logger)

	authService := auth.NewService(db, &auth.JWTConfig{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      24 * time.Hour,
	})

	server := transporthttp.NewServer(transporthttp.Deps{
		Hub:     hub,
		Auth:    authService,
		Store:   db,
		Objects: storage,
	}, cfg, logger)

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		hub:             hub,
		triggers:        triggers,
		store:           st,
		log:             logger,
	}, nil
}

// registerFunctions attaches the event handlers. Handlers whose external service is
// not configured are left out.
func registerFunctions(cfg *config.Config, triggers *platform.Dispatcher, db *platform.Database, storage *platform.Storage, logger *zerolog.Logger) {
	greeter := functions.NewGreeter(db, logger)
	triggers.OnUserCreated(FunctionAddWelcomeMessages, greeter.Handle)

	if cfg.Vision.APIKey != "" {
		vision := classifier.NewVisionClient(cfg.Vision.Endpoint, cfg.Vision.APIKey, cfg.Vision.Timeout, storage)
		moderator := functions.NewModerator(vision, storage, imaging.NewBlurrer(imaging.DefaultSigma), db, logger)
		triggers.OnObjectChanged(FunctionBlurOffensiveImages, moderator.Handle)
	} else {
		logger.Warn().Msg("vision.api_key not set, image moderation disabled")
	}

	if cfg.FCM.ServerKey != "" {
		fcm := messaging.NewFCMClient(cfg.FCM.Endpoint, cfg.FCM.ServerKey, cfg.FCM.Timeout)
		notifier := functions.NewNotifier(db, fcm, cfg.AuthDomain, logger)
		triggers.OnMessageWrite(FunctionSendNotifications, notifier.Handle)
	} else {
		logger.Warn().Msg("fcm.server_key not set, push notifications disabled")
	}
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go a.hub.Run(hubCtx)

	go func() {
		a.log.Info().Str("addr", a.server.Addr).Msg("http server listening")
		if err := a.server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		a.cleanup(context.Background())
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.cleanup(shutdownCtx)
			return err
		}

		a.cleanup(shutdownCtx)
		return <-serverErr
	}
}

// cleanup drains event handlers, then closes the database.
func (a *App) cleanup(ctx context.Context) {
	if err := a.triggers.Stop(ctx); err != nil {
		a.log.Warn().Err(err).Msg("event handlers still running at shutdown")
	}

	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}
