package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/Mariodrm17/Practica1/internal/config"
	"github.com/Mariodrm17/Practica1/internal/handler"
	"github.com/Mariodrm17/Practica1/internal/hub"
	"github.com/Mariodrm17/Practica1/internal/registry"
	"github.com/Mariodrm17/Practica1/internal/service"
	"github.com/Mariodrm17/Practica1/pkg/jwt"
	pkglog "github.com/Mariodrm17/Practica1/pkg/log"
	"github.com/Mariodrm17/Practica1/pkg/middleware"
)

// NewServeCommand creates the command that runs the HTTP and websocket server.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the storefront API and live chat",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rootOpts.loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			pkglog.Init(cfg.Log)
			return serve(cmd.Context(), cfg)
		},
	}
}

// newRouter wires the REST and websocket handlers. The returned hub must be shut down
// by the caller.
func newRouter(cfg *config.Config, a *app) (*gin.Engine, *hub.Hub, error) {
	tokens, err := jwt.NewManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	if err != nil {
		return nil, nil, err
	}
	authMiddleware := middleware.NewAuthMiddleware(middleware.NewJWTResolver(tokens))

	cartService := service.NewCartService(a.catalog, a.ledger, a.carts)
	chatHub := hub.NewHub(registry.NewRoomRegistry(), a.history, hub.Config{
		HistoryLimit:   cfg.Chat.HistoryLimit,
		AppendAttempts: cfg.Chat.AppendAttempts,
	})

	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(pkglog.GinMiddleware(pkglog.L()))

	handler.NewHandler(cartService, a.history, chatHub, authMiddleware, cfg.Chat.HistoryLimit).RegisterRoutes(r)
	handler.NewWSHandler(chatHub, authMiddleware, cfg.WebSocket).RegisterRoutes(r)

	return r, chatHub, nil
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger := pkglog.L()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close backends")
		}
	}()

	if err := a.seed(ctx); err != nil {
		return fmt.Errorf("seed: %w", err)
	}

	r, chatHub, err := newRouter(cfg, a)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Msg("storefront listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down storefront")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// Websocket connections are hijacked, so Shutdown does not wait for them.
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("server forced to shutdown")
	}
	if err := chatHub.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("chat hub did not drain")
	}

	logger.Info().Msg("storefront stopped")
	return nil
}
