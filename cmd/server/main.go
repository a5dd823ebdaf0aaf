package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/lukyapp/ory-hydra-console/internal/config"
	"github.com/lukyapp/ory-hydra-console/internal/console"
	"github.com/lukyapp/ory-hydra-console/internal/hydra"
	"github.com/lukyapp/ory-hydra-console/internal/kratos"
	"github.com/lukyapp/ory-hydra-console/internal/session"
)

func main() {
	zlog.Logger = zlog.Output(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	cfg, err := config.FromEnv()
	if err != nil {
		zlog.Fatal().Err(err).Msg("configuration is invalid; refusing to start")
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		zlog.Fatal().Err(err).Msg("failed to connect to redis")
	}

	discoveryCtx, cancelDiscovery := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelDiscovery()
	sessions, err := session.New(discoveryCtx, session.Config{
		IssuerURL:    cfg.HydraIssuer,
		ClientID:     cfg.HydraClientID,
		ClientSecret: cfg.HydraClientSecret,
		PublicURL:    cfg.PublicURL,
		Secret:       cfg.SessionSecret,
		Secure:       cfg.Production(),
		IsAdmin:      cfg.IsAdmin,
	}, session.NewRedisStore(rdb))
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to initialise federated login")
	}

	hydraGateway := hydra.NewClient(cfg.HydraAdminURL, nil)
	kratosGateway := kratos.NewClient(cfg.KratosAdminURL, nil)
	handler := console.NewHandler(hydraGateway, kratosGateway)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(console.RequestIDMiddleware())
	e.Use(console.RequestLogger())

	e.GET("/healthz", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	session.RegisterRoutes(e, sessions)

	api := e.Group("/api",
		console.RateLimitMiddleware(console.DefaultRateLimitConfig),
		console.RequireAdmin(sessions, cfg.IsAdmin),
	)
	console.RegisterRoutes(api, handler)

	zlog.Info().Str("addr", cfg.ListenAddr).Msg("console listening")
	if err := e.Start(cfg.ListenAddr); err != nil && err != http.ErrServerClosed {
		zlog.Fatal().Err(err).Msg("server stopped")
	}
}
