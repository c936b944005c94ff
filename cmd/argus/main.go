package main

import (
	"context"
	"strings"
	"time"

	alertapi "github.com/argussight/argus/internal/alerting/api"
	"github.com/argussight/argus/internal/alerting/service/bootstrap"
	"github.com/argussight/argus/internal/alerting/service/engine"
	"github.com/argussight/argus/internal/config"
	"github.com/argussight/argus/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	log.Info().Msg("Starting argus api server")
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// configure log level from config
	switch strings.ToLower(cfg.Logging.Level) {
	case "trace":
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn", "warning":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.Authentication)

	api, err := alertapi.NewApiWithConfig(router, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize alerting api")
	}
	defer api.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// seed alert rules from config if provided
	if path := cfg.Alerting.Bootstrap.RulesFile; path != "" {
		if created, err := bootstrap.SeedFromFile(ctx, api.Rules, path); err != nil {
			log.Error().Err(err).Str("file", path).Msg("seed rules from config failed")
		} else {
			log.Info().Int("created", created).Str("file", path).Msg("seed rules applied")
		}
	}

	go api.Engine.StartRetentionScheduler(ctx, engine.RetentionDeps{
		Interval:      parseDuration(cfg.Alerting.Retention.Interval, 24*time.Hour),
		RetentionDays: cfg.Alerting.Retention.Days,
	})

	log.Info().Msgf("Starting server on %s", cfg.Server.BindAddr)
	if err := router.Run(cfg.Server.BindAddr); err != nil {
		log.Fatal().Err(err).Msg("start argus api server failed.")
	}
	log.Info().Msg("argus api server exit...")
}

func parseDuration(s string, d time.Duration) time.Duration {
	if s == "" {
		return d
	}
	if v, err := time.ParseDuration(s); err == nil {
		return v
	}
	return d
}
