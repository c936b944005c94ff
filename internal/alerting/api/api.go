package api

import (
	"fmt"
	"net/http"
	"strconv"

	adb "github.com/argussight/argus/internal/alerting/database"
	"github.com/argussight/argus/internal/alerting/service/engine"
	"github.com/argussight/argus/internal/alerting/service/ingest"
	"github.com/argussight/argus/internal/alerting/store"
	"github.com/argussight/argus/internal/config"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Api owns the HTTP surface: rule and alert management, silences, observation
// ingest and the Prometheus scrape endpoint.
type Api struct {
	DB     *adb.Database
	Engine *engine.Engine
	Rules  store.RuleStore
}

func NewApi(router *gin.Engine) (*Api, error) { return NewApiWithConfig(router, nil) }

// NewApiWithConfig connects storage, builds the engine and registers every
// route. A nil config yields a degraded instance without persistence, useful
// only in tests.
func NewApiWithConfig(router *gin.Engine, cfg *config.Config) (*Api, error) {
	api := &Api{}
	if cfg == nil {
		registerHealthRoutes(router)
		return api, nil
	}

	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Database.Host, cfg.Database.Port, cfg.Database.User, cfg.Database.Password, cfg.Database.DBName, cfg.Database.SSLMode)
	db, err := adb.New(dsn)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	api.DB = db

	rules := store.NewPgRuleStore(db)
	alerts := store.NewPgAlertStore(db)
	silences := store.NewPgSilenceStore(db)
	api.Engine = engine.New(rules, alerts, silences)
	api.Rules = rules

	RegisterRuleRoutes(router, rules)
	RegisterAlertRoutes(router, alerts, api.Engine)
	RegisterSilenceRoutes(router, silences)

	ingest.ConfigureAuth(cfg.Alerting.Ingest.BasicUser, cfg.Alerting.Ingest.BasicPass, cfg.Alerting.Ingest.Bearer)
	var h *ingest.Handler
	if rdb := ingest.NewRedisClientFromConfig(&cfg.Redis); rdb != nil {
		h = ingest.NewHandlerWithCache(api.Engine, ingest.NewCache(rdb))
	} else {
		h = ingest.NewHandler(api.Engine)
	}
	ingest.RegisterIngestRoutes(router, h)

	router.POST("/v1/retention/sweep", api.sweepRetention(cfg.Alerting.Retention.Days))

	registerHealthRoutes(router)
	log.Info().Msg("alerting API routes registered")
	return api, nil
}

// sweepRetention runs one purge on demand. An optional days query overrides
// the configured retention window.
func (api *Api) sweepRetention(defaultDays int) gin.HandlerFunc {
	return func(c *gin.Context) {
		days := defaultDays
		if v := c.Query("days"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				apiError(c, http.StatusBadRequest, "INVALID_PARAMETER", "days must be a positive integer")
				return
			}
			days = n
		}
		res, err := api.Engine.PurgeOlderThan(c.Request.Context(), days)
		if err != nil {
			apiError(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

func registerHealthRoutes(router *gin.Engine) {
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, map[string]any{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// Close releases the database connection.
func (api *Api) Close() error {
	if api.DB == nil {
		return nil
	}
	return api.DB.Close()
}
