package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/argussight/argus/internal/alerting/model"
	"github.com/argussight/argus/internal/alerting/service/engine"
	"github.com/argussight/argus/internal/alerting/store"
	"github.com/gin-gonic/gin"
)

type AlertAPI struct {
	Alerts store.AlertStore
	Engine *engine.Engine
}

func RegisterAlertRoutes(router *gin.Engine, alerts store.AlertStore, eng *engine.Engine) {
	api := &AlertAPI{Alerts: alerts, Engine: eng}
	router.GET("/v1/alerts", api.ListAlerts)
	router.GET("/v1/alerts/:alertID", api.GetAlert)
	router.POST("/v1/alerts/:alertID/acknowledge", api.AcknowledgeAlert)
	router.POST("/v1/alerts/:alertID/resolve", api.ResolveAlert)
}

func (api *AlertAPI) ListAlerts(c *gin.Context) {
	filter := store.AlertFilter{}
	if v := strings.TrimSpace(c.Query("status")); v != "" {
		st := model.AlertStatus(v)
		filter.Status = &st
	}
	if v := strings.TrimSpace(c.Query("severity")); v != "" {
		sev := model.Severity(v)
		filter.Severity = &sev
	}
	if v := strings.TrimSpace(c.Query("rule_id")); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			apiError(c, http.StatusBadRequest, "INVALID_PARAMETER", "rule_id must be an integer")
			return
		}
		filter.RuleID = &id
	}
	if v := strings.TrimSpace(c.Query("since")); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			apiError(c, http.StatusBadRequest, "INVALID_PARAMETER", "since must be ISO 8601 time")
			return
		}
		filter.Since = &t
	}
	if !parsePage(c, &filter.Offset, &filter.Limit) {
		return
	}

	alerts, err := api.Alerts.List(c.Request.Context(), filter)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	total, err := api.Alerts.Count(c.Request.Context(), filter)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	if alerts == nil {
		alerts = []*model.Alert{}
	}
	c.JSON(http.StatusOK, map[string]any{"items": alerts, "total": total})
}

func (api *AlertAPI) GetAlert(c *gin.Context) {
	id, ok := pathID(c, "alertID")
	if !ok {
		return
	}
	alert, err := api.Alerts.Get(c.Request.Context(), id)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	if alert == nil {
		apiError(c, http.StatusNotFound, "NOT_FOUND", "alert not found")
		return
	}
	c.JSON(http.StatusOK, alert)
}

type actorRequest struct {
	By string `json:"by"`
}

func (api *AlertAPI) AcknowledgeAlert(c *gin.Context) {
	id, ok := pathID(c, "alertID")
	if !ok {
		return
	}
	var req actorRequest
	_ = c.ShouldBindJSON(&req)

	alert, err := api.Engine.AcknowledgeAlert(c.Request.Context(), id, req.By)
	if err != nil {
		if errors.Is(err, engine.ErrNotAcknowledgeable) {
			apiError(c, http.StatusConflict, "INVALID_STATE", err.Error())
			return
		}
		apiError(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	if alert == nil {
		apiError(c, http.StatusNotFound, "NOT_FOUND", "alert not found")
		return
	}
	c.JSON(http.StatusOK, alert)
}

func (api *AlertAPI) ResolveAlert(c *gin.Context) {
	id, ok := pathID(c, "alertID")
	if !ok {
		return
	}
	var req actorRequest
	_ = c.ShouldBindJSON(&req)

	alert, err := api.Engine.ResolveAlert(c.Request.Context(), id, req.By)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	if alert == nil {
		apiError(c, http.StatusNotFound, "NOT_FOUND", "alert not found")
		return
	}
	c.JSON(http.StatusOK, alert)
}
