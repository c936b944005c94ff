package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/argussight/argus/internal/alerting/model"
	"github.com/argussight/argus/internal/alerting/store"
	"github.com/gin-gonic/gin"
)

type SilenceAPI struct {
	Silences store.SilenceStore
}

func RegisterSilenceRoutes(router *gin.Engine, silences store.SilenceStore) {
	api := &SilenceAPI{Silences: silences}
	router.POST("/v1/silences", api.CreateSilence)
	router.GET("/v1/silences", api.ListActiveSilences)
	router.DELETE("/v1/silences/:silenceID", api.DeactivateSilence)
}

type silenceRequest struct {
	AlertID   *int64     `json:"alert_id"`
	RuleID    *int64     `json:"alert_rule_id"`
	Reason    string     `json:"silence_reason"`
	StartedAt *time.Time `json:"started_at"`
	EndsAt    time.Time  `json:"ends_at"`
	CreatedBy string     `json:"created_by"`
}

func (api *SilenceAPI) CreateSilence(c *gin.Context) {
	var req silenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apiError(c, http.StatusBadRequest, "INVALID_PARAMETER", "invalid JSON")
		return
	}
	if req.AlertID == nil && req.RuleID == nil {
		apiError(c, http.StatusBadRequest, "INVALID_PARAMETER", "at least one of alert_id or alert_rule_id is required")
		return
	}
	started := time.Now().UTC()
	if req.StartedAt != nil {
		started = *req.StartedAt
	}
	if !req.EndsAt.After(started) {
		apiError(c, http.StatusBadRequest, "INVALID_PARAMETER", "ends_at must be after started_at")
		return
	}

	silence := &model.AlertSilence{
		AlertID:   req.AlertID,
		RuleID:    req.RuleID,
		Reason:    req.Reason,
		StartedAt: started,
		EndsAt:    req.EndsAt,
		IsActive:  true,
		CreatedBy: req.CreatedBy,
	}
	if err := api.Silences.Create(c.Request.Context(), silence); err != nil {
		apiError(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	c.JSON(http.StatusCreated, silence)
}

func (api *SilenceAPI) ListActiveSilences(c *gin.Context) {
	silences, err := api.Silences.ListActive(c.Request.Context(), nil, nil, time.Now().UTC())
	if err != nil {
		apiError(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	if silences == nil {
		silences = []*model.AlertSilence{}
	}
	c.JSON(http.StatusOK, map[string]any{"items": silences})
}

func (api *SilenceAPI) DeactivateSilence(c *gin.Context) {
	id, ok := pathID(c, "silenceID")
	if !ok {
		return
	}
	silence, err := api.Silences.Deactivate(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			apiError(c, http.StatusNotFound, "NOT_FOUND", "silence not found")
			return
		}
		apiError(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	c.JSON(http.StatusOK, silence)
}
