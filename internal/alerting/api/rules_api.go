package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/argussight/argus/internal/alerting/model"
	"github.com/argussight/argus/internal/alerting/store"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type RuleAPI struct {
	Rules store.RuleStore
}

func RegisterRuleRoutes(router *gin.Engine, rules store.RuleStore) {
	api := &RuleAPI{Rules: rules}
	router.POST("/v1/alertrules", api.CreateRule)
	router.GET("/v1/alertrules", api.ListRules)
	router.GET("/v1/alertrules/:ruleID", api.GetRule)
	router.PUT("/v1/alertrules/:ruleID", api.UpdateRule)
	router.DELETE("/v1/alertrules/:ruleID", api.DeleteRule)
}

func apiError(c *gin.Context, status int, code, message string) {
	c.JSON(status, map[string]any{"error": map[string]any{"code": code, "message": message}})
}

type ruleRequest struct {
	Name               string            `json:"name"`
	Description        string            `json:"description"`
	RuleType           model.RuleType    `json:"rule_type"`
	Status             model.RuleStatus  `json:"status"`
	Severity           model.Severity    `json:"severity"`
	Condition          json.RawMessage   `json:"condition"`
	Threshold          float64           `json:"threshold"`
	CompareOp          string            `json:"comparison_operator"`
	Duration           int               `json:"duration"`
	EvaluationInterval int               `json:"evaluation_interval"`
	Tags               map[string]string `json:"tags"`
	CIID               *int64            `json:"ci_id"`
	CreatedBy          string            `json:"created_by"`
}

func (r *ruleRequest) toRule() (*model.AlertRule, error) {
	if strings.TrimSpace(r.Name) == "" {
		return nil, errors.New("name is required")
	}
	switch r.RuleType {
	case model.RuleTypeMetric, model.RuleTypeLog, model.RuleTypeTrace, model.RuleTypeCustom:
	default:
		return nil, errors.New("rule_type must be metric, log, trace or custom")
	}
	if r.RuleType == model.RuleTypeMetric && !model.ValidCompareOp(r.CompareOp) {
		return nil, errors.New("comparison_operator must be one of " + strings.Join(model.CompareOps, " "))
	}
	cond, err := model.NewCondition(r.RuleType, r.Condition)
	if err != nil {
		return nil, err
	}
	status := r.Status
	if status == "" {
		status = model.RuleStatusActive
	}
	severity := r.Severity
	if severity == "" {
		severity = model.SeverityWarning
	}
	return &model.AlertRule{
		Name:               r.Name,
		Description:        r.Description,
		RuleType:           r.RuleType,
		Status:             status,
		Severity:           severity,
		Condition:          cond,
		Threshold:          r.Threshold,
		CompareOp:          r.CompareOp,
		Duration:           r.Duration,
		EvaluationInterval: r.EvaluationInterval,
		Tags:               r.Tags,
		CIID:               r.CIID,
		CreatedBy:          r.CreatedBy,
	}, nil
}

func (api *RuleAPI) CreateRule(c *gin.Context) {
	var req ruleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apiError(c, http.StatusBadRequest, "INVALID_PARAMETER", "invalid JSON")
		return
	}
	rule, err := req.toRule()
	if err != nil {
		apiError(c, http.StatusBadRequest, "INVALID_PARAMETER", err.Error())
		return
	}
	if existing, err := api.Rules.GetByName(c.Request.Context(), rule.Name); err != nil {
		apiError(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	} else if existing != nil {
		apiError(c, http.StatusConflict, "ALREADY_EXISTS", "a rule with this name already exists")
		return
	}
	if err := api.Rules.Create(c.Request.Context(), rule); err != nil {
		log.Error().Err(err).Str("rule", rule.Name).Msg("failed to create alert rule")
		apiError(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	c.JSON(http.StatusCreated, rule)
}

func (api *RuleAPI) GetRule(c *gin.Context) {
	id, ok := pathID(c, "ruleID")
	if !ok {
		return
	}
	rule, err := api.Rules.Get(c.Request.Context(), id)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	if rule == nil {
		apiError(c, http.StatusNotFound, "NOT_FOUND", "rule not found")
		return
	}
	c.JSON(http.StatusOK, rule)
}

func (api *RuleAPI) ListRules(c *gin.Context) {
	filter := store.RuleFilter{}
	if v := strings.TrimSpace(c.Query("rule_type")); v != "" {
		rt := model.RuleType(v)
		filter.RuleType = &rt
	}
	if v := strings.TrimSpace(c.Query("status")); v != "" {
		st := model.RuleStatus(v)
		filter.Status = &st
	}
	if v := strings.TrimSpace(c.Query("severity")); v != "" {
		sev := model.Severity(v)
		filter.Severity = &sev
	}
	if !parsePage(c, &filter.Offset, &filter.Limit) {
		return
	}

	rules, err := api.Rules.List(c.Request.Context(), filter)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	total, err := api.Rules.Count(c.Request.Context(), filter)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	if rules == nil {
		rules = []*model.AlertRule{}
	}
	c.JSON(http.StatusOK, map[string]any{"items": rules, "total": total})
}

func (api *RuleAPI) UpdateRule(c *gin.Context) {
	id, ok := pathID(c, "ruleID")
	if !ok {
		return
	}
	existing, err := api.Rules.Get(c.Request.Context(), id)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	if existing == nil {
		apiError(c, http.StatusNotFound, "NOT_FOUND", "rule not found")
		return
	}

	var req ruleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apiError(c, http.StatusBadRequest, "INVALID_PARAMETER", "invalid JSON")
		return
	}
	rule, err := req.toRule()
	if err != nil {
		apiError(c, http.StatusBadRequest, "INVALID_PARAMETER", err.Error())
		return
	}
	rule.ID = id
	rule.CreatedAt = existing.CreatedAt
	if err := api.Rules.Update(c.Request.Context(), rule); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			apiError(c, http.StatusNotFound, "NOT_FOUND", "rule not found")
			return
		}
		apiError(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	c.JSON(http.StatusOK, rule)
}

func (api *RuleAPI) DeleteRule(c *gin.Context) {
	id, ok := pathID(c, "ruleID")
	if !ok {
		return
	}
	if err := api.Rules.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			apiError(c, http.StatusNotFound, "NOT_FOUND", "rule not found")
			return
		}
		apiError(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	c.Status(http.StatusNoContent)
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id < 1 {
		apiError(c, http.StatusBadRequest, "INVALID_PARAMETER", name+" must be a positive integer")
		return 0, false
	}
	return id, true
}

func parsePage(c *gin.Context, offset, limit *int) bool {
	if v := strings.TrimSpace(c.Query("offset")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			apiError(c, http.StatusBadRequest, "INVALID_PARAMETER", "offset must be a non-negative integer")
			return false
		}
		*offset = n
	}
	if v := strings.TrimSpace(c.Query("limit")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > store.DefaultListLimit {
			apiError(c, http.StatusBadRequest, "INVALID_PARAMETER", "limit must be 1-"+strconv.Itoa(store.DefaultListLimit))
			return false
		}
		*limit = n
	}
	return true
}
