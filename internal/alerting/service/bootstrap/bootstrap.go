package bootstrap

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/argussight/argus/internal/alerting/model"
	"github.com/argussight/argus/internal/alerting/store"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// RuleFile is the on-disk seed format. Rules are matched by name: a rule that
// already exists in the store is left untouched, so the file can be applied on
// every startup.
type RuleFile struct {
	Rules []SeedRule `yaml:"rules"`
}

type SeedRule struct {
	Name               string            `yaml:"name"`
	Description        string            `yaml:"description"`
	RuleType           string            `yaml:"rule_type"`
	Status             string            `yaml:"status"`
	Severity           string            `yaml:"severity"`
	Condition          map[string]any    `yaml:"condition"`
	Threshold          float64           `yaml:"threshold"`
	CompareOp          string            `yaml:"comparison_operator"`
	Duration           int               `yaml:"duration"`
	EvaluationInterval int               `yaml:"evaluation_interval"`
	Tags               map[string]string `yaml:"tags"`
	CreatedBy          string            `yaml:"created_by"`
}

// Load parses a seed file.
func Load(path string) (*RuleFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file %s: %w", path, err)
	}
	var f RuleFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse rules file %s: %w", path, err)
	}
	return &f, nil
}

// Apply inserts the seed rules that are not already present. Invalid seed
// entries are logged and skipped; they never block the remaining rules.
// Returns the number of rules created.
func Apply(ctx context.Context, rules store.RuleStore, f *RuleFile) (int, error) {
	created := 0
	for _, seed := range f.Rules {
		rule, err := seed.toRule()
		if err != nil {
			log.Error().Err(err).Str("rule", seed.Name).Msg("skipping invalid seed rule")
			continue
		}
		existing, err := rules.GetByName(ctx, rule.Name)
		if err != nil {
			return created, fmt.Errorf("look up rule %s: %w", rule.Name, err)
		}
		if existing != nil {
			log.Debug().Str("rule", rule.Name).Msg("seed rule already present")
			continue
		}
		if err := rules.Create(ctx, rule); err != nil {
			return created, fmt.Errorf("create rule %s: %w", rule.Name, err)
		}
		created++
		log.Info().Str("rule", rule.Name).Int64("rule_id", rule.ID).Msg("seed rule created")
	}
	return created, nil
}

// SeedFromFile is the startup entry point: load then apply.
func SeedFromFile(ctx context.Context, rules store.RuleStore, path string) (int, error) {
	f, err := Load(path)
	if err != nil {
		return 0, err
	}
	return Apply(ctx, rules, f)
}

func (s SeedRule) toRule() (*model.AlertRule, error) {
	if s.Name == "" {
		return nil, fmt.Errorf("seed rule without a name")
	}
	rt := model.RuleType(s.RuleType)
	switch rt {
	case model.RuleTypeMetric, model.RuleTypeLog, model.RuleTypeTrace, model.RuleTypeCustom:
	default:
		return nil, fmt.Errorf("unknown rule type: %s", s.RuleType)
	}

	rawCond, err := json.Marshal(s.Condition)
	if err != nil {
		return nil, fmt.Errorf("encode condition: %w", err)
	}
	cond, err := model.NewCondition(rt, rawCond)
	if err != nil {
		return nil, err
	}

	if rt == model.RuleTypeMetric && !model.ValidCompareOp(s.CompareOp) {
		return nil, fmt.Errorf("invalid operator: %s", s.CompareOp)
	}

	status := model.RuleStatus(s.Status)
	if status == "" {
		status = model.RuleStatusActive
	}
	severity := model.Severity(s.Severity)
	if severity == "" {
		severity = model.SeverityWarning
	}

	return &model.AlertRule{
		Name:               s.Name,
		Description:        s.Description,
		RuleType:           rt,
		Status:             status,
		Severity:           severity,
		Condition:          cond,
		Threshold:          s.Threshold,
		CompareOp:          s.CompareOp,
		Duration:           s.Duration,
		EvaluationInterval: s.EvaluationInterval,
		Tags:               s.Tags,
		CreatedBy:          s.CreatedBy,
	}, nil
}
