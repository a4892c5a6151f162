package services

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/FernandoPintoL/plataforma-educativa-sub011/internal/platform/envutil"
	"github.com/FernandoPintoL/plataforma-educativa-sub011/internal/platform/logger"
)

// RiskWeights are the behavioral indicator weights of the risk scorer. They
// should sum to roughly 1; the logistic squash tolerates small drift.
type RiskWeights struct {
	ExcessTime         float64 `yaml:"excess_time"`
	LowProgress        float64 `yaml:"low_progress"`
	DecliningVelocity  float64 `yaml:"declining_velocity"`
	CorrectionLoops    float64 `yaml:"correction_loops"`
	ResourceDependency float64 `yaml:"resource_dependency"`
	RepeatedErrors     float64 `yaml:"repeated_errors"`
}

// RiskThresholds are the upper bounds of each category: score < Bajo is bajo,
// < Medio is medio, < Alto is alto, anything else critico. Bounds must be
// strictly increasing so categories never overlap.
type RiskThresholds struct {
	Bajo  float64 `yaml:"bajo"`
	Medio float64 `yaml:"medio"`
	Alto  float64 `yaml:"alto"`
}

func (t RiskThresholds) Valid() bool {
	return t.Bajo > 0 && t.Bajo < t.Medio && t.Medio < t.Alto && t.Alto < 1
}

// LevelFor maps a score in [0,1] to its category. Monotone by construction.
func (t RiskThresholds) LevelFor(score float64) string {
	switch {
	case score < t.Bajo:
		return "bajo"
	case score < t.Medio:
		return "medio"
	case score < t.Alto:
		return "alto"
	default:
		return "critico"
	}
}

type EngineConfig struct {
	Weights    RiskWeights    `yaml:"weights"`
	Thresholds RiskThresholds `yaml:"thresholds"`

	// BlendWeight is the share of the behavioral score when an external model
	// score is available; the model contributes 1-BlendWeight.
	BlendWeight float64 `yaml:"blend_weight"`

	// Cooldown between alerts of the same type for the same attempt.
	Cooldown time.Duration `yaml:"cooldown"`

	// RecomputeInterval drives the periodic sweep that rescores idle attempts.
	RecomputeInterval time.Duration `yaml:"recompute_interval"`

	// AbandonAfter is how long an in-progress attempt may sit without events
	// before the sweep synthesizes an abandon event.
	AbandonAfter time.Duration `yaml:"abandon_after"`

	// VelocityAlpha is the smoothing factor of the actions/minute EMA.
	VelocityAlpha float64 `yaml:"velocity_alpha"`

	// Hint gating: risk scores above HintThreshold trigger scaffolding hints,
	// above EncouragementThreshold motivational ones.
	HintThreshold          float64 `yaml:"hint_threshold"`
	EncouragementThreshold float64 `yaml:"encouragement_threshold"`

	// Effectiveness backfill windows.
	EffectivenessDelay   time.Duration `yaml:"effectiveness_delay"`
	EffectivenessMaxWait time.Duration `yaml:"effectiveness_max_wait"`
}

func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Weights: RiskWeights{
			ExcessTime:         0.35,
			LowProgress:        0.25,
			DecliningVelocity:  0.15,
			CorrectionLoops:    0.10,
			ResourceDependency: 0.05,
			RepeatedErrors:     0.10,
		},
		Thresholds:             RiskThresholds{Bajo: 0.3, Medio: 0.6, Alto: 0.85},
		BlendWeight:            0.5,
		Cooldown:               15 * time.Minute,
		RecomputeInterval:      60 * time.Second,
		AbandonAfter:           45 * time.Minute,
		VelocityAlpha:          0.3,
		HintThreshold:          0.7,
		EncouragementThreshold: 0.5,
		EffectivenessDelay:     30 * time.Minute,
		EffectivenessMaxWait:   48 * time.Hour,
	}
}

// LoadEngineConfig layers an optional YAML file (RISK_CONFIG_PATH) and env
// overrides on top of the defaults. Invalid thresholds fall back to defaults
// rather than aborting startup.
func LoadEngineConfig(log *logger.Logger) EngineConfig {
	cfg := DefaultEngineConfig()

	if path := envutil.String("RISK_CONFIG_PATH", ""); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			log.Warn("risk config file unreadable, using defaults", "path", path, "error", err)
		} else if err := yaml.Unmarshal(raw, &cfg); err != nil {
			log.Warn("risk config file malformed, using defaults", "path", path, "error", err)
			cfg = DefaultEngineConfig()
		}
	}

	cfg.BlendWeight = envutil.Float("RISK_BLEND_WEIGHT", cfg.BlendWeight)
	cfg.Cooldown = envutil.Duration("ALERT_COOLDOWN", cfg.Cooldown)
	cfg.RecomputeInterval = envutil.Duration("RISK_RECOMPUTE_INTERVAL", cfg.RecomputeInterval)
	cfg.AbandonAfter = envutil.Duration("ATTEMPT_ABANDON_AFTER", cfg.AbandonAfter)

	if !cfg.Thresholds.Valid() {
		log.Warn("risk thresholds overlap or are out of range, using defaults",
			"thresholds", fmt.Sprintf("%+v", cfg.Thresholds))
		cfg.Thresholds = DefaultEngineConfig().Thresholds
	}
	if cfg.BlendWeight < 0 || cfg.BlendWeight > 1 {
		cfg.BlendWeight = DefaultEngineConfig().BlendWeight
	}
	return cfg
}
