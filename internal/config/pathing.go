// Package config loads robot and optimizer settings from a JSON or YAML
// file. Every field is optional: nil fields fall back to the defaults of
// plan.DefaultSettings and optimizer.DefaultConfig.
package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/banshee-data/pathing/internal/optimizer"
	"github.com/banshee-data/pathing/internal/plan"
	"github.com/banshee-data/pathing/internal/units"
)

// DefaultConfigPath is the path to the canonical defaults file.
const DefaultConfigPath = "config/pathing.defaults.json"

const maxFileSize = 1 * 1024 * 1024 // 1MB

// PathingConfig is the flat on-disk configuration. Distances are in Units
// (inches when unset); velocities and accelerations are per second and per
// second squared of the same unit.
type PathingConfig struct {
	Units *string `json:"units,omitempty" yaml:"units,omitempty"`

	// Robot params
	MaxVelocity     *float64 `json:"max_velocity,omitempty" yaml:"max_velocity,omitempty"`
	MaxAcceleration *float64 `json:"max_acceleration,omitempty" yaml:"max_acceleration,omitempty"`
	MaxDeceleration *float64 `json:"max_deceleration,omitempty" yaml:"max_deceleration,omitempty"`
	AngularVelocity *float64 `json:"angular_velocity,omitempty" yaml:"angular_velocity,omitempty"` // rad/s
	// AngularVelocityPi is the angular velocity as a multiple of π rad/s.
	AngularVelocityPi *float64 `json:"angular_velocity_pi,omitempty" yaml:"angular_velocity_pi,omitempty"`
	RobotLength       *float64 `json:"robot_length,omitempty" yaml:"robot_length,omitempty"`
	RobotWidth        *float64 `json:"robot_width,omitempty" yaml:"robot_width,omitempty"`
	SafetyMargin      *float64 `json:"safety_margin,omitempty" yaml:"safety_margin,omitempty"`

	// Optimizer params
	Iterations             *int     `json:"iterations,omitempty" yaml:"iterations,omitempty"`
	PopulationSize         *int     `json:"population_size,omitempty" yaml:"population_size,omitempty"`
	MutationRate           *float64 `json:"mutation_rate,omitempty" yaml:"mutation_rate,omitempty"`
	MutationStrength       *float64 `json:"mutation_strength,omitempty" yaml:"mutation_strength,omitempty"`
	EliteCount             *int     `json:"elite_count,omitempty" yaml:"elite_count,omitempty"`
	CollisionPenalty       *float64 `json:"collision_penalty,omitempty" yaml:"collision_penalty,omitempty"`
	LengthPenalty          *float64 `json:"length_penalty,omitempty" yaml:"length_penalty,omitempty"`
	ConvergenceFitness     *float64 `json:"convergence_fitness,omitempty" yaml:"convergence_fitness,omitempty"`
	AddControlPointRate    *float64 `json:"add_control_point_rate,omitempty" yaml:"add_control_point_rate,omitempty"`
	RemoveControlPointRate *float64 `json:"remove_control_point_rate,omitempty" yaml:"remove_control_point_rate,omitempty"`
	StrengthGrowth         *float64 `json:"strength_growth,omitempty" yaml:"strength_growth,omitempty"`
	MaxStrengthFactor      *float64 `json:"max_strength_factor,omitempty" yaml:"max_strength_factor,omitempty"`
	Seed                   *int64   `json:"seed,omitempty" yaml:"seed,omitempty"`

	// Server params
	Listen   *string `json:"listen,omitempty" yaml:"listen,omitempty"`
	GRPC     *string `json:"grpc_listen,omitempty" yaml:"grpc_listen,omitempty"`
	Database *string `json:"database,omitempty" yaml:"database,omitempty"`
}

// EmptyPathingConfig returns a PathingConfig with all fields set to nil.
func EmptyPathingConfig() *PathingConfig {
	return &PathingConfig{}
}

// LoadPathingConfig loads a PathingConfig from a .json, .yaml or .yml file
// of at most 1MB. Omitted fields keep their defaults.
func LoadPathingConfig(path string) (*PathingConfig, error) {
	cleanPath := filepath.Clean(path)
	ext := filepath.Ext(cleanPath)
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyPathingConfig()
	if ext == ".json" {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath from the current directory
// or one of its parents. Panics if the file cannot be loaded, intended for
// test setup.
func MustLoadDefaultConfig() *PathingConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath, // from internal/config/
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadPathingConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks the fields that are set. The projected Settings and
// optimizer Config are validated too, so combinations are caught here.
func (c *PathingConfig) Validate() error {
	if c.Units != nil && !units.IsValid(*c.Units) {
		return fmt.Errorf("units must be one of %s, got %q", units.GetValidUnitsString(), *c.Units)
	}
	if c.AngularVelocity != nil && c.AngularVelocityPi != nil {
		return fmt.Errorf("set only one of angular_velocity and angular_velocity_pi")
	}
	if c.Database != nil && *c.Database == "" {
		return fmt.Errorf("database must not be empty")
	}
	if err := c.Settings().Validate(); err != nil {
		return err
	}
	return c.OptimizerConfig().Validate()
}

// GetUnits returns the units value or inches.
func (c *PathingConfig) GetUnits() string {
	if c.Units == nil {
		return units.Inch
	}
	return *c.Units
}

// GetAngularVelocity returns the angular velocity in rad/s, or 0 to derive
// it from the linear limits.
func (c *PathingConfig) GetAngularVelocity() float64 {
	switch {
	case c.AngularVelocity != nil:
		return *c.AngularVelocity
	case c.AngularVelocityPi != nil:
		return *c.AngularVelocityPi * math.Pi
	default:
		return plan.DefaultSettings().AngularVelocity
	}
}

// GetListen returns the HTTP listen address or the default.
func (c *PathingConfig) GetListen() string {
	if c.Listen == nil {
		return ":8080"
	}
	return *c.Listen
}

// GetGRPCListen returns the gRPC health listen address. Empty disables it.
func (c *PathingConfig) GetGRPCListen() string {
	if c.GRPC == nil {
		return ""
	}
	return *c.GRPC
}

// GetDatabase returns the sqlite path or the default.
func (c *PathingConfig) GetDatabase() string {
	if c.Database == nil {
		return "pathing.db"
	}
	return *c.Database
}

// Settings projects the robot fields onto plan.Settings in inches.
func (c *PathingConfig) Settings() plan.Settings {
	s := plan.DefaultSettings()
	u := c.GetUnits()
	length := func(dst *float64, v *float64) {
		if v != nil {
			*dst = units.ToInches(*v, u)
		}
	}
	length(&s.MaxVelocity, c.MaxVelocity)
	length(&s.MaxAcceleration, c.MaxAcceleration)
	length(&s.MaxDeceleration, c.MaxDeceleration)
	length(&s.RobotLength, c.RobotLength)
	length(&s.RobotWidth, c.RobotWidth)
	length(&s.SafetyMargin, c.SafetyMargin)
	s.AngularVelocity = c.GetAngularVelocity()
	return s
}

// OptimizerConfig projects the optimizer fields onto optimizer.Config.
// MutationStrength is a distance and follows Units.
func (c *PathingConfig) OptimizerConfig() optimizer.Config {
	o := optimizer.DefaultConfig()
	setInt(&o.Iterations, c.Iterations)
	setInt(&o.PopulationSize, c.PopulationSize)
	setInt(&o.EliteCount, c.EliteCount)
	setFloat(&o.MutationRate, c.MutationRate)
	if c.MutationStrength != nil {
		o.MutationStrength = units.ToInches(*c.MutationStrength, c.GetUnits())
	}
	setFloat(&o.CollisionPenalty, c.CollisionPenalty)
	setFloat(&o.LengthPenalty, c.LengthPenalty)
	setFloat(&o.ConvergenceFitness, c.ConvergenceFitness)
	setFloat(&o.AddControlPointRate, c.AddControlPointRate)
	setFloat(&o.RemoveControlPointRate, c.RemoveControlPointRate)
	setFloat(&o.StrengthGrowth, c.StrengthGrowth)
	setFloat(&o.MaxStrengthFactor, c.MaxStrengthFactor)
	if c.Seed != nil {
		o.Seed = *c.Seed
	}
	return o
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}
