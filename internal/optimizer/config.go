package optimizer

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidConfig is returned by Config.Validate.
var ErrInvalidConfig = errors.New("invalid optimizer config")

// Config tunes the genetic search. Distances are inches.
type Config struct {
	// Iterations is the number of generations bred after the initial one.
	Iterations     int `json:"iterations"`
	PopulationSize int `json:"population_size"`
	// MutationRate is the per control point probability of a nudge.
	MutationRate float64 `json:"mutation_rate"`
	// MutationStrength is the largest nudge at the base schedule.
	MutationStrength float64 `json:"mutation_strength"`
	EliteCount       int     `json:"elite_count"`

	CollisionPenalty float64 `json:"collision_penalty"`
	LengthPenalty    float64 `json:"length_penalty"`
	// ConvergenceFitness stops the run once a collision-free candidate is at
	// or below it. Zero disables early stopping.
	ConvergenceFitness float64 `json:"convergence_fitness"`

	AddControlPointRate    float64 `json:"add_control_point_rate"`
	RemoveControlPointRate float64 `json:"remove_control_point_rate"`

	// StrengthGrowth multiplies the mutation strength after every generation
	// whose best candidate still collides, up to MaxStrengthFactor times the
	// base strength. A clean best resets it.
	StrengthGrowth    float64 `json:"strength_growth"`
	MaxStrengthFactor float64 `json:"max_strength_factor"`

	// Seed fixes the random source. Zero seeds from the clock.
	Seed int64 `json:"seed,omitempty"`
}

// DefaultConfig returns settings that clear simple obstacles in well under
// a second for paths of a handful of segments.
func DefaultConfig() Config {
	return Config{
		Iterations:             100,
		PopulationSize:         30,
		MutationRate:           0.3,
		MutationStrength:       6,
		EliteCount:             4,
		CollisionPenalty:       1000,
		LengthPenalty:          100,
		AddControlPointRate:    0.05,
		RemoveControlPointRate: 0.03,
		StrengthGrowth:         1.1,
		MaxStrengthFactor:      4,
	}
}

// Validate fails fast on unusable values.
func (c Config) Validate() error {
	bad := func(format string, args ...any) error {
		return fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...)
	}
	switch {
	case c.Iterations < 0:
		return bad("iterations must be non-negative, got %d", c.Iterations)
	case c.PopulationSize < 2:
		return bad("population_size must be at least 2, got %d", c.PopulationSize)
	case c.EliteCount < 1 || c.EliteCount >= c.PopulationSize:
		return bad("elite_count must be in [1, %d), got %d", c.PopulationSize, c.EliteCount)
	case !probability(c.MutationRate):
		return bad("mutation_rate must be in [0, 1], got %v", c.MutationRate)
	case !probability(c.AddControlPointRate):
		return bad("add_control_point_rate must be in [0, 1], got %v", c.AddControlPointRate)
	case !probability(c.RemoveControlPointRate):
		return bad("remove_control_point_rate must be in [0, 1], got %v", c.RemoveControlPointRate)
	case !finite(c.MutationStrength) || c.MutationStrength <= 0:
		return bad("mutation_strength must be positive, got %v", c.MutationStrength)
	case !finite(c.CollisionPenalty) || c.CollisionPenalty < 0:
		return bad("collision_penalty must be non-negative, got %v", c.CollisionPenalty)
	case !finite(c.LengthPenalty) || c.LengthPenalty < 0:
		return bad("length_penalty must be non-negative, got %v", c.LengthPenalty)
	case !finite(c.ConvergenceFitness) || c.ConvergenceFitness < 0:
		return bad("convergence_fitness must be non-negative, got %v", c.ConvergenceFitness)
	case !finite(c.StrengthGrowth) || c.StrengthGrowth < 1:
		return bad("strength_growth must be at least 1, got %v", c.StrengthGrowth)
	case !finite(c.MaxStrengthFactor) || c.MaxStrengthFactor < 1:
		return bad("max_strength_factor must be at least 1, got %v", c.MaxStrengthFactor)
	}
	return nil
}

func probability(p float64) bool { return p >= 0 && p <= 1 }

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
