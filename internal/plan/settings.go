package plan

import (
	"errors"
	"fmt"
	"math"

	"github.com/banshee-data/pathing/internal/motion"
)

// ErrInvalidSettings is returned by Settings.Validate.
var ErrInvalidSettings = errors.New("invalid settings")

// Settings are the robot limits and footprint. Linear values are in inches
// and seconds; AngularVelocity is rad/s.
type Settings struct {
	MaxVelocity     float64 `json:"maxVelocity"`
	MaxAcceleration float64 `json:"maxAcceleration"`
	MaxDeceleration float64 `json:"maxDeceleration"`
	// AngularVelocity caps in-place rotation speed. Zero or negative derives
	// it from MaxVelocity at the wheel track (RobotWidth/2).
	AngularVelocity float64 `json:"angularVelocity,omitempty"`
	RobotLength     float64 `json:"robotLength"`
	RobotWidth      float64 `json:"robotWidth"`
	SafetyMargin    float64 `json:"safetyMargin"`
}

// DefaultSettings returns an 18 in square robot with moderate limits.
func DefaultSettings() Settings {
	return Settings{
		MaxVelocity:     40,
		MaxAcceleration: 30,
		MaxDeceleration: 30,
		AngularVelocity: math.Pi,
		RobotLength:     18,
		RobotWidth:      18,
		SafetyMargin:    1,
	}
}

// Validate rejects settings the calculators cannot use. Values are never
// clamped.
func (s Settings) Validate() error {
	positive := []struct {
		name string
		v    float64
	}{
		{"maxVelocity", s.MaxVelocity},
		{"maxAcceleration", s.MaxAcceleration},
		{"maxDeceleration", s.MaxDeceleration},
		{"robotLength", s.RobotLength},
		{"robotWidth", s.RobotWidth},
	}
	for _, f := range positive {
		if !finite(f.v) || f.v <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %v", ErrInvalidSettings, f.name, f.v)
		}
	}
	if !finite(s.SafetyMargin) || s.SafetyMargin < 0 {
		return fmt.Errorf("%w: safetyMargin must be non-negative, got %v", ErrInvalidSettings, s.SafetyMargin)
	}
	if !finite(s.AngularVelocity) {
		return fmt.Errorf("%w: angularVelocity must be finite, got %v", ErrInvalidSettings, s.AngularVelocity)
	}
	return nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// LinearLimits are the travel limits in inches.
func (s Settings) LinearLimits() motion.Limits {
	return motion.Limits{
		MaxVelocity:  s.MaxVelocity,
		Acceleration: s.MaxAcceleration,
		Deceleration: s.MaxDeceleration,
	}
}

// AngularLimits are the in-place rotation limits in radians, derived from
// the linear limits at half the robot width.
func (s Settings) AngularLimits() motion.Limits {
	r := s.RobotWidth / 2
	w := s.AngularVelocity
	if w <= 0 {
		w = s.MaxVelocity / r
	}
	return motion.Limits{
		MaxVelocity:  w,
		Acceleration: s.MaxAcceleration / r,
		Deceleration: s.MaxDeceleration / r,
	}
}

// Footprint returns the collision rectangle size including the safety
// margin on every side.
func (s Settings) Footprint() (length, width float64) {
	return s.RobotLength + 2*s.SafetyMargin, s.RobotWidth + 2*s.SafetyMargin
}
