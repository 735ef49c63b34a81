package timeline

import (
	"errors"
	"math"
	"sort"

	"github.com/banshee-data/pathing/internal/geometry"
)

// ErrNoGeometry is returned by StateAt for predictions that were decoded
// rather than computed, since they no longer carry segment curves.
var ErrNoGeometry = errors.New("prediction carries no geometry")

// State is the robot pose at an instant of the timeline.
type State struct {
	Time     float64      `json:"time"`
	Position geometry.Vec `json:"position"`
	Heading  float64      `json:"heading"`
	// Velocity is in/s while travelling and rad/s while rotating.
	Velocity   float64 `json:"velocity"`
	EventIndex int     `json:"event_index"`
}

// StateAt returns the pose at time t, clamped to [0, TotalTime]. Playback
// collaborators sample this at their own frame rate.
func (p TimePrediction) StateAt(t float64) (State, error) {
	if len(p.Timeline) == 0 {
		return State{}, nil
	}
	t = math.Max(0, math.Min(t, p.TotalTime))

	i := sort.Search(len(p.Timeline), func(i int) bool {
		return p.Timeline[i].EndTime >= t
	})
	if i == len(p.Timeline) {
		i--
	}
	ev := p.Timeline[i]
	local := t - ev.StartTime
	st := State{Time: t, EventIndex: i, Heading: ev.StartHeading}

	switch {
	case ev.Kind == EventTravel:
		if ev.curve == nil {
			return State{}, ErrNoGeometry
		}
		s := ev.profile.DistanceAt(local)
		u := ev.curve.ParamAtLength(s)
		st.Position = ev.curve.Eval(u)
		st.Velocity = ev.profile.VelocityAt(local)
		if h, ok := ev.mode.HeadingAt(*ev.curve, u); ok {
			st.Heading = h
		}
	case ev.Source == SourceRotate:
		if ev.AtPoint != nil {
			st.Position = *ev.AtPoint
		}
		diff := geometry.AngularDifference(ev.StartHeading, ev.TargetHeading)
		frac := 1.0
		if ev.profile.Distance > 0 {
			frac = ev.profile.DistanceAt(local) / ev.profile.Distance
		}
		st.Heading = geometry.NormalizeAngle(ev.StartHeading + diff*frac)
		st.Velocity = ev.profile.VelocityAt(local)
	default:
		if ev.AtPoint != nil {
			st.Position = *ev.AtPoint
		}
	}
	return st, nil
}
