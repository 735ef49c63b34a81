// Package timeline turns a path sequence into a time-accurate list of
// travel and wait events.
package timeline

import (
	"fmt"
	"math"

	"github.com/banshee-data/pathing/internal/geometry"
	"github.com/banshee-data/pathing/internal/motion"
	"github.com/banshee-data/pathing/internal/plan"
	"github.com/banshee-data/pathing/internal/units"
)

// minRotateDuration drops rotations too small to be worth an event.
const minRotateDuration = 1e-6

// EventKind separates moving from stationary events.
type EventKind string

const (
	EventTravel EventKind = "travel"
	EventWait   EventKind = "wait"
)

// Source records what produced an event.
type Source string

const (
	SourcePath       Source = "path"
	SourceWait       Source = "wait"
	SourceRotate     Source = "rotate"
	SourceServo      Source = "servo"
	SourceWaitBefore Source = "wait-before"
	SourceWaitAfter  Source = "wait-after"
)

// Event is one contiguous slice of the timeline.
type Event struct {
	Kind      EventKind `json:"kind"`
	Source    Source    `json:"source"`
	StartTime float64   `json:"start_time"`
	EndTime   float64   `json:"end_time"`
	Duration  float64   `json:"duration"`

	// LineID and SegmentIndex (storage index) are set for travel events and
	// for waits attached to a line. SegmentIndex is -1 otherwise.
	LineID       string `json:"line_id,omitempty"`
	SegmentIndex int    `json:"segment_index"`
	ItemID       string `json:"item_id,omitempty"`
	Name         string `json:"name,omitempty"`

	// Distance is inches for travel and radians for rotations.
	Distance float64 `json:"distance,omitempty"`
	// Velocities samples the motion profile every motion.SampleInterval.
	Velocities []float64 `json:"velocities,omitempty"`

	StartHeading  float64       `json:"start_heading"`
	TargetHeading float64       `json:"target_heading"`
	AtPoint       *geometry.Vec `json:"at_point,omitempty"`

	profile motion.Profile
	curve   *geometry.Curve
	mode    plan.Point
}

// MarkerTime is an event marker resolved onto the timeline.
type MarkerTime struct {
	Name     string  `json:"name"`
	LineID   string  `json:"line_id"`
	Position float64 `json:"position"`
	Time     float64 `json:"time"`
}

// TimePrediction is the output of ComputeTimePrediction.
type TimePrediction struct {
	TotalTime     float64 `json:"total_time"`
	TotalDistance float64 `json:"total_distance"`
	// SegmentTimes is indexed by line storage index. Lines the sequence
	// never travels report zero.
	SegmentTimes []float64    `json:"segment_times"`
	Timeline     []Event      `json:"timeline"`
	Markers      []MarkerTime `json:"markers,omitempty"`
}

type builder struct {
	lin, ang motion.Limits

	now     float64
	pos     geometry.Vec
	heading float64
	pred    TimePrediction
}

// ComputeTimePrediction simulates the sequence from start and returns every
// event with its timing. Each event starts where the previous one ended and
// the last one ends at TotalTime.
func ComputeTimePrediction(start plan.Point, lines []plan.Line, settings plan.Settings, seq plan.Sequence) (TimePrediction, error) {
	if err := settings.Validate(); err != nil {
		return TimePrediction{}, err
	}
	seq = seq.Effective(lines)
	chain, err := ResolveChain(start, lines, seq)
	if err != nil {
		return TimePrediction{}, err
	}

	b := &builder{
		lin:     settings.LinearLimits(),
		ang:     settings.AngularLimits(),
		pos:     start.Vec(),
		heading: InitialHeading(start, chain),
		pred:    TimePrediction{SegmentTimes: make([]float64, len(lines))},
	}

	next := 0
	for i, item := range seq {
		switch it := item.(type) {
		case plan.PathItem:
			if err := b.travel(chain[next]); err != nil {
				return TimePrediction{}, fmt.Errorf("segment %q: %w", it.LineID, err)
			}
			next++
		case plan.WaitItem:
			b.wait(SourceWait, it.ID, it.Name, it.DurationMs, "", -1)
		case plan.ServoItem:
			b.wait(SourceServo, it.ID, it.Port, it.DurationMs, "", -1)
		case plan.RotateItem:
			if err := b.rotate(it); err != nil {
				return TimePrediction{}, fmt.Errorf("rotate %q: %w", it.ID, err)
			}
		default:
			return TimePrediction{}, fmt.Errorf("%w: %T at %d", ErrUnknownItem, item, i)
		}
	}
	b.pred.TotalTime = b.now
	return b.pred, nil
}

func (b *builder) push(ev Event) {
	ev.StartTime = b.now
	ev.EndTime = b.now + ev.Duration
	b.now = ev.EndTime
	b.pred.Timeline = append(b.pred.Timeline, ev)
}

func (b *builder) wait(src Source, id, name string, durationMs float64, lineID string, segIdx int) {
	if !(durationMs > 0) {
		return
	}
	at := b.pos
	b.push(Event{
		Kind:          EventWait,
		Source:        src,
		Duration:      units.Seconds(durationMs),
		LineID:        lineID,
		SegmentIndex:  segIdx,
		ItemID:        id,
		Name:          name,
		StartHeading:  b.heading,
		TargetHeading: b.heading,
		AtPoint:       &at,
	})
}

func (b *builder) travel(seg ResolvedSegment) error {
	line := seg.Line
	if w := line.WaitBefore; w != nil {
		b.wait(SourceWaitBefore, "", w.Name, w.DurationMs, line.ID, seg.LineIndex)
	}

	length := seg.Curve.Length()
	profile, err := motion.Compute(length, b.lin)
	if err != nil {
		return err
	}

	startH, ok := line.EndPoint.StartHeading(seg.Curve)
	if !ok {
		startH = b.heading
	}
	targetH, ok := line.EndPoint.EndHeading(seg.Curve)
	if !ok {
		targetH = startH
	}

	curve := seg.Curve
	b.push(Event{
		Kind:          EventTravel,
		Source:        SourcePath,
		Duration:      profile.Duration,
		LineID:        line.ID,
		SegmentIndex:  seg.LineIndex,
		Name:          line.Name,
		Distance:      length,
		Velocities:    profile.Velocities,
		StartHeading:  startH,
		TargetHeading: targetH,
		profile:       profile,
		curve:         &curve,
		mode:          line.EndPoint,
	})
	ev := b.pred.Timeline[len(b.pred.Timeline)-1]

	for _, m := range line.EventMarkers {
		pos := math.Min(1, math.Max(0, m.Position))
		at := ev.StartTime
		if profile.Duration > 0 {
			at += profile.TimeAtDistance(pos * length)
		}
		b.pred.Markers = append(b.pred.Markers, MarkerTime{
			Name:     m.Name,
			LineID:   line.ID,
			Position: pos,
			Time:     at,
		})
	}

	b.pred.SegmentTimes[seg.LineIndex] += profile.Duration
	b.pred.TotalDistance += length
	b.pos = line.EndPoint.Vec()
	b.heading = targetH

	if w := line.WaitAfter; w != nil {
		b.wait(SourceWaitAfter, "", w.Name, w.DurationMs, line.ID, seg.LineIndex)
	}
	return nil
}

func (b *builder) rotate(it plan.RotateItem) error {
	target := geometry.NormalizeAngle(it.Degrees)
	diff := geometry.AngularDifference(b.heading, target)
	profile, err := motion.Compute(math.Abs(geometry.Radians(diff)), b.ang)
	if err != nil {
		return err
	}
	if profile.Duration <= minRotateDuration {
		b.heading = target
		return nil
	}
	at := b.pos
	b.push(Event{
		Kind:          EventWait,
		Source:        SourceRotate,
		Duration:      profile.Duration,
		SegmentIndex:  -1,
		ItemID:        it.ID,
		Name:          it.Name,
		Distance:      profile.Distance,
		Velocities:    profile.Velocities,
		StartHeading:  b.heading,
		TargetHeading: target,
		AtPoint:       &at,
		profile:       profile,
	})
	b.heading = target
	return nil
}
