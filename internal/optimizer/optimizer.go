// Package optimizer refines path control points with a genetic search that
// trades traversal time against collisions.
//
// Segment end points are never moved: they are the waypoints the path was
// drawn through. Only the control points of unlocked, travelled lines are
// mutated.
package optimizer

import (
	"context"
	"fmt"
	"math/rand"
	"runtime"
	"sort"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/pathing/internal/collision"
	"github.com/banshee-data/pathing/internal/monitoring"
	"github.com/banshee-data/pathing/internal/plan"
	"github.com/banshee-data/pathing/internal/timeline"
)

// Status is the lifecycle state of a run.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusRunning   Status = "running"
	StatusConverged Status = "converged"
	StatusCancelled Status = "cancelled"
	StatusExhausted Status = "exhausted"
	StatusError     Status = "error"
)

// logEvery spaces the per-generation log lines.
const logEvery = 10

// Problem is the input of a run.
type Problem struct {
	// ID names the run. Empty generates a random UUID.
	ID       string        `json:"id,omitempty"`
	Start    plan.Point    `json:"startPoint"`
	Lines    []plan.Line   `json:"lines"`
	Sequence plan.Sequence `json:"sequence,omitempty"`
	Shapes   []plan.Shape  `json:"shapes,omitempty"`
	Settings plan.Settings `json:"settings"`
}

// ProblemFromProject copies a project into a problem.
func ProblemFromProject(p plan.Project) Problem {
	return Problem{
		Start:    p.StartPoint,
		Lines:    p.Lines,
		Sequence: p.Sequence,
		Shapes:   p.Shapes,
		Settings: p.Settings,
	}
}

// Progress is reported after every generation.
type Progress struct {
	Generation  int     `json:"generation"`
	BestFitness float64 `json:"best_fitness"`
	Collisions  int     `json:"collisions"`
	Strength    float64 `json:"strength"`
}

// GenerationLog summarises one generation.
type GenerationLog struct {
	Generation    int     `json:"generation"`
	BestFitness   float64 `json:"best_fitness"`
	MeanFitness   float64 `json:"mean_fitness"`
	StdDevFitness float64 `json:"stddev_fitness"`
	Collisions    int     `json:"collisions"`
	Strength      float64 `json:"strength"`
}

// Result is the best candidate found.
type Result struct {
	RunID       string                     `json:"run_id"`
	Status      Status                     `json:"status"`
	BestLines   []plan.Line                `json:"best_lines"`
	Prediction  timeline.TimePrediction    `json:"prediction"`
	Collisions  []collision.CollisionRange `json:"collisions"`
	Fitness     float64                    `json:"fitness"`
	Generations int                        `json:"generations"`
	Log         []GenerationLog            `json:"log"`
}

// CancelToken is polled between generations. It is safe to cancel from any
// goroutine.
type CancelToken struct {
	cancelled atomic.Bool
}

// Cancel requests the run to stop at the next generation boundary.
func (t *CancelToken) Cancel() {
	if t != nil {
		t.cancelled.Store(true)
	}
}

// Cancelled reports whether Cancel has been called.
func (t *CancelToken) Cancelled() bool {
	return t != nil && t.cancelled.Load()
}

type candidate struct {
	lines      []plan.Line
	pred       timeline.TimePrediction
	collisions []collision.CollisionRange
	fitness    float64
	birth      int
}

func (c *candidate) clean() bool { return len(c.collisions) == 0 }

// better is the total order used for ranking: collision-free first, then
// lower fitness, then earlier birth.
func better(a, b *candidate) bool {
	if a.clean() != b.clean() {
		return a.clean()
	}
	if a.fitness != b.fitness {
		return a.fitness < b.fitness
	}
	return a.birth < b.birth
}

type search struct {
	problem  Problem
	cfg      Config
	detector *collision.Detector
	rng      *rand.Rand
	mutable  []int
	starts   map[string]plan.Point
	births   int
	strength float64
}

func (s *search) evaluate(lines []plan.Line) (*candidate, error) {
	pred, err := timeline.ComputeTimePrediction(s.problem.Start, lines, s.problem.Settings, s.problem.Sequence)
	if err != nil {
		return nil, err
	}
	ranges, err := s.detector.Detect(s.problem.Start, lines, s.problem.Sequence)
	if err != nil {
		return nil, err
	}
	count, extent := collision.Summary(ranges)
	c := &candidate{
		lines:      lines,
		pred:       pred,
		collisions: ranges,
		fitness:    pred.TotalTime + s.cfg.CollisionPenalty*float64(count) + s.cfg.LengthPenalty*extent,
		birth:      s.births,
	}
	s.births++
	return c, nil
}

// Run evolves the problem's control points. The caller's lines are never
// modified. Cancellation through ctx or token is honoured between
// generations and returns the best candidate so far with StatusCancelled.
// A path that cannot be cleared is not an error: the result carries the
// residual collisions.
func Run(ctx context.Context, problem Problem, cfg Config, onProgress func(Progress), token *CancelToken) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	runID := problem.ID
	if runID == "" {
		runID = uuid.New().String()
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	detector, err := collision.NewDetector(problem.Shapes, problem.Settings)
	if err != nil {
		return Result{}, err
	}
	problem.Lines = plan.CloneLines(problem.Lines)
	problem.Sequence = problem.Sequence.Effective(problem.Lines)

	chain, err := timeline.ResolveChain(problem.Start, problem.Lines, problem.Sequence)
	if err != nil {
		return Result{}, err
	}

	s := &search{
		problem:  problem,
		cfg:      cfg,
		detector: detector,
		rng:      rand.New(rand.NewSource(seed)),
		starts:   map[string]plan.Point{},
		strength: cfg.MutationStrength,
	}
	seen := map[int]bool{}
	for _, seg := range chain {
		if _, ok := s.starts[seg.Line.ID]; !ok {
			s.starts[seg.Line.ID] = plan.Point{X: seg.Start.X, Y: seg.Start.Y}
		}
		if !seg.Line.Locked && !seen[seg.LineIndex] {
			seen[seg.LineIndex] = true
			s.mutable = append(s.mutable, seg.LineIndex)
		}
	}
	sort.Ints(s.mutable)

	pr := newPump(onProgress)
	defer pr.close()

	monitoring.Logf("[optimizer] run %s: %d lines (%d mutable), %d shapes, population %d, %d generations",
		runID, len(problem.Lines), len(s.mutable), detector.Regions(), cfg.PopulationSize, cfg.Iterations)

	input, err := s.evaluate(problem.Lines)
	if err != nil {
		return Result{}, fmt.Errorf("evaluate input: %w", err)
	}
	pop := []*candidate{input}
	for len(pop) < cfg.PopulationSize {
		c, err := s.evaluate(s.mutate(input.lines))
		if err != nil {
			return Result{}, err
		}
		pop = append(pop, c)
	}

	var runLog []GenerationLog
	status := StatusExhausted
	gen := 0
	for {
		sort.SliceStable(pop, func(i, j int) bool { return better(pop[i], pop[j]) })
		best := pop[0]
		entry := s.summarise(gen, pop)
		runLog = append(runLog, entry)
		pr.send(Progress{Generation: gen, BestFitness: best.fitness, Collisions: len(best.collisions), Strength: s.strength})
		if gen%logEvery == 0 {
			monitoring.Logf("[optimizer] run %s: generation %d best=%.3f mean=%.3f collisions=%d strength=%.2f",
				runID, gen, entry.BestFitness, entry.MeanFitness, entry.Collisions, entry.Strength)
		}

		if cfg.ConvergenceFitness > 0 && best.clean() && best.fitness <= cfg.ConvergenceFitness {
			status = StatusConverged
			break
		}
		if gen >= cfg.Iterations {
			break
		}
		if ctx.Err() != nil || token.Cancelled() {
			status = StatusCancelled
			break
		}

		s.adapt(best)
		pop, err = s.breed(pop)
		if err != nil {
			return Result{}, err
		}
		gen++
		runtime.Gosched()
	}

	best := pop[0]
	monitoring.Logf("[optimizer] run %s %s after %d generations: fitness=%.3f time=%.3fs collisions=%d",
		runID, status, gen, best.fitness, best.pred.TotalTime, len(best.collisions))

	return Result{
		RunID:       runID,
		Status:      status,
		BestLines:   plan.CloneLines(best.lines),
		Prediction:  best.pred,
		Collisions:  best.collisions,
		Fitness:     best.fitness,
		Generations: gen,
		Log:         runLog,
	}, nil
}

// adapt widens the search while the best candidate still collides.
func (s *search) adapt(best *candidate) {
	if best.clean() {
		s.strength = s.cfg.MutationStrength
		return
	}
	s.strength *= s.cfg.StrengthGrowth
	if limit := s.cfg.MaxStrengthFactor * s.cfg.MutationStrength; s.strength > limit {
		s.strength = limit
	}
}

// breed keeps the elites and fills the rest with mutated tournament winners.
func (s *search) breed(pop []*candidate) ([]*candidate, error) {
	next := make([]*candidate, 0, s.cfg.PopulationSize)
	next = append(next, pop[:s.cfg.EliteCount]...)
	elites := pop[:s.cfg.EliteCount]
	for len(next) < s.cfg.PopulationSize {
		parent := s.tournament(elites)
		child, err := s.evaluate(s.mutate(parent.lines))
		if err != nil {
			return nil, err
		}
		next = append(next, child)
	}
	return next, nil
}

func (s *search) tournament(pool []*candidate) *candidate {
	a := pool[s.rng.Intn(len(pool))]
	b := pool[s.rng.Intn(len(pool))]
	if better(b, a) {
		return b
	}
	return a
}

func (s *search) summarise(gen int, pop []*candidate) GenerationLog {
	fit := make([]float64, len(pop))
	for i, c := range pop {
		fit[i] = c.fitness
	}
	mean, std := stat.MeanStdDev(fit, nil)
	return GenerationLog{
		Generation:    gen,
		BestFitness:   pop[0].fitness,
		MeanFitness:   mean,
		StdDevFitness: std,
		Collisions:    len(pop[0].collisions),
		Strength:      s.strength,
	}
}
