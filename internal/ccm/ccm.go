package ccm

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync/atomic"
	"time"

	"github.com/montanaflynn/stats"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"gocausal/internal"
	"gocausal/internal/errors"
)

// Direction names the causal hypothesis a cross-map tests.
type Direction string

const (
	// XCausesY recovers X from Y's shadow manifold.
	XCausesY Direction = "x_causes_y"
	// YCausesX recovers Y from X's shadow manifold.
	YCausesX Direction = "y_causes_x"
)

// ParseDirection accepts the canonical names plus the short forms "xy" and "yx".
// An empty string selects XCausesY.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "x_causes_y", "xy", "x->y":
		return XCausesY, nil
	case "y_causes_x", "yx", "y->x":
		return YCausesX, nil
	default:
		return "", errors.InvalidInput(fmt.Sprintf("unknown direction %q (want x_causes_y or y_causes_x)", s))
	}
}

// LibraryResult is the averaged cross-map skill at one library size.
type LibraryResult struct {
	LibSize         int     `json:"lib_size"`
	MeanCorrelation float64 `json:"mean_correlation"`
	StdDev          float64 `json:"std_dev"`
	ValidTrials     int     `json:"valid_trials"`
}

// DirectionResult is the outcome of one cross-map direction.
type DirectionResult struct {
	Direction  Direction       `json:"direction"`
	Results    []LibraryResult `json:"results"`
	Convergent bool            `json:"convergent"`
	Slope      float64         `json:"slope"`
}

// BidirectionalResult holds both directions of one analysis.
type BidirectionalResult struct {
	XCausesY *DirectionResult `json:"x_causes_y"`
	YCausesX *DirectionResult `json:"y_causes_x"`
}

// Analysis is an immutable CCM configuration over a pair of series.
type Analysis struct {
	x, y   []float64
	opts   Options
	seed   int64
	logger *internal.Logger
}

// New validates the series and options and returns an Analysis. The series
// are copied; later changes by the caller do not affect the analysis.
func New(x, y []float64, opts Options) (*Analysis, error) {
	if len(x) != len(y) {
		return nil, errors.LengthMismatch(len(x), len(y))
	}

	resolved, err := opts.withDefaults(len(x))
	if err != nil {
		return nil, errors.Wrap(err, "invalid ccm options")
	}

	seed := resolved.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return &Analysis{
		x:      append([]float64(nil), x...),
		y:      append([]float64(nil), y...),
		opts:   resolved,
		seed:   seed,
		logger: resolved.Logger.WithComponent("ccm"),
	}, nil
}

// Options returns the resolved options, defaults filled in.
func (a *Analysis) Options() Options {
	opts := a.opts
	opts.LibSizes = append([]int(nil), a.opts.LibSizes...)
	return opts
}

// Seed returns the base seed trials derive their generators from.
func (a *Analysis) Seed() int64 { return a.seed }

// Len returns the length of each input series.
func (a *Analysis) Len() int { return len(a.x) }

// CrossMap runs the bootstrap over every library size for one direction and
// tests the resulting skill curve for convergence. It only fails when ctx is
// done before all trials complete.
func (a *Analysis) CrossMap(ctx context.Context, dir Direction) (*DirectionResult, error) {
	return a.crossMap(ctx, dir, newTrialLimiter(a.opts.Workers))
}

func (a *Analysis) crossMap(ctx context.Context, dir Direction, limiter *trialLimiter) (*DirectionResult, error) {
	var source, target []float64
	switch dir {
	case XCausesY:
		source, target = a.y, a.x
	case YCausesX:
		source, target = a.x, a.y
	default:
		return nil, errors.InvalidInput(fmt.Sprintf("unknown direction %q", dir))
	}

	e, tau := a.opts.EmbeddingDim, a.opts.Tau
	embedding := Embed(source, e, tau)
	sizes := a.opts.LibSizes
	samples := a.opts.NumSamples

	a.logger.Debug("%s: %d embedded points, %d library sizes, %d trials each", dir, len(embedding), len(sizes), samples)

	scores := make([][]float64, len(sizes))
	valid := make([][]bool, len(sizes))
	for i := range sizes {
		scores[i] = make([]float64, samples)
		valid[i] = make([]bool, samples)
	}

	g, gctx := errgroup.WithContext(ctx)

schedule:
	for li, size := range sizes {
		li, size := li, size
		for t := 0; t < samples; t++ {
			t := t
			if err := limiter.acquire(gctx); err != nil {
				break schedule
			}
			g.Go(func() error {
				defer limiter.release()
				if err := gctx.Err(); err != nil {
					return err
				}
				rng := rand.New(rand.NewSource(trialSeed(a.seed, dir, li, t)))
				scores[li][t], valid[li][t] = sampleCrossMap(rng, embedding, target, size, e, tau)
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return nil, errors.Canceled(err)
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Canceled(err)
	}

	results := make([]LibraryResult, len(sizes))
	for li, size := range sizes {
		results[li] = a.summarize(size, scores[li], valid[li])
		a.logger.Trace("%s: lib_size=%d mean_rho=%.4f valid=%d/%d", dir, size, results[li].MeanCorrelation, results[li].ValidTrials, samples)
	}

	slope, ok := TrendSlope(results)
	if !ok {
		slope = 0
	}

	return &DirectionResult{
		Direction:  dir,
		Results:    results,
		Convergent: ok && slope > ConvergenceSlopeThreshold,
		Slope:      slope,
	}, nil
}

// Bidirectional runs both directions concurrently. Trials of the two
// directions share one Workers limit.
func (a *Analysis) Bidirectional(ctx context.Context) (*BidirectionalResult, error) {
	return a.bidirectional(ctx, newTrialLimiter(a.opts.Workers))
}

func (a *Analysis) bidirectional(ctx context.Context, limiter *trialLimiter) (*BidirectionalResult, error) {
	var out BidirectionalResult

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		res, err := a.crossMap(gctx, XCausesY, limiter)
		out.XCausesY = res
		return err
	})
	g.Go(func() error {
		res, err := a.crossMap(gctx, YCausesX, limiter)
		out.YCausesX = res
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	a.logger.Trace("peak concurrent trials: %d of %d", limiter.peak.Load(), a.opts.Workers)
	return &out, nil
}

// trialLimiter caps the trials in flight and records the highest count seen.
type trialLimiter struct {
	sem    *semaphore.Weighted
	active atomic.Int64
	peak   atomic.Int64
}

func newTrialLimiter(workers int) *trialLimiter {
	return &trialLimiter{sem: semaphore.NewWeighted(int64(workers))}
}

func (l *trialLimiter) acquire(ctx context.Context) error {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	active := l.active.Add(1)
	for {
		peak := l.peak.Load()
		if active <= peak || l.peak.CompareAndSwap(peak, active) {
			return nil
		}
	}
}

func (l *trialLimiter) release() {
	l.active.Add(-1)
	l.sem.Release(1)
}

// summarize averages the trial scores of one library size.
func (a *Analysis) summarize(size int, scores []float64, valid []bool) LibraryResult {
	res := LibraryResult{LibSize: size}

	kept := make(stats.Float64Data, 0, len(scores))
	for i, s := range scores {
		if valid[i] {
			res.ValidTrials++
		} else if a.opts.ExcludeDegenerate {
			continue
		}
		kept = append(kept, s)
	}
	if len(kept) == 0 {
		return res
	}

	if mean, err := stats.Mean(kept); err == nil && isFinite(mean) {
		res.MeanCorrelation = mean
	}
	if sd, err := stats.StandardDeviation(kept); err == nil && isFinite(sd) {
		res.StdDev = sd
	}
	return res
}

// trialSeed derives an independent seed for one trial so results do not
// depend on scheduling order or worker count.
func trialSeed(base int64, dir Direction, libIndex, trial int) int64 {
	z := uint64(base)
	if dir == YCausesX {
		z ^= 0x9E3779B97F4A7C15
	}
	z ^= uint64(libIndex+1) * 0xBF58476D1CE4E5B9
	z = splitmix64(z)
	z ^= uint64(trial+1) * 0x94D049BB133111EB
	return int64(splitmix64(z))
}

func splitmix64(z uint64) uint64 {
	z += 0x9E3779B97F4A7C15
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	return z ^ (z >> 31)
}
