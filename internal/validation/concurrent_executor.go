package validation

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"gocausal/internal"
	"gocausal/internal/ccm"
	"gocausal/internal/errors"
	"gocausal/internal/referee"
)

// defaultRefereeCost applies to gates missing from the cost table
const defaultRefereeCost = 3

// RefereeCost defines the computational cost weight for each referee type
type RefereeCost struct {
	RefereeName string
	Cost        int64 // Computational units (1-10 scale)
	Category    referee.RefereeCategory
}

// GetRefereeCosts returns cost assignments based on referee complexity.
// Both CCM gates cross map in two directions, so they cost the same.
func GetRefereeCosts() map[string]RefereeCost {
	return map[string]RefereeCost{
		"convergent_cross_mapping":         {RefereeName: "Convergent_Cross_Mapping", Cost: 6, Category: referee.CategoryDIRECTIONAL},
		"ccm":                              {RefereeName: "Convergent_Cross_Mapping", Cost: 6, Category: referee.CategoryDIRECTIONAL},
		"reverse_convergent_cross_mapping": {RefereeName: "Reverse_Convergent_Cross_Mapping", Cost: 6, Category: referee.CategoryDIRECTIONAL},
		"ccm_reverse":                      {RefereeName: "Reverse_Convergent_Cross_Mapping", Cost: 6, Category: referee.CategoryDIRECTIONAL},
	}
}

// Pair is one candidate driver/response couple
type Pair struct {
	XName string
	YName string
	X     []float64
	Y     []float64
}

// PairResult holds the gate verdicts for one pair
type PairResult struct {
	XName   string                  `json:"x"`
	YName   string                  `json:"y"`
	Results []referee.RefereeResult `json:"results"`
}

// Passed reports whether every gate passed
func (p PairResult) Passed() bool {
	for _, r := range p.Results {
		if !r.Passed {
			return false
		}
	}
	return len(p.Results) > 0
}

// ConcurrentExecutor manages weighted referee execution
type ConcurrentExecutor struct {
	semaphore    *semaphore.Weighted
	capacity     int64
	refereeCosts map[string]RefereeCost
	options      ccm.Options
	logger       *internal.Logger
}

// NewConcurrentExecutor creates an executor with capacity management
func NewConcurrentExecutor(totalCapacity int64, logger *internal.Logger) *ConcurrentExecutor {
	if totalCapacity < 1 {
		totalCapacity = 1
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &ConcurrentExecutor{
		semaphore:    semaphore.NewWeighted(totalCapacity),
		capacity:     totalCapacity,
		refereeCosts: GetRefereeCosts(),
		logger:       logger.WithComponent("executor"),
	}
}

// WithOptions sets the bootstrap settings handed to every gate. Zero fields
// keep the gate defaults.
func (ce *ConcurrentExecutor) WithOptions(opts ccm.Options) *ConcurrentExecutor {
	ce.options = opts
	return ce
}

// costOf looks up a gate's weight, capped so a single gate always fits
func (ce *ConcurrentExecutor) costOf(name string) int64 {
	cost := int64(defaultRefereeCost)
	if c, ok := ce.refereeCosts[name]; ok {
		cost = c.Cost
	}
	if cost > ce.capacity {
		cost = ce.capacity
	}
	return cost
}

// ExecuteReferees runs the named gates on one pair with cost-based throttling.
// Results keep the order of refereeNames.
func (ce *ConcurrentExecutor) ExecuteReferees(
	ctx context.Context,
	refereeNames []string,
	xData, yData []float64,
	metadata map[string]interface{},
) ([]referee.RefereeResult, error) {
	results := make([]referee.RefereeResult, len(refereeNames))

	g, gctx := errgroup.WithContext(ctx)
	for i, name := range refereeNames {
		i, name := i, name
		cost := ce.costOf(name)
		if err := ce.semaphore.Acquire(gctx, cost); err != nil {
			break
		}

		g.Go(func() error {
			defer ce.semaphore.Release(cost)

			start := time.Now()
			refereeInstance, err := referee.NewReferee(name, ce.options)
			if err != nil {
				results[i] = referee.RefereeResult{
					GateName:      name,
					Passed:        false,
					FailureReason: fmt.Sprintf("Referee creation failed: %v", err),
				}
				return nil
			}

			result := refereeInstance.Execute(xData, yData, metadata)
			results[i] = result

			if result.Passed && !referee.ValidateStandardUsed(result.StandardUsed, result.GateName) {
				ce.logger.Warn("%s passed under an unexpected standard: %q", result.GateName, result.StandardUsed)
			}
			if result.Passed {
				ce.logger.Debug("%s passed (cost: %d, duration: %v)", result.GateName, cost, time.Since(start))
			} else {
				ce.logger.Debug("%s failed (cost: %d, duration: %v): %s", result.GateName, cost, time.Since(start), result.FailureReason)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Canceled(err)
	}
	return results, nil
}

// ExecutePairs runs the gates over many pairs, sharing the executor's capacity
func (ce *ConcurrentExecutor) ExecutePairs(
	ctx context.Context,
	refereeNames []string,
	pairs []Pair,
	metadata map[string]interface{},
) ([]PairResult, error) {
	out := make([]PairResult, len(pairs))

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range pairs {
		i, p := i, p
		g.Go(func() error {
			results, err := ce.ExecuteReferees(gctx, refereeNames, p.X, p.Y, metadata)
			if err != nil {
				return err
			}
			out[i] = PairResult{XName: p.XName, YName: p.YName, Results: results}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	ce.logger.Info("evaluated %d pairs with %d gates each", len(pairs), len(refereeNames))
	return out, nil
}

// OrderedPairs builds every ordered pair of distinct columns
func OrderedPairs(columns map[string][]float64, names []string) []Pair {
	var pairs []Pair
	for _, x := range names {
		for _, y := range names {
			if x == y {
				continue
			}
			pairs = append(pairs, Pair{XName: x, YName: y, X: columns[x], Y: columns[y]})
		}
	}
	return pairs
}
