package ccm

import (
	"fmt"
	"runtime"

	"gocausal/internal"
	"gocausal/internal/errors"
)

const (
	DefaultEmbeddingDim = 3
	DefaultTau          = 1
	DefaultNumSamples   = 100
)

// Options configures an Analysis. Zero values select the defaults, so the
// zero Options is valid.
type Options struct {
	// EmbeddingDim is E, the number of delay coordinates per state (default 3).
	EmbeddingDim int `json:"embedding_dim,omitempty" yaml:"embedding_dim"`
	// Tau is the delay between coordinates (default 1).
	Tau int `json:"tau,omitempty" yaml:"tau"`
	// LibSizes are the library sizes to test, strictly ascending. Empty selects DefaultLibSizes.
	LibSizes []int `json:"lib_sizes,omitempty" yaml:"lib_sizes"`
	// NumSamples is the number of bootstrap trials per library size (default 100).
	NumSamples int `json:"num_samples,omitempty" yaml:"num_samples"`
	// Seed is the base seed every trial's generator derives from. 0 picks a
	// time-based seed.
	Seed int64 `json:"seed,omitempty" yaml:"seed"`
	// Workers caps concurrent trials across every direction of one run
	// (default GOMAXPROCS).
	Workers int `json:"workers,omitempty" yaml:"workers"`
	// ExcludeDegenerate drops degenerate trials from the per-size mean instead
	// of averaging them in as 0.
	ExcludeDegenerate bool `json:"exclude_degenerate,omitempty" yaml:"exclude_degenerate"`

	Logger *internal.Logger `json:"-" yaml:"-"`
}

// DefaultOptions returns the documented defaults with library sizes left to
// be derived from the series length.
func DefaultOptions() Options {
	return Options{
		EmbeddingDim: DefaultEmbeddingDim,
		Tau:          DefaultTau,
		NumSamples:   DefaultNumSamples,
		Workers:      runtime.GOMAXPROCS(0),
	}
}

// DefaultLibSizes returns the library-size staircase for maxSize usable
// points: maxSize alone when maxSize < 10, otherwise from max(5, maxSize/10)
// up to maxSize in steps of max(2, maxSize/20).
func DefaultLibSizes(maxSize int) []int {
	if maxSize < 10 {
		if maxSize < 1 {
			return nil
		}
		return []int{maxSize}
	}

	start := max(5, maxSize/10)
	step := max(2, maxSize/20)

	sizes := make([]int, 0, (maxSize-start)/step+1)
	for size := start; size <= maxSize; size += step {
		sizes = append(sizes, size)
	}
	return sizes
}

// withDefaults fills zero fields and validates the rest.
func (o Options) withDefaults(seriesLen int) (Options, error) {
	def := DefaultOptions()
	if o.EmbeddingDim == 0 {
		o.EmbeddingDim = def.EmbeddingDim
	}
	if o.Tau == 0 {
		o.Tau = def.Tau
	}
	if o.NumSamples == 0 {
		o.NumSamples = def.NumSamples
	}
	if o.Workers == 0 {
		o.Workers = def.Workers
	}
	if o.Logger == nil {
		o.Logger = internal.DefaultLogger
	}

	if o.EmbeddingDim < 1 || o.EmbeddingDim > MaxEmbeddingDim {
		return o, errors.InvalidInput(fmt.Sprintf("embedding_dim must be between 1 and %d, got %d", MaxEmbeddingDim, o.EmbeddingDim))
	}
	if o.Tau < 1 {
		return o, errors.InvalidInput(fmt.Sprintf("tau must be >= 1, got %d", o.Tau))
	}
	if o.NumSamples < 1 {
		return o, errors.InvalidInput(fmt.Sprintf("num_samples must be >= 1, got %d", o.NumSamples))
	}
	if o.Workers < 1 {
		return o, errors.InvalidInput(fmt.Sprintf("workers must be >= 1, got %d", o.Workers))
	}

	if len(o.LibSizes) == 0 {
		o.LibSizes = DefaultLibSizes(EmbeddedLength(seriesLen, o.EmbeddingDim, o.Tau))
	} else {
		sizes := make([]int, len(o.LibSizes))
		for i, size := range o.LibSizes {
			if size < 1 {
				return o, errors.InvalidInput(fmt.Sprintf("lib_sizes must be positive, got %d at position %d", size, i))
			}
			if i > 0 && size <= sizes[i-1] {
				return o, errors.InvalidInput(fmt.Sprintf("lib_sizes must be strictly ascending, got %d after %d", size, sizes[i-1]))
			}
			sizes[i] = size
		}
		o.LibSizes = sizes
	}

	return o, nil
}
