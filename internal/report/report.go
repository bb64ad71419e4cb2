package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"gocausal/internal"
	"gocausal/internal/ccm"
	"gocausal/internal/errors"
	"gocausal/internal/profiling"
)

// Format selects how a report is rendered
type Format string

const (
	FormatText     Format = "text"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
)

// ParseFormat accepts a format name; the empty string means text
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "text", "txt":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "html":
		return FormatHTML, nil
	default:
		return "", errors.InvalidInput(fmt.Sprintf("unknown report format %q (want text, json, markdown or html)", name))
	}
}

// Verdict is the causal reading of a bidirectional result
type Verdict string

const (
	VerdictXDrivesY      Verdict = "x_drives_y"
	VerdictYDrivesX      Verdict = "y_drives_x"
	VerdictBidirectional Verdict = "bidirectional"
	VerdictNone          Verdict = "none"
)

// Summarize reads convergence in each direction. A missing direction counts as not convergent.
func Summarize(res *ccm.BidirectionalResult) Verdict {
	if res == nil {
		return VerdictNone
	}
	xy := res.XCausesY != nil && res.XCausesY.Convergent
	yx := res.YCausesX != nil && res.YCausesX.Convergent
	switch {
	case xy && yx:
		return VerdictBidirectional
	case xy:
		return VerdictXDrivesY
	case yx:
		return VerdictYDrivesX
	default:
		return VerdictNone
	}
}

// Series names one input and, when it could be computed, its profile
type Series struct {
	Name    string                   `json:"name"`
	Profile *profiling.SeriesProfile `json:"profile,omitempty"`
}

// Report is one cross-mapping run ready to render
type Report struct {
	RunID     string                   `json:"run_id"`
	CreatedAt time.Time                `json:"created_at"`
	Source    string                   `json:"source,omitempty"`
	Length    int                      `json:"length"`
	X         Series                   `json:"x"`
	Y         Series                   `json:"y"`
	Options   ccm.Options              `json:"options"`
	Seed      int64                    `json:"seed"`
	Result    *ccm.BidirectionalResult `json:"result"`
	Verdict   Verdict                  `json:"verdict"`
}

// Input gathers what New needs to assemble a report
type Input struct {
	Source       string
	XName, YName string
	X, Y         []float64
	Analysis     *ccm.Analysis
	Result       *ccm.BidirectionalResult
}

// New assembles a report with a fresh run ID. Series that cannot be profiled
// are reported without a profile.
func New(in Input) *Report {
	logger := internal.DefaultLogger.WithComponent("report")

	r := &Report{
		RunID:     uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Source:    in.Source,
		Length:    len(in.X),
		X:         Series{Name: defaultName(in.XName, "x")},
		Y:         Series{Name: defaultName(in.YName, "y")},
		Result:    in.Result,
		Verdict:   Summarize(in.Result),
	}
	if in.Analysis != nil {
		r.Options = in.Analysis.Options()
		r.Seed = in.Analysis.Seed()
	}

	for _, s := range []struct {
		series *Series
		values []float64
	}{{&r.X, in.X}, {&r.Y, in.Y}} {
		profile, err := profiling.ProfileSeries(s.values)
		if err != nil {
			logger.Warn("cannot profile series %s: %v", s.series.Name, err)
			continue
		}
		profile.Name = s.series.Name
		s.series.Profile = &profile
	}

	return r
}

// VerdictText describes the verdict using the series names
func (r *Report) VerdictText() string {
	switch r.Verdict {
	case VerdictXDrivesY:
		return fmt.Sprintf("%s drives %s", r.X.Name, r.Y.Name)
	case VerdictYDrivesX:
		return fmt.Sprintf("%s drives %s", r.Y.Name, r.X.Name)
	case VerdictBidirectional:
		return fmt.Sprintf("%s and %s drive each other", r.X.Name, r.Y.Name)
	default:
		return "no convergent cross-mapping"
	}
}

// directions returns the computed directions in a stable order
func (r *Report) directions() []*ccm.DirectionResult {
	if r.Result == nil {
		return nil
	}
	var out []*ccm.DirectionResult
	for _, d := range []*ccm.DirectionResult{r.Result.XCausesY, r.Result.YCausesX} {
		if d != nil {
			out = append(out, d)
		}
	}
	return out
}

// describe turns a direction into "x -> y" using the series names
func (r *Report) describe(dir ccm.Direction) string {
	if dir == ccm.YCausesX {
		return r.Y.Name + " -> " + r.X.Name
	}
	return r.X.Name + " -> " + r.Y.Name
}

func defaultName(name, fallback string) string {
	if strings.TrimSpace(name) == "" {
		return fallback
	}
	return name
}
