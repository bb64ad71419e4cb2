package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"gocausal/adapters/excel"
	"gocausal/internal"
	"gocausal/internal/ccm"
	"gocausal/internal/config"
	"gocausal/internal/errors"
	"gocausal/internal/referee"
	"gocausal/internal/report"
	"gocausal/internal/testkit"
	"gocausal/internal/validation"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// exitCode is 130 for an interrupted run, 1 otherwise
func exitCode(err error) int {
	if errors.HasCode(err, errors.CodeCanceled) {
		return 130
	}
	return 1
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "gocausal-cli",
		Short:         "Convergent cross mapping for paired time series",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return referee.ValidateConstants()
		},
	}

	rootCmd.AddCommand(
		newRunCmd(),
		newDemoCmd(),
		newRefereeCmd(),
		newScanCmd(),
		newGatesCmd(),
	)

	return rootCmd
}

// analysisFlags are the ccm settings shared by every command. Flags left
// unset keep the value from config.Load.
type analysisFlags struct {
	embeddingDim      int
	tau               int
	libSizes          string
	samples           int
	seed              int64
	workers           int
	excludeDegenerate bool
}

func (f *analysisFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&f.embeddingDim, "embedding-dim", "E", ccm.DefaultEmbeddingDim, "Embedding dimension")
	cmd.Flags().IntVar(&f.tau, "tau", ccm.DefaultTau, "Delay between embedding coordinates")
	cmd.Flags().StringVar(&f.libSizes, "lib-sizes", "", "Comma separated library sizes (default: staircase up to the embedded length)")
	cmd.Flags().IntVar(&f.samples, "samples", ccm.DefaultNumSamples, "Bootstrap samples per library size")
	cmd.Flags().Int64Var(&f.seed, "seed", 0, "Random seed (0 picks one from the clock)")
	cmd.Flags().IntVar(&f.workers, "workers", 0, "Concurrent trials (0 means GOMAXPROCS)")
	cmd.Flags().BoolVar(&f.excludeDegenerate, "exclude-degenerate", false, "Leave degenerate trials out of the mean instead of counting them as 0")
}

// loadConfig reads the layered configuration and applies its log level
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	internal.DefaultLogger = internal.NewLogger(internal.ParseLogLevel(cfg.Log.Level))
	return cfg, nil
}

func (f *analysisFlags) options(cmd *cobra.Command) (ccm.Options, error) {
	cfg, err := loadConfig()
	if err != nil {
		return ccm.Options{}, err
	}

	opts := cfg.CCMOptions()
	flags := cmd.Flags()
	if flags.Changed("embedding-dim") {
		opts.EmbeddingDim = f.embeddingDim
	}
	if flags.Changed("tau") {
		opts.Tau = f.tau
	}
	if flags.Changed("lib-sizes") {
		sizes, err := config.ParseIntList(f.libSizes)
		if err != nil {
			return ccm.Options{}, errors.Wrap(errors.WithCode(errors.CodeInvalidInput, err), "invalid --lib-sizes")
		}
		opts.LibSizes = sizes
	}
	if flags.Changed("samples") {
		opts.NumSamples = f.samples
	}
	if flags.Changed("seed") {
		opts.Seed = f.seed
	}
	if flags.Changed("workers") {
		opts.Workers = f.workers
	}
	if flags.Changed("exclude-degenerate") {
		opts.ExcludeDegenerate = f.excludeDegenerate
	}
	return opts, nil
}

func newRunCmd() *cobra.Command {
	var af analysisFlags
	var file, xCol, yCol, sheet, direction, format string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Cross map two columns of a CSV or XLSX file",
		Long: `Test whether one column causally drives another using convergent cross mapping.

Example: gocausal-cli run --file data.csv --x prey --y predator -E 2 --lib-sizes 10,20,40,80 --seed 42`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := af.options(cmd)
			if err != nil {
				return err
			}
			x, y, err := readColumns(file, sheet, xCol, yCol)
			if err != nil {
				return err
			}
			return runAnalysis(cmd, analysisInput{
				source:    file,
				xName:     xCol,
				yName:     yCol,
				x:         x,
				y:         y,
				opts:      opts,
				direction: direction,
				format:    format,
			})
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "CSV or XLSX input file")
	cmd.Flags().StringVar(&xCol, "x", "", "Column holding the candidate driver X")
	cmd.Flags().StringVar(&yCol, "y", "", "Column holding Y")
	cmd.Flags().StringVar(&sheet, "sheet", "", "XLSX worksheet (default Sheet1)")
	cmd.Flags().StringVar(&direction, "direction", "both", "x_causes_y, y_causes_x or both")
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text, json, markdown or html")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("x")
	_ = cmd.MarkFlagRequired("y")
	af.register(cmd)

	return cmd
}

func newDemoCmd() *cobra.Command {
	var af analysisFlags
	var length int
	var coupling, reverseCoupling, noise float64
	var dataSeed int64
	var direction, format string

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Cross map a synthetic pair of coupled logistic maps",
		Long: `Generate a logistic-map pair where X drives Y and run the analysis on it.

Example: gocausal-cli demo --length 300 --coupling 0.3 --seed 42`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := af.options(cmd)
			if err != nil {
				return err
			}

			gen := testkit.DefaultLogisticConfig()
			gen.Length = length
			gen.CouplingXToY = coupling
			gen.CouplingYToX = reverseCoupling
			gen.Noise = noise
			gen.Seed = dataSeed
			series, err := testkit.GenerateCoupledLogistic(gen)
			if err != nil {
				return err
			}

			return runAnalysis(cmd, analysisInput{
				source:    fmt.Sprintf("logistic maps (length=%d, coupling=%g, reverse=%g)", length, coupling, reverseCoupling),
				xName:     "x",
				yName:     "y",
				x:         series.X,
				y:         series.Y,
				opts:      opts,
				direction: direction,
				format:    format,
			})
		},
	}

	cmd.Flags().IntVar(&length, "length", 300, "Series length")
	cmd.Flags().Float64Var(&coupling, "coupling", 0.3, "Coupling from X into Y")
	cmd.Flags().Float64Var(&reverseCoupling, "reverse-coupling", 0, "Coupling from Y into X")
	cmd.Flags().Float64Var(&noise, "noise", 0, "Standard deviation of observation noise")
	cmd.Flags().Int64Var(&dataSeed, "data-seed", 0, "Seed for initial states and noise (0 uses fixed initial states)")
	cmd.Flags().StringVar(&direction, "direction", "both", "x_causes_y, y_causes_x or both")
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text, json, markdown or html")
	af.register(cmd)

	return cmd
}

func newRefereeCmd() *cobra.Command {
	var file, xCol, yCol, sheet, gates string
	var seed, capacity int64

	cmd := &cobra.Command{
		Use:   "referee",
		Short: "Run the directional CCM gates on two columns",
		Long: `Run pass/fail gates that require convergent and strong cross mapping.

Example: gocausal-cli referee --file data.csv --x prey --y predator --gates ccm,ccm_reverse`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			x, y, err := readColumns(file, sheet, xCol, yCol)
			if err != nil {
				return err
			}

			names := splitList(gates)
			executor := validation.NewConcurrentExecutor(capacity, internal.DefaultLogger).WithOptions(cfg.CCMOptions())
			results, err := executor.ExecuteReferees(cmd.Context(), names, x, y, seedMetadata(seed))
			if err != nil {
				return err
			}

			if failed := printGates(cmd.OutOrStdout(), results); failed > 0 {
				return errors.Newf(errors.CodeValidationError, "%d of %d gates failed", failed, len(names))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "CSV or XLSX input file")
	cmd.Flags().StringVar(&xCol, "x", "", "Column holding the candidate driver X")
	cmd.Flags().StringVar(&yCol, "y", "", "Column holding Y")
	cmd.Flags().StringVar(&sheet, "sheet", "", "XLSX worksheet (default Sheet1)")
	cmd.Flags().StringVar(&gates, "gates", defaultGates, "Comma separated gate names")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Random seed (0 picks one from the clock)")
	cmd.Flags().Int64Var(&capacity, "capacity", 12, "Total cost units of gates run at once")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("x")
	_ = cmd.MarkFlagRequired("y")

	return cmd
}

func newScanCmd() *cobra.Command {
	var file, sheet, columns, gates string
	var seed, capacity int64

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run the CCM gate over every ordered pair of columns",
		Long: `Screen a file for causal links: each ordered pair (X, Y) of the listed
columns goes through the convergent cross mapping gate.

Example: gocausal-cli scan --file data.csv --columns prey,predator,rainfall --seed 42`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			data, err := readData(file, sheet)
			if err != nil {
				return err
			}

			names := splitList(columns)
			if len(names) == 0 {
				names = data.Headers
			}
			if len(names) < 2 {
				return errors.InvalidInput("need at least two columns to scan")
			}
			series := make(map[string][]float64, len(names))
			for _, name := range names {
				if series[name], err = data.Column(name); err != nil {
					return err
				}
			}

			executor := validation.NewConcurrentExecutor(capacity, internal.DefaultLogger).WithOptions(cfg.CCMOptions())
			results, err := executor.ExecutePairs(cmd.Context(), splitList(gates), validation.OrderedPairs(series, names), seedMetadata(seed))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, pair := range results {
				verdict := "no link"
				if pair.Passed() {
					verdict = "DRIVES"
				}
				fmt.Fprintf(out, "%s -> %s: %s\n", pair.XName, pair.YName, verdict)
				for _, r := range pair.Results {
					fmt.Fprintf(out, "    %-34s statistic=%.4f slope=%.5f\n", r.GateName, r.Statistic, r.Details["slope"])
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "CSV or XLSX input file")
	cmd.Flags().StringVar(&sheet, "sheet", "", "XLSX worksheet (default Sheet1)")
	cmd.Flags().StringVar(&columns, "columns", "", "Comma separated columns to scan (default: all)")
	cmd.Flags().StringVar(&gates, "gates", "convergent_cross_mapping", "Comma separated gate names")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Random seed (0 picks one from the clock)")
	cmd.Flags().Int64Var(&capacity, "capacity", 12, "Total cost units of gates run at once")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func newGatesCmd() *cobra.Command {
	var showThresholds bool

	cmd := &cobra.Command{
		Use:   "gates",
		Short: "List the available gates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, gate := range referee.GetRefereeConfigs() {
				fmt.Fprintf(out, "%-34s %-12s %s\n", gate.Name, gate.Category, gate.Description)
			}
			if !showThresholds {
				return nil
			}

			thresholds := referee.GetAllThresholds()
			names := make([]string, 0, len(thresholds))
			for name := range thresholds {
				names = append(names, name)
			}
			sort.Strings(names)

			fmt.Fprintln(out)
			for _, name := range names {
				fmt.Fprintf(out, "%-24s %g\n", name, thresholds[name])
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showThresholds, "thresholds", false, "Also print the threshold constants")

	return cmd
}

const defaultGates = "convergent_cross_mapping,reverse_convergent_cross_mapping"

func printGates(out io.Writer, results []referee.RefereeResult) int {
	failed := 0
	for _, res := range results {
		status := "PASS"
		if !res.Passed {
			status = "FAIL"
			failed++
		}
		fmt.Fprintf(out, "%-34s %s  statistic=%.4f  %s\n", res.GateName, status, res.Statistic, res.StandardUsed)
		if res.FailureReason != "" {
			fmt.Fprintf(out, "    %s\n", res.FailureReason)
		}
	}
	return failed
}

func seedMetadata(seed int64) map[string]interface{} {
	metadata := map[string]interface{}{}
	if seed != 0 {
		metadata["seed"] = seed
	}
	return metadata
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func readData(file, sheet string) (*excel.SeriesData, error) {
	readerCfg := excel.DefaultReaderConfig()
	if sheet != "" {
		readerCfg.Sheet = sheet
	}
	return excel.NewDataReaderWithConfig(file, readerCfg).ReadData()
}

func readColumns(file, sheet, xCol, yCol string) ([]float64, []float64, error) {
	data, err := readData(file, sheet)
	if err != nil {
		return nil, nil, err
	}
	x, err := data.Column(xCol)
	if err != nil {
		return nil, nil, err
	}
	y, err := data.Column(yCol)
	if err != nil {
		return nil, nil, err
	}
	return x, y, nil
}

type analysisInput struct {
	source       string
	xName, yName string
	x, y         []float64
	opts         ccm.Options
	direction    string
	format       string
}

func runAnalysis(cmd *cobra.Command, in analysisInput) error {
	format, err := report.ParseFormat(in.format)
	if err != nil {
		return err
	}

	analysis, err := ccm.New(in.x, in.y, in.opts)
	if err != nil {
		return err
	}

	var res *ccm.BidirectionalResult
	if in.direction == "" || in.direction == "both" {
		res, err = analysis.Bidirectional(cmd.Context())
		if err != nil {
			return err
		}
	} else {
		dir, err := ccm.ParseDirection(in.direction)
		if err != nil {
			return err
		}
		single, err := analysis.CrossMap(cmd.Context(), dir)
		if err != nil {
			return err
		}
		res = &ccm.BidirectionalResult{}
		if dir == ccm.XCausesY {
			res.XCausesY = single
		} else {
			res.YCausesX = single
		}
	}

	rep := report.New(report.Input{
		Source:   in.source,
		XName:    in.xName,
		YName:    in.yName,
		X:        in.x,
		Y:        in.y,
		Analysis: analysis,
		Result:   res,
	})
	return report.Render(cmd.OutOrStdout(), rep, format)
}
