package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"gocausal/internal/errors"
)

// Render writes the report in the requested format
func Render(w io.Writer, r *Report, f Format) error {
	if r == nil {
		return errors.InvalidInput("nil report")
	}

	var buf bytes.Buffer
	switch f {
	case FormatText, "":
		writeText(&buf, r)
	case FormatJSON:
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "  ")
		if err := enc.Encode(r); err != nil {
			return errors.Wrap(err, "failed to encode report")
		}
	case FormatMarkdown:
		writeMarkdown(&buf, r)
	case FormatHTML:
		var md bytes.Buffer
		writeMarkdown(&md, r)
		buf.Write(toHTML(md.Bytes(), "CCM report "+r.RunID))
	default:
		return errors.InvalidInput(fmt.Sprintf("unknown report format %q", f))
	}

	if _, err := w.Write(buf.Bytes()); err != nil {
		return errors.Wrap(err, "failed to write report")
	}
	return nil
}

func writeText(b *bytes.Buffer, r *Report) {
	fmt.Fprintf(b, "CCM run %s\n", r.RunID)
	fmt.Fprintf(b, "Created: %s\n", r.CreatedAt.Format(time.RFC3339))
	if r.Source != "" {
		fmt.Fprintf(b, "Source:  %s\n", r.Source)
	}
	fmt.Fprintf(b, "Series:  %s, %s (n=%d)\n", r.X.Name, r.Y.Name, r.Length)
	fmt.Fprintf(b, "Options: E=%d tau=%d samples=%d seed=%d\n", r.Options.EmbeddingDim, r.Options.Tau, r.Options.NumSamples, r.Seed)

	for _, s := range []Series{r.X, r.Y} {
		if s.Profile == nil {
			continue
		}
		p := s.Profile
		fmt.Fprintf(b, "Profile %s: mean=%.4f sd=%.4f min=%.4f max=%.4f finite=%d/%d normal=%t\n",
			s.Name, p.Mean, p.StdDev, p.Min, p.Max, p.FiniteCount, p.Count, p.IsNormal)
	}

	for _, d := range r.directions() {
		state := "not convergent"
		if d.Convergent {
			state = "convergent"
		}
		fmt.Fprintf(b, "\n%s (%s): %s, slope=%.5f\n", r.describe(d.Direction), d.Direction, state, d.Slope)
		fmt.Fprintf(b, "%8s %8s %8s %6s\n", "L", "rho", "sd", "valid")
		for _, lr := range d.Results {
			fmt.Fprintf(b, "%8d %8.4f %8.4f %6d\n", lr.LibSize, lr.MeanCorrelation, lr.StdDev, lr.ValidTrials)
		}
	}

	fmt.Fprintf(b, "\nVerdict: %s\n", r.VerdictText())
}

func writeMarkdown(b *bytes.Buffer, r *Report) {
	fmt.Fprintf(b, "# CCM report\n\n")
	fmt.Fprintf(b, "- **Run:** `%s`\n", r.RunID)
	fmt.Fprintf(b, "- **Created:** %s\n", r.CreatedAt.Format(time.RFC3339))
	if r.Source != "" {
		fmt.Fprintf(b, "- **Source:** `%s`\n", r.Source)
	}
	fmt.Fprintf(b, "- **Series:** `%s`, `%s` (n=%d)\n", r.X.Name, r.Y.Name, r.Length)
	fmt.Fprintf(b, "- **Options:** E=%d, tau=%d, samples=%d, seed=%d\n", r.Options.EmbeddingDim, r.Options.Tau, r.Options.NumSamples, r.Seed)
	fmt.Fprintf(b, "\n**Verdict:** %s\n", r.VerdictText())

	if r.X.Profile != nil || r.Y.Profile != nil {
		fmt.Fprintf(b, "\n## Series\n\n")
		fmt.Fprintf(b, "| series | mean | sd | min | max | finite | normal |\n")
		fmt.Fprintf(b, "|---|---|---|---|---|---|---|\n")
		for _, s := range []Series{r.X, r.Y} {
			if s.Profile == nil {
				continue
			}
			p := s.Profile
			fmt.Fprintf(b, "| %s | %.4f | %.4f | %.4f | %.4f | %d/%d | %t |\n",
				escapeCell(s.Name), p.Mean, p.StdDev, p.Min, p.Max, p.FiniteCount, p.Count, p.IsNormal)
		}
	}

	for _, d := range r.directions() {
		state := "not convergent"
		if d.Convergent {
			state = "convergent"
		}
		fmt.Fprintf(b, "\n## %s\n\n", escapeCell(r.describe(d.Direction)))
		fmt.Fprintf(b, "Direction `%s` is %s (slope %.5f).\n\n", d.Direction, state, d.Slope)
		fmt.Fprintf(b, "| L | rho | sd | valid |\n")
		fmt.Fprintf(b, "|---:|---:|---:|---:|\n")
		for _, lr := range d.Results {
			fmt.Fprintf(b, "| %d | %.4f | %.4f | %d |\n", lr.LibSize, lr.MeanCorrelation, lr.StdDev, lr.ValidTrials)
		}
	}
}

func toHTML(md []byte, title string) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions)
	renderer := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags | html.CompletePage,
		Title: title,
	})
	return markdown.ToHTML(md, p, renderer)
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
