// File: internal/report/report.go
// Brief: Render plan results as a table, JSON, or YAML.

// Package report renders scheduler results for terminals and pipelines.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	"golang.org/x/term"
	"sigs.k8s.io/yaml"

	"github.com/example/readyctl/internal/depgraph"
	"github.com/example/readyctl/internal/scheduler"
)

// Format selects the output encoding.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ParseFormat validates an output format flag; empty means table.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.TrimSpace(strings.ToLower(s))) {
	case "", FormatTable:
		return FormatTable, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatYAML:
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unknown output format %q", s)
}

// Write renders the result in the requested format.
func Write(w io.Writer, res *scheduler.PlanResult, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	case FormatYAML:
		raw, err := yaml.Marshal(res)
		if err != nil {
			return err
		}
		_, err = w.Write(raw)
		return err
	default:
		return writeTable(w, res)
	}
}

func writeTable(w io.Writer, res *scheduler.PlanResult) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	counts := res.Counts()
	fmt.Fprintf(tw, "PLAN\t%s\n", paintPlanStatus(res.Success))
	fmt.Fprintf(tw, "ELAPSED\t%s\n", res.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(tw, "NODES\tready=%d failed=%d timed-out=%d skipped=%d cancelled=%d\n",
		counts[depgraph.StateReady],
		counts[depgraph.StateFailed],
		counts[depgraph.StateTimedOut],
		counts[depgraph.StateSkipped],
		counts[depgraph.StateCancelled])
	fmt.Fprintln(tw)

	fmt.Fprintln(tw, "LAYER\tNODE\tSTATE\tATTEMPTS\tELAPSED\tDETAIL")
	for _, nr := range res.Results {
		detail := nr.Detail
		if nr.Error != "" {
			detail = nr.Error
		}
		attempts := fmt.Sprintf("%d", nr.Attempts)
		if nr.OuterRetries > 0 {
			attempts = fmt.Sprintf("%d (+%d restarts)", nr.Attempts, nr.OuterRetries)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			nr.Layer,
			nr.ID,
			paintState(nr.State),
			attempts,
			nr.Elapsed.Round(time.Millisecond),
			trimDetail(w, detail))
	}
	return nil
}

// trimDetail keeps the detail column from wrapping on narrow terminals.
func trimDetail(w io.Writer, s string) string {
	s = strings.ReplaceAll(strings.TrimSpace(s), "\n", " ")
	width, ok := terminalWidth(w)
	if !ok || width <= 0 {
		width = 120
	}
	limit := width / 2
	if limit < 40 {
		limit = 40
	}
	if runewidth.StringWidth(s) <= limit {
		return s
	}
	return runewidth.Truncate(s, limit, "…")
}

func terminalWidth(w io.Writer) (int, bool) {
	type fdProvider interface {
		Fd() uintptr
	}
	if v, ok := w.(fdProvider); ok {
		if cols, _, err := term.GetSize(int(v.Fd())); err == nil {
			return cols, true
		}
	}
	return 0, false
}

func paintPlanStatus(success bool) string {
	if success {
		return color.New(color.FgGreen, color.Bold).Sprint("SUCCEEDED")
	}
	return color.New(color.FgRed, color.Bold).Sprint("FAILED")
}

func paintState(s depgraph.ExecutionState) string {
	switch s {
	case depgraph.StateReady:
		return color.New(color.FgGreen).Sprint(s)
	case depgraph.StateFailed, depgraph.StateTimedOut:
		return color.New(color.FgRed).Sprint(s)
	case depgraph.StateSkipped, depgraph.StateCancelled:
		return color.New(color.FgYellow).Sprint(s)
	default:
		return color.New(color.FgHiBlack).Sprint(s)
	}
}

// WriteLayers prints the validated execution order without running anything.
func WriteLayers(w io.Writer, layers [][]depgraph.NodeID) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "LAYER\tNODES")
	for i, layer := range layers {
		parts := make([]string, len(layer))
		for j, id := range layer {
			parts[j] = id.String()
		}
		fmt.Fprintf(tw, "%d\t%s\n", i, strings.Join(parts, ", "))
	}
	return nil
}
