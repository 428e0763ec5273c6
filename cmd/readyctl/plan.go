// File: cmd/readyctl/plan.go
// Brief: CLI wiring for `readyctl plan` (validate and print execution order).

package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/example/readyctl/internal/depgraph"
	"github.com/example/readyctl/internal/planfile"
	"github.com/example/readyctl/internal/report"
)

func newPlanCommand() *cobra.Command {
	var planPath string
	var output string
	var graphFormat string

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Validate a plan document and print its execution order",
		Long:  "readyctl plan parses the plan, rejects cycles and unknown references, and prints the dependency layers without probing anything.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, g, err := planfile.Load(planPath)
			if err != nil {
				return err
			}
			layers, err := depgraph.Validate(g)
			if err != nil {
				return err
			}

			if graphFormat != "" {
				switch strings.ToLower(graphFormat) {
				case "dot":
					fmt.Fprint(cmd.OutOrStdout(), g.DOT())
					return nil
				case "mermaid":
					fmt.Fprint(cmd.OutOrStdout(), g.Mermaid())
					return nil
				default:
					return fmt.Errorf("unknown --graph %q (expected dot|mermaid)", graphFormat)
				}
			}

			switch strings.ToLower(strings.TrimSpace(output)) {
			case "json":
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(layers)
			case "", "table":
				return report.WriteLayers(cmd.OutOrStdout(), layers)
			default:
				return fmt.Errorf("unknown --output %q (expected table|json)", output)
			}
		},
	}
	cmd.Flags().StringVarP(&planPath, "file", "f", "plan.yaml", "Path to the plan document")
	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format: table|json")
	cmd.Flags().StringVar(&graphFormat, "graph", "", "Emit the dependency graph instead of layers: dot|mermaid")
	return cmd
}
