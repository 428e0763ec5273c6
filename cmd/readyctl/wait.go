// File: cmd/readyctl/wait.go
// Brief: CLI wiring for `readyctl wait` (execute a plan against a cluster).

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/readyctl/internal/depgraph"
	"github.com/example/readyctl/internal/kube"
	"github.com/example/readyctl/internal/logging"
	"github.com/example/readyctl/internal/notify"
	"github.com/example/readyctl/internal/planfile"
	"github.com/example/readyctl/internal/probes"
	"github.com/example/readyctl/internal/report"
	"github.com/example/readyctl/internal/scheduler"
)

func newWaitCommand(kubeconfig, kubeContext, logLevel *string) *cobra.Command {
	var planPath string
	var output string
	var sequential bool
	var planTimeout time.Duration
	var notifyURL string

	cmd := &cobra.Command{
		Use:   "wait",
		Short: "Execute a plan: wait for every resource to become ready in dependency order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := logging.New(*logLevel)
			if err != nil {
				return err
			}

			_, g, err := planfile.Load(planPath)
			if err != nil {
				return err
			}
			layers, err := depgraph.Validate(g)
			if err != nil {
				return err
			}

			format, err := report.ParseFormat(output)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			client, err := kube.New(ctx, *kubeconfig, *kubeContext)
			if err != nil {
				return err
			}

			var sink notify.Sink = notify.LogSink{Log: log}
			if notifyURL != "" {
				sink = notify.NewWebhookSink(notifyURL)
			}

			opts := scheduler.Options{Mode: scheduler.Parallel, PlanTimeout: planTimeout}
			if sequential {
				opts.Mode = scheduler.Sequential
			}

			sched := scheduler.New(probes.NewRegistry(client, log), nil, log, sink)
			res, execErr := sched.Execute(ctx, g, layers, opts)
			if res == nil {
				return execErr
			}
			if err := report.Write(cmd.OutOrStdout(), res, format); err != nil {
				return err
			}
			if execErr != nil {
				return execErr
			}
			if !res.Success {
				return fmt.Errorf("plan finished with failures")
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&planPath, "file", "f", "plan.yaml", "Path to the plan document")
	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format: table|json|yaml")
	cmd.Flags().BoolVar(&sequential, "sequential", false, "Probe one resource at a time instead of a whole layer at once")
	cmd.Flags().DurationVar(&planTimeout, "plan-timeout", 0, "Deadline for the whole plan (0 disables)")
	cmd.Flags().StringVar(&notifyURL, "notify-url", "", "POST readiness events to this webhook URL")
	return cmd
}
