package main

import (
	"errors"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"dockhand/internal/preflight"
)

var errChecksFailed = errors.New("one or more checks failed")

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose the connection to the daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig(cmd)
			if err != nil {
				return err
			}

			var pinger preflight.Pinger
			var clientErr error
			if client, err := ctx.client(cmd); err == nil {
				pinger = client
			} else {
				clientErr = err
			}

			results := preflight.RunAll(cmd.Context(), cfg, pinger)
			if clientErr != nil {
				results = append(results, preflight.Result{Name: "Docker client", Detail: clientErr.Error()})
			}

			if ctx.jsonOutput() {
				if err := writeJSON(cmd, results); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				colors := shouldColorize(out)
				rows := make([][]string, 0, len(results))
				for _, r := range results {
					status := colorize(colors, "OK", text.FgGreen)
					if !r.Passed {
						status = colorize(colors, "FAIL", text.FgRed)
					}
					rows = append(rows, []string{r.Name, status, r.Detail})
				}
				fmt.Fprintf(out, "Docker host: %s\n", cfg.Docker.Host)
				fmt.Fprintln(out, renderTable([]string{"Check", "Status", "Detail"}, rows, nil))
			}

			if preflight.Failed(results) {
				return errChecksFailed
			}
			return nil
		},
	}
}
