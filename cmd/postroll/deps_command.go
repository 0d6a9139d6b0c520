package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"postroll/internal/api"
	"postroll/internal/deps"
	"postroll/internal/preflight"
)

// errPreflightFailed is returned after the report is printed so the exit
// status reflects it.
var errPreflightFailed = errors.New("preflight checks failed")

func newDepsCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "deps",
		Short: "Check external binaries and configured services",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			statuses := preflight.CheckSystemDeps(cfg)
			results := preflight.RunAll(cmd.Context(), cfg)
			failed := len(deps.MissingRequired(statuses)) > 0 || len(preflight.Failed(results)) > 0

			if jsonOut {
				if err := writeJSON(cmd, map[string]any{
					"dependencies": api.FromDependencies(statuses),
					"checks":       api.FromChecks(results),
				}); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				lines := renderSectionHeader("Dependencies", colorize)
				lines = append(lines, dependencyLines(statuses, colorize)...)
				lines = append(lines, "")
				lines = append(lines, renderSectionHeader("Checks", colorize)...)
				lines = append(lines, checkLines(results, colorize)...)
				fmt.Fprintln(out, strings.Join(lines, "\n"))
			}
			if failed {
				return errPreflightFailed
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the report as JSON")
	return cmd
}

func dependencyLines(statuses []deps.Status, colorize bool) []string {
	lines := make([]string, 0, len(statuses))
	for _, s := range statuses {
		switch {
		case s.Available:
			lines = append(lines, renderStatusLine(s.Name, statusOK, s.Command, colorize))
		case s.Optional:
			lines = append(lines, renderStatusLine(s.Name, statusWarn, s.Detail, colorize))
		default:
			lines = append(lines, renderStatusLine(s.Name, statusError, s.Detail, colorize))
		}
	}
	return lines
}

func checkLines(results []preflight.Result, colorize bool) []string {
	lines := make([]string, 0, len(results))
	for _, r := range results {
		kind := statusOK
		if !r.Passed {
			kind = statusError
		}
		lines = append(lines, renderStatusLine(r.Name, kind, r.Detail, colorize))
	}
	return lines
}
