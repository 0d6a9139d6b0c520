package main

import (
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"postroll/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool
	var videoID int64

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the daemon log (postroll.log)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path := filepath.Join(cfg.Paths.LogDir, "postroll.log")
			out := cmd.OutOrStdout()

			match := func(string) bool { return true }
			if videoID > 0 {
				match = logs.VideoMatcher(videoID)
			}
			emit := func(line string) {
				if match(line) {
					fmt.Fprintln(out, line)
				}
			}

			// With a filter the window is taken over all lines so enough
			// matching lines survive.
			window := lines
			if videoID > 0 {
				window = lines * 20
			}
			tail, offset, err := logs.Last(path, window)
			if err != nil {
				return err
			}
			var shown []string
			for _, line := range tail {
				if match(line) {
					shown = append(shown, line)
				}
			}
			if len(shown) > lines {
				shown = shown[len(shown)-lines:]
			}
			for _, line := range shown {
				fmt.Fprintln(out, line)
			}

			if !follow {
				return nil
			}
			followCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return logs.Follow(followCtx, path, offset, 250*time.Millisecond, emit)
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines")
	cmd.Flags().Int64Var(&videoID, "video", 0, "Only show lines for this video id")
	return cmd
}
