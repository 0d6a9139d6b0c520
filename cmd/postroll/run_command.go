package main

import (
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"postroll/internal/daemonrun"
	"postroll/internal/pipeline"
	"postroll/internal/records"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var (
		videoID   int64
		fileKey   string
		sourceURL string
		jsonOut   bool
		verbose   bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process one video in the foreground",
		Long: `Process one video in the foreground and print the resulting job.

With --video-id the existing record is processed; its stored source key is used
unless --file-key is given. Without --video-id a new record is created for
--file-key first.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.commandLogger(verbose)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			runCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			components, err := daemonrun.Open(runCtx, cfg, logger)
			if err != nil {
				return err
			}
			defer components.Close()

			req, err := resolveRunRequest(cmd, components.Records, videoID, fileKey, sourceURL)
			if err != nil {
				return err
			}

			job, runErr := components.Orchestrator.Run(runCtx, req)
			if job != nil {
				if jsonOut {
					if err := writeJSON(cmd, job); err != nil {
						return err
					}
				} else {
					printJobSummary(cmd.OutOrStdout(), job)
				}
			}
			if runErr != nil {
				return fmt.Errorf("video %d: %w", req.VideoID, runErr)
			}
			return nil
		},
	}

	cmd.Flags().Int64Var(&videoID, "video-id", 0, "Existing video record to process")
	cmd.Flags().StringVar(&fileKey, "file-key", "", "Blob store key of the uploaded source")
	cmd.Flags().StringVar(&sourceURL, "source-url", "", "Download URL for the source (defaults to a presigned or file:// URL)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the job as JSON")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	return cmd
}

func resolveRunRequest(cmd *cobra.Command, store records.Store, videoID int64, fileKey, sourceURL string) (pipeline.Request, error) {
	fileKey = strings.TrimSpace(fileKey)
	req := pipeline.Request{VideoID: videoID, SourceKey: fileKey, SourceURL: strings.TrimSpace(sourceURL)}

	if videoID <= 0 {
		if fileKey == "" {
			return req, fmt.Errorf("either --video-id or --file-key is required")
		}
		video, err := store.Create(cmd.Context(), fileKey)
		if err != nil {
			return req, fmt.Errorf("create video record: %w", err)
		}
		req.VideoID = video.ID
		fmt.Fprintf(cmd.ErrOrStderr(), "Created video %d for %s\n", video.ID, fileKey)
		return req, nil
	}

	if fileKey == "" {
		video, err := store.Get(cmd.Context(), videoID)
		if err != nil {
			return req, fmt.Errorf("load video %d: %w", videoID, err)
		}
		req.SourceKey = video.SourceKey
	}
	return req, nil
}

func printJobSummary(out io.Writer, job *pipeline.Job) {
	elapsed := job.FinishedAt.Sub(job.StartedAt).Round(100 * time.Millisecond)
	fmt.Fprintf(out, "Video %d %s in %s (job %s)\n", job.VideoID, formatStatusLabel(string(job.Status)), elapsed, job.ID)
	if job.Probe.Duration > 0 {
		fmt.Fprintf(out, "Source: %.1fs %dx%d\n", job.Probe.Duration, job.Probe.Width, job.Probe.Height)
	}
	if job.Error != "" {
		fmt.Fprintf(out, "Error: %s\n", job.Error)
	}
	if len(job.Subtasks) == 0 {
		return
	}

	rows := make([][]string, 0, len(job.Subtasks))
	for _, name := range []string{pipeline.SubtaskPoster, pipeline.SubtaskStoryboard, pipeline.SubtaskTrailer, pipeline.SubtaskRename} {
		outcome, ok := job.Subtasks[name]
		if !ok {
			continue
		}
		status := "Succeeded"
		detail := ""
		if outcome.Error != "" {
			status = "Failed"
			detail = outcome.Error
		} else {
			keys := make([]string, 0, len(outcome.Artifacts))
			for _, a := range outcome.Artifacts {
				keys = append(keys, a.Key)
			}
			detail = strings.Join(keys, ", ")
		}
		rows = append(rows, []string{name, status, outcome.Duration.Round(10 * time.Millisecond).String(), valueOrDash(detail)})
	}
	fmt.Fprintln(out, renderTable([]string{"Subtask", "Status", "Duration", "Artifacts"}, rows, []columnAlignment{alignLeft, alignLeft, alignRight, alignLeft}))
}
