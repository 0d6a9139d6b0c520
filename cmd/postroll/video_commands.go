package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"postroll/internal/api"
	"postroll/internal/blobstore"
	"postroll/internal/config"
	"postroll/internal/records"
)

func newVideoCommand(ctx *commandContext) *cobra.Command {
	videoCmd := &cobra.Command{
		Use:   "video",
		Short: "Inspect and seed video records",
	}
	videoCmd.AddCommand(newVideoAddCommand(ctx))
	videoCmd.AddCommand(newVideoShowCommand(ctx))
	videoCmd.AddCommand(newVideoListCommand(ctx))
	return videoCmd
}

// videoStores opens the record store and the blob store for one command.
func videoStores(cmd *cobra.Command, ctx *commandContext) (records.Store, blobstore.Store, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	store, err := records.Open(cmd.Context(), cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open record store: %w", err)
	}
	blobs, err := blobstore.Open(cmd.Context(), cfg)
	if err != nil {
		_ = store.Close()
		return nil, nil, fmt.Errorf("open blob store: %w", err)
	}
	return store, blobs, nil
}

func newVideoAddCommand(ctx *commandContext) *cobra.Command {
	var key string
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "add [file]",
		Short: "Create a pending video record, uploading a local file when given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && strings.TrimSpace(key) == "" {
				return errors.New("provide a file to upload or --key for an existing object")
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, blobs, err := videoStores(cmd, ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			sourceKey := strings.TrimSpace(key)
			if len(args) == 1 {
				sourceKey, err = uploadSource(cmd.Context(), cfg, blobs, args[0], sourceKey)
				if err != nil {
					return err
				}
			}

			video, err := store.Create(cmd.Context(), sourceKey)
			if err != nil {
				return fmt.Errorf("create video record: %w", err)
			}
			if jsonOut {
				return writeJSON(cmd, api.VideoResponse{Video: api.FromVideo(video, blobs.URL)})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Video %d created (source %s)\n", video.ID, sourceKey)
			return nil
		},
	}
	cmd.Flags().StringVar(&key, "key", "", "Source object key (defaults to uploads/<file name>)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the record as JSON")
	return cmd
}

func uploadSource(ctx context.Context, cfg *config.Config, blobs blobstore.Store, file, key string) (string, error) {
	file, err := config.ExpandPath(file)
	if err != nil {
		return "", err
	}
	f, err := os.Open(file)
	if err != nil {
		return "", fmt.Errorf("open source: %w", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat source: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory", file)
	}

	if key == "" {
		key = path.Join("uploads", filepath.Base(file))
	}
	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(file)))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if err := blobs.Put(ctx, key, f, info.Size(), contentType); err != nil {
		return "", fmt.Errorf("upload %s to %s backend: %w", file, cfg.Storage.Backend, err)
	}
	return key, nil
}

func newVideoShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one video record and its artifacts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(strings.TrimSpace(args[0]), 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid video id %q", args[0])
			}
			store, blobs, err := videoStores(cmd, ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			video, err := store.Get(cmd.Context(), id)
			if errors.Is(err, records.ErrNotFound) {
				return fmt.Errorf("video %d not found", id)
			}
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, api.VideoResponse{Video: api.FromVideo(video, blobs.URL)})
			}
			printVideo(cmd.OutOrStdout(), video, blobs.URL)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the record as JSON")
	return cmd
}

func printVideo(out io.Writer, v *records.Video, url api.URLFunc) {
	fmt.Fprintf(out, "Video %d\n", v.ID)
	fmt.Fprintf(out, "  Status:    %s\n", formatStatusLabel(string(v.Status)))
	fmt.Fprintf(out, "  Source:    %s\n", v.SourceKey)
	fmt.Fprintf(out, "  Duration:  %s\n", formatDurationSeconds(v.DurationSeconds))
	if v.ProcessingCompletedAt != nil {
		fmt.Fprintf(out, "  Completed: %s\n", formatTimestamp(*v.ProcessingCompletedAt))
	}
	if v.ErrorMessage != "" {
		fmt.Fprintf(out, "  Error:     %s\n", v.ErrorMessage)
	}
	if !v.HasArtifacts() {
		return
	}
	rows := [][]string{}
	for _, a := range []struct{ label, key string }{
		{"Canonical", v.CanonicalKey},
		{"Poster", v.PosterKey},
		{"Storyboard", v.StoryboardKey},
		{"Cue index", v.CueIndexKey},
		{"Trailer", v.TrailerKey},
	} {
		if a.key == "" {
			continue
		}
		rows = append(rows, []string{a.label, a.key, url(a.key)})
	}
	fmt.Fprintln(out, renderTable([]string{"Artifact", "Key", "URL"}, rows, nil))
}

func newVideoListCommand(ctx *commandContext) *cobra.Command {
	var statuses []string
	var limit int
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List video records, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := parseStatuses(statuses)
			if err != nil {
				return err
			}
			store, blobs, err := videoStores(cmd, ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			videos, err := store.List(cmd.Context(), records.ListOptions{Statuses: filter, Limit: limit})
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, api.VideoListResponse{Videos: api.FromVideos(videos, blobs.URL)})
			}
			out := cmd.OutOrStdout()
			if len(videos) == 0 {
				fmt.Fprintln(out, "No videos")
				return nil
			}
			rows := make([][]string, 0, len(videos))
			for _, v := range videos {
				rows = append(rows, []string{
					strconv.FormatInt(v.ID, 10),
					formatStatusLabel(string(v.Status)),
					v.SourceKey,
					formatDurationSeconds(v.DurationSeconds),
					formatTimestamp(v.UpdatedAt),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Status", "Source", "Duration", "Updated"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&statuses, "status", "s", nil, "Filter by status (pending, processing, completed, failed)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum number of records")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print records as JSON")
	return cmd
}
