package main

import (
	"fmt"
	"strings"
	"testing"

	"postroll/internal/deps"
	"postroll/internal/records"
)

func TestFormatStatusLabel(t *testing.T) {
	tests := map[string]string{
		"completed":  "Completed",
		"processing": "Processing",
		"":           "Unknown",
		"not_ready":  "Not Ready",
	}
	for input, want := range tests {
		if got := formatStatusLabel(input); got != want {
			t.Fatalf("formatStatusLabel(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestFormatDurationSeconds(t *testing.T) {
	seconds := func(v int64) *int64 { return &v }
	tests := []struct {
		in   *int64
		want string
	}{
		{nil, "-"},
		{seconds(10), "0:10"},
		{seconds(125), "2:05"},
		{seconds(3725), "1:02:05"},
	}
	for _, tc := range tests {
		if got := formatDurationSeconds(tc.in); got != tc.want {
			t.Fatalf("formatDurationSeconds = %q, want %q", got, tc.want)
		}
	}
}

func TestParseStatuses(t *testing.T) {
	got, err := parseStatuses([]string{"pending, Failed", ""})
	if err != nil {
		t.Fatalf("parseStatuses: %v", err)
	}
	if len(got) != 2 || got[0] != records.StatusPending || got[1] != records.StatusFailed {
		t.Fatalf("unexpected statuses %v", got)
	}
	if _, err := parseStatuses([]string{"queued"}); err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("ffmpeg", statusError, "not found", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "ffmpeg:", "[ERROR] not found")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("ffmpeg", statusOK, "/usr/bin/ffmpeg", true)
	if !strings.HasPrefix(got, ansiGreen) || !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected green wrapped line, got %q", got)
	}
}

func TestDependencyLinesKinds(t *testing.T) {
	lines := dependencyLines([]deps.Status{
		{Name: "FFmpeg", Available: true, Command: "ffmpeg"},
		{Name: "Extra", Optional: true, Detail: "not installed"},
		{Name: "FFprobe", Detail: "binary \"ffprobe\" not found"},
	}, false)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	for i, want := range []string{"[OK]", "[WARN]", "[ERROR]"} {
		if !strings.Contains(lines[i], want) {
			t.Fatalf("line %d = %q, want %s", i, lines[i], want)
		}
	}
}

func TestRenderTablePadsShortRows(t *testing.T) {
	out := renderTable([]string{"ID", "Status"}, [][]string{{"1"}, {"2", "Failed"}}, []columnAlignment{alignRight})
	if !strings.Contains(out, "Failed") {
		t.Fatalf("table missing cell:\n%s", out)
	}
	if renderTable(nil, nil, nil) != "" {
		t.Fatal("expected empty render for no headers")
	}
}
