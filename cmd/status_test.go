package cmd

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/jacklau/picdedup/internal/store"
)

func TestFormatTimeAgo(t *testing.T) {
	tests := []struct {
		name     string
		t        time.Time
		expected string
	}{
		{"just now", time.Now().Add(-10 * time.Second), "just now"},
		{"1 minute ago", time.Now().Add(-1 * time.Minute), "1 minute ago"},
		{"5 minutes ago", time.Now().Add(-5 * time.Minute), "5 minutes ago"},
		{"1 hour ago", time.Now().Add(-1 * time.Hour), "1 hour ago"},
		{"3 hours ago", time.Now().Add(-3 * time.Hour), "3 hours ago"},
		{"1 day ago", time.Now().Add(-24 * time.Hour), "1 day ago"},
		{"7 days ago", time.Now().Add(-7 * 24 * time.Hour), "7 days ago"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := formatTimeAgo(tt.t)
			if result != tt.expected {
				t.Errorf("formatTimeAgo() = %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestDbFileSize_NonExistent(t *testing.T) {
	_, err := dbFileSize("/nonexistent/path/to/db.sqlite")
	if err == nil {
		t.Error("expected error for non-existent file")
	}
}

func TestRenderFolderStats(t *testing.T) {
	last := time.Now().Add(-2 * time.Hour)
	stats := []store.FolderStats{
		{Folder: store.Folder{Path: "/photos", LastRunAt: &last}, Runs: 3, Deleted: 7, ReclaimedBytes: 3_000_000},
		{Folder: store.Folder{Path: "/scans"}, Runs: 1},
	}

	var buf bytes.Buffer
	renderFolderStats(&buf, stats)
	out := buf.String()

	for _, want := range []string{"/photos", "/scans", "3.0 MB", "2 hours ago", "never", "TOTAL"} {
		if !strings.Contains(out, want) {
			t.Errorf("status output missing %q:\n%s", want, out)
		}
	}
}
