package cmd

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/jacklau/picdedup/internal/store"
)

func TestShortID(t *testing.T) {
	if got := shortID("0f8fad5b-d9cb-469f-a165-70867728950e"); got != "0f8fad5b" {
		t.Errorf("shortID() = %q", got)
	}
	if got := shortID("abc"); got != "abc" {
		t.Errorf("shortID() of short id = %q", got)
	}
}

func TestRenderRuns(t *testing.T) {
	runs := []store.Run{
		{ID: "11111111-aaaa", Folder: "/photos", Mode: "perceptual", Threshold: 4, Processed: 10, Kept: 6, Deleted: 4, StartedAt: time.Now()},
		{ID: "22222222-bbbb", Folder: "/scans", Mode: "exact", DryRun: true, Processed: 3, Kept: 2, Deleted: 1, StartedAt: time.Now().Add(-48 * time.Hour)},
	}

	var buf bytes.Buffer
	renderRuns(&buf, runs)
	out := buf.String()

	for _, want := range []string{"11111111", "perceptual/4", "/scans", "1 (dry)", "2 days ago"} {
		if !strings.Contains(out, want) {
			t.Errorf("history output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "-aaaa") {
		t.Errorf("expected shortened run IDs:\n%s", out)
	}
}

func TestRenderRunDetail(t *testing.T) {
	run := &store.Run{ID: "11111111-aaaa", Folder: "/photos", Mode: "exact", Algorithm: "sha256", StartedAt: time.Now()}
	decisions := []store.Decision{
		{Seq: 0, Path: "/photos/a.png", Action: store.ActionKeep},
		{Seq: 1, Path: "/photos/b.png", Action: store.ActionDelete, Representative: "/photos/a.png"},
		{Seq: 2, Path: "/photos/c.png", Action: store.ActionSkip, Error: "decode failed"},
	}

	var buf bytes.Buffer
	renderRunDetail(&buf, run, decisions)
	out := buf.String()

	for _, want := range []string{"11111111-aaaa", "exact (sha256)", "/photos/b.png", "delete", "decode failed"} {
		if !strings.Contains(out, want) {
			t.Errorf("detail output missing %q:\n%s", want, out)
		}
	}
}
