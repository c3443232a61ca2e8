package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"

	"github.com/jacklau/picdedup/internal/fingerprint"
	"github.com/jacklau/picdedup/internal/report"
	"github.com/jacklau/picdedup/internal/scan"
	"github.com/jacklau/picdedup/internal/store"
)

// fakeHasher returns fixed fingerprints keyed by file name.
type fakeHasher struct {
	mode fingerprint.Mode
	fps  map[string]fingerprint.Fingerprint
	errs map[string]error
}

func (f *fakeHasher) Mode() fingerprint.Mode { return f.mode }
func (f *fakeHasher) Name() string           { return "fake" }

func (f *fakeHasher) Hash(ctx context.Context, path string) (fingerprint.Fingerprint, error) {
	if err := ctx.Err(); err != nil {
		return fingerprint.Fingerprint{}, err
	}
	name := filepath.Base(path)
	if err, ok := f.errs[name]; ok {
		return fingerprint.Fingerprint{}, &fingerprint.Error{Path: path, Op: "decode", Err: err}
	}
	return f.fps[name], nil
}

// recordingDeleter records removals without touching the filesystem.
type recordingDeleter struct {
	mu      sync.Mutex
	removed []string
	fail    map[string]error
}

func (d *recordingDeleter) Remove(path string) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err, ok := d.fail[filepath.Base(path)]; ok {
		return 0, err
	}
	d.removed = append(d.removed, filepath.Base(path))
	return 10, nil
}

// mockNotifier implements notify.Notifier for testing.
type mockNotifier struct {
	mu        sync.Mutex
	summaries []report.Summary
	err       error
}

func (m *mockNotifier) Notify(_ context.Context, s report.Summary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.summaries = append(m.summaries, s)
	return m.err
}

func touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(name), 0o644); err != nil {
			t.Fatalf("writing %s: %v", name, err)
		}
	}
}

func bitsFP(t *testing.T, s string) fingerprint.Fingerprint {
	t.Helper()
	fp, err := fingerprint.ParseBits(s)
	if err != nil {
		t.Fatalf("parsing %q: %v", s, err)
	}
	return fp
}

func TestPipeline_PerceptualScenario(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "a.png", "b.png", "c.png", "d.png")

	hasher := &fakeHasher{
		mode: fingerprint.ModePerceptual,
		fps: map[string]fingerprint.Fingerprint{
			"a.png": bitsFP(t, "0000"),
			"b.png": bitsFP(t, "0001"),
			"c.png": bitsFP(t, "1111"),
			"d.png": bitsFP(t, "0010"),
		},
	}
	del := &recordingDeleter{}
	p := New(PipelineDeps{Hasher: hasher, Deleter: del, LockDir: t.TempDir()})

	res, err := p.Run(context.Background(), Options{
		Folder:    dir,
		Mode:      fingerprint.ModePerceptual,
		Threshold: 1,
		Workers:   3,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !reflect.DeepEqual(del.removed, []string{"b.png", "d.png"}) {
		t.Errorf("removed = %v, want [b.png d.png]", del.removed)
	}
	s := res.Summary
	if s.Processed != 4 || s.Kept != 2 || s.Deleted != 2 || s.Groups != 2 {
		t.Errorf("unexpected summary: %+v", s)
	}

	wantActions := []string{store.ActionKeep, store.ActionDelete, store.ActionKeep, store.ActionDelete}
	for i, d := range res.Decisions {
		if d.Seq != i || d.Action != wantActions[i] {
			t.Errorf("decision %d = %+v, want action %s", i, d, wantActions[i])
		}
	}
	if res.Decisions[3].Representative != filepath.Join(dir, "a.png") || res.Decisions[3].Distance != 1 {
		t.Errorf("d.png should map to a.png at distance 1, got %+v", res.Decisions[3])
	}
}

func TestPipeline_SkipsUnreadable(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "a.png", "b.png", "c.png")

	hasher := &fakeHasher{
		mode: fingerprint.ModeExact,
		fps: map[string]fingerprint.Fingerprint{
			"a.png": fingerprint.NewExact([]byte("h1")),
			"c.png": fingerprint.NewExact([]byte("h1")),
		},
		errs: map[string]error{"b.png": errors.New("corrupt")},
	}
	del := &recordingDeleter{}
	p := New(PipelineDeps{Hasher: hasher, Deleter: del, LockDir: t.TempDir()})

	res, err := p.Run(context.Background(), Options{Folder: dir, Mode: fingerprint.ModeExact, Workers: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s := res.Summary
	if s.Processed != 3 || s.Kept != 1 || s.Deleted != 1 || s.Skipped != 1 {
		t.Errorf("unexpected summary: %+v", s)
	}
	if !reflect.DeepEqual(del.removed, []string{"c.png"}) {
		t.Errorf("removed = %v, want [c.png]", del.removed)
	}
	if res.Decisions[1].Action != store.ActionSkip || res.Decisions[1].Error == "" {
		t.Errorf("expected b.png to be skipped with an error, got %+v", res.Decisions[1])
	}
}

func TestPipeline_DeleteFailureContinues(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "a.png", "b.png", "c.png")

	same := fingerprint.NewExact([]byte("h"))
	hasher := &fakeHasher{
		mode: fingerprint.ModeExact,
		fps:  map[string]fingerprint.Fingerprint{"a.png": same, "b.png": same, "c.png": same},
	}
	del := &recordingDeleter{fail: map[string]error{"b.png": errors.New("read-only")}}
	p := New(PipelineDeps{Hasher: hasher, Deleter: del, LockDir: t.TempDir()})

	res, err := p.Run(context.Background(), Options{Folder: dir, Mode: fingerprint.ModeExact})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Summary.DeleteFailed != 1 || res.Summary.Deleted != 1 {
		t.Errorf("unexpected summary: %+v", res.Summary)
	}
	if res.Decisions[1].Action != store.ActionDeleteFailed {
		t.Errorf("expected delete_failed for b.png, got %s", res.Decisions[1].Action)
	}
	if res.Decisions[2].Action != store.ActionDelete {
		t.Errorf("expected delete for c.png, got %s", res.Decisions[2].Action)
	}
}

func TestPipeline_DryRunDeletesNothing(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "a.png", "b.png")

	same := fingerprint.NewExact([]byte("h"))
	hasher := &fakeHasher{
		mode: fingerprint.ModeExact,
		fps:  map[string]fingerprint.Fingerprint{"a.png": same, "b.png": same},
	}
	del := &recordingDeleter{}
	p := New(PipelineDeps{Hasher: hasher, Deleter: del, LockDir: t.TempDir()})

	res, err := p.Run(context.Background(), Options{Folder: dir, Mode: fingerprint.ModeExact, DryRun: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(del.removed) != 0 {
		t.Errorf("dry run removed files: %v", del.removed)
	}
	if !res.Summary.DryRun || res.Summary.Deleted != 1 {
		t.Errorf("unexpected dry-run summary: %+v", res.Summary)
	}
	if res.Decisions[1].Action != store.ActionWouldDelete {
		t.Errorf("expected would_delete, got %s", res.Decisions[1].Action)
	}
}

func TestPipeline_SetupErrors(t *testing.T) {
	p := New(PipelineDeps{LockDir: t.TempDir()})

	_, err := p.Run(context.Background(), Options{
		Folder: filepath.Join(t.TempDir(), "missing"),
		Mode:   fingerprint.ModeExact,
	})
	var setupErr *scan.SetupError
	if !errors.As(err, &setupErr) {
		t.Fatalf("expected SetupError, got %v", err)
	}
}

func TestPipeline_FolderLocked(t *testing.T) {
	dir := t.TempDir()
	p := New(PipelineDeps{LockDir: t.TempDir()})

	abs, _ := filepath.Abs(dir)
	unlock, err := p.lock(abs)
	if err != nil {
		t.Fatalf("taking lock: %v", err)
	}
	defer unlock()

	_, err = p.Run(context.Background(), Options{Folder: dir, Mode: fingerprint.ModeExact})
	var setupErr *scan.SetupError
	if !errors.As(err, &setupErr) || !errors.Is(err, ErrFolderLocked) {
		t.Fatalf("expected locked SetupError, got %v", err)
	}
}

func TestPipeline_CancelledContext(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "a.png", "b.png")

	hasher := &fakeHasher{mode: fingerprint.ModeExact}
	del := &recordingDeleter{}
	p := New(PipelineDeps{Hasher: hasher, Deleter: del, LockDir: t.TempDir()})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Run(ctx, Options{Folder: dir, Mode: fingerprint.ModeExact})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(del.removed) != 0 {
		t.Errorf("cancelled run removed files: %v", del.removed)
	}
}

func TestPipeline_HasherModeMismatch(t *testing.T) {
	dir := t.TempDir()
	p := New(PipelineDeps{Hasher: &fakeHasher{mode: fingerprint.ModePerceptual}, LockDir: t.TempDir()})

	if _, err := p.Run(context.Background(), Options{Folder: dir, Mode: fingerprint.ModeExact}); err == nil {
		t.Fatal("expected error for mismatched hasher mode")
	}
}

func TestPipeline_ProgressAndNotify(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "a.png", "b.png", "c.png")

	hasher := &fakeHasher{
		mode: fingerprint.ModeExact,
		fps: map[string]fingerprint.Fingerprint{
			"a.png": fingerprint.NewExact([]byte("1")),
			"b.png": fingerprint.NewExact([]byte("2")),
			"c.png": fingerprint.NewExact([]byte("3")),
		},
	}
	notifier := &mockNotifier{err: errors.New("webhook down")}

	var calls []int
	p := New(PipelineDeps{
		Hasher:   hasher,
		Deleter:  &recordingDeleter{},
		Notifier: notifier,
		LockDir:  t.TempDir(),
		Progress: func(done, total int) {
			if total != 3 {
				t.Errorf("expected total 3, got %d", total)
			}
			calls = append(calls, done)
		},
	})

	if _, err := p.Run(context.Background(), Options{Folder: dir, Mode: fingerprint.ModeExact, Workers: 2}); err != nil {
		t.Fatalf("notification failure must not fail the run: %v", err)
	}
	if !reflect.DeepEqual(calls, []int{1, 2, 3}) {
		t.Errorf("progress calls = %v", calls)
	}
	if len(notifier.summaries) != 1 || notifier.summaries[0].Groups != 3 {
		t.Errorf("unexpected notifications: %+v", notifier.summaries)
	}
}
