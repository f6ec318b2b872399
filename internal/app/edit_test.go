package app

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jvlcode/screen-recorder/internal/adapters/catalog"
	"github.com/jvlcode/screen-recorder/internal/adapters/fs"
	"github.com/jvlcode/screen-recorder/internal/domain"
)

var base = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func sampleMeta() *domain.SegmentMeta {
	return &domain.SegmentMeta{
		StartEpochMs: 1_000_000,
		Clicks: []domain.Click{
			{X: 100, Y: 200, TimeMs: 500},
			{X: 300, Y: 400, TimeMs: 2500},
			{X: 500, Y: 600, TimeMs: 9000},
		},
	}
}

func TestTrimSegment_WithRipples(t *testing.T) {
	ripple := filepath.Join(t.TempDir(), "ripple.png")
	if err := os.WriteFile(ripple, []byte("png"), 0o644); err != nil {
		t.Fatal(err)
	}
	f := newFixture(t, func(s *Settings) { s.RippleImage = ripple })
	seg := f.addSegment("record_1.mp4", base, sampleMeta())

	got, err := f.svc.TrimSegment(context.Background(), seg, 2, 5)
	if err != nil {
		t.Fatalf("TrimSegment: %v", err)
	}
	if got != seg {
		t.Fatalf("path = %s, want %s", got, seg)
	}
	if readFile(t, seg) != "encoded" {
		t.Fatal("segment not replaced by trimmed output")
	}
	if pathExists(trimmedPath(seg)) || pathExists(f.store.MetaPath(trimmedPath(seg))) {
		t.Fatal("temporary output left behind")
	}

	args := f.enc.runs[0]
	if !containsSeq(args, "-ss", "2.000", "-to", "5.000", "-i", seg) {
		t.Errorf("range args missing: %v", args)
	}
	if !containsSeq(args, "-i", ripple) {
		t.Errorf("ripple input missing: %v", args)
	}
	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "overlay=x=275:y=375:enable='between(t,0.500,1.000)'") {
		t.Errorf("overlay for re-based click missing: %s", joined)
	}

	meta, err := f.store.LoadMeta(seg)
	if err != nil {
		t.Fatal(err)
	}
	if meta.StartEpochMs != 1_002_000 {
		t.Errorf("StartEpochMs = %d, want 1002000", meta.StartEpochMs)
	}
	if len(meta.Clicks) != 1 || meta.Clicks[0].TimeMs != 500 || meta.Clicks[0].X != 300 {
		t.Errorf("clicks = %+v", meta.Clicks)
	}
}

func TestTrimSegment_MissingRippleImageSkipsOverlay(t *testing.T) {
	f := newFixture(t, func(s *Settings) { s.RippleImage = filepath.Join(t.TempDir(), "absent.png") })
	seg := f.addSegment("record_1.mp4", base, sampleMeta())

	if _, err := f.svc.TrimSegment(context.Background(), seg, 0, 3); err != nil {
		t.Fatal(err)
	}
	for _, a := range f.enc.runs[0] {
		if a == "-filter_complex" {
			t.Fatalf("unexpected filter graph: %v", f.enc.runs[0])
		}
	}
	meta, _ := f.store.LoadMeta(seg)
	if len(meta.Clicks) != 2 {
		t.Fatalf("clicks = %+v, want 2 re-based clicks", meta.Clicks)
	}
}

func TestTrimSegment_FailureKeepsOriginal(t *testing.T) {
	f := newFixture(t, nil)
	seg := f.addSegment("record_1.mp4", base, sampleMeta())
	f.enc.runFn = func(args []string) error {
		_ = os.WriteFile(args[len(args)-1], []byte("partial"), 0o644)
		return &domain.ExitError{Op: "ffmpeg", Code: 1, Stderr: "Invalid data"}
	}

	_, err := f.svc.TrimSegment(context.Background(), seg, 1, 2)
	if !errors.Is(err, domain.ErrEncodeFailed) {
		t.Fatalf("expected ErrEncodeFailed, got %v", err)
	}
	var exitErr *domain.ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != 1 {
		t.Fatalf("exit error = %+v", exitErr)
	}
	if readFile(t, seg) != "original:record_1.mp4" {
		t.Fatal("original segment modified")
	}
	if pathExists(trimmedPath(seg)) {
		t.Fatal("partial output left behind")
	}
	meta, _ := f.store.LoadMeta(seg)
	if meta.StartEpochMs != 1_000_000 || len(meta.Clicks) != 3 {
		t.Fatalf("sidecar modified: %+v", meta)
	}
}

// metaWriteFailure fails every sidecar write.
type metaWriteFailure struct {
	*fs.SegmentStore
}

func (metaWriteFailure) WriteMeta(string, domain.SegmentMeta) error {
	return errors.New("disk full")
}

func TestTrimSegment_MetaWriteFailureKeepsOriginal(t *testing.T) {
	f := newFixture(t, nil)
	seg := f.addSegment("record_1.mp4", base, sampleMeta())

	svc := NewService(Deps{
		Encoder: f.enc,
		Store:   metaWriteFailure{f.store},
		Now:     f.clock.Now,
	}, f.svc.Settings())

	if _, err := svc.TrimSegment(context.Background(), seg, 1, 2); err == nil {
		t.Fatal("TrimSegment should fail when the sidecar cannot be written")
	}
	if readFile(t, seg) != "original:record_1.mp4" {
		t.Fatal("original segment replaced without its sidecar")
	}
	if pathExists(trimmedPath(seg)) {
		t.Fatal("trimmed output left behind")
	}
	meta, err := f.store.LoadMeta(seg)
	if err != nil || meta.StartEpochMs != 1_000_000 || len(meta.Clicks) != 3 {
		t.Fatalf("sidecar = %+v, %v; want untouched", meta, err)
	}
}

func TestTrimSegment_Rejects(t *testing.T) {
	f := newFixture(t, nil)
	seg := f.addSegment("record_1.mp4", base, sampleMeta())
	bare := f.addSegment("record_2.mp4", base, nil)

	tests := []struct {
		name       string
		file       string
		start, end float64
		want       error
	}{
		{"end before start", seg, 5, 2, domain.ErrInvalidRange},
		{"empty range", seg, 3, 3, domain.ErrInvalidRange},
		{"negative start", seg, -1, 2, domain.ErrInvalidRange},
		{"missing sidecar", bare, 0, 1, domain.ErrMetaMissing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.TrimSegment(context.Background(), tt.file, tt.start, tt.end)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
	if f.enc.runCount() != 0 {
		t.Fatal("encoder must not run for rejected trims")
	}
}

func TestTrimSegment_FileURL(t *testing.T) {
	f := newFixture(t, nil)
	seg := f.addSegment("record 1.mp4", base, sampleMeta())
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(seg)}

	got, err := f.svc.TrimSegment(context.Background(), u.String(), 0, 1)
	if err != nil {
		t.Fatalf("TrimSegment(%s): %v", u.String(), err)
	}
	if got != seg {
		t.Fatalf("path = %s, want %s", got, seg)
	}
}

func TestTrimSegment_ActiveSegmentRejected(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	active, err := f.svc.StartRecording(ctx)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := f.svc.TrimSegment(ctx, active, 0, 1); !errors.Is(err, domain.ErrSegmentActive) {
		t.Fatalf("expected ErrSegmentActive, got %v", err)
	}
	if _, err := f.svc.DiscardSegment(ctx, active); !errors.Is(err, domain.ErrSegmentActive) {
		t.Fatalf("expected ErrSegmentActive, got %v", err)
	}
}

func TestDiscardSegment(t *testing.T) {
	f := newFixture(t, nil)
	seg := f.addSegment("record_1.mp4", base, sampleMeta())

	got, err := f.svc.DiscardSegment(context.Background(), seg)
	if err != nil {
		t.Fatal(err)
	}
	if got != seg {
		t.Fatalf("path = %s, want %s", got, seg)
	}
	if pathExists(seg) || pathExists(f.store.MetaPath(seg)) {
		t.Fatal("segment or sidecar still present")
	}

	if _, err := f.svc.DiscardSegment(context.Background(), seg); err != nil {
		t.Fatalf("discarding twice: %v", err)
	}
}

func TestDiscardSegment_AutoResume(t *testing.T) {
	f := newFixture(t, func(s *Settings) { s.AutoResume = true })
	seg := f.addSegment("record_1.mp4", base, sampleMeta())

	if _, err := f.svc.DiscardSegment(context.Background(), seg); err != nil {
		t.Fatal(err)
	}
	if f.svc.Status().State != StateRecording {
		t.Fatalf("state = %v, want Recording", f.svc.Status().State)
	}
}

func TestFinalize(t *testing.T) {
	f := newFixture(t, nil)
	compDir := f.svc.Settings().CompilationsDir
	if err := os.MkdirAll(compDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(compDir, "compilation_3.mp4"), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	second := f.addSegment("record_b.mp4", base.Add(time.Minute), sampleMeta())
	first := f.addSegment("record_a.mp4", base, sampleMeta())
	third := f.addSegment("record_c.mp4", base.Add(2*time.Minute), nil)

	var manifest string
	f.enc.runFn = func(args []string) error {
		for i, a := range args {
			if a == "-i" {
				manifest = readFile(t, args[i+1])
			}
		}
		return os.WriteFile(args[len(args)-1], []byte("joined"), 0o644)
	}

	comp, err := f.svc.Finalize(context.Background())
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if comp.Number != 4 {
		t.Fatalf("Number = %d, want 4", comp.Number)
	}
	if comp.Path != filepath.Join(compDir, "compilation_4.mp4") || readFile(t, comp.Path) != "joined" {
		t.Fatalf("compilation output wrong: %s", comp.Path)
	}

	var want strings.Builder
	for _, p := range []string{first, second, third} {
		fmt.Fprintf(&want, "file '%s'\n", filepath.ToSlash(p))
	}
	if manifest != want.String() {
		t.Fatalf("manifest =\n%s\nwant\n%s", manifest, want.String())
	}

	archive := filepath.Join(compDir, "compilation_4")
	for _, name := range []string{"record_a.mp4", "record_a.json", "record_b.mp4", "record_b.json", "record_c.mp4", "filelist.txt"} {
		if !pathExists(filepath.Join(archive, name)) {
			t.Errorf("%s not archived", name)
		}
	}
	if segs, _ := f.svc.Segments(); len(segs) != 0 {
		t.Fatalf("segments left after finalize: %+v", segs)
	}
	if len(f.catalog.committed) != 1 || f.catalog.committed[0].Number != 4 {
		t.Fatalf("catalog = %+v", f.catalog.committed)
	}
	if got := comp.Segments; len(got) != 3 || got[0] != "record_a.mp4" {
		t.Fatalf("Segments = %v", got)
	}
}

func TestFinalize_EmptyDirectoryStartsAtOne(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	store, err := catalog.Open(filepath.Join(f.root, "catalog.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	compDir := f.svc.Settings().CompilationsDir
	for n := 1; n <= 3; n++ {
		if err := store.Commit(ctx, domain.Compilation{
			Number: n,
			Path:   filepath.Join(compDir, fmt.Sprintf("compilation_%d.mp4", n)),
		}); err != nil {
			t.Fatal(err)
		}
	}

	svc := NewService(Deps{
		Encoder: f.enc,
		Store:   f.store,
		Catalog: store,
		Now:     f.clock.Now,
	}, f.svc.Settings())
	f.addSegment("record_a.mp4", base, sampleMeta())

	comp, err := svc.Finalize(ctx)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if comp.Number != 1 || comp.Path != filepath.Join(compDir, "compilation_1.mp4") {
		t.Fatalf("compilation = %d %s, want compilation_1.mp4", comp.Number, comp.Path)
	}
}

func TestFinalize_NoSegments(t *testing.T) {
	f := newFixture(t, nil)
	if _, err := f.svc.Finalize(context.Background()); !errors.Is(err, domain.ErrNoSegments) {
		t.Fatalf("expected ErrNoSegments, got %v", err)
	}
	if f.enc.runCount() != 0 {
		t.Fatal("encoder must not run")
	}
}

func TestFinalize_ConcatFailureMovesNothing(t *testing.T) {
	f := newFixture(t, nil)
	seg := f.addSegment("record_a.mp4", base, sampleMeta())
	f.enc.runFn = func(args []string) error {
		_ = os.WriteFile(args[len(args)-1], []byte("partial"), 0o644)
		return &domain.ExitError{Op: "ffmpeg", Code: 1, Stderr: "Impossible to open"}
	}

	_, err := f.svc.Finalize(context.Background())
	if !errors.Is(err, domain.ErrConcatFailed) {
		t.Fatalf("expected ErrConcatFailed, got %v", err)
	}
	if !pathExists(seg) || !pathExists(f.store.MetaPath(seg)) {
		t.Fatal("inputs moved after failed concat")
	}
	compDir := f.svc.Settings().CompilationsDir
	if pathExists(filepath.Join(compDir, "compilation_1.mp4")) || pathExists(filepath.Join(compDir, "compilation_1")) {
		t.Fatal("partial compilation left behind")
	}
	if pathExists(filepath.Join(f.store.Dir(), domain.ManifestName)) {
		t.Fatal("manifest left behind")
	}
	if len(f.catalog.released) != 1 || f.catalog.released[0] != 1 {
		t.Fatalf("released = %v", f.catalog.released)
	}
}

func TestFinalize_SkipsActiveSegment(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	done := f.addSegment("record_a.mp4", base, sampleMeta())

	active, err := f.svc.StartRecording(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(active, []byte("growing"), 0o644); err != nil {
		t.Fatal(err)
	}

	comp, err := f.svc.Finalize(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(comp.Segments) != 1 || comp.Segments[0] != filepath.Base(done) {
		t.Fatalf("Segments = %v", comp.Segments)
	}
	if !pathExists(active) {
		t.Fatal("active segment was archived")
	}
}

func TestFinalize_EdgeTrim(t *testing.T) {
	f := newFixture(t, func(s *Settings) { s.EdgeTrim = 500 * time.Millisecond })
	long := f.addSegment("record_a.mp4", base, nil)
	short := f.addSegment("record_b.mp4", base.Add(time.Second), nil)
	f.enc.durations = map[string]float64{long: 10, short: 0.8}

	comp, err := f.svc.Finalize(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	cleaned := filepath.Join(f.store.Dir(), domain.CleanedPrefix+"record_a.mp4")
	if !containsSeq(f.enc.runs[0], "-ss", "0.500", "-to", "9.500", "-i", long, "-c", "copy", cleaned) {
		t.Fatalf("edge trim args = %v", f.enc.runs[0])
	}
	if len(f.enc.runs) != 2 {
		t.Fatalf("runs = %d, want edge trim + concat", len(f.enc.runs))
	}
	if pathExists(cleaned) {
		t.Fatal("intermediate not removed")
	}
	if !pathExists(filepath.Join(comp.ArchiveDir, "record_a.mp4")) {
		t.Fatal("original input not archived")
	}
}

func TestEditsAreSerialized(t *testing.T) {
	f := newFixture(t, nil)
	seg := f.addSegment("record_a.mp4", base, sampleMeta())

	entered := make(chan struct{})
	release := make(chan struct{})
	f.enc.runFn = func(args []string) error {
		close(entered)
		<-release
		return os.WriteFile(args[len(args)-1], []byte("joined"), 0o644)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if _, err := f.svc.Finalize(context.Background()); err != nil {
			t.Errorf("Finalize: %v", err)
		}
	}()

	<-entered
	if _, err := f.svc.TrimSegment(context.Background(), seg, 0, 1); !errors.Is(err, domain.ErrBusy) {
		t.Errorf("expected ErrBusy, got %v", err)
	}
	close(release)
	wg.Wait()
}
