package catalog

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jvlcode/screen-recorder/internal/domain"
)

var testDir = filepath.FromSlash("/c")

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "db", "catalog.sqlite"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_ReserveRespectsFloorAndHistory(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	n, err := s.Reserve(ctx, testDir, 0)
	if err != nil || n != 1 {
		t.Fatalf("Reserve(0) = %d, %v; want 1", n, err)
	}
	n, err = s.Reserve(ctx, testDir, 7)
	if err != nil || n != 8 {
		t.Fatalf("Reserve(7) = %d, %v; want 8", n, err)
	}
	n, err = s.Reserve(ctx, testDir, 2)
	if err != nil || n != 9 {
		t.Fatalf("Reserve(2) = %d, %v; want 9", n, err)
	}
}

func TestStore_ReleaseFreesNumber(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	n, _ := s.Reserve(ctx, testDir, 0)
	if err := s.Release(ctx, testDir, n); err != nil {
		t.Fatal(err)
	}
	again, err := s.Reserve(ctx, testDir, 0)
	if err != nil || again != n {
		t.Fatalf("Reserve after Release = %d, %v; want %d", again, err, n)
	}
}

func TestStore_ConcurrentReservationsAreUnique(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	const workers = 8
	var wg sync.WaitGroup
	got := make(chan int, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := s.Reserve(ctx, testDir, 0)
			if err != nil {
				t.Errorf("Reserve() error = %v", err)
				return
			}
			got <- n
		}()
	}
	wg.Wait()
	close(got)

	seen := map[int]bool{}
	for n := range got {
		if seen[n] {
			t.Fatalf("number %d handed out twice", n)
		}
		seen[n] = true
	}
	if len(seen) != workers {
		t.Fatalf("expected %d reservations, got %d", workers, len(seen))
	}
}

func TestStore_CommitAndList(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		n, err := s.Reserve(ctx, testDir, i)
		if err != nil {
			t.Fatal(err)
		}
		err = s.Commit(ctx, domain.Compilation{
			Number:     n,
			Path:       filepath.Join(testDir, fmt.Sprintf("compilation_%d.mp4", n)),
			ArchiveDir: filepath.Join(testDir, fmt.Sprintf("compilation_%d", n)),
			Segments:   []string{"a.mp4", "b.mp4"},
			CreatedAt:  time.UnixMilli(1700000000000),
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	if _, err := s.Reserve(ctx, testDir, 2); err != nil {
		t.Fatal(err)
	}

	list, err := s.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Fatalf("List() returned %d, want 2 (reservations excluded)", len(list))
	}
	if list[0].Number != 2 || list[1].Number != 1 {
		t.Fatalf("unexpected order: %+v", list)
	}
	if len(list[0].Segments) != 2 || list[0].Segments[1] != "b.mp4" {
		t.Fatalf("segments = %v", list[0].Segments)
	}
	if !list[0].CreatedAt.Equal(time.UnixMilli(1700000000000)) {
		t.Fatalf("CreatedAt = %v", list[0].CreatedAt)
	}
}

func TestStore_ClearStale(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.Reserve(ctx, testDir, 0); err != nil {
		t.Fatal(err)
	}
	n, err := s.ClearStale(ctx)
	if err != nil || n != 1 {
		t.Fatalf("ClearStale() = %d, %v", n, err)
	}
}

func TestStore_FinishedCompilationsDoNotRaiseNumbering(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		n, err := s.Reserve(ctx, testDir, i)
		if err != nil {
			t.Fatal(err)
		}
		if err := s.Commit(ctx, domain.Compilation{
			Number: n,
			Path:   filepath.Join(testDir, fmt.Sprintf("compilation_%d.mp4", n)),
		}); err != nil {
			t.Fatal(err)
		}
	}

	// The directory was emptied: numbering starts over.
	n, err := s.Reserve(ctx, testDir, 0)
	if err != nil || n != 1 {
		t.Fatalf("Reserve(empty dir) = %d, %v; want 1", n, err)
	}
	if err := s.Commit(ctx, domain.Compilation{Number: n, Path: filepath.Join(testDir, "compilation_1.mp4")}); err != nil {
		t.Fatalf("Commit over an older row: %v", err)
	}

	other := filepath.FromSlash("/elsewhere")
	n, err = s.Reserve(ctx, other, 0)
	if err != nil || n != 1 {
		t.Fatalf("Reserve(other dir) = %d, %v; want 1", n, err)
	}

	list, err := s.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 3 {
		t.Fatalf("List() returned %d rows, want 3", len(list))
	}
}

func TestStore_ReservationsArePerDirectory(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if n, _ := s.Reserve(ctx, testDir, 0); n != 1 {
		t.Fatalf("first reservation = %d", n)
	}
	if n, _ := s.Reserve(ctx, testDir+string(filepath.Separator), 0); n != 2 {
		t.Fatalf("second reservation in the same dir = %d, want 2", n)
	}
	if n, _ := s.Reserve(ctx, filepath.FromSlash("/d"), 0); n != 1 {
		t.Fatalf("reservation in another dir = %d, want 1", n)
	}
}
