package app

import (
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/jvlcode/screen-recorder/internal/ports"
)

var archiveName = regexp.MustCompile(`^compilation_(\d+)$`)

type archive struct {
	number int
	path   string
	size   int64
}

// pruneArchives removes the oldest archived input folders until the archives
// under dir fit in maxBytes. Compilation outputs are never touched and the
// archive of keep is always retained.
func pruneArchives(dir string, maxBytes int64, keep int, logger ports.Logger) {
	archives, total, err := listArchives(dir)
	if err != nil {
		logger.Error("archive retention: scan failed", ports.Err(err))
		return
	}
	if total <= maxBytes {
		return
	}

	removed := 0
	for _, a := range archives {
		if total <= maxBytes {
			break
		}
		if a.number == keep {
			continue
		}
		if err := os.RemoveAll(a.path); err != nil {
			logger.Error("archive retention: remove failed", ports.String("dir", a.path), ports.Err(err))
			continue
		}
		total -= a.size
		removed++
	}

	if removed > 0 {
		logger.Info("archive retention completed",
			ports.Int("removed", removed),
			ports.Int64("remainingBytes", total),
		)
	}
}

// listArchives returns compilation_<n> folders ordered oldest first and
// their combined size.
func listArchives(dir string) ([]archive, int64, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, nil
		}
		return nil, 0, err
	}

	var archives []archive
	var total int64
	for _, e := range ents {
		if !e.IsDir() {
			continue
		}
		m := archiveName.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		path := filepath.Join(dir, e.Name())
		size, err := dirSize(path)
		if err != nil {
			return nil, 0, err
		}
		archives = append(archives, archive{number: n, path: path, size: size})
		total += size
	}

	sort.Slice(archives, func(i, j int) bool { return archives[i].number < archives[j].number })
	return archives, total, nil
}

func dirSize(dir string) (int64, error) {
	var total int64
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	return total, err
}
