package stages

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const eventPrefix = "event"

// PerEventPath returns the path of the per-event file `name` in dir, e.g.
// dir/event000000042-hits.csv. Event numbers are zero-padded to nine
// digits so directory listings sort by event.
func PerEventPath(dir, name string, eventIndex uint64) string {
	return filepath.Join(dir, fmt.Sprintf("%s%09d-%s", eventPrefix, eventIndex, name))
}

// EventFilesRange scans dir for per-event files called `name` and returns
// the half-open event range [first, last+1) they cover. Both are zero when
// no file matches.
func EventFilesRange(dir, name string) (first, end uint64, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, 0, fmt.Errorf("scan %s: %w", dir, err)
	}

	suffix := "-" + name
	found := false
	for _, e := range entries {
		fname := e.Name()
		if e.IsDir() || !strings.HasPrefix(fname, eventPrefix) || !strings.HasSuffix(fname, suffix) {
			continue
		}
		digits := strings.TrimSuffix(strings.TrimPrefix(fname, eventPrefix), suffix)
		n, err := strconv.ParseUint(digits, 10, 64)
		if err != nil {
			continue
		}
		if !found || n < first {
			first = n
		}
		if !found || n+1 > end {
			end = n + 1
		}
		found = true
	}
	return first, end, nil
}
