package logging

import (
	"os"
	"path/filepath"
	"sort"
	"time"
)

// PruneRotated removes rotated siblings of path ("path.<suffix>") whose
// modification time is older than retentionDays. The active file is never
// touched. A retentionDays value of 0 disables pruning. Removal failures are
// skipped; the removed paths are returned in lexical order.
func PruneRotated(path string, retentionDays int, now time.Time) []string {
	if retentionDays <= 0 || path == "" {
		return nil
	}
	cutoff := now.AddDate(0, 0, -retentionDays)

	matches, err := filepath.Glob(escapeGlob(path) + ".*")
	if err != nil {
		return nil
	}
	sort.Strings(matches)

	var removed []string
	for _, candidate := range matches {
		if candidate == path {
			continue
		}
		info, err := os.Stat(candidate)
		if err != nil || info.IsDir() {
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(candidate); err != nil {
			continue
		}
		removed = append(removed, candidate)
	}
	return removed
}

func escapeGlob(path string) string {
	var out []rune
	for _, r := range path {
		switch r {
		case '*', '?', '[', '\\':
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(out)
}
