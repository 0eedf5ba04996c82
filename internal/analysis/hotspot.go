// Package analysis computes history signals from an immutable commit log:
// hotspot scores, temporal coupling, and ownership concentration. All three
// analyzers are pure computation over the same input and write only to
// their own results, so they are safe to run in parallel.
package analysis

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/hindsightdev/hindsight/internal/history"
)

// FileChurn is one file's change activity in the analysis window.
type FileChurn struct {
	Path         string    `json:"path"`
	Revisions    int       `json:"revisions"`
	Churn        int       `json:"churn"` // total added + deleted lines
	CurrentLOC   int       `json:"current_loc"`
	Authors      int       `json:"authors"`
	LastModified time.Time `json:"last_modified"`
	Score        float64   `json:"score"`
}

const (
	weightRevisions = 0.5
	weightRelChurn  = 0.3
	weightSize      = 0.2
)

// DetectHotspots ranks files by historical change risk. Files no longer on
// disk under repoRoot are excluded since they cannot be reviewed. An empty
// commit log yields an empty result. When limit > 0 the result is capped.
func DetectHotspots(repoRoot string, commits []history.CommitRecord, limit int) []FileChurn {
	type acc struct {
		revisions int
		churn     int
		authors   map[string]struct{}
		last      time.Time
	}
	byFile := make(map[string]*acc)
	for _, c := range commits {
		for _, f := range c.Files {
			a := byFile[f.Path]
			if a == nil {
				a = &acc{authors: make(map[string]struct{})}
				byFile[f.Path] = a
			}
			a.revisions++
			a.churn += f.Additions + f.Deletions
			a.authors[c.AuthorEmail] = struct{}{}
			if c.Timestamp.After(a.last) {
				a.last = c.Timestamp
			}
		}
	}

	candidates := make([]FileChurn, 0, len(byFile))
	relChurn := make(map[string]float64, len(byFile))
	for path, a := range byFile {
		loc, ok := countLines(filepath.Join(repoRoot, path))
		if !ok {
			continue
		}
		fc := FileChurn{
			Path:         path,
			Revisions:    a.revisions,
			Churn:        a.churn,
			CurrentLOC:   loc,
			Authors:      len(a.authors),
			LastModified: a.last,
		}
		// zero-size files are scored on raw churn alone
		if loc > 0 {
			relChurn[path] = float64(a.churn) / float64(loc)
		} else {
			relChurn[path] = float64(a.churn)
		}
		candidates = append(candidates, fc)
	}
	if len(candidates) == 0 {
		return nil
	}

	revNorm := newNormalizer()
	churnNorm := newNormalizer()
	sizeNorm := newNormalizer()
	for _, fc := range candidates {
		revNorm.observe(float64(fc.Revisions))
		churnNorm.observe(relChurn[fc.Path])
		sizeNorm.observe(float64(fc.CurrentLOC))
	}
	for i := range candidates {
		fc := &candidates[i]
		fc.Score = weightRevisions*revNorm.norm(float64(fc.Revisions)) +
			weightRelChurn*churnNorm.norm(relChurn[fc.Path]) +
			weightSize*sizeNorm.norm(float64(fc.CurrentLOC))
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Path < candidates[j].Path
	})
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates
}

// normalizer min-max scales observations into [0,1].
type normalizer struct {
	min, max float64
	seen     bool
}

func newNormalizer() *normalizer { return &normalizer{} }

func (n *normalizer) observe(v float64) {
	if !n.seen {
		n.min, n.max = v, v
		n.seen = true
		return
	}
	if v < n.min {
		n.min = v
	}
	if v > n.max {
		n.max = v
	}
}

func (n *normalizer) norm(v float64) float64 {
	if !n.seen || n.max == n.min {
		return 0
	}
	return (v - n.min) / (n.max - n.min)
}

func countLines(path string) (int, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	if len(data) == 0 {
		return 0, true
	}
	lines := bytes.Count(data, []byte{'\n'})
	if data[len(data)-1] != '\n' {
		lines++
	}
	return lines, true
}
