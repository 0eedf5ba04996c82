package analysis

import (
	"sort"

	"github.com/hindsightdev/hindsight/internal/history"
)

// CouplingPair is an unordered pair of files that change together. FileA is
// always lexicographically smaller than FileB.
type CouplingPair struct {
	FileA     string  `json:"file_a"`
	FileB     string  `json:"file_b"`
	CoChanges int     `json:"co_changes"`
	ChangesA  int     `json:"changes_a"`
	ChangesB  int     `json:"changes_b"`
	Ratio     float64 `json:"ratio"`
}

// Key returns the canonical pair identifier.
func (p CouplingPair) Key() string { return p.FileA + "|" + p.FileB }

// DetectCoupling finds file pairs that co-change unexpectedly often. The
// ratio divides co-changes by the smaller of the two files' change counts,
// so a rarely-changed file coupled to a busy one still surfaces with a high
// ratio. Pairs below minRatio or minCoChanges are suppressed.
func DetectCoupling(commits []history.CommitRecord, minRatio float64, minCoChanges int) []CouplingPair {
	changes := make(map[string]int)
	type pairKey struct{ a, b string }
	coChanges := make(map[pairKey]int)

	for _, c := range commits {
		paths := make([]string, 0, len(c.Files))
		seen := make(map[string]struct{}, len(c.Files))
		for _, f := range c.Files {
			if _, dup := seen[f.Path]; dup {
				continue
			}
			seen[f.Path] = struct{}{}
			paths = append(paths, f.Path)
			changes[f.Path]++
		}
		sort.Strings(paths)
		for i := 0; i < len(paths); i++ {
			for j := i + 1; j < len(paths); j++ {
				coChanges[pairKey{paths[i], paths[j]}]++
			}
		}
	}

	pairs := make([]CouplingPair, 0, len(coChanges))
	for k, co := range coChanges {
		if co < minCoChanges {
			continue
		}
		ca, cb := changes[k.a], changes[k.b]
		denom := ca
		if cb < denom {
			denom = cb
		}
		if denom == 0 {
			continue
		}
		ratio := float64(co) / float64(denom)
		if ratio < minRatio {
			continue
		}
		pairs = append(pairs, CouplingPair{
			FileA:     k.a,
			FileB:     k.b,
			CoChanges: co,
			ChangesA:  ca,
			ChangesB:  cb,
			Ratio:     ratio,
		})
	}

	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].Ratio != pairs[j].Ratio {
			return pairs[i].Ratio > pairs[j].Ratio
		}
		return pairs[i].Key() < pairs[j].Key()
	})
	return pairs
}
