package review

import (
	"regexp"
	"sort"
	"strings"
)

var nonWord = regexp.MustCompile(`[^a-z0-9]+`)

// normalizeMessage collapses a message to its word content so that
// near-identical phrasings ("Missing nil check." vs "missing nil-check")
// compare equal.
func normalizeMessage(msg string) string {
	return strings.TrimSpace(nonWord.ReplaceAllString(strings.ToLower(msg), " "))
}

// dedupKey groups findings on the same file region with materially
// similar messages.
func dedupKey(f Finding) string {
	return StableID(f.File, f.Line, normalizeMessage(f.Message))
}

// Dedup merges overlapping findings. The highest-confidence duplicate
// contributes the surviving severity and message; provenance trails are
// combined. Idempotent: running it on its own output changes nothing.
// The second return value lists the merged-away duplicates.
func Dedup(findings []Finding) ([]Finding, []FilteredFinding) {
	type group struct {
		kept  Finding
		order int
	}
	groups := make(map[string]*group)
	var removed []FilteredFinding

	for i, f := range findings {
		key := dedupKey(f)
		g, exists := groups[key]
		if !exists {
			groups[key] = &group{kept: f, order: i}
			continue
		}
		if f.Confidence > g.kept.Confidence {
			loser := g.kept
			merged := f
			merged.Provenance = mergeProvenance(loser.Provenance, f.Provenance)
			g.kept = merged
			removed = append(removed, FilteredFinding{Finding: loser, Reason: ReasonDuplicate})
		} else {
			g.kept.Provenance = mergeProvenance(g.kept.Provenance, f.Provenance)
			removed = append(removed, FilteredFinding{Finding: f, Reason: ReasonDuplicate})
		}
	}

	out := make([]Finding, 0, len(groups))
	ordered := make([]*group, 0, len(groups))
	for _, g := range groups {
		ordered = append(ordered, g)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].order < ordered[j].order })
	for _, g := range ordered {
		out = append(out, g.kept)
	}
	return out, removed
}

func mergeProvenance(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	var out []string
	for _, p := range append(append([]string{}, a...), b...) {
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

// SortBySeverity orders findings most severe first, then by file path,
// then by line.
func SortBySeverity(findings []Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		if findings[i].Severity != findings[j].Severity {
			return findings[i].Severity.Rank() < findings[j].Severity.Rank()
		}
		if findings[i].File != findings[j].File {
			return findings[i].File < findings[j].File
		}
		return findings[i].Line < findings[j].Line
	})
}
