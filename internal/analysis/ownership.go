package analysis

import (
	"sort"

	"github.com/hindsightdev/hindsight/internal/history"
)

// Share of a file's changes above which an author counts as significant.
const significantShare = 0.10

// Dominant-author share above which a file is a knowledge silo. The
// boundary value itself is not flagged.
const siloShare = 0.80

// AuthorContribution is one author's slice of a file's changes.
type AuthorContribution struct {
	Author  string  `json:"author"`
	Commits int     `json:"commits"`
	Share   float64 `json:"share"`
}

// OwnershipProfile describes who changes one file.
type OwnershipProfile struct {
	Path           string               `json:"path"`
	TotalChanges   int                  `json:"total_changes"`
	Contributions  []AuthorContribution `json:"contributions"` // sorted by share desc
	DominantAuthor string               `json:"dominant_author"`
	DominantShare  float64              `json:"dominant_share"`
	KnowledgeSilo  bool                 `json:"knowledge_silo"`
	BusFactor      int                  `json:"bus_factor"` // authors with share > 0.10
}

// BusFactorResult reports the project-wide iterative-removal outcome.
type BusFactorResult struct {
	BusFactor      int      `json:"bus_factor"`
	RemovedAuthors []string `json:"removed_authors"`
	TrackedFiles   int      `json:"tracked_files"`
}

// OwnershipReport is the full ownership analysis output.
type OwnershipReport struct {
	Profiles          []OwnershipProfile `json:"profiles"` // sorted by path
	Silos             []OwnershipProfile `json:"silos"`    // sorted by dominant share desc
	SingleAuthorFiles int                `json:"single_author_files"`
	ProjectBusFactor  BusFactorResult    `json:"project_bus_factor"`
}

// AnalyzeOwnership builds per-file author-share tables from the commit log
// and derives silo flags, per-file bus factors, and the project bus factor.
func AnalyzeOwnership(commits []history.CommitRecord) OwnershipReport {
	byFile := make(map[string]map[string]int)
	for _, c := range commits {
		seen := make(map[string]struct{}, len(c.Files))
		for _, f := range c.Files {
			if _, dup := seen[f.Path]; dup {
				continue
			}
			seen[f.Path] = struct{}{}
			authors := byFile[f.Path]
			if authors == nil {
				authors = make(map[string]int)
				byFile[f.Path] = authors
			}
			authors[c.AuthorEmail]++
		}
	}

	report := OwnershipReport{}
	for path, authors := range byFile {
		profile := buildProfile(path, authors)
		report.Profiles = append(report.Profiles, profile)
		if profile.KnowledgeSilo {
			report.Silos = append(report.Silos, profile)
		}
		if len(profile.Contributions) == 1 {
			report.SingleAuthorFiles++
		}
	}
	sort.Slice(report.Profiles, func(i, j int) bool {
		return report.Profiles[i].Path < report.Profiles[j].Path
	})
	sort.Slice(report.Silos, func(i, j int) bool {
		if report.Silos[i].DominantShare != report.Silos[j].DominantShare {
			return report.Silos[i].DominantShare > report.Silos[j].DominantShare
		}
		return report.Silos[i].Path < report.Silos[j].Path
	})

	report.ProjectBusFactor = computeBusFactor(report.Profiles)
	return report
}

func buildProfile(path string, authors map[string]int) OwnershipProfile {
	total := 0
	for _, n := range authors {
		total += n
	}
	profile := OwnershipProfile{Path: path, TotalChanges: total}
	for author, n := range authors {
		share := float64(n) / float64(total)
		profile.Contributions = append(profile.Contributions, AuthorContribution{
			Author:  author,
			Commits: n,
			Share:   share,
		})
		if share > significantShare {
			profile.BusFactor++
		}
	}
	sort.Slice(profile.Contributions, func(i, j int) bool {
		if profile.Contributions[i].Share != profile.Contributions[j].Share {
			return profile.Contributions[i].Share > profile.Contributions[j].Share
		}
		return profile.Contributions[i].Author < profile.Contributions[j].Author
	})
	top := profile.Contributions[0]
	profile.DominantAuthor = top.Author
	profile.DominantShare = top.Share
	profile.KnowledgeSilo = top.Share > siloShare
	return profile
}

// computeBusFactor repeatedly removes the author holding the largest total
// share of changes across all tracked files until more than half of the
// tracked files have no remaining significant author. Shares stay relative
// to each file's original change total, so removal is monotonic. Files with
// no significant author to begin with (diffuse ownership) are excluded from
// the denominator.
func computeBusFactor(profiles []OwnershipProfile) BusFactorResult {
	type fileShares struct {
		shares map[string]float64
	}
	tracked := make([]fileShares, 0, len(profiles))
	authorTotals := make(map[string]float64)
	for _, p := range profiles {
		significant := false
		shares := make(map[string]float64, len(p.Contributions))
		for _, c := range p.Contributions {
			shares[c.Author] = c.Share
			if c.Share > significantShare {
				significant = true
			}
		}
		if !significant {
			continue
		}
		tracked = append(tracked, fileShares{shares: shares})
		for author, share := range shares {
			authorTotals[author] += share
		}
	}

	result := BusFactorResult{TrackedFiles: len(tracked)}
	if len(tracked) == 0 {
		result.BusFactor = 1
		return result
	}

	removed := make(map[string]struct{})
	for {
		// pick the remaining author with the largest total share,
		// ties broken by name for determinism
		var top string
		var topShare float64
		for author, total := range authorTotals {
			if _, gone := removed[author]; gone {
				continue
			}
			if total > topShare || (total == topShare && (top == "" || author < top)) {
				top = author
				topShare = total
			}
		}
		if top == "" {
			break
		}
		removed[top] = struct{}{}
		result.RemovedAuthors = append(result.RemovedAuthors, top)

		orphaned := 0
		for _, f := range tracked {
			hasSignificant := false
			for author, share := range f.shares {
				if _, gone := removed[author]; gone {
					continue
				}
				if share > significantShare {
					hasSignificant = true
					break
				}
			}
			if !hasSignificant {
				orphaned++
			}
		}
		if orphaned*2 > len(tracked) {
			break
		}
	}

	result.BusFactor = len(result.RemovedAuthors)
	if result.BusFactor < 1 {
		result.BusFactor = 1
	}
	return result
}
