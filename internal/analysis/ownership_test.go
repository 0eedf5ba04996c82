package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hindsightdev/hindsight/internal/history"
)

// repeatCommits returns n commits by author touching the given file.
func repeatCommits(author, path string, n int) []history.CommitRecord {
	ts := time.Now()
	var commits []history.CommitRecord
	for i := 0; i < n; i++ {
		commits = append(commits, commit("h", author, ts, change(path, 1, 0)))
	}
	return commits
}

func TestAnalyzeOwnershipSiloFlag(t *testing.T) {
	// alice holds 95% of auth.go changes
	commits := append(repeatCommits("alice", "auth.go", 19), repeatCommits("bob", "auth.go", 1)...)
	report := AnalyzeOwnership(commits)

	require.Len(t, report.Profiles, 1)
	p := report.Profiles[0]
	assert.Equal(t, "alice@example.com", p.DominantAuthor)
	assert.InDelta(t, 0.95, p.DominantShare, 1e-9)
	assert.True(t, p.KnowledgeSilo)
	require.Len(t, report.Silos, 1)
}

func TestAnalyzeOwnershipSiloBoundaryNotFlagged(t *testing.T) {
	// exactly 0.80 dominant share is not a silo
	commits := append(repeatCommits("alice", "f.go", 4), repeatCommits("bob", "f.go", 1)...)
	report := AnalyzeOwnership(commits)

	require.Len(t, report.Profiles, 1)
	assert.InDelta(t, 0.80, report.Profiles[0].DominantShare, 1e-9)
	assert.False(t, report.Profiles[0].KnowledgeSilo)
	assert.Empty(t, report.Silos)
}

func TestAnalyzeOwnershipPerFileBusFactor(t *testing.T) {
	// alice 50%, bob 40%, carol 10% exactly: carol is not significant
	commits := append(repeatCommits("alice", "f.go", 5), repeatCommits("bob", "f.go", 4)...)
	commits = append(commits, repeatCommits("carol", "f.go", 1)...)
	report := AnalyzeOwnership(commits)

	require.Len(t, report.Profiles, 1)
	assert.Equal(t, 2, report.Profiles[0].BusFactor)
}

func TestAnalyzeOwnershipSingleAuthorFiles(t *testing.T) {
	commits := append(repeatCommits("alice", "a.go", 3), repeatCommits("bob", "b.go", 2)...)
	commits = append(commits, repeatCommits("alice", "b.go", 2)...)
	report := AnalyzeOwnership(commits)
	assert.Equal(t, 1, report.SingleAuthorFiles)
}

func TestProjectBusFactorSingleOwner(t *testing.T) {
	// alice owns everything: removing her orphans all files immediately
	commits := append(repeatCommits("alice", "a.go", 3), repeatCommits("alice", "b.go", 3)...)
	report := AnalyzeOwnership(commits)

	bf := report.ProjectBusFactor
	assert.Equal(t, 1, bf.BusFactor)
	assert.Equal(t, []string{"alice@example.com"}, bf.RemovedAuthors)
	assert.Equal(t, 2, bf.TrackedFiles)
}

func TestProjectBusFactorTwoOwners(t *testing.T) {
	// alice owns two files, bob owns two files; removing alice orphans
	// exactly half, which is not a majority, so bob is removed next.
	commits := append(repeatCommits("alice", "a.go", 3), repeatCommits("alice", "b.go", 3)...)
	commits = append(commits, repeatCommits("bob", "c.go", 3)...)
	commits = append(commits, repeatCommits("bob", "d.go", 3)...)
	report := AnalyzeOwnership(commits)

	bf := report.ProjectBusFactor
	assert.Equal(t, 2, bf.BusFactor)
	assert.Equal(t, 4, bf.TrackedFiles)
}

func TestProjectBusFactorDiffuseFilesExcluded(t *testing.T) {
	// diffuse.go has eleven authors, each under the significance
	// threshold, so it never enters the tracked denominator.
	var commits []history.CommitRecord
	for _, a := range []string{"a1", "a2", "a3", "a4", "a5", "a6", "a7", "a8", "a9", "a10", "a11"} {
		commits = append(commits, repeatCommits(a, "diffuse.go", 1)...)
	}
	commits = append(commits, repeatCommits("alice", "owned.go", 3)...)
	report := AnalyzeOwnership(commits)

	assert.Equal(t, 1, report.ProjectBusFactor.TrackedFiles)
	assert.Equal(t, 1, report.ProjectBusFactor.BusFactor)
}

func TestProjectBusFactorMonotonic(t *testing.T) {
	// orphaned counts never decrease as more authors are removed
	commits := append(repeatCommits("alice", "a.go", 8), repeatCommits("bob", "a.go", 2)...)
	commits = append(commits, repeatCommits("bob", "b.go", 5)...)
	commits = append(commits, repeatCommits("carol", "b.go", 5)...)
	commits = append(commits, repeatCommits("carol", "c.go", 10)...)
	report := AnalyzeOwnership(commits)

	profiles := report.Profiles
	removed := map[string]struct{}{}
	orphanedAt := func() int {
		n := 0
		for _, p := range profiles {
			significant := false
			for _, c := range p.Contributions {
				if _, gone := removed[c.Author]; gone {
					continue
				}
				if c.Share > significantShare {
					significant = true
					break
				}
			}
			if !significant {
				n++
			}
		}
		return n
	}

	prev := orphanedAt()
	for _, author := range []string{"carol@example.com", "bob@example.com", "alice@example.com"} {
		removed[author] = struct{}{}
		cur := orphanedAt()
		assert.GreaterOrEqual(t, cur, prev)
		prev = cur
	}
	assert.Equal(t, len(profiles), prev)
}

func TestAnalyzeOwnershipEmptyLog(t *testing.T) {
	report := AnalyzeOwnership(nil)
	assert.Empty(t, report.Profiles)
	assert.Equal(t, 1, report.ProjectBusFactor.BusFactor)
	assert.Zero(t, report.ProjectBusFactor.TrackedFiles)
}
