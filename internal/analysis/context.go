package analysis

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/hindsightdev/hindsight/internal/history"
)

// ContextOptions bounds the size of the fused history bundle.
type ContextOptions struct {
	MaxHotspots  int
	MaxPairs     int
	MaxSilos     int
	MinRatio     float64
	MinCoChanges int
}

// DefaultContextOptions mirrors the engine defaults.
func DefaultContextOptions() ContextOptions {
	return ContextOptions{
		MaxHotspots:  10,
		MaxPairs:     10,
		MaxSilos:     5,
		MinRatio:     0.3,
		MinCoChanges: 3,
	}
}

// HistoryContext is the read-only snapshot of history signals consumed once
// per review. Identical inputs always render to identical bytes.
type HistoryContext struct {
	Hotspots  []FileChurn        `json:"hotspots"`
	Coupling  []CouplingPair     `json:"coupling"`
	Silos     []OwnershipProfile `json:"silos"`
	BusFactor BusFactorResult    `json:"bus_factor"`
}

// Empty reports whether the snapshot carries no signal at all.
func (h *HistoryContext) Empty() bool {
	return h == nil || (len(h.Hotspots) == 0 && len(h.Coupling) == 0 && len(h.Silos) == 0)
}

// BuildContext fuses the three analyses into one truncated bundle.
func BuildContext(hotspots []FileChurn, pairs []CouplingPair, ownership OwnershipReport, opts ContextOptions) *HistoryContext {
	hc := &HistoryContext{BusFactor: ownership.ProjectBusFactor}
	hc.Hotspots = truncate(hotspots, opts.MaxHotspots)
	hc.Coupling = truncate(pairs, opts.MaxPairs)
	hc.Silos = truncate(ownership.Silos, opts.MaxSilos)
	return hc
}

func truncate[T any](in []T, limit int) []T {
	if limit > 0 && len(in) > limit {
		return in[:limit]
	}
	return in
}

// Analyze runs the three analyzers in parallel over the same immutable
// commit log and fuses their outputs. The analyzers share no mutable state;
// each writes only to its own result.
func Analyze(ctx context.Context, repoRoot string, commits []history.CommitRecord, opts ContextOptions) (*HistoryContext, error) {
	var (
		hotspots  []FileChurn
		pairs     []CouplingPair
		ownership OwnershipReport
	)

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		hotspots = DetectHotspots(repoRoot, commits, opts.MaxHotspots)
		return nil
	})
	g.Go(func() error {
		pairs = DetectCoupling(commits, opts.MinRatio, opts.MinCoChanges)
		return nil
	})
	g.Go(func() error {
		ownership = AnalyzeOwnership(commits)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return BuildContext(hotspots, pairs, ownership, opts), nil
}

// Render produces the compact text block injected into generation prompts.
// Deterministic for identical inputs.
func (h *HistoryContext) Render() string {
	if h.Empty() {
		return ""
	}
	var b strings.Builder
	if len(h.Hotspots) > 0 {
		b.WriteString("Change hotspots (files with high historical churn):\n")
		for _, fc := range h.Hotspots {
			fmt.Fprintf(&b, "- %s: score %.2f, %d revisions, %d lines churned, %d authors\n",
				fc.Path, fc.Score, fc.Revisions, fc.Churn, fc.Authors)
		}
	}
	if len(h.Coupling) > 0 {
		b.WriteString("Temporally coupled files (tend to change together):\n")
		for _, p := range h.Coupling {
			fmt.Fprintf(&b, "- %s and %s: %.0f%% coupled (%d co-changes)\n",
				p.FileA, p.FileB, p.Ratio*100, p.CoChanges)
		}
	}
	if len(h.Silos) > 0 {
		b.WriteString("Knowledge silos (single-owner files):\n")
		for _, s := range h.Silos {
			fmt.Fprintf(&b, "- %s: %s owns %.0f%% of changes\n",
				s.Path, s.DominantAuthor, s.DominantShare*100)
		}
	}
	if h.BusFactor.TrackedFiles > 0 {
		fmt.Fprintf(&b, "Project bus factor: %d\n", h.BusFactor.BusFactor)
	}
	return b.String()
}
