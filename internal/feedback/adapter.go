package feedback

import (
	"regexp"
	"strings"
)

// AdapterConfig tunes how aggressively feedback biases future runs.
type AdapterConfig struct {
	// MinSamples is the minimum number of rated findings a pattern needs
	// before its history influences anything.
	MinSamples int
	// RaiseAt is the noise ratio at which the reflection threshold rises.
	RaiseAt float64
	// RaiseBy is how much the threshold rises, capped at 10.
	RaiseBy int
	// SuppressAt is the noise ratio at which a pattern is suppressed
	// outright.
	SuppressAt float64
}

// DefaultAdapterConfig biases conservatively: three ratings before any
// influence, suppression only for patterns rated noise four times in five.
func DefaultAdapterConfig() AdapterConfig {
	return AdapterConfig{
		MinSamples: 3,
		RaiseAt:    0.5,
		RaiseBy:    2,
		SuppressAt: 0.8,
	}
}

// patternStats aggregates ratings for one message pattern.
type patternStats struct {
	useful int
	noise  int
	skip   int
}

func (p patternStats) rated() int { return p.useful + p.noise }

func (p patternStats) noiseRatio() float64 {
	if p.rated() == 0 {
		return 0
	}
	return float64(p.noise) / float64(p.rated())
}

// Adapter turns accumulated ratings into per-pattern advice. Ratings are
// aggregated by message pattern rather than literal finding, since
// findings rarely repeat verbatim across runs.
type Adapter struct {
	cfg   AdapterConfig
	stats map[string]patternStats
}

// NewAdapter loads the store's history into an in-memory aggregate.
func NewAdapter(store *Store, cfg AdapterConfig) (*Adapter, error) {
	entries, err := store.Entries()
	if err != nil {
		return nil, err
	}
	a := &Adapter{cfg: cfg, stats: make(map[string]patternStats)}
	for _, e := range entries {
		s := a.stats[e.Pattern]
		switch e.Rating {
		case RatingUseful:
			s.useful++
		case RatingNoise:
			s.noise++
		case RatingSkip:
			s.skip++
		}
		a.stats[e.Pattern] = s
	}
	return a, nil
}

// ThresholdFor returns the self-reflection cutoff for a finding with this
// message: the base threshold, raised for patterns the user has repeatedly
// rated as noise.
func (a *Adapter) ThresholdFor(message string, base int) int {
	s := a.stats[PatternKey(message)]
	if s.rated() < a.cfg.MinSamples || s.noiseRatio() < a.cfg.RaiseAt {
		return base
	}
	raised := base + a.cfg.RaiseBy
	if raised > 10 {
		raised = 10
	}
	return raised
}

// ShouldSuppress reports whether this message's pattern has crossed the
// suppression ceiling.
func (a *Adapter) ShouldSuppress(message string) bool {
	s := a.stats[PatternKey(message)]
	return s.rated() >= a.cfg.MinSamples && s.noiseRatio() >= a.cfg.SuppressAt
}

var (
	quotedSpan = regexp.MustCompile("`[^`]*`|\"[^\"]*\"|'[^']*'")
	tokenSplit = regexp.MustCompile(`[^a-z]+`)
	digits     = regexp.MustCompile(`[0-9]+`)
)

const patternTokens = 8

// PatternKey collapses a finding message to a coarse pattern: quoted
// identifiers and numbers dropped, lowercase word content truncated to the
// leading tokens. "unused variable `foo` at line 12" and "unused variable
// `bar` at line 40" map to the same key.
func PatternKey(message string) string {
	lower := strings.ToLower(message)
	lower = quotedSpan.ReplaceAllString(lower, " ")
	lower = digits.ReplaceAllString(lower, " ")
	tokens := tokenSplit.Split(lower, -1)
	var kept []string
	for _, tok := range tokens {
		if len(tok) <= 1 {
			continue
		}
		kept = append(kept, tok)
		if len(kept) == patternTokens {
			break
		}
	}
	return strings.Join(kept, " ")
}
