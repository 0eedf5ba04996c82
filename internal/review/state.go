package review

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/hindsightdev/hindsight/internal/errors"
)

const stateDir = ".hindsight"
const stateFile = "review-state.json"

// RunState is the persisted record of the most recent run, letting a later
// feedback command rate findings by index without re-running the review.
type RunState struct {
	RunID     string    `json:"run_id"`
	Commit    string    `json:"commit,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Findings  []Finding `json:"findings"`
}

// SaveState writes the run state under repoPath/.hindsight. The write is
// atomic: a temp file renamed into place.
func SaveState(repoPath string, result *ReviewResult, commit string) error {
	state := RunState{
		RunID:     result.RunID,
		Commit:    commit,
		CreatedAt: result.CreatedAt,
		Findings:  result.Findings,
	}
	dir := filepath.Join(repoPath, stateDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	tmp := filepath.Join(dir, stateFile+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, filepath.Join(dir, stateFile))
}

// LoadState reads the most recent run state for repoPath.
func LoadState(repoPath string) (*RunState, error) {
	data, err := os.ReadFile(filepath.Join(repoPath, stateDir, stateFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.KindInternal, "no review state found; run a review first")
		}
		return nil, err
	}
	var state RunState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}
	return &state, nil
}
