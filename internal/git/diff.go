// Package git acquires diffs at the CLI boundary. The review core treats
// diff text as opaque input; this package only fetches it.
package git

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// StagedDiff returns the diff of staged changes in repoPath.
func StagedDiff(ctx context.Context, repoPath string) (string, error) {
	return run(ctx, repoPath, "diff", "--cached")
}

// RangeDiff returns the diff between two revisions.
func RangeDiff(ctx context.Context, repoPath, from, to string) (string, error) {
	return run(ctx, repoPath, "diff", from+".."+to)
}

// Head returns the current commit hash, or empty when unavailable.
func Head(ctx context.Context, repoPath string) string {
	out, err := run(ctx, repoPath, "rev-parse", "HEAD")
	if err != nil {
		return ""
	}
	return strings.TrimSpace(out)
}

func run(ctx context.Context, repoPath string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", append([]string{"-C", repoPath}, args...)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("git %s failed: %s", args[0], strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}
