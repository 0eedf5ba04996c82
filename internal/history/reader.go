package history

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/hindsightdev/hindsight/internal/errors"
	"github.com/hindsightdev/hindsight/internal/logging"
)

const headerPrefix = "@commit@"

// ReadLog returns the repository's commits, newest first, within the
// options' window. An empty log yields an empty slice and no error; a git
// failure yields a HistoryUnavailable error.
func ReadLog(ctx context.Context, repoPath string, opts Options) ([]CommitRecord, error) {
	log := logging.For("history")

	args := []string{
		"-C", repoPath,
		"log",
		"--numstat",
		"--no-merges",
		fmt.Sprintf("--pretty=format:%s%%H|%%an|%%ae|%%ad|%%s", headerPrefix),
		"--date=iso-strict",
	}
	if opts.WindowDays > 0 {
		args = append(args, fmt.Sprintf("--since=%d.days.ago", opts.WindowDays))
	}
	if opts.MaxCommits > 0 {
		args = append(args, fmt.Sprintf("--max-count=%d", opts.MaxCommits))
	}

	cmd := exec.CommandContext(ctx, "git", args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.Wrap(
			fmt.Errorf("%w: %s", err, errors.Sanitize(stderr.String())),
			errors.KindHistoryUnavailable,
			"git log failed",
		)
	}

	commits, err := parseLog(&stdout, opts)
	if err != nil {
		return nil, errors.Wrap(err, errors.KindHistoryUnavailable, "unparseable git log output")
	}

	log.Debug("read commit log", "repo", repoPath, "commits", len(commits))
	return commits, nil
}

func parseLog(r *bytes.Buffer, opts Options) ([]CommitRecord, error) {
	var (
		commits []CommitRecord
		current *CommitRecord
	)

	flush := func() {
		if current == nil {
			return
		}
		if opts.MaxFilesPerCommit > 0 && len(current.Files) > opts.MaxFilesPerCommit {
			current = nil
			return
		}
		commits = append(commits, *current)
		current = nil
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, headerPrefix) {
			flush()
			rec, err := parseHeader(strings.TrimPrefix(line, headerPrefix))
			if err != nil {
				return nil, err
			}
			current = rec
			continue
		}
		if current == nil {
			continue
		}
		change, ok := parseNumstat(line)
		if !ok {
			continue
		}
		if change.Binary && !opts.IncludeBinary {
			continue
		}
		current.Files = append(current.Files, change)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	flush()
	return commits, nil
}

func parseHeader(line string) (*CommitRecord, error) {
	parts := strings.SplitN(line, "|", 5)
	if len(parts) != 5 {
		return nil, fmt.Errorf("malformed commit header: %q", line)
	}
	ts, err := time.Parse(time.RFC3339, parts[3])
	if err != nil {
		return nil, fmt.Errorf("malformed commit date %q: %w", parts[3], err)
	}
	return &CommitRecord{
		Hash:        parts[0],
		AuthorName:  parts[1],
		AuthorEmail: parts[2],
		Timestamp:   ts,
		Subject:     parts[4],
	}, nil
}

func parseNumstat(line string) (FileChange, bool) {
	parts := strings.SplitN(line, "\t", 3)
	if len(parts) != 3 {
		return FileChange{}, false
	}
	change := FileChange{Path: normalizeRename(parts[2])}
	if parts[0] == "-" || parts[1] == "-" {
		change.Binary = true
		return change, true
	}
	adds, err1 := strconv.Atoi(parts[0])
	dels, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return FileChange{}, false
	}
	change.Additions = adds
	change.Deletions = dels
	return change, true
}

// normalizeRename resolves numstat rename notation to the new path:
// "dir/{old => new}/file.go" and "old.go => new.go".
func normalizeRename(path string) string {
	if !strings.Contains(path, " => ") {
		return path
	}
	start := strings.Index(path, "{")
	end := strings.Index(path, "}")
	if start >= 0 && end > start {
		inner := path[start+1 : end]
		parts := strings.SplitN(inner, " => ", 2)
		newPart := inner
		if len(parts) == 2 {
			newPart = parts[1]
		}
		resolved := path[:start] + newPart + path[end+1:]
		return strings.ReplaceAll(resolved, "//", "/")
	}
	parts := strings.SplitN(path, " => ", 2)
	return parts[len(parts)-1]
}
