// Package history reads commit records from a repository's log. It is the
// only package that talks to git for historical data; everything downstream
// consumes immutable CommitRecord slices.
package history

import "time"

// FileChange is one file touched by a commit, with numstat churn.
type FileChange struct {
	Path      string `json:"path"`
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
	Binary    bool   `json:"binary"`
}

// CommitRecord is one commit in the mining window.
type CommitRecord struct {
	Hash        string       `json:"hash"`
	AuthorName  string       `json:"author_name"`
	AuthorEmail string       `json:"author_email"`
	Timestamp   time.Time    `json:"timestamp"`
	Subject     string       `json:"subject"`
	Files       []FileChange `json:"files"`
}

// Options bounds the mining window.
type Options struct {
	// WindowDays limits the log to commits newer than now minus this many
	// days. Zero means no time bound.
	WindowDays int
	// MaxFilesPerCommit skips commits touching more files than this,
	// which filters out giant merges and vendored imports. Zero disables.
	MaxFilesPerCommit int
	// MaxCommits caps the number of commits read. Zero means unbounded.
	MaxCommits int
	// IncludeBinary keeps binary file entries; by default they are
	// dropped since churn is meaningless for them.
	IncludeBinary bool
}
