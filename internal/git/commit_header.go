package git

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// CommitHeader holds a commit's structured metadata: its tree, parents,
// authorship, and message, without its diff.
//
// This is the primitive the commit graph projection walks the history
// with: it exposes parent hashes and tree ids as well as the message.
type CommitHeader struct {
	// ID is the commit's own hash.
	ID Hash

	// TreeID is the hash of the tree recorded by this commit.
	TreeID Hash

	// ParentIDs are the hashes of the commit's parents,
	// in the order recorded by Git.
	// Empty for a root commit, more than one for a merge commit.
	ParentIDs []Hash

	// Author and Committer record who made the commit and when.
	Author, Committer Signature

	// Message is the commit's subject and body.
	Message CommitMessage
}

// commitHeaderFormat renders the fields parseCommitHeader expects,
// each field separated by a NUL byte, with %x01 marking the end of
// a commit's record so multiple headers can be read from one stream.
const commitHeaderFormat = "%H%x00%T%x00%P%x00%an%x00%ae%x00%at%x00%cn%x00%ce%x00%ct%x00%B%x01"

// LoadCommitHeader loads the structured metadata of a single commit.
func (r *Repository) LoadCommitHeader(ctx context.Context, commitish string) (CommitHeader, error) {
	out, err := r.gitCmd(ctx,
		"show", "--no-patch", "--format="+commitHeaderFormat, commitish,
	).OutputString(r.exec)
	if err != nil {
		return CommitHeader{}, fmt.Errorf("git show: %w", err)
	}

	h, err := parseCommitHeader(strings.TrimSuffix(out, "\x01"))
	if err != nil {
		return CommitHeader{}, fmt.Errorf("parse commit header: %w", err)
	}
	return h, nil
}

// CommitHeaderRange returns the structured metadata of all commits
// reachable from start but not from stop, newest first, matching the
// order of 'git rev-list'.
func (r *Repository) CommitHeaderRange(ctx context.Context, start, stop string) ([]CommitHeader, error) {
	cmd := r.gitCmd(ctx, "rev-list",
		"--format="+commitHeaderFormat,
		start, "--not", stop, "--",
	)
	out, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("pipe: %w", err)
	}

	if err := cmd.Start(r.exec); err != nil {
		return nil, fmt.Errorf("start rev-list: %w", err)
	}

	scanner := bufio.NewScanner(out)
	scanner.Split(splitByte(0x01))

	var headers []CommitHeader
	for scanner.Scan() {
		raw := strings.TrimSpace(scanner.Text())
		if len(raw) == 0 {
			continue
		}

		// rev-list writes "commit <hash>\n" before each --format
		// expansion, regardless of the format string used.
		_, raw, _ = strings.Cut(raw, "\n")

		h, err := parseCommitHeader(raw)
		if err != nil {
			return nil, fmt.Errorf("parse commit header: %w", err)
		}
		headers = append(headers, h)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}

	if err := cmd.Wait(r.exec); err != nil {
		return nil, fmt.Errorf("rev-list: %w", err)
	}

	return headers, nil
}

func parseCommitHeader(raw string) (CommitHeader, error) {
	fields := strings.SplitN(raw, "\x00", 10)
	if len(fields) < 10 {
		return CommitHeader{}, fmt.Errorf("malformed commit header: got %d fields", len(fields))
	}

	var parents []Hash
	if p := fields[2]; p != "" {
		for _, hash := range strings.Split(p, " ") {
			parents = append(parents, Hash(hash))
		}
	}

	authorTime, err := parseUnixSeconds(fields[5])
	if err != nil {
		return CommitHeader{}, fmt.Errorf("author date: %w", err)
	}
	committerTime, err := parseUnixSeconds(fields[8])
	if err != nil {
		return CommitHeader{}, fmt.Errorf("committer date: %w", err)
	}

	subject, body, _ := strings.Cut(strings.TrimSpace(fields[9]), "\n")
	return CommitHeader{
		ID:        Hash(fields[0]),
		TreeID:    Hash(fields[1]),
		ParentIDs: parents,
		Author: Signature{
			Name:  fields[3],
			Email: fields[4],
			Time:  authorTime,
		},
		Committer: Signature{
			Name:  fields[6],
			Email: fields[7],
			Time:  committerTime,
		},
		Message: CommitMessage{
			Subject: strings.TrimSpace(subject),
			Body:    strings.TrimSpace(body),
		},
	}, nil
}

func parseUnixSeconds(s string) (time.Time, error) {
	sec, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return time.Unix(sec, 0), nil
}

// splitByte returns a [bufio.SplitFunc] that splits on the given byte,
// parameterized for the 0x01 record separator commitHeaderFormat uses.
func splitByte(sep byte) bufio.SplitFunc {
	return func(data []byte, atEOF bool) (advance int, token []byte, err error) {
		if atEOF && len(data) == 0 {
			return 0, nil, nil
		}

		if i := bytes.IndexByte(data, sep); i >= 0 {
			return i + 1, data[:i], nil
		}

		if atEOF {
			return len(data), data, nil
		}

		return 0, nil, nil
	}
}
