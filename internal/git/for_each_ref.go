package git

import (
	"bufio"
	"context"
	"fmt"
	"iter"
	"strings"
)

// LocalRef is a reference in the local repository.
type LocalRef struct {
	// Name is the full name of the reference,
	// e.g. "refs/heads/main" or "refs/tags/v1".
	Name string

	// Hash is the Git object hash that the reference points to,
	// after peeling tags to their target.
	Hash Hash
}

// ForEachRefOptions control the behavior of ForEachRef.
type ForEachRefOptions struct {
	// Patterns restricts the refs listed to those matching any of the
	// given patterns (e.g. "refs/heads", "refs/remotes", "refs/tags").
	// With no patterns, every ref in the repository is listed.
	Patterns []string
}

// ForEachRef lists references in the local repository matching opts,
// in the order reported by Git (lexicographic by ref name).
//
// Tags are peeled to the commit or object they annotate.
func (r *Repository) ForEachRef(ctx context.Context, opts *ForEachRefOptions) iter.Seq2[LocalRef, error] {
	if opts == nil {
		opts = &ForEachRefOptions{}
	}

	args := []string{
		"for-each-ref",
		"--format=%(objectname) %(*objectname) %(refname)",
	}
	args = append(args, opts.Patterns...)

	return func(yield func(LocalRef, error) bool) {
		cmd := r.gitCmd(ctx, args...)
		out, err := cmd.StdoutPipe()
		if err != nil {
			yield(LocalRef{}, fmt.Errorf("pipe stdout: %w", err))
			return
		}

		if err := cmd.Start(r.exec); err != nil {
			yield(LocalRef{}, fmt.Errorf("start: %w", err))
			return
		}
		var finished bool
		defer func() {
			if !finished {
				_ = cmd.Kill(r.exec)
			}
		}()

		scanner := bufio.NewScanner(out)
		for scanner.Scan() {
			// Each line is in the form:
			//
			//	<object> SPACE <peeled-object-or-empty> SPACE <ref>
			fields := strings.SplitN(scanner.Text(), " ", 3)
			if len(fields) != 3 {
				r.log.Warn("Bad for-each-ref output", "line", scanner.Text())
				continue
			}

			hash := Hash(fields[0])
			if peeled := fields[1]; peeled != "" {
				hash = Hash(peeled)
			}

			if !yield(LocalRef{Name: fields[2], Hash: hash}, nil) {
				return
			}
		}

		if err := scanner.Err(); err != nil {
			yield(LocalRef{}, fmt.Errorf("scan: %w", err))
			return
		}

		if err := cmd.Wait(r.exec); err != nil {
			yield(LocalRef{}, fmt.Errorf("git for-each-ref: %w", err))
			return
		}

		finished = true
	}
}
