package hunkdeps

import "sort"

// PathRanges tracks, for one path within one stack, which commit last wrote
// each line range of the file as it stands after every commit folded in so
// far. Ranges are kept sorted by Start and never overlap.
type PathRanges struct {
	ranges []HunkRange
}

// Ranges returns the current tracked hunk ranges, oldest line position
// first.
func (p *PathRanges) Ranges() []HunkRange {
	return append([]HunkRange(nil), p.ranges...)
}

// Add folds one commit's diffs against this path into the tracked ranges,
// and reports every earlier commit whose ranges this commit's diffs
// overlapped (its dependencies within this stack). diffs need not be
// pre-sorted; they are processed in old-line order. On error, no partial
// state from this call is retained.
func (p *PathRanges) Add(stackID StackID, commitID CommitID, diffs []InputDiff) ([]CommitID, error) {
	sorted := append([]InputDiff(nil), diffs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].OldStart < sorted[j].OldStart })

	for i, d := range sorted {
		if err := d.validate(); err != nil {
			return nil, err
		}
		if i > 0 && d.OldStart < sorted[i-1].oldEnd() {
			return nil, ErrOverlappingHunksWithinStack
		}
	}

	seen := make(map[CommitID]bool)
	var deps []CommitID
	addDep := func(c CommitID) {
		if c == commitID || seen[c] {
			return
		}
		seen[c] = true
		deps = append(deps, c)
	}

	working := p.ranges
	shift := 0
	for _, d := range sorted {
		// Earlier diffs of this commit have already moved the lines
		// after them; express d's old span in those moved coordinates.
		td := d
		td.OldStart += shift
		next, err := applyDiff(working, stackID, commitID, td, addDep)
		if err != nil {
			return nil, err
		}
		working = next
		shift += d.netShift()
	}
	p.ranges = working
	return deps, nil
}

// applyDiff returns the ranges that result from folding one diff into
// ranges, calling addDep for every commit whose range the diff overlapped.
func applyDiff(ranges []HunkRange, stackID StackID, commitID CommitID, diff InputDiff, addDep func(CommitID)) ([]HunkRange, error) {
	empty := len(ranges) == 0
	deleted := len(ranges) == 1 && ranges[0].deletionSentinel()

	switch {
	case empty || deleted:
		if diff.ChangeType == Deleted {
			return nil, ErrDeletionOfUnknownFile
		}
		if deleted && diff.ChangeType != Added {
			return nil, ErrFileRecreationNotAnAddition
		}
		return newSoleRange(stackID, commitID, diff), nil

	case diff.ChangeType == Deleted:
		for _, r := range ranges {
			addDep(r.CommitID)
		}
		return []HunkRange{{
			ChangeType: Deleted,
			StackID:    stackID,
			CommitID:   commitID,
		}}, nil

	default:
		return spliceRanges(ranges, stackID, commitID, diff, addDep), nil
	}
}

func newSoleRange(stackID StackID, commitID CommitID, diff InputDiff) []HunkRange {
	if diff.NewLines == 0 {
		return nil
	}
	return []HunkRange{{
		ChangeType: diff.ChangeType,
		StackID:    stackID,
		CommitID:   commitID,
		Start:      diff.NewStart,
		Lines:      diff.NewLines,
		LineShift:  diff.netShift(),
	}}
}

// spliceRanges replaces the portion of ranges covered by diff's old span
// with diff's own new range, splitting any range that only partially
// overlaps and shifting every range that lies entirely after the span.
func spliceRanges(ranges []HunkRange, stackID StackID, commitID CommitID, diff InputDiff, addDep func(CommitID)) []HunkRange {
	result := make([]HunkRange, 0, len(ranges)+1)
	inserted := false

	insertNew := func() {
		if inserted {
			return
		}
		inserted = true
		if diff.NewLines == 0 {
			return
		}
		result = append(result, HunkRange{
			ChangeType: diff.ChangeType,
			StackID:    stackID,
			CommitID:   commitID,
			Start:      diff.NewStart,
			Lines:      diff.NewLines,
			LineShift:  diff.netShift(),
		})
	}

	for _, r := range ranges {
		switch {
		case r.end() <= diff.OldStart:
			result = append(result, r)

		case r.Start >= diff.oldEnd():
			insertNew()
			shifted := r
			shifted.Start += diff.netShift()
			result = append(result, shifted)

		default:
			addDep(r.CommitID)
			if r.Start < diff.OldStart {
				left := r
				left.Lines = diff.OldStart - r.Start
				result = append(result, left)
			}
			insertNew()
			if r.end() > diff.oldEnd() {
				right := r
				right.Start = diff.newEnd()
				right.Lines = r.end() - diff.oldEnd()
				result = append(result, right)
			}
		}
	}
	insertNew()
	return result
}

// Intersection returns every tracked range overlapping [start, start+lines).
// A zero-width query (lines == 0) matches a range that contains line
// start, covering the "point" at which a deletion or insertion occurred.
func (p *PathRanges) Intersection(start, lines int) []HunkRange {
	var out []HunkRange
	for _, r := range p.ranges {
		if rangeIntersects(r, start, lines) {
			out = append(out, r)
		}
	}
	return out
}

// rangeIntersects reports whether r overlaps the query [start, start+lines).
// A deleted path has no real line ranges left, so any query against it
// intersects: there is nothing else it could mean to touch a path that no
// longer exists.
func rangeIntersects(r HunkRange, start, lines int) bool {
	if r.deletionSentinel() {
		return true
	}
	rEnd := r.end()
	if lines == 0 {
		return start >= r.Start && start < rEnd
	}
	return r.Start < start+lines && start < rEnd
}
