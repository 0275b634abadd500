package hunkassign

// multiDepsResolution picks the policy used when a worktree hunk intersects
// more than one prior assignment.
type multiDepsResolution int

const (
	// setMostLines keeps the stack of whichever prior assignment covers the
	// most of the new hunk. Used when reconciling against assignment
	// history, where picking a "best guess" owner is more useful than
	// giving up.
	setMostLines multiDepsResolution = iota
	// setNone clears the stack assignment outright. Used when applying
	// dependency locks: a hunk locked to two different stacks at once is
	// surfaced as unassigned rather than guessed at.
	setNone
)

// reconcileAssignments folds prior into current: every current assignment
// that intersects exactly one prior entry inherits that entry's stack (if
// still applied) and locks; one that intersects more than one is resolved
// by multiDepsResolution; one that intersects none is left as is.
//
// updateUnassigned controls whether a currently-unassigned hunk is allowed
// to pick up a single intersecting prior stack id at all: reconciling
// against history should do this, but applying dependency locks should
// not, so that a lock never auto-assigns a hunk nobody has claimed yet —
// it only constrains a hunk that was already assigned.
func reconcileAssignments(
	current []HunkAssignment,
	prior []HunkAssignment,
	appliedStacks map[StackID]bool,
	resolution multiDepsResolution,
	updateUnassigned bool,
) []HunkAssignment {
	out := make([]HunkAssignment, len(current))
	for i, cur := range current {
		var intersecting []HunkAssignment
		for _, p := range prior {
			if p.intersects(cur) {
				intersecting = append(intersecting, p)
			}
		}

		switch len(intersecting) {
		case 0:
			// No overlap: the assignment is left exactly as it arrived.
		case 1:
			match := intersecting[0]
			if match.StackID != nil && appliedStacks[*match.StackID] {
				if updateUnassigned || cur.StackID != nil {
					cur.StackID = match.StackID
				}
				cur.HunkLocks = match.HunkLocks
			}
		default:
			switch resolution {
			case setNone:
				cur.StackID = nil
			case setMostLines:
				cur.StackID = mostLinesStackID(cur, intersecting)
			}
			cur.HunkLocks = unionLocks(intersecting)
		}

		out[i] = cur
	}
	return out
}

// mostLinesStackID returns the stack id of whichever assignment in
// intersecting overlaps the most of cur's new-side lines; a whole-file
// (nil header) assignment counts as overlapping none.
func mostLinesStackID(cur HunkAssignment, intersecting []HunkAssignment) *StackID {
	var best *HunkAssignment
	bestLines := -1
	for i := range intersecting {
		a := &intersecting[i]
		lines := 0
		if a.HunkHeader != nil && cur.HunkHeader != nil {
			lo := max(a.HunkHeader.NewStart, cur.HunkHeader.NewStart)
			hi := min(a.HunkHeader.NewStart+a.HunkHeader.NewLines, cur.HunkHeader.NewStart+cur.HunkHeader.NewLines)
			lines = max(hi-lo, 0)
		}
		if lines > bestLines {
			bestLines = lines
			best = a
		}
	}
	if best == nil {
		return nil
	}
	return best.StackID
}

func unionLocks(assignments []HunkAssignment) []HunkLock {
	var out []HunkLock
	seen := make(map[HunkLock]bool)
	for _, a := range assignments {
		for _, lock := range a.HunkLocks {
			if seen[lock] {
				continue
			}
			seen[lock] = true
			out = append(out, lock)
		}
	}
	return out
}
