package document

import "fmt"

// Validate checks the structural rules the host format imposes on committed
// trees. It returns one human-readable violation per breach; an empty slice
// means the tree may be committed.
//
// Rules checked:
//   - no wrapper directly contains a wrapper of the same kind
//   - every revision ID (wrappers, markers, deleted paragraph marks) is unique
//   - every move boundary marker has its matching counterpart (same side and
//     container ID, opposite edge)
//   - a move group is used by exactly one source and one destination region
//   - every paragraph's last child is its paragraph mark, and no other
//     paragraph-mark node appears among its children
func (d *Document) Validate() []string {
	var violations []string
	seenIDs := map[int]string{}

	note := func(format string, args ...any) {
		violations = append(violations, fmt.Sprintf(format, args...))
	}

	claimID := func(id int, what string) {
		if id == 0 {
			return
		}
		if prev, dup := seenIDs[id]; dup {
			note("duplicate revision id %d on %s (already on %s)", id, what, prev)
			return
		}
		seenIDs[id] = what
	}

	type markerKey struct {
		side MarkerSide
		id   int
	}
	starts := map[markerKey]int{}
	ends := map[markerKey]int{}
	groupSides := map[string]map[MarkerSide]int{}

	paragraphs, _ := d.Paragraphs()

	var walk func(id NodeID, wrapperKind Kind, inWrapper bool)
	walk = func(id NodeID, wrapperKind Kind, inWrapper bool) {
		n := &d.nodes[id]
		switch {
		case n.Kind.IsWrapper():
			if inWrapper && n.Kind == wrapperKind {
				note("%s wrapper id=%d nested directly inside another %s wrapper",
					n.Kind, n.Rev.ID, n.Kind)
			}
			claimID(n.Rev.ID, fmt.Sprintf("%s wrapper", n.Kind))
			for _, c := range n.Children {
				walk(c, n.Kind, true)
			}
		case n.Kind == KindMoveMarker:
			key := markerKey{n.Marker.Side, n.Marker.ContainerID}
			if n.Marker.Edge == EdgeStart {
				// Paired markers share their container ID; the start claims
				// it once and the tally below checks for the counterpart.
				claimID(n.Marker.ContainerID, "move marker")
				starts[key]++
				if n.Marker.Group == "" {
					note("move marker container=%d has no group name", n.Marker.ContainerID)
				} else {
					if groupSides[n.Marker.Group] == nil {
						groupSides[n.Marker.Group] = map[MarkerSide]int{}
					}
					groupSides[n.Marker.Group][n.Marker.Side]++
				}
			} else {
				ends[key]++
			}
		case n.Kind == KindParagraphMark:
			if n.MarkDeleted {
				claimID(n.Rev.ID, "deleted paragraph mark")
			}
		default:
			for _, c := range n.Children {
				walk(c, wrapperKind, inWrapper)
			}
		}
	}

	for _, p := range paragraphs {
		ch := d.nodes[p].Children
		if len(ch) == 0 || d.nodes[ch[len(ch)-1]].Kind != KindParagraphMark {
			note("paragraph missing terminating mark")
		}
		for i, c := range ch {
			if d.nodes[c].Kind == KindParagraphMark && i != len(ch)-1 {
				note("paragraph mark not in terminal position")
			}
			walk(c, KindParagraph, false)
		}
	}

	for key, n := range starts {
		if ends[key] != n {
			note("move %s container=%d has %d start marker(s) but %d end marker(s)",
				sideName(key.side), key.id, n, ends[key])
		}
	}
	for key, n := range ends {
		if _, ok := starts[key]; !ok {
			note("move %s container=%d has %d end marker(s) but no start marker",
				sideName(key.side), key.id, n)
		}
	}
	for group, sides := range groupSides {
		if sides[SideFrom] > 1 {
			note("move group %q used by %d source containers", group, sides[SideFrom])
		}
		if sides[SideTo] > 1 {
			note("move group %q used by %d destination containers", group, sides[SideTo])
		}
		if sides[SideFrom] == 0 || sides[SideTo] == 0 {
			note("move group %q lacks a %s container", group, missingSide(sides))
		}
	}

	return violations
}

func sideName(s MarkerSide) string {
	if s == SideFrom {
		return "source"
	}
	return "destination"
}

func missingSide(sides map[MarkerSide]int) string {
	if sides[SideFrom] == 0 {
		return "source"
	}
	return "destination"
}
