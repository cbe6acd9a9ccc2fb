package engine

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/FocuswithJustin/redline/core/document"
	rederrors "github.com/FocuswithJustin/redline/core/errors"
	"github.com/FocuswithJustin/redline/core/flow"
	"github.com/FocuswithJustin/redline/core/match"
	"github.com/FocuswithJustin/redline/core/revision"
)

// mutator performs tree surgery against one staged document. It is built
// fresh per operation and discarded wholesale when validation rejects the
// staged tree.
type mutator struct {
	doc     *document.Document
	alloc   *revision.Allocator
	policy  Policy
	applied int
	minted  []int
}

func (m *mutator) newID() int {
	id := m.alloc.Next()
	m.minted = append(m.minted, id)
	return id
}

func (m *mutator) buildFlow(op Operation) *flow.Flow {
	return flow.Build(m.doc, flow.Options{IncludeDeleted: op.IncludeDeleted})
}

func (m *mutator) locateTargets(f *flow.Flow, op Operation) ([]match.Match, error) {
	opts := op.Match
	opts.Evaluator = scopeEvaluatorFor(m.doc, opts)
	return locate(f, op.Query, opts, op.Occurrence)
}

// placeAnchor names a child position inside a parent node.
type placeAnchor struct {
	parent document.NodeID
	index  int
	valid  bool
}

func (a *placeAnchor) set(parent document.NodeID, index int) {
	a.parent = parent
	a.index = index
	a.valid = true
}

func (a *placeAnchor) setOnce(parent document.NodeID, index int) {
	if !a.valid {
		a.set(parent, index)
	}
}

// spanAnchors reports where a span's surgery left its mark, so a replacement
// can be spliced in relative to the produced elements.
type spanAnchors struct {
	first     placeAnchor // position of the first produced element / removal point
	afterLast placeAnchor // position just past the last produced element
	props     string      // run formatting of the first covered run
	gotProps  bool
	skipped   bool // span was entirely inside an active deletion and policy says no-op
}

// deleteOp removes each selected span, latest first so earlier spans stay
// valid while later ones are cut.
func (m *mutator) deleteOp(op Operation) error {
	f := m.buildFlow(op)
	targets, err := m.locateTargets(f, op)
	if err != nil {
		return err
	}
	for i := len(targets) - 1; i >= 0; i-- {
		anchors, err := m.deleteSpan(f, targets[i].Span, op, document.KindDeletion)
		if err != nil {
			return err
		}
		if !anchors.skipped {
			m.applied++
		}
	}
	return nil
}

// replaceOp is delete-then-insert at the same span, with deletion elements
// always emitted before insertion elements so a reviewer reads the result as
// a substitution.
func (m *mutator) replaceOp(op Operation) error {
	f := m.buildFlow(op)
	targets, err := m.locateTargets(f, op)
	if err != nil {
		return err
	}
	for i := len(targets) - 1; i >= 0; i-- {
		anchors, err := m.deleteSpan(f, targets[i].Span, op, document.KindDeletion)
		if err != nil {
			return err
		}
		if anchors.skipped {
			continue
		}
		run := m.doc.NewRun(op.Text, anchors.props)
		if op.Track {
			ins := m.doc.NewWrapper(document.KindInsertion,
				document.Revision{ID: m.newID(), Author: op.Author, Date: op.Date})
			m.doc.AppendChild(ins, run)
			if !anchors.afterLast.valid {
				return fmt.Errorf("replace: no anchor position after deletion elements")
			}
			m.doc.InsertChildren(anchors.afterLast.parent, anchors.afterLast.index, ins)
		} else {
			if !anchors.first.valid {
				return fmt.Errorf("replace: no anchor position at removal point")
			}
			m.doc.InsertChildren(anchors.first.parent, anchors.first.index, run)
		}
		m.applied++
	}
	return nil
}

// deleteSpan cuts one span out of the visible text. Tracked deletion wraps
// the covered runs in wrapKind wrappers (KindDeletion, or KindMoveFrom for a
// move source); untracked deletion removes them. Partial runs are split so
// untouched text stays byte-identical, and spans crossing wrapper contexts
// are handled per context group.
func (m *mutator) deleteSpan(f *flow.Flow, span flow.Span, op Operation, wrapKind document.Kind) (spanAnchors, error) {
	var anchors spanAnchors

	groups, err := f.Resolve(span)
	if err != nil {
		return anchors, err
	}
	groups = m.regroup(groups)

	cls := revision.NewClassifier(m.doc)

	if m.spanFullyDeleted(groups, cls) {
		if m.policy.AlreadyDeleted == AlreadyDeletedSkip {
			anchors.skipped = true
			return anchors, nil
		}
		author := ""
		if w := groups[0].Wrapper; w != document.Nil {
			author = m.doc.Node(w).Rev.Author
		}
		return anchors, &rederrors.AlreadyDeletedError{
			Text:   spanText(m.doc, groups),
			Author: author,
		}
	}

	var merges []document.NodeID
	for _, g := range groups {
		ctx := cls.ClassifyWrapper(g.Wrapper)
		if ctx.IsActiveDeletion() {
			continue // this stretch is already tracked as removed
		}
		if ctx.Kind == revision.ContextNone {
			m.deletePlain(g, op, wrapKind, &anchors, &merges)
		} else {
			if err := m.deleteInWrapper(g, op, wrapKind, &anchors); err != nil {
				return anchors, err
			}
		}
	}

	for i := len(merges) - 1; i >= 0; i-- {
		m.mergeParagraphForward(merges[i])
	}
	return anchors, nil
}

// regroup recomputes each slice's wrapper context from the current tree.
// Earlier surgery within the same operation may have reparented runs into
// clone wrappers, which makes the contexts recorded at resolve time stale.
func (m *mutator) regroup(groups []flow.SliceGroup) []flow.SliceGroup {
	var out []flow.SliceGroup
	for _, g := range groups {
		for _, s := range g.Slices {
			w := m.doc.NearestWrapper(s.Node)
			s.Wrapper = w
			if n := len(out); n > 0 && out[n-1].Wrapper == w {
				out[n-1].Slices = append(out[n-1].Slices, s)
			} else {
				out = append(out, flow.SliceGroup{Wrapper: w, Slices: []flow.RunSlice{s}})
			}
		}
	}
	return out
}

func (m *mutator) spanFullyDeleted(groups []flow.SliceGroup, cls *revision.Classifier) bool {
	if len(groups) == 0 {
		return false
	}
	for _, g := range groups {
		ctx := cls.ClassifyWrapper(g.Wrapper)
		for _, s := range g.Slices {
			if s.IsMark {
				if !m.doc.Node(s.Node).MarkDeleted {
					return false
				}
				continue
			}
			if !ctx.IsActiveDeletion() {
				return false
			}
		}
	}
	return true
}

func spanText(doc *document.Document, groups []flow.SliceGroup) string {
	out := ""
	for _, g := range groups {
		for _, s := range g.Slices {
			out += s.Text(doc)
		}
	}
	return out
}

// deletePlain handles a slice group outside any wrapper. Covered runs are
// wrapped (tracked) or removed (untracked); a covered paragraph mark is
// flagged deleted (tracked) or queued for a paragraph merge (untracked).
func (m *mutator) deletePlain(g flow.SliceGroup, op Operation, wrapKind document.Kind, anchors *spanAnchors, merges *[]document.NodeID) {
	type covered struct {
		node   document.NodeID
		parent document.NodeID
	}
	var runs []covered

	flush := func() {
		if len(runs) == 0 {
			return
		}
		if op.Track {
			w := m.doc.NewWrapper(wrapKind,
				document.Revision{ID: m.newID(), Author: op.Author, Date: op.Date})
			parent := runs[0].parent
			idx := m.doc.ChildIndex(parent, runs[0].node)
			for _, c := range runs {
				ci := m.doc.ChildIndex(c.parent, c.node)
				m.doc.RemoveChild(c.parent, ci)
				m.doc.AppendChild(w, c.node)
			}
			m.doc.InsertChildren(parent, idx, w)
			anchors.first.setOnce(parent, idx)
			anchors.afterLast.set(parent, idx+1)
		} else {
			parent := runs[0].parent
			idx := m.doc.ChildIndex(parent, runs[0].node)
			anchors.first.setOnce(parent, idx)
			for i := len(runs) - 1; i >= 0; i-- {
				ci := m.doc.ChildIndex(runs[i].parent, runs[i].node)
				m.doc.RemoveChild(runs[i].parent, ci)
			}
			anchors.afterLast.set(parent, idx)
		}
		runs = runs[:0]
	}

	for _, s := range g.Slices {
		if s.IsMark {
			flush()
			mark := m.doc.Node(s.Node)
			para := s.Paragraph
			markIdx := m.doc.ChildIndex(para, s.Node)
			anchors.first.setOnce(para, markIdx)
			anchors.afterLast.set(para, markIdx)
			if op.Track {
				if !mark.MarkDeleted {
					mark.MarkDeleted = true
					mark.Rev = document.Revision{ID: m.newID(), Author: op.Author, Date: op.Date}
				}
			} else {
				*merges = append(*merges, para)
			}
			continue
		}
		node := m.splitForSlice(s)
		parent := m.doc.Node(node).Parent
		if len(runs) > 0 {
			prev := runs[len(runs)-1]
			if prev.parent != parent ||
				m.doc.ChildIndex(parent, node) != m.doc.ChildIndex(parent, prev.node)+1 {
				flush()
			}
		}
		if !anchors.gotProps {
			anchors.props = m.doc.Node(node).Props
			anchors.gotProps = true
		}
		runs = append(runs, covered{node: node, parent: parent})
	}
	flush()
}

// deleteInWrapper handles a slice group whose context is an insertion-like
// wrapper. The wrapper is split: its untouched leading and trailing portions
// are cloned under the original author and date but freshly allocated IDs,
// and the matched middle is re-attributed to the requesting operation.
// Nesting a same-kind wrapper instead is never an option; the validation
// gate rejects any tree shaped that way.
func (m *mutator) deleteInWrapper(g flow.SliceGroup, op Operation, wrapKind document.Kind, anchors *spanAnchors) error {
	w := g.Wrapper
	wNode := m.doc.Node(w)
	origRev := wNode.Rev
	origKind := wNode.Kind
	parent := wNode.Parent
	if parent == document.Nil {
		return fmt.Errorf("wrapper %d has no parent", w)
	}

	var firstCovered, lastCovered document.NodeID = document.Nil, document.Nil
	for _, s := range g.Slices {
		if s.IsMark {
			continue
		}
		node := m.splitForSlice(s)
		if firstCovered == document.Nil {
			firstCovered = node
		}
		lastCovered = node
		if !anchors.gotProps {
			anchors.props = m.doc.Node(node).Props
			anchors.gotProps = true
		}
	}
	if firstCovered == document.Nil {
		return nil
	}

	i := m.doc.ChildIndex(w, firstCovered)
	j := m.doc.ChildIndex(w, lastCovered)
	children := append([]document.NodeID{}, m.doc.Node(w).Children...)
	lead, mid, trail := children[:i], children[i:j+1], children[j+1:]
	widx := m.doc.ChildIndex(parent, w)

	if op.Track {
		var repl []document.NodeID
		if len(lead) > 0 {
			cl := m.doc.NewWrapper(origKind,
				document.Revision{ID: m.newID(), Author: origRev.Author, Date: origRev.Date})
			for _, c := range lead {
				m.doc.AppendChild(cl, c)
			}
			repl = append(repl, cl)
		}
		del := m.doc.NewWrapper(wrapKind,
			document.Revision{ID: m.newID(), Author: op.Author, Date: op.Date})
		for _, c := range mid {
			m.doc.AppendChild(del, c)
		}
		delPos := len(repl)
		repl = append(repl, del)
		if len(trail) > 0 {
			ct := m.doc.NewWrapper(origKind,
				document.Revision{ID: m.newID(), Author: origRev.Author, Date: origRev.Date})
			for _, c := range trail {
				m.doc.AppendChild(ct, c)
			}
			repl = append(repl, ct)
		}
		m.doc.Node(w).Children = nil
		m.doc.ReplaceChild(parent, widx, repl...)
		anchors.first.setOnce(parent, widx+delPos)
		anchors.afterLast.set(parent, widx+delPos+1)
		return nil
	}

	// Untracked: the matched middle simply disappears from the wrapper. When
	// untouched content remains on both sides the wrapper is split in two so
	// a later insert can land between them.
	for _, c := range mid {
		m.doc.Node(c).Parent = document.Nil
	}
	switch {
	case len(lead) == 0 && len(trail) == 0:
		m.doc.RemoveChild(parent, widx)
		anchors.first.setOnce(parent, widx)
		anchors.afterLast.set(parent, widx)
	case len(trail) == 0:
		m.doc.Node(w).Children = lead
		anchors.first.setOnce(parent, widx+1)
		anchors.afterLast.set(parent, widx+1)
	case len(lead) == 0:
		m.doc.Node(w).Children = trail
		anchors.first.setOnce(parent, widx)
		anchors.afterLast.set(parent, widx)
	default:
		m.doc.Node(w).Children = lead
		ct := m.doc.NewWrapper(origKind,
			document.Revision{ID: m.newID(), Author: origRev.Author, Date: origRev.Date})
		for _, c := range trail {
			m.doc.AppendChild(ct, c)
		}
		m.doc.InsertChildren(parent, widx+1, ct)
		anchors.first.setOnce(parent, widx+1)
		anchors.afterLast.set(parent, widx+1)
	}
	return nil
}

// splitForSlice splits a partially covered run so the returned node carries
// exactly the slice's text. The original node keeps any leading portion
// (under its own ID, so earlier flow offsets stay valid); trailing text goes
// to a fresh sibling.
func (m *mutator) splitForSlice(s flow.RunSlice) document.NodeID {
	n := m.doc.Node(s.Node)
	text := n.Text
	props := n.Props
	ls, le := s.IntraStart, s.IntraEnd
	if ls == 0 && le == len(text) {
		return s.Node
	}
	parent := n.Parent
	idx := m.doc.ChildIndex(parent, s.Node)

	if ls > 0 {
		mid := m.doc.NewRun(text[ls:le], props)
		var add []document.NodeID
		add = append(add, mid)
		if le < len(text) {
			add = append(add, m.doc.NewRun(text[le:], props))
		}
		m.doc.Node(s.Node).Text = text[:ls]
		m.doc.InsertChildren(parent, idx+1, add...)
		return mid
	}
	// Covered portion is leading: keep it in the original node and split the
	// remainder off.
	tail := m.doc.NewRun(text[le:], props)
	m.doc.Node(s.Node).Text = text[:le]
	m.doc.InsertChildren(parent, idx+1, tail)
	return s.Node
}

// mergeParagraphForward folds the following sibling paragraph into p after
// p's mark was removed by an untracked edit. Paragraphs inside tables or at
// the end of the body keep their mark.
func (m *mutator) mergeParagraphForward(p document.NodeID) {
	bi := m.doc.BlockIndexOf(p)
	if bi < 0 || bi+1 >= len(m.doc.Body) {
		return
	}
	next := m.doc.Body[bi+1]
	if next.Kind != document.BlockParagraph {
		return
	}
	q := next.Paragraph

	mark := m.doc.MarkOf(p)
	if mark != document.Nil {
		m.doc.RemoveChild(p, m.doc.ChildIndex(p, mark))
	}
	qChildren := append([]document.NodeID{}, m.doc.Node(q).Children...)
	for _, c := range qChildren {
		m.doc.Node(p).Children = append(m.doc.Node(p).Children, c)
		m.doc.Node(c).Parent = p
	}
	m.doc.Node(q).Children = nil
	m.doc.RemoveBlock(bi + 1)
}

// insertOp splices op.Text at the boundary named by the anchor query and
// position. Inside a same-author insertion wrapper the new run joins the
// wrapper as a sibling; a tracked insert elsewhere gets a fresh wrapper.
func (m *mutator) insertOp(op Operation) error {
	f := m.buildFlow(op)
	targets, err := m.locateTargets(f, op)
	if err != nil {
		return err
	}
	for i := len(targets) - 1; i >= 0; i-- {
		off := targets[i].Span.Start
		if op.Position == After {
			off = targets[i].Span.End
		}
		b, err := f.BoundaryAt(off)
		if err != nil {
			return err
		}
		if err := m.insertTextAt(b, op); err != nil {
			return err
		}
		m.applied++
	}
	return nil
}

func (m *mutator) insertTextAt(b flow.Boundary, op Operation) error {
	props := ""
	if m.doc.Node(b.Node).Kind == document.KindRun {
		props = m.doc.Node(b.Node).Props
	}
	cls := revision.NewClassifier(m.doc)

	if op.Track {
		// Same-author extension: no new wrapper needed.
		if ctx := cls.ClassifyWrapper(b.Wrapper); cls.CanExtendInsertion(ctx, op.Author) {
			parent, idx, err := m.splitAtBoundary(b)
			if err != nil {
				return err
			}
			m.doc.InsertChildren(parent, idx, m.doc.NewRun(op.Text, props))
			return nil
		}
		if ctx := cls.ClassifyWrapper(b.PrevWrapper); cls.CanExtendInsertion(ctx, op.Author) {
			m.doc.AppendChild(b.PrevWrapper, m.doc.NewRun(op.Text, props))
			return nil
		}
	}

	var nodes []document.NodeID
	run := m.doc.NewRun(op.Text, props)
	if op.Track {
		ins := m.doc.NewWrapper(document.KindInsertion,
			document.Revision{ID: m.newID(), Author: op.Author, Date: op.Date})
		m.doc.AppendChild(ins, run)
		nodes = []document.NodeID{ins}
	} else {
		nodes = []document.NodeID{run}
	}
	return m.insertNodesAt(b, cls, nodes)
}

// insertNodesAt places detached nodes at a boundary, splitting a run or a
// foreign wrapper as needed so the nodes land at paragraph level.
func (m *mutator) insertNodesAt(b flow.Boundary, cls *revision.Classifier, nodes []document.NodeID) error {
	ctx := cls.ClassifyWrapper(b.Wrapper)

	if ctx.Kind == revision.ContextNone {
		parent, idx, err := m.splitAtBoundary(b)
		if err != nil {
			return err
		}
		m.doc.InsertChildren(parent, idx, nodes...)
		return nil
	}

	if ctx.IsActiveDeletion() {
		// A boundary inside already-deleted content resolves to just after
		// the enclosing deletion wrapper.
		w := ctx.Wrapper
		parent := m.doc.Node(w).Parent
		m.doc.InsertChildren(parent, m.doc.ChildIndex(parent, w)+1, nodes...)
		return nil
	}

	// Foreign insertion-like wrapper: split it around the boundary. Both
	// halves are clones under the original author and date with fresh IDs.
	w := ctx.Wrapper
	wNode := m.doc.Node(w)
	origRev := wNode.Rev
	origKind := wNode.Kind
	parent := wNode.Parent
	widx := m.doc.ChildIndex(parent, w)

	_, splitIdx, err := m.splitAtBoundary(b)
	if err != nil {
		return err
	}
	children := append([]document.NodeID{}, m.doc.Node(w).Children...)
	lead, trail := children[:splitIdx], children[splitIdx:]

	var repl []document.NodeID
	if len(lead) > 0 {
		cl := m.doc.NewWrapper(origKind,
			document.Revision{ID: m.newID(), Author: origRev.Author, Date: origRev.Date})
		for _, c := range lead {
			m.doc.AppendChild(cl, c)
		}
		repl = append(repl, cl)
	}
	repl = append(repl, nodes...)
	if len(trail) > 0 {
		ct := m.doc.NewWrapper(origKind,
			document.Revision{ID: m.newID(), Author: origRev.Author, Date: origRev.Date})
		for _, c := range trail {
			m.doc.AppendChild(ct, c)
		}
		repl = append(repl, ct)
	}
	m.doc.Node(w).Children = nil
	m.doc.ReplaceChild(parent, widx, repl...)
	return nil
}

// splitAtBoundary ensures the boundary falls between siblings, splitting the
// boundary node's text when the position is mid-run. Returns the parent and
// child index where new content belongs.
func (m *mutator) splitAtBoundary(b flow.Boundary) (document.NodeID, int, error) {
	n := m.doc.Node(b.Node)
	parent := n.Parent
	if parent == document.Nil {
		return document.Nil, 0, fmt.Errorf("boundary node %d is detached", b.Node)
	}
	idx := m.doc.ChildIndex(parent, b.Node)

	if n.Kind == document.KindParagraphMark {
		// New content goes in front of the mark; the mark stays terminal.
		return parent, idx, nil
	}
	switch {
	case b.Intra == 0:
		return parent, idx, nil
	case b.Intra >= len(n.Text):
		return parent, idx + 1, nil
	default:
		tail := m.doc.NewRun(n.Text[b.Intra:], n.Props)
		m.doc.Node(b.Node).Text = n.Text[:b.Intra]
		m.doc.InsertChildren(parent, idx+1, tail)
		return parent, idx + 1, nil
	}
}

// moveOp relocates one span: the source is wrapped as a move-from region and
// the text reappears in a move-to region at the destination. The two sides
// share a group name used by exactly this one move; each side's boundary
// markers share a container ID.
func (m *mutator) moveOp(op Operation) error {
	f := m.buildFlow(op)
	targets, err := m.locateTargets(f, op)
	if err != nil {
		return err
	}
	if len(targets) != 1 {
		return &rederrors.ValidationError{
			Field:   "occurrence",
			Message: fmt.Sprintf("move needs exactly one source span, occurrence selected %d", len(targets)),
		}
	}
	span := targets[0].Span

	// Capture the moved content before surgery disturbs the nodes.
	groups, err := f.Resolve(span)
	if err != nil {
		return err
	}
	type piece struct{ text, props string }
	var moved []piece
	for _, g := range groups {
		for _, s := range g.Slices {
			if s.IsMark {
				moved = append(moved, piece{text: "\n"})
				continue
			}
			moved = append(moved, piece{text: s.Text(m.doc), props: m.doc.Node(s.Node).Props})
		}
	}

	group := "move-" + uuid.NewString()

	if op.Track {
		anchors, err := m.deleteSpan(f, span, op, document.KindMoveFrom)
		if err != nil {
			return err
		}
		if anchors.skipped {
			return nil
		}
		if !anchors.first.valid || !anchors.afterLast.valid {
			return fmt.Errorf("move: source surgery produced no anchor")
		}
		containerFrom := m.newID()
		rev := document.Revision{Author: op.Author, Date: op.Date}
		endMarker := m.doc.NewMarker(document.Marker{
			Side: document.SideFrom, Edge: document.EdgeEnd, ContainerID: containerFrom, Group: group,
		}, rev)
		m.doc.InsertChildren(anchors.afterLast.parent, anchors.afterLast.index, endMarker)
		startMarker := m.doc.NewMarker(document.Marker{
			Side: document.SideFrom, Edge: document.EdgeStart, ContainerID: containerFrom, Group: group,
		}, rev)
		m.doc.InsertChildren(anchors.first.parent, anchors.first.index, startMarker)
	} else {
		anchors, err := m.deleteSpan(f, span, op, document.KindDeletion)
		if err != nil {
			return err
		}
		if anchors.skipped {
			return nil
		}
	}

	// The destination is located against the post-surgery tree; source
	// offsets are dead the moment the tree changed.
	f2 := flow.Build(m.doc, flow.Options{})
	destOpts := op.DestMatch
	destOpts.Evaluator = scopeEvaluatorFor(m.doc, destOpts)
	destTargets, err := locate(f2, op.DestQuery, destOpts, op.DestOccurrence)
	if err != nil {
		return err
	}
	if len(destTargets) != 1 {
		return &rederrors.ValidationError{
			Field:   "destination",
			Message: fmt.Sprintf("move needs exactly one destination anchor, got %d", len(destTargets)),
		}
	}
	off := destTargets[0].Span.Start
	if op.DestPosition == After {
		off = destTargets[0].Span.End
	}
	b, err := f2.BoundaryAt(off)
	if err != nil {
		return err
	}

	cls := revision.NewClassifier(m.doc)
	var nodes []document.NodeID
	if op.Track {
		containerTo := m.newID()
		rev := document.Revision{Author: op.Author, Date: op.Date}
		nodes = append(nodes, m.doc.NewMarker(document.Marker{
			Side: document.SideTo, Edge: document.EdgeStart, ContainerID: containerTo, Group: group,
		}, rev))
		moveTo := m.doc.NewWrapper(document.KindMoveTo,
			document.Revision{ID: m.newID(), Author: op.Author, Date: op.Date})
		for _, pc := range moved {
			if pc.text == "\n" && pc.props == "" {
				continue // paragraph boundaries flatten at the destination
			}
			m.doc.AppendChild(moveTo, m.doc.NewRun(pc.text, pc.props))
		}
		nodes = append(nodes, moveTo)
		nodes = append(nodes, m.doc.NewMarker(document.Marker{
			Side: document.SideTo, Edge: document.EdgeEnd, ContainerID: containerTo, Group: group,
		}, rev))
	} else {
		for _, pc := range moved {
			if pc.text == "\n" && pc.props == "" {
				continue
			}
			nodes = append(nodes, m.doc.NewRun(pc.text, pc.props))
		}
	}
	if err := m.insertNodesAt(b, cls, nodes); err != nil {
		return err
	}
	m.applied++
	return nil
}
