package engine

import (
	"testing"

	"github.com/FocuswithJustin/redline/core/document"
	rederrors "github.com/FocuswithJustin/redline/core/errors"
	"github.com/FocuswithJustin/redline/core/flow"
	"github.com/FocuswithJustin/redline/core/match"
	"github.com/FocuswithJustin/redline/core/scope"
)

// contractDoc builds a single paragraph whose text is fragmented across
// runs: "The " "Con" "tract" " terms".
func contractDoc(t *testing.T) *document.Document {
	t.Helper()
	d := document.New()
	p := d.NewParagraph("", "")
	for _, s := range []string{"The ", "Con", "tract", " terms"} {
		d.AppendChild(p, d.NewRun(s, ""))
	}
	d.Body = []document.Block{{Kind: document.BlockParagraph, Paragraph: p}}
	return d
}

func visible(t *testing.T, s *Session) string {
	t.Helper()
	return flow.Build(s.Document(), flow.Options{}).Text()
}

func withDeleted(t *testing.T, s *Session) string {
	t.Helper()
	return flow.Build(s.Document(), flow.Options{IncludeDeleted: true}).Text()
}

func TestReplaceTracked(t *testing.T) {
	s := NewSession(contractDoc(t))
	r := s.Apply(Operation{
		Kind:   OpReplace,
		Query:  "Contract",
		Text:   "Agreement",
		Track:  true,
		Author: "Reviewer",
	})
	if r.Err != nil {
		t.Fatal(r.Err)
	}
	if r.Applied != 1 {
		t.Errorf("Applied = %d, want 1", r.Applied)
	}
	if len(r.RevisionIDs) != 2 {
		t.Fatalf("RevisionIDs = %v, want 2 fresh IDs", r.RevisionIDs)
	}
	if got := visible(t, s); got != "The Agreement terms\n" {
		t.Errorf("visible = %q", got)
	}
	// Deletion elements precede insertion elements.
	if got := withDeleted(t, s); got != "The ContractAgreement terms\n" {
		t.Errorf("with deleted = %q", got)
	}

	revs := s.Revisions()
	if len(revs) != 2 {
		t.Fatalf("revisions = %d, want 2", len(revs))
	}
	if revs[0].Kind != document.KindDeletion || revs[0].Text != "Contract" {
		t.Errorf("revs[0] = %v %q", revs[0].Kind, revs[0].Text)
	}
	if revs[1].Kind != document.KindInsertion || revs[1].Text != "Agreement" {
		t.Errorf("revs[1] = %v %q", revs[1].Kind, revs[1].Text)
	}
	for _, rv := range revs {
		if rv.Author != "Reviewer" {
			t.Errorf("author = %q, want Reviewer", rv.Author)
		}
	}
	if revs[0].ID == revs[1].ID {
		t.Errorf("deletion and insertion share ID %d", revs[0].ID)
	}
}

func TestReplaceUntracked(t *testing.T) {
	s := NewSession(contractDoc(t))
	r := s.Apply(Operation{Kind: OpReplace, Query: "Contract", Text: "Agreement"})
	if r.Err != nil {
		t.Fatal(r.Err)
	}
	if got := visible(t, s); got != "The Agreement terms\n" {
		t.Errorf("visible = %q", got)
	}
	if revs := s.Revisions(); len(revs) != 0 {
		t.Errorf("untracked replace left %d revision elements", len(revs))
	}
}

// A tracked replace inside someone else's insertion must split that wrapper:
// clones of the untouched lead and trail keep the original author but get
// fresh IDs, and the replacement sits between them at paragraph level.
func TestReplaceInsideForeignInsertion(t *testing.T) {
	d := document.New()
	p := d.NewParagraph("", "")
	d.AppendChild(p, d.NewRun("Base ", ""))
	ins := d.NewWrapper(document.KindInsertion, document.Revision{ID: 5, Author: "Alice"})
	d.AppendChild(p, ins)
	d.AppendChild(ins, d.NewRun("draft wording here", ""))
	d.Body = []document.Block{{Kind: document.BlockParagraph, Paragraph: p}}

	s := NewSession(d)
	r := s.Apply(Operation{
		Kind:   OpReplace,
		Query:  "wording",
		Text:   "text",
		Track:  true,
		Author: "Bob",
	})
	if r.Err != nil {
		t.Fatal(r.Err)
	}
	if got := visible(t, s); got != "Base draft text here\n" {
		t.Errorf("visible = %q", got)
	}

	revs := s.Revisions()
	if len(revs) != 4 {
		t.Fatalf("revisions = %d, want 4: ins(lead) del ins ins(trail)", len(revs))
	}
	wantKinds := []document.Kind{
		document.KindInsertion, document.KindDeletion,
		document.KindInsertion, document.KindInsertion,
	}
	wantText := []string{"draft ", "wording", "text", " here"}
	wantAuthor := []string{"Alice", "Bob", "Bob", "Alice"}
	for i, rv := range revs {
		if rv.Kind != wantKinds[i] || rv.Text != wantText[i] || rv.Author != wantAuthor[i] {
			t.Errorf("revs[%d] = %v %q by %q, want %v %q by %q",
				i, rv.Kind, rv.Text, rv.Author, wantKinds[i], wantText[i], wantAuthor[i])
		}
		if rv.ID == 5 {
			t.Errorf("revs[%d] reuses the original wrapper ID 5", i)
		}
	}
	seen := map[int]bool{}
	for _, rv := range revs {
		if seen[rv.ID] {
			t.Errorf("ID %d appears twice", rv.ID)
		}
		seen[rv.ID] = true
	}
}

func TestDeleteAlreadyDeleted(t *testing.T) {
	s := NewSession(contractDoc(t))
	if r := s.Apply(Operation{Kind: OpDelete, Query: "Contract", Track: true, Author: "A"}); r.Err != nil {
		t.Fatal(r.Err)
	}

	r := s.Apply(Operation{
		Kind:           OpDelete,
		Query:          "Contract",
		IncludeDeleted: true,
		Track:          true,
		Author:         "B",
	})
	if !rederrors.Is(r.Err, rederrors.ErrAlreadyDeleted) {
		t.Fatalf("err = %v, want ErrAlreadyDeleted", r.Err)
	}
	var ade *rederrors.AlreadyDeletedError
	if !rederrors.As(r.Err, &ade) || ade.Author != "A" {
		t.Errorf("error should name the deleting author, got %+v", ade)
	}

	s.SetPolicy(Policy{AlreadyDeleted: AlreadyDeletedSkip})
	r = s.Apply(Operation{
		Kind:           OpDelete,
		Query:          "Contract",
		IncludeDeleted: true,
		Track:          true,
		Author:         "B",
	})
	if r.Err != nil {
		t.Fatalf("skip policy: %v", r.Err)
	}
	if r.Applied != 0 {
		t.Errorf("skip policy applied %d spans, want 0", r.Applied)
	}
}

func twoParas(t *testing.T, a, b string) *document.Document {
	t.Helper()
	d := document.New()
	p0 := d.NewParagraph("", "")
	d.AppendChild(p0, d.NewRun(a, ""))
	p1 := d.NewParagraph("", "")
	d.AppendChild(p1, d.NewRun(b, ""))
	d.Body = []document.Block{
		{Kind: document.BlockParagraph, Paragraph: p0},
		{Kind: document.BlockParagraph, Paragraph: p1},
	}
	return d
}

func TestDeleteParagraphMarkUntracked(t *testing.T) {
	s := NewSession(twoParas(t, "alpha", "beta"))
	r := s.Apply(Operation{Kind: OpDelete, Query: "\n", Occurrence: match.First()})
	if r.Err != nil {
		t.Fatal(r.Err)
	}
	if got := visible(t, s); got != "alphabeta\n" {
		t.Errorf("visible = %q", got)
	}
	if n := len(s.Document().Body); n != 1 {
		t.Errorf("body blocks = %d, want 1 after merge", n)
	}
}

func TestDeleteParagraphMarkTracked(t *testing.T) {
	s := NewSession(twoParas(t, "alpha", "beta"))
	r := s.Apply(Operation{Kind: OpDelete, Query: "\n", Occurrence: match.First(), Track: true, Author: "A"})
	if r.Err != nil {
		t.Fatal(r.Err)
	}
	// The mark is flagged, not removed: paragraphs merge only on accept.
	if n := len(s.Document().Body); n != 2 {
		t.Fatalf("body blocks = %d, want 2", n)
	}
	if got := visible(t, s); got != "alphabeta\n" {
		t.Errorf("visible = %q", got)
	}
	if got := withDeleted(t, s); got != "alpha\nbeta\n" {
		t.Errorf("with deleted = %q", got)
	}
	revs := s.Revisions()
	if len(revs) != 1 || revs[0].Kind != document.KindParagraphMark {
		t.Fatalf("revisions = %+v, want one deleted paragraph mark", revs)
	}
}

func TestInsertTrackedAndSameAuthorExtension(t *testing.T) {
	s := NewSession(contractDoc(t))
	r := s.Apply(Operation{
		Kind:     OpInsert,
		Query:    "terms",
		Position: Before,
		Text:     "key ",
		Track:    true,
		Author:   "Reviewer",
	})
	if r.Err != nil {
		t.Fatal(r.Err)
	}
	if got := visible(t, s); got != "The Contract key terms\n" {
		t.Errorf("visible = %q", got)
	}
	if revs := s.Revisions(); len(revs) != 1 || revs[0].Text != "key " {
		t.Fatalf("revisions = %+v", revs)
	}

	// Same author inserting at the wrapper boundary extends the existing
	// insertion instead of minting a second one.
	r = s.Apply(Operation{
		Kind:     OpInsert,
		Query:    "key ",
		Position: After,
		Text:     "contract ",
		Track:    true,
		Author:   "Reviewer",
	})
	if r.Err != nil {
		t.Fatal(r.Err)
	}
	if got := visible(t, s); got != "The Contract key contract terms\n" {
		t.Errorf("visible = %q", got)
	}
	revs := s.Revisions()
	if len(revs) != 1 {
		t.Fatalf("revisions = %d, want the original insertion extended", len(revs))
	}
	if revs[0].Text != "key contract " {
		t.Errorf("insertion text = %q", revs[0].Text)
	}

	// A different author at the same boundary gets a fresh wrapper.
	r = s.Apply(Operation{
		Kind:     OpInsert,
		Query:    "contract ",
		Position: After,
		Text:     "new ",
		Track:    true,
		Author:   "Other",
	})
	if r.Err != nil {
		t.Fatal(r.Err)
	}
	if revs := s.Revisions(); len(revs) != 2 {
		t.Errorf("revisions = %d, want 2 wrappers for 2 authors", len(revs))
	}
}

func TestScopeRestrictsEdit(t *testing.T) {
	d := document.New()
	mk := func(text, style string) document.NodeID {
		p := d.NewParagraph("", style)
		d.AppendChild(p, d.NewRun(text, ""))
		return p
	}
	d.Body = []document.Block{
		{Kind: document.BlockParagraph, Paragraph: mk("Terms", "Heading1")},
		{Kind: document.BlockParagraph, Paragraph: mk("liability cap applies", "")},
		{Kind: document.BlockParagraph, Paragraph: mk("Misc", "Heading1")},
		{Kind: document.BlockParagraph, Paragraph: mk("liability cap applies", "")},
	}

	s := NewSession(d)
	r := s.Apply(Operation{
		Kind:  OpDelete,
		Query: "liability cap ",
		Match: match.Options{Scope: &scope.Spec{SectionHeading: "Terms"}},
	})
	if r.Err != nil {
		t.Fatal(r.Err)
	}
	want := "Terms\napplies\nMisc\nliability cap applies\n"
	if got := visible(t, s); got != want {
		t.Errorf("visible = %q, want %q", got, want)
	}

	// Zero in-scope matches is NotFound even when the text exists elsewhere.
	r = s.Apply(Operation{
		Kind:  OpDelete,
		Query: "liability cap ",
		Match: match.Options{Scope: &scope.Spec{SectionHeading: "Terms"}},
	})
	if !rederrors.Is(r.Err, rederrors.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", r.Err)
	}
	var nf *rederrors.NotFoundError
	if !rederrors.As(r.Err, &nf) || nf.OutOfScope != 1 {
		t.Errorf("NotFound should report 1 out-of-scope match, got %+v", nf)
	}
}

func TestBatchRelocatesPerEdit(t *testing.T) {
	d := document.New()
	p := d.NewParagraph("", "")
	d.AppendChild(p, d.NewRun("one two three", ""))
	d.Body = []document.Block{{Kind: document.BlockParagraph, Paragraph: p}}

	s := NewSession(d)
	results := s.ApplyBatch([]Operation{
		{Kind: OpReplace, Query: "one", Text: "1"},
		{Kind: OpReplace, Query: "two", Text: "2"},
		{Kind: OpReplace, Query: "three", Text: "3"},
	}, false)
	for i, r := range results {
		if r.Err != nil {
			t.Fatalf("edit %d: %v", i, r.Err)
		}
	}
	if got := visible(t, s); got != "1 2 3\n" {
		t.Errorf("visible = %q", got)
	}
}

func TestBatchStopsAtFirstFailure(t *testing.T) {
	s := NewSession(contractDoc(t))
	results := s.ApplyBatch([]Operation{
		{Kind: OpReplace, Query: "Contract", Text: "Deal"},
		{Kind: OpDelete, Query: "no such text"},
		{Kind: OpDelete, Query: "terms"},
	}, false)
	if len(results) != 2 {
		t.Fatalf("results = %d, want batch stopped after failure", len(results))
	}
	if results[0].Err != nil {
		t.Errorf("edit 0 should have committed: %v", results[0].Err)
	}
	if !rederrors.Is(results[1].Err, rederrors.ErrNotFound) {
		t.Errorf("edit 1 err = %v", results[1].Err)
	}
	// The first edit stays committed.
	if got := visible(t, s); got != "The Deal terms\n" {
		t.Errorf("visible = %q", got)
	}
}

func TestBatchContinueOnError(t *testing.T) {
	s := NewSession(contractDoc(t))
	results := s.ApplyBatch([]Operation{
		{Kind: OpDelete, Query: "no such text"},
		{Kind: OpReplace, Query: "Contract", Text: "Deal"},
	}, true)
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	if results[0].Err == nil || results[1].Err != nil {
		t.Errorf("results = %+v", results)
	}
	if got := visible(t, s); got != "The Deal terms\n" {
		t.Errorf("visible = %q", got)
	}
}

func TestAmbiguousWithoutOccurrence(t *testing.T) {
	s := NewSession(twoParas(t, "cap here", "cap there"))
	r := s.Apply(Operation{Kind: OpDelete, Query: "cap"})
	if !rederrors.Is(r.Err, rederrors.ErrAmbiguous) {
		t.Fatalf("err = %v, want ErrAmbiguous", r.Err)
	}
	// Nothing was touched.
	if got := visible(t, s); got != "cap here\ncap there\n" {
		t.Errorf("visible = %q", got)
	}

	r = s.Apply(Operation{Kind: OpDelete, Query: "cap ", Occurrence: match.All()})
	if r.Err != nil {
		t.Fatal(r.Err)
	}
	if r.Applied != 2 {
		t.Errorf("Applied = %d, want 2", r.Applied)
	}
	if got := visible(t, s); got != "here\nthere\n" {
		t.Errorf("visible = %q", got)
	}
}

func TestFailedOpLeavesTreeUntouched(t *testing.T) {
	s := NewSession(contractDoc(t))
	before := visible(t, s)

	r1 := s.Apply(Operation{Kind: OpReplace, Query: "Contract", Text: "Deal", Track: true, Author: "A"})
	if r1.Err != nil {
		t.Fatal(r1.Err)
	}
	r2 := s.Apply(Operation{Kind: OpDelete, Query: "missing"})
	if r2.Err == nil {
		t.Fatal("expected failure")
	}
	_ = before

	// IDs stay strictly increasing across a failed operation.
	r3 := s.Apply(Operation{Kind: OpInsert, Query: "terms", Position: After, Text: "!", Track: true, Author: "A"})
	if r3.Err != nil {
		t.Fatal(r3.Err)
	}
	maxPrev := 0
	for _, id := range r1.RevisionIDs {
		if id > maxPrev {
			maxPrev = id
		}
	}
	for _, id := range r3.RevisionIDs {
		if id <= maxPrev {
			t.Errorf("ID %d not greater than previously minted %d", id, maxPrev)
		}
	}
}

func TestFindIncludeDeleted(t *testing.T) {
	s := NewSession(contractDoc(t))
	r := s.Apply(Operation{Kind: OpDelete, Query: "Contract", Author: "A", Track: true})
	if r.Err != nil {
		t.Fatal(r.Err)
	}

	_, _, err := s.Find("Contract", match.Options{}, false)
	if !rederrors.Is(err, rederrors.ErrNotFound) {
		t.Fatalf("err = %v, want NotFound", err)
	}

	matches, f, err := s.Find("Contract", match.Options{}, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 {
		t.Fatalf("matches = %d, want 1", len(matches))
	}
	// Spans must index into the returned flow, not a separately built one.
	if got := f.Text()[matches[0].Span.Start:matches[0].Span.End]; got != "Contract" {
		t.Errorf("span slices %q from the search flow, want %q", got, "Contract")
	}
}

func TestMoveTracked(t *testing.T) {
	s := NewSession(twoParas(t, "alpha beta", "gamma delta"))
	r := s.Apply(Operation{
		Kind:         OpMove,
		Query:        "beta",
		DestQuery:    "delta",
		DestPosition: Before,
		Track:        true,
		Author:       "Editor",
	})
	if r.Err != nil {
		t.Fatal(r.Err)
	}
	if got := visible(t, s); got != "alpha \ngamma betadelta\n" {
		t.Errorf("visible = %q", got)
	}

	revs := s.Revisions()
	var from, to *RevisionEntry
	for i := range revs {
		switch revs[i].Kind {
		case document.KindMoveFrom:
			from = &revs[i]
		case document.KindMoveTo:
			to = &revs[i]
		}
	}
	if from == nil || to == nil {
		t.Fatalf("revisions = %+v, want a move-from and a move-to", revs)
	}
	if from.Text != "beta" || to.Text != "beta" {
		t.Errorf("moved text = %q / %q", from.Text, to.Text)
	}
	if from.Group == "" || from.Group != to.Group {
		t.Errorf("group linkage broken: %q vs %q", from.Group, to.Group)
	}
	if from.ID == to.ID {
		t.Errorf("move sides share revision ID %d", from.ID)
	}
}

func TestMoveUntracked(t *testing.T) {
	s := NewSession(twoParas(t, "alpha beta", "gamma delta"))
	r := s.Apply(Operation{
		Kind:         OpMove,
		Query:        "beta",
		DestQuery:    "delta",
		DestPosition: Before,
	})
	if r.Err != nil {
		t.Fatal(r.Err)
	}
	if got := visible(t, s); got != "alpha \ngamma betadelta\n" {
		t.Errorf("visible = %q", got)
	}
	if revs := s.Revisions(); len(revs) != 0 {
		t.Errorf("untracked move left %d revision elements", len(revs))
	}
}

func TestRegexReplacePreservesCaptures(t *testing.T) {
	d := document.New()
	p := d.NewParagraph("", "")
	d.AppendChild(p, d.NewRun("Effective Date: 2024-01-15.", ""))
	d.Body = []document.Block{{Kind: document.BlockParagraph, Paragraph: p}}

	s := NewSession(d)
	r := s.Apply(Operation{
		Kind:  OpReplace,
		Query: `\d{4}-\d{2}-\d{2}`,
		Match: match.Options{Mode: match.ModeRegex},
		Text:  "2025-06-30",
	})
	if r.Err != nil {
		t.Fatal(r.Err)
	}
	if got := visible(t, s); got != "Effective Date: 2025-06-30.\n" {
		t.Errorf("visible = %q", got)
	}
}

func TestNormalizedMatchMutatesOriginalText(t *testing.T) {
	d := document.New()
	p := d.NewParagraph("", "")
	d.AppendChild(p, d.NewRun("He said “hello” loudly.", ""))
	d.Body = []document.Block{{Kind: document.BlockParagraph, Paragraph: p}}

	s := NewSession(d)
	r := s.Apply(Operation{
		Kind:  OpDelete,
		Query: `"hello" `,
		Match: match.Options{Normalize: true},
	})
	if r.Err != nil {
		t.Fatal(r.Err)
	}
	if got := visible(t, s); got != "He said loudly.\n" {
		t.Errorf("visible = %q", got)
	}
}

func TestNormalizedDeleteCoversFoldedRune(t *testing.T) {
	d := document.New()
	p := d.NewParagraph("", "")
	d.AppendChild(p, d.NewRun("wait… more", ""))
	d.Body = []document.Block{{Kind: document.BlockParagraph, Paragraph: p}}

	s := NewSession(d)
	r := s.Apply(Operation{
		Kind:  OpDelete,
		Query: "wait.",
		Match: match.Options{Normalize: true},
	})
	if r.Err != nil {
		t.Fatal(r.Err)
	}
	// The span ends inside the folded ellipsis; the whole rune must go.
	if got := visible(t, s); got != " more\n" {
		t.Errorf("visible = %q, want %q", got, " more\n")
	}
}
