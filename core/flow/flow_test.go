package flow

import (
	"testing"

	"github.com/FocuswithJustin/redline/core/document"
)

// twoParaDoc builds:
//
//	p0: "Con" "tract" [del(A): "void "] "terms"
//	p1: [ins(B): "new "] "clause"
func twoParaDoc(t *testing.T) (*document.Document, []document.NodeID) {
	t.Helper()
	d := document.New()

	p0 := d.NewParagraph("", "")
	d.AppendChild(p0, d.NewRun("Con", ""))
	d.AppendChild(p0, d.NewRun("tract", ""))
	del := d.NewWrapper(document.KindDeletion, document.Revision{ID: 1, Author: "A"})
	d.AppendChild(p0, del)
	d.AppendChild(del, d.NewRun("void ", ""))
	d.AppendChild(p0, d.NewRun("terms", ""))

	p1 := d.NewParagraph("", "")
	ins := d.NewWrapper(document.KindInsertion, document.Revision{ID: 2, Author: "B"})
	d.AppendChild(p1, ins)
	d.AppendChild(ins, d.NewRun("new ", ""))
	d.AppendChild(p1, d.NewRun("clause", ""))

	d.Body = []document.Block{
		{Kind: document.BlockParagraph, Paragraph: p0},
		{Kind: document.BlockParagraph, Paragraph: p1},
	}
	return d, []document.NodeID{p0, p1}
}

func TestBuildSkipsDeletedByDefault(t *testing.T) {
	d, _ := twoParaDoc(t)
	f := Build(d, Options{})
	want := "Contractterms\nnew clause\n"
	if f.Text() != want {
		t.Errorf("Text() = %q, want %q", f.Text(), want)
	}
}

func TestBuildIncludeDeleted(t *testing.T) {
	d, _ := twoParaDoc(t)
	f := Build(d, Options{IncludeDeleted: true})
	want := "Contractvoid terms\nnew clause\n"
	if f.Text() != want {
		t.Errorf("Text() = %q, want %q", f.Text(), want)
	}
}

func TestBuildSubsetOfParagraphs(t *testing.T) {
	d, paras := twoParaDoc(t)
	f := Build(d, Options{Paragraphs: paras[1:]})
	if f.Text() != "new clause\n" {
		t.Errorf("Text() = %q, want %q", f.Text(), "new clause\n")
	}
}

func TestResolveSingleRun(t *testing.T) {
	d, _ := twoParaDoc(t)
	f := Build(d, Options{})
	// "tract" occupies [3,8) of "Contractterms\n..."
	groups, err := f.Resolve(Span{3, 8})
	if err != nil {
		t.Fatal(err)
	}
	if len(groups) != 1 {
		t.Fatalf("groups = %d, want 1", len(groups))
	}
	g := groups[0]
	if g.Wrapper != document.Nil {
		t.Errorf("wrapper context = %d, want Nil", g.Wrapper)
	}
	if len(g.Slices) != 1 {
		t.Fatalf("slices = %d, want 1", len(g.Slices))
	}
	s := g.Slices[0]
	if s.IsPartial {
		t.Error("full-node slice flagged partial")
	}
	if got := s.Text(d); got != "tract" {
		t.Errorf("slice text = %q, want %q", got, "tract")
	}
}

func TestResolveSpanAcrossRuns(t *testing.T) {
	d, _ := twoParaDoc(t)
	f := Build(d, Options{})
	// "ntractte" spans the tail of run 0, all of run 1, head of "terms".
	groups, err := f.Resolve(Span{2, 10})
	if err != nil {
		t.Fatal(err)
	}
	if len(groups) != 1 {
		t.Fatalf("groups = %d, want 1 (all plain context)", len(groups))
	}
	slices := groups[0].Slices
	if len(slices) != 3 {
		t.Fatalf("slices = %d, want 3", len(slices))
	}
	if !slices[0].IsPartial || slices[1].IsPartial || !slices[2].IsPartial {
		t.Errorf("partial flags = %v %v %v, want true false true",
			slices[0].IsPartial, slices[1].IsPartial, slices[2].IsPartial)
	}
	text := ""
	for _, s := range slices {
		text += s.Text(d)
	}
	if text != "ntractte" {
		t.Errorf("reassembled = %q, want %q", text, "ntractte")
	}
}

func TestResolveGroupsByWrapperContext(t *testing.T) {
	d, _ := twoParaDoc(t)
	f := Build(d, Options{})
	// "clause" sits partly outside, partly inside the insertion wrapper:
	// span covering "ctterms\nnew cl" crosses plain -> mark -> wrapper -> plain.
	start := 6 // "ct" of Contract
	end := 20  // through "new cl"... compute: "Contractterms\n" is 14 bytes; + "new cl" = 20
	groups, err := f.Resolve(Span{start, end})
	if err != nil {
		t.Fatal(err)
	}
	if len(groups) != 3 {
		t.Fatalf("groups = %d, want 3 (plain, insertion, plain)", len(groups))
	}
	if groups[0].Wrapper != document.Nil {
		t.Error("first group should be plain context")
	}
	if groups[1].Wrapper == document.Nil {
		t.Error("second group should be the insertion wrapper context")
	}
	if d.Node(groups[1].Wrapper).Kind != document.KindInsertion {
		t.Errorf("second group wrapper kind = %v, want insertion", d.Node(groups[1].Wrapper).Kind)
	}
	if groups[2].Wrapper != document.Nil {
		t.Error("third group should be plain context")
	}
}

func TestResolveCoversParagraphMark(t *testing.T) {
	d, _ := twoParaDoc(t)
	f := Build(d, Options{})
	groups, err := f.Resolve(Span{0, 14}) // "Contractterms\n"
	if err != nil {
		t.Fatal(err)
	}
	last := groups[len(groups)-1]
	marks := 0
	for _, s := range last.Slices {
		if s.IsMark {
			marks++
		}
	}
	if marks != 1 {
		t.Errorf("mark slices = %d, want 1", marks)
	}
}

func TestResolveRejectsBadSpans(t *testing.T) {
	d, _ := twoParaDoc(t)
	f := Build(d, Options{})
	for _, span := range []Span{{-1, 3}, {3, 3}, {5, 4}, {0, len(f.Text()) + 1}} {
		if _, err := f.Resolve(span); err == nil {
			t.Errorf("Resolve(%+v) succeeded, want error", span)
		}
	}
}

func TestBoundaryAt(t *testing.T) {
	d, _ := twoParaDoc(t)
	f := Build(d, Options{})

	t.Run("mid run", func(t *testing.T) {
		b, err := f.BoundaryAt(5)
		if err != nil {
			t.Fatal(err)
		}
		if d.Node(b.Node).Text != "tract" || b.Intra != 2 {
			t.Errorf("boundary = node %q intra %d, want tract/2", d.Node(b.Node).Text, b.Intra)
		}
	})

	t.Run("segment junction prefers following segment", func(t *testing.T) {
		b, err := f.BoundaryAt(3) // between "Con" and "tract"
		if err != nil {
			t.Fatal(err)
		}
		if d.Node(b.Node).Text != "tract" || b.Intra != 0 {
			t.Errorf("boundary = node %q intra %d, want tract/0", d.Node(b.Node).Text, b.Intra)
		}
		if b.PrevNode == document.Nil || d.Node(b.PrevNode).Text != "Con" {
			t.Error("junction boundary should expose the preceding segment")
		}
	})

	t.Run("end of flow", func(t *testing.T) {
		b, err := f.BoundaryAt(len(f.Text()))
		if err != nil {
			t.Fatal(err)
		}
		if !b.AtEnd {
			t.Error("AtEnd not set at end of flow")
		}
	})
}

func TestParagraphAtAndContext(t *testing.T) {
	d, paras := twoParaDoc(t)
	f := Build(d, Options{})
	if got := f.ParagraphAt(0); got != paras[0] {
		t.Errorf("ParagraphAt(0) = %d, want first paragraph", got)
	}
	if got := f.ParagraphAt(15); got != paras[1] {
		t.Errorf("ParagraphAt(15) = %d, want second paragraph", got)
	}
	ctx := f.Context(Span{3, 8}, 3)
	if ctx == "" {
		t.Error("Context returned empty excerpt")
	}
}
