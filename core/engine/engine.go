// Package engine executes insert, delete, replace, and move operations as
// tree edits with a tracked-change overlay: run splitting, wrapper cloning
// and splitting, paragraph-mark deletion, and move-pair linkage.
//
// Every operation stages its changes against a cloned tree and commits only
// after structural validation; a rejected mutation leaves the session's
// document untouched.
package engine

import (
	"fmt"
	"time"

	"github.com/FocuswithJustin/redline/core/document"
	rederrors "github.com/FocuswithJustin/redline/core/errors"
	"github.com/FocuswithJustin/redline/core/flow"
	"github.com/FocuswithJustin/redline/core/match"
	"github.com/FocuswithJustin/redline/core/revision"
	"github.com/FocuswithJustin/redline/core/scope"
	"github.com/FocuswithJustin/redline/internal/logging"
)

// OpKind identifies an operation.
type OpKind uint8

const (
	// OpInsert splices new text at a boundary located by an anchor query.
	OpInsert OpKind = iota
	// OpDelete removes (or tracks removal of) a located span.
	OpDelete
	// OpReplace substitutes a located span; deletion elements always precede
	// insertion elements in the output.
	OpReplace
	// OpMove relocates a located span to a destination anchor as a linked
	// source/destination pair.
	OpMove
)

// String returns the operation kind's name.
func (k OpKind) String() string {
	switch k {
	case OpInsert:
		return "insert"
	case OpDelete:
		return "delete"
	case OpReplace:
		return "replace"
	case OpMove:
		return "move"
	}
	return fmt.Sprintf("op(%d)", uint8(k))
}

// Position places inserted content relative to its anchor span.
type Position uint8

const (
	// Before places content at the anchor span's start.
	Before Position = iota
	// After places content at the anchor span's end.
	After
)

// AlreadyDeletedPolicy decides what happens when an operation targets a span
// that is entirely inside an active deletion.
type AlreadyDeletedPolicy uint8

const (
	// AlreadyDeletedFail rejects the operation with an AlreadyDeleted error.
	AlreadyDeletedFail AlreadyDeletedPolicy = iota
	// AlreadyDeletedSkip turns the operation into a no-op.
	AlreadyDeletedSkip
)

// Policy carries session-wide behavior switches.
type Policy struct {
	AlreadyDeleted AlreadyDeletedPolicy
}

// Operation is one requested edit.
type Operation struct {
	Kind OpKind

	// Query locates the target (or, for inserts, the anchor) span.
	Query      string
	Match      match.Options
	Occurrence match.Occurrence

	// IncludeDeleted widens the search to text inside active deletions.
	IncludeDeleted bool

	// Text is the inserted or replacement text.
	Text string

	// Position applies to inserts: where Text lands relative to the anchor.
	Position Position

	// Destination anchor, moves only.
	DestQuery      string
	DestMatch      match.Options
	DestOccurrence match.Occurrence
	DestPosition   Position

	// Track records the edit as a tracked change attributed to Author/Date;
	// untracked edits mutate the text directly.
	Track  bool
	Author string
	Date   time.Time
}

// Result reports one operation's outcome.
type Result struct {
	Kind        OpKind
	Applied     int   // spans mutated (0 on failure or no-op)
	RevisionIDs []int // IDs minted for committed tracked elements
	Err         error
}

// Ok reports whether the operation committed without error.
func (r Result) Ok() bool { return r.Err == nil }

// Session owns one document for a load→edit→save lifetime, together with its
// revision ID allocator. A session must not be shared across goroutines.
type Session struct {
	doc    *document.Document
	alloc  *revision.Allocator
	policy Policy
}

// NewSession wraps doc in an editing session. The allocator scans the
// document here, once; IDs it issues are strictly greater than anything
// already present.
func NewSession(doc *document.Document) *Session {
	return &Session{
		doc:   doc,
		alloc: revision.NewAllocator(doc),
	}
}

// SetPolicy replaces the session policy.
func (s *Session) SetPolicy(p Policy) { s.policy = p }

// Document returns the session's current committed tree.
func (s *Session) Document() *document.Document { return s.doc }

// Find locates query in the current tree. Match spans index into the
// returned flow, so callers render excerpts from it rather than building
// their own. includeDeleted widens the search into tracked deletions. Zero
// in-scope matches yield a NotFound error whose diagnostic states whether
// matches exist outside the scope.
func (s *Session) Find(query string, opts match.Options, includeDeleted bool) ([]match.Match, *flow.Flow, error) {
	f := flow.Build(s.doc, flow.Options{IncludeDeleted: includeDeleted})
	res, err := match.Find(f, query, opts)
	if err != nil {
		return nil, nil, err
	}
	if len(res.Matches) == 0 {
		scopeDesc := ""
		if opts.Scope != nil && !opts.Scope.IsZero() {
			scopeDesc = opts.Scope.Describe()
		}
		return nil, nil, &rederrors.NotFoundError{Query: query, Scope: scopeDesc, OutOfScope: res.OutOfScope}
	}
	return res.Matches, f, nil
}

// Apply stages, validates, and commits one operation. On any failure the
// session's tree is byte-for-byte what it was before the call.
func (s *Session) Apply(op Operation) Result {
	op = withDefaults(op)
	result := Result{Kind: op.Kind}

	staged := s.doc.Clone()
	mut := &mutator{doc: staged, alloc: s.alloc, policy: s.policy}

	var err error
	switch op.Kind {
	case OpDelete:
		err = mut.deleteOp(op)
	case OpReplace:
		err = mut.replaceOp(op)
	case OpInsert:
		err = mut.insertOp(op)
	case OpMove:
		err = mut.moveOp(op)
	default:
		err = fmt.Errorf("unknown operation kind %d", op.Kind)
	}
	if err != nil {
		logging.EditDiscarded(op.Kind.String(), err)
		result.Err = err
		return result
	}

	logging.EditStaged(op.Kind.String(), op.Author, "spans", mut.applied)

	staged.PruneEmptyWrappers()
	if violations := staged.Validate(); len(violations) > 0 {
		err := &rederrors.StructureError{Operation: op.Kind.String(), Violations: violations}
		logging.EditDiscarded(op.Kind.String(), err)
		result.Err = err
		return result
	}

	s.doc = staged
	result.Applied = mut.applied
	result.RevisionIDs = mut.minted
	logging.EditCommitted(op.Kind.String(), op.Author, mut.minted)
	return result
}

// ApplyBatch executes ops strictly in order. Each edit re-locates its target
// against the tree state left by the previous edits; spans are never carried
// across edits. With continueOnError set, failures are recorded and the
// batch proceeds; otherwise the batch stops at the first failure (prior
// successful edits stay committed either way).
func (s *Session) ApplyBatch(ops []Operation, continueOnError bool) []Result {
	results := make([]Result, 0, len(ops))
	for _, op := range ops {
		r := s.Apply(op)
		results = append(results, r)
		if r.Err != nil && !continueOnError {
			break
		}
	}
	return results
}

func withDefaults(op Operation) Operation {
	if op.Author == "" {
		op.Author = "redline"
	}
	if op.Date.IsZero() {
		op.Date = time.Now().UTC()
	}
	return op
}

// locate runs the matcher and occurrence selection for op's primary query
// against the given flow.
func locate(f *flow.Flow, query string, opts match.Options, occ match.Occurrence) ([]match.Match, error) {
	res, err := match.Find(f, query, opts)
	if err != nil {
		return nil, err
	}
	if len(res.Matches) == 0 {
		scopeDesc := ""
		if opts.Scope != nil && !opts.Scope.IsZero() {
			scopeDesc = opts.Scope.Describe()
		}
		return nil, &rederrors.NotFoundError{Query: query, Scope: scopeDesc, OutOfScope: res.OutOfScope}
	}
	return match.SelectOccurrence(f, query, res.Matches, occ)
}

// scopeEvaluatorFor builds one evaluator reusable across a staged doc's
// finds, or nil when no scope applies.
func scopeEvaluatorFor(doc *document.Document, opts match.Options) *scope.Evaluator {
	if opts.Scope == nil || opts.Scope.IsZero() {
		return nil
	}
	return scope.NewEvaluator(doc)
}
