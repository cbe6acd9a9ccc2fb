// Command redline applies tracked-change edits to zipped XML documents:
// locating text, inserting, deleting, replacing, and moving it, with the
// change history preserved as reviewable markup.
package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/alecthomas/kong"

	"github.com/FocuswithJustin/redline/core/docpack"
	"github.com/FocuswithJustin/redline/core/engine"
	"github.com/FocuswithJustin/redline/core/match"
	"github.com/FocuswithJustin/redline/core/scope"
	"github.com/FocuswithJustin/redline/internal/logging"
	"github.com/FocuswithJustin/redline/internal/validation"
)

const version = "0.1.0"

// CLI defines the command-line interface for redline.
var CLI struct {
	// Global flags
	Author             string `help:"Author attributed to tracked changes" default:"redline"`
	Untracked          bool   `help:"Apply edits directly, without tracked-change markup"`
	Out                string `help:"Write the result here instead of editing in place" type:"path"`
	SkipAlreadyDeleted bool   `name:"skip-already-deleted" help:"Treat edits on already-deleted text as no-ops instead of errors"`
	LogLevel           string `name:"log-level" enum:"debug,info,warn,error" default:"warn" help:"Log verbosity"`
	LogFormat          string `name:"log-format" enum:"text,json" default:"text" help:"Log output format"`

	Find      FindCmd      `cmd:"" help:"Locate text and print where it was found"`
	Insert    InsertCmd    `cmd:"" help:"Insert text before or after an anchor"`
	Delete    DeleteCmd    `cmd:"" help:"Delete located text"`
	Replace   ReplaceCmd   `cmd:"" help:"Replace located text"`
	Move      MoveCmd      `cmd:"" help:"Move located text to a destination anchor"`
	Revisions RevisionsCmd `cmd:"" help:"List tracked changes in the document"`
	Validate  ValidateCmd  `cmd:"" help:"Check the document part's revision structure"`
	Version   VersionCmd   `cmd:"" help:"Print version information"`
}

// MatchFlags selects how the query is interpreted and which paragraphs are
// eligible. Shared by every command that locates text.
type MatchFlags struct {
	Regex          bool    `help:"Treat the query as a regular expression"`
	Fuzzy          bool    `help:"Approximate matching"`
	Threshold      float64 `default:"0.8" help:"Minimum fuzzy similarity (0..1]"`
	Algorithm      string  `enum:"edit,token,substring" default:"edit" help:"Fuzzy algorithm"`
	IgnoreCase     bool    `name:"ignore-case" help:"Case-insensitive matching"`
	Normalize      bool    `help:"Fold curly quotes, long dashes, and similar typographic variants"`
	Occurrence     string  `help:"Which matches to use: all, first, last, N, or i,j,k" default:""`
	InSection      string  `name:"in-section" help:"Only paragraphs under this heading"`
	Style          string  `help:"Only paragraphs with this style"`
	Containing     string  `help:"Only paragraphs containing this text"`
	NotContaining  string  `name:"not-containing" help:"Exclude paragraphs containing this text"`
	Where          string  `help:"Expression predicate over text, style, index, headings, section, in_table"`
	IncludeDeleted bool    `name:"include-deleted" help:"Search text inside tracked deletions too"`
}

func (m MatchFlags) options() (match.Options, match.Occurrence, error) {
	opts := match.Options{
		IgnoreCase:     m.IgnoreCase,
		Normalize:      m.Normalize,
		FuzzyThreshold: m.Threshold,
	}
	switch {
	case m.Regex && m.Fuzzy:
		return opts, match.Occurrence{}, fmt.Errorf("--regex and --fuzzy are mutually exclusive")
	case m.Regex:
		opts.Mode = match.ModeRegex
	case m.Fuzzy:
		opts.Mode = match.ModeFuzzy
	}
	switch m.Algorithm {
	case "token":
		opts.FuzzyAlgorithm = match.FuzzyTokenSet
	case "substring":
		opts.FuzzyAlgorithm = match.FuzzySubstring
	}
	sc := &scope.Spec{
		Contains:       m.Containing,
		NotContains:    m.NotContaining,
		SectionHeading: m.InSection,
		Style:          m.Style,
		Expr:           m.Where,
	}
	if !sc.IsZero() {
		opts.Scope = sc
	}
	occ := match.Occurrence{}
	if m.Occurrence != "" {
		var err error
		occ, err = match.ParseOccurrence(m.Occurrence)
		if err != nil {
			return opts, occ, err
		}
	}
	return opts, occ, nil
}

// FindCmd locates text without editing anything.
type FindCmd struct {
	File  string `arg:"" help:"Document file" type:"existingfile"`
	Query string `arg:"" help:"Text to locate"`
	MatchFlags
}

func (c *FindCmd) Run() error {
	opts, _, err := c.MatchFlags.options()
	if err != nil {
		return err
	}
	_, s, err := openSession(c.File)
	if err != nil {
		return err
	}
	matches, f, err := s.Find(c.Query, opts, c.IncludeDeleted)
	if err != nil {
		return err
	}
	fmt.Printf("%d match(es)\n", len(matches))
	for i, m := range matches {
		loc := fmt.Sprintf("paragraph %d", m.Location.Index)
		if m.Location.InTable() {
			loc = fmt.Sprintf("%s (table %d, row %d, cell %d)",
				loc, m.Location.Table, m.Location.Row, m.Location.Cell)
		}
		fmt.Printf("%3d. [%d:%d] %s: %s\n", i+1, m.Span.Start, m.Span.End, loc, f.Context(m.Span, 30))
		if m.Score < 1.0 {
			fmt.Printf("     similarity %.2f\n", m.Score)
		}
	}
	return nil
}

// InsertCmd inserts text relative to an anchor span.
type InsertCmd struct {
	File  string `arg:"" help:"Document file" type:"existingfile"`
	Query string `arg:"" help:"Anchor text"`
	Text  string `arg:"" help:"Text to insert"`
	After bool   `help:"Insert after the anchor instead of before it"`
	MatchFlags
}

func (c *InsertCmd) Run() error {
	op, err := operation(engine.OpInsert, c.Query, c.Text, c.MatchFlags)
	if err != nil {
		return err
	}
	if c.After {
		op.Position = engine.After
	}
	return runEdit(c.File, op)
}

// DeleteCmd deletes located text.
type DeleteCmd struct {
	File  string `arg:"" help:"Document file" type:"existingfile"`
	Query string `arg:"" help:"Text to delete"`
	MatchFlags
}

func (c *DeleteCmd) Run() error {
	op, err := operation(engine.OpDelete, c.Query, "", c.MatchFlags)
	if err != nil {
		return err
	}
	return runEdit(c.File, op)
}

// ReplaceCmd replaces located text.
type ReplaceCmd struct {
	File  string `arg:"" help:"Document file" type:"existingfile"`
	Query string `arg:"" help:"Text to replace"`
	Text  string `arg:"" help:"Replacement text"`
	MatchFlags
}

func (c *ReplaceCmd) Run() error {
	op, err := operation(engine.OpReplace, c.Query, c.Text, c.MatchFlags)
	if err != nil {
		return err
	}
	return runEdit(c.File, op)
}

// MoveCmd moves located text to a destination anchor.
type MoveCmd struct {
	File       string `arg:"" help:"Document file" type:"existingfile"`
	Query      string `arg:"" help:"Text to move"`
	Dest       string `arg:"" help:"Destination anchor text"`
	DestAfter  bool   `name:"dest-after" help:"Place the text after the destination anchor"`
	DestOccurs string `name:"dest-occurrence" help:"Occurrence selector for the destination anchor"`
	MatchFlags
}

func (c *MoveCmd) Run() error {
	op, err := operation(engine.OpMove, c.Query, "", c.MatchFlags)
	if err != nil {
		return err
	}
	op.DestQuery = c.Dest
	if c.DestAfter {
		op.DestPosition = engine.After
	}
	if c.DestOccurs != "" {
		op.DestOccurrence, err = match.ParseOccurrence(c.DestOccurs)
		if err != nil {
			return err
		}
	}
	return runEdit(c.File, op)
}

// RevisionsCmd lists tracked changes.
type RevisionsCmd struct {
	File string `arg:"" help:"Document file" type:"existingfile"`
}

func (c *RevisionsCmd) Run() error {
	_, s, err := openSession(c.File)
	if err != nil {
		return err
	}
	revs := s.Revisions()
	if len(revs) == 0 {
		fmt.Println("No tracked changes")
		return nil
	}
	for _, r := range revs {
		line := fmt.Sprintf("id %d  %-14s %s", r.ID, r.Kind, r.Author)
		if !r.Date.IsZero() {
			line += "  " + r.Date.Format("2006-01-02")
		}
		if r.Text != "" {
			line += fmt.Sprintf("  %q", r.Text)
		}
		if r.Group != "" {
			line += "  group " + r.Group
		}
		fmt.Println(line)
	}
	return nil
}

// ValidateCmd checks revision structure of the document part.
type ValidateCmd struct {
	File string `arg:"" help:"Document file" type:"existingfile"`
}

func (c *ValidateCmd) Run() error {
	pkg, err := docpack.OpenFile(c.File)
	if err != nil {
		return err
	}
	data, ok := pkg.Part(docpack.DocumentPart)
	if !ok {
		return fmt.Errorf("%s: no document part", c.File)
	}
	violations, err := docpack.Validate(data)
	if err != nil {
		return err
	}
	if len(violations) == 0 {
		fmt.Println("OK")
		return nil
	}
	for _, v := range violations {
		fmt.Println(v)
	}
	return fmt.Errorf("%d structural violation(s)", len(violations))
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Printf("redline %s\n", version)
	return nil
}

func operation(kind engine.OpKind, query, text string, mf MatchFlags) (engine.Operation, error) {
	opts, occ, err := mf.options()
	if err != nil {
		return engine.Operation{}, err
	}
	return engine.Operation{
		Kind:           kind,
		Query:          query,
		Match:          opts,
		Occurrence:     occ,
		IncludeDeleted: mf.IncludeDeleted,
		Text:           text,
		Track:          !CLI.Untracked,
		Author:         CLI.Author,
		Date:           time.Now().UTC(),
	}, nil
}

func openSession(path string) (*docpack.Package, *engine.Session, error) {
	pkg, err := docpack.OpenFile(path)
	if err != nil {
		return nil, nil, err
	}
	d, err := pkg.Document()
	if err != nil {
		return nil, nil, err
	}
	s := engine.NewSession(d)
	if CLI.SkipAlreadyDeleted {
		s.SetPolicy(engine.Policy{AlreadyDeleted: engine.AlreadyDeletedSkip})
	}
	return pkg, s, nil
}

func runEdit(path string, op engine.Operation) error {
	if CLI.Out != "" {
		if err := validation.ValidatePath(CLI.Out); err != nil {
			return fmt.Errorf("invalid output path: %w", err)
		}
	}
	pkg, s, err := openSession(path)
	if err != nil {
		return err
	}
	r := s.Apply(op)
	if r.Err != nil {
		return r.Err
	}
	pkg.SetDocument(s.Document())

	target := path
	if CLI.Out != "" {
		target = CLI.Out
	}
	if err := pkg.PersistFile(target); err != nil {
		return err
	}

	summary := fmt.Sprintf("%s: %d span(s)", op.Kind, r.Applied)
	if len(r.RevisionIDs) > 0 {
		ids := make([]string, len(r.RevisionIDs))
		for i, id := range r.RevisionIDs {
			ids[i] = fmt.Sprintf("%d", id)
		}
		summary += ", revision id(s) " + strings.Join(ids, ", ")
	}
	fmt.Printf("%s -> %s\n", summary, target)
	return nil
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("redline"),
		kong.Description("Tracked-change text surgery for zipped XML documents"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)
	switch CLI.LogLevel {
	case "debug":
		initLogging(logging.LevelDebug)
	case "info":
		initLogging(logging.LevelInfo)
	case "error":
		initLogging(logging.LevelError)
	default:
		initLogging(logging.LevelWarn)
	}
	err := ctx.Run(ctx)
	ctx.FatalIfErrorf(err)
}

func initLogging(level logging.Level) {
	format := logging.FormatText
	if CLI.LogFormat == "json" {
		format = logging.FormatJSON
	}
	logging.InitLogger(level, format)
}
