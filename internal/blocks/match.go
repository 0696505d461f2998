package blocks

import (
	"context"
	"log/slog"
	"strings"

	"bespoke/internal/logging"
	"bespoke/internal/query"
	"bespoke/internal/services"
)

// FieldSource fetches a source record's fields.
type FieldSource interface {
	Fields(ctx context.Context, key string) (map[string]string, error)
}

// Options tune the matching loop.
type Options struct {
	Fence       string
	ImagePrefix string
	// ImagesDir is the slash-separated directory used inside stanzas.
	ImagesDir string
	// AllowReuse lets a source match more than one block.
	AllowReuse bool
	// RemoveUnmatched deletes blocks whose valid query matched nothing.
	RemoveUnmatched bool
	// DryRun records matches without substituting stanzas.
	DryRun bool
}

// Outcome describes what happened to a block.
type Outcome string

const (
	OutcomeMatched   Outcome = "matched"
	OutcomeUnmatched Outcome = "unmatched"
	OutcomeRemoved   Outcome = "removed"
	OutcomeInvalid   Outcome = "invalid"
)

// BlockOutcome records the result for one block.
type BlockOutcome struct {
	Block   int
	Outcome Outcome
	Source  string
	Index   int
	Error   string
}

// Consumed is one consumed source. Index equals the entry's position in
// Result.Consumed and drives the image filename.
type Consumed struct {
	Index    int
	Source   string
	Filename string
}

// Result is the output of a matching run.
type Result struct {
	Text     string
	Consumed []Consumed
	Blocks   []BlockOutcome
}

// Matcher runs the block-matching loop.
type Matcher struct {
	fields    FieldSource
	evaluator query.Evaluator
	opts      Options
	logger    *slog.Logger
}

// NewMatcher constructs a matcher.
func NewMatcher(fields FieldSource, evaluator query.Evaluator, opts Options, logger *slog.Logger) *Matcher {
	return &Matcher{
		fields:    fields,
		evaluator: evaluator,
		opts:      opts,
		logger:    logging.NewComponentLogger(logger, "blocks"),
	}
}

type runState struct {
	text     string
	used     map[string]struct{}
	consumed []Consumed
	fields   map[string]map[string]string
}

func (s *runState) consume(key, prefix string) Consumed {
	entry := Consumed{
		Index:    len(s.consumed),
		Source:   key,
		Filename: ImageName(prefix, len(s.consumed)),
	}
	s.consumed = append(s.consumed, entry)
	s.used[key] = struct{}{}
	return entry
}

// Match resolves every annotated block in text against sources. Blocks are
// handled in document order and sources in store order; the first matching
// source wins and is never reconsidered for later blocks unless AllowReuse
// is set. Only store failures are returned as errors.
func (m *Matcher) Match(ctx context.Context, text string, sources []string) (Result, error) {
	state := &runState{
		text:   text,
		used:   make(map[string]struct{}),
		fields: make(map[string]map[string]string),
	}
	var outcomes []BlockOutcome

	for _, block := range Extract(text, m.opts.Fence) {
		logger := m.logger.With(logging.Int(logging.FieldBlock, block.Index))

		model, err := m.evaluator.Compile(block.Body)
		if err != nil {
			logger.Debug("block skipped; query did not compile", logging.Error(err))
			outcomes = append(outcomes, BlockOutcome{
				Block:   block.Index,
				Outcome: OutcomeInvalid,
				Index:   -1,
				Error:   err.Error(),
			})
			continue
		}

		outcome, err := m.matchBlock(ctx, state, block, model, sources, logger)
		if err != nil {
			return Result{}, err
		}
		outcomes = append(outcomes, outcome)
	}

	return Result{Text: state.text, Consumed: state.consumed, Blocks: outcomes}, nil
}

func (m *Matcher) matchBlock(
	ctx context.Context,
	state *runState,
	block Block,
	model query.Model,
	sources []string,
	logger *slog.Logger,
) (BlockOutcome, error) {
	for _, key := range sources {
		if _, used := state.used[key]; used && !m.opts.AllowReuse {
			continue
		}
		fields, err := m.lookup(ctx, state, key)
		if err != nil {
			return BlockOutcome{}, err
		}
		ok, err := model.Match(key, fields)
		if err != nil {
			logger.Debug("query evaluation failed; treating as no match",
				logging.String(logging.FieldSource, key),
				logging.Error(err),
			)
			continue
		}
		if !ok {
			continue
		}

		entry := state.consume(key, m.opts.ImagePrefix)
		if !m.opts.DryRun {
			stanza := Stanza(m.opts.ImagesDir, entry.Filename)
			state.text = strings.Replace(state.text, block.Text, stanza, 1)
		}
		logger.Info("block matched",
			logging.String(logging.FieldSource, key),
			logging.Int(logging.FieldIndex, entry.Index),
			logging.String("filename", entry.Filename),
		)
		return BlockOutcome{Block: block.Index, Outcome: OutcomeMatched, Source: key, Index: entry.Index}, nil
	}

	if m.opts.RemoveUnmatched {
		state.text = strings.Replace(state.text, block.Text, "", 1)
		logger.Info("unmatched block removed")
		return BlockOutcome{Block: block.Index, Outcome: OutcomeRemoved, Index: -1}, nil
	}
	logger.Debug("block left unmatched")
	return BlockOutcome{Block: block.Index, Outcome: OutcomeUnmatched, Index: -1}, nil
}

func (m *Matcher) lookup(ctx context.Context, state *runState, key string) (map[string]string, error) {
	if fields, ok := state.fields[key]; ok {
		return fields, nil
	}
	fields, err := m.fields.Fields(services.WithSource(ctx, key), key)
	if err != nil {
		return nil, err
	}
	state.fields[key] = fields
	return fields, nil
}

// ContactSheet synthesizes one stanza per distinct source in store order, used
// when no input document is given.
func (m *Matcher) ContactSheet(sources []string) Result {
	state := &runState{used: make(map[string]struct{})}
	var b strings.Builder
	for _, key := range sources {
		if _, used := state.used[key]; used {
			continue
		}
		entry := state.consume(key, m.opts.ImagePrefix)
		b.WriteString(Stanza(m.opts.ImagesDir, entry.Filename))
		b.WriteByte('\n')
	}
	m.logger.Info("contact sheet built", logging.Int("sources", len(state.consumed)))
	return Result{Text: b.String(), Consumed: state.consumed}
}
