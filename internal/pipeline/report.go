package pipeline

import (
	"bespoke/internal/blocks"
	"bespoke/internal/render"
	"bespoke/internal/report"
)

func reportSources(consumed []blocks.Consumed) []report.Source {
	out := make([]report.Source, 0, len(consumed))
	for _, c := range consumed {
		out = append(out, report.Source{Index: c.Index, Key: c.Source, Filename: c.Filename})
	}
	return out
}

func reportBlocks(outcomes []blocks.BlockOutcome) []report.Block {
	out := make([]report.Block, 0, len(outcomes))
	for _, o := range outcomes {
		entry := report.Block{
			Block:   o.Block,
			Outcome: string(o.Outcome),
			Source:  o.Source,
			Error:   o.Error,
		}
		if o.Outcome == blocks.OutcomeMatched {
			idx := o.Index
			entry.Index = &idx
		}
		out = append(out, entry)
	}
	return out
}

// reportRenders converts outcomes and returns the number of failures.
func reportRenders(outcomes []render.Outcome) ([]report.Render, int) {
	out := make([]report.Render, 0, len(outcomes))
	failures := 0
	for _, o := range outcomes {
		entry := report.Render{
			Index:     o.Descriptor.Index,
			Source:    o.Descriptor.Source,
			Filename:  o.Descriptor.Filename,
			Seconds:   o.Elapsed.Seconds(),
			Succeeded: o.Err == nil,
		}
		if o.Err != nil {
			entry.Error = o.Err.Error()
			failures++
		}
		out = append(out, entry)
	}
	return out, failures
}
