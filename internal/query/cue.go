package query

import (
	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// CUEEvaluator compiles blocks as CUE structs of field constraints.
type CUEEvaluator struct {
	ctx *cue.Context
}

// NewCUEEvaluator returns an evaluator with its own CUE runtime.
func NewCUEEvaluator() *CUEEvaluator {
	return &CUEEvaluator{ctx: cuecontext.New()}
}

type cueModel struct {
	value  cue.Value
	fields []string
}

func (e *CUEEvaluator) Compile(text string) (Model, error) {
	if err := checkBlank(LanguageCUE, text); err != nil {
		return nil, err
	}
	value := e.ctx.CompileString(text)
	if err := value.Err(); err != nil {
		return nil, compileError(LanguageCUE, "", err)
	}
	if value.IncompleteKind() != cue.StructKind {
		return nil, compileError(LanguageCUE, "block must be a struct of field constraints", nil)
	}

	iter, err := value.Fields()
	if err != nil {
		return nil, compileError(LanguageCUE, "", err)
	}
	var names []string
	for iter.Next() {
		names = append(names, iter.Selector().Unquoted())
	}
	if len(names) == 0 {
		return nil, compileError(LanguageCUE, "block constrains no fields", nil)
	}
	return cueModel{value: value, fields: names}, nil
}

// Match requires every constrained field to be present in the record and the
// unification of model and record to be concrete and valid.
func (m cueModel) Match(_ string, fields map[string]string) (bool, error) {
	for _, name := range m.fields {
		if _, ok := fields[name]; !ok {
			return false, nil
		}
	}
	record := m.value.Context().Encode(fields)
	if err := record.Err(); err != nil {
		return false, err
	}
	if err := m.value.Unify(record).Validate(cue.Concrete(true)); err != nil {
		return false, nil
	}
	return true, nil
}
