package query

import (
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// StarlarkEvaluator compiles blocks as Starlark expressions. The expression
// sees key, fields (a dict), and every field as a global; its truth value
// decides the match.
type StarlarkEvaluator struct{}

var starlarkOptions = &syntax.FileOptions{}

// starlarkModel keeps the source because evaluation resolves names in place;
// each Match parses a fresh tree.
type starlarkModel struct {
	src string
}

func (StarlarkEvaluator) Compile(text string) (Model, error) {
	if err := checkBlank(LanguageStarlark, text); err != nil {
		return nil, err
	}
	src := strings.TrimSpace(text)
	if _, err := starlarkOptions.ParseExpr("block", src, 0); err != nil {
		return nil, compileError(LanguageStarlark, "", err)
	}
	return starlarkModel{src: src}, nil
}

func (m starlarkModel) Match(key string, fields map[string]string) (bool, error) {
	dict := starlark.NewDict(len(fields))
	env := make(starlark.StringDict, len(fields)+2)
	for name, value := range fields {
		if err := dict.SetKey(starlark.String(name), starlark.String(value)); err != nil {
			return false, err
		}
		env[name] = starlark.String(value)
	}
	env["key"] = starlark.String(key)
	env["fields"] = dict

	expr, err := starlarkOptions.ParseExpr("block", m.src, 0)
	if err != nil {
		return false, err
	}
	thread := &starlark.Thread{Name: "match"}
	value, err := starlark.EvalExprOptions(starlarkOptions, thread, expr, env)
	if err != nil {
		return false, err
	}
	return bool(value.Truth()), nil
}
