package query

import (
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// ExprEvaluator compiles blocks as expr boolean expressions. The environment
// exposes key, fields, and every field name as a top-level variable; names the
// record lacks evaluate to nil.
type ExprEvaluator struct{}

type exprModel struct {
	program *vm.Program
}

func (ExprEvaluator) Compile(text string) (Model, error) {
	if err := checkBlank(LanguageExpr, text); err != nil {
		return nil, err
	}
	program, err := expr.Compile(
		text,
		expr.Env(map[string]any{
			"key":    "",
			"fields": map[string]string{},
		}),
		expr.AllowUndefinedVariables(),
		expr.AsBool(),
	)
	if err != nil {
		return nil, compileError(LanguageExpr, "", err)
	}
	return exprModel{program: program}, nil
}

func (m exprModel) Match(key string, fields map[string]string) (bool, error) {
	env := make(map[string]any, len(fields)+2)
	for name, value := range fields {
		env[name] = value
	}
	env["key"] = key
	env["fields"] = fields

	out, err := expr.Run(m.program, env)
	if err != nil {
		return false, err
	}
	matched, ok := out.(bool)
	return ok && matched, nil
}
