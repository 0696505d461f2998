package query

import (
	"fmt"
	"strings"

	"bespoke/internal/services"
)

// Supported query languages.
const (
	LanguageExpr     = "expr"
	LanguageCUE      = "cue"
	LanguageStarlark = "starlark"
)

// Languages lists the accepted values for doc.query_language.
var Languages = []string{LanguageExpr, LanguageCUE, LanguageStarlark}

// Evaluator compiles annotated block text into a Model.
type Evaluator interface {
	Compile(text string) (Model, error)
}

// Model is a compiled query. Match reports whether the source record
// identified by key, with the given fields, satisfies the query.
type Model interface {
	Match(key string, fields map[string]string) (bool, error)
}

// New returns the evaluator for language. An empty language selects expr.
func New(language string) (Evaluator, error) {
	switch strings.ToLower(strings.TrimSpace(language)) {
	case LanguageExpr, "":
		return ExprEvaluator{}, nil
	case LanguageCUE:
		return NewCUEEvaluator(), nil
	case LanguageStarlark:
		return StarlarkEvaluator{}, nil
	default:
		return nil, services.Wrap(
			services.ErrConfiguration,
			"query",
			"select language",
			fmt.Sprintf("unsupported language %q (want one of %s)", language, strings.Join(Languages, ", ")),
			nil,
		)
	}
}

func compileError(language, message string, err error) error {
	return services.Wrap(services.ErrQuery, "query", "compile "+language, message, err)
}

func checkBlank(language, text string) error {
	if strings.TrimSpace(text) == "" {
		return compileError(language, "empty block", nil)
	}
	return nil
}
