package query_test

import (
	"errors"
	"testing"

	"bespoke/internal/query"
	"bespoke/internal/services"
)

var cat = map[string]string{"kind": "cat", "color": "black", "binary_key": "bin:1"}

type matchCase struct {
	name   string
	text   string
	key    string
	fields map[string]string
	want   bool
}

func runMatchCases(t *testing.T, language string, cases []matchCase) {
	t.Helper()
	evaluator, err := query.New(language)
	if err != nil {
		t.Fatalf("New(%q): %v", language, err)
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			model, err := evaluator.Compile(tc.text)
			if err != nil {
				t.Fatalf("compile %q: %v", tc.text, err)
			}
			got, err := model.Match(tc.key, tc.fields)
			if err != nil && tc.want {
				t.Fatalf("match returned error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("Match(%q) = %v, want %v", tc.text, got, tc.want)
			}
		})
	}
}

func TestExprMatch(t *testing.T) {
	runMatchCases(t, query.LanguageExpr, []matchCase{
		{name: "top level field", text: `kind == "cat"`, fields: cat, want: true},
		{name: "fields map", text: `fields["color"] == "black"`, fields: cat, want: true},
		{name: "key", text: `key startsWith "src:"`, key: "src:9", fields: cat, want: true},
		{name: "mismatch", text: `kind == "dog"`, fields: cat, want: false},
		{name: "missing field is nil", text: `size == nil`, fields: cat, want: true},
		{name: "missing field compare", text: `size == "big"`, fields: cat, want: false},
		{name: "multiline", text: "\nkind == \"cat\" &&\n  color in [\"black\", \"white\"]\n", fields: cat, want: true},
		{name: "runtime error is no match", text: `int(kind) > 3`, fields: cat, want: false},
	})
}

func TestCUEMatch(t *testing.T) {
	runMatchCases(t, query.LanguageCUE, []matchCase{
		{name: "exact", text: `kind: "cat"`, fields: cat, want: true},
		{name: "disjunction", text: `kind: "dog" | "cat"`, fields: cat, want: true},
		{name: "regexp", text: `color: =~"^bl"`, fields: cat, want: true},
		{name: "conflict", text: `kind: "dog"`, fields: cat, want: false},
		{name: "missing field", text: `size: string`, fields: cat, want: false},
		{name: "two fields", text: "kind: \"cat\"\ncolor: \"black\"", fields: cat, want: true},
	})
}

func TestStarlarkMatch(t *testing.T) {
	runMatchCases(t, query.LanguageStarlark, []matchCase{
		{name: "global", text: `kind == "cat"`, fields: cat, want: true},
		{name: "dict", text: `fields.get("color") == "black"`, fields: cat, want: true},
		{name: "key", text: `key.startswith("src:")`, key: "src:1", fields: cat, want: true},
		{name: "truthiness", text: `color`, fields: cat, want: true},
		{name: "falsy", text: `""`, fields: cat, want: false},
		{name: "undefined name is no match", text: `size == "big"`, fields: cat, want: false},
		{name: "surrounding whitespace", text: "\n  kind == \"cat\"\n", fields: cat, want: true},
	})
}

func TestStarlarkModelReusable(t *testing.T) {
	evaluator, _ := query.New(query.LanguageStarlark)
	model, err := evaluator.Compile(`kind == "cat"`)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if ok, _ := model.Match("a", map[string]string{"color": "red"}); ok {
		t.Fatal("record without kind should not match")
	}
	if ok, err := model.Match("b", cat); !ok || err != nil {
		t.Fatalf("second match = %v, %v", ok, err)
	}
}

func TestCompileFailures(t *testing.T) {
	cases := []struct {
		language string
		text     string
	}{
		{query.LanguageExpr, "   \n"},
		{query.LanguageExpr, `kind ==`},
		{query.LanguageExpr, `"not a bool"`},
		{query.LanguageCUE, ""},
		{query.LanguageCUE, `kind: `},
		{query.LanguageCUE, `"just a string"`},
		{query.LanguageCUE, `{}`},
		{query.LanguageStarlark, "\t"},
		{query.LanguageStarlark, `kind ==`},
	}
	for _, tc := range cases {
		evaluator, err := query.New(tc.language)
		if err != nil {
			t.Fatalf("New(%q): %v", tc.language, err)
		}
		_, err = evaluator.Compile(tc.text)
		if err == nil {
			t.Fatalf("%s: expected compile error for %q", tc.language, tc.text)
		}
		if !errors.Is(err, services.ErrQuery) {
			t.Fatalf("%s: expected ErrQuery, got %v", tc.language, err)
		}
		if services.Fatal(err) {
			t.Fatalf("%s: compile errors must not be fatal", tc.language)
		}
	}
}

func TestNewRejectsUnknownLanguage(t *testing.T) {
	if _, err := query.New("sql"); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	evaluator, err := query.New("")
	if err != nil {
		t.Fatalf("empty language should default to expr: %v", err)
	}
	if _, ok := evaluator.(query.ExprEvaluator); !ok {
		t.Fatalf("expected ExprEvaluator, got %T", evaluator)
	}
}
