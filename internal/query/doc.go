// Package query compiles annotated block text into models that decide whether
// a source record matches.
//
// Three languages are available: expr boolean expressions (the default), CUE
// structs of field constraints, and Starlark expressions. Compilation failures
// are tagged with services.ErrQuery; callers skip the block and carry on.
// A runtime error from Match means the record did not match.
package query
