// Package preflight provides readiness checks for the external programs,
// directories, and source store the bespoke tools depend on. The deps
// subcommand runs them and prints the results as a table.
package preflight
