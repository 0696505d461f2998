// Package report records what a run consumed, how each block resolved, and
// which renders failed, as a YAML file written with --report.
package report
