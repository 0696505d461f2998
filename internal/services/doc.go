// Package services defines shared utilities consumed by the pipeline stages
// and the external program integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, stage names, and source keys for
//     logging.
//   - Structured error markers plus the Wrap helper that classify failures
//     into fatal (store, configuration) and recoverable (external tool,
//     query) kinds.
//   - The Executor abstraction that makes external command execution
//     testable.
package services
