// Package cli builds the cobra command trees for bespoke-animate and
// bespoke-doc.
//
// Both roots load configuration lazily through a shared command context.
// Flags override configuration values only when set explicitly on the
// command line, so a config file stays authoritative for everything else.
// Each root also carries `config init|validate` and `deps`; bespoke-doc adds
// `snapshot` for copying the live store into an SQLite file.
package cli
