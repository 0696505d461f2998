// Package sources provides read-only access to the ordered list of source
// records and their field maps.
//
// The live backend is a Redis list of keys plus one hash per key. A SQLite
// snapshot backend captures the same data for offline document regeneration.
// All failures are tagged with services.ErrStore and abort the run.
package sources
