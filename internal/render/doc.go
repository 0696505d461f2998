// Package render turns consumed sources into image files by invoking the
// external artifact renderer (and, for animation frames, the GIF converter).
//
// Calls run through a bounded errgroup pool. A failing call is logged, tagged
// with services.ErrExternalTool, and reported in its Outcome; it never cancels
// the remaining calls.
package render
