// Package assemble produces the final artifacts: an animated GIF stitched from
// rendered frames, or the rewritten document.
package assemble
