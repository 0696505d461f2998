// Package pipeline wires the stages of the two bespoke tools together.
//
// Animate lists sources, slices the frame range, renders and converts each
// frame, and assembles the GIF. Document matches annotated blocks (or builds
// a contact sheet), writes the document, and renders one image per consumed
// source. Matching always finishes before any rendering starts, so
// consumption indices are final when filenames are assigned.
package pipeline
