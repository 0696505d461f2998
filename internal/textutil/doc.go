// Package textutil sanitizes user-supplied names (image and frame prefixes,
// report names) into filesystem-safe tokens.
package textutil
