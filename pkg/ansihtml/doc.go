// Package ansihtml converts text carrying ANSI terminal escape sequences into
// HTML suitable for a log viewer.
//
// Color and text attributes set with SGR sequences (ESC [ ... m) are rendered
// as inline-styled <span> elements. The 16 base colors, the 256-color palette
// and 24-bit colors are supported for foreground and background. Cursor
// movement, OSC titles and other escape sequences are removed.
//
// Convert is a pure function and safe for concurrent use. Each call starts
// from the default rendition, so attributes do not carry across calls.
package ansihtml
