// Package viz is the terminal view of a running mesh, built on Bubble Tea.
//
// The mesh is drawn on a braille [Canvas], two dots per cell across and four
// down, with particle displacement exaggerated so that millimetre motion is
// visible. A side panel charts the peak particle speed.
//
// # Key Bindings
//
//	Space - Pause/Resume
//	P     - Pluck
//	G     - Toggle the gate
//	R     - Reset to rest
//	C/S   - Capture/restore the settled state
//	[ ]   - Pitch down/up a semitone
//	T     - Cycle color themes
//	?     - Show help overlay
package viz
