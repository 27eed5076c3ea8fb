// Package viz draws displacement fields in the terminal.
//
// Fields are rendered as half-block heatmaps through a diverging colormap
// (see [Theme]). Two Bubble Tea programs are built on top:
//
//   - [LiveModel]: steps a simulator and draws the wavefield as it runs
//   - [ReplayModel]: plays back a saved pair of ux/uz records
//
// # Key Bindings
//
//	Space - Pause/Resume
//	C     - Cycle ux, uz and |u|
//	T     - Cycle color themes
//	+/-   - Change speed
//	[]/   - Time travel (rewind/forward)
//	G     - Toggle GIF recording (live view)
//	?     - Show help overlay
package viz
