// Package viz renders trajectories in the terminal.
//
//   - [PlotComponents]: asciigraph line charts of recorded solutions
//   - [Canvas]: Braille-based pixel canvas for high-fidelity rendering
//   - [Model]: Bubble Tea live view that advances a system frame by frame
//     with a solver and tunes its parameters interactively
//
// # Key Bindings
//
//	Space - Pause/Resume simulation
//	R     - Reset to initial state and parameters
//	Tab   - Select next parameter
//	↑/↓   - Scale the selected parameter by ±5%
//	T     - Cycle color themes
//	?     - Show help overlay
package viz
