// Package viz draws particle frames and HUD panels for the terminal.
//
// [Canvas] is a braille dot buffer the software compute device rasterizes
// into; the lipgloss styles here are shared by the headless TUI.
package viz
