package ui

import (
	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"
)

// ControlAction reports which buttons were clicked this frame.
type ControlAction struct {
	TogglePause bool
	CycleSpeed  bool
}

// ControlsPanel draws the pause and speed buttons.
type ControlsPanel struct {
	x, y          float32
	width, height float32
}

// NewControlsPanel creates a row of buttons anchored at (x, y).
func NewControlsPanel(x, y float32) *ControlsPanel {
	return &ControlsPanel{x: x, y: y, width: 110, height: 30}
}

// Draw renders the buttons and returns what was clicked.
func (c *ControlsPanel) Draw(paused bool, speed int) ControlAction {
	var action ControlAction
	if gui.Button(rl.Rectangle{X: c.x, Y: c.y, Width: c.width, Height: c.height}, PauseLabel(paused)) {
		action.TogglePause = true
	}
	speedRect := rl.Rectangle{X: c.x + c.width + 10, Y: c.y, Width: c.width, Height: c.height}
	if gui.Button(speedRect, "Speed "+SpeedLabel(speed)) {
		action.CycleSpeed = true
	}
	return action
}

// PauseLabel is the pause button text for the current state.
func PauseLabel(paused bool) string {
	if paused {
		return "Resume"
	}
	return "Pause"
}
