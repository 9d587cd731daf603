package ui

import (
	"fmt"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// HUDData holds all the data needed to render the main HUD.
type HUDData struct {
	Generation     int
	Alive          int
	Total          int
	BestFitness    float64 // champion fitness so far
	BestGeneration int
	LastBest       float64 // best fitness of the previous generation
	HasLast        bool
	MutationRate   float64
	Tick           int32
	Speed          int
	FPS            int32
	Paused         bool
}

// HUD renders the stats strip below the play field.
type HUD struct {
	renderer *Renderer
	x, y     int32
	width    int32
	height   int32
}

// NewHUD creates a HUD occupying the given screen rectangle.
func NewHUD(x, y, width, height int32) *HUD {
	return &HUD{
		renderer: NewRenderer(),
		x:        x,
		y:        y,
		width:    width,
		height:   height,
	}
}

// Draw renders the HUD.
func (h *HUD) Draw(data HUDData) {
	r := h.renderer
	pad := r.Theme.Padding
	r.DrawPanel(h.x, h.y, h.width, h.height)

	colWidth := (h.width - pad*3) / 2
	left := h.x + pad
	right := left + colWidth + pad

	y := r.DrawSectionHeader(left, h.y+pad, fmt.Sprintf("Generation %d", data.Generation))
	y = r.DrawBar(left, y, "Alive", float32(data.Alive), float32(data.Total), colWidth)
	y = r.DrawLabelValue(left, y, "Best fitness", formatBest(data.BestFitness, data.BestGeneration))
	last := "-"
	if data.HasLast {
		last = fmt.Sprintf("%.0f", data.LastBest)
	}
	r.DrawLabelValue(left, y, "Last gen best", last)

	y = h.y + pad
	y = r.DrawLabelValue(right, y, "Speed", SpeedLabel(data.Speed))
	y = r.DrawLabelValue(right, y, "Mutation rate", fmt.Sprintf("%.2f", data.MutationRate))
	y = r.DrawLabelValue(right, y, "Tick", fmt.Sprintf("%d", data.Tick))
	r.DrawLabelValue(right, y, "FPS", fmt.Sprintf("%d", data.FPS))

	if data.Paused {
		rl.DrawText("PAUSED", h.x+h.width-80, h.y+pad, r.Theme.HeaderFontSize, r.Theme.Highlight)
	}
}

// DrawControls renders the control legend at the bottom of the strip.
func (h *HUD) DrawControls(controls string) {
	rl.DrawText(controls, h.x+h.renderer.Theme.Padding, h.y+h.height-20, 12, rl.Gray)
}

// formatBest renders the champion fitness with the generation that set it.
func formatBest(fitness float64, generation int) string {
	if generation == 0 {
		return "-"
	}
	return fmt.Sprintf("%.0f (gen %d)", fitness, generation)
}

// SpeedLabel formats a speed multiplier.
func SpeedLabel(speed int) string {
	return fmt.Sprintf("%dx", speed)
}
