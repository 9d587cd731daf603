package game

import (
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/flap/sim"
	"github.com/pthm-cable/flap/ui"
)

var (
	colorSky      = rl.Color{R: 112, G: 197, B: 206, A: 255}
	colorPipe     = rl.Color{R: 84, G: 168, B: 52, A: 255}
	colorPipeEdge = rl.Color{R: 40, G: 90, B: 24, A: 255}
	colorBird     = rl.Color{R: 250, G: 220, B: 60, A: 200}
	colorLeader   = rl.Color{R: 230, G: 90, B: 40, A: 255}
)

// Draw renders the game.
func (g *Game) Draw() {
	start := time.Now()

	rl.BeginDrawing()
	rl.ClearBackground(colorSky)

	g.drawPipes()
	leader, hasLeader := g.sim.Leader()
	g.drawBirds(leader, hasLeader)
	g.drawUI()

	rl.EndDrawing()

	g.perf.Record("draw", time.Since(start))
}

func (g *Game) drawPipes() {
	for _, p := range g.sim.Pipes() {
		for _, r := range p.Rects() {
			rect := rl.Rectangle{X: float32(r.X), Y: float32(r.Y), Width: float32(r.W), Height: float32(r.H)}
			rl.DrawRectangleRec(rect, colorPipe)
			rl.DrawRectangleLinesEx(rect, 2, colorPipeEdge)
		}
	}
}

// drawBirds draws live birds, the leader last so it stays on top.
func (g *Game) drawBirds(leader int, hasLeader bool) {
	birds := g.sim.Birds()
	for _, b := range birds {
		if !b.Alive || (hasLeader && b.Slot == leader) {
			continue
		}
		rl.DrawRectangleRec(birdRect(b), colorBird)
	}
	if hasLeader {
		rect := birdRect(birds[leader])
		rl.DrawRectangleRec(rect, colorBird)
		rl.DrawRectangleLinesEx(rect, 2, colorLeader)
	}
}

func birdRect(b sim.BirdView) rl.Rectangle {
	return rl.Rectangle{X: float32(b.X), Y: float32(b.Y), Width: float32(b.Width), Height: float32(b.Height)}
}

func (g *Game) drawUI() {
	g.hud.Draw(g.hudData(rl.GetFPS()))
	g.hud.DrawControls("[Space] pause  [.] speed  [F11] fullscreen")

	action := g.controls.Draw(g.paused, g.Speed())
	if action.TogglePause {
		g.TogglePause()
	}
	if action.CycleSpeed {
		g.CycleSpeed()
	}
}

func (g *Game) hudData(fps int32) ui.HUDData {
	pop := g.sim.Population()
	data := ui.HUDData{
		Generation:     g.sim.Generation(),
		Alive:          g.sim.AliveCount(),
		Total:          pop.Size(),
		BestFitness:    pop.BestFitness(),
		BestGeneration: pop.BestGeneration(),
		MutationRate:   pop.MutationRate(),
		Tick:           g.sim.Tick(),
		Speed:          g.Speed(),
		FPS:            fps,
		Paused:         g.paused,
	}
	if last, ok := g.sim.LastStats(); ok {
		data.LastBest = last.BestFitness
		data.HasLast = true
	}
	return data
}
