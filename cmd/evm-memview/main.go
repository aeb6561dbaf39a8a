package main

import (
	"context"
	"fmt"
	"image/color"
	"strings"

	"github.com/hajimehoshi/bitmapfont/v3"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/spf13/cobra"

	"go.creack.net/evm/cli"
	"go.creack.net/evm/op"
	"go.creack.net/evm/vm"
)

var fontFace = text.NewGoXFace(bitmapfont.Face)

const (
	initialScreenWidth, initialScreenHeight = 1024, 768

	cellSize   = 8
	gridWidth  = 64 // Cells per row.
	gridTop    = 64
	gridMargin = 8
)

// Game draws the data memory as a grid, one cell per byte.
type Game struct {
	session *cli.Session
	gate    *vm.Gate
	done    chan struct{}
	result  error
}

// cellColor maps a byte to a shade, zero is dark.
func cellColor(b byte) color.RGBA {
	if b == 0 {
		return color.RGBA{R: 0x20, G: 0x20, B: 0x20, A: 0xff}
	}
	return color.RGBA{R: b, G: 0xff - b/2, B: 0x40, A: 0xff}
}

// Update is called every tick (1/60 [s] by default).
func (g *Game) Update() error {
	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeyQ), inpututil.IsKeyJustPressed(ebiten.KeyEscape):
		return ebiten.Termination
	case inpututil.IsKeyJustPressed(ebiten.KeySpace):
		g.gate.Toggle()
	case inpututil.IsKeyJustPressed(ebiten.KeyN):
		g.gate.Step()
	}
	return nil
}

func (g *Game) status() string {
	select {
	case <-g.done:
		if g.result != nil {
			return g.result.Error()
		}
		return "finished"
	default:
	}
	if g.gate.Paused() {
		return "paused"
	}
	return "running"
}

// Draw is called every frame (typically 1/60[s] for 60Hz display).
func (g *Game) Draw(screen *ebiten.Image) {
	app := g.session.App
	data := app.DataMemory().Snapshot()

	lines := []string{
		fmt.Sprintf("Status: %s, threads: %d, faults: %d", g.status(), len(app.Threads()), len(app.Faults())),
		fmt.Sprintf("Data memory: %d bytes", len(data)),
		"space: pause/resume, n: step, q: quit",
	}
	textOp := &text.DrawOptions{}
	textOp.GeoM.Translate(gridMargin, gridMargin)
	textOp.LineSpacing = fontFace.Metrics().HLineGap + fontFace.Metrics().HAscent + fontFace.Metrics().HDescent
	textOp.ColorScale.ScaleWithColor(color.White)
	text.Draw(screen, strings.Join(lines, "\n"), fontFace, textOp)

	for i, b := range data {
		x := float32(gridMargin + (i%gridWidth)*cellSize)
		y := float32(gridTop + (i/gridWidth)*cellSize)
		if y > initialScreenHeight {
			break
		}
		vector.DrawFilledRect(screen, x, y, cellSize-1, cellSize-1, cellColor(b), false)
	}
}

// Layout keeps a fixed logical screen size.
func (g *Game) Layout(outsideWidth, outsideHeight int) (screenWidth, screenHeight int) {
	return initialScreenWidth, initialScreenHeight
}

func run(ctx context.Context, cfg cli.Config, f *op.File) error {
	gate := vm.NewGate(true)
	s, err := cli.NewSession(cfg, f, vm.Config{Gate: gate})
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }() // Best effort.

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	game := &Game{session: s, gate: gate, done: make(chan struct{})}
	go func() {
		defer close(game.done)
		game.result = s.Execute(ctx)
	}()

	ebiten.SetWindowSize(initialScreenWidth, initialScreenHeight)
	ebiten.SetWindowTitle("EVM memory")
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)

	if err := ebiten.RunGame(game); err != nil {
		return fmt.Errorf("memview: %w", err)
	}
	cancel()
	<-game.done
	return game.result
}

func main() {
	var (
		settings cli.Settings
		target   cli.Target
	)
	cmd := &cobra.Command{
		Use:           "evm-memview [flags] <program.evm|program.s>",
		Short:         "Watch the data memory of an ESET-VM2 program",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := settings.Resolve(cmd)
			if err != nil {
				return err
			}
			cli.SetupLogging(cfg)

			f, err := target.Load(args)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, f)
		},
	}
	settings.Register(cmd)
	target.Register(cmd)
	cli.Main(context.Background(), cmd)
}
