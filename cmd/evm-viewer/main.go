package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/spf13/cobra"

	"go.creack.net/evm/cli"
	"go.creack.net/evm/disasm"
	"go.creack.net/evm/op"
	"go.creack.net/evm/trace"
	"go.creack.net/evm/vm"
)

// Colors that are not legible on a dark terminal.
var bannedColors = []tcell.Color{
	tcell.ColorBlack,
	tcell.ColorNavy,
	tcell.ColorDarkBlue,
	tcell.ColorMaroon,
	tcell.ColorPurple,
	tcell.ColorDimGray,
	tcell.ColorDarkSlateGray,
	tcell.ColorMidnightBlue,
}

var colors []tcell.Color

func threadColor(id uint64) tcell.Color {
	if len(colors) == 0 {
		return tcell.ColorDefault
	}
	return colors[id%uint64(len(colors))]
}

func dumpRegisters(regs []uint64) string {
	parts := make([]string, 0, len(regs))
	for _, elem := range regs {
		val := "."
		if elem != 0 {
			val = "x"
		}
		parts = append(parts, val)
	}
	return strings.Join(parts, "")
}

// dumpData renders a hexdump, collapsing zero lines.
func dumpData(data []byte) string {
	out := &strings.Builder{}
	const width = 16
	zz := make([]byte, width)
	for i := 0; i < len(data); {
		b := data[i]
		if i%width == 0 {
			if i+width <= len(data) && bytes.Equal(data[i:i+width], zz) {
				fmt.Fprintf(out, "\n*")
				for ; i+width <= len(data) && bytes.Equal(data[i:i+width], zz); i += width {
				}
				continue
			}
			fmt.Fprintf(out, "\n0x%04X:", i)
		}
		if i%(width/2) == 0 {
			fmt.Fprintf(out, " ")
		}
		fmt.Fprintf(out, " %02x", b)
		i++
	}
	fmt.Fprintf(out, "\n")
	return out.String()
}

// threadRow is what the trace tells about a thread. Registers are only read
// once the thread is done.
type threadRow struct {
	state string
	pc    uint32
	last  string
}

type Viewer struct {
	app *tview.Application

	root *tview.Pages

	stateView      *tview.TextView
	threadListView *tview.Table
	ramView        *tview.TextView
	outputView     *tview.TextView
	logsView       *tview.TextView

	session *cli.Session
	gate    *vm.Gate
	events  *trace.Chan

	mu           sync.Mutex
	rows         map[uint64]*threadRow
	instructions uint64
	finished     bool
	result       error

	ctx    context.Context
	cancel context.CancelFunc
}

func NewViewer(ctx context.Context, cfg cli.Config, f *op.File) (*Viewer, error) {
	app := tview.NewApplication().EnableMouse(true)

	newTextView := func(title string) *tview.TextView {
		tv := tview.NewTextView().SetDynamicColors(true)
		tv.SetTitle(title).SetBorder(true)
		return tv
	}

	stateView := newTextView("State")
	ramView := newTextView("Data memory")
	outputView := newTextView("Output")
	outputView.SetMaxLines(1000).ScrollToEnd()
	logsView := newTextView("Trace")
	logsView.SetMaxLines(1000).ScrollToEnd()

	threadListView := tview.NewTable().SetBorders(false)
	threadListView.SetTitle("Threads").SetBorder(true)

	rightPane := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(stateView, 0, 1, false).
		AddItem(threadListView, 0, 2, false).
		AddItem(outputView, 0, 2, false).
		AddItem(logsView, 0, 3, false)

	flex := tview.NewFlex().
		AddItem(ramView, 0, 2, true).
		AddItem(rightPane, 0, 3, false)

	pages := tview.NewPages()
	pages.AddPage("main", flex, true, true)

	buf, err := op.Encode(f.Code(), f.InitialData(), f.Header.DataSize)
	if err != nil {
		return nil, fmt.Errorf("failed to encode program: %w", err)
	}
	disasmView := newTextView("Disassembly (esc to go back)")
	if p, err := disasm.Disasm("program.evm", buf); err != nil {
		fmt.Fprintf(disasmView, "[red]%s", tview.Escape(err.Error()))
	} else {
		disasmView.SetDynamicColors(false)
		fmt.Fprint(disasmView, p.String())
	}
	pages.AddPage("disasm", disasmView, true, false)

	gate := vm.NewGate(true)
	events := trace.NewChan(4096)
	session, err := cli.NewSession(cfg, f, vm.Config{
		Stdin:  strings.NewReader(""),
		Stdout: outputView,
		Stderr: outputView,
		Tracer: events,
		Gate:   gate,
	})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)

	return &Viewer{
		app:  app,
		root: pages,

		stateView:      stateView,
		threadListView: threadListView,
		ramView:        ramView,
		outputView:     outputView,
		logsView:       logsView,

		session: session,
		gate:    gate,
		events:  events,
		rows:    map[uint64]*threadRow{},

		ctx:    ctx,
		cancel: cancel,
	}, nil
}

func (v *Viewer) Stop() {
	v.cancel()
	v.session.App.Terminate()
	v.app.Stop()
}

func (v *Viewer) Init() {
	f := func(event *tcell.EventKey) *tcell.EventKey {
		curPage, _ := v.root.GetFrontPage()
		switch event.Key() {
		case tcell.KeyCtrlC, tcell.KeyEscape:
			if curPage != "main" {
				v.root.SwitchToPage("main")
				return nil
			}
			v.Stop()
			return nil
		}
		switch event.Rune() {
		case 'n':
			v.gate.Step()
			return nil
		case ' ':
			v.gate.Toggle()
			return nil
		case 'd':
			v.root.SwitchToPage("disasm")
			return nil
		case 'q':
			if curPage != "main" {
				v.root.SwitchToPage("main")
				return nil
			}
			v.Stop()
			return nil
		}
		return event
	}
	v.root.SetInputCapture(f)

	go v.consumeEvents()
	go func() {
		err := v.session.Execute(v.ctx)
		v.mu.Lock()
		v.finished = true
		v.result = err
		v.mu.Unlock()
		v.app.QueueUpdateDraw(v.Draw)
	}()
	go func() {
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				v.app.QueueUpdateDraw(v.Draw)
			case <-v.ctx.Done():
				return
			}
		}
	}()
}

func (v *Viewer) consumeEvents() {
	for {
		select {
		case ev := <-v.events.C:
			v.mu.Lock()
			row, ok := v.rows[ev.ThreadID]
			if !ok {
				row = &threadRow{}
				v.rows[ev.ThreadID] = row
			}
			row.pc = ev.PC
			switch ev.Type {
			case vm.EventThreadStart:
				row.state = vm.ThreadRunning.String()
			case vm.EventThreadExit:
				row.state = vm.ThreadTerminated.String()
			case vm.EventFault:
				row.state = "fault"
				row.last = ev.Message
			case vm.EventInstruction:
				v.instructions++
				row.last = ev.Message
			}
			v.mu.Unlock()

			// NOTE: tview can't reset the color with [:] or [:::], so we use tcell default.
			colorCode := "[" + threadColor(ev.ThreadID).String() + ":::]"
			fmt.Fprintf(v.logsView, "%s%s[%s:::]\n", colorCode, tview.Escape(trace.NewRecord(ev).String()), tcell.ColorDefault.String())
		case <-v.ctx.Done():
			return
		}
	}
}

func (v *Viewer) drawThreadList() {
	threads := v.session.App.Threads()
	v.threadListView.SetTitle(fmt.Sprintf("Threads (%d)", len(threads)))
	v.threadListView.Clear()
	for i, elem := range []string{
		"tid",
		"state",
		"pc",
		"registers",
		"last",
	} {
		cell := tview.NewTableCell(elem).
			SetAttributes(tcell.AttrBold).
			SetAlign(tview.AlignCenter)
		v.threadListView.SetCell(0, i, cell).SetFixed(1, i)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	for i, t := range threads {
		row, ok := v.rows[t.ID]
		if !ok {
			row = &threadRow{state: t.State().String()}
		}
		regs := ""
		select {
		case <-t.Done():
			r := t.Registers()
			regs = dumpRegisters(r[:])
		default:
		}
		for j, content := range []any{
			t.ID,
			row.state,
			row.pc,
			regs,
			row.last,
		} {
			align := tview.AlignRight
			if j == 4 {
				align = tview.AlignLeft
			}
			cell := tview.NewTableCell(fmt.Sprint(content)).SetAlign(align)
			cell.SetTextColor(threadColor(t.ID))
			v.threadListView.SetCell(i+1, j, cell)
		}
	}
}

func (v *Viewer) drawState() {
	v.stateView.Clear()

	status := "running"
	if v.gate.Paused() {
		status = "paused (space to resume, n to step)"
	}
	v.mu.Lock()
	if v.finished {
		status = "finished"
		if v.result != nil {
			status = "[red]" + tview.Escape(v.result.Error()) + "[-]"
		}
	}
	instructions := v.instructions
	v.mu.Unlock()

	fmt.Fprintf(v.stateView, "Status: %s\n", status)
	fmt.Fprintf(v.stateView, "Program size: %d bytes\n", v.session.App.ProgramMemory().Len())
	fmt.Fprintf(v.stateView, "Data size: %d bytes\n", v.session.App.DataMemory().Size())
	fmt.Fprintf(v.stateView, "Instructions: %d\n", instructions)
	fmt.Fprintf(v.stateView, "Faults: %d\n", len(v.session.App.Faults()))
	fmt.Fprintf(v.stateView, "Dropped trace events: %d\n", v.events.Dropped())
}

func (v *Viewer) drawRAM() {
	v.ramView.Clear()
	fmt.Fprint(v.ramView, dumpData(v.session.App.DataMemory().Snapshot()))
}

func (v *Viewer) Draw() {
	v.drawRAM()
	v.drawState()
	v.drawThreadList()
}

func run(ctx context.Context, cfg cli.Config, f *op.File) error {
	for _, c := range tcell.ColorNames {
		if !slices.Contains(bannedColors, c) {
			colors = append(colors, c)
		}
	}
	slices.Sort(colors)

	v, err := NewViewer(ctx, cfg, f)
	if err != nil {
		return err
	}
	defer func() { _ = v.session.Close() }() // Best effort.

	v.Init()
	v.Draw()
	if err := v.app.SetRoot(v.root, true).SetFocus(v.root).Run(); err != nil {
		return fmt.Errorf("viewer: %w", err)
	}
	v.Stop()

	v.mu.Lock()
	defer v.mu.Unlock()
	return v.result
}

func main() {
	var (
		settings cli.Settings
		target   cli.Target
	)
	cmd := &cobra.Command{
		Use:           "evm-viewer [flags] <program.evm|program.s>",
		Short:         "Step through an ESET-VM2 program in the terminal",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := settings.Resolve(cmd)
			if err != nil {
				return err
			}
			// The terminal belongs to the viewer.
			if cfg.LogFile == "" {
				cfg.LogFile = os.DevNull
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
