// Package vm provides the execution engine for valgo programs.
//
// The engine walks a type-checked program and records what an animation of
// the run should show as an ordered log of abstract instructions:
// - Frames for function bodies, branches and loop bodies
// - Code panel tracking (step into / step over) and speed regions
// - The variable panel fed by an LRU display window
// - Stacks, arrays, 2D arrays and binary trees with their drawings
// - Scene layout of every drawn structure once the run ends
package vm

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/emirpasic/gods/maps/linkedhashmap"

	"github.com/zurustar/valgo/pkg/ast"
	"github.com/zurustar/valgo/pkg/display"
	"github.com/zurustar/valgo/pkg/layout"
	"github.com/zurustar/valgo/pkg/logger"
	"github.com/zurustar/valgo/pkg/opcode"
	"github.com/zurustar/valgo/pkg/source"
	"github.com/zurustar/valgo/pkg/style"
	"github.com/zurustar/valgo/pkg/value"
)

// ErrorReporter receives the error that ended a run.
type ErrorReporter func(err error)

// VM executes one program.
type VM struct {
	program *ast.Program
	symbols ast.SymbolTable
	lines   ast.LineTable
	sheet   *style.Sheet
	source  []string
	panel   *source.CodePanel

	log      *slog.Logger
	reporter ErrorReporter
	timeout  time.Duration

	maxDepth         int
	maxLoops         int
	windowCapacity   int
	returnBoundaries bool

	// Per-run state, reset by Run.
	ctx           context.Context
	out           *opcode.Log
	names         *NameGenerator
	arena         *value.Arena
	speeds        []float64
	shapes        *linkedhashmap.Map // uid -> *layout.Shape, in reservation order
	drawings      map[*value.Handle]*drawing
	subtitle      string
	shownOnce     map[*ast.SubtitleStatement]bool
	hideCode      bool
	hideVariables bool

	codeBlock     string
	codeText      string
	pointer       string
	variableBlock string
}

// drawing is what the engine remembers about a drawn data structure.
type drawing struct {
	uid   string
	label string
	style style.Style
	anim  *style.AnimatedStyle
}

// runtime is the duration of an animated mutation of the drawing.
func (d *drawing) runtime(speed float64) float64 {
	if d.anim != nil && d.anim.AnimationTime > 0 {
		return d.anim.AnimationTime
	}
	return speed
}

// Result is the outcome of a run.
type Result struct {
	Status  ExitStatus
	OpCodes []opcode.OpCode
	// Boundaries is set when the run was asked to return them.
	Boundaries *Boundaries
}

// Boundaries is the boundary dump: boundaries computed by the solver and
// positions fixed by the stylesheet for the structures of this run.
type Boundaries struct {
	Auto       map[string]layout.Boundary `json:"auto" yaml:"auto"`
	Stylesheet map[string]layout.Position `json:"stylesheet" yaml:"stylesheet"`
}

// Option is a functional option for configuring the VM.
type Option func(*VM)

// WithLogger sets a custom logger.
func WithLogger(log *slog.Logger) Option {
	return func(vm *VM) {
		vm.log = log
	}
}

// WithMaxDepth sets the call depth ceiling. Values below 1 keep the default.
func WithMaxDepth(depth int) Option {
	return func(vm *VM) {
		if depth > 0 {
			vm.maxDepth = depth
		}
	}
}

// WithMaxLoops sets the iteration ceiling of a single loop. Values below 1
// keep the default.
func WithMaxLoops(loops int) Option {
	return func(vm *VM) {
		if loops > 0 {
			vm.maxLoops = loops
		}
	}
}

// WithStylesheet sets the stylesheet. A nil sheet keeps the default one.
func WithStylesheet(sheet *style.Sheet) Option {
	return func(vm *VM) {
		if sheet != nil {
			vm.sheet = sheet
		}
	}
}

// WithSource sets the program text shown in the code panel. Without it the
// code and variable panels are not drawn.
func WithSource(lines []string) Option {
	return func(vm *VM) {
		vm.source = lines
	}
}

// WithReturnBoundaries asks Run to solve the layout even when the stylesheet
// fixes positions, and to return the boundary dump.
func WithReturnBoundaries(enabled bool) Option {
	return func(vm *VM) {
		vm.returnBoundaries = enabled
	}
}

// WithErrorReporter sets the function told about the error ending a run.
func WithErrorReporter(r ErrorReporter) Option {
	return func(vm *VM) {
		if r != nil {
			vm.reporter = r
		}
	}
}

// WithTimeout bounds the wall-clock time of a run.
func WithTimeout(timeout time.Duration) Option {
	return func(vm *VM) {
		vm.timeout = timeout
	}
}

// WithWindowCapacity sets the number of variable panel slots.
func WithWindowCapacity(n int) Option {
	return func(vm *VM) {
		if n > 0 {
			vm.windowCapacity = n
		}
	}
}

// New creates a VM for program.
func New(program *ast.Program, opts ...Option) *VM {
	vm := &VM{
		program:        program,
		symbols:        program,
		lines:          ast.IndexLines(program),
		sheet:          style.Default(),
		log:            logger.GetLogger(),
		maxDepth:       DefaultMaxDepth(),
		maxLoops:       DefaultMaxLoops,
		windowCapacity: display.DefaultCapacity,
	}
	for _, opt := range opts {
		opt(vm)
	}
	if vm.reporter == nil {
		log := vm.log
		vm.reporter = func(err error) {
			log.Error("runtime error", "error", err)
		}
	}
	return vm
}

// MaxDepth returns the call depth ceiling in effect.
func (vm *VM) MaxDepth() int { return vm.maxDepth }

// Run executes the program. The instruction log is returned even when the
// run fails; the error is then the *RuntimeError that stopped it (or the
// context error) and Status is ExitRuntimeError.
func (vm *VM) Run(ctx context.Context) (*Result, error) {
	if vm.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, vm.timeout)
		defer cancel()
	}
	vm.reset(ctx)

	vm.log.Info("VM started",
		"functions", len(vm.program.Functions),
		"statements", len(vm.program.Statements),
		"max_depth", vm.maxDepth,
		"max_loops", vm.maxLoops)

	vm.emitPanels()

	top := vm.newFrame(newActivation("", vm.windowCapacity), 1, true, vm.sheet.StepIntoDefault())
	if len(vm.program.Statements) > 0 {
		top.pc = vm.program.Statements[0].Line()
	}
	_, err := top.run(vm.program.Statements, true)
	vm.emit(opcode.Sleep, 1.0)

	res := &Result{Status: ExitSuccess}
	if err == nil {
		err = vm.placeStructures(res)
	}
	res.OpCodes = vm.out.OpCodes()
	if err != nil {
		res.Status = ExitRuntimeError
		vm.reporter(err)
		return res, err
	}
	vm.log.Info("VM finished", "instructions", len(res.OpCodes), "structures", vm.shapes.Size())
	return res, nil
}

func (vm *VM) reset(ctx context.Context) {
	vm.ctx = ctx
	vm.out = &opcode.Log{}
	vm.names = NewNameGenerator(ast.Identifiers(vm.program))
	vm.arena = value.NewArena()
	vm.speeds = []float64{1}
	vm.shapes = linkedhashmap.New()
	vm.drawings = make(map[*value.Handle]*drawing)
	vm.subtitle = ""
	vm.shownOnce = make(map[*ast.SubtitleStatement]bool)

	vm.hideCode = vm.sheet.HideCode || len(vm.source) == 0
	vm.hideVariables = vm.sheet.HideVariables
	if len(vm.source) == 0 && !vm.sheet.HideCode {
		vm.log.Debug("no source text, code panel disabled")
	}
	vm.panel = source.BuildCodePanel(vm.source, vm.lineKind, source.PanelOptions{
		DisplayNewLines:    vm.sheet.DisplayNewLinesInCode,
		SyntaxHighlighting: vm.sheet.SyntaxHighlightingOn,
		TabSpacing:         vm.sheet.TabSpacing,
	})
	vm.codeBlock = vm.names.Generate("code_block")
	vm.codeText = vm.names.Generate("code_text")
	vm.pointer = vm.names.Generate("pointer")
	vm.variableBlock = vm.names.Generate("variable_block")
}

func (vm *VM) lineKind(line int) source.LineKind {
	s, ok := vm.lines[line]
	switch {
	case !ok:
		return source.NoStatement
	case ast.IsCode(s):
		return source.CodeStatement
	}
	return source.AnnotationStatement
}

func (vm *VM) emitPanels() {
	if vm.hideCode {
		return
	}
	if !vm.hideVariables {
		vm.emitFor(layout.VariablePanelUID, opcode.VariableBlock, []string{}, vm.variableBlock)
	}
	vm.emitFor(layout.CodePanelUID, opcode.CodeBlock, vm.panel.Wrapped(), vm.codeBlock, vm.codeText, vm.pointer)
}

// speed is the runtime factor of the innermost speed region.
func (vm *VM) speed() float64 {
	return vm.speeds[len(vm.speeds)-1]
}

func (vm *VM) emit(cmd opcode.Cmd, args ...any) {
	vm.out.Append(opcode.OpCode{Cmd: cmd, Args: args, Runtime: vm.speed()})
}

// emitTimed emits an instruction that runs for runtime instead of the
// current speed.
func (vm *VM) emitTimed(runtime float64, cmd opcode.Cmd, args ...any) {
	vm.out.Append(opcode.OpCode{Cmd: cmd, Args: args, Runtime: runtime})
}

// emitFor emits an instruction drawing the structure or panel uid.
func (vm *VM) emitFor(uid string, cmd opcode.Cmd, args ...any) {
	vm.out.Append(opcode.OpCode{Cmd: cmd, Args: args, Runtime: vm.speed(), UID: uid})
}

// reserve registers the boundary shape of uid. A later reservation of the
// same uid replaces the shape but keeps its place in the order.
func (vm *VM) reserve(uid string, sh *layout.Shape) {
	vm.shapes.Put(uid, sh)
}

// grow raises the capacity hint of the shape reserved for uid.
func (vm *VM) grow(uid string, n int) {
	if sh, ok := vm.shapes.Get(uid); ok {
		sh.(*layout.Shape).MaxSize += n
	}
}

func (vm *VM) placements() []layout.Placement {
	out := make([]layout.Placement, 0, vm.shapes.Size())
	it := vm.shapes.Iterator()
	for it.Next() {
		out = append(out, layout.Placement{UID: it.Key().(string), Shape: it.Value().(*layout.Shape)})
	}
	return out
}

// panelUIDs lists the panels drawn in this run.
func (vm *VM) panelUIDs() []string {
	var uids []string
	if !vm.hideCode {
		uids = append(uids, layout.CodePanelUID)
		if !vm.hideVariables {
			uids = append(uids, layout.VariablePanelUID)
		}
	}
	if vm.subtitle != "" {
		uids = append(uids, layout.SubtitleUID)
	}
	return uids
}

// placeStructures assigns a boundary to every instruction that draws a
// structure or panel, either from the solver or from stylesheet positions.
func (vm *VM) placeStructures(res *Result) error {
	userPositions := vm.sheet.UserDefinedPositions()
	if !vm.returnBoundaries && userPositions {
		boundaries := make(map[string]layout.Boundary)
		for _, uid := range vm.panelUIDs() {
			p, ok := vm.sheet.Position(uid)
			if !ok {
				return newMissingPanelPositionError(uid)
			}
			boundaries[uid] = layout.NewBoundary(p, 0)
		}
		for _, p := range vm.placements() {
			if pos, ok := vm.sheet.Position(p.UID); ok {
				boundaries[p.UID] = layout.NewBoundary(pos, p.Shape.MaxSize)
			}
		}
		vm.out.SetBoundaries(boundaries)
		return nil
	}

	solved, err := layout.Solve(vm.placements(), layout.Options{
		CodePanel:     !vm.hideCode,
		VariablePanel: !vm.hideVariables,
	})
	if vm.returnBoundaries {
		res.Boundaries = vm.boundaries(solved)
	}
	if err != nil {
		return newLayoutError(err)
	}
	vm.log.Debug("layout solved", "placements", len(solved.Placements))
	vm.out.SetBoundaries(solved.Boundaries())
	return nil
}

func (vm *VM) boundaries(solved *layout.Result) *Boundaries {
	b := &Boundaries{
		Auto:       map[string]layout.Boundary{},
		Stylesheet: map[string]layout.Position{},
	}
	if solved != nil {
		b.Auto = solved.Boundaries()
	}
	known := make(map[string]bool)
	for _, p := range vm.placements() {
		known[p.UID] = true
	}
	if !vm.hideCode {
		known[layout.CodePanelUID] = true
		if !vm.hideVariables {
			known[layout.VariablePanelUID] = true
		}
	}
	for uid, p := range vm.sheet.Positions {
		if known[uid] {
			b.Stylesheet[uid] = p
		}
	}
	return b
}

const defaultSubtitleDuration = 5

// showSubtitle replaces the subtitle text, drawing the subtitle panel the
// first time.
func (vm *VM) showSubtitle(text string, duration float64) {
	if vm.subtitle == "" {
		vm.subtitle = vm.names.Generate("subtitle_block")
		sh := layout.NewWide(math.MaxInt)
		sh.Priority = 1
		vm.reserve(layout.SubtitleUID, sh)
		vm.emitFor(layout.SubtitleUID, opcode.SubtitleBlock, vm.subtitle, vm.sheet.SubtitleTextColor())
	}
	vm.emit(opcode.UpdateSubtitle, vm.subtitle, source.WrapText(text, source.SubtitleColumns), duration)
}

// sourceLine returns the text of a 1-based source line.
func (vm *VM) sourceLine(line int) (string, bool) {
	if line < 1 || line > len(vm.source) {
		return "", false
	}
	return vm.source[line-1], true
}

func (vm *VM) cancelled(line int) error {
	if err := vm.ctx.Err(); err != nil {
		return fmt.Errorf("execution stopped at line %d: %w", line, err)
	}
	return nil
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
