package yo

import (
	"errors"
	"fmt"

	"github.com/containerd/errdefs"

	"github.com/MarcinKonowalczyk/runyo/ir"
)

const (
	DefaultTapeSize = 300

	ModuleName = "yocode"
	FuncName   = "main"
)

// ErrMalformedLoopNesting is returned for a loop close without a matching
// loop open and for loops still open at the end of the source.
var ErrMalformedLoopNesting = fmt.Errorf("malformed loop nesting: %w", errdefs.ErrInvalidArgument)

type loopContext struct {
	offset int

	beforeBlock *ir.Block
	beforeValue ir.Value

	header    *ir.Block
	headerPhi *ir.Phi

	after *ir.Block
}

// BuilderState is the cursor of a translation: the block being filled,
// the pointer value live in it and the loops entered but not yet closed.
type BuilderState struct {
	Block *ir.Block
	Head  ir.Value

	loops []loopContext
}

// Depth is the number of open loops.
func (s *BuilderState) Depth() int { return len(s.loops) }

func (s *BuilderState) push(l loopContext) {
	s.loops = append(s.loops, l)
}

func (s *BuilderState) pop() (loopContext, bool) {
	if len(s.loops) == 0 {
		return loopContext{}, false
	}

	l := s.loops[len(s.loops)-1]
	s.loops = s.loops[:len(s.loops)-1]

	return l, true
}

// Builder translates commands into the main function of a module in one
// forward pass.
type Builder struct {
	Module *ir.Module

	fn   *ir.Function
	emit *ir.Builder

	getchar *ir.External
	putchar *ir.External

	one      ir.Value
	minusOne ir.Value

	state BuilderState
	loops int
}

// NewBuilder declares the I/O primitives and emits the entry block that
// allocates and clears a tape of tapeSize cells.
func NewBuilder(tapeSize int) (*Builder, error) {
	if tapeSize < 1 {
		return nil, fmt.Errorf("tape size %d: %w", tapeSize, errdefs.ErrInvalidArgument)
	}

	m := ir.NewModule(ModuleName)
	fn := ir.NewFunction(FuncName, ir.Void)
	m.AddFunction(fn)

	b := &Builder{
		Module:   m,
		fn:       fn,
		emit:     ir.NewBuilder(fn),
		getchar:  m.GetOrInsertExternal("getchar", ir.I8),
		putchar:  m.GetOrInsertExternal("putchar", ir.Void, ir.I8),
		one:      ir.ConstI8(1),
		minusOne: ir.ConstI8(-1),
	}

	entry := fn.NewBlock("code")
	b.emit.SetInsertPoint(entry)

	head := b.emit.Alloca(ir.I8, ir.ConstI32(int64(tapeSize)))
	zero := ir.ConstI8(0)

	it := ir.Value(head)
	for range tapeSize {
		b.emit.Store(zero, it)
		it = b.emit.GEP(ir.I8, it, b.one)
	}

	if err := b.emit.Err(); err != nil {
		return nil, err
	}

	b.state = BuilderState{Block: entry, Head: head}

	return b, nil
}

// State returns a copy of the translation cursor.
func (b *Builder) State() BuilderState {
	st := b.state
	st.loops = append([]loopContext(nil), b.state.loops...)

	return st
}

// Step translates one command found at byte offset off of the source.
func (b *Builder) Step(off int, c Command) error {
	return b.step(&b.state, off, c)
}

func (b *Builder) step(st *BuilderState, off int, c Command) error {
	b.emit.SetInsertPoint(st.Block)

	switch c {
	case MoveRight:
		st.Head = b.emit.GEP(ir.I8, st.Head, b.one)
	case MoveLeft:
		st.Head = b.emit.GEP(ir.I8, st.Head, b.minusOne)
	case Increment:
		v := b.emit.Load(ir.I8, st.Head)
		b.emit.Store(b.emit.Add(v, b.one), st.Head)
	case Decrement:
		v := b.emit.Load(ir.I8, st.Head)
		b.emit.Store(b.emit.Sub(v, b.one), st.Head)
	case Output:
		v := b.emit.Load(ir.I8, st.Head)
		b.emit.Call(b.putchar, v)
	case Input:
		v := b.emit.Call(b.getchar)
		b.emit.Store(v, st.Head)
	case LoopOpen:
		return b.loopOpen(st, off)
	case LoopClose:
		return b.loopClose(st, off)
	default:
		return fmt.Errorf("command %d at offset %d: %w", c, off, errdefs.ErrInvalidArgument)
	}

	return b.emit.Err()
}

func (b *Builder) loopOpen(st *BuilderState, off int) error {
	b.loops++

	l := loopContext{
		offset:      off,
		beforeBlock: st.Block,
		beforeValue: st.Head,
		header:      b.fn.NewBlock(fmt.Sprintf("loop.%d", b.loops)),
		after:       b.fn.NewBlock(fmt.Sprintf("after.%d", b.loops)),
	}

	b.branchOnCell(st.Head, l)

	b.emit.SetInsertPoint(l.header)
	l.headerPhi = b.emit.Phi(ir.Ptr)

	if err := b.emit.Err(); err != nil {
		return err
	}

	if err := l.headerPhi.AddIncoming(l.beforeValue, l.beforeBlock); err != nil {
		return err
	}

	st.push(l)
	st.Block = l.header
	st.Head = l.headerPhi

	return nil
}

func (b *Builder) loopClose(st *BuilderState, off int) error {
	l, ok := st.pop()
	if !ok {
		return fmt.Errorf("loop close at offset %d: %w", off, ErrMalformedLoopNesting)
	}

	endBlock, endValue := st.Block, st.Head

	b.branchOnCell(endValue, l)

	err := l.headerPhi.AddIncoming(endValue, endBlock)
	if err == nil {
		err = l.headerPhi.Finalize()
	}
	if err != nil {
		return fmt.Errorf("loop opened at offset %d: %w", l.offset, err)
	}

	b.emit.SetInsertPoint(l.after)
	phi := b.emit.Phi(ir.Ptr)

	if err := b.emit.Err(); err != nil {
		return err
	}

	err = errors.Join(
		phi.AddIncoming(l.beforeValue, l.beforeBlock),
		phi.AddIncoming(endValue, endBlock),
		phi.Finalize(),
	)
	if err != nil {
		return fmt.Errorf("loop opened at offset %d: %w", l.offset, err)
	}

	st.Block = l.after
	st.Head = phi

	return nil
}

// branchOnCell ends the current block with a jump into the loop header
// while the addressed cell is non-zero and to the after block otherwise.
func (b *Builder) branchOnCell(head ir.Value, l loopContext) {
	v := b.emit.Load(ir.I8, head)
	cond := b.emit.IsNotNull(v)
	_ = b.emit.CondBr(cond, l.header, l.after)
}

// Finish terminates the current block and verifies the module.
func (b *Builder) Finish() (*ir.Module, error) {
	if l, ok := b.state.pop(); ok {
		return nil, fmt.Errorf("loop open at offset %d never closed: %w", l.offset, ErrMalformedLoopNesting)
	}

	b.emit.SetInsertPoint(b.state.Block)

	if err := b.emit.RetVoid(); err != nil {
		return nil, err
	}

	if err := ir.VerifyModule(b.Module); err != nil {
		return nil, fmt.Errorf("verify: %w", err)
	}

	return b.Module, nil
}

// Build translates the whole source into a verified module.
func Build(source string, tapeSize int) (*ir.Module, error) {
	b, err := NewBuilder(tapeSize)
	if err != nil {
		return nil, err
	}

	for off, c := range NewLexer(source).Tokens() {
		if err := b.Step(off, c); err != nil {
			return nil, err
		}
	}

	return b.Finish()
}
