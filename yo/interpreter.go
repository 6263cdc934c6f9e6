package yo

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/containerd/errdefs"
	"github.com/containerd/log"

	"github.com/MarcinKonowalczyk/runyo/ir"
)

// comptime override for debug flag
// set with `-ldflags="-X 'github.com/MarcinKonowalczyk/runyo/yo.debug=true'"`
var debug string

// EOF is what getchar hands the program once input is exhausted: C's EOF
// truncated to a cell.
const EOF = 0xff

// Interpreter executes the main function of a module over a concrete tape.
// Pointer values are tape indices.
type Interpreter struct {
	Func   *ir.Function
	mem    []uint8
	vals   []int64
	Input  io.Reader
	Output io.Writer
	// Trace, if set, is called every time control enters a block.
	Trace func(*ir.Block)
	debug bool
}

func NewInterpreter(fn *ir.Function, input io.Reader, output io.Writer, debug bool) *Interpreter {
	return &Interpreter{
		Func:   fn,
		mem:    make([]uint8, tapeSize(fn)),
		vals:   make([]int64, fn.NumValues()),
		Input:  input,
		Output: output,
		debug:  debug,
	}
}

// tapeSize reads the cell count of the tape allocation in the entry block.
func tapeSize(fn *ir.Function) int {
	entry := fn.Entry()
	if entry == nil {
		return 0
	}

	for _, in := range entry.Instrs {
		a, ok := in.(*ir.Alloca)
		if !ok {
			continue
		}

		if c, ok := a.Count.(*ir.Const); ok {
			return int(c.Val)
		}
	}

	return 0
}

func (i *Interpreter) Reset() {
	for j := range i.mem {
		i.mem[j] = 0
	}
	for j := range i.vals {
		i.vals[j] = 0
	}
}

func (i *Interpreter) MemoryLength() int {
	return len(i.mem)
}

func wrap_index(i int, n int) int {
	i %= n
	if i < 0 {
		i += n
	}
	return i
}

// At indexes the memory, wrapping around both ends.
func (i *Interpreter) At(j int) uint8 {
	return i.mem[wrap_index(j, i.MemoryLength())]
}

// RunContext runs the function until it returns, fails or ctx is done.
func (i *Interpreter) RunContext(ctx context.Context) error {
	logger := log.G(ctx).WithField("func", i.Func.Name)
	verbose := i.debug || debug != ""

	var prev *ir.Block
	block := i.Func.Entry()

	for block != nil {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if verbose {
			logger.WithField("block", block.Name).Debug("enter block")
		}

		if i.Trace != nil {
			i.Trace(block)
		}

		phis, err := i.enter(block, prev)
		if err != nil {
			return err
		}

		for _, in := range block.Instrs[phis:] {
			if err := i.exec(in); err != nil {
				return fmt.Errorf("block %s: %w", block.Name, err)
			}
		}

		prev = block

		switch t := block.Term.(type) {
		case *ir.Ret:
			if verbose {
				logger.Debug("return")
			}
			return nil
		case *ir.Br:
			block = t.Target
		case *ir.CondBr:
			if i.val(t.Cond) != 0 {
				block = t.Then
			} else {
				block = t.Else
			}
		default:
			return fmt.Errorf("block %s: terminator %T: %w", block.Name, t, errdefs.ErrNotImplemented)
		}
	}

	return nil
}

func (i *Interpreter) Run() error {
	return i.RunContext(context.Background())
}

// enter evaluates the phis of block for the edge from prev. All phis read
// their inputs before any of them is written.
func (i *Interpreter) enter(block, prev *ir.Block) (int, error) {
	phis := block.Phis()
	if len(phis) == 0 {
		return 0, nil
	}

	if prev == nil {
		return 0, fmt.Errorf("block %s: phi without a predecessor: %w", block.Name, errdefs.ErrFailedPrecondition)
	}

	next := make([]int64, len(phis))

	for j, p := range phis {
		v, ok := p.ValueFrom(prev)
		if !ok {
			return 0, fmt.Errorf("block %s: phi %%%d has no edge from %s: %w", block.Name, p.ID(), prev.Name, errdefs.ErrFailedPrecondition)
		}

		next[j] = i.val(v)
	}

	for j, p := range phis {
		i.vals[p.ID()] = next[j]
	}

	return len(phis), nil
}

func (i *Interpreter) exec(in ir.Instr) error {
	switch x := in.(type) {
	case *ir.Alloca:
		i.vals[x.ID()] = 0
	case *ir.GEP:
		i.vals[x.ID()] = i.val(x.Base) + i.val(x.Offset)
	case *ir.Load:
		idx, err := i.cell(x.Addr)
		if err != nil {
			return fmt.Errorf("load %%%d: %w", x.ID(), err)
		}

		i.vals[x.ID()] = int64(i.mem[idx])
	case *ir.Store:
		idx, err := i.cell(x.Addr)
		if err != nil {
			return fmt.Errorf("store %%%d: %w", x.ID(), err)
		}

		i.mem[idx] = uint8(i.val(x.Val))
	case *ir.BinOp:
		l, r := uint8(i.val(x.X)), uint8(i.val(x.Y))

		if x.Op == ir.Sub {
			i.vals[x.ID()] = int64(l - r)
		} else {
			i.vals[x.ID()] = int64(l + r)
		}
	case *ir.IsNotNull:
		if i.val(x.X) != 0 {
			i.vals[x.ID()] = 1
		} else {
			i.vals[x.ID()] = 0
		}
	case *ir.Call:
		return i.call(x)
	default:
		return fmt.Errorf("instruction %T: %w", in, errdefs.ErrNotImplemented)
	}

	return nil
}

// call resolves externals by name, the way a linker would.
func (i *Interpreter) call(x *ir.Call) error {
	switch x.Callee.Name {
	case "getchar":
		c, err := i.getchar()
		if err != nil {
			return fmt.Errorf("getchar: %w", err)
		}

		i.vals[x.ID()] = int64(c)
	case "putchar":
		if i.Output == nil {
			return nil
		}

		if _, err := i.Output.Write([]byte{uint8(i.val(x.Args[0]))}); err != nil {
			return fmt.Errorf("putchar: %w", err)
		}
	default:
		return fmt.Errorf("unresolved external @%s: %w", x.Callee.Name, errdefs.ErrNotFound)
	}

	return nil
}

func (i *Interpreter) getchar() (uint8, error) {
	if i.Input == nil {
		return EOF, nil
	}

	// read a byte from stdin
	buff := make([]byte, 1)

	for {
		n, err := i.Input.Read(buff)
		if n == 1 {
			return buff[0], nil
		}
		if errors.Is(err, io.EOF) {
			return EOF, nil
		}
		if err != nil {
			return 0, err
		}
	}
}

func (i *Interpreter) cell(addr ir.Value) (int, error) {
	idx := i.val(addr)
	if idx < 0 || idx >= int64(len(i.mem)) {
		return 0, fmt.Errorf("cell %d outside a tape of %d cells: %w", idx, len(i.mem), errdefs.ErrOutOfRange)
	}

	return int(idx), nil
}

func (i *Interpreter) val(v ir.Value) int64 {
	switch v := v.(type) {
	case *ir.Const:
		return v.Val
	case ir.Instr:
		return i.vals[v.ID()]
	default:
		return 0
	}
}
