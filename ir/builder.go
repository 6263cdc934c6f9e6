package ir

import (
	"tlog.app/go/errors"
)

// Builder appends instructions to a block of a function.
//
// The first failure sticks: once Err is non-nil further instructions are
// still returned but never placed.
type Builder struct {
	fn    *Function
	block *Block
	err   error
}

func NewBuilder(fn *Function) *Builder {
	return &Builder{fn: fn}
}

func (b *Builder) SetInsertPoint(bl *Block) { b.block = bl }

func (b *Builder) Block() *Block { return b.block }

func (b *Builder) Err() error { return b.err }

func (b *Builder) Alloca(elem Type, count Value) *Alloca {
	x := &Alloca{Elem: elem, Count: count}
	b.insert(&x.node, x)

	return x
}

// GEP advances a pointer by offset elements of type elem.
func (b *Builder) GEP(elem Type, base, offset Value) *GEP {
	x := &GEP{Elem: elem, Base: base, Offset: offset}
	b.insert(&x.node, x)

	return x
}

func (b *Builder) Load(elem Type, addr Value) *Load {
	x := &Load{Elem: elem, Addr: addr}
	b.insert(&x.node, x)

	return x
}

func (b *Builder) Store(v, addr Value) *Store {
	x := &Store{Val: v, Addr: addr}
	b.insert(&x.node, x)

	return x
}

func (b *Builder) Add(x, y Value) *BinOp { return b.binop(Add, x, y) }

func (b *Builder) Sub(x, y Value) *BinOp { return b.binop(Sub, x, y) }

func (b *Builder) binop(op BinOpKind, x, y Value) *BinOp {
	v := &BinOp{Op: op, X: x, Y: y}
	b.insert(&v.node, v)

	return v
}

func (b *Builder) IsNotNull(x Value) *IsNotNull {
	v := &IsNotNull{X: x}
	b.insert(&v.node, v)

	return v
}

func (b *Builder) Call(callee *External, args ...Value) *Call {
	x := &Call{Callee: callee, Args: args}
	b.insert(&x.node, x)

	return x
}

// Phi places a new phi after the existing phis of the block.
func (b *Builder) Phi(t Type) *Phi {
	x := &Phi{Typ: t}

	if !b.check() {
		return x
	}

	x.id = b.fn.nextID()
	x.block = b.block

	at := len(b.block.Phis())
	b.block.Instrs = append(b.block.Instrs, nil)
	copy(b.block.Instrs[at+1:], b.block.Instrs[at:])
	b.block.Instrs[at] = x

	return x
}

func (b *Builder) Br(target *Block) error {
	return b.terminate(&Br{Target: target})
}

func (b *Builder) CondBr(cond Value, then, els *Block) error {
	return b.terminate(&CondBr{Cond: cond, Then: then, Else: els})
}

func (b *Builder) RetVoid() error {
	return b.terminate(&Ret{})
}

func (b *Builder) terminate(t Terminator) error {
	if !b.check() {
		return b.err
	}

	if err := b.block.Terminate(t); err != nil {
		b.err = err
	}

	return b.err
}

func (b *Builder) insert(n *node, in Instr) {
	if !b.check() {
		return
	}

	n.id = b.fn.nextID()
	n.block = b.block

	b.block.Instrs = append(b.block.Instrs, in)
}

func (b *Builder) check() bool {
	if b.err != nil {
		return false
	}

	switch {
	case b.block == nil:
		b.err = errors.Wrap(ErrInvalidIR, "no insert point")
	case b.block.fn != b.fn:
		b.err = errors.Wrap(ErrInvalidIR, "block %v belongs to another function", b.block.Name)
	case b.block.Term != nil:
		b.err = errors.Wrap(ErrTerminated, "insert into block %v", b.block.Name)
	}

	return b.err == nil
}
