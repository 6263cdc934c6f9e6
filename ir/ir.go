// Package ir is a small SSA intermediate representation: a module of
// external declarations and functions made of basic blocks.
package ir

import (
	"tlog.app/go/errors"
)

var (
	ErrInvalidIR  = errors.New("invalid ir")
	ErrOpenPhi    = errors.New("phi is not closed")
	ErrTerminated = errors.New("block already terminated")
)

type Type uint8

const (
	Void Type = iota
	I1
	I8
	I32
	Ptr
)

func (t Type) String() string {
	switch t {
	case Void:
		return "void"
	case I1:
		return "i1"
	case I8:
		return "i8"
	case I32:
		return "i32"
	case Ptr:
		return "ptr"
	default:
		return "?"
	}
}

type CallConv string

const C CallConv = "ccc"

type (
	BlockID int
	ValueID int

	// Value is anything usable as an operand.
	Value interface {
		Type() Type
		value()
	}

	// Instr is an instruction placed in a block.
	Instr interface {
		ID() ValueID
		Parent() *Block
		instr()
	}

	// Terminator ends a block.
	Terminator interface {
		Succs() []*Block
		term()
	}

	node struct {
		id    ValueID
		block *Block
	}

	Const struct {
		Typ Type
		Val int64
	}

	Alloca struct {
		node
		Elem  Type
		Count Value
	}

	GEP struct {
		node
		Elem   Type
		Base   Value
		Offset Value
	}

	Load struct {
		node
		Elem Type
		Addr Value
	}

	Store struct {
		node
		Val  Value
		Addr Value
	}

	BinOp struct {
		node
		Op   BinOpKind
		X, Y Value
	}

	IsNotNull struct {
		node
		X Value
	}

	Call struct {
		node
		Callee *External
		Args   []Value
	}

	// Phi merges one value per predecessor edge. Loop phis are created
	// with a single edge and closed once the back edge is known.
	Phi struct {
		node
		Typ      Type
		Incoming []Edge
	}

	Edge struct {
		Value Value
		Block *Block
	}

	Br struct {
		Target *Block
	}

	CondBr struct {
		Cond Value
		Then *Block
		Else *Block
	}

	Ret struct{}

	Block struct {
		ID     BlockID
		Name   string
		Instrs []Instr
		Term   Terminator

		fn *Function
	}

	Function struct {
		Name     string
		Ret      Type
		CallConv CallConv
		Blocks   []*Block

		nvalues int
	}

	External struct {
		Name     string
		Ret      Type
		Params   []Type
		CallConv CallConv
	}

	Module struct {
		Name      string
		Externals []*External
		Funcs     []*Function
	}
)

type BinOpKind uint8

const (
	Add BinOpKind = iota
	Sub
)

func (k BinOpKind) String() string {
	if k == Sub {
		return "sub"
	}
	return "add"
}

// ConstI8 returns an 8-bit constant; negative values are kept signed so
// they read naturally as pointer offsets.
func ConstI8(v int64) *Const { return &Const{Typ: I8, Val: v} }

func ConstI32(v int64) *Const { return &Const{Typ: I32, Val: v} }

func (c *Const) Type() Type { return c.Typ }
func (c *Const) value() {}

func (n *node) ID() ValueID { return n.id }
func (n *node) Parent() *Block { return n.block }
func (n *node) instr() {}

func (*Alloca) Type() Type { return Ptr }
func (*GEP) Type() Type { return Ptr }
func (x *Load) Type() Type { return x.Elem }
func (*IsNotNull) Type() Type { return I1 }
func (x *BinOp) Type() Type { return x.X.Type() }
func (x *Call) Type() Type { return x.Callee.Ret }
func (x *Phi) Type() Type { return x.Typ }
func (*Alloca) value() {}
func (*GEP) value() {}
func (*Load) value() {}
func (*IsNotNull) value() {}
func (*BinOp) value() {}
func (*Call) value() {}
func (*Phi) value() {}
func (t *Br) Succs() []*Block { return []*Block{t.Target} }
func (t *CondBr) Succs() []*Block { return []*Block{t.Then, t.Else} }
func (*Ret) Succs() []*Block { return nil }
func (*Br) term() {}
func (*CondBr) term() {}
func (*Ret) term() {}

// AddIncoming records the value flowing in from block from.
func (p *Phi) AddIncoming(v Value, from *Block) error {
	if p.Closed() {
		return errors.Wrap(ErrInvalidIR, "phi %%%d: third incoming edge from %v", p.id, from.Name)
	}

	p.Incoming = append(p.Incoming, Edge{Value: v, Block: from})

	return nil
}

// Closed reports whether both incoming edges are known.
func (p *Phi) Closed() bool { return len(p.Incoming) == 2 }

// Finalize asserts the phi is closed.
func (p *Phi) Finalize() error {
	if !p.Closed() {
		return errors.Wrap(ErrOpenPhi, "phi %%%d has %d incoming edges", p.id, len(p.Incoming))
	}

	return nil
}

// ValueFrom returns the value flowing in from block from.
func (p *Phi) ValueFrom(from *Block) (Value, bool) {
	for _, e := range p.Incoming {
		if e.Block == from {
			return e.Value, true
		}
	}

	return nil, false
}

func (b *Block) Func() *Function { return b.fn }

// Terminate sets the block terminator. A block is terminated exactly once.
func (b *Block) Terminate(t Terminator) error {
	if b.Term != nil {
		return errors.Wrap(ErrTerminated, "block %v", b.Name)
	}

	b.Term = t

	return nil
}

func (b *Block) Succs() []*Block {
	if b.Term == nil {
		return nil
	}

	return b.Term.Succs()
}

// Phis returns the leading phi instructions of the block.
func (b *Block) Phis() []*Phi {
	var phis []*Phi

	for _, in := range b.Instrs {
		p, ok := in.(*Phi)
		if !ok {
			break
		}

		phis = append(phis, p)
	}

	return phis
}

func NewFunction(name string, ret Type) *Function {
	return &Function{
		Name:     name,
		Ret:      ret,
		CallConv: C,
	}
}

func (f *Function) NewBlock(name string) *Block {
	b := &Block{
		ID:   BlockID(len(f.Blocks)),
		Name: name,
		fn:   f,
	}

	f.Blocks = append(f.Blocks, b)

	return b
}

func (f *Function) Entry() *Block {
	if len(f.Blocks) == 0 {
		return nil
	}

	return f.Blocks[0]
}

// NumValues is the number of value ids allocated so far.
func (f *Function) NumValues() int { return f.nvalues }

func (f *Function) nextID() ValueID {
	id := ValueID(f.nvalues)
	f.nvalues++

	return id
}

// Preds maps every block to its predecessors, in block order.
func (f *Function) Preds() map[*Block][]*Block {
	preds := make(map[*Block][]*Block, len(f.Blocks))

	for _, b := range f.Blocks {
		var seen *Block

		for _, s := range b.Succs() {
			if s == seen {
				continue
			}

			preds[s] = append(preds[s], b)
			seen = s
		}
	}

	return preds
}

func NewModule(name string) *Module {
	return &Module{Name: name}
}

// GetOrInsertExternal returns the declaration called name, adding it
// if it does not exist yet.
func (m *Module) GetOrInsertExternal(name string, ret Type, params ...Type) *External {
	if e := m.External(name); e != nil {
		return e
	}

	e := &External{
		Name:     name,
		Ret:      ret,
		Params:   params,
		CallConv: C,
	}

	m.Externals = append(m.Externals, e)

	return e
}

func (m *Module) External(name string) *External {
	for _, e := range m.Externals {
		if e.Name == name {
			return e
		}
	}

	return nil
}

func (m *Module) AddFunction(f *Function) {
	m.Funcs = append(m.Funcs, f)
}

func (m *Module) Func(name string) *Function {
	for _, f := range m.Funcs {
		if f.Name == name {
			return f
		}
	}

	return nil
}
