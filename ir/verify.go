package ir

import (
	"tlog.app/go/errors"
)

// Verify checks the structural invariants a backend relies on.
func Verify(f *Function) error {
	if len(f.Blocks) == 0 {
		return errors.Wrap(ErrInvalidIR, "func %v: no blocks", f.Name)
	}

	preds := f.Preds()

	if p := preds[f.Entry()]; len(p) != 0 {
		return errors.Wrap(ErrInvalidIR, "func %v: entry block %v has predecessors", f.Name, f.Entry().Name)
	}

	for _, b := range f.Blocks {
		err := verifyBlock(f, b, preds[b])
		if err != nil {
			return errors.Wrap(err, "func %v: block %v", f.Name, b.Name)
		}
	}

	return nil
}

// VerifyModule verifies every function and every call target.
func VerifyModule(m *Module) error {
	for _, f := range m.Funcs {
		err := Verify(f)
		if err != nil {
			return err
		}

		for _, b := range f.Blocks {
			for _, in := range b.Instrs {
				c, ok := in.(*Call)
				if ok && m.External(c.Callee.Name) != c.Callee {
					return errors.Wrap(ErrInvalidIR, "func %v: call to undeclared @%v", f.Name, c.Callee.Name)
				}
			}
		}
	}

	return nil
}

func verifyBlock(f *Function, b *Block, preds []*Block) error {
	if b.fn != f {
		return errors.Wrap(ErrInvalidIR, "owned by another function")
	}

	if b.Term == nil {
		return errors.Wrap(ErrInvalidIR, "no terminator")
	}

	for _, s := range b.Succs() {
		if s == nil || s.fn != f {
			return errors.Wrap(ErrInvalidIR, "branch to a foreign block")
		}
	}

	head := true

	for _, in := range b.Instrs {
		if in.Parent() != b {
			return errors.Wrap(ErrInvalidIR, "%%%d placed in another block", in.ID())
		}

		p, isPhi := in.(*Phi)
		if isPhi && !head {
			return errors.Wrap(ErrInvalidIR, "phi %%%d after a non-phi", p.id)
		}

		head = head && isPhi

		if err := verifyInstr(f, in, preds); err != nil {
			return err
		}
	}

	if t, ok := b.Term.(*CondBr); ok {
		if err := operand(f, t.Cond, I1); err != nil {
			return errors.Wrap(err, "condbr")
		}
	}

	return nil
}

func verifyInstr(f *Function, in Instr, preds []*Block) (err error) {
	switch x := in.(type) {
	case *Phi:
		return verifyPhi(f, x, preds)
	case *Alloca:
		c, ok := x.Count.(*Const)
		if !ok || c.Val < 1 {
			return errors.Wrap(ErrInvalidIR, "alloca %%%d: count must be a positive constant", x.id)
		}
	case *GEP:
		err = operands(f, x.Base, Ptr, x.Offset, I8)
	case *Load:
		err = operand(f, x.Addr, Ptr)
	case *Store:
		err = operands(f, x.Addr, Ptr, x.Val, I8)
	case *BinOp:
		err = operands(f, x.X, I8, x.Y, I8)
	case *IsNotNull:
		err = operand(f, x.X, I8)
	case *Call:
		if len(x.Args) != len(x.Callee.Params) {
			return errors.Wrap(ErrInvalidIR, "call %%%d: @%v takes %d args, got %d", x.id, x.Callee.Name, len(x.Callee.Params), len(x.Args))
		}

		for i, a := range x.Args {
			if err = operand(f, a, x.Callee.Params[i]); err != nil {
				break
			}
		}
	default:
		return errors.Wrap(ErrInvalidIR, "unsupported instruction %T", in)
	}

	if err != nil {
		return errors.Wrap(err, "%%%d", in.ID())
	}

	return nil
}

func verifyPhi(f *Function, p *Phi, preds []*Block) error {
	if err := p.Finalize(); err != nil {
		return err
	}

	if len(preds) != len(p.Incoming) {
		return errors.Wrap(ErrInvalidIR, "phi %%%d: %d edges for %d predecessors", p.id, len(p.Incoming), len(preds))
	}

	for _, e := range p.Incoming {
		found := false

		for _, pb := range preds {
			found = found || pb == e.Block
		}

		if !found {
			return errors.Wrap(ErrInvalidIR, "phi %%%d: %v is not a predecessor", p.id, e.Block.Name)
		}

		if err := operand(f, e.Value, p.Typ); err != nil {
			return errors.Wrap(err, "phi %%%d", p.id)
		}
	}

	if p.Incoming[0].Block == p.Incoming[1].Block {
		return errors.Wrap(ErrInvalidIR, "phi %%%d: duplicate edge from %v", p.id, p.Incoming[0].Block.Name)
	}

	return nil
}

func operands(f *Function, a Value, at Type, b Value, bt Type) error {
	if err := operand(f, a, at); err != nil {
		return err
	}

	return operand(f, b, bt)
}

func operand(f *Function, v Value, t Type) error {
	if v == nil {
		return errors.Wrap(ErrInvalidIR, "missing operand")
	}

	if v.Type() != t {
		return errors.Wrap(ErrInvalidIR, "operand is %v, want %v", v.Type(), t)
	}

	in, ok := v.(Instr)
	if ok && (in.Parent() == nil || in.Parent().fn != f) {
		return errors.Wrap(ErrInvalidIR, "operand %%%d is not defined in func %v", in.ID(), f.Name)
	}

	return nil
}
