package ir

import (
	"github.com/nikandfor/hacked/hfmt"
)

// Format appends an LLVM-flavoured text form of m to b.
func Format(b []byte, m *Module) []byte {
	b = hfmt.Appendf(b, "; ModuleID = '%s'\n", m.Name)

	if len(m.Externals) != 0 {
		b = append(b, '\n')
	}

	for _, e := range m.Externals {
		b = hfmt.Appendf(b, "declare %s %v @%s(", e.CallConv, e.Ret, e.Name)

		for i, p := range e.Params {
			if i != 0 {
				b = append(b, ", "...)
			}

			b = hfmt.Appendf(b, "%v", p)
		}

		b = append(b, ")\n"...)
	}

	for _, f := range m.Funcs {
		b = append(b, '\n')
		b = FormatFunc(b, f)
	}

	return b
}

func FormatFunc(b []byte, f *Function) []byte {
	b = hfmt.Appendf(b, "define %s %v @%s() {\n", f.CallConv, f.Ret, f.Name)

	for i, bl := range f.Blocks {
		if i != 0 {
			b = append(b, '\n')
		}

		b = hfmt.Appendf(b, "%s:\n", bl.Name)

		for _, in := range bl.Instrs {
			b = append(b, "  "...)
			b = formatInstr(b, in)
			b = append(b, '\n')
		}

		b = append(b, "  "...)
		b = formatTerm(b, bl.Term)
		b = append(b, '\n')
	}

	return append(b, "}\n"...)
}

func (m *Module) String() string {
	return string(Format(nil, m))
}

func formatInstr(b []byte, in Instr) []byte {
	if v, ok := in.(Value); ok && v.Type() != Void {
		b = hfmt.Appendf(b, "%%%d = ", in.ID())
	}

	switch x := in.(type) {
	case *Alloca:
		b = hfmt.Appendf(b, "alloca %v, ", x.Elem)
		b = typed(b, x.Count)
	case *GEP:
		b = hfmt.Appendf(b, "getelementptr %v, ", x.Elem)
		b = typed(b, x.Base)
		b = append(b, ", "...)
		b = typed(b, x.Offset)
	case *Load:
		b = hfmt.Appendf(b, "load %v, ", x.Elem)
		b = typed(b, x.Addr)
	case *Store:
		b = append(b, "store "...)
		b = typed(b, x.Val)
		b = append(b, ", "...)
		b = typed(b, x.Addr)
	case *BinOp:
		b = hfmt.Appendf(b, "%v ", x.Op)
		b = typed(b, x.X)
		b = append(b, ", "...)
		b = ref(b, x.Y)
	case *IsNotNull:
		b = append(b, "icmp ne "...)
		b = typed(b, x.X)
		b = append(b, ", 0"...)
	case *Call:
		b = hfmt.Appendf(b, "call %s %v @%s(", x.Callee.CallConv, x.Callee.Ret, x.Callee.Name)

		for i, a := range x.Args {
			if i != 0 {
				b = append(b, ", "...)
			}

			b = typed(b, a)
		}

		b = append(b, ')')
	case *Phi:
		b = hfmt.Appendf(b, "phi %v ", x.Typ)

		for i, e := range x.Incoming {
			if i != 0 {
				b = append(b, ", "...)
			}

			b = append(b, "[ "...)
			b = ref(b, e.Value)
			b = hfmt.Appendf(b, ", %%%s ]", e.Block.Name)
		}
	default:
		b = hfmt.Appendf(b, "<%T>", in)
	}

	return b
}

func formatTerm(b []byte, t Terminator) []byte {
	switch t := t.(type) {
	case *Br:
		return hfmt.Appendf(b, "br label %%%s", t.Target.Name)
	case *CondBr:
		b = append(b, "br "...)
		b = typed(b, t.Cond)
		return hfmt.Appendf(b, ", label %%%s, label %%%s", t.Then.Name, t.Else.Name)
	case *Ret:
		return append(b, "ret void"...)
	case nil:
		return append(b, "<no terminator>"...)
	default:
		return hfmt.Appendf(b, "<%T>", t)
	}
}

func typed(b []byte, v Value) []byte {
	b = hfmt.Appendf(b, "%v ", v.Type())

	return ref(b, v)
}

func ref(b []byte, v Value) []byte {
	switch v := v.(type) {
	case *Const:
		return hfmt.Appendf(b, "%d", v.Val)
	case Instr:
		return hfmt.Appendf(b, "%%%d", v.ID())
	default:
		return append(b, "<nil>"...)
	}
}
