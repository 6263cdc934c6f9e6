package yo_test

import (
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/containerd/errdefs"

	"github.com/MarcinKonowalczyk/runyo/ir"
	"github.com/MarcinKonowalczyk/runyo/utils"
	"github.com/MarcinKonowalczyk/runyo/yo"
)

func build(t *testing.T, source string, tape int) *ir.Function {
	t.Helper()

	m, err := yo.Build(source, tape)
	utils.RequireNoError(t, err)

	fn := m.Func(yo.FuncName)
	utils.Assert(t, fn != nil, "main function missing")

	return fn
}

func countPhis(fn *ir.Function) int {
	n := 0
	for _, b := range fn.Blocks {
		n += len(b.Phis())
	}
	return n
}

func TestBuild_EntryBlock(t *testing.T) {
	fn := build(t, "", 3)

	utils.AssertEqual(t, len(fn.Blocks), 1)

	entry := fn.Entry()
	utils.AssertEqual(t, entry.Name, "code")
	utils.AssertEqual(t, len(entry.Instrs), 1+2*3)

	alloca, ok := entry.Instrs[0].(*ir.Alloca)
	utils.Assert(t, ok, "entry does not start with the tape allocation")
	utils.AssertEqual(t, alloca.Count.(*ir.Const).Val, int64(3))

	// unrolled clear: store then advance, once per cell
	var it ir.Value = alloca
	for i := 0; i < 3; i++ {
		store, ok := entry.Instrs[1+2*i].(*ir.Store)
		utils.Assert(t, ok, "expected a store")
		utils.AssertEqual(t, store.Addr, it)
		utils.AssertEqual(t, store.Val.(*ir.Const).Val, int64(0))

		gep, ok := entry.Instrs[2+2*i].(*ir.GEP)
		utils.Assert(t, ok, "expected a gep")
		utils.AssertEqual(t, gep.Base, it)
		it = gep
	}

	_, ok = entry.Term.(*ir.Ret)
	utils.Assert(t, ok, "entry must return")
}

func TestBuild_Module(t *testing.T) {
	m, err := yo.Build("yo?YO!", 1)
	utils.RequireNoError(t, err)

	utils.AssertEqual(t, m.Name, "yocode")
	utils.AssertEqual(t, len(m.Funcs), 1)

	getchar := m.External("getchar")
	utils.Assert(t, getchar != nil, "getchar not declared")
	utils.AssertEqual(t, getchar.Ret, ir.I8)
	utils.AssertEqual(t, len(getchar.Params), 0)

	putchar := m.External("putchar")
	utils.Assert(t, putchar != nil, "putchar not declared")
	utils.AssertEqual(t, putchar.Ret, ir.Void)
	utils.AssertEqualArrays(t, putchar.Params, []ir.Type{ir.I8})
	utils.AssertEqual(t, putchar.CallConv, ir.C)
}

func TestBuild_StraightLine(t *testing.T) {
	fn := build(t, "yoYo!YO!YOYo?yo?", 2)

	utils.AssertEqual(t, len(fn.Blocks), 1)
	utils.AssertEqual(t, countPhis(fn), 0)

	// after the tape clear: gep, load/add/store, load/call, gep,
	// load/sub/store, call/store
	body := fn.Entry().Instrs[1+2*2:]
	utils.AssertEqual(t, len(body), 1+3+2+1+3+2)

	first, ok := body[0].(*ir.GEP)
	utils.Assert(t, ok, "move right is a gep")
	utils.AssertEqual(t, first.Base, ir.Value(fn.Entry().Instrs[0].(*ir.Alloca)))
	utils.AssertEqual(t, first.Offset.(*ir.Const).Val, int64(1))

	left, ok := body[6].(*ir.GEP)
	utils.Assert(t, ok, "move left is a gep")
	utils.AssertEqual(t, left.Base, ir.Value(first))
	utils.AssertEqual(t, left.Offset.(*ir.Const).Val, int64(-1))

	add := body[2].(*ir.BinOp)
	utils.AssertEqual(t, add.Op, ir.Add)
	sub := body[8].(*ir.BinOp)
	utils.AssertEqual(t, sub.Op, ir.Sub)

	in := body[10].(*ir.Call)
	utils.AssertEqual(t, in.Callee.Name, "getchar")
	store := body[11].(*ir.Store)
	utils.AssertEqual(t, store.Val, ir.Value(in))
	utils.AssertEqual(t, store.Addr, ir.Value(left))
}

func TestBuild_SingleLoop(t *testing.T) {
	fn := build(t, "yo!YO!Yo?YO?", 1)

	utils.AssertEqual(t, len(fn.Blocks), 3)
	code, header, after := fn.Blocks[0], fn.Blocks[1], fn.Blocks[2]
	utils.AssertEqual(t, header.Name, "loop.1")
	utils.AssertEqual(t, after.Name, "after.1")

	br, ok := code.Term.(*ir.CondBr)
	utils.Assert(t, ok, "pre-loop block must branch on the cell")
	utils.AssertEqual(t, br.Then, header)
	utils.AssertEqual(t, br.Else, after)

	back, ok := header.Term.(*ir.CondBr)
	utils.Assert(t, ok, "loop end must branch on the cell")
	utils.AssertEqual(t, back.Then, header)
	utils.AssertEqual(t, back.Else, after)

	alloca := ir.Value(code.Instrs[0].(*ir.Alloca))

	phis := header.Phis()
	utils.AssertEqual(t, len(phis), 1)
	hp := phis[0]
	utils.Assert(t, hp.Closed(), "header phi left open")
	utils.AssertEqual(t, hp.Incoming[0], ir.Edge{Value: alloca, Block: code})
	utils.AssertEqual(t, hp.Incoming[1], ir.Edge{Value: ir.Value(hp), Block: header})

	phis = after.Phis()
	utils.AssertEqual(t, len(phis), 1)
	ap := phis[0]
	utils.AssertEqual(t, ap.Incoming[0], ir.Edge{Value: alloca, Block: code})
	utils.AssertEqual(t, ap.Incoming[1], ir.Edge{Value: ir.Value(hp), Block: header})

	_, ok = after.Term.(*ir.Ret)
	utils.Assert(t, ok, "after block must return")
}

func TestBuild_LoopMovesPointer(t *testing.T) {
	fn := build(t, "yo!yoYO?", 4)

	header := fn.Blocks[1]
	hp := header.Phis()[0]
	gep, ok := hp.Incoming[1].Value.(*ir.GEP)
	utils.Assert(t, ok, "back edge carries the moved pointer")
	utils.AssertEqual(t, gep.Base, ir.Value(hp))
	utils.AssertEqual(t, gep.Parent(), header)
}

func TestBuild_NestedLoops(t *testing.T) {
	b, err := yo.NewBuilder(1)
	utils.RequireNoError(t, err)

	cmds := yo.Lex("yo!yo!YO?YO?")
	for i, c := range cmds[:3] {
		utils.RequireNoError(t, b.Step(i, c))
	}

	fn := b.Module.Func(yo.FuncName)
	outerHeader, outerAfter := fn.Blocks[1], fn.Blocks[2]
	innerHeader, innerAfter := fn.Blocks[3], fn.Blocks[4]

	// inner loop fully wired before the outer loop closes
	st := b.State()
	utils.AssertEqual(t, st.Depth(), 1)
	utils.AssertEqual(t, st.Block, innerAfter)
	utils.Assert(t, innerHeader.Phis()[0].Closed(), "inner header phi open")
	utils.Assert(t, innerAfter.Phis()[0].Closed(), "inner after phi open")
	utils.AssertEqual(t, len(outerHeader.Phis()[0].Incoming), 1)
	utils.Assert(t, outerAfter.Term == nil, "outer after block terminated early")

	utils.RequireNoError(t, b.Step(3, cmds[3]))
	_, err = b.Finish()
	utils.RequireNoError(t, err)

	// the outer loop ends in the inner after block, not the inner header
	oh := outerHeader.Phis()[0]
	utils.AssertEqual(t, oh.Incoming[1].Block, innerAfter)
	utils.AssertEqual(t, oh.Incoming[1].Value, ir.Value(innerAfter.Phis()[0]))

	oa := outerAfter.Phis()[0]
	utils.AssertEqual(t, oa.Incoming[0].Block, fn.Entry())
	utils.AssertEqual(t, oa.Incoming[1].Block, innerAfter)

	ih := innerHeader.Phis()[0]
	utils.AssertEqual(t, ih.Incoming[0], ir.Edge{Value: ir.Value(oh), Block: outerHeader})

	back := innerAfter.Term.(*ir.CondBr)
	utils.AssertEqual(t, back.Then, outerHeader)
	utils.AssertEqual(t, back.Else, outerAfter)
}

func TestBuild_UnmatchedLoopClose(t *testing.T) {
	_, err := yo.Build("YO?", 1)
	utils.AssertErrorIs(t, err, yo.ErrMalformedLoopNesting)
	utils.Assert(t, errdefs.IsInvalidArgument(err), "expected an invalid argument error")
	utils.AssertContains(t, err.Error(), "offset 0")

	_, err = yo.Build("yo!YO?YO?", 1)
	utils.AssertErrorIs(t, err, yo.ErrMalformedLoopNesting)
	utils.AssertContains(t, err.Error(), "offset 6")
}

func TestBuild_UnclosedLoop(t *testing.T) {
	_, err := yo.Build("Yo!yo!yo!YO?", 1)
	utils.AssertErrorIs(t, err, yo.ErrMalformedLoopNesting)
	utils.AssertContains(t, err.Error(), "offset 3")
}

func TestBuild_TapeSize(t *testing.T) {
	_, err := yo.Build("", 0)
	utils.Assert(t, errdefs.IsInvalidArgument(err), "expected an invalid argument error")

	fn := build(t, "", yo.DefaultTapeSize)
	utils.AssertEqual(t, len(fn.Entry().Instrs), 1+2*yo.DefaultTapeSize)
}

// randomProgram returns a well nested program with the given number of loops.
func randomProgram(rng *rand.Rand, loops int) string {
	straight := []string{"yo", "YO", "Yo!", "Yo?", "YO!", "yo?", "x"}

	var b strings.Builder
	depth, opened := 0, 0
	for opened < loops || depth > 0 {
		switch r := rng.IntN(4); {
		case r == 0 && opened < loops:
			b.WriteString("yo!")
			depth++
			opened++
		case r == 1 && depth > 0:
			b.WriteString("YO?")
			depth--
		default:
			b.WriteString(straight[rng.IntN(len(straight))])
		}
	}
	return b.String()
}

func TestBuild_MergeNodesClosed(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))

	for i := range 50 {
		src := randomProgram(rng, i%7)
		fn := build(t, src, 8)

		opens, closes := 0, 0
		for _, c := range yo.Lex(src) {
			switch c {
			case yo.LoopOpen:
				opens++
			case yo.LoopClose:
				closes++
			}
		}
		utils.AssertEqual(t, opens, closes)
		utils.AssertEqual(t, len(fn.Blocks), 1+2*opens)
		utils.AssertEqual(t, countPhis(fn), 2*opens)

		for _, b := range fn.Blocks {
			utils.Assert(t, b.Term != nil, "block without terminator in "+src)
			for _, p := range b.Phis() {
				utils.AssertEqual(t, len(p.Incoming), 2)
			}
		}
	}
}
