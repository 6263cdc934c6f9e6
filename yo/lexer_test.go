package yo_test

import (
	"math/rand/v2"
	"testing"

	"github.com/MarcinKonowalczyk/runyo/utils"
	"github.com/MarcinKonowalczyk/runyo/yo"
)

func TestNextToken_Priority(t *testing.T) {
	tests := []struct {
		src string
		cmd yo.Command
		n   int
		ok  bool
	}{
		{"yo?", yo.Input, 3, true},
		{"yo!", yo.LoopOpen, 3, true},
		{"yo", yo.MoveRight, 2, true},
		{"yoYo!", yo.MoveRight, 2, true},
		{"Yo!", yo.Increment, 3, true},
		{"Yo?", yo.Decrement, 3, true},
		{"YO!", yo.Output, 3, true},
		{"YO?", yo.LoopClose, 3, true},
		{"YO", yo.MoveLeft, 2, true},
		{"YOYO", yo.MoveLeft, 2, true},
		{"Yo", 0, 1, false},
		{"yO!", 0, 1, false},
		{"?yo", 0, 1, false},
		{"", 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			cmd, n, ok := yo.NextToken(tt.src)
			utils.AssertEqual(t, ok, tt.ok)
			utils.AssertEqual(t, n, tt.n)
			if tt.ok {
				utils.AssertEqual(t, cmd, tt.cmd)
			}
		})
	}
}

func TestLex_SharedPrefixes(t *testing.T) {
	result := yo.Lex("yo>yo>yo!yo")
	expected := []yo.Command{
		yo.MoveRight,
		yo.MoveRight,
		yo.LoopOpen,
		yo.MoveRight,
	}
	utils.AssertEqualArrays(t, expected, result)
}

func TestLex_MixedCase(t *testing.T) {
	result := yo.Lex("Yo?yo!yo?Yo!")
	expected := []yo.Command{
		yo.Decrement,
		yo.LoopOpen,
		yo.Input,
		yo.Increment,
	}
	utils.AssertEqualArrays(t, expected, result)
}

func TestLex_Comments(t *testing.T) {
	result := yo.Lex("hey yo! what's up YO! bye YO?")
	expected := []yo.Command{
		yo.LoopOpen,
		yo.Output,
		yo.LoopClose,
	}
	utils.AssertEqualArrays(t, expected, result)
	utils.AssertEqual(t, len(yo.Lex("hello sailor")), 0)
}

func TestLexer_Offsets(t *testing.T) {
	lexer := yo.NewLexer("a yo!  YO?")

	cmd, off, ok := lexer.Next()
	utils.Assert(t, ok, "expected a token")
	utils.AssertEqual(t, cmd, yo.LoopOpen)
	utils.AssertEqual(t, off, 2)

	cmd, off, ok = lexer.Next()
	utils.Assert(t, ok, "expected a token")
	utils.AssertEqual(t, cmd, yo.LoopClose)
	utils.AssertEqual(t, off, 7)

	_, off, ok = lexer.Next()
	utils.Assert(t, !ok, "expected end of input")
	utils.AssertEqual(t, off, 10)

	lexer.Reset()
	cmd, off, ok = lexer.Next()
	utils.Assert(t, ok, "expected a token after reset")
	utils.AssertEqual(t, cmd, yo.LoopOpen)
	utils.AssertEqual(t, off, 2)
}

func TestLexer_TokensRestartable(t *testing.T) {
	lexer := yo.NewLexer("yoYo!YOYO!")

	var first, second []yo.Command
	for _, c := range lexer.Tokens() {
		first = append(first, c)
	}
	for _, c := range lexer.Tokens() {
		second = append(second, c)
		break
	}
	for _, c := range lexer.Tokens() {
		second = append(second, c)
	}

	utils.AssertEqualArrays(t, first, []yo.Command{yo.MoveRight, yo.Increment, yo.MoveLeft, yo.Output})
	utils.AssertEqualArrays(t, second, []yo.Command{yo.MoveRight, yo.MoveRight, yo.Increment, yo.MoveLeft, yo.Output})

	// ranging does not move the lexer's own cursor
	cmd, off, ok := lexer.Next()
	utils.Assert(t, ok, "expected a token")
	utils.AssertEqual(t, cmd, yo.MoveRight)
	utils.AssertEqual(t, off, 0)
}

func TestCommand_String(t *testing.T) {
	for _, c := range []yo.Command{
		yo.Input, yo.LoopOpen, yo.MoveRight, yo.Increment,
		yo.Decrement, yo.Output, yo.LoopClose, yo.MoveLeft,
	} {
		cmd, n, ok := yo.NextToken(c.String())
		utils.Assert(t, ok, "keyword does not lex: "+c.String())
		utils.AssertEqual(t, cmd, c)
		utils.AssertEqual(t, n, len(c.String()))
		utils.AssertNotEqual(t, c.Name(), "unknown")
	}
}

func TestNextToken_Total(t *testing.T) {
	alphabet := []byte("yYoO?!> \n")
	rng := rand.New(rand.NewPCG(1, 2))

	for range 200 {
		src := make([]byte, rng.IntN(40))
		for i := range src {
			src[i] = alphabet[rng.IntN(len(alphabet))]
		}

		rest := string(src)
		consumed := 0
		for rest != "" {
			_, n, ok := yo.NextToken(rest)
			if ok {
				utils.Assert(t, n == 2 || n == 3, "keyword length")
			} else {
				utils.AssertEqual(t, n, 1)
			}
			consumed += n
			rest = rest[n:]
		}
		utils.AssertEqual(t, consumed, len(src))
	}
}

func TestJoinLines(t *testing.T) {
	utils.AssertEqual(t, yo.JoinLines("yo\nYO!\r\nYo?"), "yoYO!Yo?")
	utils.AssertEqual(t, yo.JoinLines("Y\no!"), "Yo!")
	utils.AssertEqual(t, yo.JoinLines(""), "")

	result := yo.Lex(yo.JoinLines("Y\no!\nY\r\nO!"))
	utils.AssertEqualArrays(t, result, []yo.Command{yo.Increment, yo.Output})
}
