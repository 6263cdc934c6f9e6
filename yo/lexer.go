package yo

import (
	"iter"
	"strings"
)

type Command uint8

const (
	Input Command = iota
	LoopOpen
	MoveRight
	Increment
	Decrement
	Output
	LoopClose
	MoveLeft
)

// keywords in matching priority order. The first keyword that prefixes the
// remaining source wins, so "yo?" and "yo!" must be tried before "yo".
var keywords = [...]struct {
	text string
	cmd  Command
}{
	{"yo?", Input},
	{"yo!", LoopOpen},
	{"yo", MoveRight},
	{"Yo!", Increment},
	{"Yo?", Decrement},
	{"YO!", Output},
	{"YO?", LoopClose},
	{"YO", MoveLeft},
}

// String returns the keyword spelling of the command.
func (c Command) String() string {
	for _, k := range keywords {
		if k.cmd == c {
			return k.text
		}
	}

	return "?"
}

// Name returns the operation the command performs.
func (c Command) Name() string {
	switch c {
	case Input:
		return "input"
	case LoopOpen:
		return "loop-open"
	case MoveRight:
		return "move-right"
	case Increment:
		return "increment"
	case Decrement:
		return "decrement"
	case Output:
		return "output"
	case LoopClose:
		return "loop-close"
	case MoveLeft:
		return "move-left"
	default:
		return "unknown"
	}
}

// NextToken matches one keyword at the start of src. It reports how many
// bytes were consumed: the keyword length on a match, one byte for an
// unrecognized character and zero at the end of input.
func NextToken(src string) (cmd Command, n int, ok bool) {
	if src == "" {
		return 0, 0, false
	}

	for _, k := range keywords {
		if strings.HasPrefix(src, k.text) {
			return k.cmd, len(k.text), true
		}
	}

	return 0, 1, false
}

// JoinLines drops line terminators so the source reads as one line.
// Keywords split by a line break are joined.
func JoinLines(input string) string {
	var b strings.Builder
	b.Grow(len(input))

	for line := range strings.Lines(input) {
		line = strings.TrimSuffix(line, "\n")
		line = strings.TrimSuffix(line, "\r")
		b.WriteString(line)
	}

	return b.String()
}

type Lexer struct {
	chars  string
	cursor int
}

func NewLexer(input string) *Lexer {
	return &Lexer{
		chars: input,
	}
}

// Next returns the next command and its byte offset, skipping anything
// that is not a keyword. ok is false at the end of input.
func (l *Lexer) Next() (cmd Command, offset int, ok bool) {
	for l.cursor < len(l.chars) {
		offset = l.cursor

		c, n, matched := NextToken(l.chars[l.cursor:])
		l.cursor += n

		if matched {
			return c, offset, true
		}
	}

	return 0, l.cursor, false
}

// Reset rewinds the lexer to the start of the source.
func (l *Lexer) Reset() {
	l.cursor = 0
}

// Tokens yields (offset, command) pairs. Every range rescans the source
// from the start and leaves the lexer cursor untouched.
func (l *Lexer) Tokens() iter.Seq2[int, Command] {
	return func(yield func(int, Command) bool) {
		sub := NewLexer(l.chars)

		for {
			cmd, off, ok := sub.Next()
			if !ok || !yield(off, cmd) {
				return
			}
		}
	}
}

func (l *Lexer) Lex() []Command {
	commands := []Command{}
	for _, c := range l.Tokens() {
		commands = append(commands, c)
	}
	return commands
}

func Lex(input string) []Command {
	lexer := NewLexer(input)
	return lexer.Lex()
}
