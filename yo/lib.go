package yo

import (
	"context"
	"fmt"
	"io"

	"github.com/containerd/errdefs"
	"github.com/containerd/log"

	"github.com/MarcinKonowalczyk/runyo/ir"
)

type options struct {
	tapeSize int
	debug    bool
}

type Option func(*options)

// WithTapeSize sets the number of cells of the tape. Defaults to
// DefaultTapeSize.
func WithTapeSize(n int) Option {
	return func(o *options) { o.tapeSize = n }
}

// WithDebug logs every block transition of the interpreter.
func WithDebug(on bool) Option {
	return func(o *options) { o.debug = on }
}

func newOptions(opts []Option) options {
	o := options{tapeSize: DefaultTapeSize}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Compile joins the source lines and translates them into a verified module.
func Compile(ctx context.Context, source string, opts ...Option) (*ir.Module, error) {
	o := newOptions(opts)

	source = JoinLines(source)

	m, err := Build(source, o.tapeSize)
	if err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}

	log.G(ctx).WithFields(log.Fields{
		"size":   len(source),
		"tape":   o.tapeSize,
		"blocks": len(m.Func(FuncName).Blocks),
		"values": m.Func(FuncName).NumValues(),
	}).Debug("compiled")

	return m, nil
}

func RunContext(ctx context.Context, source string, input io.Reader, output io.Writer, opts ...Option) error {
	o := newOptions(opts)

	m, err := Compile(ctx, source, opts...)
	if err != nil {
		return err
	}

	fn := m.Func(FuncName)
	if fn == nil {
		return fmt.Errorf("func %s: %w", FuncName, errdefs.ErrNotFound)
	}

	interpreter := NewInterpreter(fn, input, output, o.debug)

	return interpreter.RunContext(ctx)
}

func Run(source string, input io.Reader, output io.Writer, opts ...Option) error {
	return RunContext(context.Background(), source, input, output, opts...)
}
