package shim

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/containerd/errdefs"

	"github.com/MarcinKonowalczyk/runyo/yo"
)

// IsRunArgs reports whether the process was started to run a yo program,
// which Create does as `self yo -file F -tape N`. Only the first argument
// counts: shim flags such as `-id` may carry the same word as a value.
func IsRunArgs(args []string) bool {
	return len(args) > 0 && args[0] == RunArg
}

type runFlags struct {
	file string
	tape int
}

func parseRunFlags(args []string) (runFlags, error) {
	var f runFlags
	flags := flag.NewFlagSet(RunArg, flag.ContinueOnError)
	flags.StringVar(&f.file, "file", "", "yo source file")
	flags.IntVar(&f.tape, "tape", yo.DefaultTapeSize, "tape size in cells")
	return f, flags.Parse(args)
}

// RunProgram runs the yo program named by the flags in args (without the
// leading RunArg) over input and output.
func RunProgram(ctx context.Context, args []string, input io.Reader, output io.Writer) error {
	f, err := parseRunFlags(args)
	if err != nil {
		return fmt.Errorf("%w: %w", err, errdefs.ErrInvalidArgument)
	}

	if f.file == "" {
		return fmt.Errorf("-file is required: %w", errdefs.ErrInvalidArgument)
	}

	source, err := os.ReadFile(f.file)
	if err != nil {
		return err
	}

	return yo.RunContext(ctx, string(source), input, output, yo.WithTapeSize(f.tape))
}
