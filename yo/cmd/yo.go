package main

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/containerd/log"
	"nikand.dev/go/cli"

	"github.com/MarcinKonowalczyk/runyo/yo"
)

func main() {
	tokensCmd := &cli.Command{
		Name:        "tokens",
		Description: "print the commands found in yo source files",
		Action:      tokensAct,
		Args:        cli.Args{},
	}

	irCmd := &cli.Command{
		Name:        "ir",
		Description: "print the intermediate representation of yo source files",
		Action:      irAct,
		Args:        cli.Args{},
		Flags: []*cli.Flag{
			cli.NewFlag("tape", yo.DefaultTapeSize, "tape size in cells"),
		},
	}

	runCmd := &cli.Command{
		Name:        "run",
		Description: "compile and run a yo program on stdin/stdout",
		Action:      runAct,
		Args:        cli.Args{},
		Flags: []*cli.Flag{
			cli.NewFlag("tape", yo.DefaultTapeSize, "tape size in cells"),
		},
	}

	app := &cli.Command{
		Name:        "yo",
		Description: "yo translates yo programs and runs them",
		Before:      before,
		Flags: []*cli.Flag{
			cli.NewFlag("debug", false, "debug logging"),
			cli.HelpFlag,
		},
		Commands: []*cli.Command{
			tokensCmd,
			irCmd,
			runCmd,
		},
	}

	cli.RunAndExit(app, os.Args, os.Environ())
}

func before(c *cli.Command) error {
	if c.Bool("debug") {
		return log.SetLevel("debug")
	}

	return nil
}

func readSource(name string) (string, error) {
	source, err := os.ReadFile(name)
	if err != nil {
		return "", fmt.Errorf("read source: %w", err)
	}

	return yo.JoinLines(string(source)), nil
}

func requireArgs(c *cli.Command) error {
	if len(c.Args) == 0 {
		return fmt.Errorf("usage: yo %s FILE...", c.Name)
	}

	return nil
}

func tokensAct(c *cli.Command) error {
	if err := requireArgs(c); err != nil {
		return err
	}

	w := bufio.NewWriter(os.Stdout)
	defer w.Flush()

	for _, a := range c.Args {
		source, err := readSource(a)
		if err != nil {
			return fmt.Errorf("%v: %w", a, err)
		}

		for off, cmd := range yo.NewLexer(source).Tokens() {
			fmt.Fprintf(w, "%s:%d\t%s\t%s\n", a, off, cmd, cmd.Name())
		}
	}

	return nil
}

func irAct(c *cli.Command) error {
	if err := requireArgs(c); err != nil {
		return err
	}

	ctx := context.Background()

	for _, a := range c.Args {
		source, err := readSource(a)
		if err != nil {
			return fmt.Errorf("%v: %w", a, err)
		}

		m, err := yo.Compile(ctx, source, yo.WithTapeSize(c.Int("tape")))
		if err != nil {
			return fmt.Errorf("%v: %w", a, err)
		}

		fmt.Print(m)
	}

	return nil
}

func runAct(c *cli.Command) error {
	if len(c.Args) != 1 {
		return fmt.Errorf("usage: yo run FILE")
	}

	ctx := context.Background()

	source, err := readSource(c.Args[0])
	if err != nil {
		return err
	}

	return yo.RunContext(ctx, source, os.Stdin, os.Stdout,
		yo.WithTapeSize(c.Int("tape")),
		yo.WithDebug(c.Bool("debug")),
	)
}
