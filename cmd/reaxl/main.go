// ==============================================================================================
// FILE: cmd/reaxl/main.go
// ==============================================================================================
// COMMAND: reaxl
// PURPOSE: Loads, compiles, and runs a reaxl source file. "reaxl run <file>" resolves the file's
//          imports through the module loader, compiles the merged program to bytecode, and
//          executes it on the VM. "--dump-bytecode" prints the compiled chunk's disassembly to
//          stdout instead of running it. Exit codes follow the external interface convention:
//          0 on a clean run, 1 when the VM halts on a fatal runtime fault (stack overflow), 2 on
//          any compile-time failure (lex, parse, load).
// ==============================================================================================

package main

import (
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"reaxl/compiler"
	"reaxl/diag"
	"reaxl/module"
	"reaxl/sink"
	"reaxl/vm"
)

func main() {
	app := &cli.App{
		Name:  "reaxl",
		Usage: "run reaxl source files",
		Commands: []*cli.Command{
			runCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCodeFor(err))
	}
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "compile and execute an entry source file",
		ArgsUsage: "<entry-source-file>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "dump-bytecode",
				Usage: "print the compiled chunk's disassembly instead of running it",
			},
			&cli.StringFlag{
				Name:  "root",
				Usage: "module search root for dotted import paths (defaults to the entry file's directory)",
			},
		},
		Action: runAction,
	}
}

func runAction(c *cli.Context) error {
	entry := c.Args().First()
	if entry == "" {
		return cli.Exit(errors.New("run requires an entry source file"), 2)
	}

	root := c.String("root")
	if root == "" {
		root = filepath.Dir(entry)
	}

	prog, err := module.New(root, ".rx").LoadEntry(entry)
	if err != nil {
		return loadFailure(err)
	}

	comp := compiler.New(filepath.Base(entry))
	chunk := comp.Compile(prog)
	if errs := comp.Errors(); len(errs) != 0 {
		return cli.Exit(errors.Wrapf(errs[0], "compiling %s", entry), 2)
	}

	if c.Bool("dump-bytecode") {
		chunk.Disassemble(os.Stdout)
		return nil
	}

	machine := vm.New(sink.New(os.Stdout))
	if err := machine.Run(chunk); err != nil {
		return runFailure(err)
	}

	for _, w := range machine.Log.Warnings {
		fmt.Fprintln(os.Stderr, w.String())
	}
	return nil
}

// loadFailure wraps a module-load or compile-time diag.Fatal as the matching cli.ExitCoder; any
// other error (a raw filesystem failure, say) is treated as the same compile-time class since it
// also prevents the program from ever reaching the VM.
func loadFailure(err error) error {
	var fatal *diag.Fatal
	if stderrors.As(err, &fatal) {
		return cli.Exit(errors.Wrap(fatal, "loading program"), fatal.ExitCode())
	}
	return cli.Exit(errors.Wrap(err, "loading program"), 2)
}

// runFailure wraps a VM-level error for exit-code purposes. The VM only returns an error for a
// fatal fault (a stack overflow, or an unhandled opcode); anything recoverable is routed through
// the Log instead.
func runFailure(err error) error {
	var fatal *diag.Fatal
	if stderrors.As(err, &fatal) {
		return cli.Exit(errors.Wrap(fatal, "running program"), fatal.ExitCode())
	}
	return cli.Exit(errors.Wrap(err, "running program"), 1)
}

func exitCodeFor(err error) int {
	if ec, ok := err.(cli.ExitCoder); ok {
		return ec.ExitCode()
	}
	return 1
}
