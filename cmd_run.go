package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"opal/compiler"
	"opal/lexer"
	"opal/parser"
	"opal/vm"
)

// runCmd lexes, parses, lowers and executes a source file in one shot.
type runCmd struct {
	debug bool
}

func (*runCmd) Name() string     { return "run" }
func (*runCmd) Synopsis() string { return "Execute Opal code from a source file" }
func (*runCmd) Usage() string {
	return `run <file>:
  Execute Opal code.
`
}

func (r *runCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&r.debug, "debug", false, "trace VM execution while running")
}

func (r *runCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	args := f.Args()
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "💥 File not provided\n")
		return subcommands.ExitUsageError
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "💥 Failed to read file: %v\n", err)
		return subcommands.ExitFailure
	}

	bc, status := compileSource(string(data))
	if status != subcommands.ExitSuccess {
		return status
	}

	machine := vm.New()
	machine.Debug(r.debug)
	if _, err := machine.Run(*bc); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// compileSource runs the lex/parse/lower pipeline shared by run, repl and
// emit, reporting the first failure at whichever stage it occurred.
func compileSource(source string) (*compiler.Bytecode, subcommands.ExitStatus) {
	lex := lexer.New(source)
	tokens, err := lex.Scan()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Lexing error: %v\n", err)
		return nil, subcommands.ExitFailure
	}

	p := parser.Make(tokens)
	file, err := p.Parse()
	if err != nil {
		fmt.Fprintf(os.Stderr, "💥 Parsing error:\n\t%v\n", err)
		return nil, subcommands.ExitFailure
	}

	bc := compiler.CompileFile(compiler.NewContext(), file)
	return bc, subcommands.ExitSuccess
}
