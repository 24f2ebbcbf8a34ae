package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/google/subcommands"

	"opal/lexer"
	"opal/parser"
	"opal/token"
	"opal/vm"
)

// replCmd runs an interactive read-compile-execute loop, recompiling and
// re-running the whole session buffer on every statement the way the
// compiled pipeline's lack of incremental def registration forces it to.
type replCmd struct {
	debug bool
}

func (*replCmd) Name() string     { return "repl" }
func (*replCmd) Synopsis() string { return "Start an interactive Opal session" }
func (*replCmd) Usage() string {
	return `repl:
  Start interactive REPL session.
`
}

func (r *replCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&r.debug, "debug", false, "trace VM execution on every evaluation")
}

func (r *replCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	rl, err := readline.New(">>> ")
	if err != nil {
		fmt.Println(err)
		return subcommands.ExitFailure
	}
	defer rl.Close()

	fmt.Println("Welcome to Opal!")

	var session strings.Builder
	var pending strings.Builder

	for {
		line, err := rl.Readline()
		if err != nil {
			if err == io.EOF || err == readline.ErrInterrupt {
				return subcommands.ExitSuccess
			}
			fmt.Println(err)
			continue
		}
		if strings.TrimSpace(line) == "exit" && pending.Len() == 0 {
			return subcommands.ExitSuccess
		}

		if pending.Len() > 0 {
			pending.WriteString("\n")
		}
		pending.WriteString(line)

		lex := lexer.New(pending.String())
		tokens, lexErr := lex.Scan()
		if lexErr != nil {
			fmt.Println(lexErr)
			pending.Reset()
			rl.SetPrompt(">>> ")
			continue
		}

		if !blocksBalanced(tokens) {
			rl.SetPrompt("... ")
			continue
		}
		rl.SetPrompt(">>> ")

		source := session.String() + pending.String() + ";"
		bc, status := compileSource(source)
		pending.Reset()
		if status != subcommands.ExitSuccess {
			continue
		}

		machine := vm.New()
		machine.Debug(r.debug)
		result, runErr := machine.Run(*bc)
		if runErr != nil {
			fmt.Println(runErr)
			continue
		}
		if result != nil {
			fmt.Println(result)
		}
		session.WriteString(source)
	}
}

// blocksBalanced reports whether every block-opening keyword in tokens has a
// matching `end`, the signal this grammar's end-delimited blocks give a REPL
// to know when a multi-line def/class/if/while/for/lib body is complete.
func blocksBalanced(tokens []token.Token) bool {
	depth := 0
	for _, tok := range tokens {
		switch tok.TokenType {
		case token.DEF, token.CLASS, token.STRUCT, token.IF, token.WHILE, token.FOR, token.LIB, token.DO:
			depth++
		case token.END:
			depth--
		}
	}
	return depth <= 0
}
