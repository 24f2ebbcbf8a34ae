package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/subcommands"

	"opal/compiler"
)

type emitBytecodeCmd struct {
	disassemble  bool
	dumpBytecode bool
	outPath      string
}

func (*emitBytecodeCmd) Name() string { return "emit" }
func (*emitBytecodeCmd) Synopsis() string {
	return "Emit the bytecode representation from a source file"
}
func (*emitBytecodeCmd) Usage() string {
	return `opal emit <file>`
}

func (cmd *emitBytecodeCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&cmd.disassemble, "disassemble", true, "disassemble the bytecode and dump it to a .dnic text file")
	f.BoolVar(&cmd.dumpBytecode, "dumpBytecode", true, "write the encoded instruction stream as hexadecimal to a .nic file")
	f.StringVar(&cmd.outPath, "out", "", "base path to write emitted files under (defaults to the source file's own path, minus its extension)")
}

func (cmd *emitBytecodeCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	args := f.Args()
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "💥 File not provided\n")
		return subcommands.ExitUsageError
	}
	opalFile := args[0]
	data, err := os.ReadFile(opalFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "💥 Failed to read file:\n\t%v\n", err)
		return subcommands.ExitFailure
	}

	bc, status := compileSource(string(data))
	if status != subcommands.ExitSuccess {
		return status
	}

	base := cmd.outPath
	if base == "" {
		base = strings.TrimSuffix(opalFile, filepath.Ext(opalFile))
	}

	if cmd.disassemble {
		if err := os.WriteFile(base+".dnic", []byte(disassembleAll(bc)), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "💥 Bytecode disassemble error:\n\t%s\n", err.Error())
			return subcommands.ExitFailure
		}
	}

	if cmd.dumpBytecode {
		if err := os.WriteFile(base+".nic", []byte(hex.EncodeToString(bc.Instructions)), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "💥 Dump bytecode error:\n\t%s\n", err.Error())
			return subcommands.ExitFailure
		}
	}

	return subcommands.ExitSuccess
}

// disassembleAll renders the top-level body followed by every def reachable
// from it, one opcode per line, using compiler.DisassembleInstruction.
func disassembleAll(bc *compiler.Bytecode) string {
	var out strings.Builder
	out.WriteString("<file>\n")
	disassembleInto(&out, bc.Instructions)
	for i, def := range bc.Defs {
		out.WriteString("\n" + strconv.Itoa(i) + " " + def.Def.Name + "\n")
		disassembleInto(&out, def.Code)
	}
	return out.String()
}

func disassembleInto(out *strings.Builder, code compiler.Instructions) {
	ip := 0
	for ip < len(code) {
		line, width := compiler.DisassembleInstruction(code, ip)
		out.WriteString(fmt.Sprintf("%04d %s\n", ip, line))
		ip += width
	}
}
