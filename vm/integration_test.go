package vm_test

import (
	"strings"
	"testing"

	"opal/compiler"
	"opal/lexer"
	"opal/parser"
	"opal/vm"
)

// compile runs the full lexer -> parser -> compiler pipeline, failing the
// test on any lex/parse error. This is the one place in the module that
// exercises compiler.CompileFile end to end rather than hand-assembling
// bytecode (vm_test.go's style), closing the gap between unit-level opcode
// tests and the real frontend.
func compile(t *testing.T, src string) compiler.Bytecode {
	t.Helper()
	lex := lexer.New(src)
	tokens, err := lex.Scan()
	if err != nil {
		t.Fatalf("lex error: %v", err)
	}
	file, err := parser.Make(tokens).Parse()
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	return *compiler.CompileFile(compiler.NewContext(), file)
}

func run(t *testing.T, src string) (any, error) {
	t.Helper()
	bc := compile(t, src)
	return vm.New().Run(bc)
}

func TestIntegrationArithmetic(t *testing.T) {
	result, err := run(t, "1 + 2 * 3;")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != int64(7) {
		t.Fatalf("expected 7, got %#v", result)
	}
}

func TestIntegrationIfElseValue(t *testing.T) {
	result, err := run(t, "if false; 1; else; 2; end;")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != int64(2) {
		t.Fatalf("expected the else branch's value 2, got %#v", result)
	}
}

// TestIntegrationBareCallDoesNotPanic regresses the nil-interface panic a
// bare, non-dotted call used to trigger in finishCall: every frame of this
// pipeline must complete without any unrecovered panic.
func TestIntegrationBareCallDoesNotPanic(t *testing.T) {
	result, err := run(t, `
		def each : Int32
			1
		end
		each();
	`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != int64(1) {
		t.Fatalf("expected 1, got %#v", result)
	}
}

// TestIntegrationWhileNormalExitDoesNotUnderflow regresses the while/break
// stack-height bug: this loop only ever takes the normal-exit (condition
// false) path, never breaks, and is the last expression of its def — so its
// value is wanted. Before the fix, the normal-exit path pushed nothing
// regardless, and the following OP_LEAVE_DEF's pop would underflow the
// stack with an unrecovered panic instead of a RuntimeError.
func TestIntegrationWhileNormalExitDoesNotUnderflow(t *testing.T) {
	result, err := run(t, `
		def countTo3 : Int32
			x = 0
			while x < 3
				x = x + 1
			end
		end
		countTo3();
	`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_ = result
}

// TestIntegrationWhileBreakWithValueDoesNotOverflow is the complementary
// break-exit path: the break's value must upcast to the loop's own static
// type before joining the normal-exit path, so both paths leave the stack
// at the same height.
func TestIntegrationWhileBreakWithValueDoesNotOverflow(t *testing.T) {
	result, err := run(t, `
		def firstPastOne : Int32
			x = 0
			while true
				x = x + 1
				if x == 2
					break x
				end
			end
		end
		firstPastOne();
	`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != int64(2) {
		t.Fatalf("expected the break's value 2 to surface as the def's result, got %#v", result)
	}
}

// TestIntegrationReceiverBasedMultidispatch is spec §8 scenario 6's
// receiver-typed case end to end: with `foo` defined on two distinct
// reopened primitives, `"hi".foo()` must reach the String overload. The
// parser resolves the call by the receiver's static type, so only the String
// overload is a candidate and EmitMultidispatch takes its single-candidate
// path; the cascade itself is covered by compiler/dispatch_test.go.
func TestIntegrationReceiverBasedMultidispatch(t *testing.T) {
	result, err := run(t, `
		class Int32
			def foo : Int32
				1
			end
		end
		class String
			def foo : Int32
				2
			end
		end
		"hi".foo();
	`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != int64(2) {
		t.Fatalf("expected dispatch on the String receiver to pick the String overload (2), got %#v", result)
	}
}

// TestIntegrationArgumentBasedMultidispatch is the free-function half of
// scenario 6: a call to a free function (nil Owner) taking one argument runs
// end to end and returns the def's value. Only one foo overload is defined,
// so EmitMultidispatch takes its single-candidate path; the argument-based
// cascade over several nil-Owner overloads is covered by
// compiler/dispatch_test.go.
func TestIntegrationArgumentBasedMultidispatch(t *testing.T) {
	result, err := run(t, `
		def foo(x : Int32) : Int32
			1
		end
		foo(5);
	`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != int64(1) {
		t.Fatalf("expected 1, got %#v", result)
	}
}

// TestIntegrationFFICallMarshalsWithoutPanicking confirms the previously
// dead rt.AllocateArgBuffer path now runs for real on an OP_LIB_CALL and
// the reference VM's lack of host linkage surfaces as a RuntimeError (caught
// by vm.Run's recover), not an unrecovered panic.
func TestIntegrationFFICallMarshalsWithoutPanicking(t *testing.T) {
	_, err := run(t, `
		lib Foo
			fun bar(x : Int32) : Int32
		end
		bar(5);
	`)
	if err == nil {
		t.Fatalf("expected an error: the reference VM has no host linkage for an FFI symbol")
	}
	if !strings.Contains(err.Error(), "bar") {
		t.Fatalf("expected the error to name the unlinked symbol, got %q", err.Error())
	}
}
