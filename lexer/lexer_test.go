package lexer

import (
	"opal/token"
	"testing"
)

func tokenTypes(toks []token.Token) []token.TokenType {
	out := make([]token.TokenType, len(toks))
	for i, tok := range toks {
		out[i] = tok.TokenType
	}
	return out
}

func assertTypes(t *testing.T, got []token.Token, want []token.TokenType) {
	t.Helper()
	gotTypes := tokenTypes(got)
	if len(gotTypes) != len(want) {
		t.Fatalf("scanner.Scan() produced %d tokens, want %d: %v", len(gotTypes), len(want), gotTypes)
	}
	for i := range want {
		if gotTypes[i] != want[i] {
			t.Errorf("token[%d] = %v, want %v", i, gotTypes[i], want[i])
		}
	}
}

func TestOperatorsSuccess(t *testing.T) {
	want := []token.TokenType{
		token.EQUAL_EQUAL,
		token.DIV,
		token.ASSIGN,
		token.MULT,
		token.ADD,
		token.LARGER,
		token.SUB,
		token.LESS,
		token.NOT_EQUAL,
		token.LESS_EQUAL,
		token.LARGER_EQUAL,
		token.BANG,
		token.BANG,
		token.EOF,
	}
	scanner := New("==/=*+>-<!=<=>=!!")
	got, err := scanner.Scan()
	if err != nil {
		t.Fatalf("scanner.Scan() raised an error: %v", err)
	}
	assertTypes(t, got, want)
}

func TestScanSuccess(t *testing.T) {
	want := []token.TokenType{
		token.LPA,
		token.RPA,
		token.LCUR,
		token.RCUR,
		token.MULT,
		token.MULT,
		token.SEMICOLON,
		token.ADD,
		token.NOT_EQUAL,
		token.LESS_EQUAL,
		token.EOF,
	}
	scanner := New("(){}**;+!=<=")
	got, err := scanner.Scan()
	if err != nil {
		t.Fatalf("scanner.Scan() raised an error: %v", err)
	}
	assertTypes(t, got, want)
}

func TestScanKeywordsAndPunctuation(t *testing.T) {
	want := []token.TokenType{
		token.DEF, token.IDENTIFIER, token.LPA, token.IDENTIFIER, token.COLON,
		token.IDENTIFIER, token.RPA, token.COLON, token.IDENTIFIER, token.END,
		token.EOF,
	}
	scanner := New("def add(x : Int32) : Int32 end")
	got, err := scanner.Scan()
	if err != nil {
		t.Fatalf("scanner.Scan() raised an error: %v", err)
	}
	assertTypes(t, got, want)
}

func TestScanInstanceAndClassVars(t *testing.T) {
	want := []token.TokenType{token.AT, token.IDENTIFIER, token.ATAT, token.IDENTIFIER, token.EOF}
	scanner := New("@x @@y")
	got, err := scanner.Scan()
	if err != nil {
		t.Fatalf("scanner.Scan() raised an error: %v", err)
	}
	assertTypes(t, got, want)
}

func TestScanQuestionMarkIdentifiers(t *testing.T) {
	want := []token.TokenType{token.IS_A_Q, token.AS_Q, token.EOF}
	scanner := New("is_a? as?")
	got, err := scanner.Scan()
	if err != nil {
		t.Fatalf("scanner.Scan() raised an error: %v", err)
	}
	assertTypes(t, got, want)
}

func TestScanNumbersAndIdentifiersWithDigits(t *testing.T) {
	want := []token.TokenType{token.IDENTIFIER, token.ASSIGN, token.INT, token.EOF}
	scanner := New("x1 = 42")
	got, err := scanner.Scan()
	if err != nil {
		t.Fatalf("scanner.Scan() raised an error: %v", err)
	}
	assertTypes(t, got, want)
	if got[2].Literal != int64(42) {
		t.Errorf("int literal = %v, want 42", got[2].Literal)
	}
}
