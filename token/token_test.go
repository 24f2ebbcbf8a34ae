package token

import "testing"

func TestCreateToken(t *testing.T) {
	tests := []struct {
		name      string
		tokenType TokenType
		wantLex   string
	}{
		{"ASSIGN token", ASSIGN, "="},
		{"MULT token", MULT, "*"},
		{"LPA token", LPA, "("},
		{"COLONCOLON token", COLONCOLON, "::"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CreateToken(tt.tokenType, 1, 0)
			if got.TokenType != tt.tokenType {
				t.Errorf("TokenType = %v, want %v", got.TokenType, tt.tokenType)
			}
			if got.Lexeme != tt.wantLex {
				t.Errorf("Lexeme = %q, want %q", got.Lexeme, tt.wantLex)
			}
		})
	}
}

func TestCreateLiteralToken(t *testing.T) {
	got := CreateLiteralToken(INT, int64(42), "42", 3, 10)
	if got.TokenType != INT || got.Literal != int64(42) || got.Lexeme != "42" {
		t.Errorf("CreateLiteralToken() = %+v, unexpected fields", got)
	}
	if got.Line != 3 || got.Column != 10 {
		t.Errorf("position = (%d,%d), want (3,10)", got.Line, got.Column)
	}
}

func TestKeywordLookup(t *testing.T) {
	for word, want := range KeyWords {
		if got := KeyWords[word]; got != want {
			t.Errorf("KeyWords[%q] = %v, want %v", word, got, want)
		}
	}
	if _, ok := KeyWords["not_a_keyword"]; ok {
		t.Errorf("KeyWords lookup unexpectedly matched a non-keyword")
	}
}
