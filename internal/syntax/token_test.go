package syntax

import "testing"

func kinds(toks []token) []tokKind {
	out := make([]tokKind, len(toks))
	for i, t := range toks {
		out[i] = t.kind
	}
	return out
}

func TestLexer_RegexVsDivision(t *testing.T) {
	tests := []struct {
		name string
		src  string
		at   int
		kind tokKind
	}{
		{"division after ident", "a / b", 1, tokPunct},
		{"regex after assign", "x = /ab+c/g", 2, tokRegex},
		{"regex after paren", "m(/\\d+/)", 2, tokRegex},
		{"regex with class", "x = /[a/b]/", 2, tokRegex},
		{"division after call", "f() / 2", 3, tokPunct},
		{"regex after return", "return /x/", 1, tokRegex},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toks, ok := lexAll(tt.src)
			if !ok {
				t.Fatalf("lex failed for %q", tt.src)
			}
			if tt.at >= len(toks) {
				t.Fatalf("got %d tokens: %v", len(toks), kinds(toks))
			}
			if toks[tt.at].kind != tt.kind {
				t.Errorf("token %d = %v %q, want kind %v", tt.at, toks[tt.at].kind, toks[tt.at].text, tt.kind)
			}
		})
	}
}

func TestLexer_Templates(t *testing.T) {
	src := "tag`a ${f({x: 1})} b` + 1"
	toks, ok := lexAll(src)
	if !ok {
		t.Fatal("lex failed")
	}
	if len(toks) != 4 {
		t.Fatalf("got %d tokens %v, want 4", len(toks), kinds(toks))
	}
	if toks[1].kind != tokTemplate {
		t.Errorf("token 1 = %v, want template", toks[1].kind)
	}
	if toks[1].text != "`a ${f({x: 1})} b`" {
		t.Errorf("template text = %q", toks[1].text)
	}
}

func TestLexer_Numbers(t *testing.T) {
	tests := []string{"0x1F", "0b1010", "0o17", "1e+5", "2.5E-3", ".5", "10n", "1_000_000"}
	for _, src := range tests {
		t.Run(src, func(t *testing.T) {
			toks, ok := lexAll(src)
			if !ok {
				t.Fatalf("lex failed for %q", src)
			}
			if len(toks) != 1 || toks[0].kind != tokNumber {
				t.Fatalf("got %d tokens %v for %q, want one number", len(toks), kinds(toks), src)
			}
			if toks[0].text != src {
				t.Errorf("number text = %q, want %q", toks[0].text, src)
			}
		})
	}
}

func TestLexer_Punctuation(t *testing.T) {
	toks, ok := lexAll("a?.b ?? c => d ... >>>= e ? .5 : 1")
	if !ok {
		t.Fatal("lex failed")
	}
	var puncts []string
	for _, tok := range toks {
		if tok.kind == tokPunct {
			puncts = append(puncts, tok.text)
		}
	}
	want := []string{"?.", "??", "=>", "...", ">>>=", "?", ":"}
	if len(puncts) != len(want) {
		t.Fatalf("puncts = %v, want %v", puncts, want)
	}
	for i := range want {
		if puncts[i] != want[i] {
			t.Errorf("punct %d = %q, want %q", i, puncts[i], want[i])
		}
	}
}

func TestLexer_NewlineFlag(t *testing.T) {
	toks, ok := lexAll("a\nb // c\nd /* e\nf */ g")
	if !ok {
		t.Fatal("lex failed")
	}
	wantNL := map[string]bool{"a": false, "b": true, "d": true, "g": true}
	for _, tok := range toks {
		if want, found := wantNL[tok.text]; found && tok.nl != want {
			t.Errorf("token %q nl = %v, want %v", tok.text, tok.nl, want)
		}
	}
}

func TestLexer_UnterminatedErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"string", `"abc`},
		{"template", "`abc ${x"},
		{"regex", "x = /abc"},
		{"block comment", "/* abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := lexAll(tt.src); ok {
				t.Errorf("lexing %q succeeded, want error", tt.src)
			}
		})
	}
}
