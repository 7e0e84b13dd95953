package keyword

import (
	"strings"
	"testing"
	"testing/quick"
	"unicode"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "empty", raw: "", want: ""},
		{name: "only spaces", raw: "   \t\n", want: ""},
		{name: "simple list", raw: "pizza, massa", want: "pizza,massa"},
		{name: "duplicates keep first", raw: "pão, bolo, pão", want: "pão,bolo"},
		{name: "case folded before dedupe", raw: "Pão, PÃO, bolo", want: "pão,bolo"},
		{name: "inner whitespace removed", raw: "fru tas", want: "frutas"},
		{name: "digits split tokens", raw: "pizza24horas", want: "pizza,horas"},
		{name: "punctuation becomes separator", raw: "açaí;sorvete/picolé", want: "açaí,sorvete,picolé"},
		{name: "empty tokens dropped", raw: "a,, b,,,", want: "a,b"},
		{name: "only symbols", raw: "123 !@#", want: ""},
		{name: "uppercase accents", raw: "AÇÚCAR", want: "açúcar"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.raw))
		})
	}
}

func TestTokens_Order(t *testing.T) {
	assert.Equal(t, []string{"praia", "surf", "aula"}, Tokens("praia,surf?aula, praia"))
	assert.Equal(t, []string{"praiasurf"}, Tokens("praia surf"))
	assert.Empty(t, Tokens(""))
}

func TestNormalize_Idempotent(t *testing.T) {
	f := func(s string) bool {
		once := Normalize(s)
		return Normalize(once) == once
	}
	if err := quick.Check(f, nil); err != nil {
		t.Error(err)
	}

	for _, s := range []string{"Pão, pão", "x,,y", " a b c ", "São Paulo;Rio"} {
		once := Normalize(s)
		assert.Equal(t, once, Normalize(once), "input %q", s)
	}
}

func TestNormalize_Charset(t *testing.T) {
	f := func(s string) bool {
		out := Normalize(s)
		if strings.HasPrefix(out, ",") || strings.HasSuffix(out, ",") || strings.Contains(out, ",,") {
			return false
		}
		for _, r := range out {
			if r == ',' {
				continue
			}
			if !IsLetter(r) || unicode.IsUpper(r) {
				return false
			}
		}
		return true
	}
	if err := quick.Check(f, nil); err != nil {
		t.Error(err)
	}
}
