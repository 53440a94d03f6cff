package slug

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerate(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{name: "accented and punctuation", in: "  Línea de Negocio! ", want: "l-nea-de-negocio"},
		{name: "empty", in: "", want: ""},
		{name: "only symbols", in: "!!!", want: ""},
		{name: "underscores and hyphens collapse", in: "foo__bar -- baz", want: "foo-bar-baz"},
		{name: "digits kept", in: "Nivel 3", want: "nivel-3"},
		{name: "leading and trailing separators", in: "-_ Hola _-", want: "hola"},
		{name: "tabs and newlines", in: "a\tb\nc", want: "a-b-c"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Generate(tc.in))
		})
	}
}

func TestGenerate_Idempotent(t *testing.T) {
	inputs := []string{
		"  Línea de Negocio! ",
		"Ñandú & Co.",
		"___",
		"Productos / Químicos (Industria)",
		"ALREADY-a-slug",
		"日本語",
	}
	for _, in := range inputs {
		once := Generate(in)
		assert.Equal(t, once, Generate(once), "input %q", in)
	}
}
