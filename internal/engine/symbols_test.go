package engine

import "testing"

func TestIsRuntimeValue(t *testing.T) {
	cases := []struct {
		name  string
		flags SymbolFlags
		want  bool
	}{
		{"class", SymClass, true},
		{"function", SymFunction, true},
		{"const", SymBlockScopedVariable, true},
		{"enum", SymRegularEnum, true},
		{"interface", SymInterface, false},
		{"type alias", SymTypeAlias, false},
		{"ambient namespace", SymNamespaceModule, false},
		{"class merged with interface", SymClass | SymInterface, true},
		{"none", 0, false},
	}
	for _, c := range cases {
		if got := c.flags.IsRuntimeValue(); got != c.want {
			t.Fatalf("%s: IsRuntimeValue = %v, want %v", c.name, got, c.want)
		}
	}
}
