package engine

// SymbolFlags mirrors the engine's symbol-kind bitmask for the narrow
// purpose of telling runtime values apart from type-only declarations. The
// numeric values match the engine's own flag encoding and must not be
// renumbered.
type SymbolFlags uint32

const (
	SymFunctionScopedVariable SymbolFlags = 1 << 0
	SymBlockScopedVariable    SymbolFlags = 1 << 1
	SymProperty               SymbolFlags = 1 << 2
	SymEnumMember             SymbolFlags = 1 << 3
	SymFunction               SymbolFlags = 1 << 4
	SymClass                  SymbolFlags = 1 << 5
	SymInterface              SymbolFlags = 1 << 6
	SymConstEnum              SymbolFlags = 1 << 7
	SymRegularEnum            SymbolFlags = 1 << 8
	SymValueModule            SymbolFlags = 1 << 9
	SymNamespaceModule        SymbolFlags = 1 << 10
	SymTypeLiteral            SymbolFlags = 1 << 11
	SymMethod                 SymbolFlags = 1 << 13
	SymGetAccessor            SymbolFlags = 1 << 15
	SymSetAccessor            SymbolFlags = 1 << 16
	SymTypeParameter          SymbolFlags = 1 << 18
	SymTypeAlias              SymbolFlags = 1 << 19
	SymAlias                  SymbolFlags = 1 << 21
)

// symValueMask covers every flag that denotes a runtime value. Interfaces,
// type aliases, type parameters and ambient namespaces fall outside it.
const symValueMask = SymFunctionScopedVariable |
	SymBlockScopedVariable |
	SymProperty |
	SymEnumMember |
	SymFunction |
	SymClass |
	SymConstEnum |
	SymRegularEnum |
	SymValueModule |
	SymMethod |
	SymGetAccessor |
	SymSetAccessor

// IsRuntimeValue reports whether the symbol exists at runtime. Bundling uses
// this to keep the bundle's public surface aligned with runtime reality
// rather than the type surface.
func (f SymbolFlags) IsRuntimeValue() bool {
	return f&symValueMask != 0
}
