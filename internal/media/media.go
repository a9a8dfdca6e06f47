// Package media classifies source modules by coarse media type. The type
// drives which syntax rules the engine applies and which extension emitted
// output receives.
//
// Classification is by URL/path suffix only; callers that already know the
// media type (e.g. from a request payload) should pass it through rather
// than re-deriving it.
package media

import "strings"

// Type is the coarse classification of a source module.
type Type int

const (
	JavaScript Type = iota
	JSX
	TypeScript
	TSX
	Dts // type-declaration file; type information only, no runtime code
	JSON
	Binary
	Unknown
)

func (t Type) String() string {
	switch t {
	case JavaScript:
		return "JavaScript"
	case JSX:
		return "JSX"
	case TypeScript:
		return "TypeScript"
	case TSX:
		return "TSX"
	case Dts:
		return "Dts"
	case JSON:
		return "JSON"
	case Binary:
		return "Binary"
	default:
		return "Unknown"
	}
}

// FromName maps a wire-level media type name back to a Type. Unrecognized
// names yield Unknown so the caller can fall back to FromURL.
func FromName(name string) Type {
	switch name {
	case "JavaScript":
		return JavaScript
	case "JSX":
		return JSX
	case "TypeScript":
		return TypeScript
	case "TSX":
		return TSX
	case "Dts":
		return Dts
	case "JSON", "Json":
		return JSON
	case "Binary", "Wasm":
		return Binary
	default:
		return Unknown
	}
}

// FromURL infers the media type from a URL or path suffix.
// ".d.ts" is checked before ".ts" since it is a suffix of it.
func FromURL(url string) Type {
	lower := strings.ToLower(url)
	switch {
	case strings.HasSuffix(lower, ".d.ts"):
		return Dts
	case strings.HasSuffix(lower, ".ts"):
		return TypeScript
	case strings.HasSuffix(lower, ".tsx"):
		return TSX
	case strings.HasSuffix(lower, ".js"), strings.HasSuffix(lower, ".mjs"), strings.HasSuffix(lower, ".cjs"):
		return JavaScript
	case strings.HasSuffix(lower, ".jsx"):
		return JSX
	case strings.HasSuffix(lower, ".json"):
		return JSON
	case strings.HasSuffix(lower, ".wasm"):
		return Binary
	default:
		return Unknown
	}
}

// SourceExtension returns the canonical source extension for the type,
// including the leading dot. Unknown and Binary types have no extension.
func (t Type) SourceExtension() string {
	switch t {
	case JavaScript:
		return ".js"
	case JSX:
		return ".jsx"
	case TypeScript:
		return ".ts"
	case TSX:
		return ".tsx"
	case Dts:
		return ".d.ts"
	case JSON:
		return ".json"
	default:
		return ""
	}
}

// EmitExtension returns the extension emitted output receives for a module
// of this type. Declaration files produce no runtime output.
func (t Type) EmitExtension() string {
	switch t {
	case JavaScript, JSX, TypeScript, TSX:
		return ".js"
	case JSON:
		return ".json"
	default:
		return ""
	}
}
