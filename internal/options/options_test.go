package options

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestBuilderLaterLayersWin(t *testing.T) {
	b := NewBuilder(Layer{"strict": true, "jsx": "react"})
	cfg := b.With(Layer{"jsx": "preserve"}).With(Layer{"checkJs": true}).Build()

	if cfg.String("jsx") != "preserve" {
		t.Fatalf("jsx = %q, want preserve", cfg.String("jsx"))
	}
	if !cfg.Bool("strict") || !cfg.Bool("checkJs") {
		t.Fatalf("strict/checkJs lost during fold")
	}
}

func TestBuilderIsImmutable(t *testing.T) {
	base := NewBuilder(Layer{"jsx": "react"})
	_ = base.With(Layer{"jsx": "preserve"})

	if got := base.Build().String("jsx"); got != "react" {
		t.Fatalf("base builder mutated by With: jsx = %q", got)
	}
}

func TestParseConfigTextAllowsComments(t *testing.T) {
	text := `{
		// project settings
		"compilerOptions": {
			"strict": false,
			"jsx": "preserve", // trailing comma below is fine too
		},
	}`
	layer, dropped, err := ParseConfigText(text, "tsconfig.json")
	if err != nil {
		t.Fatalf("ParseConfigText: %v", err)
	}
	if len(dropped) != 0 {
		t.Fatalf("unexpected dropped options: %v", dropped)
	}
	if layer["jsx"] != "preserve" {
		t.Fatalf("jsx not parsed: %#v", layer)
	}
	if v, ok := layer["strict"].(bool); !ok || v {
		t.Fatalf("strict not parsed: %#v", layer)
	}
}

func TestParseConfigTextDropsDenyListedSorted(t *testing.T) {
	text := `{"compilerOptions": {"outDir": "dist", "declaration": true, "strict": true, "module": "commonjs"}}`
	layer, dropped, err := ParseConfigText(text, "")
	if err != nil {
		t.Fatalf("ParseConfigText: %v", err)
	}
	want := []string{"declaration", "module", "outDir"}
	if diff := cmp.Diff(want, dropped); diff != "" {
		t.Fatalf("dropped mismatch (-want +got):\n%s", diff)
	}
	if _, ok := layer["outDir"]; ok {
		t.Fatalf("deny-listed option survived: %#v", layer)
	}
	if v, ok := layer["strict"].(bool); !ok || !v {
		t.Fatalf("allowed option lost: %#v", layer)
	}
}

func TestParseConfigTextKeepsCodegenOptions(t *testing.T) {
	layer, dropped, err := ParseConfigText(`{"compilerOptions": {"target": "es5", "jsx": "preserve"}}`, "")
	if err != nil {
		t.Fatalf("ParseConfigText: %v", err)
	}
	if len(dropped) != 0 {
		t.Fatalf("codegen options dropped: %v", dropped)
	}
	if layer["target"] != "es5" {
		t.Fatalf("target lost: %#v", layer)
	}
}

func TestParseConfigTextBadJSON(t *testing.T) {
	_, _, err := ParseConfigText(`{"compilerOptions": {`, "tsconfig.json")
	if err == nil {
		t.Fatalf("expected error for truncated config")
	}
	if !strings.Contains(err.Error(), "tsconfig.json") {
		t.Fatalf("error should name the config path: %v", err)
	}
}

func TestParseRawAppliesDenyList(t *testing.T) {
	layer, dropped, err := ParseRaw(`{"checkJs": true, "noEmit": true}`)
	if err != nil {
		t.Fatalf("ParseRaw: %v", err)
	}
	if len(dropped) != 1 || dropped[0] != "noEmit" {
		t.Fatalf("dropped = %v, want [noEmit]", dropped)
	}
	if v, ok := layer["checkJs"].(bool); !ok || !v {
		t.Fatalf("checkJs lost: %#v", layer)
	}
}

func TestConfigJSONRoundTrips(t *testing.T) {
	cfg := NewBuilder(Defaults()).With(IncrementalLayer()).Build()
	raw, err := cfg.JSON()
	if err != nil {
		t.Fatalf("JSON: %v", err)
	}
	if !strings.Contains(string(raw), BuildInfoFileName) {
		t.Fatalf("serialized options missing build-info filename: %s", raw)
	}
}
