// Package enginetest provides a scriptable in-process engine for
// orchestrator tests. It honors the Host contract the way a real engine
// does — sources through SourceFileFor, output through WriteEmittedFile —
// so dispatcher tests exercise the full callback path without a compiler.
package enginetest

import (
	"fmt"
	"strings"

	"compile-host/internal/engine"
	"compile-host/internal/media"
	"compile-host/internal/options"
)

// EmitFile scripts one output the fake program writes during Emit.
type EmitFile struct {
	Filename   string
	Data       string
	SourceURLs []string
}

// Fake implements engine.Engine. Zero value behaves like a permissive
// engine: parse always succeeds, programs report no diagnostics, emit
// writes one ".js" per root carrying the root's source text.
type Fake struct {
	ParseErrs    map[string]error
	ProgramDiags []engine.Diagnostic
	EmitSkipped  bool
	EmitFiles    []EmitFile
	EmitDiags    []engine.Diagnostic
	Exports      map[string][]engine.ExportedSymbol
	// TranspileDiags are attached to every Transpile result; transpile
	// still produces output alongside them.
	TranspileDiags []engine.Diagnostic

	ParseCalls []string
	LastHost   engine.Host
}

var _ engine.Engine = (*Fake)(nil)

func (f *Fake) Parse(url, sourceCode string, mt media.Type, version string) (*engine.ParsedSource, error) {
	if err := f.ParseErrs[url]; err != nil {
		return nil, err
	}
	f.ParseCalls = append(f.ParseCalls, url)
	return &engine.ParsedSource{URL: url, Version: version, MediaType: mt, Handle: sourceCode}, nil
}

func (f *Fake) NewProgram(rootNames []string, host engine.Host) (engine.Program, error) {
	f.LastHost = host
	return &fakeProgram{f: f, roots: rootNames, host: host}, nil
}

func (f *Fake) Transpile(filename, sourceCode string, cfg options.Config) (engine.TranspileResult, error) {
	out := sourceCode
	if cfg.Bool("inlineSourceMap") {
		out += "\n//# sourceMappingURL=data:application/json;base64,e30="
	}
	return engine.TranspileResult{
		Source:      out,
		Map:         `{"version":3,"mappings":""}`,
		Diagnostics: f.TranspileDiags,
	}, nil
}

type fakeProgram struct {
	f     *Fake
	roots []string
	host  engine.Host
}

func (p *fakeProgram) Diagnostics() []engine.Diagnostic { return p.f.ProgramDiags }

func (p *fakeProgram) Emit() (engine.EmitResult, error) {
	if p.f.EmitSkipped {
		return engine.EmitResult{Skipped: true}, nil
	}
	files := p.f.EmitFiles
	if files == nil {
		for _, root := range p.roots {
			ps, err := p.host.SourceFileFor(root)
			if err != nil {
				return engine.EmitResult{}, err
			}
			if ps == nil {
				continue
			}
			text, _ := ps.Handle.(string)
			files = append(files, EmitFile{
				Filename:   EmitName(root),
				Data:       text,
				SourceURLs: []string{root},
			})
		}
	}
	for _, ef := range files {
		if err := p.host.WriteEmittedFile(ef.Filename, []byte(ef.Data), ef.SourceURLs); err != nil {
			return engine.EmitResult{}, err
		}
	}
	cfg := p.host.Settings()
	if cfg.Bool("incremental") {
		name := cfg.String("tsBuildInfoFile")
		blob := fmt.Sprintf(`{"fake":"buildinfo","had":%d}`, len(p.host.PreviousBuildInfo()))
		if err := p.host.WriteEmittedFile(name, []byte(blob), nil); err != nil {
			return engine.EmitResult{}, err
		}
	}
	return engine.EmitResult{Diagnostics: p.f.EmitDiags}, nil
}

func (p *fakeProgram) ModuleExports(url string) ([]engine.ExportedSymbol, error) {
	return p.f.Exports[url], nil
}

// EmitName maps a module URL to its default output filename.
func EmitName(url string) string {
	for _, ext := range []string{".tsx", ".ts", ".jsx"} {
		if strings.HasSuffix(url, ext) {
			return strings.TrimSuffix(url, ext) + ".js"
		}
	}
	return url + ".js"
}
