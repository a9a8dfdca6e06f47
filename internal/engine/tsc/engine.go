package tsc

import (
	"encoding/json"
	"errors"
	"fmt"

	"compile-host/internal/engine"
	"compile-host/internal/media"
	"compile-host/internal/options"
)

// Engine adapts the held node process to the engine interfaces. Exactly one
// operation runs at a time; the runner serializes them.
type Engine struct {
	r *Runner
}

var _ engine.Engine = (*Engine)(nil)

// New wraps a started runner.
func New(r *Runner) *Engine { return &Engine{r: r} }

// wireDiag mirrors the harness's diagnostic shape.
type wireDiag struct {
	Code     int    `json:"code"`
	Category int    `json:"category"`
	Message  string `json:"message"`
	FileName string `json:"fileName,omitempty"`
	Line     int    `json:"line,omitempty"`
	Column   int    `json:"column,omitempty"`
}

func fromWireDiags(in []wireDiag) []engine.Diagnostic {
	out := make([]engine.Diagnostic, 0, len(in))
	for _, d := range in {
		out = append(out, engine.Diagnostic{
			Code:     d.Code,
			Category: engine.Category(d.Category),
			Message:  d.Message,
			FileName: d.FileName,
			Line:     d.Line,
			Column:   d.Column,
		})
	}
	return out
}

// Parse hands one module's text to the engine, which keeps the syntax tree
// on its side of the pipe. The returned handle is the engine's registry key
// and round-trips verbatim through SourceFileFor callbacks.
func (e *Engine) Parse(url, sourceCode string, mt media.Type, version string) (*engine.ParsedSource, error) {
	var res struct {
		Handle string `json:"handle"`
	}
	err := e.r.Do("parse", map[string]any{
		"url":       url,
		"source":    sourceCode,
		"mediaType": mt.String(),
		"version":   version,
	}, &res)
	if err != nil {
		return nil, err
	}
	return &engine.ParsedSource{URL: url, Version: version, MediaType: mt, Handle: res.Handle}, nil
}

// NewProgram builds a checked program over the given roots. Check
// diagnostics are computed during construction; host callbacks issued by
// the engine while it loads the graph are serviced inline.
func (e *Engine) NewProgram(rootNames []string, host engine.Host) (engine.Program, error) {
	cfg, err := host.Settings().JSON()
	if err != nil {
		return nil, fmt.Errorf("tsc: serialize options: %w", err)
	}
	e.r.bindCallback(e.hostHandler(host))
	var res struct {
		Program     string     `json:"program"`
		Diagnostics []wireDiag `json:"diagnostics"`
	}
	err = e.r.Do("createProgram", map[string]any{
		"rootNames": rootNames,
		"options":   json.RawMessage(cfg),
	}, &res)
	if err != nil {
		return nil, err
	}
	return &program{e: e, id: res.Program, host: host, diags: fromWireDiags(res.Diagnostics)}, nil
}

// Transpile converts one file without building a program. No host
// callbacks are involved.
func (e *Engine) Transpile(filename, sourceCode string, cfg options.Config) (engine.TranspileResult, error) {
	raw, err := cfg.JSON()
	if err != nil {
		return engine.TranspileResult{}, fmt.Errorf("tsc: serialize options: %w", err)
	}
	var res struct {
		Source      string     `json:"source"`
		Map         string     `json:"map"`
		Diagnostics []wireDiag `json:"diagnostics"`
	}
	err = e.r.Do("transpile", map[string]any{
		"filename": filename,
		"source":   sourceCode,
		"options":  json.RawMessage(raw),
	}, &res)
	if err != nil {
		return engine.TranspileResult{}, err
	}
	return engine.TranspileResult{
		Source:      res.Source,
		Map:         res.Map,
		Diagnostics: fromWireDiags(res.Diagnostics),
	}, nil
}

// hostHandler routes harness callbacks to the bound host. A handler error
// becomes a thrown exception on the node side.
func (e *Engine) hostHandler(host engine.Host) callbackHandler {
	return func(call string, args json.RawMessage) (any, error) {
		switch call {
		case "getSourceFile":
			var a struct {
				URL string `json:"url"`
			}
			if err := json.Unmarshal(args, &a); err != nil {
				return nil, err
			}
			ps, err := host.SourceFileFor(a.URL)
			if err != nil {
				return nil, err
			}
			if ps == nil {
				return map[string]any{"found": false}, nil
			}
			handle, ok := ps.Handle.(string)
			if !ok {
				return nil, fmt.Errorf("tsc: source %s has no engine handle", a.URL)
			}
			return map[string]any{
				"found":     true,
				"handle":    handle,
				"mediaType": ps.MediaType.String(),
				"version":   ps.Version,
			}, nil

		case "resolveSpecifiers":
			var a struct {
				Specifiers []string `json:"specifiers"`
				Containing string   `json:"containing"`
			}
			if err := json.Unmarshal(args, &a); err != nil {
				return nil, err
			}
			resolved := host.ResolveSpecifiers(a.Specifiers, a.Containing)
			out := make([]map[string]any, len(resolved))
			for i, m := range resolved {
				out[i] = map[string]any{
					"url":       m.URL,
					"mediaType": m.MediaType.String(),
					"found":     m.Found,
				}
			}
			return out, nil

		case "defaultLib":
			return map[string]any{"name": host.DefaultLibName()}, nil

		case "writeFile":
			var a struct {
				Filename   string   `json:"filename"`
				Data       string   `json:"data"`
				SourceURLs []string `json:"sourceUrls"`
			}
			if err := json.Unmarshal(args, &a); err != nil {
				return nil, err
			}
			if err := host.WriteEmittedFile(a.Filename, []byte(a.Data), a.SourceURLs); err != nil {
				return nil, err
			}
			return map[string]any{}, nil

		case "buildInfo":
			blob := host.PreviousBuildInfo()
			return map[string]any{
				"found": len(blob) > 0,
				"data":  string(blob),
			}, nil

		case "readFile":
			var a struct {
				Path string `json:"path"`
			}
			if err := json.Unmarshal(args, &a); err != nil {
				return nil, err
			}
			text, err := host.ReadFile(a.Path)
			if err != nil {
				return nil, err
			}
			return map[string]any{"text": text}, nil

		default:
			return nil, fmt.Errorf("%w: %s", engine.ErrUnsupportedCallback, call)
		}
	}
}

type program struct {
	e     *Engine
	id    string
	host  engine.Host
	diags []engine.Diagnostic
}

func (p *program) Diagnostics() []engine.Diagnostic { return p.diags }

func (p *program) Emit() (engine.EmitResult, error) {
	p.e.r.bindCallback(p.e.hostHandler(p.host))
	var res struct {
		Skipped     bool       `json:"skipped"`
		Diagnostics []wireDiag `json:"diagnostics"`
	}
	err := p.e.r.Do("emit", map[string]any{"program": p.id}, &res)
	if err != nil {
		return engine.EmitResult{}, err
	}
	return engine.EmitResult{Skipped: res.Skipped, Diagnostics: fromWireDiags(res.Diagnostics)}, nil
}

func (p *program) ModuleExports(url string) ([]engine.ExportedSymbol, error) {
	p.e.r.bindCallback(p.e.hostHandler(p.host))
	var res []struct {
		Name  string `json:"name"`
		Flags uint32 `json:"flags"`
	}
	err := p.e.r.Do("moduleExports", map[string]any{"program": p.id, "url": url}, &res)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, errors.New("tsc: module exports unavailable for " + url)
	}
	out := make([]engine.ExportedSymbol, 0, len(res))
	for _, s := range res {
		out = append(out, engine.ExportedSymbol{Name: s.Name, Flags: engine.SymbolFlags(s.Flags)})
	}
	return out, nil
}
