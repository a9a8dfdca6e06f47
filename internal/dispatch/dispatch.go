// Package dispatch routes a decoded request to its compilation strategy.
//
// Every strategy follows the same pipeline: fold options, populate the
// per-request caches from the payload, build a host adapter bound to a
// write sink, invoke the engine, then shape the response. The strategies
// differ only in cache population, option layers and the sink (plain
// collector vs bundle assembler); transpile paths bypass the adapter and
// use the engine's single-file entrypoint.
//
// Errors returned from Handle are contract violations (duplicate cache
// inserts, skipped checked emits, unresolvable root names); the worker
// aborts on them. User-facing problems travel in the response's
// diagnostics list instead.
package dispatch

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"compile-host/internal/bundler"
	"compile-host/internal/diagnostics"
	"compile-host/internal/engine"
	"compile-host/internal/host"
	"compile-host/internal/options"
	"compile-host/internal/resolve"
	"compile-host/internal/source"
	"compile-host/internal/wire"
)

// ErrEmitSkipped reports the checked-emit invariant: the engine skipped
// emission although the filtered diagnostics list was empty.
var ErrEmitSkipped = errors.New("dispatch: emit skipped with no diagnostics")

// Deps are the per-process collaborators shared by all strategies.
type Deps struct {
	Engine engine.Engine
	Assets source.AssetFetcher
	Log    *zap.Logger
}

// Handler dispatches requests. One handler serves one process; each Handle
// call builds fresh caches so nothing leaks across requests.
type Handler struct {
	deps Deps
}

// NewHandler returns a handler over the given collaborators. Log may be
// nil.
func NewHandler(deps Deps) *Handler {
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	return &Handler{deps: deps}
}

// Handle runs one request to completion and returns its response.
func (h *Handler) Handle(req wire.Request) (*wire.Response, error) {
	h.deps.Log.Info("handling request", zap.Stringer("kind", req.Kind()))
	resp, err := h.dispatch(req)
	if err != nil {
		return nil, err
	}
	// An empty diagnostics list is the caller's success signal; it must
	// serialize as an array, never null.
	if resp.Diagnostics == nil {
		resp.Diagnostics = []wire.Diagnostic{}
	}
	return resp, nil
}

func (h *Handler) dispatch(req wire.Request) (*wire.Response, error) {
	switch r := req.(type) {
	case *wire.CompileRequest:
		return h.compile(r)
	case *wire.TranspileRequest:
		return h.transpile(r)
	case *wire.BundleRequest:
		return h.bundle(r)
	case *wire.RuntimeCompileRequest:
		return h.runtimeCompile(r)
	case *wire.RuntimeBundleRequest:
		return h.runtimeBundle(r)
	case *wire.RuntimeTranspileRequest:
		return h.runtimeTranspile(r)
	default:
		// wire.Decode only produces the six types above.
		return nil, fmt.Errorf("dispatch: unhandled request kind %v", req.Kind())
	}
}

// configure folds the option layers for a checked strategy. It returns a
// short-circuit response when the project config fails to parse, and the
// dropped-option warning (if any) for the caller to carry in its response.
func configure(base options.Builder, configText, configPath string) (options.Config, []wire.Diagnostic, *wire.Response) {
	var warnings []wire.Diagnostic
	if configText != "" {
		layer, dropped, err := options.ParseConfigText(configText, configPath)
		if err != nil {
			return options.Config{}, nil, &wire.Response{
				Diagnostics: []wire.Diagnostic{diagnostics.ConfigParseError(err, configPath)},
			}
		}
		if warn, ok := diagnostics.DroppedOptions(dropped, configPath); ok {
			warnings = append(warnings, warn)
		}
		base = base.With(layer)
	}
	return base.Build(), warnings, nil
}

func (h *Handler) compile(r *wire.CompileRequest) (*wire.Response, error) {
	start := time.Now()
	cfg, warnings, short := configure(
		options.NewBuilder(options.Defaults()).With(options.IncrementalLayer()),
		r.ConfigText, r.ConfigPath,
	)
	if short != nil {
		return short, nil
	}

	store, cache, err := populateFileMap(h.deps.Assets, r.SourceFileMap)
	if err != nil {
		return nil, err
	}
	populated := time.Now()

	sink := host.NewCollector()
	adapter := host.NewAdapter(host.Params{
		Store:     store,
		Cache:     cache,
		Config:    cfg,
		Sink:      sink,
		Target:    host.ParseTarget(r.Target),
		BuildInfo: r.BuildInfo,
		Log:       h.deps.Log,
	})
	adapter.BindParser(h.deps.Engine)

	program, err := h.deps.Engine.NewProgram(r.RootNames, adapter)
	if err != nil {
		return nil, fmt.Errorf("dispatch: build program: %w", err)
	}
	diags := diagnostics.Filter(program.Diagnostics())
	checked := time.Now()
	if len(diags) > 0 {
		return &wire.Response{
			Diagnostics: append(warnings, diagnostics.ToWire(diags)...),
		}, nil
	}

	res, err := program.Emit()
	if err != nil {
		return nil, fmt.Errorf("dispatch: emit: %w", err)
	}
	emitDiags := diagnostics.Filter(res.Diagnostics)
	if res.Skipped && len(emitDiags) == 0 {
		return nil, ErrEmitSkipped
	}

	buildInfo, _ := sink.Take(options.BuildInfoFileName)
	resp := &wire.Response{
		EmitMap:     emitEntries(sink.Files()),
		BuildInfo:   buildInfo,
		Diagnostics: append(warnings, diagnostics.ToWire(emitDiags)...),
		Stats:       stats(start, populated, checked, store.Len(), len(sink.Files())),
	}
	h.deps.Log.Info("compile done",
		zap.Int("files", store.Len()),
		zap.Int("emitted", len(resp.EmitMap)),
		zap.Duration("total", time.Since(start)))
	return resp, nil
}

func (h *Handler) bundle(r *wire.BundleRequest) (*wire.Response, error) {
	start := time.Now()
	cfg, warnings, short := configure(
		options.NewBuilder(options.Defaults()).With(options.BundleLayer()),
		r.ConfigText, r.ConfigPath,
	)
	if short != nil {
		return short, nil
	}

	store, cache, err := populateFileMap(h.deps.Assets, r.SourceFileMap)
	if err != nil {
		return nil, err
	}
	populated := time.Now()

	root := r.RootNames[0]
	out, diags, checked, err := h.assembleBundle(cfg, store, cache, root, host.ParseTarget(r.Target))
	if err != nil {
		return nil, err
	}
	if diags != nil {
		return &wire.Response{Diagnostics: append(warnings, diags...)}, nil
	}
	return &wire.Response{
		BundleOutput: out,
		Diagnostics:  warnings,
		Stats:        stats(start, populated, checked, store.Len(), 1),
	}, nil
}

// assembleBundle runs the checked build + single-file emit + assembly
// shared by Bundle and RuntimeBundle. A non-nil diags return means the
// request stops with those diagnostics instead of producing output.
func (h *Handler) assembleBundle(cfg options.Config, store *source.Store, cache *resolve.Cache, root string, target host.Target) (string, []wire.Diagnostic, time.Time, error) {
	asm := bundler.NewAssembler()
	adapter := host.NewAdapter(host.Params{
		Store:  store,
		Cache:  cache,
		Config: cfg,
		Sink:   asm,
		Target: target,
		Log:    h.deps.Log,
	})
	adapter.BindParser(h.deps.Engine)

	program, err := h.deps.Engine.NewProgram([]string{root}, adapter)
	if err != nil {
		return "", nil, time.Time{}, fmt.Errorf("dispatch: build program: %w", err)
	}
	diags := diagnostics.Filter(program.Diagnostics())
	checked := time.Now()
	if len(diags) > 0 {
		return "", diagnostics.ToWire(diags), checked, nil
	}

	res, err := program.Emit()
	if err != nil {
		return "", nil, checked, fmt.Errorf("dispatch: emit: %w", err)
	}
	emitDiags := diagnostics.Filter(res.Diagnostics)
	if len(emitDiags) > 0 {
		return "", diagnostics.ToWire(emitDiags), checked, nil
	}
	if res.Skipped {
		return "", nil, checked, ErrEmitSkipped
	}

	exports, err := program.ModuleExports(root)
	if err != nil {
		return "", nil, checked, fmt.Errorf("dispatch: module exports: %w", err)
	}
	legacy := isLegacyTarget(cfg.String("target"))
	out, err := asm.Assemble(root, exports, legacy)
	if err != nil {
		return "", nil, checked, fmt.Errorf("dispatch: %w", err)
	}
	return out, nil, checked, nil
}

func (h *Handler) transpile(r *wire.TranspileRequest) (*wire.Response, error) {
	start := time.Now()
	cfg, warnings, short := configure(
		options.NewBuilder(options.Defaults()).With(transpileLayer()),
		r.ConfigText, r.ConfigPath,
	)
	if short != nil {
		return short, nil
	}

	resp := &wire.Response{Diagnostics: warnings}
	for _, name := range sortedKeys(r.Sources) {
		res, err := h.deps.Engine.Transpile(name, r.Sources[name], cfg)
		if err != nil {
			return nil, fmt.Errorf("dispatch: transpile %s: %w", name, err)
		}
		// Transpile-only never blocks on diagnostics; output and problems
		// travel together.
		resp.Diagnostics = append(resp.Diagnostics, diagnostics.ToWire(diagnostics.Filter(res.Diagnostics))...)
		resp.EmitMap = append(resp.EmitMap, wire.EmitEntry{
			Filename:       emitName(name),
			OriginFilename: name,
			Contents:       res.Source,
		})
	}
	resp.Stats = stats(start, start, start, len(r.Sources), len(resp.EmitMap))
	return resp, nil
}

func (h *Handler) runtimeTranspile(r *wire.RuntimeTranspileRequest) (*wire.Response, error) {
	cfg, warnings, err := runtimeConfig(options.NewBuilder(options.Defaults()).With(runtimeTranspileLayer()), r.Options)
	if err != nil {
		return nil, err
	}

	resp := &wire.Response{
		Transpiled:  make(map[string]wire.TranspiledSource, len(r.Sources)),
		Diagnostics: warnings,
	}
	for _, name := range sortedKeys(r.Sources) {
		res, terr := h.deps.Engine.Transpile(name, r.Sources[name], cfg)
		if terr != nil {
			return nil, fmt.Errorf("dispatch: transpile %s: %w", name, terr)
		}
		resp.Diagnostics = append(resp.Diagnostics, diagnostics.ToWire(diagnostics.Filter(res.Diagnostics))...)
		resp.Transpiled[name] = wire.TranspiledSource{Source: res.Source, Map: res.Map}
	}
	return resp, nil
}

func (h *Handler) runtimeCompile(r *wire.RuntimeCompileRequest) (*wire.Response, error) {
	start := time.Now()
	cfg, warnings, err := runtimeConfig(options.NewBuilder(options.Defaults()).With(options.IncrementalLayer()), r.Options)
	if err != nil {
		return nil, err
	}

	store, cache, rootURL, err := populateRuntime(h.deps.Assets, r.RootName, r.Sources, r.SourceFileMap)
	if err != nil {
		return nil, err
	}
	populated := time.Now()

	sink := host.NewCollector()
	adapter := host.NewAdapter(host.Params{
		Store:  store,
		Cache:  cache,
		Config: cfg,
		Sink:   sink,
		Target: host.ParseTarget(r.Target),
		Log:    h.deps.Log,
	})
	adapter.BindParser(h.deps.Engine)

	program, err := h.deps.Engine.NewProgram([]string{rootURL}, adapter)
	if err != nil {
		return nil, fmt.Errorf("dispatch: build program: %w", err)
	}
	diags := diagnostics.Filter(program.Diagnostics())
	checked := time.Now()
	if len(diags) > 0 {
		return &wire.Response{Diagnostics: append(warnings, diagnostics.ToWire(diags)...)}, nil
	}

	res, err := program.Emit()
	if err != nil {
		return nil, fmt.Errorf("dispatch: emit: %w", err)
	}
	emitDiags := diagnostics.Filter(res.Diagnostics)
	if res.Skipped && len(emitDiags) == 0 {
		return nil, ErrEmitSkipped
	}

	buildInfo, _ := sink.Take(options.BuildInfoFileName)
	return &wire.Response{
		EmitMap:     emitEntries(sink.Files()),
		BuildInfo:   buildInfo,
		Diagnostics: append(warnings, diagnostics.ToWire(emitDiags)...),
		Stats:       stats(start, populated, checked, store.Len(), len(sink.Files())),
	}, nil
}

func (h *Handler) runtimeBundle(r *wire.RuntimeBundleRequest) (*wire.Response, error) {
	start := time.Now()
	cfg, warnings, err := runtimeConfig(options.NewBuilder(options.Defaults()).With(options.BundleLayer()), r.Options)
	if err != nil {
		return nil, err
	}

	store, cache, rootURL, err := populateRuntime(h.deps.Assets, r.RootName, r.Sources, r.SourceFileMap)
	if err != nil {
		return nil, err
	}
	populated := time.Now()

	out, diags, checked, err := h.assembleBundle(cfg, store, cache, rootURL, host.ParseTarget(r.Target))
	if err != nil {
		return nil, err
	}
	if diags != nil {
		return &wire.Response{Diagnostics: append(warnings, diags...)}, nil
	}
	return &wire.Response{
		BundleOutput: out,
		Diagnostics:  warnings,
		Stats:        stats(start, populated, checked, store.Len(), 1),
	}, nil
}

// runtimeConfig folds caller-supplied serialized overrides on top of the
// strategy base, with the same deny-list treatment as project config.
func runtimeConfig(base options.Builder, overrides string) (options.Config, []wire.Diagnostic, error) {
	layer, dropped, err := options.ParseRaw(overrides)
	if err != nil {
		return options.Config{}, nil, fmt.Errorf("dispatch: %w", err)
	}
	var warnings []wire.Diagnostic
	if warn, ok := diagnostics.DroppedOptions(dropped, ""); ok {
		warnings = append(warnings, warn)
	}
	return base.With(layer).Build(), warnings, nil
}

func transpileLayer() options.Layer {
	return options.Layer{
		"inlineSourceMap": true,
		"sourceMap":       false,
		"incremental":     false,
		"isolatedModules": true,
	}
}

func runtimeTranspileLayer() options.Layer {
	return options.Layer{
		"sourceMap":       true,
		"incremental":     false,
		"isolatedModules": true,
	}
}

func isLegacyTarget(target string) bool {
	return target == "es3" || target == "es5"
}

// emitName maps a transpiled source name to its output filename.
func emitName(name string) string {
	for _, ext := range []string{".tsx", ".ts", ".jsx"} {
		if strings.HasSuffix(name, ext) {
			return strings.TrimSuffix(name, ext) + ".js"
		}
	}
	return name + ".js"
}

func emitEntries(files []host.Emitted) []wire.EmitEntry {
	out := make([]wire.EmitEntry, 0, len(files))
	for _, f := range files {
		origin := ""
		if len(f.SourceURLs) > 0 {
			origin = f.SourceURLs[0]
		}
		out = append(out, wire.EmitEntry{
			Filename:       f.Filename,
			OriginFilename: origin,
			Contents:       string(f.Data),
		})
	}
	return out
}

func stats(start, populated, checked time.Time, files, emitted int) *wire.Stats {
	now := time.Now()
	ms := func(d time.Duration) float64 { return float64(d) / float64(time.Millisecond) }
	return &wire.Stats{
		PopulateMs: ms(populated.Sub(start)),
		CheckMs:    ms(checked.Sub(populated)),
		EmitMs:     ms(now.Sub(checked)),
		TotalMs:    ms(now.Sub(start)),
		Files:      files,
		Emitted:    emitted,
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
