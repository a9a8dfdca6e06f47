package host

import (
	"errors"
	"testing"

	"compile-host/internal/engine"
	"compile-host/internal/media"
	"compile-host/internal/options"
	"compile-host/internal/resolve"
	"compile-host/internal/source"
)

type countingParser struct{ calls int }

func (p *countingParser) Parse(url, sourceCode string, mt media.Type, version string) (*engine.ParsedSource, error) {
	p.calls++
	return &engine.ParsedSource{URL: url, Version: version, MediaType: mt, Handle: sourceCode}, nil
}

type failingParser struct{}

func (failingParser) Parse(url, sourceCode string, mt media.Type, version string) (*engine.ParsedSource, error) {
	return nil, errors.New("boom")
}

func newTestAdapter(t *testing.T, p engine.Parser) (*Adapter, *source.Store, *resolve.Cache, *Collector) {
	t.Helper()
	store := source.NewStore(nil)
	cache := resolve.NewCache()
	sink := NewCollector()
	a := NewAdapter(Params{
		Store:  store,
		Cache:  cache,
		Config: options.NewBuilder(options.Defaults()).Build(),
		Sink:   sink,
		Target: TargetMain,
	})
	a.BindParser(p)
	return a, store, cache, sink
}

func TestSourceFileForParsesOnceAndDropsRaw(t *testing.T) {
	p := &countingParser{}
	a, store, _, _ := newTestAdapter(t, p)
	if _, err := store.Insert(&source.File{
		URL: "file:///a.ts", MediaType: media.TypeScript, Version: "v1", SourceCode: "const a = 1;",
	}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	ps, err := a.SourceFileFor("file:///a.ts")
	if err != nil || ps == nil {
		t.Fatalf("SourceFileFor: %v, %v", ps, err)
	}
	if ps.Version != "v1" {
		t.Fatalf("parsed form missing version tag: %q", ps.Version)
	}

	if _, err := a.SourceFileFor("file:///a.ts"); err != nil {
		t.Fatalf("second SourceFileFor: %v", err)
	}
	if p.calls != 1 {
		t.Fatalf("parser called %d times, want 1", p.calls)
	}
	f, _ := store.Lookup("file:///a.ts")
	if f.SourceCode != "" {
		t.Fatalf("raw text survived parse")
	}
}

func TestSourceFileForUnknownModule(t *testing.T) {
	a, _, _, _ := newTestAdapter(t, &countingParser{})
	ps, err := a.SourceFileFor("file:///missing.ts")
	if err != nil || ps != nil {
		t.Fatalf("miss should be (nil, nil), got %v, %v", ps, err)
	}
}

func TestSourceFileForParseErrorRouting(t *testing.T) {
	a, store, _, _ := newTestAdapter(t, failingParser{})
	_, _ = store.Insert(&source.File{URL: "file:///bad.ts", SourceCode: "@@@"})

	// Without a callback the failure aborts the request.
	if _, err := a.SourceFileFor("file:///bad.ts"); err == nil {
		t.Fatalf("expected parse failure to propagate")
	}

	// With a callback installed the error is routed there instead.
	var routed error
	a.onParseError = func(err error) { routed = err }
	ps, err := a.SourceFileFor("file:///bad.ts")
	if err != nil || ps != nil {
		t.Fatalf("callback path should swallow: %v, %v", ps, err)
	}
	if routed == nil {
		t.Fatalf("parse error not routed to callback")
	}
}

func TestResolveSpecifiersOrderAndCount(t *testing.T) {
	a, store, cache, _ := newTestAdapter(t, &countingParser{})
	_, _ = store.Insert(&source.File{URL: "file:///a/b.ts", MediaType: media.TypeScript})
	cache.Record("file:///a/b.ts", "./b.ts", "file:///a/main.ts")
	cache.Record("file:///a/c.js", "./c.js", "file:///a/main.ts")

	got := a.ResolveSpecifiers([]string{"./b.ts", "./nope.ts", "./c.js"}, "file:///a/main.ts")
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if !got[0].Found || got[0].URL != "file:///a/b.ts" || got[0].MediaType != media.TypeScript {
		t.Fatalf("entry 0 wrong: %+v", got[0])
	}
	if got[1].Found {
		t.Fatalf("entry 1 should be absent: %+v", got[1])
	}
	// Resolution recorded without a store entry falls back to URL-derived
	// media type.
	if !got[2].Found || got[2].MediaType != media.JavaScript {
		t.Fatalf("entry 2 wrong: %+v", got[2])
	}
}

func TestDefaultLibNameByTarget(t *testing.T) {
	cases := []struct {
		target Target
		want   string
	}{
		{TargetMain, "lib.host.window.d.ts"},
		{TargetRuntime, "lib.host.window.d.ts"},
		{TargetWorker, "lib.host.worker.d.ts"},
	}
	for _, c := range cases {
		a := NewAdapter(Params{Store: source.NewStore(nil), Cache: resolve.NewCache(), Target: c.target})
		if got := a.DefaultLibName(); got != c.want {
			t.Fatalf("target %v lib = %q, want %q", c.target, got, c.want)
		}
	}
}

func TestWriteEmittedFileDelegates(t *testing.T) {
	a, _, _, sink := newTestAdapter(t, &countingParser{})
	if err := a.WriteEmittedFile("main.js", []byte("x"), []string{"file:///main.ts"}); err != nil {
		t.Fatalf("WriteEmittedFile: %v", err)
	}
	files := sink.Files()
	if len(files) != 1 || files[0].Filename != "main.js" {
		t.Fatalf("sink did not receive write: %+v", files)
	}
}

func TestReadFileIsUnsupported(t *testing.T) {
	a, _, _, _ := newTestAdapter(t, &countingParser{})
	if _, err := a.ReadFile("/etc/passwd"); !errors.Is(err, engine.ErrUnsupportedCallback) {
		t.Fatalf("ReadFile err = %v, want ErrUnsupportedCallback", err)
	}
}

func TestCollectorTake(t *testing.T) {
	c := NewCollector()
	_ = c.WriteFile("a.js", []byte("a"), nil)
	_ = c.WriteFile("cache:///tsbuildinfo.json", []byte("blob"), nil)
	_ = c.WriteFile("b.js", []byte("b"), nil)

	data, ok := c.Take("cache:///tsbuildinfo.json")
	if !ok || string(data) != "blob" {
		t.Fatalf("Take failed: %q, %v", data, ok)
	}
	files := c.Files()
	if len(files) != 2 || files[0].Filename != "a.js" || files[1].Filename != "b.js" {
		t.Fatalf("order broken after Take: %+v", files)
	}
}
