package source

import (
	"errors"
	"fmt"
	"testing"

	"compile-host/internal/engine"
	"compile-host/internal/media"
)

type countingParser struct{ calls int }

func (p *countingParser) Parse(url, sourceCode string, mt media.Type, version string) (*engine.ParsedSource, error) {
	p.calls++
	return &engine.ParsedSource{URL: url, Version: version, MediaType: mt, Handle: sourceCode}, nil
}

type countingFetcher struct {
	fetched []string
}

func (f *countingFetcher) Fetch(name string) ([]byte, error) {
	f.fetched = append(f.fetched, name)
	return []byte("declare const x: number;"), nil
}

func TestInsertDuplicateFails(t *testing.T) {
	s := NewStore(nil)
	if _, err := s.Insert(&File{URL: "file:///a.ts"}); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	_, err := s.Insert(&File{URL: "file:///a.ts"})
	if !errors.Is(err, ErrDuplicateEntry) {
		t.Fatalf("duplicate insert err = %v, want ErrDuplicateEntry", err)
	}
}

func TestInsertDistinctBothRetrievable(t *testing.T) {
	s := NewStore(nil)
	for _, u := range []string{"file:///a.ts", "file:///b.ts"} {
		if _, err := s.Insert(&File{URL: u}); err != nil {
			t.Fatalf("insert %s: %v", u, err)
		}
	}
	for _, u := range []string{"file:///a.ts", "file:///b.ts"} {
		if f, ok := s.Lookup(u); !ok || f.URL != u {
			t.Fatalf("lookup %s failed", u)
		}
	}
	if s.Len() != 2 {
		t.Fatalf("Len = %d, want 2", s.Len())
	}
}

func TestLookupMissIsNotAnError(t *testing.T) {
	s := NewStore(nil)
	if f, ok := s.Lookup("file:///nope.ts"); ok || f != nil {
		t.Fatalf("expected miss, got %v", f)
	}
}

func TestEnsureParsedIsOneWay(t *testing.T) {
	p := &countingParser{}
	f := &File{URL: "file:///a.ts", MediaType: media.TypeScript, Version: "v1", SourceCode: "const a = 1;"}

	ps, err := f.EnsureParsed(p)
	if err != nil {
		t.Fatalf("EnsureParsed: %v", err)
	}
	if ps.Version != "v1" {
		t.Fatalf("parsed form not tagged with version: %q", ps.Version)
	}
	if f.SourceCode != "" {
		t.Fatalf("raw text kept after parse")
	}

	again, err := f.EnsureParsed(p)
	if err != nil || again != ps {
		t.Fatalf("second EnsureParsed not memoized")
	}
	if p.calls != 1 {
		t.Fatalf("parser invoked %d times, want 1", p.calls)
	}
}

func TestResolveAssetFetchesOnce(t *testing.T) {
	fetcher := &countingFetcher{}
	s := NewStore(fetcher)

	a, err := s.ResolveAsset("esnext")
	if err != nil {
		t.Fatalf("ResolveAsset: %v", err)
	}
	if a.URL != "asset:///lib.esnext.d.ts" {
		t.Fatalf("asset url = %q", a.URL)
	}
	if a.MediaType != media.Dts {
		t.Fatalf("asset media type = %v", a.MediaType)
	}

	b, err := s.ResolveAsset("lib.esnext.d.ts")
	if err != nil || b != a {
		t.Fatalf("second resolve returned new entry (err=%v)", err)
	}
	if len(fetcher.fetched) != 1 {
		t.Fatalf("fetched %d times, want 1: %v", len(fetcher.fetched), fetcher.fetched)
	}
}

func TestNormalizeAssetName(t *testing.T) {
	cases := []struct{ in, want string }{
		{"esnext", "lib.esnext.d.ts"},
		{"lib.dom.d.ts", "lib.dom.d.ts"},
		{"asset:///lib.dom.d.ts", "lib.dom.d.ts"},
		{"host.worker", "lib.host.worker.d.ts"},
		{"host", "lib.host.window.d.ts"},
	}
	for _, c := range cases {
		if got := NormalizeAssetName(c.in); got != c.want {
			t.Fatalf("NormalizeAssetName(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func ExampleStore_Insert() {
	s := NewStore(nil)
	_, _ = s.Insert(&File{URL: "file:///main.ts", MediaType: media.TypeScript})
	_, err := s.Insert(&File{URL: "file:///main.ts"})
	fmt.Println(errors.Is(err, ErrDuplicateEntry))
	// Output: true
}
