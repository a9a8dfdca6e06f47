package resolve

import "testing"

func TestRecordAndResolve(t *testing.T) {
	c := NewCache()
	c.Record("file:///a/b.ts", "./b.ts", "file:///a/main.ts")

	url, ok := c.Resolve("./b.ts", "file:///a/main.ts")
	if !ok || url != "file:///a/b.ts" {
		t.Fatalf("Resolve = %q, %v", url, ok)
	}
}

func TestResolveMissIsNotAnError(t *testing.T) {
	c := NewCache()
	c.Record("file:///a/b.ts", "./b.ts", "file:///a/main.ts")

	if _, ok := c.Resolve("./c.ts", "file:///a/main.ts"); ok {
		t.Fatalf("unexpected hit for unrecorded specifier")
	}
	if _, ok := c.Resolve("./b.ts", "file:///other.ts"); ok {
		t.Fatalf("unexpected hit for unrecorded containing file")
	}
}

func TestSentinelBucket(t *testing.T) {
	c := NewCache()
	c.Record("file:///main.ts", "main.ts", NoContaining)

	url, ok := c.Resolve("main.ts", "")
	if !ok || url != "file:///main.ts" {
		t.Fatalf("sentinel bucket lookup = %q, %v", url, ok)
	}
}

func TestSameSpecifierDifferentContaining(t *testing.T) {
	c := NewCache()
	c.Record("file:///a/util.ts", "./util.ts", "file:///a/x.ts")
	c.Record("file:///b/util.ts", "./util.ts", "file:///b/y.ts")

	ua, _ := c.Resolve("./util.ts", "file:///a/x.ts")
	ub, _ := c.Resolve("./util.ts", "file:///b/y.ts")
	if ua == ub {
		t.Fatalf("buckets collided: %q", ua)
	}
	if c.Len() != 2 {
		t.Fatalf("Len = %d, want 2", c.Len())
	}
}
