// Package resolve memoizes (containing file, raw specifier) → resolved URL
// pairs for one compilation request.
//
// The cache is populated in bulk from the request payload's import,
// reference and lib-directive edges before the engine runs, then consulted
// read-only by the host adapter's resolution callback. Entries never change
// once written within a request. Absence is not an error: it signals "let
// the engine report the module as missing".
package resolve

// NoContaining is the sentinel bucket for specifiers with no containing
// file (root names injected by the dispatcher).
const NoContaining = ""

// Cache is the two-level specifier resolution map: outer keyed by the
// containing file's URL, inner by the raw specifier text.
type Cache struct {
	byContaining map[string]map[string]string
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{byContaining: make(map[string]map[string]string)}
}

// Record inserts one resolution. containing defaults to the NoContaining
// bucket when empty.
func (c *Cache) Record(resolved, specifier, containing string) {
	inner, ok := c.byContaining[containing]
	if !ok {
		inner = make(map[string]string)
		c.byContaining[containing] = inner
	}
	inner[specifier] = resolved
}

// Resolve looks up a specifier in the containing file's bucket. The second
// result is false when the pair was never recorded.
func (c *Cache) Resolve(specifier, containing string) (string, bool) {
	inner, ok := c.byContaining[containing]
	if !ok {
		return "", false
	}
	url, ok := inner[specifier]
	return url, ok
}

// Len reports the total number of recorded pairs. Used in logs only.
func (c *Cache) Len() int {
	n := 0
	for _, inner := range c.byContaining {
		n += len(inner)
	}
	return n
}
