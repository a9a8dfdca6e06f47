package host

// Emitted is one collected output file.
type Emitted struct {
	Filename   string
	Data       []byte
	SourceURLs []string
}

// Collector is the plain write sink: it keeps emitted files in the order
// the engine produced them. Bundling installs an assembler instead.
type Collector struct {
	files []Emitted
}

// NewCollector returns an empty collector.
func NewCollector() *Collector { return &Collector{} }

// WriteFile records one emitted output.
func (c *Collector) WriteFile(filename string, data []byte, sourceURLs []string) error {
	c.files = append(c.files, Emitted{Filename: filename, Data: data, SourceURLs: sourceURLs})
	return nil
}

// Files returns the collected outputs in emit order.
func (c *Collector) Files() []Emitted { return c.files }

// Take removes and returns the first file matching filename, if any.
// Used to pull the build-info sidecar out of the ordinary emit set.
func (c *Collector) Take(filename string) ([]byte, bool) {
	for i, f := range c.files {
		if f.Filename == filename {
			c.files = append(c.files[:i], c.files[i+1:]...)
			return f.Data, true
		}
	}
	return nil, false
}
