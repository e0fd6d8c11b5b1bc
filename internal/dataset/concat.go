package dataset

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Concatenated presents several sources as one index space in source order.
type Concatenated struct {
	sources []Source
	// ends[i] is the exclusive global end index of sources[i].
	ends []int
}

// Concat joins sources. Lengths are captured at construction.
func Concat(sources ...Source) *Concatenated {
	c := &Concatenated{
		sources: append([]Source(nil), sources...),
		ends:    make([]int, len(sources)),
	}
	total := 0
	for i, src := range sources {
		total += src.Len()
		c.ends[i] = total
	}
	return c
}

// Name joins the source names with '-'.
func (c *Concatenated) Name() string {
	names := make([]string, len(c.sources))
	for i, src := range c.sources {
		names[i] = src.Name()
	}
	return strings.Join(names, "-")
}

// Len returns the summed length of every source.
func (c *Concatenated) Len() int {
	if len(c.ends) == 0 {
		return 0
	}
	return c.ends[len(c.ends)-1]
}

// Sources returns the underlying sources in order.
func (c *Concatenated) Sources() []Source {
	return append([]Source(nil), c.sources...)
}

// Locate maps a global index to a source position and its local index.
func (c *Concatenated) Locate(i int) (int, int, error) {
	if i < 0 || i >= c.Len() {
		return 0, 0, fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, i, c.Len())
	}
	src := sort.Search(len(c.ends), func(k int) bool { return c.ends[k] > i })
	local := i
	if src > 0 {
		local -= c.ends[src-1]
	}
	return src, local, nil
}

// Get returns the example at global index i.
func (c *Concatenated) Get(ctx context.Context, i int) (Example, error) {
	src, local, err := c.Locate(i)
	if err != nil {
		return Example{}, err
	}
	return c.sources[src].Get(ctx, local)
}
