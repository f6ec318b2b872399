// Package filtergraph builds ffmpeg -filter_complex graphs from typed stages
// instead of string concatenation.
package filtergraph

import "strings"

// Filter is a single filter with its options, e.g. scale=50:50.
type Filter struct {
	Name string
	Args []string
}

func (f Filter) String() string {
	if len(f.Args) == 0 {
		return f.Name
	}
	return f.Name + "=" + strings.Join(f.Args, ":")
}

// Chain is a linear run of filters between labelled pads.
type Chain struct {
	Inputs  []string
	Filters []Filter
	Outputs []string
}

func (c Chain) String() string {
	var b strings.Builder
	for _, in := range c.Inputs {
		b.WriteString("[" + in + "]")
	}
	for i, f := range c.Filters {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(f.String())
	}
	for _, out := range c.Outputs {
		b.WriteString("[" + out + "]")
	}
	return b.String()
}

// Graph is an ordered list of chains.
type Graph struct {
	Chains []Chain
}

// Add appends a chain.
func (g *Graph) Add(c Chain) {
	g.Chains = append(g.Chains, c)
}

// String renders the graph in -filter_complex syntax.
func (g Graph) String() string {
	parts := make([]string, len(g.Chains))
	for i, c := range g.Chains {
		parts[i] = c.String()
	}
	return strings.Join(parts, ";")
}

// Output returns the last output label of the graph, or "".
func (g Graph) Output() string {
	if len(g.Chains) == 0 {
		return ""
	}
	outs := g.Chains[len(g.Chains)-1].Outputs
	if len(outs) == 0 {
		return ""
	}
	return outs[len(outs)-1]
}
