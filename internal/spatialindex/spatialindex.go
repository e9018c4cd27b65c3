// Package spatialindex pre-selects the filter rules relevant to a tile or
// feature by bounding-box intersection, so the per-tile transformer never
// evaluates expressions belonging to rules whose mask cannot possibly
// apply.
package spatialindex

import (
	"github.com/paulmach/orb"

	"mvtfilter/internal/filterdoc"
)

// Index holds a document's rules in source order and answers bound
// intersection queries against them. A linear scan over orb.Bound values
// is the defined selection strategy here, not a fallback: filter documents
// are expected to carry at most a few dozen rules, well under the point
// where an R-tree's construction cost would pay for itself.
type Index struct {
	rules []*filterdoc.Rule
}

// New builds an Index over a loaded filter document's rules.
func New(doc *filterdoc.Document) *Index {
	return &Index{rules: doc.Rules}
}

// Query returns, in document order, every rule whose mask bounding box
// intersects bound.
func (idx *Index) Query(bound orb.Bound) []*filterdoc.Rule {
	var out []*filterdoc.Rule
	for _, r := range idx.rules {
		if r.Bound.Intersects(bound) {
			out = append(out, r)
		}
	}
	return out
}

// Len reports the number of rules held by the index.
func (idx *Index) Len() int { return len(idx.rules) }
