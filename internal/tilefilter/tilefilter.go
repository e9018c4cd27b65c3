// Package tilefilter implements the per-tile transformer: decompress,
// decode, select the rules whose mask intersects the tile, drop features
// and strip tags per those rules' compiled expressions, re-encode and
// recompress.
package tilefilter

import (
	"fmt"

	"mvtfilter/internal"
	"mvtfilter/internal/compressio"
	"mvtfilter/internal/filterdoc"
	"mvtfilter/internal/filterexpr"
	"mvtfilter/internal/spatialindex"
	"mvtfilter/internal/tilecoord"
	"mvtfilter/pkg/mvtcodec"
)

// Result is the outcome of transforming one tile.
type Result struct {
	// Data is the (possibly recompressed) tile payload to write, valid
	// only when Dropped is false.
	Data []byte
	// Dropped reports that every layer was emptied by filtering (or the
	// tile was empty to begin with): nothing should be written for it.
	Dropped bool
}

// Transformer applies a spatially-scoped filter document to tiles.
type Transformer struct {
	index       *spatialindex.Index
	compression compressio.Compression
}

// New builds a Transformer. index may be nil, meaning no filter document
// was loaded: every non-empty tile then passes through byte-for-byte,
// without being decompressed, decoded or recompressed.
func New(index *spatialindex.Index, compression compressio.Compression) *Transformer {
	return &Transformer{index: index, compression: compression}
}

// Transform runs one tile through the pipeline. compressed is the tile
// payload exactly as read from the source archive.
func (tr *Transformer) Transform(z, x, y int, compressed []byte) (*Result, error) {
	if len(compressed) == 0 {
		return &Result{Dropped: true}, nil
	}
	if tr.index == nil {
		return &Result{Data: compressed}, nil
	}

	raw, err := compressio.Decompress(compressed)
	if err != nil {
		return nil, internal.NewError(internal.ErrorCodeDecode,
			fmt.Sprintf("decompress tile %d/%d/%d", z, x, y), err)
	}
	if len(raw) == 0 {
		return &Result{Dropped: true}, nil
	}

	tile, err := mvtcodec.Decode(raw)
	if err != nil {
		return nil, internal.NewError(internal.ErrorCodeDecode,
			fmt.Sprintf("decode tile %d/%d/%d", z, x, y), err)
	}

	tileBound := tilecoord.Bound(uint32(z), uint32(x), uint32(y))
	candidates := tr.index.Query(tileBound)
	if len(candidates) == 0 {
		return &Result{Data: compressed}, nil
	}

	outLayers := make([]*mvtcodec.Layer, 0, len(tile.Layers))
	for _, layer := range tile.Layers {
		effective := effectiveFilters(candidates, layer.Name)
		if len(effective) == 0 {
			outLayers = append(outLayers, layer)
			continue
		}
		filtered := filterLayer(layer, effective, tileBound)
		if len(filtered.Features) > 0 {
			outLayers = append(outLayers, filtered)
		}
	}

	if len(outLayers) == 0 {
		return &Result{Dropped: true}, nil
	}

	encoded := mvtcodec.Encode(&mvtcodec.Tile{Layers: outLayers})
	out, err := compressio.Compress(encoded, tr.compression)
	if err != nil {
		return nil, internal.NewError(internal.ErrorCodeWrite,
			fmt.Sprintf("recompress tile %d/%d/%d", z, x, y), err)
	}
	return &Result{Data: out}, nil
}

type effectiveFilter struct {
	rule    *filterdoc.Rule
	feature *filterexpr.Node
	tag     *filterexpr.Node
}

// effectiveFilters resolves, for a given layer name, the per-layer filters
// of every candidate rule: an explicit entry for that layer name takes
// precedence over a "*" wildcard entry; a rule with neither contributes
// nothing for this layer.
func effectiveFilters(candidates []*filterdoc.Rule, layerName string) []effectiveFilter {
	var out []effectiveFilter
	for _, r := range candidates {
		lf, ok := r.Layers[layerName]
		if !ok {
			lf, ok = r.Layers["*"]
			if !ok {
				continue
			}
		}
		out = append(out, effectiveFilter{rule: r, feature: lf.Feature, tag: lf.Tag})
	}
	return out
}

