// Package filterdoc loads a filter document: a GeoJSON FeatureCollection
// whose features are spatial masks carrying, in their properties, the
// per-layer feature/tag expressions to apply wherever the mask intersects
// a tile or feature.
package filterdoc

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"mvtfilter/internal"
	"mvtfilter/internal/filterexpr"
)

// LayerFilter holds the compiled feature-drop and tag-strip expressions
// configured for one layer name within one Rule. Either may be nil, in
// which case that stage is a no-op for the layer.
type LayerFilter struct {
	Feature *filterexpr.Node
	Tag     *filterexpr.Node
}

// Rule is one compiled mask feature from the filter document: a spatial
// extent plus the set of per-layer filters that apply within it.
type Rule struct {
	ID          string
	Description string
	Mask        orb.Geometry
	Bound       orb.Bound
	Layers      map[string]*LayerFilter
}

// Document is the full compiled filter document, in source (mask) feature
// order — the order rule-evaluation invariants are defined against.
type Document struct {
	Rules []*Rule
}

// Load parses and compiles a filter document from GeoJSON bytes. All
// structural and expression-compile errors are returned before any rule
// is added, so a malformed document never partially loads.
func Load(data []byte) (*Document, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, internal.NewError(internal.ErrorCodeConfig, "parse filter document geojson", err)
	}
	doc := &Document{Rules: make([]*Rule, 0, len(fc.Features))}
	for i, f := range fc.Features {
		rule, err := compileRule(i, f)
		if err != nil {
			return nil, internal.NewError(internal.ErrorCodeConfig, fmt.Sprintf("rule %d", i), err)
		}
		doc.Rules = append(doc.Rules, rule)
	}
	return doc, nil
}

func compileRule(idx int, f *geojson.Feature) (*Rule, error) {
	switch f.Geometry.(type) {
	case orb.Polygon, orb.MultiPolygon:
	default:
		return nil, internal.NewError(internal.ErrorCodeMask,
			fmt.Sprintf("unsupported mask geometry %T (must be Polygon or MultiPolygon)", f.Geometry), nil)
	}

	id := fmt.Sprintf("%d", idx)
	if v, ok := f.Properties["id"].(string); ok && v != "" {
		id = v
	}
	description, _ := f.Properties["description"].(string)

	layersRaw, ok := f.Properties["layers"]
	if !ok {
		return nil, internal.NewError(internal.ErrorCodeConfig,
			fmt.Sprintf("rule %q: missing properties.layers", id), nil)
	}
	layersMap, ok := layersRaw.(map[string]interface{})
	if !ok || len(layersMap) == 0 {
		return nil, internal.NewError(internal.ErrorCodeConfig,
			fmt.Sprintf("rule %q: properties.layers must be a non-empty object", id), nil)
	}

	layers := make(map[string]*LayerFilter, len(layersMap))
	for name, raw := range layersMap {
		spec, ok := raw.(map[string]interface{})
		if !ok {
			return nil, internal.NewError(internal.ErrorCodeConfig,
				fmt.Sprintf("rule %q: layer %q: expected an object", id, name), nil)
		}
		lf := &LayerFilter{}
		if fexpr, ok := spec["feature"]; ok {
			node, err := filterexpr.Compile(fexpr)
			if err != nil {
				return nil, internal.NewError(internal.ErrorCodeConfig,
					fmt.Sprintf("rule %q: layer %q: feature expression", id, name), err)
			}
			lf.Feature = node
		}
		if texpr, ok := spec["tag"]; ok {
			node, err := filterexpr.Compile(texpr)
			if err != nil {
				return nil, internal.NewError(internal.ErrorCodeConfig,
					fmt.Sprintf("rule %q: layer %q: tag expression", id, name), err)
			}
			lf.Tag = node
		}
		layers[name] = lf
	}

	return &Rule{
		ID:          id,
		Description: description,
		Mask:        f.Geometry,
		Bound:       f.Geometry.Bound(),
		Layers:      layers,
	}, nil
}
