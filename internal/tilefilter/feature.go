package tilefilter

import (
	"github.com/paulmach/orb"

	"mvtfilter/internal/filterexpr"
	"mvtfilter/internal/tilecoord"
	"mvtfilter/pkg/mvtcodec"
)

// filterLayer applies the effective filters to one layer's features,
// returning a new Layer with dropped features removed and stripped tags
// rewritten. The returned Layer's Keys/Values are the original,
// unrenumbered dictionaries — mvtcodec.Encode performs the first-seen
// dictionary rebuild over whatever features survive here.
func filterLayer(layer *mvtcodec.Layer, effective []effectiveFilter, tileBound orb.Bound) *mvtcodec.Layer {
	newFeatures := make([]*mvtcodec.Feature, 0, len(layer.Features))
	for _, feat := range layer.Features {
		tags := tagMap(layer, feat)
		geomType := classify(feat.Type)
		minX, minY, maxX, maxY := mvtcodec.GeometryBounds(feat.Geometry)
		featureBound := tilecoord.PixelBoundToWGS84(tileBound, int(layer.Extent), minX, minY, maxX, maxY)

		var retained []effectiveFilter
		for _, ef := range effective {
			if ef.rule.Bound.Intersects(featureBound) {
				retained = append(retained, ef)
			}
		}

		if featureDropped(retained, geomType, tags) {
			continue
		}

		newFeatures = append(newFeatures, stripTags(layer, feat, tags, retained, geomType))
	}
	return &mvtcodec.Layer{
		Name:     layer.Name,
		Version:  layer.Version,
		Extent:   layer.Extent,
		Features: newFeatures,
		Keys:     layer.Keys,
		Values:   layer.Values,
	}
}

func featureDropped(retained []effectiveFilter, geomType string, tags map[string]filterexpr.Value) bool {
	for _, ef := range retained {
		if ef.feature == nil {
			continue
		}
		ctx := &filterexpr.Context{GeometryType: geomType, Tags: tags}
		if ef.feature.Eval(ctx).Truthy() {
			return true
		}
	}
	return false
}

// stripTags evaluates every retained rule's tag expression against the
// feature's original tag set (removals never feed back into the
// evaluation of other tags) and rewrites the tag index pairs to exclude
// any key a rule asked to drop.
func stripTags(layer *mvtcodec.Layer, feat *mvtcodec.Feature, tags map[string]filterexpr.Value, retained []effectiveFilter, geomType string) *mvtcodec.Feature {
	var dropKeys map[string]bool
	for k, v := range tags {
		for _, ef := range retained {
			if ef.tag == nil {
				continue
			}
			ctx := &filterexpr.Context{
				GeometryType:    geomType,
				Tags:            tags,
				HasKey:          true,
				Key:             k,
				HasCurrentValue: true,
				CurrentValue:    v,
			}
			if ef.tag.Eval(ctx).Truthy() {
				if dropKeys == nil {
					dropKeys = make(map[string]bool)
				}
				dropKeys[k] = true
				break
			}
		}
	}
	if len(dropKeys) == 0 {
		return feat
	}
	newTags := make([]uint32, 0, len(feat.Tags))
	for i := 0; i+1 < len(feat.Tags); i += 2 {
		k := layer.Keys[feat.Tags[i]]
		if dropKeys[k] {
			continue
		}
		newTags = append(newTags, feat.Tags[i], feat.Tags[i+1])
	}
	return &mvtcodec.Feature{ID: feat.ID, Tags: newTags, Type: feat.Type, Geometry: feat.Geometry}
}

func tagMap(layer *mvtcodec.Layer, feat *mvtcodec.Feature) map[string]filterexpr.Value {
	m := make(map[string]filterexpr.Value, len(feat.Tags)/2)
	for i := 0; i+1 < len(feat.Tags); i += 2 {
		k := layer.Keys[feat.Tags[i]]
		m[k] = mvtValueToFilterValue(layer.Values[feat.Tags[i+1]])
	}
	return m
}

func mvtValueToFilterValue(v mvtcodec.Value) filterexpr.Value {
	switch v.Kind {
	case mvtcodec.ValString:
		return filterexpr.String(v.Str)
	case mvtcodec.ValFloat:
		return filterexpr.Number(float64(v.Float32))
	case mvtcodec.ValDouble:
		return filterexpr.Number(v.Float64)
	case mvtcodec.ValInt:
		return filterexpr.Number(float64(v.Int))
	case mvtcodec.ValUint:
		return filterexpr.Number(float64(v.Uint))
	case mvtcodec.ValSInt:
		return filterexpr.Number(float64(v.Sint))
	case mvtcodec.ValBool:
		return filterexpr.Bool(v.Bool)
	default:
		return filterexpr.Null()
	}
}

func classify(t mvtcodec.GeomType) string {
	switch t {
	case mvtcodec.GeomPoint:
		return "Point"
	case mvtcodec.GeomLineString:
		return "LineString"
	case mvtcodec.GeomPolygon:
		return "Polygon"
	default:
		return ""
	}
}
