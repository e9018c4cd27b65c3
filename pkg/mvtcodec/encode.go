package mvtcodec

import (
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// Encode serializes a Tile back into MVT protobuf bytes. Each layer's
// key/value dictionaries are rebuilt from scratch: only keys and values
// actually referenced by a surviving feature are kept, renumbered in the
// order they are first encountered walking that layer's features. Layers
// left with no features are omitted entirely.
func Encode(t *Tile) []byte {
	var b []byte
	for _, layer := range t.Layers {
		rebuilt, ok := rebuildDictionaries(layer)
		if !ok {
			continue
		}
		lb := encodeLayer(rebuilt)
		b = protowire.AppendTag(b, tileFieldLayers, protowire.BytesType)
		b = protowire.AppendBytes(b, lb)
	}
	return b
}

// rebuildDictionaries produces a copy of layer whose Keys/Values arrays
// contain only dictionary entries referenced by its (already filtered)
// Features, in first-seen order, with Tags rewritten to the new indices.
// It returns ok=false for a layer with no features, signaling the caller
// to drop the layer from the encoded tile.
func rebuildDictionaries(layer *Layer) (*Layer, bool) {
	if len(layer.Features) == 0 {
		return nil, false
	}
	keyIndex := make(map[uint32]uint32, len(layer.Keys))
	valIndex := make(map[uint32]uint32, len(layer.Values))
	var newKeys []string
	var newValues []Value

	newFeatures := make([]*Feature, len(layer.Features))
	for i, feat := range layer.Features {
		newTags := make([]uint32, 0, len(feat.Tags))
		for j := 0; j+1 < len(feat.Tags); j += 2 {
			k, v := feat.Tags[j], feat.Tags[j+1]
			nk, ok := keyIndex[k]
			if !ok {
				nk = uint32(len(newKeys))
				newKeys = append(newKeys, layer.Keys[k])
				keyIndex[k] = nk
			}
			nv, ok := valIndex[v]
			if !ok {
				nv = uint32(len(newValues))
				newValues = append(newValues, layer.Values[v])
				valIndex[v] = nv
			}
			newTags = append(newTags, nk, nv)
		}
		newFeatures[i] = &Feature{ID: feat.ID, Tags: newTags, Type: feat.Type, Geometry: feat.Geometry}
	}

	return &Layer{
		Name:     layer.Name,
		Version:  layer.Version,
		Extent:   layer.Extent,
		Features: newFeatures,
		Keys:     newKeys,
		Values:   newValues,
	}, true
}

func encodeLayer(layer *Layer) []byte {
	var b []byte
	b = protowire.AppendTag(b, layerFieldName, protowire.BytesType)
	b = protowire.AppendBytes(b, []byte(layer.Name))
	for _, f := range layer.Features {
		b = protowire.AppendTag(b, layerFieldFeatures, protowire.BytesType)
		b = protowire.AppendBytes(b, encodeFeature(f))
	}
	for _, k := range layer.Keys {
		b = protowire.AppendTag(b, layerFieldKeys, protowire.BytesType)
		b = protowire.AppendBytes(b, []byte(k))
	}
	for _, v := range layer.Values {
		b = protowire.AppendTag(b, layerFieldValues, protowire.BytesType)
		b = protowire.AppendBytes(b, encodeValue(v))
	}
	b = protowire.AppendTag(b, layerFieldExtent, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(layer.Extent))
	b = protowire.AppendTag(b, layerFieldVersion, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(layer.Version))
	return b
}

func encodeFeature(f *Feature) []byte {
	var b []byte
	if f.ID != nil {
		b = protowire.AppendTag(b, featureFieldID, protowire.VarintType)
		b = protowire.AppendVarint(b, *f.ID)
	}
	if len(f.Tags) > 0 {
		var packed []byte
		for _, t := range f.Tags {
			packed = protowire.AppendVarint(packed, uint64(t))
		}
		b = protowire.AppendTag(b, featureFieldTags, protowire.BytesType)
		b = protowire.AppendBytes(b, packed)
	}
	b = protowire.AppendTag(b, featureFieldType, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(f.Type))
	if len(f.Geometry) > 0 {
		var packed []byte
		for _, g := range f.Geometry {
			packed = protowire.AppendVarint(packed, uint64(g))
		}
		b = protowire.AppendTag(b, featureFieldGeometry, protowire.BytesType)
		b = protowire.AppendBytes(b, packed)
	}
	return b
}

func encodeValue(v Value) []byte {
	var b []byte
	switch v.Kind {
	case ValString:
		b = protowire.AppendTag(b, valueFieldString, protowire.BytesType)
		b = protowire.AppendBytes(b, []byte(v.Str))
	case ValFloat:
		b = protowire.AppendTag(b, valueFieldFloat, protowire.Fixed32Type)
		b = protowire.AppendFixed32(b, math.Float32bits(v.Float32))
	case ValDouble:
		b = protowire.AppendTag(b, valueFieldDouble, protowire.Fixed64Type)
		b = protowire.AppendFixed64(b, math.Float64bits(v.Float64))
	case ValInt:
		b = protowire.AppendTag(b, valueFieldInt, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(v.Int))
	case ValUint:
		b = protowire.AppendTag(b, valueFieldUint, protowire.VarintType)
		b = protowire.AppendVarint(b, v.Uint)
	case ValSInt:
		b = protowire.AppendTag(b, valueFieldSint, protowire.VarintType)
		b = protowire.AppendVarint(b, protowire.EncodeZigZag(v.Sint))
	case ValBool:
		b = protowire.AppendTag(b, valueFieldBool, protowire.VarintType)
		var x uint64
		if v.Bool {
			x = 1
		}
		b = protowire.AppendVarint(b, x)
	}
	return b
}
