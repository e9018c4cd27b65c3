package mvtcodec

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

const (
	tileFieldLayers = 3

	layerFieldName     = 1
	layerFieldFeatures = 2
	layerFieldKeys     = 3
	layerFieldValues   = 4
	layerFieldExtent   = 5
	layerFieldVersion  = 15

	featureFieldID       = 1
	featureFieldTags     = 2
	featureFieldType     = 3
	featureFieldGeometry = 4

	valueFieldString = 1
	valueFieldFloat  = 2
	valueFieldDouble = 3
	valueFieldInt    = 4
	valueFieldUint   = 5
	valueFieldSint   = 6
	valueFieldBool   = 7
)

// Decode parses raw (decompressed) MVT protobuf bytes into a Tile.
func Decode(data []byte) (*Tile, error) {
	tile := &Tile{}
	b := data
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("mvtcodec: invalid tile tag: %w", protowire.ParseError(n))
		}
		b = b[n:]
		switch {
		case num == tileFieldLayers && typ == protowire.BytesType:
			lb, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, fmt.Errorf("mvtcodec: invalid layer bytes: %w", protowire.ParseError(n))
			}
			b = b[n:]
			layer, err := decodeLayer(lb)
			if err != nil {
				return nil, err
			}
			tile.Layers = append(tile.Layers, layer)
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, fmt.Errorf("mvtcodec: invalid tile field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return tile, nil
}

func decodeLayer(data []byte) (*Layer, error) {
	layer := &Layer{Version: 1, Extent: 4096}
	b := data
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("mvtcodec: invalid layer tag: %w", protowire.ParseError(n))
		}
		b = b[n:]
		switch num {
		case layerFieldName:
			raw, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, fmt.Errorf("mvtcodec: invalid layer name: %w", protowire.ParseError(n))
			}
			layer.Name = string(raw)
			b = b[n:]
		case layerFieldFeatures:
			fb, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, fmt.Errorf("mvtcodec: invalid feature bytes: %w", protowire.ParseError(n))
			}
			b = b[n:]
			feat, err := decodeFeature(fb)
			if err != nil {
				return nil, err
			}
			layer.Features = append(layer.Features, feat)
		case layerFieldKeys:
			raw, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, fmt.Errorf("mvtcodec: invalid layer key: %w", protowire.ParseError(n))
			}
			layer.Keys = append(layer.Keys, string(raw))
			b = b[n:]
		case layerFieldValues:
			vb, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, fmt.Errorf("mvtcodec: invalid value bytes: %w", protowire.ParseError(n))
			}
			b = b[n:]
			v, err := decodeValue(vb)
			if err != nil {
				return nil, err
			}
			layer.Values = append(layer.Values, v)
		case layerFieldExtent:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, fmt.Errorf("mvtcodec: invalid layer extent: %w", protowire.ParseError(n))
			}
			layer.Extent = uint32(v)
			b = b[n:]
		case layerFieldVersion:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, fmt.Errorf("mvtcodec: invalid layer version: %w", protowire.ParseError(n))
			}
			layer.Version = uint32(v)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, fmt.Errorf("mvtcodec: invalid layer field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return layer, nil
}

func decodeFeature(data []byte) (*Feature, error) {
	feat := &Feature{Type: GeomUnknown}
	b := data
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("mvtcodec: invalid feature tag: %w", protowire.ParseError(n))
		}
		b = b[n:]
		switch num {
		case featureFieldID:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, fmt.Errorf("mvtcodec: invalid feature id: %w", protowire.ParseError(n))
			}
			feat.ID = &v
			b = b[n:]
		case featureFieldTags:
			packed, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, fmt.Errorf("mvtcodec: invalid feature tags: %w", protowire.ParseError(n))
			}
			b = b[n:]
			tags, err := decodePackedVarints(packed)
			if err != nil {
				return nil, fmt.Errorf("mvtcodec: feature tags: %w", err)
			}
			feat.Tags = tags
		case featureFieldType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, fmt.Errorf("mvtcodec: invalid feature type: %w", protowire.ParseError(n))
			}
			feat.Type = GeomType(v)
			b = b[n:]
		case featureFieldGeometry:
			packed, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, fmt.Errorf("mvtcodec: invalid feature geometry: %w", protowire.ParseError(n))
			}
			b = b[n:]
			geom, err := decodePackedVarints(packed)
			if err != nil {
				return nil, fmt.Errorf("mvtcodec: feature geometry: %w", err)
			}
			feat.Geometry = geom
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, fmt.Errorf("mvtcodec: invalid feature field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return feat, nil
}

func decodePackedVarints(b []byte) ([]uint32, error) {
	var out []uint32
	for len(b) > 0 {
		v, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		out = append(out, uint32(v))
		b = b[n:]
	}
	return out, nil
}

func decodeValue(data []byte) (Value, error) {
	var v Value
	b := data
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return v, fmt.Errorf("mvtcodec: invalid value tag: %w", protowire.ParseError(n))
		}
		b = b[n:]
		switch num {
		case valueFieldString:
			raw, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return v, fmt.Errorf("mvtcodec: invalid string value: %w", protowire.ParseError(n))
			}
			v = Value{Kind: ValString, Str: string(raw)}
			b = b[n:]
		case valueFieldFloat:
			bits, n := protowire.ConsumeFixed32(b)
			if n < 0 {
				return v, fmt.Errorf("mvtcodec: invalid float value: %w", protowire.ParseError(n))
			}
			v = Value{Kind: ValFloat, Float32: math.Float32frombits(bits)}
			b = b[n:]
		case valueFieldDouble:
			bits, n := protowire.ConsumeFixed64(b)
			if n < 0 {
				return v, fmt.Errorf("mvtcodec: invalid double value: %w", protowire.ParseError(n))
			}
			v = Value{Kind: ValDouble, Float64: math.Float64frombits(bits)}
			b = b[n:]
		case valueFieldInt:
			raw, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return v, fmt.Errorf("mvtcodec: invalid int value: %w", protowire.ParseError(n))
			}
			v = Value{Kind: ValInt, Int: int64(raw)}
			b = b[n:]
		case valueFieldUint:
			raw, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return v, fmt.Errorf("mvtcodec: invalid uint value: %w", protowire.ParseError(n))
			}
			v = Value{Kind: ValUint, Uint: raw}
			b = b[n:]
		case valueFieldSint:
			raw, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return v, fmt.Errorf("mvtcodec: invalid sint value: %w", protowire.ParseError(n))
			}
			v = Value{Kind: ValSInt, Sint: protowire.DecodeZigZag(raw)}
			b = b[n:]
		case valueFieldBool:
			raw, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return v, fmt.Errorf("mvtcodec: invalid bool value: %w", protowire.ParseError(n))
			}
			v = Value{Kind: ValBool, Bool: raw != 0}
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return v, fmt.Errorf("mvtcodec: invalid value field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return v, nil
}
