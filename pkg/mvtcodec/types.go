// Package mvtcodec decodes and re-encodes Mapbox Vector Tile protobuf
// payloads while preserving the exact structure the round-trip invariant
// depends on: geometry stays an opaque command/parameter integer stream,
// and feature tags stay index pairs into a layer's key/value dictionaries.
// Nothing here resolves a feature into orb.Geometry or a tag map — that
// conversion happens one layer up, in internal/tilefilter, so untouched
// tiles re-encode to the same layers, features, tag mappings and geometry
// streams as their source (dictionary order and field layout may differ).
package mvtcodec

// GeomType mirrors the Tile.GeomType enum of the MVT specification.
type GeomType uint32

const (
	GeomUnknown    GeomType = 0
	GeomPoint      GeomType = 1
	GeomLineString GeomType = 2
	GeomPolygon    GeomType = 3
)

// ValueKind discriminates the oneof variants of Tile.Value.
type ValueKind uint8

const (
	ValString ValueKind = iota
	ValFloat
	ValDouble
	ValInt
	ValUint
	ValSInt
	ValBool
)

// Value is one entry of a layer's shared value dictionary.
type Value struct {
	Kind    ValueKind
	Str     string
	Float32 float32
	Float64 float64
	Int     int64
	Uint    uint64
	Sint    int64
	Bool    bool
}

// Feature is one vector-tile feature: an optional id, tag index pairs
// (Tags[0], Tags[1] is the first key/value pair, and so on), a geometry
// class and its raw command/parameter stream.
type Feature struct {
	ID       *uint64
	Tags     []uint32
	Type     GeomType
	Geometry []uint32
}

// Layer is one named layer with its own key/value dictionaries.
type Layer struct {
	Name     string
	Version  uint32
	Extent   uint32
	Features []*Feature
	Keys     []string
	Values   []Value
}

// Tile is a decoded vector tile: an ordered list of layers.
type Tile struct {
	Layers []*Layer
}
