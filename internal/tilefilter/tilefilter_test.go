package tilefilter

import (
	"testing"

	"google.golang.org/protobuf/encoding/protowire"

	"mvtfilter/internal/compressio"
	"mvtfilter/internal/filterdoc"
	"mvtfilter/internal/spatialindex"
	"mvtfilter/pkg/mvtcodec"
)

// encodeSampleTile builds a "poi" layer with two point features: one
// tagged kind=park, name_en=Presidio, one tagged kind=lake, name_en=Merced.
func encodeSampleTile(t *testing.T) []byte {
	t.Helper()
	layer := &mvtcodec.Layer{
		Name:    "poi",
		Version: 2,
		Extent:  4096,
		Keys:    []string{"kind", "name_en"},
		Values: []mvtcodec.Value{
			{Kind: mvtcodec.ValString, Str: "park"},
			{Kind: mvtcodec.ValString, Str: "Presidio"},
			{Kind: mvtcodec.ValString, Str: "lake"},
			{Kind: mvtcodec.ValString, Str: "Merced"},
		},
		Features: []*mvtcodec.Feature{
			{
				Type: mvtcodec.GeomPoint,
				Tags: []uint32{0, 0, 1, 1},
				Geometry: []uint32{
					uint32(1<<3 | 1),
					uint32(protowire.EncodeZigZag(100)),
					uint32(protowire.EncodeZigZag(100)),
				},
			},
			{
				Type: mvtcodec.GeomPoint,
				Tags: []uint32{0, 2, 1, 3},
				Geometry: []uint32{
					uint32(1<<3 | 1),
					uint32(protowire.EncodeZigZag(200)),
					uint32(protowire.EncodeZigZag(200)),
				},
			},
		},
	}
	return mvtcodec.Encode(&mvtcodec.Tile{Layers: []*mvtcodec.Layer{layer}})
}

func loadIndex(t *testing.T, doc string) *spatialindex.Index {
	t.Helper()
	d, err := filterdoc.Load([]byte(doc))
	if err != nil {
		t.Fatalf("filterdoc.Load error: %v", err)
	}
	return spatialindex.New(d)
}

const globalMask = `[-180,-90],[180,-90],[180,90],[-180,90],[-180,-90]`

func TestTransform_NoIndexIsPassthrough(t *testing.T) {
	raw := encodeSampleTile(t)
	tr := New(nil, compressio.None)
	res, err := tr.Transform(10, 100, 100, raw)
	if err != nil {
		t.Fatalf("Transform error: %v", err)
	}
	if string(res.Data) != string(raw) {
		t.Error("expected byte-identical passthrough when no filter is loaded")
	}
}

func TestTransform_DropsParksGlobally(t *testing.T) {
	doc := `{"type":"FeatureCollection","features":[{"type":"Feature",
    "properties":{"layers":{"poi":{"feature":["==",["tag","kind"],"park"]}}},
    "geometry":{"type":"Polygon","coordinates":[[` + globalMask + `]]}}]}`
	idx := loadIndex(t, doc)
	tr := New(idx, compressio.None)

	raw := encodeSampleTile(t)
	res, err := tr.Transform(0, 0, 0, raw)
	if err != nil {
		t.Fatalf("Transform error: %v", err)
	}
	if res.Dropped {
		t.Fatal("expected the lake feature to survive, tile should not be fully dropped")
	}
	tile, err := mvtcodec.Decode(res.Data)
	if err != nil {
		t.Fatalf("Decode result: %v", err)
	}
	if len(tile.Layers) != 1 {
		t.Fatalf("expected 1 layer, got %d", len(tile.Layers))
	}
	layer := tile.Layers[0]
	if len(layer.Features) != 1 {
		t.Fatalf("expected 1 surviving feature, got %d", len(layer.Features))
	}
	kindKey := -1
	for i, k := range layer.Keys {
		if k == "kind" {
			kindKey = i
		}
	}
	if kindKey < 0 {
		t.Fatal("expected 'kind' key to survive in the rebuilt dictionary")
	}
	valIdx := layer.Features[0].Tags[indexOfKey(layer.Features[0].Tags, uint32(kindKey))+1]
	if layer.Values[valIdx].Str != "lake" {
		t.Errorf("expected the surviving feature to be the lake, got %q", layer.Values[valIdx].Str)
	}
}

func TestTransform_StripsNameTags(t *testing.T) {
	doc := `{"type":"FeatureCollection","features":[{"type":"Feature",
    "properties":{"layers":{"*":{"tag":["starts-with",["key"],"name"]}}},
    "geometry":{"type":"Polygon","coordinates":[[` + globalMask + `]]}}]}`
	idx := loadIndex(t, doc)
	tr := New(idx, compressio.None)

	raw := encodeSampleTile(t)
	res, err := tr.Transform(0, 0, 0, raw)
	if err != nil {
		t.Fatalf("Transform error: %v", err)
	}
	tile, err := mvtcodec.Decode(res.Data)
	if err != nil {
		t.Fatalf("Decode result: %v", err)
	}
	layer := tile.Layers[0]
	for _, k := range layer.Keys {
		if k == "name_en" {
			t.Fatalf("expected name_en to be stripped from the dictionary, keys = %v", layer.Keys)
		}
	}
	if len(layer.Features) != 2 {
		t.Fatalf("expected both features to survive (only tags stripped), got %d", len(layer.Features))
	}
}

func TestTransform_SpatialRestrictionLeavesOtherTilesUntouched(t *testing.T) {
	// Mask covering only San Francisco. A tile far from the mask is not a
	// spatial candidate and must pass through untouched; the whole-world
	// tile 0/0/0 is a candidate, but the sample features' bounds lie far
	// from the mask, so the rule must not drop them.
	doc := `{"type":"FeatureCollection","features":[{"type":"Feature",
    "properties":{"id":"sf-only","layers":{"poi":{"feature":["==",["tag","kind"],"park"]}}},
    "geometry":{"type":"Polygon","coordinates":[[[-123,37],[-122,37],[-122,38],[-123,38],[-123,37]]]}}]}`
	idx := loadIndex(t, doc)
	tr := New(idx, compressio.None)

	raw := encodeSampleTile(t)

	// Tile 10/909/403 lies over Tokyo, nowhere near the SF mask.
	far, err := tr.Transform(10, 909, 403, raw)
	if err != nil {
		t.Fatalf("Transform error: %v", err)
	}
	if far.Dropped || string(far.Data) != string(raw) {
		t.Error("expected a tile outside the mask to pass through byte-identical")
	}

	// Tile 0/0/0 covers the whole world in bound terms, so the rule is a
	// spatial candidate, but the feature bounds (derived from pixel
	// coordinates near the tile's north-west corner) do not intersect the
	// small SF mask.
	res, err := tr.Transform(0, 0, 0, raw)
	if err != nil {
		t.Fatalf("Transform error: %v", err)
	}
	if res.Dropped {
		t.Fatal("expected at least the lake feature (never matched by the rule) to survive")
	}
}

func indexOfKey(tags []uint32, key uint32) int {
	for i := 0; i+1 < len(tags); i += 2 {
		if tags[i] == key {
			return i
		}
	}
	return -1
}
