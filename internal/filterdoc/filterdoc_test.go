package filterdoc

import "testing"

const sampleDoc = `{
  "type": "FeatureCollection",
  "features": [
    {
      "type": "Feature",
      "properties": {
        "id": "drop-parks",
        "description": "drop parks globally",
        "layers": {
          "poi": { "feature": ["==", ["tag", "kind"], "park"] }
        }
      },
      "geometry": {
        "type": "Polygon",
        "coordinates": [[[-180, -90], [180, -90], [180, 90], [-180, 90], [-180, -90]]]
      }
    },
    {
      "type": "Feature",
      "properties": {
        "layers": {
          "*": { "tag": ["starts-with", ["key"], "name"] }
        }
      },
      "geometry": {
        "type": "Polygon",
        "coordinates": [[[0, 0], [10, 0], [10, 10], [0, 10], [0, 0]]]
      }
    }
  ]
}`

func TestLoad_Sample(t *testing.T) {
	doc, err := Load([]byte(sampleDoc))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(doc.Rules) != 2 {
		t.Fatalf("expected 2 rules, got %d", len(doc.Rules))
	}
	if doc.Rules[0].ID != "drop-parks" {
		t.Errorf("expected explicit id 'drop-parks', got %q", doc.Rules[0].ID)
	}
	if doc.Rules[1].ID != "1" {
		t.Errorf("expected default id '1' for the second rule, got %q", doc.Rules[1].ID)
	}
	if _, ok := doc.Rules[0].Layers["poi"]; !ok {
		t.Error("expected a 'poi' layer filter on the first rule")
	}
	if _, ok := doc.Rules[1].Layers["*"]; !ok {
		t.Error("expected a wildcard layer filter on the second rule")
	}
}

func TestLoad_MissingLayersIsError(t *testing.T) {
	const doc = `{
    "type": "FeatureCollection",
    "features": [{
      "type": "Feature",
      "properties": {},
      "geometry": {"type": "Polygon", "coordinates": [[[0,0],[1,0],[1,1],[0,1],[0,0]]]}
    }]
  }`
	if _, err := Load([]byte(doc)); err == nil {
		t.Error("expected an error for a rule missing properties.layers")
	}
}

func TestLoad_EmptyLayersIsError(t *testing.T) {
	const doc = `{
    "type": "FeatureCollection",
    "features": [{
      "type": "Feature",
      "properties": {"layers": {}},
      "geometry": {"type": "Polygon", "coordinates": [[[0,0],[1,0],[1,1],[0,1],[0,0]]]}
    }]
  }`
	if _, err := Load([]byte(doc)); err == nil {
		t.Error("expected an error for a rule with an empty layers object")
	}
}

func TestLoad_NonPolygonMaskIsError(t *testing.T) {
	const doc = `{
    "type": "FeatureCollection",
    "features": [{
      "type": "Feature",
      "properties": {"layers": {"poi": {"feature": ["==", 1, 1]}}},
      "geometry": {"type": "Point", "coordinates": [0, 0]}
    }]
  }`
	if _, err := Load([]byte(doc)); err == nil {
		t.Error("expected an error for a non-polygon mask geometry")
	}
}

func TestLoad_InvalidExpressionIsError(t *testing.T) {
	const doc = `{
    "type": "FeatureCollection",
    "features": [{
      "type": "Feature",
      "properties": {"layers": {"poi": {"feature": ["nope", 1]}}},
      "geometry": {"type": "Polygon", "coordinates": [[[0,0],[1,0],[1,1],[0,1],[0,0]]]}
    }]
  }`
	if _, err := Load([]byte(doc)); err == nil {
		t.Error("expected an error for an unknown operator in a layer expression")
	}
}
