package spatialindex

import (
	"testing"

	"github.com/paulmach/orb"

	"mvtfilter/internal/filterdoc"
)

func TestLoad_SpatialRestriction(t *testing.T) {
	const doc = `{
    "type": "FeatureCollection",
    "features": [
      {
        "type": "Feature",
        "properties": {"id": "sf-only", "layers": {"poi": {"feature": ["==", 1, 1]}}},
        "geometry": {"type": "Polygon", "coordinates": [[[-123,37],[-122,37],[-122,38],[-123,38],[-123,37]]]}
      },
      {
        "type": "Feature",
        "properties": {"id": "global", "layers": {"poi": {"feature": ["==", 1, 1]}}},
        "geometry": {"type": "Polygon", "coordinates": [[[-180,-90],[180,-90],[180,90],[-180,90],[-180,-90]]]}
      }
    ]
  }`
	d, err := filterdoc.Load([]byte(doc))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	idx := New(d)
	if idx.Len() != 2 {
		t.Fatalf("expected 2 rules indexed, got %d", idx.Len())
	}

	sf := bound(-122.5, 37.5, -122.4, 37.6)
	matches := idx.Query(sf)
	if len(matches) != 2 {
		t.Fatalf("expected both the SF-scoped and global rule to match an SF tile, got %d", len(matches))
	}

	tokyo := bound(139.6, 35.6, 139.8, 35.8)
	matches = idx.Query(tokyo)
	if len(matches) != 1 || matches[0].ID != "global" {
		t.Fatalf("expected only the global rule to match a Tokyo tile, got %#v", matches)
	}
}

func bound(minLon, minLat, maxLon, maxLat float64) orb.Bound {
	return orb.Bound{Min: orb.Point{minLon, minLat}, Max: orb.Point{maxLon, maxLat}}
}
