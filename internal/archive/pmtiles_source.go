package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"gocloud.dev/blob"
	"gocloud.dev/blob/fileblob"

	"github.com/protomaps/go-pmtiles/pmtiles"
)

// pmtilesSource reads tiles out of a PMTiles v3 archive via
// github.com/protomaps/go-pmtiles, the PMTiles library the retrieval
// corpus itself depends on directly.
type pmtilesSource struct {
	bucket *blob.Bucket
	reader *pmtiles.Reader
	key    string
}

// OpenPMTiles opens a local PMTiles v3 file as a Source.
func OpenPMTiles(ctx context.Context, dir, file string) (Source, error) {
	bucket, err := fileblob.OpenBucket(dir, nil)
	if err != nil {
		return nil, fmt.Errorf("archive: open pmtiles directory %q: %w", dir, err)
	}
	reader, err := pmtiles.NewReader(ctx, bucket, file)
	if err != nil {
		bucket.Close()
		return nil, fmt.Errorf("archive: open pmtiles file %q: %w", file, err)
	}
	return &pmtilesSource{bucket: bucket, reader: reader, key: file}, nil
}

func (s *pmtilesSource) Metadata(ctx context.Context) (*TileJSON, error) {
	header := s.reader.Header
	meta, err := s.reader.Metadata()
	if err != nil {
		return nil, fmt.Errorf("archive: read pmtiles metadata: %w", err)
	}

	tj := &TileJSON{
		MinZoom: int(header.MinZoom),
		MaxZoom: int(header.MaxZoom),
		Bounds: [4]float64{
			float64(header.MinLonE7) / 1e7,
			float64(header.MinLatE7) / 1e7,
			float64(header.MaxLonE7) / 1e7,
			float64(header.MaxLatE7) / 1e7,
		},
		CenterLon:  float64(header.CenterLonE7) / 1e7,
		CenterLat:  float64(header.CenterLatE7) / 1e7,
		CenterZoom: int(header.CenterZoom),
	}

	switch header.TileCompression {
	case pmtiles.Gzip:
		tj.Compression = "gzip"
	case pmtiles.Zstd:
		tj.Compression = "zstd"
	case pmtiles.NoCompression:
		tj.Compression = "none"
	default:
		tj.Compression = "gzip"
	}
	switch header.TileType {
	case pmtiles.Mvt:
		tj.Format = "pbf"
	case pmtiles.Png:
		tj.Format = "png"
	case pmtiles.Jpeg:
		tj.Format = "jpg"
	}

	if name, ok := meta["name"].(string); ok {
		tj.Name = name
	}
	if desc, ok := meta["description"].(string); ok {
		tj.Description = desc
	}
	if attr, ok := meta["attribution"].(string); ok {
		tj.Attribution = attr
	}
	if layers, ok := meta["vector_layers"]; ok {
		if raw, err := json.Marshal(layers); err == nil {
			tj.VectorLayers = raw
		}
	}

	return tj, nil
}

// Tiles streams every populated tile by enumerating the XYZ grid bounded
// by the archive's own lon/lat bounds at each zoom level and probing each
// candidate coordinate with the reader's point-lookup API, since the
// public Reader surface exposes random access rather than bulk iteration.
func (s *pmtilesSource) Tiles(ctx context.Context) (<-chan RawTile, <-chan error) {
	out := make(chan RawTile)
	errc := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errc)

		header := s.reader.Header
		minLon := float64(header.MinLonE7) / 1e7
		minLat := float64(header.MinLatE7) / 1e7
		maxLon := float64(header.MaxLonE7) / 1e7
		maxLat := float64(header.MaxLatE7) / 1e7

		for z := int(header.MinZoom); z <= int(header.MaxZoom); z++ {
			x0, y0 := lonLatToTile(minLon, maxLat, z)
			x1, y1 := lonLatToTile(maxLon, minLat, z)
			if x1 < x0 {
				x0, x1 = x1, x0
			}
			if y1 < y0 {
				y0, y1 = y1, y0
			}
			for x := x0; x <= x1; x++ {
				for y := y0; y <= y1; y++ {
					select {
					case <-ctx.Done():
						errc <- ctx.Err()
						return
					default:
					}
					data := s.reader.Get(ctx, uint8(z), uint32(x), uint32(y))
					if len(data) == 0 {
						continue
					}
					select {
					case out <- RawTile{Z: z, X: x, Y: y, Data: data}:
					case <-ctx.Done():
						errc <- ctx.Err()
						return
					}
				}
			}
		}
	}()

	return out, errc
}

func (s *pmtilesSource) Close() error {
	return s.bucket.Close()
}

// lonLatToTile converts a WGS84 coordinate into the XYZ tile indices that
// contain it at zoom z, using the standard Web Mercator slippy-map
// formulas.
func lonLatToTile(lon, lat float64, z int) (x, y int) {
	n := math.Exp2(float64(z))
	x = int(math.Floor((lon + 180.0) / 360.0 * n))
	latRad := lat * math.Pi / 180.0
	y = int(math.Floor((1.0 - math.Log(math.Tan(latRad)+1.0/math.Cos(latRad))/math.Pi) / 2.0 * n))
	max := int(n) - 1
	if x < 0 {
		x = 0
	}
	if x > max {
		x = max
	}
	if y < 0 {
		y = 0
	}
	if y > max {
		y = max
	}
	return x, y
}
