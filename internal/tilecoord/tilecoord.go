// Package tilecoord converts between XYZ tile coordinates, WGS84 bounds,
// and tile-local pixel space, the coordinate math the spatial filter
// needs to compare a tile or feature against a filter document's WGS84
// masks.
package tilecoord

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
)

// Bound returns the WGS84 bound of an XYZ tile.
func Bound(z, x, y uint32) orb.Bound {
	return maptile.New(x, y, maptile.Zoom(z)).Bound()
}

// Validate checks that z/x/y form a coordinate within the valid XYZ range
// for that zoom level.
func Validate(z, x, y int) error {
	if z < 0 || z > 24 {
		return fmt.Errorf("tilecoord: invalid zoom %d", z)
	}
	max := 1 << uint(z)
	if x < 0 || x >= max {
		return fmt.Errorf("tilecoord: invalid x %d at zoom %d (must be in [0,%d))", x, z, max)
	}
	if y < 0 || y >= max {
		return fmt.Errorf("tilecoord: invalid y %d at zoom %d (must be in [0,%d))", y, z, max)
	}
	return nil
}

// PixelBoundToWGS84 maps a tile-local pixel-space bounding box (coordinates
// in [0, extent], MVT's top-down y axis) into a WGS84 bound, given the
// WGS84 bound of the tile it belongs to.
func PixelBoundToWGS84(tileBound orb.Bound, extent int, minX, minY, maxX, maxY int32) orb.Bound {
	w, s, e, n := tileBound.Left(), tileBound.Bottom(), tileBound.Right(), tileBound.Top()
	sx := (e - w) / float64(extent)
	sy := (n - s) / float64(extent)
	return orb.Bound{
		Min: orb.Point{w + float64(minX)*sx, n - float64(maxY)*sy},
		Max: orb.Point{w + float64(maxX)*sx, n - float64(minY)*sy},
	}
}
