package mvtcodec

import "google.golang.org/protobuf/encoding/protowire"

const (
	cmdMoveTo    = 1
	cmdLineTo    = 2
	cmdClosePath = 7
)

// GeometryBounds walks a feature's raw command/parameter stream and
// returns the tile-local pixel-space bounding box of every coordinate it
// visits, without decoding the geometry into any richer structure. This is
// the only thing the spatial filter needs from a feature's geometry: a
// box to test against rule masks.
func GeometryBounds(cmds []uint32) (minX, minY, maxX, maxY int32) {
	var x, y int32
	first := true
	i := 0
	for i < len(cmds) {
		header := cmds[i]
		i++
		id := header & 0x7
		count := int(header >> 3)
		switch id {
		case cmdMoveTo, cmdLineTo:
			for c := 0; c < count && i+1 < len(cmds); c++ {
				dx := int32(protowire.DecodeZigZag(uint64(cmds[i])))
				dy := int32(protowire.DecodeZigZag(uint64(cmds[i+1])))
				i += 2
				x += dx
				y += dy
				if first {
					minX, maxX, minY, maxY = x, x, y, y
					first = false
				} else {
					if x < minX {
						minX = x
					}
					if x > maxX {
						maxX = x
					}
					if y < minY {
						minY = y
					}
					if y > maxY {
						maxY = y
					}
				}
			}
		case cmdClosePath:
			// no parameters
		default:
			// unrecognized command: stop, returning whatever bound has
			// been accumulated so far.
			return
		}
	}
	return
}
