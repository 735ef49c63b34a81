package collision

import (
	"github.com/jbeda/geom"

	"github.com/banshee-data/pathing/internal/geometry"
)

func coord(v geometry.Vec) geom.Coord { return geom.Coord{X: v.X, Y: v.Y} }

func polygonBounds(pg geometry.Polygon) geom.Rect {
	r := geom.Rect{Min: coord(pg[0]), Max: coord(pg[0])}
	for _, v := range pg[1:] {
		r.ExpandToContainCoord(coord(v))
	}
	return r
}

func rectBounds(fp geometry.OrientedRect) geom.Rect {
	lo, hi := fp.Bounds()
	return geom.Rect{Min: coord(lo), Max: coord(hi)}
}

// overlaps reports whether two axis-aligned rectangles share any point.
func overlaps(a, b geom.Rect) bool {
	return a.Min.X <= b.Max.X && b.Min.X <= a.Max.X &&
		a.Min.Y <= b.Max.Y && b.Min.Y <= a.Max.Y
}
