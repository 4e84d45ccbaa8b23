// Package tiletools assigns grid tiles to flight-area polygons by
// largest geometric overlap.
package tiletools

import (
	"errors"
	"strings"

	"github.com/airbusgeo/godal"
	"github.com/golang/geo/r2"
	"github.com/sirupsen/logrus"
)

// Tile is one grid cell. Attrs holds any extra attribute columns carried
// over from the source layer, keyed by field name.
type Tile struct {
	ID    int64
	Geom  *godal.Geometry
	Attrs map[string]interface{}
}

// FlightPolygon is one flight-area polygon. FlightID may be empty, which
// disqualifies the polygon as an assignment target.
type FlightPolygon struct {
	FID      int64
	FlightID string
	Geom     *godal.Geometry
}

// AssignedTile is a tile together with its winning polygon.
type AssignedTile struct {
	Tile
	PolyFID     int64
	FlightID    string
	OverlapArea float64
}

// polyIndex is a coarse bounding-box pre-filter over flight polygons.
// Exact intersection is only computed for rect hits.
type polyIndex struct {
	rects []r2.Rect
}

func newPolyIndex(polys []FlightPolygon) (*polyIndex, error) {
	rects := make([]r2.Rect, len(polys))
	for i, p := range polys {
		if p.Geom == nil || p.Geom.Empty() {
			rects[i] = r2.EmptyRect()
			continue
		}
		b, err := p.Geom.Bounds()
		if err != nil {
			return nil, err
		}
		rects[i] = r2.RectFromPoints(
			r2.Point{X: b[0], Y: b[1]},
			r2.Point{X: b[2], Y: b[3]},
		)
	}
	return &polyIndex{rects: rects}, nil
}

func (ix *polyIndex) query(b r2.Rect) []int {
	var hits []int
	for i, r := range ix.rects {
		if r.Intersects(b) {
			hits = append(hits, i)
		}
	}
	return hits
}

// AlignCRS reprojects every polygon geometry into target when the source
// reference differs from it.
func AlignCRS(polys []FlightPolygon, source, target *godal.SpatialRef) error {
	if source == nil || target == nil || source.IsSame(target) {
		return nil
	}
	for _, p := range polys {
		if p.Geom == nil {
			continue
		}
		if err := p.Geom.Reproject(target); err != nil {
			return err
		}
	}
	return nil
}

// AssignTiles finds, for every tile, the flight polygon with the largest
// intersection area. Ties keep the first candidate in polygon load order.
// Tiles with no overlapping polygon, and tiles whose winner has an empty
// FlightID, are dropped. Both inputs must be in the same spatial reference.
func AssignTiles(tiles []Tile, polys []FlightPolygon) ([]AssignedTile, error) {
	ix, err := newPolyIndex(polys)
	if err != nil {
		return nil, err
	}

	var assigned []AssignedTile
	for _, tile := range tiles {
		if tile.Geom == nil || tile.Geom.Empty() {
			continue
		}
		b, err := tile.Geom.Bounds()
		if err != nil {
			logrus.Warnf("tile %d: unreadable bounds: %v", tile.ID, err)
			continue
		}
		tileRect := r2.RectFromPoints(
			r2.Point{X: b[0], Y: b[1]},
			r2.Point{X: b[2], Y: b[3]},
		)

		best := -1
		bestArea := 0.0
		for _, pi := range ix.query(tileRect) {
			inter, err := tile.Geom.Intersection(polys[pi].Geom)
			if err != nil {
				logrus.Debugf("tile %d x polygon %d: %v", tile.ID, polys[pi].FID, err)
				continue
			}
			if inter.Empty() {
				inter.Close()
				continue
			}
			area := inter.Area()
			inter.Close()
			if area > bestArea {
				bestArea = area
				best = pi
			}
		}
		if best < 0 {
			continue
		}
		if strings.TrimSpace(polys[best].FlightID) == "" {
			continue
		}
		assigned = append(assigned, AssignedTile{
			Tile:        tile,
			PolyFID:     polys[best].FID,
			FlightID:    polys[best].FlightID,
			OverlapArea: bestArea,
		})
	}

	if len(assigned) == 0 {
		return nil, errors.New("no tiles assigned: check flight id values and CRS")
	}
	return assigned, nil
}
