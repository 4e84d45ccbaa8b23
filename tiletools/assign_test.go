package tiletools

import (
	"fmt"
	"testing"

	"github.com/airbusgeo/godal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mkPoly(t testing.TB, x0, y0, x1, y1 float64) *godal.Geometry {
	t.Helper()
	wkt := fmt.Sprintf("POLYGON((%[1]v %[2]v, %[3]v %[2]v, %[3]v %[4]v, %[1]v %[4]v, %[1]v %[2]v))", x0, y0, x1, y1)
	srs, err := godal.NewSpatialRefFromEPSG(32630)
	require.NoError(t, err)
	geom, err := godal.NewGeometryFromWKT(wkt, srs)
	require.NoError(t, err)
	return geom
}

func TestAssignLargestOverlap(t *testing.T) {
	tile := Tile{ID: 1, Geom: mkPoly(t, 0, 0, 10, 10)}
	// A overlaps 80 units, B overlaps 60.
	polyA := FlightPolygon{FID: 0, FlightID: "A", Geom: mkPoly(t, 0, 0, 8, 10)}
	polyB := FlightPolygon{FID: 1, FlightID: "B", Geom: mkPoly(t, 4, 0, 20, 10)}

	for name, polys := range map[string][]FlightPolygon{
		"a-first": {polyA, polyB},
		"b-first": {polyB, polyA},
	} {
		t.Run(name, func(t *testing.T) {
			assigned, err := AssignTiles([]Tile{tile}, polys)
			require.NoError(t, err)
			require.Len(t, assigned, 1)
			assert.Equal(t, "A", assigned[0].FlightID)
			assert.InDelta(t, 80.0, assigned[0].OverlapArea, 1e-9)
		})
	}
}

func TestAssignTieKeepsFirstCandidate(t *testing.T) {
	tile := Tile{ID: 1, Geom: mkPoly(t, 0, 0, 10, 10)}
	// Identical overlap from both sides.
	polys := []FlightPolygon{
		{FID: 0, FlightID: "left", Geom: mkPoly(t, 0, 0, 5, 10)},
		{FID: 1, FlightID: "right", Geom: mkPoly(t, 5, 0, 10, 10)},
	}
	assigned, err := AssignTiles([]Tile{tile}, polys)
	require.NoError(t, err)
	require.Len(t, assigned, 1)
	assert.Equal(t, "left", assigned[0].FlightID)
}

func TestAssignExampleScenario(t *testing.T) {
	// 4 tiles in a row; A covers tiles 1-2, B covers tile 3, tile 4 unmatched.
	tiles := []Tile{
		{ID: 1, Geom: mkPoly(t, 0, 0, 10, 10)},
		{ID: 2, Geom: mkPoly(t, 10, 0, 20, 10)},
		{ID: 3, Geom: mkPoly(t, 20, 0, 30, 10)},
		{ID: 4, Geom: mkPoly(t, 30, 0, 40, 10)},
	}
	polys := []FlightPolygon{
		{FID: 0, FlightID: "A", Geom: mkPoly(t, 0, 0, 20, 10)},
		{FID: 1, FlightID: "B", Geom: mkPoly(t, 20, 0, 30, 10)},
	}

	assigned, err := AssignTiles(tiles, polys)
	require.NoError(t, err)
	require.Len(t, assigned, 3)

	byTile := make(map[int64]string)
	for _, a := range assigned {
		byTile[a.ID] = a.FlightID
	}
	assert.Equal(t, map[int64]string{1: "A", 2: "A", 3: "B"}, byTile)
}

func TestAssignDropsEmptyFlightID(t *testing.T) {
	tile := Tile{ID: 1, Geom: mkPoly(t, 0, 0, 10, 10)}

	t.Run("empty winner", func(t *testing.T) {
		// The unnamed polygon wins on overlap; the tile must be dropped,
		// not reassigned to the smaller named polygon.
		polys := []FlightPolygon{
			{FID: 0, FlightID: "", Geom: mkPoly(t, 0, 0, 10, 10)},
			{FID: 1, FlightID: "B", Geom: mkPoly(t, 8, 0, 20, 10)},
		}
		other := Tile{ID: 2, Geom: mkPoly(t, 12, 0, 20, 10)}
		assigned, err := AssignTiles([]Tile{tile, other}, polys)
		require.NoError(t, err)
		require.Len(t, assigned, 1)
		assert.Equal(t, int64(2), assigned[0].ID)
	})

	t.Run("whitespace winner", func(t *testing.T) {
		polys := []FlightPolygon{
			{FID: 0, FlightID: "   ", Geom: mkPoly(t, 0, 0, 10, 10)},
		}
		_, err := AssignTiles([]Tile{tile}, polys)
		assert.Error(t, err)
	})
}

func TestAssignNoTilesAssignedFails(t *testing.T) {
	tiles := []Tile{{ID: 1, Geom: mkPoly(t, 100, 100, 110, 110)}}
	polys := []FlightPolygon{{FID: 0, FlightID: "A", Geom: mkPoly(t, 0, 0, 10, 10)}}

	_, err := AssignTiles(tiles, polys)
	assert.ErrorContains(t, err, "no tiles assigned")
}
