package zonaltools

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/airbusgeo/godal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setUpRaster writes an 8x8 float64 GTiff with a 1m grid, origin at
// (0, 8), EPSG:32630, filled with fill.
func setUpRaster(t testing.TB, dir string, fill float64) string {
	godal.RegisterAll()
	t.Helper()

	path := filepath.Join(dir, "NDVI.data.tif")
	ds, err := godal.Create(godal.GTiff, path, 1, godal.Float64, 8, 8)
	require.NoError(t, err)
	require.NoError(t, ds.SetGeoTransform([6]float64{0, 1, 0, 8, 0, -1}))

	srs, err := godal.NewSpatialRefFromEPSG(32630)
	require.NoError(t, err)
	require.NoError(t, ds.SetSpatialRef(srs))

	buf := make([]float64, 64)
	for i := range buf {
		buf[i] = fill
	}
	require.NoError(t, ds.Bands()[0].Write(0, 0, buf, 8, 8))
	require.NoError(t, ds.Close())
	return path
}

func squareTileSet(t testing.TB, x0, y0, x1, y1 float64) *TileSet {
	t.Helper()
	srs, err := godal.NewSpatialRefFromEPSG(32630)
	require.NoError(t, err)
	wkt := fmt.Sprintf("POLYGON((%[1]v %[2]v, %[3]v %[2]v, %[3]v %[4]v, %[1]v %[4]v, %[1]v %[2]v))", x0, y0, x1, y1)
	geom, err := godal.NewGeometryFromWKT(wkt, srs)
	require.NoError(t, err)
	return &TileSet{IDs: []int64{1}, Geoms: []*godal.Geometry{geom}, SR: srs}
}

func TestZonalStatsUniformRaster(t *testing.T) {
	raster := setUpRaster(t, t.TempDir(), 0.75)
	tiles := squareTileSet(t, 2, 4, 4, 6)

	stats, err := ZonalStats(raster, tiles, nil, ZonalOpts{})
	require.NoError(t, err)
	require.Len(t, stats, 1)

	st := stats[0]
	require.NotNil(t, st.Mean)
	require.NotNil(t, st.Std)
	assert.InDelta(t, 0.75, *st.Mean, 1e-12)
	assert.InDelta(t, 0.0, *st.Std, 1e-12)
	assert.Equal(t, int64(4), st.Count)
}

func TestZonalStatsAllTouched(t *testing.T) {
	raster := setUpRaster(t, t.TempDir(), 1.5)
	tiles := squareTileSet(t, 2.6, 4.6, 3.4, 5.4)

	def, err := ZonalStats(raster, tiles, nil, ZonalOpts{})
	require.NoError(t, err)
	at, err := ZonalStats(raster, tiles, nil, ZonalOpts{AllTouched: true})
	require.NoError(t, err)

	// The sub-pixel square straddles 4 pixels but contains none of
	// their centers.
	assert.Equal(t, int64(0), def[0].Count)
	assert.Nil(t, def[0].Mean)
	assert.Equal(t, int64(4), at[0].Count)
	assert.InDelta(t, 1.5, *at[0].Mean, 1e-12)
}

func TestZonalStatsNodataOverride(t *testing.T) {
	dir := t.TempDir()
	raster := setUpRaster(t, dir, 5)

	// Punch one nodata pixel into the 2x2 window.
	godal.RegisterAll()
	ds, err := godal.Open(raster, godal.Update())
	require.NoError(t, err)
	require.NoError(t, ds.Bands()[0].Write(2, 2, []float64{-9999}, 1, 1))
	require.NoError(t, ds.Close())

	tiles := squareTileSet(t, 2, 4, 4, 6)
	nodata := -9999.0
	stats, err := ZonalStats(raster, tiles, nil, ZonalOpts{Nodata: &nodata})
	require.NoError(t, err)
	require.Len(t, stats, 1)

	assert.Equal(t, int64(3), stats[0].Count)
	assert.InDelta(t, 5.0, *stats[0].Mean, 1e-12)
}

func TestZonalStatsOutsideExtent(t *testing.T) {
	raster := setUpRaster(t, t.TempDir(), 5)
	tiles := squareTileSet(t, 100, 100, 110, 110)

	stats, err := ZonalStats(raster, tiles, nil, ZonalOpts{})
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Nil(t, stats[0].Mean)
	assert.Nil(t, stats[0].Std)
	assert.Equal(t, int64(0), stats[0].Count)
}

func TestZonalStatsSpatialRefMismatch(t *testing.T) {
	raster := setUpRaster(t, t.TempDir(), 5)
	tiles := squareTileSet(t, 2, 4, 4, 6)

	wgs84, err := godal.NewSpatialRefFromEPSG(4326)
	require.NoError(t, err)

	_, err = ZonalStats(raster, tiles, wgs84, ZonalOpts{})
	assert.ErrorContains(t, err, "spatial reference")
}

func TestZonalStatsUnreadableRaster(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "NDVI.data.tif")
	require.NoError(t, os.WriteFile(bad, []byte("not a raster"), 0o644))

	tiles := squareTileSet(t, 2, 4, 4, 6)
	_, err := ZonalStats(bad, tiles, nil, ZonalOpts{})
	assert.Error(t, err)
}
