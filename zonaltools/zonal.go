package zonaltools

import (
	"errors"
	"fmt"
	"math"

	"github.com/airbusgeo/godal"
	"gonum.org/v1/gonum/stat"
)

// ZonalOpts controls one zonal-statistics pass.
type ZonalOpts struct {
	AllTouched bool
	Nodata     *float64
}

// ZonalStats computes mean, population standard deviation and pixel count
// of the raster's first band inside each tile polygon. Tile geometries
// must already be in the raster's spatial reference; when expectedSR is
// non-nil the raster is required to match it. Tiles with no pixels get
// nil mean/std and count 0.
func ZonalStats(rasterPath string, tiles *TileSet, expectedSR *godal.SpatialRef, opts ZonalOpts) ([]TileStats, error) {
	ds, err := godal.Open(rasterPath)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := ds.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()

	if expectedSR != nil {
		sr := ds.SpatialRef()
		if sr == nil || !sr.IsSame(expectedSR) {
			return nil, fmt.Errorf("%s: spatial reference differs from the flight's first raster", rasterPath)
		}
	}

	gt, err := ds.GeoTransform()
	if err != nil {
		return nil, err
	}
	if gt[2] != 0 || gt[4] != 0 {
		return nil, fmt.Errorf("%s: rotated rasters are not supported", rasterPath)
	}

	band := &ds.Bands()[0]
	struc := band.Structure()
	noData, hasNoData := band.NoData()
	if opts.Nodata != nil {
		noData, hasNoData = *opts.Nodata, true
	}

	out := make([]TileStats, len(tiles.Geoms))
	for i, geom := range tiles.Geoms {
		st, err := tileStats(band, geom, gt, struc.SizeX, struc.SizeY, noData, hasNoData, opts.AllTouched)
		if err != nil {
			return nil, fmt.Errorf("tile %d: %w", tiles.IDs[i], err)
		}
		out[i] = st
	}
	return out, nil
}

func tileStats(band *godal.Band, geom *godal.Geometry, gt [6]float64, sizeX, sizeY int, noData float64, hasNoData, allTouched bool) (TileStats, error) {
	if geom == nil || geom.Empty() {
		return TileStats{}, nil
	}
	b, err := geom.Bounds()
	if err != nil {
		return TileStats{}, err
	}

	col0, row0, col1, row1 := pixelWindow(b, gt, sizeX, sizeY)
	if col0 > col1 || row0 > row1 {
		return TileStats{}, nil
	}
	w := col1 - col0 + 1
	h := row1 - row0 + 1

	buf := make([]float64, w*h)
	if err := band.Read(col0, row0, buf, w, h); err != nil {
		return TileStats{}, err
	}

	mask, err := rasterizeMask(geom, gt, col0, row0, w, h, allTouched)
	if err != nil {
		return TileStats{}, err
	}

	var values []float64
	for pix := 0; pix < w*h; pix++ {
		if mask[pix] == 0 {
			continue
		}
		v := buf[pix]
		if math.IsNaN(v) || (hasNoData && v == noData) {
			continue
		}
		values = append(values, v)
	}
	if len(values) == 0 {
		return TileStats{}, nil
	}

	mean := stat.Mean(values, nil)
	std := stat.PopStdDev(values, nil)
	return TileStats{Mean: &mean, Std: &std, Count: int64(len(values))}, nil
}

// pixelWindow maps geometry bounds [minx miny maxx maxy] to an inclusive
// pixel window clipped to the raster extent. Assumes north-up rasters
// (negative y resolution).
func pixelWindow(b [4]float64, gt [6]float64, sizeX, sizeY int) (col0, row0, col1, row1 int) {
	col0 = int(math.Floor((b[0] - gt[0]) / gt[1]))
	col1 = int(math.Floor((b[2] - gt[0]) / gt[1]))
	row0 = int(math.Floor((b[3] - gt[3]) / gt[5]))
	row1 = int(math.Floor((b[1] - gt[3]) / gt[5]))
	col0 = max(col0, 0)
	row0 = max(row0, 0)
	col1 = min(col1, sizeX-1)
	row1 = min(row1, sizeY-1)
	return col0, row0, col1, row1
}

// rasterizeMask burns the polygon into an in-memory byte raster aligned
// with the pixel window and returns its contents.
func rasterizeMask(geom *godal.Geometry, gt [6]float64, col0, row0, w, h int, allTouched bool) ([]byte, error) {
	mem, err := godal.Create(godal.Memory, "", 1, godal.Byte, w, h)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := mem.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()

	windowGT := [6]float64{
		gt[0] + float64(col0)*gt[1], gt[1], 0,
		gt[3] + float64(row0)*gt[5], 0, gt[5],
	}
	if err := mem.SetGeoTransform(windowGT); err != nil {
		return nil, err
	}
	if sr := geom.SpatialRef(); sr != nil {
		if err := mem.SetSpatialRef(sr); err != nil {
			return nil, err
		}
	}

	ropts := []godal.RasterizeGeometryOption{godal.Values(1)}
	if allTouched {
		ropts = append(ropts, godal.AllTouched())
	}
	if err := mem.RasterizeGeometry(geom, ropts...); err != nil {
		return nil, err
	}

	mask := make([]byte, w*h)
	if err := mem.Bands()[0].Read(0, 0, mask, w, h); err != nil {
		return nil, err
	}
	return mask, nil
}
