package zonaltools

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/airbusgeo/godal"
	"github.com/sirupsen/logrus"
)

// Extract runs the full read -> compute -> write sequence for one flight.
// Failures local to one date degrade to a null-filled column; only
// conditions that invalidate the whole flight produce a non-ok result.
func Extract(cfg Config, flight int, flightDir string) FlightResult {
	tiles, tilesPath, err := cfg.ReadTileSet(cfg.FlightAreasDir, flight)
	if err != nil {
		return FlightResult{
			Flight: flight, Status: StatusSkip,
			Message: fmt.Sprintf("no tile set for flight %d: %v", flight, err),
		}
	}
	logrus.Infof("flight %d: %d tiles from %s", flight, len(tiles.IDs), tilesPath)

	rasters, err := FindRasters(flightDir, cfg.RasterName)
	if err != nil {
		return FlightResult{
			Flight: flight, Status: StatusError,
			Message: fmt.Sprintf("listing %s: %v", flightDir, err),
		}
	}
	if len(rasters) == 0 {
		return FlightResult{
			Flight: flight, Status: StatusSkip,
			Message: fmt.Sprintf("no %s under %s", cfg.RasterName, flightDir),
		}
	}

	rasterSR, err := rasterSpatialRef(rasters[0])
	if err != nil {
		return FlightResult{
			Flight: flight, Status: StatusError,
			Message: fmt.Sprintf("reading %s: %v", rasters[0], err),
		}
	}
	if err := alignTileSet(tiles, rasterSR); err != nil {
		return FlightResult{
			Flight: flight, Status: StatusError,
			Message: fmt.Sprintf("reprojecting tile set: %v", err),
		}
	}

	table := NewTimeSeries(tiles.IDs)
	opts := ZonalOpts{AllTouched: cfg.AllTouched, Nodata: cfg.Nodata}
	for _, raster := range rasters {
		folder := filepath.Base(filepath.Dir(raster))
		token, parsed := DateToken(folder)
		if !parsed {
			logrus.Warnf("flight %d: no date token in folder %q, using %q", flight, folder, token)
		}
		stats, err := ZonalStats(raster, tiles, rasterSR, opts)
		if err != nil {
			logrus.Errorf("flight %d date %s: %v", flight, token, err)
			table.AddNullDate(token)
			continue
		}
		table.AddDate(token, stats)
	}

	outCSV := filepath.Join(flightDir, fmt.Sprintf(cfg.OutTemplate, flight))
	if err := cfg.WriteTable(outCSV, table, cfg.KeepCounts); err != nil {
		return FlightResult{
			Flight: flight, Status: StatusError,
			Message: fmt.Sprintf("writing %s: %v", outCSV, err),
		}
	}
	if cfg.Parquet && cfg.WriteParquet != nil {
		outParquet := outCSV[:len(outCSV)-len(filepath.Ext(outCSV))] + ".parquet"
		if err := cfg.WriteParquet(outParquet, table); err != nil {
			return FlightResult{
				Flight: flight, Status: StatusError,
				Message: fmt.Sprintf("writing %s: %v", outParquet, err),
			}
		}
	}

	return FlightResult{
		Flight: flight, Status: StatusOK,
		Message: fmt.Sprintf("saved %s", outCSV),
		OutCSV:  outCSV,
		NDates:  table.NDates(),
	}
}

// rasterSpatialRef returns a detached copy of the raster's spatial
// reference, safe to keep after the dataset is closed.
func rasterSpatialRef(path string) (*godal.SpatialRef, error) {
	ds, err := godal.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := ds.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()
	sr := ds.SpatialRef()
	if sr == nil {
		return nil, fmt.Errorf("%s: no spatial reference", path)
	}
	wkt, err := sr.WKT()
	if err != nil {
		return nil, err
	}
	return godal.NewSpatialRefFromWKT(wkt)
}

// alignTileSet reprojects the tile geometries into the raster reference
// when the two differ. Later rasters are validated against this
// reference, never reprojected to.
func alignTileSet(tiles *TileSet, rasterSR *godal.SpatialRef) error {
	if tiles.SR == nil || tiles.SR.IsSame(rasterSR) {
		return nil
	}
	for _, g := range tiles.Geoms {
		if g == nil {
			continue
		}
		if err := g.Reproject(rasterSR); err != nil {
			return err
		}
	}
	tiles.SR = rasterSR
	return nil
}
