// Package zonaltools extracts per-tile, per-date zonal statistics from
// dated NDVI rasters, one time-series table per flight.
package zonaltools

import (
	"time"

	"github.com/airbusgeo/godal"
)

// TileSet is one flight's spatial units: parallel id/geometry slices in
// iteration order, plus the set's spatial reference.
type TileSet struct {
	IDs   []int64
	Geoms []*godal.Geometry
	SR    *godal.SpatialRef
}

// Config carries everything a flight worker needs. The Read/Write funcs
// are injected so the extraction core stays independent of the artifact
// formats; see DefaultConfig callers for the standard wiring.
type Config struct {
	// RootDataDir contains the flight folders (F1, F2, ...).
	RootDataDir string
	// FlightAreasDir contains the per-flight tile-set files.
	FlightAreasDir string
	// RasterName is the expected raster filename inside each date folder.
	RasterName string
	// AllTouched includes every pixel the polygon touches, not just
	// pixels whose center falls inside.
	AllTouched bool
	// Nodata overrides the raster's own nodata value when non-nil.
	Nodata *float64
	// OutTemplate is the per-flight CSV filename, fmt-style with the
	// flight number as its one argument.
	OutTemplate string
	// KeepCounts retains the per-date pixel-count columns in the output.
	KeepCounts bool
	// Parquet additionally writes a long-form parquet table next to the CSV.
	Parquet bool
	// MaxWorkers bounds the pool; 0 picks min(NumCPU-1, number of flights).
	MaxWorkers int
	// Timeout bounds one flight's wall time; 0 disables it.
	Timeout time.Duration

	ReadTileSet  func(dir string, flight int) (*TileSet, string, error)
	WriteTable   func(path string, t *TimeSeries, keepCounts bool) error
	WriteParquet func(path string, t *TimeSeries) error
}

// DefaultConfig mirrors the historical constants of the batch scripts.
func DefaultConfig(rootDataDir, flightAreasDir string) Config {
	return Config{
		RootDataDir:    rootDataDir,
		FlightAreasDir: flightAreasDir,
		RasterName:     "NDVI.data.tif",
		AllTouched:     false,
		Nodata:         nil,
		OutTemplate:    "zonal_stats_timeseries_flight%d.csv",
		KeepCounts:     false,
	}
}
