// Package flightio reads and writes the on-disk artifacts: GeoPackage
// tile sets, time-series CSVs and the optional parquet export.
package flightio

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"flight-tools/tiletools"
	"flight-tools/zonaltools"

	"github.com/airbusgeo/godal"
	"github.com/sirupsen/logrus"
)

// TileLayerName is the single layer written into every per-flight
// GeoPackage.
const TileLayerName = "tiles"

// ReadTileLayer loads the grid tiles from the first layer of a vector
// dataset. Tiles get their id from an "id" column when present, or the
// feature's position otherwise; every other attribute is carried along.
func ReadTileLayer(path string) ([]tiletools.Tile, *godal.SpatialRef, error) {
	ds, layer, sr, err := openFirstLayer(path)
	if err != nil {
		return nil, nil, err
	}
	defer closeDataset(ds)

	var tiles []tiletools.Tile
	idx := int64(0)
	for {
		f := layer.NextFeature()
		if f == nil {
			break
		}
		geom, err := detachGeometry(f.Geometry(), sr)
		if err != nil {
			return nil, nil, err
		}
		if geom == nil {
			idx++
			continue
		}
		fields := f.Fields()
		id := idx
		if fld, ok := fields["id"]; ok {
			id = fld.Int()
		}
		attrs := make(map[string]interface{}, len(fields))
		for name, fld := range fields {
			if name == "id" {
				continue
			}
			attrs[name] = fieldValue(fld)
		}
		tiles = append(tiles, tiletools.Tile{ID: id, Geom: geom, Attrs: attrs})
		idx++
	}
	return tiles, sr, nil
}

// ReadFlightPolygons loads the flight-area polygons. A dataset whose
// features lack the flight identifier column is a configuration error.
func ReadFlightPolygons(path, flightField string) ([]tiletools.FlightPolygon, *godal.SpatialRef, error) {
	ds, layer, sr, err := openFirstLayer(path)
	if err != nil {
		return nil, nil, err
	}
	defer closeDataset(ds)

	var polys []tiletools.FlightPolygon
	sawField := false
	fid := int64(0)
	for {
		f := layer.NextFeature()
		if f == nil {
			break
		}
		geom, err := detachGeometry(f.Geometry(), sr)
		if err != nil {
			return nil, nil, err
		}
		if geom == nil {
			fid++
			continue
		}
		flightID := ""
		if fld, ok := f.Fields()[flightField]; ok {
			sawField = true
			flightID = fld.String()
		}
		polys = append(polys, tiletools.FlightPolygon{FID: fid, FlightID: flightID, Geom: geom})
		fid++
	}
	if len(polys) > 0 && !sawField {
		return nil, nil, fmt.Errorf("polygon field %q not found in %s", flightField, path)
	}
	return polys, sr, nil
}

// WriteFlightTiles writes one GeoPackage per flight into outDir, each
// holding the flight's assigned tiles in a single "tiles" layer. Existing
// files are overwritten. Returns the written paths keyed by flight id.
func WriteFlightTiles(outDir string, assigned []tiletools.AssignedTile, sr *godal.SpatialRef, flightField string) (map[string]string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, err
	}

	byFlight := make(map[string][]tiletools.AssignedTile)
	for _, a := range assigned {
		byFlight[a.FlightID] = append(byFlight[a.FlightID], a)
	}
	flightIDs := make([]string, 0, len(byFlight))
	for id := range byFlight {
		flightIDs = append(flightIDs, id)
	}
	sort.Strings(flightIDs)

	written := make(map[string]string, len(flightIDs))
	nameOwner := make(map[string]string)
	for _, flightID := range flightIDs {
		safe := tiletools.SafeName(flightID)
		if prev, ok := nameOwner[safe]; ok {
			logrus.Warnf("flight ids %q and %q both sanitize to %q, the earlier output is overwritten", prev, flightID, safe)
		}
		nameOwner[safe] = flightID

		path := filepath.Join(outDir, fmt.Sprintf("flight_%s.gpkg", safe))
		group := byFlight[flightID]
		if err := writeTileGPKG(path, group, sr, flightField); err != nil {
			return nil, fmt.Errorf("flight %q: %w", flightID, err)
		}
		logrus.Infof("wrote %d tiles -> %s", len(group), filepath.Base(path))
		written[flightID] = path
	}
	return written, nil
}

func writeTileGPKG(path string, tiles []tiletools.AssignedTile, sr *godal.SpatialRef, flightField string) error {
	if _, err := os.Stat(path); err == nil {
		if err := os.Remove(path); err != nil {
			return err
		}
	}

	ds, err := godal.CreateVector(godal.GeoPackage, path)
	if err != nil {
		return err
	}
	defer closeDataset(ds)

	attrKeys := attributeKeys(tiles)
	defs := []godal.CreateLayerOption{
		godal.NewFieldDefinition("id", godal.FTInt64),
	}
	for _, k := range attrKeys {
		defs = append(defs, godal.NewFieldDefinition(k, attrFieldType(tiles[0].Attrs[k])))
	}
	defs = append(defs,
		godal.NewFieldDefinition("poly_fid", godal.FTInt64),
		godal.NewFieldDefinition("poly_"+flightField, godal.FTString),
		godal.NewFieldDefinition("poly_overlap_area", godal.FTReal),
	)
	layer, err := ds.CreateLayer(TileLayerName, sr, godal.GTPolygon, defs...)
	if err != nil {
		return err
	}

	for _, tile := range tiles {
		f, err := layer.NewFeature(tile.Geom)
		if err != nil {
			return err
		}
		vals := map[string]interface{}{
			"id":                  tile.ID,
			"poly_fid":            tile.PolyFID,
			"poly_" + flightField: tile.FlightID,
			"poly_overlap_area":   tile.OverlapArea,
		}
		for _, k := range attrKeys {
			if v, ok := tile.Attrs[k]; ok {
				vals[k] = v
			}
		}
		if err := setFields(layer, f, vals); err != nil {
			return err
		}
	}
	return nil
}

// ReadFlightTileSet loads flight_<n>.gpkg (or the zero-padded
// flight_0<n>.gpkg fallback) from dir, reduced to ids and geometries.
func ReadFlightTileSet(dir string, flight int) (*zonaltools.TileSet, string, error) {
	path := filepath.Join(dir, fmt.Sprintf("flight_%d.gpkg", flight))
	if _, err := os.Stat(path); err != nil {
		alt := filepath.Join(dir, fmt.Sprintf("flight_%02d.gpkg", flight))
		if _, err := os.Stat(alt); err != nil {
			return nil, "", fmt.Errorf("no tile-set file for flight %d in %s", flight, dir)
		}
		path = alt
	}

	ds, layer, sr, err := openFirstLayer(path)
	if err != nil {
		return nil, "", err
	}
	defer closeDataset(ds)

	ts := &zonaltools.TileSet{SR: sr}
	idx := int64(0)
	for {
		f := layer.NextFeature()
		if f == nil {
			break
		}
		geom, err := detachGeometry(f.Geometry(), sr)
		if err != nil {
			return nil, "", err
		}
		if geom == nil {
			idx++
			continue
		}
		id := idx
		if fld, ok := f.Fields()["id"]; ok {
			id = fld.Int()
		}
		ts.IDs = append(ts.IDs, id)
		ts.Geoms = append(ts.Geoms, geom)
		idx++
	}
	return ts, path, nil
}

func openFirstLayer(path string) (*godal.Dataset, godal.Layer, *godal.SpatialRef, error) {
	ds, err := godal.Open(path, godal.VectorOnly())
	if err != nil {
		return nil, godal.Layer{}, nil, err
	}
	layers := ds.Layers()
	if len(layers) == 0 {
		closeDataset(ds)
		return nil, godal.Layer{}, nil, fmt.Errorf("%s has no layers", path)
	}
	layer := layers[0]
	layer.ResetReading()

	var sr *godal.SpatialRef
	if lsr := layer.SpatialRef(); lsr != nil {
		wkt, err := lsr.WKT()
		if err != nil {
			closeDataset(ds)
			return nil, godal.Layer{}, nil, err
		}
		sr, err = godal.NewSpatialRefFromWKT(wkt)
		if err != nil {
			closeDataset(ds)
			return nil, godal.Layer{}, nil, err
		}
	}
	return ds, layer, sr, nil
}

// detachGeometry copies a feature-owned geometry so it survives the
// dataset being closed. Empty geometries come back nil.
func detachGeometry(geom *godal.Geometry, sr *godal.SpatialRef) (*godal.Geometry, error) {
	if geom == nil || geom.Empty() {
		return nil, nil
	}
	wkt, err := geom.WKT()
	if err != nil {
		return nil, err
	}
	return godal.NewGeometryFromWKT(wkt, sr)
}

func setFields(layer godal.Layer, f *godal.Feature, vals map[string]interface{}) error {
	fields := f.Fields()
	for name, v := range vals {
		fld, ok := fields[name]
		if !ok {
			return fmt.Errorf("layer has no field %q", name)
		}
		if err := f.SetFieldValue(fld, v); err != nil {
			return fmt.Errorf("field %q: %w", name, err)
		}
	}
	return layer.UpdateFeature(f)
}

func fieldValue(fld godal.Field) interface{} {
	switch fld.Type() {
	case godal.FTInt, godal.FTInt64:
		return fld.Int()
	case godal.FTReal:
		return fld.Float()
	default:
		return fld.String()
	}
}

func attrFieldType(v interface{}) godal.FieldType {
	switch v.(type) {
	case int, int32, int64:
		return godal.FTInt64
	case float32, float64:
		return godal.FTReal
	default:
		return godal.FTString
	}
}

func attributeKeys(tiles []tiletools.AssignedTile) []string {
	if len(tiles) == 0 {
		return nil
	}
	keys := make([]string, 0, len(tiles[0].Attrs))
	for k := range tiles[0].Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func closeDataset(ds *godal.Dataset) {
	if err := ds.Close(); err != nil {
		logrus.Error(err)
	}
}
