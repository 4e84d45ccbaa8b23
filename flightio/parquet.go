package flightio

import (
	"os"

	"flight-tools/zonaltools"

	"github.com/parquet-go/parquet-go"
	"github.com/sirupsen/logrus"
)

// StatRow is the long-form parquet record: one row per tile per date.
// Mean and Std are absent for null cells; a failed date has all three
// value fields absent.
type StatRow struct {
	TileID int64    `parquet:"tile_id, type=INT64"`
	Date   string   `parquet:"date, type=UTF8"`
	Mean   *float64 `parquet:"mean, optional"`
	Std    *float64 `parquet:"std, optional"`
	Count  *int64   `parquet:"count, optional"`
}

// WriteTimeSeriesParquet writes the time series in long form. The wide
// CSV's column set varies per flight; parquet needs a static schema, so
// dates become rows here.
func WriteTimeSeriesParquet(path string, t *zonaltools.TimeSeries) error {
	output, err := os.Create(path)
	if err != nil {
		return err
	}

	schema := parquet.SchemaOf(new(StatRow))
	writer := parquet.NewGenericWriter[StatRow](output, schema, parquet.Compression(&parquet.Snappy))
	defer func() {
		if err := writer.Close(); err != nil {
			logrus.Error(err)
		}
		if err := output.Close(); err != nil {
			logrus.Error(err)
		}
	}()

	rows := make([]StatRow, 0, len(t.IDs)*len(t.Columns))
	for i, id := range t.IDs {
		for _, col := range t.Columns {
			row := StatRow{TileID: id, Date: col.Token}
			if !col.Failed {
				st := col.Stats[i]
				count := st.Count
				row.Mean = st.Mean
				row.Std = st.Std
				row.Count = &count
			}
			rows = append(rows, row)
		}
	}
	if _, err := writer.Write(rows); err != nil {
		return err
	}
	return writer.Flush()
}
