package flightio

import (
	"encoding/csv"
	"os"
	"strconv"

	"flight-tools/zonaltools"

	"github.com/sirupsen/logrus"
)

// WriteTimeSeriesCSV writes the wide time-series table: one row per tile
// in tile-set order, columns id then (mean_<date>, std_<date>) pairs in
// processed-date order, with count_<date> appended per date when
// keepCounts is set. Null statistics become empty cells.
func WriteTimeSeriesCSV(path string, t *zonaltools.TimeSeries, keepCounts bool) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if err := f.Close(); err != nil {
			logrus.Error(err)
		}
	}()

	w := csv.NewWriter(f)

	header := []string{"id"}
	for _, col := range t.Columns {
		header = append(header, "mean_"+col.Token, "std_"+col.Token)
		if keepCounts {
			header = append(header, "count_"+col.Token)
		}
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for i, id := range t.IDs {
		row := []string{strconv.FormatInt(id, 10)}
		for _, col := range t.Columns {
			if col.Failed {
				row = append(row, "", "")
				if keepCounts {
					row = append(row, "")
				}
				continue
			}
			st := col.Stats[i]
			row = append(row, formatStat(st.Mean), formatStat(st.Std))
			if keepCounts {
				row = append(row, strconv.FormatInt(st.Count, 10))
			}
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func formatStat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'g', -1, 64)
}
