package zonaltools

// TileStats is one tile's statistics for one date. Mean and Std are nil
// when no pixels fell inside the tile.
type TileStats struct {
	Mean  *float64
	Std   *float64
	Count int64
}

// DateColumn is one processed date. Failed marks a raster that could not
// be read or computed; its Stats are nil and every cell is null.
type DateColumn struct {
	Token  string
	Failed bool
	Stats  []TileStats
}

// TimeSeries accumulates per-date statistics into a wide table: one row
// per tile in tile-set order, one column group per date in processed
// order.
type TimeSeries struct {
	IDs     []int64
	Columns []DateColumn
}

func NewTimeSeries(ids []int64) *TimeSeries {
	return &TimeSeries{IDs: ids}
}

// AddDate appends a processed date. len(stats) must equal len(t.IDs).
func (t *TimeSeries) AddDate(token string, stats []TileStats) {
	t.Columns = append(t.Columns, DateColumn{Token: token, Stats: stats})
}

// AddNullDate appends a failed date whose cells are all null.
func (t *TimeSeries) AddNullDate(token string) {
	t.Columns = append(t.Columns, DateColumn{Token: token, Failed: true})
}

// NDates reports how many dates the table holds, failed ones included.
func (t *TimeSeries) NDates() int {
	return len(t.Columns)
}
