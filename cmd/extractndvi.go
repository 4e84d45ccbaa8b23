package cmd

import (
	"fmt"
	"math"
	"time"

	"flight-tools/flightio"
	"flight-tools/zonaltools"

	"github.com/airbusgeo/godal"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var numWorkers int
var allTouched bool
var nodata float64
var keepCounts bool
var rasterName string
var outTemplate string
var taskTimeout time.Duration
var writeParquet bool

// extractndviCmd represents the extractndvi command
var extractndviCmd = &cobra.Command{
	Use:   "extractndvi [data_root] [flight_areas_dir]",
	Short: "Extract per-tile NDVI time series for every flight",
	Long: `For every flight folder (F1, F2, ...) under data_root, compute
	mean and standard deviation of NDVI per tile per date against the
	flight's tile set from flight_areas_dir, and write one wide
	time-series CSV into the flight folder. Flights run in parallel on
	a bounded worker pool; one flight's failure never stops the rest.

	Options:
		--numWorkers: Worker pool size. 0 chooses min(NumCPU-1, flights).
		--allTouched: Count every pixel the tile polygon touches.
		--nodata:     Override the rasters' nodata value.
		--timeout:    Per-flight wall-time bound, e.g. 30m. 0 disables.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		setLogLevels()
		godal.RegisterAll()

		cfg := zonaltools.DefaultConfig(args[0], args[1])
		cfg.RasterName = viper.GetString("rasterName")
		cfg.AllTouched = viper.GetBool("allTouched")
		cfg.KeepCounts = viper.GetBool("keepCounts")
		cfg.OutTemplate = viper.GetString("outTemplate")
		cfg.MaxWorkers = viper.GetInt("numWorkers")
		cfg.Timeout = viper.GetDuration("timeout")
		cfg.Parquet = viper.GetBool("parquet")
		if nd := viper.GetFloat64("nodata"); !math.IsNaN(nd) {
			cfg.Nodata = &nd
		}
		cfg.ReadTileSet = flightio.ReadFlightTileSet
		cfg.WriteTable = flightio.WriteTimeSeriesCSV
		cfg.WriteParquet = flightio.WriteTimeSeriesParquet

		results, err := zonaltools.Run(cfg)
		if err != nil {
			return err
		}

		fmt.Println("Summary:")
		for _, r := range results {
			fmt.Printf(" Flight %d: %s - %s\n", r.Flight, r.Status, r.Message)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(extractndviCmd)

	extractndviCmd.Flags().IntVarP(&numWorkers, "numWorkers", "n", 0, "Worker pool size, 0 chooses min(NumCPU-1, flights)")
	err := viper.BindPFlag("numWorkers", extractndviCmd.Flags().Lookup("numWorkers"))
	if err != nil {
		logrus.Exit(1)
	}

	extractndviCmd.Flags().BoolVarP(&allTouched, "allTouched", "a", false, "Count every pixel the tile polygon touches")
	err = viper.BindPFlag("allTouched", extractndviCmd.Flags().Lookup("allTouched"))
	if err != nil {
		logrus.Exit(1)
	}

	extractndviCmd.Flags().Float64Var(&nodata, "nodata", math.NaN(), "Override the rasters' nodata value")
	err = viper.BindPFlag("nodata", extractndviCmd.Flags().Lookup("nodata"))
	if err != nil {
		logrus.Exit(1)
	}

	extractndviCmd.Flags().BoolVarP(&keepCounts, "keepCounts", "c", false, "Keep per-date pixel-count columns in the output")
	err = viper.BindPFlag("keepCounts", extractndviCmd.Flags().Lookup("keepCounts"))
	if err != nil {
		logrus.Exit(1)
	}

	extractndviCmd.Flags().StringVarP(&rasterName, "rasterName", "r", "NDVI.data.tif", "Raster filename expected inside each date folder")
	err = viper.BindPFlag("rasterName", extractndviCmd.Flags().Lookup("rasterName"))
	if err != nil {
		logrus.Exit(1)
	}

	extractndviCmd.Flags().StringVarP(&outTemplate, "outTemplate", "o", "zonal_stats_timeseries_flight%d.csv", "Per-flight output filename template")
	err = viper.BindPFlag("outTemplate", extractndviCmd.Flags().Lookup("outTemplate"))
	if err != nil {
		logrus.Exit(1)
	}

	extractndviCmd.Flags().DurationVarP(&taskTimeout, "timeout", "t", 0, "Per-flight wall-time bound, 0 disables")
	err = viper.BindPFlag("timeout", extractndviCmd.Flags().Lookup("timeout"))
	if err != nil {
		logrus.Exit(1)
	}

	extractndviCmd.Flags().BoolVarP(&writeParquet, "parquet", "p", false, "Also write a long-form parquet table per flight")
	err = viper.BindPFlag("parquet", extractndviCmd.Flags().Lookup("parquet"))
	if err != nil {
		logrus.Exit(1)
	}
}
