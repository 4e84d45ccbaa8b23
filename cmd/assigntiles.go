// Package cmd /*
package cmd

import (
	"fmt"

	"flight-tools/flightio"
	"flight-tools/tiletools"

	"github.com/airbusgeo/godal"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var flightField string

// assigntilesCmd represents the assigntiles command
var assigntilesCmd = &cobra.Command{
	Use:   "assigntiles [grid_gpkg] [polygons_gpkg] [out_dir]",
	Short: "Assign grid tiles to flight polygons by largest overlap",
	Long: `Assign every tile of a regular grid to the flight-area polygon
	with the largest intersection area. Tiles with no overlapping
	polygon, and tiles whose best polygon carries no flight identifier,
	are dropped. One GeoPackage per flight is written into out_dir,
	each with a single 'tiles' layer.

	Options:
		--flightField: Attribute column of the polygon layer holding the
									 flight identifier.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		setLogLevels()
		godal.RegisterAll()

		field := viper.GetString("flightField")

		tiles, gridSR, err := flightio.ReadTileLayer(args[0])
		if err != nil {
			return fmt.Errorf("reading grid: %w", err)
		}
		polys, polySR, err := flightio.ReadFlightPolygons(args[1], field)
		if err != nil {
			return fmt.Errorf("reading polygons: %w", err)
		}
		logrus.Infof("grid tiles: %d, polygons: %d", len(tiles), len(polys))

		if err := tiletools.AlignCRS(polys, polySR, gridSR); err != nil {
			return fmt.Errorf("reprojecting polygons: %w", err)
		}

		assigned, err := tiletools.AssignTiles(tiles, polys)
		if err != nil {
			return err
		}
		logrus.Infof("assigned tiles: %d", len(assigned))

		written, err := flightio.WriteFlightTiles(args[2], assigned, gridSR, field)
		if err != nil {
			return err
		}
		fmt.Printf("Assigned %d tiles across %d flights, wrote %d GeoPackage(s) to %s\n",
			len(assigned), len(written), len(written), args[2])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(assigntilesCmd)

	assigntilesCmd.Flags().StringVarP(&flightField, "flightField", "f", "FlightID", "Polygon attribute holding the flight identifier")
	err := viper.BindPFlag("flightField", assigntilesCmd.Flags().Lookup("flightField"))
	if err != nil {
		logrus.Exit(1)
	}
}
