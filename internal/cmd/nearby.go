package cmd

import (
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"geomarket/internal/domain"
	"geomarket/internal/service"
)

var nearbyFlags struct {
	lat, lng, radius float64
	name             string
}

var nearbyCmd = &cobra.Command{
	Use:   "nearby",
	Short: "Run a cached nearby product search and print the result table",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, cfg, false)
		if err != nil {
			return err
		}
		defer a.Close()

		params := service.NearbyParams{
			Center:   domain.GeoPoint{Lat: nearbyFlags.lat, Lng: nearbyFlags.lng},
			RadiusKm: nearbyFlags.radius,
		}
		if cmd.Flags().Changed("name") {
			params.Name = &nearbyFlags.name
		}
		res, err := a.services.Search.Nearby(ctx, params)
		if err != nil {
			return err
		}
		return renderNearby(cmd.OutOrStdout(), res)
	},
}

func init() {
	f := nearbyCmd.Flags()
	f.Float64Var(&nearbyFlags.lat, "lat", 0, "latitude of the search center")
	f.Float64Var(&nearbyFlags.lng, "lng", 0, "longitude of the search center")
	f.Float64Var(&nearbyFlags.radius, "radius", 0, "search radius, km")
	f.StringVar(&nearbyFlags.name, "name", "", "case-insensitive product name filter")
	_ = nearbyCmd.MarkFlagRequired("lat")
	_ = nearbyCmd.MarkFlagRequired("lng")
	_ = nearbyCmd.MarkFlagRequired("radius")
	rootCmd.AddCommand(nearbyCmd)
}

func renderNearby(w io.Writer, res []domain.NearbyProduct) error {
	table := tablewriter.NewWriter(w)
	table.Header("ID", "Product", "Merchant", "Price", "Distance km")
	for _, p := range res {
		if err := table.Append([]string{
			strconv.FormatInt(p.ID, 10),
			p.Name,
			p.MerchantName,
			p.Price.StringFixed(2),
			strconv.FormatFloat(p.DistanceKm, 'f', 3, 64),
		}); err != nil {
			return err
		}
	}
	return table.Render()
}
