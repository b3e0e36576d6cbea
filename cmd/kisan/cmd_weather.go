package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shashiranjanraj/kisanbazaar/pkg/weather"
)

// kisan weather [city]
var weatherCmd = &cobra.Command{
	Use:   "weather [city]",
	Short: "Current weather for the farming hubs, or for one city",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := weather.New()
		out := cmd.OutOrStdout()

		if city := strings.TrimSpace(strings.Join(args, " ")); city != "" {
			cond, err := client.Lookup(cmd.Context(), city)
			if errors.Is(err, weather.ErrCityNotFound) {
				fmt.Fprintln(out, "City not found.")
				return nil
			}
			if err != nil {
				return err
			}
			printConditions(out, *cond)
			return nil
		}

		for _, r := range client.LookupAll(cmd.Context(), weather.DefaultCities) {
			if errors.Is(r.Err, weather.ErrNoAPIKey) {
				return r.Err
			}
			if r.Err != nil {
				fmt.Fprintf(out, "%-10s  unavailable\n", r.City)
				continue
			}
			printConditions(out, *r.Conditions)
		}
		return nil
	},
}

func printConditions(out io.Writer, c weather.Conditions) {
	fmt.Fprintf(out, "%-10s  %3d°C  %-18s  %3d%% humidity  %4.1f m/s wind\n",
		c.City, c.TempC, c.Description, c.Humidity, c.WindSpeed)
}
