package main

import (
	"fmt"
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/moorebrett0/digicord/internal/species"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog [path]",
	Short: "Validate a species database and print a summary",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfg.Catalog.Path
		if len(args) == 1 {
			path = args[0]
		}

		catalog, err := species.LoadFile(path)
		if err != nil {
			return err
		}

		fmt.Printf("%s: %d species, numbers %d-%d\n", path, catalog.Len(), catalog.Min(), catalog.Max())
		counts := catalog.StageCounts()
		for _, stage := range slices.Sorted(maps.Keys(counts)) {
			fmt.Printf("  %-12s %d\n", stage, counts[stage])
		}
		return nil
	},
}
