package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/sells-group/school-tracker/pkg/geocode"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect the geocode cache",
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached queries in key order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCacheList(cmd.OutOrStdout(), cfg.Geocode.CacheFile)
	},
}

func runCacheList(out io.Writer, path string) error {
	c, err := geocode.LoadCache(path)
	if err != nil {
		return err
	}
	for _, k := range c.Keys() {
		e, _ := c.Get(k)
		fmt.Fprintf(out, "%s\t%s\t%s\n", k, e.Address, e.Coord)
	}
	fmt.Fprintf(out, "%d entries in %s\n", c.Len(), path)
	return nil
}

func init() {
	cacheCmd.AddCommand(cacheListCmd)
	rootCmd.AddCommand(cacheCmd)
}
