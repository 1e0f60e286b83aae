package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/school-tracker/internal/config"
	"github.com/sells-group/school-tracker/internal/pipeline"
	"github.com/sells-group/school-tracker/internal/report"
	"github.com/sells-group/school-tracker/pkg/geocode"
)

var (
	mapCacheOnly bool
	mapEncoding  string
	mapOut       string
)

var mapCmd = &cobra.Command{
	Use:   "map RATING",
	Short: "Resolve a rating file and render the school map",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if mapCacheOnly {
			cfg.Geocode.CacheOnly = true
		}
		if mapOut != "" {
			cfg.Report.Dir = mapOut
		}
		return runMap(cmd.Context(), cmd.OutOrStdout(), cfg, pipeline.Input{Path: args[0], Encoding: mapEncoding})
	},
}

// newResolver builds the cache-backed resolver. No search client is created
// in cache-only mode.
func newResolver(c *config.Config) *geocode.Resolver {
	var searcher geocode.Searcher
	if !c.Geocode.CacheOnly {
		searcher = geocode.NewClient(c.Geocode.APIKey,
			geocode.WithVerifyTLS(c.Geocode.VerifyTLS),
			geocode.WithBaseURL(c.Geocode.BaseURL),
			geocode.WithLang(c.Geocode.Lang),
			geocode.WithRateLimit(c.Geocode.RatePerSec),
		)
	}
	return geocode.NewResolver(searcher, c.Geocode.CacheFile, geocode.WithCacheOnly(c.Geocode.CacheOnly))
}

func runMap(ctx context.Context, out io.Writer, c *config.Config, in pipeline.Input) (err error) {
	if err := c.Validate(); err != nil {
		return err
	}

	resolver := newResolver(c)
	defer func() {
		if cerr := resolver.Close(); cerr != nil {
			zap.L().Error("failed to write geocode cache", zap.Error(cerr))
			if err == nil {
				err = cerr
			}
		}
	}()

	res, err := pipeline.New(c, resolver).Run(ctx, in)
	if err != nil {
		return err
	}

	region := c.RegionDescriptor()
	paths, err := report.Write(c.Report.Dir, res.Records, report.Options{
		Title:     "Школы: " + region.City,
		MapAPIKey: c.Report.MapAPIKey,
		Center:    region.Center,
		RunID:     res.RunID,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "schools: %d mapped, %d unresolved, %d outside %s, %d lines skipped\n",
		len(res.Records), res.Unresolved, res.Filtered, region.City, res.Skipped)
	if res.Houses > 0 {
		fmt.Fprintf(out, "houses: %d\n", res.Houses)
	}
	fmt.Fprintf(out, "map: %s\n", paths.Index)
	return nil
}

func init() {
	mapCmd.Flags().BoolVar(&mapCacheOnly, "cache-only", false, "never call the search API; use cached results only")
	mapCmd.Flags().StringVar(&mapEncoding, "encoding", "", "rating file encoding (default utf-8)")
	mapCmd.Flags().StringVar(&mapOut, "out", "", "report directory (overrides report.dir)")
	rootCmd.AddCommand(mapCmd)
}
