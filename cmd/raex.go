package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/school-tracker/internal/fetcher"
	"github.com/sells-group/school-tracker/internal/rating"
)

var raexCmd = &cobra.Command{
	Use:   "raex URL|FILE",
	Short: "Convert a RAEX rating page into rating file lines",
	Long: `Downloads a RAEX school rating page (or reads a saved copy) and prints
one tab-separated line per school, ready for "map" or "parse".

Examples:
  school-tracker raex https://raex-rr.com/education/best_schools/top-100_russian_schools/2023/ > top100.txt`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRaex(cmd.Context(), cmd.OutOrStdout(), fetcher.NewHTTPFetcher(fetcher.HTTPOptions{}), args[0])
	},
}

func openPage(ctx context.Context, f *fetcher.HTTPFetcher, src string) (io.Reader, func(), error) {
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		r, err := f.DownloadHTML(ctx, src)
		return r, func() {}, err
	}
	file, err := os.Open(src)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "raex: open %s", src)
	}
	return file, func() { _ = file.Close() }, nil
}

func runRaex(ctx context.Context, out io.Writer, f *fetcher.HTTPFetcher, src string) error {
	page, done, err := openPage(ctx, f, src)
	if err != nil {
		return err
	}
	defer done()

	rows, err := rating.ScrapeTable(page)
	if err != nil {
		return err
	}
	for i, r := range rows {
		fmt.Fprintln(out, r.Line(i+1))
	}
	return nil
}

func init() {
	rootCmd.AddCommand(raexCmd)
}
