package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sells-group/school-tracker/internal/rating"
)

var (
	parseEncoding string
	parseCity     string
)

var parseCmd = &cobra.Command{
	Use:   "parse RATING",
	Short: "Print the schools parsed from a rating file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runParse(cmd.OutOrStdout(), args[0], parseEncoding, cfg.Region.City, parseCity)
	},
}

func runParse(out io.Writer, path, encoding, defaultCity, city string) error {
	res, err := rating.ParseFile(path, encoding, defaultCity)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "Schools:")
	n := 0
	for _, s := range res.Schools {
		if city != "" && !strings.Contains(s.City, city) {
			continue
		}
		fmt.Fprintf(out, "  %s\n", s)
		n++
	}
	fmt.Fprintf(out, "%d schools, %d lines skipped\n", n, len(res.Warnings))
	return nil
}

func init() {
	parseCmd.Flags().StringVar(&parseEncoding, "encoding", "", "rating file encoding (default utf-8)")
	parseCmd.Flags().StringVar(&parseCity, "city", "", "only print schools whose city contains this text")
	rootCmd.AddCommand(parseCmd)
}
