// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/pdiddy/florafind/internal/search"
)

var searchCmd = &cobra.Command{
	Use:   "search <term>",
	Short: "Find PubMed articles about a plant",
	Long: `Search queries PubMed for articles whose title or abstract mentions the
term and prints their canonical URLs in relevance order. A failed lookup
prints no articles rather than an error; run with --log-level debug or
--stats to see why.

Use --save to keep the result in a YAML query file and --load to print a saved
file again without contacting PubMed.`,
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().Int("max-results", 0, "maximum number of articles (default from config, 5)")
	searchCmd.Flags().Bool("json", false, "output results as JSON")
	searchCmd.Flags().String("save", "", "write the query and its articles to a YAML file")
	searchCmd.Flags().String("load", "", "print a saved query file instead of searching")
	searchCmd.Flags().Bool("stats", false, "print lookup outcome counts to stderr")

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	if loadPath, _ := cmd.Flags().GetString("load"); loadPath != "" {
		qf, err := search.ReadQueryFile(loadPath)
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stderr, loadedSummary(qf))
		return printSearchOutput(os.Stdout, qf.Output(), jsonOutput)
	}

	q := search.Query{Term: strings.Join(args, " ")}
	if q.IsEmpty() {
		return fmt.Errorf("provide a search term, e.g. florafind search \"Monstera deliciosa\"")
	}
	maxResults, err := maxResultsFlag(cmd, appConfig.PubMed.MaxResults)
	if err != nil {
		return err
	}
	q.MaxResults = maxResults

	var opts []search.Option
	var reader *sdkmetric.ManualReader
	if stats, _ := cmd.Flags().GetBool("stats"); stats {
		reader = sdkmetric.NewManualReader()
		opts = append(opts, search.WithMeterProvider(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))))
	}

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Fprintf(os.Stderr, "Searching PubMed for %q (max %d)...\n", q.Term, q.MaxResults)
	articles := newPubMed(opts...).Search(ctx, q.Term, q.MaxResults)

	if reader != nil {
		printLookupStats(ctx, reader, os.Stderr)
	}

	if savePath, _ := cmd.Flags().GetString("save"); savePath != "" {
		if err := search.WriteQueryFile(savePath, q, articles); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Saved %d article(s) to %s\n", len(articles), savePath)
	}

	return printSearchOutput(os.Stdout, search.Output{Term: q.Term, Articles: articles}, jsonOutput)
}

// maxResultsFlag returns --max-results when it was given, including an
// explicit 0, and fallback otherwise.
func maxResultsFlag(cmd *cobra.Command, fallback int) (int, error) {
	if !cmd.Flags().Changed("max-results") {
		return fallback, nil
	}
	n, err := cmd.Flags().GetInt("max-results")
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("--max-results must be zero or more, got %d", n)
	}
	return n, nil
}

// loadedSummary describes a saved query file for the --load progress line.
func loadedSummary(qf *search.QueryFile) string {
	q := qf.Query.ToQuery()
	return fmt.Sprintf("Loaded %q (max %d, %d article(s), saved %s)",
		q.Term, q.MaxResults, qf.Summary.Total, qf.Summary.Timestamp.Format(time.RFC3339))
}

func printSearchOutput(w io.Writer, out search.Output, jsonOutput bool) error {
	if jsonOutput {
		return search.FormatJSON(out, w)
	}
	search.FormatTable(out, w)
	return nil
}

// printLookupStats writes the outcome counts recorded by the search client.
func printLookupStats(ctx context.Context, reader *sdkmetric.ManualReader, w io.Writer) {
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		fmt.Fprintf(w, "warning: collecting lookup stats: %v\n", err)
		return
	}

	counts := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				outcome, _ := dp.Attributes.Value(attribute.Key("outcome"))
				counts[outcome.AsString()] += dp.Value
			}
		}
	}

	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "pubmed lookups %s=%d\n", k, counts[k])
	}
}
