package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"showroom/internal/catalog"
	"showroom/internal/config"
	"showroom/internal/playback"
)

var probeReelFile string

var probeCmd = &cobra.Command{
	Use:   "probe [source...]",
	Short: "Check that media sources are reachable the way a session would",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadEnv(envFiles...); err != nil {
			return err
		}
		cfg := config.FromEnv()
		sources := args
		if probeReelFile != "" {
			fromFile, err := reelSources(probeReelFile)
			if err != nil {
				return err
			}
			sources = append(sources, fromFile...)
		}
		if len(sources) == 0 {
			return fmt.Errorf("no sources given")
		}
		prober, err := playback.NewHTTPProber(&http.Client{Timeout: cfg.Probe.Timeout}, cfg.Probe.BaseURL)
		if err != nil {
			return err
		}
		results, err := probeAll(cmd.Context(), prober, sources, cfg.Probe.Concurrency)
		if err != nil {
			return err
		}
		failed, err := printResults(cmd.OutOrStdout(), sources, results)
		if err != nil {
			return err
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d sources unreachable", failed, len(sources))
		}
		return nil
	},
}

func init() {
	probeCmd.Flags().StringVar(&probeReelFile, "reel", "", "JSON reel file whose item sources are probed")
	rootCmd.AddCommand(probeCmd)
}

func reelSources(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reel catalog.Reel
	if err := json.Unmarshal(data, &reel); err != nil {
		return nil, fmt.Errorf("parse reel %s: %w", path, err)
	}
	out := make([]string, 0, len(reel.Items))
	for _, it := range reel.Items {
		out = append(out, it.Source)
	}
	return out, nil
}

// probeAll probes every source with at most limit requests in flight.
func probeAll(ctx context.Context, prober playback.Prober, sources []string, limit int) ([]playback.ProbeResult, error) {
	results := make([]playback.ProbeResult, len(sources))
	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			results[i] = prober.Probe(ctx, src)
			return nil
		})
	}
	return results, g.Wait()
}

// printResults renders one row per source and returns how many were
// unreachable.
func printResults(out io.Writer, sources []string, results []playback.ProbeResult) (int, error) {
	table := tablewriter.NewWriter(out)
	if err := table.Append([]string{"SOURCE", "REACHABLE", "STATUS", "LATENCY", "REASON"}); err != nil {
		return 0, fmt.Errorf("append header row: %w", err)
	}
	failed := 0
	for i, res := range results {
		if !res.Reachable {
			failed++
		}
		status := "-"
		if res.Status > 0 {
			status = fmt.Sprint(res.Status)
		}
		row := []string{sources[i], fmt.Sprint(res.Reachable), status, res.Latency.Round(time.Millisecond).String(), res.Reason}
		if err := table.Append(row); err != nil {
			return failed, fmt.Errorf("append row %s: %w", sources[i], err)
		}
	}
	if err := table.Render(); err != nil {
		return failed, fmt.Errorf("render table: %w", err)
	}
	return failed, nil
}
