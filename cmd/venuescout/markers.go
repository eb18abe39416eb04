package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rewired-gh/venuescout/internal/models"
	"github.com/rewired-gh/venuescout/internal/state"
)

func markersCmd() *cobra.Command {
	var activeOnly bool
	var hoods []string
	var output string
	cmd := &cobra.Command{
		Use:   "markers",
		Short: "Fetch, filter and resolve once, then print the marker descriptors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMarkers(cmd, activeOnly, hoods, output)
		},
	}
	cmd.Flags().BoolVar(&activeOnly, "active", false, "Only events marked active")
	cmd.Flags().StringArrayVar(&hoods, "hood", nil, "Neighborhood to include (repeatable)")
	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format: table, json or yaml")
	return cmd
}

func runMarkers(cmd *cobra.Command, activeOnly bool, hoods []string, output string) error {
	if output != "table" && output != "json" && output != "yaml" {
		return fmt.Errorf("unknown output format %q", output)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx := context.Background()
	c := buildComponents(cfg)

	events, err := c.fetcher.Fetch(ctx)
	if err != nil {
		return err
	}

	sel := state.FilterSelection{ActiveOnly: activeOnly}
	for _, h := range hoods {
		sel.ToggleNeighborhood(h)
	}
	visible := state.VisibleEvents(events, sel)

	_, failures := c.engine.Reconcile(ctx, visible)
	for _, f := range failures {
		fmt.Fprintf(os.Stderr, "skipped %s: %s\n", f.PlaceID, f.Kind)
	}

	return writeMarkers(os.Stdout, c.engine.Markers(), output)
}

func writeMarkers(w io.Writer, markers []models.Marker, output string) error {
	switch output {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(markers)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(markers); err != nil {
			return err
		}
		return enc.Close()
	}

	if len(markers) == 0 {
		fmt.Fprintln(w, "No markers.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tLABEL\tLAT\tLNG\tSNIPPET")
	for _, m := range markers {
		fmt.Fprintf(tw, "%s\t%s\t%.6f\t%.6f\t%s\n", m.Identifier, m.Label, m.Coordinate.Latitude, m.Coordinate.Longitude, m.Snippet)
	}
	return tw.Flush()
}
