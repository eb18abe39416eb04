package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rewired-gh/venuescout/internal/state"
)

func neighborhoodsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "neighborhoods",
		Short: "Print every neighborhood across the fetched events",
		Args:  cobra.NoArgs,
		RunE:  runNeighborhoods,
	}
}

func runNeighborhoods(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	c := buildComponents(cfg)

	events, err := c.fetcher.Fetch(context.Background())
	if err != nil {
		return err
	}

	hoods := state.UniqueNeighborhoods(events)
	if len(hoods) == 0 {
		fmt.Fprintln(os.Stdout, "No neighborhoods found.")
		return nil
	}
	for _, h := range hoods {
		fmt.Fprintln(os.Stdout, h)
	}
	return nil
}
