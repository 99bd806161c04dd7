package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	stManifestID string
	stFacilityID string
)

var supplyTreeCmd = &cobra.Command{
	Use:   "supply-tree",
	Short: "Run generate_supply_tree for a manifest against one facility",
	RunE:  runSupplyTree,
}

func init() {
	supplyTreeCmd.Flags().StringVar(&stManifestID, "manifest", "", "manifest id (required)")
	supplyTreeCmd.Flags().StringVar(&stFacilityID, "facility", "", "facility id (required)")
	supplyTreeCmd.MarkFlagRequired("manifest")
	supplyTreeCmd.MarkFlagRequired("facility")
}

func runSupplyTree(cmd *cobra.Command, args []string) error {
	svc, err := buildService()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	tree, err := svc.GenerateSupplyTree(ctx, stManifestID, stFacilityID)
	if err != nil {
		return fmt.Errorf("generate_supply_tree: %w", err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(tree)
}
