package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/helpfulengineering/ome-matching-core/internal/config"
	"github.com/helpfulengineering/ome-matching-core/pkg/facade"
)

var (
	matchManifestID  string
	matchFacilityID  string
	matchFacilitySet string
	matchDomain      string
	matchQuality     string
	matchStrict      bool
)

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Run match_requirements for a manifest against one or more facilities",
	RunE:  runMatch,
}

func init() {
	matchCmd.Flags().StringVar(&matchManifestID, "manifest", "", "manifest id (required)")
	matchCmd.Flags().StringVar(&matchFacilityID, "facility", "", "single facility id")
	matchCmd.Flags().StringVar(&matchFacilitySet, "facility-set", "", "comma-separated facility ids")
	matchCmd.Flags().StringVar(&matchDomain, "domain", "", "domain override (default: inferred from manifest)")
	matchCmd.Flags().StringVar(&matchQuality, "quality", "", "quality level: hobby|professional|medical")
	matchCmd.Flags().BoolVar(&matchStrict, "strict", false, "require all configured layers, including LLM")
	matchCmd.MarkFlagRequired("manifest")
}

func runMatch(cmd *cobra.Command, args []string) error {
	svc, err := buildService()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var facilitySet []string
	if matchFacilitySet != "" {
		for _, id := range strings.Split(matchFacilitySet, ",") {
			if id = strings.TrimSpace(id); id != "" {
				facilitySet = append(facilitySet, id)
			}
		}
	}

	report := svc.MatchRequirements(ctx, facade.MatchRequirementsRequest{
		ManifestID:   matchManifestID,
		FacilityID:   matchFacilityID,
		FacilitySet:  facilitySet,
		Domain:       matchDomain,
		QualityLevel: config.QualityLevel(matchQuality),
		Strict:       matchStrict,
	})

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	if report.Status == "failed" {
		return fmt.Errorf("match_requirements failed: %s", strings.Join(report.Errors, "; "))
	}
	return nil
}
