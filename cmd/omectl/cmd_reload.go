package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/helpfulengineering/ome-matching-core/internal/config"
	"github.com/helpfulengineering/ome-matching-core/internal/rules"
	"github.com/helpfulengineering/ome-matching-core/internal/taxonomy"
)

var reloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Validate taxonomy/processes.yaml and capability_rules/*.yaml by reloading them",
	Long: `Reload loads the taxonomy and rule files from the workspace, then forces
a second load through Registry.Reload/Store.Reload to exercise the same
atomic-swap path the hot-reload watchers use, surfacing parse or validation
errors before they would reach a running service.`,
	RunE: runReload,
}

func runReload(cmd *cobra.Command, args []string) error {
	ws := workspaceDir
	if ws == "" {
		var err error
		ws, err = os.Getwd()
		if err != nil {
			return fmt.Errorf("resolving workspace: %w", err)
		}
	}

	cfgFile := configPath
	if cfgFile == "" {
		candidate := filepath.Join(ws, "config.yaml")
		if _, err := os.Stat(candidate); err == nil {
			cfgFile = candidate
		}
	}
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	taxPath := cfg.TaxonomyPath
	if !filepath.IsAbs(taxPath) {
		taxPath = filepath.Join(ws, taxPath)
	}
	taxReg, err := taxonomy.Load(taxPath)
	if err != nil {
		return fmt.Errorf("taxonomy load: %w", err)
	}
	if err := taxReg.Reload(); err != nil {
		return fmt.Errorf("taxonomy reload: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "taxonomy: ok")

	rulesRoot := cfg.RulesRoot
	if !filepath.IsAbs(rulesRoot) {
		rulesRoot = filepath.Join(ws, rulesRoot)
	}
	ruleStore, err := rules.LoadAll(rulesRoot)
	if err != nil {
		return fmt.Errorf("rules load: %w", err)
	}
	if err := ruleStore.Reload(); err != nil {
		return fmt.Errorf("rules reload: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "rules: ok (%d domains)\n", len(ruleStore.Domains()))
	return nil
}
