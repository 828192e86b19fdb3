package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/seqlab/cadence/internal/adapters/fsinventory"
)

// validateCmd checks the config and walks the stimulus inventory so a
// broken audio tree surfaces before a subject is in the booth.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the config and stimulus inventory",
	Long:  `Validates the experiment configuration and verifies that every design has blocks, every block has trials, and every trial resolves to playable assets.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runValidate(cmd); err != nil {
			fmt.Printf("Validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Inventory is valid! ✅")
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := newLogger(cmd)
	inv := fsinventory.New(cfg.AudioPath, logger)

	for _, design := range cfg.Designs {
		blocks, err := inv.ListBlocks(design)
		if err != nil {
			return err
		}
		if len(blocks) == 0 {
			return fmt.Errorf("design %q has no blocks under %s", design.Name, cfg.AudioPath)
		}

		for _, block := range blocks {
			trials, err := inv.ListTrials(design, block)
			if err != nil {
				return err
			}
			if len(trials) == 0 {
				return fmt.Errorf("design %q block %d has no trials", design.Name, block)
			}

			for _, ref := range trials {
				assets, err := inv.ResolveTrial(ref)
				if err != nil {
					return err
				}
				want := design.NumWords * design.SyllablesPerWord
				if len(assets.Items) != want {
					return fmt.Errorf("%s/block_%d/%s: %d word items, want %d",
						design.Name, block, ref.Trial, len(assets.Items), want)
				}
			}
		}
		fmt.Printf("design %-28s ok (%d blocks)\n", design.Name, len(blocks))
	}
	return nil
}
