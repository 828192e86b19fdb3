package main

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/spf13/cobra"

	"github.com/seqlab/cadence/internal/adapters/fsinventory"
	"github.com/seqlab/cadence/internal/runtime"
)

// orderCmd previews the counterbalanced block schedule the next run would
// get, without touching the subject-facing flow.
var orderCmd = &cobra.Command{
	Use:   "order",
	Short: "Preview a counterbalanced block order",
	Long:  `Generates a block order from the configured designs and the stimulus inventory. With --seed, the output is reproducible.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		seed, _ := cmd.Flags().GetInt64("seed")
		if !cmd.Flags().Changed("seed") {
			seed = time.Now().UnixNano()
		}

		logger := newLogger(cmd)
		inv := fsinventory.New(cfg.AudioPath, logger)
		rng := rand.New(rand.NewSource(seed))

		order, err := runtime.GenerateBlockOrder(cfg.Designs, inv, rng)
		if err != nil {
			return err
		}

		fmt.Printf("seed: %d\n", seed)
		for i, b := range order {
			fmt.Printf("%2d. %-28s block %d  (%d words x %d syllables)\n",
				i+1, b.Design, b.Number, b.NumWords, b.SyllablesPerWord)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(orderCmd)
	orderCmd.Flags().Int64("seed", 0, "Seed for reproducible ordering (default: current time)")
}
